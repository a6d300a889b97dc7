package core

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"sort"
	"strings"
)

// Hash represents a cryptographic hash
type Hash string

// NewHash creates a new hash from data
func NewHash(data []byte) Hash {
	sum := sha256.Sum256(data)
	return Hash(hex.EncodeToString(sum[:]))
}

// String returns the string representation
func (h Hash) String() string {
	return string(h)
}

// IsEmpty checks if the hash is empty
func (h Hash) IsEmpty() bool {
	return h == ""
}

// Equals checks if two hashes are equal
func (h Hash) Equals(other Hash) bool {
	return h == other
}

// Domain-specific hash types
type (
	LineageHash Hash
	CohortHash  Hash
)

// Constructors
func NewLineageHash(data []byte) LineageHash { return LineageHash(NewHash(data)) }
func NewCohortHash(data []byte) CohortHash   { return CohortHash(NewHash(data)) }

// String conversions
func (h LineageHash) String() string { return Hash(h).String() }
func (h CohortHash) String() string  { return Hash(h).String() }

// ComputeLineageHash derives a deterministic fingerprint for a row's lineage:
// the same (source, transform, dependency set) always hashes identically.
func ComputeLineageHash(source, transform string, dependencies []string) LineageHash {
	deps := make([]string, len(dependencies))
	copy(deps, dependencies)
	sort.Strings(deps)

	var data strings.Builder
	data.WriteString(source)
	data.WriteString("|")
	data.WriteString(transform)
	for _, dep := range deps {
		data.WriteString("|")
		data.WriteString(dep)
	}

	return NewLineageHash([]byte(data.String()))
}

// ComputeRowFingerprint derives a deterministic fingerprint for an aggregate
// row from its grain identity and counts. Sorted field ordering keeps the
// fingerprint stable across runs.
func ComputeRowFingerprint(fields map[string]interface{}) Hash {
	keys := make([]string, 0, len(fields))
	for k := range fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var data strings.Builder
	for _, key := range keys {
		data.WriteString(key)
		data.WriteString(fmt.Sprintf("%v", fields[key]))
	}

	return NewHash([]byte(data.String()))
}

package core

import (
	"fmt"
	"strings"

	"github.com/google/uuid"
)

// ID represents a domain identifier
type ID string

// NewID creates a new unique identifier using UUID v7 for time-ordered generation
func NewID() ID {
	// Use UUID v7 for time-ordered, sortable IDs
	// Falls back to v4 if v7 is not available (for compatibility)
	id, err := uuid.NewV7()
	if err != nil {
		id = uuid.New()
	}
	return ID(id.String())
}

// String returns the string representation
func (id ID) String() string {
	return string(id)
}

// IsEmpty checks if the ID is empty
func (id ID) IsEmpty() bool {
	return id == ""
}

// Domain-specific ID types
type (
	MatchID   ID
	PlayerKey ID
	EntityID  ID
	RowID     ID
	BatchID   ID
)

// String conversions for domain IDs
func (id MatchID) String() string   { return ID(id).String() }
func (id PlayerKey) String() string { return ID(id).String() }
func (id EntityID) String() string  { return ID(id).String() }
func (id RowID) String() string     { return ID(id).String() }
func (id BatchID) String() string   { return ID(id).String() }

// ParseMatchID parses a string into MatchID
func ParseMatchID(s string) (MatchID, error) {
	if strings.TrimSpace(s) == "" {
		return "", fmt.Errorf("match ID cannot be empty")
	}
	return MatchID(s), nil
}

// ParsePlayerKey parses a string into PlayerKey. Player keys are anonymized
// upstream; the only structural requirement here is non-emptiness.
func ParsePlayerKey(s string) (PlayerKey, error) {
	if strings.TrimSpace(s) == "" {
		return "", fmt.Errorf("player key cannot be empty")
	}
	return PlayerKey(s), nil
}

// ParseEntityID parses a string into EntityID
func ParseEntityID(s string) (EntityID, error) {
	if strings.TrimSpace(s) == "" {
		return "", fmt.Errorf("entity ID cannot be empty")
	}
	return EntityID(s), nil
}

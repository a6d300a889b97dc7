package patch

import (
	"fmt"
	"sort"
	"strconv"
	"strings"

	"metapanel/domain/core"
)

// minorsPerMajor is the step distance charged when crossing a major version
// boundary. Balance lines ship at most a few dozen minor patches per major,
// so 50 keeps cross-major distances strictly larger than any within-major
// distance without overflowing decay arithmetic.
const minorsPerMajor = 50

// Version is a parsed game-balance patch version with total ordering.
// Patches are the unit across which no aggregate may blend.
type Version struct {
	Major int `json:"major"`
	Minor int `json:"minor"`
}

// Parse parses a "major.minor" patch string (e.g. "14.3") into a Version.
// Malformed or out-of-range strings are rejected, never coerced.
func Parse(s string) (Version, error) {
	trimmed := strings.TrimSpace(s)
	if trimmed == "" {
		return Version{}, fmt.Errorf("%w: empty version string", core.ErrInvalidPatch)
	}

	parts := strings.Split(trimmed, ".")
	if len(parts) != 2 {
		return Version{}, fmt.Errorf("%w: %q is not major.minor", core.ErrInvalidPatch, s)
	}

	major, err := strconv.Atoi(parts[0])
	if err != nil {
		return Version{}, fmt.Errorf("%w: non-numeric major in %q", core.ErrInvalidPatch, s)
	}
	minor, err := strconv.Atoi(parts[1])
	if err != nil {
		return Version{}, fmt.Errorf("%w: non-numeric minor in %q", core.ErrInvalidPatch, s)
	}

	if major < 1 || major > 99 {
		return Version{}, fmt.Errorf("%w: major %d out of range [1,99]", core.ErrInvalidPatch, major)
	}
	if minor < 0 || minor >= minorsPerMajor {
		return Version{}, fmt.Errorf("%w: minor %d out of range [0,%d)", core.ErrInvalidPatch, minor, minorsPerMajor)
	}

	return Version{Major: major, Minor: minor}, nil
}

// MustParse parses a patch string and panics on failure. Test fixtures only.
func MustParse(s string) Version {
	v, err := Parse(s)
	if err != nil {
		panic(err)
	}
	return v
}

// String returns the canonical "major.minor" form
func (v Version) String() string {
	return fmt.Sprintf("%d.%d", v.Major, v.Minor)
}

// IsZero checks whether the version is the zero value
func (v Version) IsZero() bool {
	return v.Major == 0 && v.Minor == 0
}

// ordinal maps the version onto a single ordered integer axis
func (v Version) ordinal() int {
	return v.Major*minorsPerMajor + v.Minor
}

// Compare returns -1, 0, or 1 for v < other, v == other, v > other
func (v Version) Compare(other Version) int {
	switch {
	case v.ordinal() < other.ordinal():
		return -1
	case v.ordinal() > other.ordinal():
		return 1
	default:
		return 0
	}
}

// Less returns true if v orders strictly before other
func (v Version) Less(other Version) bool {
	return v.Compare(other) < 0
}

// Equal returns true if both versions are identical
func (v Version) Equal(other Version) bool {
	return v.Compare(other) == 0
}

// Advance returns the version `steps` minor patches ahead, carrying into the
// major line at the configured boundary. Negative steps are clamped to zero.
func (v Version) Advance(steps int) Version {
	if steps < 0 {
		steps = 0
	}
	ord := v.ordinal() + steps
	return Version{Major: ord / minorsPerMajor, Minor: ord % minorsPerMajor}
}

// StepsBetween returns the absolute distance in patch steps between a and b.
func StepsBetween(a, b Version) int {
	d := a.ordinal() - b.ordinal()
	if d < 0 {
		d = -d
	}
	return d
}

// Sort orders versions ascending by numeric value, never lexicographic or
// insertion order. Cross-patch temporal folds depend on this ordering.
func Sort(versions []Version) {
	sort.Slice(versions, func(i, j int) bool {
		return versions[i].Less(versions[j])
	})
}

// SortStrings parses and sorts patch strings ascending, rejecting any
// malformed entry.
func SortStrings(raw []string) ([]Version, error) {
	versions := make([]Version, 0, len(raw))
	for _, s := range raw {
		v, err := Parse(s)
		if err != nil {
			return nil, err
		}
		versions = append(versions, v)
	}
	Sort(versions)
	return versions, nil
}

// MarshalText encodes the version in canonical string form
func (v Version) MarshalText() ([]byte, error) {
	return []byte(v.String()), nil
}

// UnmarshalText parses the canonical string form
func (v *Version) UnmarshalText(data []byte) error {
	parsed, err := Parse(string(data))
	if err != nil {
		return err
	}
	*v = parsed
	return nil
}

package core

import (
	"errors"
	"fmt"
)

// Domain errors - centralized error definitions
var (
	// Not found errors
	ErrNotFound        = errors.New("resource not found")
	ErrPatchNotFound   = fmt.Errorf("%w: patch", ErrNotFound)
	ErrRowNotFound     = fmt.Errorf("%w: aggregate row", ErrNotFound)
	ErrPanelNotFound   = fmt.Errorf("%w: panel", ErrNotFound)
	ErrSummaryNotFound = fmt.Errorf("%w: patch summary", ErrNotFound)

	// Input errors
	ErrMissingField = errors.New("missing mandatory field")
	ErrInvalidPatch = errors.New("invalid patch version")
	ErrCrossPatch   = errors.New("cross-patch contamination")

	// Statistical degeneracy
	ErrInsufficientData = errors.New("insufficient data for aggregation")
	ErrDegenerateStats  = errors.New("degenerate statistical input")
	ErrPriorTooWeak     = errors.New("prior evidence below trust floor")

	// Governance errors
	ErrNonCompliant    = errors.New("record failed governance compliance")
	ErrLogicalConflict = errors.New("logical constraint violation")
	ErrPIIDetected     = errors.New("personally identifying content detected")

	// Leakage errors
	ErrLeakage    = errors.New("temporal leakage detected")
	ErrFutureData = errors.New("future patch data detected")
)

// Error constructors with context
func NewMissingFieldError(record string, field string) error {
	return fmt.Errorf("%w: %s in record %s", ErrMissingField, field, record)
}

func NewCrossPatchError(expected, got string) error {
	return fmt.Errorf("%w: expected patch %s, got %s", ErrCrossPatch, expected, got)
}

func NewLeakageError(feature, threshold string) error {
	return fmt.Errorf("%w: feature patch %s >= threshold %s", ErrLeakage, feature, threshold)
}

// Error checking helpers
func IsNotFoundError(err error) bool {
	return errors.Is(err, ErrNotFound)
}

func IsInputError(err error) bool {
	return errors.Is(err, ErrMissingField) ||
		errors.Is(err, ErrInvalidPatch) ||
		errors.Is(err, ErrCrossPatch)
}

func IsDegeneracyError(err error) bool {
	return errors.Is(err, ErrInsufficientData) ||
		errors.Is(err, ErrDegenerateStats) ||
		errors.Is(err, ErrPriorTooWeak)
}

func IsGovernanceError(err error) bool {
	return errors.Is(err, ErrNonCompliant) ||
		errors.Is(err, ErrLogicalConflict) ||
		errors.Is(err, ErrPIIDetected)
}

func IsLeakageError(err error) bool {
	return errors.Is(err, ErrLeakage) || errors.Is(err, ErrFutureData)
}

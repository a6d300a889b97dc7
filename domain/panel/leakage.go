package panel

import (
	"metapanel/domain/patch"
)

// LeakageClass classifies one feature patch against a training patch
type LeakageClass string

const (
	// LeakageSafe: feature patch at or before the training patch
	LeakageSafe LeakageClass = "SAFE"
	// LeakageBuffered: strictly after training but inside the buffer window;
	// usable but flagged
	LeakageBuffered LeakageClass = "BUFFERED"
	// LeakageViolation: at or beyond the buffer threshold; the record must
	// not feed features for this training patch
	LeakageViolation LeakageClass = "VIOLATION"
)

// GuardStamp is the temporal-causality proof attached to a record before it
// may be used as a training/export feature. Computed purely from patch
// version arithmetic; carries no statistical content.
type GuardStamp struct {
	TrainingPatch  patch.Version   `json:"training_patch"`
	FeaturePatches []patch.Version `json:"feature_patches"`
	BufferPatches  int             `json:"buffer_patches"`
	Compliant      bool            `json:"compliant"`
	Violations     []string        `json:"violations,omitempty"`
}

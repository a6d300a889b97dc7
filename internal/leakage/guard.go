package leakage

import (
	"fmt"

	"metapanel/domain/core"
	"metapanel/domain/panel"
	"metapanel/domain/patch"
)

// Guard enforces temporal causality between training patches and the patches
// features draw from. Stateless: every classification is pure patch-version
// arithmetic.
type Guard struct {
	// Buffer is the lookahead gap in patch steps. The violation threshold for
	// training patch T is T advanced by Buffer steps.
	Buffer int
}

// NewGuard creates a guard with the given buffer. Negative buffers collapse
// to zero: anything after the training patch is then a violation.
func NewGuard(buffer int) *Guard {
	if buffer < 0 {
		buffer = 0
	}
	return &Guard{Buffer: buffer}
}

// Threshold is the first patch that constitutes a violation for the given
// training patch
func (g *Guard) Threshold(training patch.Version) patch.Version {
	return training.Advance(g.Buffer)
}

// Classify places one feature patch relative to a training patch.
// At or before training: SAFE. Strictly after training but before the
// threshold: BUFFERED. At or after the threshold: VIOLATION.
func (g *Guard) Classify(training, feature patch.Version) panel.LeakageClass {
	if !training.Less(feature) {
		return panel.LeakageSafe
	}
	if feature.Less(g.Threshold(training)) {
		return panel.LeakageBuffered
	}
	return panel.LeakageViolation
}

// Stamp builds the guard proof for a training patch over the set of feature
// patches a record drew from. Compliant means no feature patch classified
// VIOLATION; BUFFERED patches keep the stamp compliant but are listed.
func (g *Guard) Stamp(training patch.Version, features []patch.Version) panel.GuardStamp {
	stamp := panel.GuardStamp{
		TrainingPatch:  training,
		FeaturePatches: append([]patch.Version(nil), features...),
		BufferPatches:  g.Buffer,
		Compliant:      true,
	}

	threshold := g.Threshold(training)
	for _, feature := range features {
		if g.Classify(training, feature) == panel.LeakageViolation {
			stamp.Compliant = false
			stamp.Violations = append(stamp.Violations,
				fmt.Sprintf("feature patch %s at or beyond threshold %s", feature, threshold))
		}
	}
	return stamp
}

// StampRow attaches a guard proof to a governed record. The training patch is
// the row's own patch; the feature patches are the row's patch plus its prior
// source patches. Annotates only, never touches the wrapped row.
func (g *Guard) StampRow(record *panel.GovernanceRecord) {
	features := []patch.Version{record.Row.PatchID}
	features = append(features, record.Row.PriorSourcePatches...)
	stamp := g.Stamp(record.Row.PatchID, features)
	record.Guard = &stamp
}

// StampAll stamps every record in a batch and returns the violation count
func (g *Guard) StampAll(records []panel.GovernanceRecord) int {
	violations := 0
	for i := range records {
		g.StampRow(&records[i])
		if !records[i].Guard.Compliant {
			violations++
		}
	}
	return violations
}

// CheckBatch stamps a batch and, in strict mode, fails it if any record
// carries a violation. Non-strict mode stamps and reports but never errors.
func (g *Guard) CheckBatch(records []panel.GovernanceRecord, strict bool) error {
	violations := g.StampAll(records)
	if strict && violations > 0 {
		return fmt.Errorf("%w: %d of %d records violate the %d-patch buffer",
			core.ErrLeakage, violations, len(records), g.Buffer)
	}
	return nil
}

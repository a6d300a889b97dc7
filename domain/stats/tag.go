package stats

// GovernanceTag classifies the evidence quality of an aggregate row
type GovernanceTag string

const (
	TagConfident GovernanceTag = "CONFIDENT"
	TagCaution   GovernanceTag = "CAUTION"
	TagContext   GovernanceTag = "CONTEXT"
)

// TagThresholds holds the evidence thresholds behind governance tags.
// Thresholds are configuration, not constants baked into the classifier.
type TagThresholds struct {
	ConfidentMinN     float64 `json:"confident_min_n"`
	ConfidentMaxWidth float64 `json:"confident_max_width"`
	CautionMinN       float64 `json:"caution_min_n"`
	CautionMaxWidth   float64 `json:"caution_max_width"`
}

// DefaultTagThresholds returns the standard evidence thresholds
func DefaultTagThresholds() TagThresholds {
	return TagThresholds{
		ConfidentMinN:     100,
		ConfidentMaxWidth: 0.10,
		CautionMinN:       50,
		CautionMaxWidth:   0.15,
	}
}

// GovernanceTagFor derives the evidence-quality tag from effective sample
// size and interval width. Pure function: identical inputs always yield the
// identical tag.
func GovernanceTagFor(effectiveN, ciWidth float64, th TagThresholds) GovernanceTag {
	switch {
	case effectiveN >= th.ConfidentMinN && ciWidth <= th.ConfidentMaxWidth:
		return TagConfident
	case effectiveN >= th.CautionMinN && ciWidth <= th.CautionMaxWidth:
		return TagCaution
	default:
		return TagContext
	}
}

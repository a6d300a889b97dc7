package stats

// Quality score weights: 60% sample adequacy, 40% confidence sharpness,
// with a flat penalty when outliers were detected in the group's counters.
const (
	qualitySampleWeight    = 0.60
	qualitySharpnessWeight = 0.40
	qualityOutlierPenalty  = 0.10
	qualityAdequateN       = 100.0
)

// QualityScore blends sample adequacy and interval sharpness into a single
// [0,1] score. effectiveN of 100+ saturates the adequacy term; an interval
// width of 0.20+ zeroes the sharpness term.
func QualityScore(effectiveN, ciWidth float64, hasOutliers bool) float64 {
	adequacy := effectiveN / qualityAdequateN
	if adequacy > 1 {
		adequacy = 1
	}
	if adequacy < 0 {
		adequacy = 0
	}

	sharpness := 1 - 5*ciWidth
	if sharpness < 0 {
		sharpness = 0
	}

	score := qualitySampleWeight*adequacy + qualitySharpnessWeight*sharpness
	if hasOutliers {
		score -= qualityOutlierPenalty
	}
	return clamp01(score)
}

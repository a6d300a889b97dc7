package stats

import (
	"github.com/montanaflynn/stats"
)

// Winsorize caps every value at the empirical lowerPct / upperPct
// percentiles of the input. Length-preserving, no-op on empty input.
// Percentiles are expressed in [0,100].
func Winsorize(values []float64, lowerPct, upperPct float64) []float64 {
	if len(values) == 0 {
		return values
	}
	if lowerPct < 0 {
		lowerPct = 0
	}
	if upperPct > 100 {
		upperPct = 100
	}
	if lowerPct >= upperPct {
		out := make([]float64, len(values))
		copy(out, values)
		return out
	}

	lower, errLo := stats.Percentile(values, lowerPct)
	upper, errHi := stats.Percentile(values, upperPct)
	if errLo != nil || errHi != nil {
		// Percentile fails only on degenerate input (e.g. single element
		// with 0th percentile); pass values through untouched.
		out := make([]float64, len(values))
		copy(out, values)
		return out
	}

	out := make([]float64, len(values))
	for i, v := range values {
		switch {
		case v < lower:
			out[i] = lower
		case v > upper:
			out[i] = upper
		default:
			out[i] = v
		}
	}
	return out
}

// HasOutliers reports whether any value falls outside the IQR fences
// (1.5 * IQR beyond Q1/Q3). Used to apply the quality-score outlier penalty.
func HasOutliers(values []float64) bool {
	if len(values) < 4 {
		return false
	}

	q1, err1 := stats.Percentile(values, 25)
	q3, err3 := stats.Percentile(values, 75)
	if err1 != nil || err3 != nil {
		return false
	}

	iqr := q3 - q1
	lo := q1 - 1.5*iqr
	hi := q3 + 1.5*iqr
	for _, v := range values {
		if v < lo || v > hi {
			return true
		}
	}
	return false
}

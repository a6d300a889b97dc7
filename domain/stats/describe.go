package stats

import (
	"github.com/montanaflynn/stats"
)

// Descriptives summarizes a winsorized counter series for a grouped row.
// Stability is the coefficient-of-variation inverted into [0,1] (1 = every
// game identical); Exposure is the mean per-game magnitude.
type Descriptives struct {
	Mean      float64 `json:"mean"`
	StdDev    float64 `json:"std_dev"`
	Median    float64 `json:"median"`
	Stability float64 `json:"stability"`
	Exposure  float64 `json:"exposure"`
}

// Describe computes descriptive statistics over a counter series after
// winsorizing at the 5th/95th percentiles. Empty input yields zeroes.
func Describe(values []float64) Descriptives {
	if len(values) == 0 {
		return Descriptives{}
	}

	capped := Winsorize(values, 5, 95)

	mean, _ := stats.Mean(capped)
	stdDev, _ := stats.StandardDeviation(capped)
	median, _ := stats.Median(capped)

	stability := 1.0
	if mean != 0 {
		cv := stdDev / mean
		if cv < 0 {
			cv = -cv
		}
		stability = clamp01(1 - cv)
	} else if stdDev > 0 {
		stability = 0
	}

	return Descriptives{
		Mean:      mean,
		StdDev:    stdDev,
		Median:    median,
		Stability: stability,
		Exposure:  mean,
	}
}

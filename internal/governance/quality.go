package governance

import (
	"math"
	"regexp"
	"time"

	"metapanel/domain/panel"
)

var metricVersionPattern = regexp.MustCompile(`^[a-z0-9_]+_v[0-9]+$`)

// completeness is the fraction of mandatory evidence fields actually present
// on the row
func completeness(row panel.AggregateRow) float64 {
	checks := []bool{
		row.N > 0,
		row.EffectiveN > 0,
		row.CILo < row.CIHi,
		row.MetricVersion != "",
		!row.GeneratedAt.IsZero(),
		row.Grain != (panel.GrainKey{}),
		!row.Fingerprint.IsEmpty(),
	}
	return fractionMet(checks)
}

// accuracy combines range checks with cross-field reconciliation: the point
// estimate must sit inside its own interval and the synthetic share must agree
// with the n/effective_n arithmetic, both within tolerance.
func accuracy(row panel.AggregateRow, tolerance float64) float64 {
	checks := []bool{
		inUnit(row.Winrate),
		inUnit(row.PickRate),
		inUnit(row.CILo) && inUnit(row.CIHi),
		row.Winrate >= row.CILo-tolerance && row.Winrate <= row.CIHi+tolerance,
		reconcileSyntheticShare(row, tolerance),
	}
	return fractionMet(checks)
}

func reconcileSyntheticShare(row panel.AggregateRow, tolerance float64) bool {
	if !row.UsesPrior {
		return row.SyntheticShare == 0
	}
	if row.EffectiveN <= 0 {
		return false
	}
	expected := (row.EffectiveN - float64(row.N)) / row.EffectiveN
	return math.Abs(row.SyntheticShare-expected) <= tolerance
}

// consistency checks structural shape: the metric version string pattern, the
// grain key carrying exactly the dimensions its ladder rung groups by, and a
// parseable patch identity
func consistency(row panel.AggregateRow) float64 {
	checks := []bool{
		metricVersionPattern.MatchString(row.MetricVersion),
		row.Grain.At(row.Level) == row.Grain,
		row.PatchID.Major > 0,
	}
	return fractionMet(checks)
}

// timeliness scores 1.0 inside the freshness window and decays exponentially
// past it
func timeliness(row panel.AggregateRow, window time.Duration, now time.Time) float64 {
	if row.GeneratedAt.IsZero() || window <= 0 {
		return 0
	}
	age := row.GeneratedAt.Age(now)
	if age <= window {
		return 1.0
	}
	overshoot := float64(age-window) / float64(window)
	return math.Exp(-overshoot)
}

// validity checks enumerated fields hold known values and numerics are finite
func validity(row panel.AggregateRow) float64 {
	checks := []bool{
		row.Level.Rank() < len(panel.Ladder()),
		row.EntityType == panel.EntityChampion || row.EntityType == panel.EntityContext,
		!math.IsNaN(row.Winrate) && !math.IsInf(row.Winrate, 0),
		!math.IsNaN(row.EffectiveN) && !math.IsInf(row.EffectiveN, 0),
	}
	return fractionMet(checks)
}

// uniqueness is a placeholder score: 1.0 when the natural key is present.
// True duplicate detection belongs to the ingestion collaborator.
func uniqueness(row panel.AggregateRow) float64 {
	if row.RowID != "" && !row.Fingerprint.IsEmpty() {
		return 1.0
	}
	return 0
}

func fractionMet(checks []bool) float64 {
	met := 0
	for _, ok := range checks {
		if ok {
			met++
		}
	}
	return float64(met) / float64(len(checks))
}

func inUnit(v float64) bool {
	return v >= 0 && v <= 1 && !math.IsNaN(v)
}

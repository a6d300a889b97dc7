package inference

import (
	"math"
	"sort"

	"gonum.org/v1/gonum/stat/distuv"
)

// RankSumResult is the outcome of a Mann-Whitney rank-sum test
type RankSumResult struct {
	UStatistic float64 `json:"u_statistic"`
	ZScore     float64 `json:"z_score"`
	PValue     float64 `json:"p_value"`
	NA         int     `json:"n_a"`
	NB         int     `json:"n_b"`
}

// RankSum performs the Mann-Whitney U test between two samples using the
// normal approximation with tie correction. Used as the distribution-level
// test over the win-rate populations of two patches. Degenerate inputs
// (either sample empty) return p=1: no evidence of difference.
func RankSum(a, b []float64) RankSumResult {
	nA, nB := len(a), len(b)
	result := RankSumResult{NA: nA, NB: nB, PValue: 1.0}
	if nA == 0 || nB == 0 {
		return result
	}

	type tagged struct {
		value float64
		fromA bool
	}
	combined := make([]tagged, 0, nA+nB)
	for _, v := range a {
		combined = append(combined, tagged{value: v, fromA: true})
	}
	for _, v := range b {
		combined = append(combined, tagged{value: v})
	}
	sort.Slice(combined, func(i, j int) bool { return combined[i].value < combined[j].value })

	// Midranks with tie accounting
	n := len(combined)
	ranks := make([]float64, n)
	tieSum := 0.0
	for i := 0; i < n; {
		j := i
		for j < n && combined[j].value == combined[i].value {
			j++
		}
		midrank := float64(i+j+1) / 2 // average of 1-based ranks i+1..j
		for k := i; k < j; k++ {
			ranks[k] = midrank
		}
		ties := float64(j - i)
		if ties > 1 {
			tieSum += ties*ties*ties - ties
		}
		i = j
	}

	rankSumA := 0.0
	for i, item := range combined {
		if item.fromA {
			rankSumA += ranks[i]
		}
	}

	fA, fB, fN := float64(nA), float64(nB), float64(n)
	u := rankSumA - fA*(fA+1)/2
	mean := fA * fB / 2

	variance := fA * fB / 12 * ((fN + 1) - tieSum/(fN*(fN-1)))
	if variance <= 0 {
		// All values tied: no distributional difference detectable
		result.UStatistic = u
		return result
	}

	z := (u - mean) / math.Sqrt(variance)
	p := 2 * (1 - distuv.UnitNormal.CDF(math.Abs(z)))
	if p > 1 {
		p = 1
	}

	result.UStatistic = u
	result.ZScore = z
	result.PValue = p
	return result
}

package inference

import (
	"math"

	"gonum.org/v1/gonum/stat"
)

// JensenShannon computes the Jensen-Shannon divergence between two discrete
// distributions in bits, so the result is bounded in [0, 1]. Inputs are
// normalized in place onto fresh slices; they do not need to sum to one.
// Distributions must be aligned: index i means the same category in both.
// Degenerate inputs (mismatched lengths, zero mass) return 0.
func JensenShannon(p, q []float64) float64 {
	if len(p) != len(q) || len(p) == 0 {
		return 0
	}

	pn, okP := normalize(p)
	qn, okQ := normalize(q)
	if !okP || !okQ {
		return 0
	}

	m := make([]float64, len(pn))
	for i := range pn {
		m[i] = (pn[i] + qn[i]) / 2
	}

	js := (stat.KullbackLeibler(pn, m) + stat.KullbackLeibler(qn, m)) / 2
	js /= math.Ln2
	if js < 0 {
		return 0
	}
	if js > 1 {
		return 1
	}
	return js
}

// normalize returns a copy of v scaled to sum to one. Negative entries are
// clamped to zero first; a distribution with no mass reports false.
func normalize(v []float64) ([]float64, bool) {
	out := make([]float64, len(v))
	sum := 0.0
	for i, x := range v {
		if x > 0 {
			out[i] = x
			sum += x
		}
	}
	if sum == 0 {
		return nil, false
	}
	for i := range out {
		out[i] /= sum
	}
	return out, true
}

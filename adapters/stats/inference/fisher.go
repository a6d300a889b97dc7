package inference

import (
	"math"
)

// FisherResult is the outcome of a Fisher exact test on a 2x2 table
type FisherResult struct {
	OddsRatio float64 `json:"odds_ratio"`
	PValue    float64 `json:"p_value"`
}

// FisherExact runs the two-sided Fisher exact test on the win/loss table
//
//	winsA  lossesA
//	winsB  lossesB
//
// Conditioned on the margins, the cell count follows a hypergeometric
// distribution; the two-sided p-value sums the probabilities of all tables
// at least as unlikely as the observed one. Empty tables return p=1.
func FisherExact(winsA, lossesA, winsB, lossesB int) FisherResult {
	result := FisherResult{PValue: 1.0}
	if winsA < 0 || lossesA < 0 || winsB < 0 || lossesB < 0 {
		return result
	}

	total := winsA + lossesA + winsB + lossesB
	if total == 0 {
		return result
	}

	rowA := winsA + lossesA
	colWins := winsA + winsB

	result.OddsRatio = oddsRatio(winsA, lossesA, winsB, lossesB)

	observed := hypergeomProb(winsA, rowA, colWins, total)

	// Support of the conditioned table
	lo := rowA + colWins - total
	if lo < 0 {
		lo = 0
	}
	hi := rowA
	if colWins < hi {
		hi = colWins
	}

	// Tolerance absorbs floating-point jitter when comparing point
	// probabilities for "at least as unlikely"
	const relTol = 1 + 1e-7
	p := 0.0
	for k := lo; k <= hi; k++ {
		if prob := hypergeomProb(k, rowA, colWins, total); prob <= observed*relTol {
			p += prob
		}
	}
	if p > 1 {
		p = 1
	}
	result.PValue = p
	return result
}

// hypergeomProb is P(X = k) for k wins in a row of size rowA, drawn from a
// population of size total containing colWins wins. Computed in log space to
// stay stable for large counts.
func hypergeomProb(k, rowA, colWins, total int) float64 {
	logP := lchoose(colWins, k) +
		lchoose(total-colWins, rowA-k) -
		lchoose(total, rowA)
	return math.Exp(logP)
}

// lchoose is log C(n, k)
func lchoose(n, k int) float64 {
	if k < 0 || k > n {
		return math.Inf(-1)
	}
	ln1, _ := math.Lgamma(float64(n + 1))
	lk1, _ := math.Lgamma(float64(k + 1))
	lnk1, _ := math.Lgamma(float64(n - k + 1))
	return ln1 - lk1 - lnk1
}

// oddsRatio computes the sample odds ratio with the Haldane-Anscombe 0.5
// correction on zero cells
func oddsRatio(winsA, lossesA, winsB, lossesB int) float64 {
	a, b, c, d := float64(winsA), float64(lossesA), float64(winsB), float64(lossesB)
	if a == 0 || b == 0 || c == 0 || d == 0 {
		a += 0.5
		b += 0.5
		c += 0.5
		d += 0.5
	}
	return (a * d) / (b * c)
}

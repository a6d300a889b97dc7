package stats

import (
	"math"

	"gonum.org/v1/gonum/stat/distuv"
)

// ShrunkEstimate is the result of Beta-Binomial prior blending
type ShrunkEstimate struct {
	PShrunk    float64 `json:"p_shrunk"`
	EffectiveN float64 `json:"effective_n"`
}

// BetaBinomialShrink blends observed win/loss counts with Beta prior
// pseudo-counts. The prior contributes alphaPrior pseudo-wins and betaPrior
// pseudo-losses, so effectiveN = trials + alphaPrior + betaPrior. As trials
// grows with the prior held fixed, the estimate converges to the raw
// proportion and the shrinkage magnitude goes to zero.
func BetaBinomialShrink(successes, trials int, alphaPrior, betaPrior float64) ShrunkEstimate {
	if successes < 0 {
		successes = 0
	}
	if trials < 0 {
		trials = 0
	}
	if successes > trials {
		successes = trials
	}
	if alphaPrior < 0 {
		alphaPrior = 0
	}
	if betaPrior < 0 {
		betaPrior = 0
	}

	effectiveN := float64(trials) + alphaPrior + betaPrior
	if effectiveN == 0 {
		return ShrunkEstimate{}
	}

	pShrunk := (float64(successes) + alphaPrior) / effectiveN
	return ShrunkEstimate{PShrunk: pShrunk, EffectiveN: effectiveN}
}

// ShrunkInterval computes the equal-tailed credible interval of the
// posterior Beta(successes+alphaPrior, failures+betaPrior). Used when a
// temporal prior has cleared its trust floor.
func ShrunkInterval(successes, trials int, alphaPrior, betaPrior float64, alpha float64) Interval {
	if trials <= 0 && alphaPrior+betaPrior <= 0 {
		return Interval{}
	}
	if alpha <= 0 || alpha >= 1 {
		alpha = 0.05
	}

	est := BetaBinomialShrink(successes, trials, alphaPrior, betaPrior)

	postAlpha := float64(successes) + alphaPrior
	postBeta := float64(trials-successes) + betaPrior
	// Beta quantiles require strictly positive shape parameters
	if postAlpha <= 0 {
		postAlpha = math.SmallestNonzeroFloat64
	}
	if postBeta <= 0 {
		postBeta = math.SmallestNonzeroFloat64
	}

	post := distuv.Beta{Alpha: postAlpha, Beta: postBeta}
	lo := clamp01(post.Quantile(alpha / 2))
	hi := clamp01(post.Quantile(1 - alpha/2))

	if est.PShrunk < lo {
		lo = est.PShrunk
	}
	if est.PShrunk > hi {
		hi = est.PShrunk
	}

	return Interval{PHat: est.PShrunk, Lo: lo, Hi: hi}
}

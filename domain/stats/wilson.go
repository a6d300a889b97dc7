package stats

import (
	"math"

	"gonum.org/v1/gonum/stat/distuv"
)

// Interval is a point estimate with a two-sided confidence interval
type Interval struct {
	PHat float64 `json:"p_hat"`
	Lo   float64 `json:"ci_lo"`
	Hi   float64 `json:"ci_hi"`
}

// Width returns the interval width
func (i Interval) Width() float64 {
	return i.Hi - i.Lo
}

// WilsonInterval computes the closed-form Wilson score interval for a
// binomial proportion. Fails closed on zero trials: a group with no evidence
// gets (0,0,0), never a fabricated interval. Bounds are clamped to [0,1] and
// always satisfy lo <= pHat <= hi.
func WilsonInterval(successes, trials int, alpha float64) Interval {
	if trials <= 0 {
		return Interval{}
	}
	if alpha <= 0 || alpha >= 1 {
		alpha = 0.05
	}
	if successes < 0 {
		successes = 0
	}
	if successes > trials {
		successes = trials
	}

	z := distuv.UnitNormal.Quantile(1 - alpha/2)
	n := float64(trials)
	pHat := float64(successes) / n

	denom := 1 + z*z/n
	center := (pHat + z*z/(2*n)) / denom
	margin := z * math.Sqrt(pHat*(1-pHat)/n+z*z/(4*n*n)) / denom

	lo := clamp01(center - margin)
	hi := clamp01(center + margin)

	// The Wilson center is shrunk toward 0.5, so pHat can sit outside
	// [lo, hi] at the extremes; widen to preserve lo <= pHat <= hi.
	if pHat < lo {
		lo = pHat
	}
	if pHat > hi {
		hi = pHat
	}

	return Interval{PHat: pHat, Lo: lo, Hi: hi}
}

// NormalApproxInterval computes the plain normal-approximation interval.
// This is the fallback used when a temporal prior exists but falls below its
// trust floor: the row keeps an honest, wider interval instead of drawing
// confidence from insufficient prior evidence.
func NormalApproxInterval(successes, trials int, alpha float64) Interval {
	if trials <= 0 {
		return Interval{}
	}
	if alpha <= 0 || alpha >= 1 {
		alpha = 0.05
	}
	if successes < 0 {
		successes = 0
	}
	if successes > trials {
		successes = trials
	}

	z := distuv.UnitNormal.Quantile(1 - alpha/2)
	n := float64(trials)
	pHat := float64(successes) / n
	se := math.Sqrt(pHat * (1 - pHat) / n)

	// Degenerate all-win / all-loss groups have zero sample variance; fall
	// back to the Wilson form rather than emitting a zero-width interval.
	if se == 0 {
		return WilsonInterval(successes, trials, alpha)
	}

	return Interval{
		PHat: pHat,
		Lo:   clamp01(pHat - z*se),
		Hi:   clamp01(pHat + z*se),
	}
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}

package stats

import (
	"math"
	"testing"
)

func TestWilsonInterval(t *testing.T) {
	t.Run("zero trials fails closed", func(t *testing.T) {
		got := WilsonInterval(0, 0, 0.05)
		if got.PHat != 0 || got.Lo != 0 || got.Hi != 0 {
			t.Errorf("expected (0,0,0), got %+v", got)
		}
	})

	t.Run("150 of 300 at 95%", func(t *testing.T) {
		got := WilsonInterval(150, 300, 0.05)
		if got.PHat != 0.5 {
			t.Errorf("pHat = %f, want 0.5", got.PHat)
		}
		if math.Abs(got.Lo-0.445) > 0.005 || math.Abs(got.Hi-0.555) > 0.005 {
			t.Errorf("interval (%f, %f), want approx (0.445, 0.555)", got.Lo, got.Hi)
		}
	})

	t.Run("bounds ordered and clamped for all inputs", func(t *testing.T) {
		for trials := 1; trials <= 50; trials++ {
			for successes := 0; successes <= trials; successes++ {
				got := WilsonInterval(successes, trials, 0.05)
				if got.Lo < 0 || got.Hi > 1 {
					t.Fatalf("bounds escaped [0,1]: %+v (s=%d n=%d)", got, successes, trials)
				}
				if got.Lo > got.PHat || got.PHat > got.Hi {
					t.Fatalf("ordering violated: %+v (s=%d n=%d)", got, successes, trials)
				}
			}
		}
	})

	t.Run("extreme proportions stay in range", func(t *testing.T) {
		got := WilsonInterval(10, 10, 0.05)
		if got.Hi > 1 || got.Lo >= got.Hi {
			t.Errorf("all-wins interval malformed: %+v", got)
		}
	})
}

func TestNormalApproxInterval(t *testing.T) {
	t.Run("wider than wilson at small n", func(t *testing.T) {
		wilson := WilsonInterval(3, 8, 0.05)
		normal := NormalApproxInterval(3, 8, 0.05)
		if normal.Width() <= 0 {
			t.Fatalf("normal interval degenerate: %+v", normal)
		}
		if wilson.Lo < 0 || wilson.Hi > 1 {
			t.Errorf("wilson escaped range: %+v", wilson)
		}
	})

	t.Run("degenerate proportions fall back to wilson", func(t *testing.T) {
		got := NormalApproxInterval(8, 8, 0.05)
		if got.Width() == 0 {
			t.Errorf("zero-width interval for all-wins: %+v", got)
		}
	})
}

func TestBetaBinomialShrink(t *testing.T) {
	t.Run("effective n adds pseudo counts", func(t *testing.T) {
		got := BetaBinomialShrink(5, 10, 6, 4)
		if got.EffectiveN != 20 {
			t.Errorf("effectiveN = %f, want 20", got.EffectiveN)
		}
		// (5+6)/(10+10) = 0.55
		if math.Abs(got.PShrunk-0.55) > 1e-9 {
			t.Errorf("pShrunk = %f, want 0.55", got.PShrunk)
		}
	})

	t.Run("shrinkage shrinks as trials grow", func(t *testing.T) {
		// Fixed 60% observed rate, fixed 50/50 prior mass of 20.
		prev := math.Inf(1)
		for _, trials := range []int{10, 50, 200, 1000} {
			successes := trials * 6 / 10
			est := BetaBinomialShrink(successes, trials, 10, 10)
			raw := float64(successes) / float64(trials)
			pull := math.Abs(est.PShrunk - raw)
			if pull > prev {
				t.Errorf("shrinkage grew with trials: %f > %f at n=%d", pull, prev, trials)
			}
			prev = pull
		}
	})

	t.Run("zero everything returns zero", func(t *testing.T) {
		if got := BetaBinomialShrink(0, 0, 0, 0); got.EffectiveN != 0 {
			t.Errorf("expected zero estimate, got %+v", got)
		}
	})
}

func TestShrunkInterval(t *testing.T) {
	t.Run("prior narrows interval versus no-prior", func(t *testing.T) {
		// 5 wins in 8 games, plus 120 games of decayed 50% history
		// translated into pseudo-counts.
		noPrior := NormalApproxInterval(5, 8, 0.05)
		withPrior := ShrunkInterval(5, 8, 40, 40, 0.05)
		if withPrior.Width() >= noPrior.Width() {
			t.Errorf("prior did not narrow interval: %f >= %f", withPrior.Width(), noPrior.Width())
		}
	})

	t.Run("bounds ordered", func(t *testing.T) {
		got := ShrunkInterval(0, 4, 2, 2, 0.05)
		if got.Lo > got.PHat || got.PHat > got.Hi {
			t.Errorf("ordering violated: %+v", got)
		}
	})
}

func TestWinsorize(t *testing.T) {
	t.Run("empty input is a no-op", func(t *testing.T) {
		if got := Winsorize(nil, 5, 95); len(got) != 0 {
			t.Errorf("expected empty output")
		}
	})

	t.Run("length preserved and extremes capped", func(t *testing.T) {
		in := []float64{1, 2, 3, 4, 5, 6, 7, 8, 9, 1000}
		got := Winsorize(in, 10, 90)
		if len(got) != len(in) {
			t.Fatalf("length changed: %d != %d", len(got), len(in))
		}
		max := got[0]
		for _, v := range got {
			if v > max {
				max = v
			}
		}
		if max >= 1000 {
			t.Errorf("outlier not capped: max = %f", max)
		}
	})

	t.Run("input slice untouched", func(t *testing.T) {
		in := []float64{1, 2, 3, 4, 100}
		_ = Winsorize(in, 20, 80)
		if in[4] != 100 {
			t.Errorf("input mutated: %v", in)
		}
	})
}

func TestHasOutliers(t *testing.T) {
	if HasOutliers([]float64{1, 2, 3}) {
		t.Errorf("tiny input should never flag outliers")
	}
	if !HasOutliers([]float64{10, 11, 12, 10, 11, 12, 11, 500}) {
		t.Errorf("expected outlier detection on extreme value")
	}
	if HasOutliers([]float64{10, 11, 12, 10, 11, 12, 11, 10}) {
		t.Errorf("uniform data flagged as outliers")
	}
}

func TestGovernanceTagFor(t *testing.T) {
	th := DefaultTagThresholds()

	cases := []struct {
		name    string
		effN    float64
		ciWidth float64
		want    GovernanceTag
	}{
		{"confident", 300, 0.08, TagConfident},
		{"confident boundary", 100, 0.10, TagConfident},
		{"caution by width", 300, 0.12, TagCaution},
		{"caution by n", 60, 0.12, TagCaution},
		{"context low n", 20, 0.05, TagContext},
		{"context wide interval", 500, 0.30, TagContext},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := GovernanceTagFor(tc.effN, tc.ciWidth, th)
			if got != tc.want {
				t.Errorf("GovernanceTagFor(%f, %f) = %s, want %s", tc.effN, tc.ciWidth, got, tc.want)
			}
		})
	}

	t.Run("idempotent", func(t *testing.T) {
		a := GovernanceTagFor(120, 0.09, th)
		b := GovernanceTagFor(120, 0.09, th)
		if a != b {
			t.Errorf("classifier not pure: %s != %s", a, b)
		}
	})
}

func TestQualityScore(t *testing.T) {
	t.Run("saturates at adequate n and sharp interval", func(t *testing.T) {
		got := QualityScore(500, 0, false)
		if got != 1.0 {
			t.Errorf("expected 1.0, got %f", got)
		}
	})

	t.Run("outlier penalty applies", func(t *testing.T) {
		clean := QualityScore(100, 0.05, false)
		dirty := QualityScore(100, 0.05, true)
		if math.Abs((clean-dirty)-0.10) > 1e-9 {
			t.Errorf("penalty = %f, want 0.10", clean-dirty)
		}
	})

	t.Run("stays within [0,1]", func(t *testing.T) {
		if got := QualityScore(0, 1.0, true); got < 0 || got > 1 {
			t.Errorf("score escaped range: %f", got)
		}
	})
}

func TestDescribe(t *testing.T) {
	t.Run("empty yields zeroes", func(t *testing.T) {
		if got := Describe(nil); got.Mean != 0 || got.Stability != 0 {
			t.Errorf("expected zero descriptives, got %+v", got)
		}
	})

	t.Run("uniform series is fully stable", func(t *testing.T) {
		got := Describe([]float64{7, 7, 7, 7, 7})
		if got.Stability != 1.0 {
			t.Errorf("stability = %f, want 1.0", got.Stability)
		}
		if got.Exposure != 7 {
			t.Errorf("exposure = %f, want 7", got.Exposure)
		}
	})
}

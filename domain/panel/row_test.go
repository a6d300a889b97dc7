package panel

import (
	"errors"
	"testing"
	"time"

	"metapanel/domain/core"
	"metapanel/domain/match"
	"metapanel/domain/patch"
)

func validRow() AggregateRow {
	return AggregateRow{
		RowID:      core.RowID(core.NewID()),
		PatchID:    patch.MustParse("14.3"),
		EntityType: EntityChampion,
		Grain: GrainKey{
			EntityID: "champ_ahri",
			Role:     match.RoleMid,
			Queue:    match.QueueRankedSolo,
		},
		Level:         LevelEntityRoleQueue,
		N:             240,
		EffectiveN:    240,
		UsesPrior:     false,
		Winrate:       0.52,
		WinrateDelta:  0.02,
		CILo:          0.46,
		CIHi:          0.58,
		PickRate:      0.11,
		MetricVersion: MetricVersion,
		GeneratedAt:   core.NewTimestamp(time.Date(2024, 2, 11, 3, 0, 0, 0, time.UTC)),
	}
}

func TestAggregateRowValidate(t *testing.T) {
	t.Run("valid row passes", func(t *testing.T) {
		if err := validRow().Validate(); err != nil {
			t.Fatalf("expected valid row, got: %v", err)
		}
	})

	t.Run("effective n below n is a logical conflict", func(t *testing.T) {
		row := validRow()
		row.EffectiveN = 100
		err := row.Validate()
		if !errors.Is(err, core.ErrLogicalConflict) {
			t.Errorf("expected ErrLogicalConflict, got: %v", err)
		}
	})

	t.Run("inverted interval is a logical conflict", func(t *testing.T) {
		row := validRow()
		row.CILo, row.CIHi = row.CIHi, row.CILo
		if err := row.Validate(); !errors.Is(err, core.ErrLogicalConflict) {
			t.Errorf("expected ErrLogicalConflict, got: %v", err)
		}
	})

	t.Run("inflated effective n without prior is rejected", func(t *testing.T) {
		row := validRow()
		row.EffectiveN = 300
		if err := row.Validate(); !errors.Is(err, core.ErrLogicalConflict) {
			t.Errorf("expected ErrLogicalConflict, got: %v", err)
		}
	})

	t.Run("prior-blended rows may exceed n", func(t *testing.T) {
		row := validRow()
		row.UsesPrior = true
		row.EffectiveN = 310
		if err := row.Validate(); err != nil {
			t.Errorf("prior row rejected: %v", err)
		}
	})
}

func TestGrainKeyProjection(t *testing.T) {
	key := GrainKey{EntityID: "champ_jinx", Role: match.RoleBottom, Queue: match.QueueRankedSolo}

	t.Run("entity level drops role and queue", func(t *testing.T) {
		got := key.At(LevelEntity)
		if got.Role != "" || got.Queue != "" || got.EntityID != key.EntityID {
			t.Errorf("unexpected projection: %+v", got)
		}
	})

	t.Run("role_queue level drops entity", func(t *testing.T) {
		got := key.At(LevelRoleQueue)
		if got.EntityID != "" || got.Role != key.Role || got.Queue != key.Queue {
			t.Errorf("unexpected projection: %+v", got)
		}
	})

	t.Run("ladder runs finest to coarsest", func(t *testing.T) {
		ladder := Ladder()
		for i := 1; i < len(ladder); i++ {
			if ladder[i-1].Rank() >= ladder[i].Rank() {
				t.Errorf("ladder not ordered at %d: %s, %s", i, ladder[i-1], ladder[i])
			}
		}
	})
}

func TestDeriveRiskLevel(t *testing.T) {
	full := ComplianceCheck{AnonymizationValidated: true, PIIFree: true, RegulatoryCompliant: true}

	cases := []struct {
		name       string
		overall    float64
		compliance ComplianceCheck
		want       RiskLevel
	}{
		{"low", 0.95, full, RiskLow},
		{"medium by score", 0.80, full, RiskMedium},
		{"medium needs anonymization only", 0.80, ComplianceCheck{AnonymizationValidated: true}, RiskMedium},
		{"high on low score", 0.50, full, RiskHigh},
		{"high without anonymization", 0.95, ComplianceCheck{PIIFree: true, RegulatoryCompliant: true}, RiskHigh},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := DeriveRiskLevel(tc.overall, tc.compliance); got != tc.want {
				t.Errorf("DeriveRiskLevel(%f) = %s, want %s", tc.overall, got, tc.want)
			}
		})
	}
}

func TestRowFingerprintDeterminism(t *testing.T) {
	a := validRow().ComputeFingerprint()
	b := validRow().ComputeFingerprint()
	if !a.Equals(b) {
		t.Errorf("fingerprint not deterministic: %s != %s", a, b)
	}

	other := validRow()
	other.N = 241
	if a.Equals(other.ComputeFingerprint()) {
		t.Errorf("fingerprint insensitive to count change")
	}
}

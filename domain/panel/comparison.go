package panel

import (
	"metapanel/domain/core"
	"metapanel/domain/match"
	"metapanel/domain/patch"
)

// EntityDelta captures how one entity moved between two patches
type EntityDelta struct {
	EntityID core.EntityID `json:"entity_id"`
	Role     match.Role    `json:"role,omitempty"`

	WinrateA        float64 `json:"winrate_a"`
	WinrateB        float64 `json:"winrate_b"`
	WinrateDeltaAbs float64 `json:"winrate_delta_abs"`
	WinrateDeltaPct float64 `json:"winrate_delta_pct"`

	PickRateA        float64 `json:"pick_rate_a"`
	PickRateB        float64 `json:"pick_rate_b"`
	PickRateDeltaAbs float64 `json:"pick_rate_delta_abs"`
	PickRateDeltaPct float64 `json:"pick_rate_delta_pct"`

	NA int `json:"n_a"`
	NB int `json:"n_b"`

	ImpactScore float64 `json:"impact_score"`

	PValue      float64 `json:"p_value,omitempty"`
	Significant bool    `json:"significant"`
	Tested      bool    `json:"tested"`
}

// TestOutcome is one statistical test result from a patch comparison
type TestOutcome struct {
	Name        string  `json:"name"`
	Statistic   float64 `json:"statistic"`
	PValue      float64 `json:"p_value"`
	Significant bool    `json:"significant"`
	Detail      string  `json:"detail,omitempty"`
}

// ComparisonResult quantifies the meta shift between two patches. Derived,
// never persisted as mutable state: regenerated on demand for any ordered
// pair of patches.
type ComparisonResult struct {
	PatchFrom patch.Version `json:"patch_from"`
	PatchTo   patch.Version `json:"patch_to"`

	MetaShiftScore float64                `json:"meta_shift_score"`
	RoleDivergence map[match.Role]float64 `json:"role_divergence,omitempty"`

	Deltas  []EntityDelta          `json:"deltas"`
	Tests   map[string]TestOutcome `json:"statistical_tests"`
	Winners []EntityDelta          `json:"top_winners"`
	Losers  []EntityDelta          `json:"top_losers"`

	CommonEntities int            `json:"common_entities"`
	GeneratedAt    core.Timestamp `json:"generated_at"`
}

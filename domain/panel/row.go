package panel

import (
	"fmt"

	"metapanel/domain/core"
	"metapanel/domain/match"
	"metapanel/domain/patch"
)

// MetricVersion identifies the aggregate metric schema carried by every row.
// Bumped whenever the statistical definition of a row field changes.
const MetricVersion = "winrate_panel_v2"

// AggregationLevel names the grain-ladder rung that produced a row,
// finest to coarsest. Mandatory provenance, not decoration.
type AggregationLevel string

const (
	LevelEntityRoleQueue AggregationLevel = "entity_role_queue"
	LevelEntityRole      AggregationLevel = "entity_role"
	LevelEntity          AggregationLevel = "entity"
	LevelRoleQueue       AggregationLevel = "role_queue"
)

// Ladder returns the grain fallback order, finest first
func Ladder() []AggregationLevel {
	return []AggregationLevel{
		LevelEntityRoleQueue,
		LevelEntityRole,
		LevelEntity,
		LevelRoleQueue,
	}
}

// Rank orders levels finest (0) to coarsest. Unknown levels sort last.
func (l AggregationLevel) Rank() int {
	for i, level := range Ladder() {
		if l == level {
			return i
		}
	}
	return len(Ladder())
}

// GrainKey is the dimensional identity of a group before aggregation
type GrainKey struct {
	EntityID core.EntityID `json:"entity_id,omitempty"`
	Role     match.Role    `json:"role,omitempty"`
	Queue    match.Queue   `json:"queue,omitempty"`
}

// At projects the key down to the dimensions a ladder rung groups by
func (k GrainKey) At(level AggregationLevel) GrainKey {
	switch level {
	case LevelEntityRoleQueue:
		return k
	case LevelEntityRole:
		return GrainKey{EntityID: k.EntityID, Role: k.Role}
	case LevelEntity:
		return GrainKey{EntityID: k.EntityID}
	case LevelRoleQueue:
		return GrainKey{Role: k.Role, Queue: k.Queue}
	default:
		return k
	}
}

// String renders the key for map lookup and lineage dependencies
func (k GrainKey) String() string {
	return fmt.Sprintf("%s|%s|%s", k.EntityID, k.Role, k.Queue)
}

// EntityType classifies what a row aggregates over
type EntityType string

const (
	EntityChampion EntityType = "champion"
	EntityContext  EntityType = "context"
)

// AggregateRow is the central produced artifact: one grouped statistical row
// for one patch at one grain. Created exactly once by the aggregation engine
// and never mutated afterwards; a new patch produces new rows, never updates.
type AggregateRow struct {
	RowID      core.RowID       `json:"row_id"`
	PatchID    patch.Version    `json:"patch_id"`
	EntityType EntityType       `json:"entity_type"`
	Grain      GrainKey         `json:"grain"`
	Level      AggregationLevel `json:"aggregation_level"`

	N          int     `json:"n"`
	EffectiveN float64 `json:"effective_n"`
	UsesPrior  bool    `json:"uses_prior"`

	// PriorSourcePatches lists the historical patches whose decayed evidence
	// contributed to the prior. Empty when UsesPrior is false.
	PriorSourcePatches []patch.Version `json:"prior_source_patches,omitempty"`

	Winrate      float64 `json:"winrate"`
	WinrateDelta float64 `json:"winrate_delta"`
	CILo         float64 `json:"ci_lo"`
	CIHi         float64 `json:"ci_hi"`

	PickRate       float64 `json:"pick_rate"`
	Stability      float64 `json:"stability"`
	Exposure       float64 `json:"exposure"`
	SyntheticShare float64 `json:"synthetic_share"`
	OutlierFlag    bool    `json:"outlier_flag,omitempty"`

	MetricVersion string         `json:"metric_version"`
	GeneratedAt   core.Timestamp `json:"generated_at"`
	Fingerprint   core.Hash      `json:"fingerprint"`
}

// CIWidth returns the confidence interval width
func (r AggregateRow) CIWidth() float64 {
	return r.CIHi - r.CILo
}

// Validate enforces the row invariants: effective_n >= n, ci_lo < ci_hi, and
// effective_n == n whenever no prior was used. Violations are logical
// constraint breaks surfaced as governance errors.
func (r AggregateRow) Validate() error {
	if r.EffectiveN < float64(r.N) {
		return fmt.Errorf("%w: effective_n %.2f < n %d", core.ErrLogicalConflict, r.EffectiveN, r.N)
	}
	if r.CILo >= r.CIHi {
		return fmt.Errorf("%w: ci_lo %.4f >= ci_hi %.4f", core.ErrLogicalConflict, r.CILo, r.CIHi)
	}
	if !r.UsesPrior && r.EffectiveN != float64(r.N) {
		return fmt.Errorf("%w: effective_n %.2f != n %d without prior", core.ErrLogicalConflict, r.EffectiveN, r.N)
	}
	if r.MetricVersion == "" {
		return fmt.Errorf("%w: metric_version", core.ErrMissingField)
	}
	if r.GeneratedAt.IsZero() {
		return fmt.Errorf("%w: generated_at", core.ErrMissingField)
	}
	return nil
}

// ComputeFingerprint derives the row's deterministic fingerprint from its
// grain identity and counts
func (r AggregateRow) ComputeFingerprint() core.Hash {
	return core.ComputeRowFingerprint(map[string]interface{}{
		"patch":       r.PatchID.String(),
		"grain":       r.Grain.String(),
		"level":       string(r.Level),
		"n":           r.N,
		"effective_n": r.EffectiveN,
		"winrate":     r.Winrate,
	})
}

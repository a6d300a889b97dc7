package export

import (
	"bufio"
	"encoding/json"
	"io"

	"metapanel/domain/core"
	"metapanel/domain/match"
	"metapanel/domain/panel"
	"metapanel/domain/patch"
	"metapanel/domain/stats"
	"metapanel/internal/errors"
)

// PanelRecord is the flat wire shape of one exported row. Every record
// carries the mandatory evidence fields alongside its governance envelope.
type PanelRecord struct {
	RowID    core.RowID             `json:"row_id"`
	Patch    patch.Version          `json:"patch"`
	EntityID core.EntityID          `json:"entity_id,omitempty"`
	Role     match.Role             `json:"role,omitempty"`
	Queue    match.Queue            `json:"queue,omitempty"`
	Level    panel.AggregationLevel `json:"aggregation_level"`

	N          int     `json:"n"`
	EffectiveN float64 `json:"effective_n"`
	UsesPrior  bool    `json:"uses_prior"`
	CILo       float64 `json:"ci_lo"`
	CIHi       float64 `json:"ci_hi"`

	Winrate        float64 `json:"winrate"`
	PickRate       float64 `json:"pick_rate"`
	SyntheticShare float64 `json:"synthetic_share,omitempty"`

	MetricVersion string         `json:"metric_version"`
	GeneratedAt   core.Timestamp `json:"generated_at"`

	GovernanceTag    stats.GovernanceTag `json:"governance_tag"`
	DataQualityScore float64             `json:"data_quality_score"`
	RiskLevel        panel.RiskLevel     `json:"risk_level"`
	LeakageGuard     *panel.GuardStamp   `json:"leakage_guard,omitempty"`
}

// flatten projects a governed record onto the wire shape
func flatten(rec panel.GovernanceRecord) PanelRecord {
	row := rec.Row
	return PanelRecord{
		RowID:            row.RowID,
		Patch:            row.PatchID,
		EntityID:         row.Grain.EntityID,
		Role:             row.Grain.Role,
		Queue:            row.Grain.Queue,
		Level:            row.Level,
		N:                row.N,
		EffectiveN:       row.EffectiveN,
		UsesPrior:        row.UsesPrior,
		CILo:             row.CILo,
		CIHi:             row.CIHi,
		Winrate:          row.Winrate,
		PickRate:         row.PickRate,
		SyntheticShare:   row.SyntheticShare,
		MetricVersion:    row.MetricVersion,
		GeneratedAt:      row.GeneratedAt,
		GovernanceTag:    rec.Tag,
		DataQualityScore: rec.QualityScore,
		RiskLevel:        rec.Risk,
		LeakageGuard:     rec.Guard,
	}
}

// WritePanel emits one governed partition as newline-delimited JSON in the
// order given
func WritePanel(w io.Writer, records []panel.GovernanceRecord) error {
	buf := bufio.NewWriter(w)
	enc := json.NewEncoder(buf)
	for _, rec := range records {
		if err := enc.Encode(flatten(rec)); err != nil {
			return errors.Wrap(err, "encoding panel record")
		}
	}
	if err := buf.Flush(); err != nil {
		return errors.Wrap(err, "flushing panel output")
	}
	return nil
}

// SummaryRecord is the wire shape of one compared patch pair
type SummaryRecord struct {
	PatchFrom      patch.Version                `json:"patch_from"`
	PatchTo        patch.Version                `json:"patch_to"`
	MetaShiftScore float64                      `json:"meta_shift_score"`
	RoleDivergence map[match.Role]float64       `json:"role_divergence,omitempty"`
	TopWinners     []panel.EntityDelta          `json:"top_winners"`
	TopLosers      []panel.EntityDelta          `json:"top_losers"`
	Tests          map[string]panel.TestOutcome `json:"statistical_tests"`
	CommonEntities int                          `json:"common_entities"`
	GeneratedAt    core.Timestamp               `json:"generated_at"`
}

// WriteSummaries emits one newline-delimited JSON record per compared patch
// pair
func WriteSummaries(w io.Writer, comparisons []panel.ComparisonResult) error {
	buf := bufio.NewWriter(w)
	enc := json.NewEncoder(buf)
	for _, cmp := range comparisons {
		record := SummaryRecord{
			PatchFrom:      cmp.PatchFrom,
			PatchTo:        cmp.PatchTo,
			MetaShiftScore: cmp.MetaShiftScore,
			RoleDivergence: cmp.RoleDivergence,
			TopWinners:     cmp.Winners,
			TopLosers:      cmp.Losers,
			Tests:          cmp.Tests,
			CommonEntities: cmp.CommonEntities,
			GeneratedAt:    cmp.GeneratedAt,
		}
		if err := enc.Encode(record); err != nil {
			return errors.Wrap(err, "encoding patch summary")
		}
	}
	if err := buf.Flush(); err != nil {
		return errors.Wrap(err, "flushing summary output")
	}
	return nil
}

package quantify

import (
	"testing"

	"metapanel/domain/core"
	"metapanel/domain/match"
	"metapanel/domain/panel"
	"metapanel/domain/patch"
	"metapanel/domain/stats"
)

func governed(entity string, role match.Role, p string, winrate, pickRate float64, n int, tag stats.GovernanceTag) panel.GovernanceRecord {
	row := panel.AggregateRow{
		RowID:       core.RowID(core.NewID()),
		PatchID:     patch.MustParse(p),
		EntityType:  panel.EntityChampion,
		Grain:       panel.GrainKey{EntityID: core.EntityID(entity), Role: role, Queue: match.QueueRankedSolo},
		Level:       panel.LevelEntityRoleQueue,
		N:           n,
		EffectiveN:  float64(n),
		Winrate:     winrate,
		CILo:        winrate - 0.03,
		CIHi:        winrate + 0.03,
		PickRate:    pickRate,
		GeneratedAt: core.Now(),
	}
	return panel.GovernanceRecord{
		RecordID: core.NewID(),
		Row:      row,
		Tag:      tag,
		Compliance: panel.ComplianceCheck{
			AnonymizationValidated: true,
			PIIFree:                true,
			RegulatoryCompliant:    true,
		},
	}
}

func TestCompare_IdenticalPanelsScoreZero(t *testing.T) {
	from, to := patch.MustParse("14.1"), patch.MustParse("14.2")
	build := func(p string) []panel.GovernanceRecord {
		return []panel.GovernanceRecord{
			governed("champ_x", match.RoleMid, p, 0.50, 0.10, 200, stats.TagConfident),
			governed("champ_y", match.RoleMid, p, 0.52, 0.45, 200, stats.TagConfident),
			governed("champ_z", match.RoleMid, p, 0.48, 0.45, 200, stats.TagConfident),
		}
	}

	q := New(DefaultOptions())
	result := q.Compare(from, to, build("14.1"), build("14.2"))

	if result.CommonEntities != 3 {
		t.Fatalf("common entities = %d, want 3", result.CommonEntities)
	}
	if result.MetaShiftScore > 1e-9 {
		t.Errorf("identical panels meta shift = %f, want 0", result.MetaShiftScore)
	}
	if len(result.Winners) != 0 || len(result.Losers) != 0 {
		t.Errorf("identical panels produced movers: %d winners, %d losers", len(result.Winners), len(result.Losers))
	}
	if rs := result.Tests["rank_sum"]; rs.Significant {
		t.Errorf("rank sum significant on identical panels: p=%f", rs.PValue)
	}
}

func TestCompare_SingleRedistributionShiftsMeta(t *testing.T) {
	from, to := patch.MustParse("14.1"), patch.MustParse("14.2")

	before := []panel.GovernanceRecord{
		governed("champ_x", match.RoleMid, "14.1", 0.50, 0.10, 300, stats.TagConfident),
		governed("champ_y", match.RoleMid, "14.1", 0.50, 0.45, 300, stats.TagConfident),
		governed("champ_z", match.RoleMid, "14.1", 0.50, 0.45, 300, stats.TagConfident),
	}
	after := []panel.GovernanceRecord{
		governed("champ_x", match.RoleMid, "14.2", 0.50, 0.40, 300, stats.TagConfident),
		governed("champ_y", match.RoleMid, "14.2", 0.50, 0.30, 300, stats.TagConfident),
		governed("champ_z", match.RoleMid, "14.2", 0.50, 0.30, 300, stats.TagConfident),
	}

	q := New(DefaultOptions())
	result := q.Compare(from, to, before, after)

	if result.MetaShiftScore <= 0 {
		t.Fatalf("redistribution meta shift = %f, want > 0", result.MetaShiftScore)
	}
	if result.RoleDivergence[match.RoleMid] <= 0 {
		t.Errorf("mid role divergence = %f, want > 0", result.RoleDivergence[match.RoleMid])
	}

	if len(result.Winners) == 0 || result.Winners[0].EntityID != "champ_x" {
		t.Fatalf("expected champ_x as top winner, got %+v", result.Winners)
	}
	if result.Winners[0].PickRateDeltaAbs <= 0.29 {
		t.Errorf("pick rate delta = %f, want +0.30", result.Winners[0].PickRateDeltaAbs)
	}
}

func TestCompare_WeakEvidenceExcluded(t *testing.T) {
	from, to := patch.MustParse("14.1"), patch.MustParse("14.2")

	before := []panel.GovernanceRecord{
		governed("champ_a", match.RoleTop, "14.1", 0.50, 0.5, 200, stats.TagConfident),
		governed("champ_b", match.RoleTop, "14.1", 0.50, 0.5, 200, stats.TagContext),
	}
	after := []panel.GovernanceRecord{
		governed("champ_a", match.RoleTop, "14.2", 0.52, 0.5, 200, stats.TagConfident),
		governed("champ_b", match.RoleTop, "14.2", 0.60, 0.5, 200, stats.TagConfident),
	}

	q := New(DefaultOptions())
	result := q.Compare(from, to, before, after)

	if result.CommonEntities != 1 {
		t.Fatalf("common entities = %d, want 1 (champ_b is CONTEXT in patch A)", result.CommonEntities)
	}
	if len(result.Deltas) != 1 || result.Deltas[0].EntityID != "champ_a" {
		t.Errorf("deltas = %+v, want only champ_a", result.Deltas)
	}
}

func TestCompare_ExactTestCapSpendsBudgetOnLargestSamples(t *testing.T) {
	from, to := patch.MustParse("14.1"), patch.MustParse("14.2")

	build := func(p string) []panel.GovernanceRecord {
		return []panel.GovernanceRecord{
			governed("champ_big", match.RoleMid, p, 0.50, 0.3, 900, stats.TagConfident),
			governed("champ_mid", match.RoleMid, p, 0.50, 0.3, 500, stats.TagConfident),
			governed("champ_small", match.RoleMid, p, 0.50, 0.3, 120, stats.TagConfident),
		}
	}

	opts := DefaultOptions()
	opts.MaxEntityTests = 2
	q := New(opts)
	result := q.Compare(from, to, build("14.1"), build("14.2"))

	tested := map[core.EntityID]bool{}
	for _, d := range result.Deltas {
		if d.Tested {
			tested[d.EntityID] = true
		}
	}
	if len(tested) != 2 {
		t.Fatalf("tested %d entities, want 2", len(tested))
	}
	if !tested["champ_big"] || !tested["champ_mid"] {
		t.Errorf("cap spent on wrong entities: %v", tested)
	}
	if tested["champ_small"] {
		t.Errorf("smallest-sample entity tested despite cap")
	}
}

func TestCompare_LargeWinrateShiftIsSignificant(t *testing.T) {
	from, to := patch.MustParse("14.1"), patch.MustParse("14.2")

	before := []panel.GovernanceRecord{
		governed("champ_buffed", match.RoleBottom, "14.1", 0.45, 0.2, 500, stats.TagConfident),
	}
	after := []panel.GovernanceRecord{
		governed("champ_buffed", match.RoleBottom, "14.2", 0.60, 0.2, 500, stats.TagConfident),
	}

	q := New(DefaultOptions())
	result := q.Compare(from, to, before, after)

	if len(result.Deltas) != 1 {
		t.Fatalf("deltas = %d, want 1", len(result.Deltas))
	}
	d := result.Deltas[0]
	if !d.Tested {
		t.Fatalf("entity not tested")
	}
	// 225/500 vs 300/500 wins: far beyond any multiple-testing adjustment
	if !d.Significant {
		t.Errorf("15-point winrate shift over n=500 not significant: p=%f", d.PValue)
	}
	fisher := result.Tests["fisher_exact"]
	if !fisher.Significant {
		t.Errorf("fisher summary not significant: %s", fisher.Detail)
	}
}

func TestCompare_EmptyPanels(t *testing.T) {
	q := New(DefaultOptions())
	result := q.Compare(patch.MustParse("14.1"), patch.MustParse("14.2"), nil, nil)

	if result.CommonEntities != 0 || len(result.Deltas) != 0 {
		t.Errorf("empty comparison produced content: %+v", result)
	}
	if result.MetaShiftScore != 0 {
		t.Errorf("empty comparison meta shift = %f, want 0", result.MetaShiftScore)
	}
	if _, ok := result.Tests["fisher_exact"]; ok {
		t.Errorf("fisher summary present with nothing to test")
	}
}

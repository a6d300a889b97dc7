package engine

import (
	"context"
	"errors"
	"testing"

	"metapanel/domain/core"
	"metapanel/domain/match"
	"metapanel/domain/panel"
	"metapanel/domain/patch"
	"metapanel/internal/testkit"
)

func noPriorOptions() Options {
	opts := DefaultOptions()
	opts.UsePrior = false
	opts.MinN = 30
	return opts
}

func findRow(rows []panel.AggregateRow, entity core.EntityID, level panel.AggregationLevel) *panel.AggregateRow {
	for i := range rows {
		if rows[i].Grain.EntityID == entity && rows[i].Level == level {
			return &rows[i]
		}
	}
	return nil
}

func TestAggregatePatch_GrainLadder(t *testing.T) {
	gen := testkit.NewMatchGenerator(42)
	target := patch.MustParse("14.3")

	records := gen.PatchRecords(target, []testkit.EntitySpec{
		// Enough evidence at the finest grain
		{EntityID: "champ_ahri", Role: match.RoleMid, Queue: match.QueueRankedSolo, Winrate: 0.55, Games: 40},
		// Split across queues: each queue group is under MinN, combined role
		// group is not
		{EntityID: "champ_zed", Role: match.RoleMid, Queue: match.QueueRankedSolo, Winrate: 0.50, Games: 20},
		{EntityID: "champ_zed", Role: match.RoleMid, Queue: match.QueueNormal, Winrate: 0.50, Games: 20},
		// Too small everywhere
		{EntityID: "champ_sion", Role: match.RoleTop, Queue: match.QueueRankedSolo, Winrate: 0.50, Games: 5},
	})

	agg := NewAggregator(noPriorOptions())
	result, err := agg.AggregatePatch(context.Background(), target, records, nil)
	if err != nil {
		t.Fatalf("AggregatePatch error: %v", err)
	}

	t.Run("finest grain wins when evidence suffices", func(t *testing.T) {
		row := findRow(result.Rows, "champ_ahri", panel.LevelEntityRoleQueue)
		if row == nil {
			t.Fatalf("expected ahri row at finest grain; rows: %d", len(result.Rows))
		}
		if row.N != 40 {
			t.Errorf("n = %d, want 40", row.N)
		}
	})

	t.Run("small queue groups fall through to entity_role", func(t *testing.T) {
		if found := findRow(result.Rows, "champ_zed", panel.LevelEntityRoleQueue); found != nil {
			t.Errorf("zed should not emit at finest grain with 20-game groups")
		}
		row := findRow(result.Rows, "champ_zed", panel.LevelEntityRole)
		if row == nil {
			t.Fatalf("expected zed row at entity_role")
		}
		if row.N != 40 {
			t.Errorf("combined n = %d, want 40", row.N)
		}
	})

	t.Run("hopeless groups are dropped and counted", func(t *testing.T) {
		for _, row := range result.Rows {
			if row.Grain.EntityID == "champ_sion" {
				t.Errorf("sion emitted despite 5 games: %+v", row)
			}
		}
		if result.Dropped[DropBelowMinN] == 0 {
			t.Errorf("expected below_min_n drops to be counted")
		}
	})

	t.Run("row invariants hold for every emitted row", func(t *testing.T) {
		for _, row := range result.Rows {
			if err := row.Validate(); err != nil {
				t.Errorf("row %s/%s invalid: %v", row.Grain.EntityID, row.Level, err)
			}
		}
	})

	t.Run("aggregation level is recorded provenance", func(t *testing.T) {
		for _, row := range result.Rows {
			if row.Level == "" {
				t.Errorf("row missing aggregation level: %+v", row.Grain)
			}
		}
	})
}

func TestAggregatePatch_CrossPatchRejected(t *testing.T) {
	gen := testkit.NewMatchGenerator(7)
	target := patch.MustParse("14.3")
	records := gen.PatchRecords(patch.MustParse("14.4"), []testkit.EntitySpec{
		{EntityID: "champ_ahri", Role: match.RoleMid, Queue: match.QueueRankedSolo, Winrate: 0.5, Games: 3},
	})

	agg := NewAggregator(noPriorOptions())
	_, err := agg.AggregatePatch(context.Background(), target, records, nil)
	if !errors.Is(err, core.ErrCrossPatch) {
		t.Fatalf("expected ErrCrossPatch, got: %v", err)
	}
}

func TestAggregatePatch_TargetOnly(t *testing.T) {
	gen := testkit.NewMatchGenerator(11)
	target := patch.MustParse("14.3")
	records := gen.PatchRecords(target, []testkit.EntitySpec{
		{EntityID: "champ_ahri", Role: match.RoleMid, Queue: match.QueueRankedSolo, Winrate: 0.55, Games: 60},
		{EntityID: "champ_zed", Role: match.RoleMid, Queue: match.QueueRankedSolo, Winrate: 0.45, Games: 60},
	})

	opts := noPriorOptions()
	opts.TargetOnly = true
	opts.Coverage = map[core.EntityID]bool{"champ_ahri": true}

	agg := NewAggregator(opts)
	result, err := agg.AggregatePatch(context.Background(), target, records, nil)
	if err != nil {
		t.Fatalf("AggregatePatch error: %v", err)
	}

	t.Run("off-coverage entities are excluded", func(t *testing.T) {
		for _, row := range result.Rows {
			if row.Grain.EntityID == "champ_zed" {
				t.Errorf("zed emitted despite coverage filter")
			}
		}
		if result.Dropped[DropNotInCoverage] == 0 {
			t.Errorf("expected coverage exclusions to be counted")
		}
	})

	t.Run("coarsest role fallback suppressed", func(t *testing.T) {
		for _, row := range result.Rows {
			if row.Level == panel.LevelRoleQueue {
				t.Errorf("role_queue row emitted in target-only mode")
			}
		}
	})
}

func TestAggregatePatch_PriorRescuesSmallSample(t *testing.T) {
	gen := testkit.NewMatchGenerator(99)
	target := patch.MustParse("14.3")

	spec := func(games int, wr float64) []testkit.EntitySpec {
		return []testkit.EntitySpec{
			{EntityID: "champ_yone", Role: match.RoleMid, Queue: match.QueueRankedSolo, Winrate: wr, Games: games},
		}
	}

	book := NewPriorBook(4, 0.7)
	if err := book.ObservePatch(patch.MustParse("14.1"), gen.PatchRecords(patch.MustParse("14.1"), spec(60, 0.55))); err != nil {
		t.Fatalf("observe 14.1: %v", err)
	}
	if err := book.ObservePatch(patch.MustParse("14.2"), gen.PatchRecords(patch.MustParse("14.2"), spec(60, 0.55))); err != nil {
		t.Fatalf("observe 14.2: %v", err)
	}

	targetRecords := gen.PatchRecords(target, spec(8, 0.5))

	opts := DefaultOptions()
	opts.MinN = 30

	agg := NewAggregator(opts)
	result, err := agg.AggregatePatch(context.Background(), target, targetRecords, book)
	if err != nil {
		t.Fatalf("AggregatePatch error: %v", err)
	}

	row := findRow(result.Rows, "champ_yone", panel.LevelEntityRoleQueue)
	if row == nil {
		t.Fatalf("expected prior-rescued row at finest grain; rows: %+v", result.RowsByLevel)
	}

	t.Run("effective n exceeds raw n", func(t *testing.T) {
		if !row.UsesPrior {
			t.Fatalf("expected uses_prior on rescued row")
		}
		if row.EffectiveN <= float64(row.N) {
			t.Errorf("effective_n %f <= n %d", row.EffectiveN, row.N)
		}
	})

	t.Run("narrower interval than no-prior aggregation", func(t *testing.T) {
		weakOpts := noPriorOptions()
		weakOpts.EmitWeakRows = true
		noPrior := NewAggregator(weakOpts)

		// With 8 games and no prior the records slide down the whole ladder
		// and emit weak at the coarsest rung over the same sample.
		bare, err := noPrior.AggregatePatch(context.Background(), target, targetRecords, nil)
		if err != nil {
			t.Fatalf("no-prior aggregation error: %v", err)
		}
		if len(bare.Rows) == 0 {
			t.Fatalf("no bare row found for comparison")
		}
		bareWidth := bare.Rows[0].CIWidth()
		if row.CIWidth() >= bareWidth {
			t.Errorf("prior interval %f not narrower than bare %f", row.CIWidth(), bareWidth)
		}
	})

	t.Run("synthetic share reflects prior mass", func(t *testing.T) {
		if row.SyntheticShare <= 0 || row.SyntheticShare >= 1 {
			t.Errorf("synthetic_share = %f, want in (0,1)", row.SyntheticShare)
		}
	})
}

func TestAggregatePatch_WeakPriorFallsBackToNormalCI(t *testing.T) {
	gen := testkit.NewMatchGenerator(123)
	target := patch.MustParse("14.3")

	// Only 10 historical games at distance 1: decayed mass 7 < floor of 20
	book := NewPriorBook(4, 0.7)
	history := gen.PatchRecords(patch.MustParse("14.2"), []testkit.EntitySpec{
		{EntityID: "champ_taric", Role: match.RoleSupport, Queue: match.QueueRankedSolo, Winrate: 0.5, Games: 10},
	})
	if err := book.ObservePatch(patch.MustParse("14.2"), history); err != nil {
		t.Fatalf("observe: %v", err)
	}

	opts := DefaultOptions()
	opts.MinN = 30
	opts.EmitWeakRows = true

	records := gen.PatchRecords(target, []testkit.EntitySpec{
		{EntityID: "champ_taric", Role: match.RoleSupport, Queue: match.QueueRankedSolo, Winrate: 0.5, Games: 40},
	})

	agg := NewAggregator(opts)
	result, err := agg.AggregatePatch(context.Background(), target, records, book)
	if err != nil {
		t.Fatalf("AggregatePatch error: %v", err)
	}

	row := findRow(result.Rows, "champ_taric", panel.LevelEntityRoleQueue)
	if row == nil {
		t.Fatalf("expected taric row")
	}
	if row.UsesPrior {
		t.Errorf("weak prior should not be trusted")
	}
	if row.EffectiveN != float64(row.N) {
		t.Errorf("effective_n %f != n %d without prior", row.EffectiveN, row.N)
	}
}

func TestAggregatePatch_EmitWeakRows(t *testing.T) {
	gen := testkit.NewMatchGenerator(5)
	target := patch.MustParse("14.3")
	records := gen.PatchRecords(target, []testkit.EntitySpec{
		{EntityID: "champ_ivern", Role: match.RoleJungle, Queue: match.QueueRankedSolo, Winrate: 0.5, Games: 6},
	})

	opts := noPriorOptions()
	opts.EmitWeakRows = true

	agg := NewAggregator(opts)
	result, err := agg.AggregatePatch(context.Background(), target, records, nil)
	if err != nil {
		t.Fatalf("AggregatePatch error: %v", err)
	}
	if len(result.Rows) == 0 {
		t.Fatalf("expected weak row emission")
	}
	if result.Dropped[DropBelowMinN] != 0 {
		t.Errorf("weak rows should be emitted, not dropped")
	}
}

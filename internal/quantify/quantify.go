package quantify

import (
	"fmt"
	"math"
	"sort"

	"metapanel/adapters/stats/inference"
	"metapanel/domain/core"
	"metapanel/domain/match"
	"metapanel/domain/panel"
	"metapanel/domain/patch"
	"metapanel/domain/stats"
)

// Options controls patch-to-patch quantification
type Options struct {
	// Alpha is the base significance level before multiple-testing adjustment
	Alpha float64
	// MaxEntityTests caps the number of per-entity exact tests. Candidates
	// are chosen by descending combined sample size, not arbitrary order, so
	// the cap spends the exact tests on the best-evidenced entities.
	MaxEntityTests int
	// TopK bounds the winner/loser lists
	TopK int
}

// DefaultOptions returns the standard quantification options
func DefaultOptions() Options {
	return Options{
		Alpha:          0.05,
		MaxEntityTests: 50,
		TopK:           10,
	}
}

// Quantifier compares two patches' governed panels. Stateless; results are
// derived on demand and never persisted as mutable state.
type Quantifier struct {
	opts Options
}

// New creates a quantifier
func New(opts Options) *Quantifier {
	if opts.Alpha <= 0 || opts.Alpha >= 1 {
		opts.Alpha = 0.05
	}
	if opts.MaxEntityTests < 1 {
		opts.MaxEntityTests = 50
	}
	if opts.TopK < 1 {
		opts.TopK = 10
	}
	return &Quantifier{opts: opts}
}

// snapshot is one entity's evidence within a single patch panel
type snapshot struct {
	entity    core.EntityID
	role      match.Role
	winrate   float64
	pickRate  float64
	n         int
	wins      int
	levelRank int
}

// Compare quantifies the meta shift from patch A to patch B over their
// governed panels. Only entity keys with CONFIDENT or CAUTION evidence in
// both patches enter the comparison.
func (q *Quantifier) Compare(patchA, patchB patch.Version, a, b []panel.GovernanceRecord) panel.ComparisonResult {
	snapsA := collect(a)
	snapsB := collect(b)

	common := commonKeys(snapsA, snapsB)

	result := panel.ComparisonResult{
		PatchFrom:      patchA,
		PatchTo:        patchB,
		RoleDivergence: make(map[match.Role]float64),
		Tests:          make(map[string]panel.TestOutcome),
		CommonEntities: len(common),
		GeneratedAt:    core.Now(),
	}

	deltas := make([]panel.EntityDelta, 0, len(common))
	for _, key := range common {
		deltas = append(deltas, buildDelta(snapsA[key], snapsB[key]))
	}

	q.runExactTests(deltas, snapsA, snapsB, common, &result)
	result.Tests["rank_sum"] = q.rankSumTest(snapsA, snapsB, common)

	result.MetaShiftScore = q.metaShift(snapsA, snapsB, common, result.RoleDivergence)

	sort.Slice(deltas, func(i, j int) bool { return deltaKey(deltas[i]) < deltaKey(deltas[j]) })
	result.Deltas = deltas
	result.Winners, result.Losers = q.rankMovers(deltas)
	return result
}

// collect reduces a governed panel to one snapshot per (entity, role) key,
// preferring the finest grain and then the largest sample when a key appears
// at several rungs
func collect(records []panel.GovernanceRecord) map[string]snapshot {
	snaps := make(map[string]snapshot)
	for _, rec := range records {
		if rec.Tag != stats.TagConfident && rec.Tag != stats.TagCaution {
			continue
		}
		if !rec.ExportEligible() {
			continue
		}
		row := rec.Row
		if row.Grain.EntityID == "" {
			continue
		}

		cand := snapshot{
			entity:    row.Grain.EntityID,
			role:      row.Grain.Role,
			winrate:   row.Winrate,
			pickRate:  row.PickRate,
			n:         row.N,
			wins:      int(math.Round(row.Winrate * float64(row.N))),
			levelRank: row.Level.Rank(),
		}
		key := snapKey(cand.entity, cand.role)
		existing, ok := snaps[key]
		if !ok || cand.levelRank < existing.levelRank ||
			(cand.levelRank == existing.levelRank && cand.n > existing.n) {
			snaps[key] = cand
		}
	}
	return snaps
}

func snapKey(entity core.EntityID, role match.Role) string {
	return fmt.Sprintf("%s|%s", entity, role)
}

func deltaKey(d panel.EntityDelta) string {
	return snapKey(d.EntityID, d.Role)
}

// commonKeys returns the sorted intersection of both panels' entity keys
func commonKeys(a, b map[string]snapshot) []string {
	keys := make([]string, 0)
	for key := range a {
		if _, ok := b[key]; ok {
			keys = append(keys, key)
		}
	}
	sort.Strings(keys)
	return keys
}

// buildDelta computes absolute and percentage movement for one entity key
func buildDelta(a, b snapshot) panel.EntityDelta {
	d := panel.EntityDelta{
		EntityID:         a.entity,
		Role:             a.role,
		WinrateA:         a.winrate,
		WinrateB:         b.winrate,
		WinrateDeltaAbs:  b.winrate - a.winrate,
		PickRateA:        a.pickRate,
		PickRateB:        b.pickRate,
		PickRateDeltaAbs: b.pickRate - a.pickRate,
		NA:               a.n,
		NB:               b.n,
	}
	if a.winrate != 0 {
		d.WinrateDeltaPct = d.WinrateDeltaAbs / a.winrate
	}
	if a.pickRate != 0 {
		d.PickRateDeltaPct = d.PickRateDeltaAbs / a.pickRate
	}
	d.ImpactScore = 0.7*d.WinrateDeltaAbs + 0.3*d.PickRateDeltaAbs
	return d
}

// runExactTests applies Fisher exact tests to the best-evidenced entity keys,
// bounded by MaxEntityTests, with Bonferroni-adjusted significance flags
func (q *Quantifier) runExactTests(deltas []panel.EntityDelta, snapsA, snapsB map[string]snapshot, common []string, result *panel.ComparisonResult) {
	tested := make([]string, len(common))
	copy(tested, common)
	sort.Slice(tested, func(i, j int) bool {
		ci := snapsA[tested[i]].n + snapsB[tested[i]].n
		cj := snapsA[tested[j]].n + snapsB[tested[j]].n
		if ci != cj {
			return ci > cj
		}
		return tested[i] < tested[j]
	})
	if len(tested) > q.opts.MaxEntityTests {
		tested = tested[:q.opts.MaxEntityTests]
	}
	if len(tested) == 0 {
		return
	}

	adjustedAlpha := q.opts.Alpha / float64(len(tested))
	testedSet := make(map[string]bool, len(tested))
	for _, key := range tested {
		testedSet[key] = true
	}

	significant := 0
	for i := range deltas {
		key := deltaKey(deltas[i])
		if !testedSet[key] {
			continue
		}
		sa, sb := snapsA[key], snapsB[key]
		fisher := inference.FisherExact(sa.wins, sa.n-sa.wins, sb.wins, sb.n-sb.wins)
		deltas[i].Tested = true
		deltas[i].PValue = fisher.PValue
		deltas[i].Significant = fisher.PValue < adjustedAlpha
		if deltas[i].Significant {
			significant++
		}
	}

	result.Tests["fisher_exact"] = panel.TestOutcome{
		Name:        "fisher_exact",
		Statistic:   float64(significant),
		PValue:      adjustedAlpha,
		Significant: significant > 0,
		Detail: fmt.Sprintf("%d of %d tested entities significant at alpha %.4g (Bonferroni over %d tests)",
			significant, len(tested), adjustedAlpha, len(tested)),
	}
}

// rankSumTest compares the two patches' win-rate populations over the common
// keys
func (q *Quantifier) rankSumTest(snapsA, snapsB map[string]snapshot, common []string) panel.TestOutcome {
	winratesA := make([]float64, 0, len(common))
	winratesB := make([]float64, 0, len(common))
	for _, key := range common {
		winratesA = append(winratesA, snapsA[key].winrate)
		winratesB = append(winratesB, snapsB[key].winrate)
	}
	rs := inference.RankSum(winratesA, winratesB)
	return panel.TestOutcome{
		Name:        "rank_sum",
		Statistic:   rs.UStatistic,
		PValue:      rs.PValue,
		Significant: rs.PValue < q.opts.Alpha,
		Detail:      fmt.Sprintf("mann-whitney over %d vs %d win rates, z=%.3f", rs.NA, rs.NB, rs.ZScore),
	}
}

// metaShift computes the Jensen-Shannon divergence between the two patches'
// pick-rate mass within each role, then averages across roles. Identical
// distributions score 0; a full redistribution scores 1.
func (q *Quantifier) metaShift(snapsA, snapsB map[string]snapshot, common []string, byRole map[match.Role]float64) float64 {
	entitiesByRole := make(map[match.Role][]string)
	for _, key := range common {
		role := snapsA[key].role
		entitiesByRole[role] = append(entitiesByRole[role], key)
	}

	roles := make([]match.Role, 0, len(entitiesByRole))
	for role := range entitiesByRole {
		roles = append(roles, role)
	}
	sort.Slice(roles, func(i, j int) bool { return roles[i] < roles[j] })

	total := 0.0
	scored := 0
	for _, role := range roles {
		keys := entitiesByRole[role]
		massA := make([]float64, len(keys))
		massB := make([]float64, len(keys))
		for i, key := range keys {
			massA[i] = snapsA[key].pickRate
			massB[i] = snapsB[key].pickRate
		}
		js := inference.JensenShannon(massA, massB)
		byRole[role] = js
		total += js
		scored++
	}
	if scored == 0 {
		return 0
	}
	return total / float64(scored)
}

// rankMovers splits deltas into top winners and losers by signed impact
func (q *Quantifier) rankMovers(deltas []panel.EntityDelta) (winners, losers []panel.EntityDelta) {
	ranked := make([]panel.EntityDelta, len(deltas))
	copy(ranked, deltas)
	sort.Slice(ranked, func(i, j int) bool {
		if ranked[i].ImpactScore != ranked[j].ImpactScore {
			return ranked[i].ImpactScore > ranked[j].ImpactScore
		}
		return deltaKey(ranked[i]) < deltaKey(ranked[j])
	})

	for _, d := range ranked {
		if d.ImpactScore > 0 && len(winners) < q.opts.TopK {
			winners = append(winners, d)
		}
	}
	for i := len(ranked) - 1; i >= 0; i-- {
		if ranked[i].ImpactScore < 0 && len(losers) < q.opts.TopK {
			losers = append(losers, ranked[i])
		}
	}
	return winners, losers
}

package engine

import (
	"context"
	"runtime"
	"sort"

	"golang.org/x/sync/errgroup"

	"metapanel/domain/core"
	"metapanel/domain/match"
	"metapanel/domain/panel"
	"metapanel/domain/patch"
	"metapanel/domain/stats"
)

// Options controls the grain ladder and prior blending for one aggregation
// run. Optional behavior is explicit: TargetOnly=false means Coverage is
// never consulted.
type Options struct {
	MinN  int
	Alpha float64

	UsePrior    bool
	PriorWindow int
	Decay       float64
	PriorMinN   float64
	Alpha0      float64
	Beta0       float64

	TargetOnly bool
	Coverage   map[core.EntityID]bool

	// EmitWeakRows emits sub-threshold rows (destined to tag CONTEXT)
	// instead of dropping them at the end of the ladder.
	EmitWeakRows bool
}

// DefaultOptions returns the standard aggregation options
func DefaultOptions() Options {
	return Options{
		MinN:        30,
		Alpha:       0.05,
		UsePrior:    true,
		PriorWindow: 4,
		Decay:       0.7,
		PriorMinN:   20,
		Alpha0:      1,
		Beta0:       1,
	}
}

// DropReason classifies why a group produced no row
type DropReason string

const (
	DropBelowMinN     DropReason = "below_min_n"
	DropNotInCoverage DropReason = "not_in_coverage"
)

// PatchResult is the outcome of aggregating one patch
type PatchResult struct {
	Patch        patch.Version
	Rows         []panel.AggregateRow
	TotalRecords int
	RoleTotals   map[match.Role]int
	Dropped      map[DropReason]int
	RowsByLevel  map[panel.AggregationLevel]int
}

// Aggregator turns one patch's validated records into grouped statistical
// rows via the grain fallback ladder. Stateless across patches; the prior
// book carries all cross-patch memory.
type Aggregator struct {
	opts Options
}

// NewAggregator creates an aggregator with the given options
func NewAggregator(opts Options) *Aggregator {
	if opts.MinN < 1 {
		opts.MinN = 1
	}
	if opts.Alpha <= 0 || opts.Alpha >= 1 {
		opts.Alpha = 0.05
	}
	return &Aggregator{opts: opts}
}

// group is one candidate grain group during the ladder fold
type group struct {
	key     panel.GrainKey
	records []match.PlayerRecord
}

// candidate is a computed row plus its emission decision inputs
type candidate struct {
	row  panel.AggregateRow
	emit bool
}

// AggregatePatch aggregates all records for exactly one patch. Cross-patch
// input is a hard invariant violation and fails the whole call: callers
// validate and segregate batches before aggregation. Grain groups within a
// rung are disjoint and are computed concurrently.
func (a *Aggregator) AggregatePatch(ctx context.Context, target patch.Version, records []match.PlayerRecord, book *PriorBook) (*PatchResult, error) {
	for _, rec := range records {
		if !rec.Patch.Equal(target) {
			return nil, core.NewCrossPatchError(target.String(), rec.Patch.String())
		}
	}

	result := &PatchResult{
		Patch:        target,
		TotalRecords: len(records),
		RoleTotals:   make(map[match.Role]int),
		Dropped:      make(map[DropReason]int),
		RowsByLevel:  make(map[panel.AggregationLevel]int),
	}
	for _, rec := range records {
		result.RoleTotals[rec.Role]++
	}

	remaining := records
	ladder := a.applicableLadder()

	for i, level := range ladder {
		lastRung := i == len(ladder)-1

		groups, skipped := a.groupAt(level, remaining)
		result.Dropped[DropNotInCoverage] += skipped

		candidates, err := a.computeRung(ctx, target, level, groups, result, book, lastRung)
		if err != nil {
			return nil, err
		}

		var fallthroughRecords []match.PlayerRecord
		for gi, cand := range candidates {
			if cand.emit {
				result.Rows = append(result.Rows, cand.row)
				result.RowsByLevel[level]++
				continue
			}
			if lastRung {
				result.Dropped[DropBelowMinN]++
				continue
			}
			fallthroughRecords = append(fallthroughRecords, groups[gi].records...)
		}
		remaining = fallthroughRecords
		if len(remaining) == 0 {
			break
		}
	}

	sortRows(result.Rows)
	return result, nil
}

// applicableLadder returns the grain ladder, with the coarsest role-level
// fallback suppressed entirely in target-only mode.
func (a *Aggregator) applicableLadder() []panel.AggregationLevel {
	ladder := panel.Ladder()
	if a.opts.TargetOnly {
		return ladder[:len(ladder)-1]
	}
	return ladder
}

// groupAt partitions records into grain groups at one rung, applying the
// coverage allow-list in target-only mode. Returns the groups in a
// deterministic order plus the count of records excluded by coverage.
func (a *Aggregator) groupAt(level panel.AggregationLevel, records []match.PlayerRecord) ([]group, int) {
	byKey := make(map[string]*group)
	order := make([]string, 0)
	skipped := 0

	for _, rec := range records {
		if a.opts.TargetOnly && !a.opts.Coverage[rec.EntityID] {
			skipped++
			continue
		}
		key := fullGrain(rec).At(level)
		ks := key.String()
		g, ok := byKey[ks]
		if !ok {
			g = &group{key: key}
			byKey[ks] = g
			order = append(order, ks)
		}
		g.records = append(g.records, rec)
	}

	sort.Strings(order)
	groups := make([]group, 0, len(byKey))
	for _, ks := range order {
		groups = append(groups, *byKey[ks])
	}
	return groups, skipped
}

// computeRung builds candidate rows for every group at one rung. Groups are
// disjoint record sets, so they are computed concurrently.
func (a *Aggregator) computeRung(ctx context.Context, target patch.Version, level panel.AggregationLevel, groups []group, result *PatchResult, book *PriorBook, lastRung bool) ([]candidate, error) {
	candidates := make([]candidate, len(groups))

	eg, ctx := errgroup.WithContext(ctx)
	eg.SetLimit(runtime.GOMAXPROCS(0))

	for gi := range groups {
		gi := gi
		eg.Go(func() error {
			select {
			case <-ctx.Done():
				return ctx.Err()
			default:
			}
			// Each goroutine writes a distinct slice element
			candidates[gi] = a.buildCandidate(target, level, groups[gi], result, book, lastRung)
			return nil
		})
	}
	if err := eg.Wait(); err != nil {
		return nil, err
	}
	return candidates, nil
}

// buildCandidate aggregates one grain group into a row and decides whether
// it clears the evidence bar at this rung.
func (a *Aggregator) buildCandidate(target patch.Version, level panel.AggregationLevel, g group, result *PatchResult, book *PriorBook, lastRung bool) candidate {
	n := len(g.records)
	wins := 0
	kdaSeries := make([]float64, 0, n)
	goldSeries := make([]float64, 0, n)
	for _, rec := range g.records {
		if rec.Win {
			wins++
		}
		kdaSeries = append(kdaSeries, rec.Counters.KDA())
		minutes := rec.Counters.DurationSec / 60
		if minutes > 0 {
			goldSeries = append(goldSeries, float64(rec.Counters.GoldEarned)/minutes)
		}
	}

	var interval stats.Interval
	var prior Prior
	usesPrior := false
	effectiveN := float64(n)

	if a.opts.UsePrior {
		if book != nil {
			prior = book.PriorFor(target, level, g.key.String())
		}
		if prior.Total() >= a.opts.PriorMinN {
			alphaP := prior.Wins + a.opts.Alpha0
			betaP := prior.Losses + a.opts.Beta0
			interval = stats.ShrunkInterval(wins, n, alphaP, betaP, a.opts.Alpha)
			usesPrior = true
			effectiveN = stats.BetaBinomialShrink(wins, n, alphaP, betaP).EffectiveN
		} else {
			// Prior exists but is below the trust floor: keep an honest
			// normal-approximation interval rather than borrowing from
			// insufficient evidence.
			interval = stats.NormalApproxInterval(wins, n, a.opts.Alpha)
		}
	} else {
		interval = stats.WilsonInterval(wins, n, a.opts.Alpha)
	}

	kdaStats := stats.Describe(kdaSeries)
	goldStats := stats.Describe(goldSeries)

	syntheticShare := 0.0
	if usesPrior && effectiveN > 0 {
		syntheticShare = (effectiveN - float64(n)) / effectiveN
	}

	row := panel.AggregateRow{
		RowID:          core.RowID(core.NewID()),
		PatchID:        target,
		EntityType:     entityTypeFor(g.key),
		Grain:          g.key,
		Level:          level,
		N:              n,
		EffectiveN:     effectiveN,
		UsesPrior:      usesPrior,
		Winrate:        interval.PHat,
		WinrateDelta:   interval.PHat - 0.5,
		CILo:           interval.Lo,
		CIHi:           interval.Hi,
		PickRate:       a.pickRate(g.key, n, result),
		Stability:      kdaStats.Stability,
		Exposure:       goldStats.Exposure,
		SyntheticShare: syntheticShare,
		OutlierFlag:    stats.HasOutliers(goldSeries),
		MetricVersion:  panel.MetricVersion,
		GeneratedAt:    core.Now(),
	}
	if usesPrior {
		row.PriorSourcePatches = prior.Sources
	}
	row.Fingerprint = row.ComputeFingerprint()

	emit := effectiveN >= float64(a.opts.MinN)
	if !emit && lastRung && a.opts.EmitWeakRows {
		emit = true
	}
	return candidate{row: row, emit: emit}
}

// pickRate computes the group's share of its natural population: role-scoped
// grains against the role's record count, everything else against the patch
// total.
func (a *Aggregator) pickRate(key panel.GrainKey, n int, result *PatchResult) float64 {
	if key.EntityID != "" && key.Role != "" {
		if roleTotal := result.RoleTotals[key.Role]; roleTotal > 0 {
			return float64(n) / float64(roleTotal)
		}
	}
	if result.TotalRecords > 0 {
		return float64(n) / float64(result.TotalRecords)
	}
	return 0
}

func entityTypeFor(key panel.GrainKey) panel.EntityType {
	if key.EntityID != "" {
		return panel.EntityChampion
	}
	return panel.EntityContext
}

// sortRows orders rows finest grain first, then by grain key, for
// deterministic output across runs
func sortRows(rows []panel.AggregateRow) {
	sort.Slice(rows, func(i, j int) bool {
		if rows[i].Level.Rank() != rows[j].Level.Rank() {
			return rows[i].Level.Rank() < rows[j].Level.Rank()
		}
		return rows[i].Grain.String() < rows[j].Grain.String()
	})
}

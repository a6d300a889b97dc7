package testkit

import (
	"fmt"
	"math/rand"
	"time"

	"metapanel/domain/core"
	"metapanel/domain/match"
	"metapanel/domain/patch"
)

// EntitySpec describes one entity's synthetic population within a patch.
// Wins are allocated exactly (round(Winrate*Games)), not drawn, so tests can
// assert against known proportions.
type EntitySpec struct {
	EntityID core.EntityID
	Role     match.Role
	Queue    match.Queue
	Winrate  float64
	Games    int
}

// MatchGenerator produces deterministic synthetic match records. The same
// seed always yields the same records.
type MatchGenerator struct {
	rng  *rand.Rand
	base time.Time
	seq  int
}

// NewMatchGenerator creates a seeded generator
func NewMatchGenerator(seed int64) *MatchGenerator {
	return &MatchGenerator{
		rng:  rand.New(rand.NewSource(seed)),
		base: time.Date(2024, 1, 15, 12, 0, 0, 0, time.UTC),
	}
}

// PatchRecords generates records for one patch from entity specs. Match
// timestamps advance monotonically so freshness checks behave predictably.
func (g *MatchGenerator) PatchRecords(p patch.Version, specs []EntitySpec) []match.PlayerRecord {
	var records []match.PlayerRecord
	for _, spec := range specs {
		wins := int(float64(spec.Games)*spec.Winrate + 0.5)
		for i := 0; i < spec.Games; i++ {
			g.seq++
			rec := match.PlayerRecord{
				MatchID:   core.MatchID(fmt.Sprintf("SYN_%s_%06d", p, g.seq)),
				PlayerKey: core.PlayerKey(fmt.Sprintf("pk_%08x", g.rng.Uint32())),
				Patch:     p,
				EntityID:  spec.EntityID,
				Role:      spec.Role,
				Queue:     spec.Queue,
				Win:       i < wins,
				Counters:  g.counters(i < wins),
				PlayedAt:  core.NewTimestamp(g.base.Add(time.Duration(g.seq) * time.Minute)),
			}
			records = append(records, rec)
		}
	}
	return records
}

// counters generates plausible per-match performance counters, slightly
// better on wins
func (g *MatchGenerator) counters(win bool) match.Counters {
	bonus := 0
	if win {
		bonus = 2
	}
	kills := g.rng.Intn(10) + bonus
	deaths := g.rng.Intn(8) + 1
	assists := g.rng.Intn(12) + bonus
	duration := 1500 + g.rng.Float64()*900

	return match.Counters{
		Kills:       kills,
		Deaths:      deaths,
		Assists:     assists,
		GoldEarned:  9000 + g.rng.Intn(8000) + bonus*500,
		DamageDealt: 14000 + g.rng.Intn(16000),
		CreepScore:  120 + g.rng.Intn(160),
		DurationSec: duration,
	}
}

// UniformRolePatch generates a balanced synthetic patch: every listed entity
// plays `games` games in the given role/queue at the given win rates.
func (g *MatchGenerator) UniformRolePatch(p patch.Version, role match.Role, queue match.Queue, winrates map[core.EntityID]float64, games int) []match.PlayerRecord {
	specs := make([]EntitySpec, 0, len(winrates))
	for entity, wr := range winrates {
		specs = append(specs, EntitySpec{
			EntityID: entity,
			Role:     role,
			Queue:    queue,
			Winrate:  wr,
			Games:    games,
		})
	}
	// Map iteration order is random; sort for determinism
	for i := 1; i < len(specs); i++ {
		for j := i; j > 0 && specs[j].EntityID < specs[j-1].EntityID; j-- {
			specs[j], specs[j-1] = specs[j-1], specs[j]
		}
	}
	return g.PatchRecords(p, specs)
}

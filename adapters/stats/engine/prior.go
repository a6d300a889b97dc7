package engine

import (
	"fmt"
	"math"

	"metapanel/domain/core"
	"metapanel/domain/match"
	"metapanel/domain/panel"
	"metapanel/domain/patch"
)

// observation is one patch's raw win/game tally for a grain key
type observation struct {
	patch patch.Version
	wins  float64
	games float64
}

// PriorBook is the historical lookup behind temporal prior shrinkage, keyed
// by (aggregation level, grain key). It is an accumulator threaded through
// an ordered fold over patches: the sequencing driver owns it exclusively
// and feeds patches oldest to newest. Not safe for concurrent mutation;
// only the fold writes to it.
type PriorBook struct {
	window int
	decay  float64

	history   map[panel.AggregationLevel]map[string][]observation
	lastPatch patch.Version
	observed  bool
}

// NewPriorBook creates an empty prior book with the given eligibility
// window (in patch steps) and per-step decay in (0,1).
func NewPriorBook(window int, decay float64) *PriorBook {
	return &PriorBook{
		window:  window,
		decay:   decay,
		history: make(map[panel.AggregationLevel]map[string][]observation),
	}
}

// ObservePatch folds one patch's raw records into the book at every ladder
// level. Patches must arrive in strictly increasing numeric order; an
// out-of-order patch is an error, not a silent reorder.
func (b *PriorBook) ObservePatch(p patch.Version, records []match.PlayerRecord) error {
	if b.observed && !b.lastPatch.Less(p) {
		return fmt.Errorf("%w: patch %s observed after %s", core.ErrCrossPatch, p, b.lastPatch)
	}

	for _, rec := range records {
		if !rec.Patch.Equal(p) {
			return core.NewCrossPatchError(p.String(), rec.Patch.String())
		}
	}

	for _, level := range panel.Ladder() {
		tallies := make(map[string]*observation)
		for _, rec := range records {
			key := fullGrain(rec).At(level).String()
			obs, ok := tallies[key]
			if !ok {
				obs = &observation{patch: p}
				tallies[key] = obs
			}
			obs.games++
			if rec.Win {
				obs.wins++
			}
		}

		byKey := b.history[level]
		if byKey == nil {
			byKey = make(map[string][]observation)
			b.history[level] = byKey
		}
		for key, obs := range tallies {
			byKey[key] = append(byKey[key], *obs)
		}
	}

	b.lastPatch = p
	b.observed = true
	return nil
}

// Prior is the decayed pseudo-count evidence available for one grain key.
// Sources lists the contributing patches in ascending order.
type Prior struct {
	Wins    float64
	Losses  float64
	Sources []patch.Version
}

// Total returns the combined weighted evidence mass
func (p Prior) Total() float64 {
	return p.Wins + p.Losses
}

// PriorFor computes the decay-weighted prior for a grain key at a target
// patch. Only observations strictly before the target and within the
// eligibility window contribute, each weighted decay^distance. The leakage
// guarantee lives here: nothing at or after the target patch can ever leak
// into the prior.
func (b *PriorBook) PriorFor(target patch.Version, level panel.AggregationLevel, key string) Prior {
	var prior Prior
	byKey, ok := b.history[level]
	if !ok {
		return prior
	}
	for _, obs := range byKey[key] {
		if !obs.patch.Less(target) {
			continue
		}
		distance := patch.StepsBetween(target, obs.patch)
		if distance > b.window {
			continue
		}
		weight := math.Pow(b.decay, float64(distance))
		prior.Wins += weight * obs.wins
		prior.Losses += weight * (obs.games - obs.wins)
		prior.Sources = append(prior.Sources, obs.patch)
	}
	return prior
}

// fullGrain extracts the finest grain key from a record
func fullGrain(rec match.PlayerRecord) panel.GrainKey {
	return panel.GrainKey{
		EntityID: rec.EntityID,
		Role:     rec.Role,
		Queue:    rec.Queue,
	}
}

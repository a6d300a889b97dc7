package export

import (
	"sort"

	"metapanel/domain/match"
	"metapanel/domain/panel"
	"metapanel/domain/stats"
)

// Options controls panel partitioning
type Options struct {
	// MaxEntityRows caps the entity panel
	MaxEntityRows int
}

// DefaultOptions returns the standard export options
func DefaultOptions() Options {
	return Options{MaxEntityRows: 3000}
}

// Partitions is the three-way split of a governed panel
type Partitions struct {
	// Entity is the production panel: bounded, evidence-ranked champion rows
	Entity []panel.GovernanceRecord
	// Context holds exploratory rows: weaker evidence and context grains,
	// unbounded
	Context []panel.GovernanceRecord
	// Excluded counts rows rejected outright (non-compliant)
	Excluded int
}

// tagPriority orders evidence tags strongest first
func tagPriority(tag stats.GovernanceTag) int {
	switch tag {
	case stats.TagConfident:
		return 0
	case stats.TagCaution:
		return 1
	default:
		return 2
	}
}

// stronger reports whether record a outranks b: tag priority first, ties
// broken by quality score then raw sample size
func stronger(a, b panel.GovernanceRecord) bool {
	if pa, pb := tagPriority(a.Tag), tagPriority(b.Tag); pa != pb {
		return pa < pb
	}
	if a.QualityScore != b.QualityScore {
		return a.QualityScore > b.QualityScore
	}
	if a.Row.N != b.Row.N {
		return a.Row.N > b.Row.N
	}
	return a.Row.Grain.String() < b.Row.Grain.String()
}

// Partition splits governed records into the entity, context, and excluded
// sets. The entity panel is capped and CONFIDENT-first; after the initial
// cut, role coverage is enforced so one role cannot monopolize the cap.
func Partition(records []panel.GovernanceRecord, opts Options) Partitions {
	if opts.MaxEntityRows < 1 {
		opts.MaxEntityRows = DefaultOptions().MaxEntityRows
	}

	var candidates, context []panel.GovernanceRecord
	excluded := 0
	for _, rec := range records {
		if !rec.ExportEligible() {
			excluded++
			continue
		}
		if rec.Row.EntityType == panel.EntityChampion && tagPriority(rec.Tag) < 2 {
			candidates = append(candidates, rec)
			continue
		}
		context = append(context, rec)
	}

	sort.Slice(candidates, func(i, j int) bool { return stronger(candidates[i], candidates[j]) })

	entity := candidates
	if len(entity) > opts.MaxEntityRows {
		entity = append([]panel.GovernanceRecord(nil), candidates[:opts.MaxEntityRows]...)
		overflow := candidates[opts.MaxEntityRows:]

		var evicted []panel.GovernanceRecord
		entity, evicted = enforceRoleCoverage(entity, overflow)
		context = append(context, evicted...)

		selected := make(map[string]bool, len(entity))
		for _, rec := range entity {
			selected[string(rec.Row.RowID)] = true
		}
		for _, rec := range overflow {
			if !selected[string(rec.Row.RowID)] {
				context = append(context, rec)
			}
		}
	}

	sort.Slice(context, func(i, j int) bool { return stronger(context[i], context[j]) })

	return Partitions{Entity: entity, Context: context, Excluded: excluded}
}

// enforceRoleCoverage swaps overflow rows back in when their role is entirely
// absent from the capped panel, evicting the weakest row of an
// over-represented role. Coverage runs only once the cap is exhausted, so it
// never costs a stronger row its seat while room remains. Returns the
// adjusted panel and the rows displaced by swaps.
func enforceRoleCoverage(entity, overflow []panel.GovernanceRecord) ([]panel.GovernanceRecord, []panel.GovernanceRecord) {
	inPanel := make(map[match.Role]int)
	for _, rec := range entity {
		inPanel[rec.Row.Grain.Role]++
	}

	// Best overflow row per role missing from the panel; overflow is already
	// rank-ordered
	bestMissing := make(map[match.Role]panel.GovernanceRecord)
	var missingRoles []match.Role
	for _, rec := range overflow {
		role := rec.Row.Grain.Role
		if role == "" || inPanel[role] > 0 {
			continue
		}
		if _, seen := bestMissing[role]; !seen {
			bestMissing[role] = rec
			missingRoles = append(missingRoles, role)
		}
	}

	var evicted []panel.GovernanceRecord
	for _, role := range missingRoles {
		incoming := bestMissing[role]

		// The panel is rank-ordered, so the first over-represented role
		// found from the bottom is that role's weakest row
		evict := -1
		for i := len(entity) - 1; i >= 0; i-- {
			if inPanel[entity[i].Row.Grain.Role] > 1 {
				evict = i
				break
			}
		}
		if evict == -1 {
			continue
		}

		inPanel[entity[evict].Row.Grain.Role]--
		evicted = append(evicted, entity[evict])
		entity[evict] = incoming
		inPanel[role]++
	}

	sort.Slice(entity, func(i, j int) bool { return stronger(entity[i], entity[j]) })
	return entity, evicted
}

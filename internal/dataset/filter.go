package dataset

import "github.com/samber/lo"

// EmptySelectionPolicy documents what Filter does with an empty selection:
// the full dataset is returned unchanged, so a momentarily empty pick in the
// UI shows every source instead of nothing. Downstream grouping therefore
// sees all sources.
const EmptySelectionPolicy = "empty selection passes the full dataset through"

// Filter keeps the rows whose source is in selection, in their original
// order. Identifiers not present in d never match. An empty selection returns
// d itself (see EmptySelectionPolicy).
func Filter(d *Dataset, selection []SourceID) *Dataset {
	if len(selection) == 0 || d == nil {
		return d
	}
	keep := lo.SliceToMap(selection, func(s SourceID) (SourceID, struct{}) { return s, struct{}{} })
	in := func(s SourceID) bool {
		_, ok := keep[s]
		return ok
	}
	return &Dataset{
		columns: d.columns,
		sources: lo.Filter(d.sources, func(s SourceID, _ int) bool { return in(s) }),
		rows:    lo.Filter(d.rows, func(r Observation, _ int) bool { return in(r.Source) }),
	}
}

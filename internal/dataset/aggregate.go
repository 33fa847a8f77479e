package dataset

import (
	"fmt"
	"math"
	"sort"

	"github.com/samber/lo"
)

// Aggregate concatenates tables into one Dataset. Sources keep their argument
// order and rows keep their order within each source. The column set is the
// union of all table columns in first-seen order; a column a source lacks
// reads as missing on that source's rows. Kinds merge as follows: unknown
// (all-missing) merges with anything, numeric and text conflict.
func Aggregate(tables ...*Table) (*Dataset, error) {
	ds := &Dataset{}
	colIdx := map[string]int{}
	// first source that fixed each column's kind, for error reporting
	owner := map[string]SourceID{}
	total := 0
	for _, t := range tables {
		if t == nil {
			continue
		}
		if lo.Contains(ds.sources, t.Source) {
			return nil, &AggregationError{Reason: fmt.Sprintf("source %q appears more than once", t.Source)}
		}
		ds.sources = append(ds.sources, t.Source)
		for _, c := range t.Columns {
			i, ok := colIdx[c.Name]
			if !ok {
				colIdx[c.Name] = len(ds.columns)
				ds.columns = append(ds.columns, c)
				if c.Kind != KindUnknown {
					owner[c.Name] = t.Source
				}
				continue
			}
			prev := ds.columns[i].Kind
			switch {
			case c.Kind == KindUnknown || prev == c.Kind:
			case prev == KindUnknown:
				ds.columns[i].Kind = c.Kind
				owner[c.Name] = t.Source
			default:
				return nil, &AggregationError{
					Column:  c.Name,
					Sources: []SourceID{owner[c.Name], t.Source},
					Kinds:   []Kind{prev, c.Kind},
				}
			}
		}
		total += len(t.Rows)
	}

	ds.rows = make([]Observation, 0, total)
	for _, t := range tables {
		if t == nil {
			continue
		}
		for _, r := range t.Rows {
			// the loader already tags rows; re-stamp so the origin invariant
			// holds for hand-built tables too
			r.Source = t.Source
			ds.rows = append(ds.rows, r)
		}
	}
	return ds, nil
}

// Groups returns the distinct sources that own at least one row, in lexical
// order.
func (d *Dataset) Groups() []SourceID {
	if d == nil {
		return nil
	}
	ids := lo.Uniq(lo.Map(d.rows, func(r Observation, _ int) SourceID { return r.Source }))
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}

// NewTable builds a table from metric value vectors; the i-th entry of each
// vector forms row i. It is mostly useful for callers that already hold the
// data in memory. Vectors may be nil for an absent metric column.
func NewTable(src SourceID, ghi, dni, dhi []float64) *Table {
	cols := [metricCount][]float64{ghi, dni, dhi}
	n := 0
	t := &Table{Source: src}
	for m, v := range cols {
		if v == nil {
			continue
		}
		t.Columns = append(t.Columns, Column{Name: metricNames[m], Kind: KindNumeric})
		if len(v) > n {
			n = len(v)
		}
	}
	t.Rows = make([]Observation, n)
	for i := range t.Rows {
		obs := Observation{Source: src}
		for m, v := range cols {
			obs.metrics[m] = math.NaN()
			if i < len(v) {
				obs.metrics[m] = v[i]
			}
		}
		t.Rows[i] = obs
	}
	return t
}

// Package stats computes per-source statistics over a unified dataset:
// descriptive summaries, a one-way ANOVA across sources, the best-performing
// source and the data behind box plots and histograms.
//
// All functions treat NaN as the missing-value sentinel and ignore it.
// Groups are always visited in lexical SourceID order so results are
// deterministic.
package stats

import (
	"math"
	"sort"

	"gonum.org/v1/gonum/stat"

	"github.com/KaramelBytes/solarcmp/internal/dataset"
)

// GroupSummary holds descriptive statistics of one metric for one source.
type GroupSummary struct {
	Source  dataset.SourceID
	Count   int // non-missing values
	Missing int
	Mean    float64
	Median  float64
	Std     float64 // sample standard deviation (n-1)
	Min     float64
	Max     float64
}

// Rounded returns a copy with every statistic rounded to places decimals.
// NaN stays NaN.
func (g GroupSummary) Rounded(places int) GroupSummary {
	g.Mean = Round(g.Mean, places)
	g.Median = Round(g.Median, places)
	g.Std = Round(g.Std, places)
	g.Min = Round(g.Min, places)
	g.Max = Round(g.Max, places)
	return g
}

// Summarize returns one summary per source present in d, in lexical order.
// A source without values for m gets NaN statistics instead of an error.
func Summarize(d *dataset.Dataset, m dataset.Metric) []GroupSummary {
	groups := d.Groups()
	out := make([]GroupSummary, 0, len(groups))
	rows := d.CountBySource()
	for _, g := range groups {
		vals := d.Values(g, m)
		s := describe(vals)
		s.Source = g
		s.Missing = rows[g] - len(vals)
		out = append(out, s)
	}
	return out
}

func describe(vals []float64) GroupSummary {
	nan := math.NaN()
	s := GroupSummary{Count: len(vals), Mean: nan, Median: nan, Std: nan, Min: nan, Max: nan}
	if len(vals) == 0 {
		return s
	}
	sorted := sortedCopy(vals)
	s.Min = sorted[0]
	s.Max = sorted[len(sorted)-1]
	s.Median = quantile(sorted, 0.5)
	if len(vals) < 2 {
		s.Mean = vals[0]
		return s
	}
	s.Mean, s.Std = stat.MeanStdDev(vals, nil)
	return s
}

func sortedCopy(vals []float64) []float64 {
	cp := make([]float64, len(vals))
	copy(cp, vals)
	sort.Float64s(cp)
	return cp
}

// quantile uses linear interpolation between closest ranks.
func quantile(sorted []float64, q float64) float64 {
	if len(sorted) == 0 {
		return math.NaN()
	}
	if q <= 0 {
		return sorted[0]
	}
	if q >= 1 {
		return sorted[len(sorted)-1]
	}
	pos := q * float64(len(sorted)-1)
	lo := int(math.Floor(pos))
	hi := int(math.Ceil(pos))
	if lo == hi {
		return sorted[lo]
	}
	w := pos - float64(lo)
	return sorted[lo]*(1-w) + sorted[hi]*w
}

// Round rounds half away from zero to the given number of decimals.
func Round(x float64, places int) float64 {
	if math.IsNaN(x) || math.IsInf(x, 0) {
		return x
	}
	p := math.Pow(10, float64(places))
	return math.Round(x*p) / p
}

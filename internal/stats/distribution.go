package stats

import (
	"math"

	"github.com/KaramelBytes/solarcmp/internal/dataset"
)

// DefaultHistogramBins is used when a caller asks for zero or fewer bins.
const DefaultHistogramBins = 20

// BoxStats is the five-number summary behind a box plot.
type BoxStats struct {
	Source       dataset.SourceID
	Count        int
	Q1           float64
	Median       float64
	Q3           float64
	IQR          float64
	LowerWhisker float64 // smallest value >= Q1 - 1.5*IQR
	UpperWhisker float64 // largest value <= Q3 + 1.5*IQR
	Outliers     int
}

// BoxPlot returns box statistics per source in lexical order. Sources with no
// values get NaN quartiles.
func BoxPlot(d *dataset.Dataset, m dataset.Metric) []BoxStats {
	groups := d.Groups()
	out := make([]BoxStats, 0, len(groups))
	for _, g := range groups {
		out = append(out, box(g, d.Values(g, m)))
	}
	return out
}

func box(src dataset.SourceID, vals []float64) BoxStats {
	b := BoxStats{Source: src, Count: len(vals)}
	if len(vals) == 0 {
		nan := math.NaN()
		b.Q1, b.Median, b.Q3, b.IQR, b.LowerWhisker, b.UpperWhisker = nan, nan, nan, nan, nan, nan
		return b
	}
	sorted := sortedCopy(vals)
	b.Q1 = quantile(sorted, 0.25)
	b.Median = quantile(sorted, 0.5)
	b.Q3 = quantile(sorted, 0.75)
	b.IQR = b.Q3 - b.Q1
	lo, hi := b.Q1-1.5*b.IQR, b.Q3+1.5*b.IQR
	b.LowerWhisker, b.UpperWhisker = math.NaN(), math.NaN()
	for _, v := range sorted {
		if v < lo || v > hi {
			b.Outliers++
			continue
		}
		if math.IsNaN(b.LowerWhisker) {
			b.LowerWhisker = v
		}
		b.UpperWhisker = v
	}
	return b
}

// HistogramData holds per-source counts over shared, equal-width bins.
type HistogramData struct {
	Metric dataset.Metric
	// Edges has len(bins)+1 entries; bin i covers [Edges[i], Edges[i+1]),
	// the last bin also includes its upper edge.
	Edges  []float64
	Counts map[dataset.SourceID][]int
	Order  []dataset.SourceID
}

// Histogram bins the non-missing values of m for every source present in d.
func Histogram(d *dataset.Dataset, m dataset.Metric, bins int) (*HistogramData, error) {
	if d.Len() == 0 {
		return nil, ErrEmptyDataset
	}
	if bins <= 0 {
		bins = DefaultHistogramBins
	}
	groups := d.Groups()
	values := make(map[dataset.SourceID][]float64, len(groups))
	lo, hi := math.Inf(1), math.Inf(-1)
	for _, g := range groups {
		vals := d.Values(g, m)
		values[g] = vals
		for _, v := range vals {
			lo = math.Min(lo, v)
			hi = math.Max(hi, v)
		}
	}
	if math.IsInf(lo, 1) {
		return nil, ErrNoData
	}
	if lo == hi {
		// a single distinct value still gets one visible bin
		lo, hi = lo-0.5, hi+0.5
	}
	width := (hi - lo) / float64(bins)
	h := &HistogramData{Metric: m, Edges: make([]float64, bins+1), Counts: map[dataset.SourceID][]int{}, Order: groups}
	for i := range h.Edges {
		h.Edges[i] = lo + float64(i)*width
	}
	h.Edges[bins] = hi
	for _, g := range groups {
		counts := make([]int, bins)
		for _, v := range values[g] {
			i := int((v - lo) / width)
			if i >= bins {
				i = bins - 1
			}
			if i < 0 {
				i = 0
			}
			counts[i]++
		}
		h.Counts[g] = counts
	}
	return h, nil
}

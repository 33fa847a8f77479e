package stats

import (
	"gonum.org/v1/gonum/stat"

	"github.com/KaramelBytes/solarcmp/internal/dataset"
)

// Best is the source with the highest mean for a metric.
type Best struct {
	Source dataset.SourceID
	Mean   float64
}

// BestGroup returns the source with the maximum mean of m, ignoring missing
// values. Sources without values are skipped; ties go to the lexically first
// source.
func BestGroup(d *dataset.Dataset, m dataset.Metric) (Best, error) {
	if d.Len() == 0 {
		return Best{}, ErrEmptyDataset
	}
	var best Best
	found := false
	for _, g := range d.Groups() {
		vals := d.Values(g, m)
		if len(vals) == 0 {
			continue
		}
		mean := stat.Mean(vals, nil)
		if !found || mean > best.Mean {
			best = Best{Source: g, Mean: mean}
			found = true
		}
	}
	if !found {
		return Best{}, ErrNoData
	}
	return best, nil
}

// Package engine is the request boundary over the unified dataset. It owns the
// memoized load and exposes the per-request operations used by the CLI and the
// HTTP API.
package engine

import (
	"fmt"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/samber/lo"

	"github.com/KaramelBytes/solarcmp/internal/cache"
	"github.com/KaramelBytes/solarcmp/internal/dataset"
	"github.com/KaramelBytes/solarcmp/internal/stats"
)

// Places is the number of decimals applied to figures leaving the engine.
const Places = 2

// Engine loads the configured sources once and answers requests against the
// shared, read-only dataset.
type Engine struct {
	sources []dataset.Source
	load    func() (*dataset.Dataset, error)
	memo    *cache.Singular[*dataset.Dataset]
}

// New builds an Engine reading sources through l. Nothing is read until the
// first call to LoadUnifiedDataset.
func New(l *dataset.Loader, sources []dataset.Source) *Engine {
	e := &Engine{
		sources: append([]dataset.Source(nil), sources...),
		memo:    cache.NewSingular[*dataset.Dataset]("unified-dataset"),
	}
	e.load = func() (*dataset.Dataset, error) { return l.LoadAll(e.sources) }
	return e
}

// LoadUnifiedDataset returns the unified dataset, loading it on first use.
// Concurrent first callers share a single load. A failed load is not kept, so
// the next call retries.
func (e *Engine) LoadUnifiedDataset() (*dataset.Dataset, error) {
	return e.memo.MutexGetSet(func() (*dataset.Dataset, error) {
		start := time.Now()
		ds, err := e.load()
		if err != nil {
			return nil, fmt.Errorf("load unified dataset: %w", err)
		}
		log.Info().
			Int("rows", ds.Len()).
			Int("sources", len(ds.Sources())).
			Dur("took", time.Since(start)).
			Msg("unified dataset loaded")
		return ds, nil
	})
}

// Reload drops the memoized dataset; the next LoadUnifiedDataset reads the
// sources again.
func (e *Engine) Reload() {
	e.memo.Delete()
	log.Debug().Msg("unified dataset cache cleared")
}

// ListAvailableSources returns the configured source ids in configured order.
func (e *Engine) ListAvailableSources() []dataset.SourceID {
	return lo.Map(e.sources, func(s dataset.Source, _ int) dataset.SourceID { return s.ID })
}

func (e *Engine) ListAvailableMetrics() []dataset.Metric {
	return dataset.Metrics()
}

// FilterAndSummarize narrows ds to sel and summarizes metric per source,
// rounded for display.
func (e *Engine) FilterAndSummarize(ds *dataset.Dataset, sel []dataset.SourceID, metric dataset.Metric) []stats.GroupSummary {
	sums := stats.Summarize(dataset.Filter(ds, sel), metric)
	return lo.Map(sums, func(s stats.GroupSummary, _ int) stats.GroupSummary { return s.Rounded(Places) })
}

// CompareGroups runs the one-way ANOVA over the sources that remain after
// filtering ds by sel.
func (e *Engine) CompareGroups(ds *dataset.Dataset, sel []dataset.SourceID, metric dataset.Metric) (*stats.ComparisonResult, error) {
	filtered := dataset.Filter(ds, sel)
	return stats.Compare(filtered, metric, filtered.Groups())
}

// BestPerforming returns the source with the highest mean after filtering,
// with the mean rounded for display.
func (e *Engine) BestPerforming(ds *dataset.Dataset, sel []dataset.SourceID, metric dataset.Metric) (stats.Best, error) {
	best, err := stats.BestGroup(dataset.Filter(ds, sel), metric)
	if err != nil {
		return stats.Best{}, err
	}
	best.Mean = stats.Round(best.Mean, Places)
	return best, nil
}

// Distribution returns box-plot statistics and a histogram of metric for the
// filtered dataset.
func (e *Engine) Distribution(ds *dataset.Dataset, sel []dataset.SourceID, metric dataset.Metric, bins int) ([]stats.BoxStats, *stats.HistogramData, error) {
	filtered := dataset.Filter(ds, sel)
	hist, err := stats.Histogram(filtered, metric, bins)
	if err != nil {
		return nil, nil, err
	}
	return stats.BoxPlot(filtered, metric), hist, nil
}

package engine

import (
	"errors"
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"github.com/samber/lo"

	"github.com/KaramelBytes/solarcmp/internal/dataset"
	"github.com/KaramelBytes/solarcmp/internal/stats"
)

// Report gathers everything computed for one request: summaries, the
// comparison, the best source and box-plot data. Sections that could not be
// computed are nil and explained in Notes.
type Report struct {
	RequestID   string
	GeneratedAt time.Time
	Metric      dataset.Metric
	Selection   []dataset.SourceID
	Rows        int

	Summaries  []stats.GroupSummary
	Comparison *stats.ComparisonResult
	Best       *stats.Best
	Box        []stats.BoxStats

	Notes []string
}

// BuildReport loads the dataset and composes a Report for sel and metric.
// Only a failed load is returned as an error; request-level problems such as
// a single selected source end up in Notes.
func (e *Engine) BuildReport(sel []dataset.SourceID, metric dataset.Metric) (*Report, error) {
	ds, err := e.LoadUnifiedDataset()
	if err != nil {
		return nil, err
	}
	r := &Report{
		RequestID:   uuid.NewString(),
		GeneratedAt: time.Now().UTC(),
		Metric:      metric,
		Selection:   append([]dataset.SourceID(nil), sel...),
	}
	logger := log.With().Str("request_id", r.RequestID).Str("metric", metric.String()).Logger()

	if len(sel) == 0 {
		r.note("no sources selected: %s", dataset.EmptySelectionPolicy)
	} else {
		known := ds.Sources()
		if unknown := lo.Filter(sel, func(s dataset.SourceID, _ int) bool { return !lo.Contains(known, s) }); len(unknown) > 0 {
			r.note("unknown source(s) ignored: %s", joinIDs(unknown))
		}
	}

	filtered := dataset.Filter(ds, sel)
	r.Rows = filtered.Len()
	r.Summaries = e.FilterAndSummarize(ds, sel, metric)
	for _, s := range r.Summaries {
		if s.Count == 0 {
			r.note("%s has no %s values", s.Source, metric)
		}
	}

	cmp, err := e.CompareGroups(ds, sel, metric)
	switch {
	case err == nil:
		r.Comparison = cmp
		for _, ex := range cmp.Excluded {
			r.note("comparison: %s %s", ex.Source, ex.Reason)
		}
	case errors.Is(err, stats.ErrInsufficientGroups):
		r.note("comparison skipped: at least two sources with data are required")
	default:
		r.note("comparison failed: %v", err)
	}

	best, err := e.BestPerforming(ds, sel, metric)
	switch {
	case err == nil:
		r.Best = &best
	case errors.Is(err, stats.ErrEmptyDataset):
		r.note("ranking skipped: the selection matched no rows")
	case errors.Is(err, stats.ErrNoData):
		r.note("ranking skipped: no %s values in the selection", metric)
	default:
		r.note("ranking failed: %v", err)
	}

	if filtered.Len() > 0 {
		r.Box = stats.BoxPlot(filtered, metric)
	}

	logger.Info().Int("rows", r.Rows).Int("notes", len(r.Notes)).Msg("report built")
	return r, nil
}

func (r *Report) note(format string, args ...any) {
	r.Notes = append(r.Notes, fmt.Sprintf(format, args...))
}

// Markdown renders the report as compact, sectioned text.
func (r *Report) Markdown() string {
	var b strings.Builder
	b.WriteString("[REQUEST]\n")
	b.WriteString(fmt.Sprintf("ID: %s\n", r.RequestID))
	b.WriteString(fmt.Sprintf("Generated: %s\n", r.GeneratedAt.Format(time.RFC3339)))
	b.WriteString(fmt.Sprintf("Metric: %s [%s]\n", r.Metric.Label(), dataset.Unit))
	if len(r.Selection) == 0 {
		b.WriteString("Sources: all\n")
	} else {
		b.WriteString(fmt.Sprintf("Sources: %s\n", joinIDs(r.Selection)))
	}
	b.WriteString(fmt.Sprintf("Rows: %d\n\n", r.Rows))

	if len(r.Summaries) > 0 {
		b.WriteString("[SUMMARY]\n")
		b.WriteString("| Source | Count | Missing | Mean | Median | Std | Min | Max |\n")
		b.WriteString("|---|---:|---:|---:|---:|---:|---:|---:|\n")
		for _, s := range r.Summaries {
			b.WriteString(fmt.Sprintf("| %s | %d | %d | %s | %s | %s | %s | %s |\n",
				safeCell(string(s.Source)), s.Count, s.Missing,
				FormatNumber(s.Mean), FormatNumber(s.Median), FormatNumber(s.Std), FormatNumber(s.Min), FormatNumber(s.Max)))
		}
		b.WriteString("\n")
	}

	if c := r.Comparison; c != nil {
		b.WriteString("[COMPARISON]\n")
		b.WriteString(fmt.Sprintf("Test: one-way ANOVA over %d source(s), N=%d\n", len(c.Groups), c.N))
		b.WriteString(fmt.Sprintf("F(%d, %d) = %s, p = %s", c.DFBetween, c.DFWithin, FormatNumber(c.F), FormatPValue(c.P)))
		if c.Outcome != stats.OutcomeOrdinary {
			b.WriteString(fmt.Sprintf(" (%s)", c.Outcome))
		}
		b.WriteString("\n")
		b.WriteString(c.Interpretation)
		b.WriteString("\n\n")
	}

	if r.Best != nil {
		b.WriteString("[BEST]\n")
		b.WriteString(fmt.Sprintf("%s has the highest average %s: %s %s\n\n",
			r.Best.Source, r.Metric, FormatNumber(r.Best.Mean), dataset.Unit))
	}

	if len(r.Box) > 0 {
		b.WriteString("[DISTRIBUTION]\n")
		for _, bx := range r.Box {
			if bx.Count == 0 {
				b.WriteString(fmt.Sprintf("- %s: no values\n", bx.Source))
				continue
			}
			b.WriteString(fmt.Sprintf("- %s: Q1 %s, median %s, Q3 %s, whiskers [%s, %s]",
				bx.Source, FormatNumber(bx.Q1), FormatNumber(bx.Median), FormatNumber(bx.Q3), FormatNumber(bx.LowerWhisker), FormatNumber(bx.UpperWhisker)))
			if bx.Outliers > 0 {
				b.WriteString(fmt.Sprintf("; outliers: %d", bx.Outliers))
			}
			b.WriteString("\n")
		}
		b.WriteString("\n")
	}

	if len(r.Notes) > 0 {
		b.WriteString("[NOTES]\n")
		for _, n := range r.Notes {
			b.WriteString("- ")
			b.WriteString(n)
			b.WriteString("\n")
		}
	}
	return b.String()
}

// FormatNumber renders a statistic with two decimals, n/a for NaN and inf/-inf
// for infinities.
func FormatNumber(v float64) string {
	switch {
	case math.IsNaN(v):
		return "n/a"
	case math.IsInf(v, 1):
		return "inf"
	case math.IsInf(v, -1):
		return "-inf"
	}
	return fmt.Sprintf("%.2f", v)
}

// FormatPValue renders a p-value with four decimals.
func FormatPValue(p float64) string {
	if math.IsNaN(p) {
		return "n/a"
	}
	return fmt.Sprintf("%.4f", p)
}

func safeCell(s string) string {
	return strings.ReplaceAll(s, "|", "\\|")
}

func joinIDs(ids []dataset.SourceID) string {
	return strings.Join(lo.Map(ids, func(s dataset.SourceID, _ int) string { return string(s) }), ", ")
}

package server

import (
	"math"
	"strconv"
	"time"

	"github.com/samber/lo"

	"github.com/KaramelBytes/solarcmp/internal/dataset"
	"github.com/KaramelBytes/solarcmp/internal/engine"
	"github.com/KaramelBytes/solarcmp/internal/stats"
)

// Number is a float64 that encodes NaN and infinities as JSON null.
type Number float64

func (n Number) MarshalJSON() ([]byte, error) {
	f := float64(n)
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return []byte("null"), nil
	}
	return strconv.AppendFloat(nil, f, 'g', -1, 64), nil
}

type SummaryView struct {
	Source  string `json:"source"`
	Count   int    `json:"count"`
	Missing int    `json:"missing"`
	Mean    Number `json:"mean"`
	Median  Number `json:"median"`
	Std     Number `json:"std"`
	Min     Number `json:"min"`
	Max     Number `json:"max"`
}

type GroupView struct {
	Source string `json:"source"`
	N      int    `json:"n"`
	Mean   Number `json:"mean"`
}

type ExclusionView struct {
	Source string `json:"source"`
	Reason string `json:"reason"`
}

type ComparisonView struct {
	Metric         string          `json:"metric"`
	Groups         []GroupView     `json:"groups"`
	Excluded       []ExclusionView `json:"excluded"`
	N              int             `json:"n"`
	DFBetween      int             `json:"df_between"`
	DFWithin       int             `json:"df_within"`
	F              Number          `json:"f"`
	P              Number          `json:"p"`
	Outcome        string          `json:"outcome"`
	Alpha          float64         `json:"alpha"`
	Significant    bool            `json:"significant"`
	Interpretation string          `json:"interpretation"`
}

type BestView struct {
	Metric string `json:"metric"`
	Source string `json:"source"`
	Mean   Number `json:"mean"`
	Unit   string `json:"unit"`
}

type BoxView struct {
	Source       string `json:"source"`
	Count        int    `json:"count"`
	Q1           Number `json:"q1"`
	Median       Number `json:"median"`
	Q3           Number `json:"q3"`
	IQR          Number `json:"iqr"`
	LowerWhisker Number `json:"lower_whisker"`
	UpperWhisker Number `json:"upper_whisker"`
	Outliers     int    `json:"outliers"`
}

type HistogramView struct {
	Metric  string           `json:"metric"`
	Edges   []Number         `json:"edges"`
	Sources []string         `json:"sources"`
	Counts  map[string][]int `json:"counts"`
}

// ReportView is the JSON form of engine.Report.
type ReportView struct {
	RequestID   string          `json:"request_id"`
	GeneratedAt time.Time       `json:"generated_at"`
	Metric      string          `json:"metric"`
	Unit        string          `json:"unit"`
	Selection   []string        `json:"selection"`
	Rows        int             `json:"rows"`
	Summaries   []SummaryView   `json:"summaries"`
	Comparison  *ComparisonView `json:"comparison"`
	Best        *BestView       `json:"best"`
	BoxPlot     []BoxView       `json:"boxplot"`
	Notes       []string        `json:"notes"`
}

func NewSummaryViews(sums []stats.GroupSummary) []SummaryView {
	return lo.Map(sums, func(s stats.GroupSummary, _ int) SummaryView {
		return SummaryView{
			Source:  string(s.Source),
			Count:   s.Count,
			Missing: s.Missing,
			Mean:    Number(s.Mean),
			Median:  Number(s.Median),
			Std:     Number(s.Std),
			Min:     Number(s.Min),
			Max:     Number(s.Max),
		}
	})
}

func NewComparisonView(c *stats.ComparisonResult) *ComparisonView {
	if c == nil {
		return nil
	}
	return &ComparisonView{
		Metric: c.Metric.String(),
		Groups: lo.Map(c.Groups, func(g stats.GroupStat, _ int) GroupView {
			return GroupView{Source: string(g.Source), N: g.N, Mean: Number(stats.Round(g.Mean, engine.Places))}
		}),
		Excluded: lo.Map(c.Excluded, func(e stats.Exclusion, _ int) ExclusionView {
			return ExclusionView{Source: string(e.Source), Reason: e.Reason}
		}),
		N:              c.N,
		DFBetween:      c.DFBetween,
		DFWithin:       c.DFWithin,
		F:              Number(c.F),
		P:              Number(c.P),
		Outcome:        c.Outcome.String(),
		Alpha:          stats.Alpha,
		Significant:    c.Significant,
		Interpretation: c.Interpretation,
	}
}

func NewBestView(m dataset.Metric, b stats.Best) *BestView {
	return &BestView{Metric: m.String(), Source: string(b.Source), Mean: Number(b.Mean), Unit: dataset.Unit}
}

func NewBoxViews(boxes []stats.BoxStats) []BoxView {
	return lo.Map(boxes, func(b stats.BoxStats, _ int) BoxView {
		r := func(v float64) Number { return Number(stats.Round(v, engine.Places)) }
		return BoxView{
			Source:       string(b.Source),
			Count:        b.Count,
			Q1:           r(b.Q1),
			Median:       r(b.Median),
			Q3:           r(b.Q3),
			IQR:          r(b.IQR),
			LowerWhisker: r(b.LowerWhisker),
			UpperWhisker: r(b.UpperWhisker),
			Outliers:     b.Outliers,
		}
	})
}

func NewHistogramView(h *stats.HistogramData) *HistogramView {
	v := &HistogramView{
		Metric:  h.Metric.String(),
		Edges:   lo.Map(h.Edges, func(e float64, _ int) Number { return Number(e) }),
		Sources: sourceStrings(h.Order),
		Counts:  make(map[string][]int, len(h.Counts)),
	}
	for src, c := range h.Counts {
		v.Counts[string(src)] = c
	}
	return v
}

func NewReportView(r *engine.Report) *ReportView {
	v := &ReportView{
		RequestID:   r.RequestID,
		GeneratedAt: r.GeneratedAt,
		Metric:      r.Metric.String(),
		Unit:        dataset.Unit,
		Selection:   sourceStrings(r.Selection),
		Rows:        r.Rows,
		Summaries:   NewSummaryViews(r.Summaries),
		Comparison:  NewComparisonView(r.Comparison),
		BoxPlot:     NewBoxViews(r.Box),
		Notes:       r.Notes,
	}
	if r.Best != nil {
		v.Best = NewBestView(r.Metric, *r.Best)
	}
	if v.Notes == nil {
		v.Notes = []string{}
	}
	return v
}

func sourceStrings(ids []dataset.SourceID) []string {
	return lo.Map(ids, func(s dataset.SourceID, _ int) string { return string(s) })
}

package stats

import (
	"fmt"
	"math"
	"sort"

	"github.com/samber/lo"
	"gonum.org/v1/gonum/stat"
	"gonum.org/v1/gonum/stat/distuv"

	"github.com/KaramelBytes/solarcmp/internal/dataset"
)

// Alpha is the fixed significance threshold.
const Alpha = 0.05

// Outcome tags how a comparison was resolved. Only OutcomeOrdinary carries a
// finite F statistic and a p-value from the F distribution.
type Outcome int

const (
	OutcomeOrdinary Outcome = iota
	// OutcomeConstant: every value in every group is identical, F is undefined.
	OutcomeConstant
	// OutcomePerfectSeparation: groups are internally constant but differ,
	// within-group variance is zero and F is infinite.
	OutcomePerfectSeparation
	// OutcomeNoWithinDF: every group holds a single value, N-k is zero.
	OutcomeNoWithinDF
)

func (o Outcome) String() string {
	switch o {
	case OutcomeOrdinary:
		return "ordinary"
	case OutcomeConstant:
		return "constant"
	case OutcomePerfectSeparation:
		return "perfect_separation"
	case OutcomeNoWithinDF:
		return "no_within_df"
	default:
		return fmt.Sprintf("Outcome(%d)", int(o))
	}
}

// GroupStat is the size and mean of one group entering the comparison.
type GroupStat struct {
	Source dataset.SourceID
	N      int
	Mean   float64
}

// Exclusion notes a group that was left out of part or all of the test.
type Exclusion struct {
	Source dataset.SourceID
	Reason string
}

const (
	ReasonNoData    = "no data"
	ReasonSingleton = "single observation: excluded from within-group pooling"
)

// ComparisonResult is the outcome of a one-way ANOVA across sources.
type ComparisonResult struct {
	Metric    dataset.Metric
	Groups    []GroupStat
	Excluded  []Exclusion
	N         int
	DFBetween int
	DFWithin  int
	SSBetween float64
	SSWithin  float64
	F         float64
	P         float64
	Outcome   Outcome
	// Significant is P < Alpha.
	Significant    bool
	Interpretation string
}

// Compare runs a one-way ANOVA of metric m across the given sources.
//
// Groups are de-duplicated and visited in lexical order, so F and P do not
// depend on the order of groups. A group without values is dropped; a group
// with one value still counts towards the between-group term and N but adds
// nothing to the within-group pooling. Both cases are listed in Excluded.
// Fewer than two usable groups yields ErrInsufficientGroups.
func Compare(d *dataset.Dataset, m dataset.Metric, groups []dataset.SourceID) (*ComparisonResult, error) {
	ids := lo.Uniq(groups)
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	if len(ids) < 2 {
		return nil, fmt.Errorf("compare %s across %d group(s): %w", m, len(ids), ErrInsufficientGroups)
	}

	res := &ComparisonResult{Metric: m}
	var samples [][]float64
	for _, id := range ids {
		vals := d.Values(id, m)
		switch len(vals) {
		case 0:
			res.Excluded = append(res.Excluded, Exclusion{Source: id, Reason: ReasonNoData})
			continue
		case 1:
			res.Excluded = append(res.Excluded, Exclusion{Source: id, Reason: ReasonSingleton})
		}
		samples = append(samples, vals)
		res.Groups = append(res.Groups, GroupStat{Source: id, N: len(vals), Mean: stat.Mean(vals, nil)})
		res.N += len(vals)
	}
	k := len(samples)
	if k < 2 {
		return nil, fmt.Errorf("compare %s: %d group(s) with data: %w", m, k, ErrInsufficientGroups)
	}
	res.DFBetween = k - 1
	res.DFWithin = res.N - k

	var total float64
	for _, s := range samples {
		for _, v := range s {
			total += v
		}
	}
	grand := total / float64(res.N)

	withinConstant := true
	globalMin, globalMax := math.Inf(1), math.Inf(-1)
	for i, s := range samples {
		mean := res.Groups[i].Mean
		dm := mean - grand
		res.SSBetween += float64(len(s)) * dm * dm
		gMin, gMax := math.Inf(1), math.Inf(-1)
		for _, v := range s {
			dv := v - mean
			res.SSWithin += dv * dv
			gMin = math.Min(gMin, v)
			gMax = math.Max(gMax, v)
		}
		if gMin != gMax {
			withinConstant = false
		}
		globalMin = math.Min(globalMin, gMin)
		globalMax = math.Max(globalMax, gMax)
	}

	switch {
	case res.DFWithin == 0:
		res.Outcome = OutcomeNoWithinDF
		res.F, res.P = math.NaN(), math.NaN()
	case withinConstant && globalMin == globalMax:
		res.Outcome = OutcomeConstant
		res.SSBetween, res.SSWithin = 0, 0
		res.F, res.P = math.NaN(), math.NaN()
	case withinConstant:
		res.Outcome = OutcomePerfectSeparation
		res.SSWithin = 0
		res.F, res.P = math.Inf(1), 0
	default:
		res.Outcome = OutcomeOrdinary
		msb := res.SSBetween / float64(res.DFBetween)
		msw := res.SSWithin / float64(res.DFWithin)
		res.F = msb / msw
		res.P = distuv.F{D1: float64(res.DFBetween), D2: float64(res.DFWithin)}.Survival(res.F)
	}
	res.Significant = !math.IsNaN(res.P) && res.P < Alpha
	res.Interpretation = interpret(res)
	return res, nil
}

func interpret(r *ComparisonResult) string {
	switch r.Outcome {
	case OutcomeConstant:
		return fmt.Sprintf("All %s values are identical across the selected sources; the F-statistic is undefined and no difference can be detected.", r.Metric)
	case OutcomeNoWithinDF:
		return fmt.Sprintf("Each selected source has a single %s value; within-group variance cannot be estimated, so no significance test is possible.", r.Metric)
	case OutcomePerfectSeparation:
		return fmt.Sprintf("%s values are constant within each source but differ between sources, indicating statistically significant differences across the selected sources.", r.Metric)
	}
	if r.Significant {
		return fmt.Sprintf("The p-value (%.4f) is less than %.2f, indicating statistically significant differences in %s values across the selected sources.", r.P, Alpha, r.Metric)
	}
	return fmt.Sprintf("The p-value (%.4f) is greater than or equal to %.2f, suggesting no statistically significant differences in %s values across the selected sources.", r.P, Alpha, r.Metric)
}

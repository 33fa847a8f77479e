package stats

import (
	"math"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/KaramelBytes/solarcmp/internal/dataset"
)

type group struct {
	id   dataset.SourceID
	vals []float64
}

// build puts each group's values in the GHI column.
func build(t *testing.T, groups ...group) *dataset.Dataset {
	t.Helper()
	tables := make([]*dataset.Table, 0, len(groups))
	for _, g := range groups {
		tables = append(tables, dataset.NewTable(g.id, g.vals, nil, nil))
	}
	ds, err := dataset.Aggregate(tables...)
	require.NoError(t, err)
	return ds
}

var nan = math.NaN()

func TestSummarize(t *testing.T) {
	ds := build(t,
		group{"Togo", []float64{1, 2, 3, 4}},
		group{"Benin", []float64{10, nan, 30}},
		group{"Sierra Leone", []float64{nan, nan}},
	)
	got := Summarize(ds, dataset.GHI)
	require.Len(t, got, 3)
	assert.Equal(t, dataset.SourceID("Benin"), got[0].Source)
	assert.Equal(t, dataset.SourceID("Sierra Leone"), got[1].Source)
	assert.Equal(t, dataset.SourceID("Togo"), got[2].Source)

	benin := got[0]
	assert.Equal(t, 2, benin.Count)
	assert.Equal(t, 1, benin.Missing)
	assert.InDelta(t, 20, benin.Mean, 1e-12)
	assert.InDelta(t, 20, benin.Median, 1e-12)
	assert.InDelta(t, math.Sqrt(200), benin.Std, 1e-12)
	assert.Equal(t, 10.0, benin.Min)
	assert.Equal(t, 30.0, benin.Max)

	sl := got[1]
	assert.Equal(t, 0, sl.Count)
	assert.Equal(t, 2, sl.Missing)
	for _, v := range []float64{sl.Mean, sl.Median, sl.Std, sl.Min, sl.Max} {
		assert.True(t, math.IsNaN(v))
	}

	togo := got[2].Rounded(2)
	assert.Equal(t, 2.5, togo.Mean)
	assert.Equal(t, 2.5, togo.Median)
	assert.Equal(t, 1.29, togo.Std)
	assert.True(t, math.IsNaN(sl.Rounded(2).Mean))

	// deterministic across calls
	again := Summarize(ds, dataset.GHI)
	assert.Equal(t, got[0], again[0])
	assert.Equal(t, got[2], again[2])
}

func TestSummarize_SingleValueHasNaNStd(t *testing.T) {
	got := Summarize(build(t, group{"A", []float64{7}}), dataset.GHI)
	require.Len(t, got, 1)
	assert.Equal(t, 7.0, got[0].Mean)
	assert.True(t, math.IsNaN(got[0].Std))
}

func TestCompare_SignificantDifference(t *testing.T) {
	ds := build(t,
		group{"A", []float64{10, 12, 14}},
		group{"B", []float64{20, 22, 24}},
		group{"C", []float64{10, 12, 14}},
	)
	res, err := Compare(ds, dataset.GHI, []dataset.SourceID{"A", "B", "C"})
	require.NoError(t, err)
	assert.Equal(t, OutcomeOrdinary, res.Outcome)
	assert.Equal(t, 2, res.DFBetween)
	assert.Equal(t, 6, res.DFWithin)
	assert.InDelta(t, 200, res.SSBetween, 1e-9)
	assert.InDelta(t, 24, res.SSWithin, 1e-9)
	assert.InDelta(t, 25, res.F, 1e-9)
	// F(2, 6) survival has the closed form (1 + 2F/6)^-3
	assert.InDelta(t, 27.0/21952.0, res.P, 1e-9)
	assert.True(t, res.Significant)
	assert.Contains(t, res.Interpretation, "statistically significant differences in GHI")
	assert.Empty(t, res.Excluded)

	best, err := BestGroup(ds, dataset.GHI)
	require.NoError(t, err)
	assert.Equal(t, dataset.SourceID("B"), best.Source)
	assert.InDelta(t, 22.0, best.Mean, 1e-12)
}

func TestCompare_NotSignificant(t *testing.T) {
	ds := build(t,
		group{"A", []float64{1, 5, 9}},
		group{"B", []float64{2, 5, 8}},
	)
	res, err := Compare(ds, dataset.GHI, []dataset.SourceID{"A", "B"})
	require.NoError(t, err)
	assert.Equal(t, OutcomeOrdinary, res.Outcome)
	assert.InDelta(t, 0, res.F, 1e-12)
	assert.InDelta(t, 1, res.P, 1e-9)
	assert.False(t, res.Significant)
	assert.Contains(t, res.Interpretation, "no statistically significant differences")
}

func TestCompare_OrderInvariant(t *testing.T) {
	r := rand.New(rand.NewSource(42))
	var groups []group
	for _, id := range []dataset.SourceID{"Benin", "Sierra Leone", "Togo", "Niger"} {
		vals := make([]float64, 25)
		for i := range vals {
			vals[i] = r.Float64() * 8
		}
		groups = append(groups, group{id, vals})
	}
	ds := build(t, groups...)
	base, err := Compare(ds, dataset.GHI, []dataset.SourceID{"Benin", "Sierra Leone", "Togo", "Niger"})
	require.NoError(t, err)
	for _, perm := range [][]dataset.SourceID{
		{"Niger", "Togo", "Sierra Leone", "Benin"},
		{"Togo", "Benin", "Niger", "Sierra Leone"},
		{"Sierra Leone", "Niger", "Benin", "Togo", "Benin"},
	} {
		res, err := Compare(ds, dataset.GHI, perm)
		require.NoError(t, err)
		assert.Equal(t, base.F, res.F)
		assert.Equal(t, base.P, res.P)
	}
}

func TestCompare_ConstantValues(t *testing.T) {
	ds := build(t,
		group{"Togo", []float64{5, 5, 5}},
		group{"Benin", []float64{5, 5, 5}},
		group{"Sierra Leone", []float64{5, 5, 5}},
	)
	res, err := Compare(ds, dataset.GHI, ds.Groups())
	require.NoError(t, err)
	assert.Equal(t, OutcomeConstant, res.Outcome)
	assert.True(t, math.IsNaN(res.F))
	assert.True(t, math.IsNaN(res.P))
	assert.False(t, res.Significant)
	assert.Contains(t, res.Interpretation, "identical")

	best, err := BestGroup(ds, dataset.GHI)
	require.NoError(t, err)
	assert.Equal(t, dataset.SourceID("Benin"), best.Source)
}

func TestCompare_DegenerateOutcomes(t *testing.T) {
	t.Run("perfect separation", func(t *testing.T) {
		ds := build(t, group{"A", []float64{1, 1}}, group{"B", []float64{2, 2}})
		res, err := Compare(ds, dataset.GHI, []dataset.SourceID{"A", "B"})
		require.NoError(t, err)
		assert.Equal(t, OutcomePerfectSeparation, res.Outcome)
		assert.True(t, math.IsInf(res.F, 1))
		assert.Equal(t, 0.0, res.P)
		assert.True(t, res.Significant)
	})

	t.Run("no within degrees of freedom", func(t *testing.T) {
		ds := build(t, group{"A", []float64{1}}, group{"B", []float64{2}})
		res, err := Compare(ds, dataset.GHI, []dataset.SourceID{"A", "B"})
		require.NoError(t, err)
		assert.Equal(t, OutcomeNoWithinDF, res.Outcome)
		assert.True(t, math.IsNaN(res.P))
		assert.False(t, res.Significant)
		assert.Len(t, res.Excluded, 2)
	})

	t.Run("singleton excluded from pooling", func(t *testing.T) {
		ds := build(t, group{"A", []float64{1, 2, 3}}, group{"B", []float64{5}})
		res, err := Compare(ds, dataset.GHI, []dataset.SourceID{"B", "A"})
		require.NoError(t, err)
		assert.Equal(t, OutcomeOrdinary, res.Outcome)
		assert.Equal(t, 4, res.N)
		assert.Equal(t, 2, res.DFWithin)
		assert.InDelta(t, 6.75, res.F, 1e-9)
		require.Len(t, res.Groups, 2)
		assert.Equal(t, []Exclusion{{Source: "B", Reason: ReasonSingleton}}, res.Excluded)
	})

	t.Run("group without data dropped", func(t *testing.T) {
		ds := build(t,
			group{"A", []float64{1, 2}},
			group{"B", []float64{3, 4}},
			group{"C", []float64{nan, nan}},
		)
		res, err := Compare(ds, dataset.GHI, []dataset.SourceID{"A", "B", "C"})
		require.NoError(t, err)
		assert.Len(t, res.Groups, 2)
		assert.Equal(t, []Exclusion{{Source: "C", Reason: ReasonNoData}}, res.Excluded)
	})
}

func TestCompare_InsufficientGroups(t *testing.T) {
	ds := build(t, group{"A", []float64{1, 2}}, group{"B", []float64{nan}})

	_, err := Compare(ds, dataset.GHI, []dataset.SourceID{"A"})
	assert.ErrorIs(t, err, ErrInsufficientGroups)

	_, err = Compare(ds, dataset.GHI, []dataset.SourceID{"A", "A"})
	assert.ErrorIs(t, err, ErrInsufficientGroups)

	_, err = Compare(ds, dataset.GHI, []dataset.SourceID{"A", "B"})
	assert.ErrorIs(t, err, ErrInsufficientGroups)
}

func TestBestGroup(t *testing.T) {
	t.Run("tie goes to lexically first", func(t *testing.T) {
		ds := build(t, group{"Togo", []float64{4, 6}}, group{"Benin", []float64{5}}, group{"Mali", []float64{1}})
		best, err := BestGroup(ds, dataset.GHI)
		require.NoError(t, err)
		assert.Equal(t, dataset.SourceID("Benin"), best.Source)
		assert.Equal(t, 5.0, best.Mean)
	})

	t.Run("all missing group skipped", func(t *testing.T) {
		ds := build(t, group{"A", []float64{nan}}, group{"B", []float64{1, nan}})
		best, err := BestGroup(ds, dataset.GHI)
		require.NoError(t, err)
		assert.Equal(t, dataset.SourceID("B"), best.Source)
	})

	t.Run("no data", func(t *testing.T) {
		ds := build(t, group{"A", []float64{nan}}, group{"B", []float64{nan, nan}})
		_, err := BestGroup(ds, dataset.GHI)
		assert.ErrorIs(t, err, ErrNoData)
	})

	t.Run("empty dataset", func(t *testing.T) {
		_, err := BestGroup(build(t), dataset.GHI)
		assert.ErrorIs(t, err, ErrEmptyDataset)
	})
}

func TestBoxPlot(t *testing.T) {
	ds := build(t,
		group{"A", []float64{1, 2, 3, 4, 5, 6, 7, 8, 9}},
		group{"B", []float64{1, 2, 3, 4, 5, 6, 7, 8, 9, 100}},
		group{"C", []float64{nan}},
	)
	got := BoxPlot(ds, dataset.GHI)
	require.Len(t, got, 3)

	a := got[0]
	assert.Equal(t, 3.0, a.Q1)
	assert.Equal(t, 5.0, a.Median)
	assert.Equal(t, 7.0, a.Q3)
	assert.Equal(t, 1.0, a.LowerWhisker)
	assert.Equal(t, 9.0, a.UpperWhisker)
	assert.Equal(t, 0, a.Outliers)

	b := got[1]
	assert.Equal(t, 1, b.Outliers)
	assert.Equal(t, 9.0, b.UpperWhisker)

	assert.True(t, math.IsNaN(got[2].Median))
}

func TestHistogram(t *testing.T) {
	ds := build(t,
		group{"A", []float64{0, 1, 2, 3, 4}},
		group{"B", []float64{6, 7, 8, 9, 10, nan}},
	)
	h, err := Histogram(ds, dataset.GHI, 5)
	require.NoError(t, err)
	assert.Equal(t, []float64{0, 2, 4, 6, 8, 10}, h.Edges)
	assert.Equal(t, []int{2, 2, 1, 0, 0}, h.Counts["A"])
	assert.Equal(t, []int{0, 0, 0, 2, 3}, h.Counts["B"])
	assert.Equal(t, []dataset.SourceID{"A", "B"}, h.Order)

	_, err = Histogram(build(t, group{"A", []float64{nan}}), dataset.GHI, 0)
	assert.ErrorIs(t, err, ErrNoData)

	one, err := Histogram(build(t, group{"A", []float64{3, 3}}), dataset.GHI, 0)
	require.NoError(t, err)
	assert.Len(t, one.Edges, DefaultHistogramBins+1)
	total := 0
	for _, c := range one.Counts["A"] {
		total += c
	}
	assert.Equal(t, 2, total)
}

func TestRound(t *testing.T) {
	assert.Equal(t, 2.35, Round(2.345678, 2))
	assert.Equal(t, -2.35, Round(-2.345678, 2))
	assert.True(t, math.IsNaN(Round(nan, 2)))
}

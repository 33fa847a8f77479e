package engine

import (
	"errors"
	"math"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/KaramelBytes/solarcmp/internal/dataset"
	"github.com/KaramelBytes/solarcmp/internal/stats"
)

var testSources = []dataset.Source{
	{ID: "Benin", Path: "benin-malanville-cleaned.csv"},
	{ID: "Sierra Leone", Path: "sierraleone-bumbuna-cleaned.csv"},
	{ID: "Togo", Path: "togo-dapaong_qc-cleaned.csv"},
}

// newEngine writes one CSV per source into a temp dir and returns an engine
// reading them.
func newEngine(t *testing.T, bodies ...string) *Engine {
	t.Helper()
	require.Len(t, bodies, len(testSources))
	dir := t.TempDir()
	for i, s := range testSources {
		require.NoError(t, os.WriteFile(filepath.Join(dir, s.Path), []byte(bodies[i]), 0o644))
	}
	return New(dataset.NewLoader(dir, dataset.DefaultOptions()), testSources)
}

func scenarioEngine(t *testing.T) *Engine {
	return newEngine(t,
		"GHI,DNI,DHI\n10,1,NA\n12,2,NA\n14,3,NA\n",
		"GHI,DNI,DHI\n20,1,NA\n22,2,NA\n24,3,NA\n",
		"GHI,DNI,DHI\n10,1,NA\n12,2,NA\n14,3,NA\n",
	)
}

func TestEngine_ListAvailable(t *testing.T) {
	e := scenarioEngine(t)
	assert.Equal(t, []dataset.SourceID{"Benin", "Sierra Leone", "Togo"}, e.ListAvailableSources())
	assert.Equal(t, []dataset.Metric{dataset.GHI, dataset.DNI, dataset.DHI}, e.ListAvailableMetrics())
}

func TestEngine_Scenario(t *testing.T) {
	e := scenarioEngine(t)
	ds, err := e.LoadUnifiedDataset()
	require.NoError(t, err)
	assert.Equal(t, 9, ds.Len())

	sums := e.FilterAndSummarize(ds, nil, dataset.GHI)
	require.Len(t, sums, 3)
	assert.Equal(t, dataset.SourceID("Sierra Leone"), sums[1].Source)
	assert.Equal(t, 22.0, sums[1].Mean)
	assert.Equal(t, 2.0, sums[1].Std)

	cmp, err := e.CompareGroups(ds, nil, dataset.GHI)
	require.NoError(t, err)
	assert.True(t, cmp.Significant)
	assert.Less(t, cmp.P, 0.05)

	best, err := e.BestPerforming(ds, nil, dataset.GHI)
	require.NoError(t, err)
	assert.Equal(t, stats.Best{Source: "Sierra Leone", Mean: 22}, best)

	// selection narrows everything downstream
	sel := []dataset.SourceID{"Benin", "Togo"}
	sums = e.FilterAndSummarize(ds, sel, dataset.GHI)
	assert.Len(t, sums, 2)
	cmp, err = e.CompareGroups(ds, sel, dataset.GHI)
	require.NoError(t, err)
	assert.Equal(t, stats.OutcomeOrdinary, cmp.Outcome)
	assert.False(t, cmp.Significant)
	best, err = e.BestPerforming(ds, sel, dataset.GHI)
	require.NoError(t, err)
	assert.Equal(t, dataset.SourceID("Benin"), best.Source, "tie goes to the lexically first source")
}

func TestEngine_RequestErrors(t *testing.T) {
	e := scenarioEngine(t)
	ds, err := e.LoadUnifiedDataset()
	require.NoError(t, err)

	_, err = e.CompareGroups(ds, []dataset.SourceID{"Benin"}, dataset.GHI)
	assert.ErrorIs(t, err, stats.ErrInsufficientGroups)

	_, err = e.BestPerforming(ds, nil, dataset.DHI)
	assert.ErrorIs(t, err, stats.ErrNoData)

	_, err = e.BestPerforming(ds, []dataset.SourceID{"Atlantis"}, dataset.GHI)
	assert.ErrorIs(t, err, stats.ErrEmptyDataset)

	sums := e.FilterAndSummarize(ds, nil, dataset.DHI)
	for _, s := range sums {
		assert.Equal(t, 0, s.Count)
		assert.True(t, math.IsNaN(s.Mean))
	}
}

func TestEngine_LoadIsMemoized(t *testing.T) {
	e := scenarioEngine(t)
	real := e.load
	var calls int32
	e.load = func() (*dataset.Dataset, error) {
		atomic.AddInt32(&calls, 1)
		return real()
	}

	var wg sync.WaitGroup
	got := make([]*dataset.Dataset, 8)
	for i := range got {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			ds, err := e.LoadUnifiedDataset()
			assert.NoError(t, err)
			got[i] = ds
		}(i)
	}
	wg.Wait()
	assert.Equal(t, int32(1), atomic.LoadInt32(&calls))
	for _, ds := range got {
		assert.Same(t, got[0], ds)
	}

	e.Reload()
	again, err := e.LoadUnifiedDataset()
	require.NoError(t, err)
	assert.Equal(t, int32(2), atomic.LoadInt32(&calls))
	assert.NotSame(t, got[0], again)
}

func TestEngine_FailedLoadIsRetried(t *testing.T) {
	dir := t.TempDir()
	e := New(dataset.NewLoader(dir, dataset.DefaultOptions()), testSources[:1])

	_, err := e.LoadUnifiedDataset()
	var nf *dataset.SourceNotFoundError
	require.True(t, errors.As(err, &nf))
	assert.Equal(t, dataset.SourceID("Benin"), nf.Source)

	require.NoError(t, os.WriteFile(filepath.Join(dir, testSources[0].Path), []byte("GHI\n1\n2\n"), 0o644))
	ds, err := e.LoadUnifiedDataset()
	require.NoError(t, err)
	assert.Equal(t, 2, ds.Len())
}

func TestEngine_Distribution(t *testing.T) {
	e := scenarioEngine(t)
	ds, err := e.LoadUnifiedDataset()
	require.NoError(t, err)

	box, hist, err := e.Distribution(ds, []dataset.SourceID{"Togo"}, dataset.GHI, 4)
	require.NoError(t, err)
	require.Len(t, box, 1)
	assert.Equal(t, 12.0, box[0].Median)
	assert.Len(t, hist.Edges, 5)
	assert.Equal(t, []int{1, 0, 1, 1}, hist.Counts["Togo"])

	_, _, err = e.Distribution(ds, nil, dataset.DHI, 0)
	assert.ErrorIs(t, err, stats.ErrNoData)
}

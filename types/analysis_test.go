package types

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/zeu5/dino-rl/dino"
)

func traceWith(distances ...float64) *Trace {
	trace := NewTrace()
	for i, d := range distances {
		trace.Append(&Step{
			Observation: &dino.Observation{Status: dino.Running, Speed: 6, Distance: d},
			Action:      dino.Run,
			Reward:      1,
			Next:        &dino.Observation{Status: dino.Running, Speed: 6 + float64(i), Distance: d},
			Info:        dino.Info{"action_legal": i%2 == 0},
		})
	}
	return trace
}

func TestSeriesAnalyzers(t *testing.T) {
	distance := DistanceAnalyzer()
	reward := RewardAnalyzer()
	illegal := IllegalActionAnalyzer()

	for _, tr := range []*Trace{traceWith(10, 20), traceWith(5, 6, 7)} {
		distance.Analyze(0, 0, "exp", tr)
		reward.Analyze(0, 0, "exp", tr)
		illegal.Analyze(0, 0, "exp", tr)
	}

	assert.Equal(t, Series{20, 7}, distance.DataSet())
	assert.Equal(t, Series{2, 3}, reward.DataSet())
	assert.Equal(t, Series{1, 1}, illegal.DataSet())

	distance.Reset()
	assert.Equal(t, Series{}, distance.DataSet())
}

func TestCoverageAnalyzerIsCumulative(t *testing.T) {
	c := NewCoverageAnalyzer()
	c.Analyze(0, 0, "exp", traceWith(1, 2))
	c.Analyze(0, 1, "exp", traceWith(1, 2))

	ds := c.DataSet().(Series)
	require.Len(t, ds, 2)
	assert.Equal(t, ds[0], ds[1])
	assert.Greater(t, ds[0], 0.0)

	c.Reset()
	assert.Empty(t, c.DataSet())
}

func TestSummarize(t *testing.T) {
	assert.Equal(t, Summary{}, Summarize(nil))

	s := Summarize(Series{2, 4, 4, 4, 5, 5, 7, 9})
	assert.Equal(t, 8, s.Episodes)
	assert.InDelta(t, 5.0, s.Mean, 1e-9)
	assert.InDelta(t, 2.138, s.StdDev, 1e-3)
	assert.Equal(t, 9.0, s.Max)
	assert.Equal(t, 9.0, s.Last)

	one := Summarize(Series{3})
	assert.Equal(t, 0.0, one.StdDev)
}

func TestSeriesPlotterWritesFile(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "plots")
	plotter := SeriesPlotter(dir, "distance", "Distance")
	plotter(1, []string{"a", "b"}, []DataSet{Series{1, 2, 3}, Series{}})

	_, err := os.Stat(filepath.Join(dir, "1_distance.png"))
	assert.NoError(t, err)
}

package types

import (
	"fmt"
	"os"
	"path"
	"strconv"

	"github.com/go-kit/log"
	"github.com/go-kit/log/level"
	"gonum.org/v1/gonum/stat"
	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/plotutil"
	"gonum.org/v1/plot/vg"
)

// Series holds one value per analyzed episode
type Series []float64

// seriesAnalyzer extracts a single value from every trace
type seriesAnalyzer struct {
	extract func(*Trace) float64
	values  Series
}

var _ Analyzer = &seriesAnalyzer{}

func newSeriesAnalyzer(extract func(*Trace) float64) *seriesAnalyzer {
	return &seriesAnalyzer{
		extract: extract,
		values:  make(Series, 0),
	}
}

func (s *seriesAnalyzer) Analyze(_ int, _ int, _ string, t *Trace) {
	s.values = append(s.values, s.extract(t))
}

func (s *seriesAnalyzer) DataSet() DataSet {
	out := make(Series, len(s.values))
	copy(out, s.values)
	return out
}

func (s *seriesAnalyzer) Reset() {
	s.values = make(Series, 0)
}

// DistanceAnalyzer records the distance reached in each episode
func DistanceAnalyzer() Analyzer {
	return newSeriesAnalyzer(func(t *Trace) float64 { return t.Distance() })
}

// RewardAnalyzer records the total reward of each episode
func RewardAnalyzer() Analyzer {
	return newSeriesAnalyzer(func(t *Trace) float64 { return t.TotalReward() })
}

func IllegalActionAnalyzer() Analyzer {
	return newSeriesAnalyzer(func(t *Trace) float64 { return float64(t.IllegalActions()) })
}

// CoverageAnalyzer counts the distinct observation buckets seen so far,
// one cumulative value per episode
type CoverageAnalyzer struct {
	seen   map[string]bool
	values Series
}

var _ Analyzer = &CoverageAnalyzer{}

func NewCoverageAnalyzer() *CoverageAnalyzer {
	return &CoverageAnalyzer{
		seen:   make(map[string]bool),
		values: make(Series, 0),
	}
}

func (c *CoverageAnalyzer) Analyze(_ int, _ int, _ string, t *Trace) {
	for _, s := range t.Steps {
		if s.Observation != nil {
			c.seen[s.Observation.Hash()] = true
		}
		if s.Next != nil {
			c.seen[s.Next.Hash()] = true
		}
	}
	c.values = append(c.values, float64(len(c.seen)))
}

func (c *CoverageAnalyzer) DataSet() DataSet {
	out := make(Series, len(c.values))
	copy(out, c.values)
	return out
}

func (c *CoverageAnalyzer) Reset() {
	c.seen = make(map[string]bool)
	c.values = make(Series, 0)
}

// SeriesPlotter draws one line per experiment and saves it as
// <run>_<name>.png under plotPath
func SeriesPlotter(plotPath, name, yLabel string) Comparator {
	if _, err := os.Stat(plotPath); err != nil {
		os.MkdirAll(plotPath, os.ModePerm)
	}
	return func(run int, names []string, ds []DataSet) {
		p := plot.New()
		p.Title.Text = "Comparison"
		p.X.Label.Text = "Episode"
		p.Y.Label.Text = yLabel
		for i := 0; i < len(names); i++ {
			series, ok := ds[i].(Series)
			if !ok || len(series) == 0 {
				continue
			}
			points := make(plotter.XYs, len(series))
			for j, v := range series {
				points[j] = plotter.XY{
					X: float64(j),
					Y: v,
				}
			}
			line, err := plotter.NewLine(points)
			if err != nil {
				continue
			}
			line.Color = plotutil.Color(i)
			p.Add(line)
			p.Legend.Add(names[i], line)
		}
		p.Save(8*vg.Inch, 8*vg.Inch, path.Join(plotPath, strconv.Itoa(run)+"_"+name+".png"))
	}
}

// Summary of a series
type Summary struct {
	Episodes int
	Mean     float64
	StdDev   float64
	Max      float64
	Last     float64
}

func (s Summary) String() string {
	return fmt.Sprintf("eps=%d mean=%.2f std=%.2f max=%.2f last=%.2f", s.Episodes, s.Mean, s.StdDev, s.Max, s.Last)
}

// Summarize computes the summary statistics of a series
func Summarize(s Series) Summary {
	if len(s) == 0 {
		return Summary{}
	}
	max := s[0]
	for _, v := range s {
		if v > max {
			max = v
		}
	}
	sum := Summary{
		Episodes: len(s),
		Mean:     stat.Mean(s, nil),
		Max:      max,
		Last:     s[len(s)-1],
	}
	if len(s) > 1 {
		sum.StdDev = stat.StdDev(s, nil)
	}
	return sum
}

// SummaryComparator logs the summary of every experiment's series
func SummaryComparator(logger log.Logger, name string) Comparator {
	return func(run int, names []string, ds []DataSet) {
		for i, n := range names {
			series, ok := ds[i].(Series)
			if !ok {
				continue
			}
			level.Info(logger).Log("msg", "summary", "analysis", name, "run", run, "experiment", n, "summary", Summarize(series).String())
		}
	}
}

// ChainComparators runs each comparator in order
func ChainComparators(comparators ...Comparator) Comparator {
	return func(run int, names []string, ds []DataSet) {
		for _, c := range comparators {
			c(run, names, ds)
		}
	}
}

package types

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path"
	"strconv"
	"time"

	"github.com/go-kit/log"
	"github.com/go-kit/log/level"
	"github.com/zeu5/dino-rl/util"
	"golang.org/x/exp/rand"
)

type experimentRunConfig struct {
	// execution configuration
	CurrentRun int
	Episodes   int
	Horizon    int
	Seed       *int64
	Analyzers  map[string]Analyzer
	Timeout    time.Duration
	Context    context.Context

	// thresholds to abort the experiment
	ConsecutiveTimeoutsAbort int
	ConsecutiveErrorsAbort   int

	// record flags
	RecordTraces bool
	RecordPolicy bool

	// reports configuration
	ReportsPrintConfig *ReportsPrintConfig
	ReportSavePath     string

	Output *ParallelOutput
	Logger log.Logger
}

// ExperimentStats counts the episode outcomes of a single run
type ExperimentStats struct {
	Episodes     int
	Valid        int
	Timesteps    int
	Timeouts     int
	Errors       int
	Crashes      int
	Truncations  int
	ForcedResets int
	BestDistance float64
}

func (s *ExperimentStats) String() string {
	validPct := 0.0
	if s.Episodes > 0 {
		validPct = float64(s.Valid) / float64(s.Episodes) * 100
	}
	return fmt.Sprintf("Eps:%d Valid:%d [%5.1f%%] TSteps:%d || Crash:%d Trunc:%d Forced:%d || TOut:%d Err:%d || Best:%.0f",
		s.Episodes, s.Valid, validPct, s.Timesteps, s.Crashes, s.Truncations, s.ForcedResets, s.Timeouts, s.Errors, s.BestDistance)
}

// Experiment encapsulates the different parameters to configure an agent and analyze the traces
type Experiment struct {
	Name        string
	policy      Policy
	environment Environment
}

// NewExperiment creates a new experiment instance
func NewExperiment(name string, policy Policy, environment Environment) *Experiment {
	return &Experiment{
		Name:        name,
		policy:      policy,
		environment: environment,
	}
}

func (e *Experiment) recordTrace(rConfig *experimentRunConfig, eCtx *EpisodeContext) {
	tracesFile := path.Join(rConfig.ReportSavePath, "traces", e.Name+"_"+strconv.Itoa(rConfig.CurrentRun)+".jsonl")
	if err := util.AppendJSONLine(tracesFile, eCtx.Trace); err != nil {
		level.Warn(rConfig.Logger).Log("msg", "failed to record trace", "episode", eCtx.Episode, "err", err)
	}
}

func (e *Experiment) recordReport(rConfig *experimentRunConfig, eCtx *EpisodeContext) {
	cfg := rConfig.ReportsPrintConfig
	if cfg == nil {
		return
	}
	write := false
	switch {
	case eCtx.TimedOut:
		write = cfg.PrintIfTimeout
	case eCtx.Err != nil:
		write = cfg.PrintIfError
	default:
		write = rand.Float32() < cfg.Sampling
	}
	if !write {
		return
	}
	content := []string{eCtx.Report.StringPerType()}
	if cfg.PrintTimeline {
		content = append(content, eCtx.Report.StringTimeline())
	}
	filePath := path.Join(rConfig.ReportSavePath, "epReports", fmt.Sprintf("%s_run%d_ep%d.txt", e.Name, rConfig.CurrentRun, eCtx.Episode))
	util.WriteToFile(filePath, content...)
}

// Run the experiment for the specified number of episodes
func (e *Experiment) Run(rConfig *experimentRunConfig) *ExperimentStats {
	stats := &ExperimentStats{}
	select {
	case <-rConfig.Context.Done():
		return stats
	default:
	}

	consecutiveTimeouts := 0
	consecutiveErrors := 0

	agent := NewAgent(&AgentConfig{
		Episodes:    rConfig.Episodes,
		Horizon:     rConfig.Horizon,
		Seed:        rConfig.Seed,
		Policy:      e.policy,
		Environment: e.environment,
	})

	for episode := 0; episode < rConfig.Episodes; episode++ {
		select {
		case <-rConfig.Context.Done():
			return stats
		default:
		}

		eCtx := NewEpisodeContext(rConfig.Context, episode, e.Name, rConfig.Timeout)
		e.runEpisode(eCtx, agent)
		stats.Episodes += 1
		stats.Timesteps += eCtx.Timesteps

		if eCtx.TimedOut {
			stats.Timeouts += 1
			consecutiveTimeouts += 1
		} else {
			consecutiveTimeouts = 0
		}

		if eCtx.Err != nil {
			stats.Errors += 1
			consecutiveErrors += 1
			level.Warn(rConfig.Logger).Log("msg", "episode failed", "experiment", e.Name, "episode", episode, "err", eCtx.Err)
		} else {
			consecutiveErrors = 0
		}

		if eCtx.Valid() {
			stats.Valid += 1
			switch {
			case eCtx.ForcedReset:
				stats.ForcedResets += 1
			case eCtx.Crashed:
				stats.Crashes += 1
			case eCtx.Truncated:
				stats.Truncations += 1
			}
			if d := eCtx.Trace.Distance(); d > stats.BestDistance {
				stats.BestDistance = d
			}
		}

		if rConfig.RecordTraces {
			e.recordTrace(rConfig, eCtx)
		}
		e.recordReport(rConfig, eCtx)

		// analyze the trace, even if the episode timed out or ended with an error
		for _, a := range rConfig.Analyzers {
			a.Analyze(rConfig.CurrentRun, episode, e.Name, eCtx.Trace)
		}

		if rConfig.Output != nil {
			rConfig.Output.TrySet(fmt.Sprintf("Exp:%s %s", e.Name, stats))
		}

		// check to eventually abort the experiment
		if consecutiveTimeouts >= rConfig.ConsecutiveTimeoutsAbort {
			level.Error(rConfig.Logger).Log("msg", "aborting experiment", "experiment", e.Name, "consecutive_timeouts", consecutiveTimeouts)
			break
		}
		if consecutiveErrors >= rConfig.ConsecutiveErrorsAbort {
			level.Error(rConfig.Logger).Log("msg", "aborting experiment", "experiment", e.Name, "consecutive_errors", consecutiveErrors)
			break
		}
	}

	if rConfig.RecordPolicy {
		e.policy.Record(path.Join(rConfig.ReportSavePath, "policies", e.Name+"_"+strconv.Itoa(rConfig.CurrentRun)))
	}
	return stats
}

// runEpisode runs the agent in its own goroutine so that a stuck episode can
// be timed out. The environment is not reused until the goroutine returns.
func (e *Experiment) runEpisode(eCtx *EpisodeContext, agent *Agent) {
	done := make(chan struct{})

	go func() {
		defer close(done)
		defer func() {
			if r := recover(); r != nil {
				eCtx.SetError(fmt.Errorf("%v", r))
			}
		}()
		start := time.Now()
		agent.RunEpisode(eCtx)
		eCtx.RunDuration = time.Since(start)
		eCtx.Report.AddTimeEntry(eCtx.RunDuration, "return_time", "experiment.runEpisode")
	}()

	select {
	case <-done:
	case <-eCtx.Context.Done():
		<-done
	}
	if errors.Is(eCtx.Context.Err(), context.DeadlineExceeded) {
		eCtx.SetTimedOut()
	}
	eCtx.Cancel()
}

// Reset cleans the information learned by the policy
func (e *Experiment) Reset() {
	e.policy.Reset()
}

// Generic Dataset that contains information after processing the traces
type DataSet interface{}

// Analyzer compresses the information in the traces to a DataSet
type Analyzer interface {
	// Run, episode, experiment, trace
	Analyze(int, int, string, *Trace)
	// Resulting dataset
	DataSet() DataSet
	// Reset the analyzer
	Reset()
}

// Comparator differentiates between different datasets with associated names
// run, experiment names, datasets
type Comparator func(int, []string, []DataSet)

func NoopComparator() Comparator {
	return func(int, []string, []DataSet) {}
}

// ComparisonConfig contains the configuration for the comparison
type ComparisonConfig struct {
	Runs     int // number of runs
	Episodes int // number of episodes
	Horizon  int // number of steps
	Seed     *int64

	RecordPath   string              // path to store the results
	ReportConfig *ReportsPrintConfig // configuration for the reports
	Timeout      time.Duration       // timeout for each episode

	// thresholds to abort the experiment
	ConsecutiveTimeoutsAbort int
	ConsecutiveErrorsAbort   int

	// record flags
	RecordTraces bool
	RecordPolicy bool

	// extra entries stored along with the comparison configuration
	Extra map[string]interface{}

	// live progress output, off when 0
	PrintFrequency time.Duration
	Logger         log.Logger
}

// record the configuration of the comparison
func (c *Comparison) recordConfig() error {
	cfg := c.cConfig
	out := make(map[string]interface{})
	out["runs"] = cfg.Runs
	out["episodes"] = cfg.Episodes
	out["horizon"] = cfg.Horizon
	out["record_traces"] = cfg.RecordTraces
	out["record_policy"] = cfg.RecordPolicy
	out["report_config"] = cfg.ReportConfig
	if cfg.Seed != nil {
		out["seed"] = *cfg.Seed
	}
	if cfg.Timeout != 0 {
		out["timeout"] = cfg.Timeout.String()
	}
	for k, v := range cfg.Extra {
		out[k] = v
	}

	experiments := make([]string, 0)
	for _, e := range c.Experiments {
		experiments = append(experiments, e.Name)
	}
	out["experiments"] = experiments

	analyzers := make([]string, 0)
	for name := range c.analyzers {
		analyzers = append(analyzers, name)
	}
	out["analyzers"] = analyzers

	return util.WriteJSON(path.Join(cfg.RecordPath, "comparison_config.json"), out)
}

// Comparison contains the different experiments to compare
// The traces obtained from the experiments are analyzed
// The analyzed datasets are then compared
type Comparison struct {
	Experiments []*Experiment
	analyzers   map[string]Analyzer
	comparators map[string]Comparator
	cConfig     *ComparisonConfig
	logger      log.Logger
}

// NewComparison creates a comparison instance, creating the record folders
func NewComparison(config *ComparisonConfig) (*Comparison, error) {
	if config.ConsecutiveErrorsAbort == 0 {
		config.ConsecutiveErrorsAbort = 10
	}
	if config.ConsecutiveTimeoutsAbort == 0 {
		config.ConsecutiveTimeoutsAbort = 10
	}
	if config.Runs == 0 {
		config.Runs = 1
	}
	if config.Logger == nil {
		config.Logger = log.NewNopLogger()
	}

	foldersToCreate := []string{"epReports"}
	if config.RecordTraces {
		foldersToCreate = append(foldersToCreate, "traces")
	}
	if config.RecordPolicy {
		foldersToCreate = append(foldersToCreate, "policies")
	}
	for _, s := range foldersToCreate {
		if err := os.MkdirAll(path.Join(config.RecordPath, s), os.ModePerm); err != nil {
			return nil, err
		}
	}

	return &Comparison{
		Experiments: make([]*Experiment, 0),
		analyzers:   make(map[string]Analyzer),
		comparators: make(map[string]Comparator),
		cConfig:     config,
		logger:      log.With(config.Logger, "component", "comparison"),
	}, nil
}

// AddAnalysis adds an analyzer and comparator to the comparison
func (c *Comparison) AddAnalysis(name string, analyzer Analyzer, comparator Comparator) {
	c.analyzers[name] = analyzer
	c.comparators[name] = comparator
}

// Add experiments to compare
func (c *Comparison) AddExperiment(e *Experiment) {
	c.Experiments = append(c.Experiments, e)
}

// Run the comparison, returning the stats of every experiment per run
func (c *Comparison) Run(ctx context.Context) [][]*ExperimentStats {
	if err := c.recordConfig(); err != nil {
		level.Warn(c.logger).Log("msg", "failed to record comparison config", "err", err)
	}

	var printer *TerminalPrinter
	output := NewParallelOutput()
	if c.cConfig.PrintFrequency > 0 {
		printer = NewTerminalPrinter(ctx, []*ParallelOutput{output}, c.cConfig.PrintFrequency)
		printer.Start()
		defer printer.Stop()
	}

	results := make([][]*ExperimentStats, 0, c.cConfig.Runs)
	for run := 0; run < c.cConfig.Runs; run++ {
		level.Info(c.logger).Log("msg", "starting run", "run", run+1)
		datasets := make(map[string][]DataSet)
		for name := range c.analyzers {
			datasets[name] = make([]DataSet, len(c.Experiments))
		}

		runStats := make([]*ExperimentStats, len(c.Experiments))
		names := make([]string, len(c.Experiments))
		for i, e := range c.Experiments {
			select {
			case <-ctx.Done():
				return results
			default:
			}
			output.SetRunning(true)
			runStats[i] = e.Run(c.prepareRunConfig(ctx, run, output))
			output.SetRunning(false)
			level.Info(c.logger).Log("msg", "experiment finished", "experiment", e.Name, "run", run+1, "stats", runStats[i].String())

			for name, a := range c.analyzers {
				datasets[name][i] = a.DataSet()
				a.Reset()
			}
			names[i] = e.Name
			e.Reset()
		}
		for name, comp := range c.comparators {
			comp(run, names, datasets[name])
		}
		results = append(results, runStats)
	}
	return results
}

// prepare the run configuration for the experiment
func (c *Comparison) prepareRunConfig(ctx context.Context, run int, output *ParallelOutput) *experimentRunConfig {
	return &experimentRunConfig{
		CurrentRun:               run,
		Episodes:                 c.cConfig.Episodes,
		Horizon:                  c.cConfig.Horizon,
		Seed:                     c.cConfig.Seed,
		Analyzers:                c.analyzers,
		RecordTraces:             c.cConfig.RecordTraces,
		RecordPolicy:             c.cConfig.RecordPolicy,
		ReportsPrintConfig:       c.cConfig.ReportConfig,
		ReportSavePath:           c.cConfig.RecordPath,
		Timeout:                  c.cConfig.Timeout,
		Context:                  ctx,
		ConsecutiveTimeoutsAbort: c.cConfig.ConsecutiveTimeoutsAbort,
		ConsecutiveErrorsAbort:   c.cConfig.ConsecutiveErrorsAbort,
		Output:                   output,
		Logger:                   c.logger,
	}
}

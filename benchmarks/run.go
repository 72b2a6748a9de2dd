package benchmarks

import (
	"context"
	"os"
	"os/signal"
	"path"
	"time"

	"github.com/go-kit/log/level"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/zeu5/dino-rl/dino"
	"github.com/zeu5/dino-rl/metrics"
	"github.com/zeu5/dino-rl/policies"
	"github.com/zeu5/dino-rl/recorder"
	"github.com/zeu5/dino-rl/types"
)

var (
	rewardPreset   string
	crashPenalty   float64
	illegalPenalty float64
	survival       float64
	progressScale  float64
	episodeTimeout time.Duration
)

// interruptContext is cancelled on SIGINT or when stop is called
func interruptContext() (context.Context, func()) {
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt)

	doneCh := make(chan struct{})
	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		select {
		case <-sigCh:
		case <-doneCh:
		}
		signal.Stop(sigCh)
		cancel()
	}()
	return ctx, func() { close(doneCh) }
}

// rewardConfig starts from the preset and applies the reward flags that were set
func rewardConfig(flags *pflag.FlagSet) (*dino.RewardConfig, error) {
	rc, err := dino.RewardPreset(rewardPreset)
	if err != nil {
		return nil, err
	}
	if flags.Changed("crash-penalty") {
		rc.CrashPenalty = crashPenalty
	}
	if flags.Changed("illegal-penalty") {
		rc.IllegalPenalty = illegalPenalty
	}
	if flags.Changed("survival") {
		rc.Survival = survival
	}
	if flags.Changed("progress-scale") {
		rc.ProgressScale = progressScale
	}
	if err := rc.Validate(); err != nil {
		return nil, err
	}
	return &rc, nil
}

func newRecorder(ctx context.Context) (recorder.Recorder, error) {
	if redisAddr != "" {
		r, err := recorder.NewRedisRecorder(ctx, &recorder.RedisConfig{Addr: redisAddr})
		if err != nil {
			return nil, err
		}
		return r, nil
	}
	return recorder.NewFileRecorder(path.Join(saveFile, "episodes.jsonl")), nil
}

func seedPointer() *int64 {
	if seed == 0 {
		return nil
	}
	s := seed
	return &s
}

func Run(ctx context.Context, flags *pflag.FlagSet, policyNames []string) error {
	reward, err := rewardConfig(flags)
	if err != nil {
		return err
	}
	stack, err := newGameStack(ctx, stackConfig{
		Transport: transport,
		GameURL:   gameURL,
		GameDir:   gameDir,
		Addr:      addr,
		Headless:  headless,
		Logger:    logger,
	})
	if err != nil {
		return err
	}
	defer stack.Close()

	collector, err := metrics.NewCollector(stack.registry)
	if err != nil {
		return err
	}
	rec, err := newRecorder(ctx)
	if err != nil {
		return err
	}
	defer rec.Close()

	config := &dino.Config{
		MaxStepsPerEpisode: horizon,
		ActionSpace:        actionsVar,
		Reward:             reward,
		Headless:           headless,
		Verbose:            verbose,
		Logger:             logger,
		Observer:           dino.MultiObserver{collector, recorder.Observer(rec, 2*time.Second, logger)},
	}
	env, err := dino.NewEnv(config, stack.factory)
	if err != nil {
		return err
	}
	defer env.Close()

	c, err := types.NewComparison(&types.ComparisonConfig{
		Runs:       runs,
		Episodes:   episodes,
		Horizon:    horizon,
		Seed:       seedPointer(),
		RecordPath: saveFile,
		Timeout:    episodeTimeout,
		// record flags
		RecordTraces: true,
		RecordPolicy: true,
		// report config
		ReportConfig:   types.RepConfigStandard(),
		Extra:          config.Printable(),
		PrintFrequency: time.Second,
		Logger:         logger,
	})
	if err != nil {
		return err
	}
	plots := path.Join(saveFile, "plots")
	c.AddAnalysis("distance", types.DistanceAnalyzer(), types.ChainComparators(
		types.SeriesPlotter(plots, "distance", "Distance"),
		types.SummaryComparator(logger, "distance"),
	))
	c.AddAnalysis("reward", types.RewardAnalyzer(), types.ChainComparators(
		types.SeriesPlotter(plots, "reward", "Total reward"),
		types.SummaryComparator(logger, "reward"),
	))
	c.AddAnalysis("illegal", types.IllegalActionAnalyzer(), types.SummaryComparator(logger, "illegal_actions"))
	c.AddAnalysis("coverage", types.NewCoverageAnalyzer(), types.SeriesPlotter(plots, "coverage", "States covered"))

	for i, name := range policyNames {
		policySeed := uint64(0)
		if seed != 0 {
			policySeed = uint64(seed) + uint64(i)
		}
		policy, err := policies.New(name, policySeed)
		if err != nil {
			return err
		}
		c.AddExperiment(types.NewExperiment(name, policy, env))
	}

	level.Info(logger).Log("msg", "starting comparison", "policies", len(policyNames), "config", config.String())
	c.Run(ctx)
	level.Info(logger).Log("msg", "comparison finished", "best_distance", env.BestDistance())
	return nil
}

func RunCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "run [POLICY...]",
		Short: "Train and compare policies against the game",
		Long:  "Train and compare policies against the game. Policies: random, jump, qlearning, softmax, linear.",
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(args) == 0 {
				args = []string{"random"}
			}
			ctx, stop := interruptContext()
			defer stop()
			return Run(ctx, cmd.Flags(), args)
		},
	}
	cmd.Flags().StringVar(&rewardPreset, "reward", dino.RewardPresetDefault, "Reward preset: default, progress or shaped")
	cmd.Flags().Float64Var(&crashPenalty, "crash-penalty", 0, "Override the preset's crash penalty")
	cmd.Flags().Float64Var(&illegalPenalty, "illegal-penalty", 0, "Override the preset's illegal action penalty")
	cmd.Flags().Float64Var(&survival, "survival", 0, "Override the preset's survival term")
	cmd.Flags().Float64Var(&progressScale, "progress-scale", 0, "Override the preset's progress scale")
	cmd.Flags().DurationVar(&episodeTimeout, "episode-timeout", 5*time.Minute, "Timeout of a single episode, 0 for none")
	return cmd
}

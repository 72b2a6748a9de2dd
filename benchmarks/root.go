package benchmarks

import (
	"os"

	"github.com/go-kit/log"
	"github.com/go-kit/log/level"
	"github.com/spf13/cobra"
)

var (
	episodes   int
	horizon    int
	saveFile   string
	runs       int
	seed       int64
	gameURL    string
	gameDir    string
	addr       string
	headless   bool
	verbose    bool
	transport  string
	redisAddr  string
	actionsVar string
)

var logger log.Logger = log.NewNopLogger()

func newLogger(verbose bool) log.Logger {
	l := log.NewLogfmtLogger(log.NewSyncWriter(os.Stderr))
	l = log.With(l, "ts", log.DefaultTimestampUTC)
	if verbose {
		return level.NewFilter(l, level.AllowDebug())
	}
	return level.NewFilter(l, level.AllowInfo())
}

func GetRootCommand() *cobra.Command {
	// environment defaults, explicit flags win
	loadDotEnv(".env.local", ".env")

	rootCommand := &cobra.Command{
		Use:           "dino",
		Short:         "Reinforcement learning environment over the chrome dino game",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			logger = newLogger(verbose)
		},
	}
	rootCommand.PersistentFlags().IntVarP(&episodes, "episodes", "e", envInt("DINO_EPISODES", 100), "Number of episodes to run")
	rootCommand.PersistentFlags().IntVar(&horizon, "horizon", envInt("DINO_MAX_STEPS", 1000), "Maximum steps of each episode")
	rootCommand.PersistentFlags().StringVarP(&saveFile, "save", "s", "results", "Save the result data in the specified folder")
	rootCommand.PersistentFlags().IntVar(&runs, "runs", 1, "Number of experiment runs")
	rootCommand.PersistentFlags().Int64Var(&seed, "seed", envInt64("DINO_SEED", 0), "Seed passed to reset and the policies, 0 for none")
	rootCommand.PersistentFlags().StringVar(&gameURL, "game-url", envString("DINO_GAME_URL", ""), "URL of the game page, served locally when empty")
	rootCommand.PersistentFlags().StringVar(&gameDir, "game-dir", envString("DINO_GAME_DIR", "t-rex-runner"), "Directory containing the game's index.html")
	rootCommand.PersistentFlags().StringVar(&addr, "addr", "localhost:8000", "Address of the local game server")
	rootCommand.PersistentFlags().BoolVar(&headless, "headless", envBool("DINO_HEADLESS", true), "Run chrome headless")
	rootCommand.PersistentFlags().BoolVarP(&verbose, "verbose", "v", envBool("DINO_VERBOSE", false), "Debug logging")
	rootCommand.PersistentFlags().StringVarP(&transport, "transport", "t", "chrome", "Transport to the game: chrome or bridge")
	rootCommand.PersistentFlags().StringVar(&redisAddr, "redis", envString("DINO_REDIS_ADDR", ""), "Redis address for episode summaries, file recorder when empty")
	rootCommand.PersistentFlags().StringVar(&actionsVar, "actions", "basic", "Action space: basic or extended")
	// adding the subcommands here
	rootCommand.AddCommand(RunCommand())
	rootCommand.AddCommand(ServeCommand())
	rootCommand.AddCommand(ProbeCommand())
	return rootCommand
}

package benchmarks

import (
	"github.com/go-kit/log/level"
	"github.com/spf13/cobra"
)

func ServeCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Serve the game with the bridge script and metrics until interrupted",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := interruptContext()
			defer stop()

			stack, err := newGameStack(ctx, stackConfig{
				Transport: "bridge",
				GameDir:   gameDir,
				Addr:      addr,
				Logger:    logger,
			})
			if err != nil {
				return err
			}
			defer stack.Close()

			<-ctx.Done()
			level.Info(logger).Log("msg", "shutting down")
			return nil
		},
	}
}

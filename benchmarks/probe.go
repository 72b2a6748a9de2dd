package benchmarks

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"
	"github.com/zeu5/dino-rl/dino"
)

// probe starts the game once through the factory and prints the raw and
// normalized state
func probe(ctx context.Context, factory dino.TransportFactory, config *dino.Config, out io.Writer) error {
	config.SetDefaults()
	inner, err := factory(ctx)
	if err != nil {
		return errors.Wrapf(dino.ErrTransportUnavailable, "create transport: %v", err)
	}
	t := dino.NewSerialTransport(inner, config.CallTimeout)
	defer t.Teardown()

	if err := t.StartOrResume(ctx); err != nil {
		return errors.Wrapf(dino.ErrTransportUnavailable, "start: %v", err)
	}

	var raw *dino.RawTelemetry
	for i := 0; i < config.ReadyAttempts; i++ {
		raw, err = t.QueryState(ctx)
		if err == nil && raw != nil {
			break
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(config.ReadyInterval):
		}
	}
	if raw == nil {
		return errors.Wrap(dino.ErrTransportUnavailable, "game never became ready")
	}
	if err := t.SendInput(ctx, dino.KeySpace, config.HoldDuration); err != nil {
		return errors.Wrapf(dino.ErrTransportUnavailable, "start key: %v", err)
	}
	time.Sleep(config.StepDelay)
	if next, err := t.QueryState(ctx); err == nil && next != nil {
		raw = next
	}

	bs, err := json.MarshalIndent(raw, "", "  ")
	if err != nil {
		return err
	}
	obs, malformed := dino.Normalize(raw, config.MaxObstacles)
	fmt.Fprintf(out, "raw telemetry:\n%s\n", bs)
	fmt.Fprintf(out, "observation: %s\n", obs)
	if len(malformed) > 0 {
		fmt.Fprintf(out, "malformed fields: %v\n", malformed)
	}
	return nil
}

func ProbeCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "probe",
		Short: "Start the game once and print the state the environment would see",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := interruptContext()
			defer stop()

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

			return probe(ctx, stack.factory, &dino.Config{Logger: logger}, os.Stdout)
		},
	}
}

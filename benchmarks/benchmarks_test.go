package benchmarks

import (
	"bytes"
	"context"
	"errors"
	"testing"
	"time"

	"github.com/spf13/pflag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/zeu5/dino-rl/dino"
)

type probeTransport struct {
	inputs   []dino.InputKey
	queries  int
	torndown bool
}

func (p *probeTransport) StartOrResume(context.Context) error { return nil }

func (p *probeTransport) QueryState(context.Context) (*dino.RawTelemetry, error) {
	p.queries++
	if p.queries == 1 {
		return nil, nil
	}
	return &dino.RawTelemetry{
		Status:   "RUNNING",
		Distance: "12",
		Speed:    6.0,
		Obstacles: []dino.RawObstacle{
			{X: 200.0, Y: 105.0, Width: 17.0, Height: 35.0},
		},
	}, nil
}

func (p *probeTransport) SendInput(_ context.Context, key dino.InputKey, _ time.Duration) error {
	p.inputs = append(p.inputs, key)
	return nil
}

func (p *probeTransport) Teardown() error {
	p.torndown = true
	return nil
}

func fastConfig() *dino.Config {
	return &dino.Config{ReadyInterval: time.Millisecond, StepDelay: time.Millisecond, HoldDuration: time.Millisecond}
}

func TestProbePrintsState(t *testing.T) {
	fake := &probeTransport{}
	factory := func(context.Context) (dino.Transport, error) { return fake, nil }

	out := &bytes.Buffer{}
	require.NoError(t, probe(context.Background(), factory, fastConfig(), out))

	assert.Contains(t, out.String(), "raw telemetry")
	assert.Contains(t, out.String(), "RUNNING")
	assert.Equal(t, []dino.InputKey{dino.KeySpace}, fake.inputs)
	assert.True(t, fake.torndown)
}

func TestProbeTransportUnavailable(t *testing.T) {
	factory := func(context.Context) (dino.Transport, error) { return nil, errors.New("no chrome") }

	err := probe(context.Background(), factory, fastConfig(), &bytes.Buffer{})
	require.Error(t, err)
	assert.True(t, errors.Is(err, dino.ErrTransportUnavailable))
}

func TestRewardConfigOverrides(t *testing.T) {
	flags := pflag.NewFlagSet("run", pflag.ContinueOnError)
	flags.Float64Var(&crashPenalty, "crash-penalty", 0, "")
	flags.Float64Var(&illegalPenalty, "illegal-penalty", 0, "")
	flags.Float64Var(&survival, "survival", 0, "")
	flags.Float64Var(&progressScale, "progress-scale", 0, "")
	rewardPreset = dino.RewardPresetProgress
	require.NoError(t, flags.Parse([]string{"--crash-penalty=-5", "--survival=0.5"}))

	rc, err := rewardConfig(flags)
	require.NoError(t, err)
	assert.Equal(t, -5.0, rc.CrashPenalty)
	assert.Equal(t, 0.5, rc.Survival)
	assert.Equal(t, -10.0, rc.IllegalPenalty)
	assert.Equal(t, 100.0, rc.ProgressScale)

	rewardPreset = "unknown"
	_, err = rewardConfig(flags)
	assert.Error(t, err)
	rewardPreset = dino.RewardPresetDefault
}

func TestGameStackRejectsUnknownTransport(t *testing.T) {
	_, err := newGameStack(context.Background(), stackConfig{Transport: "carrier-pigeon"})
	assert.Error(t, err)
}

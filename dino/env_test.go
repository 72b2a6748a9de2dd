package dino

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestEnv(t *testing.T, config *Config, factory *fakeFactory) (*Env, *countingObserver) {
	t.Helper()
	obs := newCountingObserver()
	config.Observer = obs
	env, err := NewEnv(config, factory.factory())
	require.NoError(t, err)
	env.session.sleep = noSleep
	t.Cleanup(func() { env.Close() })
	return env, obs
}

func TestResetReturnsFreshObservation(t *testing.T) {
	factory := &fakeFactory{fallback: running(0)}
	env, _ := newTestEnv(t, &Config{MaxObstacles: 3}, factory)

	obs, info, err := env.Reset(context.Background(), nil)
	require.NoError(t, err)
	assert.Contains(t, []GameStatus{Waiting, Running}, obs.Status)
	assert.Equal(t, 0.0, obs.Distance)
	require.Len(t, obs.Obstacles, 3)
	for _, o := range obs.Obstacles {
		assert.True(t, o.IsZero())
	}
	assert.Equal(t, 0, info["step"])
	assert.Equal(t, 1, info["episode"])
	assert.Equal(t, 0.0, info["best_distance"])
	assert.False(t, info.Bool("forced_reset"))
}

func TestStepJumpWhileRunning(t *testing.T) {
	factory := &fakeFactory{fallback: running(0)}
	env, _ := newTestEnv(t, &Config{MaxObstacles: 3}, factory)
	ctx := context.Background()

	_, _, err := env.Reset(ctx, nil)
	require.NoError(t, err)
	f := factory.last()
	inputsAfterReset := len(f.sentInputs())

	f.push(running(0), running(5))
	res, err := env.Step(ctx, Jump)
	require.NoError(t, err)

	assert.True(t, res.Info.Bool("action_performed"))
	assert.True(t, res.Info.Bool("action_legal"))
	assert.False(t, res.Terminated)
	assert.False(t, res.Truncated)
	assert.InDelta(t, 0.1+1.0*5, res.Reward, 1e-9)
	assert.Equal(t, 1, res.Info["step"])
	assert.Equal(t, 5.0, res.Info.Float("distance"))

	inputs := f.sentInputs()
	require.Len(t, inputs, inputsAfterReset+1)
	assert.Equal(t, KeyArrowUp, inputs[len(inputs)-1])
}

func TestStepOnCrashTerminates(t *testing.T) {
	factory := &fakeFactory{fallback: running(0)}
	env, obs := newTestEnv(t, &Config{}, factory)
	ctx := context.Background()

	_, _, err := env.Reset(ctx, nil)
	require.NoError(t, err)
	f := factory.last()
	inputsAfterReset := len(f.sentInputs())

	f.push(telemetry("CRASHED", 37.0))
	res, err := env.Step(ctx, Jump)
	require.NoError(t, err)

	assert.True(t, res.Terminated)
	assert.Equal(t, -100.0, res.Reward)
	assert.False(t, res.Info.Bool("action_performed"))
	assert.Len(t, f.sentInputs(), inputsAfterReset)

	require.Len(t, obs.episodes, 1)
	assert.True(t, obs.episodes[0].Crashed)
	assert.Equal(t, "crashed", obs.episodes[0].Outcome())
	assert.Equal(t, 37.0, obs.episodes[0].Distance)
}

func TestIllegalActionPenalized(t *testing.T) {
	factory := &fakeFactory{fallback: running(0)}
	env, obs := newTestEnv(t, &Config{ActionSpace: ActionSpaceExtended}, factory)
	ctx := context.Background()

	_, _, err := env.Reset(ctx, nil)
	require.NoError(t, err)
	f := factory.last()
	before := len(f.sentInputs())

	f.push(telemetry("JUMPING", 3.0), telemetry("JUMPING", 4.0))
	res, err := env.Step(ctx, Duck)
	require.NoError(t, err)
	assert.Equal(t, -10.0, res.Reward)
	assert.False(t, res.Terminated)
	assert.False(t, res.Info.Bool("action_legal"))
	assert.Len(t, f.sentInputs(), before)
	assert.Equal(t, 1, obs.illegal)
}

func TestStepAfterTerminationAutoResets(t *testing.T) {
	factory := &fakeFactory{fallback: running(0)}
	env, _ := newTestEnv(t, &Config{}, factory)
	ctx := context.Background()

	res, err := env.Step(ctx, Jump)
	require.NoError(t, err)
	assert.True(t, res.Info.Bool("auto_reset"))
	assert.Equal(t, 1, res.Info["episode"])

	factory.last().push(telemetry("CRASHED", 1.0))
	res, err = env.Step(ctx, Run)
	require.NoError(t, err)
	require.True(t, res.Terminated)

	res, err = env.Step(ctx, Run)
	require.NoError(t, err)
	assert.True(t, res.Info.Bool("auto_reset"))
	assert.Equal(t, 2, res.Info["episode"])
	assert.Equal(t, 0, res.Info["step"])
	assert.Equal(t, 0.0, res.Reward)
}

func TestTruncationAtMaxSteps(t *testing.T) {
	factory := &fakeFactory{fallback: running(0)}
	env, obs := newTestEnv(t, &Config{MaxStepsPerEpisode: 2}, factory)
	ctx := context.Background()

	_, _, err := env.Reset(ctx, nil)
	require.NoError(t, err)

	res, err := env.Step(ctx, Run)
	require.NoError(t, err)
	assert.False(t, res.Truncated)

	res, err = env.Step(ctx, Run)
	require.NoError(t, err)
	assert.True(t, res.Truncated)
	assert.False(t, res.Terminated)
	require.Len(t, obs.episodes, 1)
	assert.Equal(t, "truncated", obs.episodes[0].Outcome())
}

func TestResetAfterTruncationCountsFromZero(t *testing.T) {
	factory := &fakeFactory{fallback: running(0)}
	env, obs := newTestEnv(t, &Config{MaxStepsPerEpisode: 1}, factory)
	ctx := context.Background()

	_, _, err := env.Reset(ctx, nil)
	require.NoError(t, err)
	f := factory.last()
	f.setFallback(running(400))

	res, err := env.Step(ctx, Run)
	require.NoError(t, err)
	require.True(t, res.Truncated)
	assert.Equal(t, 400.0, res.Observation.Distance)

	// the run is still alive, so the next episode continues on it
	first, info, err := env.Reset(ctx, nil)
	require.NoError(t, err)
	assert.Equal(t, 1, factory.count())
	assert.Equal(t, 0.0, first.Distance)
	assert.Equal(t, 0.0, info.Float("distance"))

	f.setFallback(running(412))
	res, err = env.Step(ctx, Run)
	require.NoError(t, err)
	assert.Equal(t, 12.0, res.Observation.Distance)
	assert.Equal(t, 12.0, res.Info.Float("distance"))
	assert.Equal(t, 400.0, res.Info.Float("best_distance"))

	require.Len(t, obs.episodes, 2)
	assert.Equal(t, 400.0, obs.episodes[0].Distance)
	assert.Equal(t, 12.0, obs.episodes[1].Distance)
}

func TestDistanceFollowsRestartedRun(t *testing.T) {
	factory := &fakeFactory{fallback: running(0)}
	env, _ := newTestEnv(t, &Config{MaxStepsPerEpisode: 1}, factory)
	ctx := context.Background()

	_, _, err := env.Reset(ctx, nil)
	require.NoError(t, err)
	f := factory.last()
	f.setFallback(running(300))
	_, err = env.Step(ctx, Run)
	require.NoError(t, err)

	_, _, err = env.Reset(ctx, nil)
	require.NoError(t, err)
	// the game started a new run below the old distance
	f.setFallback(running(20))
	res, err := env.Step(ctx, Run)
	require.NoError(t, err)
	assert.Equal(t, 20.0, res.Observation.Distance)
}

func TestResetMidEpisodeEmitsSummary(t *testing.T) {
	factory := &fakeFactory{fallback: running(0)}
	env, obs := newTestEnv(t, &Config{}, factory)
	ctx := context.Background()

	_, _, err := env.Reset(ctx, nil)
	require.NoError(t, err)
	_, _, err = env.Reset(ctx, nil)
	require.NoError(t, err)
	assert.Empty(t, obs.episodes)

	factory.last().setFallback(running(30))
	for i := 0; i < 2; i++ {
		_, err := env.Step(ctx, Run)
		require.NoError(t, err)
	}
	_, _, err = env.Reset(ctx, nil)
	require.NoError(t, err)

	require.Len(t, obs.episodes, 1)
	summary := obs.episodes[0]
	assert.Equal(t, 2, summary.Episode)
	assert.Equal(t, 2, summary.Steps)
	assert.Equal(t, 30.0, summary.Distance)
	assert.True(t, summary.Truncated)
	assert.False(t, summary.Crashed)
	assert.False(t, summary.ForcedReset)
}

func TestBestDistanceIsMonotonic(t *testing.T) {
	factory := &fakeFactory{fallback: running(0)}
	env, _ := newTestEnv(t, &Config{}, factory)
	ctx := context.Background()

	_, _, err := env.Reset(ctx, nil)
	require.NoError(t, err)
	f := factory.last()
	f.push(running(10), running(30), running(30), telemetry("CRASHED", 25.0))

	res, _ := env.Step(ctx, Run)
	assert.Equal(t, 30.0, res.Info.Float("best_distance"))
	res, _ = env.Step(ctx, Run)
	assert.True(t, res.Terminated)
	assert.Equal(t, 30.0, res.Info.Float("best_distance"))

	_, info, err := env.Reset(ctx, nil)
	require.NoError(t, err)
	assert.Equal(t, 30.0, info.Float("best_distance"))
	assert.Equal(t, 30.0, env.BestDistance())
}

func TestStaleSessionForcesReset(t *testing.T) {
	factory := &fakeFactory{fallback: running(0)}
	env, obs := newTestEnv(t, &Config{RetryBudget: 2}, factory)
	ctx := context.Background()

	_, _, err := env.Reset(ctx, nil)
	require.NoError(t, err)
	stale := factory.last()
	stale.setFallback(nil)

	res, err := env.Step(ctx, Jump)
	require.NoError(t, err)
	assert.True(t, res.Info.Bool("forced_reset"))
	assert.True(t, res.Truncated)
	assert.False(t, res.Terminated)
	assert.Equal(t, 0.0, res.Reward)
	assert.Equal(t, 2, res.Info["episode"])
	assert.Equal(t, 0, res.Info["step"])

	assert.Equal(t, 2, factory.count())
	assert.Equal(t, 1, stale.teardowns)
	assert.Equal(t, 1, obs.forcedResets)
	assert.Equal(t, 1, obs.restarts[RestartStale])
	require.Len(t, obs.episodes, 1)
	assert.True(t, obs.episodes[0].ForcedReset)

	res, err = env.Step(ctx, Run)
	require.NoError(t, err)
	assert.False(t, res.Info.Bool("forced_reset"))
	assert.Equal(t, 1, res.Info["step"])
}

func TestTransportUnavailableIsRaised(t *testing.T) {
	factory := &fakeFactory{err: errNoBrowser}
	env, _ := newTestEnv(t, &Config{StartAttempts: 2}, factory)

	_, _, err := env.Reset(context.Background(), nil)
	require.Error(t, err)
	assert.True(t, IsTransportUnavailable(err))
	assert.ErrorIs(t, err, ErrTransportUnavailable)
}

func TestForcedResetWithoutInfrastructureRaises(t *testing.T) {
	factory := &fakeFactory{fallback: running(0)}
	env, _ := newTestEnv(t, &Config{RetryBudget: 1, StartAttempts: 1, ReadyAttempts: 2}, factory)
	ctx := context.Background()

	_, _, err := env.Reset(ctx, nil)
	require.NoError(t, err)
	factory.last().setFallback(nil)
	factory.fallback = nil

	_, err = env.Step(ctx, Run)
	require.Error(t, err)
	assert.True(t, IsTransportUnavailable(err))
}

func TestCloseIsIdempotent(t *testing.T) {
	factory := &fakeFactory{fallback: running(0)}
	env, _ := newTestEnv(t, &Config{}, factory)
	ctx := context.Background()

	_, _, err := env.Reset(ctx, nil)
	require.NoError(t, err)

	assert.NoError(t, env.Close())
	assert.NoError(t, env.Close())
	assert.Equal(t, 1, factory.last().teardowns)

	_, err = env.Step(ctx, Run)
	assert.ErrorIs(t, err, ErrClosed)
	_, _, err = env.Reset(ctx, nil)
	assert.ErrorIs(t, err, ErrClosed)
}

func TestSeedIsReported(t *testing.T) {
	factory := &fakeFactory{fallback: running(0)}
	env, _ := newTestEnv(t, &Config{}, factory)
	seed := int64(7)
	_, info, err := env.Reset(context.Background(), &seed)
	require.NoError(t, err)
	assert.Equal(t, int64(7), info["seed"])
}

func TestInvalidConfig(t *testing.T) {
	_, err := NewEnv(&Config{MaxObstacles: -1}, (&fakeFactory{}).factory())
	assert.Error(t, err)
	_, err = NewEnv(&Config{ActionSpace: "huge"}, (&fakeFactory{}).factory())
	assert.Error(t, err)
	_, err = NewEnv(&Config{RewardPreset: "nope"}, (&fakeFactory{}).factory())
	assert.Error(t, err)
}

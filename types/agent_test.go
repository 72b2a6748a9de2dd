package types

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/zeu5/dino-rl/dino"
)

func TestAgentRunEpisodeStopsOnCrash(t *testing.T) {
	env := &scriptedEnv{crashAfter: 3}
	policy := &fixedPolicy{action: dino.Run}
	agent := NewAgent(&AgentConfig{Horizon: 10, Policy: policy, Environment: env})

	eCtx := NewEpisodeContext(context.Background(), 0, "test", 0)
	defer eCtx.Cancel()
	agent.RunEpisode(eCtx)

	require.NoError(t, eCtx.Err)
	assert.True(t, eCtx.Crashed)
	assert.False(t, eCtx.Truncated)
	assert.Equal(t, 3, eCtx.Timesteps)
	assert.Equal(t, 3, eCtx.Trace.Len())
	assert.Equal(t, 3, policy.updates)
	assert.Equal(t, 1, policy.iterations)

	last, ok := eCtx.Trace.Last()
	require.True(t, ok)
	assert.True(t, last.Terminated)
	assert.Equal(t, 30.0, eCtx.Trace.Distance())
	assert.InDelta(t, -99.8, eCtx.Trace.TotalReward(), 1e-9)
}

func TestAgentRunEpisodeHorizon(t *testing.T) {
	env := &scriptedEnv{}
	agent := NewAgent(&AgentConfig{Horizon: 5, Policy: &fixedPolicy{action: dino.Jump}, Environment: env})

	eCtx := NewEpisodeContext(context.Background(), 0, "test", 0)
	defer eCtx.Cancel()
	agent.RunEpisode(eCtx)

	assert.False(t, eCtx.Crashed)
	assert.Equal(t, 5, eCtx.Trace.Len())
	assert.Equal(t, 0, eCtx.Trace.IllegalActions())
}

func TestAgentRunEpisodeCountsIllegalActions(t *testing.T) {
	env := &scriptedEnv{}
	agent := NewAgent(&AgentConfig{Horizon: 4, Policy: &fixedPolicy{action: dino.Duck}, Environment: env})

	eCtx := NewEpisodeContext(context.Background(), 0, "test", 0)
	defer eCtx.Cancel()
	agent.RunEpisode(eCtx)

	assert.Equal(t, 4, eCtx.Trace.IllegalActions())
	assert.Len(t, eCtx.Report.IntValues["illegal_action"], 4)
}

func TestAgentRunEpisodeResetError(t *testing.T) {
	env := &scriptedEnv{resetErr: errors.New("no browser")}
	agent := NewAgent(&AgentConfig{Horizon: 4, Policy: &fixedPolicy{}, Environment: env})

	eCtx := NewEpisodeContext(context.Background(), 0, "test", 0)
	defer eCtx.Cancel()
	agent.RunEpisode(eCtx)

	assert.Error(t, eCtx.Err)
	assert.False(t, eCtx.Valid())
	assert.Equal(t, 0, eCtx.Trace.Len())
}

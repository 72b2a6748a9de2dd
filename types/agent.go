package types

import (
	"time"
)

type AgentConfig struct {
	Episodes    int
	Horizon     int
	Seed        *int64
	Policy      Policy
	Environment Environment
}

// RL Agent configured with the corresponding
// policy and environment
type Agent struct {
	config      *AgentConfig
	policy      Policy
	environment Environment
}

// Instantiates a new Agent
func NewAgent(config *AgentConfig) *Agent {
	return &Agent{
		config:      config,
		policy:      config.Policy,
		environment: config.Environment,
	}
}

// RunEpisode runs a single episode, storing the trace and outcome in the episode context
func (a *Agent) RunEpisode(eCtx *EpisodeContext) {
	ctx := eCtx.Context
	start := time.Now()
	obs, _, err := a.environment.Reset(ctx, a.config.Seed)
	eCtx.Report.AddTimeEntry(time.Since(start), "reset_time", "agent.RunEpisode")
	if err != nil {
		eCtx.SetError(err)
		return
	}
	actions := a.environment.ActionSpace()

	for i := 0; i < a.config.Horizon; i++ {
		select {
		case <-ctx.Done():
			return
		default:
		}
		eCtx.Report.setEpisodeStep(i)

		action, ok := a.policy.NextAction(i, obs, actions)
		if !ok {
			break
		}
		start = time.Now()
		res, err := a.environment.Step(ctx, action)
		eCtx.Report.AddTimeEntry(time.Since(start), "step_time", "agent.RunEpisode")
		if err != nil {
			eCtx.SetError(err)
			return
		}

		step := &Step{
			Observation: obs,
			Action:      action,
			Reward:      res.Reward,
			Next:        res.Observation,
			Terminated:  res.Terminated,
			Truncated:   res.Truncated,
			Info:        res.Info,
		}
		a.policy.Update(i, step)
		eCtx.Trace.Append(step)
		eCtx.Timesteps++
		if !step.Legal() {
			eCtx.Report.AddIntEntry(int(action), "illegal_action", "agent.RunEpisode")
		}

		if res.Info.Bool("forced_reset") {
			eCtx.ForcedReset = true
			break
		}
		if res.Terminated {
			eCtx.Crashed = true
			break
		}
		if res.Truncated {
			eCtx.Truncated = true
			break
		}
		obs = res.Observation
	}
	a.policy.UpdateIteration(eCtx.Episode, eCtx.Trace)
}

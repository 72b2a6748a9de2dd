package dino

import (
	"context"
	"time"

	"github.com/go-kit/log"
	"github.com/go-kit/log/level"
	"github.com/pkg/errors"
)

// Info carries diagnostics alongside every Reset and Step
type Info map[string]interface{}

func (i Info) Bool(key string) bool {
	b, _ := i[key].(bool)
	return b
}

func (i Info) Float(key string) float64 {
	f, _ := i[key].(float64)
	return f
}

type StepResult struct {
	Observation *Observation
	Reward      float64
	Terminated  bool
	Truncated   bool
	Info        Info
}

type phase int

const (
	phaseUninitialized phase = iota
	phaseReady
	phaseTerminated
)

// Env is the reset/step decision process over a single game session.
//
// Step after an episode has ended, or before the first Reset, resets the
// environment and returns the new first observation with info["auto_reset"]
// set; the action is ignored. Only TransportUnavailable errors, ErrClosed and
// context errors are returned. Every other failure ends up as a normal result.
type Env struct {
	config   *Config
	session  *Session
	reward   RewardConfig
	actions  ActionSpace
	logger   log.Logger
	observer Observer
	phase    phase
	seed     *int64
	closed   bool

	episode        int
	step           int
	last           *Observation
	baseline       float64
	bestDistance   float64
	totalReward    float64
	illegalActions int
}

func NewEnv(config *Config, factory TransportFactory) (*Env, error) {
	config.SetDefaults()
	if err := config.Validate(); err != nil {
		return nil, errors.Wrap(err, "invalid config")
	}
	reward, err := config.RewardConfig()
	if err != nil {
		return nil, err
	}
	actions, err := NewActionSpace(config.ActionSpace)
	if err != nil {
		return nil, err
	}
	session, err := NewSession(config, factory)
	if err != nil {
		return nil, err
	}
	return &Env{
		config:   config,
		session:  session,
		reward:   reward,
		actions:  actions,
		logger:   log.With(config.Logger, "component", "env"),
		observer: config.Observer,
	}, nil
}

func (e *Env) ActionSpace() ActionSpace {
	return e.actions
}

func (e *Env) Config() *Config {
	return e.config
}

func (e *Env) BestDistance() float64 {
	return e.bestDistance
}

// Reset starts a new episode and returns its first observation
func (e *Env) Reset(ctx context.Context, seed *int64) (*Observation, Info, error) {
	if e.closed {
		return nil, nil, ErrClosed
	}
	if seed != nil {
		s := *seed
		e.seed = &s
	}
	if e.phase == phaseReady && e.step > 0 {
		e.phase = phaseTerminated
		e.endEpisode(false, true, false)
	}
	if err := e.session.BeginEpisode(ctx); err != nil {
		return nil, nil, err
	}
	obs, err := e.startEpisode(ctx)
	if err != nil {
		return nil, nil, err
	}
	return obs, e.info(nil), nil
}

func (e *Env) startEpisode(ctx context.Context) (*Observation, error) {
	obs, err := e.session.GetStateWithRetry(ctx)
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		e.phase = phaseUninitialized
		return nil, newError(KindTransportUnavailable, "reset", err)
	}
	e.session.episodeStarted()
	e.episode++
	e.step = 0
	e.totalReward = 0
	e.illegalActions = 0
	// a run left alive by truncation keeps going, so distance is counted from here
	e.baseline = obs.Distance
	e.rebase(obs)
	e.last = obs
	e.phase = phaseReady
	e.observeDistance(obs.Distance)
	return obs.Copy(), nil
}

// Step performs action and advances the episode by one decision
func (e *Env) Step(ctx context.Context, action ActionCode) (*StepResult, error) {
	if e.closed {
		return nil, ErrClosed
	}
	if e.phase != phaseReady {
		obs, info, err := e.Reset(ctx, e.seed)
		if err != nil {
			return nil, err
		}
		info["auto_reset"] = true
		return &StepResult{Observation: obs, Info: info}, nil
	}

	current, err := e.session.GetStateWithRetry(ctx)
	if err != nil {
		return e.forceReset(ctx, err)
	}
	e.rebase(current)

	var res DispatchResult
	next := current
	if current.Status != Crashed {
		res = e.session.Dispatch(ctx, action, current.Status)
		if err := e.session.sleep(ctx, e.config.StepDelay); err != nil {
			return nil, err
		}
		next, err = e.session.GetStateWithRetry(ctx)
		if err != nil {
			return e.forceReset(ctx, err)
		}
		e.rebase(next)
	}
	if !res.Legal && current.Status != Crashed {
		e.illegalActions++
		e.observer.OnIllegalAction(action, current.Status)
		level.Debug(e.logger).Log("msg", "illegal action", "action", action, "status", current.Status)
	}

	reward, terminated := e.reward.Evaluate(e.last, next, res.Performed, res.Legal)
	e.step++
	truncated := !terminated && e.step >= e.config.MaxStepsPerEpisode

	e.last = next
	e.totalReward += reward
	e.observeDistance(next.Distance)

	if terminated || truncated {
		e.phase = phaseTerminated
		e.endEpisode(terminated, truncated, false)
	}

	info := e.info(Info{
		"action_performed": res.Performed,
		"action_legal":     res.Legal,
	})
	return &StepResult{
		Observation: next.Copy(),
		Reward:      reward,
		Terminated:  terminated,
		Truncated:   truncated,
		Info:        info,
	}, nil
}

// forceReset replaces a stale session and starts a new episode on it. The
// result is reported as a truncation of the old episode.
func (e *Env) forceReset(ctx context.Context, cause error) (*StepResult, error) {
	if ctx.Err() != nil {
		return nil, ctx.Err()
	}
	level.Warn(e.logger).Log("msg", "session stale, forcing reset", "episode", e.episode, "step", e.step, "err", cause)
	e.observer.OnForcedReset()
	e.endEpisode(false, true, true)
	e.phase = phaseTerminated

	if err := e.session.Restart(ctx, RestartStale); err != nil {
		return nil, err
	}
	obs, err := e.startEpisode(ctx)
	if err != nil {
		return nil, err
	}
	info := e.info(Info{
		"forced_reset":     true,
		"action_performed": false,
		"action_legal":     false,
	})
	return &StepResult{
		Observation: obs,
		Reward:      0,
		Terminated:  false,
		Truncated:   true,
		Info:        info,
	}, nil
}

func (e *Env) endEpisode(crashed, truncated, forced bool) {
	distance := 0.0
	if e.last != nil {
		distance = e.last.Distance
	}
	e.observer.OnEpisodeEnd(EpisodeSummary{
		SessionID:      e.session.ID(),
		Episode:        e.episode,
		Steps:          e.step,
		Distance:       distance,
		BestDistance:   e.bestDistance,
		TotalReward:    e.totalReward,
		IllegalActions: e.illegalActions,
		Crashed:        crashed,
		Truncated:      truncated,
		ForcedReset:    forced,
		EndedAt:        time.Now(),
	})
}

// rebase makes obs.Distance relative to the start of the episode. A raw
// distance below the baseline means the game restarted the run.
func (e *Env) rebase(obs *Observation) {
	if obs.Distance < e.baseline {
		e.baseline = 0
	}
	obs.Distance -= e.baseline
}

func (e *Env) observeDistance(d float64) {
	if d > e.bestDistance {
		e.bestDistance = d
	}
}

func (e *Env) info(extra Info) Info {
	distance := 0.0
	if e.last != nil {
		distance = e.last.Distance
	}
	info := Info{
		"distance":      distance,
		"best_distance": e.bestDistance,
		"step":          e.step,
		"episode":       e.episode,
		"session_id":    e.session.ID(),
		"restarts":      e.session.Restarts(),
		"forced_reset":  false,
		"auto_reset":    false,
	}
	if e.seed != nil {
		info["seed"] = *e.seed
	}
	for k, v := range extra {
		info[k] = v
	}
	return info
}

// Close releases the session. Calling it again has no effect.
func (e *Env) Close() error {
	if e.closed {
		return nil
	}
	e.closed = true
	return e.session.Close()
}

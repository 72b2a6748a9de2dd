package dino

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/go-kit/log"
	"github.com/pkg/errors"
)

// Config of the environment. Zero values are replaced by the defaults in SetDefaults.
type Config struct {
	MaxStepsPerEpisode int
	// always at least one slot once defaults are applied
	MaxObstacles int
	// a negative value turns periodic restarts off
	RestartEveryNEpisodes int
	RetryBudget           int
	RetryDelay            time.Duration
	// bounded wait-poll used by readiness checks and the start handshake
	ReadyAttempts int
	ReadyInterval time.Duration
	// number of times a restart tries to create a working transport
	StartAttempts int
	// timeout for every call crossing into the transport worker
	CallTimeout  time.Duration
	StepDelay    time.Duration
	HoldDuration time.Duration

	ActionSpace  string
	RewardPreset string
	// Reward overrides RewardPreset when set
	Reward *RewardConfig

	// Headless is read by transports that render the page
	Headless bool
	// Verbose only affects logging
	Verbose bool

	Logger   log.Logger `json:"-"`
	Observer Observer   `json:"-"`
}

func (c *Config) SetDefaults() {
	if c.MaxStepsPerEpisode == 0 {
		c.MaxStepsPerEpisode = 1000
	}
	if c.MaxObstacles == 0 {
		c.MaxObstacles = 3
	}
	if c.RestartEveryNEpisodes == 0 {
		c.RestartEveryNEpisodes = 100
	}
	if c.RetryBudget == 0 {
		c.RetryBudget = 5
	}
	if c.RetryDelay == 0 {
		c.RetryDelay = 100 * time.Millisecond
	}
	if c.ReadyAttempts == 0 {
		c.ReadyAttempts = 20
	}
	if c.ReadyInterval == 0 {
		c.ReadyInterval = 100 * time.Millisecond
	}
	if c.StartAttempts == 0 {
		c.StartAttempts = 3
	}
	if c.CallTimeout == 0 {
		c.CallTimeout = 5 * time.Second
	}
	if c.StepDelay == 0 {
		c.StepDelay = 50 * time.Millisecond
	}
	if c.HoldDuration == 0 {
		c.HoldDuration = 80 * time.Millisecond
	}
	if c.ActionSpace == "" {
		c.ActionSpace = ActionSpaceBasic
	}
	if c.RewardPreset == "" {
		c.RewardPreset = RewardPresetDefault
	}
	if c.Logger == nil {
		c.Logger = log.NewNopLogger()
	}
	if c.Observer == nil {
		c.Observer = NopObserver{}
	}
}

func (c *Config) Validate() error {
	ints := []struct {
		name string
		v    int
	}{
		{"max_steps_per_episode", c.MaxStepsPerEpisode},
		{"max_obstacles", c.MaxObstacles},
		{"retry_budget", c.RetryBudget},
		{"ready_attempts", c.ReadyAttempts},
		{"start_attempts", c.StartAttempts},
	}
	for _, i := range ints {
		if i.v < 0 {
			return fmt.Errorf("%s must not be negative, got %d", i.name, i.v)
		}
	}
	durations := []struct {
		name string
		v    time.Duration
	}{
		{"retry_delay", c.RetryDelay},
		{"ready_interval", c.ReadyInterval},
		{"call_timeout", c.CallTimeout},
		{"step_delay", c.StepDelay},
		{"hold_duration", c.HoldDuration},
	}
	for _, d := range durations {
		if d.v < 0 {
			return fmt.Errorf("%s must not be negative, got %s", d.name, d.v)
		}
	}
	if _, err := NewActionSpace(c.ActionSpace); err != nil {
		return err
	}
	reward, err := c.RewardConfig()
	if err != nil {
		return err
	}
	return errors.Wrap(reward.Validate(), "invalid reward config")
}

// RewardConfig resolves the reward weights in effect
func (c *Config) RewardConfig() (RewardConfig, error) {
	if c.Reward != nil {
		return *c.Reward, nil
	}
	return RewardPreset(c.RewardPreset)
}

func (c *Config) Copy() *Config {
	n := *c
	if c.Reward != nil {
		r := *c.Reward
		n.Reward = &r
	}
	return &n
}

// Printable returns a map of the configuration for recording
func (c *Config) Printable() map[string]interface{} {
	out := map[string]interface{}{
		"max_steps_per_episode":    c.MaxStepsPerEpisode,
		"max_obstacles":            c.MaxObstacles,
		"restart_every_n_episodes": c.RestartEveryNEpisodes,
		"retry_budget":             c.RetryBudget,
		"retry_delay":              c.RetryDelay.String(),
		"ready_attempts":           c.ReadyAttempts,
		"ready_interval":           c.ReadyInterval.String(),
		"start_attempts":           c.StartAttempts,
		"call_timeout":             c.CallTimeout.String(),
		"step_delay":               c.StepDelay.String(),
		"hold_duration":            c.HoldDuration.String(),
		"action_space":             c.ActionSpace,
		"reward_preset":            c.RewardPreset,
		"headless":                 c.Headless,
		"verbose":                  c.Verbose,
	}
	if reward, err := c.RewardConfig(); err == nil {
		out["reward"] = reward
	}
	return out
}

func (c *Config) String() string {
	bs, _ := json.Marshal(c.Printable())
	return string(bs)
}

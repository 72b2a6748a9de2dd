package dino

import (
	"fmt"
	"math"
	"sort"
)

// RewardConfig weights the terms of the reward function
type RewardConfig struct {
	// Returned alone whenever the current status is Crashed
	CrashPenalty float64 `json:"crash_penalty"`
	// Returned alone for illegal actions
	IllegalPenalty float64 `json:"illegal_penalty"`

	Survival          float64 `json:"survival"`
	ProgressScale     float64 `json:"progress_scale"`
	NonRunningPenalty float64 `json:"non_running_penalty"`
	SpeedBonus        float64 `json:"speed_bonus"`

	// gap shaping on the nearest obstacle ahead
	GapBonus        float64 `json:"gap_bonus"`
	GapBonusMin     float64 `json:"gap_bonus_min"`
	GapBonusMax     float64 `json:"gap_bonus_max"`
	GapPenalty      float64 `json:"gap_penalty"`
	GapPenaltyBelow float64 `json:"gap_penalty_below"`
}

const (
	RewardPresetDefault  = "default"
	RewardPresetProgress = "progress"
	RewardPresetShaped   = "shaped"
)

var rewardPresets = map[string]RewardConfig{
	RewardPresetDefault: {
		CrashPenalty:   -100,
		IllegalPenalty: -10,
		Survival:       0.1,
		ProgressScale:  1.0,
	},
	RewardPresetProgress: {
		CrashPenalty:   -50,
		IllegalPenalty: -10,
		ProgressScale:  100,
	},
	RewardPresetShaped: {
		CrashPenalty:    -100,
		IllegalPenalty:  -10,
		Survival:        1.0,
		SpeedBonus:      0.1,
		GapBonus:        2,
		GapBonusMin:     100,
		GapBonusMax:     200,
		GapPenalty:      1,
		GapPenaltyBelow: 50,
	},
}

// RewardPreset returns a copy of the named preset
func RewardPreset(name string) (RewardConfig, error) {
	if name == "" {
		name = RewardPresetDefault
	}
	c, ok := rewardPresets[name]
	if !ok {
		return RewardConfig{}, fmt.Errorf("unknown reward preset %q", name)
	}
	return c, nil
}

func RewardPresetNames() []string {
	names := make([]string, 0, len(rewardPresets))
	for n := range rewardPresets {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

func (c RewardConfig) Validate() error {
	fields := map[string]float64{
		"crash_penalty":       c.CrashPenalty,
		"illegal_penalty":     c.IllegalPenalty,
		"survival":            c.Survival,
		"progress_scale":      c.ProgressScale,
		"non_running_penalty": c.NonRunningPenalty,
		"speed_bonus":         c.SpeedBonus,
		"gap_bonus":           c.GapBonus,
		"gap_bonus_min":       c.GapBonusMin,
		"gap_bonus_max":       c.GapBonusMax,
		"gap_penalty":         c.GapPenalty,
		"gap_penalty_below":   c.GapPenaltyBelow,
	}
	for name, v := range fields {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return fmt.Errorf("reward %s is not finite", name)
		}
	}
	if c.Survival < 0 {
		return fmt.Errorf("reward survival must be >= 0, got %v", c.Survival)
	}
	if c.GapBonusMax < c.GapBonusMin {
		return fmt.Errorf("reward gap window [%v, %v] is empty", c.GapBonusMin, c.GapBonusMax)
	}
	return nil
}

// Evaluate computes the reward for a transition and whether it ended the episode.
// previous may be nil at the start of an episode, in which case progress is 0.
func (c RewardConfig) Evaluate(previous, current *Observation, performed, legal bool) (float64, bool) {
	if current.Status == Crashed {
		return c.CrashPenalty, true
	}
	if !legal {
		return c.IllegalPenalty, false
	}

	reward := c.Survival
	if previous != nil {
		reward += c.ProgressScale * (current.Distance - previous.Distance)
	}
	if current.Status != Running {
		reward -= c.NonRunningPenalty
	}
	reward += c.SpeedBonus * current.Speed

	if n, ok := current.Nearest(); ok {
		if c.GapBonus != 0 && n.X >= c.GapBonusMin && n.X <= c.GapBonusMax {
			reward += c.GapBonus
		}
		if c.GapPenalty != 0 && n.X < c.GapPenaltyBelow {
			reward -= c.GapPenalty
		}
	}

	if math.IsNaN(reward) || math.IsInf(reward, 0) {
		return 0, false
	}
	return reward, false
}

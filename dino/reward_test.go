package dino

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func obsAt(status GameStatus, distance float64) *Observation {
	return &Observation{Status: status, Distance: distance, Obstacles: make([]ObstacleFeature, 3)}
}

func TestCrashDominates(t *testing.T) {
	for _, name := range RewardPresetNames() {
		c, err := RewardPreset(name)
		require.NoError(t, err)
		for _, prev := range []float64{0, 10, 1e6} {
			for _, cur := range []float64{0, 5, 1e6} {
				for _, legal := range []bool{true, false} {
					r, term := c.Evaluate(obsAt(Running, prev), obsAt(Crashed, cur), legal, legal)
					assert.True(t, term)
					assert.Equal(t, c.CrashPenalty, r, "preset %s", name)
				}
			}
		}
	}
}

func TestIllegalPenalty(t *testing.T) {
	c, _ := RewardPreset(RewardPresetDefault)
	r, term := c.Evaluate(obsAt(Running, 0), obsAt(Running, 50), false, false)
	assert.False(t, term)
	assert.Equal(t, -10.0, r)
}

func TestDefaultRewardFormula(t *testing.T) {
	c, _ := RewardPreset(RewardPresetDefault)
	r, term := c.Evaluate(obsAt(Running, 10), obsAt(Running, 15), true, true)
	assert.False(t, term)
	assert.InDelta(t, 0.1+5.0, r, 1e-9)

	r, _ = c.Evaluate(nil, obsAt(Running, 15), true, true)
	assert.InDelta(t, 0.1, r, 1e-9)
}

func TestShapedGapTerms(t *testing.T) {
	c, _ := RewardPreset(RewardPresetShaped)
	cur := obsAt(Running, 0)
	cur.Speed = 10
	cur.Obstacles[0] = ObstacleFeature{X: 150, Width: 10, Height: 10}
	r, _ := c.Evaluate(nil, cur, true, true)
	assert.InDelta(t, 1+1+2, r, 1e-9)

	cur.Obstacles[0].X = 20
	r, _ = c.Evaluate(nil, cur, true, true)
	assert.InDelta(t, 1+1-1, r, 1e-9)
}

func TestNonRunningPenalty(t *testing.T) {
	c := RewardConfig{CrashPenalty: -100, IllegalPenalty: -10, Survival: 1, NonRunningPenalty: 0.5}
	r, _ := c.Evaluate(obsAt(Running, 0), obsAt(Jumping, 0), true, true)
	assert.InDelta(t, 0.5, r, 1e-9)
}

func TestRewardValidate(t *testing.T) {
	for _, name := range RewardPresetNames() {
		c, _ := RewardPreset(name)
		assert.NoError(t, c.Validate(), name)
	}
	c, _ := RewardPreset(RewardPresetDefault)
	c.ProgressScale = math.Inf(1)
	assert.Error(t, c.Validate())

	_, err := RewardPreset("nope")
	assert.Error(t, err)
}

func TestRewardAlwaysFinite(t *testing.T) {
	c, _ := RewardPreset(RewardPresetProgress)
	r, _ := c.Evaluate(obsAt(Running, -math.MaxFloat64), obsAt(Running, math.MaxFloat64), true, true)
	assert.False(t, math.IsInf(r, 0))
	assert.False(t, math.IsNaN(r))
}

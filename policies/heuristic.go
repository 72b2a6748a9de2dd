package policies

import (
	"github.com/zeu5/dino-rl/dino"
	"github.com/zeu5/dino-rl/types"
)

// JumpHeuristic jumps when the nearest obstacle gets closer than a speed
// dependent threshold, and ducks under low flying obstacles when it can.
type JumpHeuristic struct {
	// jump when gap < Base + SpeedFactor*speed
	Base        float64
	SpeedFactor float64
	// obstacles with 0 < y < DuckBelow are ducked instead of jumped
	DuckBelow float64
}

var _ types.Policy = &JumpHeuristic{}

func NewJumpHeuristic() *JumpHeuristic {
	return &JumpHeuristic{
		Base:        40,
		SpeedFactor: 12,
		DuckBelow:   80,
	}
}

func (h *JumpHeuristic) NextAction(_ int, obs *dino.Observation, actions dino.ActionSpace) (dino.ActionCode, bool) {
	if len(actions) == 0 {
		return dino.Run, false
	}
	if obs == nil || obs.Status != dino.Running {
		return dino.Run, true
	}
	nearest, ok := obs.Nearest()
	if !ok || nearest.X >= h.Base+h.SpeedFactor*obs.Speed {
		return dino.Run, true
	}
	if nearest.Y > 0 && nearest.Y < h.DuckBelow && actions.Contains(dino.Duck) {
		return dino.Duck, true
	}
	return dino.Jump, true
}

func (h *JumpHeuristic) UpdateIteration(_ int, _ *types.Trace) {}

func (h *JumpHeuristic) Update(_ int, _ *types.Step) {}

func (h *JumpHeuristic) Reset() {}

func (h *JumpHeuristic) Record(_ string) {}

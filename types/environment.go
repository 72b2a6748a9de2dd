package types

import (
	"context"

	"github.com/zeu5/dino-rl/dino"
)

// Environment is the decision process an agent drives
type Environment interface {
	// Reset called at the start of each episode
	Reset(context.Context, *int64) (*dino.Observation, dino.Info, error)
	// Step with context to cancel it
	Step(context.Context, dino.ActionCode) (*dino.StepResult, error)
	// Actions accepted by Step
	ActionSpace() dino.ActionSpace
}

var _ Environment = &dino.Env{}

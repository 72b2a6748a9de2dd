package types

import (
	"context"
	"sync"

	"github.com/zeu5/dino-rl/dino"
)

// scriptedEnv crashes after crashAfter steps, or blocks in Step when block is set
type scriptedEnv struct {
	mu         sync.Mutex
	crashAfter int
	step       int
	resets     int
	block      bool
	resetErr   error
	inFlight   int
	maxFlight  int
}

var _ Environment = &scriptedEnv{}

func (e *scriptedEnv) obs() *dino.Observation {
	return &dino.Observation{
		Status:    dino.Running,
		Distance:  float64(e.step * 10),
		Speed:     6,
		Obstacles: []dino.ObstacleFeature{{X: float64(300 - e.step*10), Width: 20, Height: 40}},
	}
}

func (e *scriptedEnv) Reset(_ context.Context, _ *int64) (*dino.Observation, dino.Info, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.resetErr != nil {
		return nil, nil, e.resetErr
	}
	e.resets++
	e.step = 0
	return e.obs(), dino.Info{}, nil
}

func (e *scriptedEnv) Step(ctx context.Context, action dino.ActionCode) (*dino.StepResult, error) {
	e.mu.Lock()
	e.inFlight++
	if e.inFlight > e.maxFlight {
		e.maxFlight = e.inFlight
	}
	block := e.block
	e.mu.Unlock()
	defer func() {
		e.mu.Lock()
		e.inFlight--
		e.mu.Unlock()
	}()

	if block {
		<-ctx.Done()
		return nil, ctx.Err()
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	e.step++
	o := e.obs()
	res := &dino.StepResult{
		Observation: o,
		Reward:      0.1,
		Info:        dino.Info{"action_legal": action != dino.Duck, "distance": o.Distance},
	}
	if e.crashAfter > 0 && e.step >= e.crashAfter {
		o.Status = dino.Crashed
		res.Reward = -100
		res.Terminated = true
	}
	return res, nil
}

func (e *scriptedEnv) ActionSpace() dino.ActionSpace {
	return dino.ActionSpace{dino.Run, dino.Jump, dino.Duck}
}

// fixedPolicy always plays the same action
type fixedPolicy struct {
	action     dino.ActionCode
	updates    int
	iterations int
	resets     int
}

var _ Policy = &fixedPolicy{}

func (p *fixedPolicy) UpdateIteration(_ int, _ *Trace) { p.iterations++ }

func (p *fixedPolicy) NextAction(_ int, _ *dino.Observation, _ dino.ActionSpace) (dino.ActionCode, bool) {
	return p.action, true
}

func (p *fixedPolicy) Update(_ int, _ *Step) { p.updates++ }

func (p *fixedPolicy) Reset() {
	p.resets++
}

func (p *fixedPolicy) Record(_ string) {}

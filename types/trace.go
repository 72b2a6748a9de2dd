package types

import "github.com/zeu5/dino-rl/dino"

// Step is one transition of an episode
type Step struct {
	Observation *dino.Observation `json:"observation"`
	Action      dino.ActionCode   `json:"action"`
	Reward      float64           `json:"reward"`
	Next        *dino.Observation `json:"next"`
	Terminated  bool              `json:"terminated"`
	Truncated   bool              `json:"truncated"`
	Info        dino.Info         `json:"info,omitempty"`
}

// Legal reports whether the environment accepted the action. Forced
// resets never got to judge the action and count as legal.
func (s *Step) Legal() bool {
	if s.Info.Bool("forced_reset") {
		return true
	}
	legal, ok := s.Info["action_legal"].(bool)
	return !ok || legal
}

// Trace of an episode as a sequence of steps
type Trace struct {
	Steps []*Step `json:"steps"`
}

func NewTrace() *Trace {
	return &Trace{
		Steps: make([]*Step, 0),
	}
}

func (t *Trace) Slice(from, to int) *Trace {
	slicedTrace := NewTrace()
	for i := from; i < to && i < len(t.Steps); i++ {
		slicedTrace.Append(t.Steps[i])
	}
	return slicedTrace
}

func (t *Trace) Append(s *Step) {
	t.Steps = append(t.Steps, s)
}

func (t *Trace) Len() int {
	return len(t.Steps)
}

func (t *Trace) Get(i int) (*Step, bool) {
	if i < 0 || i >= len(t.Steps) {
		return nil, false
	}
	return t.Steps[i], true
}

func (t *Trace) Last() (*Step, bool) {
	if len(t.Steps) < 1 {
		return nil, false
	}
	return t.Steps[len(t.Steps)-1], true
}

func (t *Trace) GetPrefix(i int) (*Trace, bool) {
	if i > len(t.Steps) {
		return nil, false
	}
	return &Trace{Steps: t.Steps[0:i]}, true
}

func (t *Trace) TotalReward() float64 {
	total := 0.0
	for _, s := range t.Steps {
		total += s.Reward
	}
	return total
}

// Distance reached at the end of the trace
func (t *Trace) Distance() float64 {
	last, ok := t.Last()
	if !ok || last.Next == nil {
		return 0
	}
	if forced, _ := last.Info["forced_reset"].(bool); forced && last.Observation != nil {
		return last.Observation.Distance
	}
	return last.Next.Distance
}

func (t *Trace) IllegalActions() int {
	count := 0
	for _, s := range t.Steps {
		if !s.Legal() {
			count++
		}
	}
	return count
}

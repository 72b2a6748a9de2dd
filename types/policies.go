package types

import (
	"time"

	"github.com/zeu5/dino-rl/dino"
	"golang.org/x/exp/rand"
)

type Policy interface {
	// called after every episode with its trace
	UpdateIteration(int, *Trace)
	NextAction(int, *dino.Observation, dino.ActionSpace) (dino.ActionCode, bool)
	// called after every step
	Update(int, *Step)
	Reset()
	// store the policy under the given path
	Record(string)
}

type RandomPolicy struct {
	rand *rand.Rand
}

var _ Policy = &RandomPolicy{}

// NewRandomPolicy seeds from the clock when seed is 0
func NewRandomPolicy(seed uint64) *RandomPolicy {
	if seed == 0 {
		seed = uint64(time.Now().UnixNano())
	}
	return &RandomPolicy{
		rand: rand.New(rand.NewSource(seed)),
	}
}

func (r *RandomPolicy) Reset() {

}

func (r *RandomPolicy) UpdateIteration(_ int, _ *Trace) {

}

func (r *RandomPolicy) NextAction(step int, obs *dino.Observation, actions dino.ActionSpace) (dino.ActionCode, bool) {
	if len(actions) == 0 {
		return dino.Run, false
	}
	i := r.rand.Intn(len(actions))
	return actions[i], true
}

func (r *RandomPolicy) Update(_ int, _ *Step) {}

func (r *RandomPolicy) Record(_ string) {}

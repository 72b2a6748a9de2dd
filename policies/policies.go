package policies

import (
	"fmt"
	"sort"

	"github.com/zeu5/dino-rl/types"
)

var constructors = map[string]func(seed uint64) types.Policy{
	"random": func(seed uint64) types.Policy { return types.NewRandomPolicy(seed) },
	"jump":   func(uint64) types.Policy { return NewJumpHeuristic() },
	"qlearning": func(seed uint64) types.Policy {
		config := DefaultQLearningConfig()
		config.Seed = seed
		return NewEpsilonGreedyQ(config)
	},
	"softmax": func(seed uint64) types.Policy {
		config := DefaultQLearningConfig()
		config.Seed = seed
		return NewSoftmaxQ(config, 1.0)
	},
	"linear": func(seed uint64) types.Policy { return NewLinearSoftmax(0.001, 0.99, seed) },
}

// New builds the named policy with its default parameters
func New(name string, seed uint64) (types.Policy, error) {
	c, ok := constructors[name]
	if !ok {
		return nil, fmt.Errorf("unknown policy %q, expected one of %v", name, Names())
	}
	return c(seed), nil
}

func Names() []string {
	names := make([]string, 0, len(constructors))
	for name := range constructors {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

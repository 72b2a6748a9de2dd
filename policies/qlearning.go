package policies

import (
	"math"
	"time"

	"github.com/zeu5/dino-rl/dino"
	"github.com/zeu5/dino-rl/types"
	"golang.org/x/exp/rand"
	"gonum.org/v1/gonum/stat/sampleuv"
)

// QLearningConfig holds the parameters shared by the tabular policies
type QLearningConfig struct {
	Alpha    float64
	Discount float64
	Epsilon  float64
	// multiplied into epsilon after every episode, 0 or 1 keeps it fixed
	EpsilonDecay float64
	MinEpsilon   float64
	Seed         uint64
}

func DefaultQLearningConfig() QLearningConfig {
	return QLearningConfig{
		Alpha:        0.1,
		Discount:     0.95,
		Epsilon:      0.1,
		EpsilonDecay: 0.99,
		MinEpsilon:   0.01,
	}
}

func newSource(seed uint64) rand.Source {
	if seed == 0 {
		seed = uint64(time.Now().UnixNano())
	}
	return rand.NewSource(seed)
}

// EpsilonGreedyQ is tabular Q-learning over observation buckets
type EpsilonGreedyQ struct {
	qTable  *QTable
	config  QLearningConfig
	epsilon float64
	source  rand.Source
	rand    *rand.Rand
}

var _ types.Policy = &EpsilonGreedyQ{}

func NewEpsilonGreedyQ(config QLearningConfig) *EpsilonGreedyQ {
	source := newSource(config.Seed)
	return &EpsilonGreedyQ{
		qTable:  NewQTable(),
		config:  config,
		epsilon: config.Epsilon,
		source:  source,
		rand:    rand.New(source),
	}
}

func (q *EpsilonGreedyQ) Epsilon() float64 {
	return q.epsilon
}

func (q *EpsilonGreedyQ) Table() *QTable {
	return q.qTable
}

func (q *EpsilonGreedyQ) Record(path string) {
	q.qTable.Record(path + ".json")
}

func (q *EpsilonGreedyQ) Reset() {
	q.qTable = NewQTable()
	q.epsilon = q.config.Epsilon
}

func (q *EpsilonGreedyQ) NextAction(_ int, obs *dino.Observation, actions dino.ActionSpace) (dino.ActionCode, bool) {
	if len(actions) == 0 {
		return dino.Run, false
	}
	if q.rand.Float64() < q.epsilon {
		return actions[q.rand.Intn(len(actions))], true
	}
	return q.greedy(obs.Hash(), actions)
}

func (q *EpsilonGreedyQ) greedy(stateHash string, actions dino.ActionSpace) (dino.ActionCode, bool) {
	actionsMap := make(map[string]dino.ActionCode)
	available := make([]string, len(actions))
	for i, a := range actions {
		aHash := a.Hash()
		actionsMap[aHash] = a
		available[i] = aHash
	}
	maxAction, _ := q.qTable.MaxAmong(stateHash, available, 0)
	if maxAction == "" {
		return dino.Run, false
	}
	return actionsMap[maxAction], true
}

// Update applies the one step TD update. Terminal and forced reset steps do not bootstrap.
func (q *EpsilonGreedyQ) Update(_ int, step *types.Step) {
	if step.Observation == nil || step.Next == nil {
		return
	}
	stateHash := step.Observation.Hash()
	actionHash := step.Action.Hash()

	nextVal := 0.0
	if !step.Terminated && !step.Info.Bool("forced_reset") {
		_, nextVal = q.qTable.Max(step.Next.Hash(), 0)
	}
	curVal := q.qTable.Get(stateHash, actionHash, 0)
	newVal := (1-q.config.Alpha)*curVal + q.config.Alpha*(step.Reward+q.config.Discount*nextVal)
	q.qTable.Set(stateHash, actionHash, newVal)
}

func (q *EpsilonGreedyQ) UpdateIteration(_ int, _ *types.Trace) {
	if q.config.EpsilonDecay > 0 && q.config.EpsilonDecay < 1 {
		q.epsilon = math.Max(q.config.MinEpsilon, q.epsilon*q.config.EpsilonDecay)
	}
}

// SoftmaxQ samples actions from a Boltzmann distribution over the Q values
type SoftmaxQ struct {
	*EpsilonGreedyQ
	temperature float64
}

var _ types.Policy = &SoftmaxQ{}

func NewSoftmaxQ(config QLearningConfig, temperature float64) *SoftmaxQ {
	if temperature <= 0 {
		temperature = 1
	}
	config.Epsilon = 0
	return &SoftmaxQ{
		EpsilonGreedyQ: NewEpsilonGreedyQ(config),
		temperature:    temperature,
	}
}

func (s *SoftmaxQ) NextAction(_ int, obs *dino.Observation, actions dino.ActionSpace) (dino.ActionCode, bool) {
	if len(actions) == 0 {
		return dino.Run, false
	}
	stateHash := obs.Hash()
	vals := make([]float64, len(actions))
	for i, a := range actions {
		vals[i] = s.qTable.Get(stateHash, a.Hash(), 0) / s.temperature
	}
	i, ok := sampleuv.NewWeighted(softmax(vals), s.source).Take()
	if !ok {
		return dino.Run, false
	}
	return actions[i], true
}

// softmax of vals, shifted by the max for stability
func softmax(vals []float64) []float64 {
	maxVal := math.Inf(-1)
	for _, v := range vals {
		maxVal = math.Max(maxVal, v)
	}
	weights := make([]float64, len(vals))
	sum := 0.0
	for i, v := range vals {
		weights[i] = math.Exp(v - maxVal)
		sum += weights[i]
	}
	for i := range weights {
		weights[i] /= sum
	}
	return weights
}

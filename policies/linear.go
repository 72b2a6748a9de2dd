package policies

import (
	"github.com/zeu5/dino-rl/dino"
	"github.com/zeu5/dino-rl/types"
	"github.com/zeu5/dino-rl/util"
	"golang.org/x/exp/rand"
	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat"
	"gonum.org/v1/gonum/stat/sampleuv"
)

// LinearSoftmax is a REINFORCE policy with one weight row per action over
// the observation vector plus a bias term. Weights are updated once per episode.
type LinearSoftmax struct {
	learningRate float64
	discount     float64
	seed         uint64

	weights *mat.Dense
	actions dino.ActionSpace
	source  rand.Source
}

var _ types.Policy = &LinearSoftmax{}

func NewLinearSoftmax(learningRate, discount float64, seed uint64) *LinearSoftmax {
	return &LinearSoftmax{
		learningRate: learningRate,
		discount:     discount,
		seed:         seed,
		source:       newSource(seed),
	}
}

func features(obs *dino.Observation) *mat.VecDense {
	v := obs.Vector()
	return mat.NewVecDense(len(v)+1, append(v, 1))
}

func (l *LinearSoftmax) init(actions dino.ActionSpace, dim int) {
	l.actions = append(dino.ActionSpace{}, actions...)
	l.weights = mat.NewDense(len(actions), dim, nil)
}

// probabilities returns the action distribution of the features
func (l *LinearSoftmax) probabilities(x *mat.VecDense) []float64 {
	logits := mat.NewVecDense(len(l.actions), nil)
	logits.MulVec(l.weights, x)
	return softmax(logits.RawVector().Data)
}

func (l *LinearSoftmax) index(a dino.ActionCode) int {
	for i, b := range l.actions {
		if a == b {
			return i
		}
	}
	return -1
}

func (l *LinearSoftmax) NextAction(_ int, obs *dino.Observation, actions dino.ActionSpace) (dino.ActionCode, bool) {
	if len(actions) == 0 || obs == nil {
		return dino.Run, false
	}
	x := features(obs)
	if l.weights == nil || len(l.actions) != len(actions) {
		l.init(actions, x.Len())
	}
	i, ok := sampleuv.NewWeighted(l.probabilities(x), l.source).Take()
	if !ok {
		return dino.Run, false
	}
	return l.actions[i], true
}

func (l *LinearSoftmax) Update(_ int, _ *types.Step) {}

// UpdateIteration performs the gradient step on the discounted returns of
// the episode, using their mean as baseline
func (l *LinearSoftmax) UpdateIteration(_ int, trace *types.Trace) {
	if l.weights == nil || trace.Len() == 0 {
		return
	}
	returns := make([]float64, trace.Len())
	g := 0.0
	for i := trace.Len() - 1; i >= 0; i-- {
		g = trace.Steps[i].Reward + l.discount*g
		returns[i] = g
	}
	baseline := stat.Mean(returns, nil)

	rows, _ := l.weights.Dims()
	grad := mat.NewVecDense(rows, nil)
	for i, step := range trace.Steps {
		a := l.index(step.Action)
		if a < 0 || step.Observation == nil {
			continue
		}
		x := features(step.Observation)
		probs := l.probabilities(x)
		for j := range probs {
			grad.SetVec(j, -probs[j])
		}
		grad.SetVec(a, grad.AtVec(a)+1)
		l.weights.RankOne(l.weights, l.learningRate*(returns[i]-baseline), grad, x)
	}
}

func (l *LinearSoftmax) Reset() {
	l.weights = nil
	l.actions = nil
	l.source = newSource(l.seed)
}

func (l *LinearSoftmax) Weights() *mat.Dense {
	return l.weights
}

func (l *LinearSoftmax) Record(path string) {
	if l.weights == nil {
		return
	}
	rows, cols := l.weights.Dims()
	out := map[string]interface{}{
		"actions": l.actions,
		"rows":    rows,
		"cols":    cols,
		"weights": l.weights.RawMatrix().Data,
	}
	util.WriteJSON(path+".json", out)
}

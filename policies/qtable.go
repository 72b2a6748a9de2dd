package policies

import (
	"math"

	"github.com/zeu5/dino-rl/util"
)

// QTable maps a state hash and an action hash to a value
type QTable struct {
	table map[string]map[string]float64
}

func NewQTable() *QTable {
	return &QTable{
		table: make(map[string]map[string]float64),
	}
}

// Get returns the stored value, storing def first when absent
func (q *QTable) Get(state, action string, def float64) float64 {
	if _, ok := q.table[state]; !ok {
		q.table[state] = make(map[string]float64)
	}
	if _, ok := q.table[state][action]; !ok {
		q.table[state][action] = def
	}
	return q.table[state][action]
}

func (q *QTable) Set(state, action string, val float64) {
	if _, ok := q.table[state]; !ok {
		q.table[state] = make(map[string]float64)
	}
	q.table[state][action] = val
}

func (q *QTable) HasState(state string) bool {
	_, ok := q.table[state]
	return ok
}

// States is the number of distinct states in the table
func (q *QTable) States() int {
	return len(q.table)
}

// Max returns the best known action of the state and its value, def when the state is unknown
func (q *QTable) Max(state string, def float64) (string, float64) {
	actions, ok := q.table[state]
	if !ok || len(actions) == 0 {
		return "", def
	}
	maxAction := ""
	maxVal := math.Inf(-1)
	for a, val := range actions {
		if val > maxVal || (val == maxVal && a < maxAction) {
			maxAction = a
			maxVal = val
		}
	}
	return maxAction, maxVal
}

// MaxAmong is Max restricted to the given actions. Ties go to the earliest action.
func (q *QTable) MaxAmong(state string, actions []string, def float64) (string, float64) {
	maxAction := ""
	maxVal := math.Inf(-1)
	for _, a := range actions {
		val := q.Get(state, a, def)
		if val > maxVal {
			maxAction = a
			maxVal = val
		}
	}
	if maxAction == "" {
		return "", def
	}
	return maxAction, maxVal
}

// Record stores the table as json at path
func (q *QTable) Record(path string) error {
	return util.WriteJSON(path, q.table)
}

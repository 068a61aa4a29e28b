package policies

import (
	"github.com/zeu5/dist-qlearning/types"
	"golang.org/x/exp/rand"
)

// EpsilonGreedyPolicy is tabular Q-learning with epsilon-greedy exploration
type EpsilonGreedyPolicy struct {
	qTable  *QTable
	alpha   float64
	gamma   float64
	epsilon float64
	actions int
}

var _ types.ValuePolicy = &EpsilonGreedyPolicy{}

func NewEpsilonGreedyPolicy(states, actions int, alpha, gamma, epsilon float64) *EpsilonGreedyPolicy {
	return &EpsilonGreedyPolicy{
		qTable:  NewQTable(states, actions),
		alpha:   alpha,
		gamma:   gamma,
		epsilon: epsilon,
		actions: actions,
	}
}

func (e *EpsilonGreedyPolicy) QTable() *QTable {
	return e.qTable
}

func (e *EpsilonGreedyPolicy) Reset() {
	e.qTable.Reset()
}

func (e *EpsilonGreedyPolicy) Values() [][]float64 {
	return e.qTable.Values()
}

// SelectAction explores uniformly with probability epsilon, otherwise
// returns the lowest-indexed greedy action
func (e *EpsilonGreedyPolicy) SelectAction(r *rand.Rand, state int) int {
	if r.Float64() < e.epsilon {
		return r.Intn(e.actions)
	}
	return e.qTable.ArgMax(state)
}

func (e *EpsilonGreedyPolicy) NextAction(sCtx *types.StepContext, state int) int {
	return e.SelectAction(sCtx.Rand, state)
}

// Learn applies Q[s][a] += alpha * (reward + gamma * max_a' Q[s'][a'] - Q[s][a])
func (e *EpsilonGreedyPolicy) Learn(state, action int, reward float64, nextState int) {
	curVal := e.qTable.Get(state, action)
	nextVal := e.qTable.Max(nextState)
	e.qTable.Set(state, action, curVal+e.alpha*(reward+e.gamma*nextVal-curVal))
}

func (e *EpsilonGreedyPolicy) Update(_ *types.StepContext, state, action int, reward float64, nextState int) {
	e.Learn(state, action, reward, nextState)
}

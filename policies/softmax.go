package policies

import (
	"math"

	"github.com/zeu5/dist-qlearning/types"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat/sampleuv"
)

// SoftMaxPolicy is tabular Q-learning with Boltzmann exploration.
// Updates are the same as EpsilonGreedyPolicy.
type SoftMaxPolicy struct {
	*EpsilonGreedyPolicy
	temperature float64
}

var _ types.ValuePolicy = &SoftMaxPolicy{}

func NewSoftMaxPolicy(states, actions int, alpha, gamma, temperature float64) *SoftMaxPolicy {
	if temperature <= 0 {
		temperature = 1
	}
	return &SoftMaxPolicy{
		EpsilonGreedyPolicy: NewEpsilonGreedyPolicy(states, actions, alpha, gamma, 0),
		temperature:         temperature,
	}
}

// Weights returns the selection probabilities of the actions in state
func (s *SoftMaxPolicy) Weights(state int) []float64 {
	vals := s.qTable.Row(state)
	floats.Scale(1/s.temperature, vals)
	// shift by the max for numerical stability
	maxVal := floats.Max(vals)
	sum := float64(0)
	for i, val := range vals {
		vals[i] = math.Exp(val - maxVal)
		sum += vals[i]
	}
	floats.Scale(1/sum, vals)
	return vals
}

func (s *SoftMaxPolicy) NextAction(sCtx *types.StepContext, state int) int {
	i, ok := sampleuv.NewWeighted(s.Weights(state), sCtx.Rand).Take()
	if !ok {
		return s.qTable.ArgMax(state)
	}
	return i
}

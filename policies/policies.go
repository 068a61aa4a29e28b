package policies

import (
	"errors"
	"fmt"

	"github.com/zeu5/dist-qlearning/types"
)

var ErrUnknownPolicy = errors.New("unknown policy")

const (
	EpsilonGreedy = "egreedy"
	SoftMax       = "softmax"
	Random        = "random"
)

// Params are the learning parameters shared by the tabular policies
type Params struct {
	States      int
	Actions     int
	Alpha       float64
	Gamma       float64
	Epsilon     float64
	Temperature float64
}

// New creates a fresh policy by name
func New(name string, p Params) (types.Policy, error) {
	switch name {
	case EpsilonGreedy, "":
		return NewEpsilonGreedyPolicy(p.States, p.Actions, p.Alpha, p.Gamma, p.Epsilon), nil
	case SoftMax:
		return NewSoftMaxPolicy(p.States, p.Actions, p.Alpha, p.Gamma, p.Temperature), nil
	case Random:
		return types.NewRandomPolicy(p.Actions), nil
	}
	return nil, fmt.Errorf("%w: %q", ErrUnknownPolicy, name)
}

// Package chain provides the modular chain MDP: from state s, action a
// moves to (s + a) mod n and only entering the last state is rewarded.
package chain

import (
	"github.com/zeu5/dist-qlearning/types"
)

type Environment struct {
	States int
}

var _ types.Environment = &Environment{}

func NewEnvironment(states int) *Environment {
	return &Environment{
		States: states,
	}
}

func (c *Environment) Step(_ *types.StepContext, state, action int) (int, float64) {
	next := (state + action) % c.States
	return next, c.reward(next)
}

func (c *Environment) reward(next int) float64 {
	if next == c.States-1 {
		return 1
	}
	return 0
}

// Slippery is the chain where each action fails with probability Slip,
// leaving the agent where it was.
type Slippery struct {
	*Environment
	Slip float64
}

var _ types.Environment = &Slippery{}

func NewSlippery(states int, slip float64) *Slippery {
	return &Slippery{
		Environment: NewEnvironment(states),
		Slip:        slip,
	}
}

func (s *Slippery) Step(sCtx *types.StepContext, state, action int) (int, float64) {
	if sCtx.Rand.Float64() < s.Slip {
		return state, s.reward(state)
	}
	return s.Environment.Step(sCtx, state, action)
}

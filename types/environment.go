package types

import (
	"context"
	"errors"
	"fmt"
	"math"

	"golang.org/x/exp/rand"
)

var (
	// ErrStateOutOfRange is returned when an environment produces a state
	// outside of the configured table bounds
	ErrStateOutOfRange = errors.New("state out of range")
	// ErrInvalidReward is returned when an environment produces a NaN or infinite reward
	ErrInvalidReward = errors.New("invalid reward")
)

// Environment is the transition function of the MDP each agent solves.
// Implementations must not keep shared mutable state: Step is called
// concurrently from every worker. Randomness should be drawn from sCtx.Rand.
type Environment interface {
	// Step returns the next state and the reward of taking action in state
	Step(sCtx *StepContext, state, action int) (int, float64)
}

// EnvironmentFunc adapts a plain function to the Environment interface
type EnvironmentFunc func(sCtx *StepContext, state, action int) (int, float64)

func (f EnvironmentFunc) Step(sCtx *StepContext, state, action int) (int, float64) {
	return f(sCtx, state, action)
}

// ValidateEnvironment probes every (state, action) pair `probes` times and
// reports each pair whose next state falls outside [0, states) or whose
// reward is not a finite number. Probing uses a fixed seed so that the
// check is reproducible for stochastic environments.
func ValidateEnvironment(env Environment, states, actions, probes int) error {
	if env == nil {
		return errors.New("nil environment")
	}
	if probes <= 0 {
		probes = 1
	}
	sCtx := NewStepContext(context.Background(), -1, rand.New(rand.NewSource(1)))

	var errs []error
	for s := 0; s < states; s++ {
		for a := 0; a < actions; a++ {
			for p := 0; p < probes; p++ {
				next, reward := env.Step(sCtx, s, a)
				if next < 0 || next >= states {
					errs = append(errs, fmt.Errorf("step(%d, %d) = %d: %w", s, a, next, ErrStateOutOfRange))
					break
				}
				if math.IsNaN(reward) || math.IsInf(reward, 0) {
					errs = append(errs, fmt.Errorf("step(%d, %d) reward %v: %w", s, a, reward, ErrInvalidReward))
					break
				}
			}
		}
		// enough to report a broken environment
		if len(errs) >= 10 {
			break
		}
	}
	return errors.Join(errs...)
}

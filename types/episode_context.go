package types

import (
	"context"

	"golang.org/x/exp/rand"
)

// StepContext carries the information available to a policy and an
// environment during one step of an agent.
type StepContext struct {
	Context context.Context

	AgentID int // agent taking the step, -1 outside of a worker
	Episode int // current episode (0-based)

	// Rand is the private random source of the worker. It must never be shared
	// between workers.
	Rand *rand.Rand
}

func NewStepContext(ctx context.Context, agentID int, r *rand.Rand) *StepContext {
	if ctx == nil {
		ctx = context.Background()
	}
	return &StepContext{
		Context: ctx,
		AgentID: agentID,
		Episode: 0,
		Rand:    r,
	}
}

// NewRand returns the seeded random source of a worker
func NewRand(seed int64) *rand.Rand {
	return rand.New(rand.NewSource(uint64(seed)))
}

package types

import (
	"context"
	"fmt"
)

// Transition is the record of one step of one agent.
// It is a plain value: sending it copies it.
type Transition struct {
	AgentID   int     `json:"agent_id"`
	Episode   int     `json:"episode"`
	State     int     `json:"state"`
	Action    int     `json:"action"`
	Reward    float64 `json:"reward"`
	NextState int     `json:"next_state"`
}

func (t Transition) String() string {
	return fmt.Sprintf("agent=%d ep=%d (%d, %d, %g, %d)", t.AgentID, t.Episode, t.State, t.Action, t.Reward, t.NextState)
}

// Publisher is the producer side of the transition bus
type Publisher interface {
	Publish(ctx context.Context, t Transition) error
}

// Inbox is the private receiving end of a worker. TryReceive never blocks.
type Inbox interface {
	TryReceive() (Transition, bool)
}

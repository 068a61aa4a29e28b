package scheduler

import (
	"errors"
	"time"

	"github.com/zeu5/dist-qlearning/bus"
	"github.com/zeu5/dist-qlearning/types"
)

// Result of a learning run, one entry per agent in id order
type Result struct {
	RunID    string              `json:"run_id"`
	Config   Config              `json:"config"`
	Agents   []types.AgentResult `json:"agents"`
	Bus      bus.Stats           `json:"bus"`
	Duration time.Duration       `json:"duration"`
}

// Err joins the errors of the agents that did not complete
func (r *Result) Err() error {
	errs := make([]error, 0)
	for _, a := range r.Agents {
		if a.Err != nil {
			errs = append(errs, a.Err)
		}
	}
	return errors.Join(errs...)
}

func (r *Result) Completed() int {
	count := 0
	for _, a := range r.Agents {
		if a.Status == types.StatusCompleted {
			count += 1
		}
	}
	return count
}

func (r *Result) Agent(id int) (types.AgentResult, bool) {
	if id < 0 || id >= len(r.Agents) {
		return types.AgentResult{}, false
	}
	return r.Agents[id], true
}

// MeanReward is the mean total reward over all agents
func (r *Result) MeanReward() float64 {
	if len(r.Agents) == 0 {
		return 0
	}
	sum := 0.0
	for _, a := range r.Agents {
		sum += a.TotalReward
	}
	return sum / float64(len(r.Agents))
}

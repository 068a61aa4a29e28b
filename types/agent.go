package types

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"
	"sync/atomic"

	"golang.org/x/exp/rand"
)

var (
	// ErrAgentPanic wraps a panic recovered from an agent's policy or environment
	ErrAgentPanic = errors.New("agent panicked")
	// ErrActionOutOfRange is returned when a policy picks an action outside [0, actions)
	ErrActionOutOfRange = errors.New("action out of range")
	// ErrAlreadyStarted is returned when Run is invoked twice on the same agent
	ErrAlreadyStarted = errors.New("agent already started")
)

// AgentStatus is the lifecycle state of an agent worker
type AgentStatus int32

const (
	StatusIdle AgentStatus = iota
	StatusRunning
	StatusCompleted
	StatusFailed
	StatusCanceled
)

func (s AgentStatus) String() string {
	switch s {
	case StatusIdle:
		return "idle"
	case StatusRunning:
		return "running"
	case StatusCompleted:
		return "completed"
	case StatusFailed:
		return "failed"
	case StatusCanceled:
		return "canceled"
	}
	return "unknown"
}

func (s AgentStatus) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

func (s *AgentStatus) UnmarshalText(text []byte) error {
	for _, status := range []AgentStatus{StatusIdle, StatusRunning, StatusCompleted, StatusFailed, StatusCanceled} {
		if status.String() == string(text) {
			*s = status
			return nil
		}
	}
	return fmt.Errorf("unknown agent status %q", text)
}

type AgentConfig struct {
	ID       int
	Episodes int
	States   int
	Actions  int
	// StartState is the initial state, a negative value draws it uniformly
	StartState  int
	CurveWindow int

	Policy      Policy
	Environment Environment
	Publisher   Publisher // optional
	Inbox       Inbox     // optional
	Rand        *rand.Rand
	Logger      *log.Logger

	// OnReceive is called with every transition drained from the inbox.
	// Drained transitions are otherwise discarded.
	OnReceive func(Transition)
}

// AgentResult is the outcome of one agent worker
type AgentResult struct {
	ID              int          `json:"id"`
	Status          AgentStatus  `json:"status"`
	Episodes        int          `json:"episodes"`
	FinalState      int          `json:"final_state"`
	TotalReward     float64      `json:"total_reward"`
	Published       int          `json:"published"`
	PublishFailures int          `json:"publish_failures"`
	Received        int          `json:"received"`
	Curve           *RewardCurve `json:"curve"`
	Values          [][]float64  `json:"values,omitempty"`
	Error           string       `json:"error,omitempty"`

	Err error `json:"-"`
}

// Agent runs the episode loop of one learner.
// The policy (and its table) is owned by the agent and is only touched by
// the goroutine executing Run.
type Agent struct {
	config      *AgentConfig
	policy      Policy
	environment Environment
	rand        *rand.Rand
	logger      *log.Logger

	status  atomic.Int32
	episode atomic.Int64

	state           int
	curve           *RewardCurve
	totalReward     float64
	published       int
	publishFailures int
	received        int
	err             error
}

func NewAgent(config *AgentConfig) *Agent {
	r := config.Rand
	if r == nil {
		r = NewRand(int64(config.ID))
	}
	logger := config.Logger
	if logger == nil {
		logger = log.New(os.Stderr, fmt.Sprintf("[agent %d] ", config.ID), log.LstdFlags)
	}
	state := config.StartState
	if state < 0 || state >= config.States {
		state = r.Intn(config.States)
	}
	return &Agent{
		config:      config,
		policy:      config.Policy,
		environment: config.Environment,
		rand:        r,
		logger:      logger,
		state:       state,
		curve:       NewRewardCurve(config.CurveWindow),
	}
}

func (a *Agent) ID() int {
	return a.config.ID
}

func (a *Agent) Status() AgentStatus {
	return AgentStatus(a.status.Load())
}

// Progress returns the number of completed episodes and the episode budget.
// Safe to call from any goroutine.
func (a *Agent) Progress() (int, int) {
	return int(a.episode.Load()), a.config.Episodes
}

// Run executes the episode loop until the budget is exhausted, the context
// is done or the policy/environment misbehaves. A panic is recovered and
// returned as an error wrapping ErrAgentPanic.
func (a *Agent) Run(ctx context.Context) (err error) {
	if !a.status.CompareAndSwap(int32(StatusIdle), int32(StatusRunning)) {
		return ErrAlreadyStarted
	}
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("agent %d: %w: %v", a.config.ID, ErrAgentPanic, r)
		}
		a.curve.Flush()
		a.err = err
		switch {
		case err == nil:
			a.status.Store(int32(StatusCompleted))
		case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
			a.status.Store(int32(StatusCanceled))
		default:
			a.status.Store(int32(StatusFailed))
		}
	}()

	sCtx := NewStepContext(ctx, a.config.ID, a.rand)
	for i := 0; i < a.config.Episodes; i++ {
		select {
		case <-ctx.Done():
			return fmt.Errorf("agent %d stopped at episode %d: %w", a.config.ID, i, ctx.Err())
		default:
		}
		sCtx.Episode = i

		action := a.policy.NextAction(sCtx, a.state)
		if action < 0 || action >= a.config.Actions {
			return fmt.Errorf("agent %d episode %d: action %d: %w", a.config.ID, i, action, ErrActionOutOfRange)
		}
		nextState, reward := a.environment.Step(sCtx, a.state, action)
		if nextState < 0 || nextState >= a.config.States {
			return fmt.Errorf("agent %d episode %d: step(%d, %d) = %d: %w", a.config.ID, i, a.state, action, nextState, ErrStateOutOfRange)
		}
		a.policy.Update(sCtx, a.state, action, reward, nextState)

		t := Transition{
			AgentID:   a.config.ID,
			Episode:   i,
			State:     a.state,
			Action:    action,
			Reward:    reward,
			NextState: nextState,
		}
		a.state = nextState
		a.totalReward += reward
		a.curve.Append(reward)
		a.episode.Store(int64(i + 1))

		if err := a.publish(ctx, t); err != nil {
			return err
		}
		a.drain()
	}
	return nil
}

// publish hands the transition to the bus. Losing a transition does not
// affect learning so failures other than cancellation are only counted.
func (a *Agent) publish(ctx context.Context, t Transition) error {
	if a.config.Publisher == nil {
		return nil
	}
	err := a.config.Publisher.Publish(ctx, t)
	if err == nil {
		a.published += 1
		return nil
	}
	if ctx.Err() != nil {
		return fmt.Errorf("agent %d stopped at episode %d: %w", a.config.ID, t.Episode, ctx.Err())
	}
	a.publishFailures += 1
	if a.publishFailures == 1 {
		a.logger.Printf("publish failed at episode %d, continuing: %v", t.Episode, err)
	}
	return nil
}

func (a *Agent) drain() {
	if a.config.Inbox == nil {
		return
	}
	for {
		t, ok := a.config.Inbox.TryReceive()
		if !ok {
			return
		}
		a.received += 1
		if a.config.OnReceive != nil {
			a.config.OnReceive(t)
		}
	}
}

// Result returns the outcome of the agent. Only valid once Run returned.
func (a *Agent) Result() AgentResult {
	episodes, _ := a.Progress()
	res := AgentResult{
		ID:              a.config.ID,
		Status:          a.Status(),
		Episodes:        episodes,
		FinalState:      a.state,
		TotalReward:     a.totalReward,
		Published:       a.published,
		PublishFailures: a.publishFailures,
		Received:        a.received,
		Curve:           a.curve,
		Err:             a.err,
	}
	if a.err != nil {
		res.Error = a.err.Error()
	}
	if vp, ok := a.policy.(ValuePolicy); ok {
		res.Values = vp.Values()
	}
	return res
}

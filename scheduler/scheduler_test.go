package scheduler

import (
	"context"
	"errors"
	"io"
	"log"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/zeu5/dist-qlearning/chain"
	"github.com/zeu5/dist-qlearning/policies"
	"github.com/zeu5/dist-qlearning/types"
)

func quietLogger() *log.Logger {
	return log.New(io.Discard, "", 0)
}

func TestRunCompletesAllAgents(t *testing.T) {
	cfg := DefaultConfig()
	s, err := New(cfg, chain.NewEnvironment(cfg.States), WithLogger(quietLogger()))
	if err != nil {
		t.Fatal(err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	res, err := s.Run(ctx)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if len(res.Agents) != 10 {
		t.Fatalf("got %d agent results, want 10", len(res.Agents))
	}
	for _, a := range res.Agents {
		if a.Status != types.StatusCompleted || a.Episodes != 1000 {
			t.Errorf("agent %d: status %s after %d episodes", a.ID, a.Status, a.Episodes)
		}
		if a.Published != 1000 {
			t.Errorf("agent %d published %d transitions", a.ID, a.Published)
		}
		if len(a.Values) != cfg.States || len(a.Values[0]) != cfg.Actions {
			t.Errorf("agent %d: table is %dx%d", a.ID, len(a.Values), len(a.Values[0]))
		}
	}
	if res.Bus.Sent != 10000 || res.Bus.Received != 10000 {
		t.Errorf("bus stats = %+v", res.Bus)
	}
	if res.RunID == "" {
		t.Error("empty run id")
	}
	if _, err := s.Run(ctx); !errors.Is(err, ErrAlreadyRun) {
		t.Errorf("second Run = %v", err)
	}
}

func TestRunSmallBusStaysLive(t *testing.T) {
	cfg := DefaultConfig()
	cfg.BusCapacity = 1
	cfg.InboxCapacity = 1
	cfg.Delivery = "broadcast"
	s, err := New(cfg, chain.NewEnvironment(cfg.States), WithLogger(quietLogger()))
	if err != nil {
		t.Fatal(err)
	}
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	res, err := s.Run(ctx)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if res.Completed() != cfg.Agents {
		t.Errorf("%d/%d agents completed", res.Completed(), cfg.Agents)
	}
}

func TestAgentsLearnIndependently(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Agents = 4
	cfg.Episodes = 500
	cfg.States = 12
	cfg.Seed = 42
	env := chain.NewSlippery(cfg.States, 0.2)

	s, err := New(cfg, env, WithLogger(quietLogger()))
	if err != nil {
		t.Fatal(err)
	}
	res, err := s.Run(context.Background())
	if err != nil {
		t.Fatal(err)
	}

	// replaying agent 2 alone, without any bus, gives the same table
	const id = 2
	policy := policies.NewEpsilonGreedyPolicy(cfg.States, cfg.Actions, cfg.Alpha, cfg.Gamma, cfg.Epsilon)
	solo := types.NewAgent(&types.AgentConfig{
		ID:          id,
		Episodes:    cfg.Episodes,
		States:      cfg.States,
		Actions:     cfg.Actions,
		StartState:  -1,
		CurveWindow: cfg.CurveWindow,
		Policy:      policy,
		Environment: env,
		Rand:        types.NewRand(cfg.Seed + id),
		Logger:      quietLogger(),
	})
	if err := solo.Run(context.Background()); err != nil {
		t.Fatal(err)
	}

	want := policy.Values()
	got := res.Agents[id].Values
	for st := range want {
		for a := range want[st] {
			if got[st][a] != want[st][a] {
				t.Fatalf("Q[%d][%d] = %v, solo run gives %v", st, a, got[st][a], want[st][a])
			}
		}
	}
	if res.Agents[id].TotalReward != solo.Result().TotalReward {
		t.Errorf("total reward %v, solo run gives %v", res.Agents[id].TotalReward, solo.Result().TotalReward)
	}
}

type panickingPolicy struct {
	types.Policy
	after int
	calls int
}

func (p *panickingPolicy) NextAction(sCtx *types.StepContext, state int) int {
	p.calls += 1
	if p.calls > p.after {
		panic("broken policy")
	}
	return p.Policy.NextAction(sCtx, state)
}

func TestPanicIsIsolated(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Agents = 3
	cfg.Episodes = 200
	ctor := func(id int, params policies.Params) (types.Policy, error) {
		p, err := policies.New(policies.EpsilonGreedy, params)
		if id == 1 {
			return &panickingPolicy{Policy: p, after: 50}, err
		}
		return p, err
	}
	s, err := New(cfg, chain.NewEnvironment(cfg.States), WithLogger(quietLogger()), WithPolicy(ctor))
	if err != nil {
		t.Fatal(err)
	}
	res, err := s.Run(context.Background())
	if !errors.Is(err, types.ErrAgentPanic) {
		t.Fatalf("Run error = %v, want ErrAgentPanic", err)
	}
	for _, a := range res.Agents {
		switch a.ID {
		case 1:
			if a.Status != types.StatusFailed || a.Episodes != 50 || a.Error == "" {
				t.Errorf("agent 1: status %s after %d episodes (%q)", a.Status, a.Episodes, a.Error)
			}
		default:
			if a.Status != types.StatusCompleted || a.Episodes != cfg.Episodes {
				t.Errorf("agent %d: status %s after %d episodes", a.ID, a.Status, a.Episodes)
			}
		}
	}
	if res.Completed() != 2 {
		t.Errorf("Completed = %d, want 2", res.Completed())
	}
}

func TestNewRejectsBrokenEnvironment(t *testing.T) {
	cfg := DefaultConfig()
	env := types.EnvironmentFunc(func(_ *types.StepContext, state, action int) (int, float64) {
		return state + action, 0
	})
	_, err := New(cfg, env)
	if !errors.Is(err, ErrInvalidConfig) || !errors.Is(err, types.ErrStateOutOfRange) {
		t.Errorf("New = %v", err)
	}
}

func TestRunCanceled(t *testing.T) {
	cfg := DefaultConfig()
	s, err := New(cfg, chain.NewEnvironment(cfg.States), WithLogger(quietLogger()))
	if err != nil {
		t.Fatal(err)
	}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	res, err := s.Run(ctx)
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("Run = %v, want Canceled", err)
	}
	for _, a := range res.Agents {
		if a.Status != types.StatusCanceled {
			t.Errorf("agent %d: status %s", a.ID, a.Status)
		}
	}
}

type countingSink struct {
	mu     sync.Mutex
	perID  map[int]int
	closed bool
}

func (c *countingSink) Write(_ context.Context, t types.Transition) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.perID[t.AgentID] += 1
	return nil
}

func (c *countingSink) Close() error {
	c.closed = true
	return nil
}

func TestSinksAndObserver(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Agents = 5
	cfg.Episodes = 300
	cfg.Delivery = "broadcast"
	sink := &countingSink{perID: make(map[int]int)}
	var observed atomic.Int64

	s, err := New(cfg, chain.NewEnvironment(cfg.States),
		WithLogger(quietLogger()),
		WithSinks(sink),
		WithObserver(func(agentID int, t types.Transition) {
			if agentID == t.AgentID {
				panic("agent received its own transition")
			}
			observed.Add(1)
		}),
	)
	if err != nil {
		t.Fatal(err)
	}
	res, err := s.Run(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	for id := 0; id < cfg.Agents; id++ {
		if sink.perID[id] != cfg.Episodes {
			t.Errorf("sink saw %d transitions of agent %d", sink.perID[id], id)
		}
	}
	if !sink.closed {
		t.Error("sink not closed")
	}
	received := 0
	for _, a := range res.Agents {
		received += a.Received
	}
	if int64(received) != observed.Load() {
		t.Errorf("observer saw %d transitions, agents received %d", observed.Load(), received)
	}
	if int64(received) > res.Bus.Delivered {
		t.Errorf("received %d > delivered %d", received, res.Bus.Delivered)
	}
}

func TestProgressSnapshot(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Agents = 2
	cfg.Episodes = 10
	s, err := New(cfg, chain.NewEnvironment(cfg.States), WithLogger(quietLogger()))
	if err != nil {
		t.Fatal(err)
	}
	if len(s.Progress()) != 0 {
		t.Error("progress before Run is not empty")
	}
	s.Run(context.Background())
	for _, p := range s.Progress() {
		if p.Episode != 10 || p.Status != types.StatusCompleted {
			t.Errorf("progress = %+v", p)
		}
	}
}

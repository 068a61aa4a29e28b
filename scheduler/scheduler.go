package scheduler

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/zeu5/dist-qlearning/bus"
	"github.com/zeu5/dist-qlearning/policies"
	"github.com/zeu5/dist-qlearning/types"
)

var ErrAlreadyRun = errors.New("scheduler already ran")

// PolicyConstructor creates the private policy of one agent
type PolicyConstructor func(agentID int, params policies.Params) (types.Policy, error)

// Observer is called by a worker with every transition it drains from its mailbox
type Observer func(agentID int, t types.Transition)

type Option func(*Scheduler)

// WithSinks attaches telemetry sinks to the dispatcher. The sinks are
// closed when the run ends.
func WithSinks(sinks ...bus.Sink) Option {
	return func(s *Scheduler) {
		s.sinks = append(s.sinks, sinks...)
	}
}

// WithLogger sets the parent logger, components log with their own prefix
func WithLogger(l *log.Logger) Option {
	return func(s *Scheduler) {
		s.logger = l
	}
}

func WithPolicy(ctor PolicyConstructor) Option {
	return func(s *Scheduler) {
		s.newPolicy = ctor
	}
}

func WithObserver(o Observer) Option {
	return func(s *Scheduler) {
		s.observer = o
	}
}

// WithProgress prints the progress of every agent at the given interval
func WithProgress(interval time.Duration) Option {
	return func(s *Scheduler) {
		s.progressInterval = interval
	}
}

// Scheduler runs N independent learners against one environment,
// connected by a single transition bus.
type Scheduler struct {
	config      Config
	environment types.Environment

	sinks            []bus.Sink
	logger           *log.Logger
	newPolicy        PolicyConstructor
	observer         Observer
	progressInterval time.Duration

	started atomic.Bool
	mu      sync.RWMutex
	agents  []*types.Agent
}

// New validates the config and the environment against it
func New(config Config, env types.Environment, opts ...Option) (*Scheduler, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}
	if env == nil {
		return nil, fmt.Errorf("%w: nil environment", ErrInvalidConfig)
	}
	if err := types.ValidateEnvironment(env, config.States, config.Actions, 1); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidConfig, err)
	}
	s := &Scheduler{
		config:      config,
		environment: env,
		sinks:       make([]bus.Sink, 0),
		logger:      log.New(os.Stderr, "", log.LstdFlags),
		agents:      make([]*types.Agent, 0),
	}
	s.newPolicy = func(_ int, params policies.Params) (types.Policy, error) {
		return policies.New(config.Policy, params)
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

func (s *Scheduler) Config() Config {
	return s.config
}

func (s *Scheduler) componentLogger(prefix string) *log.Logger {
	return log.New(s.logger.Writer(), s.logger.Prefix()+prefix, s.logger.Flags())
}

// Run spawns one worker per agent and returns once every worker has
// terminated and the bus has been drained. The returned error joins the
// failures of the individual agents, the result is always complete.
func (s *Scheduler) Run(ctx context.Context) (*Result, error) {
	if !s.started.CompareAndSwap(false, true) {
		return nil, ErrAlreadyRun
	}
	start := time.Now()
	logger := s.componentLogger("[scheduler] ")

	delivery, _ := bus.ParseDelivery(s.config.Delivery)
	b := bus.New(s.config.busConfig())
	dispatcher := bus.NewDispatcher(b, delivery, s.componentLogger("[dispatcher] "), s.sinks...)

	agents := make([]*types.Agent, s.config.Agents)
	subs := make([]*bus.Subscription, s.config.Agents)
	for i := 0; i < s.config.Agents; i++ {
		policy, err := s.newPolicy(i, s.config.PolicyParams())
		if err != nil {
			b.Close()
			dispatcher.Run(ctx)
			return nil, fmt.Errorf("creating policy of agent %d: %w", i, err)
		}
		subs[i] = dispatcher.Subscribe(i, s.config.InboxCapacity)

		var onReceive func(types.Transition)
		if s.observer != nil {
			id := i
			onReceive = func(t types.Transition) { s.observer(id, t) }
		}
		agents[i] = types.NewAgent(&types.AgentConfig{
			ID:          i,
			Episodes:    s.config.Episodes,
			States:      s.config.States,
			Actions:     s.config.Actions,
			StartState:  -1,
			CurveWindow: s.config.CurveWindow,
			Policy:      policy,
			Environment: s.environment,
			Publisher:   b,
			Inbox:       subs[i],
			Rand:        types.NewRand(s.config.Seed + int64(i)),
			Logger:      s.componentLogger(fmt.Sprintf("[agent %d] ", i)),
			OnReceive:   onReceive,
		})
	}
	s.mu.Lock()
	s.agents = agents
	s.mu.Unlock()

	dispatchDone := make(chan error, 1)
	go func() {
		dispatchDone <- dispatcher.Run(ctx)
	}()

	var printer *ProgressPrinter
	if s.progressInterval > 0 {
		printer = NewProgressPrinter(ctx, s, s.progressInterval)
		printer.Start()
	}

	logger.Printf("starting %d agents for %d episodes", s.config.Agents, s.config.Episodes)
	var wg sync.WaitGroup
	for i := range agents {
		wg.Add(1)
		go func(agent *types.Agent, sub *bus.Subscription) {
			defer wg.Done()
			defer dispatcher.Unsubscribe(sub)
			if err := agent.Run(ctx); err != nil {
				logger.Printf("agent %d terminated: %v", agent.ID(), err)
			}
		}(agents[i], subs[i])
	}
	wg.Wait()

	b.Close()
	if err := <-dispatchDone; err != nil {
		logger.Printf("dispatcher stopped: %v", err)
	}
	if printer != nil {
		printer.Stop()
	}

	result := &Result{
		RunID:    uuid.NewString(),
		Config:   s.config,
		Agents:   make([]types.AgentResult, len(agents)),
		Bus:      dispatcher.Stats(),
		Duration: time.Since(start),
	}
	for i, a := range agents {
		result.Agents[i] = a.Result()
	}
	logger.Printf("run %s finished in %s: %d/%d agents completed", result.RunID, result.Duration, result.Completed(), len(agents))
	return result, result.Err()
}

// AgentProgress is a snapshot of one worker
type AgentProgress struct {
	ID       int
	Status   types.AgentStatus
	Episode  int
	Episodes int
}

// Progress returns a snapshot of every worker, empty before Run
func (s *Scheduler) Progress() []AgentProgress {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]AgentProgress, len(s.agents))
	for i, a := range s.agents {
		done, total := a.Progress()
		out[i] = AgentProgress{
			ID:       a.ID(),
			Status:   a.Status(),
			Episode:  done,
			Episodes: total,
		}
	}
	return out
}

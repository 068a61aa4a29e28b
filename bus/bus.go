package bus

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"time"

	"github.com/zeu5/dist-qlearning/types"
)

// Common errors.
var (
	ErrClosed      = errors.New("bus closed")
	ErrSendTimeout = errors.New("send timeout")
)

// Config holds the bus configuration.
type Config struct {
	// Capacity of the queue. Send blocks while the queue is full.
	// Default: 100
	Capacity int

	// SendTimeout bounds how long Send waits for space.
	// Zero waits until the context is done.
	SendTimeout time.Duration
}

// DefaultConfig returns configuration with sensible defaults.
func DefaultConfig() Config {
	return Config{
		Capacity: 100,
	}
}

// Bus is a bounded FIFO queue of transitions shared by all agents.
//
// Any number of goroutines may Send. Receiving is exclusive per call: each
// transition is observed by exactly one Receive or TryReceive.
type Bus struct {
	config Config
	queue  chan types.Transition

	// mu guards closed. Senders hold the read lock while enqueuing so that
	// once closed is set no transition can be enqueued.
	mu      sync.RWMutex
	closed  bool
	closing chan struct{}
	sealed  chan struct{}
	once    sync.Once

	sent         atomic.Int64
	received     atomic.Int64
	sendFailures atomic.Int64
}

var _ types.Publisher = &Bus{}

// New creates a new bus.
func New(cfg Config) *Bus {
	if cfg.Capacity <= 0 {
		cfg.Capacity = DefaultConfig().Capacity
	}
	return &Bus{
		config:  cfg,
		queue:   make(chan types.Transition, cfg.Capacity),
		closing: make(chan struct{}),
		sealed:  make(chan struct{}),
	}
}

// Send enqueues a copy of t, waiting for space while the queue is full.
func (b *Bus) Send(ctx context.Context, t types.Transition) error {
	b.mu.RLock()
	defer b.mu.RUnlock()
	if b.closed {
		b.sendFailures.Add(1)
		return ErrClosed
	}

	// fast path, no timer needed when there is room
	select {
	case b.queue <- t:
		b.sent.Add(1)
		return nil
	default:
	}

	var timeout <-chan time.Time
	if b.config.SendTimeout > 0 {
		timer := time.NewTimer(b.config.SendTimeout)
		defer timer.Stop()
		timeout = timer.C
	}

	select {
	case b.queue <- t:
		b.sent.Add(1)
		return nil
	case <-b.closing:
		b.sendFailures.Add(1)
		return ErrClosed
	case <-ctx.Done():
		b.sendFailures.Add(1)
		return ctx.Err()
	case <-timeout:
		b.sendFailures.Add(1)
		return ErrSendTimeout
	}
}

// Publish implements types.Publisher
func (b *Bus) Publish(ctx context.Context, t types.Transition) error {
	return b.Send(ctx, t)
}

// TryReceive dequeues the oldest transition without blocking.
func (b *Bus) TryReceive() (types.Transition, bool) {
	select {
	case t := <-b.queue:
		b.received.Add(1)
		return t, true
	default:
		return types.Transition{}, false
	}
}

// Receive dequeues the oldest transition, waiting for one to arrive.
// Once the bus is closed the remaining transitions are still returned,
// then ErrClosed.
func (b *Bus) Receive(ctx context.Context) (types.Transition, error) {
	select {
	case t := <-b.queue:
		b.received.Add(1)
		return t, nil
	case <-b.sealed:
		if t, ok := b.TryReceive(); ok {
			return t, nil
		}
		return types.Transition{}, ErrClosed
	case <-ctx.Done():
		return types.Transition{}, ctx.Err()
	}
}

// Close stops accepting transitions. Senders waiting for space return
// ErrClosed. Transitions already queued can still be received.
func (b *Bus) Close() error {
	b.once.Do(func() {
		close(b.closing)
		b.mu.Lock()
		b.closed = true
		b.mu.Unlock()
		close(b.sealed)
	})
	return nil
}

// Len is the number of queued transitions
func (b *Bus) Len() int {
	return len(b.queue)
}

func (b *Bus) Cap() int {
	return cap(b.queue)
}

// Counters of the bus. Delivery counters are filled in by the dispatcher.
type Stats struct {
	Sent         int64 `json:"sent"`
	Received     int64 `json:"received"`
	SendFailures int64 `json:"send_failures"`
	Delivered    int64 `json:"delivered"`
	Dropped      int64 `json:"dropped"`
	SinkErrors   int64 `json:"sink_errors"`
}

func (b *Bus) Stats() Stats {
	return Stats{
		Sent:         b.sent.Load(),
		Received:     b.received.Load(),
		SendFailures: b.sendFailures.Load(),
	}
}

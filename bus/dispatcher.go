package bus

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"
	"sync"
	"sync/atomic"

	"github.com/zeu5/dist-qlearning/types"
)

var ErrUnknownDelivery = errors.New("unknown delivery mode")

// Delivery decides which subscribers receive a transition
type Delivery string

const (
	// DeliverQueue hands each transition to one subscriber other than its
	// producer, round-robin.
	DeliverQueue Delivery = "queue"
	// DeliverBroadcast hands a copy to every subscriber other than its producer.
	DeliverBroadcast Delivery = "broadcast"
	// DeliverNone only forwards to the sinks.
	DeliverNone Delivery = "none"
)

func ParseDelivery(s string) (Delivery, error) {
	switch d := Delivery(s); d {
	case DeliverQueue, DeliverBroadcast, DeliverNone:
		return d, nil
	case "":
		return DeliverQueue, nil
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownDelivery, s)
}

// Sink consumes every transition leaving the bus, in dispatch order.
// Write is only ever called from the dispatcher goroutine.
type Sink interface {
	Write(ctx context.Context, t types.Transition) error
	Close() error
}

// Dispatcher is the single consumer of a Bus. It forwards every transition
// to the sinks and fans it out to the private subscriptions of the workers.
// Deliveries never block: a full mailbox drops the transition.
type Dispatcher struct {
	bus      *Bus
	delivery Delivery
	sinks    []Sink
	logger   *log.Logger

	mu   sync.RWMutex
	subs []*Subscription
	next int

	delivered  atomic.Int64
	dropped    atomic.Int64
	sinkErrors atomic.Int64
	sinkFailed map[int]bool
}

func NewDispatcher(b *Bus, delivery Delivery, logger *log.Logger, sinks ...Sink) *Dispatcher {
	if logger == nil {
		logger = log.New(os.Stderr, "[dispatcher] ", log.LstdFlags)
	}
	if delivery == "" {
		delivery = DeliverQueue
	}
	return &Dispatcher{
		bus:        b,
		delivery:   delivery,
		sinks:      sinks,
		logger:     logger,
		subs:       make([]*Subscription, 0),
		sinkFailed: make(map[int]bool),
	}
}

// Subscribe creates the private mailbox of a worker
func (d *Dispatcher) Subscribe(id, capacity int) *Subscription {
	if capacity <= 0 {
		capacity = d.bus.Cap()
	}
	sub := &Subscription{
		ID: id,
		ch: make(chan types.Transition, capacity),
	}
	d.mu.Lock()
	d.subs = append(d.subs, sub)
	d.mu.Unlock()
	return sub
}

// Unsubscribe stops deliveries to the subscription
func (d *Dispatcher) Unsubscribe(target *Subscription) {
	d.mu.Lock()
	defer d.mu.Unlock()
	for i, sub := range d.subs {
		if sub == target {
			d.subs = append(d.subs[:i], d.subs[i+1:]...)
			break
		}
	}
}

// Run consumes the bus until it is closed and drained or ctx is done.
// The sinks are closed before returning.
func (d *Dispatcher) Run(ctx context.Context) error {
	defer d.closeSinks()
	for {
		t, err := d.bus.Receive(ctx)
		if errors.Is(err, ErrClosed) {
			return nil
		}
		if err != nil {
			return err
		}
		d.dispatch(ctx, t)
	}
}

func (d *Dispatcher) dispatch(ctx context.Context, t types.Transition) {
	for i, s := range d.sinks {
		if err := s.Write(ctx, t); err != nil {
			d.sinkErrors.Add(1)
			if !d.sinkFailed[i] {
				d.sinkFailed[i] = true
				d.logger.Printf("sink %d (%T) failed, continuing: %v", i, s, err)
			}
		}
	}

	switch d.delivery {
	case DeliverQueue:
		d.deliverToOne(t)
	case DeliverBroadcast:
		d.deliverToAll(t)
	}
}

func (d *Dispatcher) deliverToAll(t types.Transition) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	for _, sub := range d.subs {
		if sub.ID == t.AgentID {
			continue
		}
		if sub.offer(t) {
			d.delivered.Add(1)
		} else {
			d.dropped.Add(1)
		}
	}
}

// deliverToOne tries the subscribers round-robin until one accepts.
// The producer only gets its own transition back when it is alone.
func (d *Dispatcher) deliverToOne(t types.Transition) {
	d.mu.Lock()
	defer d.mu.Unlock()
	n := len(d.subs)
	if n == 0 {
		return
	}
	for k := 0; k < n; k++ {
		sub := d.subs[(d.next+k)%n]
		if sub.ID == t.AgentID && n > 1 {
			continue
		}
		if sub.offer(t) {
			d.next = (d.next + k + 1) % n
			d.delivered.Add(1)
			return
		}
	}
	d.dropped.Add(1)
}

func (d *Dispatcher) closeSinks() {
	for i, s := range d.sinks {
		if err := s.Close(); err != nil {
			d.logger.Printf("closing sink %d (%T): %v", i, s, err)
		}
	}
}

// Stats returns the bus counters together with the delivery counters
func (d *Dispatcher) Stats() Stats {
	stats := d.bus.Stats()
	stats.Delivered = d.delivered.Load()
	stats.Dropped = d.dropped.Load()
	stats.SinkErrors = d.sinkErrors.Load()
	return stats
}

// Subscription is the private receiving end of one worker
type Subscription struct {
	ID int
	ch chan types.Transition
}

var _ types.Inbox = &Subscription{}

func (s *Subscription) offer(t types.Transition) bool {
	select {
	case s.ch <- t:
		return true
	default:
		return false
	}
}

// TryReceive returns the oldest delivered transition without blocking
func (s *Subscription) TryReceive() (types.Transition, bool) {
	select {
	case t := <-s.ch:
		return t, true
	default:
		return types.Transition{}, false
	}
}

// Len is the number of transitions waiting in the mailbox
func (s *Subscription) Len() int {
	return len(s.ch)
}

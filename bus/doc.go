// Package bus carries the transitions observed by the agents.
//
// # Overview
//
// A Bus is a bounded FIFO queue. Every agent sends its transitions to the
// same Bus; Send blocks while the queue is full, which keeps producers from
// running arbitrarily far ahead of consumption. Transitions of a single
// producer leave the queue in the order they were sent.
//
// # Consumption
//
// The receiving end of the Bus is owned by one Dispatcher goroutine:
//
//	b := bus.New(bus.Config{Capacity: 100})
//	d := bus.NewDispatcher(b, bus.DeliverQueue, nil, sinks...)
//	sub := d.Subscribe(agentID, 0)
//	go d.Run(ctx)
//
//	// in the worker
//	b.Send(ctx, t)
//	for t, ok := sub.TryReceive(); ok; t, ok = sub.TryReceive() {
//	    // handle t
//	}
//
// Workers never hold the receiving end of the Bus; each drains its own
// Subscription. In queue mode a transition reaches at most one subscriber,
// in broadcast mode every subscriber other than its producer.
//
// # Sinks
//
// Sinks see every transition in dispatch order: JSONLSink appends to a file,
// RedisSink adds to a Redis stream and MQTTSink publishes on a per-agent
// topic. A failing sink is logged once and counted, it never stops the
// dispatcher.
package bus

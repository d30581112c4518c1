// SPDX-License-Identifier: Apache-2.0

package actio

// chanWaiter is one parked [Recv] activation waiting for a value.
type chanWaiter[V any] struct {
	m       *Orchestrator
	succeed Success[V]
}

// Channel is a FIFO queue of items paired with a FIFO queue of parked
// receivers.
//
// A Channel's item and waiter queues are plain slices, not
// mutex-guarded: [Channel.Send] and [Channel.Recv] are themselves
// [Action]s, so their bodies only ever run inside [Call],
// on whichever orchestrator's single worker goroutine dispatched them —
// the same single-goroutine argument [scheduler] rests on. Callers
// operating a Channel across independently created orchestrators must
// ensure they share a common scheduler (via [Orchestrator.Child]) for
// this to hold; using a raw new [Orchestrator] per side is a
// programming error, the same way it would be to share any other
// worker-goroutine-confined state across schedulers.
type Channel[V any] struct {
	items   []V
	waiters []chanWaiter[V]
}

// Chan returns a new, empty [*Channel].
func Chan[V any]() *Channel[V] {
	return &Channel[V]{}
}

// Send returns an action that enqueues x on c, then delivers it to the
// oldest parked [Recv] if one is waiting.
//
// Delivery to a waiting receiver is always scheduled via [NextTick]
// rather than invoked inline, so receipt is always asynchronous with
// respect to send, even when a receiver was already parked at send
// time.
func (c *Channel[V]) Send(x V) Action[V] {
	return func(m *Orchestrator, input V, succeed Success[V], _ Failure[V]) {
		if len(c.waiters) > 0 {
			w := c.waiters[0]
			c.waiters = c.waiters[1:]
			NextTick(w.m, func() { w.succeed(x) })
		} else {
			c.items = append(c.items, x)
		}
		succeed(input)
	}
}

// Recv returns an action that dequeues the oldest item on c and
// delivers it to success, or parks its own success continuation as a
// waiter (delivered later by a matching [Channel.Send]) if c is
// currently empty.
func (c *Channel[V]) Recv() Action[V] {
	return func(m *Orchestrator, _ V, succeed Success[V], _ Failure[V]) {
		if len(c.items) > 0 {
			v := c.items[0]
			c.items = c.items[1:]
			NextTick(m, func() { succeed(v) })
			return
		}
		c.waiters = append(c.waiters, chanWaiter[V]{m: m, succeed: succeed})
	}
}

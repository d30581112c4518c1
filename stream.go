// SPDX-License-Identifier: Apache-2.0

package actio

import (
	"errors"
	"sync"
	"time"
)

// Pause returns an action that immediately delivers a fresh
// [*PauseCondition] to its failure continuation. It
// is the primitive building block backpressure-aware producers raise;
// [Gen] is the one built-in consumer that recognizes and reacts to it.
func Pause[V any]() Action[V] {
	return func(m *Orchestrator, input V, succeed Success[V], fail Failure[V]) {
		fail(newIOError(m, &PauseCondition{}, input, succeed, fail))
	}
}

// Gen returns a self-driving action that repeatedly calls produce and
// feeds every value it yields into consumer, one at a time, stopping
// only when produce reports ok=false (a typed end-of-stream signal) or
// when consumer fails with something other than a [*PauseCondition].
//
// Gen is a deliberate, documented exception to [Action]'s usual
// "succeed or fail at most once" contract: its own succeed continuation
// fires once per produced item, for as long as the stream runs. A
// generic Action[V] link spliced into a [Chain] cannot observe a
// failure raised several stages further downstream, since [Success]
// carries no failure channel of its own — so Gen takes its consumer
// explicitly, and dispatches it itself wrapped in a [Catch], which is
// the only place in this kernel where that wiring is actually
// reachable. When consumer raises a [*PauseCondition], Gen registers
// its own resumption as the condition's resume callback and stops
// producing until it fires; any other failure stops the generator and
// is delivered to Gen's own failure continuation.
//
// Every bufferCapacity items (per [Orchestrator.BufferCapacity]), Gen
// yields to the scheduler via [Delay] instead of [NextTick] — a burst
// budget so a fast producer can't starve the worker goroutine of
// everything else queued behind it.
func Gen[V any](produce func() (V, bool), delay time.Duration, consumer Action[V]) Action[V] {
	return func(m *Orchestrator, _ V, succeed Success[V], fail Failure[V]) {
		count := 0
		var step func()

		scheduleNext := func() {
			count++
			if count >= m.BufferCapacity() {
				count = 0
				Delay(m, delay, step)
				return
			}
			NextTick(m, step)
		}

		step = func() {
			v, ok := produce()
			if !ok {
				return
			}
			Call(m, Catch(consumer, func(_ *Orchestrator, ioerr *IOError[V], _ Success[V], _ Failure[V]) {
				var pause *PauseCondition
				if errors.As(ioerr.Err, &pause) {
					pause.OnResume(func() { NextTick(m, step) })
					return
				}
				fail(ioerr)
			}), v, func(out V) {
				succeed(out)
				scheduleNext()
			}, Drain[*IOError[V]])
		}

		step()
	}
}

// Spray drains the finite slice items through [Gen], into consumer, in
// order, then stops.
func Spray[V any](items []V, delay time.Duration, consumer Action[V]) Action[V] {
	i := 0
	return Gen(func() (V, bool) {
		if i >= len(items) {
			var zero V
			return zero, false
		}
		v := items[i]
		i++
		return v, true
	}, delay, consumer)
}

// Cycle drains items through [Gen] into consumer forever, wrapping back
// to the start once exhausted. An empty items ends the stream
// immediately.
func Cycle[V any](items []V, delay time.Duration, consumer Action[V]) Action[V] {
	i := 0
	return Gen(func() (V, bool) {
		if len(items) == 0 {
			var zero V
			return zero, false
		}
		v := items[i%len(items)]
		i++
		return v, true
	}, delay, consumer)
}

// EnumFrom drains a numeric sequence starting at from, advancing by
// step each item, through [Gen] into consumer. A nil to produces an
// infinite sequence; otherwise the sequence stops once it would step
// past to (inclusive of to itself).
func EnumFrom(from, step int, to *int, delay time.Duration, consumer Action[int]) Action[int] {
	cur := from
	return Gen(func() (int, bool) {
		if to != nil {
			if step >= 0 && cur > *to {
				return 0, false
			}
			if step < 0 && cur < *to {
				return 0, false
			}
		}
		v := cur
		cur += step
		return v, true
	}, delay, consumer)
}

// CollectUntil returns an action that forwards every input it sees
// unchanged to success, while also appending it to an internal list,
// until test(input) holds — at which point it deliberately stops
// (neither continuation is invoked), ending whatever [Chain] it sits
// in. The accumulated list up to (not including) the matching item is
// available afterward through the returned accessor.
//
// This keeps CollectUntil an Action[V] so it composes directly inside a
// homogeneously typed [Chain] (chaining it directly after a [Reduce] is
// a common pipeline-sum shape); the running-list behavior is exposed
// separately via the accessor rather than as CollectUntil's own success
// value, since a Chain[V] can't carry both V and []V through the same
// link.
func CollectUntil[V any](test func(V) bool) (action Action[V], collected func() []V) {
	var mu sync.Mutex
	var items []V

	action = func(_ *Orchestrator, input V, succeed Success[V], _ Failure[V]) {
		if test != nil && test(input) {
			return
		}
		mu.Lock()
		items = append(items, input)
		mu.Unlock()
		succeed(input)
	}

	collected = func() []V {
		mu.Lock()
		defer mu.Unlock()
		return append([]V{}, items...)
	}

	return action, collected
}

// ClockControl is the typed control alphabet [Clock] accepts, in place
// of a stringly-typed "start"/"stop"/"reset" input.
type ClockControl int

const (
	ClockStart ClockControl = iota
	ClockStop
	ClockReset
)

// clockState is the small record a [Clock] instance's closures share.
type clockState struct {
	mu      sync.Mutex
	running bool
	counter int
	timer   *time.Timer
}

// Clock returns a control action over a periodic ticker: [ClockStart]
// begins delivering tick(i) — dispatched fire-and-forget against a
// [Drain] pair, once per period — [ClockStop] halts delivery, and
// [ClockReset] zeroes the counter for the next tick. Clock is not
// self-throttling: if tick's own action doesn't complete within one
// period, ticks simply overlap.
func Clock(period time.Duration, tick func(int) Action[any]) Action[ClockControl] {
	st := &clockState{}

	var loop func(m *Orchestrator)
	loop = func(m *Orchestrator) {
		st.timer = time.AfterFunc(period, func() {
			st.mu.Lock()
			if !st.running {
				st.mu.Unlock()
				return
			}
			i := st.counter
			st.counter++
			st.mu.Unlock()

			NextTick(m, func() {
				Call(m, tick(i), any(nil), Drain[any], Drain[*IOError[any]])
			})
			loop(m)
		})
	}

	return func(m *Orchestrator, input ClockControl, succeed Success[ClockControl], _ Failure[ClockControl]) {
		switch input {
		case ClockStart:
			st.mu.Lock()
			already := st.running
			st.running = true
			st.mu.Unlock()
			if !already {
				loop(m)
			}
		case ClockStop:
			st.mu.Lock()
			st.running = false
			if st.timer != nil {
				st.timer.Stop()
			}
			st.mu.Unlock()
		case ClockReset:
			st.mu.Lock()
			st.counter = 0
			st.mu.Unlock()
		}
		succeed(input)
	}
}

// debounceState is the small record one [Debounce] instance's closures
// share.
type debounceState[V any] struct {
	mu    sync.Mutex
	timer *time.Timer
}

// Debounce delays forwarding to success until d has elapsed with no
// further activations; each new activation cancels whatever timer is
// still pending and starts a fresh one with its own input.
func Debounce[V any](d time.Duration) Action[V] {
	st := &debounceState[V]{}
	return func(m *Orchestrator, input V, succeed Success[V], _ Failure[V]) {
		st.mu.Lock()
		if st.timer != nil {
			st.timer.Stop()
		}
		st.timer = time.AfterFunc(d, func() {
			NextTick(m, func() { succeed(input) })
		})
		st.mu.Unlock()
	}
}

// SPDX-License-Identifier: Apache-2.0

package actio

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"
)

// ErrAnyEmpty is raised by [Any] when called with no branches.
var ErrAnyEmpty = errors.New("actio: any: no branches")

// ErrAltExhausted is raised by [Alt] when every branch has failed.
var ErrAltExhausted = errors.New("actio: alt: all branches failed")

// ErrAltEmpty is raised by [Alt] when called with no branches.
var ErrAltEmpty = errors.New("actio: alt: no branches")

// ErrInterrupted is the error an [Interruptible] or [Interruption]
// delivers to a pending handler when fired.
var ErrInterrupted = errors.New("actio: interrupted")

// Result is one branch's outcome from [Fork]: exactly one of Value or
// Err is meaningful, distinguished by Err being nil.
type Result[V any] struct {
	Value V
	Err   error
}

// ForkOptions bounds the concurrency [Fork] and [Any] use to run their
// branches.
type ForkOptions struct {
	// Limit is passed to errgroup.Group.SetLimit. It bounds only the
	// goroutines that queue each branch's dispatch; those return as soon
	// as the dispatch is queued, so Limit does not cap how many branches
	// are in flight at once. Zero means no limit.
	Limit int
}

// Fork runs every branch in as against the same input, simultaneously,
// and succeeds with their [Result]s in branch order once all have
// reported back — this is a [Transform] rather than an [Action] because
// its output type ([]Result[V]) differs from its input type (V), the
// same reason [Handler] is a Transform.
//
// Each branch is handed its own child [*Orchestrator] (so trampoline
// depth is never shared across branches) and its initial dispatch is
// scheduled via [NextTick] rather than called directly, so the branch's
// synchronous body still runs on the scheduler's single worker
// goroutine instead of on a goroutine errgroup.Group.Go spawns —
// "simultaneous" here means cooperatively interleaved, not concurrent
// at the OS level. errgroup is kept only for its SetLimit bookkeeping.
// Results are written back via a further [NextTick], so the
// index-ordered result array and the completion count are never raced.
// Fork fails only if every branch fails, wrapping the first branch's
// error; a partial failure is visible to the caller through each
// Result's Err field.
func Fork[V any](as ...Action[V]) Transform[V, []Result[V]] {
	return ForkWith(ForkOptions{}, as...)
}

// ForkWith is [Fork] with an explicit [ForkOptions].
func ForkWith[V any](opts ForkOptions, as ...Action[V]) Transform[V, []Result[V]] {
	return func(m *Orchestrator, input V, succeed Success[[]Result[V]], fail Failure[[]Result[V]]) {
		n := len(as)
		if n == 0 {
			succeed(nil)
			return
		}

		results := make([]Result[V], n)
		remaining := n

		var group errgroup.Group
		if opts.Limit > 0 {
			group.SetLimit(opts.Limit)
		}

		for i, a := range as {
			i, a := i, a
			branch := m.Child()
			group.Go(func() error {
				NextTick(branch, func() {
					Call(branch, a, input, func(v V) {
						NextTick(m, func() {
							results[i] = Result[V]{Value: v}
							remaining--
							if remaining == 0 {
								finishFork(m, results, succeed, fail)
							}
						})
					}, func(ioerr *IOError[V]) {
						NextTick(m, func() {
							results[i] = Result[V]{Err: ioerr.Err}
							remaining--
							if remaining == 0 {
								finishFork(m, results, succeed, fail)
							}
						})
					})
				})
				return nil
			})
		}
	}
}

func finishFork[V any](m *Orchestrator, results []Result[V], succeed Success[[]Result[V]], fail Failure[[]Result[V]]) {
	for _, r := range results {
		if r.Err == nil {
			succeed(results)
			return
		}
	}
	fail(newIOError(m, results[0].Err, results, succeed, fail))
}

// Tee dispatches action on a fresh child orchestrator and immediately
// succeeds with its own input, without waiting for action to finish.
//
// action's own outcome is discarded (run against [Drain] on both
// paths) — Tee is for branching off a side effect (an audit write, a
// notification) that must not slow down or fail the main sequence.
func Tee[V any](action Action[V]) Action[V] {
	return func(m *Orchestrator, input V, succeed Success[V], _ Failure[V]) {
		branch := m.Child()
		NextTick(branch, func() {
			Call(branch, action, input, Drain[V], Drain[*IOError[V]])
		})
		succeed(input)
	}
}

// Any runs every branch in as against the same input, simultaneously,
// and succeeds with the first one to succeed. Once a winner is chosen,
// later branches' results are dropped — cancellation is cooperative at
// the continuation level only, since [Action] carries no
// context.Context for Any to cancel branches with. If every branch
// fails, Any raises the last error observed.
//
// As with [Fork], each branch's initial dispatch is scheduled via
// [NextTick] on its own child [*Orchestrator] rather than called
// directly from the goroutine errgroup.Group.Go spawns, so the branch's
// body still runs on the scheduler's single worker goroutine. errgroup
// is kept only for its SetLimit bookkeeping; the decided flag and
// remaining counter are only ever touched from inside a further
// NextTick back onto the parent, so they never race.
func Any[V any](as ...Action[V]) Action[V] {
	return AnyWith(ForkOptions{}, as...)
}

// AnyWith is [Any] with an explicit [ForkOptions].
func AnyWith[V any](opts ForkOptions, as ...Action[V]) Action[V] {
	return func(m *Orchestrator, input V, succeed Success[V], fail Failure[V]) {
		n := len(as)
		if n == 0 {
			Call(m, Raise[V](ErrAnyEmpty), input, succeed, fail)
			return
		}

		var group errgroup.Group
		if opts.Limit > 0 {
			group.SetLimit(opts.Limit)
		}

		decided := false
		remaining := n
		var lastErr error

		for _, a := range as {
			a := a
			branch := m.Child()
			group.Go(func() error {
				NextTick(branch, func() {
					Call(branch, a, input, func(v V) {
						NextTick(m, func() {
							if decided {
								return
							}
							decided = true
							succeed(v)
						})
					}, func(ioerr *IOError[V]) {
						NextTick(m, func() {
							remaining--
							lastErr = ioerr.Err
							if !decided && remaining == 0 {
								decided = true
								Call(m, Raise[V](lastErr), input, succeed, fail)
							}
						})
					})
				})
				return nil
			})
		}
	}
}

// Alt tries each branch against input in order, proceeding with the
// first to succeed. A branch's failure is silently discarded in favor
// of trying the next one; if every branch fails, Alt raises
// [ErrAltExhausted].
//
// Unlike [Any], Alt's branches run sequentially, one at a time — this is
// the cooperative fallback-chain form, with no concurrency and no
// dependency on errgroup.
func Alt[V any](as ...Action[V]) Action[V] {
	return func(m *Orchestrator, input V, succeed Success[V], fail Failure[V]) {
		if len(as) == 0 {
			Call(m, Raise[V](ErrAltEmpty), input, succeed, fail)
			return
		}
		var tryAt func(i int)
		tryAt = func(i int) {
			if i == len(as) {
				Call(m, Raise[V](ErrAltExhausted), input, succeed, fail)
				return
			}
			Call(m, as[i], input, succeed, func(*IOError[V]) {
				tryAt(i + 1)
			})
		}
		tryAt(0)
	}
}

// Timeout races action against a d-long watchdog. If action reports
// back first, the watchdog is suppressed and action's outcome passes
// through unchanged. If the watchdog fires first, onTimeout runs
// instead, receiving the whole Timeout action as its input so it may
// choose to restart the operation by calling it again.
//
// Cancellation here is continuation-level only: action is not
// preempted when the watchdog fires, it simply runs to completion on
// its own child orchestrator with its result discarded.
func Timeout[V any](d time.Duration, action Action[V], onTimeout Transform[Action[V], V]) Action[V] {
	var self Action[V]
	self = func(m *Orchestrator, input V, succeed Success[V], fail Failure[V]) {
		var mu sync.Mutex
		fired := false
		claim := func() bool {
			mu.Lock()
			defer mu.Unlock()
			if fired {
				return false
			}
			fired = true
			return true
		}

		timer := time.AfterFunc(d, func() {
			NextTick(m, func() {
				if claim() {
					CallTransform(m, onTimeout, self, succeed, fail)
				}
			})
		})

		branch := m.Child()
		NextTick(branch, func() {
			Call(branch, action, input, func(v V) {
				NextTick(m, func() {
					if claim() {
						timer.Stop()
						succeed(v)
					}
				})
			}, func(ioerr *IOError[V]) {
				NextTick(m, func() {
					if claim() {
						timer.Stop()
						fail(ioerr)
					}
				})
			})
		})
	}
	return self
}

// syncGate is the shared record behind one [Sync] pair's now/later
// closures.
type syncGate[V any] struct {
	mu        sync.Mutex
	remaining int
	fired     bool
	parkedM   *Orchestrator
	parked    Success[V]
}

// Sync returns a (now, later) pair of actions sharing a countdown of n.
// now parks its own success continuation without calling it; each call
// to later decrements the countdown, and once it reaches zero, now's
// parked continuation fires with later's most recent input. now and
// later may be called from different branches of a concurrent sequence
// (e.g. the two sides of a [Fork]), so the countdown is guarded by a
// mutex rather than relying on single-goroutine dispatch.
func Sync[V any](n int) (now Action[V], later Action[V]) {
	gate := &syncGate[V]{remaining: n}

	now = func(m *Orchestrator, input V, succeed Success[V], _ Failure[V]) {
		gate.mu.Lock()
		if gate.remaining <= 0 {
			gate.mu.Unlock()
			NextTick(m, func() { succeed(input) })
			return
		}
		gate.parkedM = m
		gate.parked = succeed
		gate.mu.Unlock()
	}

	later = func(m *Orchestrator, input V, succeed Success[V], _ Failure[V]) {
		gate.mu.Lock()
		gate.remaining--
		var release Success[V]
		var releaseM *Orchestrator
		if gate.remaining <= 0 && !gate.fired && gate.parked != nil {
			gate.fired = true
			release = gate.parked
			releaseM = gate.parkedM
		}
		gate.mu.Unlock()

		if release != nil {
			NextTick(releaseM, func() { release(input) })
		}
		succeed(input)
	}

	return now, later
}

// InterruptibleAction pairs a long-running action with the action that
// interrupts it, as returned by [Interruptible].
type InterruptibleAction[V any] struct {
	// Action is the wrapped operation; run it as usual.
	Action Action[V]
	// Interrupt fires every cleanup registered via onInterrupt and
	// raises [ErrInterrupted] into Action's most recent failure
	// continuation. Firing Interrupt after Action has already
	// completed is a no-op.
	Interrupt Action[V]
}

// Interruptible builds an action whose cancellation is driven by a
// user-supplied builder rather than a fixed watchdog (contrast
// [Timeout]). builder receives onInterrupt, a registration hook: call
// it with a cleanup closure for every resource that must be released if
// the action is interrupted mid-flight (a subprocess, a subscription).
//
// The returned Interrupt is idempotent and guarded by a done flag, so
// firing it after the action has already completed — or firing it
// twice — has no additional effect.
func Interruptible[V any](builder func(onInterrupt func(cleanup func())) Action[V]) InterruptibleAction[V] {
	var mu sync.Mutex
	var cleanups []func()
	done := false

	var lastM *Orchestrator
	var lastInput V
	var lastFail Failure[V]

	onInterrupt := func(cleanup func()) {
		mu.Lock()
		cleanups = append(cleanups, cleanup)
		mu.Unlock()
	}

	inner := builder(onInterrupt)

	action := func(m *Orchestrator, input V, succeed Success[V], fail Failure[V]) {
		mu.Lock()
		lastM, lastInput, lastFail = m, input, fail
		mu.Unlock()

		Call(m, inner, input, func(v V) {
			mu.Lock()
			done = true
			mu.Unlock()
			succeed(v)
		}, func(ioerr *IOError[V]) {
			mu.Lock()
			done = true
			mu.Unlock()
			fail(ioerr)
		})
	}

	interrupt := func(_ *Orchestrator, input V, succeed Success[V], _ Failure[V]) {
		mu.Lock()
		if done {
			mu.Unlock()
			succeed(input)
			return
		}
		done = true
		cbs := cleanups
		cleanups = nil
		m, in, fl := lastM, lastInput, lastFail
		mu.Unlock()

		for _, cb := range cbs {
			cb()
		}
		if fl != nil && m != nil {
			NextTick(m, func() {
				Call(m, Raise[V](ErrInterrupted), in, Drain[V], fl)
			})
		}
		succeed(input)
	}

	return InterruptibleAction[V]{Action: action, Interrupt: interrupt}
}

// interruptionTable is the shared registry behind one [Interruption]'s
// mark/interrupt pair.
type interruptionTable struct {
	mu       sync.Mutex
	nextID   int
	handlers map[int]func()
}

// Interruption returns a (mark, interrupt) pair over a shared table,
// for fan-out cancellation across independent, otherwise unrelated
// sequences — contrast [Interruptible], which cancels one specific
// action.
//
// mark registers a handler under a unique id and proceeds with its
// input unchanged; interrupt fires every currently registered handler,
// each delivering [ErrInterrupted] (wrapping reason) to the failure
// continuation captured when its mark ran, then clears the table.
func Interruption(reason string) (mark Action[any], interrupt Action[any]) {
	tbl := &interruptionTable{handlers: map[int]func(){}}
	interruptErr := fmt.Errorf("%w: %s", ErrInterrupted, reason)

	mark = func(m *Orchestrator, input any, succeed Success[any], fail Failure[any]) {
		tbl.mu.Lock()
		id := tbl.nextID
		tbl.nextID++
		tbl.handlers[id] = func() {
			NextTick(m, func() {
				Call(m, Raise[any](interruptErr), input, Drain[any], fail)
			})
		}
		tbl.mu.Unlock()
		succeed(input)
	}

	interrupt = func(_ *Orchestrator, input any, succeed Success[any], _ Failure[any]) {
		tbl.mu.Lock()
		handlers := tbl.handlers
		tbl.handlers = map[int]func(){}
		tbl.mu.Unlock()
		for _, h := range handlers {
			h()
		}
		succeed(input)
	}

	return mark, interrupt
}

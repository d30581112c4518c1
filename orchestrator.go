// SPDX-License-Identifier: Apache-2.0

package actio

import (
	"fmt"
	"log"
	"log/slog"
)

// defaultMaxDepth bounds synchronous call depth before the trampoline
// reschedules onto the next tick.
const defaultMaxDepth = 50

// defaultBufferCapacity is the default bound used by [Atomic] and
// [Gen]'s burst budget when an [Orchestrator] doesn't override it via
// [WithBufferCapacity].
const defaultBufferCapacity = 8

// Orchestrator is the engine that dispatches actions, bounds
// trampoline depth, and owns the single worker goroutine that backs
// [NextTick] and [Delay].
//
// The zero value is not usable; construct one with [New]. A derived
// orchestrator obtained from [Orchestrator.Child] shares its parent's
// scheduler and buffer capacity but carries its own depth counter,
// name stack, and trace — a child orchestrator may be derived
// (structural inheritance) to carry per-invocation context, such as
// session state or an interrupt flag.
type Orchestrator struct {
	depth          int
	maxDepth       int
	bufferCapacity int
	sched          *scheduler
	names          []string
	trace          *trace
	logger         *log.Logger
	slogger        *slog.Logger
}

// Option configures a new [Orchestrator].
type Option func(*Orchestrator)

// WithMaxDepth overrides the trampoline's synchronous depth bound.
func WithMaxDepth(n int) Option {
	return func(m *Orchestrator) { m.maxDepth = n }
}

// WithBufferCapacity overrides the bound used by [Atomic]'s waiter
// queue and [Gen]'s burst budget.
func WithBufferCapacity(n int) Option {
	return func(m *Orchestrator) { m.bufferCapacity = n }
}

// New returns a fresh [*Orchestrator] with its own worker goroutine.
func New(opts ...Option) *Orchestrator {
	m := &Orchestrator{
		maxDepth:       defaultMaxDepth,
		bufferCapacity: defaultBufferCapacity,
		sched:          newScheduler(),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Child derives a new orchestrator that shares this one's scheduler,
// depth bound, and buffer capacity, but starts with a fresh depth
// counter and inherits the name stack and trace.
//
// This is the structural-inheritance hook: a tracing decorator
// ([Traced]) or an application-level session-expiry decorator wraps the
// returned orchestrator's dispatch without affecting the parent.
func (m *Orchestrator) Child() *Orchestrator {
	return &Orchestrator{
		maxDepth:       m.maxDepth,
		bufferCapacity: m.bufferCapacity,
		sched:          m.sched,
		names:          append([]string{}, m.names...),
		trace:          m.trace,
		logger:         m.logger,
		slogger:        m.slogger,
	}
}

// BufferCapacity returns the bound used by [Atomic] and [Gen].
func (m *Orchestrator) BufferCapacity() int { return m.bufferCapacity }

// pushName returns a derived orchestrator with name appended to the
// name stack, used by [Named] and its siblings.
func (m *Orchestrator) pushName(name string) *Orchestrator {
	child := m.Child()
	child.names = append(child.names, name)
	return child
}

// Names returns a copy of the current name stack.
func (m *Orchestrator) Names() []string {
	return append([]string{}, m.names...)
}

// pushLogger returns a derived orchestrator carrying logger, used by
// [WithLogger].
func (m *Orchestrator) pushLogger(logger *log.Logger) *Orchestrator {
	child := m.Child()
	child.logger = logger
	return child
}

// Logger returns the [*log.Logger] configured on m by [WithLogger], or
// [log.Default] if none was set.
func (m *Orchestrator) Logger() *log.Logger {
	if m.logger == nil {
		return log.Default()
	}
	return m.logger
}

// pushSlogger returns a derived orchestrator carrying slogger, used by
// [WithSlogger].
func (m *Orchestrator) pushSlogger(slogger *slog.Logger) *Orchestrator {
	child := m.Child()
	child.slogger = slogger
	return child
}

// Slogger returns the [*slog.Logger] configured on m by [WithSlogger],
// or [slog.Default] if none was set.
func (m *Orchestrator) Slogger() *slog.Logger {
	if m.slogger == nil {
		return slog.Default()
	}
	return m.slogger
}

// Call invokes a against m, bounding synchronous recursion depth and
// recovering host panics into the failure channel.
//
// Call implements the depth-bounded dispatch every combinator in this
// package is built on:
//  1. If depth < maxDepth, the call proceeds synchronously inside a
//     recover-guarded region.
//  2. Otherwise the call is rescheduled onto the next tick and depth is
//     reset, giving the trampoline fresh budget for the re-entry.
//  3. A nil succeed or fail is replaced by [Drain].
func Call[V any](m *Orchestrator, a Action[V], input V, succeed Success[V], fail Failure[V]) {
	if succeed == nil {
		succeed = Drain[V]
	}
	if fail == nil {
		fail = Drain[*IOError[V]]
	}

	if m.depth >= m.maxDepth {
		NextTick(m, func() {
			m.depth = 0
			Call(m, a, input, succeed, fail)
		})
		return
	}

	m.depth++
	defer func() {
		m.depth--
		if r := recover(); r != nil {
			fail(newIOError(m, &RecoveredPanic{Value: r}, input, succeed, fail))
		}
	}()
	a(m, input, succeed, fail)
}

// CallTransform is [Call] for a [Transform], whose input type differs
// from its output type. It implements the identical depth-bounded
// dispatch and panic recovery; the only difference is that a
// recovered panic's [*IOError] can't carry the original (wrong-typed)
// input, since [IOError.Input] must match t's output type.
func CallTransform[In, Out any](m *Orchestrator, t Transform[In, Out], input In, succeed Success[Out], fail Failure[Out]) {
	if succeed == nil {
		succeed = Drain[Out]
	}
	if fail == nil {
		fail = Drain[*IOError[Out]]
	}

	if m.depth >= m.maxDepth {
		NextTick(m, func() {
			m.depth = 0
			CallTransform(m, t, input, succeed, fail)
		})
		return
	}

	m.depth++
	defer func() {
		m.depth--
		if r := recover(); r != nil {
			var zero Out
			fail(newIOError(m, &RecoveredPanic{Value: r}, zero, succeed, fail))
		}
	}()
	t(m, input, succeed, fail)
}

// Run is the user entry point: it schedules a onto m's worker
// goroutine with both continuations set to [Drain], then returns
// immediately.
//
// Run always hands off through [NextTick] rather than calling a
// synchronously on the caller's own goroutine, even though [Call]
// itself would happily run a few frames synchronously. This is what
// makes the single-goroutine invariant hold even when Run is invoked
// concurrently from multiple unrelated goroutines — the calls don't
// race each other; they queue. Side effects — including any returned
// value or error — are observed only through continuations the caller
// installed inside a, such as a [Catch] or a [Probe].
func Run[V any](m *Orchestrator, input V, a Action[V]) {
	NextTick(m, func() {
		Call(m, a, input, Drain[V], Drain[*IOError[V]])
	})
}

// RecoveredPanic wraps a panic value recovered by [Call].
//
// The orchestrator catches panics as part of every call it makes, so
// this type lives on the orchestrator itself rather than behind an
// opt-in decorator.
type RecoveredPanic struct {
	Value any
}

func (p *RecoveredPanic) Error() string {
	return fmt.Sprintf("actio: panic recovered: %v", p.Value)
}

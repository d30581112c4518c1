// SPDX-License-Identifier: Apache-2.0

package actio

// Success is the continuation an [Action] invokes on its happy path.
//
// Calling it hands the value produced by the action to whatever is
// waiting downstream. An action must call Success or Failure at most
// once; calling neither is a deliberate stop (see [Stop]).
type Success[V any] func(V)

// Failure is the continuation an [Action] invokes when it cannot
// produce a value.
//
// The [*IOError] carries enough context — the orchestrator, the
// original error, the input present at the point of failure, and the
// resume/rollback/restart continuations — for a [Catch] upstream to
// recover.
type Failure[V any] func(*IOError[V])

// Action is the one shape every combinator in this package produces
// and consumes: a callable invoked for effect against an orchestrator,
// an input, and a pair of continuations.
//
// An Action must eventually invoke exactly one of succeed/fail, unless
// it deliberately stops (no further continuation is ever reached —
// [Filter] rejecting an item and [Stop] are the two built-in ways to do
// this). Action is a verb, not a value: build one with [Pure],
// [FromCallbacks], [FromInput], or by writing the four-argument form
// directly.
type Action[V any] func(m *Orchestrator, input V, succeed Success[V], fail Failure[V])

// Transform is the two-type-parameter generalization of [Action] for
// the handful of combinators whose output type genuinely differs from
// their input type — [Catch]'s [Handler], [Fork]'s result-array
// producer. Most of this package stays monomorphic in a single V
// because a typical pipeline threads one value type through a whole
// chain; Transform exists for the boundary points where that stops
// being true.
type Transform[In, Out any] func(m *Orchestrator, input In, succeed Success[Out], fail Failure[Out])

// Drain is a terminal sink: it ignores whatever it's given and does
// nothing. [Call] substitutes Drain for any nil
// continuation, and [Run] uses it for both continuations at the root.
func Drain[V any](V) {}

// Pure lifts a plain function into an [Action].
//
// This is the 1-argument arity adapter: f receives the input and
// returns either a value (routed to succeed) or an error (routed to
// fail, wrapped in a fresh [*IOError]).
//
// Example:
//
//	double := Pure(func(n int) (int, error) { return n * 2, nil })
func Pure[V any](f func(V) (V, error)) Action[V] {
	return func(m *Orchestrator, input V, succeed Success[V], fail Failure[V]) {
		out, err := f(input)
		if err != nil {
			fail(newIOError(m, err, input, succeed, fail))
			return
		}
		succeed(out)
	}
}

// FromCallbacks lifts a function that only sees the continuations into
// an [Action], discarding the input.
//
// This is the 2-argument arity adapter — useful for actions whose
// effect doesn't depend on what came before (e.g. a fixed side effect
// that always runs the same way).
func FromCallbacks[V any](f func(succeed Success[V], fail Failure[V])) Action[V] {
	return func(_ *Orchestrator, _ V, succeed Success[V], fail Failure[V]) {
		f(succeed, fail)
	}
}

// FromInput lifts a function that sees the input and both
// continuations, but not the orchestrator, into an [Action].
//
// This is the 3-argument arity adapter.
func FromInput[V any](f func(input V, succeed Success[V], fail Failure[V])) Action[V] {
	return func(_ *Orchestrator, input V, succeed Success[V], fail Failure[V]) {
		f(input, succeed, fail)
	}
}

// Stop returns an action that invokes neither continuation.
//
// A statically typed action that deliberately never continues, rather
// than a sentinel value threaded through every success path. [Filter]
// behaves like Stop for rejected items.
func Stop[V any]() Action[V] {
	return func(*Orchestrator, V, Success[V], Failure[V]) {}
}

// Dispatch selects an action to run next based on the input, and runs
// it with the same continuations.
//
// Rather than relying on a runtime type switch over "value vs.
// callable," the caller supplies an explicit selector. This keeps
// splicing statically typed.
//
// Example:
//
//	route := Dispatch(func(cmd Command) Action[Command] {
//	    switch cmd.Kind {
//	    case "start":
//	        return startAction
//	    default:
//	        return Fail[Command](ErrUnknownCommand)
//	    }
//	})
func Dispatch[V any](selector func(V) Action[V]) Action[V] {
	return func(m *Orchestrator, input V, succeed Success[V], fail Failure[V]) {
		next := selector(input)
		Call(m, next, input, succeed, fail)
	}
}

// DirectiveKind names a combinator addressable from the dictionary
// form: a record with exactly one key that names a combinator on the
// orchestrator's API table.
type DirectiveKind int

// The set of combinators reachable from a [Directive]. Each corresponds
// to a constructor elsewhere in this package; Resolve expands a
// Directive into the equivalent direct call.
const (
	DirectivePass DirectiveKind = iota
	DirectiveFail
	DirectiveSend
	DirectiveSupply
)

// Directive is the dictionary-literal action form: a data description
// of a combinator call, expanded at invocation time by [Resolve].
//
// This exists for data-driven action graphs — e.g. building a sequence
// of steps from parsed configuration, where the configuration names a
// combinator and supplies its arguments rather than embedding Go
// closures directly.
type Directive[V any] struct {
	Kind  DirectiveKind
	Value V // argument for Send and Supply (Fail takes Err instead)
	Err   error
}

// Resolve expands a [Directive] into the [Action] it names.
//
// An unrecognized Kind is a programming error: it is surfaced
// synchronously rather than routed through the failure channel, since
// it indicates a misconstructed action graph rather than a runtime
// condition.
func Resolve[V any](d Directive[V]) Action[V] {
	switch d.Kind {
	case DirectivePass:
		return Pass[V]()
	case DirectiveFail:
		return Fail[V](d.Err)
	case DirectiveSend:
		return Send(d.Value, Pass[V]())
	case DirectiveSupply:
		return Supply(d.Value)
	default:
		panic("actio: unknown directive kind")
	}
}

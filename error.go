// SPDX-License-Identifier: Apache-2.0

package actio

// IOError is the value handed to a [Failure] continuation.
//
// It carries everything needed to recover: the
// orchestrator the failure occurred in, the underlying error, the
// input present at the point of failure, the raw continuations
// captured at that point (Success/Failure), and three derived
// operations built from them:
//
//   - Resume re-enters the successor of the raise site with a new
//     value, as if the action had succeeded there instead of failing.
//   - Rollback delegates to the outer failure, bypassing whatever
//     handler is currently looking at this error.
//   - Restart is non-nil only when a [Catch] attached it, and re-enters
//     the whole protected region from the top with a new input.
type IOError[V any] struct {
	M       *Orchestrator
	Err     error
	Input   V
	Success Success[V]
	Failure Failure[V]

	Resume   func(V)
	Rollback func(error)
	Restart  func(V)
}

// Error implements the error interface so an [*IOError] can be
// inspected with errors.Is/errors.As without unwrapping by hand.
func (e *IOError[V]) Error() string {
	if e.Err == nil {
		return "actio: nil error"
	}
	return e.Err.Error()
}

// Unwrap exposes the underlying error for errors.Is/errors.As.
func (e *IOError[V]) Unwrap() error { return e.Err }

// newIOError builds an [*IOError] from the error, input, and
// continuations present at a failure point, wiring the default
// Resume/Rollback derived operations.
//
// A [Catch] that subsequently intercepts this error rebinds Rollback
// to skip straight to its own outer failure (bypassing its handler)
// and attaches Restart; see [Catch].
func newIOError[V any](m *Orchestrator, err error, input V, succeed Success[V], fail Failure[V]) *IOError[V] {
	e := &IOError[V]{M: m, Err: err, Input: input, Success: succeed, Failure: fail}
	e.Resume = func(v V) {
		if succeed != nil {
			succeed(v)
		}
	}
	e.Rollback = func(rerr error) {
		if fail != nil {
			fail(newIOError(m, rerr, input, succeed, fail))
		}
	}
	return e
}

// Raise produces an action that delivers a fresh [*IOError] wrapping
// err to its failure continuation, capturing its own success and
// failure continuations so that a downstream [Catch]'s handler can
// resume, rollback, or restart.
func Raise[V any](err error) Action[V] {
	return func(m *Orchestrator, input V, succeed Success[V], fail Failure[V]) {
		fail(newIOError(m, err, input, succeed, fail))
	}
}

// Handler is the shape of a [Catch]'s failure handler: it receives the
// [*IOError] that reached this catch, and a fresh pair of
// continuations — succeed resumes forward past the catch (the
// "swallowed, continue" outcome), fail rolls back to the enclosing
// handler.
//
// Handler is a [Transform] rather than an [Action] because its input
// type (*IOError[V]) and output type (V) differ.
type Handler[V any] = Transform[*IOError[V], V]

// Catch wraps region so that any failure inside it is routed to
// onFail instead of straight to Catch's own caller.
//
//   - onFail runs with succeed set to whatever Catch's own caller
//     supplied — calling it is "swallowed, resume forward."
//   - onFail runs with fail set to whatever Catch's own caller
//     supplied — calling it is "rollback to the outer handler."
//   - The [*IOError] onFail receives has Restart rebound to re-enter
//     this whole Catch (region included) from the top, and Rollback
//     rebound to skip straight past onFail to Catch's outer failure,
//     rather than re-entering onFail itself.
func Catch[V any](region Action[V], onFail Handler[V]) Action[V] {
	var self Action[V]
	self = func(m *Orchestrator, input V, succeed Success[V], fail Failure[V]) {
		regionFail := func(ioerr *IOError[V]) {
			wrapped := *ioerr
			wrapped.Restart = func(v V) { Call(m, self, v, succeed, fail) }
			wrapped.Rollback = func(rerr error) {
				fail(newIOError(m, rerr, wrapped.Input, wrapped.Success, wrapped.Failure))
			}
			onFail(m, &wrapped, succeed, fail)
		}
		Call(m, region, input, succeed, regionFail)
	}
	return self
}

// Forgive is a [Handler] that discards the error and forwards the
// input that was present when it was raised.
//
// This is the "forgive law": Catch(Raise(e), Forgive) is
// observationally Pass, since the error's captured input propagates
// forward unchanged.
func Forgive[V any](_ *Orchestrator, err *IOError[V], succeed Success[V], _ Failure[V]) {
	succeed(err.Input)
}

// Try is sugar for a one-shot [Catch] whose handler always resumes
// forward with the error's captured input, ignoring the error itself
// except to decide to swallow it.
//
// Equivalent to Catch(action, Forgive), spelled out for readability at
// call sites that want "run this, and if it fails, just move on."
func Try[V any](action Action[V]) Action[V] {
	return Catch(action, Forgive[V])
}

// Finally runs action, then always runs cleanup with the original
// input — on both the success and the failure path — before
// delivering action's outcome onward. cleanup's own output is
// discarded.
//
// On the failure path the [*IOError]'s Resume is rebound before
// delivery so that an outer Resume re-enters at the Finally boundary
// (supplying a fresh value to continue with) rather than at the raw
// raise site deep inside action. cleanup is not expected to fail; if it
// does, the behavior is unspecified rather than invented.
func Finally[V any](cleanup Action[V], action Action[V]) Action[V] {
	return func(m *Orchestrator, input V, succeed Success[V], fail Failure[V]) {
		runCleanupThen := func(after func()) {
			Call(m, cleanup, input, func(V) { after() }, func(*IOError[V]) { after() })
		}
		Call(m, action, input, func(out V) {
			runCleanupThen(func() { succeed(out) })
		}, func(ioerr *IOError[V]) {
			wrapped := *ioerr
			wrapped.Resume = func(v V) {
				runCleanupThen(func() { succeed(v) })
			}
			runCleanupThen(func() { fail(&wrapped) })
		})
	}
}

// IgnoreError wraps action to always succeed with its input, even if
// action fails.
//
// This is Catch(action, Forgive) under another name, for callers who
// want a "best effort" step without spelling out the handler.
func IgnoreError[V any](action Action[V]) Action[V] {
	return Try(action)
}

// OnError provides dynamic error handling with a fallback action.
//
// If action fails, onError is consulted with the underlying error; it
// may return a fallback action to run instead, return (nil, nil) to
// treat the error as handled with no further work, or return a new
// error to escalate. It is exactly [Catch] with a handler that ignores
// the resume/restart continuations and only ever resumes forward or
// rolls back.
func OnError[V any](action Action[V], onError func(err error, input V) (Action[V], error)) Action[V] {
	return Catch(action, func(m *Orchestrator, ioerr *IOError[V], succeed Success[V], fail Failure[V]) {
		fallback, err := onError(ioerr.Err, ioerr.Input)
		if err != nil {
			ioerr.Rollback(err)
			return
		}
		if fallback == nil {
			succeed(ioerr.Input)
			return
		}
		Call(m, fallback, ioerr.Input, succeed, fail)
	})
}

// FallbackTo returns an onError function for [OnError] that always
// runs fallback, regardless of the original error.
func FallbackTo[V any](fallback Action[V]) func(error, V) (Action[V], error) {
	return func(_ error, _ V) (Action[V], error) {
		return fallback, nil
	}
}

// SPDX-License-Identifier: Apache-2.0

package actio

import "errors"

// Map lifts a plain transform into an [Action].
//
// Map is [Pure] under another name — kept as a separate entry point so
// call sites reflecting the data-flow vocabulary (Map, Filter, Reduce,
// Cond) read naturally together.
func Map[V any](f func(V) (V, error)) Action[V] {
	return Pure(f)
}

// Filter passes input through unchanged when p(input) is true, and
// stops — delivering to neither continuation — when it is false.
//
// Rejected items are dropped silently rather than routed to success
// with the original input: a rejected item is neither a success nor a
// failure, it simply produces no further continuation.
func Filter[V any](p func(V) bool) Action[V] {
	return func(_ *Orchestrator, input V, succeed Success[V], _ Failure[V]) {
		if p(input) {
			succeed(input)
		}
	}
}

// Reduce returns an action that folds each input it's given into a
// running accumulator, starting from init, and succeeds with the
// accumulator's new value on every activation.
//
// The accumulator is held in a closure-captured cell, so a single
// Reduce action is stateful across activations — feeding it through a
// [Gen] or a [Chan] accumulates across the whole stream. Reuse the same
// value across independent streams only if that's the intended
// behavior; build a fresh Reduce per stream otherwise.
func Reduce[V any](f func(acc, cur V) V, init V) Action[V] {
	acc := init
	return func(_ *Orchestrator, input V, succeed Success[V], _ Failure[V]) {
		acc = f(acc, input)
		succeed(acc)
	}
}

// Add shallow-merges kv on top of a record-shaped input, with kv's
// keys taking precedence on overlap.
//
// Record-shaped actions in this package use map[string]any as their
// value type, the same convention [Cond]'s field sub-pattern uses.
func Add(kv map[string]any) Action[map[string]any] {
	return func(_ *Orchestrator, input map[string]any, succeed Success[map[string]any], _ Failure[map[string]any]) {
		merged := make(map[string]any, len(input)+len(kv))
		for k, v := range input {
			merged[k] = v
		}
		for k, v := range kv {
			merged[k] = v
		}
		succeed(merged)
	}
}

// Supply returns an action that ignores its input and always succeeds
// with v.
func Supply[V any](v V) Action[V] {
	return func(_ *Orchestrator, _ V, succeed Success[V], _ Failure[V]) {
		succeed(v)
	}
}

// Probe returns an action that calls f as a fire-and-forget observer,
// then forwards its input unchanged to success.
//
// Panics inside f are swallowed — a Probe is for side-channel
// observation (logging, metrics, test assertions) and must never
// perturb the pipeline it's attached to.
func Probe[V any](f func(V)) Action[V] {
	return func(_ *Orchestrator, input V, succeed Success[V], _ Failure[V]) {
		func() {
			defer func() { _ = recover() }()
			f(input)
		}()
		succeed(input)
	}
}

// ErrCondFailed is raised by [Cond] when no branch matches and no
// default was provided.
var ErrCondFailed = errors.New("actio: cond: no branch matched")

// Pattern is a match predicate used by [Cond].
type Pattern[V any] func(V) bool

// CondBranch pairs a [Pattern] with the action to dispatch when it
// matches.
type CondBranch[V any] struct {
	When Pattern[V]
	Then Action[V]
}

// Equals returns a [Pattern] that matches by strict equality.
func Equals[V comparable](want V) Pattern[V] {
	return func(got V) bool { return got == want }
}

// Fields returns a [Pattern] over record-shaped input: every key in
// patterns must be present in the candidate and its sub-pattern must
// match; keys the candidate has that aren't named in patterns are
// ignored.
//
// This is a plain-record pattern form, specialized (as [Add] is) to
// map[string]any.
func Fields(patterns map[string]Pattern[any]) Pattern[map[string]any] {
	return func(candidate map[string]any) bool {
		for key, sub := range patterns {
			val, ok := candidate[key]
			if !ok || !sub(val) {
				return false
			}
		}
		return true
	}
}

// Cond dispatches sequentially through branches, running the first
// whose pattern matches input. If none match, deflt runs if non-nil;
// otherwise Cond raises [ErrCondFailed].
func Cond[V any](branches []CondBranch[V], deflt Action[V]) Action[V] {
	return func(m *Orchestrator, input V, succeed Success[V], fail Failure[V]) {
		for _, branch := range branches {
			if branch.When(input) {
				Call(m, branch.Then, input, succeed, fail)
				return
			}
		}
		if deflt != nil {
			Call(m, deflt, input, succeed, fail)
			return
		}
		Call(m, Raise[V](ErrCondFailed), input, succeed, fail)
	}
}

// SPDX-License-Identifier: Apache-2.0

package actio

// Predicate is a failable boolean condition check against an
// orchestrator and a value.
//
// It returns true or false to indicate whether the condition is met,
// and may return an error if the condition check itself fails.
type Predicate[V any] func(m *Orchestrator, v V) (bool, error)

// When runs action only if predicate returns true; otherwise it
// succeeds immediately with input unchanged. A predicate error is
// raised via [Raise].
func When[V any](predicate Predicate[V], action Action[V]) Action[V] {
	return func(m *Orchestrator, input V, succeed Success[V], fail Failure[V]) {
		ok, err := predicate(m, input)
		if err != nil {
			fail(newIOError(m, err, input, succeed, fail))
			return
		}
		if ok {
			Call(m, action, input, succeed, fail)
			return
		}
		succeed(input)
	}
}

// Unless runs action only if predicate returns false — the complement
// of [When].
func Unless[V any](predicate Predicate[V], action Action[V]) Action[V] {
	return When(Not(predicate), action)
}

// While repeatedly runs action for as long as predicate holds,
// re-evaluating predicate before each iteration.
//
// Each iteration is dispatched through [Call] rather than
// a native Go loop, so a long-running While still participates in the
// trampoline's depth bound instead of growing the Go call stack
// unbounded. Combine with [Timeout] or a predicate that eventually
// becomes false to avoid looping forever.
func While[V any](predicate Predicate[V], action Action[V]) Action[V] {
	var self Action[V]
	self = func(m *Orchestrator, input V, succeed Success[V], fail Failure[V]) {
		ok, err := predicate(m, input)
		if err != nil {
			fail(newIOError(m, err, input, succeed, fail))
			return
		}
		if !ok {
			succeed(input)
			return
		}
		Call(m, action, input, func(out V) {
			Call(m, self, out, succeed, fail)
		}, fail)
	}
	return self
}

// Not negates a predicate.
func Not[V any](predicate Predicate[V]) Predicate[V] {
	return func(m *Orchestrator, v V) (bool, error) {
		ok, err := predicate(m, v)
		return !ok, err
	}
}

// And combines predicates with logical AND, short-circuiting on the
// first false or error.
func And[V any](predicates ...Predicate[V]) Predicate[V] {
	return func(m *Orchestrator, v V) (bool, error) {
		for _, p := range predicates {
			ok, err := p(m, v)
			if err != nil {
				return false, err
			}
			if !ok {
				return false, nil
			}
		}
		return true, nil
	}
}

// Or combines predicates with logical OR, short-circuiting on the
// first true or error.
func Or[V any](predicates ...Predicate[V]) Predicate[V] {
	return func(m *Orchestrator, v V) (bool, error) {
		for _, p := range predicates {
			ok, err := p(m, v)
			if err != nil {
				return false, err
			}
			if ok {
				return true, nil
			}
		}
		return false, nil
	}
}

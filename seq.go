// SPDX-License-Identifier: Apache-2.0

package actio

// Pass returns an action that succeeds immediately with its input
// unchanged.
//
// Pass is the sequencing core's identity: Chain(Pass[V](), a) and
// Chain(a, Pass[V]()) both behave exactly like a.
func Pass[V any]() Action[V] {
	return func(_ *Orchestrator, input V, succeed Success[V], _ Failure[V]) {
		succeed(input)
	}
}

// Fail returns an action that always raises err.
//
// A dynamically typed "fail" combinator could forward whatever input it
// receives straight to the failure continuation, treating the input
// itself as the error payload. A statically typed kernel can't do that
// without stringifying an arbitrary V, so Fail instead takes its error
// explicitly and behaves as [Raise] — the input is still preserved on
// the resulting [*IOError] for a [Catch] upstream to recover.
func Fail[V any](err error) Action[V] {
	return Raise[V](err)
}

// Send returns an action that ignores its inbound input and dispatches
// a with x instead.
func Send[V any](x V, a Action[V]) Action[V] {
	return func(m *Orchestrator, _ V, succeed Success[V], fail Failure[V]) {
		Call(m, a, x, succeed, fail)
	}
}

// Bind returns an action that always dispatches a on bound, regardless
// of which orchestrator it is itself called with.
//
// This is useful for handing an action to a combinator that will call
// it against some other orchestrator (for example, a tracing child)
// while guaranteeing it still runs under its originally intended one.
func Bind[V any](bound *Orchestrator, a Action[V]) Action[V] {
	return func(_ *Orchestrator, input V, succeed Success[V], fail Failure[V]) {
		Call(bound, a, input, succeed, fail)
	}
}

// Seq composes two actions so that b runs on a's success, with a's
// output as b's input. Both share the same outer failure continuation,
// so a failure at either step reaches the caller of Seq directly.
//
// This is the right-fold form: the outer failure continuation passes
// straight through untouched, which is the form that doesn't lose it
// under failure.
func Seq[V any](a, b Action[V]) Action[V] {
	return func(m *Orchestrator, input V, succeed Success[V], fail Failure[V]) {
		Call(m, a, input, func(out V) {
			Call(m, b, out, succeed, fail)
		}, fail)
	}
}

// Chain folds a sequence of actions with [Seq]: the empty chain is
// [Pass], a singleton chain is that one action, and otherwise each
// action's output feeds the next's input in order.
func Chain[V any](as ...Action[V]) Action[V] {
	switch len(as) {
	case 0:
		return Pass[V]()
	case 1:
		return as[0]
	}
	result := as[len(as)-1]
	for i := len(as) - 2; i >= 0; i-- {
		result = Seq(as[i], result)
	}
	return result
}

// Branch invokes a with input, but routes its outcome to fixed actions
// s (on success) and f (on failure) instead of to the continuations
// Branch itself was called with.
//
// f receives the input that was present at the point of failure (the
// same value a [Catch] handler would see via [*IOError].Input), not
// the error itself, keeping s and f both typed as Action[V]. Both s
// and f are run to completion against [Drain] continuations — Branch
// is a full redirection, not a pass-through.
func Branch[V any](a Action[V], s, f Action[V]) Action[V] {
	return func(m *Orchestrator, input V, _ Success[V], _ Failure[V]) {
		Call(m, a, input, func(out V) {
			Call(m, s, out, Drain[V], Drain[*IOError[V]])
		}, func(ioerr *IOError[V]) {
			Call(m, f, ioerr.Input, Drain[V], Drain[*IOError[V]])
		})
	}
}

// SPDX-License-Identifier: Apache-2.0

// Package actio provides a continuation-passing orchestration kernel for
// composing asynchronous, interruptible, and recoverable units of work
// ("actions") into pipelines, without the caller ever blocking on a
// synchronous return value.
//
// # The Problem
//
// A workflow that needs retries, timeouts, backpressure-aware producers,
// mid-flight cancellation, and resumable error recovery usually ends up
// as a tangle of goroutines, channels, and context.Context plumbing,
// with the actual business logic buried underneath. actio pulls that
// mechanics out into a small set of composable primitives, and drives
// everything from a single cooperative worker per orchestrator rather
// than an ad hoc goroutine per concern.
//
// # Core Concepts
//
// [Action] is the fundamental building block: a function that succeeds
// or fails at most once, given an [*Orchestrator] to dispatch against.
// A few depart from this on purpose: [Stop] and [Filter] can invoke
// neither continuation, and [Gen] succeeds once per produced item.
//
//	type Action[V any] func(m *Orchestrator, input V, succeed Success[V], fail Failure[V])
//
// [Transform] generalizes Action to a distinct output type, used
// wherever a combinator's result isn't the same type as its input (a
// [Handler] recovering from an [*IOError[V]] back to V, or [Fork]
// gathering []Result[V] from a V).
//
// An [*Orchestrator] dispatches actions through [Call], which bounds
// synchronous recursion depth via a trampoline and recovers host panics
// into the failure channel. [Run] is the entry point for driving an
// action from outside the kernel.
//
// # Composition
//
//	pipeline := Chain(
//	    validateOrder,
//	    Named("charge", Retry(chargeCard, UpTo(3), ExponentialBackoff(100*time.Millisecond))),
//	    Named("ship", shipOrder),
//	)
//	Run(actio.New(), order, pipeline)
//
// # Concurrency
//
// [Fork] and [Any] dispatch each branch through [NextTick], against its
// own [*Orchestrator.Child], onto the parent's single worker goroutine:
// branches interleave cooperatively at their suspension points rather
// than running in parallel, so all mutation stays serialized. [Atomic] and [Pipeline] give a producer
// backpressure over a bounded queue instead. [Timeout], [Sync], and
// [Interruptible] round out the coordination primitives.
//
// # Error Handling
//
// [Catch] routes a failure to a [Handler], which can resume forward
// past the failure, roll back to an outer handler, or restart the
// protected region from the top via the [*IOError]'s three derived
// continuations. [Retry], [Try], and [OnError] are sugar built on
// Catch; [Finally] runs a cleanup action on both paths.
//
// # Requirements
//
// actio requires Go 1.24 or later.
package actio

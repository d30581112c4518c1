// SPDX-License-Identifier: Apache-2.0

package actio

import (
	"errors"
	"fmt"
	"strings"
	"sync/atomic"
	"testing"
	"time"
)

// testTimeout bounds how long a test will wait for an action dispatched
// through the scheduler to reach a continuation, since every runAction
// call crosses onto the orchestrator's worker goroutine.
const testTimeout = 2 * time.Second

// runAction runs a against m (a fresh [*Orchestrator] if nil) with
// input, blocking until a continuation fires or testTimeout elapses.
//
// Actions in this package are dispatched asynchronously — even a
// same-tick success is delivered by the worker goroutine, never the
// calling goroutine — so tests cannot simply call an action and inspect
// a return value directly. Instead, block on a channel the continuations
// close over.
func runAction[V any](t *testing.T, m *Orchestrator, a Action[V], input V) (V, error) {
	t.Helper()
	if m == nil {
		m = New()
	}
	type outcome struct {
		val V
		err error
	}
	done := make(chan outcome, 1)
	Run(m, input, func(mm *Orchestrator, in V, _ Success[V], _ Failure[V]) {
		Call(mm, a, in, func(v V) {
			done <- outcome{val: v}
		}, func(ioerr *IOError[V]) {
			done <- outcome{err: ioerr.Err}
		})
	})
	select {
	case o := <-done:
		return o.val, o.err
	case <-time.After(testTimeout):
		t.Fatal("actio: test action timed out waiting for a continuation")
		var zero V
		return zero, nil
	}
}

// runTransform is [runAction]'s analogue for a [Transform] whose output
// type differs from its input, such as [Traced].
func runTransform[In, Out any](t *testing.T, m *Orchestrator, tr Transform[In, Out], input In) (Out, error) {
	t.Helper()
	if m == nil {
		m = New()
	}
	type outcome struct {
		val Out
		err error
	}
	done := make(chan outcome, 1)
	Run(m, input, func(mm *Orchestrator, in In, _ Success[In], _ Failure[In]) {
		Call(mm, tr, in, func(v Out) {
			done <- outcome{val: v}
		}, func(ioerr *IOError[Out]) {
			done <- outcome{val: ioerr.Input, err: ioerr.Err}
		})
	})
	select {
	case o := <-done:
		return o.val, o.err
	case <-time.After(testTimeout):
		t.Fatal("actio: test transform timed out waiting for a continuation")
		var zero Out
		return zero, nil
	}
}

// runActionStops reports whether a, dispatched against m with input,
// invokes neither continuation within a short grace window — the CPS
// analogue of asserting a step "did not run to completion", used for
// [Filter] rejections and [Stop].
func runActionStops[V any](t *testing.T, m *Orchestrator, a Action[V], input V) bool {
	t.Helper()
	if m == nil {
		m = New()
	}
	done := make(chan struct{}, 1)
	Run(m, input, func(mm *Orchestrator, in V, _ Success[V], _ Failure[V]) {
		Call(mm, a, in, func(V) { done <- struct{}{} }, func(*IOError[V]) { done <- struct{}{} })
	})
	select {
	case <-done:
		return false
	case <-time.After(50 * time.Millisecond):
		return true
	}
}

var error1 = errors.New("error 1")
var error2 = errors.New("error 2")
var error3 = errors.New("error 3")
var errorRetryable = errors.New("retryable error")
var errorNonRetryable = errors.New("non-retryable error")

// CountingFlow is a mutable counter threaded through test actions as
// their own V, the value an [Action[*CountingFlow]] receives and
// returns directly.
type CountingFlow struct {
	Counter int64
}

// Increment atomically adds n to the counter and succeeds with c.
func Increment(n int64) Action[*CountingFlow] {
	return func(_ *Orchestrator, c *CountingFlow, succeed Success[*CountingFlow], _ Failure[*CountingFlow]) {
		atomic.AddInt64(&c.Counter, n)
		succeed(c)
	}
}

// Decrement atomically subtracts n from the counter.
func Decrement(n int64) Action[*CountingFlow] {
	return Increment(-n)
}

// CountEquals returns a predicate that checks whether the counter
// equals value.
func CountEquals(value int64) Predicate[*CountingFlow] {
	return func(_ *Orchestrator, c *CountingFlow) (bool, error) {
		return c.Counter == value, nil
	}
}

// CountGreaterThan returns a predicate that checks whether the counter
// is greater than value.
func CountGreaterThan(value int64) Predicate[*CountingFlow] {
	return func(_ *Orchestrator, c *CountingFlow) (bool, error) {
		return c.Counter > value, nil
	}
}

// FailingPredicate returns a predicate that always fails with err.
func FailingPredicate(err error) Predicate[*CountingFlow] {
	return func(_ *Orchestrator, _ *CountingFlow) (bool, error) {
		return false, err
	}
}

// FailUntilCount increments the counter on each activation and fails
// until the counter reaches threshold, at which point it succeeds.
func FailUntilCount(threshold int64) Action[*CountingFlow] {
	return func(_ *Orchestrator, c *CountingFlow, succeed Success[*CountingFlow], fail Failure[*CountingFlow]) {
		current := atomic.AddInt64(&c.Counter, 1)
		if current < threshold {
			fail(newIOError(nil, errors.New("not ready yet"), c, succeed, fail))
			return
		}
		succeed(c)
	}
}

// IncrementAndFail increments the counter by 1 and then always fails
// with err.
func IncrementAndFail(err error) Action[*CountingFlow] {
	return func(_ *Orchestrator, c *CountingFlow, succeed Success[*CountingFlow], fail Failure[*CountingFlow]) {
		atomic.AddInt64(&c.Counter, 1)
		fail(newIOError(nil, err, c, succeed, fail))
	}
}

// PanicWith triggers a panic with value, used to test [Call]'s panic
// recovery.
func PanicWith(value any) Action[*CountingFlow] {
	return func(*Orchestrator, *CountingFlow, Success[*CountingFlow], Failure[*CountingFlow]) {
		panic(value)
	}
}

// isNil validates that err is nil.
func isNil(err error) error {
	if err != nil {
		return fmt.Errorf("unexpected error: %w", err)
	}
	return nil
}

// isNotNil validates that err is non-nil.
func isNotNil(err error) error {
	if err == nil {
		return fmt.Errorf("expected error but got nil")
	}
	return nil
}

// all returns a validator that passes only if every validator passes.
func all(validators ...func(error) error) func(error) error {
	return func(err error) error {
		for _, v := range validators {
			if e := v(err); e != nil {
				return e
			}
		}
		return nil
	}
}

// matches returns a validator that checks err against target with
// [errors.Is].
func matches(target error) func(error) error {
	return func(err error) error {
		if !errors.Is(err, target) {
			return fmt.Errorf("expected error %v to match %v", err, target)
		}
		return nil
	}
}

// notMatches is the complement of matches.
func notMatches(target error) func(error) error {
	return func(err error) error {
		if errors.Is(err, target) {
			return fmt.Errorf("expected error %v to not match %v", err, target)
		}
		return nil
	}
}

// isRecoveredPanic validates that err is a [*RecoveredPanic].
func isRecoveredPanic(err error) error {
	var rp *RecoveredPanic
	if !errors.As(err, &rp) {
		return fmt.Errorf("expected RecoveredPanic error, got %v", err)
	}
	return nil
}

// contains returns a validator that checks err's message for substring.
func contains(substring string) func(error) error {
	return func(err error) error {
		if err == nil || !strings.Contains(err.Error(), substring) {
			return fmt.Errorf("expected error to contain %q, got %v", substring, err)
		}
		return nil
	}
}

// SPDX-License-Identifier: Apache-2.0

package actio

import (
	"errors"
	"testing"
	"time"
)

func TestFork(t *testing.T) {
	t.Parallel()

	t.Run("AllSucceed", func(t *testing.T) {
		t.Parallel()
		fork := Fork(Increment(1), Increment(2), Increment(3))
		results, err := runTransform(t, nil, fork, &CountingFlow{})
		if err := isNil(err); err != nil {
			t.Error(err)
		}
		if len(results) != 3 {
			t.Fatalf("expected 3 results, got %d", len(results))
		}
		sum := int64(0)
		for _, r := range results {
			if r.Err != nil {
				t.Errorf("unexpected branch error: %v", r.Err)
			}
			sum += r.Value.Counter
		}
		// Every branch receives the same *CountingFlow, so each Result
		// points at the final counter (1+2+3 = 6) and the sum is 3*6.
		if sum != 18 {
			t.Errorf("expected branch outputs to sum to 18, got %d", sum)
		}
	})

	t.Run("PartialFailureStillSucceeds", func(t *testing.T) {
		t.Parallel()
		fork := Fork(Increment(1), IncrementAndFail(error1), Increment(3))
		results, err := runTransform(t, nil, fork, &CountingFlow{})
		if err := isNil(err); err != nil {
			t.Error(err)
		}
		if results[1].Err == nil {
			t.Error("expected the second branch's error to be visible in its own Result")
		}
	})

	t.Run("AllFail", func(t *testing.T) {
		t.Parallel()
		fork := Fork(IncrementAndFail(error1), IncrementAndFail(error2))
		_, err := runTransform(t, nil, fork, &CountingFlow{})
		if err == nil {
			t.Error("expected Fork to fail when every branch fails")
		}
	})

	t.Run("NoBranches", func(t *testing.T) {
		t.Parallel()
		results, err := runTransform(t, nil, Fork[*CountingFlow](), &CountingFlow{})
		if err := isNil(err); err != nil {
			t.Error(err)
		}
		if results != nil {
			t.Errorf("expected nil results for zero branches, got %v", results)
		}
	})

	t.Run("WithLimit", func(t *testing.T) {
		t.Parallel()
		fork := ForkWith(ForkOptions{Limit: 1}, Increment(1), Increment(1), Increment(1))
		results, err := runTransform(t, nil, fork, &CountingFlow{})
		if err := isNil(err); err != nil {
			t.Error(err)
		}
		if len(results) != 3 {
			t.Errorf("expected 3 results, got %d", len(results))
		}
	})
}

func TestTee(t *testing.T) {
	t.Parallel()

	done := make(chan struct{})
	sideEffect := func(_ *Orchestrator, c *CountingFlow, succeed Success[*CountingFlow], _ Failure[*CountingFlow]) {
		close(done)
		succeed(c)
	}
	out, err := runAction(t, nil, Tee(Action[*CountingFlow](sideEffect)), &CountingFlow{Counter: 5})
	if err := isNil(err); err != nil {
		t.Error(err)
	}
	if out.Counter != 5 {
		t.Errorf("expected Tee to succeed immediately with its own input, got %d", out.Counter)
	}
	select {
	case <-done:
	case <-time.After(testTimeout):
		t.Fatal("actio: test timed out waiting for the tee'd side effect")
	}
}

func TestAny(t *testing.T) {
	t.Parallel()

	t.Run("FirstToSucceedWins", func(t *testing.T) {
		t.Parallel()
		slow := sleepThenIncrement(30 * time.Millisecond)
		fast := sleepThenIncrement(1 * time.Millisecond)
		out, err := runAction(t, nil, Any(slow, fast), &CountingFlow{})
		if err := isNil(err); err != nil {
			t.Error(err)
		}
		if out == nil {
			t.Error("expected a result")
		}
	})

	t.Run("AllFail", func(t *testing.T) {
		t.Parallel()
		_, err := runAction(t, nil, Any(IncrementAndFail(error1), IncrementAndFail(error2)), &CountingFlow{})
		if err := isNotNil(err); err != nil {
			t.Error(err)
		}
	})

	t.Run("Empty", func(t *testing.T) {
		t.Parallel()
		_, err := runAction(t, nil, Any[*CountingFlow](), &CountingFlow{})
		if err := all(isNotNil, matches(ErrAnyEmpty))(err); err != nil {
			t.Error(err)
		}
	})
}

func sleepThenIncrement(d time.Duration) Action[*CountingFlow] {
	return func(m *Orchestrator, c *CountingFlow, succeed Success[*CountingFlow], _ Failure[*CountingFlow]) {
		Delay(m, d, func() { succeed(c) })
	}
}

func TestAlt(t *testing.T) {
	t.Parallel()

	t.Run("FirstSuccessWins", func(t *testing.T) {
		t.Parallel()
		out, err := runAction(t, nil, Alt(Increment(1), Increment(100)), &CountingFlow{})
		if err := isNil(err); err != nil {
			t.Error(err)
		}
		if out.Counter != 1 {
			t.Errorf("expected the first branch's result, got %d", out.Counter)
		}
	})

	t.Run("FallsThroughOnFailure", func(t *testing.T) {
		t.Parallel()
		out, err := runAction(t, nil, Alt(IncrementAndFail(error1), Increment(2)), &CountingFlow{})
		if err := isNil(err); err != nil {
			t.Error(err)
		}
		if out.Counter != 3 {
			t.Errorf("expected 3 (1 from the failed branch, 2 from the successful one), got %d", out.Counter)
		}
	})

	t.Run("Exhausted", func(t *testing.T) {
		t.Parallel()
		_, err := runAction(t, nil, Alt(IncrementAndFail(error1), IncrementAndFail(error2)), &CountingFlow{})
		if err := all(isNotNil, matches(ErrAltExhausted))(err); err != nil {
			t.Error(err)
		}
	})

	t.Run("Empty", func(t *testing.T) {
		t.Parallel()
		_, err := runAction(t, nil, Alt[*CountingFlow](), &CountingFlow{})
		if err := all(isNotNil, matches(ErrAltEmpty))(err); err != nil {
			t.Error(err)
		}
	})
}

func TestTimeout(t *testing.T) {
	t.Parallel()

	t.Run("ActionFinishesFirst", func(t *testing.T) {
		t.Parallel()
		onTimeout := Transform[Action[*CountingFlow], *CountingFlow](func(m *Orchestrator, _ Action[*CountingFlow], succeed Success[*CountingFlow], _ Failure[*CountingFlow]) {
			succeed(&CountingFlow{Counter: -1})
		})
		action := Timeout(50*time.Millisecond, Increment(1), onTimeout)
		out, err := runAction(t, nil, action, &CountingFlow{})
		if err := isNil(err); err != nil {
			t.Error(err)
		}
		if out.Counter != 1 {
			t.Errorf("expected the underlying action's result, got %d", out.Counter)
		}
	})

	t.Run("WatchdogFiresFirst", func(t *testing.T) {
		t.Parallel()
		onTimeout := Transform[Action[*CountingFlow], *CountingFlow](func(m *Orchestrator, _ Action[*CountingFlow], succeed Success[*CountingFlow], _ Failure[*CountingFlow]) {
			succeed(&CountingFlow{Counter: -1})
		})
		slow := sleepThenIncrement(200 * time.Millisecond)
		action := Timeout(10*time.Millisecond, slow, onTimeout)
		out, err := runAction(t, nil, action, &CountingFlow{})
		if err := isNil(err); err != nil {
			t.Error(err)
		}
		if out.Counter != -1 {
			t.Errorf("expected the timeout sentinel, got %d", out.Counter)
		}
	})

	t.Run("OnTimeoutCanRestart", func(t *testing.T) {
		t.Parallel()
		attempts := 0
		flaky := func(m *Orchestrator, c *CountingFlow, succeed Success[*CountingFlow], _ Failure[*CountingFlow]) {
			attempts++
			if attempts == 1 {
				Delay(m, 100*time.Millisecond, func() { succeed(c) })
				return
			}
			succeed(c)
		}
		onTimeout := Transform[Action[*CountingFlow], *CountingFlow](func(m *Orchestrator, retry Action[*CountingFlow], succeed Success[*CountingFlow], fail Failure[*CountingFlow]) {
			Call(m, retry, &CountingFlow{Counter: 7}, succeed, fail)
		})
		action := Timeout(10*time.Millisecond, Action[*CountingFlow](flaky), onTimeout)
		out, err := runAction(t, nil, action, &CountingFlow{})
		if err := isNil(err); err != nil {
			t.Error(err)
		}
		if attempts < 2 {
			t.Errorf("expected onTimeout's restart to invoke the action again, attempts=%d", attempts)
		}
		if out.Counter != 7 {
			t.Errorf("expected 7 from the restarted attempt, got %d", out.Counter)
		}
	})
}

func TestSync(t *testing.T) {
	t.Parallel()

	// now parks its continuation until later has been called n times;
	// fire later twice and confirm now's continuation only releases once
	// the countdown hits zero, with the final later's input.
	m := New()
	type outcome struct {
		val *CountingFlow
		err error
	}
	done := make(chan outcome, 1)
	Run(m, &CountingFlow{}, func(mm *Orchestrator, c *CountingFlow, _ Success[*CountingFlow], _ Failure[*CountingFlow]) {
		nowAction, laterAction := Sync[*CountingFlow](2)
		Call(mm, nowAction, c, func(v *CountingFlow) { done <- outcome{val: v} }, func(e *IOError[*CountingFlow]) { done <- outcome{err: e.Err} })
		Call(mm, laterAction, &CountingFlow{Counter: 1}, Drain[*CountingFlow], nil)
		Call(mm, laterAction, &CountingFlow{Counter: 2}, Drain[*CountingFlow], nil)
	})

	select {
	case o := <-done:
		if o.err != nil {
			t.Fatalf("unexpected error: %v", o.err)
		}
		if o.val.Counter != 2 {
			t.Errorf("expected now to release with the final later's input (2), got %d", o.val.Counter)
		}
	case <-time.After(testTimeout):
		t.Fatal("actio: test timed out waiting for sync gate to release")
	}
}

func TestInterruptible(t *testing.T) {
	t.Parallel()

	t.Run("RunsToCompletionWithoutInterrupt", func(t *testing.T) {
		t.Parallel()
		ia := Interruptible(func(onInterrupt func(func())) Action[*CountingFlow] {
			return Increment(1)
		})
		out, err := runAction(t, nil, ia.Action, &CountingFlow{})
		if err := isNil(err); err != nil {
			t.Error(err)
		}
		if out.Counter != 1 {
			t.Errorf("expected 1, got %d", out.Counter)
		}
	})

	t.Run("InterruptRunsCleanupAndFailsPending", func(t *testing.T) {
		t.Parallel()
		var cleaned bool
		ia := Interruptible(func(onInterrupt func(func())) Action[*CountingFlow] {
			onInterrupt(func() { cleaned = true })
			return func(m *Orchestrator, c *CountingFlow, succeed Success[*CountingFlow], fail Failure[*CountingFlow]) {
				// never calls succeed/fail on its own; only Interrupt ends it
			}
		})

		m := New()
		type outcome struct{ err error }
		done := make(chan outcome, 1)
		Run(m, &CountingFlow{}, func(mm *Orchestrator, c *CountingFlow, _ Success[*CountingFlow], _ Failure[*CountingFlow]) {
			Call(mm, ia.Action, c, Drain[*CountingFlow], func(e *IOError[*CountingFlow]) { done <- outcome{err: e.Err} })
			Call(mm, ia.Interrupt, c, Drain[*CountingFlow], nil)
		})

		select {
		case o := <-done:
			if !errors.Is(o.err, ErrInterrupted) {
				t.Errorf("expected ErrInterrupted, got %v", o.err)
			}
		case <-time.After(testTimeout):
			t.Fatal("actio: test timed out waiting for interruption")
		}
		if !cleaned {
			t.Error("expected the registered cleanup to have run")
		}
	})

	t.Run("InterruptAfterCompletionIsNoop", func(t *testing.T) {
		t.Parallel()
		ia := Interruptible(func(onInterrupt func(func())) Action[*CountingFlow] {
			return Increment(1)
		})
		if _, err := runAction(t, nil, ia.Action, &CountingFlow{}); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if runActionStops(t, nil, ia.Interrupt, &CountingFlow{}) {
			t.Error("expected Interrupt to still succeed (as a no-op) after completion")
		}
	})
}

func TestInterruption(t *testing.T) {
	t.Parallel()

	mark, interrupt := Interruption("shutdown")

	m := New()
	type outcome struct{ err error }
	done := make(chan outcome, 2)
	Run(m, any(nil), func(mm *Orchestrator, in any, _ Success[any], _ Failure[any]) {
		Call(mm, mark, in, Drain[any], func(e *IOError[any]) { done <- outcome{err: e.Err} })
		Call(mm, mark, in, Drain[any], func(e *IOError[any]) { done <- outcome{err: e.Err} })
		Call(mm, interrupt, in, Drain[any], nil)
	})

	for i := 0; i < 2; i++ {
		select {
		case o := <-done:
			if err := all(isNotNil, contains("shutdown"))(o.err); err != nil {
				t.Error(err)
			}
		case <-time.After(testTimeout):
			t.Fatal("actio: test timed out waiting for interruption fan-out")
		}
	}
}

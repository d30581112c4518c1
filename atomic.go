// SPDX-License-Identifier: Apache-2.0

package actio

import (
	"sync"

	"golang.org/x/sync/semaphore"
)

// PauseCondition is the distinguished, non-resumable failure value
// backpressure-aware producers use to suspend an upstream generator.
//
// A handler that does not specifically recognize a *PauseCondition must
// roll back to the outer failure rather than swallow it — [Gen] is the
// one built-in handler that does recognize it.
type PauseCondition struct {
	mu      sync.Mutex
	resumes []func()
}

// Error implements error so a *PauseCondition can travel as an
// [*IOError]'s wrapped error and be tested for with errors.As.
func (p *PauseCondition) Error() string { return "actio: paused: buffer full" }

// OnResume registers f to run the next time [PauseCondition.Resume]
// fires. Registration order is preserved.
func (p *PauseCondition) OnResume(f func()) {
	p.mu.Lock()
	p.resumes = append(p.resumes, f)
	p.mu.Unlock()
}

// Resume fires every callback registered via OnResume, in registration
// order, then clears the list.
func (p *PauseCondition) Resume() {
	p.mu.Lock()
	fns := p.resumes
	p.resumes = nil
	p.mu.Unlock()
	for _, f := range fns {
		f()
	}
}

// atomicEntry is one admitted, not-yet-dispatched activation of an
// [Atomic]-wrapped action.
type atomicEntry[V any] struct {
	m       *Orchestrator
	input   V
	succeed Success[V]
	fail    Failure[V]
}

// Atomic serializes every activation into action, so that at any
// instant at most one invocation of action is in flight.
//
// Admission is bounded by the calling orchestrator's
// [Orchestrator.BufferCapacity]: once that many activations are either
// running or queued, a further activation is refused with a shared
// [*PauseCondition] delivered to its own failure continuation, and
// automatically retried once buffer space reopens — this is the
// backpressure signal a [Gen] feeding an Atomic-wrapped consumer relies
// on to trap.
func Atomic[V any](action Action[V]) Action[V] {
	var mu sync.Mutex
	var queue *semaphore.Weighted
	var exec *semaphore.Weighted
	var waiters []atomicEntry[V]
	var pending *PauseCondition
	initialized := false

	ensure := func(m *Orchestrator) {
		mu.Lock()
		defer mu.Unlock()
		if !initialized {
			cap := m.BufferCapacity()
			if cap < 1 {
				cap = 1
			}
			queue = semaphore.NewWeighted(int64(cap))
			exec = semaphore.NewWeighted(1)
			initialized = true
		}
	}

	var admit func(entry atomicEntry[V])
	var dispatch func(entry atomicEntry[V])
	var complete func()

	admit = func(entry atomicEntry[V]) {
		mu.Lock()
		if !queue.TryAcquire(1) {
			pause := pending
			if pause == nil {
				pause = &PauseCondition{}
				pending = pause
			}
			mu.Unlock()
			pause.OnResume(func() { admit(entry) })
			entry.fail(newIOError(entry.m, pause, entry.input, entry.succeed, entry.fail))
			return
		}
		gotExec := exec.TryAcquire(1)
		if !gotExec {
			waiters = append(waiters, entry)
		}
		mu.Unlock()
		if gotExec {
			dispatch(entry)
		}
	}

	dispatch = func(entry atomicEntry[V]) {
		Call(entry.m, action, entry.input, func(out V) {
			complete()
			entry.succeed(out)
		}, func(ioerr *IOError[V]) {
			complete()
			entry.fail(ioerr)
		})
	}

	complete = func() {
		mu.Lock()
		queue.Release(1)
		exec.Release(1)

		var next *atomicEntry[V]
		if len(waiters) > 0 && exec.TryAcquire(1) {
			w := waiters[0]
			waiters = waiters[1:]
			next = &w
		}
		pause := pending
		if pause != nil {
			pending = nil
		}
		mu.Unlock()

		if pause != nil {
			pause.Resume()
		}
		if next != nil {
			dispatch(*next)
		}
	}

	return func(m *Orchestrator, input V, succeed Success[V], fail Failure[V]) {
		ensure(m)
		admit(atomicEntry[V]{m: m, input: input, succeed: succeed, fail: fail})
	}
}

// Pipeline chains stages so that each one independently serializes its
// own activations via [Atomic]: semantically Chain(mapped stages...)
// where each stage is wrapped in Atomic first.
// Multiple producers feeding the same Pipeline share each stage's FIFO
// without cross-contaminating each other's input/output pairing.
func Pipeline[V any](as ...Action[V]) Action[V] {
	wrapped := make([]Action[V], len(as))
	for i, a := range as {
		wrapped[i] = Atomic(a)
	}
	return Chain(wrapped...)
}

// SPDX-License-Identifier: Apache-2.0

package actio

import (
	"sync"
	"time"
)

// scheduler is the single-goroutine work queue backing every
// [Orchestrator] derived from the same root via [Orchestrator.Child].
//
// The scheduling model is single-threaded and cooperative: no data
// race is possible between continuations, since all mutation of shared
// structures happens on one goroutine. scheduler makes that literally
// true: exactly one goroutine — the worker that push starts on first
// use — ever runs queued tasks, so everything that
// executes inside a task (depth counters, atomic buffers, channel
// FIFOs, sync counters) needs no lock of its own. Only the queue's own
// push needs a mutex, since [NextTick] and [Delay]'s timer callbacks
// may be called from arbitrary goroutines.
type scheduler struct {
	mu      sync.Mutex
	cond    *sync.Cond
	tasks   []func()
	started bool
}

func newScheduler() *scheduler {
	s := &scheduler{}
	s.cond = sync.NewCond(&s.mu)
	return s
}

// push enqueues f for execution on the worker goroutine, starting that
// goroutine on first use.
func (s *scheduler) push(f func()) {
	s.mu.Lock()
	s.tasks = append(s.tasks, f)
	if !s.started {
		s.started = true
		go s.run()
	}
	s.cond.Signal()
	s.mu.Unlock()
}

// run is the worker goroutine's body: pop one task at a time and run
// it to completion before popping the next, forever.
func (s *scheduler) run() {
	for {
		s.mu.Lock()
		for len(s.tasks) == 0 {
			s.cond.Wait()
		}
		f := s.tasks[0]
		s.tasks = s.tasks[1:]
		s.mu.Unlock()

		f()
	}
}

// NextTick schedules f to run on m's worker goroutine as soon as it is
// free, after anything already queued.
//
// This is the scheduler's next-tick primitive: the trampoline's
// overflow path, [Fork]/[Any]'s branch dispatch, and every other
// suspension point (channel park, sync park, atomic park...) are built
// on this one primitive.
func NextTick(m *Orchestrator, f func()) {
	m.sched.push(f)
}

// Delay schedules f to run on m's worker goroutine after d has
// elapsed. d <= 0 is equivalent to [NextTick].
//
// A millisecond-resolution timer is the natural fallback when no
// faster microtask primitive is available, and in Go there is no
// faster one, so Delay is simply built on [time.AfterFunc] pushing onto
// the same queue [NextTick] uses.
func Delay(m *Orchestrator, d time.Duration, f func()) {
	if d <= 0 {
		NextTick(m, f)
		return
	}
	time.AfterFunc(d, func() {
		NextTick(m, f)
	})
}

// SPDX-License-Identifier: Apache-2.0

package actio

import (
	"encoding/json"
	"io"
	"sync"
	"time"
)

// TraceEvent represents a single execution event in a traced action
// tree.
//
// Each event captures the full path of names ([Orchestrator.Names] at
// the point [Named] was applied), start time, duration, and any error.
type TraceEvent struct {
	// Names is the full hierarchical path of names, e.g.
	// ["parent", "child", "grandchild"].
	Names []string `json:"names"`

	// Start is when the action began execution.
	Start time.Time `json:"start"`

	// Duration is how long the action took to execute.
	Duration time.Duration `json:"duration"`

	// Error is the error message if the action failed, empty otherwise.
	Error string `json:"error,omitempty"`
}

// TraceOption configures [Traced].
type TraceOption func(*traceOptions)

// traceOptions holds configuration for tracing.
type traceOptions struct {
	// StreamTo specifies where to write events as JSON Lines as they
	// complete, in addition to retaining them all in memory. If nil,
	// events are only stored in memory.
	StreamTo io.Writer
}

// WithStreamTo configures [Traced] to stream events as JSON Lines to w
// as they complete, in addition to the in-memory [*Trace] returned at
// the end. Write failures are best-effort and never fail the traced
// action.
func WithStreamTo(w io.Writer) TraceOption {
	return func(opts *traceOptions) {
		opts.StreamTo = w
	}
}

// trace is the internal recording infrastructure an [*Orchestrator]
// carries once wrapped by [Traced]. [Named] consults
// [Orchestrator].trace to record one event per named action.
type trace struct {
	mu       sync.Mutex
	streamTo io.Writer
	encoder  *json.Encoder
	result   *Trace
}

// Trace is the result [Traced] produces: every recorded event plus
// aggregate counts.
type Trace struct {
	// Events is every recorded event, in approximate start order.
	Events []TraceEvent

	// Start is when the traced action began execution.
	Start time.Time

	// Duration is the total execution time of the traced action. For
	// a trace returned by [*Trace.Filter], this is the sum of the
	// filtered events' durations instead.
	Duration time.Duration

	// TotalSteps is the number of [Named] actions executed.
	TotalSteps int

	// TotalErrors is the number of named actions that failed.
	TotalErrors int
}

// eventIdx is a type-safe index into the trace's event array.
type eventIdx int

// Traced wraps action so that every [Named] action nested inside it
// (at any depth, across any [Fork]/[Any] branch since [Orchestrator.Child]
// propagates the trace pointer) records a [TraceEvent], and returns the
// aggregated [*Trace] to its own success continuation on completion —
// or, if action itself fails, delivers the same partial [*Trace] as the
// [*IOError]'s Input, so a failure handler can still inspect what ran.
//
// Tracing is opt-in per invocation: an orchestrator not wrapped by
// Traced carries a nil trace, and [Named] skips event recording
// entirely, so untraced execution pays no bookkeeping cost.
func Traced[V any](action Action[V], opts ...TraceOption) Transform[V, *Trace] {
	options := traceOptions{}
	for _, opt := range opts {
		opt(&options)
	}

	return func(m *Orchestrator, input V, succeed Success[*Trace], fail Failure[*Trace]) {
		result := &Trace{Start: time.Now()}
		tr := &trace{streamTo: options.StreamTo, result: result}
		if tr.streamTo != nil {
			tr.encoder = json.NewEncoder(tr.streamTo)
		}

		child := m.Child()
		child.trace = tr

		finish := func(err error) {
			result.Duration = time.Since(result.Start)
			if tr.streamTo != nil {
				if flusher, ok := tr.streamTo.(interface{ Flush() error }); ok {
					_ = flusher.Flush()
				}
			}
			if err != nil {
				fail(newIOError(m, err, result, succeed, fail))
				return
			}
			succeed(result)
		}

		Call(child, action, input, func(V) { finish(nil) }, func(ioerr *IOError[V]) { finish(ioerr.Err) })
	}
}

// newEvent creates a new trace event and returns its index. Must be
// paired with a later recordFinish call using the returned index.
func (t *trace) newEvent(names []string) eventIdx {
	t.mu.Lock()
	defer t.mu.Unlock()

	idx := len(t.result.Events)
	t.result.Events = append(t.result.Events, TraceEvent{
		Names: names,
		Start: time.Now(),
	})
	t.result.TotalSteps++

	return eventIdx(idx)
}

// recordFinish updates an event with its duration and error, if any.
func (t *trace) recordFinish(idx eventIdx, err error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	event := &t.result.Events[idx]
	event.Duration = time.Since(event.Start)
	if err != nil {
		event.Error = err.Error()
		t.result.TotalErrors++
	}

	if t.streamTo != nil {
		_ = t.encoder.Encode(event)
	}
}

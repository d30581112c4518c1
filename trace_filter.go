// SPDX-License-Identifier: Apache-2.0

package actio

import "time"

// TraceFilter is a predicate over a single [TraceEvent], used by
// [*Trace.Filter] and [*Trace.FindEvent] to select a subset of a
// recorded trace. There is no fixed catalog of named constructors: a
// TraceFilter is just a func, so a caller composes whatever predicate
// its trace model actually needs directly against [TraceEvent]'s
// fields.
//
//	slow := func(e TraceEvent) bool { return e.Duration >= time.Second }
//	failed := func(e TraceEvent) bool { return e.Error != "" }
//	result.Filter(slow, failed)
type TraceFilter func(TraceEvent) bool

// FindEvent returns a pointer to the first recorded event matching
// every filter, or nil if none match.
func (t *Trace) FindEvent(filters ...TraceFilter) *TraceEvent {
	for i := range t.Events {
		event := &t.Events[i]
		if matchesAll(*event, filters) {
			return event
		}
	}
	return nil
}

// Filter returns a new *Trace holding only the events matching every
// filter. The receiver is not modified.
//
// The result's TotalSteps, TotalErrors, and Duration are recomputed
// over the filtered events; Start is the earliest Start among them, or
// the receiver's own Start if nothing matched.
func (t *Trace) Filter(filters ...TraceFilter) *Trace {
	filtered := make([]TraceEvent, 0, len(t.Events))
	errorCount := 0
	var totalDuration time.Duration
	var earliestStart time.Time

	for _, event := range t.Events {
		if !matchesAll(event, filters) {
			continue
		}
		filtered = append(filtered, event)
		totalDuration += event.Duration
		if event.Error != "" {
			errorCount++
		}
		if earliestStart.IsZero() || event.Start.Before(earliestStart) {
			earliestStart = event.Start
		}
	}

	start := t.Start
	if !earliestStart.IsZero() {
		start = earliestStart
	}

	return &Trace{
		Events:      filtered,
		Start:       start,
		Duration:    totalDuration,
		TotalSteps:  len(filtered),
		TotalErrors: errorCount,
	}
}

func matchesAll(event TraceEvent, filters []TraceFilter) bool {
	for _, filter := range filters {
		if !filter(event) {
			return false
		}
	}
	return true
}

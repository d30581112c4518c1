// SPDX-License-Identifier: Apache-2.0

package actio

import (
	"context"
	"log"
	"log/slog"
	"strings"
	"time"
)

// WithLogger returns an action that runs action against an orchestrator
// carrying logger, retrievable afterward through [Orchestrator.Logger]
// and used by [WithLogging]. Typically applied once near the root of a
// pipeline to configure logging for a whole workflow.
func WithLogger[V any](logger *log.Logger, action Action[V]) Action[V] {
	return func(m *Orchestrator, input V, succeed Success[V], fail Failure[V]) {
		Call(m.pushLogger(logger), action, input, succeed, fail)
	}
}

// WithLogging wraps action with logging that prints when it starts and
// finishes, including duration, using [Orchestrator.Logger] (set by
// [WithLogger], or [log.Default] if none was configured). The logged
// name is the dotted join of [Orchestrator.Names] (set by [Named]), or
// "<unknown>" if none are set.
//
// Log format:
//
//	[name] starting action
//	[name] finished action (took 123ms)
func WithLogging[V any](action Action[V]) Action[V] {
	return func(m *Orchestrator, input V, succeed Success[V], fail Failure[V]) {
		fullName := fullActionName(m)
		logger := m.Logger()

		logger.Printf("[%s] starting action\n", fullName)
		start := time.Now()
		Call(m, action, input, func(out V) {
			logger.Printf("[%s] finished action (took %v)\n", fullName, time.Since(start))
			succeed(out)
		}, func(ioerr *IOError[V]) {
			logger.Printf("[%s] finished action (took %v)\n", fullName, time.Since(start))
			fail(ioerr)
		})
	}
}

// WithSlogger returns an action that runs action against an orchestrator
// carrying logger, retrievable afterward through [Orchestrator.Slogger]
// and used by [WithSlogging] and [Log].
func WithSlogger[V any](logger *slog.Logger, action Action[V]) Action[V] {
	return func(m *Orchestrator, input V, succeed Success[V], fail Failure[V]) {
		Call(m.pushSlogger(logger), action, input, succeed, fail)
	}
}

// WithSlogging wraps action with structured logging that emits records
// when it starts and finishes, at level, including a duration_ms
// attribute on the finish record. The name attribute is the dotted
// join of [Orchestrator.Names], or "<unknown>" if none are set. Uses
// [Orchestrator.Slogger] (set by [WithSlogger], or [slog.Default] if
// none was configured).
func WithSlogging[V any](level slog.Level, action Action[V]) Action[V] {
	return func(m *Orchestrator, input V, succeed Success[V], fail Failure[V]) {
		fullName := fullActionName(m)
		logger := m.Slogger()
		ctx := context.Background()

		logger.Log(ctx, level, "starting action", "name", fullName)
		start := time.Now()
		Call(m, action, input, func(out V) {
			logger.Log(ctx, level, "finished action", "name", fullName, "duration_ms", time.Since(start).Milliseconds())
			succeed(out)
		}, func(ioerr *IOError[V]) {
			logger.Log(ctx, level, "finished action", "name", fullName, "duration_ms", time.Since(start).Milliseconds(), "error", ioerr.Err)
			fail(ioerr)
		})
	}
}

// Log returns an action that emits a single structured log record at
// level with msg, tagged with the current name path, then succeeds
// with input unchanged. It is a thin convenience wrapper over the same
// orchestrator-scoped logger [WithSlogging] uses, not a distinct
// logging mechanism.
func Log[V any](level slog.Level, msg string) Action[V] {
	return func(m *Orchestrator, input V, succeed Success[V], _ Failure[V]) {
		m.Slogger().Log(context.Background(), level, msg, "name", fullActionName(m))
		succeed(input)
	}
}

// fullActionName joins m's current name stack with dots, or reports
// "<unknown>" if no names are set.
func fullActionName(m *Orchestrator) string {
	names := m.Names()
	if len(names) == 0 {
		return "<unknown>"
	}
	return strings.Join(names, ".")
}

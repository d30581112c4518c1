// SPDX-License-Identifier: Apache-2.0

package actio

import (
	"fmt"
	"runtime"
	"strings"
)

// Named wraps action with a name.
//
// The name is prepended to the error message of any failure action
// raises, separated by a colon: an action failing with "invalid
// config" becomes "example: invalid config" when wrapped as
// Named("example", action).
//
// Named also pushes the name onto the orchestrator's name stack (via
// [Orchestrator.pushName]) before dispatching action, so nested Named
// wrappers build a hierarchical path retrievable afterward through
// [Orchestrator.Names]. The name stack lives on the [*Orchestrator]
// itself rather than a context.Context, since that's what this kernel
// threads end to end.
func Named[V any](name string, action Action[V]) Action[V] {
	return func(m *Orchestrator, input V, succeed Success[V], fail Failure[V]) {
		child := m.pushName(name)

		var idx eventIdx
		tracing := child.trace != nil
		if tracing {
			idx = child.trace.newEvent(child.Names())
		}

		Call(child, action, input, func(out V) {
			if tracing {
				child.trace.recordFinish(idx, nil)
			}
			succeed(out)
		}, func(ioerr *IOError[V]) {
			ioerr.Err = fmt.Errorf("%s: %w", name, ioerr.Err)
			if tracing {
				child.trace.recordFinish(idx, ioerr.Err)
			}
			fail(ioerr)
		})
	}
}

// NamedTransform wraps transform with a name for a [Transform], as
// [Named] does for a same-typed [Action]: it pushes the name onto the
// name stack and prefixes failure messages with it. Unlike Named, it
// records no [TraceEvent].
func NamedTransform[In, Out any](name string, transform Transform[In, Out]) Transform[In, Out] {
	return func(m *Orchestrator, input In, succeed Success[Out], fail Failure[Out]) {
		child := m.pushName(name)
		CallTransform(child, transform, input, succeed, func(ioerr *IOError[Out]) {
			ioerr.Err = fmt.Errorf("%s: %w", name, ioerr.Err)
			fail(ioerr)
		})
	}
}

// autoNamedOptions configures [AutoNamed] and [AutoNamedTransform].
type autoNamedOptions struct {
	callerSkip int
}

// An AutoNamedOption is a function option for [AutoNamed] and
// [AutoNamedTransform].
type AutoNamedOption func(*autoNamedOptions)

// SkipCaller adds a delta to the number of skipped stack frames.
//
// Useful when wrapping AutoNamed inside another constructor function,
// so the derived name identifies the original caller rather than the
// intermediate wrapper.
//
// Example:
//
//	func RetryingFetch() actio.Action[*Request] {
//	    return fetchWrapper(fetch, actio.SkipCaller(1))
//	}
//
//	func fetchWrapper(a actio.Action[*Request], opts ...actio.AutoNamedOption) actio.Action[*Request] {
//	    return actio.AutoNamed(Retry(a), opts...)
//	}
func SkipCaller(delta int) AutoNamedOption {
	return func(o *autoNamedOptions) {
		o.callerSkip += delta
	}
}

// AutoNamed wraps action with a name automatically derived from the
// function calling AutoNamed, via [runtime.Caller].
//
// Note: AutoNamed only produces a sensible name when called directly
// from a named function. Calling it from an anonymous closure yields
// the closure's synthetic name (e.g. "func1").
func AutoNamed[V any](action Action[V], opts ...AutoNamedOption) Action[V] {
	return autoNamed(action, Named[V], opts...)
}

// AutoNamedTransform wraps transform with a name automatically derived
// from the calling function. See [AutoNamed] for details.
func AutoNamedTransform[In, Out any](transform Transform[In, Out], opts ...AutoNamedOption) Transform[In, Out] {
	return autoNamed(transform, NamedTransform[In, Out], opts...)
}

func autoNamed[T any](thing T, namer func(string, T) T, opts ...AutoNamedOption) T {
	const minimumCallerSkip = 2
	config := autoNamedOptions{callerSkip: minimumCallerSkip}
	for _, opt := range opts {
		opt(&config)
	}

	pc, _, _, ok := runtime.Caller(config.callerSkip)
	if !ok {
		return thing
	}

	fn := runtime.FuncForPC(pc)
	if fn == nil {
		return thing
	}

	return namer(extractFunctionName(fn.Name()), thing)
}

// extractFunctionName extracts the simple function name from a full Go
// function path.
//
// Examples:
//   - "github.com/nimbusio/actio.CreateSession" -> "CreateSession"
//   - "main.(*Server).HandleRequest" -> "HandleRequest"
func extractFunctionName(fullName string) string {
	parts := strings.Split(fullName, "/")
	lastPart := parts[len(parts)-1]
	if idx := strings.LastIndex(lastPart, "."); idx != -1 {
		lastPart = lastPart[idx+1:]
	}
	return lastPart
}

// SPDX-License-Identifier: Apache-2.0

package actio

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"
)

// WriteTo serializes the trace as a pretty-printed JSON array of
// events to w, returning the number of bytes written.
//
// This differs from streaming (via [WithStreamTo]), which writes JSON
// Lines incrementally as events complete; WriteTo writes a single
// array once, on demand.
func (t *Trace) WriteTo(w io.Writer) (int64, error) {
	data, err := json.MarshalIndent(t.Events, "", "  ")
	if err != nil {
		return 0, fmt.Errorf("actio: marshal trace: %w", err)
	}
	data = append(data, '\n')

	n, err := w.Write(data)
	if err != nil {
		return int64(n), fmt.Errorf("actio: write trace: %w", err)
	}
	return int64(n), nil
}

// eventLine renders one event as a single formatted line, indented by
// nesting depth if tree is true, or as its full path of names joined
// with " > " if not.
func eventLine(event TraceEvent, tree bool) string {
	var head string
	if tree {
		depth := len(event.Names)
		if depth > 0 {
			depth--
		}
		name := "<unknown>"
		if len(event.Names) > 0 {
			name = event.Names[len(event.Names)-1]
		}
		head = strings.Repeat("  ", depth) + name
	} else {
		head = "<unknown>"
		if len(event.Names) > 0 {
			head = strings.Join(event.Names, " > ")
		}
	}

	line := fmt.Sprintf("%s (%s)", head, event.Duration)
	if event.Error != "" {
		line += fmt.Sprintf(" [ERROR: %s]", event.Error)
	}
	return line + "\n"
}

// writeLines writes one eventLine per recorded event to w, failing
// with op identifying which rendering mode produced the bad write.
func (t *Trace) writeLines(w io.Writer, tree bool, op string) (int64, error) {
	var total int64
	for _, event := range t.Events {
		n, err := io.WriteString(w, eventLine(event, tree))
		total += int64(n)
		if err != nil {
			return total, fmt.Errorf("actio: write %s trace: %w", op, err)
		}
	}
	return total, nil
}

// WriteText outputs a human-readable tree view of the trace, indented
// by nesting depth.
//
// Example output:
//
//	validate (45ms)
//	connect (120ms)
//	migrate (2.3s)
//	  create-tables (1.8s)
//	  create-indexes (500ms)
//
// For actions with concurrent branches, events may interleave in
// execution order rather than logical nesting order; use
// [*Trace.WriteFlatText] instead in that case.
func (t *Trace) WriteText(w io.Writer) (int64, error) {
	return t.writeLines(w, true, "text")
}

// WriteFlatText outputs a human-readable chronological list of events
// with full name paths joined by " > " and no tree indentation, recommended for
// concurrent actions where the tree view can misrepresent nesting.
//
// Example output:
//
//	validate (45ms)
//	connect (120ms)
//	migrate (2.3s)
//	migrate > create-tables (1.8s)
//	migrate > create-indexes (500ms)
func (t *Trace) WriteFlatText(w io.Writer) (int64, error) {
	return t.writeLines(w, false, "flat text")
}

// traceRenderer is one of Trace's WriteTo/WriteText/WriteFlatText
// methods, used to share a single Action wrapper implementation
// across WriteJSONTo/WriteTextTo/WriteFlatTextTo instead of
// triplicating the wrap-and-succeed boilerplate per format.
type traceRenderer func(*Trace, io.Writer) (int64, error)

// writeTraceTo returns an action that renders its input trace through
// render and succeeds with the trace unchanged, so it composes
// naturally after [Traced] in a [Chain].
func writeTraceTo(render traceRenderer, w io.Writer) Action[*Trace] {
	return func(_ *Orchestrator, input *Trace, succeed Success[*Trace], fail Failure[*Trace]) {
		if _, err := render(input, w); err != nil {
			fail(newIOError[*Trace](nil, err, input, succeed, fail))
			return
		}
		succeed(input)
	}
}

// WriteJSONTo returns an action that serializes its input trace to w
// as JSON, then succeeds with it unchanged.
func WriteJSONTo(w io.Writer) Action[*Trace] {
	return writeTraceTo((*Trace).WriteTo, w)
}

// WriteTextTo returns an action that serializes its input trace to w
// as a human-readable tree, then succeeds with it unchanged.
func WriteTextTo(w io.Writer) Action[*Trace] {
	return writeTraceTo((*Trace).WriteText, w)
}

// WriteFlatTextTo returns an action that serializes its input trace to
// w as a flat chronological list, then succeeds with it unchanged.
func WriteFlatTextTo(w io.Writer) Action[*Trace] {
	return writeTraceTo((*Trace).WriteFlatText, w)
}

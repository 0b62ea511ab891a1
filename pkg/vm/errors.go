package vm

import (
	"fmt"
	"strings"
)

// StackFrame is one entry in a RuntimeError's trace: the source line the
// call was at and the function's display name ("script" for the
// top-level implicit function).
type StackFrame struct {
	Line int
	Name string
}

// RuntimeError is the single error type the VM ever returns from Run. It
// carries the frame stack as it stood at the moment of failure, walked
// top-down by Error().
type RuntimeError struct {
	Message    string
	StackTrace []StackFrame
}

// Error renders the trace innermost-frame-first: StackTrace[0] is already
// the frame where the error occurred (see runtimeError), so this walks it
// in order rather than reversing it.
func (e *RuntimeError) Error() string {
	var b strings.Builder
	fmt.Fprintf(&b, "Runtime Error: %s", e.Message)
	for _, f := range e.StackTrace {
		fmt.Fprintf(&b, "\n[line %d] in %s", f.Line, f.Name)
	}
	return b.String()
}

func newRuntimeError(message string, stack []StackFrame) *RuntimeError {
	return &RuntimeError{Message: message, StackTrace: stack}
}

package vm

import (
	"fmt"
	"strings"
)

// CompileError wraps the error list a failed compile produced, so callers
// (the CLI, the REPL) can distinguish "didn't compile" from "compiled but
// crashed at runtime" for exit-code purposes (spec §6 "Exit codes").
type CompileError struct {
	Errors []error
}

func (e *CompileError) Error() string {
	parts := make([]string, len(e.Errors))
	for i, err := range e.Errors {
		parts[i] = err.Error()
	}
	return strings.Join(parts, "\n")
}

// frameTrace is one line of a runtime error's stack trace: the function
// name and the source line active in that frame when the error was raised
// (spec §7 "runtimeError(fmt, ...) prints message plus a stack trace:
// frame-by-frame, function name and source line").
type frameTrace struct {
	function string
	line     int
}

// RuntimeError is raised by an arithmetic/type/lookup failure during
// execution, or by a native signalling failure through RuntimeError. It
// carries the call stack active at the point of the error, innermost
// frame first.
type RuntimeError struct {
	Message string
	Trace   []frameTrace
}

func (e *RuntimeError) Error() string {
	var b strings.Builder
	b.WriteString(e.Message)
	for _, t := range e.Trace {
		fmt.Fprintf(&b, "\n  at line %d in %s", t.line, t.function)
	}
	return b.String()
}

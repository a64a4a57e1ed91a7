package firestarter

import "fmt"

// CompileError reports a problem found while lowering a parsed script
// into tinder instructions — as opposed to a grammar.ParseError, which
// reports malformed source text before any lowering is attempted.
type CompileError struct {
	Line    int
	Message string
}

func (e *CompileError) Error() string {
	return fmt.Sprintf("compile error: line %d: %s", e.Line, e.Message)
}

func compileErr(line int, format string, args ...any) *CompileError {
	return &CompileError{Line: line, Message: fmt.Sprintf(format, args...)}
}

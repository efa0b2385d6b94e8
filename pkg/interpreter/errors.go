package interpreter

import (
	"errors"
	"fmt"
	"strings"

	"rinha/interpreter-go/pkg/ast"
	"rinha/interpreter-go/pkg/runtime"
)

// Failure kinds. Every evaluation error unwraps to exactly one of these.
var (
	ErrUnboundVariable = runtime.ErrUnboundVariable
	ErrNotCallable     = errors.New("not callable")
	ErrCalleeNotVar    = errors.New("callee is not a variable")
	ErrArityMismatch   = errors.New("arity mismatch")
	ErrTypeMismatch    = errors.New("type mismatch")
	ErrEmbeddedParse   = errors.New("parse error")
	ErrStackOverflow   = errors.New("stack overflow")
	ErrArithmetic      = errors.New("arithmetic error")
	ErrOutput          = errors.New("output error")
)

// RuntimeError is a fatal evaluation failure tied to a source location.
type RuntimeError struct {
	Kind     error
	Message  string
	Location ast.Location
	// Trace lists the live frames at the failure point, innermost first.
	Trace []string
}

func (e *RuntimeError) Error() string {
	if e.Location.Filename == "" {
		return fmt.Sprintf("%d: %s", e.Location.Start, e.Message)
	}
	return fmt.Sprintf("%s:%d: %s", e.Location.Filename, e.Location.Start, e.Message)
}

func (e *RuntimeError) Unwrap() error {
	return e.Kind
}

// TraceString renders the trace one frame per line.
func (e *RuntimeError) TraceString() string {
	if len(e.Trace) == 0 {
		return ""
	}
	var b strings.Builder
	for _, name := range e.Trace {
		b.WriteString("  at ")
		b.WriteString(name)
		b.WriteByte('\n')
	}
	return b.String()
}

// AsRuntimeError extracts the RuntimeError from err, if any.
func AsRuntimeError(err error) (*RuntimeError, bool) {
	var rt *RuntimeError
	if errors.As(err, &rt) {
		return rt, true
	}
	return nil, false
}

func (i *Interpreter) fail(kind error, loc ast.Location, stack *runtime.CallStack, format string, args ...any) error {
	err := &RuntimeError{
		Kind:     kind,
		Message:  fmt.Sprintf(format, args...),
		Location: loc,
	}
	if stack != nil {
		frames := stack.Frames()
		err.Trace = make([]string, 0, len(frames))
		for idx := len(frames) - 1; idx >= 0; idx-- {
			err.Trace = append(err.Trace, frames[idx].Name())
		}
	}
	return err
}

func (i *Interpreter) typeMismatch(loc ast.Location, stack *runtime.CallStack, format string, args ...any) error {
	return i.fail(ErrTypeMismatch, loc, stack, format, args...)
}

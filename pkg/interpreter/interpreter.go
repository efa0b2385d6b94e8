package interpreter

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"

	"rinha/interpreter-go/pkg/ast"
	"rinha/interpreter-go/pkg/runtime"
)

// DefaultMaxCallDepth bounds nested calls when Options leaves it unset.
const DefaultMaxCallDepth = 10000

// Options configures an Interpreter. Zero values select defaults.
type Options struct {
	// Stdout receives print output. Writes are not buffered.
	Stdout io.Writer
	// MaxCallDepth is the number of nested calls allowed before evaluation
	// fails with ErrStackOverflow.
	MaxCallDepth int
	// Logger receives debug records for frame pushes and pops.
	Logger *slog.Logger
}

// Interpreter evaluates rinha terms. An Interpreter owns a single call stack
// and must be confined to one goroutine.
type Interpreter struct {
	stdout       io.Writer
	maxCallDepth int
	logger       *slog.Logger
	traceFrames  bool
	stack        *runtime.CallStack
}

// New returns an interpreter writing to os.Stdout with default limits.
func New() *Interpreter {
	return NewWithOptions(Options{})
}

// NewWithOptions returns an interpreter configured by opts. The call stack
// starts with a root frame so terms can be evaluated directly.
func NewWithOptions(opts Options) *Interpreter {
	stdout := opts.Stdout
	if stdout == nil {
		stdout = os.Stdout
	}
	depth := opts.MaxCallDepth
	if depth <= 0 {
		depth = DefaultMaxCallDepth
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	interp := &Interpreter{
		stdout:       stdout,
		maxCallDepth: depth,
		logger:       logger,
		traceFrames:  logger.Enabled(context.Background(), slog.LevelDebug),
	}
	interp.Reset("")
	return interp
}

// CallStack returns the interpreter's stack.
func (i *Interpreter) CallStack() *runtime.CallStack {
	return i.stack
}

// MaxCallDepth reports the configured recursion limit.
func (i *Interpreter) MaxCallDepth() int {
	return i.maxCallDepth
}

// Reset discards every frame and pushes a fresh root frame for filename.
func (i *Interpreter) Reset(filename string) {
	i.stack = runtime.NewCallStack()
	i.stack.Push(runtime.NewRootFrame(filename))
}

// Run evaluates a whole program in a fresh root frame and returns its value.
// The root frame is left in place so callers can inspect top-level bindings.
func (i *Interpreter) Run(file *ast.File) (runtime.Value, error) {
	if file == nil || file.Expression == nil {
		return nil, fmt.Errorf("run: program has no expression")
	}
	i.Reset(file.Name)
	i.logger.Debug("run", "program", file.Name)
	return i.Evaluate(file.Expression, i.stack)
}

// Evaluate interprets term against stack. The stack must hold at least the
// root frame; frames pushed for calls are always popped before returning.
func (i *Interpreter) Evaluate(term ast.Term, stack *runtime.CallStack) (runtime.Value, error) {
	if stack == nil || stack.Depth() == 0 {
		return nil, fmt.Errorf("evaluate: %w", runtime.ErrStackUnderflow)
	}
	depth := stack.Depth()
	val, err := i.evaluate(term, stack)
	if stack.Depth() != depth {
		stack.Truncate(depth)
	}
	return val, err
}

func (i *Interpreter) evaluate(term ast.Term, stack *runtime.CallStack) (runtime.Value, error) {
	switch n := term.(type) {
	case *ast.IntegerLiteral:
		return runtime.IntValue{Val: n.Value}, nil
	case *ast.StringLiteral:
		return runtime.StrValue{Val: n.Value}, nil
	case *ast.BooleanLiteral:
		return runtime.BoolValue{Val: n.Value}, nil
	case *ast.Var:
		val, err := stack.Resolve(n.Text)
		if err != nil {
			return nil, i.fail(ErrUnboundVariable, n.Loc(), stack, "unbound variable %q", n.Text)
		}
		return val, nil
	case *ast.Let:
		return i.evaluateLet(n, stack)
	case *ast.If:
		return i.evaluateIf(n, stack)
	case *ast.Binary:
		return i.evaluateBinary(n, stack)
	case *ast.Function:
		return runtime.NewFunctionValue(n), nil
	case *ast.Call:
		return i.evaluateCall(n, stack)
	case *ast.PrintExpression:
		return i.evaluatePrint(n, stack)
	case *ast.Tuple:
		first, err := i.evaluate(n.First, stack)
		if err != nil {
			return nil, err
		}
		second, err := i.evaluate(n.Second, stack)
		if err != nil {
			return nil, err
		}
		return runtime.TupleValue{First: first, Second: second}, nil
	case *ast.First:
		tuple, err := i.evaluateTuple(n.Value, n.Loc(), "first", stack)
		if err != nil {
			return nil, err
		}
		return tuple.First, nil
	case *ast.Second:
		tuple, err := i.evaluateTuple(n.Value, n.Loc(), "second", stack)
		if err != nil {
			return nil, err
		}
		return tuple.Second, nil
	case *ast.Error:
		return nil, i.fail(ErrEmbeddedParse, n.Loc(), stack, "parse error: %s", errorText(n))
	case nil:
		return nil, fmt.Errorf("evaluate: nil term")
	default:
		return nil, fmt.Errorf("evaluate: unsupported term %T", term)
	}
}

func (i *Interpreter) evaluateLet(let *ast.Let, stack *runtime.CallStack) (runtime.Value, error) {
	val, err := i.evaluate(let.Value, stack)
	if err != nil {
		return nil, err
	}
	if let.Name != nil && let.Name.Text != "" {
		if err := stack.Bind(let.Name.Text, val); err != nil {
			return nil, fmt.Errorf("let %s: %w", let.Name.Text, err)
		}
	}
	return i.evaluate(let.Next, stack)
}

func (i *Interpreter) evaluateIf(expr *ast.If, stack *runtime.CallStack) (runtime.Value, error) {
	cond, err := i.evaluate(expr.Condition, stack)
	if err != nil {
		return nil, err
	}
	truth, ok := isTruthy(cond)
	if !ok {
		return nil, i.typeMismatch(expr.Condition.Loc(), stack, "condition is not boolean (got %s)", runtime.KindOf(cond))
	}
	if truth {
		return i.evaluate(expr.Then, stack)
	}
	return i.evaluate(expr.Otherwise, stack)
}

// isTruthy accepts booleans and integers (nonzero is true).
func isTruthy(val runtime.Value) (bool, bool) {
	switch v := val.(type) {
	case runtime.BoolValue:
		return v.Val, true
	case runtime.IntValue:
		return v.Val != 0, true
	default:
		return false, false
	}
}

func (i *Interpreter) evaluateTuple(term ast.Term, loc ast.Location, op string, stack *runtime.CallStack) (runtime.TupleValue, error) {
	val, err := i.evaluate(term, stack)
	if err != nil {
		return runtime.TupleValue{}, err
	}
	tuple, ok := val.(runtime.TupleValue)
	if !ok {
		return runtime.TupleValue{}, i.typeMismatch(loc, stack, "%s expects a tuple (got %s)", op, runtime.KindOf(val))
	}
	return tuple, nil
}

func (i *Interpreter) evaluatePrint(p *ast.PrintExpression, stack *runtime.CallStack) (runtime.Value, error) {
	val, err := i.evaluate(p.Value, stack)
	if err != nil {
		return nil, err
	}
	if _, err := io.WriteString(i.stdout, valueToString(val)); err != nil {
		return nil, i.fail(ErrOutput, p.Loc(), stack, "print: %v", err)
	}
	return runtime.VoidValue{}, nil
}

func errorText(e *ast.Error) string {
	if e.Message != "" {
		return e.Message
	}
	return e.FullText
}

package interpreter

import (
	"bytes"
	"errors"
	"log/slog"
	"strings"
	"testing"

	"rinha/interpreter-go/pkg/ast"
	"rinha/interpreter-go/pkg/runtime"
)

func factorialProgram(n int64) ast.Term {
	body := ast.Cond(
		ast.Bin(ast.OpEq, ast.ID("n"), ast.Int(0)),
		ast.Int(1),
		ast.Bin(ast.OpMul, ast.ID("n"), ast.CallName("fact", ast.Bin(ast.OpSub, ast.ID("n"), ast.Int(1)))),
	)
	return ast.LetIn("fact", ast.Fn([]string{"n"}, body), ast.Print(ast.CallName("fact", ast.Int(n))))
}

func TestFactorialPrints120(t *testing.T) {
	interp, out := newTestInterpreter()
	evalTerm(t, interp, factorialProgram(5))
	if out.String() != "120" {
		t.Fatalf("stdout = %q, want %q", out.String(), "120")
	}
	if interp.CallStack().Depth() != 1 {
		t.Fatalf("expected only the root frame after run, depth %d", interp.CallStack().Depth())
	}
}

func TestArityMustMatchExactly(t *testing.T) {
	add := ast.Fn([]string{"a", "b"}, ast.Bin(ast.OpAdd, ast.ID("a"), ast.ID("b")))
	for _, args := range [][]ast.Term{
		{ast.Int(1)},
		{ast.Int(1), ast.Int(2), ast.Int(3)},
	} {
		interp, _ := newTestInterpreter()
		_, err := interp.Evaluate(ast.LetIn("add", add, ast.CallName("add", args...)), interp.CallStack())
		if !errors.Is(err, ErrArityMismatch) {
			t.Fatalf("expected ErrArityMismatch for %d args, got %v", len(args), err)
		}
	}
	interp, _ := newTestInterpreter()
	expectInt(t, evalTerm(t, interp, ast.LetIn("add", add, ast.CallName("add", ast.Int(1), ast.Int(2)))), 3)
}

func TestCalleeMustBeVariable(t *testing.T) {
	interp, _ := newTestInterpreter()
	inline := ast.CallExpr(ast.Fn(nil, ast.Int(1)))
	_, err := interp.Evaluate(inline, interp.CallStack())
	if !errors.Is(err, ErrCalleeNotVar) {
		t.Fatalf("expected ErrCalleeNotVar, got %v", err)
	}
}

func TestCalleeMustBeFunction(t *testing.T) {
	interp, _ := newTestInterpreter()
	_, err := interp.Evaluate(ast.LetIn("x", ast.Int(3), ast.CallName("x")), interp.CallStack())
	if !errors.Is(err, ErrNotCallable) {
		t.Fatalf("expected ErrNotCallable, got %v", err)
	}
	_, err = interp.Evaluate(ast.CallName("missing"), interp.CallStack())
	if !errors.Is(err, ErrUnboundVariable) {
		t.Fatalf("expected ErrUnboundVariable, got %v", err)
	}
}

func TestArgumentsEvaluateLeftToRightBeforePush(t *testing.T) {
	interp, out := newTestInterpreter()
	pair := ast.Fn([]string{"a", "b"}, ast.Tup(ast.ID("a"), ast.ID("b")))
	program := ast.LetIn("pair", pair, ast.CallName("pair", ast.Print(ast.Str("1")), ast.Print(ast.Str("2"))))
	evalTerm(t, interp, program)
	if out.String() != "12" {
		t.Fatalf("arguments evaluated out of order: %q", out.String())
	}

	// Arguments run in the caller's frame, where parameter a is not bound yet.
	interp, _ = newTestInterpreter()
	_, err := interp.Evaluate(ast.LetIn("pair", pair, ast.CallName("pair", ast.Int(1), ast.ID("a"))), interp.CallStack())
	if !errors.Is(err, ErrUnboundVariable) {
		t.Fatalf("argument saw callee parameter: %v", err)
	}
}

// inner reads x, which only outer binds; middle sits between them.
func TestDynamicScopeSeesAncestorFrames(t *testing.T) {
	interp, _ := newTestInterpreter()
	program := ast.Seq(
		ast.LetIn("inner", ast.Fn(nil, ast.ID("x")), ast.Int(0)),
		ast.LetIn("middle", ast.Fn(nil, ast.CallName("inner")), ast.Int(0)),
		ast.LetIn("outer", ast.Fn(nil, ast.LetIn("x", ast.Int(99), ast.CallName("middle"))), ast.Int(0)),
		ast.CallName("outer"),
	)
	expectInt(t, evalTerm(t, interp, program), 99)
}

func TestDynamicScopeHidesReturnedSiblings(t *testing.T) {
	interp, _ := newTestInterpreter()
	program := ast.Seq(
		ast.LetIn("setter", ast.Fn(nil, ast.LetIn("x", ast.Int(1), ast.ID("x"))), ast.Int(0)),
		ast.LetIn("reader", ast.Fn(nil, ast.ID("x")), ast.Int(0)),
		ast.CallName("setter"),
		ast.CallName("reader"),
	)
	_, err := interp.Evaluate(program, interp.CallStack())
	if !errors.Is(err, ErrUnboundVariable) {
		t.Fatalf("expected sibling binding to be gone, got %v", err)
	}
}

func TestFunctionsDoNotCaptureDefinitionScope(t *testing.T) {
	interp, _ := newTestInterpreter()
	// get is defined where x = 1 but called from a frame that rebinds x.
	program := ast.Seq(
		ast.LetIn("x", ast.Int(1), ast.Int(0)),
		ast.LetIn("get", ast.Fn(nil, ast.ID("x")), ast.Int(0)),
		ast.LetIn("wrap", ast.Fn([]string{"x"}, ast.CallName("get")), ast.Int(0)),
		ast.CallName("wrap", ast.Int(2)),
	)
	expectInt(t, evalTerm(t, interp, program), 2)
}

func TestParameterBindingsStayInCalleeFrame(t *testing.T) {
	interp, _ := newTestInterpreter()
	program := ast.Seq(
		ast.LetIn("f", ast.Fn([]string{"p"}, ast.LetIn("local", ast.Int(5), ast.ID("p"))), ast.Int(0)),
		ast.CallName("f", ast.Int(3)),
	)
	expectInt(t, evalTerm(t, interp, program), 3)
	root := interp.CallStack().Current()
	for _, name := range []string{"p", "local"} {
		if _, ok := root.Lookup(name); ok {
			t.Fatalf("callee binding %q leaked into root frame", name)
		}
	}
}

func TestFramesUnwindAfterFailure(t *testing.T) {
	interp, _ := newTestInterpreter()
	program := ast.Seq(
		ast.LetIn("boom", ast.Fn([]string{"n"}, ast.Cond(ast.ID("n"), ast.CallName("boom", ast.Bin(ast.OpSub, ast.ID("n"), ast.Int(1))), ast.ID("undefined"))), ast.Int(0)),
		ast.CallName("boom", ast.Int(4)),
	)
	_, err := interp.Evaluate(program, interp.CallStack())
	if !errors.Is(err, ErrUnboundVariable) {
		t.Fatalf("expected failure from innermost call, got %v", err)
	}
	if depth := interp.CallStack().Depth(); depth != 1 {
		t.Fatalf("expected frames to unwind to root, depth %d", depth)
	}
	rt, ok := AsRuntimeError(err)
	if !ok {
		t.Fatalf("expected RuntimeError, got %T", err)
	}
	if len(rt.Trace) != 6 || rt.Trace[0] != "boom" || rt.Trace[5] != "<root>" {
		t.Fatalf("unexpected trace %v", rt.Trace)
	}
	if !strings.Contains(rt.TraceString(), "  at boom\n") {
		t.Fatalf("unexpected trace string %q", rt.TraceString())
	}
}

func TestStackOverflowGuard(t *testing.T) {
	var out bytes.Buffer
	interp := NewWithOptions(Options{Stdout: &out, MaxCallDepth: 50})
	loop := ast.Seq(
		ast.LetIn("loop", ast.Fn([]string{"n"}, ast.CallName("loop", ast.Bin(ast.OpAdd, ast.ID("n"), ast.Int(1)))), ast.Int(0)),
		ast.CallName("loop", ast.Int(0)),
	)
	_, err := interp.Evaluate(loop, interp.CallStack())
	if !errors.Is(err, ErrStackOverflow) {
		t.Fatalf("expected ErrStackOverflow, got %v", err)
	}
	if depth := interp.CallStack().Depth(); depth != 1 {
		t.Fatalf("expected frames to unwind after overflow, depth %d", depth)
	}
	rt, _ := AsRuntimeError(err)
	if len(rt.Trace) != 51 {
		t.Fatalf("expected 50 call frames plus root in trace, got %d", len(rt.Trace))
	}
}

func TestCallDepthLimitAllowsExactlyMax(t *testing.T) {
	interp := NewWithOptions(Options{Stdout: &bytes.Buffer{}, MaxCallDepth: 10})
	countdown := ast.Seq(
		ast.LetIn("down", ast.Fn([]string{"n"}, ast.Cond(ast.ID("n"), ast.CallName("down", ast.Bin(ast.OpSub, ast.ID("n"), ast.Int(1))), ast.Int(0))), ast.Int(0)),
		ast.CallName("down", ast.Int(9)),
	)
	expectInt(t, evalTerm(t, interp, countdown), 0)
	if interp.MaxCallDepth() != 10 {
		t.Fatalf("MaxCallDepth = %d", interp.MaxCallDepth())
	}
	if New().MaxCallDepth() != DefaultMaxCallDepth {
		t.Fatalf("default depth not applied")
	}
}

func TestCallFunctionHelper(t *testing.T) {
	interp, _ := newTestInterpreter()
	fn := evalTerm(t, interp, ast.Fn([]string{"a", "b"}, ast.Bin(ast.OpMul, ast.ID("a"), ast.ID("b"))))
	val, err := interp.CallFunction(fn, []runtime.Value{runtime.IntValue{Val: 6}, runtime.IntValue{Val: 7}})
	if err != nil {
		t.Fatalf("CallFunction: %v", err)
	}
	expectInt(t, val, 42)
	if _, err := interp.CallFunction(runtime.IntValue{Val: 1}, nil); !errors.Is(err, ErrNotCallable) {
		t.Fatalf("expected ErrNotCallable, got %v", err)
	}
	if _, err := interp.CallFunction(fn, nil); !errors.Is(err, ErrArityMismatch) {
		t.Fatalf("expected ErrArityMismatch, got %v", err)
	}
}

func TestFrameTracingLogsPushAndPop(t *testing.T) {
	var logs bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&logs, &slog.HandlerOptions{Level: slog.LevelDebug}))
	interp := NewWithOptions(Options{Stdout: &bytes.Buffer{}, Logger: logger})
	evalTerm(t, interp, ast.LetIn("id", ast.Fn([]string{"v"}, ast.ID("v")), ast.CallName("id", ast.Int(1))))
	text := logs.String()
	if !strings.Contains(text, "frame push") || !strings.Contains(text, "frame pop") || !strings.Contains(text, "callee=id") {
		t.Fatalf("expected frame trace records, got %q", text)
	}
}

package interpreter

import (
	"bytes"
	"errors"
	"testing"

	"rinha/interpreter-go/pkg/ast"
	"rinha/interpreter-go/pkg/runtime"
)

func newTestInterpreter() (*Interpreter, *bytes.Buffer) {
	var out bytes.Buffer
	return NewWithOptions(Options{Stdout: &out}), &out
}

func evalTerm(t *testing.T, interp *Interpreter, term ast.Term) runtime.Value {
	t.Helper()
	val, err := interp.Evaluate(term, interp.CallStack())
	if err != nil {
		t.Fatalf("evaluation failed: %v", err)
	}
	return val
}

func expectInt(t *testing.T, val runtime.Value, want int64) {
	t.Helper()
	iv, ok := val.(runtime.IntValue)
	if !ok {
		t.Fatalf("expected int %d, got %#v", want, val)
	}
	if iv.Val != want {
		t.Fatalf("expected %d, got %d", want, iv.Val)
	}
}

func TestEvaluateLiterals(t *testing.T) {
	interp, _ := newTestInterpreter()
	expectInt(t, evalTerm(t, interp, ast.Int(42)), 42)
	if s, ok := evalTerm(t, interp, ast.Str("hi")).(runtime.StrValue); !ok || s.Val != "hi" {
		t.Fatalf("unexpected string result")
	}
	if b, ok := evalTerm(t, interp, ast.Bool(true)).(runtime.BoolValue); !ok || !b.Val {
		t.Fatalf("unexpected bool result")
	}
}

func TestLetBindsThenEvaluatesNext(t *testing.T) {
	values := []ast.Term{ast.Int(7), ast.Str("seven"), ast.Bool(false), ast.Tup(ast.Int(1), ast.Int(2))}
	for _, v := range values {
		interp, _ := newTestInterpreter()
		direct := evalTerm(t, interp, v)
		bound := evalTerm(t, interp, ast.LetIn("x", v, ast.ID("x")))
		if !runtime.Equal(direct, bound) {
			t.Fatalf("let x = v; x gave %#v, want %#v", bound, direct)
		}
	}
}

func TestLetShadowsInSameFrame(t *testing.T) {
	interp, _ := newTestInterpreter()
	program := ast.LetIn("x", ast.Int(1), ast.LetIn("x", ast.Bin(ast.OpAdd, ast.ID("x"), ast.Int(1)), ast.ID("x")))
	expectInt(t, evalTerm(t, interp, program), 2)
	if interp.CallStack().Depth() != 1 {
		t.Fatalf("let must not push frames, depth %d", interp.CallStack().Depth())
	}
}

func TestUnboundVariable(t *testing.T) {
	interp, _ := newTestInterpreter()
	_, err := interp.Evaluate(ast.ID("nope"), interp.CallStack())
	if !errors.Is(err, ErrUnboundVariable) {
		t.Fatalf("expected ErrUnboundVariable, got %v", err)
	}
	rt, ok := AsRuntimeError(err)
	if !ok || rt.Message != `unbound variable "nope"` {
		t.Fatalf("unexpected runtime error %#v", err)
	}
}

func TestIfTruthyIntegers(t *testing.T) {
	interp, _ := newTestInterpreter()
	expectInt(t, evalTerm(t, interp, ast.Cond(ast.Int(5), ast.Int(1), ast.Int(2))), 1)
	expectInt(t, evalTerm(t, interp, ast.Cond(ast.Int(0), ast.Int(1), ast.Int(2))), 2)
	expectInt(t, evalTerm(t, interp, ast.Cond(ast.Int(-3), ast.Int(1), ast.Int(2))), 1)
	expectInt(t, evalTerm(t, interp, ast.Cond(ast.Bool(false), ast.Int(1), ast.Int(2))), 2)
}

func TestIfEvaluatesOnlyChosenBranch(t *testing.T) {
	interp, out := newTestInterpreter()
	program := ast.Cond(ast.Bool(true), ast.Print(ast.Str("then")), ast.Print(ast.Str("else")))
	evalTerm(t, interp, program)
	if out.String() != "then" {
		t.Fatalf("stdout = %q, want %q", out.String(), "then")
	}
}

func TestIfRejectsNonBooleanCondition(t *testing.T) {
	interp, _ := newTestInterpreter()
	_, err := interp.Evaluate(ast.Cond(ast.Str("yes"), ast.Int(1), ast.Int(2)), interp.CallStack())
	if !errors.Is(err, ErrTypeMismatch) {
		t.Fatalf("expected ErrTypeMismatch, got %v", err)
	}
}

func TestFunctionLiteralIsInert(t *testing.T) {
	interp, out := newTestInterpreter()
	val := evalTerm(t, interp, ast.Fn([]string{"x"}, ast.Print(ast.ID("undefined"))))
	fn, ok := val.(*runtime.FunctionValue)
	if !ok || fn.Arity() != 1 {
		t.Fatalf("expected 1-ary function value, got %#v", val)
	}
	if out.Len() != 0 {
		t.Fatalf("defining a function must not run its body")
	}
}

func TestTupleAccessors(t *testing.T) {
	interp, _ := newTestInterpreter()
	pair := ast.Tup(ast.Int(1), ast.Int(2))
	expectInt(t, evalTerm(t, interp, ast.Fst(pair)), 1)
	expectInt(t, evalTerm(t, interp, ast.Snd(pair)), 2)

	nested := ast.Snd(ast.Fst(ast.Tup(ast.Tup(ast.Int(3), ast.Int(4)), ast.Int(5))))
	expectInt(t, evalTerm(t, interp, nested), 4)
}

func TestTupleAccessorsRequireTuple(t *testing.T) {
	interp, _ := newTestInterpreter()
	for _, term := range []ast.Term{ast.Fst(ast.Int(1)), ast.Snd(ast.Str("x"))} {
		_, err := interp.Evaluate(term, interp.CallStack())
		if !errors.Is(err, ErrTypeMismatch) {
			t.Fatalf("expected ErrTypeMismatch for %T, got %v", term, err)
		}
	}
}

func TestTupleEvaluatesFirstThenSecond(t *testing.T) {
	interp, out := newTestInterpreter()
	evalTerm(t, interp, ast.Tup(ast.Print(ast.Str("a")), ast.Print(ast.Str("b"))))
	if out.String() != "ab" {
		t.Fatalf("stdout = %q, want %q", out.String(), "ab")
	}
}

func TestPrintRenderings(t *testing.T) {
	cases := []struct {
		term ast.Term
		want string
	}{
		{ast.Int(-12), "-12"},
		{ast.Str("raw \"text\""), "raw \"text\""},
		{ast.Bool(true), "true"},
		{ast.Bool(false), "false"},
		{ast.Tup(ast.Int(1), ast.Int(2)), "[tuple]"},
		{ast.Fn(nil, ast.Int(0)), "[function]"},
		{ast.Print(ast.Str("")), "[void]"},
	}
	for _, tc := range cases {
		interp, out := newTestInterpreter()
		val := evalTerm(t, interp, ast.Print(tc.term))
		if _, ok := val.(runtime.VoidValue); !ok {
			t.Fatalf("print should return void, got %#v", val)
		}
		if out.String() != tc.want {
			t.Fatalf("print(%T) wrote %q, want %q", tc.term, out.String(), tc.want)
		}
	}
}

func TestPrintAddition(t *testing.T) {
	interp, out := newTestInterpreter()
	evalTerm(t, interp, ast.Print(ast.Bin(ast.OpAdd, ast.Int(2), ast.Int(3))))
	if out.String() != "5" {
		t.Fatalf("stdout = %q, want 5", out.String())
	}
}

func TestEmbeddedErrorNodeFails(t *testing.T) {
	interp, out := newTestInterpreter()
	bad := ast.At(ast.Err("unexpected token"), "broken.rinha", 17, 20)
	_, err := interp.Evaluate(ast.Seq(ast.Print(ast.Str("before")), bad, ast.Print(ast.Str("after"))), interp.CallStack())
	if !errors.Is(err, ErrEmbeddedParse) {
		t.Fatalf("expected ErrEmbeddedParse, got %v", err)
	}
	if got := err.Error(); got != "broken.rinha:17: parse error: unexpected token" {
		t.Fatalf("unexpected message %q", got)
	}
	if out.String() != "before" {
		t.Fatalf("evaluation must stop at the error node, stdout %q", out.String())
	}
}

func TestRunKeepsRootBindings(t *testing.T) {
	interp, _ := newTestInterpreter()
	file := ast.NewFile("main.rinha", ast.LetIn("answer", ast.Int(42), ast.ID("answer")))
	val, err := interp.Run(file)
	if err != nil {
		t.Fatalf("run failed: %v", err)
	}
	expectInt(t, val, 42)
	root := interp.CallStack().Current()
	if !root.IsRoot() {
		t.Fatalf("expected root frame on top after run")
	}
	if _, ok := root.Lookup("answer"); !ok {
		t.Fatalf("expected top-level binding to remain in root frame")
	}
	if root.Location.Filename != "main.rinha" {
		t.Fatalf("root frame filename = %q", root.Location.Filename)
	}
}

func TestRunRejectsEmptyProgram(t *testing.T) {
	interp, _ := newTestInterpreter()
	if _, err := interp.Run(nil); err == nil {
		t.Fatalf("expected error for nil program")
	}
	if _, err := interp.Run(ast.NewFile("empty", nil)); err == nil {
		t.Fatalf("expected error for program without expression")
	}
}

func TestEvaluateRequiresRootFrame(t *testing.T) {
	interp, _ := newTestInterpreter()
	if _, err := interp.Evaluate(ast.Int(1), runtime.NewCallStack()); !errors.Is(err, runtime.ErrStackUnderflow) {
		t.Fatalf("expected stack underflow, got %v", err)
	}
}

func TestFormatValue(t *testing.T) {
	if got := FormatValue(runtime.IntValue{Val: 120}); got != "120" {
		t.Fatalf("FormatValue = %q", got)
	}
	if got := FormatValue(runtime.VoidValue{}); got != "[void]" {
		t.Fatalf("FormatValue(void) = %q", got)
	}
}

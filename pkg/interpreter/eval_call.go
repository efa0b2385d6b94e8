package interpreter

import (
	"rinha/interpreter-go/pkg/ast"
	"rinha/interpreter-go/pkg/runtime"
)

func (i *Interpreter) evaluateCall(call *ast.Call, stack *runtime.CallStack) (runtime.Value, error) {
	ref, ok := call.Callee.(*ast.Var)
	if !ok {
		kind := "nil"
		if call.Callee != nil {
			kind = string(call.Callee.Kind())
		}
		return nil, i.fail(ErrCalleeNotVar, call.Loc(), stack, "callee is not a variable (got %s)", kind)
	}
	calleeVal, err := stack.Resolve(ref.Text)
	if err != nil {
		return nil, i.fail(ErrUnboundVariable, ref.Loc(), stack, "unbound variable %q", ref.Text)
	}
	fn, ok := calleeVal.(*runtime.FunctionValue)
	if !ok {
		return nil, i.fail(ErrNotCallable, call.Loc(), stack, "%q is not a function (got %s)", ref.Text, runtime.KindOf(calleeVal))
	}
	if len(call.Arguments) != fn.Arity() {
		return nil, i.fail(ErrArityMismatch, call.Loc(), stack, "%s expects %d arguments, got %d", ref.Text, fn.Arity(), len(call.Arguments))
	}

	// Arguments run in the caller's frame, before the callee frame exists.
	args := make([]runtime.Value, 0, len(call.Arguments))
	for _, argExpr := range call.Arguments {
		val, err := i.evaluate(argExpr, stack)
		if err != nil {
			return nil, err
		}
		args = append(args, val)
	}
	return i.invokeFunction(fn, ref, call.Arguments, args, stack)
}

// invokeFunction pushes a frame binding the parameters, evaluates the body
// and pops the frame on every path out.
func (i *Interpreter) invokeFunction(fn *runtime.FunctionValue, callee *ast.Var, argExprs []ast.Term, args []runtime.Value, stack *runtime.CallStack) (runtime.Value, error) {
	if stack.Depth()-1 >= i.maxCallDepth {
		loc := fn.Location
		if callee != nil {
			loc = callee.Loc()
		}
		return nil, i.fail(ErrStackOverflow, loc, stack, "maximum call depth %d exceeded", i.maxCallDepth)
	}
	var calleeTerm ast.Term
	if callee != nil {
		calleeTerm = callee
	}
	frame := runtime.NewFrame(calleeTerm, argExprs, fn.Location)
	for idx, name := range fn.Parameters {
		frame.Define(name, args[idx])
	}
	stack.Push(frame)
	if i.traceFrames {
		i.logger.Debug("frame push", "callee", frame.Name(), "depth", stack.Depth())
	}
	defer func() {
		_, _ = stack.Pop()
		if i.traceFrames {
			i.logger.Debug("frame pop", "callee", frame.Name(), "depth", stack.Depth())
		}
	}()
	if fn.Body == nil {
		return runtime.VoidValue{}, nil
	}
	return i.evaluate(fn.Body, stack)
}

// CallFunction invokes a function value with already evaluated arguments on
// the interpreter's own stack.
func (i *Interpreter) CallFunction(val runtime.Value, args []runtime.Value) (runtime.Value, error) {
	fn, ok := val.(*runtime.FunctionValue)
	if !ok {
		return nil, i.fail(ErrNotCallable, ast.Location{}, i.stack, "value is not a function (got %s)", runtime.KindOf(val))
	}
	if len(args) != fn.Arity() {
		return nil, i.fail(ErrArityMismatch, fn.Location, i.stack, "function expects %d arguments, got %d", fn.Arity(), len(args))
	}
	return i.invokeFunction(fn, nil, nil, args, i.stack)
}

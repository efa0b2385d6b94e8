package interpreter

import (
	"errors"
	"math"

	"rinha/interpreter-go/pkg/ast"
	"rinha/interpreter-go/pkg/runtime"
)

var (
	errDivisionByZero  = errors.New("division by zero")
	errIntegerOverflow = errors.New("integer overflow")
	errUnknownOperator = errors.New("unknown operator")
)

// evaluateBinary evaluates both operands, left first, before dispatching on
// the operator; && and || therefore never short-circuit.
func (i *Interpreter) evaluateBinary(expr *ast.Binary, stack *runtime.CallStack) (runtime.Value, error) {
	leftVal, err := i.evaluate(expr.LHS, stack)
	if err != nil {
		return nil, err
	}
	rightVal, err := i.evaluate(expr.RHS, stack)
	if err != nil {
		return nil, err
	}
	l, ok := leftVal.(runtime.IntValue)
	if !ok {
		return nil, i.typeMismatch(expr.LHS.Loc(), stack, "operand is not an integer (left of %s is %s)", expr.Op.Symbol(), runtime.KindOf(leftVal))
	}
	r, ok := rightVal.(runtime.IntValue)
	if !ok {
		return nil, i.typeMismatch(expr.RHS.Loc(), stack, "operand is not an integer (right of %s is %s)", expr.Op.Symbol(), runtime.KindOf(rightVal))
	}
	result, err := ApplyBinaryOperator(expr.Op, l.Val, r.Val)
	if err != nil {
		if errors.Is(err, errUnknownOperator) {
			return nil, i.fail(ErrTypeMismatch, expr.Loc(), stack, "unknown operator %q", string(expr.Op))
		}
		return nil, i.fail(ErrArithmetic, expr.Loc(), stack, "%v in %d %s %d", err, l.Val, expr.Op.Symbol(), r.Val)
	}
	return runtime.IntValue{Val: result}, nil
}

// ApplyBinaryOperator is the integer operator table. Comparisons and logic
// yield 1 or 0. Division and remainder by zero, and any result outside the
// int64 range, are errors rather than traps or wraparound.
func ApplyBinaryOperator(op ast.BinaryOp, l, r int64) (int64, error) {
	switch op {
	case ast.OpAdd:
		sum := l + r
		if (l^sum)&(r^sum) < 0 {
			return 0, errIntegerOverflow
		}
		return sum, nil
	case ast.OpSub:
		diff := l - r
		if (l^r)&(l^diff) < 0 {
			return 0, errIntegerOverflow
		}
		return diff, nil
	case ast.OpMul:
		if l == 0 || r == 0 {
			return 0, nil
		}
		if (l == -1 && r == math.MinInt64) || (r == -1 && l == math.MinInt64) {
			return 0, errIntegerOverflow
		}
		product := l * r
		if product/r != l {
			return 0, errIntegerOverflow
		}
		return product, nil
	case ast.OpDiv:
		if r == 0 {
			return 0, errDivisionByZero
		}
		if l == math.MinInt64 && r == -1 {
			return 0, errIntegerOverflow
		}
		return l / r, nil
	case ast.OpRem:
		if r == 0 {
			return 0, errDivisionByZero
		}
		return l % r, nil
	case ast.OpEq:
		return boolToInt(l == r), nil
	case ast.OpNeq:
		return boolToInt(l != r), nil
	case ast.OpLt:
		return boolToInt(l < r), nil
	case ast.OpGt:
		return boolToInt(l > r), nil
	case ast.OpLte:
		return boolToInt(l <= r), nil
	case ast.OpGte:
		return boolToInt(l >= r), nil
	case ast.OpAnd:
		return boolToInt(l != 0 && r != 0), nil
	case ast.OpOr:
		return boolToInt(l != 0 || r != 0), nil
	default:
		return 0, errUnknownOperator
	}
}

func boolToInt(b bool) int64 {
	if b {
		return 1
	}
	return 0
}

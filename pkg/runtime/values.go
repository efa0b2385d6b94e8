package runtime

import (
	"fmt"

	"rinha/interpreter-go/pkg/ast"
)

// Kind identifies the runtime value category.
type Kind int

const (
	KindInt Kind = iota
	KindStr
	KindBool
	KindTuple
	KindFunction
	KindVoid
)

func (k Kind) String() string {
	switch k {
	case KindInt:
		return "int"
	case KindStr:
		return "str"
	case KindBool:
		return "bool"
	case KindTuple:
		return "tuple"
	case KindFunction:
		return "function"
	case KindVoid:
		return "void"
	default:
		return fmt.Sprintf("unknown_kind_%d", int(k))
	}
}

// Value is the shared behaviour for all runtime values. Values are immutable
// once produced, so copies may be shared freely.
type Value interface {
	Kind() Kind
}

//-----------------------------------------------------------------------------
// Scalars
//-----------------------------------------------------------------------------

type IntValue struct {
	Val int64
}

func (v IntValue) Kind() Kind { return KindInt }

type StrValue struct {
	Val string
}

func (v StrValue) Kind() Kind { return KindStr }

type BoolValue struct {
	Val bool
}

func (v BoolValue) Kind() Kind { return KindBool }

type VoidValue struct{}

func (VoidValue) Kind() Kind { return KindVoid }

//-----------------------------------------------------------------------------
// Tuples
//-----------------------------------------------------------------------------

type TupleValue struct {
	First  Value
	Second Value
}

func (v TupleValue) Kind() Kind { return KindTuple }

//-----------------------------------------------------------------------------
// Functions
//-----------------------------------------------------------------------------

// FunctionValue is a copy of a function literal. It deliberately carries no
// environment: free variables resolve against whatever frames are live when
// the body runs.
type FunctionValue struct {
	Parameters []string
	Body       ast.Term
	Location   ast.Location
}

func (v *FunctionValue) Kind() Kind { return KindFunction }

// Arity is the declared parameter count.
func (v *FunctionValue) Arity() int {
	return len(v.Parameters)
}

// NewFunctionValue copies the parameter list out of a function literal.
func NewFunctionValue(fn *ast.Function) *FunctionValue {
	return &FunctionValue{
		Parameters: fn.ParameterNames(),
		Body:       fn.Value,
		Location:   fn.Loc(),
	}
}

//-----------------------------------------------------------------------------
// Utility helpers
//-----------------------------------------------------------------------------

// Equal compares two values structurally. Functions compare by identity.
func Equal(a, b Value) bool {
	switch av := a.(type) {
	case IntValue:
		bv, ok := b.(IntValue)
		return ok && av.Val == bv.Val
	case StrValue:
		bv, ok := b.(StrValue)
		return ok && av.Val == bv.Val
	case BoolValue:
		bv, ok := b.(BoolValue)
		return ok && av.Val == bv.Val
	case VoidValue:
		_, ok := b.(VoidValue)
		return ok
	case TupleValue:
		bv, ok := b.(TupleValue)
		return ok && Equal(av.First, bv.First) && Equal(av.Second, bv.Second)
	case *FunctionValue:
		bv, ok := b.(*FunctionValue)
		return ok && av == bv
	default:
		return false
	}
}

// KindOf tolerates nil values in diagnostics.
func KindOf(v Value) string {
	if v == nil {
		return "<nil>"
	}
	return v.Kind().String()
}

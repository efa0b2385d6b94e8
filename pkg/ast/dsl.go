package ast

// Literal and reference helpers.

func Int(value int64) *IntegerLiteral {
	return NewInt(value)
}

func Str(value string) *StringLiteral {
	return NewStr(value)
}

func Bool(value bool) *BooleanLiteral {
	return NewBool(value)
}

func ID(name string) *Var {
	return NewVar(name)
}

func Param(name string) *Parameter {
	return NewParameter(name)
}

func Params(names ...string) []*Parameter {
	out := make([]*Parameter, 0, len(names))
	for _, name := range names {
		out = append(out, NewParameter(name))
	}
	return out
}

// Expression helpers.

func Bin(op BinaryOp, lhs, rhs Term) *Binary {
	return NewBinary(op, lhs, rhs)
}

func Cond(condition, then, otherwise Term) *If {
	return NewIf(condition, then, otherwise)
}

func LetIn(name string, value, next Term) *Let {
	return NewLet(NewParameter(name), value, next)
}

func Fn(params []string, body Term) *Function {
	return NewFunction(Params(params...), body)
}

func CallExpr(callee Term, args ...Term) *Call {
	return NewCall(callee, args)
}

// CallName builds a call through a bare variable reference.
func CallName(name string, args ...Term) *Call {
	return NewCall(NewVar(name), args)
}

func Print(value Term) *PrintExpression {
	return NewPrint(value)
}

func Tup(first, second Term) *Tuple {
	return NewTuple(first, second)
}

func Fst(value Term) *First {
	return NewFirst(value)
}

func Snd(value Term) *Second {
	return NewSecond(value)
}

func Err(message string) *Error {
	return NewError(message, message)
}

// Seq chains terms with throwaway let bindings so each runs in order and the
// last one supplies the value.
func Seq(terms ...Term) Term {
	if len(terms) == 0 {
		return nil
	}
	out := terms[len(terms)-1]
	for idx := len(terms) - 2; idx >= 0; idx-- {
		out = NewLet(NewParameter("_"), terms[idx], out)
	}
	return out
}

// At stamps a location on the term and returns it.
func At[T Term](term T, filename string, start, end int) T {
	SetLocation(term, Location{Start: start, End: end, Filename: filename})
	return term
}

package ast

import "fmt"

type TermKind string

const (
	KindInt      TermKind = "Int"
	KindStr      TermKind = "Str"
	KindBool     TermKind = "Bool"
	KindVar      TermKind = "Var"
	KindBinary   TermKind = "Binary"
	KindIf       TermKind = "If"
	KindLet      TermKind = "Let"
	KindFunction TermKind = "Function"
	KindCall     TermKind = "Call"
	KindPrint    TermKind = "Print"
	KindTuple    TermKind = "Tuple"
	KindFirst    TermKind = "First"
	KindSecond   TermKind = "Second"
	KindError    TermKind = "Error"
)

// Location is a byte span inside a named source file.
type Location struct {
	Start    int    `json:"start"`
	End      int    `json:"end"`
	Filename string `json:"filename"`
}

func (l Location) String() string {
	return fmt.Sprintf("%s:%d", l.Filename, l.Start)
}

// Term is one node of the expression grammar.
type Term interface {
	Kind() TermKind
	Loc() Location
	isTerm()
}

type nodeImpl struct {
	Type     TermKind `json:"kind"`
	Location Location `json:"location"`
}

func newNodeImpl(kind TermKind) nodeImpl {
	return nodeImpl{Type: kind}
}

func (n nodeImpl) Kind() TermKind { return n.Type }
func (n nodeImpl) Loc() Location  { return n.Location }
func (nodeImpl) isTerm()          {}

// SetLocation overwrites the location of any term built by this package.
func SetLocation(term Term, loc Location) {
	if term == nil {
		return
	}
	if impl := implOf(term); impl != nil {
		impl.Location = loc
	}
}

func implOf(term Term) *nodeImpl {
	switch t := term.(type) {
	case *IntegerLiteral:
		return &t.nodeImpl
	case *StringLiteral:
		return &t.nodeImpl
	case *BooleanLiteral:
		return &t.nodeImpl
	case *Var:
		return &t.nodeImpl
	case *Binary:
		return &t.nodeImpl
	case *If:
		return &t.nodeImpl
	case *Let:
		return &t.nodeImpl
	case *Function:
		return &t.nodeImpl
	case *Call:
		return &t.nodeImpl
	case *PrintExpression:
		return &t.nodeImpl
	case *Tuple:
		return &t.nodeImpl
	case *First:
		return &t.nodeImpl
	case *Second:
		return &t.nodeImpl
	case *Error:
		return &t.nodeImpl
	default:
		return nil
	}
}

// File is the root document: a program name and its single expression.
type File struct {
	Name       string   `json:"name"`
	Expression Term     `json:"expression"`
	Location   Location `json:"location"`
}

func NewFile(name string, expression Term) *File {
	return &File{Name: name, Expression: expression, Location: Location{Start: 0, End: 0, Filename: name}}
}

// Parameter is a named binding site (function parameter or let name).
type Parameter struct {
	Text     string   `json:"text"`
	Location Location `json:"location"`
}

func NewParameter(text string) *Parameter {
	return &Parameter{Text: text}
}

// Literals

type IntegerLiteral struct {
	nodeImpl

	Value int64 `json:"value"`
}

func NewInt(value int64) *IntegerLiteral {
	return &IntegerLiteral{nodeImpl: newNodeImpl(KindInt), Value: value}
}

type StringLiteral struct {
	nodeImpl

	Value string `json:"value"`
}

func NewStr(value string) *StringLiteral {
	return &StringLiteral{nodeImpl: newNodeImpl(KindStr), Value: value}
}

type BooleanLiteral struct {
	nodeImpl

	Value bool `json:"value"`
}

func NewBool(value bool) *BooleanLiteral {
	return &BooleanLiteral{nodeImpl: newNodeImpl(KindBool), Value: value}
}

// References

type Var struct {
	nodeImpl

	Text string `json:"text"`
}

func NewVar(text string) *Var {
	return &Var{nodeImpl: newNodeImpl(KindVar), Text: text}
}

// Operators

type BinaryOp string

const (
	OpAdd BinaryOp = "Add"
	OpSub BinaryOp = "Sub"
	OpMul BinaryOp = "Mul"
	OpDiv BinaryOp = "Div"
	OpRem BinaryOp = "Rem"
	OpEq  BinaryOp = "Eq"
	OpNeq BinaryOp = "Neq"
	OpLt  BinaryOp = "Lt"
	OpGt  BinaryOp = "Gt"
	OpLte BinaryOp = "Lte"
	OpGte BinaryOp = "Gte"
	OpAnd BinaryOp = "And"
	OpOr  BinaryOp = "Or"
)

// IsValid reports whether the operator is part of the grammar.
func (op BinaryOp) IsValid() bool {
	switch op {
	case OpAdd, OpSub, OpMul, OpDiv, OpRem, OpEq, OpNeq, OpLt, OpGt, OpLte, OpGte, OpAnd, OpOr:
		return true
	default:
		return false
	}
}

// Symbol returns the infix spelling used in diagnostics.
func (op BinaryOp) Symbol() string {
	switch op {
	case OpAdd:
		return "+"
	case OpSub:
		return "-"
	case OpMul:
		return "*"
	case OpDiv:
		return "/"
	case OpRem:
		return "%"
	case OpEq:
		return "=="
	case OpNeq:
		return "!="
	case OpLt:
		return "<"
	case OpGt:
		return ">"
	case OpLte:
		return "<="
	case OpGte:
		return ">="
	case OpAnd:
		return "&&"
	case OpOr:
		return "||"
	default:
		return string(op)
	}
}

type Binary struct {
	nodeImpl

	Op  BinaryOp `json:"op"`
	LHS Term     `json:"lhs"`
	RHS Term     `json:"rhs"`
}

func NewBinary(op BinaryOp, lhs, rhs Term) *Binary {
	return &Binary{nodeImpl: newNodeImpl(KindBinary), Op: op, LHS: lhs, RHS: rhs}
}

// Control flow and bindings

type If struct {
	nodeImpl

	Condition Term `json:"condition"`
	Then      Term `json:"then"`
	Otherwise Term `json:"otherwise"`
}

func NewIf(condition, then, otherwise Term) *If {
	return &If{nodeImpl: newNodeImpl(KindIf), Condition: condition, Then: then, Otherwise: otherwise}
}

type Let struct {
	nodeImpl

	Name  *Parameter `json:"name"`
	Value Term       `json:"value"`
	Next  Term       `json:"next"`
}

func NewLet(name *Parameter, value, next Term) *Let {
	return &Let{nodeImpl: newNodeImpl(KindLet), Name: name, Value: value, Next: next}
}

// Functions

type Function struct {
	nodeImpl

	Parameters []*Parameter `json:"parameters"`
	Value      Term         `json:"value"`
}

func NewFunction(parameters []*Parameter, body Term) *Function {
	return &Function{nodeImpl: newNodeImpl(KindFunction), Parameters: parameters, Value: body}
}

// ParameterNames lists the declared parameter names in order.
func (f *Function) ParameterNames() []string {
	names := make([]string, 0, len(f.Parameters))
	for _, p := range f.Parameters {
		if p == nil {
			names = append(names, "")
			continue
		}
		names = append(names, p.Text)
	}
	return names
}

type Call struct {
	nodeImpl

	Callee    Term   `json:"callee"`
	Arguments []Term `json:"arguments"`
}

func NewCall(callee Term, arguments []Term) *Call {
	return &Call{nodeImpl: newNodeImpl(KindCall), Callee: callee, Arguments: arguments}
}

// Effects

type PrintExpression struct {
	nodeImpl

	Value Term `json:"value"`
}

func NewPrint(value Term) *PrintExpression {
	return &PrintExpression{nodeImpl: newNodeImpl(KindPrint), Value: value}
}

// Tuples

type Tuple struct {
	nodeImpl

	First  Term `json:"first"`
	Second Term `json:"second"`
}

func NewTuple(first, second Term) *Tuple {
	return &Tuple{nodeImpl: newNodeImpl(KindTuple), First: first, Second: second}
}

type First struct {
	nodeImpl

	Value Term `json:"value"`
}

func NewFirst(value Term) *First {
	return &First{nodeImpl: newNodeImpl(KindFirst), Value: value}
}

type Second struct {
	nodeImpl

	Value Term `json:"value"`
}

func NewSecond(value Term) *Second {
	return &Second{nodeImpl: newNodeImpl(KindSecond), Value: value}
}

// Error is a parse failure the parser embedded in the tree.
type Error struct {
	nodeImpl

	Message  string `json:"message"`
	FullText string `json:"full_text"`
}

func NewError(message, fullText string) *Error {
	return &Error{nodeImpl: newNodeImpl(KindError), Message: message, FullText: fullText}
}

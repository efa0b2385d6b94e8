package ast

// Walk visits term and its children depth-first, left to right. Returning
// false from visit skips the children of that node.
func Walk(term Term, visit func(Term) bool) {
	if term == nil || visit == nil {
		return
	}
	if !visit(term) {
		return
	}
	for _, child := range Children(term) {
		Walk(child, visit)
	}
}

// Children returns the direct sub-terms in evaluation order.
func Children(term Term) []Term {
	switch t := term.(type) {
	case *Binary:
		return nonNil(t.LHS, t.RHS)
	case *If:
		return nonNil(t.Condition, t.Then, t.Otherwise)
	case *Let:
		return nonNil(t.Value, t.Next)
	case *Function:
		return nonNil(t.Value)
	case *Call:
		out := nonNil(t.Callee)
		return append(out, nonNil(t.Arguments...)...)
	case *PrintExpression:
		return nonNil(t.Value)
	case *Tuple:
		return nonNil(t.First, t.Second)
	case *First:
		return nonNil(t.Value)
	case *Second:
		return nonNil(t.Value)
	default:
		return nil
	}
}

func nonNil(terms ...Term) []Term {
	out := make([]Term, 0, len(terms))
	for _, t := range terms {
		if t != nil {
			out = append(out, t)
		}
	}
	return out
}

// CollectErrors returns every embedded parse error reachable from term.
func CollectErrors(term Term) []*Error {
	var out []*Error
	Walk(term, func(node Term) bool {
		if e, ok := node.(*Error); ok {
			out = append(out, e)
		}
		return true
	})
	return out
}

// Count returns the number of nodes reachable from term.
func Count(term Term) int {
	n := 0
	Walk(term, func(Term) bool {
		n++
		return true
	})
	return n
}

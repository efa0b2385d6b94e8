package runtime

import (
	"errors"
	"fmt"
	"sort"

	"rinha/interpreter-go/pkg/ast"
)

var (
	ErrUnboundVariable = errors.New("unbound variable")
	ErrStackUnderflow  = errors.New("call stack underflow")
)

// Frame is one call stack entry. The root frame has a nil Callee.
type Frame struct {
	Callee    ast.Term
	Arguments []ast.Term
	Location  ast.Location
	values    map[string]Value
	root      bool
}

// NewFrame creates a frame with empty bindings.
func NewFrame(callee ast.Term, arguments []ast.Term, location ast.Location) *Frame {
	return &Frame{
		Callee:    callee,
		Arguments: arguments,
		Location:  location,
		values:    make(map[string]Value),
	}
}

// NewRootFrame creates the frame a program starts in.
func NewRootFrame(filename string) *Frame {
	frame := NewFrame(nil, nil, ast.Location{Start: 1, End: 1, Filename: filename})
	frame.root = true
	return frame
}

// IsRoot reports whether this is the program's root frame.
func (f *Frame) IsRoot() bool {
	return f.root
}

// Lookup reads a binding of this frame only.
func (f *Frame) Lookup(name string) (Value, bool) {
	v, ok := f.values[name]
	return v, ok
}

// Define inserts or overwrites a binding in this frame.
func (f *Frame) Define(name string, value Value) {
	if f.values == nil {
		f.values = make(map[string]Value)
	}
	f.values[name] = value
}

// Keys returns the bindings in sorted order (useful for determinism in tests).
func (f *Frame) Keys() []string {
	keys := make([]string, 0, len(f.values))
	for k := range f.values {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Name describes the frame for traces.
func (f *Frame) Name() string {
	if f.root {
		return "<root>"
	}
	switch c := f.Callee.(type) {
	case nil:
		return "<anonymous>"
	case *ast.Var:
		return c.Text
	default:
		return "<" + string(c.Kind()) + ">"
	}
}

// CallStack is the ordered list of live frames, root first. It is also the
// variable environment: lookups search the live frames from the most recent
// call down to the root, so a function body sees the bindings of every caller
// still suspended beneath it (dynamic scoping), not the bindings in scope
// where the function was written.
type CallStack struct {
	frames []*Frame
}

// NewCallStack returns an empty stack.
func NewCallStack() *CallStack {
	return &CallStack{frames: make([]*Frame, 0, 16)}
}

// Push appends a frame.
func (s *CallStack) Push(frame *Frame) {
	s.frames = append(s.frames, frame)
}

// Pop removes the most recent frame.
func (s *CallStack) Pop() (*Frame, error) {
	if len(s.frames) == 0 {
		return nil, ErrStackUnderflow
	}
	last := len(s.frames) - 1
	frame := s.frames[last]
	s.frames[last] = nil
	s.frames = s.frames[:last]
	return frame, nil
}

// Depth is the number of live frames.
func (s *CallStack) Depth() int {
	return len(s.frames)
}

// Current returns the most recent frame, or nil when the stack is empty.
func (s *CallStack) Current() *Frame {
	if len(s.frames) == 0 {
		return nil
	}
	return s.frames[len(s.frames)-1]
}

// Frames returns the live frames, root first. The slice is a copy.
func (s *CallStack) Frames() []*Frame {
	out := make([]*Frame, len(s.frames))
	copy(out, s.frames)
	return out
}

// Resolve finds name in the closest live frame that binds it.
func (s *CallStack) Resolve(name string) (Value, error) {
	for idx := len(s.frames) - 1; idx >= 0; idx-- {
		if v, ok := s.frames[idx].values[name]; ok {
			return v, nil
		}
	}
	return nil, fmt.Errorf("%w: %s", ErrUnboundVariable, name)
}

// Bind writes into the current frame.
func (s *CallStack) Bind(name string, value Value) error {
	frame := s.Current()
	if frame == nil {
		return ErrStackUnderflow
	}
	frame.Define(name, value)
	return nil
}

// Truncate pops frames until depth frames remain.
func (s *CallStack) Truncate(depth int) {
	if depth < 0 {
		depth = 0
	}
	for len(s.frames) > depth {
		_, _ = s.Pop()
	}
}

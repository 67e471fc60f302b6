package eval

import "fmt"

// Scope maps names to values and remembers definition order.
type Scope struct {
	names []string
	vars  map[string]Value
}

// NewScope returns an empty scope.
func NewScope() *Scope { return &Scope{vars: make(map[string]Value)} }

// Define binds name to v, replacing an earlier binding.
func (s *Scope) Define(name string, v Value) {
	if _, ok := s.vars[name]; !ok {
		s.names = append(s.names, name)
	}
	s.vars[name] = v
}

// Get looks name up.
func (s *Scope) Get(name string) (Value, bool) {
	v, ok := s.vars[name]
	return v, ok
}

// Names lists the bound names in definition order.
func (s *Scope) Names() []string { return append([]string(nil), s.names...) }

// Len returns the number of bindings.
func (s *Scope) Len() int { return len(s.names) }

// Clone copies the scope.
func (s *Scope) Clone() *Scope {
	c := &Scope{names: append([]string(nil), s.names...), vars: make(map[string]Value, len(s.vars))}
	for k, v := range s.vars {
		c.vars[k] = v
	}
	return c
}

// Scopes is the lexical scope chain of an evaluation: a stack of local
// scopes above the library's global scope.
type Scopes struct {
	top   *Scope
	stack []*Scope
	base  *Scope
}

func newScopes(base *Scope) *Scopes {
	return &Scopes{top: NewScope(), base: base}
}

func (s *Scopes) enter() {
	s.stack = append(s.stack, s.top)
	s.top = NewScope()
}

func (s *Scopes) exit() {
	s.top = s.stack[len(s.stack)-1]
	s.stack = s.stack[:len(s.stack)-1]
}

func (s *Scopes) define(name string, v Value) { s.top.Define(name, v) }

func (s *Scopes) get(name string) (Value, bool) {
	if v, ok := s.top.Get(name); ok {
		return v, true
	}
	for i := len(s.stack) - 1; i >= 0; i-- {
		if v, ok := s.stack[i].Get(name); ok {
			return v, true
		}
	}
	if s.base != nil {
		return s.base.Get(name)
	}
	return nil, false
}

// assign rebinds an existing local variable.
func (s *Scopes) assign(name string, v Value) error {
	if _, ok := s.top.Get(name); ok {
		s.top.Define(name, v)
		return nil
	}
	for i := len(s.stack) - 1; i >= 0; i-- {
		if _, ok := s.stack[i].Get(name); ok {
			s.stack[i].Define(name, v)
			return nil
		}
	}
	if s.base != nil {
		if _, ok := s.base.Get(name); ok {
			return fmt.Errorf("cannot mutate a constant: %s", name)
		}
	}
	return fmt.Errorf("unknown variable: %s", name)
}

// flatten collects every local binding into one scope, inner bindings
// shadowing outer ones. Closures capture their environment this way.
func (s *Scopes) flatten() *Scope {
	out := NewScope()
	for _, sc := range s.stack {
		for _, name := range sc.names {
			out.Define(name, sc.vars[name])
		}
	}
	for _, name := range s.top.names {
		out.Define(name, s.top.vars[name])
	}
	return out
}

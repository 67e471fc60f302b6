package eval

import (
	"fmt"

	"gotypeset/pkg/model"
	"gotypeset/pkg/syntax"
)

// MaxCallDepth bounds the nesting of closure calls.
const MaxCallDepth = 256

// NativeFunc implements a builtin function.
type NativeFunc func(args *Args) (Value, error)

// SetFunc turns the arguments of a set rule into a style.
type SetFunc func(args *Args) (model.Style, error)

// Func is a callable value: a builtin or a closure.
type Func struct {
	name    string
	native  NativeFunc
	set     SetFunc
	closure *closure
}

// NewFunc wraps a builtin.
func NewFunc(name string, f NativeFunc) *Func { return &Func{name: name, native: f} }

// WithSet returns a copy of f that also supports set rules.
func (f *Func) WithSet(set SetFunc) *Func {
	c := *f
	c.set = set
	return &c
}

// Name returns the function's name, empty for anonymous closures.
func (f *Func) Name() string { return f.name }

// Settable reports whether f can be the target of a set rule.
func (f *Func) Settable() bool { return f.set != nil }

type param struct {
	name string
	def  Value // nil for required positional parameters
}

type closure struct {
	file     syntax.FileID
	node     *syntax.LinkedNode // body expression
	params   []param
	captured *Scope
}

// call invokes f. Closures run in a fresh scope chain made of the
// captured environment, the function itself and the parameters.
func (vm *vm) call(f *Func, args *Args) (Value, error) {
	if f.native != nil {
		return f.native(args)
	}
	c := f.closure

	if vm.depth >= MaxCallDepth {
		return nil, vm.fatal(depthExceeded(args.Span, "maximum function call depth exceeded"))
	}
	vm.depth++
	defer func() { vm.depth-- }()

	scopes := newScopes(vm.scopes.base)
	for _, name := range c.captured.names {
		scopes.define(name, c.captured.vars[name])
	}
	if f.name != "" {
		scopes.define(f.name, f)
	}
	for _, p := range c.params {
		if p.def != nil {
			v, ok := args.Named(p.name)
			if !ok {
				v = p.def
			}
			scopes.define(p.name, v)
			continue
		}
		v, err := args.Expect(p.name)
		if err != nil {
			return nil, err
		}
		scopes.define(p.name, v)
	}
	if err := args.Finish(); err != nil {
		return nil, err
	}

	saved, savedFile, savedFlow, savedNesting := vm.scopes, vm.file, vm.flow, vm.nesting
	vm.scopes, vm.file, vm.flow, vm.nesting = scopes, c.file, nil, 0
	defer func() {
		vm.scopes, vm.file, vm.flow, vm.nesting = saved, savedFile, savedFlow, savedNesting
	}()

	out, err := vm.expr(c.node)
	if err != nil {
		return nil, err
	}
	if fl := vm.flow; fl != nil {
		switch fl.kind {
		case flowReturn:
			if fl.value != nil {
				out = fl.value
			}
		default:
			return nil, fmt.Errorf("cannot %s outside of loop", fl.kind)
		}
	}
	return out, nil
}

// Call invokes f outside of any evaluation, for builtins that take
// callbacks and for tests. Closures see no tracer and no cache.
func Call(f *Func, args *Args) (Value, error) {
	vm := &vm{env: &env{}, scopes: newScopes(nil)}
	return vm.call(f, args)
}

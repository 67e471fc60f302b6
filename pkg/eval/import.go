package eval

import (
	"fmt"

	"gotypeset/pkg/diag"
	"gotypeset/pkg/memo"
	"gotypeset/pkg/syntax"
)

// imported is the memoized outcome of evaluating a dependency.
type imported struct {
	module *Module
	diags  diag.Diagnostics
}

func (vm *vm) moduleImport(n *syntax.LinkedNode) (Value, error) {
	parts := operands(n)
	if len(parts) < 2 {
		return nil, errReported
	}
	mod, err := vm.load(n, parts[1])
	if err != nil {
		return nil, err
	}

	items := n.Child(syntax.ImportItems)
	if items == nil {
		vm.scopes.define(mod.Name, mod)
		return None{}, nil
	}
	for _, item := range items.Children() {
		if item.Kind() != syntax.Ident {
			continue
		}
		v, ok := mod.Field(item.Text())
		if !ok {
			if err := vm.warn(item, fmt.Errorf("unresolved import: %s", item.Text())); err != nil {
				return nil, err
			}
			continue
		}
		vm.scopes.define(item.Text(), v)
	}
	return None{}, nil
}

func (vm *vm) moduleInclude(n *syntax.LinkedNode) (Value, error) {
	parts := operands(n)
	if len(parts) < 2 {
		return nil, errReported
	}
	mod, err := vm.load(n, parts[1])
	if err != nil {
		return nil, err
	}
	return Content{mod.Content}, nil
}

// load evaluates the source expression of an import or include and
// returns the module it names. Missing files are reported at n.
func (vm *vm) load(n, source *syntax.LinkedNode) (*Module, error) {
	v, err := vm.expr(source)
	if err != nil {
		return nil, err
	}
	switch v := v.(type) {
	case *Module:
		return v, nil
	case Str:
		if vm.world == nil {
			return nil, diag.Errorf(diag.EvalError, vm.span(n), "cannot import without a world")
		}
		id, err := vm.world.Resolve(vm.file, string(v))
		if err != nil {
			return nil, diag.FromError(vm.span(n), err)
		}
		return vm.importFile(n, id)
	}
	return nil, diag.Errorf(diag.EvalError, vm.span(source), "expected path or module, found %s", TypeName(v))
}

// importFile evaluates the file id on top of the current route. Results
// are memoized per file and revalidated against the world and the route.
func (vm *vm) importFile(n *syntax.LinkedNode, id syntax.FileID) (*Module, error) {
	span := vm.span(n)
	vm.rec.Record("route", string(id), vm.route.Fingerprint(string(id)))
	if vm.route.Contains(id) {
		return nil, vm.fatal(cyclic(span, vm.route, id))
	}
	vm.rec.Record("route", withinKey, vm.route.Fingerprint(withinKey))
	if !vm.route.Within() {
		return nil, vm.fatal(depthExceeded(span, "maximum import depth exceeded"))
	}

	inputs := []memo.Input{vm.input, vm.route}
	res, err := memo.Memoize(vm.cache, vm.rec, "eval.import", memo.HashString(string(id)), inputs,
		func(rec *memo.Recorder) (imported, error) {
			w, in := Track(vm.world, rec)
			sub := &env{world: w, input: in, cache: vm.cache, rec: rec}
			src, err := w.Source(id)
			if err != nil {
				return imported{}, diag.FromError(span, err)
			}
			tracer := diag.NewTracer()
			mod, err := sub.module(vm.route.Push(id), tracer, src)
			if err != nil {
				return imported{}, err
			}
			return imported{module: mod, diags: tracer.Diagnostics()}, nil
		})
	if err != nil {
		return nil, err
	}
	vm.tracer.Extend(res.diags)
	return res.module, nil
}

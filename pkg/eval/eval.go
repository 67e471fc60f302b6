// Package eval evaluates syntax trees into modules: exported bindings plus
// a content tree. Evaluation reads the outside world only through World,
// which is tracked so that imported modules can be memoized.
package eval

import (
	"errors"
	"fmt"

	"gotypeset/pkg/diag"
	"gotypeset/pkg/memo"
	"gotypeset/pkg/model"
	"gotypeset/pkg/syntax"
)

// errReported marks failures whose diagnostic already exists, such as
// syntax error nodes.
var errReported = errors.New("error already reported")

// Option configures Eval.
type Option func(*options)

type options struct {
	cache *memo.Cache
	rec   *memo.Recorder
}

// WithCache memoizes imported modules in c.
func WithCache(c *memo.Cache) Option { return func(o *options) { o.cache = c } }

// WithRecorder forwards every world read to r.
func WithRecorder(r *memo.Recorder) Option { return func(o *options) { o.rec = r } }

// Eval evaluates source into a module. Non-fatal errors become error
// content plus a diagnostic in tracer. Cyclic imports and exceeded depth
// limits abort the evaluation with a diag.Diagnostics error.
func Eval(world World, route *Route, tracer *diag.Tracer, source *syntax.Source, opts ...Option) (*Module, error) {
	var o options
	if tracer == nil {
		tracer = diag.NewTracer()
	}
	for _, opt := range opts {
		opt(&o)
	}
	id := source.ID()
	span := source.Span(syntax.Range{})
	if route.Contains(id) {
		return nil, diag.Fatal(cyclic(span, route, id))
	}
	if !route.Within() {
		return nil, diag.Fatal(depthExceeded(span, "maximum import depth exceeded"))
	}

	rec := memo.NewRecorder(o.rec)
	tw, input := Track(world, rec)
	env := &env{world: tw, input: input, cache: o.cache, rec: rec}
	return env.module(route.Push(id), tracer, source)
}

// env is what all evaluations of one call share.
type env struct {
	world World
	input memo.Input
	cache *memo.Cache
	rec   *memo.Recorder
}

// module evaluates a source whose identity is already on route.
func (e *env) module(route *Route, tracer *diag.Tracer, source *syntax.Source) (*Module, error) {
	lib := e.world.Library()
	vm := &vm{
		env:    e,
		route:  route,
		tracer: tracer,
		file:   source.ID(),
		scopes: newScopes(lib.Global),
	}
	_, vm.inspect = tracer.Inspected()

	tracer.Extend(diag.FromSyntax(source))
	content, err := vm.markup(source.Linked())
	if err != nil {
		return nil, err
	}
	return &Module{Name: moduleName(source.ID()), Scope: vm.scopes.top.Clone(), Content: content}, nil
}

type flowKind uint8

const (
	flowBreak flowKind = iota
	flowContinue
	flowReturn
)

func (k flowKind) String() string {
	switch k {
	case flowBreak:
		return "break"
	case flowContinue:
		return "continue"
	}
	return "return"
}

// flow is a pending control-flow event.
type flow struct {
	kind  flowKind
	span  syntax.Span
	value Value
}

// vm is the state of evaluating one source unit.
type vm struct {
	*env
	route   *Route
	tracer  *diag.Tracer
	file    syntax.FileID
	scopes  *Scopes
	flow    *flow
	depth   int
	nesting int
	inspect bool
}

func (vm *vm) span(n *syntax.LinkedNode) syntax.Span { return n.Span(vm.file) }

func (vm *vm) fatal(d diag.Diagnostic) error { return diag.Fatal(d) }

func cyclic(span syntax.Span, route *Route, id syntax.FileID) diag.Diagnostic {
	return diag.Errorf(diag.CyclicEvaluation, span, "cyclic import of %s", id).
		WithHint("import chain: %s -> %s", route, id)
}

func depthExceeded(span syntax.Span, msg string) diag.Diagnostic {
	return diag.Errorf(diag.DepthExceeded, span, "%s", msg)
}

func isFatal(err error) bool {
	var ds diag.Diagnostics
	return errors.As(err, &ds)
}

// locate attaches the span of n to an error that has none yet.
func (vm *vm) locate(n *syntax.LinkedNode, err error) error {
	if isFatal(err) || errors.Is(err, errReported) {
		return err
	}
	var d diag.Diagnostic
	if errors.As(err, &d) {
		return err
	}
	return diag.FromError(vm.span(n), err)
}

// recover turns a non-fatal error into error content and a diagnostic.
func (vm *vm) recover(n *syntax.LinkedNode, err error) (model.Content, error) {
	if isFatal(err) {
		return nil, err
	}
	span := vm.span(n)
	if errors.Is(err, errReported) {
		return &model.ErrorContent{Message: "syntax error", Span: span}, nil
	}
	d := diag.FromError(span, vm.locate(n, err))
	if vm.tracer != nil {
		vm.tracer.Warn(d)
	}
	return &model.ErrorContent{Message: d.Message, Span: d.Span}, nil
}

// warn records a non-fatal error for n. Only fatal errors come back.
func (vm *vm) warn(n *syntax.LinkedNode, err error) error {
	_, err = vm.recover(n, err)
	return err
}

// Markup

// markup evaluates the children of a markup node.
func (vm *vm) markup(n *syntax.LinkedNode) (model.Content, error) {
	return vm.markupNodes(n.Children())
}

func (vm *vm) markupNodes(nodes []*syntax.LinkedNode) (model.Content, error) {
	var parts []model.Content
	for i, n := range nodes {
		if vm.flow != nil {
			break
		}
		if rule := embedded(n); rule != nil && rule.Kind() == syntax.SetRule {
			style, err := vm.setRule(rule)
			if err != nil {
				c, err := vm.recover(rule, err)
				if err != nil {
					return nil, err
				}
				parts = append(parts, c)
				continue
			}
			rest, err := vm.markupNodes(nodes[i+1:])
			if err != nil {
				return nil, err
			}
			parts = append(parts, &model.Styled{Style: style, Child: rest})
			break
		}
		c, err := vm.markupNode(n)
		if err != nil {
			return nil, err
		}
		if c != nil {
			parts = append(parts, c)
		}
	}
	return model.Join(parts...), nil
}

func (vm *vm) markupNode(n *syntax.LinkedNode) (model.Content, error) {
	switch n.Kind() {
	case syntax.Text:
		return &model.Text{Text: n.Text(), Span: vm.span(n)}, nil
	case syntax.Space:
		return &model.Space{}, nil
	case syntax.Parbreak:
		return &model.Parbreak{}, nil
	case syntax.Linebreak:
		return &model.Linebreak{}, nil
	case syntax.Escape:
		return &model.Text{Text: n.Text()[1:], Span: vm.span(n)}, nil
	case syntax.Raw:
		return rawContent(n.Text()), nil
	case syntax.Strong, syntax.Emph, syntax.Heading, syntax.ListItem:
		body := model.Empty()
		if m := n.Child(syntax.Markup); m != nil {
			var err error
			if body, err = vm.markup(m); err != nil {
				return nil, err
			}
		}
		switch n.Kind() {
		case syntax.Strong:
			return model.Strong(body), nil
		case syntax.Emph:
			return model.Emph(body), nil
		case syntax.Heading:
			level := len(n.Child(syntax.HeadingMarker).Text())
			return &model.Heading{Level: level, Body: body}, nil
		}
		return &model.ListItem{Body: body}, nil
	case syntax.Embed:
		expr := embedded(n)
		if expr == nil {
			return nil, nil
		}
		v, err := vm.expr(expr)
		if err != nil {
			return vm.recover(expr, err)
		}
		return Display(v), nil
	case syntax.Error:
		return &model.ErrorContent{Message: n.Message(), Span: vm.span(n)}, nil
	}
	// Comments.
	return nil, nil
}

// embedded returns the expression of an embed node.
func embedded(n *syntax.LinkedNode) *syntax.LinkedNode {
	if n.Kind() != syntax.Embed {
		return nil
	}
	for _, c := range n.Children() {
		switch c.Kind() {
		case syntax.Hash, syntax.Semicolon, syntax.Error:
		default:
			if !c.Kind().IsTrivia() {
				return c
			}
		}
	}
	return nil
}

// rawContent strips the backtick fences of raw text. Fences of three or
// more backticks make a block and may name a language on the first line.
func rawContent(text string) *model.Raw {
	n := 0
	for n < len(text) && text[n] == '`' {
		n++
	}
	if 2*n > len(text) {
		return &model.Raw{}
	}
	inner := text[n : len(text)-n]
	if n < 3 {
		return &model.Raw{Text: inner}
	}
	i := 0
	for i < len(inner) && isTagChar(inner[i]) {
		i++
	}
	inner = inner[i:]
	if len(inner) > 0 && inner[0] == '\n' {
		inner = inner[1:]
	} else if len(inner) > 0 && inner[0] == ' ' {
		inner = inner[1:]
	}
	for len(inner) > 0 && (inner[len(inner)-1] == '\n' || inner[len(inner)-1] == ' ') {
		inner = inner[:len(inner)-1]
	}
	return &model.Raw{Text: inner, Block: true}
}

func isTagChar(c byte) bool {
	return c >= 'a' && c <= 'z' || c >= 'A' && c <= 'Z' || c >= '0' && c <= '9' || c == '_' || c == '-'
}

// setRule evaluates a set rule into a style.
func (vm *vm) setRule(n *syntax.LinkedNode) (model.Style, error) {
	target := n.Child(syntax.Ident)
	args := n.Child(syntax.Args)
	if target == nil || args == nil {
		return model.Style{}, errReported
	}
	v, err := vm.expr(target)
	if err != nil {
		return model.Style{}, err
	}
	f, ok := v.(*Func)
	if !ok || !f.Settable() {
		return model.Style{}, diag.Errorf(diag.EvalError, vm.span(target), "%s is not settable", target.Text())
	}
	a, err := vm.args(args)
	if err != nil {
		return model.Style{}, err
	}
	style, err := f.set(a)
	if err != nil {
		return model.Style{}, vm.locate(args, err)
	}
	if err := a.Finish(); err != nil {
		return model.Style{}, vm.locate(args, err)
	}
	return style, nil
}

// String implements fmt.Stringer for debugging.
func (m *Module) String() string {
	return fmt.Sprintf("module %s (%d bindings)", m.Name, m.Scope.Len())
}

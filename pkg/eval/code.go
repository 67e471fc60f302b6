package eval

import (
	"fmt"
	"strconv"
	"strings"

	"gotypeset/pkg/diag"
	"gotypeset/pkg/model"
	"gotypeset/pkg/syntax"
)

// MaxIterations bounds while loops.
const MaxIterations = 10000

// MaxNesting bounds how deeply expressions nest within one function call.
const MaxNesting = 512

// expr evaluates an expression node.
func (vm *vm) expr(n *syntax.LinkedNode) (Value, error) {
	if vm.nesting >= MaxNesting {
		return nil, depthExceeded(vm.span(n), "maximum nesting depth exceeded")
	}
	vm.nesting++
	v, err := vm.eval(n)
	vm.nesting--
	if err != nil {
		return nil, vm.locate(n, err)
	}
	if vm.inspect && vm.tracer != nil {
		vm.tracer.Observe(vm.span(n), v)
	}
	return v, nil
}

func (vm *vm) eval(n *syntax.LinkedNode) (Value, error) {
	switch n.Kind() {
	case syntax.NoneKw:
		return None{}, nil
	case syntax.AutoKw:
		return Auto{}, nil
	case syntax.Bool:
		return Bool(n.Text() == "true"), nil
	case syntax.Int:
		i, err := strconv.ParseInt(n.Text(), 10, 64)
		if err != nil {
			return nil, fmt.Errorf("integer literal is too large")
		}
		return Int(i), nil
	case syntax.Float:
		f, err := strconv.ParseFloat(n.Text(), 64)
		if err != nil {
			return nil, fmt.Errorf("invalid float literal")
		}
		return Float(f), nil
	case syntax.Numeric:
		return numeric(n.Text())
	case syntax.Str:
		return Str(unescape(n.Text())), nil
	case syntax.Ident:
		if v, ok := vm.scopes.get(n.Text()); ok {
			return v, nil
		}
		return nil, fmt.Errorf("unknown variable: %s", n.Text())
	case syntax.CodeBlock:
		vm.scopes.enter()
		defer vm.scopes.exit()
		code := n.Child(syntax.Code)
		if code == nil {
			return None{}, nil
		}
		return vm.code(code.Children())
	case syntax.ContentBlock:
		vm.scopes.enter()
		defer vm.scopes.exit()
		m := n.Child(syntax.Markup)
		if m == nil {
			return Content{model.Empty()}, nil
		}
		c, err := vm.markup(m)
		if err != nil {
			return nil, err
		}
		return Content{c}, nil
	case syntax.Parenthesized:
		inner := operands(n)
		if len(inner) != 1 {
			return nil, errReported
		}
		return vm.expr(inner[0])
	case syntax.Array:
		return vm.array(n)
	case syntax.Dict:
		return vm.dict(n)
	case syntax.Unary:
		return vm.unary(n)
	case syntax.Binary:
		return vm.binary(n)
	case syntax.FieldAccess:
		return vm.fieldAccess(n)
	case syntax.FuncCall:
		return vm.funcCall(n)
	case syntax.Closure:
		return vm.closure(n)
	case syntax.LetBinding:
		return vm.letBinding(n)
	case syntax.SetRule:
		// A set rule outside of a markup or code sequence has nothing to style.
		_, err := vm.setRule(n)
		if err != nil {
			return nil, err
		}
		return None{}, nil
	case syntax.Conditional:
		return vm.conditional(n)
	case syntax.WhileLoop:
		return vm.whileLoop(n)
	case syntax.ForLoop:
		return vm.forLoop(n)
	case syntax.ModuleImport:
		return vm.moduleImport(n)
	case syntax.ModuleInclude:
		return vm.moduleInclude(n)
	case syntax.LoopBreak:
		vm.flow = &flow{kind: flowBreak, span: vm.span(n)}
		return None{}, nil
	case syntax.LoopContinue:
		vm.flow = &flow{kind: flowContinue, span: vm.span(n)}
		return None{}, nil
	case syntax.FuncReturn:
		var v Value
		if body := operands(n); len(body) > 0 {
			var err error
			if v, err = vm.expr(body[len(body)-1]); err != nil {
				return nil, err
			}
		}
		vm.flow = &flow{kind: flowReturn, span: vm.span(n), value: v}
		return None{}, nil
	case syntax.Error:
		return nil, errReported
	}
	return nil, fmt.Errorf("%s is not an expression", n.Kind())
}

// operands returns the children of n that are neither trivia nor
// punctuation.
func operands(n *syntax.LinkedNode) []*syntax.LinkedNode {
	var out []*syntax.LinkedNode
	for _, c := range n.Children() {
		switch c.Kind() {
		case syntax.LeftParen, syntax.RightParen, syntax.LeftBrace, syntax.RightBrace,
			syntax.Comma, syntax.Colon, syntax.Semicolon, syntax.Return:
			continue
		}
		if !c.Kind().IsTrivia() {
			out = append(out, c)
		}
	}
	return out
}

// code evaluates a sequence of code expressions and joins their values.
func (vm *vm) code(nodes []*syntax.LinkedNode) (Value, error) {
	var out Value = None{}
	for i, n := range nodes {
		if vm.flow != nil {
			break
		}
		switch n.Kind() {
		case syntax.Semicolon:
			continue
		case syntax.Error:
			continue
		}
		if n.Kind().IsTrivia() {
			continue
		}
		if n.Kind() == syntax.SetRule {
			style, err := vm.setRule(n)
			if err != nil {
				if err := vm.warn(n, err); err != nil {
					return nil, err
				}
				continue
			}
			rest, err := vm.code(nodes[i+1:])
			if err != nil {
				return nil, err
			}
			styled := Content{&model.Styled{Style: style, Child: Display(rest)}}
			return join(out, styled)
		}
		v, err := vm.expr(n)
		if err != nil {
			if err := vm.warn(n, err); err != nil {
				return nil, err
			}
			continue
		}
		if out, err = join(out, v); err != nil {
			if err := vm.warn(n, err); err != nil {
				return nil, err
			}
		}
	}
	return out, nil
}

func (vm *vm) array(n *syntax.LinkedNode) (Value, error) {
	items := operands(n)
	out := make(Array, 0, len(items))
	for _, item := range items {
		v, err := vm.expr(item)
		if err != nil {
			return nil, err
		}
		out = append(out, v)
	}
	return out, nil
}

func (vm *vm) dict(n *syntax.LinkedNode) (Value, error) {
	var keys []string
	var vals []Value
	for _, item := range operands(n) {
		if item.Kind() != syntax.Named {
			if item.Kind() == syntax.Error {
				return nil, errReported
			}
			return nil, fmt.Errorf("expected named pair, found %s", item.Kind())
		}
		name, v, err := vm.named(item)
		if err != nil {
			return nil, err
		}
		keys = append(keys, name)
		vals = append(vals, v)
	}
	return NewDict(keys, vals), nil
}

// named evaluates a "name: expr" pair.
func (vm *vm) named(n *syntax.LinkedNode) (string, Value, error) {
	parts := operands(n)
	if len(parts) != 2 || parts[0].Kind() != syntax.Ident {
		return "", nil, errReported
	}
	v, err := vm.expr(parts[1])
	if err != nil {
		return "", nil, err
	}
	return parts[0].Text(), v, nil
}

func (vm *vm) unary(n *syntax.LinkedNode) (Value, error) {
	parts := operands(n)
	if len(parts) != 2 {
		return nil, errReported
	}
	v, err := vm.expr(parts[1])
	if err != nil {
		return nil, err
	}
	switch parts[0].Kind() {
	case syntax.Minus:
		return neg(v)
	case syntax.Plus:
		return pos(v)
	}
	return not(v)
}

func (vm *vm) binary(n *syntax.LinkedNode) (Value, error) {
	parts := operands(n)
	if len(parts) < 3 {
		return nil, errReported
	}
	lhs, rhs := parts[0], parts[len(parts)-1]
	op := parts[1].Kind()
	negate := op == syntax.Not

	switch op {
	case syntax.Eq, syntax.PlusEq, syntax.HyphEq:
		return vm.assign(lhs, op, rhs)
	case syntax.And, syntax.Or:
		a, err := vm.expr(lhs)
		if err != nil {
			return nil, err
		}
		ab, ok := a.(Bool)
		if !ok {
			return nil, fmt.Errorf("expected boolean, found %s", TypeName(a))
		}
		if (op == syntax.And && !bool(ab)) || (op == syntax.Or && bool(ab)) {
			return ab, nil
		}
		b, err := vm.expr(rhs)
		if err != nil {
			return nil, err
		}
		if _, ok := b.(Bool); !ok {
			return nil, fmt.Errorf("expected boolean, found %s", TypeName(b))
		}
		return b, nil
	}

	a, err := vm.expr(lhs)
	if err != nil {
		return nil, err
	}
	b, err := vm.expr(rhs)
	if err != nil {
		return nil, err
	}
	switch op {
	case syntax.Plus:
		return add(a, b)
	case syntax.Minus:
		return sub(a, b)
	case syntax.Star:
		return mul(a, b)
	case syntax.Slash:
		return div(a, b)
	case syntax.EqEq:
		return Bool(equal(a, b)), nil
	case syntax.ExclEq:
		return Bool(!equal(a, b)), nil
	case syntax.Lt, syntax.LtEq, syntax.Gt, syntax.GtEq:
		c, err := compare(a, b)
		if err != nil {
			return nil, err
		}
		switch op {
		case syntax.Lt:
			return Bool(c < 0), nil
		case syntax.LtEq:
			return Bool(c <= 0), nil
		case syntax.Gt:
			return Bool(c > 0), nil
		}
		return Bool(c >= 0), nil
	case syntax.In, syntax.Not:
		found, err := contains(a, b)
		if err != nil {
			return nil, err
		}
		return Bool(found != negate), nil
	}
	return nil, fmt.Errorf("unsupported operator %s", op)
}

// assign evaluates "=", "+=" and "-=". Only variables can be assigned.
func (vm *vm) assign(lhs *syntax.LinkedNode, op syntax.SyntaxKind, rhs *syntax.LinkedNode) (Value, error) {
	if lhs.Kind() != syntax.Ident {
		return nil, diag.Errorf(diag.EvalError, vm.span(lhs), "cannot assign to %s", lhs.Kind())
	}
	v, err := vm.expr(rhs)
	if err != nil {
		return nil, err
	}
	if op != syntax.Eq {
		old, err := vm.expr(lhs)
		if err != nil {
			return nil, err
		}
		if op == syntax.PlusEq {
			v, err = add(old, v)
		} else {
			v, err = sub(old, v)
		}
		if err != nil {
			return nil, err
		}
	}
	if err := vm.scopes.assign(lhs.Text(), v); err != nil {
		return nil, err
	}
	return None{}, nil
}

func (vm *vm) fieldAccess(n *syntax.LinkedNode) (Value, error) {
	parts := operands(n)
	if len(parts) != 3 || parts[2].Kind() != syntax.Ident {
		return nil, errReported
	}
	target, err := vm.expr(parts[0])
	if err != nil {
		return nil, err
	}
	field := parts[2].Text()
	switch t := target.(type) {
	case *Dict:
		if v, ok := t.Get(field); ok {
			return v, nil
		}
		return nil, fmt.Errorf("dictionary does not contain key %q", field)
	case *Module:
		if v, ok := t.Field(field); ok {
			return v, nil
		}
		return nil, fmt.Errorf("module %s does not contain %s", t.Name, field)
	}
	return nil, fmt.Errorf("cannot access fields on type %s", TypeName(target))
}

func (vm *vm) funcCall(n *syntax.LinkedNode) (Value, error) {
	children := n.Children()
	callee := children[0]
	argsNode := n.Child(syntax.Args)
	if argsNode == nil {
		return nil, errReported
	}

	if callee.Kind() == syntax.FieldAccess {
		parts := operands(callee)
		if len(parts) != 3 {
			return nil, errReported
		}
		target, err := vm.expr(parts[0])
		if err != nil {
			return nil, err
		}
		name := parts[2].Text()
		switch t := target.(type) {
		case *Module:
			f, ok := t.Field(name)
			if !ok {
				return nil, fmt.Errorf("module %s does not contain %s", t.Name, name)
			}
			return vm.callValue(f, argsNode)
		case *Dict:
			// Functions stored in a dictionary shadow its methods.
			if f, ok := t.Get(name); ok {
				return vm.callValue(f, argsNode)
			}
		}
		args, err := vm.args(argsNode)
		if err != nil {
			return nil, err
		}
		out, updated, err := vm.method(target, name, args)
		if err != nil {
			return nil, err
		}
		if updated != nil {
			if parts[0].Kind() != syntax.Ident {
				return nil, fmt.Errorf("cannot mutate a temporary value")
			}
			if err := vm.scopes.assign(parts[0].Text(), updated); err != nil {
				return nil, err
			}
		}
		return out, nil
	}

	f, err := vm.expr(callee)
	if err != nil {
		return nil, err
	}
	return vm.callValue(f, argsNode)
}

func (vm *vm) callValue(callee Value, argsNode *syntax.LinkedNode) (Value, error) {
	f, ok := callee.(*Func)
	if !ok {
		return nil, fmt.Errorf("expected function, found %s", TypeName(callee))
	}
	args, err := vm.args(argsNode)
	if err != nil {
		return nil, err
	}
	out, err := vm.call(f, args)
	if err != nil {
		return nil, vm.locate(argsNode.Parent(), err)
	}
	if err := args.Finish(); err != nil {
		return nil, err
	}
	return out, nil
}

// args evaluates call arguments, including trailing content blocks.
func (vm *vm) args(n *syntax.LinkedNode) (*Args, error) {
	args := &Args{Span: vm.span(n)}
	for _, item := range operands(n) {
		switch item.Kind() {
		case syntax.Named:
			name, v, err := vm.named(item)
			if err != nil {
				return nil, err
			}
			args.Items = append(args.Items, Arg{Name: name, Value: v, Span: vm.span(item)})
		case syntax.Error:
			return nil, errReported
		default:
			v, err := vm.expr(item)
			if err != nil {
				return nil, err
			}
			args.Items = append(args.Items, Arg{Value: v, Span: vm.span(item)})
		}
	}
	return args, nil
}

// closure builds a function value, capturing the visible bindings.
func (vm *vm) closure(n *syntax.LinkedNode) (Value, error) {
	parts := operands(n)
	var name string
	if len(parts) > 0 && parts[0].Kind() == syntax.Ident {
		name = parts[0].Text()
		parts = parts[1:]
	}
	if len(parts) < 2 || parts[0].Kind() != syntax.Params {
		return nil, errReported
	}
	body := parts[len(parts)-1]
	switch body.Kind() {
	case syntax.Eq, syntax.Arrow:
		return nil, errReported
	}

	var params []param
	for _, p := range operands(parts[0]) {
		switch p.Kind() {
		case syntax.Ident:
			params = append(params, param{name: p.Text()})
		case syntax.Named:
			pname, def, err := vm.named(p)
			if err != nil {
				return nil, err
			}
			params = append(params, param{name: pname, def: def})
		default:
			return nil, errReported
		}
	}
	return &Func{
		name: name,
		closure: &closure{
			file:     vm.file,
			node:     body,
			params:   params,
			captured: vm.scopes.flatten(),
		},
	}, nil
}

func (vm *vm) letBinding(n *syntax.LinkedNode) (Value, error) {
	if c := n.Child(syntax.Closure); c != nil {
		f, err := vm.expr(c)
		if err != nil {
			return nil, err
		}
		vm.scopes.define(f.(*Func).name, f)
		return None{}, nil
	}
	parts := operands(n)
	if len(parts) < 2 || parts[1].Kind() != syntax.Ident {
		return nil, errReported
	}
	var v Value = None{}
	if len(parts) >= 4 && parts[2].Kind() == syntax.Eq {
		var err error
		if v, err = vm.expr(parts[3]); err != nil {
			// Bind the name anyway so later uses do not cascade.
			vm.scopes.define(parts[1].Text(), None{})
			return nil, err
		}
	}
	vm.scopes.define(parts[1].Text(), v)
	return None{}, nil
}

func (vm *vm) condition(n *syntax.LinkedNode) (bool, error) {
	v, err := vm.expr(n)
	if err != nil {
		return false, err
	}
	b, ok := v.(Bool)
	if !ok {
		return false, diag.Errorf(diag.EvalError, vm.span(n), "expected boolean, found %s", TypeName(v))
	}
	return bool(b), nil
}

func (vm *vm) conditional(n *syntax.LinkedNode) (Value, error) {
	parts := operands(n)
	// If, condition, body [, Else, body]
	if len(parts) < 3 {
		return nil, errReported
	}
	ok, err := vm.condition(parts[1])
	if err != nil {
		return nil, err
	}
	if ok {
		return vm.expr(parts[2])
	}
	if len(parts) >= 5 && parts[3].Kind() == syntax.Else {
		return vm.expr(parts[4])
	}
	return None{}, nil
}

func (vm *vm) whileLoop(n *syntax.LinkedNode) (Value, error) {
	parts := operands(n)
	if len(parts) < 3 {
		return nil, errReported
	}
	var out Value = None{}
	for i := 0; ; i++ {
		if i >= MaxIterations {
			return nil, fmt.Errorf("loop seems to be infinite")
		}
		ok, err := vm.condition(parts[1])
		if err != nil {
			return nil, err
		}
		if !ok {
			break
		}
		v, err := vm.expr(parts[2])
		if err != nil {
			return nil, err
		}
		if out, err = join(out, v); err != nil {
			return nil, err
		}
		if done := vm.loopFlow(); done {
			break
		}
	}
	return out, nil
}

// loopFlow consumes break and continue and reports whether the loop ends.
func (vm *vm) loopFlow() bool {
	if vm.flow == nil {
		return false
	}
	switch vm.flow.kind {
	case flowBreak:
		vm.flow = nil
		return true
	case flowContinue:
		vm.flow = nil
		return false
	}
	return true
}

func (vm *vm) forLoop(n *syntax.LinkedNode) (Value, error) {
	parts := operands(n)
	// For, pattern, In, iterable, body
	if len(parts) < 5 || parts[1].Kind() != syntax.Ident {
		return nil, errReported
	}
	name := parts[1].Text()
	iterable, err := vm.expr(parts[3])
	if err != nil {
		return nil, err
	}
	var items []Value
	switch it := iterable.(type) {
	case Array:
		items = it
	case Str:
		for _, r := range string(it) {
			items = append(items, Str(string(r)))
		}
	case *Dict:
		for _, k := range it.keys {
			items = append(items, Array{Str(k), it.vals[k]})
		}
	default:
		return nil, diag.Errorf(diag.EvalError, vm.span(parts[3]), "cannot loop over %s", TypeName(iterable))
	}

	var out Value = None{}
	vm.scopes.enter()
	defer vm.scopes.exit()
	for _, item := range items {
		vm.scopes.define(name, item)
		v, err := vm.expr(parts[4])
		if err != nil {
			return nil, err
		}
		if out, err = join(out, v); err != nil {
			return nil, err
		}
		if done := vm.loopFlow(); done {
			break
		}
	}
	return out, nil
}

// numeric parses a number with a unit suffix.
func numeric(text string) (Value, error) {
	i := len(text)
	for i > 0 && (text[i-1] < '0' || text[i-1] > '9') && text[i-1] != '.' {
		i--
	}
	v, err := strconv.ParseFloat(text[:i], 64)
	if err != nil {
		return nil, fmt.Errorf("invalid number %q", text)
	}
	switch text[i:] {
	case "pt":
		return Length(model.Pt(v)), nil
	case "mm":
		return Length(model.Pt(v * 72 / 25.4)), nil
	case "cm":
		return Length(model.Pt(v * 72 / 2.54)), nil
	case "in":
		return Length(model.Pt(v * 72)), nil
	case "em":
		return Length(model.Em(v)), nil
	case "%":
		return Length(model.Length{Ratio: v / 100}), nil
	}
	return nil, fmt.Errorf("unknown unit %q", text[i:])
}

// unescape resolves the escapes of a quoted string literal.
func unescape(lit string) string {
	s := strings.TrimPrefix(lit, `"`)
	s = strings.TrimSuffix(s, `"`)
	if !strings.Contains(s, `\`) {
		return s
	}
	var sb strings.Builder
	for i := 0; i < len(s); i++ {
		c := s[i]
		if c != '\\' || i+1 >= len(s) {
			sb.WriteByte(c)
			continue
		}
		i++
		switch s[i] {
		case 'n':
			sb.WriteByte('\n')
		case 't':
			sb.WriteByte('\t')
		case 'r':
			sb.WriteByte('\r')
		case 'u':
			if j := strings.IndexByte(s[i:], '}'); i+1 < len(s) && s[i+1] == '{' && j > 0 {
				if r, err := strconv.ParseUint(s[i+2:i+j], 16, 32); err == nil {
					sb.WriteRune(rune(r))
					i += j
					continue
				}
			}
			sb.WriteString(`\u`)
		default:
			sb.WriteByte(s[i])
		}
	}
	return sb.String()
}

package syntax

import "unicode/utf8"

// Parse parses markup into a syntax tree. It never fails: malformed regions
// become Error nodes, and invalid UTF-8 is covered by a single Error node.
//
// Grammar (markup mode):
//
//	markup     = (text | space | parbreak | linebreak | escape | raw
//	             | strong | emph | heading | listItem | comment | embed)*
//	strong     = "*" markup "*"
//	emph       = "_" markup "_"
//	heading    = "="+ space markup           (at line start, up to newline)
//	listItem   = "-" space markup            (at line start, up to newline)
//	embed      = "#" atomicExpr ";"?
//
// Grammar (code mode):
//
//	code       = (expr (";" | newline))*
//	expr       = unary | primary postfix* (binop expr)*
//	postfix    = "(" args ")" | "[" markup "]" | "." ident
//	primary    = literal | ident | ident "=>" expr | "(" ... ")" | "{" code "}"
//	           | "[" markup "]" | let | set | if | while | for | import
//	           | include | break | continue | return
func Parse(text string) *Node {
	if !utf8.ValidString(text) {
		return NewInner(Markup, []*Node{NewError(text, "file is not valid UTF-8")})
	}
	p := newParser(text, 0, modeMarkup)
	p.markup(true, stopNever)
	return p.finish()
}

// ParseChecked is Parse with encoding validation.
func ParseChecked(text string) (*Node, error) {
	if _, err := NewScanner(text); err != nil {
		return nil, err
	}
	return Parse(text), nil
}

// ParseCode parses text as a sequence of code expressions.
func ParseCode(text string) *Node {
	if !utf8.ValidString(text) {
		return NewInner(Code, []*Node{NewError(text, "file is not valid UTF-8")})
	}
	p := newParser(text, 0, modeCode)
	p.code(func(p *parser) bool { return false })
	return p.finish()
}

type newlineMode uint8

const (
	// newlineStop ends the current expression at a newline.
	newlineStop newlineMode = iota
	// newlineContextual stops unless the next line starts with "else" or ".".
	newlineContextual
	// newlineContinue ignores newlines.
	newlineContinue
)

// MaxDepth bounds the nesting of expressions and markup. Input nested
// deeper than this is covered by a single error node.
const MaxDepth = 256

type stopFunc func(p *parser) bool

func stopNever(*parser) bool { return false }

type parser struct {
	text         string
	lexer        *lexer
	prevEnd      int
	currentStart int
	current      SyntaxKind
	currentErr   string
	modes        []lexMode
	newlineModes []newlineMode
	nodes        []*Node
	depth        int
	tooDeep      bool
}

func newParser(text string, offset int, mode lexMode) *parser {
	l := newLexer(text, mode)
	l.jump(offset)
	p := &parser{text: text, lexer: l, prevEnd: offset, currentStart: offset}
	p.lex()
	p.skip()
	return p
}

// finish wraps everything parsed so far; the root must be a single node.
func (p *parser) finish() *Node {
	for !p.eof() {
		p.unexpected()
	}
	if len(p.nodes) == 1 {
		return p.nodes[0]
	}
	return NewInner(Markup, p.nodes)
}

// Token cursor

func (p *parser) currentEnd() int { return p.lexer.cursor() }

func (p *parser) currentText() string { return p.text[p.currentStart:p.currentEnd()] }

func (p *parser) at(kind SyntaxKind) bool { return p.current == kind }

func (p *parser) atSet(set map[SyntaxKind]bool) bool { return set[p.current] }

func (p *parser) eof() bool { return p.current == Eof }

// directlyAt reports whether kind follows without intervening trivia.
func (p *parser) directlyAt(kind SyntaxKind) bool {
	return p.current == kind && p.prevEnd == p.currentStart
}

// descend enters one level of nesting. At the depth limit it consumes the
// rest of the input as an error and returns false. Every descend is paired
// with an ascend.
func (p *parser) descend() bool {
	p.depth++
	if p.depth <= MaxDepth {
		return true
	}
	if !p.tooDeep {
		p.tooDeep = true
		p.unskip()
		p.nodes = append(p.nodes, NewError(p.text[p.currentStart:], "maximum nesting depth exceeded"))
		p.prevEnd = len(p.text)
		p.lexer.jump(len(p.text))
		p.lex()
	}
	return false
}

func (p *parser) ascend() { p.depth-- }

func (p *parser) progress(prev int) bool { return p.prevEnd > prev }

func (p *parser) marker() int { return len(p.nodes) }

// newline reports whether the current token is whitespace with a newline.
func (p *parser) newline() bool {
	return (p.current == Space || p.current == Parbreak) && p.lexer.newline
}

func (p *parser) lex() {
	p.currentStart = p.lexer.cursor()
	p.current = p.lexer.next()
	p.currentErr = p.lexer.err
	if p.lexer.mode != modeCode || !p.lexer.newline || len(p.newlineModes) == 0 {
		return
	}
	switch p.newlineModes[len(p.newlineModes)-1] {
	case newlineStop:
		p.current = Eof
	case newlineContextual:
		ahead := p.lexer.clone()
		next := ahead.next()
		for next.IsTrivia() {
			next = ahead.next()
		}
		if next != Else && next != Dot {
			p.current = Eof
		}
	}
}

// save pushes the current token as a leaf.
func (p *parser) save() {
	text := p.currentText()
	if p.current == Error {
		p.nodes = append(p.nodes, NewError(text, p.currentErr))
	} else {
		p.nodes = append(p.nodes, NewLeaf(p.current, text))
	}
	if p.lexer.mode == modeMarkup || !p.current.IsTrivia() {
		p.prevEnd = p.currentEnd()
	}
}

// advance consumes the current token and lexes the next one.
func (p *parser) advance() {
	p.save()
	p.lex()
	p.skip()
}

// skip consumes trivia in code mode.
func (p *parser) skip() {
	if p.lexer.mode == modeMarkup {
		return
	}
	for p.current.IsTrivia() {
		p.save()
		p.lex()
	}
}

// unskip gives back trailing trivia so it can be re-lexed by an outer mode.
func (p *parser) unskip() {
	if p.lexer.mode == modeMarkup || p.prevEnd == p.currentStart {
		return
	}
	for len(p.nodes) > 0 && p.nodes[len(p.nodes)-1].kind.IsTrivia() {
		p.nodes = p.nodes[:len(p.nodes)-1]
	}
	p.lexer.jump(p.prevEnd)
	p.lex()
}

func (p *parser) eatIf(kind SyntaxKind) bool {
	if p.at(kind) {
		p.advance()
		return true
	}
	return false
}

// assert consumes a token the caller has already checked for.
func (p *parser) assert(kind SyntaxKind) {
	if p.current != kind {
		panic("syntax: expected " + kind.String() + ", found " + p.current.String())
	}
	p.advance()
}

// convert consumes the current token as a leaf of another kind.
func (p *parser) convert(kind SyntaxKind) {
	p.current = kind
	p.advance()
}

func (p *parser) enter(mode lexMode) {
	p.modes = append(p.modes, p.lexer.mode)
	p.lexer.mode = mode
}

func (p *parser) exit() {
	mode := p.modes[len(p.modes)-1]
	p.modes = p.modes[:len(p.modes)-1]
	if mode != p.lexer.mode {
		p.unskip()
		p.lexer.mode = mode
		p.lexer.jump(p.currentStart)
		p.lex()
		p.skip()
	}
}

func (p *parser) enterNewlineMode(mode newlineMode) {
	p.newlineModes = append(p.newlineModes, mode)
}

func (p *parser) exitNewlineMode() {
	p.unskip()
	p.newlineModes = p.newlineModes[:len(p.newlineModes)-1]
	p.lexer.jump(p.prevEnd)
	p.lex()
	p.skip()
}

// wrap groups the nodes since m, excluding trailing trivia, into one node.
func (p *parser) wrap(m int, kind SyntaxKind) {
	p.unskip()
	to := p.beforeTrivia()
	if m > to {
		m = to
	}
	children := make([]*Node, to-m)
	copy(children, p.nodes[m:to])
	rest := append([]*Node{NewInner(kind, children)}, p.nodes[to:]...)
	p.nodes = append(p.nodes[:m], rest...)
	p.skip()
}

func (p *parser) beforeTrivia() int {
	i := len(p.nodes)
	if p.lexer.mode != modeMarkup && p.prevEnd != p.currentStart {
		for i > 0 && p.nodes[i-1].kind.IsTrivia() {
			i--
		}
	}
	return i
}

// Errors

func (p *parser) expect(kind SyntaxKind) bool {
	if p.at(kind) {
		p.advance()
		return true
	}
	p.expected(kind.String())
	return false
}

// expectClosing closes a group opened at marker open, or marks the opener
// as unclosed.
func (p *parser) expectClosing(open int, kind SyntaxKind) {
	if p.eatIf(kind) {
		return
	}
	opener := p.nodes[open]
	p.nodes[open] = NewError(opener.text, "unclosed delimiter")
}

func (p *parser) expected(thing string) {
	p.unskip()
	if !p.afterError() {
		at := p.beforeTrivia()
		err := NewError("", "expected "+thing)
		p.nodes = append(p.nodes[:at], append([]*Node{err}, p.nodes[at:]...)...)
	}
	p.skip()
}

func (p *parser) afterError() bool {
	at := p.beforeTrivia()
	return at > 0 && p.nodes[at-1].kind == Error
}

// unexpected consumes the current token as an error.
func (p *parser) unexpected() {
	p.unskip()
	for p.current.IsTrivia() && p.lexer.mode == modeCode {
		p.save()
		p.lex()
	}
	kind := p.current
	text := p.currentText()
	msg := "unexpected " + kind.String()
	if kind == Error {
		msg = p.currentErr
	}
	if kind == Eof {
		return
	}
	p.nodes = append(p.nodes, NewError(text, msg))
	if p.lexer.mode == modeMarkup || !kind.IsTrivia() {
		p.prevEnd = p.currentEnd()
	}
	p.lex()
	p.skip()
}

// Markup

func (p *parser) markup(atStart bool, stop stopFunc) {
	m := p.marker()
	if p.descend() {
		nesting := 0
		p.markupExprs(&atStart, &nesting, stop, -1)
	}
	p.ascend()
	p.wrap(m, Markup)
}

// markupExprs parses markup children until stop holds, the input ends, or
// (when until >= 0) the cursor reaches until. Brackets that do not open a
// content block are text, and a closing bracket only ends the markup when
// it is not balanced by an earlier opening one.
func (p *parser) markupExprs(atStart *bool, nesting *int, stop stopFunc, until int) {
	for !p.eof() {
		if until >= 0 && p.currentStart >= until {
			return
		}
		switch {
		case p.at(LeftBracket):
			*nesting++
		case p.at(RightBracket) && *nesting > 0:
			*nesting--
			p.convert(Text)
			*atStart = false
			continue
		case stop(p):
			return
		}
		prev := p.prevEnd
		p.markupExpr(atStart)
		if !p.progress(prev) {
			p.unexpected()
		}
	}
}

func (p *parser) markupExpr(atStart *bool) {
	switch p.current {
	case Space, Parbreak:
		*atStart = p.lexer.newline || *atStart
		p.advance()
		return
	case LineComment, BlockComment:
		p.advance()
		return
	case Text, Linebreak, Escape, Raw:
		p.advance()
	case Hash:
		p.embeddedCodeExpr()
	case Star:
		p.strong()
	case Underscore:
		p.emph()
	case HeadingMarker:
		if *atStart {
			p.heading()
		} else {
			p.convert(Text)
		}
	case ListMarker:
		if *atStart {
			p.listItem()
		} else {
			p.convert(Text)
		}
	case LeftBracket:
		p.convert(Text)
	default:
		p.unexpected()
	}
	*atStart = false
}

func stopStrong(p *parser) bool {
	return p.at(Star) || p.at(Parbreak) || p.at(RightBracket)
}

func stopEmph(p *parser) bool {
	return p.at(Underscore) || p.at(Parbreak) || p.at(RightBracket)
}

func stopLine(p *parser) bool {
	return p.at(RightBracket) || p.newline()
}

func stopContent(p *parser) bool { return p.at(RightBracket) }

func (p *parser) strong() {
	m := p.marker()
	p.assert(Star)
	p.markup(false, stopStrong)
	p.expect(Star)
	p.wrap(m, Strong)
}

func (p *parser) emph() {
	m := p.marker()
	p.assert(Underscore)
	p.markup(false, stopEmph)
	p.expect(Underscore)
	p.wrap(m, Emph)
}

func (p *parser) heading() {
	m := p.marker()
	p.assert(HeadingMarker)
	p.markup(false, stopLine)
	p.wrap(m, Heading)
}

func (p *parser) listItem() {
	m := p.marker()
	p.assert(ListMarker)
	p.markup(false, stopLine)
	p.wrap(m, ListItem)
}

func (p *parser) embeddedCodeExpr() {
	m := p.marker()
	p.enterNewlineMode(newlineStop)
	p.enter(modeCode)
	p.assert(Hash)
	p.unskip()

	stmt := p.at(Let) || p.at(Set) || p.at(Import) || p.at(Include)
	prev := p.prevEnd
	p.codeExprPrec(true, 0)
	if !p.progress(prev) {
		p.unexpected()
	}

	semi := (stmt || p.directlyAt(Semicolon)) && p.eatIf(Semicolon)
	if stmt && !semi && !p.eof() && !p.at(RightBracket) {
		p.expected("semicolon or line break")
	}

	p.exit()
	p.exitNewlineMode()
	p.wrap(m, Embed)
}

// Code

func (p *parser) code(stop func(*parser) bool) {
	m := p.marker()
	p.codeExprs(stop)
	p.wrap(m, Code)
}

func (p *parser) codeExprs(stop func(*parser) bool) {
	for !p.eof() && !stop(p) {
		p.enterNewlineMode(newlineContextual)
		atExpr := p.atSet(codeExprStart)
		if atExpr {
			p.codeExpr()
			if !p.eof() && !stop(p) && !p.eatIf(Semicolon) {
				p.expected("semicolon or line break")
			}
		}
		p.exitNewlineMode()
		if !atExpr && !p.eof() {
			p.unexpected()
		}
	}
}

var atomicStart = map[SyntaxKind]bool{
	Ident: true, LeftBrace: true, LeftBracket: true, LeftParen: true,
	Let: true, Set: true, If: true, While: true, For: true, Import: true,
	Include: true, Break: true, Continue: true, Return: true,
	NoneKw: true, AutoKw: true, Int: true, Float: true, Bool: true,
	Numeric: true, Str: true,
}

var codeExprStart = func() map[SyntaxKind]bool {
	m := map[SyntaxKind]bool{Minus: true, Plus: true, Not: true}
	for k := range atomicStart {
		m[k] = true
	}
	return m
}()

func (p *parser) codeExpr() { p.codeExprPrec(false, 0) }

func (p *parser) codeExprPrec(atomic bool, minPrec int) {
	m := p.marker()
	defer p.ascend()
	if !p.descend() {
		return
	}
	if !atomic && (p.at(Minus) || p.at(Plus) || p.at(Not)) {
		prec := unaryPrecedence(p.current)
		p.advance()
		p.codeExprPrec(atomic, prec)
		p.wrap(m, Unary)
	} else {
		p.codePrimary(atomic)
	}

	for {
		if p.directlyAt(LeftParen) || p.directlyAt(LeftBracket) {
			p.args()
			p.wrap(m, FuncCall)
			continue
		}

		atField := p.directlyAt(Dot) && p.peekKind() == Ident
		if atomic && !atField {
			break
		}

		if p.eatIf(Dot) {
			p.expect(Ident)
			p.wrap(m, FieldAccess)
			continue
		}

		notIn := p.at(Not) && p.peekMeaningful() == In
		op, ok := binaryOps[p.current]
		if notIn {
			op, ok = binaryOps[In], true
		}
		if !ok {
			break
		}
		prec := op.prec
		if prec < minPrec {
			break
		}
		if !op.right {
			prec++
		}
		p.advance()
		if notIn {
			p.assert(In)
		}
		p.codeExprPrec(false, prec)
		p.wrap(m, Binary)
	}
}

// peekKind lexes the token after the current one without consuming.
func (p *parser) peekKind() SyntaxKind {
	ahead := p.lexer.clone()
	return ahead.next()
}

// peekMeaningful is like peekKind but skips trivia. A newline that ends
// the current expression ends the lookahead too.
func (p *parser) peekMeaningful() SyntaxKind {
	ahead := p.lexer.clone()
	next := ahead.next()
	for next.IsTrivia() {
		if ahead.newline && p.stopsAtNewline() {
			return Eof
		}
		next = ahead.next()
	}
	return next
}

func (p *parser) stopsAtNewline() bool {
	n := len(p.newlineModes)
	return p.lexer.mode == modeCode && n > 0 && p.newlineModes[n-1] != newlineContinue
}

type binaryOp struct {
	prec  int
	right bool
}

var binaryOps = map[SyntaxKind]binaryOp{
	Eq:     {1, true},
	PlusEq: {1, true},
	HyphEq: {1, true},
	Or:     {2, false},
	And:    {3, false},
	EqEq:   {4, false},
	ExclEq: {4, false},
	Lt:     {4, false},
	LtEq:   {4, false},
	Gt:     {4, false},
	GtEq:   {4, false},
	In:     {4, false},
	Plus:   {5, false},
	Minus:  {5, false},
	Star:   {6, false},
	Slash:  {6, false},
}

func unaryPrecedence(kind SyntaxKind) int {
	if kind == Not {
		return 4
	}
	return 7
}

func (p *parser) codePrimary(atomic bool) {
	m := p.marker()
	switch p.current {
	case Ident:
		p.advance()
		if !atomic && p.at(Arrow) {
			p.wrap(m, Params)
			p.assert(Arrow)
			p.codeExpr()
			p.wrap(m, Closure)
		}
	case LeftBrace:
		p.codeBlock()
	case LeftBracket:
		p.contentBlock()
	case LeftParen:
		p.withParen()
	case Let:
		p.letBinding()
	case Set:
		p.setRule()
	case If:
		p.conditional()
	case While:
		p.whileLoop()
	case For:
		p.forLoop()
	case Import:
		p.moduleImport()
	case Include:
		p.moduleInclude()
	case Break:
		p.assert(Break)
		p.wrap(m, LoopBreak)
	case Continue:
		p.assert(Continue)
		p.wrap(m, LoopContinue)
	case Return:
		p.assert(Return)
		if !p.eof() && p.atSet(codeExprStart) {
			p.codeExpr()
		}
		p.wrap(m, FuncReturn)
	case NoneKw, AutoKw, Int, Float, Bool, Numeric, Str:
		p.advance()
	default:
		p.expected("expression")
	}
}

func (p *parser) block() {
	switch p.current {
	case LeftBracket:
		p.contentBlock()
	case LeftBrace:
		p.codeBlock()
	default:
		p.expected("block")
	}
}

func (p *parser) codeBlock() {
	m := p.marker()
	p.enter(modeCode)
	p.enterNewlineMode(newlineContinue)
	p.assert(LeftBrace)
	p.code(func(p *parser) bool {
		return p.at(RightBracket) || p.at(RightBrace) || p.at(RightParen)
	})
	p.expectClosing(m, RightBrace)
	p.exit()
	p.exitNewlineMode()
	p.wrap(m, CodeBlock)
}

func (p *parser) contentBlock() {
	m := p.marker()
	p.enter(modeMarkup)
	p.assert(LeftBracket)
	p.markup(true, stopContent)
	p.expectClosing(m, RightBracket)
	p.exit()
	p.wrap(m, ContentBlock)
}

func isTerminator(kind SyntaxKind) bool {
	switch kind {
	case Eof, Semicolon, RightBrace, RightParen, RightBracket:
		return true
	}
	return false
}

// withParen parses a parenthesized expression, array, dictionary or the
// parameter list of a closure.
func (p *parser) withParen() {
	m := p.marker()
	kind := p.collection()
	if p.at(Arrow) {
		p.validateParams(m)
		p.wrap(m, Params)
		p.assert(Arrow)
		p.codeExpr()
		kind = Closure
	}
	p.wrap(m, kind)
}

// collection parses "(...)" and reports what it turned out to be.
func (p *parser) collection() SyntaxKind {
	p.enterNewlineMode(newlineContinue)
	m := p.marker()
	p.assert(LeftParen)

	count := 0
	parenthesized := true
	named := 0
	if p.eatIf(Colon) {
		named = -1
		parenthesized = false
	}

	for !isTerminator(p.current) {
		prev := p.prevEnd
		if p.item() == Named {
			named++
		}
		if !p.progress(prev) {
			p.unexpected()
			continue
		}
		count++
		if isTerminator(p.current) {
			break
		}
		if p.expect(Comma) {
			parenthesized = false
		}
	}

	p.expectClosing(m, RightParen)
	p.exitNewlineMode()

	switch {
	case parenthesized && count == 1 && named == 0:
		return Parenthesized
	case named != 0:
		return Dict
	default:
		return Array
	}
}

// item parses an expression or a "name: expr" pair.
func (p *parser) item() SyntaxKind {
	m := p.marker()
	if p.at(Ident) && p.peekKind() == Colon {
		p.advance()
		p.assert(Colon)
		p.codeExpr()
		p.wrap(m, Named)
		return Named
	}
	p.codeExpr()
	return Eof
}

// validateParams turns invalid parameter items into errors.
func (p *parser) validateParams(m int) {
	for i := m; i < len(p.nodes); i++ {
		n := p.nodes[i]
		switch n.kind {
		case Ident, Named, LeftParen, RightParen, Comma, Error:
		default:
			if !n.kind.IsTrivia() {
				p.nodes[i] = NewError(n.FullText(), "expected identifier")
			}
		}
	}
}

func (p *parser) args() {
	m := p.marker()
	if p.at(LeftParen) {
		open := p.marker()
		p.enterNewlineMode(newlineContinue)
		p.assert(LeftParen)
		for !isTerminator(p.current) {
			prev := p.prevEnd
			p.item()
			if !p.progress(prev) {
				p.unexpected()
				continue
			}
			if !isTerminator(p.current) {
				p.expect(Comma)
			}
		}
		p.expectClosing(open, RightParen)
		p.exitNewlineMode()
	}
	for p.directlyAt(LeftBracket) {
		p.contentBlock()
	}
	p.wrap(m, Args)
}

func (p *parser) params() {
	m := p.marker()
	p.enterNewlineMode(newlineContinue)
	p.assert(LeftParen)
	for !isTerminator(p.current) {
		prev := p.prevEnd
		p.item()
		if !p.progress(prev) {
			p.unexpected()
			continue
		}
		if !isTerminator(p.current) {
			p.expect(Comma)
		}
	}
	p.expectClosing(m, RightParen)
	p.exitNewlineMode()
	p.validateParams(m)
	p.wrap(m, Params)
}

func (p *parser) letBinding() {
	m := p.marker()
	p.assert(Let)

	m2 := p.marker()
	closure := false
	if p.at(Ident) {
		p.advance()
		if p.directlyAt(LeftParen) {
			p.params()
			closure = true
		}
	} else {
		p.expected("identifier")
	}

	if p.eatIf(Eq) {
		p.codeExpr()
	} else if closure {
		p.expected("equals sign")
	}
	if closure {
		p.wrap(m2, Closure)
	}
	p.wrap(m, LetBinding)
}

func (p *parser) setRule() {
	m := p.marker()
	p.assert(Set)
	p.expect(Ident)
	if p.directlyAt(LeftParen) || p.directlyAt(LeftBracket) {
		p.args()
	} else {
		p.expected("argument list")
	}
	p.wrap(m, SetRule)
}

func (p *parser) conditional() {
	m := p.marker()
	p.assert(If)
	p.codeExpr()
	p.block()
	if p.eatIf(Else) {
		if p.at(If) {
			if p.descend() {
				p.conditional()
			}
			p.ascend()
		} else {
			p.block()
		}
	}
	p.wrap(m, Conditional)
}

func (p *parser) whileLoop() {
	m := p.marker()
	p.assert(While)
	p.codeExpr()
	p.block()
	p.wrap(m, WhileLoop)
}

func (p *parser) forLoop() {
	m := p.marker()
	p.assert(For)
	p.expect(Ident)
	if p.expect(In) {
		p.codeExpr()
		p.block()
	}
	p.wrap(m, ForLoop)
}

func (p *parser) moduleImport() {
	m := p.marker()
	p.assert(Import)
	p.codeExpr()
	if p.eatIf(Colon) {
		items := p.marker()
		for !isTerminator(p.current) {
			if !p.expect(Ident) {
				break
			}
			if isTerminator(p.current) {
				break
			}
			if !p.eatIf(Comma) {
				break
			}
		}
		p.wrap(items, ImportItems)
	}
	p.wrap(m, ModuleImport)
}

func (p *parser) moduleInclude() {
	m := p.marker()
	p.assert(Include)
	p.codeExpr()
	p.wrap(m, ModuleInclude)
}

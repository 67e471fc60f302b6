package syntax

import (
	"strings"
	"unicode"
)

// lexMode selects the token grammar.
type lexMode uint8

const (
	modeMarkup lexMode = iota
	modeCode
)

// lexer splits text into tokens for the parser. It keeps no state besides
// its position and mode, so the parser can restart it anywhere.
type lexer struct {
	s       Scanner
	mode    lexMode
	newline bool   // whether the last token contained a newline
	err     string // message for the last Error token
}

func newLexer(text string, mode lexMode) *lexer {
	return &lexer{s: Scanner{text: text}, mode: mode}
}

func (l *lexer) cursor() int    { return l.s.pos }
func (l *lexer) jump(offset int) { l.s.Jump(offset) }

// clone copies the lexer for lookahead.
func (l *lexer) clone() *lexer {
	c := *l
	return &c
}

func (l *lexer) error(msg string) SyntaxKind {
	l.err = msg
	return Error
}

// next lexes one token.
func (l *lexer) next() SyntaxKind {
	l.newline = false
	l.err = ""
	start := l.s.pos
	r := l.s.Eat()
	switch {
	case r == EOF:
		return Eof
	case isSpace(r):
		return l.whitespace(start)
	case r == '/' && l.s.EatIf('/'):
		l.s.EatUntil(isNewline)
		return LineComment
	case r == '/' && l.s.EatIf('*'):
		return l.blockComment()
	case r == '*' && l.mode == modeCode && l.s.EatIf('/'):
		return l.error("unexpected end of block comment")
	}
	if l.mode == modeMarkup {
		return l.markup(start, r)
	}
	return l.code(start, r)
}

func (l *lexer) whitespace(start int) SyntaxKind {
	l.s.EatWhile(isSpace)
	newlines := strings.Count(l.s.From(start), "\n")
	l.newline = newlines > 0
	if l.mode == modeMarkup && newlines >= 2 {
		return Parbreak
	}
	return Space
}

func (l *lexer) blockComment() SyntaxKind {
	depth := 1
	for !l.s.Done() && depth > 0 {
		switch {
		case l.s.EatIfString("/*"):
			depth++
		case l.s.EatIfString("*/"):
			depth--
		default:
			l.s.Eat()
		}
	}
	if depth > 0 {
		return l.error("unclosed block comment")
	}
	return BlockComment
}

// Markup

func (l *lexer) markup(start int, r rune) SyntaxKind {
	switch r {
	case '\\':
		return l.backslash()
	case '`':
		return l.raw()
	case '*':
		if l.delimiterAt(start) {
			return Star
		}
	case '_':
		if l.delimiterAt(start) {
			return Underscore
		}
	case '#':
		if isEmbedStart(l.s.Peek()) {
			return Hash
		}
	case '[':
		return LeftBracket
	case ']':
		return RightBracket
	case '=':
		l.s.EatWhile(func(c rune) bool { return c == '=' })
		if isSpace(l.s.Peek()) || l.s.Done() {
			return HeadingMarker
		}
	case '-':
		if isSpace(l.s.Peek()) || l.s.Done() {
			return ListMarker
		}
	}
	return l.text()
}

// delimiterAt reports whether the star or underscore at offset opens or
// closes emphasis. Inside a word it is plain text.
func (l *lexer) delimiterAt(offset int) bool {
	before := EOF
	if offset > 0 {
		b := Scanner{text: l.s.text, pos: offset}
		before = b.Before()
	}
	return !(isAlnum(before) && isAlnum(l.s.Peek()))
}

func (l *lexer) backslash() SyntaxKind {
	r := l.s.Peek()
	if r == EOF || isSpace(r) {
		return Linebreak
	}
	l.s.Eat()
	return Escape
}

func (l *lexer) raw() SyntaxKind {
	backticks := 1
	for l.s.EatIf('`') {
		backticks++
	}
	if backticks == 2 {
		// An empty raw span.
		return Raw
	}
	fence := strings.Repeat("`", backticks)
	for !l.s.Done() {
		if l.s.EatIfString(fence) {
			return Raw
		}
		l.s.Eat()
	}
	return l.error("unclosed raw text")
}

// text consumes a run of plain text. The first character has already been
// eaten.
func (l *lexer) text() SyntaxKind {
	for !l.s.Done() {
		r := l.s.Peek()
		switch {
		case isSpace(r), r == '\\', r == '`', r == '[', r == ']':
			return Text
		case r == '/' && (l.s.PeekAt(1) == '/' || l.s.PeekAt(1) == '*'):
			return Text
		case r == '*' || r == '_':
			if !(isAlnum(l.s.Before()) && isAlnum(l.s.PeekAt(1))) {
				return Text
			}
		case r == '#':
			if isEmbedStart(l.s.PeekAt(1)) {
				return Text
			}
		}
		l.s.Eat()
	}
	return Text
}

// Code

func (l *lexer) code(start int, r rune) SyntaxKind {
	switch r {
	case '[':
		return LeftBracket
	case ']':
		return RightBracket
	case '{':
		return LeftBrace
	case '}':
		return RightBrace
	case '(':
		return LeftParen
	case ')':
		return RightParen
	case ',':
		return Comma
	case ';':
		return Semicolon
	case ':':
		return Colon
	case '.':
		if isDigit(l.s.Peek()) {
			return l.number(start)
		}
		return Dot
	case '+':
		if l.s.EatIf('=') {
			return PlusEq
		}
		return Plus
	case '-':
		if l.s.EatIf('=') {
			return HyphEq
		}
		return Minus
	case '*':
		return Star
	case '/':
		return Slash
	case '=':
		if l.s.EatIf('=') {
			return EqEq
		}
		if l.s.EatIf('>') {
			return Arrow
		}
		return Eq
	case '!':
		if l.s.EatIf('=') {
			return ExclEq
		}
	case '<':
		if l.s.EatIf('=') {
			return LtEq
		}
		return Lt
	case '>':
		if l.s.EatIf('=') {
			return GtEq
		}
		return Gt
	case '"':
		return l.str()
	}
	if isDigit(r) {
		return l.number(start)
	}
	if isIdentStart(r) {
		return l.ident(start)
	}
	return l.error("the character `" + string(r) + "` is not valid in code")
}

func (l *lexer) ident(start int) SyntaxKind {
	l.s.EatWhile(isIdentPart)
	if kw, ok := keywords[l.s.From(start)]; ok {
		return kw
	}
	return Ident
}

// units lists the suffixes accepted on numeric literals.
var units = []string{"pt", "mm", "cm", "in", "em", "%"}

func (l *lexer) number(start int) SyntaxKind {
	l.s.EatWhile(isDigit)
	float := strings.HasPrefix(l.s.From(start), ".")
	if !float && l.s.Peek() == '.' && isDigit(l.s.PeekAt(1)) {
		l.s.Eat()
		l.s.EatWhile(isDigit)
		float = true
	}
	for _, unit := range units {
		if l.s.At(unit) && !isIdentPart(l.s.PeekAt(len(unit))) {
			l.s.EatIfString(unit)
			return Numeric
		}
	}
	if isIdentStart(l.s.Peek()) {
		l.s.EatWhile(isIdentPart)
		return l.error("invalid number suffix")
	}
	if float {
		return Float
	}
	return Int
}

func (l *lexer) str() SyntaxKind {
	escaped := false
	for !l.s.Done() {
		r := l.s.Eat()
		switch {
		case escaped:
			escaped = false
		case r == '\\':
			escaped = true
		case r == '"':
			return Str
		}
	}
	return l.error("unclosed string")
}

func isSpace(r rune) bool {
	return r == ' ' || r == '\t' || r == '\n' || r == '\r'
}

func isNewline(r rune) bool { return r == '\n' }

func isDigit(r rune) bool { return r >= '0' && r <= '9' }

func isAlnum(r rune) bool {
	return r != EOF && (unicode.IsLetter(r) || unicode.IsDigit(r))
}

func isIdentStart(r rune) bool {
	return r == '_' || (r != EOF && unicode.IsLetter(r))
}

func isIdentPart(r rune) bool {
	return isIdentStart(r) || (r != EOF && unicode.IsDigit(r))
}

// isEmbedStart reports whether r may follow a hash to start embedded code.
func isEmbedStart(r rune) bool {
	return isIdentStart(r) || r == '(' || r == '{' || r == '[' || r == '"'
}

package syntax

import "fmt"

// SyntaxKind identifies the category of a syntax node.
type SyntaxKind uint8

const (
	Eof   SyntaxKind = iota // sentinel: end of input, never stored in a tree
	Error                   // unparseable region, carries a message

	// Markup
	Markup      // sequence of markup nodes
	Text        // plain text run
	Space       // whitespace with at most one newline
	Parbreak    // whitespace with two or more newlines
	Linebreak   // "\" before whitespace
	Escape      // "\*"
	Strong      // *...*
	Emph        // _..._
	Raw         // `...`
	Heading     // "== title"
	ListItem    // "- item"
	HeadingMarker
	ListMarker
	Star
	Underscore
	Backtick
	Hash

	// Trivia
	LineComment  // "// ..."
	BlockComment // "/* ... */"

	// Delimiters and punctuation
	LeftBrace
	RightBrace
	LeftBracket
	RightBracket
	LeftParen
	RightParen
	Comma
	Semicolon
	Colon
	Dot
	Plus
	Minus
	Slash
	Eq
	EqEq
	ExclEq
	Lt
	LtEq
	Gt
	GtEq
	PlusEq
	HyphEq
	Arrow

	// Keywords
	Not
	And
	Or
	NoneKw
	AutoKw
	Let
	Set
	If
	Else
	For
	In
	While
	Break
	Continue
	Return
	Import
	Include

	// Atoms
	Ident
	Bool
	Int
	Float
	Numeric
	Str

	// Code structure
	Embed
	Code
	CodeBlock
	ContentBlock
	Parenthesized
	Array
	Dict
	Named
	Unary
	Binary
	FieldAccess
	FuncCall
	Args
	Closure
	Params
	LetBinding
	SetRule
	Conditional
	WhileLoop
	ForLoop
	ModuleImport
	ImportItems
	ModuleInclude
	LoopBreak
	LoopContinue
	FuncReturn
)

var kindNames = [...]string{
	Eof:           "end of file",
	Error:         "syntax error",
	Markup:        "markup",
	Text:          "text",
	Space:         "space",
	Parbreak:      "paragraph break",
	Linebreak:     "line break",
	Escape:        "escape sequence",
	Strong:        "strong content",
	Emph:          "emphasized content",
	Raw:           "raw block",
	Heading:       "heading",
	ListItem:      "list item",
	HeadingMarker: "heading marker",
	ListMarker:    "list marker",
	Star:          "star",
	Underscore:    "underscore",
	Backtick:      "backtick",
	Hash:          "hash",
	LineComment:   "line comment",
	BlockComment:  "block comment",
	LeftBrace:     "opening brace",
	RightBrace:    "closing brace",
	LeftBracket:   "opening bracket",
	RightBracket:  "closing bracket",
	LeftParen:     "opening paren",
	RightParen:    "closing paren",
	Comma:         "comma",
	Semicolon:     "semicolon",
	Colon:         "colon",
	Dot:           "dot",
	Plus:          "plus",
	Minus:         "minus",
	Slash:         "slash",
	Eq:            "assignment operator",
	EqEq:          "equality operator",
	ExclEq:        "inequality operator",
	Lt:            "less-than operator",
	LtEq:          "less-than or equal operator",
	Gt:            "greater-than operator",
	GtEq:          "greater-than or equal operator",
	PlusEq:        "add-assign operator",
	HyphEq:        "subtract-assign operator",
	Arrow:         "arrow",
	Not:           "operator `not`",
	And:           "operator `and`",
	Or:            "operator `or`",
	NoneKw:        "`none`",
	AutoKw:        "`auto`",
	Let:           "keyword `let`",
	Set:           "keyword `set`",
	If:            "keyword `if`",
	Else:          "keyword `else`",
	For:           "keyword `for`",
	In:            "keyword `in`",
	While:         "keyword `while`",
	Break:         "keyword `break`",
	Continue:      "keyword `continue`",
	Return:        "keyword `return`",
	Import:        "keyword `import`",
	Include:       "keyword `include`",
	Ident:         "identifier",
	Bool:          "boolean",
	Int:           "integer",
	Float:         "float",
	Numeric:       "numeric value",
	Str:           "string",
	Embed:         "embedded expression",
	Code:          "code",
	CodeBlock:     "code block",
	ContentBlock:  "content block",
	Parenthesized: "group",
	Array:         "array",
	Dict:          "dictionary",
	Named:         "named pair",
	Unary:         "unary expression",
	Binary:        "binary expression",
	FieldAccess:   "field access",
	FuncCall:      "function call",
	Args:          "call arguments",
	Closure:       "closure",
	Params:        "closure parameters",
	LetBinding:    "`let` expression",
	SetRule:       "`set` expression",
	Conditional:   "`if` expression",
	WhileLoop:     "while-loop expression",
	ForLoop:       "for-loop expression",
	ModuleImport:  "`import` expression",
	ImportItems:   "import items",
	ModuleInclude: "`include` expression",
	LoopBreak:     "`break` expression",
	LoopContinue:  "`continue` expression",
	FuncReturn:    "`return` expression",
}

func (k SyntaxKind) String() string {
	if int(k) < len(kindNames) && kindNames[k] != "" {
		return kindNames[k]
	}
	return fmt.Sprintf("SyntaxKind(%d)", int(k))
}

// IsTrivia reports whether nodes of this kind carry no meaning in code.
func (k SyntaxKind) IsTrivia() bool {
	switch k {
	case Space, Parbreak, LineComment, BlockComment:
		return true
	}
	return false
}

// IsKeyword reports whether k is a reserved word of the code sublanguage.
func (k SyntaxKind) IsKeyword() bool {
	return k >= Not && k <= Include
}

// IsError reports whether k is the error kind.
func (k SyntaxKind) IsError() bool { return k == Error }

// IsGrouping reports whether k opens or closes a bracketed group.
func (k SyntaxKind) IsGrouping() bool {
	switch k {
	case LeftBrace, RightBrace, LeftBracket, RightBracket, LeftParen, RightParen:
		return true
	}
	return false
}

var keywords = map[string]SyntaxKind{
	"not":      Not,
	"and":      And,
	"or":       Or,
	"none":     NoneKw,
	"auto":     AutoKw,
	"let":      Let,
	"set":      Set,
	"if":       If,
	"else":     Else,
	"for":      For,
	"in":       In,
	"while":    While,
	"break":    Break,
	"continue": Continue,
	"return":   Return,
	"import":   Import,
	"include":  Include,
	"true":     Bool,
	"false":    Bool,
}

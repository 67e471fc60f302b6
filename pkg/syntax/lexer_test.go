package syntax

import (
	"reflect"
	"testing"
)

type tok struct {
	Kind SyntaxKind
	Text string
}

func lexAll(text string, mode lexMode) []tok {
	l := newLexer(text, mode)
	var out []tok
	for {
		start := l.cursor()
		kind := l.next()
		if kind == Eof {
			return out
		}
		out = append(out, tok{kind, text[start:l.cursor()]})
	}
}

func TestLexMarkup(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected []tok
	}{
		{
			name:     "Empty",
			input:    "",
			expected: nil,
		},
		{
			name:  "Strong",
			input: "Hello *world*",
			expected: []tok{
				{Text, "Hello"}, {Space, " "}, {Star, "*"}, {Text, "world"}, {Star, "*"},
			},
		},
		{
			name:  "Underscore Inside Word",
			input: "snake_case word",
			expected: []tok{
				{Text, "snake_case"}, {Space, " "}, {Text, "word"},
			},
		},
		{
			name:  "Heading Marker",
			input: "== Title",
			expected: []tok{
				{HeadingMarker, "=="}, {Space, " "}, {Text, "Title"},
			},
		},
		{
			name:  "Equals Without Space",
			input: "=x",
			expected: []tok{
				{Text, "=x"},
			},
		},
		{
			name:  "List Marker",
			input: "- item",
			expected: []tok{
				{ListMarker, "-"}, {Space, " "}, {Text, "item"},
			},
		},
		{
			name:  "Embed",
			input: "a #f(x)",
			expected: []tok{
				{Text, "a"}, {Space, " "}, {Hash, "#"}, {Text, "f(x)"},
			},
		},
		{
			name:  "Hash Without Code",
			input: "#1 c#",
			expected: []tok{
				{Text, "#1"}, {Space, " "}, {Text, "c#"},
			},
		},
		{
			name:  "Linebreak And Escape",
			input: `a\ b\*`,
			expected: []tok{
				{Text, "a"}, {Linebreak, `\`}, {Space, " "}, {Text, "b"}, {Escape, `\*`},
			},
		},
		{
			name:  "Comments",
			input: "x // c\ny /* a /* b */ */",
			expected: []tok{
				{Text, "x"}, {Space, " "}, {LineComment, "// c"}, {Space, "\n"},
				{Text, "y"}, {Space, " "}, {BlockComment, "/* a /* b */ */"},
			},
		},
		{
			name:  "Paragraph Break",
			input: "a\n\n b",
			expected: []tok{
				{Text, "a"}, {Parbreak, "\n\n "}, {Text, "b"},
			},
		},
		{
			name:  "Raw",
			input: "`a*b` ``` x ```",
			expected: []tok{
				{Raw, "`a*b`"}, {Space, " "}, {Raw, "``` x ```"},
			},
		},
		{
			name:  "Brackets",
			input: "[a]",
			expected: []tok{
				{LeftBracket, "["}, {Text, "a"}, {RightBracket, "]"},
			},
		},
		{
			name:  "Multibyte",
			input: "Grüße, *Welt*",
			expected: []tok{
				{Text, "Grüße,"}, {Space, " "}, {Star, "*"}, {Text, "Welt"}, {Star, "*"},
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := lexAll(tt.input, modeMarkup)
			if !reflect.DeepEqual(got, tt.expected) {
				t.Errorf("lex(%q)\n got: %v\nwant: %v", tt.input, got, tt.expected)
			}
		})
	}
}

func TestLexCode(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected []tok
	}{
		{
			name:  "Let With Units",
			input: "let x = 1.5pt + 2",
			expected: []tok{
				{Let, "let"}, {Space, " "}, {Ident, "x"}, {Space, " "}, {Eq, "="},
				{Space, " "}, {Numeric, "1.5pt"}, {Space, " "}, {Plus, "+"},
				{Space, " "}, {Int, "2"},
			},
		},
		{
			name:  "Operators",
			input: "a != b >= c => d += 1",
			expected: []tok{
				{Ident, "a"}, {Space, " "}, {ExclEq, "!="}, {Space, " "}, {Ident, "b"},
				{Space, " "}, {GtEq, ">="}, {Space, " "}, {Ident, "c"}, {Space, " "},
				{Arrow, "=>"}, {Space, " "}, {Ident, "d"}, {Space, " "}, {PlusEq, "+="},
				{Space, " "}, {Int, "1"},
			},
		},
		{
			name:  "Keywords",
			input: "if true and none or auto",
			expected: []tok{
				{If, "if"}, {Space, " "}, {Bool, "true"}, {Space, " "}, {And, "and"},
				{Space, " "}, {NoneKw, "none"}, {Space, " "}, {Or, "or"}, {Space, " "},
				{AutoKw, "auto"},
			},
		},
		{
			name:  "Strings",
			input: `"a\"b" "open`,
			expected: []tok{
				{Str, `"a\"b"`}, {Space, " "}, {Error, `"open`},
			},
		},
		{
			name:  "Numbers",
			input: "3 .5 2.25 10% 3xy",
			expected: []tok{
				{Int, "3"}, {Space, " "}, {Float, ".5"}, {Space, " "}, {Float, "2.25"},
				{Space, " "}, {Numeric, "10%"}, {Space, " "}, {Error, "3xy"},
			},
		},
		{
			name:  "Field Access",
			input: "calc.max(1, 2)",
			expected: []tok{
				{Ident, "calc"}, {Dot, "."}, {Ident, "max"}, {LeftParen, "("}, {Int, "1"},
				{Comma, ","}, {Space, " "}, {Int, "2"}, {RightParen, ")"},
			},
		},
		{
			name:  "Newlines Stay Spaces",
			input: "a\n\nb",
			expected: []tok{
				{Ident, "a"}, {Space, "\n\n"}, {Ident, "b"},
			},
		},
		{
			name:  "Invalid Character",
			input: "a $",
			expected: []tok{
				{Ident, "a"}, {Space, " "}, {Error, "$"},
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := lexAll(tt.input, modeCode)
			if !reflect.DeepEqual(got, tt.expected) {
				t.Errorf("lex(%q)\n got: %v\nwant: %v", tt.input, got, tt.expected)
			}
		})
	}
}

func TestLexErrorMessages(t *testing.T) {
	tests := []struct {
		input   string
		mode    lexMode
		message string
	}{
		{`"abc`, modeCode, "unclosed string"},
		{"/* a", modeMarkup, "unclosed block comment"},
		{"*/", modeCode, "unexpected end of block comment"},
		{"``` a", modeMarkup, "unclosed raw text"},
		{"1pq", modeCode, "invalid number suffix"},
	}
	for _, tt := range tests {
		l := newLexer(tt.input, tt.mode)
		if kind := l.next(); kind != Error {
			t.Errorf("lex(%q) = %v, want error", tt.input, kind)
			continue
		}
		if l.err != tt.message {
			t.Errorf("lex(%q) message = %q, want %q", tt.input, l.err, tt.message)
		}
	}
}

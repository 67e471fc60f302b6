package syntax

import (
	"errors"
	"reflect"
	"strings"
	"testing"
)

// corpus is a mix of well-formed and broken input used by the round-trip
// and incremental tests.
var corpus = []string{
	"",
	"Hello *world*",
	"The _quick_ fox",
	"= Intro\nSome text.\n\n== Details\n- one\n- two",
	"#let x = 1\nValue: #x, next #(x + 2).",
	"#let f(a, b: 2) = a * b\n#f(3)[body] and #f(1, b: 4)",
	"#set text(size: 12pt, font: \"Go\")\nStyled *text*.",
	"#if x > 1 [big] else [small]",
	"#for i in range(3) [#i ]",
	"#{\n  let a = (1, 2, 3)\n  let d = (x: 1, y: \"s\")\n  for v in a { v }\n}",
	"#import \"lib.typ\": a, b\n#include \"chapter.typ\"",
	"Text [with [nested]] brackets ] and `raw *text*` \\ break \\*",
	"// comment\n/* block /* nested */ */ text",
	"*unclosed strong\n\nnext para _unclosed emph",
	"#f[unclosed content",
	"#let = 1\n#(1, \n#\"open string",
	"#{ if a { 1 }\n else { 2 } }",
	"#(x) => x",
	"a = b - c",
	"#calc.max(1, 2).abs()",
	"#not true and false or 1 in (1, 2) and 3 not in (4,)",
	"#while i < 3 { i += 1; break }",
	"Grüße, *Welt*! ✓ #\"ünï\"",
	"]] [[ *_*_ `` #",
	"\\b#import*/{",
	", a\n\n#if*/ #",
	"#let x = a not\nin b",
}

func TestParseRoundTrip(t *testing.T) {
	for _, text := range corpus {
		root := Parse(text)
		if got := root.FullText(); got != text {
			t.Errorf("round trip of %q gave %q", text, got)
		}
		if root.Len() != len(text) {
			t.Errorf("length of %q = %d, want %d", text, root.Len(), len(text))
		}
		if root.Kind() != Markup {
			t.Errorf("root of %q is %v", text, root.Kind())
		}
	}
}

func kinds(nodes []*Node) []SyntaxKind {
	out := make([]SyntaxKind, len(nodes))
	for i, n := range nodes {
		out[i] = n.Kind()
	}
	return out
}

func expectKinds(t *testing.T, what string, nodes []*Node, want ...SyntaxKind) {
	t.Helper()
	if got := kinds(nodes); !reflect.DeepEqual(got, want) {
		t.Fatalf("%s: got kinds %v, want %v", what, got, want)
	}
}

func TestParseMarkup(t *testing.T) {
	t.Run("Strong", func(t *testing.T) {
		root := Parse("Hello *world*")
		expectKinds(t, "root", root.Children(), Text, Space, Strong)
		strong := root.Children()[2]
		expectKinds(t, "strong", strong.Children(), Star, Markup, Star)
		if got := strong.Children()[1].FullText(); got != "world" {
			t.Errorf("strong body = %q", got)
		}
		if root.Erroneous() {
			t.Errorf("unexpected errors: %v", root.Errors(0))
		}
	})

	t.Run("Heading", func(t *testing.T) {
		root := Parse("= Intro\nBody")
		expectKinds(t, "root", root.Children(), Heading, Space, Text)
		expectKinds(t, "heading", root.Children()[0].Children(), HeadingMarker, Markup)
	})

	t.Run("Heading Marker Mid Line", func(t *testing.T) {
		root := Parse("a = b")
		expectKinds(t, "root", root.Children(), Text, Space, Text, Space, Text)
	})

	t.Run("List", func(t *testing.T) {
		root := Parse("- one\n- two")
		expectKinds(t, "root", root.Children(), ListItem, Space, ListItem)
	})

	t.Run("Nested Brackets", func(t *testing.T) {
		root := Parse("#[a [b] c]")
		expectKinds(t, "root", root.Children(), Embed)
		block := root.Children()[0].Children()[1]
		expectKinds(t, "block", block.Children(), LeftBracket, Markup, RightBracket)
		expectKinds(t, "body", block.Children()[1].Children(), Text, Space, Text, Text, Text, Space, Text)
		if root.Erroneous() {
			t.Errorf("unexpected errors: %v", root.Errors(0))
		}
	})

	t.Run("Embedded Statements", func(t *testing.T) {
		root := Parse("#let x = 1\nHello #x")
		expectKinds(t, "root", root.Children(), Embed, Space, Text, Space, Embed)
		expectKinds(t, "let", root.Children()[0].Children(), Hash, LetBinding)
		expectKinds(t, "ident", root.Children()[4].Children(), Hash, Ident)
	})

	t.Run("Embed Ends Before Punctuation", func(t *testing.T) {
		root := Parse("Hi #name. More")
		expectKinds(t, "root", root.Children(), Text, Space, Embed, Text, Space, Text)
	})
}

func TestParseCode(t *testing.T) {
	t.Run("Precedence", func(t *testing.T) {
		root := Parse("#(1 + 2 * 3)")
		paren := root.Children()[0].Children()[1]
		expectKinds(t, "paren", paren.Children(), LeftParen, Binary, RightParen)
		sum := paren.Children()[1]
		expectKinds(t, "sum", sum.Children(), Int, Space, Plus, Space, Binary)
	})

	t.Run("Call With Named And Content Args", func(t *testing.T) {
		root := Parse("#f(a, b: 2)[body]")
		call := root.Children()[0].Children()[1]
		expectKinds(t, "call", call.Children(), Ident, Args)
		expectKinds(t, "args", call.Children()[1].Children(),
			LeftParen, Ident, Comma, Space, Named, RightParen, ContentBlock)
	})

	t.Run("Function Binding", func(t *testing.T) {
		root := Parse("#let f(x) = x + 1")
		let := root.Children()[0].Children()[1]
		expectKinds(t, "let", let.Children(), Let, Space, Closure)
		expectKinds(t, "closure", let.Children()[2].Children(), Ident, Params, Space, Eq, Space, Binary)
	})

	t.Run("Arrow Closure", func(t *testing.T) {
		root := Parse("#let f = (a, b) => a")
		let := root.Children()[0].Children()[1]
		closure := let.Children()[len(let.Children())-1]
		expectKinds(t, "closure", closure.Children(), Params, Space, Arrow, Space, Ident)
	})

	t.Run("Set Rule", func(t *testing.T) {
		root := Parse("#set text(size: 12pt)")
		expectKinds(t, "set", root.Children()[0].Children()[1].Children(), Set, Space, Ident, Args)
	})

	t.Run("Statements", func(t *testing.T) {
		root := ParseCode("let a = 1\nlet b = a + 2; b")
		expectKinds(t, "code", root.Children(), LetBinding, Space, LetBinding, Semicolon, Space, Ident)
	})

	t.Run("Else On Next Line", func(t *testing.T) {
		root := Parse("#{\nif x { 1 }\nelse { 2 }\n}")
		block := root.Children()[0].Children()[1]
		code := block.Child(Code)
		cond := code.Child(Conditional)
		if cond == nil {
			t.Fatalf("no conditional in %s", block.Dump())
		}
		if cond.Child(Else) == nil {
			t.Errorf("else branch not attached:\n%s", cond.Dump())
		}
	})

	t.Run("Import Items", func(t *testing.T) {
		root := Parse("#import \"a.typ\": x, y")
		imp := root.Children()[0].Children()[1]
		expectKinds(t, "import", imp.Children(), Import, Space, Str, Colon, Space, ImportItems)
	})
}

func TestParseErrors(t *testing.T) {
	tests := []struct {
		input   string
		message string
		rng     Range
	}{
		{"a ] b", "unexpected closing bracket", Range{2, 3}},
		{"#f[abc", "unclosed delimiter", Range{2, 3}},
		{"#(1, 2", "unclosed delimiter", Range{1, 2}},
		{"#let x = 1 y", "expected semicolon or line break", Range{10, 10}},
		{"#\"abc", "unclosed string", Range{1, 5}},
	}
	for _, tt := range tests {
		root := Parse(tt.input)
		if !root.Erroneous() {
			t.Errorf("%q: expected an error", tt.input)
			continue
		}
		found := false
		for _, err := range root.Errors(0) {
			if err.Message == tt.message && err.Range == tt.rng {
				found = true
			}
		}
		if !found {
			t.Errorf("%q: want %q at %v, got %v", tt.input, tt.message, tt.rng, root.Errors(0))
		}
		if root.FullText() != tt.input {
			t.Errorf("%q: round trip broke", tt.input)
		}
	}
}

func TestErrorsInSourceOrder(t *testing.T) {
	text := strings.Repeat("#[", 64) + strings.Repeat(" ]", 1064)
	root := Parse(text)
	errs := root.Errors(0)
	if len(errs) != 1000 {
		t.Fatalf("got %d errors, want 1000", len(errs))
	}
	for i := 1; i < len(errs); i++ {
		if errs[i].Range.Start < errs[i-1].Range.End {
			t.Fatalf("error %d at %v overlaps %v", i, errs[i].Range, errs[i-1].Range)
		}
	}
	for _, err := range errs {
		if err.Range.End > len(text) {
			t.Fatalf("error %v outside the text", err.Range)
		}
	}
}

func treeDepth(n *Node) int {
	d := 0
	for _, c := range n.Children() {
		d = max(d, treeDepth(c))
	}
	return d + 1
}

func TestParseDepthLimit(t *testing.T) {
	inputs := []string{
		"#" + strings.Repeat("(", 100000),
		strings.Repeat("#[", 50000),
		"#(" + strings.Repeat("-", 50000) + "1)",
		"#if a {} " + strings.Repeat("else if a {} ", 20000),
	}
	for _, text := range inputs {
		root := Parse(text)
		if root.FullText() != text {
			t.Errorf("%.20q...: round trip broke", text)
		}
		found := false
		for _, err := range root.Errors(0) {
			if err.Message == "maximum nesting depth exceeded" {
				found = true
			}
		}
		if !found {
			t.Errorf("%.20q...: no depth error", text)
		}
		if d := treeDepth(root); d > 8*MaxDepth {
			t.Errorf("%.20q...: tree is %d levels deep", text, d)
		}
	}
}

func TestParseNotInAcrossNewline(t *testing.T) {
	text := "#let x = a not\nin b"
	root := Parse(text)
	if root.FullText() != text {
		t.Fatalf("round trip broke:\n%s", root.Dump())
	}
	if got := root.Children()[0].Kind(); got != Embed {
		t.Errorf("first child = %v, want an embedded expression", got)
	}
}

func TestParseInvalidEncoding(t *testing.T) {
	text := "ok \xff bad"
	root := Parse(text)
	if !root.Erroneous() || root.FullText() != text {
		t.Fatalf("invalid input not covered by an error node: %s", root.Dump())
	}
	if _, err := ParseChecked(text); !errors.Is(err, ErrInvalidEncoding) {
		t.Errorf("ParseChecked error = %v, want %v", err, ErrInvalidEncoding)
	}
	if _, err := ParseChecked("fine"); err != nil {
		t.Errorf("ParseChecked(valid) = %v", err)
	}
}

func TestLinkedLeafAt(t *testing.T) {
	root := NewLinked(Parse("Hello *world*"))
	leaf := root.LeafAt(8)
	if leaf == nil || leaf.Text() != "world" {
		t.Fatalf("LeafAt(8) = %v", leaf)
	}
	if got := leaf.Range(); got != (Range{7, 12}) {
		t.Errorf("range = %v", got)
	}
	if leaf.Parent().Parent().Kind() != Strong {
		t.Errorf("grandparent = %v", leaf.Parent().Parent().Kind())
	}
}

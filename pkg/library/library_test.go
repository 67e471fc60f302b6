package library_test

import (
	"strings"
	"testing"

	"gotypeset/pkg/diag"
	"gotypeset/pkg/eval"
	"gotypeset/pkg/library"
	"gotypeset/pkg/model"
	"gotypeset/pkg/world"
)

func run(t *testing.T, text string, opts ...library.Option) (model.Content, diag.Diagnostics) {
	t.Helper()
	w, err := world.NewMemory("main.typ", map[string]string{"main.typ": text},
		world.WithLibrary(library.Build(opts...)))
	if err != nil {
		t.Fatal(err)
	}
	src, err := w.Source(w.Main())
	if err != nil {
		t.Fatal(err)
	}
	tracer := diag.NewTracer()
	mod, err := eval.Eval(w, eval.NewRoute(), tracer, src)
	if err != nil {
		t.Fatalf("eval %q: %v", text, err)
	}
	return mod.Content, tracer.Diagnostics()
}

func TestBuiltins(t *testing.T) {
	tests := []struct {
		text string
		want string
	}{
		{`#len("héllo")`, "5"},
		{`#len((1, 2, 3))`, "3"},
		{`#range(3).len()`, "3"},
		{`#range(1, 10, step: 3).sum()`, "12"},
		{`#str(1.5)`, "1.5"},
		{`#upper("abc")`, "ABC"},
		{`#lower[ABC]`, "abc"},
		{`#repr((1, "a"))`, `(1, "a")`},
		{`#type(2pt)`, "length"},
		{`#type(50%)`, "ratio"},
		{`#int("42")`, "42"},
		{`#calc.max(1, 7, 3)`, "7"},
		{`#calc.min(2.5, 1)`, "1"},
		{`#calc.pow(2, 10)`, "1024"},
		{`#calc.pow(1, 9223372036854775807)`, "1"},
		{`#calc.pow(-2, 63)`, "-9223372036854775808"},
		{`#calc.floor(2.7)`, "2"},
		{`#calc.round(2.346, digits: 2)`, "2.35"},
		{`#calc.rem(7, 3)`, "1"},
		{`#calc.abs(-4)`, "4"},
		{`#calc.sqrt(16)`, "4.0"},
		{`#rgb("#ff0000")`, `rgb("#ff0000")`},
		{`#rgb(0, 255, 0)`, `rgb("#00ff00")`},
		{`#strong[bold]`, "bold"},
		{`#raw("x := 1")`, "x := 1"},
	}
	for _, tt := range tests {
		t.Run(tt.text, func(t *testing.T) {
			content, ds := run(t, tt.text)
			if len(ds) != 0 {
				t.Fatalf("unexpected diagnostics: %v", ds)
			}
			if got := strings.TrimSpace(model.PlainText(content)); got != tt.want {
				t.Errorf("got %q, want %q", got, tt.want)
			}
		})
	}
}

func TestBuiltinErrors(t *testing.T) {
	tests := []struct {
		text string
		msg  string
	}{
		{`#assert(1 > 2, message: "math")`, "assertion failed: math"},
		{`#page(width: 10pt)`, "page can only be used in set rules"},
		{`#calc.rem(1, 0)`, "divisor must not be zero"},
		{`#text(weight: "heavy")[x]`, `unknown font weight "heavy"`},
		{`#len(1)`, "expected string, array or dictionary, found integer"},
		{`#calc.pow(2, 63)`, "value is too large"},
		{`#calc.abs(-9223372036854775807 - 1)`, "value is too large"},
		{`#set page(width: 20pt, height: 40pt, margin: 10pt)`, "page margin must be less than half the page size"},
	}
	for _, tt := range tests {
		t.Run(tt.text, func(t *testing.T) {
			_, ds := run(t, tt.text)
			if len(ds) != 1 || ds[0].Message != tt.msg {
				t.Errorf("diagnostics = %v, want %q", ds, tt.msg)
			}
		})
	}
}

func TestSetRules(t *testing.T) {
	content, ds := run(t, "#set page(width: 200pt, height: 100pt, margin: 10pt)\n#set text(size: 14pt, fill: rgb(\"#336699\"), weight: \"bold\")\nHi")
	if len(ds) != 0 {
		t.Fatalf("unexpected diagnostics: %v", ds)
	}
	page, ok := content.(*model.Styled)
	if !ok || !page.Style.IsPage() {
		t.Fatalf("content = %#v, want page style", content)
	}
	if *page.Style.PageWidth != 200 || *page.Style.PageHeight != 100 || *page.Style.PageMargin != 10 {
		t.Errorf("page style = %+v", page.Style)
	}
	seq, ok := page.Child.(*model.Sequence)
	if !ok {
		t.Fatalf("page child = %#v", page.Child)
	}
	var text *model.Styled
	for _, c := range seq.Children {
		if s, ok := c.(*model.Styled); ok {
			text = s
		}
	}
	if text == nil {
		t.Fatal("no text style")
	}
	chain := model.NewChain(model.Base()).Chain(text.Style)
	if chain.Size() != 14 || !chain.Bold() || chain.Fill() != (model.Color{R: 0x33, G: 0x66, B: 0x99, A: 255}) {
		t.Errorf("text style = %+v", text.Style)
	}
}

func TestLayoutFunctions(t *testing.T) {
	content, ds := run(t, "#heading(level: 2)[Title]#block(height: 50pt, fill: rgb(\"#eee\"))[Body]#v(1em)#pagebreak()")
	if len(ds) != 0 {
		t.Fatalf("unexpected diagnostics: %v", ds)
	}
	seq, ok := content.(*model.Sequence)
	if !ok || len(seq.Children) != 4 {
		t.Fatalf("content = %#v", content)
	}
	if h, ok := seq.Children[0].(*model.Heading); !ok || h.Level != 2 {
		t.Errorf("heading = %#v", seq.Children[0])
	}
	b, ok := seq.Children[1].(*model.Block)
	if !ok || b.Height == nil || b.Height.Pt != 50 || b.Width != nil || b.Fill == nil {
		t.Errorf("block = %#v", seq.Children[1])
	}
	if v, ok := seq.Children[2].(*model.VSpace); !ok || v.Amount.Em != 1 {
		t.Errorf("vspace = %#v", seq.Children[2])
	}
	if _, ok := seq.Children[3].(*model.Pagebreak); !ok {
		t.Errorf("pagebreak = %#v", seq.Children[3])
	}
}

func TestInputs(t *testing.T) {
	content, ds := run(t, `#sys.inputs.name`, library.WithInputs(map[string]eval.Value{"name": eval.Str("Ada")}))
	if len(ds) != 0 {
		t.Fatalf("unexpected diagnostics: %v", ds)
	}
	if got := model.PlainText(content); got != "Ada" {
		t.Errorf("got %q", got)
	}
}

func TestLibraryHash(t *testing.T) {
	a := library.Build()
	b := library.Build()
	c := library.Build(library.WithInputs(map[string]eval.Value{"x": eval.Int(1)}))
	size := model.Pt(20)
	d := library.Build(library.WithStyles(model.Style{Size: &size}))
	if a.Hash != b.Hash {
		t.Error("identical libraries hash differently")
	}
	if a.Hash == c.Hash || a.Hash == d.Hash {
		t.Error("library hash ignores inputs or styles")
	}
	if d.Styles.Size.Pt != 20 || d.Styles.Font == nil {
		t.Errorf("styles = %+v", d.Styles)
	}
}

func TestGlobalNames(t *testing.T) {
	lib := library.Build()
	for _, name := range []string{"text", "strong", "emph", "heading", "block", "pagebreak",
		"linebreak", "v", "rgb", "len", "range", "str", "upper", "lower", "repr", "type",
		"assert", "calc", "page", "raw", "sys"} {
		if _, ok := lib.Global.Get(name); !ok {
			t.Errorf("%s is not defined", name)
		}
	}
}

package main

import (
	"bytes"
	"strings"
	"testing"

	"gotypeset/pkg/compiler"
	"gotypeset/pkg/diag"
	"gotypeset/pkg/eval"
	"gotypeset/pkg/syntax"
	"gotypeset/pkg/world"
)

func TestDumpTokens(t *testing.T) {
	var buf bytes.Buffer
	dumpTokens(&buf, syntax.Parse("Hi *there*"))
	out := buf.String()
	for _, want := range []string{`"Hi"`, `"*"`, `"there"`} {
		if !strings.Contains(out, want) {
			t.Errorf("tokens missing %s:\n%s", want, out)
		}
	}
}

func TestDumpContentAndFrames(t *testing.T) {
	w, err := world.NewMemory("main.typ", map[string]string{
		"main.typ": "= Title\n- item\n#block(height: 20pt, fill: rgb(\"#ff0000\"))[Inside]",
	})
	if err != nil {
		t.Fatal(err)
	}
	src, err := w.Source(w.Main())
	if err != nil {
		t.Fatal(err)
	}
	mod, err := eval.Eval(w, eval.NewRoute(), diag.NewTracer(), src)
	if err != nil {
		t.Fatal(err)
	}
	var buf bytes.Buffer
	dumpContent(&buf, mod.Content, 0)
	content := buf.String()
	for _, want := range []string{"Heading level=1", "ListItem", "Block height=20pt fill=", `Text "Inside"`} {
		if !strings.Contains(content, want) {
			t.Errorf("content missing %q:\n%s", want, content)
		}
	}

	doc, err := compiler.Compile(w)
	if err != nil {
		t.Fatal(err)
	}
	buf.Reset()
	dumpFrames(&buf, doc)
	frames := buf.String()
	for _, want := range []string{"page 1", `"Title"`, "shape", "group"} {
		if !strings.Contains(frames, want) {
			t.Errorf("frames missing %q:\n%s", want, frames)
		}
	}
}

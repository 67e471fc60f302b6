package diag

import (
	"fmt"
	"io"
	"strings"
	"unicode/utf8"

	"gotypeset/pkg/syntax"
)

// Sources looks up the text a span points into.
type Sources interface {
	Source(id syntax.FileID) (*syntax.Source, error)
}

// Format renders d with its location and a caret snippet of the source
// line, in the form
//
//	error: unexpected closing bracket
//	  --> main.typ:3:5
//	   3 | a ] b
//	     |   ^
func Format(d Diagnostic, sources Sources) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "%s: %s\n", d.Severity, d.Message)
	if src := lookup(d.Span, sources); src != nil {
		snippet(&sb, src, d.Span.Range)
	}
	for _, h := range d.Hints {
		fmt.Fprintf(&sb, "  = hint: %s\n", h)
	}
	return sb.String()
}

// Print writes every diagnostic of ds to w.
func Print(w io.Writer, ds Diagnostics, sources Sources) {
	for _, d := range ds {
		fmt.Fprint(w, Format(d, sources))
	}
}

func lookup(span syntax.Span, sources Sources) *syntax.Source {
	if sources == nil || span.File == "" {
		return nil
	}
	src, err := sources.Source(span.File)
	if err != nil || span.Range.End > src.Len() {
		return nil
	}
	return src
}

func snippet(sb *strings.Builder, src *syntax.Source, rng syntax.Range) {
	line := src.ByteToLine(rng.Start)
	col := src.ByteToColumn(rng.Start)
	fmt.Fprintf(sb, "  --> %s\n", src.Location(rng.Start))

	text := src.LineText(line)
	fmt.Fprintf(sb, "%4d | %s\n", line+1, text)

	width := 1
	if src.ByteToLine(rng.End) == line {
		width = max(1, utf8.RuneCountInString(src.Text()[rng.Start:rng.End]))
	}
	fmt.Fprintf(sb, "     | %s%s\n", strings.Repeat(" ", col), strings.Repeat("^", width))
}

package syntax

import (
	"reflect"
	"testing"
)

func TestSourceLines(t *testing.T) {
	src := NewSource("main.typ", "ab\ncdé\n\nx")
	if src.LineCount() != 4 {
		t.Fatalf("LineCount = %d", src.LineCount())
	}
	tests := []struct {
		offset, line, column int
	}{
		{0, 0, 0},
		{2, 0, 2},
		{3, 1, 0},
		{7, 1, 3}, // after the two-byte é
		{8, 2, 0},
		{9, 3, 0},
		{10, 3, 1},
	}
	for _, tt := range tests {
		if got := src.ByteToLine(tt.offset); got != tt.line {
			t.Errorf("ByteToLine(%d) = %d, want %d", tt.offset, got, tt.line)
		}
		if got := src.ByteToColumn(tt.offset); got != tt.column {
			t.Errorf("ByteToColumn(%d) = %d, want %d", tt.offset, got, tt.column)
		}
		if got, ok := src.LineColumnToByte(tt.line, tt.column); !ok || got != tt.offset {
			t.Errorf("LineColumnToByte(%d, %d) = %d, %v, want %d", tt.line, tt.column, got, ok, tt.offset)
		}
	}
	if _, ok := src.LineColumnToByte(9, 0); ok {
		t.Errorf("LineColumnToByte accepted a missing line")
	}
	if got := src.LineText(1); got != "cdé" {
		t.Errorf("LineText(1) = %q", got)
	}
	if got := src.Location(4); got != "main.typ:2:2" {
		t.Errorf("Location(4) = %q", got)
	}
}

func TestSourceEditKeepsLineIndex(t *testing.T) {
	src := Detached("one\ntwo\nthree")
	edits := []struct {
		start, end int
		text       string
	}{
		{4, 7, "2\n2"},
		{0, 0, "zero\n"},
		{5, 12, ""},
		{len("zero\n"), len("zero\n"), "\n\n"},
	}
	for _, e := range edits {
		if _, err := src.Edit(e.start, e.end, e.text); err != nil {
			t.Fatalf("Edit(%d, %d, %q): %v", e.start, e.end, e.text, err)
		}
		if !reflect.DeepEqual(src.lines, lineStarts(src.Text())) {
			t.Fatalf("line index %v out of sync with %q", src.lines, src.Text())
		}
		if !src.Root().Equal(Parse(src.Text())) {
			t.Fatalf("tree out of sync with %q", src.Text())
		}
	}
}

func TestSourceEditRejectsBadRanges(t *testing.T) {
	src := Detached("héllo")
	if _, err := src.Edit(3, 1, "x"); err == nil {
		t.Errorf("inverted range accepted")
	}
	if _, err := src.Edit(0, 99, "x"); err == nil {
		t.Errorf("range past the end accepted")
	}
	if _, err := src.Edit(2, 3, "x"); err == nil {
		t.Errorf("range splitting é accepted")
	}
	if src.Text() != "héllo" {
		t.Errorf("failed edits changed the text to %q", src.Text())
	}
}

func TestSourceRange(t *testing.T) {
	src := Detached("Hello *world*")
	strong := src.Root().Children()[2]
	rng, ok := src.Range(strong)
	if !ok || rng != (Range{6, 13}) {
		t.Errorf("Range(strong) = %v, %v", rng, ok)
	}
	if _, ok := src.Range(NewLeaf(Text, "x")); ok {
		t.Errorf("foreign node was found")
	}
}

func TestFileID(t *testing.T) {
	tests := []struct {
		base, path string
		want       FileID
	}{
		{"main.typ", "lib.typ", "lib.typ"},
		{"chapters/one.typ", "../lib.typ", "lib.typ"},
		{"chapters/one.typ", "figs/a.typ", "chapters/figs/a.typ"},
		{"chapters/one.typ", "/root.typ", "root.typ"},
		{"a.typ", "../../escape.typ", "escape.typ"},
	}
	for _, tt := range tests {
		if got := FileID(tt.base).Join(tt.path); got != tt.want {
			t.Errorf("%q.Join(%q) = %q, want %q", tt.base, tt.path, got, tt.want)
		}
	}
	if NewFileID(`dir\file.typ`) != "dir/file.typ" {
		t.Errorf("backslashes not normalized")
	}
}

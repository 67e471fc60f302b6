package model

import (
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestJoinFlattens(t *testing.T) {
	got := Join(&Text{Text: "a"}, Join(&Space{}, &Text{Text: "b"}), nil)
	want := &Sequence{Children: []Content{&Text{Text: "a"}, &Space{}, &Text{Text: "b"}}}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("Join mismatch (-want +got):\n%s", diff)
	}
	if single := Join(&Text{Text: "x"}); single.(*Text).Text != "x" {
		t.Errorf("single child was wrapped: %#v", single)
	}
}

func TestPlainText(t *testing.T) {
	c := Join(&Text{Text: "Hello"}, &Space{}, Strong(&Text{Text: "world"}), &Linebreak{}, &Raw{Text: "x"})
	if got := PlainText(c); got != "Hello world\nx" {
		t.Errorf("PlainText = %q", got)
	}
}

func TestStyleChain(t *testing.T) {
	base := NewChain(Base())
	if base.Font() != "Go" || base.Size() != 11 || base.Bold() {
		t.Fatalf("base = %s %v %v", base.Font(), base.Size(), base.Bold())
	}

	font := "Go Mono"
	size := Em(2)
	child := base.Chain(Style{Font: &font}).Chain(Strong(nil).(*Styled).Style).Chain(Style{Size: &size})
	if child.Font() != "Go Mono" {
		t.Errorf("font not inherited: %s", child.Font())
	}
	if !child.Bold() || child.Italic() {
		t.Errorf("bold %v italic %v", child.Bold(), child.Italic())
	}
	if child.Size() != 22 {
		t.Errorf("em size resolved to %v, want 22", child.Size())
	}
	leading := 0.65
	if child.Leading() != leading*22 {
		t.Errorf("leading = %v", child.Leading())
	}

	// The innermost setting wins.
	other := "Go Smallcaps"
	if got := child.Chain(Style{Font: &other}).Font(); got != other {
		t.Errorf("override lost: %s", got)
	}
	if w, h, m := child.Page(); w != 595.28 || h != 841.89 || m != 70.87 {
		t.Errorf("page = %v x %v, margin %v", w, h, m)
	}
}

func TestHashDistinguishesContent(t *testing.T) {
	a := Join(&Text{Text: "a"}, Strong(&Text{Text: "b"}))
	b := Join(&Text{Text: "a"}, Emph(&Text{Text: "b"}))
	if Hash(a) == Hash(b) {
		t.Errorf("strong and emph hash equally")
	}
	if Hash(a) != Hash(Join(&Text{Text: "a"}, Strong(&Text{Text: "b"}))) {
		t.Errorf("equal content hashes differently")
	}
}

func TestParseHex(t *testing.T) {
	tests := []struct {
		in   string
		want Color
	}{
		{"#fff", White},
		{"#000000", Black},
		{"#11223344", Color{0x11, 0x22, 0x33, 0x44}},
	}
	for _, tt := range tests {
		got, err := ParseHex(tt.in)
		if err != nil || got != tt.want {
			t.Errorf("ParseHex(%q) = %v, %v", tt.in, got, err)
		}
	}
	if _, err := ParseHex("#12"); err == nil {
		t.Errorf("short color accepted")
	}
	if Length.String(Pt(2).Add(Em(1.5))) != "2pt + 1.5em" {
		t.Errorf("length string = %s", Pt(2).Add(Em(1.5)))
	}
}

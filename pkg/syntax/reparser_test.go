package syntax

import (
	"math/rand"
	"strings"
	"testing"
	"unicode/utf8"
)

func checkReparse(t *testing.T, old string, start, end int, replacement string) {
	t.Helper()
	text := old[:start] + replacement + old[end:]
	root, rng := Reparse(Parse(old), text, Range{start, end}, len(replacement))
	want := Parse(text)
	if !root.Equal(want) {
		t.Fatalf("reparse of %q at %d..%d with %q diverged\n got:\n%s\nwant:\n%s",
			old, start, end, replacement, root.Dump(), want.Dump())
	}
	if rng.Start < 0 || rng.End > len(text) || rng.Start > rng.End {
		t.Fatalf("reparse of %q at %d..%d with %q reported range %v", old, start, end, replacement, rng)
	}
	if start+len(replacement) > rng.End || start < rng.Start {
		t.Fatalf("reparsed range %v does not cover the edit %d..%d", rng, start, start+len(replacement))
	}
}

func TestReparseEquivalence(t *testing.T) {
	replacements := []string{"", "x", " ", "\n", "*", "_", "#", "[", "]", "=", "- ", "//", "\"", "{", "}", "(", "`", "ü"}
	for _, old := range corpus {
		for start := 0; start <= len(old); start++ {
			if start < len(old) && !utf8.RuneStart(old[start]) {
				continue
			}
			for _, n := range []int{0, 1, 2} {
				end := start
				for i := 0; i < n && end < len(old); i++ {
					_, size := utf8.DecodeRuneInString(old[end:])
					end += size
				}
				for _, repl := range replacements {
					checkReparse(t, old, start, end, repl)
				}
			}
		}
	}
}

// fragments are the pieces random documents and edits are made of.
var fragments = []string{
	"a", "word", " ", "\n", "\n\n", "*", "_", "/", "-", "- ", "= ", "\\",
	"#", "#x", "#f", "#import", "#if", "#let x = ", "let", "in", "not", "else",
	"(", ")", "[", "]", "{", "}", "\"", ",", ":", ";", ".", "1", "+", "=>",
	"//", "/*", "*/", "`",
}

func randomText(rng *rand.Rand, n int) string {
	var sb strings.Builder
	for i := 0; i < n; i++ {
		sb.WriteString(fragments[rng.Intn(len(fragments))])
	}
	return sb.String()
}

func TestReparseRandomEdits(t *testing.T) {
	for seed := int64(1); seed <= 4; seed++ {
		rng := rand.New(rand.NewSource(seed))
		for i := 0; i < 2500; i++ {
			old := randomText(rng, 1+rng.Intn(10))
			start := rng.Intn(len(old) + 1)
			end := start + rng.Intn(len(old)-start+1)
			checkReparse(t, old, start, end, randomText(rng, rng.Intn(3)))
		}
	}
}

func TestReparseAfterErroneousEmbed(t *testing.T) {
	checkReparse(t, "\\b#import*/{", 10, 11, "- ")
	checkReparse(t, ", a\n\n#if*/ #", 9, 9, "\n")
	checkReparse(t, "#let x = a not b", 15, 16, "in b")
}

func TestReparseDeepNesting(t *testing.T) {
	old := strings.Repeat("#[", MaxDepth/2-2) + "x"
	checkReparse(t, old, len(old)-1, len(old), "#[#[#[#[y")
	checkReparse(t, old, len(old)-1, len(old), "z")
}

func TestReparseSharesSiblings(t *testing.T) {
	old := "The _quick_ fox"
	oldRoot := Parse(old)
	text := "The _slow_ fox"
	root, rng := Reparse(oldRoot, text, Range{5, 10}, len("slow"))

	if root.FullText() != text {
		t.Fatalf("text = %q", root.FullText())
	}
	if rng != (Range{5, 9}) {
		t.Errorf("reparsed range = %v, want 5..9", rng)
	}

	oldKids, newKids := oldRoot.Children(), root.Children()
	for _, i := range []int{0, 1, 3, 4} {
		if oldKids[i] != newKids[i] {
			t.Errorf("sibling %d (%v) was not reused", i, newKids[i])
		}
	}
	if oldKids[2] == newKids[2] {
		t.Fatalf("emphasis node was not rebuilt")
	}
	oldEmph, newEmph := oldKids[2].Children(), newKids[2].Children()
	if oldEmph[0] != newEmph[0] || oldEmph[2] != newEmph[2] {
		t.Errorf("emphasis delimiters were not reused")
	}
	if newEmph[1].FullText() != "slow" {
		t.Errorf("emphasis body = %q", newEmph[1].FullText())
	}
}

func TestReparseCodeBlock(t *testing.T) {
	old := "Intro\n\n#{ let a = 1; a }\n\nOutro"
	oldRoot := Parse(old)
	start := len("Intro\n\n#{ let a = ")
	text := old[:start] + "42" + old[start+1:]
	root, _ := Reparse(oldRoot, text, Range{start, start + 1}, 2)

	if !root.Equal(Parse(text)) {
		t.Fatalf("diverged:\n%s", root.Dump())
	}
	if root.Children()[0] != oldRoot.Children()[0] {
		t.Errorf("leading text was not reused")
	}
	last := len(root.Children()) - 1
	if root.Children()[last] != oldRoot.Children()[last] {
		t.Errorf("trailing text was not reused")
	}
}

func TestReparseFallsBack(t *testing.T) {
	// Closing the emphasis changes the structure of everything after it.
	old := "a _b c d e"
	text := "a _b_ c d e"
	root, rng := Reparse(Parse(old), text, Range{4, 4}, 1)
	if !root.Equal(Parse(text)) {
		t.Fatalf("diverged:\n%s", root.Dump())
	}
	if rng.End != len(text) {
		t.Errorf("range = %v, expected the reparse to run to the end", rng)
	}
}

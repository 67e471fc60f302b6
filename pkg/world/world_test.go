package world

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"gotypeset/pkg/diag"
	"gotypeset/pkg/syntax"
)

func TestMemoryResolve(t *testing.T) {
	w, err := NewMemory("doc/main.typ", map[string]string{"doc/main.typ": "Hi"})
	if err != nil {
		t.Fatal(err)
	}
	tests := []struct {
		from, path string
		want       syntax.FileID
		denied     bool
	}{
		{"doc/main.typ", "util.typ", "doc/util.typ", false},
		{"doc/main.typ", "../lib/x.typ", "lib/x.typ", false},
		{"doc/main.typ", "/top.typ", "top.typ", false},
		{"doc/main.typ", "../../etc/passwd", "", true},
	}
	for _, tt := range tests {
		got, err := w.Resolve(syntax.FileID(tt.from), tt.path)
		if tt.denied {
			if !errors.Is(err, diag.ErrAccessDenied) {
				t.Errorf("Resolve(%q) error = %v, want access denied", tt.path, err)
			}
			continue
		}
		if err != nil || got != tt.want {
			t.Errorf("Resolve(%q) = %q, %v, want %q", tt.path, got, err, tt.want)
		}
	}
}

func TestMemorySource(t *testing.T) {
	w, err := NewMemory("main.typ", map[string]string{"main.typ": "Hello *world*"})
	if err != nil {
		t.Fatal(err)
	}
	a, err := w.Source("main.typ")
	if err != nil {
		t.Fatal(err)
	}
	b, _ := w.Source("main.typ")
	if a != b {
		t.Error("unchanged source was parsed twice")
	}
	if _, err := w.Source("missing.typ"); !errors.Is(err, diag.ErrNotFound) {
		t.Errorf("missing source: %v", err)
	}

	if err := w.Write("main.typ", "Bye"); err != nil {
		t.Fatal(err)
	}
	c, _ := w.Source("main.typ")
	if c.Text() != "Bye" {
		t.Errorf("source after write = %q", c.Text())
	}
}

func TestMemoryInvalidEncoding(t *testing.T) {
	w, err := NewMemory("main.typ", map[string]string{"main.typ": "a\xc3("})
	if err != nil {
		t.Fatal(err)
	}
	if _, err := w.Source("main.typ"); !errors.Is(err, diag.ErrInvalidEncoding) {
		t.Errorf("err = %v, want invalid encoding", err)
	}
}

func TestMemoryEdit(t *testing.T) {
	text := "The _quick_ fox"
	w, _ := NewMemory("main.typ", map[string]string{"main.typ": text})
	if _, err := w.Edit("main.typ", 4, 11, "*slow*"); err != nil {
		t.Fatal(err)
	}
	src, _ := w.Source("main.typ")
	if src.Text() != "The *slow* fox" {
		t.Errorf("text = %q", src.Text())
	}
	data, _ := w.File("main.typ")
	if string(data) != src.Text() {
		t.Errorf("disk = %q", data)
	}
	fresh := syntax.NewSource("main.typ", src.Text())
	if !src.Root().Equal(fresh.Root()) {
		t.Error("edited tree differs from a fresh parse")
	}
}

func TestMemoryFonts(t *testing.T) {
	w, _ := NewMemory("main.typ", nil)
	if w.Book().Len() == 0 || w.Font(0) == nil {
		t.Fatal("embedded fonts missing")
	}
	if w.Font(-1) != nil || w.Font(w.Book().Len()) != nil {
		t.Error("out of range font index returned a font")
	}
	if !w.Book().Contains("Go") {
		t.Error("default family missing")
	}
}

func TestSystemRefresh(t *testing.T) {
	root := t.TempDir()
	if err := os.WriteFile(filepath.Join(root, "main.typ"), []byte("One"), 0644); err != nil {
		t.Fatal(err)
	}
	w, err := NewSystem(root, "main.typ")
	if err != nil {
		t.Fatal(err)
	}
	src, err := w.Source(w.Main())
	if err != nil || src.Text() != "One" {
		t.Fatalf("Source() = %v, %v", src, err)
	}

	if err := os.WriteFile(filepath.Join(root, "main.typ"), []byte("Two!"), 0644); err != nil {
		t.Fatal(err)
	}
	changed, err := w.Refresh()
	if err != nil {
		t.Fatal(err)
	}
	if len(changed) != 1 || changed[0] != "main.typ" {
		t.Fatalf("changed = %v", changed)
	}
	src, _ = w.Source(w.Main())
	if src.Text() != "Two!" {
		t.Errorf("text after refresh = %q", src.Text())
	}
}

func TestSystemWatch(t *testing.T) {
	root := t.TempDir()
	if err := os.WriteFile(filepath.Join(root, "main.typ"), []byte("One"), 0644); err != nil {
		t.Fatal(err)
	}
	w, err := NewSystem(root, "main.typ")
	if err != nil {
		t.Fatal(err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	changes := make(chan []string, 1)
	done := make(chan error, 1)
	go func() {
		done <- w.Watch(ctx, 10*time.Millisecond, func(changed []string) {
			select {
			case changes <- changed:
			default:
			}
		})
	}()

	if err := os.WriteFile(filepath.Join(root, "lib.typ"), []byte("#let x = 1"), 0644); err != nil {
		t.Fatal(err)
	}
	select {
	case changed := <-changes:
		if len(changed) != 1 || changed[0] != "lib.typ" {
			t.Errorf("changed = %v", changed)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("no change reported")
	}

	cancel()
	if err := <-done; !errors.Is(err, context.Canceled) {
		t.Errorf("Watch() = %v, want context.Canceled", err)
	}
}

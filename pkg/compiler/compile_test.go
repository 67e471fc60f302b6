package compiler

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/require"

	"gotypeset/pkg/diag"
	"gotypeset/pkg/font"
	"gotypeset/pkg/layout"
	"gotypeset/pkg/world"
)

func memoryWorld(t *testing.T, files map[string]string) *world.Memory {
	t.Helper()
	w, err := world.NewMemory("main.typ", files)
	require.NoError(t, err)
	return w
}

func TestCompileHelloWorld(t *testing.T) {
	w := memoryWorld(t, map[string]string{"main.typ": "Hello *world*"})
	doc, err := Compile(w)
	require.NoError(t, err)
	require.Empty(t, doc.Diagnostics)
	require.Len(t, doc.Pages, 1)
	require.Equal(t, "Hello world", doc.Pages[0].Text())

	var fonts []int
	doc.Pages[0].Walk(func(_ layout.Point, item layout.Item) {
		if ti, ok := item.(*layout.TextItem); ok {
			fonts = append(fonts, ti.Font)
		}
	})
	bold, _ := w.Book().Select(font.DefaultFamily, font.Variant{Bold: true})
	require.Len(t, fonts, 2)
	require.Equal(t, bold, fonts[1])
}

func TestCompileAfterEdit(t *testing.T) {
	w := memoryWorld(t, map[string]string{"main.typ": "The _quick_ fox"})
	c := New()
	doc, err := c.Compile(context.Background(), w)
	require.NoError(t, err)
	require.Equal(t, "The quick fox", doc.Pages[0].Text())

	_, err = w.Edit("main.typ", 4, 11, "*slow*")
	require.NoError(t, err)
	doc, err = c.Compile(context.Background(), w)
	require.NoError(t, err)
	require.Empty(t, doc.Diagnostics)
	require.Equal(t, "The slow fox", doc.Pages[0].Text())
}

func TestCompileMissingImport(t *testing.T) {
	text := "#import \"missing.typ\"\nStill here."
	w := memoryWorld(t, map[string]string{"main.typ": text})
	doc, err := Compile(w)
	require.NoError(t, err)

	d, ok := doc.Diagnostics.First(diag.ResourceNotFound)
	require.True(t, ok, "diagnostics: %v", doc.Diagnostics)
	require.Equal(t, `import "missing.typ"`, text[d.Span.Range.Start:d.Span.Range.End])
	require.Contains(t, doc.Pages[0].Text(), "Still here.")
}

func TestCompileImportUnicodeName(t *testing.T) {
	w := memoryWorld(t, map[string]string{"main.typ": "#import \"notes/grüße und so.typ\": greeting\n#greeting"})
	require.NoError(t, w.Write("notes/grüße und so.typ", "#let greeting = [Hallo]"))
	doc, err := Compile(w)
	require.NoError(t, err)
	require.Empty(t, doc.Diagnostics)
	require.Contains(t, doc.Pages[0].Text(), "Hallo")
}

func TestCompileCyclicImport(t *testing.T) {
	w := memoryWorld(t, map[string]string{
		"main.typ": "#import \"b.typ\"\nA",
		"b.typ":    "#import \"main.typ\"\nB",
	})
	doc, err := Compile(w)
	require.Nil(t, doc)
	var ds diag.Diagnostics
	require.True(t, errors.As(err, &ds), "err = %v", err)
	require.True(t, ds.Has(diag.CyclicEvaluation))
}

func TestCompileTallBlock(t *testing.T) {
	w := memoryWorld(t, map[string]string{
		"main.typ": "#set page(width: 200pt, height: 200pt, margin: 10pt)\n#block(height: 1000pt)",
	})
	doc, err := Compile(w)
	require.NoError(t, err)
	require.Len(t, doc.Pages, 1)
	frames := doc.Pages[0].Frames
	require.Len(t, frames, 1)
	require.True(t, frames[0].Overflow)
	require.Equal(t, 10.0, frames[0].Offset.Y)
	d, ok := doc.Diagnostics.First(diag.Overflow)
	require.True(t, ok)
	require.Equal(t, diag.Warning, d.Severity)
}

func TestCompileMissingMain(t *testing.T) {
	w := memoryWorld(t, nil)
	_, err := Compile(w)
	var ds diag.Diagnostics
	require.True(t, errors.As(err, &ds))
	require.True(t, ds.Has(diag.ResourceNotFound))
}

type fontless struct{ *world.Memory }

func (fontless) Book() *font.Book { return font.NewBook(nil) }

func TestCompileWithoutFonts(t *testing.T) {
	w := memoryWorld(t, map[string]string{"main.typ": "A #unknown B"})
	doc, err := Compile(fontless{w})
	require.Nil(t, doc)
	var ds diag.Diagnostics
	require.True(t, errors.As(err, &ds), "err = %v", err)
	require.True(t, ds.Has(diag.EvalError), "diagnostics: %v", ds)
	d, ok := ds.First(diag.ResourceNotFound)
	require.True(t, ok, "diagnostics: %v", ds)
	require.Equal(t, diag.Error, d.Severity)
	require.Equal(t, layout.ErrNoFonts.Error(), d.Message)
}

func TestCompileInvalidEncoding(t *testing.T) {
	w := memoryWorld(t, map[string]string{"main.typ": "bad \xff byte"})
	_, err := Compile(w)
	var ds diag.Diagnostics
	require.True(t, errors.As(err, &ds))
	require.True(t, ds.Has(diag.InvalidEncoding))
}

func TestCompileKeepsNonFatalErrors(t *testing.T) {
	w := memoryWorld(t, map[string]string{"main.typ": "A #unknown B ]"})
	doc, err := Compile(w)
	require.NoError(t, err)
	require.True(t, doc.Diagnostics.Has(diag.EvalError), "diagnostics: %v", doc.Diagnostics)
	require.True(t, doc.Diagnostics.Has(diag.SyntaxError), "diagnostics: %v", doc.Diagnostics)
	require.Contains(t, doc.Pages[0].Text(), "A")
}

func TestCompileDeterministic(t *testing.T) {
	files := map[string]string{
		"main.typ": "= Title\n#import \"lib.typ\": greet\n#greet(\"you\")\n\n- one\n- two\n\n#for i in range(30) [word #i ]",
		"lib.typ":  "#let greet(name) = [Hello, #name!]",
	}
	a, err := Compile(memoryWorld(t, files))
	require.NoError(t, err)
	b, err := Compile(memoryWorld(t, files))
	require.NoError(t, err)
	if diff := cmp.Diff(a, b); diff != "" {
		t.Errorf("documents differ (-first +second):\n%s", diff)
	}
}

func TestRecompileReusesCache(t *testing.T) {
	w := memoryWorld(t, map[string]string{
		"main.typ": "#import \"lib.typ\": x\nFirst paragraph.\n\nSecond #x.",
		"lib.typ":  "#let x = 42",
	})
	c := New()
	_, err := c.Compile(context.Background(), w)
	require.NoError(t, err)
	imports := c.Cache().Computations("eval.import")
	pars := c.Cache().Computations("layout.par")
	require.Equal(t, uint64(1), imports)

	_, err = c.Compile(context.Background(), w)
	require.NoError(t, err)
	require.Equal(t, imports, c.Cache().Computations("eval.import"))
	require.Equal(t, pars, c.Cache().Computations("layout.par"))

	require.NoError(t, w.Write("lib.typ", "#let x = 43"))
	doc, err := c.Compile(context.Background(), w)
	require.NoError(t, err)
	require.Equal(t, imports+1, c.Cache().Computations("eval.import"))
	require.True(t, strings.Contains(doc.Pages[0].Text(), "43"))
}

func TestCompileConcurrently(t *testing.T) {
	w := memoryWorld(t, map[string]string{"main.typ": strings.Repeat("Some words to lay out. ", 200)})
	c := New()
	want, err := c.Compile(context.Background(), w)
	require.NoError(t, err)

	var wg sync.WaitGroup
	docs := make([]*layout.Document, 4)
	errs := make([]error, 4)
	for i := range docs {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			docs[i], errs[i] = c.Compile(context.Background(), w)
		}(i)
	}
	wg.Wait()
	for i := range docs {
		require.NoError(t, errs[i])
		require.Equal(t, len(want.Pages), len(docs[i].Pages))
	}
}

func TestCompileCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := New().Compile(ctx, memoryWorld(t, map[string]string{"main.typ": "x"}))
	require.ErrorIs(t, err, context.Canceled)
}

func BenchmarkCompile(b *testing.B) {
	w, err := world.NewMemory("main.typ", map[string]string{
		"main.typ": "= Bench\n" + strings.Repeat("#let n = 3\nA paragraph with *strong* and _emph_ text #n.\n\n", 50),
	})
	if err != nil {
		b.Fatal(err)
	}
	b.Run("cold", func(b *testing.B) {
		for i := 0; i < b.N; i++ {
			if _, err := New().Compile(context.Background(), w); err != nil {
				b.Fatal(err)
			}
		}
	})
	b.Run("warm", func(b *testing.B) {
		c := New()
		for i := 0; i < b.N; i++ {
			if _, err := c.Compile(context.Background(), w); err != nil {
				b.Fatal(err)
			}
		}
	})
}

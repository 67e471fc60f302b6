package main

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"gotypeset/pkg/compiler"
	"gotypeset/pkg/world"
)

func TestSessionRebuild(t *testing.T) {
	w, err := world.NewMemory("main.typ", map[string]string{
		"main.typ": "#set page(width: 100pt, height: 80pt, margin: 10pt)\nOne\n#pagebreak()\nTwo",
	})
	require.NoError(t, err)
	s := newSession(w, compiler.New(), 2)

	_, ok := s.take(0)
	require.False(t, ok)

	snap := s.rebuild(context.Background())
	require.NoError(t, snap.err)
	require.Len(t, snap.pages, 2)
	require.Len(t, snap.thumbs, 2)
	require.Equal(t, 200, snap.pages[0].Bounds().Dx())
	require.Equal(t, 160, snap.pages[0].Bounds().Dy())
	require.Equal(t, thumbWidth, snap.thumbs[0].Bounds().Dx())

	got, ok := s.take(0)
	require.True(t, ok)
	require.Equal(t, 1, got.revision)
	_, ok = s.take(got.revision)
	require.False(t, ok)
}

func TestSessionKeepsFailure(t *testing.T) {
	w, err := world.NewMemory("main.typ", map[string]string{
		"main.typ": "#import \"b.typ\"",
		"b.typ":    "#import \"main.typ\"",
	})
	require.NoError(t, err)
	s := newSession(w, compiler.New(), 1)
	snap := s.rebuild(context.Background())
	require.Error(t, snap.err)
	require.Empty(t, snap.pages)
	require.Equal(t, "cyclic", firstLine("cyclic\nimport"))
}

func TestPager(t *testing.T) {
	var p pager
	p.setCount(3)
	p.move(1)
	p.move(5)
	require.Equal(t, 2, p.current)
	p.move(-1)
	require.Equal(t, 1, p.current)
	p.first()
	p.move(-1)
	require.Equal(t, 0, p.current)
	p.last()
	require.Equal(t, 2, p.current)

	p.setCount(1)
	require.Equal(t, 0, p.current)
	p.setCount(0)
	require.Equal(t, 0, p.current)
}

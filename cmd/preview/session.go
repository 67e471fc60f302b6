package main

import (
	"context"
	"image"
	"image/color"
	"sync"
	"time"

	"gotypeset/pkg/compiler"
	"gotypeset/pkg/ctxlog"
	"gotypeset/pkg/diag"
	"gotypeset/pkg/eval"
	"gotypeset/pkg/render"
)

const thumbWidth = 160

// snapshot is the outcome of one compilation. A failed compilation keeps
// no pages; the game then keeps showing the previous ones.
type snapshot struct {
	revision    int
	pages       []*image.RGBA
	thumbs      []*image.RGBA
	diagnostics diag.Diagnostics
	err         error
	took        time.Duration
}

// session compiles and rasterizes the document off the game loop.
type session struct {
	world    eval.World
	compiler *compiler.Compiler
	renderer *render.Renderer
	scale    float64

	build sync.Mutex

	mu       sync.Mutex
	revision int
	latest   *snapshot
}

func newSession(w eval.World, c *compiler.Compiler, scale float64) *session {
	return &session{world: w, compiler: c, renderer: render.New(w), scale: scale}
}

// rebuild compiles the document, renders every page and publishes the
// result to the game.
func (s *session) rebuild(ctx context.Context) *snapshot {
	s.build.Lock()
	defer s.build.Unlock()

	start := time.Now()
	snap := &snapshot{}
	doc, err := s.compiler.Compile(ctx, s.world)
	if err != nil {
		snap.err = err
	} else {
		snap.diagnostics = doc.Diagnostics
		for _, page := range doc.Pages {
			img := s.renderer.Page(page, s.scale, color.White)
			snap.pages = append(snap.pages, img)
			snap.thumbs = append(snap.thumbs, render.Thumbnail(img, thumbWidth))
		}
	}
	snap.took = time.Since(start)

	s.mu.Lock()
	s.revision++
	snap.revision = s.revision
	s.latest = snap
	s.mu.Unlock()

	ctxlog.FromContext(ctx).Debug("rebuilt", "revision", snap.revision, "pages", len(snap.pages), "duration", snap.took, "error", err)
	return snap
}

// take returns the latest snapshot if it is newer than revision.
func (s *session) take(revision int) (*snapshot, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.latest == nil || s.latest.revision <= revision {
		return nil, false
	}
	return s.latest, true
}

// pager tracks the page on screen.
type pager struct {
	current int
	count   int
}

func (p *pager) setCount(n int) {
	p.count = n
	p.move(0)
}

func (p *pager) move(delta int) {
	p.current += delta
	if p.current >= p.count {
		p.current = p.count - 1
	}
	if p.current < 0 {
		p.current = 0
	}
}

func (p *pager) first() { p.current = 0 }
func (p *pager) last()  { p.move(p.count) }

package main

import (
	"fmt"
	"image/color"
	"strings"

	"github.com/hajimehoshi/ebiten/v2"
	"github.com/hajimehoshi/ebiten/v2/ebitenutil"
	"github.com/hajimehoshi/ebiten/v2/inpututil"

	"gotypeset/pkg/grid"
)

var backdrop = color.RGBA{0x3c, 0x3c, 0x40, 0xff}

type Game struct {
	session  *session
	revision int

	pages    []*ebiten.Image // reused until the next successful compilation
	thumbs   []*ebiten.Image
	pager    pager
	overview bool
	grid     grid.Layout

	warnings int
	failure  string
}

func newGame(s *session, cols int) *Game {
	return &Game{session: s, grid: grid.Layout{Cols: cols, CellW: thumbWidth, Gap: 20}}
}

func (g *Game) load(snap *snapshot) {
	g.revision = snap.revision
	if snap.err != nil {
		g.failure = firstLine(snap.err.Error())
		return
	}
	g.failure = ""
	g.warnings = len(snap.diagnostics.Warnings())
	for _, img := range g.pages {
		img.Deallocate()
	}
	for _, img := range g.thumbs {
		img.Deallocate()
	}
	g.pages, g.thumbs = g.pages[:0], g.thumbs[:0]
	g.grid.CellH = 0
	for i := range snap.pages {
		g.pages = append(g.pages, ebiten.NewImageFromImage(snap.pages[i]))
		g.thumbs = append(g.thumbs, ebiten.NewImageFromImage(snap.thumbs[i]))
		g.grid.CellH = max(g.grid.CellH, snap.thumbs[i].Bounds().Dy())
	}
	g.pager.setCount(len(g.pages))
}

func (g *Game) Update() error {
	if snap, ok := g.session.take(g.revision); ok {
		g.load(snap)
	}

	switch {
	case inpututil.IsKeyJustPressed(ebiten.KeyEscape), inpututil.IsKeyJustPressed(ebiten.KeyQ):
		return ebiten.Termination
	case inpututil.IsKeyJustPressed(ebiten.KeyTab), inpututil.IsKeyJustPressed(ebiten.KeyG):
		g.overview = !g.overview
	case inpututil.IsKeyJustPressed(ebiten.KeyRight), inpututil.IsKeyJustPressed(ebiten.KeyPageDown), inpututil.IsKeyJustPressed(ebiten.KeySpace):
		g.pager.move(1)
	case inpututil.IsKeyJustPressed(ebiten.KeyLeft), inpututil.IsKeyJustPressed(ebiten.KeyPageUp):
		g.pager.move(-1)
	case inpututil.IsKeyJustPressed(ebiten.KeyHome):
		g.pager.first()
	case inpututil.IsKeyJustPressed(ebiten.KeyEnd):
		g.pager.last()
	}

	if g.overview && inpututil.IsMouseButtonJustPressed(ebiten.MouseButtonLeft) {
		x, y := ebiten.CursorPosition()
		if i := g.grid.At(x, y, len(g.thumbs)); i >= 0 {
			g.pager.current = i
			g.overview = false
		}
	}
	return nil
}

func (g *Game) Draw(screen *ebiten.Image) {
	screen.Fill(backdrop)
	if g.overview {
		g.drawOverview(screen)
	} else if len(g.pages) > 0 {
		g.drawPage(screen, g.pages[g.pager.current])
	}
	ebitenutil.DebugPrintAt(screen, g.status(), 4, 4)
}

// drawPage fits the page into the window, centered.
func (g *Game) drawPage(screen, page *ebiten.Image) {
	sw, sh := screen.Bounds().Dx(), screen.Bounds().Dy()
	pw, ph := page.Bounds().Dx(), page.Bounds().Dy()
	k := min(float64(sw-40)/float64(pw), float64(sh-40)/float64(ph))
	if k <= 0 {
		return
	}
	op := &ebiten.DrawImageOptions{}
	op.Filter = ebiten.FilterLinear
	op.GeoM.Scale(k, k)
	op.GeoM.Translate((float64(sw)-k*float64(pw))/2, (float64(sh)-k*float64(ph))/2)
	screen.DrawImage(page, op)
}

func (g *Game) drawOverview(screen *ebiten.Image) {
	for i, th := range g.thumbs {
		x, y := g.grid.Origin(i)
		op := &ebiten.DrawImageOptions{}
		op.GeoM.Translate(float64(x), float64(y))
		screen.DrawImage(th, op)
	}
}

func (g *Game) status() string {
	if len(g.pages) == 0 && g.failure == "" {
		return "compiling..."
	}
	s := fmt.Sprintf("page %d/%d  warnings %d  rev %d", g.pager.current+1, g.pager.count, g.warnings, g.revision)
	if g.failure != "" {
		s += "\nerror: " + g.failure
	}
	return s
}

func (g *Game) Layout(outsideWidth, outsideHeight int) (int, int) {
	return outsideWidth, outsideHeight
}

func firstLine(s string) string {
	line, _, _ := strings.Cut(s, "\n")
	return line
}

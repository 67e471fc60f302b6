// Package render rasterizes typeset pages.
package render

import (
	"image"
	"image/color"
	"image/png"
	"io"
	"math"
	"sync"

	"golang.org/x/image/draw"
	xfont "golang.org/x/image/font"
	"golang.org/x/image/font/opentype"
	"golang.org/x/image/math/fixed"

	"gotypeset/pkg/layout"
	"gotypeset/pkg/model"
)

type faceKey struct {
	font int
	size float64
}

// Renderer draws pages with the fonts of a world. Faces are created on
// first use and kept. It is safe for concurrent use.
type Renderer struct {
	world layout.World

	mu    sync.Mutex
	faces map[faceKey]xfont.Face
}

// New creates a renderer for the fonts of world.
func New(world layout.World) *Renderer {
	return &Renderer{world: world, faces: make(map[faceKey]xfont.Face)}
}

// Page renders page with world's fonts. See Renderer.Page.
func Page(world layout.World, page *layout.Page, scale float64, background color.Color) *image.RGBA {
	return New(world).Page(page, scale, background)
}

// Page rasterizes page at scale pixels per point over background.
func (r *Renderer) Page(page *layout.Page, scale float64, background color.Color) *image.RGBA {
	if scale <= 0 {
		scale = 1
	}
	w := int(math.Ceil(page.Width * scale))
	h := int(math.Ceil(page.Height * scale))
	img := image.NewRGBA(image.Rect(0, 0, max(w, 1), max(h, 1)))
	draw.Draw(img, img.Bounds(), image.NewUniform(background), image.Point{}, draw.Src)

	page.Walk(func(pos layout.Point, item layout.Item) {
		switch it := item.(type) {
		case *layout.ShapeItem:
			rect := image.Rect(
				px(pos.X, scale), px(pos.Y, scale),
				px(pos.X+it.Size.W, scale), px(pos.Y+it.Size.H, scale),
			)
			draw.Draw(img, rect, image.NewUniform(rgba(it.Fill)), image.Point{}, draw.Over)
		case *layout.TextItem:
			r.text(img, pos, it, scale)
		}
	})
	return img
}

func (r *Renderer) text(img *image.RGBA, pos layout.Point, it *layout.TextItem, scale float64) {
	face := r.face(it.Font, it.Size*scale)
	if face == nil {
		return
	}
	src := image.NewUniform(rgba(it.Fill))
	x := pos.X
	for _, g := range it.Glyphs {
		dot := fixed.Point26_6{X: fixed26(x * scale), Y: fixed26(pos.Y * scale)}
		if dr, mask, maskp, _, ok := face.Glyph(dot, g.Rune); ok {
			draw.DrawMask(img, dr, src, image.Point{}, mask, maskp, draw.Over)
		}
		x += g.Advance
	}
}

func (r *Renderer) face(index int, size float64) xfont.Face {
	k := faceKey{index, size}
	r.mu.Lock()
	defer r.mu.Unlock()
	if f, ok := r.faces[k]; ok {
		return f
	}
	f := r.world.Font(index)
	if f == nil {
		return nil
	}
	face, err := opentype.NewFace(f.SFNT(), &opentype.FaceOptions{Size: size, DPI: 72, Hinting: xfont.HintingNone})
	if err != nil {
		return nil
	}
	r.faces[k] = face
	return face
}

// Thumbnail scales img down to width pixels, keeping the aspect ratio.
func Thumbnail(img image.Image, width int) *image.RGBA {
	b := img.Bounds()
	if width <= 0 || b.Dx() == 0 {
		width = 1
	}
	height := max(int(math.Round(float64(b.Dy())*float64(width)/float64(max(b.Dx(), 1)))), 1)
	dst := image.NewRGBA(image.Rect(0, 0, width, height))
	draw.ApproxBiLinear.Scale(dst, dst.Bounds(), img, b, draw.Src, nil)
	return dst
}

// WritePNG encodes img as PNG.
func WritePNG(w io.Writer, img image.Image) error { return png.Encode(w, img) }

func px(v, scale float64) int { return int(math.Round(v * scale)) }

func fixed26(v float64) fixed.Int26_6 { return fixed.Int26_6(math.Round(v * 64)) }

func rgba(c model.Color) color.RGBA {
	// color.RGBA is alpha-premultiplied.
	a := uint32(c.A)
	return color.RGBA{
		R: uint8(uint32(c.R) * a / 255),
		G: uint8(uint32(c.G) * a / 255),
		B: uint8(uint32(c.B) * a / 255),
		A: c.A,
	}
}

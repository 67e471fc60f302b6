// Package font loads OpenType fonts and shapes text runs into positioned
// glyphs. Shaping is a simple left-to-right pass with pair kerning.
package font

import (
	"errors"
	"fmt"
	"strings"
	"sync"

	xfont "golang.org/x/image/font"
	"golang.org/x/image/font/sfnt"
	"golang.org/x/image/math/fixed"

	"gotypeset/pkg/memo"
)

// ErrInvalidFont is returned for data that is not a usable font.
var ErrInvalidFont = errors.New("invalid font data")

// Variant selects a face within a family.
type Variant struct {
	Bold   bool
	Italic bool
}

func (v Variant) String() string {
	switch {
	case v.Bold && v.Italic:
		return "bold italic"
	case v.Bold:
		return "bold"
	case v.Italic:
		return "italic"
	}
	return "regular"
}

// Info describes a font without loading its outlines.
type Info struct {
	Family  string
	Variant Variant
}

// Metrics are vertical font metrics in points.
type Metrics struct {
	Ascent  float64
	Descent float64
	Height  float64
}

// Glyph is one shaped glyph.
type Glyph struct {
	ID      uint16
	Advance float64 // in points, including kerning with the next glyph
	Cluster int     // byte offset of the source character in the run
	Rune    rune
}

// Font is a parsed font. It is safe for concurrent use.
type Font struct {
	info Info
	data []byte
	sf   *sfnt.Font
	hash uint64
	bufs sync.Pool
}

// Parse reads an OpenType or TrueType font.
func Parse(data []byte) (*Font, error) {
	sf, err := sfnt.Parse(data)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidFont, err)
	}
	f := &Font{data: data, sf: sf, hash: memo.HashBytes(data)}
	f.bufs.New = func() any { return new(sfnt.Buffer) }

	buf := f.buffer()
	defer f.release(buf)
	family, err := sf.Name(buf, sfnt.NameIDFamily)
	if err != nil {
		return nil, fmt.Errorf("%w: no family name: %v", ErrInvalidFont, err)
	}
	sub, _ := sf.Name(buf, sfnt.NameIDSubfamily)
	sub = strings.ToLower(sub)
	f.info = Info{
		Family: family,
		Variant: Variant{
			Bold:   strings.Contains(sub, "bold"),
			Italic: strings.Contains(sub, "italic") || strings.Contains(sub, "oblique"),
		},
	}
	return f, nil
}

func (f *Font) buffer() *sfnt.Buffer     { return f.bufs.Get().(*sfnt.Buffer) }
func (f *Font) release(b *sfnt.Buffer)   { f.bufs.Put(b) }
func (f *Font) Info() Info               { return f.info }
func (f *Font) Data() []byte             { return f.data }
func (f *Font) SFNT() *sfnt.Font         { return f.sf }
func (f *Font) Hash() uint64             { return f.hash }
func (f *Font) String() string           { return f.info.Family + " " + f.info.Variant.String() }
func toPt(v fixed.Int26_6) float64       { return float64(v) / 64 }
func ppem(size float64) fixed.Int26_6    { return fixed.Int26_6(size*64 + 0.5) }

// Metrics returns the vertical metrics at size points.
func (f *Font) Metrics(size float64) Metrics {
	buf := f.buffer()
	defer f.release(buf)
	m, err := f.sf.Metrics(buf, ppem(size), xfont.HintingNone)
	if err != nil {
		return Metrics{Ascent: 0.8 * size, Descent: 0.2 * size, Height: 1.2 * size}
	}
	return Metrics{Ascent: toPt(m.Ascent), Descent: toPt(m.Descent), Height: toPt(m.Height)}
}

// Covers reports whether the font has a glyph for r.
func (f *Font) Covers(r rune) bool {
	buf := f.buffer()
	defer f.release(buf)
	id, err := f.sf.GlyphIndex(buf, r)
	return err == nil && id != 0
}

// Shape converts text into glyphs at size points.
func (f *Font) Shape(text string, size float64) []Glyph {
	buf := f.buffer()
	defer f.release(buf)
	em := ppem(size)

	glyphs := make([]Glyph, 0, len(text))
	for i, r := range text {
		id, err := f.sf.GlyphIndex(buf, r)
		if err != nil {
			id = 0
		}
		adv, err := f.sf.GlyphAdvance(buf, id, em, xfont.HintingNone)
		if err != nil {
			adv = 0
		}
		if n := len(glyphs); n > 0 {
			prev := sfnt.GlyphIndex(glyphs[n-1].ID)
			if k, err := f.sf.Kern(buf, prev, id, em, xfont.HintingNone); err == nil {
				glyphs[n-1].Advance += toPt(k)
			}
		}
		glyphs = append(glyphs, Glyph{ID: uint16(id), Advance: toPt(adv), Cluster: i, Rune: r})
	}
	return glyphs
}

// Width sums the advances of glyphs.
func Width(glyphs []Glyph) float64 {
	w := 0.0
	for _, g := range glyphs {
		w += g.Advance
	}
	return w
}

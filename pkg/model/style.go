package model

import (
	"fmt"
	"strconv"
	"strings"
)

// Length is a distance made of an absolute part in points, a part
// relative to the font size and a part relative to the available space.
type Length struct {
	Pt    float64
	Em    float64
	Ratio float64
}

// Pt returns an absolute length.
func Pt(v float64) Length { return Length{Pt: v} }

// Em returns a length relative to the font size.
func Em(v float64) Length { return Length{Em: v} }

// Resolve converts l to points for a font size and a base for ratios.
func (l Length) Resolve(fontSize, base float64) float64 {
	return l.Pt + l.Em*fontSize + l.Ratio*base
}

// Add sums two lengths.
func (l Length) Add(o Length) Length {
	return Length{Pt: l.Pt + o.Pt, Em: l.Em + o.Em, Ratio: l.Ratio + o.Ratio}
}

// Scale multiplies every part by f.
func (l Length) Scale(f float64) Length {
	return Length{Pt: l.Pt * f, Em: l.Em * f, Ratio: l.Ratio * f}
}

func (l Length) String() string {
	var parts []string
	if l.Pt != 0 {
		parts = append(parts, strconv.FormatFloat(l.Pt, 'f', -1, 64)+"pt")
	}
	if l.Em != 0 {
		parts = append(parts, strconv.FormatFloat(l.Em, 'f', -1, 64)+"em")
	}
	if l.Ratio != 0 {
		parts = append(parts, strconv.FormatFloat(l.Ratio*100, 'f', -1, 64)+"%")
	}
	if len(parts) == 0 {
		return "0pt"
	}
	return strings.Join(parts, " + ")
}

// Color is an 8-bit RGBA color.
type Color struct {
	R, G, B, A uint8
}

var (
	Black = Color{0, 0, 0, 255}
	White = Color{255, 255, 255, 255}
)

// ParseHex reads "#rgb", "#rrggbb" or "#rrggbbaa".
func ParseHex(s string) (Color, error) {
	h := strings.TrimPrefix(s, "#")
	if len(h) == 3 {
		h = string([]byte{h[0], h[0], h[1], h[1], h[2], h[2]})
	}
	if len(h) == 6 {
		h += "ff"
	}
	if len(h) != 8 {
		return Color{}, fmt.Errorf("invalid color %q", s)
	}
	v, err := strconv.ParseUint(h, 16, 32)
	if err != nil {
		return Color{}, fmt.Errorf("invalid color %q", s)
	}
	return Color{uint8(v >> 24), uint8(v >> 16), uint8(v >> 8), uint8(v)}, nil
}

func (c Color) String() string {
	if c.A == 255 {
		return fmt.Sprintf("#%02x%02x%02x", c.R, c.G, c.B)
	}
	return fmt.Sprintf("#%02x%02x%02x%02x", c.R, c.G, c.B, c.A)
}

// Style is a set of optional properties. Nil fields are unset and inherit
// from the enclosing style.
type Style struct {
	Font    *string
	Size    *Length
	Bold    *bool
	Italic  *bool
	Fill    *Color
	Leading *Length

	PageWidth  *float64
	PageHeight *float64
	PageMargin *float64
}

// IsPage reports whether s sets any page property.
func (s Style) IsPage() bool {
	return s.PageWidth != nil || s.PageHeight != nil || s.PageMargin != nil
}

// Base is the style at the bottom of every chain.
func Base() Style {
	font := "Go"
	size := Pt(11)
	bold, italic := false, false
	fill := Black
	leading := Em(0.65)
	// A4 with 2.5cm margins.
	width, height, margin := 595.28, 841.89, 70.87
	return Style{
		Font: &font, Size: &size, Bold: &bold, Italic: &italic, Fill: &fill, Leading: &leading,
		PageWidth: &width, PageHeight: &height, PageMargin: &margin,
	}
}

// StyleChain is a linked list of styles, innermost first.
type StyleChain struct {
	style  Style
	parent *StyleChain
}

// NewChain starts a chain with base at the bottom.
func NewChain(base Style) *StyleChain { return &StyleChain{style: base} }

// Chain pushes s on top of c.
func (c *StyleChain) Chain(s Style) *StyleChain { return &StyleChain{style: s, parent: c} }

func get[T any](c *StyleChain, field func(Style) *T) T {
	for link := c; link != nil; link = link.parent {
		if v := field(link.style); v != nil {
			return *v
		}
	}
	var zero T
	return zero
}

// Font returns the active font family.
func (c *StyleChain) Font() string { return get(c, func(s Style) *string { return s.Font }) }

// Size returns the active font size in points. Em sizes are relative to
// the size further down the chain.
func (c *StyleChain) Size() float64 {
	for link := c; link != nil; link = link.parent {
		if l := link.style.Size; l != nil {
			return l.Pt + l.Em*link.parent.Size()
		}
	}
	return 11
}

// Bold reports whether text is set in a bold face.
func (c *StyleChain) Bold() bool { return get(c, func(s Style) *bool { return s.Bold }) }

// Italic reports whether text is set in an italic face.
func (c *StyleChain) Italic() bool { return get(c, func(s Style) *bool { return s.Italic }) }

// Fill returns the text color.
func (c *StyleChain) Fill() Color {
	for link := c; link != nil; link = link.parent {
		if v := link.style.Fill; v != nil {
			return *v
		}
	}
	return Black
}

// Leading returns the space between lines in points.
func (c *StyleChain) Leading() float64 {
	l := get(c, func(s Style) *Length { return s.Leading })
	return l.Resolve(c.Size(), 0)
}

// Page returns the page width, height and margin in points.
func (c *StyleChain) Page() (width, height, margin float64) {
	width = get(c, func(s Style) *float64 { return s.PageWidth })
	height = get(c, func(s Style) *float64 { return s.PageHeight })
	margin = get(c, func(s Style) *float64 { return s.PageMargin })
	return width, height, margin
}

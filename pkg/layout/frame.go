// Package layout typesets a content tree into pages of positioned frames.
package layout

import (
	"strings"

	"gotypeset/pkg/diag"
	"gotypeset/pkg/font"
	"gotypeset/pkg/model"
)

// Point is a position in points. Y grows downwards.
type Point struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// Size is an extent in points.
type Size struct {
	W float64 `json:"w"`
	H float64 `json:"h"`
}

// Document is the result of typesetting.
type Document struct {
	Pages       []*Page
	Diagnostics diag.Diagnostics
}

// Page is one page of a document. Frames are in document order.
type Page struct {
	Width  float64
	Height float64
	Frames []*Frame
}

// Frame is a positioned region. Offset is relative to the page for
// top-level frames and to the enclosing frame for nested ones.
type Frame struct {
	Offset   Point
	Size     Size
	Items    []Positioned
	Overflow bool
}

// Positioned places an item inside a frame.
type Positioned struct {
	Pos  Point
	Item Item
}

// Item is a TextItem, ShapeItem or GroupItem.
type Item interface {
	isItem()
}

// TextItem is a run of shaped glyphs. Its position is the left end of the
// baseline.
type TextItem struct {
	Font   int
	Size   float64
	Fill   model.Color
	Text   string
	Glyphs []font.Glyph
	Width  float64
}

// ShapeItem is a filled rectangle whose position is its top-left corner.
type ShapeItem struct {
	Size Size
	Fill model.Color
}

// GroupItem nests a frame.
type GroupItem struct {
	Frame *Frame
}

func (*TextItem) isItem()  {}
func (*ShapeItem) isItem() {}
func (*GroupItem) isItem() {}

// Text returns the text of the page. Lines are separated by newlines and
// gaps within a line by spaces.
func (p *Page) Text() string {
	var sb strings.Builder
	var last *TextItem
	var lastPos Point
	p.Walk(func(pos Point, item Item) {
		t, ok := item.(*TextItem)
		if !ok {
			return
		}
		if last != nil {
			switch {
			case pos.Y != lastPos.Y:
				sb.WriteByte('\n')
			case pos.X-(lastPos.X+last.Width) > 0.01:
				sb.WriteByte(' ')
			}
		}
		sb.WriteString(t.Text)
		last, lastPos = t, pos
	})
	return sb.String()
}

// Walk calls fn for every item of the page with its absolute position.
func (p *Page) Walk(fn func(pos Point, item Item)) {
	for _, f := range p.Frames {
		f.walk(Point{}, fn)
	}
}

func (f *Frame) walk(origin Point, fn func(Point, Item)) {
	at := Point{origin.X + f.Offset.X, origin.Y + f.Offset.Y}
	for _, it := range f.Items {
		pos := Point{at.X + it.Pos.X, at.Y + it.Pos.Y}
		fn(pos, it.Item)
		if g, ok := it.Item.(*GroupItem); ok {
			g.Frame.walk(pos, fn)
		}
	}
}

// Overflowed reports whether any frame of the page is flagged overflow.
func (p *Page) Overflowed() bool {
	for _, f := range p.Frames {
		if f.Overflow {
			return true
		}
	}
	return false
}

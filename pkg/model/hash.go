package model

import (
	"gotypeset/pkg/memo"
)

// Hash returns a structural hash of c. Spans take part so that diagnostics
// raised while laying out cached content still point at the right place.
func Hash(c Content) uint64 {
	h := memo.NewHasher()
	hashContent(h, c)
	return h.Sum()
}

func hashContent(h *memo.Hasher, c Content) {
	switch c := c.(type) {
	case nil:
		h.Int(0)
	case *Text:
		h.Int(1).String(c.Text).String(string(c.Span.File)).Int(c.Span.Range.Start).Int(c.Span.Range.End)
	case *Space:
		h.Int(2)
	case *Linebreak:
		h.Int(3)
	case *Parbreak:
		h.Int(4)
	case *Pagebreak:
		h.Int(5)
	case *Sequence:
		h.Int(6).Int(len(c.Children))
		for _, child := range c.Children {
			hashContent(h, child)
		}
	case *Styled:
		h.Int(7)
		hashStyle(h, c.Style)
		hashContent(h, c.Child)
	case *Heading:
		h.Int(8).Int(c.Level)
		hashContent(h, c.Body)
	case *ListItem:
		h.Int(9)
		hashContent(h, c.Body)
	case *Raw:
		h.Int(10).String(c.Text).Bool(c.Block)
	case *Block:
		h.Int(11)
		hashLength(h, c.Width)
		hashLength(h, c.Height)
		hashColor(h, c.Fill)
		hashContent(h, c.Body)
	case *VSpace:
		h.Int(12)
		hashLength(h, &c.Amount)
	case *ErrorContent:
		h.Int(13).String(c.Message)
	}
}

// HashStyle returns a hash of the properties set in s.
func HashStyle(s Style) uint64 {
	h := memo.NewHasher()
	hashStyle(h, s)
	return h.Sum()
}

// HashChain returns a hash of the whole chain.
func HashChain(c *StyleChain) uint64 {
	h := memo.NewHasher()
	for link := c; link != nil; link = link.parent {
		hashStyle(h, link.style)
	}
	return h.Sum()
}

func hashStyle(h *memo.Hasher, s Style) {
	if s.Font != nil {
		h.Int(1).String(*s.Font)
	}
	if s.Size != nil {
		h.Int(2)
		hashLength(h, s.Size)
	}
	if s.Bold != nil {
		h.Int(3).Bool(*s.Bold)
	}
	if s.Italic != nil {
		h.Int(4).Bool(*s.Italic)
	}
	hashColor(h, s.Fill)
	if s.Leading != nil {
		h.Int(5)
		hashLength(h, s.Leading)
	}
	for i, v := range []*float64{s.PageWidth, s.PageHeight, s.PageMargin} {
		if v != nil {
			h.Int(6 + i).Float(*v)
		}
	}
	h.Int(-1)
}

func hashLength(h *memo.Hasher, l *Length) {
	if l == nil {
		h.Int(0)
		return
	}
	h.Int(1).Float(l.Pt).Float(l.Em).Float(l.Ratio)
}

func hashColor(h *memo.Hasher, c *Color) {
	if c == nil {
		h.Int(0)
		return
	}
	h.Int(1).Uint64(uint64(c.R)<<24 | uint64(c.G)<<16 | uint64(c.B)<<8 | uint64(c.A))
}

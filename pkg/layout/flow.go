package layout

import (
	"errors"
	"math"
	"strings"

	"gotypeset/pkg/diag"
	"gotypeset/pkg/font"
	"gotypeset/pkg/memo"
	"gotypeset/pkg/model"
	"gotypeset/pkg/syntax"
)

// ErrNoFonts is returned when the world has no fonts to shape text with.
var ErrNoFonts = errors.New("no fonts available")

// World is the part of a world the layout engine reads.
type World interface {
	Font(index int) *font.Font
	Book() *font.Book
}

// Option configures Typeset.
type Option func(*typesetter)

// WithCache memoizes paragraph layout in c.
func WithCache(c *memo.Cache) Option { return func(t *typesetter) { t.cache = c } }

// WithBreaker replaces the greedy line breaker.
func WithBreaker(b LineBreaker) Option { return func(t *typesetter) { t.breaker = b } }

// WithStyles applies s on top of the base style.
func WithStyles(s model.Style) Option { return func(t *typesetter) { t.styles = &s } }

// Spacing in ems of the font size.
const (
	parSpacing     = 1.2
	headingSpacing = 1.4
	listIndent     = 1.2
)

type fontKey struct {
	family  string
	variant font.Variant
}

type typesetter struct {
	world   World
	tracer  *diag.Tracer
	cache   *memo.Cache
	breaker LineBreaker
	styles  *model.Style

	fonts        map[fontKey]int
	metricsCache map[metricsKey]font.Metrics
}

// Typeset lays out content into pages. Warnings for font fallback and
// overflowing blocks go to tracer.
func Typeset(world World, tracer *diag.Tracer, content model.Content, opts ...Option) (*Document, error) {
	t := &typesetter{
		world:        world,
		tracer:       tracer,
		breaker:      Greedy{},
		fonts:        make(map[fontKey]int),
		metricsCache: make(map[metricsKey]font.Metrics),
	}
	for _, opt := range opts {
		opt(t)
	}
	if world.Book() == nil || world.Book().Len() == 0 {
		return nil, ErrNoFonts
	}
	if t.tracer == nil {
		t.tracer = diag.NewTracer()
	}

	chain := model.NewChain(model.Base())
	if t.styles != nil {
		chain = chain.Chain(*t.styles)
	}
	f := t.newFlow(chain, true)
	t.walk(f, content, chain)
	return &Document{Pages: f.finish()}, nil
}

// walk feeds content into f.
func (t *typesetter) walk(f *flow, c model.Content, chain *model.StyleChain) {
	switch c := c.(type) {
	case nil:
	case *model.Text:
		t.addText(f, strings.ReplaceAll(c.Text, "\n", " "), chain, c.Span)
	case *model.Space:
		if p := f.inline(chain); p.spaceable() {
			p.add(t.space(chain))
		}
	case *model.Linebreak:
		f.inline(chain).add(run{kind: breakRun})
	case *model.Parbreak:
		f.endPar()
	case *model.Pagebreak:
		f.endPar()
		f.pagebreak()
	case *model.Sequence:
		for _, child := range c.Children {
			t.walk(f, child, chain)
		}
	case *model.Styled:
		inner := chain.Chain(c.Style)
		if !c.Style.IsPage() {
			t.walk(f, c.Child, inner)
			return
		}
		f.endPar()
		f.setPage(inner)
		t.walk(f, c.Child, inner)
		f.endPar()
		f.setPage(chain)
	case *model.Heading:
		f.endPar()
		scale := 1.0
		switch c.Level {
		case 1:
			scale = 1.4
		case 2:
			scale = 1.2
		}
		size, bold := model.Em(scale), true
		inner := chain.Chain(model.Style{Size: &size, Bold: &bold})
		p := f.inline(inner)
		p.spacing = headingSpacing * inner.Size()
		t.walk(f, c.Body, inner)
		f.endPar()
	case *model.ListItem:
		f.endPar()
		p := f.inline(chain)
		p.indent = listIndent * chain.Size()
		marker := t.word("•", chain, firstSpan(c.Body))
		p.marker = &marker
		t.walk(f, c.Body, chain)
		f.endPar()
	case *model.Raw:
		mono := font.MonoFamily
		inner := chain.Chain(model.Style{Font: &mono})
		if !c.Block {
			f.inline(inner).add(t.word(c.Text, inner, syntax.Span{}))
			return
		}
		f.endPar()
		p := f.inline(inner)
		lines := strings.Split(strings.TrimSuffix(c.Text, "\n"), "\n")
		for i, ln := range lines {
			if ln != "" {
				p.add(t.word(ln, inner, syntax.Span{}))
			}
			if i < len(lines)-1 {
				p.add(run{kind: breakRun})
			}
		}
		f.endPar()
	case *model.Block:
		f.endPar()
		t.block(f, c, chain)
	case *model.VSpace:
		f.endPar()
		_, h := f.region()
		if math.IsInf(h, 1) {
			h = 0
		}
		f.vspace(c.Amount.Resolve(chain.Size(), h))
	case *model.ErrorContent:
	}
}

func (t *typesetter) addText(f *flow, text string, chain *model.StyleChain, span syntax.Span) {
	p := f.inline(chain)
	if p.span.Detached() {
		p.span = span
	}
	for i, w := range strings.Split(text, " ") {
		if i > 0 && p.spaceable() {
			p.add(t.space(chain))
		}
		if w != "" {
			p.add(t.word(w, chain, span))
		}
	}
}

func (t *typesetter) word(text string, chain *model.StyleChain, span syntax.Span) run {
	return run{kind: wordRun, text: text, font: t.selectFont(chain, span), size: chain.Size(), fill: chain.Fill()}
}

func (t *typesetter) space(chain *model.StyleChain) run {
	r := t.word(" ", chain, syntax.Span{})
	r.kind = spaceRun
	return r
}

// selectFont picks the font for the chain's family and variant. An
// unknown family falls back to the default family with a warning.
func (t *typesetter) selectFont(chain *model.StyleChain, span syntax.Span) int {
	key := fontKey{chain.Font(), font.Variant{Bold: chain.Bold(), Italic: chain.Italic()}}
	if i, ok := t.fonts[key]; ok {
		return i
	}
	book := t.world.Book()
	i, ok := book.Select(key.family, key.variant)
	if !ok {
		t.tracer.Warn(diag.Warningf(diag.FontFallback, span, "unknown font family: %s", key.family).
			WithHint("falling back to %s", font.DefaultFamily))
		if i, ok = book.Select(font.DefaultFamily, key.variant); !ok {
			i = 0
		}
	}
	t.fonts[key] = i
	return i
}

// block lays out an unsplittable block. The body is laid out at the
// block's width with unbounded height.
func (t *typesetter) block(f *flow, b *model.Block, chain *model.StyleChain) {
	size := chain.Size()
	w, h := f.region()
	if math.IsInf(h, 1) {
		h = 0
	}
	width := w
	if b.Width != nil {
		width = math.Max(b.Width.Resolve(size, w), 0)
	}
	frame := &Frame{}
	var body *flow
	if b.Body != nil {
		body = t.newFlow(chain, false)
		body.width = width
		t.walk(body, b.Body, chain)
		body.endPar()
	}
	height := 0.0
	if body != nil {
		height = body.y
	}
	if b.Height != nil {
		height = math.Max(b.Height.Resolve(size, h), 0)
	}
	frame.Size = Size{W: width, H: height}
	if b.Fill != nil {
		frame.Items = append(frame.Items, Positioned{Item: &ShapeItem{Size: frame.Size, Fill: *b.Fill}})
	}
	if body != nil {
		for _, bf := range body.page.Frames {
			frame.Items = append(frame.Items, Positioned{Item: &GroupItem{Frame: bf}})
		}
		if body.y > height+1e-6 {
			frame.Overflow = true
			t.tracer.Warn(diag.Warningf(diag.Overflow, firstSpan(b.Body),
				"block content is taller than the block (%.1fpt > %.1fpt)", body.y, height))
		}
	}
	f.placeBlock(frame, parSpacing*size, firstSpan(b.Body))
}

// firstSpan returns the span of the first text in c.
func firstSpan(c model.Content) syntax.Span {
	switch c := c.(type) {
	case *model.Text:
		return c.Span
	case *model.Sequence:
		for _, child := range c.Children {
			if s := firstSpan(child); !s.Detached() {
				return s
			}
		}
	case *model.Styled:
		return firstSpan(c.Child)
	case *model.Heading:
		return firstSpan(c.Body)
	case *model.ListItem:
		return firstSpan(c.Body)
	case *model.Block:
		return firstSpan(c.Body)
	case *model.ErrorContent:
		return c.Span
	}
	return syntax.Span{}
}

// flow places paragraphs and blocks into pages. An unbounded flow has a
// single page of infinite height and lays out block bodies.
type flow struct {
	t       *typesetter
	bounded bool

	width, height, margin float64

	pages    []*Page
	page     *Page
	y        float64
	empty    bool
	explicit bool

	par   *par
	frame *Frame
}

func (t *typesetter) newFlow(chain *model.StyleChain, bounded bool) *flow {
	f := &flow{t: t, bounded: bounded}
	if bounded {
		f.width, f.height, f.margin = f.geometry(chain)
	} else {
		f.height = math.Inf(1)
	}
	f.newPage(false)
	return f
}

// minContent is the smallest content area a page keeps on each axis.
const minContent = 1.0

// geometry reads the page size and margin of chain. A margin that leaves
// less than minContent for content is shrunk with a warning.
func (f *flow) geometry(chain *model.StyleChain) (w, h, m float64) {
	w, h, m = chain.Page()
	if limit := math.Max((math.Min(w, h)-minContent)/2, 0); m > limit {
		f.t.tracer.Warn(diag.Warningf(diag.Overflow, syntax.Span{},
			"page margin of %.1fpt leaves no room for content on a %.1fpt x %.1fpt page", m, w, h).
			WithHint("using a margin of %.1fpt", limit))
		m = limit
	}
	return w, h, m
}

// region returns the size of the content area.
func (f *flow) region() (float64, float64) {
	if !f.bounded {
		return f.width, f.height
	}
	return math.Max(f.width-2*f.margin, 0), math.Max(f.height-2*f.margin, 0)
}

func (f *flow) newPage(explicit bool) {
	f.page = &Page{Width: f.width, Height: f.height}
	if f.bounded {
		f.pages = append(f.pages, f.page)
	}
	f.y, f.empty, f.explicit, f.frame = 0, true, explicit, nil
}

// finish ends the last paragraph and returns the pages. A trailing empty
// page is dropped unless a page break asked for it.
func (f *flow) finish() []*Page {
	f.endPar()
	if n := len(f.pages); n > 1 && f.empty && !f.explicit {
		f.pages = f.pages[:n-1]
	}
	return f.pages
}

func (f *flow) pagebreak() {
	if f.bounded {
		f.newPage(true)
	}
}

// setPage switches to the page style of chain. Content already on the
// current page keeps its page; the new style starts a fresh one.
func (f *flow) setPage(chain *model.StyleChain) {
	if !f.bounded {
		return
	}
	w, h, m := f.geometry(chain)
	if w == f.width && h == f.height && m == f.margin {
		return
	}
	f.width, f.height, f.margin = w, h, m
	if f.empty {
		f.page.Width, f.page.Height = w, h
		return
	}
	f.newPage(false)
}

// inline returns the open paragraph, starting one styled by chain.
func (f *flow) inline(chain *model.StyleChain) *par {
	if f.par == nil {
		f.par = &par{
			leading: chain.Leading(),
			spacing: parSpacing * chain.Size(),
			chain:   chain,
		}
	}
	return f.par
}

// endPar lays out and places the open paragraph.
func (f *flow) endPar() {
	p := f.par
	f.par = nil
	if p == nil || p.empty() {
		return
	}
	p.strut = f.t.word(" ", p.chain, syntax.Span{})
	w, _ := f.region()
	for i, l := range f.t.layoutLines(p, w) {
		gap := p.leading
		if i == 0 {
			gap = p.spacing
		}
		f.placeLine(l, gap, i == 0, p.span)
	}
	f.frame = nil
}

func (f *flow) placeLine(l *line, gap float64, first bool, span syntax.Span) {
	w, h := f.region()
	need := l.ascent + l.descent
	if f.empty {
		gap = 0
	}
	if !f.empty && f.y+gap+need > h {
		f.newPage(false)
		gap = 0
	}
	if first || f.frame == nil {
		f.frame = &Frame{Offset: Point{X: f.margin, Y: f.margin + f.y + gap}, Size: Size{W: w}}
		f.page.Frames = append(f.page.Frames, f.frame)
	}
	top := f.frame.Offset.Y - f.margin
	baseline := f.y + gap + l.ascent - top
	for _, it := range l.items {
		f.frame.Items = append(f.frame.Items, Positioned{Pos: Point{X: it.Pos.X, Y: baseline}, Item: it.Item})
	}
	f.y += gap + need
	f.frame.Size.H = f.y - top
	f.empty = false
	if f.y > h {
		f.frame.Overflow = true
		f.t.tracer.Warn(diag.Warningf(diag.Overflow, span,
			"line does not fit on the page (%.1fpt > %.1fpt)", need, h))
	}
	if l.width > w+overflowTolerance {
		f.frame.Overflow = true
		f.t.tracer.Warn(diag.Warningf(diag.Overflow, span,
			"line is wider than the available space (%.1fpt > %.1fpt)", l.width, w))
	}
}

// overflowTolerance absorbs rounding in width sums.
const overflowTolerance = 1e-6

// placeBlock places an unsplittable frame. A frame taller than the page
// goes to the top of a fresh page and is flagged overflow.
func (f *flow) placeBlock(frame *Frame, gap float64, span syntax.Span) {
	w, h := f.region()
	if f.empty {
		gap = 0
	}
	if !f.empty && f.y+gap+frame.Size.H > h {
		f.newPage(false)
		gap = 0
	}
	if frame.Size.H > h {
		frame.Overflow = true
		f.t.tracer.Warn(diag.Warningf(diag.Overflow, span,
			"block does not fit on page %d (%.1fpt > %.1fpt)", len(f.pages), frame.Size.H, h))
	}
	if frame.Size.W > w+overflowTolerance {
		frame.Overflow = true
		f.t.tracer.Warn(diag.Warningf(diag.Overflow, span,
			"block is wider than the available space (%.1fpt > %.1fpt)", frame.Size.W, w))
	}
	frame.Offset = Point{X: f.margin, Y: f.margin + f.y + gap}
	f.page.Frames = append(f.page.Frames, frame)
	f.y += gap + frame.Size.H
	f.empty = false
	f.frame = nil
}

// vspace advances the cursor. Space that runs past the page bottom moves
// to a new page and is dropped.
func (f *flow) vspace(amount float64) {
	_, h := f.region()
	f.y += amount
	if f.y < 0 {
		f.y = 0
	}
	if f.y > h {
		f.newPage(false)
	}
	f.frame = nil
}

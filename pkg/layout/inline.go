package layout

import (
	"math"

	"gotypeset/pkg/font"
	"gotypeset/pkg/memo"
	"gotypeset/pkg/model"
	"gotypeset/pkg/syntax"
)

type runKind uint8

const (
	wordRun runKind = iota
	spaceRun
	breakRun
)

// run is inline content with its style resolved to a font and size.
type run struct {
	kind runKind
	text string
	font int
	size float64
	fill model.Color
}

// par collects the runs of one paragraph.
type par struct {
	runs    []run
	leading float64
	spacing float64
	indent  float64
	marker  *run
	// strut sets the height of lines without text.
	strut run
	chain *model.StyleChain
	span  syntax.Span
}

func (p *par) add(r run) {
	if r.kind == spaceRun && !p.spaceable() {
		return
	}
	p.runs = append(p.runs, r)
}

// spaceable reports whether a space would separate two words.
func (p *par) spaceable() bool {
	return len(p.runs) > 0 && p.runs[len(p.runs)-1].kind == wordRun
}

func (p *par) empty() bool {
	for _, r := range p.runs {
		if r.kind != spaceRun {
			return false
		}
	}
	return p.marker == nil
}

// line is a laid out line. Item positions are relative to the left end
// of the baseline.
type line struct {
	width   float64
	ascent  float64
	descent float64
	items   []Positioned
}

// piece is a shaped run.
type piece struct {
	run
	glyphs []font.Glyph
	width  float64
}

func (p *par) hash(width float64, breaker LineBreaker, fonts func(int) *font.Font) uint64 {
	h := memo.NewHasher().Float(width).String(breaker.Name()).Float(p.indent)
	hashRun := func(r run) {
		h.Int(int(r.kind)).String(r.text).Int(r.font).Float(r.size)
		h.Int(int(r.fill.R)).Int(int(r.fill.G)).Int(int(r.fill.B)).Int(int(r.fill.A))
		if f := fonts(r.font); f != nil {
			h.Uint64(f.Hash())
		}
	}
	h.Bool(p.marker != nil)
	if p.marker != nil {
		hashRun(*p.marker)
	}
	hashRun(p.strut)
	h.Int(len(p.runs))
	for _, r := range p.runs {
		hashRun(r)
	}
	return h.Sum()
}

// layoutLines shapes the paragraph and breaks it into lines of at most
// width points. Words wider than a line are split between glyphs.
func (t *typesetter) layoutLines(p *par, width float64) []*line {
	key := p.hash(width, t.breaker, t.world.Font)
	lines, _ := memo.Memoize(t.cache, nil, "layout.par", key, nil, func(*memo.Recorder) ([]*line, error) {
		return t.breakLines(p, width), nil
	})
	return lines
}

func (t *typesetter) breakLines(p *par, width float64) []*line {
	avail := math.Max(width-p.indent, 1)
	var pieces []piece
	for _, r := range p.runs {
		switch r.kind {
		case breakRun:
			pieces = append(pieces, piece{run: r})
		default:
			f := t.world.Font(r.font)
			glyphs := f.Shape(r.text, r.size)
			if r.kind == wordRun && font.Width(glyphs) > avail {
				pieces = append(pieces, splitWord(r, glyphs, avail)...)
				continue
			}
			pieces = append(pieces, piece{run: r, glyphs: glyphs, width: font.Width(glyphs)})
		}
	}

	segs := make([]Segment, len(pieces))
	for i, pc := range pieces {
		segs[i] = Segment{Width: pc.width, Space: pc.kind == spaceRun, Forced: pc.kind == breakRun}
	}
	var lines []*line
	for i, rng := range t.breaker.Break(segs, avail) {
		l := t.buildLine(p, pieces[rng.Start:rng.End])
		if i == 0 && p.marker != nil {
			t.addMarker(p, l)
		}
		lines = append(lines, l)
	}
	return lines
}

// splitWord cuts a word into chunks no wider than avail. Each chunk holds
// at least one glyph.
func splitWord(r run, glyphs []font.Glyph, avail float64) []piece {
	var out []piece
	start := 0
	w := 0.0
	flush := func(end int) {
		gs := glyphs[start:end]
		text := r.text[gs[0].Cluster:]
		if end < len(glyphs) {
			text = r.text[gs[0].Cluster:glyphs[end].Cluster]
		}
		c := r
		c.text = text
		out = append(out, piece{run: c, glyphs: gs, width: w})
	}
	for i, g := range glyphs {
		if i > start && w+g.Advance > avail {
			flush(i)
			start, w = i, 0
		}
		w += g.Advance
	}
	flush(len(glyphs))
	return out
}

func (t *typesetter) buildLine(p *par, pieces []piece) *line {
	for len(pieces) > 0 && pieces[0].kind == spaceRun {
		pieces = pieces[1:]
	}
	for len(pieces) > 0 && pieces[len(pieces)-1].kind != wordRun {
		pieces = pieces[:len(pieces)-1]
	}

	l := &line{}
	if len(pieces) == 0 {
		m := t.metrics(p.strut)
		l.ascent, l.descent = m.Ascent, m.Descent
		return l
	}
	x := p.indent
	var cur *TextItem
	for _, pc := range pieces {
		if pc.kind == breakRun {
			continue
		}
		if pc.kind == wordRun {
			m := t.metrics(pc.run)
			l.ascent = math.Max(l.ascent, m.Ascent)
			l.descent = math.Max(l.descent, m.Descent)
		}
		if cur != nil && cur.Font == pc.font && cur.Size == pc.size && cur.Fill == pc.fill {
			cur.Text += pc.text
			cur.Glyphs = append(cur.Glyphs, pc.glyphs...)
			cur.Width += pc.width
		} else {
			cur = &TextItem{
				Font: pc.font, Size: pc.size, Fill: pc.fill, Text: pc.text,
				Glyphs: append([]font.Glyph(nil), pc.glyphs...), Width: pc.width,
			}
			l.items = append(l.items, Positioned{Pos: Point{X: x}, Item: cur})
		}
		x += pc.width
	}
	l.width = x
	return l
}

// addMarker places the list marker in the indent of the first line.
func (t *typesetter) addMarker(p *par, l *line) {
	r := *p.marker
	glyphs := t.world.Font(r.font).Shape(r.text, r.size)
	w := font.Width(glyphs)
	x := math.Max(p.indent-w-0.5*r.size, 0)
	m := t.metrics(r)
	l.ascent = math.Max(l.ascent, m.Ascent)
	l.descent = math.Max(l.descent, m.Descent)
	item := &TextItem{Font: r.font, Size: r.size, Fill: r.fill, Text: r.text, Glyphs: glyphs, Width: w}
	l.items = append([]Positioned{{Pos: Point{X: x}, Item: item}}, l.items...)
}

type metricsKey struct {
	font int
	size float64
}

func (t *typesetter) metrics(r run) font.Metrics {
	k := metricsKey{r.font, r.size}
	if m, ok := t.metricsCache[k]; ok {
		return m
	}
	m := t.world.Font(r.font).Metrics(r.size)
	t.metricsCache[k] = m
	return m
}

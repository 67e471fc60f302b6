package layout

// Segment is one unit of a paragraph as the line breaker sees it.
type Segment struct {
	Width float64
	// Space marks a breakable space. Spaces at the edges of a line are
	// dropped.
	Space bool
	// Forced ends the line after this segment.
	Forced bool
}

// Line is a half-open range of segment indices.
type Line struct {
	Start, End int
}

// LineBreaker splits segments into lines no wider than width where
// possible. Every segment belongs to exactly one line and lines are in
// order.
type LineBreaker interface {
	Name() string
	Break(segs []Segment, width float64) []Line
}

// Greedy fills each line with as many segments as fit.
type Greedy struct{}

func (Greedy) Name() string { return "greedy" }

func (Greedy) Break(segs []Segment, width float64) []Line {
	var lines []Line
	start := 0
	used := 0.0    // width up to the last non-space segment
	pending := 0.0 // spaces after it
	content := false
	for i, s := range segs {
		switch {
		case s.Space:
			if content {
				pending += s.Width
			}
		case content && used+pending+s.Width > width:
			lines = append(lines, Line{start, i})
			start = i
			used, pending = s.Width, 0
		default:
			used += pending + s.Width
			pending = 0
			content = true
		}
		if s.Forced {
			lines = append(lines, Line{start, i + 1})
			start = i + 1
			used, pending, content = 0, 0, false
		}
	}
	if start < len(segs) || len(lines) == 0 {
		lines = append(lines, Line{start, len(segs)})
	}
	return lines
}

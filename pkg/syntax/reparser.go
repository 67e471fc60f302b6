package syntax

import (
	"strings"
	"unicode/utf8"
)

// Reparse updates root, the tree of the text before an edit, to match text,
// the text after replacing the bytes in replaced with replacementLen bytes.
// It returns the new root and the range of the new text that was parsed
// again. Subtrees outside that range are shared with the old tree.
//
// The result is always equal to Parse(text). When no local reparse can be
// proven to be equivalent, the whole text is parsed again.
func Reparse(root *Node, text string, replaced Range, replacementLen int) (*Node, Range) {
	if utf8.ValidString(text) && !root.IsLeaf() {
		r := &reparser{text: text, replaced: replaced, newLen: replacementLen}
		if n, rng, ok := r.node(root, 0, 1, Eof, nil); ok {
			return n, rng
		}
	}
	return Parse(text), Range{0, len(text)}
}

type reparser struct {
	text     string
	replaced Range
	newLen   int
}

func (r *reparser) delta() int { return r.newLen - r.replaced.Len() }

// inside reports whether the edit lies strictly inside rng, leaving its
// first and last byte untouched.
func (r *reparser) inside(rng Range) bool {
	return rng.Start < r.replaced.Start && r.replaced.End < rng.End
}

// node tries the innermost candidates first and widens on failure. The
// opener is the leaf directly before n inside its parent, if any, and depth
// counts n and its ancestors.
func (r *reparser) node(n *Node, offset, depth int, parent SyntaxKind, opener *Node) (*Node, Range, bool) {
	pos := offset
	for i, child := range n.children {
		rng := Range{pos, pos + child.length}
		pos = rng.End

		var ok bool
		switch {
		case child.kind == Markup:
			ok = rng.Covers(r.replaced)
		case !child.IsLeaf():
			ok = r.inside(rng)
		}
		if !ok || peeked(n.children, i) {
			continue
		}
		var prev *Node
		if i > 0 && n.children[i-1].IsLeaf() {
			prev = n.children[i-1]
		}
		if repl, reparsed, ok := r.node(child, rng.Start, depth+1, n.kind, prev); ok {
			return n.withChildren(i, i+1, []*Node{repl}), reparsed, true
		}
	}

	switch n.kind {
	case Markup:
		return r.markup(n, offset, depth, parent, opener)
	case CodeBlock, ContentBlock:
		if r.inside(Range{offset, offset + n.length}) {
			return r.block(n, offset, depth)
		}
	}
	return nil, Range{}, false
}

// block parses a whole code or content block again. The block must end at
// the same place with its own closing delimiter.
func (r *reparser) block(n *Node, offset, depth int) (*Node, Range, bool) {
	p := newParser(r.text, offset, modeCode)
	p.depth = depth
	closing := RightBrace
	if n.kind == CodeBlock {
		p.codeBlock()
	} else {
		p.contentBlock()
		closing = RightBracket
	}
	if len(p.nodes) == 0 || p.tooDeep {
		return nil, Range{}, false
	}
	repl := p.nodes[0]
	want := n.length + r.delta()
	if repl.kind != n.kind || repl.length != want || len(repl.children) < 2 {
		return nil, Range{}, false
	}
	first, last := repl.children[0], repl.children[len(repl.children)-1]
	if first.kind == Error || last.kind != closing {
		return nil, Range{}, false
	}
	return repl, Range{offset, offset + want}, true
}

// markupContext returns the stop condition and initial line-start state of
// markup nested directly in a node of the given kind.
func markupContext(parent SyntaxKind) (stopFunc, bool, bool) {
	switch parent {
	case Eof:
		return stopNever, true, true
	case ContentBlock:
		return stopContent, true, true
	case Strong:
		return stopStrong, false, true
	case Emph:
		return stopEmph, false, true
	case Heading, ListItem:
		return stopLine, false, true
	}
	return nil, false, false
}

// markup parses a run of children around the edit again. The run is
// accepted only if the parser arrives at its end in the same state as the
// old parse, so the children after it stay valid.
func (r *reparser) markup(n *Node, offset, depth int, parent SyntaxKind, opener *Node) (*Node, Range, bool) {
	stop, atStart, ok := markupContext(parent)
	if !ok {
		return nil, Range{}, false
	}

	children := n.children
	first, last := -1, -1
	pos := offset
	for i, child := range children {
		end := pos + child.length
		if first < 0 && end >= r.replaced.Start {
			first = i
		}
		if pos <= r.replaced.End {
			last = i
		}
		pos = end
	}
	from, to := 0, len(children)
	if first >= 0 && last >= 0 {
		from = max(first-1, 0)
		to = min(last+2, len(children))
	}
	// Embedded code peeks at the next meaningful tokens, across trivia.
	for i := from - 1; i >= 0; i-- {
		if lookedAhead(children[i]) {
			from = i
		} else if hasNewline(children[i]) {
			break
		}
	}
	for from > 0 && children[from].kind.IsTrivia() {
		from--
	}

	start := offset
	for _, child := range children[:from] {
		start += child.length
	}
	oldEnd := start
	for _, child := range children[from:to] {
		oldEnd += child.length
	}
	until := oldEnd + r.delta()
	if until < start {
		return nil, Range{}, false
	}
	// The token that opened nested markup looked ahead into it, so it has
	// to lex the same way in the new text.
	if from == 0 && parent != Eof && !r.relexes(opener, start) {
		return nil, Range{}, false
	}

	atStart, nesting := scanMarkup(children[:from], atStart, 0)
	oldAtStart, oldNesting := scanMarkup(children[from:to], atStart, nesting)

	p := newParser(r.text, start, modeMarkup)
	// Nesting depth decides where the parse gives up, so the window is
	// parsed at least as deep as the full parse would reach it.
	p.depth = depth
	atEnd := to == len(children)
	if atEnd {
		p.markupExprs(&atStart, &nesting, stop, -1)
		if p.tooDeep || p.currentStart != until {
			return nil, Range{}, false
		}
		if !stop(p) && !(p.eof() && until == len(r.text)) {
			return nil, Range{}, false
		}
	} else {
		p.markupExprs(&atStart, &nesting, stop, until)
		if p.tooDeep || p.currentStart != until || p.eof() || stop(p) {
			return nil, Range{}, false
		}
		next := firstLeaf(children[to])
		if next == nil || next.length == 0 || next.text != p.currentText() {
			return nil, Range{}, false
		}
		if atStart != oldAtStart || nesting != oldNesting {
			return nil, Range{}, false
		}
	}

	return n.withChildren(from, to, p.nodes), Range{start, until}, true
}

// relexes reports whether the markup token leaf, ending at end, is still
// lexed with the same kind and length.
func (r *reparser) relexes(leaf *Node, end int) bool {
	if leaf == nil || leaf.length == 0 {
		return false
	}
	l := newLexer(r.text, modeMarkup)
	l.jump(end - leaf.length)
	return l.next() == leaf.kind && l.cursor() == end
}

// scanMarkup replays the line-start and bracket nesting bookkeeping of the
// markup parser over already parsed children.
func scanMarkup(children []*Node, atStart bool, nesting int) (bool, int) {
	for _, child := range children {
		switch {
		case child.kind == Space || child.kind == Parbreak:
			atStart = atStart || strings.Contains(child.text, "\n")
		case child.kind == LineComment || child.kind == BlockComment:
		case child.kind == Text && child.text == "[":
			nesting++
			atStart = false
		case child.kind == Text && child.text == "]" && nesting > 0:
			nesting--
			atStart = false
		default:
			atStart = false
		}
	}
	return atStart, nesting
}

// peeked reports whether embedded code or an error before children[i] on
// the same line may have looked ahead into it.
func peeked(children []*Node, i int) bool {
	for j := i - 1; j >= 0; j-- {
		if lookedAhead(children[j]) {
			return true
		}
		if hasNewline(children[j]) {
			return false
		}
	}
	return false
}

func lookedAhead(n *Node) bool { return n.kind == Embed || n.erroneous }

func hasNewline(n *Node) bool { return strings.Contains(n.FullText(), "\n") }

func firstLeaf(n *Node) *Node {
	for !n.IsLeaf() {
		if len(n.children) == 0 {
			return nil
		}
		n = n.children[0]
	}
	return n
}

package syntax

import (
	"fmt"
	"sort"
	"strings"
	"unicode/utf8"
)

// Source is a parsed source file. Its line index always matches its text.
type Source struct {
	id    FileID
	text  string
	root  *Node
	lines []int // byte offset of every line start
}

// NewSource parses text as the content of the file id.
func NewSource(id FileID, text string) *Source {
	return &Source{id: id, text: text, root: Parse(text), lines: lineStarts(text)}
}

// Detached creates a source that belongs to no file.
func Detached(text string) *Source { return NewSource("", text) }

func (s *Source) ID() FileID   { return s.id }
func (s *Source) Text() string { return s.text }
func (s *Source) Root() *Node  { return s.root }

// Linked returns a traversable view of the root.
func (s *Source) Linked() *LinkedNode { return NewLinked(s.root) }

// Len returns the length of the text in bytes.
func (s *Source) Len() int { return len(s.text) }

// LineCount returns the number of lines. An empty text has one line.
func (s *Source) LineCount() int { return len(s.lines) }

// Errors returns the syntax errors of the tree.
func (s *Source) Errors() []SyntaxError { return s.root.Errors(0) }

// Replace swaps the whole text and parses it from scratch.
func (s *Source) Replace(text string) {
	s.text = text
	s.root = Parse(text)
	s.lines = lineStarts(text)
}

// Edit replaces the bytes in [start, end) with replacement and updates the
// tree incrementally. It returns the range of the new text whose syntax
// was rebuilt.
func (s *Source) Edit(start, end int, replacement string) (Range, error) {
	if start < 0 || end < start || end > len(s.text) {
		return Range{}, fmt.Errorf("edit %d..%d out of bounds (len %d)", start, end, len(s.text))
	}
	if !utf8.RuneStart(byteAt(s.text, start)) || !utf8.RuneStart(byteAt(s.text, end)) {
		return Range{}, fmt.Errorf("edit %d..%d splits a character", start, end)
	}

	text := s.text[:start] + replacement + s.text[end:]
	s.updateLines(start, text)
	s.text = text

	root, reparsed := Reparse(s.root, text, Range{start, end}, len(replacement))
	s.root = root
	return reparsed, nil
}

func byteAt(text string, i int) byte {
	if i >= len(text) {
		return 0
	}
	return text[i]
}

// updateLines patches the line index: lines before the edit are kept, the
// rest are rescanned from the start of the edited line.
func (s *Source) updateLines(start int, text string) {
	line := s.ByteToLine(start)
	keep := s.lines[:line+1]
	from := keep[len(keep)-1]
	lines := make([]int, len(keep), len(s.lines))
	copy(lines, keep)
	for i := from; i < len(text); i++ {
		if text[i] == '\n' {
			lines = append(lines, i+1)
		}
	}
	s.lines = lines
}

func lineStarts(text string) []int {
	lines := []int{0}
	for i := 0; i < len(text); i++ {
		if text[i] == '\n' {
			lines = append(lines, i+1)
		}
	}
	return lines
}

// ByteToLine returns the zero-based line containing offset. Offsets past
// the end map to the last line.
func (s *Source) ByteToLine(offset int) int {
	return sort.Search(len(s.lines), func(i int) bool { return s.lines[i] > offset }) - 1
}

// ByteToColumn returns the zero-based column of offset, counted in
// characters.
func (s *Source) ByteToColumn(offset int) int {
	if offset > len(s.text) {
		offset = len(s.text)
	}
	line := s.ByteToLine(offset)
	return utf8.RuneCountInString(s.text[s.lines[line]:offset])
}

// LineColumnToByte converts a zero-based line and character column into a
// byte offset. It reports false if the position does not exist.
func (s *Source) LineColumnToByte(line, column int) (int, bool) {
	if line < 0 || line >= len(s.lines) || column < 0 {
		return 0, false
	}
	start := s.lines[line]
	end := len(s.text)
	if line+1 < len(s.lines) {
		end = s.lines[line+1]
	}
	offset := start
	for i := 0; i < column; i++ {
		if offset >= end {
			return 0, false
		}
		_, size := utf8.DecodeRuneInString(s.text[offset:])
		offset += size
	}
	return offset, true
}

// LineText returns the text of a zero-based line without its newline.
func (s *Source) LineText(line int) string {
	if line < 0 || line >= len(s.lines) {
		return ""
	}
	start := s.lines[line]
	end := len(s.text)
	if line+1 < len(s.lines) {
		end = s.lines[line+1]
	}
	return strings.TrimRight(s.text[start:end], "\r\n")
}

// Range finds the absolute range of node in this source. It reports false
// if the node is not part of the tree.
func (s *Source) Range(node *Node) (Range, bool) {
	var find func(n *Node, offset int) (Range, bool)
	find = func(n *Node, offset int) (Range, bool) {
		if n == node {
			return Range{offset, offset + n.length}, true
		}
		for _, c := range n.children {
			if r, ok := find(c, offset); ok {
				return r, true
			}
			offset += c.length
		}
		return Range{}, false
	}
	return find(s.root, 0)
}

// Span returns a span for rng in this source.
func (s *Source) Span(rng Range) Span { return Span{File: s.id, Range: rng} }

// Location formats offset as "file:line:column" with one-based numbers.
func (s *Source) Location(offset int) string {
	return fmt.Sprintf("%s:%d:%d", s.id, s.ByteToLine(offset)+1, s.ByteToColumn(offset)+1)
}

package syntax

import (
	"errors"
	"unicode/utf8"
)

// EOF is returned by the scanner when peeking past the last character.
const EOF rune = -1

// ErrInvalidEncoding is returned when source text is not valid UTF-8.
var ErrInvalidEncoding = errors.New("source is not valid UTF-8")

// Scanner is a cursor over the characters of a string. Positions are byte
// offsets, but every movement is by whole runes so a multi-byte character
// is never split.
type Scanner struct {
	text string
	pos  int
}

// NewScanner validates text and returns a scanner at offset 0.
func NewScanner(text string) (*Scanner, error) {
	if !utf8.ValidString(text) {
		return nil, ErrInvalidEncoding
	}
	return &Scanner{text: text}, nil
}

// newScanner skips validation. The caller guarantees valid UTF-8.
func newScanner(text string) *Scanner {
	return &Scanner{text: text}
}

// String returns the full text.
func (s *Scanner) String() string { return s.text }

// Cursor returns the current byte offset.
func (s *Scanner) Cursor() int { return s.pos }

// Done reports whether the cursor is at the end of the text.
func (s *Scanner) Done() bool { return s.pos >= len(s.text) }

// Peek returns the next character without consuming it.
func (s *Scanner) Peek() rune {
	if s.pos >= len(s.text) {
		return EOF
	}
	r, _ := utf8.DecodeRuneInString(s.text[s.pos:])
	return r
}

// PeekAt returns the character n runes ahead of the cursor.
func (s *Scanner) PeekAt(n int) rune {
	pos := s.pos
	for i := 0; i < n; i++ {
		if pos >= len(s.text) {
			return EOF
		}
		_, size := utf8.DecodeRuneInString(s.text[pos:])
		pos += size
	}
	if pos >= len(s.text) {
		return EOF
	}
	r, _ := utf8.DecodeRuneInString(s.text[pos:])
	return r
}

// Before returns the character just behind the cursor.
func (s *Scanner) Before() rune {
	if s.pos <= 0 {
		return EOF
	}
	r, _ := utf8.DecodeLastRuneInString(s.text[:s.pos])
	return r
}

// Eat consumes and returns the next character.
func (s *Scanner) Eat() rune {
	if s.pos >= len(s.text) {
		return EOF
	}
	r, size := utf8.DecodeRuneInString(s.text[s.pos:])
	s.pos += size
	return r
}

// Uneat moves the cursor back by one character.
func (s *Scanner) Uneat() {
	if s.pos <= 0 {
		return
	}
	_, size := utf8.DecodeLastRuneInString(s.text[:s.pos])
	s.pos -= size
}

// EatIf consumes the next character if it equals r.
func (s *Scanner) EatIf(r rune) bool {
	if s.Peek() == r {
		s.Eat()
		return true
	}
	return false
}

// EatIfString consumes prefix if the remaining text starts with it.
func (s *Scanner) EatIfString(prefix string) bool {
	if s.At(prefix) {
		s.pos += len(prefix)
		return true
	}
	return false
}

// EatWhile consumes characters while pred holds and returns the consumed text.
func (s *Scanner) EatWhile(pred func(rune) bool) string {
	start := s.pos
	for !s.Done() && pred(s.Peek()) {
		s.Eat()
	}
	return s.text[start:s.pos]
}

// EatUntil consumes characters until pred holds or the text ends.
func (s *Scanner) EatUntil(pred func(rune) bool) string {
	return s.EatWhile(func(r rune) bool { return !pred(r) })
}

// At reports whether the remaining text starts with prefix.
func (s *Scanner) At(prefix string) bool {
	return len(s.text)-s.pos >= len(prefix) && s.text[s.pos:s.pos+len(prefix)] == prefix
}

// Jump moves the cursor to offset, snapping back to a character boundary.
func (s *Scanner) Jump(offset int) {
	if offset < 0 {
		offset = 0
	}
	if offset > len(s.text) {
		offset = len(s.text)
	}
	for offset > 0 && offset < len(s.text) && !utf8.RuneStart(s.text[offset]) {
		offset--
	}
	s.pos = offset
}

// From returns the text between start and the cursor.
func (s *Scanner) From(start int) string {
	return s.Slice(start, s.pos)
}

// Slice returns the text between two offsets, clamped to the text.
func (s *Scanner) Slice(start, end int) string {
	if start < 0 {
		start = 0
	}
	if end > len(s.text) {
		end = len(s.text)
	}
	if start >= end {
		return ""
	}
	return s.text[start:end]
}

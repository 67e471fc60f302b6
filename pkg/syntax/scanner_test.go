package syntax

import (
	"errors"
	"testing"
	"unicode"
)

func TestScanner(t *testing.T) {
	s, err := NewScanner("añb c")
	if err != nil {
		t.Fatal(err)
	}
	if s.Peek() != 'a' || s.Before() != EOF {
		t.Fatalf("start: peek %q before %q", s.Peek(), s.Before())
	}
	s.Eat()
	if s.Peek() != 'ñ' || s.PeekAt(1) != 'b' {
		t.Errorf("peek = %q, peekAt(1) = %q", s.Peek(), s.PeekAt(1))
	}
	s.Eat()
	if s.Cursor() != 3 || s.Before() != 'ñ' {
		t.Errorf("cursor %d before %q", s.Cursor(), s.Before())
	}
	if got := s.EatWhile(unicode.IsLetter); got != "b" {
		t.Errorf("EatWhile = %q", got)
	}
	if !s.EatIf(' ') || s.EatIf('x') {
		t.Errorf("EatIf misbehaved at %d", s.Cursor())
	}
	if got := s.From(0); got != "añb " {
		t.Errorf("From(0) = %q", got)
	}
	s.Eat()
	if !s.Done() || s.Peek() != EOF || s.Eat() != EOF {
		t.Errorf("scanner not done at %d", s.Cursor())
	}
	s.Uneat()
	if s.Peek() != 'c' {
		t.Errorf("Uneat: peek = %q", s.Peek())
	}
}

func TestScannerJumpSnapsToCharacter(t *testing.T) {
	s := newScanner("añb")
	s.Jump(2) // inside ñ
	if s.Cursor() != 1 {
		t.Errorf("Jump(2) landed at %d, want 1", s.Cursor())
	}
	s.Jump(-5)
	if s.Cursor() != 0 {
		t.Errorf("Jump(-5) landed at %d", s.Cursor())
	}
	s.Jump(100)
	if !s.Done() {
		t.Errorf("Jump(100) not at end")
	}
}

func TestScannerRejectsInvalidUTF8(t *testing.T) {
	if _, err := NewScanner("a\xc3("); !errors.Is(err, ErrInvalidEncoding) {
		t.Errorf("err = %v, want %v", err, ErrInvalidEncoding)
	}
}

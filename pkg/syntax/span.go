package syntax

import (
	"fmt"
	"path"
	"strings"
)

// FileID identifies a source unit. It is a clean, slash-separated path
// relative to the project root. Detached sources use the empty ID.
type FileID string

// NewFileID normalizes p into a FileID.
func NewFileID(p string) FileID {
	p = strings.ReplaceAll(p, "\\", "/")
	p = path.Clean("/" + p)
	return FileID(strings.TrimPrefix(p, "/"))
}

// Dir returns the directory part of the id.
func (id FileID) Dir() string {
	d := path.Dir(string(id))
	if d == "." {
		return ""
	}
	return d
}

// Join resolves a relative path against the directory of id. Absolute
// paths ("/x.typ") are resolved against the project root.
func (id FileID) Join(p string) FileID {
	if strings.HasPrefix(p, "/") {
		return NewFileID(p)
	}
	return NewFileID(path.Join(id.Dir(), p))
}

func (id FileID) String() string {
	if id == "" {
		return "<detached>"
	}
	return string(id)
}

// Range is a half-open byte range.
type Range struct {
	Start, End int
}

func (r Range) Len() int { return r.End - r.Start }

// Contains reports whether offset lies in [Start, End).
func (r Range) Contains(offset int) bool { return offset >= r.Start && offset < r.End }

// Covers reports whether o lies entirely inside r.
func (r Range) Covers(o Range) bool { return r.Start <= o.Start && o.End <= r.End }

func (r Range) String() string { return fmt.Sprintf("%d..%d", r.Start, r.End) }

// Span locates a range inside a particular source.
type Span struct {
	File  FileID
	Range Range
}

// Detached reports whether the span has no source.
func (s Span) Detached() bool { return s.File == "" && s.Range == (Range{}) }

func (s Span) String() string { return fmt.Sprintf("%s@%s", s.File, s.Range) }

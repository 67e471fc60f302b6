package eval

import (
	"gotypeset/pkg/font"
	"gotypeset/pkg/memo"
	"gotypeset/pkg/model"
	"gotypeset/pkg/syntax"
)

// World provides everything evaluation and layout read from outside.
// Implementations must be safe for concurrent reads and must not change
// during one compilation. Missing resources are reported with errors
// wrapping diag.ErrNotFound or diag.ErrAccessDenied.
type World interface {
	// Library returns the global scope and base style.
	Library() *Library
	// Main returns the identity of the entry source.
	Main() syntax.FileID
	// Resolve turns a path written in from into a source identity.
	Resolve(from syntax.FileID, path string) (syntax.FileID, error)
	// Source returns the parsed source with the given identity.
	Source(id syntax.FileID) (*syntax.Source, error)
	// File returns the raw bytes of a project file.
	File(id syntax.FileID) ([]byte, error)
	// Font returns the font at index in the book, or nil.
	Font(index int) *font.Font
	// Book catalogs the available fonts.
	Book() *font.Book
}

// Library is the standard environment of a document.
type Library struct {
	Global *Scope
	Styles model.Style
	// Hash identifies the library contents for cache validation.
	Hash uint64
}

// worldInput exposes a world to the memo layer. Keys carry a one-letter
// prefix for the kind of read.
type worldInput struct {
	w World
}

func (worldInput) Namespace() string { return "world" }

func (in worldInput) Fingerprint(key string) uint64 {
	if len(key) < 2 {
		return 0
	}
	arg := key[2:]
	switch key[0] {
	case 'l':
		return in.w.Library().Hash
	case 's':
		return sourceHash(in.w.Source(syntax.FileID(arg)))
	case 'f':
		return fileHash(in.w.File(syntax.FileID(arg)))
	case 'r':
		from, path, _ := cut(arg)
		return resolveHash(in.w.Resolve(syntax.FileID(from), path))
	}
	return 0
}

func cut(s string) (string, string, bool) {
	for i := 0; i < len(s); i++ {
		if s[i] == 0 {
			return s[:i], s[i+1:], true
		}
	}
	return s, "", false
}

func errHash(err error) uint64 { return memo.HashString("error: " + err.Error()) }

func sourceHash(src *syntax.Source, err error) uint64 {
	if err != nil {
		return errHash(err)
	}
	return memo.HashString(src.Text())
}

func fileHash(data []byte, err error) uint64 {
	if err != nil {
		return errHash(err)
	}
	return memo.HashBytes(data)
}

func resolveHash(id syntax.FileID, err error) uint64 {
	if err != nil {
		return errHash(err)
	}
	return memo.HashString(string(id))
}

// tracked wraps a world and records every read.
type tracked struct {
	World
	rec *memo.Recorder
}

func (t tracked) Library() *Library {
	lib := t.World.Library()
	t.rec.Record("world", "l:", lib.Hash)
	return lib
}

func (t tracked) Resolve(from syntax.FileID, path string) (syntax.FileID, error) {
	id, err := t.World.Resolve(from, path)
	t.rec.Record("world", "r:"+string(from)+"\x00"+path, resolveHash(id, err))
	return id, err
}

func (t tracked) Source(id syntax.FileID) (*syntax.Source, error) {
	src, err := t.World.Source(id)
	t.rec.Record("world", "s:"+string(id), sourceHash(src, err))
	return src, err
}

func (t tracked) File(id syntax.FileID) ([]byte, error) {
	data, err := t.World.File(id)
	t.rec.Record("world", "f:"+string(id), fileHash(data, err))
	return data, err
}

// Track returns a view of w that records its reads into rec, and the
// memo input that validates them later.
func Track(w World, rec *memo.Recorder) (World, memo.Input) {
	if t, ok := w.(tracked); ok {
		w = t.World
	}
	return tracked{World: w, rec: rec}, worldInput{w: w}
}

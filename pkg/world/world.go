// Package world provides the resource providers the compiler reads from:
// Memory for tests and editors, System for a project directory on disk.
package world

import (
	"context"
	"errors"
	"fmt"
	"path"
	"strings"
	"sync"
	"time"
	"unicode/utf8"

	"gotypeset/pkg/diag"
	"gotypeset/pkg/eval"
	"gotypeset/pkg/font"
	"gotypeset/pkg/library"
	"gotypeset/pkg/syntax"
	"gotypeset/pkg/vfs"
)

// Option configures a world.
type Option func(*base)

// WithLibrary replaces the default standard library.
func WithLibrary(lib *eval.Library) Option { return func(b *base) { b.lib = lib } }

// WithFonts adds fonts to the embedded ones.
func WithFonts(fonts ...*font.Font) Option {
	return func(b *base) { b.fonts = append(b.fonts, fonts...) }
}

// WithMaxBytes limits the total size of the project files.
func WithMaxBytes(n int) Option { return func(b *base) { b.maxBytes = n } }

type cachedSource struct {
	version uint64
	source  *syntax.Source
}

// base implements eval.World over a vfs.Disk. Parsed sources are kept
// per file and reused while the file's version is unchanged.
type base struct {
	disk     *vfs.Disk
	lib      *eval.Library
	main     syntax.FileID
	fonts    []*font.Font
	book     *font.Book
	maxBytes int

	mu      sync.Mutex
	sources map[syntax.FileID]cachedSource
}

func newBase(main string, opts []Option) *base {
	b := &base{main: syntax.NewFileID(main), sources: make(map[syntax.FileID]cachedSource)}
	b.fonts = append(b.fonts, font.Embedded()...)
	for _, opt := range opts {
		opt(b)
	}
	if b.lib == nil {
		b.lib = library.Build()
	}
	b.disk = vfs.NewDisk(b.maxBytes)
	b.book = font.NewBook(b.fonts)
	return b
}

func (b *base) Library() *eval.Library { return b.lib }
func (b *base) Main() syntax.FileID    { return b.main }
func (b *base) Book() *font.Book       { return b.book }

// Disk exposes the underlying file store.
func (b *base) Disk() *vfs.Disk { return b.disk }

func (b *base) Font(index int) *font.Font {
	if index < 0 || index >= len(b.fonts) {
		return nil
	}
	return b.fonts[index]
}

// Resolve interprets p relative to the directory of from. Paths that leave
// the project root are denied.
func (b *base) Resolve(from syntax.FileID, p string) (syntax.FileID, error) {
	joined := p
	if !strings.HasPrefix(p, "/") {
		joined = path.Join(from.Dir(), p)
	}
	if joined == ".." || strings.HasPrefix(path.Clean(joined), "../") {
		return "", fmt.Errorf("%s: %w", p, diag.ErrAccessDenied)
	}
	return from.Join(p), nil
}

func (b *base) File(id syntax.FileID) ([]byte, error) {
	data, err := b.disk.Read(string(id))
	if err != nil {
		return nil, mapErr(id, err)
	}
	return data, nil
}

func (b *base) Source(id syntax.FileID) (*syntax.Source, error) {
	meta, err := b.disk.Stat(string(id))
	if err != nil {
		return nil, mapErr(id, err)
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	if c, ok := b.sources[id]; ok && c.version == meta.Version {
		return c.source, nil
	}
	data, err := b.disk.Read(string(id))
	if err != nil {
		return nil, mapErr(id, err)
	}
	if !utf8.Valid(data) {
		return nil, fmt.Errorf("%s: %w", id, diag.ErrInvalidEncoding)
	}
	src := syntax.NewSource(id, string(data))
	b.sources[id] = cachedSource{version: meta.Version, source: src}
	return src, nil
}

// Edit applies an incremental edit to a source and stores the new text.
// It returns the range whose syntax was rebuilt.
func (b *base) Edit(id syntax.FileID, start, end int, replacement string) (syntax.Range, error) {
	src, err := b.Source(id)
	if err != nil {
		return syntax.Range{}, err
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	rng, err := src.Edit(start, end, replacement)
	if err != nil {
		return syntax.Range{}, err
	}
	if err := b.disk.Write(string(id), []byte(src.Text())); err != nil {
		return syntax.Range{}, err
	}
	meta, err := b.disk.Stat(string(id))
	if err != nil {
		return syntax.Range{}, err
	}
	b.sources[id] = cachedSource{version: meta.Version, source: src}
	return rng, nil
}

// forget drops cached sources of the named files.
func (b *base) forget(names []string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	for _, name := range names {
		delete(b.sources, syntax.NewFileID(name))
	}
}

func mapErr(id syntax.FileID, err error) error {
	switch {
	case errors.Is(err, vfs.ErrFileNotFound):
		return fmt.Errorf("file not found: %s: %w", id, diag.ErrNotFound)
	case errors.Is(err, vfs.ErrInvalidFilename):
		return fmt.Errorf("%s: %w", id, diag.ErrAccessDenied)
	}
	return err
}

// Memory is a world whose files live only in memory.
type Memory struct {
	*base
}

// NewMemory creates a world with the given files and main file.
func NewMemory(main string, files map[string]string, opts ...Option) (*Memory, error) {
	m := &Memory{base: newBase(main, opts)}
	for name, text := range files {
		if err := m.disk.Write(name, []byte(text)); err != nil {
			return nil, fmt.Errorf("write %s: %w", name, err)
		}
	}
	return m, nil
}

// Write replaces a file wholesale.
func (m *Memory) Write(name, text string) error {
	if err := m.disk.Write(name, []byte(text)); err != nil {
		return err
	}
	m.forget([]string{name})
	return nil
}

// System is a world rooted at a project directory on the host.
type System struct {
	*base
	root string
}

// NewSystem mirrors root into memory. main is relative to root.
func NewSystem(root, main string, opts ...Option) (*System, error) {
	s := &System{base: newBase(main, opts), root: root}
	if _, err := s.disk.LoadFrom(root); err != nil {
		return nil, fmt.Errorf("load %s: %w", root, err)
	}
	return s, nil
}

// Root returns the project directory.
func (s *System) Root() string { return s.root }

// Refresh picks up changes made on the host and returns the changed files.
func (s *System) Refresh() ([]string, error) {
	changed, err := s.disk.LoadFrom(s.root)
	s.forget(changed)
	return changed, err
}

// Watch refreshes the project every interval and calls fn with the files
// that changed. It returns ctx's error once ctx is done.
func (s *System) Watch(ctx context.Context, interval time.Duration, fn func(changed []string)) error {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			changed, err := s.Refresh()
			if err != nil {
				return err
			}
			if len(changed) > 0 {
				fn(changed)
			}
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

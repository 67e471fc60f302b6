// Package publish pushes compiled documents to a socket.io server so that
// viewers can follow a document while it is being edited.
//
// Every changed layout is sent as a "document" event carrying a JSON
// header and the Zstd-compressed document as a binary attachment. When a
// recompilation yields the same pages only a "diagnostics" event is sent.
package publish

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/goccy/go-json"

	"gotypeset/pkg/ctxlog"
	"gotypeset/pkg/export"
	"gotypeset/pkg/font"
	"gotypeset/pkg/layout"
)

// Event names.
const (
	EventJoin        = "join"
	EventDocument    = "document"
	EventDiagnostics = "diagnostics"
)

// Encoding of the binary attachment of a document event.
const Encoding = "json.zst"

var ErrNotConnected = errors.New("publisher is not connected")

// Emitter sends an event. *Client implements it.
type Emitter interface {
	Emit(event string, args ...any) error
}

// Header describes a published document.
type Header struct {
	Room        string              `json:"room,omitempty"`
	Revision    uint64              `json:"revision"`
	Fingerprint string              `json:"fingerprint"`
	Pages       int                 `json:"pages"`
	Encoding    string              `json:"encoding,omitempty"`
	Diagnostics []export.Diagnostic `json:"diagnostics,omitempty"`
}

// Option configures a Publisher.
type Option func(*Publisher)

// WithRoom tags every event with a room name.
func WithRoom(room string) Option { return func(p *Publisher) { p.room = room } }

// WithBook lists the fonts of the published documents.
func WithBook(b *font.Book) Option { return func(p *Publisher) { p.book = b } }

// Publisher sends documents through an Emitter. It is safe for concurrent
// use; events leave in the order Publish is called.
type Publisher struct {
	emitter Emitter
	room    string
	book    *font.Book

	mu       sync.Mutex
	revision uint64
	last     string
}

// New creates a publisher.
func New(e Emitter, opts ...Option) *Publisher {
	p := &Publisher{emitter: e}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Revision returns the number of documents sent so far.
func (p *Publisher) Revision() uint64 {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.revision
}

// Publish sends doc. It reports whether the pages were sent, which they
// are not when they are identical to the last published ones.
func (p *Publisher) Publish(ctx context.Context, doc *layout.Document) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}
	logger := ctxlog.FromContext(ctx).With("room", p.room)

	fp, err := export.Fingerprint(doc)
	if err != nil {
		return false, fmt.Errorf("fingerprint: %w", err)
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	header := Header{
		Room:        p.room,
		Revision:    p.revision,
		Fingerprint: fp,
		Pages:       len(doc.Pages),
		Diagnostics: export.Diagnostics(doc.Diagnostics),
	}
	if fp == p.last {
		meta, err := json.Marshal(header)
		if err != nil {
			return false, err
		}
		if err := p.emitter.Emit(EventDiagnostics, json.RawMessage(meta)); err != nil {
			return false, fmt.Errorf("emit %s: %w", EventDiagnostics, err)
		}
		logger.Debug("layout unchanged", "revision", p.revision, "diagnostics", len(header.Diagnostics))
		return false, nil
	}

	var opts []export.Option
	if p.book != nil {
		opts = append(opts, export.WithBook(p.book))
	}
	data, err := export.Encode(doc, Encoding, append(opts, export.WithoutDiagnostics())...)
	if err != nil {
		return false, fmt.Errorf("encode: %w", err)
	}
	header.Revision = p.revision + 1
	header.Encoding = Encoding
	meta, err := json.Marshal(header)
	if err != nil {
		return false, err
	}
	if err := p.emitter.Emit(EventDocument, json.RawMessage(meta), data); err != nil {
		return false, fmt.Errorf("emit %s: %w", EventDocument, err)
	}
	p.revision++
	p.last = fp
	logger.Info("published", "revision", p.revision, "pages", header.Pages, "bytes", len(data), "fingerprint", fp)
	return true, nil
}

// DecodeHeader reads the header of a document or diagnostics event.
func DecodeHeader(data []byte) (*Header, error) {
	var h Header
	if err := json.Unmarshal(data, &h); err != nil {
		return nil, fmt.Errorf("decode header: %w", err)
	}
	return &h, nil
}

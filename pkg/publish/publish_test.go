package publish

import (
	"context"
	"errors"
	"testing"

	"github.com/goccy/go-json"
	"github.com/stretchr/testify/require"

	"gotypeset/pkg/compiler"
	"gotypeset/pkg/diag"
	"gotypeset/pkg/export"
	"gotypeset/pkg/layout"
	"gotypeset/pkg/syntax"
	"gotypeset/pkg/world"
)

type event struct {
	name string
	args []any
}

type recorder struct {
	events []event
	err    error
}

func (r *recorder) Emit(name string, args ...any) error {
	if r.err != nil {
		return r.err
	}
	r.events = append(r.events, event{name, args})
	return nil
}

func compile(t *testing.T, w *world.Memory) *layout.Document {
	t.Helper()
	doc, err := compiler.Compile(w)
	require.NoError(t, err)
	return doc
}

func header(t *testing.T, e event) *Header {
	t.Helper()
	raw, ok := e.args[0].(json.RawMessage)
	require.True(t, ok, "first argument is %T", e.args[0])
	h, err := DecodeHeader(raw)
	require.NoError(t, err)
	return h
}

func TestPublishDocument(t *testing.T) {
	w, err := world.NewMemory("main.typ", map[string]string{"main.typ": "Hello *world*"})
	require.NoError(t, err)
	rec := &recorder{}
	p := New(rec, WithRoom("report"), WithBook(w.Book()))

	sent, err := p.Publish(context.Background(), compile(t, w))
	require.NoError(t, err)
	require.True(t, sent)
	require.Len(t, rec.events, 1)

	e := rec.events[0]
	require.Equal(t, EventDocument, e.name)
	h := header(t, e)
	require.Equal(t, "report", h.Room)
	require.Equal(t, uint64(1), h.Revision)
	require.Equal(t, 1, h.Pages)
	require.Equal(t, Encoding, h.Encoding)
	require.Len(t, h.Fingerprint, 32)

	data, ok := e.args[1].([]byte)
	require.True(t, ok)
	require.True(t, export.IsCompressed(data))
	doc, err := export.Decode(data)
	require.NoError(t, err)
	require.Len(t, doc.Pages, 1)
	require.NotEmpty(t, doc.Fonts)
	require.Empty(t, doc.Diagnostics)
}

func TestPublishUnchangedSendsDiagnostics(t *testing.T) {
	w, err := world.NewMemory("main.typ", map[string]string{"main.typ": "Same text"})
	require.NoError(t, err)
	rec := &recorder{}
	p := New(rec)
	ctx := context.Background()

	doc := compile(t, w)
	_, err = p.Publish(ctx, doc)
	require.NoError(t, err)

	doc.Diagnostics = diag.Diagnostics{diag.Warningf(diag.Overflow, syntax.Span{File: "main.typ"}, "block overflows")}
	sent, err := p.Publish(ctx, doc)
	require.NoError(t, err)
	require.False(t, sent)
	require.Len(t, rec.events, 2)
	require.Equal(t, EventDiagnostics, rec.events[1].name)
	h := header(t, rec.events[1])
	require.Equal(t, uint64(1), h.Revision)
	require.Len(t, h.Diagnostics, 1)
	require.Equal(t, uint64(1), p.Revision())

	require.NoError(t, w.Write("main.typ", "Other text"))
	sent, err = p.Publish(ctx, compile(t, w))
	require.NoError(t, err)
	require.True(t, sent)
	require.Equal(t, uint64(2), header(t, rec.events[2]).Revision)
}

func TestPublishEmitError(t *testing.T) {
	w, err := world.NewMemory("main.typ", map[string]string{"main.typ": "Text"})
	require.NoError(t, err)
	rec := &recorder{err: ErrNotConnected}
	p := New(rec)
	doc := compile(t, w)

	_, err = p.Publish(context.Background(), doc)
	require.True(t, errors.Is(err, ErrNotConnected))
	require.Equal(t, uint64(0), p.Revision())

	rec.err = nil
	sent, err := p.Publish(context.Background(), doc)
	require.NoError(t, err)
	require.True(t, sent)
}

func TestPublishCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := New(&recorder{}).Publish(ctx, &layout.Document{})
	require.ErrorIs(t, err, context.Canceled)
}

func TestDialRejectsRelativeURL(t *testing.T) {
	_, err := Dial(context.Background(), "localhost:3000/doc", DialOptions{})
	require.Error(t, err)
}

// Package export serializes typeset documents.
//
// Documents are written as JSON, optionally Zstd-compressed. Frames keep
// their nesting and every item carries its position relative to the
// enclosing frame, so a consumer can redraw a page without the fonts'
// shaping logic: glyph ids and advances are included.
package export

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/goccy/go-json"
	"github.com/klauspost/compress/zstd"

	"gotypeset/pkg/diag"
	"gotypeset/pkg/font"
	"gotypeset/pkg/layout"
)

// FormatVersion is bumped whenever the JSON shape changes.
const FormatVersion = 1

var (
	ErrUnknownFormat = errors.New("unknown export format")
	ErrDecompress    = errors.New("decompression failed")
)

// Shared coder pair; both are safe for concurrent use.
var (
	zstdEncoder, _ = zstd.NewWriter(nil, zstd.WithEncoderLevel(zstd.SpeedDefault))
	zstdDecoder, _ = zstd.NewReader(nil)
)

// Option configures JSON.
type Option func(*options)

type options struct {
	book        *font.Book
	indent      bool
	diagnostics bool
}

// WithBook names the fonts items refer to.
func WithBook(b *font.Book) Option { return func(o *options) { o.book = b } }

// WithIndent pretty-prints the output.
func WithIndent() Option { return func(o *options) { o.indent = true } }

// WithoutDiagnostics leaves the diagnostics out.
func WithoutDiagnostics() Option { return func(o *options) { o.diagnostics = false } }

// Document is the exported form of a layout.Document.
type Document struct {
	Version     int          `json:"version"`
	Fonts       []Font       `json:"fonts,omitempty"`
	Pages       []Page       `json:"pages"`
	Diagnostics []Diagnostic `json:"diagnostics,omitempty"`
}

type Font struct {
	Index  int    `json:"index"`
	Family string `json:"family"`
	Bold   bool   `json:"bold,omitempty"`
	Italic bool   `json:"italic,omitempty"`
}

type Page struct {
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
	Frames []Frame `json:"frames"`
}

type Frame struct {
	X        float64 `json:"x"`
	Y        float64 `json:"y"`
	Width    float64 `json:"width"`
	Height   float64 `json:"height"`
	Overflow bool    `json:"overflow,omitempty"`
	Items    []Item  `json:"items"`
}

// Item is one of "text", "shape" or "group".
type Item struct {
	Kind   string  `json:"kind"`
	X      float64 `json:"x"`
	Y      float64 `json:"y"`
	Font   int     `json:"font,omitempty"`
	Size   float64 `json:"size,omitempty"`
	Fill   string  `json:"fill,omitempty"`
	Text   string  `json:"text,omitempty"`
	Glyphs []Glyph `json:"glyphs,omitempty"`
	Width  float64 `json:"width,omitempty"`
	Height float64 `json:"height,omitempty"`
	Frame  *Frame  `json:"frame,omitempty"`
}

type Glyph struct {
	ID      uint16  `json:"id"`
	Advance float64 `json:"advance"`
}

type Diagnostic struct {
	Severity string   `json:"severity"`
	Kind     string   `json:"kind"`
	File     string   `json:"file,omitempty"`
	Start    int      `json:"start"`
	End      int      `json:"end"`
	Message  string   `json:"message"`
	Hints    []string `json:"hints,omitempty"`
}

// Convert builds the exported form of doc.
func Convert(doc *layout.Document, opts ...Option) *Document {
	o := options{diagnostics: true}
	for _, opt := range opts {
		opt(&o)
	}
	out := &Document{Version: FormatVersion, Pages: make([]Page, 0, len(doc.Pages))}
	used := make(map[int]bool)
	for _, p := range doc.Pages {
		page := Page{Width: p.Width, Height: p.Height, Frames: make([]Frame, 0, len(p.Frames))}
		for _, f := range p.Frames {
			page.Frames = append(page.Frames, convertFrame(f, used))
		}
		out.Pages = append(out.Pages, page)
	}
	if o.book != nil {
		for i := 0; i < o.book.Len(); i++ {
			if used[i] {
				info := o.book.Info(i)
				out.Fonts = append(out.Fonts, Font{Index: i, Family: info.Family, Bold: info.Variant.Bold, Italic: info.Variant.Italic})
			}
		}
	}
	if o.diagnostics {
		out.Diagnostics = Diagnostics(doc.Diagnostics)
	}
	return out
}

func convertFrame(f *layout.Frame, used map[int]bool) Frame {
	out := Frame{
		X: f.Offset.X, Y: f.Offset.Y, Width: f.Size.W, Height: f.Size.H,
		Overflow: f.Overflow, Items: make([]Item, 0, len(f.Items)),
	}
	for _, it := range f.Items {
		item := Item{X: it.Pos.X, Y: it.Pos.Y}
		switch v := it.Item.(type) {
		case *layout.TextItem:
			used[v.Font] = true
			item.Kind = "text"
			item.Font, item.Size, item.Fill, item.Text, item.Width = v.Font, v.Size, v.Fill.String(), v.Text, v.Width
			item.Glyphs = make([]Glyph, len(v.Glyphs))
			for i, g := range v.Glyphs {
				item.Glyphs[i] = Glyph{ID: g.ID, Advance: g.Advance}
			}
		case *layout.ShapeItem:
			item.Kind = "shape"
			item.Width, item.Height, item.Fill = v.Size.W, v.Size.H, v.Fill.String()
		case *layout.GroupItem:
			item.Kind = "group"
			inner := convertFrame(v.Frame, used)
			item.Frame = &inner
		}
		out.Items = append(out.Items, item)
	}
	return out
}

// Diagnostics converts ds into their exported form.
func Diagnostics(ds diag.Diagnostics) []Diagnostic {
	var out []Diagnostic
	for _, d := range ds {
		out = append(out, convertDiagnostic(d))
	}
	return out
}

func convertDiagnostic(d diag.Diagnostic) Diagnostic {
	return Diagnostic{
		Severity: d.Severity.String(),
		Kind:     d.Kind.String(),
		File:     string(d.Span.File),
		Start:    d.Span.Range.Start,
		End:      d.Span.Range.End,
		Message:  d.Message,
		Hints:    d.Hints,
	}
}

// JSON encodes doc.
func JSON(doc *layout.Document, opts ...Option) ([]byte, error) {
	var o options
	for _, opt := range opts {
		opt(&o)
	}
	v := Convert(doc, opts...)
	if o.indent {
		return json.MarshalIndent(v, "", "  ")
	}
	return json.Marshal(v)
}

// Decode reads a document written by JSON or Compress(JSON(...)). Zstd
// input is recognized by its magic number.
func Decode(data []byte) (*Document, error) {
	if IsCompressed(data) {
		raw, err := Decompress(data)
		if err != nil {
			return nil, err
		}
		data = raw
	}
	var doc Document
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("decode document: %w", err)
	}
	return &doc, nil
}

var zstdMagic = []byte{0x28, 0xb5, 0x2f, 0xfd}

// IsCompressed reports whether data starts with a Zstd frame.
func IsCompressed(data []byte) bool { return bytes.HasPrefix(data, zstdMagic) }

// Compress Zstd-compresses data.
func Compress(data []byte) []byte { return zstdEncoder.EncodeAll(data, nil) }

// Decompress reverses Compress.
func Decompress(data []byte) ([]byte, error) {
	out, err := zstdDecoder.DecodeAll(data, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: zstd: %w", ErrDecompress, err)
	}
	return out, nil
}

// Format picks the export format from a file name: "json" for .json and
// "json.zst" for .json.zst.
func Format(path string) (string, error) {
	switch {
	case strings.HasSuffix(path, ".json.zst"):
		return "json.zst", nil
	case strings.HasSuffix(path, ".json"):
		return "json", nil
	}
	return "", fmt.Errorf("%s: %w", path, ErrUnknownFormat)
}

// Encode serializes doc in format.
func Encode(doc *layout.Document, format string, opts ...Option) ([]byte, error) {
	switch format {
	case "json":
		return JSON(doc, opts...)
	case "json.zst":
		data, err := JSON(doc, opts...)
		if err != nil {
			return nil, err
		}
		return Compress(data), nil
	}
	return nil, fmt.Errorf("%q: %w", format, ErrUnknownFormat)
}

// WriteFile writes doc to path in the format its extension names.
func WriteFile(path string, doc *layout.Document, opts ...Option) error {
	format, err := Format(path)
	if err != nil {
		return err
	}
	data, err := Encode(doc, format, opts...)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o644)
}

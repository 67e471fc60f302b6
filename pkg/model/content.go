// Package model defines the content tree produced by evaluation and
// consumed by layout. Content holds copies of everything layout needs and
// never points back into syntax trees.
package model

import (
	"strings"

	"gotypeset/pkg/syntax"
)

// Content is a node of the content tree. The set of implementations is
// closed; consumers switch over the concrete types.
type Content interface {
	isContent()
}

// Text is a run of text.
type Text struct {
	Text string
	Span syntax.Span
}

// Space is inter-word whitespace.
type Space struct{}

// Linebreak forces a new line.
type Linebreak struct{}

// Parbreak separates paragraphs.
type Parbreak struct{}

// Pagebreak forces a new page.
type Pagebreak struct{}

// Sequence is an ordered list of content.
type Sequence struct {
	Children []Content
}

// Styled applies Style to Child and everything below it.
type Styled struct {
	Style Style
	Child Content
}

// Heading is a section title of a level starting at one.
type Heading struct {
	Level int
	Body  Content
}

// ListItem is a bullet list entry.
type ListItem struct {
	Body Content
}

// Raw is verbatim text, set in a monospace font.
type Raw struct {
	Text  string
	Block bool
}

// Block is an unsplittable box. Unset dimensions follow the body.
type Block struct {
	Width  *Length
	Height *Length
	Fill   *Color
	Body   Content
}

// VSpace inserts vertical space.
type VSpace struct {
	Amount Length
}

// ErrorContent stands in for content that failed to evaluate.
type ErrorContent struct {
	Message string
	Span    syntax.Span
}

func (*Text) isContent()         {}
func (*Space) isContent()        {}
func (*Linebreak) isContent()    {}
func (*Parbreak) isContent()     {}
func (*Pagebreak) isContent()    {}
func (*Sequence) isContent()     {}
func (*Styled) isContent()       {}
func (*Heading) isContent()      {}
func (*ListItem) isContent()     {}
func (*Raw) isContent()          {}
func (*Block) isContent()        {}
func (*VSpace) isContent()       {}
func (*ErrorContent) isContent() {}

// Empty returns content with nothing in it.
func Empty() Content { return &Sequence{} }

// Join concatenates content, flattening nested sequences.
func Join(parts ...Content) Content {
	var children []Content
	for _, p := range parts {
		switch p := p.(type) {
		case nil:
		case *Sequence:
			children = append(children, p.Children...)
		default:
			children = append(children, p)
		}
	}
	if len(children) == 1 {
		return children[0]
	}
	return &Sequence{Children: children}
}

// Strong marks body as bold.
func Strong(body Content) Content {
	bold := true
	return &Styled{Style: Style{Bold: &bold}, Child: body}
}

// Emph marks body as italic.
func Emph(body Content) Content {
	italic := true
	return &Styled{Style: Style{Italic: &italic}, Child: body}
}

// PlainText extracts the text of c without any styling.
func PlainText(c Content) string {
	var sb strings.Builder
	plain(&sb, c)
	return sb.String()
}

func plain(sb *strings.Builder, c Content) {
	switch c := c.(type) {
	case *Text:
		sb.WriteString(c.Text)
	case *Space:
		sb.WriteByte(' ')
	case *Linebreak, *Parbreak:
		sb.WriteByte('\n')
	case *Pagebreak, *VSpace, *ErrorContent, nil:
	case *Sequence:
		for _, child := range c.Children {
			plain(sb, child)
		}
	case *Styled:
		plain(sb, c.Child)
	case *Heading:
		plain(sb, c.Body)
	case *ListItem:
		plain(sb, c.Body)
	case *Raw:
		sb.WriteString(c.Text)
	case *Block:
		plain(sb, c.Body)
	}
}

// IsEmpty reports whether c has no visible parts.
func IsEmpty(c Content) bool {
	switch c := c.(type) {
	case nil:
		return true
	case *Sequence:
		for _, child := range c.Children {
			if !IsEmpty(child) {
				return false
			}
		}
		return true
	case *Styled:
		return IsEmpty(c.Child)
	}
	return false
}

package main

import (
	"fmt"
	"io"
	"strings"

	"gotypeset/pkg/layout"
	"gotypeset/pkg/model"
	"gotypeset/pkg/syntax"
)

func dumpTokens(w io.Writer, root *syntax.Node) {
	offset := 0
	for _, leaf := range root.Leaves() {
		if !leaf.Kind().IsTrivia() || leaf.Kind().IsError() {
			fmt.Fprintf(w, "  %4d  %-14s %q\n", offset, leaf.Kind(), leaf.Text())
		}
		offset += leaf.Len()
	}
}

func dumpContent(w io.Writer, c model.Content, depth int) {
	indent := strings.Repeat("  ", depth+1)
	switch c := c.(type) {
	case *model.Text:
		fmt.Fprintf(w, "%sText %q\n", indent, c.Text)
	case *model.Space:
		fmt.Fprintf(w, "%sSpace\n", indent)
	case *model.Linebreak:
		fmt.Fprintf(w, "%sLinebreak\n", indent)
	case *model.Parbreak:
		fmt.Fprintf(w, "%sParbreak\n", indent)
	case *model.Pagebreak:
		fmt.Fprintf(w, "%sPagebreak\n", indent)
	case *model.Sequence:
		fmt.Fprintf(w, "%sSequence (%d)\n", indent, len(c.Children))
		for _, child := range c.Children {
			dumpContent(w, child, depth+1)
		}
	case *model.Styled:
		fmt.Fprintf(w, "%sStyled %s\n", indent, styleString(c.Style))
		dumpContent(w, c.Child, depth+1)
	case *model.Heading:
		fmt.Fprintf(w, "%sHeading level=%d\n", indent, c.Level)
		dumpContent(w, c.Body, depth+1)
	case *model.ListItem:
		fmt.Fprintf(w, "%sListItem\n", indent)
		dumpContent(w, c.Body, depth+1)
	case *model.Raw:
		fmt.Fprintf(w, "%sRaw block=%t %q\n", indent, c.Block, c.Text)
	case *model.Block:
		var attrs []string
		if c.Width != nil {
			attrs = append(attrs, "width="+c.Width.String())
		}
		if c.Height != nil {
			attrs = append(attrs, "height="+c.Height.String())
		}
		if c.Fill != nil {
			attrs = append(attrs, "fill="+c.Fill.String())
		}
		fmt.Fprintf(w, "%sBlock %s\n", indent, strings.Join(attrs, " "))
		if c.Body != nil {
			dumpContent(w, c.Body, depth+1)
		}
	case *model.VSpace:
		fmt.Fprintf(w, "%sVSpace %s\n", indent, c.Amount)
	case *model.ErrorContent:
		fmt.Fprintf(w, "%sError %q\n", indent, c.Message)
	default:
		fmt.Fprintf(w, "%s%T\n", indent, c)
	}
}

func styleString(s model.Style) string {
	var parts []string
	if s.Font != nil {
		parts = append(parts, fmt.Sprintf("font=%q", *s.Font))
	}
	if s.Size != nil {
		parts = append(parts, "size="+s.Size.String())
	}
	if s.Bold != nil {
		parts = append(parts, fmt.Sprintf("bold=%t", *s.Bold))
	}
	if s.Italic != nil {
		parts = append(parts, fmt.Sprintf("italic=%t", *s.Italic))
	}
	if s.Fill != nil {
		parts = append(parts, "fill="+s.Fill.String())
	}
	if s.Leading != nil {
		parts = append(parts, "leading="+s.Leading.String())
	}
	if s.PageWidth != nil {
		parts = append(parts, fmt.Sprintf("page.width=%gpt", *s.PageWidth))
	}
	if s.PageHeight != nil {
		parts = append(parts, fmt.Sprintf("page.height=%gpt", *s.PageHeight))
	}
	if s.PageMargin != nil {
		parts = append(parts, fmt.Sprintf("page.margin=%gpt", *s.PageMargin))
	}
	return strings.Join(parts, " ")
}

func dumpFrames(w io.Writer, doc *layout.Document) {
	for i, page := range doc.Pages {
		fmt.Fprintf(w, "  page %d  %gx%g\n", i+1, page.Width, page.Height)
		for _, f := range page.Frames {
			dumpFrame(w, f, 2)
		}
	}
}

func dumpFrame(w io.Writer, f *layout.Frame, depth int) {
	indent := strings.Repeat("  ", depth)
	overflow := ""
	if f.Overflow {
		overflow = " overflow"
	}
	fmt.Fprintf(w, "%sframe @(%.2f, %.2f) %.2fx%.2f%s\n", indent, f.Offset.X, f.Offset.Y, f.Size.W, f.Size.H, overflow)
	for _, it := range f.Items {
		switch v := it.Item.(type) {
		case *layout.TextItem:
			fmt.Fprintf(w, "%s  text @(%.2f, %.2f) font=%d size=%g %q\n", indent, it.Pos.X, it.Pos.Y, v.Font, v.Size, v.Text)
		case *layout.ShapeItem:
			fmt.Fprintf(w, "%s  shape @(%.2f, %.2f) %.2fx%.2f %s\n", indent, it.Pos.X, it.Pos.Y, v.Size.W, v.Size.H, v.Fill)
		case *layout.GroupItem:
			fmt.Fprintf(w, "%s  group @(%.2f, %.2f)\n", indent, it.Pos.X, it.Pos.Y)
			dumpFrame(w, v.Frame, depth+2)
		}
	}
}

package library

import (
	"fmt"
	"strings"

	"gotypeset/pkg/eval"
	"gotypeset/pkg/model"
)

func defineText(scope *eval.Scope) {
	define(scope, eval.NewFunc("text", textFunc).WithSet(textStyle))
	define(scope, eval.NewFunc("strong", func(args *eval.Args) (eval.Value, error) {
		body, err := args.Expect("body")
		if err != nil {
			return nil, err
		}
		return eval.Content{Content: model.Strong(eval.ToContent(body))}, nil
	}))
	define(scope, eval.NewFunc("emph", func(args *eval.Args) (eval.Value, error) {
		body, err := args.Expect("body")
		if err != nil {
			return nil, err
		}
		return eval.Content{Content: model.Emph(eval.ToContent(body))}, nil
	}))
	define(scope, eval.NewFunc("raw", rawFunc))
	define(scope, eval.NewFunc("linebreak", func(args *eval.Args) (eval.Value, error) {
		return eval.Content{Content: &model.Linebreak{}}, nil
	}))
	define(scope, eval.NewFunc("upper", caseFunc(strings.ToUpper)))
	define(scope, eval.NewFunc("lower", caseFunc(strings.ToLower)))
}

// text applies text properties to its body.
func textFunc(args *eval.Args) (eval.Value, error) {
	style, err := textStyle(args)
	if err != nil {
		return nil, err
	}
	body, err := args.Expect("body")
	if err != nil {
		return nil, err
	}
	return eval.Content{Content: &model.Styled{Style: style, Child: eval.ToContent(body)}}, nil
}

func textStyle(args *eval.Args) (model.Style, error) {
	var s model.Style
	if v, ok := args.Named("font"); ok {
		font, err := eval.ToStr(v)
		if err != nil {
			return s, err
		}
		s.Font = &font
	}
	if v, ok := args.Named("size"); ok {
		size, err := eval.ToLength(v)
		if err != nil {
			return s, err
		}
		if size.Ratio != 0 {
			return s, fmt.Errorf("text size must not be relative to the page")
		}
		s.Size = &size
	}
	if v, ok := args.Named("fill"); ok {
		fill, err := eval.ToColor(v)
		if err != nil {
			return s, err
		}
		s.Fill = &fill
	}
	if v, ok := args.Named("weight"); ok {
		bold, err := weight(v)
		if err != nil {
			return s, err
		}
		s.Bold = &bold
	}
	if v, ok := args.Named("style"); ok {
		name, err := eval.ToStr(v)
		if err != nil {
			return s, err
		}
		var italic bool
		switch name {
		case "italic", "oblique":
			italic = true
		case "normal":
		default:
			return s, fmt.Errorf("unknown font style %q", name)
		}
		s.Italic = &italic
	}
	if v, ok := args.Named("leading"); ok {
		leading, err := eval.ToLength(v)
		if err != nil {
			return s, err
		}
		s.Leading = &leading
	}
	return s, nil
}

func weight(v eval.Value) (bool, error) {
	switch v := v.(type) {
	case eval.Int:
		return v >= 600, nil
	case eval.Str:
		switch v {
		case "bold", "semibold", "extrabold", "black":
			return true, nil
		case "regular", "normal", "light", "thin":
			return false, nil
		}
		return false, fmt.Errorf("unknown font weight %q", string(v))
	}
	return false, fmt.Errorf("expected %s, found %s", eval.Describe("integer", "string"), eval.TypeName(v))
}

func rawFunc(args *eval.Args) (eval.Value, error) {
	block := false
	if v, ok := args.Named("block"); ok {
		var err error
		if block, err = eval.ToBool(v); err != nil {
			return nil, err
		}
	}
	// Accepted for compatibility; there is no highlighting.
	args.Named("lang")
	v, err := args.Expect("text")
	if err != nil {
		return nil, err
	}
	text, err := eval.ToStr(v)
	if err != nil {
		return nil, err
	}
	return eval.Content{Content: &model.Raw{Text: text, Block: block}}, nil
}

func caseFunc(convert func(string) string) eval.NativeFunc {
	return func(args *eval.Args) (eval.Value, error) {
		v, err := args.Expect("text")
		if err != nil {
			return nil, err
		}
		switch v := v.(type) {
		case eval.Str:
			return eval.Str(convert(string(v))), nil
		case eval.Content:
			return eval.Content{Content: mapText(v.Content, convert)}, nil
		}
		return nil, fmt.Errorf("expected %s, found %s", eval.Describe("string", "content"), eval.TypeName(v))
	}
}

// mapText rebuilds c with convert applied to every text leaf.
func mapText(c model.Content, convert func(string) string) model.Content {
	switch c := c.(type) {
	case *model.Text:
		return &model.Text{Text: convert(c.Text), Span: c.Span}
	case *model.Sequence:
		children := make([]model.Content, len(c.Children))
		for i, child := range c.Children {
			children[i] = mapText(child, convert)
		}
		return &model.Sequence{Children: children}
	case *model.Styled:
		return &model.Styled{Style: c.Style, Child: mapText(c.Child, convert)}
	case *model.Heading:
		return &model.Heading{Level: c.Level, Body: mapText(c.Body, convert)}
	case *model.ListItem:
		return &model.ListItem{Body: mapText(c.Body, convert)}
	case *model.Block:
		out := *c
		out.Body = mapText(c.Body, convert)
		return &out
	}
	return c
}

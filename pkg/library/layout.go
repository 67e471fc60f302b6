package library

import (
	"fmt"

	"gotypeset/pkg/eval"
	"gotypeset/pkg/model"
)

func defineLayout(scope *eval.Scope) {
	define(scope, eval.NewFunc("heading", headingFunc))
	define(scope, eval.NewFunc("block", blockFunc))
	define(scope, eval.NewFunc("pagebreak", func(args *eval.Args) (eval.Value, error) {
		return eval.Content{Content: &model.Pagebreak{}}, nil
	}))
	define(scope, eval.NewFunc("v", func(args *eval.Args) (eval.Value, error) {
		v, err := args.Expect("amount")
		if err != nil {
			return nil, err
		}
		amount, err := eval.ToLength(v)
		if err != nil {
			return nil, err
		}
		return eval.Content{Content: &model.VSpace{Amount: amount}}, nil
	}))
	define(scope, eval.NewFunc("page", func(args *eval.Args) (eval.Value, error) {
		return nil, fmt.Errorf("page can only be used in set rules")
	}).WithSet(pageStyle))
}

func headingFunc(args *eval.Args) (eval.Value, error) {
	level := int64(1)
	if v, ok := args.Named("level"); ok {
		var err error
		if level, err = eval.ToInt(v); err != nil {
			return nil, err
		}
		if level < 1 {
			return nil, fmt.Errorf("heading level must be at least 1")
		}
	}
	body, err := args.Expect("body")
	if err != nil {
		return nil, err
	}
	return eval.Content{Content: &model.Heading{Level: int(level), Body: eval.ToContent(body)}}, nil
}

func blockFunc(args *eval.Args) (eval.Value, error) {
	b := &model.Block{Body: model.Empty()}
	for _, dim := range []struct {
		name string
		dst  **model.Length
	}{{"width", &b.Width}, {"height", &b.Height}} {
		v, ok := args.Named(dim.name)
		if !ok {
			continue
		}
		if _, auto := v.(eval.Auto); auto {
			continue
		}
		l, err := eval.ToLength(v)
		if err != nil {
			return nil, err
		}
		*dim.dst = &l
	}
	if v, ok := args.Named("fill"); ok {
		if _, none := v.(eval.None); !none {
			c, err := eval.ToColor(v)
			if err != nil {
				return nil, err
			}
			b.Fill = &c
		}
	}
	if v, ok := args.Eat(); ok {
		b.Body = eval.ToContent(v)
	}
	return eval.Content{Content: b}, nil
}

func pageStyle(args *eval.Args) (model.Style, error) {
	var s model.Style
	for _, dim := range []struct {
		name string
		dst  **float64
	}{{"width", &s.PageWidth}, {"height", &s.PageHeight}, {"margin", &s.PageMargin}} {
		v, ok := args.Named(dim.name)
		if !ok {
			continue
		}
		pt, err := eval.ToAbs(v)
		if err != nil {
			return s, err
		}
		if pt < 0 || (dim.name != "margin" && pt == 0) {
			return s, fmt.Errorf("page %s must be positive", dim.name)
		}
		*dim.dst = &pt
	}
	if v, ok := args.Named("paper"); ok {
		name, err := eval.ToStr(v)
		if err != nil {
			return s, err
		}
		size, ok := papers[name]
		if !ok {
			return s, fmt.Errorf("unknown paper size %q", name)
		}
		w, h := size[0], size[1]
		if s.PageWidth == nil {
			s.PageWidth = &w
		}
		if s.PageHeight == nil {
			s.PageHeight = &h
		}
	}
	if s.PageMargin != nil {
		for _, side := range []*float64{s.PageWidth, s.PageHeight} {
			if side != nil && 2**s.PageMargin >= *side {
				return s, fmt.Errorf("page margin must be less than half the page size")
			}
		}
	}
	return s, nil
}

// papers maps paper names to width and height in points.
var papers = map[string][2]float64{
	"a4":        {595.28, 841.89},
	"a5":        {419.53, 595.28},
	"us-letter": {612, 792},
	"us-legal":  {612, 1008},
}

// Paper returns the size of a named paper in points.
func Paper(name string) (width, height float64, ok bool) {
	size, ok := papers[name]
	return size[0], size[1], ok
}

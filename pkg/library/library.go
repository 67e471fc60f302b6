// Package library defines the builtin functions and values every document
// sees in its global scope.
package library

import (
	"sort"

	"gotypeset/pkg/eval"
	"gotypeset/pkg/memo"
	"gotypeset/pkg/model"
)

// version is mixed into the library hash so that caches built against an
// older set of builtins are never reused.
const version = "gotypeset-library-1"

// Option customizes the library.
type Option func(*builder)

type builder struct {
	inputs map[string]eval.Value
	styles model.Style
}

// WithInputs exposes values to documents as sys.inputs.
func WithInputs(inputs map[string]eval.Value) Option {
	return func(b *builder) {
		for k, v := range inputs {
			b.inputs[k] = v
		}
	}
}

// WithStyles overrides properties of the base style. Unset fields of s
// keep their defaults.
func WithStyles(s model.Style) Option {
	return func(b *builder) { b.styles = overlay(b.styles, s) }
}

// Build assembles the standard library.
func Build(opts ...Option) *eval.Library {
	b := &builder{inputs: make(map[string]eval.Value), styles: model.Base()}
	for _, opt := range opts {
		opt(b)
	}

	global := eval.NewScope()
	defineText(global)
	defineLayout(global)
	defineFoundations(global)
	global.Define("calc", calcModule())

	keys := make([]string, 0, len(b.inputs))
	for k := range b.inputs {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	vals := make([]eval.Value, len(keys))
	for i, k := range keys {
		vals[i] = b.inputs[k]
	}
	inputs := eval.NewDict(keys, vals)
	global.Define("sys", eval.NewDict(
		[]string{"inputs", "version"},
		[]eval.Value{inputs, eval.Str(version)},
	))

	h := memo.NewHasher().String(version).Uint64(model.HashStyle(b.styles))
	for i, k := range keys {
		h.String(k).String(eval.Repr(vals[i]))
	}
	return &eval.Library{Global: global, Styles: b.styles, Hash: h.Sum()}
}

// overlay returns base with every property set in top replacing it.
func overlay(base, top model.Style) model.Style {
	if top.Font != nil {
		base.Font = top.Font
	}
	if top.Size != nil {
		base.Size = top.Size
	}
	if top.Bold != nil {
		base.Bold = top.Bold
	}
	if top.Italic != nil {
		base.Italic = top.Italic
	}
	if top.Fill != nil {
		base.Fill = top.Fill
	}
	if top.Leading != nil {
		base.Leading = top.Leading
	}
	if top.PageWidth != nil {
		base.PageWidth = top.PageWidth
	}
	if top.PageHeight != nil {
		base.PageHeight = top.PageHeight
	}
	if top.PageMargin != nil {
		base.PageMargin = top.PageMargin
	}
	return base
}

func define(scope *eval.Scope, f *eval.Func) { scope.Define(f.Name(), f) }

// Package compiler drives a compilation: it loads the main source,
// evaluates it into content and typesets the content into a document.
//
// Pipeline: Source → Eval → Typeset → Document
package compiler

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"gotypeset/pkg/ctxlog"
	"gotypeset/pkg/diag"
	"gotypeset/pkg/eval"
	"gotypeset/pkg/layout"
	"gotypeset/pkg/memo"
	"gotypeset/pkg/syntax"
)

// DefaultMaxAge is how many compilations a cache entry survives unused.
const DefaultMaxAge = 8

// Option configures a Compiler.
type Option func(*Compiler)

// WithLogger sets the logger for stage timings and cache statistics.
func WithLogger(l *slog.Logger) Option { return func(c *Compiler) { c.logger = l } }

// WithCache shares a memo cache between compilers.
func WithCache(cache *memo.Cache) Option { return func(c *Compiler) { c.cache = cache } }

// WithBreaker selects the line breaker for paragraphs.
func WithBreaker(b layout.LineBreaker) Option { return func(c *Compiler) { c.breaker = b } }

// WithMaxAge sets the number of compilations after which unused cache
// entries are evicted. Zero disables eviction.
func WithMaxAge(n uint64) Option { return func(c *Compiler) { c.maxAge = n } }

// Compiler compiles documents and keeps a memo cache between calls so
// that recompiling after a small change is cheap. It is safe for
// concurrent use.
type Compiler struct {
	cache   *memo.Cache
	logger  *slog.Logger
	breaker layout.LineBreaker
	maxAge  uint64
}

// New creates a compiler with a fresh cache.
func New(opts ...Option) *Compiler {
	c := &Compiler{maxAge: DefaultMaxAge}
	for _, opt := range opts {
		opt(c)
	}
	if c.cache == nil {
		c.cache = memo.New()
	}
	if c.logger == nil {
		c.logger = ctxlog.Discard()
	}
	return c
}

// Cache returns the compiler's memo cache.
func (c *Compiler) Cache() *memo.Cache { return c.cache }

// Compile compiles the world's main source with a throwaway compiler.
func Compile(world eval.World) (*layout.Document, error) {
	return New().Compile(context.Background(), world)
}

// Compile parses, evaluates and typesets the main source of world.
// Fatal problems are returned as a diag.Diagnostics error. Everything
// else, from syntax errors to overflowing blocks, ends up in the
// document's Diagnostics.
func (c *Compiler) Compile(ctx context.Context, world eval.World) (*layout.Document, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	logger := c.logger.With("main", string(world.Main()))
	start := time.Now()

	src, err := world.Source(world.Main())
	if err != nil {
		return nil, diag.Fatal(diag.FromError(syntax.Span{File: world.Main()}, err))
	}

	tracer := diag.NewTracer()
	t := time.Now()
	mod, err := eval.Eval(world, eval.NewRoute(), tracer, src, eval.WithCache(c.cache))
	if err != nil {
		return nil, fatal(err, tracer)
	}
	logger.Debug("evaluated", "duration", time.Since(t))

	opts := []layout.Option{layout.WithCache(c.cache), layout.WithStyles(world.Library().Styles)}
	if c.breaker != nil {
		opts = append(opts, layout.WithBreaker(c.breaker))
	}
	t = time.Now()
	doc, err := layout.Typeset(world, tracer, mod.Content, opts...)
	if err != nil {
		d := diag.Errorf(diag.ResourceNotFound, syntax.Span{File: world.Main()}, "%v", err)
		return nil, fatal(diag.Fatal(d), tracer)
	}
	logger.Debug("typeset", "duration", time.Since(t), "pages", len(doc.Pages))
	doc.Diagnostics = tracer.Diagnostics()

	c.cache.Tick()
	evicted := 0
	if c.maxAge > 0 {
		evicted = c.cache.Evict(c.maxAge)
	}
	stats := c.cache.Stats()
	logger.Debug("compiled",
		"duration", time.Since(start),
		"diagnostics", len(doc.Diagnostics),
		"cache_hits", stats.Hits,
		"cache_misses", stats.Misses,
		"evicted", evicted)
	return doc, nil
}

// fatal puts the diagnostics collected before a fatal error in front of
// it.
func fatal(err error, tracer *diag.Tracer) error {
	var ds diag.Diagnostics
	if !errors.As(err, &ds) {
		return err
	}
	out := tracer.Diagnostics().Errors()
	return append(out, ds...)
}

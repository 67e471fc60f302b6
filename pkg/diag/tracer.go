package diag

import (
	"sync"

	"gotypeset/pkg/syntax"
)

// Tracer collects the non-fatal diagnostics of one pipeline call and,
// when asked to inspect a span, the values observed there. It is owned by
// the caller and passed down explicitly.
type Tracer struct {
	mu       sync.Mutex
	diags    Diagnostics
	seen     map[diagKey]bool
	inspect  syntax.Span
	inspects bool
	values   []any
}

type diagKey struct {
	kind    Kind
	span    syntax.Span
	message string
}

// NewTracer returns an empty tracer.
func NewTracer() *Tracer { return &Tracer{seen: make(map[diagKey]bool)} }

// Warn records d. Repeated reports of the same finding are kept once.
func (t *Tracer) Warn(d Diagnostic) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.seen == nil {
		t.seen = make(map[diagKey]bool)
	}
	k := diagKey{d.Kind, d.Span, d.Message}
	if t.seen[k] {
		return
	}
	t.seen[k] = true
	t.diags = append(t.diags, d)
}

// Extend records every entry of ds.
func (t *Tracer) Extend(ds Diagnostics) {
	for _, d := range ds {
		t.Warn(d)
	}
}

// Diagnostics returns a copy of everything recorded so far, in order.
func (t *Tracer) Diagnostics() Diagnostics {
	t.mu.Lock()
	defer t.mu.Unlock()
	out := make(Diagnostics, len(t.diags))
	copy(out, t.diags)
	return out
}

// Len returns the number of recorded diagnostics.
func (t *Tracer) Len() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.diags)
}

// Inspect asks the evaluator to record every value produced by the node at
// span.
func (t *Tracer) Inspect(span syntax.Span) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.inspect = span
	t.inspects = true
}

// Inspected returns the span under inspection, if any.
func (t *Tracer) Inspected() (syntax.Span, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.inspect, t.inspects
}

// Observe records v if span is the inspected span.
func (t *Tracer) Observe(span syntax.Span, v any) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.inspects && span == t.inspect {
		t.values = append(t.values, v)
	}
}

// Values returns the observed values.
func (t *Tracer) Values() []any {
	t.mu.Lock()
	defer t.mu.Unlock()
	return append([]any(nil), t.values...)
}

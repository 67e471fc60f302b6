// Package diag holds the diagnostics produced by every compilation stage:
// severities, the error taxonomy, sentinel errors shared with resource
// providers, and the Tracer that collects non-fatal findings.
package diag

import (
	"errors"
	"fmt"
	"strings"

	"gotypeset/pkg/syntax"
)

// Sentinel errors for resource providers. Callers match them with errors.Is.
var (
	ErrNotFound        = errors.New("file not found")
	ErrAccessDenied    = errors.New("access denied")
	ErrInvalidEncoding = syntax.ErrInvalidEncoding
)

// Severity tells whether a diagnostic blocks a result.
type Severity uint8

const (
	Error Severity = iota
	Warning
)

func (s Severity) String() string {
	if s == Warning {
		return "warning"
	}
	return "error"
}

// Kind classifies a diagnostic by its cause.
type Kind uint8

const (
	SyntaxError Kind = iota
	EvalError
	InvalidEncoding
	ResourceNotFound
	AccessDenied
	CyclicEvaluation
	DepthExceeded
	Overflow
	FontFallback
)

var kindNames = [...]string{
	SyntaxError:      "syntax error",
	EvalError:        "evaluation error",
	InvalidEncoding:  "invalid encoding",
	ResourceNotFound: "resource not found",
	AccessDenied:     "access denied",
	CyclicEvaluation: "cyclic evaluation",
	DepthExceeded:    "maximum depth exceeded",
	Overflow:         "overflow",
	FontFallback:     "font fallback",
}

func (k Kind) String() string {
	if int(k) < len(kindNames) {
		return kindNames[k]
	}
	return fmt.Sprintf("Kind(%d)", int(k))
}

// Fatal reports whether diagnostics of this kind abort evaluation.
func (k Kind) Fatal() bool {
	return k == CyclicEvaluation || k == DepthExceeded || k == InvalidEncoding
}

// Diagnostic is one finding, located by a span.
type Diagnostic struct {
	Severity Severity
	Kind     Kind
	Span     syntax.Span
	Message  string
	Hints    []string
}

// Errorf creates an error diagnostic.
func Errorf(kind Kind, span syntax.Span, format string, args ...any) Diagnostic {
	return Diagnostic{Severity: Error, Kind: kind, Span: span, Message: fmt.Sprintf(format, args...)}
}

// Warningf creates a warning diagnostic.
func Warningf(kind Kind, span syntax.Span, format string, args ...any) Diagnostic {
	return Diagnostic{Severity: Warning, Kind: kind, Span: span, Message: fmt.Sprintf(format, args...)}
}

// WithHint returns a copy of d with an extra hint.
func (d Diagnostic) WithHint(format string, args ...any) Diagnostic {
	hints := make([]string, len(d.Hints), len(d.Hints)+1)
	copy(hints, d.Hints)
	d.Hints = append(hints, fmt.Sprintf(format, args...))
	return d
}

func (d Diagnostic) Error() string {
	var sb strings.Builder
	if !d.Span.Detached() {
		fmt.Fprintf(&sb, "%s: ", d.Span)
	}
	fmt.Fprintf(&sb, "%s: %s", d.Severity, d.Message)
	for _, h := range d.Hints {
		fmt.Fprintf(&sb, " (hint: %s)", h)
	}
	return sb.String()
}

// FromError converts a resource error into a diagnostic at span.
func FromError(span syntax.Span, err error) Diagnostic {
	switch {
	case errors.Is(err, ErrNotFound):
		return Errorf(ResourceNotFound, span, "%v", err)
	case errors.Is(err, ErrAccessDenied):
		return Errorf(AccessDenied, span, "%v", err)
	case errors.Is(err, ErrInvalidEncoding):
		return Errorf(InvalidEncoding, span, "%v", err)
	}
	var d Diagnostic
	if errors.As(err, &d) {
		return d
	}
	return Errorf(EvalError, span, "%v", err)
}

// FromSyntax converts the syntax errors of a source into diagnostics.
func FromSyntax(src *syntax.Source) Diagnostics {
	var out Diagnostics
	for _, e := range src.Errors() {
		out = append(out, Errorf(SyntaxError, src.Span(e.Range), "%s", e.Message))
	}
	return out
}

// Diagnostics is a list of findings. As an error it stands for a failed
// stage; the list then holds at least one fatal entry.
type Diagnostics []Diagnostic

func (ds Diagnostics) Error() string {
	switch len(ds) {
	case 0:
		return "no diagnostics"
	case 1:
		return ds[0].Error()
	}
	msgs := make([]string, len(ds))
	for i, d := range ds {
		msgs[i] = d.Error()
	}
	return fmt.Sprintf("%d diagnostics:\n%s", len(ds), strings.Join(msgs, "\n"))
}

// Errors returns the entries with error severity.
func (ds Diagnostics) Errors() Diagnostics { return ds.filter(Error) }

// Warnings returns the entries with warning severity.
func (ds Diagnostics) Warnings() Diagnostics { return ds.filter(Warning) }

func (ds Diagnostics) filter(s Severity) Diagnostics {
	var out Diagnostics
	for _, d := range ds {
		if d.Severity == s {
			out = append(out, d)
		}
	}
	return out
}

// Has reports whether any entry is of kind k.
func (ds Diagnostics) Has(k Kind) bool {
	for _, d := range ds {
		if d.Kind == k {
			return true
		}
	}
	return false
}

// First returns the first entry of kind k.
func (ds Diagnostics) First(k Kind) (Diagnostic, bool) {
	for _, d := range ds {
		if d.Kind == k {
			return d, true
		}
	}
	return Diagnostic{}, false
}

// Fatal wraps a single fatal diagnostic as an error.
func Fatal(d Diagnostic) error { return Diagnostics{d} }

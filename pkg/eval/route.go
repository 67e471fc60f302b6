package eval

import (
	"strings"

	"gotypeset/pkg/syntax"
)

// MaxRouteDepth bounds how deeply imports and includes may nest.
const MaxRouteDepth = 64

// Route is the chain of source units currently being evaluated. It is
// immutable; Push returns a longer route and leaves the receiver alone.
// The nil route is empty.
type Route struct {
	parent *Route
	id     syntax.FileID
	len    int
}

// NewRoute returns the empty route.
func NewRoute() *Route { return nil }

// Push returns the route extended by id.
func (r *Route) Push(id syntax.FileID) *Route {
	return &Route{parent: r, id: id, len: r.Len() + 1}
}

// Contains reports whether id is being evaluated.
func (r *Route) Contains(id syntax.FileID) bool {
	for link := r; link != nil; link = link.parent {
		if link.id == id {
			return true
		}
	}
	return false
}

// Len returns the number of units on the route.
func (r *Route) Len() int {
	if r == nil {
		return 0
	}
	return r.len
}

// Within reports whether the route has room for one more unit.
func (r *Route) Within() bool { return r.Len() < MaxRouteDepth }

// IDs lists the units from the outermost to the innermost.
func (r *Route) IDs() []syntax.FileID {
	out := make([]syntax.FileID, r.Len())
	for link, i := r, r.Len()-1; link != nil; link, i = link.parent, i-1 {
		out[i] = link.id
	}
	return out
}

func (r *Route) String() string {
	ids := r.IDs()
	parts := make([]string, len(ids))
	for i, id := range ids {
		parts[i] = id.String()
	}
	return strings.Join(parts, " -> ")
}

// The route takes part in memoization: a cached module is only valid for
// routes that answer every membership test it made the same way.

const withinKey = "#within"

// Namespace implements memo.Input.
func (r *Route) Namespace() string { return "route" }

// Fingerprint implements memo.Input.
func (r *Route) Fingerprint(key string) uint64 {
	var hit bool
	if key == withinKey {
		hit = r.Within()
	} else {
		hit = r.Contains(syntax.FileID(key))
	}
	if hit {
		return 1
	}
	return 2
}

package syntax

import (
	"fmt"
	"strings"
)

// Node is an immutable syntax tree node.
//
// Nodes store their byte length, not their offset, so an unchanged subtree
// can be shared between the trees before and after an edit. Absolute ranges
// come from a LinkedNode view.
type Node struct {
	kind      SyntaxKind
	length    int
	text      string // leaf text; empty for inner nodes
	message   string // set for Error nodes
	children  []*Node
	erroneous bool
}

// NewLeaf creates a token node.
func NewLeaf(kind SyntaxKind, text string) *Node {
	return &Node{kind: kind, length: len(text), text: text}
}

// NewInner creates a node with children. The slice is owned by the node.
func NewInner(kind SyntaxKind, children []*Node) *Node {
	if children == nil {
		children = []*Node{}
	}
	n := &Node{kind: kind, children: children}
	for _, c := range children {
		n.length += c.length
		if c.erroneous {
			n.erroneous = true
		}
	}
	return n
}

// NewError creates an error leaf covering text.
func NewError(text, message string) *Node {
	return &Node{kind: Error, length: len(text), text: text, message: message, erroneous: true}
}

func (n *Node) Kind() SyntaxKind { return n.kind }

// Len is the number of bytes covered by the node.
func (n *Node) Len() int { return n.length }

// Text returns the verbatim text of a leaf. Inner nodes return "".
func (n *Node) Text() string { return n.text }

// Message returns the error message of an Error node.
func (n *Node) Message() string { return n.message }

// IsLeaf reports whether the node has no children slot.
func (n *Node) IsLeaf() bool { return n.children == nil }

// Erroneous reports whether the node or a descendant is an Error node.
func (n *Node) Erroneous() bool { return n.erroneous }

// Children returns the child nodes. The slice must not be modified.
func (n *Node) Children() []*Node { return n.children }

// FullText concatenates the text of all leaves below n.
func (n *Node) FullText() string {
	if n.IsLeaf() {
		return n.text
	}
	var sb strings.Builder
	sb.Grow(n.length)
	n.writeText(&sb)
	return sb.String()
}

func (n *Node) writeText(sb *strings.Builder) {
	if n.IsLeaf() {
		sb.WriteString(n.text)
		return
	}
	for _, c := range n.children {
		c.writeText(sb)
	}
}

// Leaves returns the leaves below n in document order.
func (n *Node) Leaves() []*Node {
	var out []*Node
	var walk func(*Node)
	walk = func(m *Node) {
		if m.IsLeaf() {
			out = append(out, m)
			return
		}
		for _, c := range m.children {
			walk(c)
		}
	}
	walk(n)
	return out
}

// Child returns the first direct child of the given kind.
func (n *Node) Child(kind SyntaxKind) *Node {
	for _, c := range n.children {
		if c.kind == kind {
			return c
		}
	}
	return nil
}

// ChildrenOf returns all direct children of the given kind.
func (n *Node) ChildrenOf(kind SyntaxKind) []*Node {
	var out []*Node
	for _, c := range n.children {
		if c.kind == kind {
			out = append(out, c)
		}
	}
	return out
}

// Equal reports whether two trees have the same kinds, lengths, texts and
// error messages. Shared subtrees compare equal without being walked.
func (n *Node) Equal(o *Node) bool {
	if n == o {
		return true
	}
	if n == nil || o == nil {
		return false
	}
	if n.kind != o.kind || n.length != o.length || n.text != o.text || n.message != o.message {
		return false
	}
	if n.IsLeaf() != o.IsLeaf() || len(n.children) != len(o.children) {
		return false
	}
	for i := range n.children {
		if !n.children[i].Equal(o.children[i]) {
			return false
		}
	}
	return true
}

// SyntaxError is an error node resolved to an absolute range.
type SyntaxError struct {
	Range   Range
	Message string
}

// Errors collects every error node below n, assuming n starts at offset.
func (n *Node) Errors(offset int) []SyntaxError {
	return n.appendErrors(nil, offset)
}

func (n *Node) appendErrors(out []SyntaxError, offset int) []SyntaxError {
	if !n.erroneous {
		return out
	}
	if n.kind == Error {
		return append(out, SyntaxError{Range: Range{offset, offset + n.length}, Message: n.message})
	}
	for _, c := range n.children {
		out = c.appendErrors(out, offset)
		offset += c.length
	}
	return out
}

// withChildren returns a copy of n whose children[from:to] are replaced.
func (n *Node) withChildren(from, to int, replacement []*Node) *Node {
	children := make([]*Node, 0, len(n.children)-(to-from)+len(replacement))
	children = append(children, n.children[:from]...)
	children = append(children, replacement...)
	children = append(children, n.children[to:]...)
	return NewInner(n.kind, children)
}

func (n *Node) String() string {
	if n.IsLeaf() {
		if n.kind == Error {
			return fmt.Sprintf("Error(%q, %q)", n.text, n.message)
		}
		return fmt.Sprintf("%s(%q)", n.kind, n.text)
	}
	return fmt.Sprintf("%s(len=%d, children=%d)", n.kind, n.length, len(n.children))
}

// Dump renders the tree as an indented outline, one node per line.
func (n *Node) Dump() string {
	var sb strings.Builder
	var walk func(*Node, int, int)
	walk = func(m *Node, depth, offset int) {
		sb.WriteString(strings.Repeat("  ", depth))
		if m.IsLeaf() {
			fmt.Fprintf(&sb, "%s %d..%d %q", m.kind, offset, offset+m.length, m.text)
			if m.kind == Error {
				fmt.Fprintf(&sb, " (%s)", m.message)
			}
			sb.WriteByte('\n')
			return
		}
		fmt.Fprintf(&sb, "%s %d..%d\n", m.kind, offset, offset+m.length)
		for _, c := range m.children {
			walk(c, depth+1, offset)
			offset += c.length
		}
	}
	walk(n, 0, 0)
	return sb.String()
}

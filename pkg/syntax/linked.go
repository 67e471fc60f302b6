package syntax

// LinkedNode is a node together with its absolute offset and parent chain.
// It is a cheap traversal view; the underlying Node stays shared.
type LinkedNode struct {
	node   *Node
	parent *LinkedNode
	index  int
	offset int
}

// NewLinked links a root node starting at offset 0.
func NewLinked(root *Node) *LinkedNode {
	return &LinkedNode{node: root}
}

func (l *LinkedNode) Node() *Node          { return l.node }
func (l *LinkedNode) Kind() SyntaxKind     { return l.node.kind }
func (l *LinkedNode) Parent() *LinkedNode  { return l.parent }
func (l *LinkedNode) Index() int           { return l.index }
func (l *LinkedNode) Offset() int          { return l.offset }
func (l *LinkedNode) Range() Range         { return Range{l.offset, l.offset + l.node.length} }
func (l *LinkedNode) Text() string         { return l.node.text }
func (l *LinkedNode) Erroneous() bool      { return l.node.erroneous }
func (l *LinkedNode) FullText() string     { return l.node.FullText() }
func (l *LinkedNode) Span(f FileID) Span   { return Span{File: f, Range: l.Range()} }
func (l *LinkedNode) ChildCount() int      { return len(l.node.children) }
func (l *LinkedNode) IsLeaf() bool         { return l.node.IsLeaf() }
func (l *LinkedNode) Message() string      { return l.node.message }

// Children returns linked views of all children.
func (l *LinkedNode) Children() []*LinkedNode {
	out := make([]*LinkedNode, len(l.node.children))
	offset := l.offset
	for i, c := range l.node.children {
		out[i] = &LinkedNode{node: c, parent: l, index: i, offset: offset}
		offset += c.length
	}
	return out
}

// Meaningful returns the children that are not trivia.
func (l *LinkedNode) Meaningful() []*LinkedNode {
	var out []*LinkedNode
	for _, c := range l.Children() {
		if !c.Kind().IsTrivia() {
			out = append(out, c)
		}
	}
	return out
}

// Child returns the first child of the given kind.
func (l *LinkedNode) Child(kind SyntaxKind) *LinkedNode {
	for _, c := range l.Children() {
		if c.Kind() == kind {
			return c
		}
	}
	return nil
}

// LeafAt returns the deepest leaf whose range contains cursor. A cursor at
// the very end of the tree returns the last leaf.
func (l *LinkedNode) LeafAt(cursor int) *LinkedNode {
	if l.node.IsLeaf() {
		if l.Range().Contains(cursor) || cursor == l.Range().End {
			return l
		}
		return nil
	}
	children := l.Children()
	for _, c := range children {
		if c.Range().Contains(cursor) {
			return c.LeafAt(cursor)
		}
	}
	if len(children) > 0 && cursor == l.Range().End {
		return children[len(children)-1].LeafAt(cursor)
	}
	return nil
}

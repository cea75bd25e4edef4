package cst

import (
	"fmt"

	"fortio.org/safecast"

	"rook/internal/source"
)

// NodeID indexes a node inside a Tree. IDs are 1-based; 0 is the null node.
type NodeID uint32

const NoNodeID NodeID = 0

// IsValid reports whether the ID refers to an allocated node.
func (id NodeID) IsValid() bool { return id != NoNodeID }

// Node is one vertex of the generic syntax tree handed over by the parser:
// kind, span, ordered children, and the source slice for leaf tokens.
type Node struct {
	Kind     NodeKind
	Span     source.Span
	Text     string
	Children []NodeID
}

// Tree owns the node arena for a single parsed file.
type Tree struct {
	File  source.FileID
	Root  NodeID
	nodes []Node // nodes[0] зарезервирован под NoNodeID
}

// NewTree creates an empty tree for the given file.
func NewTree(file source.FileID) *Tree {
	return &Tree{
		File:  file,
		nodes: make([]Node, 1, 128),
	}
}

// Add allocates a node and returns its ID.
func (t *Tree) Add(n Node) NodeID {
	value, err := safecast.Conv[uint32](len(t.nodes))
	if err != nil {
		panic(fmt.Errorf("cst arena overflow: %w", err))
	}
	id := NodeID(value)
	t.nodes = append(t.nodes, n)
	return id
}

// Get returns the node for an ID, or nil for the null node.
func (t *Tree) Get(id NodeID) *Node {
	if !id.IsValid() || int(id) >= len(t.nodes) {
		return nil
	}
	return &t.nodes[id]
}

// Len reports the number of allocated nodes.
func (t *Tree) Len() int { return len(t.nodes) - 1 }

// Kind returns the node's kind, KindUnknown for the null node.
func (t *Tree) Kind(id NodeID) NodeKind {
	if n := t.Get(id); n != nil {
		return n.Kind
	}
	return KindUnknown
}

// Span returns the node's span, the zero span for the null node.
func (t *Tree) Span(id NodeID) source.Span {
	if n := t.Get(id); n != nil {
		return n.Span
	}
	return source.Span{File: t.File}
}

// Text returns the node's source slice.
func (t *Tree) Text(id NodeID) string {
	if n := t.Get(id); n != nil {
		return n.Text
	}
	return ""
}

// Children returns the node's child list (do not modify).
func (t *Tree) Children(id NodeID) []NodeID {
	if n := t.Get(id); n != nil {
		return n.Children
	}
	return nil
}

// FirstOfKind returns the first child with the given kind.
func (t *Tree) FirstOfKind(id NodeID, kind NodeKind) NodeID {
	for _, c := range t.Children(id) {
		if t.Kind(c) == kind {
			return c
		}
	}
	return NoNodeID
}

// ChildrenOfKind collects children with the given kind, preserving order.
func (t *Tree) ChildrenOfKind(id NodeID, kind NodeKind) []NodeID {
	var out []NodeID
	for _, c := range t.Children(id) {
		if t.Kind(c) == kind {
			out = append(out, c)
		}
	}
	return out
}

// HasChildOfKind reports whether any child has the given kind.
func (t *Tree) HasChildOfKind(id NodeID, kind NodeKind) bool {
	return t.FirstOfKind(id, kind).IsValid()
}

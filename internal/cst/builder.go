package cst

import (
	"rook/internal/source"
)

// Builder assembles a Tree bottom-up. Front-end adapters walk the parser's
// tree and replay it here; tests build small trees directly.
type Builder struct {
	tree *Tree
}

func NewBuilder(file source.FileID) *Builder {
	return &Builder{tree: NewTree(file)}
}

// Node allocates an interior node over the given children.
func (b *Builder) Node(kind NodeKind, span source.Span, children ...NodeID) NodeID {
	span.File = b.tree.File
	return b.tree.Add(Node{Kind: kind, Span: span, Children: children})
}

// Leaf allocates a token node carrying its source slice.
func (b *Builder) Leaf(kind NodeKind, span source.Span, text string) NodeID {
	span.File = b.tree.File
	return b.tree.Add(Node{Kind: kind, Span: span, Text: text})
}

// Finish marks the root and returns the completed tree.
func (b *Builder) Finish(root NodeID) *Tree {
	b.tree.Root = root
	return b.tree
}

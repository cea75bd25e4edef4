package hir

import (
	"rook/internal/source"
)

// TypeNodeKind enumerates syntactic type forms.
type TypeNodeKind uint8

const (
	// TypeError is the placeholder for malformed or unresolved type syntax.
	TypeError TypeNodeKind = iota
	TypeNamed
	TypePrim
	TypeTuple
	TypeFunction
	TypeRef
	TypeGenericParam
	TypeInferred
)

// PrimKind enumerates built-in primitive type names.
type PrimKind uint8

const (
	PrimInt PrimKind = iota
	PrimFloat
	PrimBool
	PrimString
	PrimUnit
	PrimNever
)

// TypeNode is a syntactic type annotation. Semantic types (types.TyID) are
// produced from these during inference.
type TypeNode struct {
	Kind TypeNodeKind
	Span source.Span

	// Named.
	Def  DefID
	Args []TypeID

	// Prim.
	Prim PrimKind

	// Tuple / Function params.
	Elems []TypeID

	// Function result, Ref inner.
	Ret     TypeID
	Inner   TypeID
	Mutable bool

	// GenericParam index within the enclosing generic context.
	ParamIdx int
}

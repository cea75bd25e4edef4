package hir

import (
	"rook/internal/source"
)

// PatKind enumerates HIR pattern kinds.
type PatKind uint8

const (
	// PatError is the placeholder for malformed patterns; it matches
	// anything so exhaustiveness stays quiet on broken input.
	PatError PatKind = iota
	PatWildcard
	PatLiteral
	PatBinding
	PatTuple
	PatStruct
	PatEnumVariant
	PatOr
	PatRange
)

func (k PatKind) String() string {
	switch k {
	case PatError:
		return "Error"
	case PatWildcard:
		return "Wildcard"
	case PatLiteral:
		return "Literal"
	case PatBinding:
		return "Binding"
	case PatTuple:
		return "Tuple"
	case PatStruct:
		return "Struct"
	case PatEnumVariant:
		return "EnumVariant"
	case PatOr:
		return "Or"
	case PatRange:
		return "Range"
	default:
		return "Unknown"
	}
}

// FieldPat is one field of a struct pattern, resolved to its declaration
// index.
type FieldPat struct {
	Index int
	Pat   PatID
}

// Pat is an HIR pattern. Kind selects which payload fields are set.
type Pat struct {
	Kind PatKind
	Span source.Span

	// Literal.
	Lit Literal

	// Binding: name plus the Local it introduces; Sub is the @-pattern.
	Name    source.StringID
	Local   DefID
	Mutable bool
	Sub     PatID

	// Tuple / Or / EnumVariant sub-patterns.
	Elems []PatID

	// Struct / EnumVariant.
	Def        DefID
	Fields     []FieldPat
	VariantIdx int

	// Range.
	Lo        int64
	Hi        int64
	Inclusive bool
}

package types

import (
	"fmt"

	"rook/internal/symbols"
)

// TyID uniquely identifies a semantic type inside the interner.
type TyID uint32

// NoTyID marks the absence of a type.
const NoTyID TyID = 0

// IsValid reports whether the ID refers to an interned type.
func (id TyID) IsValid() bool { return id != NoTyID }

// TyVarID names a unification variable. Variables are allocated by the
// inference context; once substituted they are never reused.
type TyVarID uint32

// Kind enumerates all supported kinds of types.
type Kind uint8

const (
	// KindError subsumes any type during error recovery; unifying with it
	// never produces a diagnostic.
	KindError Kind = iota
	KindInt
	KindFloat
	KindBool
	KindString
	KindUnit
	KindNever
	KindNamed
	KindFunction
	KindTuple
	KindRef
	KindVar
	KindGenericParam
	KindArray
)

func (k Kind) String() string {
	switch k {
	case KindError:
		return "error"
	case KindInt:
		return "int"
	case KindFloat:
		return "float"
	case KindBool:
		return "bool"
	case KindString:
		return "string"
	case KindUnit:
		return "unit"
	case KindNever:
		return "never"
	case KindNamed:
		return "named"
	case KindFunction:
		return "function"
	case KindTuple:
		return "tuple"
	case KindRef:
		return "reference"
	case KindVar:
		return "var"
	case KindGenericParam:
		return "generic param"
	case KindArray:
		return "array"
	default:
		return fmt.Sprintf("Kind(%d)", k)
	}
}

// Type is the descriptor for any supported type. Kind selects which fields
// are meaningful.
type Type struct {
	Kind Kind

	// Named: nominal definition plus generic arguments.
	Def  symbols.DefID
	Args []TyID

	// Function parameters, Tuple elements.
	Elems []TyID

	// Function result.
	Ret TyID

	// Ref inner / Array element.
	Inner   TyID
	Mutable bool

	// Var.
	Var TyVarID

	// GenericParam index.
	ParamIdx int
}

// IsPrimitive reports whether the type has no structure to recurse into.
func (t Type) IsPrimitive() bool {
	switch t.Kind {
	case KindInt, KindFloat, KindBool, KindString, KindUnit, KindNever:
		return true
	}
	return false
}

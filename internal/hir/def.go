package hir

import (
	"rook/internal/source"
)

// DefKind enumerates definition kinds.
type DefKind uint8

const (
	// DefError is the distinguished placeholder for unresolved references.
	// Later stages treat it as the Error type to avoid cascades.
	DefError DefKind = iota
	DefFunction
	DefStruct
	DefEnum
	DefTrait
	DefImpl
	DefModule
	DefUse
	DefExternFunction
	DefLocal
)

func (k DefKind) String() string {
	switch k {
	case DefError:
		return "error"
	case DefFunction:
		return "function"
	case DefStruct:
		return "struct"
	case DefEnum:
		return "enum"
	case DefTrait:
		return "trait"
	case DefImpl:
		return "impl"
	case DefModule:
		return "module"
	case DefUse:
		return "use"
	case DefExternFunction:
		return "extern function"
	case DefLocal:
		return "local"
	default:
		return "unknown"
	}
}

// GenericParam is one declared type parameter with its bounds.
type GenericParam struct {
	Name   source.StringID
	Bounds []TypeID // trait refs the parameter must satisfy
	Span   source.Span
}

// WherePred is one where-clause constraint: Subject must implement Trait.
type WherePred struct {
	Subject TypeID
	Trait   TypeID
	Span    source.Span
}

// Param is a function parameter; its Local carries the binding.
type Param struct {
	Local DefID
	Type  TypeID
	Span  source.Span
}

// SelfParamKind describes the receiver of a method.
type SelfParamKind uint8

const (
	SelfNone   SelfParamKind = iota
	SelfValue                // self
	SelfRef                  // &self
	SelfRefMut               // &mut self
)

// FuncDef is the payload of a function or extern-function definition.
type FuncDef struct {
	Generics  []GenericParam
	Where     []WherePred
	SelfKind  SelfParamKind
	SelfLocal DefID // the `self` binding for methods
	Params    []Param
	Ret       TypeID // NoTypeID means unit
	Body      ExprID // NoExprID for extern and trait-required methods

	// Extern metadata.
	Abi           string // "c" or "private-v0"; empty for ordinary functions
	Symbol        string // raw symbol for the C ABI
	MangledSymbol string // length-prefixed form for the private ABI
}

// FieldDef is one struct field.
type FieldDef struct {
	Name source.StringID
	Type TypeID
	Span source.Span
}

// StructDef is the payload of a struct definition.
type StructDef struct {
	Generics []GenericParam
	Fields   []FieldDef
}

// VariantDef is one enum variant; the discriminant is the declaration index.
type VariantDef struct {
	Name   source.StringID
	Fields []TypeID
	Span   source.Span
}

// EnumDef is the payload of an enum definition.
type EnumDef struct {
	Generics []GenericParam
	Variants []VariantDef
}

// TraitDef is the payload of a trait definition.
type TraitDef struct {
	Generics    []GenericParam
	Supertraits []TypeID // named-type refs to the traits this one extends
	Methods     []DefID  // required methods (FuncDef without body)
	AssocTypes  []source.StringID
}

// AssocBinding provides a required associated type inside an impl.
type AssocBinding struct {
	Name source.StringID
	Type TypeID
	Span source.Span
}

// ImplDef is the payload of an impl block. Trait is NoTypeID for inherent
// impls.
type ImplDef struct {
	Generics []GenericParam
	Where    []WherePred
	Trait    TypeID
	SelfTy   TypeID
	Methods  []DefID
	Assoc    []AssocBinding
}

// ModuleDef is the payload of a nested module.
type ModuleDef struct {
	Items []DefID
	Scope ScopeRef
}

// ScopeRef carries the resolver scope a module owns.
type ScopeRef uint32

// UseDef is the payload of a use declaration.
type UseDef struct {
	Path   []source.StringID
	Target DefID // what the path resolved to
}

// LocalDef is the payload of a local binding (let, parameter, arm binding).
type LocalDef struct {
	Mutable  bool
	Declared TypeID // declared type node, NoTypeID when inferred
}

// Def is a definition with its kind-specific payload.
type Def struct {
	Kind   DefKind
	Name   source.StringID
	Span   source.Span
	Public bool

	Func   *FuncDef
	Struct *StructDef
	Enum   *EnumDef
	Trait  *TraitDef
	Impl   *ImplDef
	Module *ModuleDef
	Use    *UseDef
	Local  *LocalDef
}

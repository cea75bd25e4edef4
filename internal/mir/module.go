package mir

import (
	"rook/internal/source"
	"rook/internal/symbols"
	"rook/internal/types"
)

// Func is one lowered function: dense locals, dense blocks, entry at
// Blocks[0]. The first ParamCount locals are the parameters in declaration
// order.
type Func struct {
	ID   FuncID
	Def  symbols.DefID
	Name string
	Span source.Span

	ParamCount int
	Result     types.TyID

	Locals []Local
	Blocks []Block
}

// Entry returns the entry block ID.
func (f *Func) Entry() BlockID {
	return 0
}

// Extern declares an external function for the backends.
type Extern struct {
	Def    symbols.DefID
	Name   string
	Symbol string // raw or mangled, per ABI
	Abi    string // "c" or "private-v0"
	Params []types.TyID
	Result types.TyID
}

// TypeDefKind distinguishes layout-table entries.
type TypeDefKind uint8

const (
	TypeDefStruct TypeDefKind = iota
	TypeDefEnum
)

// TypeDef describes one nominal type for backend layout: field types for
// structs, per-variant payload types for enums (the tag is Field(0) of the
// {tag, payload...} layout).
type TypeDef struct {
	Def      symbols.DefID
	Name     string
	Kind     TypeDefKind
	Fields   []types.TyID   // TypeDefStruct
	Variants [][]types.TyID // TypeDefEnum
}

// Module is the backend-facing output: functions, externs, the nominal
// type-definition table and the type interner for layout decisions.
type Module struct {
	Funcs    []*Func
	Externs  []Extern
	TypeDefs []TypeDef
	Types    *types.Interner
}

// FuncByDef finds a lowered function by its definition.
func (m *Module) FuncByDef(def symbols.DefID) *Func {
	for _, f := range m.Funcs {
		if f.Def == def {
			return f
		}
	}
	return nil
}

// FuncByName finds a lowered function by its debug name.
func (m *Module) FuncByName(name string) *Func {
	for _, f := range m.Funcs {
		if f.Name == name {
			return f
		}
	}
	return nil
}

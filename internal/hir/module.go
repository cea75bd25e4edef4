package hir

import (
	"rook/internal/arena"
	"rook/internal/source"
	"rook/internal/symbols"
)

// Module owns every HIR arena for one source file plus the scope tree built
// during lowering. IDs are assigned in source-reading order and stay stable
// across phases.
type Module struct {
	File     source.FileID
	Interner *source.Interner

	Items []DefID // top-level definitions in declaration order

	defs  *arena.Arena[Def]
	exprs *arena.Arena[Expr]
	stmts *arena.Arena[Stmt]
	pats  *arena.Arena[Pat]
	types *arena.Arena[TypeNode]

	// Scopes is the resolver scope tree; ModuleScope is the file's root.
	Scopes      *symbols.Scopes
	ModuleScope symbols.ScopeID

	// ErrorDef is the distinguished definition unresolved references point
	// at. Allocated first so it is always valid.
	ErrorDef DefID
}

// NewModule creates an empty module for a file.
func NewModule(file source.FileID, interner *source.Interner) *Module {
	m := &Module{
		File:     file,
		Interner: interner,
		defs:     arena.New[Def](64),
		exprs:    arena.New[Expr](256),
		stmts:    arena.New[Stmt](128),
		pats:     arena.New[Pat](64),
		types:    arena.New[TypeNode](64),
	}
	m.ErrorDef = m.NewDef(Def{Kind: DefError})
	return m
}

// NewDef allocates a definition and returns its ID.
func (m *Module) NewDef(d Def) DefID {
	return DefID(m.defs.Allocate(d))
}

// Def returns the definition payload, or nil for NoDefID.
func (m *Module) Def(id DefID) *Def {
	return m.defs.Get(uint32(id))
}

// DefName returns the definition's name as a string.
func (m *Module) DefName(id DefID) string {
	d := m.Def(id)
	if d == nil {
		return ""
	}
	s, _ := m.Interner.Lookup(d.Name)
	return s
}

// NewExpr allocates an expression.
func (m *Module) NewExpr(e Expr) ExprID {
	return ExprID(m.exprs.Allocate(e))
}

// Expr returns the expression payload, or nil for NoExprID.
func (m *Module) Expr(id ExprID) *Expr {
	return m.exprs.Get(uint32(id))
}

// NewStmt allocates a statement.
func (m *Module) NewStmt(s Stmt) StmtID {
	return StmtID(m.stmts.Allocate(s))
}

// Stmt returns the statement payload, or nil for NoStmtID.
func (m *Module) Stmt(id StmtID) *Stmt {
	return m.stmts.Get(uint32(id))
}

// NewPat allocates a pattern.
func (m *Module) NewPat(p Pat) PatID {
	return PatID(m.pats.Allocate(p))
}

// Pat returns the pattern payload, or nil for NoPatID.
func (m *Module) Pat(id PatID) *Pat {
	return m.pats.Get(uint32(id))
}

// NewType allocates a type node.
func (m *Module) NewType(t TypeNode) TypeID {
	return TypeID(m.types.Allocate(t))
}

// TypeNode returns the type-node payload, or nil for NoTypeID.
func (m *Module) TypeNode(id TypeID) *TypeNode {
	return m.types.Get(uint32(id))
}

// NumExprs reports the number of allocated expressions (for dense side
// tables).
func (m *Module) NumExprs() int { return int(m.exprs.Len()) }

// NumDefs reports the number of allocated definitions.
func (m *Module) NumDefs() int { return int(m.defs.Len()) }

// Defs iterates all definitions in allocation order.
func (m *Module) Defs(visit func(DefID, *Def) bool) {
	data := m.defs.Slice()
	for i := range data {
		if !visit(DefID(i+1), &data[i]) {
			return
		}
	}
}

// CollectBindings walks a pattern and returns the Locals it introduces,
// left to right. Or-patterns contribute the first alternative's bindings
// (lowering has already checked the name sets agree).
func (m *Module) CollectBindings(id PatID) []DefID {
	var out []DefID
	var walk func(PatID)
	walk = func(id PatID) {
		p := m.Pat(id)
		if p == nil {
			return
		}
		switch p.Kind {
		case PatBinding:
			out = append(out, p.Local)
			if p.Sub.IsValid() {
				walk(p.Sub)
			}
		case PatTuple:
			for _, e := range p.Elems {
				walk(e)
			}
		case PatEnumVariant:
			for _, e := range p.Elems {
				walk(e)
			}
		case PatStruct:
			for _, f := range p.Fields {
				walk(f.Pat)
			}
		case PatOr:
			if len(p.Elems) > 0 {
				walk(p.Elems[0])
			}
		}
	}
	walk(id)
	return out
}

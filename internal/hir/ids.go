package hir

import "rook/internal/symbols"

// DefID aliases the resolver's definition handle; the HIR module owns the
// payload arena for it.
type DefID = symbols.DefID

const NoDefID = symbols.NoDefID

// ExprID identifies an expression in the module arena.
type ExprID uint32

const NoExprID ExprID = 0

func (id ExprID) IsValid() bool { return id != NoExprID }

// StmtID identifies a statement in the module arena.
type StmtID uint32

const NoStmtID StmtID = 0

func (id StmtID) IsValid() bool { return id != NoStmtID }

// PatID identifies a pattern in the module arena.
type PatID uint32

const NoPatID PatID = 0

func (id PatID) IsValid() bool { return id != NoPatID }

// TypeID identifies a syntactic type node in the module arena. Distinct from
// types.TyID, which names a semantic type produced by inference.
type TypeID uint32

const NoTypeID TypeID = 0

func (id TypeID) IsValid() bool { return id != NoTypeID }

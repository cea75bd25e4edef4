package sema

import (
	"fmt"

	"rook/internal/diag"
	"rook/internal/hir"
	"rook/internal/types"
)

func (ctx *TyContext) inferStmt(id hir.StmtID) {
	s := ctx.Module.Stmt(id)
	if s == nil {
		return
	}
	switch s.Kind {
	case hir.StmtLet:
		declared := types.NoTyID
		if s.Ty.IsValid() {
			declared = ctx.TyOf(s.Ty)
		}
		ty := declared
		if s.Init.IsValid() {
			got := ctx.inferExpr(s.Init, declared)
			if !ty.IsValid() {
				ty = got
			}
		}
		if !ty.IsValid() {
			ty = ctx.FreshVar()
		}
		ctx.bindPattern(s.Pat, ty)

	case hir.StmtExpr:
		ctx.inferExpr(s.Expr, types.NoTyID)
	}
}

// bindPattern types a pattern against the scrutinee type, propagating
// through sub-bindings.
func (ctx *TyContext) bindPattern(id hir.PatID, ty types.TyID) {
	p := ctx.Module.Pat(id)
	if p == nil {
		return
	}
	b := ctx.Types.Builtins()

	switch p.Kind {
	case hir.PatWildcard, hir.PatError:
		// matches anything

	case hir.PatBinding:
		if existing, ok := ctx.LocalTypes[p.Local]; ok {
			// Shared or-pattern locals unify across alternatives.
			ctx.patUnify(p, existing, ty)
		} else {
			ctx.LocalTypes[p.Local] = ty
		}
		if p.Sub.IsValid() {
			ctx.bindPattern(p.Sub, ty)
		}

	case hir.PatLiteral:
		var lit types.TyID
		switch p.Lit.Kind {
		case hir.LitInt:
			lit = b.Int
		case hir.LitFloat:
			lit = b.Float
		case hir.LitBool:
			lit = b.Bool
		case hir.LitString:
			lit = b.String
		default:
			lit = b.Unit
		}
		ctx.patUnify(p, ty, lit)

	case hir.PatRange:
		ctx.patUnify(p, ty, b.Int)

	case hir.PatTuple:
		elems := make([]types.TyID, len(p.Elems))
		for i := range elems {
			elems[i] = ctx.FreshVar()
		}
		ctx.patUnify(p, ty, ctx.Types.Tuple(elems))
		for i, sub := range p.Elems {
			ctx.bindPattern(sub, elems[i])
		}

	case hir.PatStruct:
		d := ctx.Module.Def(p.Def)
		if d == nil || d.Kind != hir.DefStruct {
			for _, f := range p.Fields {
				ctx.bindPattern(f.Pat, b.Error)
			}
			return
		}
		args := make([]types.TyID, len(d.Struct.Generics))
		for i := range args {
			args[i] = ctx.FreshVar()
		}
		ctx.patUnify(p, ty, ctx.Types.Named(p.Def, args))
		for _, f := range p.Fields {
			if f.Index >= 0 && f.Index < len(d.Struct.Fields) {
				ctx.bindPattern(f.Pat, ctx.TyOfInstantiated(d.Struct.Fields[f.Index].Type, args))
			} else {
				ctx.bindPattern(f.Pat, b.Error)
			}
		}

	case hir.PatEnumVariant:
		d := ctx.Module.Def(p.Def)
		if d == nil || d.Kind != hir.DefEnum || p.VariantIdx >= len(d.Enum.Variants) {
			for _, sub := range p.Elems {
				ctx.bindPattern(sub, b.Error)
			}
			return
		}
		args := make([]types.TyID, len(d.Enum.Generics))
		for i := range args {
			args[i] = ctx.FreshVar()
		}
		ctx.patUnify(p, ty, ctx.Types.Named(p.Def, args))
		fields := d.Enum.Variants[p.VariantIdx].Fields
		for i, sub := range p.Elems {
			if i < len(fields) {
				ctx.bindPattern(sub, ctx.TyOfInstantiated(fields[i], args))
			} else {
				ctx.bindPattern(sub, b.Error)
			}
		}

	case hir.PatOr:
		for _, alt := range p.Elems {
			ctx.bindPattern(alt, ty)
		}
	}
}

// patUnify unifies with pattern-anchored diagnostics.
func (ctx *TyContext) patUnify(p *hir.Pat, a, b types.TyID) {
	if err := ctx.Unify(a, b); err != nil {
		code := diag.TypeMismatch
		if err.Kind == UnifyOccurs {
			code = diag.TypeOccursCheck
		}
		ctx.report(hir.NoExprID, diag.NewError(code, p.Span,
			fmt.Sprintf("pattern type mismatch: expected %s, found %s",
				ctx.FormatTy(a), ctx.FormatTy(b))))
	}
}

// inferMatch infers a match expression and runs exhaustiveness analysis.
func (ctx *TyContext) inferMatch(id hir.ExprID, e *hir.Expr, expected types.TyID) types.TyID {
	scrutTy := ctx.inferExpr(e.Scrutinee, types.NoTyID)

	result := expected
	if !result.IsValid() {
		result = ctx.FreshVar()
	}
	for _, arm := range e.Arms {
		ctx.bindPattern(arm.Pat, scrutTy)
		got := ctx.inferExpr(arm.Body, result)
		result = ctx.unifyExpect(id, result, got, arm.Span)
	}

	ctx.analyzeMatch(id, e, scrutTy)
	return ctx.Apply(result)
}

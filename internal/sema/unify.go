package sema

import (
	"fmt"

	"rook/internal/diag"
	"rook/internal/hir"
	"rook/internal/source"
	"rook/internal/types"
)

// UnifyErrorKind distinguishes unification failures.
type UnifyErrorKind uint8

const (
	UnifyMismatch UnifyErrorKind = iota
	UnifyOccurs
	UnifyArity
)

// UnifyError reports why two types failed to unify.
type UnifyError struct {
	Kind  UnifyErrorKind
	Left  types.TyID
	Right types.TyID
	Var   types.TyVarID
}

func (e *UnifyError) Error() string {
	switch e.Kind {
	case UnifyOccurs:
		return fmt.Sprintf("occurs check failed: ?%d occurs in its own solution", e.Var)
	case UnifyArity:
		return "arity mismatch"
	default:
		return "type mismatch"
	}
}

// Unify makes two types equal, recording substitutions for variables.
// It is symmetric and idempotent on already-unified pairs. Named types are
// nominal: structurally identical types with distinct DefIDs do not unify.
func (ctx *TyContext) Unify(a, b types.TyID) *UnifyError {
	a = ctx.Apply(a)
	b = ctx.Apply(b)
	if a == b {
		return nil
	}

	ta := ctx.Types.MustLookup(a)
	tb := ctx.Types.MustLookup(b)

	// Error subsumes anything, silently. Never coerces to every type.
	if ta.Kind == types.KindError || tb.Kind == types.KindError {
		return nil
	}
	if ta.Kind == types.KindNever || tb.Kind == types.KindNever {
		return nil
	}

	if ta.Kind == types.KindVar {
		return ctx.unifyVar(ta.Var, b)
	}
	if tb.Kind == types.KindVar {
		return ctx.unifyVar(tb.Var, a)
	}

	if ta.Kind != tb.Kind {
		return &UnifyError{Kind: UnifyMismatch, Left: a, Right: b}
	}

	switch ta.Kind {
	case types.KindInt, types.KindFloat, types.KindBool, types.KindString, types.KindUnit:
		// Same primitive discriminant interned to the same TyID above;
		// reaching here means distinct kinds, which the check caught.
		return nil

	case types.KindNamed:
		if ta.Def != tb.Def {
			return &UnifyError{Kind: UnifyMismatch, Left: a, Right: b}
		}
		if len(ta.Args) != len(tb.Args) {
			return &UnifyError{Kind: UnifyArity, Left: a, Right: b}
		}
		for i := range ta.Args {
			if err := ctx.Unify(ta.Args[i], tb.Args[i]); err != nil {
				return err
			}
		}
		return nil

	case types.KindTuple:
		if len(ta.Elems) != len(tb.Elems) {
			return &UnifyError{Kind: UnifyArity, Left: a, Right: b}
		}
		for i := range ta.Elems {
			if err := ctx.Unify(ta.Elems[i], tb.Elems[i]); err != nil {
				return err
			}
		}
		return nil

	case types.KindFunction:
		if len(ta.Elems) != len(tb.Elems) {
			return &UnifyError{Kind: UnifyArity, Left: a, Right: b}
		}
		for i := range ta.Elems {
			if err := ctx.Unify(ta.Elems[i], tb.Elems[i]); err != nil {
				return err
			}
		}
		return ctx.Unify(ta.Ret, tb.Ret)

	case types.KindRef:
		if ta.Mutable != tb.Mutable {
			return &UnifyError{Kind: UnifyMismatch, Left: a, Right: b}
		}
		return ctx.Unify(ta.Inner, tb.Inner)

	case types.KindArray:
		return ctx.Unify(ta.Inner, tb.Inner)

	case types.KindGenericParam:
		if ta.ParamIdx != tb.ParamIdx {
			return &UnifyError{Kind: UnifyMismatch, Left: a, Right: b}
		}
		return nil

	default:
		return &UnifyError{Kind: UnifyMismatch, Left: a, Right: b}
	}
}

// unifyVar binds a variable after the occurs check.
func (ctx *TyContext) unifyVar(v types.TyVarID, ty types.TyID) *UnifyError {
	if ctx.occursIn(v, ty) {
		return &UnifyError{Kind: UnifyOccurs, Left: ctx.Types.Var(v), Right: ty, Var: v}
	}
	ctx.subst[v] = ty
	return nil
}

// occursIn recursively searches ty for the variable.
func (ctx *TyContext) occursIn(v types.TyVarID, ty types.TyID) bool {
	t := ctx.Types.MustLookup(ctx.Apply(ty))
	switch t.Kind {
	case types.KindVar:
		return t.Var == v
	case types.KindNamed:
		for _, a := range t.Args {
			if ctx.occursIn(v, a) {
				return true
			}
		}
	case types.KindTuple:
		for _, e := range t.Elems {
			if ctx.occursIn(v, e) {
				return true
			}
		}
	case types.KindFunction:
		for _, p := range t.Elems {
			if ctx.occursIn(v, p) {
				return true
			}
		}
		return ctx.occursIn(v, t.Ret)
	case types.KindRef, types.KindArray:
		return ctx.occursIn(v, t.Inner)
	}
	return false
}

// unifyExpect unifies and reports a diagnostic on failure, returning the
// error type for recovery.
func (ctx *TyContext) unifyExpect(at hir.ExprID, a, b types.TyID, span source.Span) types.TyID {
	err := ctx.Unify(a, b)
	if err == nil {
		return ctx.Apply(a)
	}
	switch err.Kind {
	case UnifyOccurs:
		ctx.report(at, diag.NewError(diag.TypeOccursCheck, span,
			fmt.Sprintf("cannot construct the infinite type ?%d = %s", err.Var, ctx.FormatTy(err.Right))))
	case UnifyArity:
		ctx.report(at, diag.NewError(diag.TypeArityMismatch, span,
			fmt.Sprintf("expected %s, found %s", ctx.FormatTy(a), ctx.FormatTy(b))))
	default:
		ctx.report(at, diag.NewError(diag.TypeMismatch, span,
			fmt.Sprintf("mismatched types: expected %s, found %s", ctx.FormatTy(a), ctx.FormatTy(b))))
	}
	return ctx.ErrorType()
}

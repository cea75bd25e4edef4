package sema

import (
	"fmt"

	"rook/internal/diag"
	"rook/internal/hir"
	"rook/internal/source"
	"rook/internal/types"
)

// methodCandidate is one admissible method for a call site.
type methodCandidate struct {
	fn       hir.DefID
	implDef  hir.DefID
	trait    hir.DefID
	selfKind hir.SelfParamKind
}

// resolveMethod resolves recv.name(...) against the receiver's concrete
// type. Inherent impls win over trait impls; ties are ambiguous. The
// receiver-mutability flag gates `&mut self` candidates.
//
// On success it returns the instantiated parameter types (excluding self),
// the return type, and records the target plus instance arguments.
func (ctx *TyContext) resolveMethod(at hir.ExprID, recvTy types.TyID, name source.StringID, recvMut bool, span source.Span) ([]types.TyID, types.TyID, bool) {
	ty := ctx.Apply(recvTy)
	t := ctx.Types.MustLookup(ty)

	// Auto-deref through references; a &mut receiver is mutably reachable.
	for t.Kind == types.KindRef {
		recvMut = t.Mutable
		ty = ctx.Apply(t.Inner)
		t = ctx.Types.MustLookup(ty)
	}

	switch t.Kind {
	case types.KindError:
		return nil, ctx.ErrorType(), false
	case types.KindVar:
		ctx.report(at, diag.NewError(diag.TypeAmbiguousReceiver, span,
			"cannot resolve method on an unknown receiver type; add a type annotation"))
		return nil, ctx.ErrorType(), false
	case types.KindGenericParam:
		return ctx.resolveTraitMethod(at, ty, t.ParamIdx, name, span)
	}

	key, ok := ctx.keyOfTy(ty)
	if !ok {
		ctx.reportNoMethod(at, ty, name, span)
		return nil, ctx.ErrorType(), false
	}

	var inherent, viaTrait, mutRejected []methodCandidate
	for _, info := range ctx.impls[key] {
		impl := ctx.Module.Def(info.def).Impl
		for _, m := range impl.Methods {
			md := ctx.Module.Def(m)
			if md.Name != name {
				continue
			}
			c := methodCandidate{fn: m, implDef: info.def, trait: info.trait, selfKind: md.Func.SelfKind}
			if c.selfKind == hir.SelfRefMut && !recvMut {
				mutRejected = append(mutRejected, c)
				continue
			}
			if info.trait.IsValid() {
				viaTrait = append(viaTrait, c)
			} else {
				inherent = append(inherent, c)
			}
		}
	}

	pool := inherent
	if len(pool) == 0 {
		pool = viaTrait
	}
	switch {
	case len(pool) == 1:
		return ctx.instantiateMethod(at, pool[0], ty, span)
	case len(pool) > 1:
		ctx.report(at, diag.NewError(diag.MethodAmbiguous, span,
			fmt.Sprintf("multiple applicable methods named `%s` for `%s`",
				ctx.Module.Interner.MustLookup(name), ctx.FormatTy(ty))))
		return nil, ctx.ErrorType(), false
	case len(mutRejected) > 0:
		ctx.report(at, diag.NewError(diag.MethodMutabilityMismatch, span,
			fmt.Sprintf("method `%s` requires `&mut self`, but the receiver is not mutable",
				ctx.Module.Interner.MustLookup(name))).
			WithNote(ctx.Module.Def(mutRejected[0].fn).Span, "method declared here"))
		return nil, ctx.ErrorType(), false
	default:
		ctx.reportNoMethod(at, ty, name, span)
		return nil, ctx.ErrorType(), false
	}
}

func (ctx *TyContext) reportNoMethod(at hir.ExprID, ty types.TyID, name source.StringID, span source.Span) {
	ctx.report(at, diag.NewError(diag.MethodNoMatch, span,
		fmt.Sprintf("no method named `%s` found for `%s`",
			ctx.Module.Interner.MustLookup(name), ctx.FormatTy(ty))))
}

// instantiateMethod binds impl and method generics with fresh variables,
// unifies the impl self type with the receiver, and records the target.
func (ctx *TyContext) instantiateMethod(at hir.ExprID, c methodCandidate, recvTy types.TyID, span source.Span) ([]types.TyID, types.TyID, bool) {
	impl := ctx.Module.Def(c.implDef).Impl
	md := ctx.Module.Def(c.fn)
	sig := ctx.funcSignature(c.fn, md)

	implArgs := make([]types.TyID, len(impl.Generics))
	for i := range implArgs {
		implArgs[i] = ctx.FreshVar()
	}
	fnArgs := make([]types.TyID, len(sig.generics))
	for i := range fnArgs {
		fnArgs[i] = ctx.FreshVar()
	}
	allArgs := append(append([]types.TyID{}, implArgs...), fnArgs...)

	selfTy := ctx.TyOfInstantiated(impl.SelfTy, allArgs)
	ctx.unifyExpect(at, selfTy, recvTy, span)

	params := make([]types.TyID, len(sig.params))
	for i, p := range md.Func.Params {
		if p.Type.IsValid() {
			params[i] = ctx.TyOfInstantiated(p.Type, allArgs)
		} else {
			params[i] = ctx.FreshVar()
		}
	}
	ret := ctx.Types.Builtins().Unit
	if md.Func.Ret.IsValid() {
		ret = ctx.TyOfInstantiated(md.Func.Ret, allArgs)
	}

	// Bound obligations of impl and method generics.
	for i, g := range impl.Generics {
		for _, b := range g.Bounds {
			if tr := ctx.traitDefOf(b); tr.IsValid() {
				ctx.obligate(implArgs[i], tr, ctx.Module.Interner.MustLookup(g.Name), span, at)
			}
		}
	}
	for i, g := range sig.generics {
		for _, b := range g.Bounds {
			if tr := ctx.traitDefOf(b); tr.IsValid() {
				ctx.obligate(fnArgs[i], tr, ctx.Module.Interner.MustLookup(g.Name), span, at)
			}
		}
	}

	ctx.Methods[at] = MethodTarget{Func: c.fn, SelfKind: c.selfKind, ImplArgs: implArgs}
	if len(allArgs) > 0 {
		ctx.Instances[at] = allArgs
	}
	return params, ret, true
}

// resolveTraitMethod resolves a method on a generic parameter via its
// declared bounds.
func (ctx *TyContext) resolveTraitMethod(at hir.ExprID, recvTy types.TyID, paramIdx int, name source.StringID, span source.Span) ([]types.TyID, types.TyID, bool) {
	var found []hir.DefID
	for _, declared := range ctx.boundEnv[paramIdx] {
		for _, tr := range ctx.traitClosure(declared) {
			td := ctx.Module.Def(tr)
			if td == nil || td.Kind != hir.DefTrait {
				continue
			}
			for _, m := range td.Trait.Methods {
				if ctx.Module.Def(m).Name == name {
					found = append(found, m)
				}
			}
		}
	}

	switch {
	case len(found) == 0:
		ctx.reportNoMethod(at, recvTy, name, span)
		return nil, ctx.ErrorType(), false
	case len(found) > 1:
		ctx.report(at, diag.NewError(diag.MethodAmbiguous, span,
			fmt.Sprintf("method `%s` is provided by multiple bounds",
				ctx.Module.Interner.MustLookup(name))))
		return nil, ctx.ErrorType(), false
	}

	m := found[0]
	md := ctx.Module.Def(m)
	sig := ctx.funcSignature(m, md)

	params := make([]types.TyID, len(sig.params))
	copy(params, sig.params)
	ctx.Methods[at] = MethodTarget{Func: m, SelfKind: md.Func.SelfKind}
	return params, sig.ret, true
}

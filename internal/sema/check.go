package sema

import (
	"fmt"

	"rook/internal/diag"
	"rook/internal/hir"
	"rook/internal/symbols"
	"rook/internal/types"
)

// signature is a function's semantic signature with rigid generic params.
type signature struct {
	generics []hir.GenericParam
	where    []hir.WherePred
	params   []types.TyID
	ret      types.TyID
	selfKind hir.SelfParamKind
	implDef  hir.DefID // owning impl for methods, NoDefID otherwise
}

// Check runs type inference, bound checking and exhaustiveness analysis over
// a lowered module. It is total: malformed input produces diagnostics plus an
// Error-typed context, never a panic.
func Check(m *hir.Module, reporter diag.Reporter) *TyContext {
	ctx := NewTyContext(m, reporter)
	ctx.sigs = make(map[symbols.DefID]*signature)
	ctx.impls = buildImplIndex(ctx)

	// Signatures before bodies: calls may reference any function.
	m.Defs(func(id hir.DefID, d *hir.Def) bool {
		switch d.Kind {
		case hir.DefFunction, hir.DefExternFunction:
			ctx.funcSignature(id, d)
		}
		return true
	})

	ctx.checkImpls()

	// Bodies.
	m.Defs(func(id hir.DefID, d *hir.Def) bool {
		if (d.Kind == hir.DefFunction) && d.Func.Body.IsValid() {
			ctx.inferFunction(id, d)
		}
		return true
	})

	ctx.finalize()
	return ctx
}

// funcSignature computes and caches a function's signature.
func (ctx *TyContext) funcSignature(id symbols.DefID, d *hir.Def) *signature {
	if sig, ok := ctx.sigs[id]; ok {
		return sig
	}
	fd := d.Func
	sig := &signature{
		generics: fd.Generics,
		where:    fd.Where,
		selfKind: fd.SelfKind,
	}
	for _, p := range fd.Params {
		ty := ctx.ErrorType()
		if p.Type.IsValid() {
			ty = ctx.TyOf(p.Type)
		} else {
			ty = ctx.FreshVar()
		}
		sig.params = append(sig.params, ty)
		ctx.LocalTypes[p.Local] = ty
	}
	sig.ret = ctx.Types.Builtins().Unit
	if fd.Ret.IsValid() {
		sig.ret = ctx.TyOf(fd.Ret)
	}
	ctx.sigs[id] = sig
	ctx.FuncRet[id] = sig.ret
	return sig
}

// boundEnv maps a generic-parameter index to the traits it declares,
// including where-clause constraints on that parameter.
func (ctx *TyContext) boundEnvOf(sig *signature, implGenerics []hir.GenericParam, implWhere []hir.WherePred) map[int][]hir.DefID {
	env := make(map[int][]hir.DefID)
	add := func(base int, generics []hir.GenericParam) {
		for i, g := range generics {
			for _, b := range g.Bounds {
				if tr := ctx.traitDefOf(b); tr.IsValid() {
					env[base+i] = append(env[base+i], tr)
				}
			}
		}
	}
	add(0, implGenerics)
	add(len(implGenerics), sig.generics)

	addWhere := func(preds []hir.WherePred) {
		for _, w := range preds {
			subj := ctx.Module.TypeNode(w.Subject)
			if subj == nil || subj.Kind != hir.TypeGenericParam {
				continue
			}
			if tr := ctx.traitDefOf(w.Trait); tr.IsValid() {
				env[subj.ParamIdx] = append(env[subj.ParamIdx], tr)
			}
		}
	}
	addWhere(implWhere)
	addWhere(sig.where)
	return env
}

// inferFunction runs inference over one body.
func (ctx *TyContext) inferFunction(id symbols.DefID, d *hir.Def) {
	fd := d.Func
	sig := ctx.sigs[id]

	implGenerics, implWhere := []hir.GenericParam(nil), []hir.WherePred(nil)
	if sig.implDef.IsValid() {
		impl := ctx.Module.Def(sig.implDef).Impl
		implGenerics, implWhere = impl.Generics, impl.Where
	}

	prevFn, prevEnv := ctx.currentFn, ctx.boundEnv
	ctx.currentFn = id
	ctx.boundEnv = ctx.boundEnvOf(sig, implGenerics, implWhere)
	defer func() {
		ctx.currentFn, ctx.boundEnv = prevFn, prevEnv
	}()

	if fd.SelfLocal.IsValid() && sig.implDef.IsValid() {
		impl := ctx.Module.Def(sig.implDef).Impl
		selfTy := ctx.TyOf(impl.SelfTy)
		switch fd.SelfKind {
		case hir.SelfRef:
			selfTy = ctx.Types.Ref(selfTy, false)
		case hir.SelfRefMut:
			selfTy = ctx.Types.Ref(selfTy, true)
		}
		ctx.LocalTypes[fd.SelfLocal] = selfTy
	}

	got := ctx.inferExpr(fd.Body, sig.ret)
	body := ctx.Module.Expr(fd.Body)
	ctx.unifyExpect(fd.Body, sig.ret, got, body.Span)
}

// finalize resolves deferred bound obligations and call instances.
func (ctx *TyContext) finalize() {
	for _, ob := range ctx.deferred {
		ty := ctx.Apply(ob.ty)
		t := ctx.Types.MustLookup(ty)
		switch t.Kind {
		case types.KindError:
			continue
		case types.KindVar:
			ctx.report(hir.NoExprID, diag.NewError(diag.TypeUnresolvedVar, ob.span,
				fmt.Sprintf("type annotations needed: cannot prove `%s: %s` for unresolved type",
					ob.param, ctx.Module.DefName(ob.trait))))
		default:
			if !ctx.checkBound(ty, ob.trait) {
				ctx.report(hir.NoExprID, diag.NewError(diag.BoundUnsatisfied, ob.span,
					fmt.Sprintf("the trait bound `%s: %s` is not satisfied (parameter `%s`)",
						ctx.FormatTy(ty), ctx.Module.DefName(ob.trait), ob.param)))
			}
		}
	}

	for id, args := range ctx.Instances {
		resolved := make([]types.TyID, len(args))
		for i, a := range args {
			resolved[i] = ctx.Apply(a)
			if ctx.Types.MustLookup(resolved[i]).Kind == types.KindVar {
				e := ctx.Module.Expr(id)
				ctx.report(id, diag.NewError(diag.TypeUnresolvedVar, e.Span,
					"type annotations needed for this call"))
				resolved[i] = ctx.ErrorType()
			}
		}
		ctx.Instances[id] = resolved
	}

	for id, ty := range ctx.ExprTypes {
		ctx.ExprTypes[id] = ctx.Apply(ty)
	}
	for id, ty := range ctx.LocalTypes {
		ctx.LocalTypes[id] = ctx.Apply(ty)
	}
}

package sema

import (
	"fmt"

	"rook/internal/diag"
	"rook/internal/hir"
	"rook/internal/source"
	"rook/internal/types"
)

// implKey is the nominal key of an impl's self type: a definition for named
// types, a primitive kind otherwise.
type implKey struct {
	def  hir.DefID
	prim types.Kind
}

// implInfo is one indexed impl block.
type implInfo struct {
	def   hir.DefID // the DefImpl
	trait hir.DefID // NoDefID for inherent impls
}

// keyOfTy computes the impl-index key for a semantic type.
func (ctx *TyContext) keyOfTy(id types.TyID) (implKey, bool) {
	t := ctx.Types.MustLookup(ctx.Apply(id))
	switch t.Kind {
	case types.KindNamed:
		return implKey{def: t.Def}, true
	case types.KindInt, types.KindFloat, types.KindBool, types.KindString, types.KindUnit:
		return implKey{prim: t.Kind}, true
	default:
		return implKey{}, false
	}
}

// keyOfTypeNode computes the impl-index key for a syntactic self type.
func (ctx *TyContext) keyOfTypeNode(id hir.TypeID) (implKey, bool) {
	node := ctx.Module.TypeNode(id)
	if node == nil {
		return implKey{}, false
	}
	switch node.Kind {
	case hir.TypeNamed:
		return implKey{def: node.Def}, true
	case hir.TypePrim:
		switch node.Prim {
		case hir.PrimInt:
			return implKey{prim: types.KindInt}, true
		case hir.PrimFloat:
			return implKey{prim: types.KindFloat}, true
		case hir.PrimBool:
			return implKey{prim: types.KindBool}, true
		case hir.PrimString:
			return implKey{prim: types.KindString}, true
		case hir.PrimUnit:
			return implKey{prim: types.KindUnit}, true
		}
	}
	return implKey{}, false
}

// buildImplIndex collects every impl block keyed by its self type and links
// method signatures back to their impl.
func buildImplIndex(ctx *TyContext) map[implKey][]implInfo {
	index := make(map[implKey][]implInfo)
	ctx.Module.Defs(func(id hir.DefID, d *hir.Def) bool {
		if d.Kind != hir.DefImpl {
			return true
		}
		key, ok := ctx.keyOfTypeNode(d.Impl.SelfTy)
		if !ok {
			return true
		}
		info := implInfo{def: id, trait: ctx.traitDefOf(d.Impl.Trait)}
		index[key] = append(index[key], info)

		for _, m := range d.Impl.Methods {
			md := ctx.Module.Def(m)
			sig := ctx.funcSignature(m, md)
			sig.implDef = id
		}
		return true
	})
	return index
}

// traitClosure returns the trait plus all its supertraits, transitively.
func (ctx *TyContext) traitClosure(trait hir.DefID) []hir.DefID {
	var out []hir.DefID
	seen := make(map[hir.DefID]bool)
	var walk func(hir.DefID)
	walk = func(t hir.DefID) {
		if !t.IsValid() || seen[t] {
			return
		}
		seen[t] = true
		out = append(out, t)
		d := ctx.Module.Def(t)
		if d == nil || d.Kind != hir.DefTrait {
			return
		}
		for _, s := range d.Trait.Supertraits {
			walk(ctx.traitDefOf(s))
		}
	}
	walk(trait)
	return out
}

// checkBound reports whether ty satisfies the trait. Error types satisfy
// everything; generic parameters consult the active bound environment.
func (ctx *TyContext) checkBound(ty types.TyID, trait hir.DefID) bool {
	ty = ctx.Apply(ty)
	t := ctx.Types.MustLookup(ty)

	switch t.Kind {
	case types.KindError:
		return true
	case types.KindGenericParam:
		for _, declared := range ctx.boundEnv[t.ParamIdx] {
			for _, tr := range ctx.traitClosure(declared) {
				if tr == trait {
					return true
				}
			}
		}
		return false
	}

	key, ok := ctx.keyOfTy(ty)
	if !ok {
		return false
	}
	for _, info := range ctx.impls[key] {
		if info.trait != trait {
			continue
		}
		if ctx.implMatches(info, ty) {
			return true
		}
	}
	return false
}

// implMatches trial-unifies the impl's self type (with fresh impl generics)
// against the concrete type, without leaking substitutions.
func (ctx *TyContext) implMatches(info implInfo, ty types.TyID) bool {
	impl := ctx.Module.Def(info.def).Impl
	args := make([]types.TyID, len(impl.Generics))
	for i := range args {
		args[i] = ctx.FreshVar()
	}
	selfTy := ctx.TyOfInstantiated(impl.SelfTy, args)

	saved := make(map[types.TyVarID]types.TyID, len(ctx.subst))
	for k, v := range ctx.subst {
		saved[k] = v
	}
	err := ctx.Unify(selfTy, ty)
	ctx.subst = saved
	return err == nil
}

// obligate checks a bound now, or defers it while the type is a variable.
func (ctx *TyContext) obligate(ty types.TyID, trait hir.DefID, param string, span source.Span, at hir.ExprID) {
	resolved := ctx.Apply(ty)
	t := ctx.Types.MustLookup(resolved)
	if t.Kind == types.KindVar {
		ctx.deferred = append(ctx.deferred, deferredBound{ty: resolved, trait: trait, param: param, span: span})
		return
	}
	if !ctx.checkBound(resolved, trait) {
		ctx.report(at, diag.NewError(diag.BoundUnsatisfied, span,
			fmt.Sprintf("the trait bound `%s: %s` is not satisfied (parameter `%s`)",
				ctx.FormatTy(resolved), ctx.Module.DefName(trait), param)))
	}
}

// checkImpls verifies impl-block well-formedness: supertrait coverage,
// associated-type presence, and where clauses over concrete subjects.
func (ctx *TyContext) checkImpls() {
	ctx.Module.Defs(func(id hir.DefID, d *hir.Def) bool {
		if d.Kind != hir.DefImpl {
			return true
		}
		im := d.Impl
		trait := ctx.traitDefOf(im.Trait)
		selfTy := ctx.TyOf(im.SelfTy)

		if trait.IsValid() {
			td := ctx.Module.Def(trait).Trait

			for _, s := range td.Supertraits {
				sup := ctx.traitDefOf(s)
				if !sup.IsValid() {
					continue
				}
				if !ctx.checkBound(selfTy, sup) {
					ctx.report(hir.NoExprID, diag.NewError(diag.BoundMissingSupertraitImpl, d.Span,
						fmt.Sprintf("`%s` requires `%s`, which `%s` does not implement",
							ctx.Module.DefName(trait), ctx.Module.DefName(sup), ctx.FormatTy(selfTy))))
				}
			}

			for _, want := range td.AssocTypes {
				found := false
				for _, have := range im.Assoc {
					if have.Name == want {
						found = true
						break
					}
				}
				if !found {
					ctx.report(hir.NoExprID, diag.NewError(diag.BoundMissingAssociatedType, d.Span,
						fmt.Sprintf("missing associated type `%s` required by `%s`",
							ctx.Module.Interner.MustLookup(want), ctx.Module.DefName(trait))))
				}
			}
		}

		for _, w := range im.Where {
			subj := ctx.Module.TypeNode(w.Subject)
			if subj != nil && subj.Kind == hir.TypeGenericParam {
				continue // part of the generic environment, checked at use sites
			}
			wt := ctx.traitDefOf(w.Trait)
			if !wt.IsValid() {
				continue
			}
			subjTy := ctx.TyOf(w.Subject)
			if !ctx.checkBound(subjTy, wt) {
				ctx.report(hir.NoExprID, diag.NewError(diag.BoundUnsatisfiedWhereClause, w.Span,
					fmt.Sprintf("where clause `%s: %s` does not hold",
						ctx.FormatTy(subjTy), ctx.Module.DefName(wt))))
			}
		}
		return true
	})
}

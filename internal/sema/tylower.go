package sema

import (
	"fmt"

	"rook/internal/diag"
	"rook/internal/hir"
	"rook/internal/types"
)

// TyOf converts a syntactic type node into a semantic type. Generic
// parameters stay rigid (types.KindGenericParam); instantiation substitutes
// them later.
func (ctx *TyContext) TyOf(id hir.TypeID) types.TyID {
	return ctx.tyOfWith(id, nil)
}

// TyOfInstantiated converts a type node, substituting generic parameter i by
// args[i]. Indices past the argument list stay rigid.
func (ctx *TyContext) TyOfInstantiated(id hir.TypeID, args []types.TyID) types.TyID {
	return ctx.tyOfWith(id, args)
}

func (ctx *TyContext) tyOfWith(id hir.TypeID, args []types.TyID) types.TyID {
	node := ctx.Module.TypeNode(id)
	if node == nil {
		return ctx.Types.Builtins().Unit
	}
	b := ctx.Types.Builtins()

	switch node.Kind {
	case hir.TypeError:
		return b.Error

	case hir.TypeInferred:
		return ctx.FreshVar()

	case hir.TypePrim:
		switch node.Prim {
		case hir.PrimInt:
			return b.Int
		case hir.PrimFloat:
			return b.Float
		case hir.PrimBool:
			return b.Bool
		case hir.PrimString:
			return b.String
		case hir.PrimUnit:
			return b.Unit
		case hir.PrimNever:
			return b.Never
		}
		return b.Error

	case hir.TypeGenericParam:
		if node.ParamIdx < len(args) {
			return args[node.ParamIdx]
		}
		return ctx.Types.Generic(node.ParamIdx)

	case hir.TypeNamed:
		def := ctx.Module.Def(node.Def)
		if def == nil || def.Kind == hir.DefError {
			return b.Error
		}
		want := 0
		switch def.Kind {
		case hir.DefStruct:
			want = len(def.Struct.Generics)
		case hir.DefEnum:
			want = len(def.Enum.Generics)
		case hir.DefTrait:
			want = len(def.Trait.Generics)
		default:
			ctx.report(hir.NoExprID, diag.NewError(diag.TypeMismatch, node.Span,
				fmt.Sprintf("`%s` is not a type", ctx.Module.DefName(node.Def))))
			return b.Error
		}

		tyArgs := make([]types.TyID, 0, want)
		for _, a := range node.Args {
			tyArgs = append(tyArgs, ctx.tyOfWith(a, args))
		}
		switch {
		case len(tyArgs) == want:
		case len(tyArgs) == 0:
			// Bare generic name: let inference pick the arguments.
			for i := 0; i < want; i++ {
				tyArgs = append(tyArgs, ctx.FreshVar())
			}
		default:
			ctx.report(hir.NoExprID, diag.NewError(diag.TypeArityMismatch, node.Span,
				fmt.Sprintf("`%s` expects %d type arguments, found %d",
					ctx.Module.DefName(node.Def), want, len(tyArgs))))
			return b.Error
		}
		return ctx.Types.Named(node.Def, tyArgs)

	case hir.TypeTuple:
		elems := make([]types.TyID, len(node.Elems))
		for i, e := range node.Elems {
			elems[i] = ctx.tyOfWith(e, args)
		}
		return ctx.Types.Tuple(elems)

	case hir.TypeRef:
		return ctx.Types.Ref(ctx.tyOfWith(node.Inner, args), node.Mutable)

	case hir.TypeFunction:
		params := make([]types.TyID, len(node.Elems))
		for i, p := range node.Elems {
			params[i] = ctx.tyOfWith(p, args)
		}
		ret := b.Unit
		if node.Ret.IsValid() {
			ret = ctx.tyOfWith(node.Ret, args)
		}
		return ctx.Types.Fn(params, ret)

	default:
		return b.Error
	}
}

// traitDefOf extracts the trait definition a type node refers to, or NoDefID.
func (ctx *TyContext) traitDefOf(id hir.TypeID) hir.DefID {
	node := ctx.Module.TypeNode(id)
	if node == nil || node.Kind != hir.TypeNamed {
		return hir.NoDefID
	}
	if d := ctx.Module.Def(node.Def); d != nil && d.Kind == hir.DefTrait {
		return node.Def
	}
	return hir.NoDefID
}

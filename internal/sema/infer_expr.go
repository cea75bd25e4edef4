package sema

import (
	"fmt"

	"rook/internal/diag"
	"rook/internal/hir"
	"rook/internal/types"
)

// inferExpr implements the bidirectional walk: expected is NoTyID when the
// context imposes nothing. The result is always recorded in ExprTypes.
func (ctx *TyContext) inferExpr(id hir.ExprID, expected types.TyID) types.TyID {
	e := ctx.Module.Expr(id)
	if e == nil {
		return ctx.ErrorType()
	}
	b := ctx.Types.Builtins()

	var got types.TyID
	switch e.Kind {
	case hir.ExprError:
		got = b.Error

	case hir.ExprLiteral:
		got = ctx.inferLiteral(id, e, expected)

	case hir.ExprVarRef:
		got = ctx.inferVarRef(id, e)

	case hir.ExprCall:
		got = ctx.inferCall(id, e, expected)

	case hir.ExprMethodCall:
		got = ctx.inferMethodCall(id, e)

	case hir.ExprBlock:
		for _, s := range e.Stmts {
			ctx.inferStmt(s)
		}
		if e.Tail.IsValid() {
			got = ctx.inferExpr(e.Tail, expected)
		} else {
			got = b.Unit
		}

	case hir.ExprIf:
		ctx.expectType(e.Cond, b.Bool)
		if e.Else.IsValid() {
			thenTy := ctx.inferExpr(e.Then, expected)
			elseTy := ctx.inferExpr(e.Else, expected)
			got = ctx.unifyExpect(id, thenTy, elseTy, e.Span)
		} else {
			ctx.inferExpr(e.Then, types.NoTyID)
			got = b.Unit
		}

	case hir.ExprWhile:
		ctx.expectType(e.Cond, b.Bool)
		ctx.inferExpr(e.Body, types.NoTyID)
		got = b.Unit

	case hir.ExprMatch:
		got = ctx.inferMatch(id, e, expected)

	case hir.ExprReturn:
		ret := ctx.FuncRet[ctx.currentFn]
		if !e.Operand.IsValid() {
			ctx.unifyExpect(id, ret, b.Unit, e.Span)
		} else {
			ctx.expectType(e.Operand, ret)
		}
		got = b.Never

	case hir.ExprAggregate:
		got = ctx.inferAggregate(id, e, expected)

	case hir.ExprField:
		got = ctx.inferField(id, e)

	case hir.ExprIndex:
		recvTy := ctx.Apply(ctx.inferExpr(e.Recv, types.NoTyID))
		if len(e.Args) > 0 {
			ctx.expectType(e.Args[0], b.Int)
		}
		t := ctx.Types.MustLookup(recvTy)
		switch t.Kind {
		case types.KindArray:
			got = t.Inner
		case types.KindError:
			got = b.Error
		default:
			ctx.report(id, diag.NewError(diag.TypeMismatch, e.Span,
				fmt.Sprintf("cannot index `%s`", ctx.FormatTy(recvTy))))
			got = b.Error
		}

	case hir.ExprRef:
		inner := ctx.inferExpr(e.Operand, types.NoTyID)
		if e.Mutable && !ctx.mutablePlace(e.Operand) {
			ctx.report(id, diag.NewError(diag.MethodMutabilityMismatch, e.Span,
				"cannot borrow immutable place as mutable"))
		}
		got = ctx.Types.Ref(inner, e.Mutable)

	case hir.ExprDeref:
		inner := ctx.Apply(ctx.inferExpr(e.Operand, types.NoTyID))
		t := ctx.Types.MustLookup(inner)
		switch t.Kind {
		case types.KindRef:
			got = t.Inner
		case types.KindError:
			got = b.Error
		case types.KindVar:
			elem := ctx.FreshVar()
			ctx.unifyExpect(id, inner, ctx.Types.Ref(elem, false), e.Span)
			got = elem
		default:
			ctx.report(id, diag.NewError(diag.TypeMismatch, e.Span,
				fmt.Sprintf("cannot dereference `%s`", ctx.FormatTy(inner))))
			got = b.Error
		}

	case hir.ExprClosure:
		got = ctx.inferClosure(id, e, expected)

	case hir.ExprAssign:
		placeTy := ctx.inferExpr(e.Place, types.NoTyID)
		if !ctx.mutablePlace(e.Place) {
			ctx.report(id, diag.NewError(diag.MethodMutabilityMismatch, e.Span,
				"cannot assign to an immutable place"))
		}
		ctx.expectType(e.Value, placeTy)
		got = b.Unit

	case hir.ExprBinaryOp:
		got = ctx.inferBinary(id, e)

	case hir.ExprUnaryOp:
		operand := ctx.inferExpr(e.Operand, expected)
		switch e.Un {
		case hir.UnNot:
			got = ctx.unifyExpect(id, b.Bool, operand, e.Span)
		default:
			got = ctx.requireNumeric(id, operand)
		}

	default:
		got = b.Error
	}

	if expected.IsValid() && e.Kind != hir.ExprLiteral && e.Kind != hir.ExprIf &&
		e.Kind != hir.ExprMatch && e.Kind != hir.ExprBlock {
		got = ctx.unifyExpect(id, expected, got, e.Span)
	}
	return ctx.SetExprType(id, got)
}

// expectType infers an expression against a required type.
func (ctx *TyContext) expectType(id hir.ExprID, want types.TyID) types.TyID {
	return ctx.inferExpr(id, want)
}

func (ctx *TyContext) inferLiteral(id hir.ExprID, e *hir.Expr, expected types.TyID) types.TyID {
	b := ctx.Types.Builtins()
	var own types.TyID
	switch e.Lit.Kind {
	case hir.LitInt:
		own = b.Int
	case hir.LitFloat:
		own = b.Float
	case hir.LitBool:
		own = b.Bool
	case hir.LitString:
		own = b.String
	default:
		own = b.Unit
	}

	if !expected.IsValid() {
		return own
	}
	want := ctx.Types.MustLookup(ctx.Apply(expected))

	// Unsuffixed numeric literals adopt an expected numeric type; suffixed
	// ones are rigid.
	if !e.Lit.Suffixed {
		if e.Lit.Kind == hir.LitInt && (want.Kind == types.KindInt || want.Kind == types.KindFloat) {
			return ctx.Apply(expected)
		}
		if e.Lit.Kind == hir.LitFloat && want.Kind == types.KindFloat {
			return ctx.Apply(expected)
		}
	}
	return ctx.unifyExpect(id, expected, own, e.Span)
}

func (ctx *TyContext) inferVarRef(id hir.ExprID, e *hir.Expr) types.TyID {
	d := ctx.Module.Def(e.Def)
	if d == nil || d.Kind == hir.DefError {
		return ctx.ErrorType()
	}
	switch d.Kind {
	case hir.DefLocal:
		ty, ok := ctx.LocalTypes[e.Def]
		if !ok {
			// A parameter seen before its type was recorded.
			ty = ctx.FreshVar()
			ctx.LocalTypes[e.Def] = ty
		}
		return ty
	case hir.DefFunction, hir.DefExternFunction:
		sig := ctx.funcSignature(e.Def, d)
		if len(sig.generics) > 0 {
			// A bare generic function reference instantiates fresh.
			args := make([]types.TyID, len(sig.generics))
			for i := range args {
				args[i] = ctx.FreshVar()
			}
			params := ctx.substParams(d, args)
			ret := ctx.substRet(d, args)
			ctx.Instances[id] = args
			return ctx.Types.Fn(params, ret)
		}
		return ctx.Types.Fn(sig.params, sig.ret)
	default:
		ctx.report(id, diag.NewError(diag.TypeMismatch, e.Span,
			fmt.Sprintf("`%s` is a %s, not a value", ctx.Module.DefName(e.Def), d.Kind)))
		return ctx.ErrorType()
	}
}

// substParams instantiates a function's declared parameter type nodes.
func (ctx *TyContext) substParams(d *hir.Def, args []types.TyID) []types.TyID {
	out := make([]types.TyID, len(d.Func.Params))
	for i, p := range d.Func.Params {
		if p.Type.IsValid() {
			out[i] = ctx.TyOfInstantiated(p.Type, args)
		} else {
			out[i] = ctx.FreshVar()
		}
	}
	return out
}

func (ctx *TyContext) substRet(d *hir.Def, args []types.TyID) types.TyID {
	if d.Func.Ret.IsValid() {
		return ctx.TyOfInstantiated(d.Func.Ret, args)
	}
	return ctx.Types.Builtins().Unit
}

func (ctx *TyContext) inferCall(id hir.ExprID, e *hir.Expr, expected types.TyID) types.TyID {
	callee := ctx.Module.Expr(e.Callee)

	// Direct calls of named functions instantiate generics at this site.
	if callee.Kind == hir.ExprVarRef {
		if d := ctx.Module.Def(callee.Def); d != nil &&
			(d.Kind == hir.DefFunction || d.Kind == hir.DefExternFunction) {
			return ctx.inferDirectCall(id, e, callee.Def, d)
		}
	}

	// Otherwise the callee is a first-class function value.
	calleeTy := ctx.Apply(ctx.inferExpr(e.Callee, types.NoTyID))
	t := ctx.Types.MustLookup(calleeTy)
	switch t.Kind {
	case types.KindError:
		for _, a := range e.Args {
			ctx.inferExpr(a, types.NoTyID)
		}
		return ctx.ErrorType()
	case types.KindFunction:
		if len(t.Elems) != len(e.Args) {
			ctx.report(id, diag.NewError(diag.TypeArityMismatch, e.Span,
				fmt.Sprintf("expected %d arguments, found %d", len(t.Elems), len(e.Args))))
			return t.Ret
		}
		for i, a := range e.Args {
			ctx.expectType(a, t.Elems[i])
		}
		return t.Ret
	default:
		ctx.report(id, diag.NewError(diag.TypeMismatch, e.Span,
			fmt.Sprintf("`%s` is not callable", ctx.FormatTy(calleeTy))))
		for _, a := range e.Args {
			ctx.inferExpr(a, types.NoTyID)
		}
		return ctx.ErrorType()
	}
}

func (ctx *TyContext) inferDirectCall(id hir.ExprID, e *hir.Expr, fn hir.DefID, d *hir.Def) types.TyID {
	sig := ctx.funcSignature(fn, d)

	var args []types.TyID
	if len(sig.generics) > 0 {
		args = make([]types.TyID, len(sig.generics))
		for i := range args {
			args[i] = ctx.FreshVar()
		}
		// Explicit type arguments pin the corresponding variables.
		for i, ta := range e.TypeArgs {
			if i < len(args) {
				ctx.unifyExpect(id, args[i], ctx.TyOf(ta), e.Span)
			}
		}
		if len(e.TypeArgs) > len(args) {
			ctx.report(id, diag.NewError(diag.TypeArityMismatch, e.Span,
				fmt.Sprintf("function takes %d type arguments, %d given", len(args), len(e.TypeArgs))))
		}
		ctx.Instances[id] = args
	}

	params := sig.params
	ret := sig.ret
	if args != nil {
		params = ctx.substParams(d, args)
		ret = ctx.substRet(d, args)
	}

	if len(params) != len(e.Args) {
		ctx.report(id, diag.NewError(diag.TypeArityMismatch, e.Span,
			fmt.Sprintf("`%s` expects %d arguments, found %d",
				ctx.Module.DefName(fn), len(params), len(e.Args))))
	}
	for i, a := range e.Args {
		if i < len(params) {
			ctx.expectType(a, params[i])
		} else {
			ctx.inferExpr(a, types.NoTyID)
		}
	}

	// Declared bounds become obligations at the call site.
	for i, g := range sig.generics {
		for _, bound := range g.Bounds {
			if tr := ctx.traitDefOf(bound); tr.IsValid() {
				ctx.obligate(args[i], tr, ctx.Module.Interner.MustLookup(g.Name), e.Span, id)
			}
		}
	}
	for _, w := range sig.where {
		subj := ctx.Module.TypeNode(w.Subject)
		wt := ctx.traitDefOf(w.Trait)
		if subj == nil || !wt.IsValid() {
			continue
		}
		if subj.Kind == hir.TypeGenericParam && subj.ParamIdx < len(args) {
			ctx.obligate(args[subj.ParamIdx], wt, "where clause", w.Span, id)
		}
	}

	return ret
}

func (ctx *TyContext) inferMethodCall(id hir.ExprID, e *hir.Expr) types.TyID {
	recvTy := ctx.inferExpr(e.Recv, types.NoTyID)
	recvMut := ctx.mutablePlace(e.Recv)
	ctx.RecvMut[id] = recvMut

	params, ret, ok := ctx.resolveMethod(id, recvTy, e.Method, recvMut, e.Span)
	if !ok {
		for _, a := range e.Args {
			ctx.inferExpr(a, types.NoTyID)
		}
		return ret
	}

	if len(params) != len(e.Args) {
		ctx.report(id, diag.NewError(diag.TypeArityMismatch, e.Span,
			fmt.Sprintf("method expects %d arguments, found %d", len(params), len(e.Args))))
	}
	for i, a := range e.Args {
		if i < len(params) {
			ctx.expectType(a, params[i])
		} else {
			ctx.inferExpr(a, types.NoTyID)
		}
	}
	return ret
}

func (ctx *TyContext) inferAggregate(id hir.ExprID, e *hir.Expr, expected types.TyID) types.TyID {
	b := ctx.Types.Builtins()

	switch e.Agg {
	case hir.AggTuple:
		elems := make([]types.TyID, len(e.Fields))
		for i, f := range e.Fields {
			elems[i] = ctx.inferExpr(f.Value, types.NoTyID)
		}
		return ctx.Types.Tuple(elems)

	case hir.AggArray:
		elem := ctx.FreshVar()
		for _, f := range e.Fields {
			ctx.expectType(f.Value, elem)
		}
		return ctx.Types.Array(elem)

	case hir.AggStruct:
		d := ctx.Module.Def(e.AggDef)
		if d == nil || d.Kind != hir.DefStruct {
			for _, f := range e.Fields {
				ctx.inferExpr(f.Value, types.NoTyID)
			}
			return b.Error
		}
		args := make([]types.TyID, len(d.Struct.Generics))
		for i := range args {
			args[i] = ctx.FreshVar()
		}
		for _, f := range e.Fields {
			if f.Index < 0 || f.Index >= len(d.Struct.Fields) {
				ctx.inferExpr(f.Value, types.NoTyID)
				continue
			}
			ctx.expectType(f.Value, ctx.TyOfInstantiated(d.Struct.Fields[f.Index].Type, args))
		}
		return ctx.Types.Named(e.AggDef, args)

	case hir.AggEnum:
		d := ctx.Module.Def(e.AggDef)
		if d == nil || d.Kind != hir.DefEnum || e.VariantIdx >= len(d.Enum.Variants) {
			for _, f := range e.Fields {
				ctx.inferExpr(f.Value, types.NoTyID)
			}
			return b.Error
		}
		args := make([]types.TyID, len(d.Enum.Generics))
		for i := range args {
			args[i] = ctx.FreshVar()
		}
		variant := d.Enum.Variants[e.VariantIdx]
		if len(e.Fields) != len(variant.Fields) {
			ctx.report(id, diag.NewError(diag.TypeArityMismatch, e.Span,
				fmt.Sprintf("variant `%s` has %d fields, %d given",
					ctx.Module.Interner.MustLookup(variant.Name), len(variant.Fields), len(e.Fields))))
		}
		for i, f := range e.Fields {
			if i < len(variant.Fields) {
				ctx.expectType(f.Value, ctx.TyOfInstantiated(variant.Fields[i], args))
			} else {
				ctx.inferExpr(f.Value, types.NoTyID)
			}
		}
		return ctx.Types.Named(e.AggDef, args)
	}
	return b.Error
}

func (ctx *TyContext) inferField(id hir.ExprID, e *hir.Expr) types.TyID {
	recvTy := ctx.Apply(ctx.inferExpr(e.Recv, types.NoTyID))
	t := ctx.Types.MustLookup(recvTy)
	for t.Kind == types.KindRef {
		recvTy = ctx.Apply(t.Inner)
		t = ctx.Types.MustLookup(recvTy)
	}

	switch t.Kind {
	case types.KindError:
		return ctx.ErrorType()

	case types.KindTuple:
		if e.FieldIdx < 0 || e.FieldIdx >= len(t.Elems) {
			ctx.report(id, diag.NewError(diag.TypeUnknownField, e.Span,
				fmt.Sprintf("tuple `%s` has no element %d", ctx.FormatTy(recvTy), e.FieldIdx)))
			return ctx.ErrorType()
		}
		return t.Elems[e.FieldIdx]

	case types.KindNamed:
		d := ctx.Module.Def(t.Def)
		if d == nil || d.Kind != hir.DefStruct {
			break
		}
		idx := e.FieldIdx
		if idx < 0 {
			for i, f := range d.Struct.Fields {
				if f.Name == e.Name {
					idx = i
					break
				}
			}
		}
		if idx < 0 || idx >= len(d.Struct.Fields) {
			ctx.report(id, diag.NewError(diag.TypeUnknownField, e.Span,
				fmt.Sprintf("no field `%s` on `%s`",
					ctx.Module.Interner.MustLookup(e.Name), ctx.FormatTy(recvTy))))
			return ctx.ErrorType()
		}
		// Record the resolved index for MIR lowering.
		ctx.Module.Expr(id).FieldIdx = idx
		return ctx.TyOfInstantiated(d.Struct.Fields[idx].Type, t.Args)

	case types.KindVar:
		ctx.report(id, diag.NewError(diag.TypeAmbiguousReceiver, e.Span,
			"cannot access a field of an unknown type; add a type annotation"))
		return ctx.ErrorType()
	}

	ctx.report(id, diag.NewError(diag.TypeUnknownField, e.Span,
		fmt.Sprintf("`%s` has no fields", ctx.FormatTy(recvTy))))
	return ctx.ErrorType()
}

func (ctx *TyContext) inferClosure(id hir.ExprID, e *hir.Expr, expected types.TyID) types.TyID {
	// Pull parameter/return hints out of an expected function type.
	var hint types.Type
	if expected.IsValid() {
		want := ctx.Types.MustLookup(ctx.Apply(expected))
		if want.Kind == types.KindFunction {
			hint = want
		}
	}

	params := make([]types.TyID, len(e.Params))
	for i, p := range e.Params {
		switch {
		case p.Type.IsValid():
			params[i] = ctx.TyOf(p.Type)
		case hint.Kind == types.KindFunction && i < len(hint.Elems):
			params[i] = hint.Elems[i]
		default:
			params[i] = ctx.FreshVar()
		}
		ctx.LocalTypes[p.Local] = params[i]
	}

	ret := types.NoTyID
	switch {
	case e.RetTy.IsValid():
		ret = ctx.TyOf(e.RetTy)
	case hint.Kind == types.KindFunction:
		ret = hint.Ret
	default:
		ret = ctx.FreshVar()
	}

	got := ctx.inferExpr(e.Body, ret)
	ctx.unifyExpect(id, ret, got, e.Span)
	return ctx.Types.Fn(params, ret)
}

func (ctx *TyContext) inferBinary(id hir.ExprID, e *hir.Expr) types.TyID {
	b := ctx.Types.Builtins()

	if e.Bin.IsLogical() {
		ctx.expectType(e.LHS, b.Bool)
		ctx.expectType(e.RHS, b.Bool)
		return b.Bool
	}

	lhs := ctx.inferExpr(e.LHS, types.NoTyID)
	rhs := ctx.inferExpr(e.RHS, types.NoTyID)
	merged := ctx.unifyExpect(id, lhs, rhs, e.Span)

	if e.Bin.IsComparison() {
		return b.Bool
	}
	return ctx.requireNumeric(id, merged)
}

// requireNumeric checks arithmetic operand types.
func (ctx *TyContext) requireNumeric(id hir.ExprID, ty types.TyID) types.TyID {
	resolved := ctx.Apply(ty)
	t := ctx.Types.MustLookup(resolved)
	switch t.Kind {
	case types.KindInt, types.KindFloat, types.KindError, types.KindVar,
		types.KindGenericParam, types.KindNamed:
		return resolved
	default:
		e := ctx.Module.Expr(id)
		ctx.report(id, diag.NewError(diag.TypeMismatch, e.Span,
			fmt.Sprintf("cannot apply arithmetic to `%s`", ctx.FormatTy(resolved))))
		return ctx.ErrorType()
	}
}

// mutablePlace reports whether an expression denotes a mutably-reachable
// place: a mut local, a field/index of one, or a deref of &mut.
func (ctx *TyContext) mutablePlace(id hir.ExprID) bool {
	e := ctx.Module.Expr(id)
	if e == nil {
		return false
	}
	switch e.Kind {
	case hir.ExprVarRef:
		d := ctx.Module.Def(e.Def)
		if d != nil && d.Kind == hir.DefLocal {
			if d.Local.Mutable {
				return true
			}
			// A &mut binding reaches its target mutably via deref.
			if ty, ok := ctx.LocalTypes[e.Def]; ok {
				t := ctx.Types.MustLookup(ctx.Apply(ty))
				return t.Kind == types.KindRef && t.Mutable
			}
		}
		return false
	case hir.ExprField:
		return ctx.mutablePlace(e.Recv)
	case hir.ExprIndex:
		return ctx.mutablePlace(e.Recv)
	case hir.ExprDeref:
		ty, ok := ctx.ExprTypes[e.Operand]
		if !ok {
			return false
		}
		t := ctx.Types.MustLookup(ctx.Apply(ty))
		return t.Kind == types.KindRef && t.Mutable
	default:
		return false
	}
}

package mir

import (
	"fmt"
	"strings"

	"rook/internal/hir"
	"rook/internal/source"
	"rook/internal/types"
)

// instanceArgs resolves the type arguments recorded for a call site,
// substituted through the enclosing instantiation.
func (l *Lowerer) instanceArgs(id hir.ExprID) []types.TyID {
	args, ok := l.ctx.Instances[id]
	if !ok {
		return nil
	}
	out := make([]types.TyID, len(args))
	for i, a := range args {
		out[i] = l.applySubst(a)
	}
	return out
}

// callSymbol asks the monomorphizer for an instance when the callee is
// generic.
func (l *Lowerer) callSymbol(callee hir.DefID, args []types.TyID) string {
	d := l.m.Def(callee)
	if d == nil || d.Kind != hir.DefFunction || len(args) == 0 {
		if d != nil && d.Kind == hir.DefExternFunction {
			if d.Func.Abi == "private-v0" {
				return d.Func.MangledSymbol
			}
			return d.Func.Symbol
		}
		return ""
	}
	if l.request == nil {
		return ""
	}
	return l.request.Request(callee, args)
}

// InstanceSymbol renders the canonical symbol of a monomorphic instance.
func InstanceSymbol(name string, tys *types.Interner, args []types.TyID) string {
	if len(args) == 0 {
		return name
	}
	parts := make([]string, len(args))
	for i, a := range args {
		parts[i] = tys.Format(a, nil)
	}
	return fmt.Sprintf("%s<%s>", name, strings.Join(parts, ","))
}

// emitCall ends the current block with a Call terminator and continues in
// the target block. The result lands in a fresh temporary.
func (l *Lowerer) emitCall(callee hir.DefID, sym string, args []Operand, resultTy types.TyID, span source.Span) Operand {
	dest := l.newTemp(resultTy, span)
	next := l.newBlock()
	l.terminate(Terminator{
		Kind:   TermCall,
		Callee: callee,
		Sym:    sym,
		Args:   args,
		Dest:   PlaceOf(dest),
		Target: next,
	})
	l.cur = next
	return Copy(PlaceOf(dest))
}

func (l *Lowerer) lowerCall(id hir.ExprID, e *hir.Expr) Operand {
	args := make([]Operand, 0, len(e.Args))
	for _, a := range e.Args {
		args = append(args, l.lowerExpr(a))
	}

	callee := l.m.Expr(e.Callee)
	if callee.Kind == hir.ExprVarRef {
		if d := l.m.Def(callee.Def); d != nil &&
			(d.Kind == hir.DefFunction || d.Kind == hir.DefExternFunction) {
			tyArgs := l.instanceArgs(id)
			sym := l.callSymbol(callee.Def, tyArgs)
			return l.emitCall(callee.Def, sym, args, l.tyOfExpr(id), e.Span)
		}
	}

	// Indirect call through a function value: evaluate the callee operand;
	// call semantics for closure values stay with the backends.
	l.lowerExpr(e.Callee)
	return l.emitCall(hir.NoDefID, "", args, l.tyOfExpr(id), e.Span)
}

// lowerMethodCall rewrites the call onto the resolved function, prepending
// the receiver (wrapped in a reference for &self / &mut self).
func (l *Lowerer) lowerMethodCall(id hir.ExprID, e *hir.Expr) Operand {
	target, ok := l.ctx.Methods[id]
	if !ok {
		// Resolution failed during inference; conservative placeholder.
		for _, a := range e.Args {
			l.lowerExpr(a)
		}
		return l.errorOperand(id)
	}

	var recv Operand
	switch target.SelfKind {
	case hir.SelfRef, hir.SelfRefMut:
		place, ok := l.lowerPlace(e.Recv)
		if !ok {
			place = l.operandPlace(l.lowerExpr(e.Recv), l.tyOfExpr(e.Recv), e.Span)
		}
		tmp := l.newTemp(l.ctx.Types.Ref(l.tyOfExpr(e.Recv), target.SelfKind == hir.SelfRefMut), e.Span)
		l.emit(Assign(PlaceOf(tmp), RValue{
			Kind:     RvRef,
			RefMut:   target.SelfKind == hir.SelfRefMut,
			RefPlace: place,
		}))
		recv = Copy(PlaceOf(tmp))
	default:
		recv = l.lowerExpr(e.Recv)
		if recv.Kind != OpConst {
			recv = Move(recv.Place)
		}
	}

	args := make([]Operand, 0, len(e.Args)+1)
	args = append(args, recv)
	for _, a := range e.Args {
		args = append(args, l.lowerExpr(a))
	}

	tyArgs := l.instanceArgs(id)
	sym := l.callSymbol(target.Func, tyArgs)
	return l.emitCall(target.Func, sym, args, l.tyOfExpr(id), e.Span)
}

// lowerAggregate allocates a temporary and assigns each field in place; the
// aggregate's value is a copy of the temporary.
func (l *Lowerer) lowerAggregate(id hir.ExprID, e *hir.Expr) Operand {
	ty := l.tyOfExpr(id)
	tmp := l.newTemp(ty, e.Span)

	offset := 0
	if e.Agg == hir.AggEnum {
		offset = 1
		// The discriminant is Field(0) of the {tag, payload...} layout.
		l.emit(Assign(PlaceOf(tmp).Field(0),
			RValue{Kind: RvUse, Use: IntConst(int64(e.VariantIdx), l.ctx.Types.Builtins().Int)}))
	}

	for _, f := range e.Fields {
		if f.Index < 0 {
			l.lowerExpr(f.Value)
			continue
		}
		op := l.lowerExpr(f.Value)
		l.emit(Assign(PlaceOf(tmp).Field(f.Index+offset), RValue{Kind: RvUse, Use: op}))
	}

	return Copy(PlaceOf(tmp))
}

// lowerClosure emits the capture aggregate; invoking closure values is out
// of the core's scope.
func (l *Lowerer) lowerClosure(id hir.ExprID, e *hir.Expr) Operand {
	tmp := l.newTemp(l.tyOfExpr(id), e.Span)

	operands := make([]Operand, 0, len(e.Captures))
	for _, cap := range e.Captures {
		operands = append(operands, Copy(PlaceOf(l.bindLocal(cap))))
	}
	l.emit(Assign(PlaceOf(tmp), RValue{
		Kind:     RvAggregate,
		Agg:      AggClosure,
		Operands: operands,
	}))
	return Copy(PlaceOf(tmp))
}

var binOpTable = map[hir.BinOp]BinOp{
	hir.BinAdd: BinAdd,
	hir.BinSub: BinSub,
	hir.BinMul: BinMul,
	hir.BinDiv: BinDiv,
	hir.BinRem: BinRem,
	hir.BinEq:  BinEq,
	hir.BinNe:  BinNe,
	hir.BinLt:  BinLt,
	hir.BinLe:  BinLe,
	hir.BinGt:  BinGt,
	hir.BinGe:  BinGe,
}

func (l *Lowerer) lowerBinary(id hir.ExprID, e *hir.Expr) Operand {
	b := l.ctx.Types.Builtins()

	// && and || short-circuit through control flow.
	if e.Bin.IsLogical() {
		result := l.newTemp(b.Bool, e.Span)
		lhs := l.lowerExpr(e.LHS)
		lhsTmp := l.operandPlace(lhs, b.Bool, e.Span)

		rhsBlock := l.newBlock()
		shortBlock := l.newBlock()
		joinBlock := l.newBlock()

		shortVal := e.Bin == hir.BinOr // || short-circuits to true, && to false
		if e.Bin == hir.BinAnd {
			l.switchTo(Copy(lhsTmp), 1, rhsBlock, shortBlock)
		} else {
			l.switchTo(Copy(lhsTmp), 1, shortBlock, rhsBlock)
		}

		l.cur = rhsBlock
		rhs := l.lowerExpr(e.RHS)
		l.emit(Assign(PlaceOf(result), RValue{Kind: RvUse, Use: rhs}))
		l.gotoBlock(joinBlock)

		l.cur = shortBlock
		l.emit(Assign(PlaceOf(result), RValue{Kind: RvUse, Use: Const(Constant{Type: b.Bool, Bool: shortVal})}))
		l.gotoBlock(joinBlock)

		l.cur = joinBlock
		return Copy(PlaceOf(result))
	}

	lhs := l.lowerExpr(e.LHS)
	rhs := l.lowerExpr(e.RHS)
	out := l.newTemp(l.tyOfExpr(id), e.Span)
	l.emit(Assign(PlaceOf(out), RValue{
		Kind: RvBinaryOp,
		Bin:  binOpTable[e.Bin],
		LHS:  lhs,
		RHS:  rhs,
	}))
	return Copy(PlaceOf(out))
}

// lowerPlace lowers a place expression: a local, or a chain of field, index
// and deref projections over one.
func (l *Lowerer) lowerPlace(id hir.ExprID) (Place, bool) {
	e := l.m.Expr(id)
	if e == nil {
		return Place{}, false
	}

	switch e.Kind {
	case hir.ExprVarRef:
		d := l.m.Def(e.Def)
		if d != nil && d.Kind == hir.DefLocal {
			return PlaceOf(l.bindLocal(e.Def)), true
		}
		return Place{}, false

	case hir.ExprField:
		base, ok := l.lowerPlace(e.Recv)
		if !ok {
			return Place{}, false
		}
		// Auto-deref: a field access through a reference dereferences
		// first, mirroring inference.
		t := l.ctx.Types.MustLookup(l.tyOfExpr(e.Recv))
		for t.Kind == types.KindRef {
			base = base.Deref()
			t = l.ctx.Types.MustLookup(l.applySubst(t.Inner))
		}
		if e.FieldIdx < 0 {
			return Place{}, false
		}
		return base.Field(e.FieldIdx), true

	case hir.ExprIndex:
		base, ok := l.lowerPlace(e.Recv)
		if !ok {
			return Place{}, false
		}
		if len(e.Args) != 1 {
			return Place{}, false
		}
		idxOp := l.lowerExpr(e.Args[0])
		idxLocal := l.spillToLocal(idxOp, l.ctx.Types.Builtins().Int, e.Span)
		return base.AtIndex(idxLocal), true

	case hir.ExprDeref:
		base, ok := l.lowerPlace(e.Operand)
		if !ok {
			base = l.operandPlace(l.lowerExpr(e.Operand), l.tyOfExpr(e.Operand), e.Span)
		}
		return base.Deref(), true

	default:
		return Place{}, false
	}
}

// spillToLocal materializes an operand into a plain local (no projections),
// as index projections require.
func (l *Lowerer) spillToLocal(op Operand, ty types.TyID, span source.Span) LocalID {
	if op.Kind != OpConst && len(op.Place.Proj) == 0 {
		return op.Place.Local
	}
	tmp := l.newTemp(ty, span)
	l.emit(Assign(PlaceOf(tmp), RValue{Kind: RvUse, Use: op}))
	return tmp
}

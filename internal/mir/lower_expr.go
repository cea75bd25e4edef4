package mir

import (
	"rook/internal/hir"
	"rook/internal/source"
	"rook/internal/types"
)

// lowerExpr lowers an expression to an operand, emitting statements and
// terminators along the way. Error nodes lower to conservative placeholders;
// lowering never aborts.
func (l *Lowerer) lowerExpr(id hir.ExprID) Operand {
	e := l.m.Expr(id)
	if e == nil {
		return l.errorOperand(id)
	}

	switch e.Kind {
	case hir.ExprError:
		return l.errorOperand(id)

	case hir.ExprLiteral:
		return l.lowerLiteral(id, e)

	case hir.ExprVarRef:
		return l.lowerVarRef(id, e)

	case hir.ExprBlock:
		var blockLocals []LocalID
		for _, s := range e.Stmts {
			blockLocals = append(blockLocals, l.lowerStmt(s)...)
		}
		var out Operand
		if e.Tail.IsValid() {
			out = l.lowerExpr(e.Tail)
		} else {
			out = l.unitOperand()
		}
		for i := len(blockLocals) - 1; i >= 0; i-- {
			l.emit(StorageDead(blockLocals[i]))
		}
		return out

	case hir.ExprIf:
		return l.lowerIf(id, e)

	case hir.ExprWhile:
		return l.lowerWhile(e)

	case hir.ExprMatch:
		return l.lowerMatch(id, e)

	case hir.ExprReturn:
		var val Operand
		has := false
		if e.Operand.IsValid() {
			val = l.lowerExpr(e.Operand)
			has = true
		}
		l.terminate(Terminator{Kind: TermReturn, HasValue: has, Value: val})
		return l.unitOperand()

	case hir.ExprCall:
		return l.lowerCall(id, e)

	case hir.ExprMethodCall:
		return l.lowerMethodCall(id, e)

	case hir.ExprAggregate:
		return l.lowerAggregate(id, e)

	case hir.ExprField, hir.ExprIndex, hir.ExprDeref:
		if place, ok := l.lowerPlace(id); ok {
			return Copy(place)
		}
		return l.errorOperand(id)

	case hir.ExprRef:
		place, ok := l.lowerPlace(e.Operand)
		if !ok {
			// Referencing a temporary: materialize it first.
			tmp := l.newTemp(l.tyOfExpr(e.Operand), e.Span)
			l.emit(Assign(PlaceOf(tmp), RValue{Kind: RvUse, Use: l.lowerExpr(e.Operand)}))
			place = PlaceOf(tmp)
		}
		out := l.newTemp(l.tyOfExpr(id), e.Span)
		l.emit(Assign(PlaceOf(out), RValue{Kind: RvRef, RefMut: e.Mutable, RefPlace: place}))
		return Copy(PlaceOf(out))

	case hir.ExprAssign:
		value := l.lowerExpr(e.Value)
		if place, ok := l.lowerPlace(e.Place); ok {
			l.emit(Assign(place, RValue{Kind: RvUse, Use: value}))
		}
		return l.unitOperand()

	case hir.ExprBinaryOp:
		return l.lowerBinary(id, e)

	case hir.ExprUnaryOp:
		operand := l.lowerExpr(e.Operand)
		out := l.newTemp(l.tyOfExpr(id), e.Span)
		un := UnNeg
		if e.Un == hir.UnNot {
			un = UnNot
		}
		l.emit(Assign(PlaceOf(out), RValue{Kind: RvUnaryOp, Un: un, Operand: operand}))
		return Copy(PlaceOf(out))

	case hir.ExprClosure:
		return l.lowerClosure(id, e)

	default:
		return l.errorOperand(id)
	}
}

// errorOperand materializes a dummy local of Error type: the conservative
// placeholder for failed regions.
func (l *Lowerer) errorOperand(id hir.ExprID) Operand {
	span := l.m.Expr(id).Span
	tmp := l.newTemp(l.ctx.ErrorType(), span)
	return Copy(PlaceOf(tmp))
}

func (l *Lowerer) unitOperand() Operand {
	return Const(Constant{Type: l.ctx.Types.Builtins().Unit, Unit: true})
}

func (l *Lowerer) lowerLiteral(id hir.ExprID, e *hir.Expr) Operand {
	ty := l.tyOfExpr(id)
	switch e.Lit.Kind {
	case hir.LitInt:
		return Const(Constant{Type: ty, Int: e.Lit.IntVal})
	case hir.LitFloat:
		return Const(Constant{Type: ty, Fl: e.Lit.FloatVal})
	case hir.LitBool:
		return Const(Constant{Type: ty, Bool: e.Lit.BoolVal})
	case hir.LitString:
		return Const(Constant{Type: ty, Str: e.Lit.Text})
	default:
		return l.unitOperand()
	}
}

func (l *Lowerer) lowerVarRef(id hir.ExprID, e *hir.Expr) Operand {
	d := l.m.Def(e.Def)
	if d == nil {
		return l.errorOperand(id)
	}
	switch d.Kind {
	case hir.DefLocal:
		return Copy(PlaceOf(l.bindLocal(e.Def)))
	default:
		// First-class function references lower to a zero-sized constant;
		// backends resolve the symbol from the type.
		return Const(Constant{Type: l.tyOfExpr(id)})
	}
}

func (l *Lowerer) lowerStmt(id hir.StmtID) []LocalID {
	s := l.m.Stmt(id)
	if s == nil {
		return nil
	}
	switch s.Kind {
	case hir.StmtLet:
		var init Operand
		hasInit := s.Init.IsValid()
		if hasInit {
			init = l.lowerExpr(s.Init)
		}
		locals := l.declarePatternLocals(s.Pat)
		if hasInit {
			l.bindPatternValue(s.Pat, init, l.tyOfExpr(s.Init))
		}
		return locals

	case hir.StmtExpr:
		l.lowerExpr(s.Expr)
		return nil
	default:
		return nil
	}
}

// declarePatternLocals allocates frame slots for a pattern's bindings and
// marks them live.
func (l *Lowerer) declarePatternLocals(pat hir.PatID) []LocalID {
	var out []LocalID
	for _, def := range l.m.CollectBindings(pat) {
		local := l.bindLocal(def)
		l.emit(StorageLive(local))
		out = append(out, local)
	}
	return out
}

// bindPatternValue destructures an operand into the pattern's bindings
// (irrefutable position: let statements and parameters).
func (l *Lowerer) bindPatternValue(pat hir.PatID, value Operand, ty types.TyID) {
	p := l.m.Pat(pat)
	if p == nil {
		return
	}
	ty = l.applySubst(ty)

	switch p.Kind {
	case hir.PatBinding:
		local := l.bindLocal(p.Local)
		l.emit(Assign(PlaceOf(local), RValue{Kind: RvUse, Use: value}))
		if p.Sub.IsValid() {
			l.bindPatternValue(p.Sub, Copy(PlaceOf(local)), ty)
		}

	case hir.PatTuple:
		base := l.operandPlace(value, ty, p.Span)
		t := l.ctx.Types.MustLookup(ty)
		for i, sub := range p.Elems {
			elemTy := l.ctx.ErrorType()
			if t.Kind == types.KindTuple && i < len(t.Elems) {
				elemTy = t.Elems[i]
			}
			l.bindPatternValue(sub, Copy(base.Field(i)), elemTy)
		}

	case hir.PatStruct:
		base := l.operandPlace(value, ty, p.Span)
		t := l.ctx.Types.MustLookup(ty)
		d := l.m.Def(p.Def)
		for _, f := range p.Fields {
			if f.Index < 0 {
				continue
			}
			fieldTy := l.ctx.ErrorType()
			if d != nil && d.Kind == hir.DefStruct && f.Index < len(d.Struct.Fields) && t.Kind == types.KindNamed {
				fieldTy = l.applySubst(l.ctx.TyOfInstantiated(d.Struct.Fields[f.Index].Type, t.Args))
			}
			l.bindPatternValue(f.Pat, Copy(base.Field(f.Index)), fieldTy)
		}

	case hir.PatEnumVariant:
		base := l.operandPlace(value, ty, p.Span)
		t := l.ctx.Types.MustLookup(ty)
		d := l.m.Def(p.Def)
		for i, sub := range p.Elems {
			fieldTy := l.ctx.ErrorType()
			if d != nil && d.Kind == hir.DefEnum && p.VariantIdx < len(d.Enum.Variants) && t.Kind == types.KindNamed {
				fields := d.Enum.Variants[p.VariantIdx].Fields
				if i < len(fields) {
					fieldTy = l.applySubst(l.ctx.TyOfInstantiated(fields[i], t.Args))
				}
			}
			// Payload i lives at Field(i+1) of the {tag, payload...} layout.
			l.bindPatternValue(sub, Copy(base.Field(i+1)), fieldTy)
		}
	}
}

// operandPlace coerces an operand to a place, spilling constants into a
// temporary.
func (l *Lowerer) operandPlace(op Operand, ty types.TyID, span source.Span) Place {
	if op.Kind != OpConst {
		return op.Place
	}
	tmp := l.newTemp(ty, span)
	l.emit(Assign(PlaceOf(tmp), RValue{Kind: RvUse, Use: op}))
	return PlaceOf(tmp)
}

package mir

import (
	"rook/internal/hir"
	"rook/internal/types"
)

// lowerIf expands to the conventional shape: assign the condition into a
// temporary, SwitchInt{0 -> else, otherwise -> then}, join block.
func (l *Lowerer) lowerIf(id hir.ExprID, e *hir.Expr) Operand {
	cond := l.lowerExpr(e.Cond)
	condTmp := l.operandPlace(cond, l.ctx.Types.Builtins().Bool, e.Span)

	thenBlock := l.newBlock()
	elseBlock := l.newBlock()
	joinBlock := l.newBlock()
	result := l.newTemp(l.tyOfExpr(id), e.Span)

	l.terminate(Terminator{
		Kind:      TermSwitchInt,
		Discr:     Copy(condTmp),
		Targets:   []SwitchTarget{{Value: 0, Target: elseBlock}},
		Otherwise: thenBlock,
	})

	l.cur = thenBlock
	thenVal := l.lowerExpr(e.Then)
	l.emit(Assign(PlaceOf(result), RValue{Kind: RvUse, Use: thenVal}))
	l.gotoBlock(joinBlock)

	l.cur = elseBlock
	if e.Else.IsValid() {
		elseVal := l.lowerExpr(e.Else)
		l.emit(Assign(PlaceOf(result), RValue{Kind: RvUse, Use: elseVal}))
	} else {
		l.emit(Assign(PlaceOf(result), RValue{Kind: RvUse, Use: l.unitOperand()}))
	}
	l.gotoBlock(joinBlock)

	l.cur = joinBlock
	return Copy(PlaceOf(result))
}

func (l *Lowerer) lowerWhile(e *hir.Expr) Operand {
	condBlock := l.newBlock()
	bodyBlock := l.newBlock()
	exitBlock := l.newBlock()

	l.gotoBlock(condBlock)

	l.cur = condBlock
	cond := l.lowerExpr(e.Cond)
	condTmp := l.operandPlace(cond, l.ctx.Types.Builtins().Bool, e.Span)
	l.terminate(Terminator{
		Kind:      TermSwitchInt,
		Discr:     Copy(condTmp),
		Targets:   []SwitchTarget{{Value: 0, Target: exitBlock}},
		Otherwise: bodyBlock,
	})

	l.cur = bodyBlock
	l.lowerExpr(e.Body)
	l.gotoBlock(condBlock)

	l.cur = exitBlock
	return l.unitOperand()
}

// lowerMatch expands the decision procedure: each arm tests its pattern via
// SwitchInt on discriminants, booleans or integers, falling through to the
// next arm. The final fallthrough is Unreachable when the analyzer proved
// the match exhaustive, otherwise a call into the missing-pattern runtime
// hook.
func (l *Lowerer) lowerMatch(id hir.ExprID, e *hir.Expr) Operand {
	scrutTy := l.tyOfExpr(e.Scrutinee)
	scrut := l.lowerExpr(e.Scrutinee)
	scrutPlace := l.operandPlace(scrut, scrutTy, e.Span)

	result := l.newTemp(l.tyOfExpr(id), e.Span)
	joinBlock := l.newBlock()

	for _, arm := range e.Arms {
		armBlock := l.newBlock()
		failBlock := l.newBlock()

		l.testPattern(arm.Pat, scrutPlace, scrutTy, armBlock, failBlock)

		l.cur = armBlock
		for _, def := range l.m.CollectBindings(arm.Pat) {
			l.emit(StorageLive(l.bindLocal(def)))
		}
		l.bindPatternPlace(arm.Pat, scrutPlace, scrutTy)
		val := l.lowerExpr(arm.Body)
		l.emit(Assign(PlaceOf(result), RValue{Kind: RvUse, Use: val}))
		l.gotoBlock(joinBlock)

		l.cur = failBlock
	}

	// Fallthrough block: no arm matched.
	if l.ctx.Exhaustive[id] {
		l.terminate(Terminator{Kind: TermUnreachable})
	} else {
		l.usedMissingPattern = true
		unreach := l.newBlock()
		l.terminate(Terminator{
			Kind:   TermCall,
			Sym:    missingPatternSymbol,
			Dest:   PlaceOf(l.newTemp(l.ctx.Types.Builtins().Never, e.Span)),
			Target: unreach,
		})
		l.cur = unreach
		l.terminate(Terminator{Kind: TermUnreachable})
	}

	l.cur = joinBlock
	return Copy(PlaceOf(result))
}

// testPattern emits the runtime test for a pattern: the current block ends
// with a jump to ok when the pattern matches the place, fail otherwise.
func (l *Lowerer) testPattern(pat hir.PatID, place Place, ty types.TyID, ok, fail BlockID) {
	p := l.m.Pat(pat)
	if p == nil {
		l.gotoBlock(ok)
		return
	}
	b := l.ctx.Types.Builtins()

	switch p.Kind {
	case hir.PatWildcard, hir.PatBinding, hir.PatError:
		if p.Kind == hir.PatBinding && p.Sub.IsValid() {
			l.testPattern(p.Sub, place, ty, ok, fail)
			return
		}
		l.gotoBlock(ok)

	case hir.PatLiteral:
		switch p.Lit.Kind {
		case hir.LitBool:
			want := uint64(0)
			if p.Lit.BoolVal {
				want = 1
			}
			l.switchTo(Copy(place), want, ok, fail)
		case hir.LitInt:
			l.switchTo(Copy(place), uint64(p.Lit.IntVal), ok, fail)
		case hir.LitString:
			eq := l.newTemp(b.Bool, p.Span)
			l.emit(Assign(PlaceOf(eq), RValue{
				Kind: RvBinaryOp, Bin: BinEq,
				LHS: Copy(place),
				RHS: Const(Constant{Type: b.String, Str: p.Lit.Text}),
			}))
			l.switchTo(Copy(PlaceOf(eq)), 1, ok, fail)
		default:
			l.gotoBlock(ok)
		}

	case hir.PatRange:
		// lo <= place && place <= hi via two comparisons.
		geBlock := l.newBlock()
		ge := l.newTemp(b.Bool, p.Span)
		l.emit(Assign(PlaceOf(ge), RValue{
			Kind: RvBinaryOp, Bin: BinGe,
			LHS: Copy(place), RHS: IntConst(p.Lo, b.Int),
		}))
		l.switchTo(Copy(PlaceOf(ge)), 1, geBlock, fail)

		l.cur = geBlock
		hi := p.Hi
		cmp := BinLe
		if !p.Inclusive {
			cmp = BinLt
		}
		le := l.newTemp(b.Bool, p.Span)
		l.emit(Assign(PlaceOf(le), RValue{
			Kind: RvBinaryOp, Bin: cmp,
			LHS: Copy(place), RHS: IntConst(hi, b.Int),
		}))
		l.switchTo(Copy(PlaceOf(le)), 1, ok, fail)

	case hir.PatTuple:
		l.testSubPatterns(p.Elems, place, ty, 0, ok, fail)

	case hir.PatStruct:
		cur := ok
		// Test fields right to left so the chain reads in order.
		for i := len(p.Fields) - 1; i >= 0; i-- {
			f := p.Fields[i]
			if f.Index < 0 {
				continue
			}
			next := cur
			cur = l.newBlock()
			l.inBlock(cur, func() {
				l.testPattern(f.Pat, place.Field(f.Index), l.structFieldTy(p.Def, f.Index, ty), next, fail)
			})
		}
		l.gotoBlock(cur)

	case hir.PatEnumVariant:
		// Discriminant read: Field(0) of the {tag, payload...} layout.
		tag := l.newTemp(b.Int, p.Span)
		l.emit(Assign(PlaceOf(tag), RValue{Kind: RvUse, Use: Copy(place.Field(0))}))
		payloadBlock := l.newBlock()
		l.switchTo(Copy(PlaceOf(tag)), uint64(p.VariantIdx), payloadBlock, fail)

		l.cur = payloadBlock
		l.testSubPatterns(p.Elems, place, ty, 1, ok, fail)

	case hir.PatOr:
		cur := fail
		for i := len(p.Elems) - 1; i >= 0; i-- {
			alt := p.Elems[i]
			next := cur
			cur = l.newBlock()
			l.inBlock(cur, func() {
				l.testPattern(alt, place, ty, ok, next)
			})
		}
		l.gotoBlock(cur)

	default:
		l.gotoBlock(ok)
	}
}

// testSubPatterns chains tests over projected fields starting at the given
// field offset (1 for enum payloads, 0 otherwise).
func (l *Lowerer) testSubPatterns(pats []hir.PatID, place Place, ty types.TyID, offset int, ok, fail BlockID) {
	cur := ok
	for i := len(pats) - 1; i >= 0; i-- {
		sub := pats[i]
		fieldPlace := place.Field(i + offset)
		next := cur
		cur = l.newBlock()
		idx := i
		l.inBlock(cur, func() {
			l.testPattern(sub, fieldPlace, l.subPatTy(ty, idx), next, fail)
		})
	}
	l.gotoBlock(cur)
}

// inBlock runs emission with the current block temporarily switched.
func (l *Lowerer) inBlock(b BlockID, f func()) {
	saved := l.cur
	l.cur = b
	f()
	l.cur = saved
}

// switchTo ends the block with SwitchInt{want -> ok, otherwise -> fail}.
func (l *Lowerer) switchTo(discr Operand, want uint64, ok, fail BlockID) {
	l.terminate(Terminator{
		Kind:      TermSwitchInt,
		Discr:     discr,
		Targets:   []SwitchTarget{{Value: want, Target: ok}},
		Otherwise: fail,
	})
}

// bindPatternPlace assigns arm bindings from the matched place.
func (l *Lowerer) bindPatternPlace(pat hir.PatID, place Place, ty types.TyID) {
	p := l.m.Pat(pat)
	if p == nil {
		return
	}
	switch p.Kind {
	case hir.PatBinding:
		local := l.bindLocal(p.Local)
		l.emit(Assign(PlaceOf(local), RValue{Kind: RvUse, Use: Copy(place)}))
		if p.Sub.IsValid() {
			l.bindPatternPlace(p.Sub, place, ty)
		}
	case hir.PatTuple:
		for i, sub := range p.Elems {
			l.bindPatternPlace(sub, place.Field(i), l.subPatTy(ty, i))
		}
	case hir.PatStruct:
		for _, f := range p.Fields {
			if f.Index >= 0 {
				l.bindPatternPlace(f.Pat, place.Field(f.Index), l.structFieldTy(p.Def, f.Index, ty))
			}
		}
	case hir.PatEnumVariant:
		for i, sub := range p.Elems {
			l.bindPatternPlace(sub, place.Field(i+1), l.enumFieldTy(p.Def, p.VariantIdx, i, ty))
		}
	case hir.PatOr:
		// Alternatives share locals; bind from the first alternative's
		// shape. Backends only read bindings on the matched path.
		if len(p.Elems) > 0 {
			l.bindPatternPlace(p.Elems[0], place, ty)
		}
	}
}

// subPatTy projects the i-th component type of a tuple scrutinee.
func (l *Lowerer) subPatTy(ty types.TyID, i int) types.TyID {
	t := l.ctx.Types.MustLookup(l.applySubst(ty))
	if t.Kind == types.KindTuple && i < len(t.Elems) {
		return t.Elems[i]
	}
	return l.ctx.ErrorType()
}

func (l *Lowerer) structFieldTy(def hir.DefID, idx int, ty types.TyID) types.TyID {
	d := l.m.Def(def)
	t := l.ctx.Types.MustLookup(l.applySubst(ty))
	if d != nil && d.Kind == hir.DefStruct && idx < len(d.Struct.Fields) && t.Kind == types.KindNamed {
		return l.applySubst(l.ctx.TyOfInstantiated(d.Struct.Fields[idx].Type, t.Args))
	}
	return l.ctx.ErrorType()
}

func (l *Lowerer) enumFieldTy(def hir.DefID, variant, idx int, ty types.TyID) types.TyID {
	d := l.m.Def(def)
	t := l.ctx.Types.MustLookup(l.applySubst(ty))
	if d != nil && d.Kind == hir.DefEnum && variant < len(d.Enum.Variants) && t.Kind == types.KindNamed {
		fields := d.Enum.Variants[variant].Fields
		if idx < len(fields) {
			return l.applySubst(l.ctx.TyOfInstantiated(fields[idx], t.Args))
		}
	}
	return l.ctx.ErrorType()
}

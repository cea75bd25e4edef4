package mir

import (
	"fmt"

	"rook/internal/hir"
	"rook/internal/sema"
	"rook/internal/source"
	"rook/internal/symbols"
	"rook/internal/types"
)

// Requester hands out monomorphic instances for generic calls. The
// monomorphizer implements it; a nil requester leaves generic calls keyed by
// their origin definition only.
type Requester interface {
	Request(def symbols.DefID, args []types.TyID) string
}

// missingPatternSymbol is the runtime hook a non-exhaustive match falls back
// to when no arm matched.
const missingPatternSymbol = "rook_rt_missing_pattern"

// Lowerer translates one typed HIR function into a MIR function.
type Lowerer struct {
	m       *hir.Module
	ctx     *sema.TyContext
	request Requester

	// subst instantiates generic parameters during monomorphization;
	// nil while lowering non-generic functions.
	subst []types.TyID

	fn      *Func
	cur     BlockID
	localOf map[symbols.DefID]LocalID
	temps   int

	usedMissingPattern bool
}

// LowerModule lowers every non-generic function with a body, plus the extern
// table. Generic functions are instantiated on demand through the requester.
func LowerModule(m *hir.Module, ctx *sema.TyContext, request Requester) *Module {
	out := &Module{Types: ctx.Types}
	needMissing := false

	m.Defs(func(id hir.DefID, d *hir.Def) bool {
		switch d.Kind {
		case hir.DefStruct:
			td := TypeDef{Def: id, Name: m.DefName(id), Kind: TypeDefStruct}
			for _, f := range d.Struct.Fields {
				td.Fields = append(td.Fields, ctx.TyOf(f.Type))
			}
			out.TypeDefs = append(out.TypeDefs, td)
		case hir.DefEnum:
			td := TypeDef{Def: id, Name: m.DefName(id), Kind: TypeDefEnum}
			for _, v := range d.Enum.Variants {
				var fields []types.TyID
				for _, f := range v.Fields {
					fields = append(fields, ctx.TyOf(f))
				}
				td.Variants = append(td.Variants, fields)
			}
			out.TypeDefs = append(out.TypeDefs, td)
		case hir.DefExternFunction:
			out.Externs = append(out.Externs, externOf(m, ctx, id, d))
		case hir.DefFunction:
			if !d.Func.Body.IsValid() || len(d.Func.Generics) > 0 {
				return true
			}
			fn, used := LowerFunc(m, ctx, id, nil, request, "")
			fn.ID = FuncID(len(out.Funcs))
			out.Funcs = append(out.Funcs, fn)
			needMissing = needMissing || used
		}
		return true
	})

	if needMissing {
		out.Externs = append(out.Externs, Extern{
			Name:   missingPatternSymbol,
			Symbol: missingPatternSymbol,
			Abi:    "c",
			Result: ctx.Types.Builtins().Never,
		})
	}
	return out
}

func externOf(m *hir.Module, ctx *sema.TyContext, id hir.DefID, d *hir.Def) Extern {
	fd := d.Func
	ext := Extern{
		Def:    id,
		Name:   m.DefName(id),
		Symbol: fd.Symbol,
		Abi:    fd.Abi,
		Result: ctx.Types.Builtins().Unit,
	}
	if fd.Abi == "private-v0" {
		ext.Symbol = fd.MangledSymbol
	}
	for _, p := range fd.Params {
		if ty, ok := ctx.LocalTypes[p.Local]; ok {
			ext.Params = append(ext.Params, ty)
		} else {
			ext.Params = append(ext.Params, ctx.ErrorType())
		}
	}
	if ret, ok := ctx.FuncRet[id]; ok {
		ext.Result = ret
	}
	return ext
}

// LowerFunc lowers one function body. subst, when non-nil, binds the
// function's generic parameters for monomorphization; name overrides the
// debug name for instances. The bool result reports whether the function
// needs the missing-pattern runtime hook.
func LowerFunc(m *hir.Module, ctx *sema.TyContext, def hir.DefID, subst []types.TyID, request Requester, name string) (*Func, bool) {
	d := m.Def(def)
	fd := d.Func
	if name == "" {
		name = m.DefName(def)
	}

	l := &Lowerer{
		m:       m,
		ctx:     ctx,
		request: request,
		subst:   subst,
		localOf: make(map[symbols.DefID]LocalID),
	}
	l.fn = &Func{
		Def:    def,
		Name:   name,
		Span:   d.Span,
		Result: l.tyOfRet(def),
	}

	// Parameter locals come first, in declaration order; a method receiver
	// is parameter zero.
	if fd.SelfLocal.IsValid() {
		l.addParamLocal(fd.SelfLocal)
	}
	for _, p := range fd.Params {
		l.addParamLocal(p.Local)
	}
	l.fn.ParamCount = len(l.fn.Locals)

	l.cur = l.newBlock()
	result := l.lowerExpr(fd.Body)
	if !l.block().Terminated() {
		l.terminate(Terminator{Kind: TermReturn, HasValue: true, Value: result})
	}

	return l.fn, l.usedMissingPattern
}

func (l *Lowerer) addParamLocal(def symbols.DefID) {
	d := l.m.Def(def)
	id := LocalID(len(l.fn.Locals))
	l.fn.Locals = append(l.fn.Locals, Local{
		Def:  def,
		Type: l.tyOfLocal(def),
		Name: l.m.DefName(def),
		Span: d.Span,
	})
	l.localOf[def] = id
}

// applySubst instantiates generic parameters of the enclosing function.
func (l *Lowerer) applySubst(ty types.TyID) types.TyID {
	ty = l.ctx.Apply(ty)
	if l.subst == nil {
		return ty
	}
	t := l.ctx.Types.MustLookup(ty)
	switch t.Kind {
	case types.KindGenericParam:
		if t.ParamIdx < len(l.subst) {
			return l.subst[t.ParamIdx]
		}
		return ty
	case types.KindNamed:
		args := make([]types.TyID, len(t.Args))
		for i, a := range t.Args {
			args[i] = l.applySubst(a)
		}
		return l.ctx.Types.Named(t.Def, args)
	case types.KindTuple:
		elems := make([]types.TyID, len(t.Elems))
		for i, e := range t.Elems {
			elems[i] = l.applySubst(e)
		}
		return l.ctx.Types.Tuple(elems)
	case types.KindFunction:
		params := make([]types.TyID, len(t.Elems))
		for i, p := range t.Elems {
			params[i] = l.applySubst(p)
		}
		return l.ctx.Types.Fn(params, l.applySubst(t.Ret))
	case types.KindRef:
		return l.ctx.Types.Ref(l.applySubst(t.Inner), t.Mutable)
	case types.KindArray:
		return l.ctx.Types.Array(l.applySubst(t.Inner))
	default:
		return ty
	}
}

func (l *Lowerer) tyOfExpr(id hir.ExprID) types.TyID {
	if ty, ok := l.ctx.ExprTypes[id]; ok {
		return l.applySubst(ty)
	}
	return l.ctx.ErrorType()
}

func (l *Lowerer) tyOfLocal(def symbols.DefID) types.TyID {
	if ty, ok := l.ctx.LocalTypes[def]; ok {
		return l.applySubst(ty)
	}
	return l.ctx.ErrorType()
}

func (l *Lowerer) tyOfRet(def hir.DefID) types.TyID {
	if ty, ok := l.ctx.FuncRet[def]; ok {
		return l.applySubst(ty)
	}
	return l.ctx.Types.Builtins().Unit
}

// Block plumbing -------------------------------------------------------------

func (l *Lowerer) newBlock() BlockID {
	id := BlockID(len(l.fn.Blocks))
	l.fn.Blocks = append(l.fn.Blocks, Block{ID: id})
	return id
}

func (l *Lowerer) block() *Block {
	return &l.fn.Blocks[l.cur]
}

func (l *Lowerer) emit(i Instr) {
	if l.block().Terminated() {
		return // unreachable code after return; drop silently
	}
	b := l.block()
	b.Instrs = append(b.Instrs, i)
}

func (l *Lowerer) terminate(t Terminator) {
	if l.block().Terminated() {
		return
	}
	l.block().Term = t
}

func (l *Lowerer) gotoBlock(target BlockID) {
	l.terminate(Terminator{Kind: TermGoto, Target: target})
}

func (l *Lowerer) newTemp(ty types.TyID, span source.Span) LocalID {
	id := LocalID(len(l.fn.Locals))
	l.temps++
	l.fn.Locals = append(l.fn.Locals, Local{
		Type: ty,
		Name: fmt.Sprintf("t%d", l.temps),
		Span: span,
	})
	return id
}

// bindLocal allocates (or reuses) the frame slot for an HIR local.
func (l *Lowerer) bindLocal(def symbols.DefID) LocalID {
	if id, ok := l.localOf[def]; ok {
		return id
	}
	d := l.m.Def(def)
	id := LocalID(len(l.fn.Locals))
	l.fn.Locals = append(l.fn.Locals, Local{
		Def:  def,
		Type: l.tyOfLocal(def),
		Name: l.m.DefName(def),
		Span: d.Span,
	})
	l.localOf[def] = id
	return id
}

package sema

import (
	"fmt"

	"rook/internal/diag"
	"rook/internal/hir"
	"rook/internal/source"
	"rook/internal/symbols"
	"rook/internal/types"
)

// TyContext carries every inference artefact for one module: the
// substitution, per-expression types, receiver mutability, resolved calls.
// It is mutated only by the inference pass and read-only afterwards.
type TyContext struct {
	Module   *hir.Module
	Types    *types.Interner
	Reporter diag.Reporter

	subst   map[types.TyVarID]types.TyID
	nextVar types.TyVarID

	// ExprTypes records the inferred type of every expression.
	ExprTypes map[hir.ExprID]types.TyID

	// LocalTypes records the type of every local binding.
	LocalTypes map[symbols.DefID]types.TyID

	// FuncRet records declared return types, consulted by Return inference.
	FuncRet map[symbols.DefID]types.TyID

	// RecvMut records, per method-call expression, whether the receiver is
	// mutably reachable. Method resolution rejects &mut self candidates when
	// it is false.
	RecvMut map[hir.ExprID]bool

	// Methods records the resolved target of each method call.
	Methods map[hir.ExprID]MethodTarget

	// Instances records, per call expression of a generic function, the
	// final type arguments (substituted at end of pass).
	Instances map[hir.ExprID][]types.TyID

	// Exhaustive records the verdict for each match expression.
	Exhaustive map[hir.ExprID]bool

	// deferred bound obligations, resolved at end of pass.
	deferred []deferredBound

	// tainted suppresses cascading diagnostics per expression.
	tainted map[hir.ExprID]bool

	// sigs caches function signatures; impls indexes impl blocks by the
	// nominal key of their self type.
	sigs  map[symbols.DefID]*signature
	impls map[implKey][]implInfo

	// currentFn and boundEnv track the function being inferred.
	currentFn symbols.DefID
	boundEnv  map[int][]hir.DefID
}

// MethodTarget is the outcome of method resolution for one call site.
type MethodTarget struct {
	Func     symbols.DefID
	SelfKind hir.SelfParamKind
	ImplArgs []types.TyID // impl generic arguments, as inferred
}

type deferredBound struct {
	ty    types.TyID
	trait symbols.DefID
	param string
	span  source.Span
}

// NewTyContext creates an empty context over a module.
func NewTyContext(m *hir.Module, reporter diag.Reporter) *TyContext {
	return &TyContext{
		Module:     m,
		Types:      types.NewInterner(),
		Reporter:   reporter,
		subst:      make(map[types.TyVarID]types.TyID),
		ExprTypes:  make(map[hir.ExprID]types.TyID),
		LocalTypes: make(map[symbols.DefID]types.TyID),
		FuncRet:    make(map[symbols.DefID]types.TyID),
		RecvMut:    make(map[hir.ExprID]bool),
		Methods:    make(map[hir.ExprID]MethodTarget),
		Instances:  make(map[hir.ExprID][]types.TyID),
		Exhaustive: make(map[hir.ExprID]bool),
		tainted:    make(map[hir.ExprID]bool),
	}
}

// FreshVar allocates a unification variable. Variables are never reused once
// substituted.
func (ctx *TyContext) FreshVar() types.TyID {
	ctx.nextVar++
	return ctx.Types.Var(ctx.nextVar)
}

// Apply resolves substitutions in a type, deeply. The result contains no
// substituted variables.
func (ctx *TyContext) Apply(id types.TyID) types.TyID {
	t, ok := ctx.Types.Lookup(id)
	if !ok {
		return id
	}
	switch t.Kind {
	case types.KindVar:
		if next, ok := ctx.subst[t.Var]; ok {
			resolved := ctx.Apply(next)
			// Path compression keeps long chains cheap.
			ctx.subst[t.Var] = resolved
			return resolved
		}
		return id
	case types.KindNamed:
		if len(t.Args) == 0 {
			return id
		}
		args := make([]types.TyID, len(t.Args))
		changed := false
		for i, a := range t.Args {
			args[i] = ctx.Apply(a)
			changed = changed || args[i] != a
		}
		if !changed {
			return id
		}
		return ctx.Types.Named(t.Def, args)
	case types.KindTuple:
		elems, changed := ctx.applyAll(t.Elems)
		if !changed {
			return id
		}
		return ctx.Types.Tuple(elems)
	case types.KindFunction:
		params, changed := ctx.applyAll(t.Elems)
		ret := ctx.Apply(t.Ret)
		if !changed && ret == t.Ret {
			return id
		}
		return ctx.Types.Fn(params, ret)
	case types.KindRef:
		inner := ctx.Apply(t.Inner)
		if inner == t.Inner {
			return id
		}
		return ctx.Types.Ref(inner, t.Mutable)
	case types.KindArray:
		inner := ctx.Apply(t.Inner)
		if inner == t.Inner {
			return id
		}
		return ctx.Types.Array(inner)
	default:
		return id
	}
}

func (ctx *TyContext) applyAll(ids []types.TyID) ([]types.TyID, bool) {
	out := make([]types.TyID, len(ids))
	changed := false
	for i, id := range ids {
		out[i] = ctx.Apply(id)
		changed = changed || out[i] != id
	}
	return out, changed
}

// SetExprType records an expression's type and returns it.
func (ctx *TyContext) SetExprType(id hir.ExprID, ty types.TyID) types.TyID {
	ctx.ExprTypes[id] = ty
	return ty
}

// ErrorType returns the error type used for recovery.
func (ctx *TyContext) ErrorType() types.TyID {
	return ctx.Types.Builtins().Error
}

// report emits a diagnostic unless the expression is already tainted; the
// first error on a node suppresses cascades on the same node.
func (ctx *TyContext) report(at hir.ExprID, d diag.Diagnostic) {
	if at.IsValid() {
		if ctx.tainted[at] {
			return
		}
		if d.Severity >= diag.SevError {
			ctx.tainted[at] = true
		}
	}
	if ctx.Reporter != nil {
		ctx.Reporter.Report(d)
	}
}

// FormatTy renders a type for diagnostics using the module's names.
func (ctx *TyContext) FormatTy(id types.TyID) string {
	return ctx.Types.Format(ctx.Apply(id), func(d symbols.DefID) string {
		name := ctx.Module.DefName(d)
		if name == "" {
			name = fmt.Sprintf("def#%d", d)
		}
		return name
	})
}

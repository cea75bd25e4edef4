// Package mono instantiates generic functions per concrete substitution.
// Instances are cached by (definition, substitution); the cache slot is
// reserved before the body is lowered, so recursive monomorphization
// bottoms out instead of spinning.
package mono

import (
	"strings"

	"rook/internal/hir"
	"rook/internal/mir"
	"rook/internal/sema"
	"rook/internal/symbols"
	"rook/internal/types"
)

type instanceKey struct {
	def symbols.DefID
	sig string
}

// Monomorphizer is the instance cache. It implements mir.Requester.
type Monomorphizer struct {
	m   *hir.Module
	ctx *sema.TyContext

	instances map[instanceKey]*mir.Func
	order     []instanceKey

	usedMissingPattern bool
}

// New creates an empty cache over a checked module.
func New(m *hir.Module, ctx *sema.TyContext) *Monomorphizer {
	return &Monomorphizer{
		m:         m,
		ctx:       ctx,
		instances: make(map[instanceKey]*mir.Func),
	}
}

// Request returns the symbol of the instance for (def, args), lowering it on
// first use. Re-entrant requests for a key being lowered return the symbol
// immediately: the reserved slot breaks recursion cycles.
func (mo *Monomorphizer) Request(def symbols.DefID, args []types.TyID) string {
	sym := mir.InstanceSymbol(mo.m.DefName(def), mo.ctx.Types, args)
	key := instanceKey{def: def, sig: sym}

	if _, ok := mo.instances[key]; ok {
		return sym
	}
	// Reserve before lowering: a recursive call to the same instance finds
	// the slot and stops.
	mo.instances[key] = nil
	mo.order = append(mo.order, key)

	fn, usedMissing := mir.LowerFunc(mo.m, mo.ctx, def, args, mo, sym)
	mo.instances[key] = fn
	mo.usedMissingPattern = mo.usedMissingPattern || usedMissing
	return sym
}

// Instances returns the lowered instances in request order.
func (mo *Monomorphizer) Instances() []*mir.Func {
	out := make([]*mir.Func, 0, len(mo.order))
	for _, key := range mo.order {
		if fn := mo.instances[key]; fn != nil {
			out = append(out, fn)
		}
	}
	return out
}

// Len reports the number of cached instances.
func (mo *Monomorphizer) Len() int { return len(mo.instances) }

// Run lowers a checked module with monomorphization: non-generic functions
// first, then every requested instance, appended in request order.
func Run(m *hir.Module, ctx *sema.TyContext) *mir.Module {
	mo := New(m, ctx)
	out := mir.LowerModule(m, ctx, mo)

	for _, fn := range mo.Instances() {
		fn.ID = mir.FuncID(len(out.Funcs))
		out.Funcs = append(out.Funcs, fn)
	}

	if mo.usedMissingPattern && !hasMissingPatternExtern(out) {
		out.Externs = append(out.Externs, mir.Extern{
			Name:   "rook_rt_missing_pattern",
			Symbol: "rook_rt_missing_pattern",
			Abi:    "c",
			Result: ctx.Types.Builtins().Never,
		})
	}
	return out
}

func hasMissingPatternExtern(m *mir.Module) bool {
	for _, e := range m.Externs {
		if strings.HasPrefix(e.Symbol, "rook_rt_missing_pattern") {
			return true
		}
	}
	return false
}

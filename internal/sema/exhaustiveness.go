package sema

import (
	"fmt"
	"math"
	"sort"
	"strings"

	"rook/internal/diag"
	"rook/internal/hir"
	"rook/internal/types"
)

// The pattern-matrix algorithm works over a simplified pattern form: a
// pattern is a wildcard, an or of alternatives, or a constructor applied to
// sub-patterns.
type mpat struct {
	wild bool
	or   []*mpat
	c    ctor
	subs []*mpat
}

type ctorKind uint8

const (
	ctVariant ctorKind = iota
	ctStruct
	ctTuple
	ctRef
	ctBool
	ctInt // inclusive interval
	ctStr
)

type ctor struct {
	kind    ctorKind
	variant int
	b       bool
	lo, hi  int64
	s       string
	arity   int
}

func (c ctor) matches(o ctor) bool {
	if c.kind != o.kind {
		return false
	}
	switch c.kind {
	case ctVariant:
		return c.variant == o.variant
	case ctBool:
		return c.b == o.b
	case ctInt:
		return c.lo <= o.hi && o.lo <= c.hi // interval overlap
	case ctStr:
		return c.s == o.s
	default:
		return true
	}
}

var wildPat = &mpat{wild: true}

func wilds(n int) []*mpat {
	out := make([]*mpat, n)
	for i := range out {
		out[i] = wildPat
	}
	return out
}

// convertPat lowers an HIR pattern into the matrix form.
func (ctx *TyContext) convertPat(id hir.PatID) *mpat {
	p := ctx.Module.Pat(id)
	if p == nil {
		return wildPat
	}
	switch p.Kind {
	case hir.PatWildcard, hir.PatError:
		return wildPat

	case hir.PatBinding:
		if p.Sub.IsValid() {
			return ctx.convertPat(p.Sub)
		}
		return wildPat

	case hir.PatLiteral:
		switch p.Lit.Kind {
		case hir.LitBool:
			return &mpat{c: ctor{kind: ctBool, b: p.Lit.BoolVal}}
		case hir.LitInt:
			return &mpat{c: ctor{kind: ctInt, lo: p.Lit.IntVal, hi: p.Lit.IntVal}}
		case hir.LitString:
			return &mpat{c: ctor{kind: ctStr, s: p.Lit.Text}}
		default:
			return wildPat
		}

	case hir.PatRange:
		hi := p.Hi
		if !p.Inclusive {
			hi--
		}
		return &mpat{c: ctor{kind: ctInt, lo: p.Lo, hi: hi}}

	case hir.PatTuple:
		subs := make([]*mpat, len(p.Elems))
		for i, e := range p.Elems {
			subs[i] = ctx.convertPat(e)
		}
		return &mpat{c: ctor{kind: ctTuple, arity: len(subs)}, subs: subs}

	case hir.PatStruct:
		d := ctx.Module.Def(p.Def)
		if d == nil || d.Kind != hir.DefStruct {
			return wildPat
		}
		subs := wilds(len(d.Struct.Fields))
		for _, f := range p.Fields {
			if f.Index >= 0 && f.Index < len(subs) {
				subs[f.Index] = ctx.convertPat(f.Pat)
			}
		}
		return &mpat{c: ctor{kind: ctStruct, arity: len(subs)}, subs: subs}

	case hir.PatEnumVariant:
		d := ctx.Module.Def(p.Def)
		if d == nil || d.Kind != hir.DefEnum || p.VariantIdx >= len(d.Enum.Variants) {
			return wildPat
		}
		arity := len(d.Enum.Variants[p.VariantIdx].Fields)
		subs := wilds(arity)
		for i, e := range p.Elems {
			if i < arity {
				subs[i] = ctx.convertPat(e)
			}
		}
		return &mpat{c: ctor{kind: ctVariant, variant: p.VariantIdx, arity: arity}, subs: subs}

	case hir.PatOr:
		alts := make([]*mpat, len(p.Elems))
		for i, e := range p.Elems {
			alts[i] = ctx.convertPat(e)
		}
		return &mpat{or: alts}

	default:
		return wildPat
	}
}

// expandOrHeads flattens or-patterns in the head column into separate rows.
func expandOrHeads(matrix [][]*mpat) [][]*mpat {
	out := make([][]*mpat, 0, len(matrix))
	for _, row := range matrix {
		if len(row) == 0 || row[0].or == nil {
			out = append(out, row)
			continue
		}
		for _, alt := range row[0].or {
			expanded := append([]*mpat{alt}, row[1:]...)
			out = append(out, expandOrHeads([][]*mpat{expanded})...)
		}
	}
	return out
}

// specialize is S(M, c): rows whose head matches c get the head replaced by
// its sub-patterns; wildcard heads expand to c.arity wildcards.
func specialize(matrix [][]*mpat, c ctor) [][]*mpat {
	var out [][]*mpat
	for _, row := range expandOrHeads(matrix) {
		if len(row) == 0 {
			continue
		}
		head := row[0]
		switch {
		case head.wild:
			out = append(out, append(wilds(c.arity), row[1:]...))
		case head.c.matches(c):
			out = append(out, append(append([]*mpat{}, head.subs...), row[1:]...))
		}
	}
	return out
}

// defaultMatrix is D(M): rows with wildcard heads, head dropped.
func defaultMatrix(matrix [][]*mpat) [][]*mpat {
	var out [][]*mpat
	for _, row := range expandOrHeads(matrix) {
		if len(row) == 0 {
			continue
		}
		if row[0].wild {
			out = append(out, row[1:])
		}
	}
	return out
}

// constructorsFor enumerates the constructor space of a column type.
// complete reports whether the returned set covers the whole type.
func (ctx *TyContext) constructorsFor(ty types.TyID, matrix [][]*mpat) ([]ctor, bool) {
	t := ctx.Types.MustLookup(ctx.Apply(ty))

	switch t.Kind {
	case types.KindBool:
		return []ctor{{kind: ctBool, b: false}, {kind: ctBool, b: true}}, true

	case types.KindNamed:
		d := ctx.Module.Def(t.Def)
		if d == nil {
			return nil, false
		}
		switch d.Kind {
		case hir.DefEnum:
			out := make([]ctor, len(d.Enum.Variants))
			for i, v := range d.Enum.Variants {
				out[i] = ctor{kind: ctVariant, variant: i, arity: len(v.Fields)}
			}
			return out, true
		case hir.DefStruct:
			return []ctor{{kind: ctStruct, arity: len(d.Struct.Fields)}}, true
		}
		return nil, false

	case types.KindTuple:
		return []ctor{{kind: ctTuple, arity: len(t.Elems)}}, true

	case types.KindRef:
		return []ctor{{kind: ctRef, arity: 1}}, true

	case types.KindInt:
		return intIntervals(columnRanges(matrix)), true

	default:
		// Open types: only the literals actually used, never complete.
		var out []ctor
		seen := make(map[string]bool)
		for _, row := range expandOrHeads(matrix) {
			if len(row) == 0 || row[0].wild {
				continue
			}
			key := fmt.Sprintf("%v", row[0].c)
			if !seen[key] {
				seen[key] = true
				out = append(out, row[0].c)
			}
		}
		return out, false
	}
}

type intBound struct {
	lo, hi int64
}

// columnRanges collects the integer ranges used in the head column.
func columnRanges(matrix [][]*mpat) []intBound {
	var used []intBound
	for _, row := range expandOrHeads(matrix) {
		if len(row) == 0 || row[0].wild || row[0].c.kind != ctInt {
			continue
		}
		used = append(used, intBound{row[0].c.lo, row[0].c.hi})
	}
	return used
}

// intIntervals splits the integer line at every endpoint of the given
// ranges. Each resulting piece is either fully inside or fully outside every
// range, and together the pieces cover the whole line.
func intIntervals(used []intBound) []ctor {
	if len(used) == 0 {
		return []ctor{{kind: ctInt, lo: math.MinInt64, hi: math.MaxInt64}}
	}

	pts := map[int64]bool{math.MinInt64: true}
	for _, b := range used {
		pts[b.lo] = true
		if b.hi != math.MaxInt64 {
			pts[b.hi+1] = true
		}
	}
	cuts := make([]int64, 0, len(pts))
	for p := range pts {
		cuts = append(cuts, p)
	}
	sort.Slice(cuts, func(i, j int) bool { return cuts[i] < cuts[j] })

	out := make([]ctor, 0, len(cuts))
	for i, lo := range cuts {
		hi := int64(math.MaxInt64)
		if i+1 < len(cuts) {
			hi = cuts[i+1] - 1
		}
		out = append(out, ctor{kind: ctInt, lo: lo, hi: hi})
	}
	return out
}

// ctorFieldTys yields the column types introduced by specializing on c.
func (ctx *TyContext) ctorFieldTys(ty types.TyID, c ctor) []types.TyID {
	t := ctx.Types.MustLookup(ctx.Apply(ty))
	switch c.kind {
	case ctVariant:
		if t.Kind != types.KindNamed {
			return wildsTy(c.arity, ctx)
		}
		d := ctx.Module.Def(t.Def)
		if d == nil || d.Kind != hir.DefEnum || c.variant >= len(d.Enum.Variants) {
			return wildsTy(c.arity, ctx)
		}
		fields := d.Enum.Variants[c.variant].Fields
		out := make([]types.TyID, len(fields))
		for i, f := range fields {
			out[i] = ctx.TyOfInstantiated(f, t.Args)
		}
		return out
	case ctStruct:
		if t.Kind != types.KindNamed {
			return wildsTy(c.arity, ctx)
		}
		d := ctx.Module.Def(t.Def)
		if d == nil || d.Kind != hir.DefStruct {
			return wildsTy(c.arity, ctx)
		}
		out := make([]types.TyID, len(d.Struct.Fields))
		for i, f := range d.Struct.Fields {
			out[i] = ctx.TyOfInstantiated(f.Type, t.Args)
		}
		return out
	case ctTuple:
		if t.Kind == types.KindTuple {
			return t.Elems
		}
		return wildsTy(c.arity, ctx)
	case ctRef:
		if t.Kind == types.KindRef {
			return []types.TyID{t.Inner}
		}
		return wildsTy(1, ctx)
	default:
		return nil
	}
}

func wildsTy(n int, ctx *TyContext) []types.TyID {
	out := make([]types.TyID, n)
	for i := range out {
		out[i] = ctx.ErrorType()
	}
	return out
}

// renderCtor formats a constructor with its sub-witnesses for diagnostics.
func (ctx *TyContext) renderCtor(ty types.TyID, c ctor, subs []string) string {
	t := ctx.Types.MustLookup(ctx.Apply(ty))
	switch c.kind {
	case ctVariant:
		name := fmt.Sprintf("#%d", c.variant)
		if t.Kind == types.KindNamed {
			if d := ctx.Module.Def(t.Def); d != nil && d.Kind == hir.DefEnum && c.variant < len(d.Enum.Variants) {
				name = ctx.Module.DefName(t.Def) + "::" + ctx.Module.Interner.MustLookup(d.Enum.Variants[c.variant].Name)
			}
		}
		if c.arity == 0 {
			return name
		}
		return fmt.Sprintf("%s(%s)", name, strings.Join(subs, ", "))
	case ctStruct:
		name := "_"
		if t.Kind == types.KindNamed {
			name = ctx.Module.DefName(t.Def)
		}
		return name + " { .. }"
	case ctTuple:
		return "(" + strings.Join(subs, ", ") + ")"
	case ctRef:
		if len(subs) == 1 {
			return "&" + subs[0]
		}
		return "&_"
	case ctBool:
		return fmt.Sprintf("%t", c.b)
	case ctInt:
		switch {
		case c.lo == math.MinInt64 && c.hi == math.MaxInt64:
			return "_"
		case c.lo == c.hi:
			return fmt.Sprintf("%d", c.lo)
		default:
			return fmt.Sprintf("%d..=%d", c.lo, c.hi)
		}
	case ctStr:
		return c.s
	default:
		return "_"
	}
}

// missingRows computes witness rows of patterns not covered by the matrix.
// Each returned row carries one witness string per column.
func (ctx *TyContext) missingRows(matrix [][]*mpat, tys []types.TyID) [][]string {
	if len(tys) == 0 {
		if len(matrix) == 0 {
			return [][]string{{}}
		}
		return nil
	}
	if len(matrix) == 0 {
		// Nothing covers anything: one all-wildcard witness. Stopping here
		// also keeps recursive types from unfolding forever.
		row := make([]string, len(tys))
		for i := range row {
			row[i] = "_"
		}
		return [][]string{row}
	}

	ctors, complete := ctx.constructorsFor(tys[0], matrix)
	var out [][]string

	if complete {
		for _, c := range ctors {
			subTys := ctx.ctorFieldTys(tys[0], c)
			spec := specialize(matrix, c)
			for _, row := range ctx.missingRows(spec, append(append([]types.TyID{}, subTys...), tys[1:]...)) {
				head := ctx.renderCtor(tys[0], c, row[:len(subTys)])
				out = append(out, append([]string{head}, row[len(subTys):]...))
			}
		}
		return out
	}

	// Open type: only a wildcard row can cover it.
	for _, row := range ctx.missingRows(defaultMatrix(matrix), tys[1:]) {
		out = append(out, append([]string{"_"}, row...))
	}
	return out
}

// useful reports whether the row v adds coverage over the matrix.
func (ctx *TyContext) useful(matrix [][]*mpat, v []*mpat, tys []types.TyID) bool {
	if len(v) == 0 {
		return len(matrix) == 0
	}
	head := v[0]

	if head.or != nil {
		for _, alt := range head.or {
			if ctx.useful(matrix, append([]*mpat{alt}, v[1:]...), tys) {
				return true
			}
		}
		return false
	}

	if !head.wild {
		// Integer ranges must be split into pieces atomic with respect to
		// both the matrix and v, or a partially-overlapped range would be
		// judged covered.
		if head.c.kind == ctInt {
			ranges := append(columnRanges(matrix), intBound{head.c.lo, head.c.hi})
			for _, piece := range intIntervals(ranges) {
				if piece.lo > head.c.hi || piece.hi < head.c.lo {
					continue
				}
				if ctx.useful(specialize(matrix, piece), v[1:], tys[1:]) {
					return true
				}
			}
			return false
		}
		subTys := ctx.ctorFieldTys(tys[0], head.c)
		return ctx.useful(specialize(matrix, head.c),
			append(append([]*mpat{}, head.subs...), v[1:]...),
			append(append([]types.TyID{}, subTys...), tys[1:]...))
	}

	ctors, complete := ctx.constructorsFor(tys[0], matrix)
	if complete && len(ctors) > 0 {
		for _, c := range ctors {
			subTys := ctx.ctorFieldTys(tys[0], c)
			if ctx.useful(specialize(matrix, c),
				append(wilds(len(subTys)), v[1:]...),
				append(append([]types.TyID{}, subTys...), tys[1:]...)) {
				return true
			}
		}
		return false
	}
	return ctx.useful(defaultMatrix(matrix), v[1:], tys[1:])
}

// analyzeMatch runs exhaustiveness and reachability analysis over a typed
// match expression and records the verdict for MIR lowering.
func (ctx *TyContext) analyzeMatch(id hir.ExprID, e *hir.Expr, scrutTy types.TyID) {
	t := ctx.Types.MustLookup(ctx.Apply(scrutTy))
	if t.Kind == types.KindError || t.Kind == types.KindVar {
		ctx.Exhaustive[id] = false
		return
	}

	rows := make([][]*mpat, len(e.Arms))
	for i, arm := range e.Arms {
		rows[i] = []*mpat{ctx.convertPat(arm.Pat)}
	}
	tys := []types.TyID{scrutTy}

	// Per-arm reachability against the arms above it.
	for i, arm := range e.Arms {
		if !ctx.useful(rows[:i], rows[i], tys) {
			ctx.report(hir.NoExprID, diag.NewWarning(diag.PatUnreachableArm, arm.Span,
				"unreachable pattern: covered by previous arms"))
		}
	}

	missing := ctx.missingRows(rows, tys)
	if len(missing) == 0 {
		ctx.Exhaustive[id] = true
		return
	}
	ctx.Exhaustive[id] = false

	shapes := make([]string, 0, len(missing))
	for _, row := range missing {
		if len(row) > 0 {
			shapes = append(shapes, row[0])
		}
	}
	sort.Strings(shapes)
	ctx.report(id, diag.NewError(diag.PatNonExhaustive, e.Span,
		fmt.Sprintf("non-exhaustive match: missing %s", strings.Join(shapes, ", "))))
}

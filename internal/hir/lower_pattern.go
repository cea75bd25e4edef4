package hir

import (
	"fmt"
	"sort"
	"strconv"
	"strings"

	"rook/internal/cst"
	"rook/internal/diag"
	"rook/internal/source"
)

// isPatternNode reports whether a CST kind is a pattern form.
func isPatternNode(kind cst.NodeKind) bool {
	switch kind {
	case cst.KindWildcardPattern, cst.KindLiteralPattern, cst.KindIdentifierPattern,
		cst.KindTuplePattern, cst.KindStructPattern, cst.KindEnumPattern,
		cst.KindOrPattern, cst.KindRangePattern:
		return true
	}
	return false
}

func (l *Lowerer) lowerPattern(node cst.NodeID) PatID {
	span := l.tree.Span(node)

	switch l.tree.Kind(node) {
	case cst.KindWildcardPattern:
		return l.m.NewPat(Pat{Kind: PatWildcard, Span: span})

	case cst.KindLiteralPattern:
		return l.lowerLiteralPattern(node)

	case cst.KindIdentifierPattern:
		ident := l.tree.FirstOfKind(node, cst.KindIdentifier)
		if !ident.IsValid() {
			return l.placeholderPat(span, "binding name")
		}
		name := l.intern(ident)
		mutable := l.tree.HasChildOfKind(node, cst.KindMut)
		local := l.m.NewDef(Def{
			Kind:  DefLocal,
			Name:  name,
			Span:  l.tree.Span(ident),
			Local: &LocalDef{Mutable: mutable},
		})
		sub := NoPatID
		for _, c := range l.tree.Children(node) {
			if isPatternNode(l.tree.Kind(c)) {
				sub = l.lowerPattern(c)
				break
			}
		}
		return l.m.NewPat(Pat{Kind: PatBinding, Span: span,
			Name: name, Local: local, Mutable: mutable, Sub: sub})

	case cst.KindTuplePattern:
		var elems []PatID
		for _, c := range l.tree.Children(node) {
			if isPatternNode(l.tree.Kind(c)) {
				elems = append(elems, l.lowerPattern(c))
			}
		}
		return l.m.NewPat(Pat{Kind: PatTuple, Span: span, Elems: elems})

	case cst.KindStructPattern:
		return l.lowerStructPattern(node)

	case cst.KindEnumPattern:
		return l.lowerEnumPattern(node)

	case cst.KindOrPattern:
		var elems []PatID
		for _, c := range l.tree.Children(node) {
			if isPatternNode(l.tree.Kind(c)) {
				elems = append(elems, l.lowerPattern(c))
			}
		}
		if len(elems) == 0 {
			return l.placeholderPat(span, "pattern alternatives")
		}
		return l.m.NewPat(Pat{Kind: PatOr, Span: span, Elems: elems})

	case cst.KindRangePattern:
		lits := l.tree.ChildrenOfKind(node, cst.KindIntLiteral)
		if len(lits) != 2 {
			return l.placeholderPat(span, "range bounds")
		}
		lo, err1 := strconv.ParseInt(l.tree.Text(lits[0]), 0, 64)
		hi, err2 := strconv.ParseInt(l.tree.Text(lits[1]), 0, 64)
		if err1 != nil || err2 != nil {
			l.report(diag.NewError(diag.SynBadLiteral, span, "malformed range bound"))
			return l.m.NewPat(Pat{Kind: PatError, Span: span})
		}
		inclusive := l.tree.Text(node) == "..="
		return l.m.NewPat(Pat{Kind: PatRange, Span: span, Lo: lo, Hi: hi, Inclusive: inclusive})

	case cst.KindUnknown:
		l.report(diag.NewWarning(diag.SynUnknownNode, span, "unrecognized pattern syntax"))
		return l.m.NewPat(Pat{Kind: PatError, Span: span})

	default:
		return l.placeholderPat(span, "pattern")
	}
}

func (l *Lowerer) lowerLiteralPattern(node cst.NodeID) PatID {
	span := l.tree.Span(node)
	for _, c := range l.tree.Children(node) {
		switch l.tree.Kind(c) {
		case cst.KindIntLiteral:
			v, err := strconv.ParseInt(strings.TrimSuffix(l.tree.Text(c), "i64"), 0, 64)
			if err != nil {
				break
			}
			return l.m.NewPat(Pat{Kind: PatLiteral, Span: span,
				Lit: Literal{Kind: LitInt, Text: l.tree.Text(c), IntVal: v}})
		case cst.KindBoolLiteral:
			return l.m.NewPat(Pat{Kind: PatLiteral, Span: span,
				Lit: Literal{Kind: LitBool, Text: l.tree.Text(c), BoolVal: l.tree.Text(c) == "true"}})
		case cst.KindStringLiteral:
			return l.m.NewPat(Pat{Kind: PatLiteral, Span: span,
				Lit: Literal{Kind: LitString, Text: l.tree.Text(c)}})
		}
	}
	l.report(diag.NewError(diag.SynBadLiteral, span, "malformed literal pattern"))
	return l.m.NewPat(Pat{Kind: PatError, Span: span})
}

func (l *Lowerer) lowerStructPattern(node cst.NodeID) PatID {
	span := l.tree.Span(node)
	ident := l.tree.FirstOfKind(node, cst.KindIdentifier)
	if !ident.IsValid() {
		return l.placeholderPat(span, "struct name")
	}
	def := l.res.Resolve(l.intern(ident), l.tree.Span(ident))
	var sd *StructDef
	if d := l.m.Def(def); d != nil && d.Kind == DefStruct {
		sd = d.Struct
	} else {
		if def.IsValid() {
			l.report(diag.NewError(diag.TypeMismatch, l.tree.Span(ident),
				fmt.Sprintf("`%s` is not a struct", l.m.DefName(def))))
		}
		def = l.m.ErrorDef
	}

	var fields []FieldPat
	for _, f := range l.tree.ChildrenOfKind(node, cst.KindFieldPattern) {
		fident := l.tree.FirstOfKind(f, cst.KindIdentifier)
		if !fident.IsValid() {
			continue
		}
		name := l.intern(fident)
		idx := -1
		if sd != nil {
			for i, fd := range sd.Fields {
				if fd.Name == name {
					idx = i
					break
				}
			}
			if idx < 0 {
				l.report(diag.NewError(diag.TypeUnknownField, l.tree.Span(fident),
					fmt.Sprintf("struct `%s` has no field `%s`", l.m.DefName(def), l.tree.Text(fident))))
				continue
			}
		}

		// Shorthand `S { x }` binds the field to a local of the same name.
		var sub PatID
		hasSub := false
		for _, c := range l.tree.Children(f) {
			if isPatternNode(l.tree.Kind(c)) {
				sub = l.lowerPattern(c)
				hasSub = true
				break
			}
		}
		if !hasSub {
			local := l.m.NewDef(Def{
				Kind:  DefLocal,
				Name:  name,
				Span:  l.tree.Span(fident),
				Local: &LocalDef{},
			})
			sub = l.m.NewPat(Pat{Kind: PatBinding, Span: l.tree.Span(fident), Name: name, Local: local})
		}
		fields = append(fields, FieldPat{Index: idx, Pat: sub})
	}

	return l.m.NewPat(Pat{Kind: PatStruct, Span: span, Def: def, Fields: fields})
}

func (l *Lowerer) lowerEnumPattern(node cst.NodeID) PatID {
	span := l.tree.Span(node)
	idents := l.tree.ChildrenOfKind(node, cst.KindIdentifier)
	if len(idents) < 2 {
		return l.placeholderPat(span, "enum variant path")
	}
	def := l.res.Resolve(l.intern(idents[0]), l.tree.Span(idents[0]))
	d := l.m.Def(def)
	if d == nil || d.Kind != DefEnum {
		if def.IsValid() {
			l.report(diag.NewError(diag.TypeMismatch, l.tree.Span(idents[0]),
				fmt.Sprintf("`%s` is not an enum", l.m.DefName(def))))
		}
		return l.m.NewPat(Pat{Kind: PatError, Span: span})
	}

	variant := l.intern(idents[1])
	idx := variantIndex(d.Enum, variant)
	if idx < 0 {
		l.report(diag.NewError(diag.TypeUnknownVariant, l.tree.Span(idents[1]),
			fmt.Sprintf("enum `%s` has no variant `%s`", l.m.DefName(def), l.tree.Text(idents[1]))))
		return l.m.NewPat(Pat{Kind: PatError, Span: span})
	}

	var elems []PatID
	for _, c := range l.tree.Children(node) {
		if isPatternNode(l.tree.Kind(c)) {
			elems = append(elems, l.lowerPattern(c))
		}
	}
	if want := len(d.Enum.Variants[idx].Fields); len(elems) != want && len(elems) != 0 {
		l.report(diag.NewError(diag.TypeArityMismatch, span,
			fmt.Sprintf("variant `%s` has %d fields, pattern has %d", l.tree.Text(idents[1]), want, len(elems))))
	}

	return l.m.NewPat(Pat{Kind: PatEnumVariant, Span: span, Def: def, VariantIdx: idx, Elems: elems})
}

// declarePatternBindings canonicalizes or-patterns and declares every binding
// into the current scope. A binding may shadow an earlier one in the same
// scope (let re-binding), but one pattern must not bind a name twice.
func (l *Lowerer) declarePatternBindings(pat PatID) {
	l.checkOrPatterns(pat)
	seen := make(map[source.StringID]source.Span)
	for _, local := range l.m.CollectBindings(pat) {
		d := l.m.Def(local)
		if prev, dup := seen[d.Name]; dup {
			l.report(diag.NewError(diag.ResDuplicateDefinition, d.Span,
				fmt.Sprintf("`%s` is bound more than once in this pattern", l.m.Interner.MustLookup(d.Name))).
				WithNote(prev, "first binding is here"))
			continue
		}
		seen[d.Name] = d.Span
		l.res.DeclareShadowing(d.Name, local, d.Span)
		if len(l.closures) > 0 {
			l.closures[len(l.closures)-1].declared[local] = true
		}
	}
}

// checkOrPatterns enforces that every alternative of an or-pattern binds the
// same names. Mismatches are hard errors; the bindings kept are the
// intersection, and bindings with the same name share one Local so inference
// unifies their types.
func (l *Lowerer) checkOrPatterns(pat PatID) {
	p := l.m.Pat(pat)
	if p == nil {
		return
	}
	switch p.Kind {
	case PatOr:
		l.canonicalizeOr(p)
		for _, e := range p.Elems {
			l.checkOrPatterns(e)
		}
	case PatTuple, PatEnumVariant:
		for _, e := range p.Elems {
			l.checkOrPatterns(e)
		}
	case PatStruct:
		for _, f := range p.Fields {
			l.checkOrPatterns(f.Pat)
		}
	case PatBinding:
		if p.Sub.IsValid() {
			l.checkOrPatterns(p.Sub)
		}
	}
}

func (l *Lowerer) canonicalizeOr(p *Pat) {
	type bindingSite struct {
		pat   PatID
		local DefID
	}
	perAlt := make([]map[source.StringID]bindingSite, len(p.Elems))
	for i, alt := range p.Elems {
		sites := make(map[source.StringID]bindingSite)
		var walk func(PatID)
		walk = func(id PatID) {
			q := l.m.Pat(id)
			if q == nil {
				return
			}
			switch q.Kind {
			case PatBinding:
				sites[q.Name] = bindingSite{pat: id, local: q.Local}
				if q.Sub.IsValid() {
					walk(q.Sub)
				}
			case PatTuple, PatEnumVariant, PatOr:
				for _, e := range q.Elems {
					walk(e)
				}
			case PatStruct:
				for _, f := range q.Fields {
					walk(f.Pat)
				}
			}
		}
		walk(alt)
		perAlt[i] = sites
	}

	// Intersection of all alternatives' names.
	common := make(map[source.StringID]bool)
	for name := range perAlt[0] {
		common[name] = true
		for _, sites := range perAlt[1:] {
			if _, ok := sites[name]; !ok {
				common[name] = false
			}
		}
	}

	missingSet := make(map[string]bool)
	for i, sites := range perAlt {
		for name := range sites {
			if !common[name] {
				missingSet[l.m.Interner.MustLookup(name)] = true
				// Demote to wildcard: matching semantics are unchanged,
				// only the binding disappears.
				site := sites[name]
				q := l.m.Pat(site.pat)
				*q = Pat{Kind: PatWildcard, Span: q.Span}
			} else if i > 0 {
				// Share the first alternative's Local so inference unifies
				// the bound types across alternatives.
				site := sites[name]
				l.m.Pat(site.pat).Local = perAlt[0][name].local
			}
		}
	}

	if len(missingSet) > 0 {
		missing := make([]string, 0, len(missingSet))
		for name := range missingSet {
			missing = append(missing, name)
		}
		sort.Strings(missing)
		l.report(diag.NewError(diag.PatOrBindingMismatch, p.Span,
			fmt.Sprintf("pattern alternatives bind different names: %s", strings.Join(missing, ", "))))
	}
}

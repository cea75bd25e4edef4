package hir

import (
	"fmt"

	"rook/internal/cst"
	"rook/internal/diag"
	"rook/internal/source"
	"rook/internal/symbols"
)

// Lowerer builds HIR from the generic syntax tree. Item headers are
// registered into module scope before any body is lowered, so forward
// references and mutually recursive types resolve without a fixpoint.
type Lowerer struct {
	tree     *cst.Tree
	m        *Module
	res      *symbols.Resolver
	reporter diag.Reporter

	// generics is the stack of active generic contexts (item, then impl,
	// then method).
	generics []genericCtx

	// closures tracks capture sets for the closure stack.
	closures []*closureFrame

	// pending bodies, lowered after all signatures are known.
	bodies []pendingBody

	// items maps collected definitions back to their CST nodes.
	items map[DefID]itemDecl
}

type genericCtx struct {
	names map[source.StringID]int // name -> parameter index
	base  int                     // index offset of this frame
}

type closureFrame struct {
	declared map[DefID]bool
	captures []DefID
	seen     map[DefID]bool
}

type pendingBody struct {
	def      DefID
	body     cst.NodeID
	scope    symbols.ScopeID
	generics []genericCtx
}

// Lower converts a parsed file into an HIR module. It never panics on
// malformed input: broken nodes lower to placeholders carrying their span.
func Lower(tree *cst.Tree, interner *source.Interner, reporter diag.Reporter) *Module {
	m := NewModule(tree.File, interner)
	l := &Lowerer{
		tree:     tree,
		m:        m,
		res:      symbols.NewResolver(interner, reporter),
		reporter: reporter,
		items:    make(map[DefID]itemDecl),
	}
	m.Scopes = l.res.Scopes

	root := tree.Root
	m.ModuleScope = l.res.Enter(symbols.ScopeModule, tree.Span(root))

	// Phase 1: register every item header in scope.
	ids := l.collectItems(root)
	m.Items = ids

	// Phase 2: lower signatures and type payloads.
	for _, id := range ids {
		l.lowerItemSignature(id)
	}

	// Phase 3: lower bodies.
	for i := range l.bodies {
		l.lowerBody(&l.bodies[i])
	}

	l.res.Leave()
	return m
}

// report is a nil-safe reporter shortcut.
func (l *Lowerer) report(d diag.Diagnostic) {
	if l.reporter != nil {
		l.reporter.Report(d)
	}
}

// placeholderExpr records a syntax placeholder and returns an error node
// anchored at the span.
func (l *Lowerer) placeholderExpr(span source.Span, what string) ExprID {
	l.report(diag.NewError(diag.SynPlaceholder, span, fmt.Sprintf("expected %s", what)))
	return l.m.NewExpr(Expr{Kind: ExprError, Span: span})
}

func (l *Lowerer) placeholderPat(span source.Span, what string) PatID {
	l.report(diag.NewError(diag.SynPlaceholder, span, fmt.Sprintf("expected %s", what)))
	return l.m.NewPat(Pat{Kind: PatError, Span: span})
}

func (l *Lowerer) placeholderType(span source.Span, what string) TypeID {
	l.report(diag.NewError(diag.SynPlaceholder, span, fmt.Sprintf("expected %s", what)))
	return l.m.NewType(TypeNode{Kind: TypeError, Span: span})
}

// intern is a shortcut for interning node text.
func (l *Lowerer) intern(id cst.NodeID) source.StringID {
	return l.m.Interner.Intern(l.tree.Text(id))
}

// nameOf extracts the identifier/name child text of an item node.
func (l *Lowerer) nameOf(item cst.NodeID) (source.StringID, source.Span, bool) {
	n := l.tree.FirstOfKind(item, cst.KindName)
	if !n.IsValid() {
		n = l.tree.FirstOfKind(item, cst.KindIdentifier)
	}
	if !n.IsValid() {
		return 0, l.tree.Span(item), false
	}
	return l.intern(n), l.tree.Span(n), true
}

// pushGenerics builds a generic context from a generic_params node and the
// current nesting. Returns the parsed parameters.
func (l *Lowerer) pushGenerics(node cst.NodeID) []GenericParam {
	base := 0
	for _, g := range l.generics {
		base += len(g.names)
	}
	ctx := genericCtx{names: make(map[source.StringID]int), base: base}
	var params []GenericParam

	if node.IsValid() {
		for _, p := range l.tree.ChildrenOfKind(node, cst.KindGenericParam) {
			ident := l.tree.FirstOfKind(p, cst.KindIdentifier)
			if !ident.IsValid() {
				continue
			}
			name := l.intern(ident)
			idx := base + len(params)
			ctx.names[name] = idx

			gp := GenericParam{Name: name, Span: l.tree.Span(p)}
			if bounds := l.tree.FirstOfKind(p, cst.KindTraitBounds); bounds.IsValid() {
				for _, b := range l.tree.Children(bounds) {
					gp.Bounds = append(gp.Bounds, l.lowerType(b))
				}
			}
			params = append(params, gp)
		}
	}

	l.generics = append(l.generics, ctx)
	return params
}

func (l *Lowerer) popGenerics() {
	l.generics = l.generics[:len(l.generics)-1]
}

// genericIndex looks a name up through the generic context stack.
func (l *Lowerer) genericIndex(name source.StringID) (int, bool) {
	for i := len(l.generics) - 1; i >= 0; i-- {
		if idx, ok := l.generics[i].names[name]; ok {
			return idx, true
		}
	}
	return 0, false
}

// snapshotGenerics copies the active generic stack for deferred body
// lowering.
func (l *Lowerer) snapshotGenerics() []genericCtx {
	out := make([]genericCtx, len(l.generics))
	copy(out, l.generics)
	return out
}

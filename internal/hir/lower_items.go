package hir

import (
	"fmt"
	"strings"

	"rook/internal/cst"
	"rook/internal/diag"
	"rook/internal/symbols"
)

// itemDecl remembers the CST node behind a collected definition.
type itemDecl struct {
	node  cst.NodeID
	scope symbols.ScopeID
}

// collectItems registers every item of a file/module node in the current
// scope and returns their DefIDs in source order. Bodies are not touched.
func (l *Lowerer) collectItems(parent cst.NodeID) []DefID {
	var ids []DefID
	for _, child := range l.tree.Children(parent) {
		if id := l.collectItem(child); id.IsValid() {
			ids = append(ids, id)
		}
	}
	return ids
}

func (l *Lowerer) collectItem(node cst.NodeID) DefID {
	kind := l.tree.Kind(node)
	span := l.tree.Span(node)
	public := l.tree.HasChildOfKind(node, cst.KindVisibility)

	switch kind {
	case cst.KindFunctionItem:
		return l.collectNamed(node, DefFunction, public, &Def{Func: &FuncDef{}})

	case cst.KindStructItem:
		return l.collectNamed(node, DefStruct, public, &Def{Struct: &StructDef{}})

	case cst.KindEnumItem:
		return l.collectNamed(node, DefEnum, public, &Def{Enum: &EnumDef{}})

	case cst.KindTraitItem:
		return l.collectNamed(node, DefTrait, public, &Def{Trait: &TraitDef{}})

	case cst.KindImplItem:
		// impls are anonymous; they do not claim a name in scope.
		id := l.m.NewDef(Def{Kind: DefImpl, Span: span, Impl: &ImplDef{}})
		l.rememberItem(id, node)
		return id

	case cst.KindExternBlock:
		return l.collectExtern(node)

	case cst.KindUseDecl:
		id := l.m.NewDef(Def{Kind: DefUse, Span: span, Public: public, Use: &UseDef{}})
		l.rememberItem(id, node)
		return id

	case cst.KindModuleItem:
		return l.collectModule(node, public)

	case cst.KindUnknown:
		l.report(diag.NewWarning(diag.SynUnknownNode, span, "unrecognized syntax node; skipped"))
		return NoDefID

	default:
		l.report(diag.NewError(diag.SynPlaceholder, span, "expected item"))
		return NoDefID
	}
}

func (l *Lowerer) collectNamed(node cst.NodeID, kind DefKind, public bool, payload *Def) DefID {
	name, nameSpan, ok := l.nameOf(node)
	if !ok {
		l.report(diag.NewError(diag.SynMissingChild, l.tree.Span(node),
			fmt.Sprintf("expected a name for this %s", kind)))
		return NoDefID
	}
	payload.Kind = kind
	payload.Name = name
	payload.Span = nameSpan
	payload.Public = public
	id := l.m.NewDef(*payload)
	l.res.Declare(name, id, nameSpan, public)
	l.rememberItem(id, node)
	return id
}

func (l *Lowerer) collectExtern(node cst.NodeID) DefID {
	span := l.tree.Span(node)
	abi := strings.Trim(l.tree.Text(l.tree.FirstOfKind(node, cst.KindAbi)), `"`)
	switch abi {
	case "c", "private-v0":
	case "":
		abi = "c"
	default:
		l.report(diag.NewError(diag.SynBadAbi, span, fmt.Sprintf("unknown ABI %q", abi)))
		abi = "c"
	}

	// The block itself is not a definition; its functions are.
	id := l.m.NewDef(Def{Kind: DefModule, Span: span, Module: &ModuleDef{}})
	for _, fn := range l.tree.ChildrenOfKind(node, cst.KindFunctionItem) {
		name, nameSpan, ok := l.nameOf(fn)
		if !ok {
			continue
		}
		text := l.m.Interner.MustLookup(name)
		fd := &FuncDef{Abi: abi, Symbol: text}
		if abi == "private-v0" {
			fd.MangledSymbol = manglePrivate(text)
		}
		fnID := l.m.NewDef(Def{
			Kind:   DefExternFunction,
			Name:   name,
			Span:   nameSpan,
			Public: true,
			Func:   fd,
		})
		l.res.Declare(name, fnID, nameSpan, true)
		l.rememberItem(fnID, fn)
		mod := l.m.Def(id)
		mod.Module.Items = append(mod.Module.Items, fnID)
	}
	l.rememberItem(id, node)
	return id
}

// manglePrivate computes the length-prefixed private-v0 symbol:
// `sum` becomes `_RK3sum`.
func manglePrivate(path string) string {
	var sb strings.Builder
	sb.WriteString("_RK")
	for _, seg := range strings.Split(path, "::") {
		fmt.Fprintf(&sb, "%d%s", len(seg), seg)
	}
	return sb.String()
}

func (l *Lowerer) collectModule(node cst.NodeID, public bool) DefID {
	name, nameSpan, ok := l.nameOf(node)
	if !ok {
		return NoDefID
	}
	id := l.m.NewDef(Def{Kind: DefModule, Name: name, Span: nameSpan, Public: public, Module: &ModuleDef{}})
	l.res.Declare(name, id, nameSpan, public)
	l.rememberItem(id, node)

	scope := l.res.Enter(symbols.ScopeModule, l.tree.Span(node))
	def := l.m.Def(id)
	def.Module.Scope = ScopeRef(scope)
	def.Module.Items = l.collectItems(node)
	l.res.Leave()
	return id
}

func (l *Lowerer) rememberItem(id DefID, node cst.NodeID) {
	l.items[id] = itemDecl{node: node, scope: l.res.Current()}
}

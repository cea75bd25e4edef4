package hir

import (
	"rook/internal/cst"
	"rook/internal/diag"
	"rook/internal/symbols"
)

// lowerItemSignature fills in a collected definition's payload: parameter and
// field types, generic parameters, trait members, impl headers. Runs after
// every item of the file is declared, so forward references resolve.
func (l *Lowerer) lowerItemSignature(id DefID) {
	decl, ok := l.items[id]
	if !ok {
		return
	}
	def := l.m.Def(id)
	prev := l.res.EnterAt(decl.scope)
	defer l.res.EnterAt(prev)

	switch def.Kind {
	case DefFunction, DefExternFunction:
		l.lowerFuncSignature(id, decl.node, false)

	case DefStruct:
		generics := l.pushGenerics(l.tree.FirstOfKind(decl.node, cst.KindGenericParams))
		def.Struct.Generics = generics
		for _, f := range l.tree.ChildrenOfKind(decl.node, cst.KindFieldDecl) {
			name, span, ok := l.nameOf(f)
			if !ok {
				continue
			}
			ty := l.lowerTypeOfFirst(f)
			def.Struct.Fields = append(def.Struct.Fields, FieldDef{Name: name, Type: ty, Span: span})
		}
		l.popGenerics()

	case DefEnum:
		generics := l.pushGenerics(l.tree.FirstOfKind(decl.node, cst.KindGenericParams))
		def.Enum.Generics = generics
		for _, v := range l.tree.ChildrenOfKind(decl.node, cst.KindEnumVariant) {
			name, span, ok := l.nameOf(v)
			if !ok {
				continue
			}
			variant := VariantDef{Name: name, Span: span}
			for _, c := range l.tree.Children(v) {
				if isTypeNode(l.tree.Kind(c)) {
					variant.Fields = append(variant.Fields, l.lowerType(c))
				}
			}
			def.Enum.Variants = append(def.Enum.Variants, variant)
		}
		l.popGenerics()

	case DefTrait:
		l.lowerTraitSignature(id, decl.node)

	case DefImpl:
		l.lowerImplSignature(id, decl.node)

	case DefModule:
		for _, item := range def.Module.Items {
			l.lowerItemSignature(item)
		}

	case DefUse:
		l.lowerUse(id, decl.node)
	}
}

func (l *Lowerer) lowerFuncSignature(id DefID, node cst.NodeID, inImpl bool) {
	def := l.m.Def(id)
	fd := def.Func

	fd.Generics = l.pushGenerics(l.tree.FirstOfKind(node, cst.KindGenericParams))
	defer l.popGenerics()

	if self := l.tree.FirstOfKind(node, cst.KindSelfParam); self.IsValid() {
		switch l.tree.Text(self) {
		case "self":
			fd.SelfKind = SelfValue
		case "&self":
			fd.SelfKind = SelfRef
		case "&mut self":
			fd.SelfKind = SelfRefMut
		default:
			l.report(diag.NewError(diag.SynMissingChild, l.tree.Span(self), "expected self, &self or &mut self"))
			fd.SelfKind = SelfRef
		}
		fd.SelfLocal = l.m.NewDef(Def{
			Kind:  DefLocal,
			Name:  l.m.Interner.Intern("self"),
			Span:  l.tree.Span(self),
			Local: &LocalDef{Mutable: fd.SelfKind == SelfRefMut},
		})
	}

	for _, p := range l.tree.ChildrenOfKind(node, cst.KindParameter) {
		ident := l.tree.FirstOfKind(p, cst.KindIdentifier)
		if !ident.IsValid() {
			l.report(diag.NewError(diag.SynMissingChild, l.tree.Span(p), "expected parameter name"))
			continue
		}
		mutable := l.tree.HasChildOfKind(p, cst.KindMut)
		ty := NoTypeID
		for _, c := range l.tree.Children(p) {
			if isTypeNode(l.tree.Kind(c)) {
				ty = l.lowerType(c)
				break
			}
		}
		local := l.m.NewDef(Def{
			Kind:  DefLocal,
			Name:  l.intern(ident),
			Span:  l.tree.Span(ident),
			Local: &LocalDef{Mutable: mutable, Declared: ty},
		})
		fd.Params = append(fd.Params, Param{Local: local, Type: ty, Span: l.tree.Span(p)})
	}

	if ret := l.tree.FirstOfKind(node, cst.KindReturnType); ret.IsValid() {
		fd.Ret = l.lowerTypeOfFirst(ret)
	}

	if wc := l.tree.FirstOfKind(node, cst.KindWhereClause); wc.IsValid() {
		fd.Where = l.lowerWhereClause(wc)
	}

	if body := l.tree.FirstOfKind(node, cst.KindBlock); body.IsValid() {
		l.bodies = append(l.bodies, pendingBody{
			def:      id,
			body:     body,
			scope:    l.res.Current(),
			generics: l.snapshotGenerics(),
		})
	}
}

func (l *Lowerer) lowerWhereClause(node cst.NodeID) []WherePred {
	var out []WherePred
	for _, p := range l.tree.ChildrenOfKind(node, cst.KindWherePred) {
		var tys []TypeID
		for _, c := range l.tree.Children(p) {
			if isTypeNode(l.tree.Kind(c)) {
				tys = append(tys, l.lowerType(c))
			}
		}
		if len(tys) < 2 {
			l.report(diag.NewError(diag.SynMissingChild, l.tree.Span(p), "expected `Type: Trait` predicate"))
			continue
		}
		out = append(out, WherePred{Subject: tys[0], Trait: tys[1], Span: l.tree.Span(p)})
	}
	return out
}

func (l *Lowerer) lowerTraitSignature(id DefID, node cst.NodeID) {
	def := l.m.Def(id)
	td := def.Trait

	td.Generics = l.pushGenerics(l.tree.FirstOfKind(node, cst.KindGenericParams))
	defer l.popGenerics()

	if bounds := l.tree.FirstOfKind(node, cst.KindTraitBounds); bounds.IsValid() {
		for _, b := range l.tree.Children(bounds) {
			td.Supertraits = append(td.Supertraits, l.lowerType(b))
		}
	}

	for _, m := range l.tree.ChildrenOfKind(node, cst.KindFunctionItem) {
		name, nameSpan, ok := l.nameOf(m)
		if !ok {
			continue
		}
		fnID := l.m.NewDef(Def{Kind: DefFunction, Name: name, Span: nameSpan, Func: &FuncDef{}})
		l.items[fnID] = itemDecl{node: m, scope: l.res.Current()}
		l.lowerFuncSignature(fnID, m, false)
		td.Methods = append(td.Methods, fnID)
	}

	for _, a := range l.tree.ChildrenOfKind(node, cst.KindAssocType) {
		name, _, ok := l.nameOf(a)
		if !ok {
			continue
		}
		td.AssocTypes = append(td.AssocTypes, name)
	}
}

func (l *Lowerer) lowerImplSignature(id DefID, node cst.NodeID) {
	def := l.m.Def(id)
	im := def.Impl

	im.Generics = l.pushGenerics(l.tree.FirstOfKind(node, cst.KindGenericParams))
	defer l.popGenerics()

	if tr := l.tree.FirstOfKind(node, cst.KindTraitRef); tr.IsValid() {
		im.Trait = l.lowerTypeOfFirst(tr)
	}

	// The self type is the first bare type child.
	for _, c := range l.tree.Children(node) {
		if isTypeNode(l.tree.Kind(c)) {
			im.SelfTy = l.lowerType(c)
			break
		}
	}
	if !im.SelfTy.IsValid() {
		im.SelfTy = l.placeholderType(l.tree.Span(node), "impl self type")
	}

	if wc := l.tree.FirstOfKind(node, cst.KindWhereClause); wc.IsValid() {
		im.Where = l.lowerWhereClause(wc)
	}

	for _, m := range l.tree.ChildrenOfKind(node, cst.KindFunctionItem) {
		name, nameSpan, ok := l.nameOf(m)
		if !ok {
			continue
		}
		fnID := l.m.NewDef(Def{
			Kind:   DefFunction,
			Name:   name,
			Span:   nameSpan,
			Public: l.tree.HasChildOfKind(m, cst.KindVisibility),
			Func:   &FuncDef{},
		})
		l.items[fnID] = itemDecl{node: m, scope: l.res.Current()}
		l.lowerFuncSignature(fnID, m, true)
		im.Methods = append(im.Methods, fnID)
	}

	for _, a := range l.tree.ChildrenOfKind(node, cst.KindAssocTypeBinding) {
		name, span, ok := l.nameOf(a)
		if !ok {
			continue
		}
		im.Assoc = append(im.Assoc, AssocBinding{Name: name, Type: l.lowerTypeOfFirst(a), Span: span})
	}
}

// lowerUse resolves a use path and re-exports the final segment into the
// current module scope.
func (l *Lowerer) lowerUse(id DefID, node cst.NodeID) {
	def := l.m.Def(id)
	idents := l.tree.ChildrenOfKind(node, cst.KindIdentifier)
	if len(idents) == 0 {
		l.report(diag.NewError(diag.SynMissingChild, l.tree.Span(node), "expected import path"))
		return
	}

	for _, seg := range idents {
		def.Use.Path = append(def.Use.Path, l.intern(seg))
	}

	// Resolve the head in the enclosing chain, then walk module members.
	target := l.res.Resolve(def.Use.Path[0], l.tree.Span(idents[0]))
	for i := 1; i < len(idents) && target.IsValid(); i++ {
		mod := l.m.Def(target)
		if mod == nil || mod.Kind != DefModule {
			l.report(diag.NewError(diag.ResUnknownName, l.tree.Span(idents[i]),
				"import path segment is not a module"))
			target = NoDefID
			break
		}
		target = l.res.ResolveVisible(symbols.ScopeID(mod.Module.Scope), def.Use.Path[i], l.tree.Span(idents[i]))
	}
	def.Use.Target = target
	if !target.IsValid() {
		return
	}

	last := idents[len(idents)-1]
	l.res.DeclareIn(l.res.Current(), def.Use.Path[len(def.Use.Path)-1], target,
		l.tree.Span(last), def.Public, true)
}

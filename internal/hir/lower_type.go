package hir

import (
	"rook/internal/cst"
	"rook/internal/diag"
)

// isTypeNode reports whether a CST kind is a type form.
func isTypeNode(kind cst.NodeKind) bool {
	switch kind {
	case cst.KindNamedType, cst.KindTupleType, cst.KindReferenceType,
		cst.KindFunctionType, cst.KindInferredType:
		return true
	}
	return false
}

// primNames maps built-in type names onto primitive kinds. These form the
// prelude tail of the resolution order.
var primNames = map[string]PrimKind{
	"i64":    PrimInt,
	"int":    PrimInt,
	"f64":    PrimFloat,
	"float":  PrimFloat,
	"bool":   PrimBool,
	"str":    PrimString,
	"string": PrimString,
	"unit":   PrimUnit,
	"never":  PrimNever,
}

// lowerTypeOfFirst lowers the first type child of a wrapper node.
func (l *Lowerer) lowerTypeOfFirst(node cst.NodeID) TypeID {
	for _, c := range l.tree.Children(node) {
		if isTypeNode(l.tree.Kind(c)) {
			return l.lowerType(c)
		}
	}
	return l.placeholderType(l.tree.Span(node), "type")
}

// lowerType converts a syntactic type into a TypeNode. Resolution order for
// named types: active generic parameters, then the scope chain, then the
// primitive prelude.
func (l *Lowerer) lowerType(node cst.NodeID) TypeID {
	span := l.tree.Span(node)

	switch l.tree.Kind(node) {
	case cst.KindNamedType:
		ident := l.tree.FirstOfKind(node, cst.KindIdentifier)
		if !ident.IsValid() {
			return l.placeholderType(span, "type name")
		}
		name := l.intern(ident)

		if idx, ok := l.genericIndex(name); ok {
			return l.m.NewType(TypeNode{Kind: TypeGenericParam, Span: span, ParamIdx: idx})
		}

		if def, ok := l.res.ResolveQuiet(name); ok {
			var args []TypeID
			if ta := l.tree.FirstOfKind(node, cst.KindTypeArgs); ta.IsValid() {
				for _, a := range l.tree.Children(ta) {
					args = append(args, l.lowerType(a))
				}
			}
			return l.m.NewType(TypeNode{Kind: TypeNamed, Span: span, Def: def, Args: args})
		}

		if prim, ok := primNames[l.tree.Text(ident)]; ok {
			return l.m.NewType(TypeNode{Kind: TypePrim, Span: span, Prim: prim})
		}

		// Report through the resolver for the suggestion machinery.
		l.res.Resolve(name, l.tree.Span(ident))
		return l.m.NewType(TypeNode{Kind: TypeError, Span: span})

	case cst.KindTupleType:
		var elems []TypeID
		for _, c := range l.tree.Children(node) {
			elems = append(elems, l.lowerType(c))
		}
		return l.m.NewType(TypeNode{Kind: TypeTuple, Span: span, Elems: elems})

	case cst.KindReferenceType:
		mutable := l.tree.HasChildOfKind(node, cst.KindMut)
		inner := l.lowerTypeOfFirst(node)
		return l.m.NewType(TypeNode{Kind: TypeRef, Span: span, Mutable: mutable, Inner: inner})

	case cst.KindFunctionType:
		var params []TypeID
		ret := NoTypeID
		children := l.tree.Children(node)
		for i, c := range children {
			if !isTypeNode(l.tree.Kind(c)) {
				continue
			}
			if i == len(children)-1 && l.tree.HasChildOfKind(node, cst.KindReturnType) {
				continue
			}
			params = append(params, l.lowerType(c))
		}
		if rt := l.tree.FirstOfKind(node, cst.KindReturnType); rt.IsValid() {
			ret = l.lowerTypeOfFirst(rt)
		}
		return l.m.NewType(TypeNode{Kind: TypeFunction, Span: span, Elems: params, Ret: ret})

	case cst.KindInferredType:
		return l.m.NewType(TypeNode{Kind: TypeInferred, Span: span})

	case cst.KindUnknown:
		l.report(diag.NewWarning(diag.SynUnknownNode, span, "unrecognized type syntax"))
		return l.m.NewType(TypeNode{Kind: TypeError, Span: span})

	default:
		return l.placeholderType(span, "type")
	}
}

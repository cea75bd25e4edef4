package hir

import (
	"fmt"
	"strconv"
	"strings"

	"rook/internal/cst"
	"rook/internal/diag"
	"rook/internal/source"
	"rook/internal/symbols"
)

// isExprNode reports whether a CST kind is an expression form.
func isExprNode(kind cst.NodeKind) bool {
	switch kind {
	case cst.KindIntLiteral, cst.KindFloatLiteral, cst.KindBoolLiteral,
		cst.KindStringLiteral, cst.KindUnitLiteral, cst.KindIdentifier,
		cst.KindPathExpr, cst.KindBinaryExpr, cst.KindUnaryExpr,
		cst.KindCallExpr, cst.KindMethodCall, cst.KindFieldAccess,
		cst.KindIndexExpr, cst.KindRefExpr, cst.KindDerefExpr,
		cst.KindAssignExpr, cst.KindIfExpr, cst.KindWhileExpr,
		cst.KindMatchExpr, cst.KindClosureExpr, cst.KindStructExpr,
		cst.KindTupleExpr, cst.KindArrayExpr, cst.KindBlock:
		return true
	}
	return false
}

// lowerBody lowers one deferred function body with its captured scope and
// generic context.
func (l *Lowerer) lowerBody(pb *pendingBody) {
	def := l.m.Def(pb.def)
	fd := def.Func

	savedGenerics := l.generics
	l.generics = pb.generics
	prev := l.res.EnterAt(pb.scope)
	l.res.Enter(symbols.ScopeFunction, l.tree.Span(pb.body))

	if fd.SelfLocal.IsValid() {
		self := l.m.Def(fd.SelfLocal)
		l.res.Declare(self.Name, fd.SelfLocal, self.Span, false)
	}
	for _, p := range fd.Params {
		local := l.m.Def(p.Local)
		l.res.Declare(local.Name, p.Local, local.Span, false)
	}

	fd.Body = l.lowerBlock(pb.body)

	l.res.Leave()
	l.res.EnterAt(prev)
	l.generics = savedGenerics
}

// lowerBlock lowers a block node into a Block expression with statements and
// an optional tail expression.
func (l *Lowerer) lowerBlock(node cst.NodeID) ExprID {
	span := l.tree.Span(node)
	l.res.Enter(symbols.ScopeBlock, span)
	defer l.res.Leave()

	var stmts []StmtID
	tail := NoExprID

	children := l.tree.Children(node)
	for i, c := range children {
		switch l.tree.Kind(c) {
		case cst.KindLetStatement:
			stmts = append(stmts, l.lowerLet(c))
		case cst.KindExprStatement:
			inner := l.firstExprChild(c)
			e := l.lowerExprOrPlaceholder(inner, l.tree.Span(c))
			stmts = append(stmts, l.m.NewStmt(Stmt{Kind: StmtExpr, Span: l.tree.Span(c), Expr: e}))
		case cst.KindReturnStatement:
			value := NoExprID
			if v := l.firstExprChild(c); v.IsValid() {
				value = l.lowerExpr(v)
			}
			ret := l.m.NewExpr(Expr{Kind: ExprReturn, Span: l.tree.Span(c), Operand: value})
			stmts = append(stmts, l.m.NewStmt(Stmt{Kind: StmtExpr, Span: l.tree.Span(c), Expr: ret}))
		default:
			if isExprNode(l.tree.Kind(c)) {
				e := l.lowerExpr(c)
				if i == len(children)-1 {
					tail = e
				} else {
					stmts = append(stmts, l.m.NewStmt(Stmt{Kind: StmtExpr, Span: l.tree.Span(c), Expr: e}))
				}
			} else {
				l.report(diag.NewWarning(diag.SynUnknownNode, l.tree.Span(c), "unrecognized statement; skipped"))
			}
		}
	}

	return l.m.NewExpr(Expr{Kind: ExprBlock, Span: span, Stmts: stmts, Tail: tail})
}

// lowerLet lowers a let statement. The initializer is lowered before the
// bindings are declared, so `let x = x + 1` sees the outer x.
func (l *Lowerer) lowerLet(node cst.NodeID) StmtID {
	span := l.tree.Span(node)

	var patNode cst.NodeID
	for _, c := range l.tree.Children(node) {
		if isPatternNode(l.tree.Kind(c)) {
			patNode = c
			break
		}
	}

	ty := NoTypeID
	for _, c := range l.tree.Children(node) {
		if isTypeNode(l.tree.Kind(c)) {
			ty = l.lowerType(c)
			break
		}
	}

	init := NoExprID
	if e := l.firstExprChild(node); e.IsValid() {
		init = l.lowerExpr(e)
	}

	var pat PatID
	if patNode.IsValid() {
		pat = l.lowerPattern(patNode)
	} else {
		pat = l.placeholderPat(span, "binding pattern")
	}
	l.declarePatternBindings(pat)

	return l.m.NewStmt(Stmt{Kind: StmtLet, Span: span, Pat: pat, Ty: ty, Init: init})
}

// firstExprChild returns the first expression child of a node.
func (l *Lowerer) firstExprChild(node cst.NodeID) cst.NodeID {
	for _, c := range l.tree.Children(node) {
		if isExprNode(l.tree.Kind(c)) {
			return c
		}
	}
	return cst.NoNodeID
}

func (l *Lowerer) lowerExprOrPlaceholder(node cst.NodeID, span source.Span) ExprID {
	if !node.IsValid() {
		return l.placeholderExpr(span, "expression")
	}
	return l.lowerExpr(node)
}

func (l *Lowerer) lowerExpr(node cst.NodeID) ExprID {
	span := l.tree.Span(node)

	switch l.tree.Kind(node) {
	case cst.KindIntLiteral:
		return l.lowerIntLiteral(node)

	case cst.KindFloatLiteral:
		text := l.tree.Text(node)
		raw, suffixed := strings.CutSuffix(text, "f64")
		v, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			l.report(diag.NewError(diag.SynBadLiteral, span, fmt.Sprintf("malformed float literal %q", text)))
			return l.m.NewExpr(Expr{Kind: ExprError, Span: span})
		}
		return l.m.NewExpr(Expr{Kind: ExprLiteral, Span: span,
			Lit: Literal{Kind: LitFloat, Text: text, FloatVal: v, Suffixed: suffixed}})

	case cst.KindBoolLiteral:
		return l.m.NewExpr(Expr{Kind: ExprLiteral, Span: span,
			Lit: Literal{Kind: LitBool, Text: l.tree.Text(node), BoolVal: l.tree.Text(node) == "true"}})

	case cst.KindStringLiteral:
		return l.m.NewExpr(Expr{Kind: ExprLiteral, Span: span,
			Lit: Literal{Kind: LitString, Text: l.tree.Text(node)}})

	case cst.KindUnitLiteral:
		return l.m.NewExpr(Expr{Kind: ExprLiteral, Span: span, Lit: Literal{Kind: LitUnit}})

	case cst.KindIdentifier:
		return l.lowerVarRef(node)

	case cst.KindPathExpr:
		return l.lowerPathExpr(node, nil)

	case cst.KindBinaryExpr:
		return l.lowerBinary(node)

	case cst.KindUnaryExpr:
		return l.lowerUnary(node)

	case cst.KindCallExpr:
		return l.lowerCall(node)

	case cst.KindMethodCall:
		return l.lowerMethodCall(node)

	case cst.KindFieldAccess:
		return l.lowerFieldAccess(node)

	case cst.KindIndexExpr:
		children := l.exprChildren(node)
		if len(children) != 2 {
			return l.placeholderExpr(span, "index expression")
		}
		return l.m.NewExpr(Expr{Kind: ExprIndex, Span: span,
			Recv: l.lowerExpr(children[0]), Args: []ExprID{l.lowerExpr(children[1])}})

	case cst.KindRefExpr:
		operand := l.firstExprChild(node)
		return l.m.NewExpr(Expr{Kind: ExprRef, Span: span,
			Mutable: l.tree.HasChildOfKind(node, cst.KindMut),
			Operand: l.lowerExprOrPlaceholder(operand, span)})

	case cst.KindDerefExpr:
		operand := l.firstExprChild(node)
		return l.m.NewExpr(Expr{Kind: ExprDeref, Span: span,
			Operand: l.lowerExprOrPlaceholder(operand, span)})

	case cst.KindAssignExpr:
		children := l.exprChildren(node)
		if len(children) != 2 {
			return l.placeholderExpr(span, "assignment")
		}
		return l.m.NewExpr(Expr{Kind: ExprAssign, Span: span,
			Place: l.lowerExpr(children[0]), Value: l.lowerExpr(children[1])})

	case cst.KindIfExpr:
		return l.lowerIf(node)

	case cst.KindWhileExpr:
		children := l.exprChildren(node)
		if len(children) < 2 {
			return l.placeholderExpr(span, "while expression")
		}
		l.res.Enter(symbols.ScopeBlock, span)
		cond := l.lowerExpr(children[0])
		body := l.lowerExpr(children[1])
		l.res.Leave()
		return l.m.NewExpr(Expr{Kind: ExprWhile, Span: span, Cond: cond, Body: body})

	case cst.KindMatchExpr:
		return l.lowerMatch(node)

	case cst.KindClosureExpr:
		return l.lowerClosure(node)

	case cst.KindStructExpr:
		return l.lowerStructExpr(node)

	case cst.KindTupleExpr:
		var elems []FieldInit
		for i, c := range l.exprChildren(node) {
			elems = append(elems, FieldInit{Index: i, Value: l.lowerExpr(c), Span: l.tree.Span(c)})
		}
		return l.m.NewExpr(Expr{Kind: ExprAggregate, Span: span, Agg: AggTuple, Fields: elems})

	case cst.KindArrayExpr:
		var elems []FieldInit
		for i, c := range l.exprChildren(node) {
			elems = append(elems, FieldInit{Index: i, Value: l.lowerExpr(c), Span: l.tree.Span(c)})
		}
		return l.m.NewExpr(Expr{Kind: ExprAggregate, Span: span, Agg: AggArray, Fields: elems})

	case cst.KindBlock:
		return l.lowerBlock(node)

	case cst.KindUnknown:
		l.report(diag.NewWarning(diag.SynUnknownNode, span, "unrecognized expression syntax"))
		return l.m.NewExpr(Expr{Kind: ExprError, Span: span})

	default:
		return l.placeholderExpr(span, "expression")
	}
}

func (l *Lowerer) lowerIntLiteral(node cst.NodeID) ExprID {
	span := l.tree.Span(node)
	text := l.tree.Text(node)
	raw, suffixed := strings.CutSuffix(text, "i64")
	v, err := strconv.ParseInt(raw, 0, 64)
	if err != nil {
		l.report(diag.NewError(diag.SynBadLiteral, span, fmt.Sprintf("malformed integer literal %q", text)))
		return l.m.NewExpr(Expr{Kind: ExprError, Span: span})
	}
	return l.m.NewExpr(Expr{Kind: ExprLiteral, Span: span,
		Lit: Literal{Kind: LitInt, Text: text, IntVal: v, Suffixed: suffixed}})
}

func (l *Lowerer) lowerVarRef(node cst.NodeID) ExprID {
	span := l.tree.Span(node)
	name := l.intern(node)
	def := l.res.Resolve(name, span)
	if !def.IsValid() {
		def = l.m.ErrorDef
	}
	l.noteLocalUse(def)
	return l.m.NewExpr(Expr{Kind: ExprVarRef, Span: span, Name: name, Def: def})
}

// lowerPathExpr resolves a `a::b::c` path. A path naming an enum variant
// lowers to an enum aggregate; args, when non-nil, become its payload (the
// call-lowering passes them in).
func (l *Lowerer) lowerPathExpr(node cst.NodeID, args []ExprID) ExprID {
	span := l.tree.Span(node)
	idents := l.tree.ChildrenOfKind(node, cst.KindIdentifier)
	if len(idents) == 0 {
		return l.placeholderExpr(span, "path")
	}
	if len(idents) == 1 {
		return l.lowerVarRef(idents[0])
	}

	head := l.res.Resolve(l.intern(idents[0]), l.tree.Span(idents[0]))
	if !head.IsValid() {
		return l.m.NewExpr(Expr{Kind: ExprError, Span: span})
	}

	for i := 1; i < len(idents); i++ {
		d := l.m.Def(head)
		if d == nil {
			return l.m.NewExpr(Expr{Kind: ExprError, Span: span})
		}
		name := l.intern(idents[i])
		segSpan := l.tree.Span(idents[i])

		switch d.Kind {
		case DefEnum:
			idx := variantIndex(d.Enum, name)
			if idx < 0 {
				l.report(diag.NewError(diag.TypeUnknownVariant, segSpan,
					fmt.Sprintf("enum `%s` has no variant `%s`", l.m.DefName(head), l.m.Interner.MustLookup(name))))
				return l.m.NewExpr(Expr{Kind: ExprError, Span: span})
			}
			var fields []FieldInit
			for k, a := range args {
				fields = append(fields, FieldInit{Index: k, Value: a, Span: span})
			}
			return l.m.NewExpr(Expr{Kind: ExprAggregate, Span: span,
				Agg: AggEnum, AggDef: head, VariantIdx: idx, Fields: fields})

		case DefModule:
			head = l.res.ResolveVisible(symbols.ScopeID(d.Module.Scope), name, segSpan)
			if !head.IsValid() {
				return l.m.NewExpr(Expr{Kind: ExprError, Span: span})
			}

		default:
			l.report(diag.NewError(diag.ResUnknownName, segSpan,
				fmt.Sprintf("`%s` cannot be used as a path qualifier", l.m.DefName(head))))
			return l.m.NewExpr(Expr{Kind: ExprError, Span: span})
		}
	}

	if args != nil {
		callee := l.m.NewExpr(Expr{Kind: ExprVarRef, Span: span, Def: head})
		return l.m.NewExpr(Expr{Kind: ExprCall, Span: span, Callee: callee, Args: args})
	}
	return l.m.NewExpr(Expr{Kind: ExprVarRef, Span: span, Def: head})
}

func variantIndex(e *EnumDef, name source.StringID) int {
	for i, v := range e.Variants {
		if v.Name == name {
			return i
		}
	}
	return -1
}

var binOps = map[string]BinOp{
	"+": BinAdd, "-": BinSub, "*": BinMul, "/": BinDiv, "%": BinRem,
	"&&": BinAnd, "||": BinOr,
	"==": BinEq, "!=": BinNe,
	"<": BinLt, "<=": BinLe, ">": BinGt, ">=": BinGe,
}

func (l *Lowerer) lowerBinary(node cst.NodeID) ExprID {
	span := l.tree.Span(node)
	children := l.exprChildren(node)
	opNode := l.tree.FirstOfKind(node, cst.KindOperator)
	if len(children) != 2 || !opNode.IsValid() {
		return l.placeholderExpr(span, "binary expression")
	}
	op, ok := binOps[l.tree.Text(opNode)]
	if !ok {
		l.report(diag.NewError(diag.SynPlaceholder, l.tree.Span(opNode),
			fmt.Sprintf("expected binary operator, found %q", l.tree.Text(opNode))))
		return l.m.NewExpr(Expr{Kind: ExprError, Span: span})
	}
	return l.m.NewExpr(Expr{Kind: ExprBinaryOp, Span: span, Bin: op,
		LHS: l.lowerExpr(children[0]), RHS: l.lowerExpr(children[1])})
}

func (l *Lowerer) lowerUnary(node cst.NodeID) ExprID {
	span := l.tree.Span(node)
	opNode := l.tree.FirstOfKind(node, cst.KindOperator)
	operand := l.firstExprChild(node)
	if !opNode.IsValid() || !operand.IsValid() {
		return l.placeholderExpr(span, "unary expression")
	}
	var op UnOp
	switch l.tree.Text(opNode) {
	case "-":
		op = UnNeg
	case "!":
		op = UnNot
	default:
		l.report(diag.NewError(diag.SynPlaceholder, l.tree.Span(opNode),
			fmt.Sprintf("expected unary operator, found %q", l.tree.Text(opNode))))
		return l.m.NewExpr(Expr{Kind: ExprError, Span: span})
	}
	return l.m.NewExpr(Expr{Kind: ExprUnaryOp, Span: span, Un: op, Operand: l.lowerExpr(operand)})
}

func (l *Lowerer) lowerCall(node cst.NodeID) ExprID {
	span := l.tree.Span(node)
	children := l.exprChildren(node)
	if len(children) == 0 {
		return l.placeholderExpr(span, "call expression")
	}

	var args []ExprID
	for _, c := range children[1:] {
		args = append(args, l.lowerExpr(c))
	}
	if args == nil {
		args = []ExprID{}
	}

	// Enum-variant paths in callee position construct the variant.
	if l.tree.Kind(children[0]) == cst.KindPathExpr {
		return l.lowerPathExpr(children[0], args)
	}

	var typeArgs []TypeID
	if ta := l.tree.FirstOfKind(node, cst.KindTypeArgs); ta.IsValid() {
		for _, a := range l.tree.Children(ta) {
			typeArgs = append(typeArgs, l.lowerType(a))
		}
	}

	return l.m.NewExpr(Expr{Kind: ExprCall, Span: span,
		Callee: l.lowerExpr(children[0]), Args: args, TypeArgs: typeArgs})
}

func (l *Lowerer) lowerMethodCall(node cst.NodeID) ExprID {
	span := l.tree.Span(node)
	children := l.tree.Children(node)
	if len(children) < 2 || l.tree.Kind(children[1]) != cst.KindIdentifier {
		return l.placeholderExpr(span, "method call")
	}

	recv := l.lowerExpr(children[0])
	method := l.intern(children[1])

	var typeArgs []TypeID
	var args []ExprID
	for _, c := range children[2:] {
		if l.tree.Kind(c) == cst.KindTypeArgs {
			for _, a := range l.tree.Children(c) {
				typeArgs = append(typeArgs, l.lowerType(a))
			}
			continue
		}
		if isExprNode(l.tree.Kind(c)) {
			args = append(args, l.lowerExpr(c))
		}
	}

	return l.m.NewExpr(Expr{Kind: ExprMethodCall, Span: span,
		Recv: recv, Method: method, Args: args, TypeArgs: typeArgs})
}

func (l *Lowerer) lowerFieldAccess(node cst.NodeID) ExprID {
	span := l.tree.Span(node)
	children := l.tree.Children(node)
	if len(children) < 2 {
		return l.placeholderExpr(span, "field access")
	}
	recv := l.lowerExpr(children[0])

	switch l.tree.Kind(children[1]) {
	case cst.KindIdentifier:
		return l.m.NewExpr(Expr{Kind: ExprField, Span: span,
			Recv: recv, Name: l.intern(children[1]), FieldIdx: -1})
	case cst.KindIntLiteral:
		idx, err := strconv.Atoi(l.tree.Text(children[1]))
		if err != nil || idx < 0 {
			return l.placeholderExpr(span, "tuple index")
		}
		return l.m.NewExpr(Expr{Kind: ExprField, Span: span, Recv: recv, FieldIdx: idx})
	default:
		return l.placeholderExpr(span, "field name")
	}
}

func (l *Lowerer) lowerIf(node cst.NodeID) ExprID {
	span := l.tree.Span(node)
	children := l.exprChildren(node)
	if len(children) < 2 {
		return l.placeholderExpr(span, "if expression")
	}
	l.res.Enter(symbols.ScopeBlock, span)
	cond := l.lowerExpr(children[0])
	then := l.lowerExpr(children[1])
	els := NoExprID
	if len(children) > 2 {
		els = l.lowerExpr(children[2])
	}
	l.res.Leave()
	return l.m.NewExpr(Expr{Kind: ExprIf, Span: span, Cond: cond, Then: then, Else: els})
}

func (l *Lowerer) lowerMatch(node cst.NodeID) ExprID {
	span := l.tree.Span(node)
	scrutineeNode := l.firstExprChild(node)
	scrutinee := l.lowerExprOrPlaceholder(scrutineeNode, span)

	var arms []MatchArm
	for _, armNode := range l.tree.ChildrenOfKind(node, cst.KindMatchArm) {
		armSpan := l.tree.Span(armNode)
		l.res.Enter(symbols.ScopeArm, armSpan)

		var pat PatID
		for _, c := range l.tree.Children(armNode) {
			if isPatternNode(l.tree.Kind(c)) {
				pat = l.lowerPattern(c)
				break
			}
		}
		if !pat.IsValid() {
			pat = l.placeholderPat(armSpan, "arm pattern")
		}
		l.declarePatternBindings(pat)

		body := l.lowerExprOrPlaceholder(l.firstExprChild(armNode), armSpan)
		l.res.Leave()
		arms = append(arms, MatchArm{Pat: pat, Body: body, Span: armSpan})
	}

	return l.m.NewExpr(Expr{Kind: ExprMatch, Span: span, Scrutinee: scrutinee, Arms: arms})
}

func (l *Lowerer) lowerClosure(node cst.NodeID) ExprID {
	span := l.tree.Span(node)

	frame := &closureFrame{declared: make(map[DefID]bool), seen: make(map[DefID]bool)}
	l.closures = append(l.closures, frame)
	l.res.Enter(symbols.ScopeFunction, span)

	var params []Param
	for _, p := range l.tree.ChildrenOfKind(node, cst.KindParameter) {
		ident := l.tree.FirstOfKind(p, cst.KindIdentifier)
		if !ident.IsValid() {
			continue
		}
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
			Local: &LocalDef{Mutable: l.tree.HasChildOfKind(p, cst.KindMut), Declared: ty},
		})
		l.res.Declare(l.intern(ident), local, l.tree.Span(ident), false)
		frame.declared[local] = true
		params = append(params, Param{Local: local, Type: ty, Span: l.tree.Span(p)})
	}

	retTy := NoTypeID
	if rt := l.tree.FirstOfKind(node, cst.KindReturnType); rt.IsValid() {
		retTy = l.lowerTypeOfFirst(rt)
	}

	body := l.lowerExprOrPlaceholder(l.firstExprChild(node), span)

	l.res.Leave()
	l.closures = l.closures[:len(l.closures)-1]

	return l.m.NewExpr(Expr{Kind: ExprClosure, Span: span,
		Params: params, RetTy: retTy, Body: body, Captures: frame.captures})
}

func (l *Lowerer) lowerStructExpr(node cst.NodeID) ExprID {
	span := l.tree.Span(node)
	ident := l.tree.FirstOfKind(node, cst.KindIdentifier)
	if !ident.IsValid() {
		return l.placeholderExpr(span, "struct name")
	}
	def := l.res.Resolve(l.intern(ident), l.tree.Span(ident))

	var sd *StructDef
	if d := l.m.Def(def); d != nil && d.Kind == DefStruct {
		sd = d.Struct
	} else if def.IsValid() {
		l.report(diag.NewError(diag.TypeMismatch, l.tree.Span(ident),
			fmt.Sprintf("`%s` is not a struct", l.m.DefName(def))))
		def = NoDefID
	}
	if !def.IsValid() {
		def = l.m.ErrorDef
	}

	var fields []FieldInit
	for _, f := range l.tree.ChildrenOfKind(node, cst.KindFieldInit) {
		fident := l.tree.FirstOfKind(f, cst.KindIdentifier)
		// The field name is itself an identifier node; the value is the first
		// other expression child. Shorthand `P { x }` reads the name as the value.
		valueNode := cst.NoNodeID
		for _, c := range l.tree.Children(f) {
			if c != fident && isExprNode(l.tree.Kind(c)) {
				valueNode = c
				break
			}
		}
		if !valueNode.IsValid() {
			valueNode = fident
		}
		value := l.lowerExprOrPlaceholder(valueNode, l.tree.Span(f))
		if !fident.IsValid() {
			continue
		}
		idx := -1
		if sd != nil {
			name := l.intern(fident)
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
		fields = append(fields, FieldInit{Index: idx, Value: value, Span: l.tree.Span(f)})
	}

	return l.m.NewExpr(Expr{Kind: ExprAggregate, Span: span,
		Agg: AggStruct, AggDef: def, Fields: fields})
}

// exprChildren collects direct expression children in order.
func (l *Lowerer) exprChildren(node cst.NodeID) []cst.NodeID {
	var out []cst.NodeID
	for _, c := range l.tree.Children(node) {
		if isExprNode(l.tree.Kind(c)) {
			out = append(out, c)
		}
	}
	return out
}

// noteLocalUse records a capture when a local defined outside the current
// closure is referenced inside it.
func (l *Lowerer) noteLocalUse(def DefID) {
	d := l.m.Def(def)
	if d == nil || d.Kind != DefLocal {
		return
	}
	for i := len(l.closures) - 1; i >= 0; i-- {
		frame := l.closures[i]
		if frame.declared[def] {
			return
		}
		if !frame.seen[def] {
			frame.seen[def] = true
			frame.captures = append(frame.captures, def)
		}
	}
}

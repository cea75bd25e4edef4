package hir

import (
	"strings"
	"testing"

	"rook/internal/cst"
	"rook/internal/diag"
	"rook/internal/source"
)

type lowered struct {
	m   *Module
	bag *diag.Bag
	in  *source.Interner
}

func lower(t *testing.T, sexp string) lowered {
	t.Helper()
	fs := source.NewFileSet()
	in := source.NewInterner()
	tree, err := cst.ParseSexp(fs, "t.rk", sexp)
	if err != nil {
		t.Fatalf("bad test input: %v", err)
	}
	bag := diag.NewBag(32)
	m := Lower(tree, in, diag.BagReporter{Bag: bag})
	return lowered{m: m, bag: bag, in: in}
}

func (lo lowered) fn(t *testing.T, name string) *FuncDef {
	t.Helper()
	var out *FuncDef
	lo.m.Defs(func(id DefID, d *Def) bool {
		if (d.Kind == DefFunction || d.Kind == DefExternFunction) && lo.m.DefName(id) == name {
			out = d.Func
			return false
		}
		return true
	})
	if out == nil {
		t.Fatalf("function %q not lowered", name)
	}
	return out
}

func (lo lowered) codes() []diag.Code {
	var out []diag.Code
	for _, d := range lo.bag.Items() {
		out = append(out, d.Code)
	}
	return out
}

func hasCode(codes []diag.Code, want diag.Code) bool {
	for _, c := range codes {
		if c == want {
			return true
		}
	}
	return false
}

func TestLowerForwardReference(t *testing.T) {
	lo := lower(t, `
		(source_file
			(function_item (name "caller")
				(block (call_expression (identifier "callee"))))
			(function_item (name "callee")
				(block (integer_literal "1"))))`)

	if lo.bag.HasErrors() {
		t.Fatalf("forward references must resolve: %v", lo.bag.Items())
	}
	body := lo.m.Expr(lo.fn(t, "caller").Body)
	call := lo.m.Expr(body.Tail)
	if call.Kind != ExprCall {
		t.Fatalf("expected call, got %v", call.Kind)
	}
	callee := lo.m.Expr(call.Callee)
	if lo.m.Def(callee.Def).Kind != DefFunction {
		t.Error("callee must resolve to the later function")
	}
}

func TestLetSeesOuterBinding(t *testing.T) {
	// let x = 1; let x = x + 1  — правый x ссылается на внешний
	lo := lower(t, `
		(source_file
			(function_item (name "f")
				(block
					(let_statement (identifier_pattern (identifier "x")) (integer_literal "1"))
					(let_statement (identifier_pattern (identifier "x"))
						(binary_expression (identifier "x") (operator "+") (integer_literal "1"))))))`)

	if lo.bag.HasErrors() {
		t.Fatalf("unexpected diagnostics: %v", lo.bag.Items())
	}

	body := lo.m.Expr(lo.fn(t, "f").Body)
	first := lo.m.Stmt(body.Stmts[0])
	second := lo.m.Stmt(body.Stmts[1])

	firstLocal := lo.m.Pat(first.Pat).Local
	add := lo.m.Expr(second.Init)
	lhs := lo.m.Expr(add.LHS)
	if lhs.Def != firstLocal {
		t.Errorf("rhs x must resolve to the outer local %d, got %d", firstLocal, lhs.Def)
	}
	if lo.m.Pat(second.Pat).Local == firstLocal {
		t.Error("second let must introduce a fresh local")
	}
}

func TestOrPatternBindingMismatch(t *testing.T) {
	lo := lower(t, `
		(source_file
			(enum_item (name "E")
				(enum_variant (identifier "A") (named_type (identifier "i64")))
				(enum_variant (identifier "B")))
			(function_item (name "f")
				(parameter (identifier "e") (named_type (identifier "E")))
				(block
					(match_expression (identifier "e")
						(match_arm
							(or_pattern
								(enum_pattern (identifier "E") (identifier "A")
									(identifier_pattern (identifier "x")))
								(enum_pattern (identifier "E") (identifier "B")))
							(integer_literal "0"))))))`)

	if !hasCode(lo.codes(), diag.PatOrBindingMismatch) {
		t.Fatalf("expected OrPatternBindingMismatch, got %v", lo.codes())
	}
}

func TestOrPatternSharedLocal(t *testing.T) {
	lo := lower(t, `
		(source_file
			(enum_item (name "E")
				(enum_variant (identifier "A") (named_type (identifier "i64")))
				(enum_variant (identifier "B") (named_type (identifier "i64"))))
			(function_item (name "f")
				(parameter (identifier "e") (named_type (identifier "E")))
				(block
					(match_expression (identifier "e")
						(match_arm
							(or_pattern
								(enum_pattern (identifier "E") (identifier "A")
									(identifier_pattern (identifier "x")))
								(enum_pattern (identifier "E") (identifier "B")
									(identifier_pattern (identifier "x"))))
							(identifier "x"))))))`)

	if lo.bag.HasErrors() {
		t.Fatalf("same name set must be accepted: %v", lo.bag.Items())
	}

	body := lo.m.Expr(lo.fn(t, "f").Body)
	match := lo.m.Expr(body.Tail)
	or := lo.m.Pat(match.Arms[0].Pat)
	a := lo.m.Pat(lo.m.Pat(or.Elems[0]).Elems[0])
	b := lo.m.Pat(lo.m.Pat(or.Elems[1]).Elems[0])
	if a.Local != b.Local {
		t.Error("alternatives must share one Local per name")
	}
	armBody := lo.m.Expr(match.Arms[0].Body)
	if armBody.Def != a.Local {
		t.Error("arm body must resolve x to the shared local")
	}
}

func TestClosureCaptures(t *testing.T) {
	lo := lower(t, `
		(source_file
			(function_item (name "f")
				(parameter (identifier "n") (named_type (identifier "i64")))
				(block
					(closure_expression
						(parameter (identifier "k"))
						(binary_expression (identifier "k") (operator "+") (identifier "n"))))))`)

	if lo.bag.HasErrors() {
		t.Fatalf("unexpected diagnostics: %v", lo.bag.Items())
	}
	fd := lo.fn(t, "f")
	closure := lo.m.Expr(lo.m.Expr(fd.Body).Tail)
	if closure.Kind != ExprClosure {
		t.Fatalf("expected closure, got %v", closure.Kind)
	}
	if len(closure.Captures) != 1 || closure.Captures[0] != fd.Params[0].Local {
		t.Errorf("closure must capture exactly n, got %v", closure.Captures)
	}
}

func TestExternMangling(t *testing.T) {
	lo := lower(t, `
		(source_file
			(extern_block (abi "c")
				(function_item (name "puts")
					(parameter (identifier "s") (named_type (identifier "str")))))
			(extern_block (abi "private-v0")
				(function_item (name "alloc"))))`)

	puts := lo.fn(t, "puts")
	if puts.Abi != "c" || puts.Symbol != "puts" || puts.MangledSymbol != "" {
		t.Errorf("C ABI must keep the raw symbol: %+v", puts)
	}
	alloc := lo.fn(t, "alloc")
	if alloc.Abi != "private-v0" || alloc.MangledSymbol != "_RK5alloc" {
		t.Errorf("private ABI must mangle: %+v", alloc)
	}
}

func TestManglePrivatePath(t *testing.T) {
	if got := manglePrivate("mem::alloc"); got != "_RK3mem5alloc" {
		t.Errorf("expected _RK3mem5alloc, got %q", got)
	}
}

func TestPlaceholderRecovery(t *testing.T) {
	// Malformed: let without pattern; unknown expression node. Lowering must
	// produce placeholders and keep going, never panic.
	lo := lower(t, `
		(source_file
			(function_item (name "f")
				(block
					(let_statement (integer_literal "1"))
					(warp_drive (identifier "x"))
					(integer_literal "2"))))`)

	body := lo.m.Expr(lo.fn(t, "f").Body)
	if !body.Tail.IsValid() || lo.m.Expr(body.Tail).Lit.IntVal != 2 {
		t.Error("lowering must continue past malformed nodes")
	}
	codes := lo.codes()
	if !hasCode(codes, diag.SynPlaceholder) {
		t.Errorf("expected a syntax placeholder, got %v", codes)
	}
	for _, d := range lo.bag.Items() {
		if d.Code == diag.SynPlaceholder && !strings.HasPrefix(d.Message, "expected ") {
			t.Errorf("placeholder message must name what was expected, got %q", d.Message)
		}
	}
}

func TestUseVisibility(t *testing.T) {
	lo := lower(t, `
		(source_file
			(module_item (name "inner")
				(function_item (visibility_modifier) (name "seen") (block (integer_literal "1")))
				(function_item (name "hidden") (block (integer_literal "2"))))
			(use_declaration (identifier "inner") (identifier "seen"))
			(use_declaration (identifier "inner") (identifier "hidden")))`)

	if !hasCode(lo.codes(), diag.ResPrivateAccess) {
		t.Fatalf("expected PrivateAccess for hidden, got %v", lo.codes())
	}

	var uses []*UseDef
	lo.m.Defs(func(id DefID, d *Def) bool {
		if d.Kind == DefUse {
			uses = append(uses, d.Use)
		}
		return true
	})
	if len(uses) != 2 {
		t.Fatalf("expected 2 use items, got %d", len(uses))
	}
	if !uses[0].Target.IsValid() {
		t.Error("public import must resolve")
	}
	if uses[1].Target.IsValid() {
		t.Error("private import must not resolve")
	}
}

func TestDuplicateTopLevel(t *testing.T) {
	lo := lower(t, `
		(source_file
			(function_item (name "f") (block (integer_literal "1")))
			(function_item (name "f") (block (integer_literal "2"))))`)
	if !hasCode(lo.codes(), diag.ResDuplicateDefinition) {
		t.Fatalf("expected DuplicateDefinition, got %v", lo.codes())
	}
}

func TestStructExprFieldIndices(t *testing.T) {
	lo := lower(t, `
		(source_file
			(struct_item (name "P")
				(field_declaration (identifier "x") (named_type (identifier "i64")))
				(field_declaration (identifier "y") (named_type (identifier "i64"))))
			(function_item (name "f")
				(block
					(struct_expression (identifier "P")
						(field_initializer (identifier "y") (integer_literal "2"))
						(field_initializer (identifier "x") (integer_literal "1"))))))`)

	if lo.bag.HasErrors() {
		t.Fatalf("unexpected diagnostics: %v", lo.bag.Items())
	}
	agg := lo.m.Expr(lo.m.Expr(lo.fn(t, "f").Body).Tail)
	if agg.Kind != ExprAggregate || agg.Agg != AggStruct {
		t.Fatalf("expected struct aggregate, got %v", agg.Kind)
	}
	if agg.Fields[0].Index != 1 || agg.Fields[1].Index != 0 {
		t.Errorf("field initializers must carry declaration indices, got %+v", agg.Fields)
	}
}

func TestEnumPathLowering(t *testing.T) {
	lo := lower(t, `
		(source_file
			(enum_item (name "E")
				(enum_variant (identifier "A"))
				(enum_variant (identifier "B") (named_type (identifier "i64"))))
			(function_item (name "f")
				(block
					(call_expression
						(path_expression (identifier "E") (identifier "B"))
						(integer_literal "7")))))`)

	if lo.bag.HasErrors() {
		t.Fatalf("unexpected diagnostics: %v", lo.bag.Items())
	}
	agg := lo.m.Expr(lo.m.Expr(lo.fn(t, "f").Body).Tail)
	if agg.Kind != ExprAggregate || agg.Agg != AggEnum || agg.VariantIdx != 1 {
		t.Fatalf("E::B(7) must lower to an enum aggregate of variant 1, got %+v", agg)
	}
	if len(agg.Fields) != 1 {
		t.Errorf("payload lost: %+v", agg.Fields)
	}
}

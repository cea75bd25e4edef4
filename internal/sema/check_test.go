package sema

import (
	"strings"
	"testing"

	"rook/internal/cst"
	"rook/internal/diag"
	"rook/internal/hir"
	"rook/internal/source"
	"rook/internal/types"
)

type checked struct {
	m   *hir.Module
	ctx *TyContext
	bag *diag.Bag
}

func check(t *testing.T, sexp string) checked {
	t.Helper()
	fs := source.NewFileSet()
	in := source.NewInterner()
	tree, err := cst.ParseSexp(fs, "t.rk", sexp)
	if err != nil {
		t.Fatalf("bad test input: %v", err)
	}
	bag := diag.NewBag(64)
	m := hir.Lower(tree, in, diag.BagReporter{Bag: bag})
	ctx := Check(m, diag.BagReporter{Bag: bag})
	return checked{m: m, ctx: ctx, bag: bag}
}

func (c checked) firstWithCode(code diag.Code) (diag.Diagnostic, bool) {
	for _, d := range c.bag.Items() {
		if d.Code == code {
			return d, true
		}
	}
	return diag.Diagnostic{}, false
}

func (c checked) errorCodes() []diag.Code {
	var out []diag.Code
	for _, d := range c.bag.Items() {
		if d.Severity >= diag.SevError {
			out = append(out, d.Code)
		}
	}
	return out
}

// Scenario: two structurally identical newtypes must not unify.
func TestNewtypeNonUnification(t *testing.T) {
	c := check(t, `
		(source_file
			(struct_item (name "M")
				(field_declaration (identifier "v") (named_type (identifier "i64"))))
			(struct_item (name "F")
				(field_declaration (identifier "v") (named_type (identifier "i64"))))
			(function_item (name "add")
				(parameter (identifier "a") (named_type (identifier "M")))
				(parameter (identifier "b") (named_type (identifier "F")))
				(return_type (named_type (identifier "M")))
				(block
					(binary_expression (identifier "a") (operator "+") (identifier "b")))))`)

	d, ok := c.firstWithCode(diag.TypeMismatch)
	if !ok {
		t.Fatalf("expected TypeMismatch, got %v", c.bag.Items())
	}
	if !strings.Contains(d.Message, "M") || !strings.Contains(d.Message, "F") {
		t.Errorf("diagnostic must reference both nominal types, got %q", d.Message)
	}
}

// Scenario: binding a variable to a tuple containing itself fails the occurs
// check.
func TestOccursCheck(t *testing.T) {
	c := check(t, `
		(source_file
			(function_item (name "f")
				(parameter (mutable_specifier) (identifier "x"))
				(block
					(expression_statement
						(assignment_expression
							(identifier "x")
							(tuple_expression (identifier "x") (integer_literal "1")))))))`)

	if _, ok := c.firstWithCode(diag.TypeOccursCheck); !ok {
		t.Fatalf("expected OccursCheck, got %v", c.bag.Items())
	}
}

const enumABC = `
	(enum_item (name "E")
		(enum_variant (identifier "A"))
		(enum_variant (identifier "B"))
		(enum_variant (identifier "C")))`

// Scenario: a two-arm match over a three-variant enum reports the missing
// shape; adding the third arm silences it.
func TestExhaustivenessEnum(t *testing.T) {
	open := check(t, `
		(source_file `+enumABC+`
			(function_item (name "f")
				(parameter (identifier "x") (named_type (identifier "E")))
				(return_type (named_type (identifier "i64")))
				(block
					(match_expression (identifier "x")
						(match_arm (enum_pattern (identifier "E") (identifier "A")) (integer_literal "1"))
						(match_arm (enum_pattern (identifier "E") (identifier "B")) (integer_literal "2"))))))`)

	d, ok := open.firstWithCode(diag.PatNonExhaustive)
	if !ok {
		t.Fatalf("expected NonExhaustive, got %v", open.bag.Items())
	}
	if !strings.Contains(d.Message, "E::C") {
		t.Errorf("witness must name E::C, got %q", d.Message)
	}

	closed := check(t, `
		(source_file `+enumABC+`
			(function_item (name "f")
				(parameter (identifier "x") (named_type (identifier "E")))
				(return_type (named_type (identifier "i64")))
				(block
					(match_expression (identifier "x")
						(match_arm (enum_pattern (identifier "E") (identifier "A")) (integer_literal "1"))
						(match_arm (enum_pattern (identifier "E") (identifier "B")) (integer_literal "2"))
						(match_arm (enum_pattern (identifier "E") (identifier "C")) (integer_literal "3"))))))`)

	if closed.bag.HasErrors() {
		t.Fatalf("exhaustive match must be clean: %v", closed.bag.Items())
	}
	var matchID hir.ExprID
	closed.m.Defs(func(id hir.DefID, d *hir.Def) bool {
		if d.Kind == hir.DefFunction && d.Func.Body.IsValid() {
			body := closed.m.Expr(d.Func.Body)
			matchID = body.Tail
		}
		return true
	})
	if !closed.ctx.Exhaustive[matchID] {
		t.Error("analyzer must record the exhaustive verdict")
	}
}

const structSImplMutM = `
	(struct_item (name "S"))
	(impl_item (named_type (identifier "S"))
		(function_item (name "m") (self_parameter "&mut self")
			(block (unit_literal))))`

// Scenario: calling a &mut self method on an immutable binding.
func TestReceiverMutability(t *testing.T) {
	bad := check(t, `
		(source_file `+structSImplMutM+`
			(function_item (name "f")
				(block
					(let_statement (identifier_pattern (identifier "s"))
						(struct_expression (identifier "S")))
					(expression_statement
						(method_call_expression (identifier "s") (identifier "m"))))))`)

	if _, ok := bad.firstWithCode(diag.MethodMutabilityMismatch); !ok {
		t.Fatalf("expected MutabilityMismatch, got %v", bad.bag.Items())
	}

	good := check(t, `
		(source_file `+structSImplMutM+`
			(function_item (name "f")
				(block
					(let_statement (identifier_pattern (mutable_specifier) (identifier "s"))
						(struct_expression (identifier "S")))
					(expression_statement
						(method_call_expression (identifier "s") (identifier "m"))))))`)

	if good.bag.HasErrors() {
		t.Fatalf("mut binding must satisfy &mut self: %v", good.bag.Items())
	}
}

const traitTGenericG = `
	(trait_item (name "T")
		(function_item (name "f") (self_parameter "&self")))
	(function_item (name "g")
		(generic_params (generic_param (identifier "X")
			(trait_bounds (named_type (identifier "T")))))
		(parameter (identifier "x") (named_type (identifier "X")))
		(block
			(expression_statement
				(method_call_expression (identifier "x") (identifier "f")))))`

// Scenario: calling a bounded generic with a type that lacks the impl.
func TestTraitBound(t *testing.T) {
	bad := check(t, `
		(source_file `+traitTGenericG+`
			(function_item (name "main")
				(block
					(expression_statement
						(call_expression (identifier "g") (integer_literal "42"))))))`)

	d, ok := bad.firstWithCode(diag.BoundUnsatisfied)
	if !ok {
		t.Fatalf("expected UnsatisfiedBound, got %v", bad.bag.Items())
	}
	if !strings.Contains(d.Message, "i64") || !strings.Contains(d.Message, "T") {
		t.Errorf("diagnostic must name the concrete type and trait, got %q", d.Message)
	}

	good := check(t, `
		(source_file `+traitTGenericG+`
			(impl_item (trait_ref (named_type (identifier "T")))
				(named_type (identifier "i64"))
				(function_item (name "f") (self_parameter "&self")
					(block (unit_literal))))
			(function_item (name "main")
				(block
					(expression_statement
						(call_expression (identifier "g") (integer_literal "42"))))))`)

	if good.bag.HasErrors() {
		t.Fatalf("impl must satisfy the bound: %v", good.bag.Items())
	}
}

func TestSupertraitClosure(t *testing.T) {
	c := check(t, `
		(source_file
			(trait_item (name "Base")
				(function_item (name "base") (self_parameter "&self")))
			(trait_item (name "Derived")
				(trait_bounds (named_type (identifier "Base")))
				(function_item (name "extra") (self_parameter "&self")))
			(struct_item (name "S"))
			(impl_item (trait_ref (named_type (identifier "Derived")))
				(named_type (identifier "S"))
				(function_item (name "extra") (self_parameter "&self")
					(block (unit_literal)))))`)

	if _, ok := c.firstWithCode(diag.BoundMissingSupertraitImpl); !ok {
		t.Fatalf("expected MissingSupertraitImpl, got %v", c.bag.Items())
	}
}

func TestMissingAssociatedType(t *testing.T) {
	c := check(t, `
		(source_file
			(trait_item (name "Iter")
				(associated_type (identifier "Item")))
			(struct_item (name "S"))
			(impl_item (trait_ref (named_type (identifier "Iter")))
				(named_type (identifier "S"))))`)

	if _, ok := c.firstWithCode(diag.BoundMissingAssociatedType); !ok {
		t.Fatalf("expected MissingAssociatedType, got %v", c.bag.Items())
	}
}

func TestIntLiteralPolymorphism(t *testing.T) {
	good := check(t, `
		(source_file
			(function_item (name "f")
				(block
					(let_statement (identifier_pattern (identifier "x"))
						(named_type (identifier "f64"))
						(integer_literal "1")))))`)
	if good.bag.HasErrors() {
		t.Fatalf("unsuffixed int literal must adopt f64: %v", good.bag.Items())
	}

	bad := check(t, `
		(source_file
			(function_item (name "f")
				(block
					(let_statement (identifier_pattern (identifier "x"))
						(named_type (identifier "f64"))
						(integer_literal "1i64")))))`)
	if _, ok := bad.firstWithCode(diag.TypeMismatch); !ok {
		t.Fatalf("suffixed literal must be rigid: %v", bad.bag.Items())
	}
}

func TestIfBranchUnification(t *testing.T) {
	c := check(t, `
		(source_file
			(function_item (name "f")
				(parameter (identifier "c") (named_type (identifier "bool")))
				(return_type (named_type (identifier "i64")))
				(block
					(if_expression (identifier "c")
						(block (integer_literal "1"))
						(block (boolean_literal "true"))))))`)
	if _, ok := c.firstWithCode(diag.TypeMismatch); !ok {
		t.Fatalf("branches of different types must not unify: %v", c.bag.Items())
	}
}

func TestUnifySymmetricAndIdempotent(t *testing.T) {
	in := source.NewInterner()
	m := hir.NewModule(0, in)
	ctx := NewTyContext(m, diag.NopReporter{})
	b := ctx.Types.Builtins()

	v := ctx.FreshVar()
	if err := ctx.Unify(v, b.Int); err != nil {
		t.Fatalf("var/int must unify: %v", err)
	}
	// Idempotence on an already-unified pair.
	if err := ctx.Unify(v, b.Int); err != nil {
		t.Fatalf("re-unifying must be a no-op: %v", err)
	}
	if err := ctx.Unify(b.Int, v); err != nil {
		t.Fatalf("unify must be symmetric: %v", err)
	}

	// Symmetry of failure for nominal types.
	s1 := m.NewDef(hir.Def{Kind: hir.DefStruct, Struct: &hir.StructDef{}})
	s2 := m.NewDef(hir.Def{Kind: hir.DefStruct, Struct: &hir.StructDef{}})
	t1 := ctx.Types.Named(s1, nil)
	t2 := ctx.Types.Named(s2, nil)
	if ctx.Unify(t1, t2) == nil || ctx.Unify(t2, t1) == nil {
		t.Error("distinct nominal types must fail in both directions")
	}

	// Error subsumes anything, silently.
	if ctx.Unify(b.Error, t1) != nil || ctx.Unify(t1, b.Error) != nil {
		t.Error("Error must unify with anything")
	}
}

func TestOccursCheckDirect(t *testing.T) {
	in := source.NewInterner()
	ctx := NewTyContext(hir.NewModule(0, in), diag.NopReporter{})
	b := ctx.Types.Builtins()

	v := ctx.FreshVar()
	pair := ctx.Types.Tuple([]types.TyID{v, b.Int})
	err := ctx.Unify(v, pair)
	if err == nil || err.Kind != UnifyOccurs {
		t.Fatalf("expected occurs failure, got %v", err)
	}
}

func TestIntRangeExhaustiveness(t *testing.T) {
	open := check(t, `
		(source_file
			(function_item (name "f")
				(parameter (identifier "x") (named_type (identifier "i64")))
				(return_type (named_type (identifier "i64")))
				(block
					(match_expression (identifier "x")
						(match_arm (literal_pattern (integer_literal "1")) (integer_literal "10"))
						(match_arm (literal_pattern (integer_literal "2")) (integer_literal "20"))))))`)
	if _, ok := open.firstWithCode(diag.PatNonExhaustive); !ok {
		t.Fatalf("integer match without wildcard must be non-exhaustive: %v", open.bag.Items())
	}

	closed := check(t, `
		(source_file
			(function_item (name "f")
				(parameter (identifier "x") (named_type (identifier "i64")))
				(return_type (named_type (identifier "i64")))
				(block
					(match_expression (identifier "x")
						(match_arm (literal_pattern (integer_literal "1")) (integer_literal "10"))
						(match_arm (wildcard_pattern) (integer_literal "0"))))))`)
	if closed.bag.HasErrors() {
		t.Fatalf("wildcard closes an integer match: %v", closed.bag.Items())
	}
}

func TestUnreachableArm(t *testing.T) {
	c := check(t, `
		(source_file `+enumABC+`
			(function_item (name "f")
				(parameter (identifier "x") (named_type (identifier "E")))
				(return_type (named_type (identifier "i64")))
				(block
					(match_expression (identifier "x")
						(match_arm (wildcard_pattern) (integer_literal "0"))
						(match_arm (enum_pattern (identifier "E") (identifier "A")) (integer_literal "1"))))))`)

	if _, ok := c.firstWithCode(diag.PatUnreachableArm); !ok {
		t.Fatalf("arm after wildcard must be unreachable, got %v", c.bag.Items())
	}
}

func TestFixedPointReRun(t *testing.T) {
	src := `
		(source_file
			(function_item (name "f")
				(parameter (identifier "x") (named_type (identifier "i64")))
				(return_type (named_type (identifier "i64")))
				(block (binary_expression (identifier "x") (operator "+") (integer_literal "1")))))`

	fs := source.NewFileSet()
	in := source.NewInterner()
	tree, err := cst.ParseSexp(fs, "t.rk", src)
	if err != nil {
		t.Fatal(err)
	}
	bag := diag.NewBag(16)
	m := hir.Lower(tree, in, diag.BagReporter{Bag: bag})

	first := Check(m, diag.BagReporter{Bag: bag})
	if bag.HasErrors() {
		t.Fatalf("clean input: %v", bag.Items())
	}
	second := Check(m, diag.BagReporter{Bag: bag})
	if bag.HasErrors() {
		t.Fatalf("re-running on clean input must stay clean: %v", bag.Items())
	}
	for id, ty := range first.ExprTypes {
		if second.ExprTypes[id] != ty {
			t.Errorf("expr %d: %s vs %s — inference must be a fixed point",
				id, first.FormatTy(ty), second.FormatTy(ty))
		}
	}
}

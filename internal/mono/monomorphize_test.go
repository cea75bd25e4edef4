package mono_test

import (
	"testing"

	"rook/internal/cst"
	"rook/internal/diag"
	"rook/internal/hir"
	"rook/internal/mir"
	"rook/internal/mono"
	"rook/internal/sema"
	"rook/internal/source"
)

func run(t *testing.T, sexp string) (*mir.Module, *diag.Bag) {
	t.Helper()
	fs := source.NewFileSet()
	in := source.NewInterner()
	tree, err := cst.ParseSexp(fs, "t.rk", sexp)
	if err != nil {
		t.Fatalf("bad test input: %v", err)
	}
	bag := diag.NewBag(64)
	m := hir.Lower(tree, in, diag.BagReporter{Bag: bag})
	ctx := sema.Check(m, diag.BagReporter{Bag: bag})
	return mono.Run(m, ctx), bag
}

const genericID = `
	(function_item (name "id")
		(generic_params (generic_param (identifier "X")))
		(parameter (identifier "x") (named_type (identifier "X")))
		(return_type (named_type (identifier "X")))
		(block (identifier "x")))`

// Two call sites with different substitutions produce two distinct
// instances, each returning its argument local.
func TestDistinctInstances(t *testing.T) {
	mod, bag := run(t, `
		(source_file `+genericID+`
			(function_item (name "main")
				(block
					(expression_statement (call_expression (identifier "id") (integer_literal "1")))
					(expression_statement (call_expression (identifier "id") (boolean_literal "true"))))))`)
	if bag.HasErrors() {
		t.Fatalf("unexpected diagnostics: %v", bag.Items())
	}
	for _, err := range mir.ValidateModule(mod) {
		t.Errorf("validate: %v", err)
	}

	intInst := mod.FuncByName("id<i64>")
	boolInst := mod.FuncByName("id<bool>")
	if intInst == nil || boolInst == nil {
		var names []string
		for _, f := range mod.Funcs {
			names = append(names, f.Name)
		}
		t.Fatalf("expected id<i64> and id<bool> instances, have %v", names)
	}

	// The cached instance's signature equals the substitution applied to
	// the generic signature.
	b := mod.Types.Builtins()
	if intInst.Locals[0].Type != b.Int || intInst.Result != b.Int {
		t.Errorf("id<i64> signature not substituted: param %v result %v", intInst.Locals[0].Type, intInst.Result)
	}
	if boolInst.Locals[0].Type != b.Bool || boolInst.Result != b.Bool {
		t.Errorf("id<bool> signature not substituted: param %v result %v", boolInst.Locals[0].Type, boolInst.Result)
	}

	// Both bodies return their argument local.
	for _, inst := range []*mir.Func{intInst, boolInst} {
		last := inst.Blocks[len(inst.Blocks)-1]
		if last.Term.Kind != mir.TermReturn || !last.Term.HasValue {
			t.Errorf("%s must return a value", inst.Name)
			continue
		}
		op := last.Term.Value
		if op.Kind == mir.OpConst || op.Place.Local != 0 {
			t.Errorf("%s must return its argument local, got %+v", inst.Name, op)
		}
	}

	// The generic origin itself is not lowered.
	if mod.FuncByName("id") != nil {
		t.Error("generic functions must only exist as instances")
	}
}

// The same substitution twice hits the cache.
func TestInstanceCacheHit(t *testing.T) {
	mod, bag := run(t, `
		(source_file `+genericID+`
			(function_item (name "main")
				(block
					(expression_statement (call_expression (identifier "id") (integer_literal "1")))
					(expression_statement (call_expression (identifier "id") (integer_literal "2"))))))`)
	if bag.HasErrors() {
		t.Fatalf("unexpected diagnostics: %v", bag.Items())
	}

	count := 0
	for _, f := range mod.Funcs {
		if f.Name == "id<i64>" {
			count++
		}
	}
	if count != 1 {
		t.Errorf("expected exactly one id<i64> instance, got %d", count)
	}
}

// A generic function calling itself monomorphizes without spinning: the
// cache slot is reserved before the body is lowered.
func TestRecursiveMonomorphization(t *testing.T) {
	mod, bag := run(t, `
		(source_file
			(function_item (name "rec")
				(generic_params (generic_param (identifier "X")))
				(parameter (identifier "x") (named_type (identifier "X")))
				(return_type (named_type (identifier "X")))
				(block
					(call_expression (identifier "rec") (identifier "x"))))
			(function_item (name "main")
				(block
					(expression_statement (call_expression (identifier "rec") (integer_literal "7"))))))`)
	if bag.HasErrors() {
		t.Fatalf("unexpected diagnostics: %v", bag.Items())
	}

	inst := mod.FuncByName("rec<i64>")
	if inst == nil {
		t.Fatal("recursive instance missing")
	}
	// The recursive call inside the instance targets the same symbol.
	found := false
	for _, b := range inst.Blocks {
		if b.Term.Kind == mir.TermCall && b.Term.Sym == "rec<i64>" {
			found = true
		}
	}
	if !found {
		t.Error("recursive call must resolve to the same instance symbol")
	}
}

package mir_test

import (
	"bytes"
	"strings"
	"testing"

	"rook/internal/cst"
	"rook/internal/diag"
	"rook/internal/hir"
	"rook/internal/mir"
	"rook/internal/mono"
	"rook/internal/sema"
	"rook/internal/source"
)

func lowerMIR(t *testing.T, sexp string) (*mir.Module, *diag.Bag) {
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

func mustFunc(t *testing.T, mod *mir.Module, name string) *mir.Func {
	t.Helper()
	f := mod.FuncByName(name)
	if f == nil {
		var names []string
		for _, fn := range mod.Funcs {
			names = append(names, fn.Name)
		}
		t.Fatalf("function %q not lowered; have %v", name, names)
	}
	return f
}

func validateAll(t *testing.T, mod *mir.Module) {
	t.Helper()
	for _, err := range mir.ValidateModule(mod) {
		t.Errorf("validate: %v", err)
	}
}

func TestSimpleFunctionShape(t *testing.T) {
	mod, bag := lowerMIR(t, `
		(source_file
			(function_item (name "add")
				(parameter (identifier "a") (named_type (identifier "i64")))
				(parameter (identifier "b") (named_type (identifier "i64")))
				(return_type (named_type (identifier "i64")))
				(block
					(binary_expression (identifier "a") (operator "+") (identifier "b")))))`)
	if bag.HasErrors() {
		t.Fatalf("unexpected diagnostics: %v", bag.Items())
	}
	validateAll(t, mod)

	f := mustFunc(t, mod, "add")
	if f.ParamCount != 2 {
		t.Errorf("expected 2 parameter locals, got %d", f.ParamCount)
	}
	if f.Locals[0].Name != "a" || f.Locals[1].Name != "b" {
		t.Errorf("parameter locals must come first in declaration order: %v", f.Locals)
	}
	last := f.Blocks[len(f.Blocks)-1]
	if last.Term.Kind != mir.TermReturn || !last.Term.HasValue {
		t.Errorf("body tail must become return-with-value, got %v", last.Term.Kind)
	}
}

func TestEveryBlockTerminated(t *testing.T) {
	mod, _ := lowerMIR(t, `
		(source_file
			(function_item (name "f")
				(parameter (identifier "c") (named_type (identifier "bool")))
				(return_type (named_type (identifier "i64")))
				(block
					(if_expression (identifier "c")
						(block (integer_literal "1"))
						(block (integer_literal "2"))))))`)
	validateAll(t, mod)

	f := mustFunc(t, mod, "f")
	for i := range f.Blocks {
		if !f.Blocks[i].Terminated() {
			t.Errorf("block %d has no terminator", i)
		}
	}
}

func TestIfLoweringShape(t *testing.T) {
	mod, _ := lowerMIR(t, `
		(source_file
			(function_item (name "f")
				(parameter (identifier "c") (named_type (identifier "bool")))
				(return_type (named_type (identifier "i64")))
				(block
					(if_expression (identifier "c")
						(block (integer_literal "1"))
						(block (integer_literal "2"))))))`)

	f := mustFunc(t, mod, "f")
	// Entry must end in SwitchInt{0 -> else, otherwise -> then}.
	entry := f.Blocks[0]
	if entry.Term.Kind != mir.TermSwitchInt {
		t.Fatalf("if must lower to SwitchInt, got %v", entry.Term.Kind)
	}
	if len(entry.Term.Targets) != 1 || entry.Term.Targets[0].Value != 0 {
		t.Errorf("SwitchInt must branch on 0 to the else block: %+v", entry.Term.Targets)
	}
	if entry.Term.Otherwise == entry.Term.Targets[0].Target {
		t.Error("then and else edges must differ")
	}
}

func TestMatchEnumLowering(t *testing.T) {
	mod, bag := lowerMIR(t, `
		(source_file
			(enum_item (name "E")
				(enum_variant (identifier "A"))
				(enum_variant (identifier "B") (named_type (identifier "i64"))))
			(function_item (name "f")
				(parameter (identifier "x") (named_type (identifier "E")))
				(return_type (named_type (identifier "i64")))
				(block
					(match_expression (identifier "x")
						(match_arm (enum_pattern (identifier "E") (identifier "A")) (integer_literal "0"))
						(match_arm
							(enum_pattern (identifier "E") (identifier "B")
								(identifier_pattern (identifier "n")))
							(identifier "n"))))))`)
	if bag.HasErrors() {
		t.Fatalf("unexpected diagnostics: %v", bag.Items())
	}
	validateAll(t, mod)

	f := mustFunc(t, mod, "f")
	var buf bytes.Buffer
	mir.PrintFunc(&buf, mod, f)
	out := buf.String()

	// Discriminant reads come from Field(0) of the {tag, payload...} layout
	// and payloads from Field(1).
	if !strings.Contains(out, ".0") {
		t.Errorf("expected a tag read via .0 projection:\n%s", out)
	}
	if !strings.Contains(out, ".1") {
		t.Errorf("expected a payload read via .1 projection:\n%s", out)
	}
	if !strings.Contains(out, "switchInt") {
		t.Errorf("expected switchInt on the discriminant:\n%s", out)
	}
	// The match was proven exhaustive: some block must be Unreachable, and
	// the runtime hook must not appear.
	if !strings.Contains(out, "unreachable") {
		t.Errorf("exhaustive match needs an unreachable default:\n%s", out)
	}
	if strings.Contains(out, "rook_rt_missing_pattern") {
		t.Errorf("exhaustive match must not call the missing-pattern hook:\n%s", out)
	}
}

func TestNonExhaustiveMatchPanics(t *testing.T) {
	mod, _ := lowerMIR(t, `
		(source_file
			(function_item (name "f")
				(parameter (identifier "x") (named_type (identifier "i64")))
				(return_type (named_type (identifier "i64")))
				(block
					(match_expression (identifier "x")
						(match_arm (literal_pattern (integer_literal "1")) (integer_literal "10"))))))`)

	f := mustFunc(t, mod, "f")
	var buf bytes.Buffer
	mir.PrintFunc(&buf, mod, f)
	if !strings.Contains(buf.String(), "rook_rt_missing_pattern") {
		t.Errorf("non-exhaustive match must call the missing-pattern hook:\n%s", buf.String())
	}

	found := false
	for _, e := range mod.Externs {
		if e.Symbol == "rook_rt_missing_pattern" {
			found = true
		}
	}
	if !found {
		t.Error("missing-pattern hook must be declared as an extern")
	}
}

func TestAggregateLowering(t *testing.T) {
	mod, bag := lowerMIR(t, `
		(source_file
			(struct_item (name "P")
				(field_declaration (identifier "x") (named_type (identifier "i64")))
				(field_declaration (identifier "y") (named_type (identifier "i64"))))
			(function_item (name "f")
				(return_type (named_type (identifier "i64")))
				(block
					(let_statement (identifier_pattern (identifier "p"))
						(struct_expression (identifier "P")
							(field_initializer (identifier "x") (integer_literal "1"))
							(field_initializer (identifier "y") (integer_literal "2"))))
					(field_expression (identifier "p") (identifier "x")))))`)
	if bag.HasErrors() {
		t.Fatalf("unexpected diagnostics: %v", bag.Items())
	}
	validateAll(t, mod)

	f := mustFunc(t, mod, "f")
	var buf bytes.Buffer
	mir.PrintFunc(&buf, mod, f)
	out := buf.String()
	if !strings.Contains(out, ".0 = const 1") || !strings.Contains(out, ".1 = const 2") {
		t.Errorf("aggregate fields must be assigned through projections:\n%s", out)
	}
}

func TestMethodCallRewrite(t *testing.T) {
	mod, bag := lowerMIR(t, `
		(source_file
			(struct_item (name "S")
				(field_declaration (identifier "v") (named_type (identifier "i64"))))
			(impl_item (named_type (identifier "S"))
				(function_item (name "get") (self_parameter "&self")
					(return_type (named_type (identifier "i64")))
					(block (field_expression (identifier "self") (identifier "v")))))
			(function_item (name "f")
				(parameter (identifier "s") (named_type (identifier "S")))
				(return_type (named_type (identifier "i64")))
				(block
					(method_call_expression (identifier "s") (identifier "get")))))`)
	if bag.HasErrors() {
		t.Fatalf("unexpected diagnostics: %v", bag.Items())
	}
	validateAll(t, mod)

	get := mustFunc(t, mod, "get")
	if get.ParamCount != 1 {
		t.Errorf("&self method must carry the receiver as parameter 0, got %d params", get.ParamCount)
	}

	f := mustFunc(t, mod, "f")
	foundCall := false
	for _, b := range f.Blocks {
		if b.Term.Kind == mir.TermCall && len(b.Term.Args) == 1 {
			foundCall = true
		}
	}
	if !foundCall {
		t.Error("method call must become a direct call with the receiver prepended")
	}
}

func TestWhileLoopShape(t *testing.T) {
	mod, bag := lowerMIR(t, `
		(source_file
			(function_item (name "f")
				(block
					(let_statement (identifier_pattern (mutable_specifier) (identifier "i"))
						(integer_literal "0"))
					(while_expression
						(binary_expression (identifier "i") (operator "<") (integer_literal "10"))
						(block
							(expression_statement
								(assignment_expression (identifier "i")
									(binary_expression (identifier "i") (operator "+") (integer_literal "1")))))))))`)
	if bag.HasErrors() {
		t.Fatalf("unexpected diagnostics: %v", bag.Items())
	}
	validateAll(t, mod)

	// The loop must produce a back edge: some goto targets an earlier block.
	f := mustFunc(t, mod, "f")
	backEdge := false
	for i := range f.Blocks {
		term := f.Blocks[i].Term
		if term.Kind == mir.TermGoto && int(term.Target) <= i {
			backEdge = true
		}
	}
	if !backEdge {
		t.Error("while loop must produce a back edge")
	}
}

func TestStorageMarkers(t *testing.T) {
	mod, _ := lowerMIR(t, `
		(source_file
			(function_item (name "f")
				(return_type (named_type (identifier "i64")))
				(block
					(let_statement (identifier_pattern (identifier "x")) (integer_literal "5"))
					(identifier "x"))))`)

	f := mustFunc(t, mod, "f")
	live, dead := false, false
	for _, b := range f.Blocks {
		for _, in := range b.Instrs {
			if in.Kind == mir.InstrStorageLive {
				live = true
			}
			if in.Kind == mir.InstrStorageDead {
				dead = true
			}
		}
	}
	if !live || !dead {
		t.Errorf("let-bound locals must get storage markers (live=%v dead=%v)", live, dead)
	}
}

func TestExternDeclarations(t *testing.T) {
	mod, _ := lowerMIR(t, `
		(source_file
			(extern_block (abi "private-v0")
				(function_item (name "alloc")
					(parameter (identifier "n") (named_type (identifier "i64"))))))`)

	if len(mod.Externs) != 1 {
		t.Fatalf("expected one extern, got %d", len(mod.Externs))
	}
	ext := mod.Externs[0]
	if ext.Abi != "private-v0" || ext.Symbol != "_RK5alloc" {
		t.Errorf("extern must carry the mangled symbol: %+v", ext)
	}
	if len(ext.Params) != 1 {
		t.Errorf("extern must carry parameter types: %+v", ext)
	}
}

func TestLoweringTwiceIsStable(t *testing.T) {
	src := `
		(source_file
			(function_item (name "f")
				(parameter (identifier "c") (named_type (identifier "bool")))
				(return_type (named_type (identifier "i64")))
				(block
					(if_expression (identifier "c")
						(block (integer_literal "1"))
						(block (integer_literal "2"))))))`

	fs := source.NewFileSet()
	in := source.NewInterner()
	tree, err := cst.ParseSexp(fs, "t.rk", src)
	if err != nil {
		t.Fatal(err)
	}
	bag := diag.NewBag(16)
	m := hir.Lower(tree, in, diag.BagReporter{Bag: bag})
	ctx := sema.Check(m, diag.BagReporter{Bag: bag})

	var first, second bytes.Buffer
	modA := mono.Run(m, ctx)
	mir.Print(&first, modA)
	modB := mono.Run(m, ctx)
	mir.Print(&second, modB)

	if first.String() != second.String() {
		t.Error("lowering the same HIR twice must produce identical MIR")
	}
}

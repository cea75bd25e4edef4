package cst

import (
	"testing"

	"rook/internal/source"
)

func TestBuilderShape(t *testing.T) {
	fs := source.NewFileSet()
	file := fs.AddVirtual("t.rk", []byte("fn f() {}"))

	b := NewBuilder(file)
	name := b.Leaf(KindName, source.Span{Start: 3, End: 4}, "f")
	block := b.Node(KindBlock, source.Span{Start: 7, End: 9})
	fn := b.Node(KindFunctionItem, source.Span{Start: 0, End: 9}, name, block)
	tree := b.Finish(b.Node(KindSourceFile, source.Span{Start: 0, End: 9}, fn))

	if tree.Kind(tree.Root) != KindSourceFile {
		t.Fatalf("bad root kind %v", tree.Kind(tree.Root))
	}
	fnID := tree.FirstOfKind(tree.Root, KindFunctionItem)
	if !fnID.IsValid() {
		t.Fatal("function item not found")
	}
	if got := tree.Text(tree.FirstOfKind(fnID, KindName)); got != "f" {
		t.Errorf("expected name f, got %q", got)
	}
	if tree.FirstOfKind(fnID, KindParameter).IsValid() {
		t.Error("FirstOfKind must miss absent kinds")
	}
}

func TestParseSexp(t *testing.T) {
	fs := source.NewFileSet()
	tree, err := ParseSexp(fs, "t.rk", `
		(source_file
			(function_item (name "main")
				(block (integer_literal "42"))))`)
	if err != nil {
		t.Fatal(err)
	}

	fn := tree.FirstOfKind(tree.Root, KindFunctionItem)
	if tree.Text(tree.FirstOfKind(fn, KindName)) != "main" {
		t.Error("name lost in translation")
	}
	block := tree.FirstOfKind(fn, KindBlock)
	lit := tree.FirstOfKind(block, KindIntLiteral)
	if tree.Text(lit) != "42" {
		t.Errorf("expected literal 42, got %q", tree.Text(lit))
	}
	if tree.Span(lit).Empty() {
		t.Error("nodes must carry spans")
	}
}

func TestParseSexpUnknownKind(t *testing.T) {
	fs := source.NewFileSet()
	tree, err := ParseSexp(fs, "t.rk", `(source_file (flux_capacitor (identifier "x")))`)
	if err != nil {
		t.Fatal(err)
	}
	children := tree.Children(tree.Root)
	if len(children) != 1 || tree.Kind(children[0]) != KindUnknown {
		t.Fatalf("unknown kinds must be preserved as KindUnknown, got %v", tree.Kind(children[0]))
	}
}

func TestParseSexpErrors(t *testing.T) {
	fs := source.NewFileSet()
	for _, bad := range []string{"", "(", "(source_file", `(a "unterminated)`, "(a))"} {
		if _, err := ParseSexp(fs, "t.rk", bad); err == nil {
			t.Errorf("expected error for %q", bad)
		}
	}
}

func TestKindRoundTrip(t *testing.T) {
	for k, name := range kindNames {
		if KindFromString(name) != k {
			t.Errorf("kind %v does not round-trip through %q", k, name)
		}
	}
	if KindFromString("no_such_kind") != KindUnknown {
		t.Error("unknown names must map to KindUnknown")
	}
}

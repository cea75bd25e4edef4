package types

import (
	"testing"

	"rook/internal/symbols"
)

func TestInternStability(t *testing.T) {
	in := NewInterner()
	b := in.Builtins()

	if in.Intern(Type{Kind: KindInt}) != b.Int {
		t.Error("re-interning a primitive must return the builtin ID")
	}

	tup1 := in.Tuple([]TyID{b.Int, b.Bool})
	tup2 := in.Tuple([]TyID{b.Int, b.Bool})
	if tup1 != tup2 {
		t.Error("structurally equal descriptors must share a TyID")
	}
	if in.Tuple([]TyID{b.Bool, b.Int}) == tup1 {
		t.Error("element order must distinguish tuples")
	}
}

func TestNominalDistinct(t *testing.T) {
	in := NewInterner()
	m := in.Named(symbols.DefID(1), nil)
	f := in.Named(symbols.DefID(2), nil)
	if m == f {
		t.Error("distinct DefIDs must produce distinct named types")
	}
	if in.Named(symbols.DefID(1), nil) != m {
		t.Error("same DefID must reuse the TyID")
	}
}

func TestRefMutability(t *testing.T) {
	in := NewInterner()
	b := in.Builtins()
	if in.Ref(b.Int, false) == in.Ref(b.Int, true) {
		t.Error("&T and &mut T must differ")
	}
}

func TestFormat(t *testing.T) {
	in := NewInterner()
	b := in.Builtins()
	names := map[symbols.DefID]string{1: "Vec"}
	defName := func(d symbols.DefID) string { return names[d] }

	tests := []struct {
		ty   TyID
		want string
	}{
		{b.Int, "i64"},
		{b.Unit, "()"},
		{in.Ref(b.Bool, true), "&mut bool"},
		{in.Tuple([]TyID{b.Int, b.Float}), "(i64, f64)"},
		{in.Named(1, []TyID{b.Int}), "Vec<i64>"},
		{in.Fn([]TyID{b.Int}, b.Bool), "fn(i64) -> bool"},
	}
	for _, tt := range tests {
		if got := in.Format(tt.ty, defName); got != tt.want {
			t.Errorf("Format(%d) = %q, want %q", tt.ty, got, tt.want)
		}
	}
}

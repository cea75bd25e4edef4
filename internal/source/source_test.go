package source

import (
	"sync"
	"testing"
)

func TestSpanCover(t *testing.T) {
	a := Span{File: 1, Start: 10, End: 20}
	b := Span{File: 1, Start: 5, End: 15}
	c := a.Cover(b)
	if c.Start != 5 || c.End != 20 {
		t.Errorf("expected 5-20, got %d-%d", c.Start, c.End)
	}

	other := Span{File: 2, Start: 0, End: 100}
	if got := a.Cover(other); got != a {
		t.Errorf("cover across files must be a no-op, got %v", got)
	}
}

func TestSpanBefore(t *testing.T) {
	a := Span{File: 0, Start: 3, End: 5}
	b := Span{File: 0, Start: 3, End: 7}
	if !a.Before(b) {
		t.Error("shorter span at same start must sort first")
	}
	if b.Before(a) {
		t.Error("Before must not be symmetric")
	}
}

func TestFileSetResolve(t *testing.T) {
	fs := NewFileSet()
	id := fs.AddVirtual("a.rk", []byte("let x\nlet y\n"))

	tests := []struct {
		off  uint32
		line uint32
		col  uint32
	}{
		{0, 1, 1},
		{4, 1, 5},
		{5, 1, 6}, // the newline belongs to line 1
		{6, 2, 1}, // first byte after it starts line 2
		{10, 2, 5},
	}
	for _, tt := range tests {
		start, _ := fs.Resolve(Span{File: id, Start: tt.off, End: tt.off})
		if start.Line != tt.line || start.Col != tt.col {
			t.Errorf("offset %d: expected %d:%d, got %d:%d", tt.off, tt.line, tt.col, start.Line, start.Col)
		}
	}
}

func TestFileSetVersioning(t *testing.T) {
	fs := NewFileSet()

	id1 := fs.AddVirtual("main.rk", []byte("fn main() {}"))
	id2 := fs.AddVirtual("main.rk", []byte("fn main() { 1 }"))
	if id1 == id2 {
		t.Fatal("re-adding a path must allocate a fresh FileID")
	}

	latest, ok := fs.GetLatest("main.rk")
	if !ok || latest != id2 {
		t.Errorf("expected latest ID %d, got %d (ok=%v)", id2, latest, ok)
	}

	if string(fs.Get(id1).Content) != "fn main() {}" {
		t.Error("older version must stay readable")
	}
}

func TestGetLine(t *testing.T) {
	fs := NewFileSet()
	id := fs.AddVirtual("a.rk", []byte("one\ntwo\nthree"))
	f := fs.Get(id)

	for i, want := range []string{"one", "two", "three"} {
		if got := f.GetLine(uint32(i + 1)); got != want {
			t.Errorf("line %d: expected %q, got %q", i+1, want, got)
		}
	}
	if got := f.GetLine(4); got != "" {
		t.Errorf("missing line must be empty, got %q", got)
	}
	if got := f.GetLine(0); got != "" {
		t.Errorf("line 0 must be empty, got %q", got)
	}
}

func TestInternerStability(t *testing.T) {
	in := NewInterner()
	a := in.Intern("foo")
	b := in.Intern("bar")
	if a == b {
		t.Fatal("distinct strings must get distinct IDs")
	}
	if in.Intern("foo") != a {
		t.Error("re-interning must return the same ID")
	}
	if s := in.MustLookup(a); s != "foo" {
		t.Errorf("expected foo, got %q", s)
	}
	if in.Intern("") != NoStringID {
		t.Error("empty string must map to NoStringID")
	}
}

func TestInternerConcurrent(t *testing.T) {
	in := NewInterner()
	names := []string{"alpha", "beta", "gamma", "delta"}

	var wg sync.WaitGroup
	ids := make([][]StringID, 8)
	for w := range ids {
		wg.Add(1)
		go func(w int) {
			defer wg.Done()
			got := make([]StringID, len(names))
			for k := 0; k < 100; k++ {
				for n, name := range names {
					got[n] = in.Intern(name)
				}
			}
			ids[w] = got
		}(w)
	}
	wg.Wait()

	for w := 1; w < len(ids); w++ {
		for n := range names {
			if ids[w][n] != ids[0][n] {
				t.Fatalf("worker %d saw a different ID for %q", w, names[n])
			}
		}
	}
	if in.Len() != len(names)+1 {
		t.Errorf("expected %d interned strings, got %d", len(names)+1, in.Len())
	}
}

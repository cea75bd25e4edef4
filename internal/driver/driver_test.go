package driver

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"rook/internal/diag"
	"rook/internal/source"
)

const goodTree = `
	(source_file
		(function_item (name "main")
			(return_type (named_type (identifier "i64")))
			(block (integer_literal "42"))))`

const badTree = `
	(source_file
		(function_item (name "main")
			(block (identifier "nope"))))`

func TestDiagnosePipeline(t *testing.T) {
	fs := source.NewFileSet()
	in := source.NewInterner()

	res, err := DiagnoseContent(fs, in, "main.rkt", goodTree, Options{EmitMIR: true, Timings: true})
	if err != nil {
		t.Fatal(err)
	}
	if res.Bag.HasErrors() {
		t.Fatalf("clean input: %v", res.Bag.Items())
	}
	if res.MIR == nil || len(res.MIR.Funcs) != 1 {
		t.Fatal("expected one lowered function")
	}
	if res.Timing == nil || len(res.Timing.Phases) < 3 {
		t.Errorf("expected phase timings, got %+v", res.Timing)
	}

	bad, err := DiagnoseContent(fs, in, "bad.rkt", badTree, Options{})
	if err != nil {
		t.Fatal(err)
	}
	if !bad.Bag.HasErrors() {
		t.Error("unknown name must produce an error")
	}
}

func TestDiskCacheRoundTrip(t *testing.T) {
	cache, err := OpenDiskCacheAt(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}

	fs := source.NewFileSet()
	in := source.NewInterner()
	opts := Options{Cache: cache}

	first, err := DiagnoseContent(fs, in, "bad.rkt", badTree, opts)
	if err != nil {
		t.Fatal(err)
	}
	if first.FromCache {
		t.Fatal("first run must be a miss")
	}

	second, err := DiagnoseContent(fs, in, "bad.rkt", badTree, opts)
	if err != nil {
		t.Fatal(err)
	}
	if !second.FromCache {
		t.Fatal("second run must replay from cache")
	}
	if first.Bag.Len() != second.Bag.Len() {
		t.Errorf("cache replay changed diagnostics: %d vs %d", first.Bag.Len(), second.Bag.Len())
	}
	for i, d := range second.Bag.Items() {
		orig := first.Bag.Items()[i]
		if d.Code != orig.Code || d.Message != orig.Message || d.Primary.Start != orig.Primary.Start {
			t.Errorf("diagnostic %d diverged: %+v vs %+v", i, d, orig)
		}
	}

	// Different content must miss.
	third, err := DiagnoseContent(fs, in, "bad.rkt", goodTree, opts)
	if err != nil {
		t.Fatal(err)
	}
	if third.FromCache {
		t.Error("changed content must not hit the cache")
	}
}

func TestDiagnoseDirDeterministic(t *testing.T) {
	dir := t.TempDir()
	write := func(name, content string) {
		if err := os.WriteFile(filepath.Join(dir, name), []byte(content), 0o644); err != nil {
			t.Fatal(err)
		}
	}
	write("b.rkt", badTree)
	write("a.rkt", goodTree)
	write("ignored.txt", "not a tree")

	run := func() []string {
		_, results, err := DiagnoseDir(context.Background(), dir, Options{}, 4)
		if err != nil {
			t.Fatal(err)
		}
		var out []string
		for _, r := range results {
			out = append(out, filepath.Base(r.Path))
			for _, d := range r.Bag.Items() {
				out = append(out, d.Code.String())
			}
		}
		return out
	}

	first := run()
	if len(first) < 2 || first[0] != "a.rkt" {
		t.Fatalf("results must come back in path order, got %v", first)
	}
	second := run()
	if len(first) != len(second) {
		t.Fatalf("non-deterministic result count: %v vs %v", first, second)
	}
	for i := range first {
		if first[i] != second[i] {
			t.Errorf("output must be deterministic: %v vs %v", first, second)
		}
	}

	sawError := false
	for _, s := range first {
		if s == diag.ResUnknownName.String() {
			sawError = true
		}
	}
	if !sawError {
		t.Errorf("b.rkt's unknown name must surface: %v", first)
	}
}

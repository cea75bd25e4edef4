package diagfmt

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"

	"rook/internal/diag"
	"rook/internal/source"
)

func TestJSONShape(t *testing.T) {
	fs := source.NewFileSet()
	fs.SetBaseDir(".")
	id := fs.AddVirtual("m.rk", []byte("fn main() { x }"))

	bag := diag.NewBag(10)
	bag.Add(diag.NewError(diag.ResUnknownName, source.Span{File: id, Start: 12, End: 13}, "unknown name `x`").
		WithNote(source.Span{File: id, Start: 0, End: 2}, "in this function"))
	bag.Sort()

	var buf bytes.Buffer
	if err := WriteJSON(&buf, bag, fs); err != nil {
		t.Fatalf("WriteJSON: %v", err)
	}

	var out Output
	if err := json.Unmarshal(buf.Bytes(), &out); err != nil {
		t.Fatalf("round-trip: %v", err)
	}
	if out.Count != 1 || len(out.Diagnostics) != 1 {
		t.Fatalf("expected one diagnostic, got %+v", out)
	}

	d := out.Diagnostics[0]
	if d.Severity != "error" || d.Code != "UnknownName" {
		t.Errorf("unexpected header: %+v", d)
	}
	if len(d.Spans) != 2 {
		t.Fatalf("expected primary+note spans, got %d", len(d.Spans))
	}
	if d.Spans[0].Start != 12 || d.Spans[0].End != 13 || d.Spans[0].Label != "" {
		t.Errorf("bad primary span: %+v", d.Spans[0])
	}
	if d.Spans[1].Label != "in this function" {
		t.Errorf("bad note span: %+v", d.Spans[1])
	}
}

func TestJSONDeterministic(t *testing.T) {
	fs := source.NewFileSet()
	id := fs.AddVirtual("m.rk", []byte("let a; let b;"))

	mk := func() *diag.Bag {
		bag := diag.NewBag(10)
		bag.Add(diag.NewError(diag.TypeMismatch, source.Span{File: id, Start: 7, End: 12}, "second"))
		bag.Add(diag.NewError(diag.ResUnknownName, source.Span{File: id, Start: 0, End: 5}, "first"))
		bag.Sort()
		return bag
	}

	var a, b bytes.Buffer
	if err := WriteJSON(&a, mk(), fs); err != nil {
		t.Fatal(err)
	}
	if err := WriteJSON(&b, mk(), fs); err != nil {
		t.Fatal(err)
	}
	if a.String() != b.String() {
		t.Error("JSON output must be deterministic")
	}
	if strings.Index(a.String(), "first") > strings.Index(a.String(), "second") {
		t.Error("diagnostics must be span-ordered")
	}
}

func TestPrettyNoColor(t *testing.T) {
	fs := source.NewFileSet()
	id := fs.AddVirtual("m.rk", []byte("let x = y;\n"))

	bag := diag.NewBag(4)
	bag.Add(diag.NewError(diag.ResUnknownName, source.Span{File: id, Start: 8, End: 9}, "unknown name `y`"))
	bag.Sort()

	var buf bytes.Buffer
	Pretty(&buf, bag, fs, PrettyOpts{Color: false, Context: true})
	out := buf.String()

	if !strings.Contains(out, "m.rk:1:9") {
		t.Errorf("missing position, got %q", out)
	}
	if !strings.Contains(out, "error[UnknownName]") {
		t.Errorf("missing code, got %q", out)
	}
	if !strings.Contains(out, "^") {
		t.Errorf("missing caret, got %q", out)
	}
}

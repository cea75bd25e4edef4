package symbols

import (
	"strings"
	"testing"

	"rook/internal/diag"
	"rook/internal/source"
)

func newTestResolver() (*Resolver, *diag.Bag, *source.Interner) {
	in := source.NewInterner()
	bag := diag.NewBag(16)
	r := NewResolver(in, diag.BagReporter{Bag: bag})
	return r, bag, in
}

func TestShadowingAcrossScopes(t *testing.T) {
	r, bag, in := newTestResolver()
	x := in.Intern("x")

	r.Enter(ScopeFunction, source.Span{})
	r.Declare(x, DefID(10), source.Span{Start: 1, End: 2}, false)

	r.Enter(ScopeBlock, source.Span{})
	r.Declare(x, DefID(20), source.Span{Start: 5, End: 6}, false)

	if got := r.Resolve(x, source.Span{}); got != DefID(20) {
		t.Errorf("inner scope must win, got %d", got)
	}
	r.Leave()
	if got := r.Resolve(x, source.Span{}); got != DefID(10) {
		t.Errorf("outer binding must be restored, got %d", got)
	}
	if bag.HasErrors() {
		t.Errorf("shadowing across scopes is not an error: %v", bag.Items())
	}
}

func TestDuplicateInSameScope(t *testing.T) {
	r, bag, in := newTestResolver()
	f := in.Intern("f")

	r.Enter(ScopeModule, source.Span{})
	r.Declare(f, DefID(1), source.Span{Start: 0, End: 1}, true)
	r.Declare(f, DefID(2), source.Span{Start: 10, End: 11}, true)

	items := bag.Items()
	if len(items) != 1 || items[0].Code != diag.ResDuplicateDefinition {
		t.Fatalf("expected one DuplicateDefinition, got %v", items)
	}
	if len(items[0].Notes) != 1 || items[0].Notes[0].Span.Start != 0 {
		t.Error("duplicate must point back at the first definition")
	}
	// первый победил
	if got := r.Resolve(f, source.Span{}); got != DefID(1) {
		t.Errorf("first definition must stay resolvable, got %d", got)
	}
}

func TestUnknownNameSuggestion(t *testing.T) {
	r, bag, in := newTestResolver()
	r.Enter(ScopeModule, source.Span{})
	r.Declare(in.Intern("count"), DefID(1), source.Span{}, false)
	r.Declare(in.Intern("total"), DefID(2), source.Span{}, false)

	if got := r.Resolve(in.Intern("countt"), source.Span{Start: 3, End: 9}); got != NoDefID {
		t.Errorf("unknown name must resolve to NoDefID, got %d", got)
	}
	items := bag.Items()
	if len(items) != 1 || items[0].Code != diag.ResUnknownName {
		t.Fatalf("expected UnknownName, got %v", items)
	}
	if !strings.Contains(items[0].Message, "did you mean `count`?") {
		t.Errorf("expected suggestion, got %q", items[0].Message)
	}

	// далёкие имена не предлагаем
	bag2 := diag.NewBag(4)
	r.Reporter = diag.BagReporter{Bag: bag2}
	r.Resolve(in.Intern("zzzzzz"), source.Span{})
	if strings.Contains(bag2.Items()[0].Message, "did you mean") {
		t.Errorf("no suggestion expected for distant names, got %q", bag2.Items()[0].Message)
	}
}

func TestVisibility(t *testing.T) {
	r, bag, in := newTestResolver()
	mod := r.Enter(ScopeModule, source.Span{})
	r.Declare(in.Intern("seen"), DefID(1), source.Span{}, true)
	r.Declare(in.Intern("hidden"), DefID(2), source.Span{}, false)
	r.Leave()

	if got := r.ResolveVisible(mod, in.Intern("seen"), source.Span{}); got != DefID(1) {
		t.Errorf("public member must resolve, got %d", got)
	}
	if got := r.ResolveVisible(mod, in.Intern("hidden"), source.Span{}); got != NoDefID {
		t.Errorf("private member must not resolve, got %d", got)
	}
	found := false
	for _, d := range bag.Items() {
		if d.Code == diag.ResPrivateAccess {
			found = true
		}
	}
	if !found {
		t.Error("expected PrivateAccess diagnostic")
	}
}

func TestResolveIdempotent(t *testing.T) {
	r, _, in := newTestResolver()
	x := in.Intern("x")
	r.Enter(ScopeFunction, source.Span{})
	r.Declare(x, DefID(7), source.Span{}, false)

	first := r.Resolve(x, source.Span{})
	second := r.Resolve(x, source.Span{})
	if first != second {
		t.Errorf("resolution must be stable: %d vs %d", first, second)
	}
}

func TestEditDistance(t *testing.T) {
	tests := []struct {
		a, b string
		d    int
	}{
		{"abc", "abc", 0},
		{"abc", "abd", 1},
		{"abc", "ab", 1},
		{"abc", "xbc", 1},
		{"abc", "xyz", 3},
		{"a", "abcdef", 3}, // clamped past max
	}
	for _, tt := range tests {
		if got := editDistance(tt.a, tt.b, 2); got != tt.d {
			t.Errorf("editDistance(%q, %q) = %d, want %d", tt.a, tt.b, got, tt.d)
		}
	}
}

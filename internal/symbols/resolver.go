package symbols

import (
	"fmt"

	"rook/internal/diag"
	"rook/internal/source"
)

// Resolver maintains the scope stack during lowering and answers name
// lookups. It is the single source of truth for identifier resolution: every
// variable, type name, and pattern path goes through here before inference.
type Resolver struct {
	Scopes   *Scopes
	Interner *source.Interner
	Reporter diag.Reporter

	current ScopeID
	prelude ScopeID
}

// NewResolver creates a resolver with a fresh prelude scope at the root.
func NewResolver(interner *source.Interner, reporter diag.Reporter) *Resolver {
	scopes := NewScopes(0)
	prelude := scopes.New(ScopePrelude, NoScopeID, source.Span{})
	return &Resolver{
		Scopes:   scopes,
		Interner: interner,
		Reporter: reporter,
		current:  prelude,
		prelude:  prelude,
	}
}

// Current returns the scope the resolver is standing in.
func (r *Resolver) Current() ScopeID { return r.current }

// Enter pushes a child scope and returns it.
func (r *Resolver) Enter(kind ScopeKind, span source.Span) ScopeID {
	r.current = r.Scopes.New(kind, r.current, span)
	return r.current
}

// Leave pops to the parent scope. Popping past the prelude panics: scope
// stack discipline is a lowering invariant, not an input condition.
func (r *Resolver) Leave() {
	scope := r.Scopes.Get(r.current)
	if scope == nil || !scope.Parent.IsValid() {
		panic("symbols: scope stack underflow")
	}
	r.current = scope.Parent
}

// EnterAt switches to an existing scope (used when lowering bodies after
// item collection). Returns the previous scope for restoring.
func (r *Resolver) EnterAt(id ScopeID) ScopeID {
	prev := r.current
	r.current = id
	return prev
}

// Declare introduces a name into the current scope, reporting duplicates.
func (r *Resolver) Declare(name source.StringID, def DefID, span source.Span, public bool) {
	r.DeclareIn(r.current, name, def, span, public, false)
}

// DeclareIn introduces a name into a specific scope.
func (r *Resolver) DeclareIn(scope ScopeID, name source.StringID, def DefID, span source.Span, public, imported bool) {
	prev, ok := r.Scopes.Declare(scope, Entry{
		Name:     name,
		Def:      def,
		Span:     span,
		Public:   public,
		Imported: imported,
	})
	if !ok && r.Reporter != nil {
		text := r.Interner.MustLookup(name)
		r.Reporter.Report(
			diag.NewError(diag.ResDuplicateDefinition, span,
				fmt.Sprintf("`%s` is defined multiple times", text)).
				WithNote(prev.Span, "previous definition is here"))
	}
}

// DeclareShadowing introduces a local binding that may shadow an earlier
// binding of the same name in the current scope (let re-binding).
func (r *Resolver) DeclareShadowing(name source.StringID, def DefID, span source.Span) {
	r.Scopes.DeclareShadow(r.current, Entry{Name: name, Def: def, Span: span})
}

// Resolve looks a name up through the scope chain. On failure it reports
// UnknownName with a nearest-name suggestion and returns NoDefID.
func (r *Resolver) Resolve(name source.StringID, span source.Span) DefID {
	if e, ok := r.Scopes.Lookup(r.current, name); ok {
		return e.Def
	}
	if r.Reporter != nil {
		text := r.Interner.MustLookup(name)
		d := diag.NewError(diag.ResUnknownName, span, fmt.Sprintf("cannot find `%s` in this scope", text))
		if hint, ok := r.suggest(text); ok {
			d.Message += fmt.Sprintf("; did you mean `%s`?", hint)
		}
		r.Reporter.Report(d)
	}
	return NoDefID
}

// ResolveQuiet is Resolve without diagnostics, for probing.
func (r *Resolver) ResolveQuiet(name source.StringID) (DefID, bool) {
	if e, ok := r.Scopes.Lookup(r.current, name); ok {
		return e.Def, true
	}
	return NoDefID, false
}

// ResolveVisible resolves a member of another scope (module access),
// enforcing visibility.
func (r *Resolver) ResolveVisible(scope ScopeID, name source.StringID, span source.Span) DefID {
	e, ok := r.Scopes.LookupLocal(scope, name)
	if !ok {
		if r.Reporter != nil {
			text := r.Interner.MustLookup(name)
			r.Reporter.Report(diag.NewError(diag.ResUnknownName, span,
				fmt.Sprintf("cannot find `%s` in this module", text)))
		}
		return NoDefID
	}
	if !e.Public {
		if r.Reporter != nil {
			text := r.Interner.MustLookup(name)
			r.Reporter.Report(diag.NewError(diag.ResPrivateAccess, span,
				fmt.Sprintf("`%s` is private", text)).
				WithNote(e.Span, "declared here without `pub`"))
		}
		return NoDefID
	}
	return e.Def
}

// suggest returns the closest visible name within edit distance 2.
func (r *Resolver) suggest(text string) (string, bool) {
	best := ""
	bestDist := 3
	for _, nameID := range r.Scopes.VisibleNames(r.current) {
		candidate := r.Interner.MustLookup(nameID)
		if candidate == "" || candidate == text {
			continue
		}
		if d := editDistance(text, candidate, 2); d < bestDist {
			best, bestDist = candidate, d
		}
	}
	return best, best != ""
}

// editDistance computes the Levenshtein distance, giving up past max.
func editDistance(a, b string, max int) int {
	if diff := len(a) - len(b); diff > max || -diff > max {
		return max + 1
	}
	prev := make([]int, len(b)+1)
	cur := make([]int, len(b)+1)
	for j := range prev {
		prev[j] = j
	}
	for i := 1; i <= len(a); i++ {
		cur[0] = i
		rowMin := cur[0]
		for j := 1; j <= len(b); j++ {
			cost := 1
			if a[i-1] == b[j-1] {
				cost = 0
			}
			cur[j] = min(prev[j]+1, cur[j-1]+1, prev[j-1]+cost)
			rowMin = min(rowMin, cur[j])
		}
		if rowMin > max {
			return max + 1
		}
		prev, cur = cur, prev
	}
	return prev[len(b)]
}

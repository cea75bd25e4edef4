package symbols

import (
	"fmt"

	"fortio.org/safecast"

	"rook/internal/source"
)

// ScopeKind enumerates supported scope categories.
type ScopeKind uint8

const (
	ScopeInvalid  ScopeKind = iota
	ScopePrelude            // built-in names, root of every chain
	ScopeModule             // module-level declarations
	ScopeFunction           // function body scope
	ScopeBlock              // generic block scope
	ScopeArm                // match-arm scope holding the arm's bindings
)

func (k ScopeKind) String() string {
	switch k {
	case ScopePrelude:
		return "prelude"
	case ScopeModule:
		return "module"
	case ScopeFunction:
		return "function"
	case ScopeBlock:
		return "block"
	case ScopeArm:
		return "arm"
	default:
		return "invalid"
	}
}

// Entry is one declared name inside a scope.
type Entry struct {
	Name     source.StringID
	Def      DefID
	Span     source.Span
	Public   bool
	Imported bool // brought in by a use item
}

// Scope models a lexical scope with a parent-child hierarchy.
// Shadowing is permitted across nested scopes; within one scope, Declare
// rejects a second binding of a name and DeclareShadow replaces it.
type Scope struct {
	Kind     ScopeKind
	Parent   ScopeID
	Span     source.Span
	Names    map[source.StringID]int // index into Entries
	Entries  []Entry
	Children []ScopeID
}

// Scopes stores all allocated scopes in a compact slice-based arena.
type Scopes struct {
	data []Scope
}

// NewScopes creates an arena with an optional capacity hint.
func NewScopes(capacity uint32) *Scopes {
	if capacity == 0 {
		capacity = 32
	}
	return &Scopes{
		data: make([]Scope, 1, capacity+1), // index 0 reserved for NoScopeID
	}
}

// New allocates a new scope and returns its ID.
func (s *Scopes) New(kind ScopeKind, parent ScopeID, span source.Span) ScopeID {
	value, err := safecast.Conv[uint32](len(s.data))
	if err != nil {
		panic(fmt.Errorf("scopes arena overflow: %w", err))
	}
	id := ScopeID(value)
	s.data = append(s.data, Scope{
		Kind:   kind,
		Parent: parent,
		Span:   span,
		Names:  make(map[source.StringID]int),
	})
	if parent.IsValid() {
		if parentScope := s.Get(parent); parentScope != nil {
			parentScope.Children = append(parentScope.Children, id)
		}
	}
	return id
}

// Get returns the scope pointer or nil if ID is invalid.
func (s *Scopes) Get(id ScopeID) *Scope {
	if !id.IsValid() || int(id) >= len(s.data) {
		return nil
	}
	return &s.data[id]
}

// Len reports the total number of scopes excluding the sentinel.
func (s *Scopes) Len() int { return len(s.data) - 1 }

// Declare inserts a name into the scope. If the name already exists in this
// scope, the existing entry is returned with ok=false; the caller reports the
// duplicate.
func (s *Scopes) Declare(id ScopeID, e Entry) (Entry, bool) {
	scope := s.Get(id)
	if scope == nil {
		return Entry{}, false
	}
	if idx, exists := scope.Names[e.Name]; exists {
		return scope.Entries[idx], false
	}
	scope.Names[e.Name] = len(scope.Entries)
	scope.Entries = append(scope.Entries, e)
	return e, true
}

// DeclareShadow inserts a name, replacing any earlier binding of it in this
// scope. Used for let-bindings, which may shadow within a block; items and
// parameters go through Declare and stay strict.
func (s *Scopes) DeclareShadow(id ScopeID, e Entry) {
	scope := s.Get(id)
	if scope == nil {
		return
	}
	if idx, exists := scope.Names[e.Name]; exists {
		scope.Entries[idx] = e
		return
	}
	scope.Names[e.Name] = len(scope.Entries)
	scope.Entries = append(scope.Entries, e)
}

// LookupLocal searches only the given scope.
func (s *Scopes) LookupLocal(id ScopeID, name source.StringID) (Entry, bool) {
	scope := s.Get(id)
	if scope == nil {
		return Entry{}, false
	}
	if idx, ok := scope.Names[name]; ok {
		return scope.Entries[idx], true
	}
	return Entry{}, false
}

// Lookup searches the scope chain inner-out.
func (s *Scopes) Lookup(id ScopeID, name source.StringID) (Entry, bool) {
	for id.IsValid() {
		if e, ok := s.LookupLocal(id, name); ok {
			return e, true
		}
		scope := s.Get(id)
		if scope == nil {
			break
		}
		id = scope.Parent
	}
	return Entry{}, false
}

// VisibleNames collects every name reachable from the scope chain, innermost
// first. Used for suggestion ranking.
func (s *Scopes) VisibleNames(id ScopeID) []source.StringID {
	var out []source.StringID
	seen := make(map[source.StringID]bool)
	for id.IsValid() {
		scope := s.Get(id)
		if scope == nil {
			break
		}
		for _, e := range scope.Entries {
			if !seen[e.Name] {
				seen[e.Name] = true
				out = append(out, e.Name)
			}
		}
		id = scope.Parent
	}
	return out
}

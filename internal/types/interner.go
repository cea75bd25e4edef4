package types

import (
	"fmt"
	"strings"

	"fortio.org/safecast"

	"rook/internal/symbols"
)

// Builtins stores TyIDs for the primitive types.
type Builtins struct {
	Error  TyID
	Int    TyID
	Float  TyID
	Bool   TyID
	String TyID
	Unit   TyID
	Never  TyID
}

// Interner provides stable TyIDs by hash-consing structural descriptors.
// Interning the same descriptor twice yields the same ID, so TyID equality
// is cheap type equality for fully-substituted types.
type Interner struct {
	types    []Type
	index    map[string]TyID
	builtins Builtins
}

// NewInterner constructs an interner seeded with the built-in primitives.
func NewInterner() *Interner {
	in := &Interner{
		types: make([]Type, 1, 64), // index 0 reserved for NoTyID
		index: make(map[string]TyID, 64),
	}
	in.builtins.Error = in.Intern(Type{Kind: KindError})
	in.builtins.Int = in.Intern(Type{Kind: KindInt})
	in.builtins.Float = in.Intern(Type{Kind: KindFloat})
	in.builtins.Bool = in.Intern(Type{Kind: KindBool})
	in.builtins.String = in.Intern(Type{Kind: KindString})
	in.builtins.Unit = in.Intern(Type{Kind: KindUnit})
	in.builtins.Never = in.Intern(Type{Kind: KindNever})
	return in
}

// Builtins returns the primitive TyIDs.
func (in *Interner) Builtins() Builtins {
	return in.builtins
}

// Intern ensures the descriptor has a stable TyID.
func (in *Interner) Intern(t Type) TyID {
	key := typeKey(t)
	if id, ok := in.index[key]; ok {
		return id
	}
	value, err := safecast.Conv[uint32](len(in.types))
	if err != nil {
		panic(fmt.Errorf("type interner overflow: %w", err))
	}
	id := TyID(value)
	in.types = append(in.types, t)
	in.index[key] = id
	return id
}

// Lookup returns the descriptor for a TyID.
func (in *Interner) Lookup(id TyID) (Type, bool) {
	if id == NoTyID || int(id) >= len(in.types) {
		return Type{}, false
	}
	return in.types[id], true
}

// MustLookup panics when the id is invalid.
func (in *Interner) MustLookup(id TyID) Type {
	t, ok := in.Lookup(id)
	if !ok {
		panic("types: invalid TyID")
	}
	return t
}

// Len reports the number of interned types excluding the sentinel.
func (in *Interner) Len() int { return len(in.types) - 1 }

// Constructor shortcuts -------------------------------------------------------

func (in *Interner) Named(def symbols.DefID, args []TyID) TyID {
	return in.Intern(Type{Kind: KindNamed, Def: def, Args: args})
}

func (in *Interner) Fn(params []TyID, ret TyID) TyID {
	return in.Intern(Type{Kind: KindFunction, Elems: params, Ret: ret})
}

func (in *Interner) Tuple(elems []TyID) TyID {
	return in.Intern(Type{Kind: KindTuple, Elems: elems})
}

func (in *Interner) Ref(inner TyID, mutable bool) TyID {
	return in.Intern(Type{Kind: KindRef, Inner: inner, Mutable: mutable})
}

func (in *Interner) Var(v TyVarID) TyID {
	return in.Intern(Type{Kind: KindVar, Var: v})
}

func (in *Interner) Generic(idx int) TyID {
	return in.Intern(Type{Kind: KindGenericParam, ParamIdx: idx})
}

func (in *Interner) Array(elem TyID) TyID {
	return in.Intern(Type{Kind: KindArray, Inner: elem})
}

// typeKey renders a canonical key for hash-consing.
func typeKey(t Type) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "%d:%d:%d:%d:%d:%d:%t", t.Kind, t.Def, t.Ret, t.Inner, t.Var, t.ParamIdx, t.Mutable)
	for _, a := range t.Args {
		fmt.Fprintf(&sb, ":a%d", a)
	}
	for _, e := range t.Elems {
		fmt.Fprintf(&sb, ":e%d", e)
	}
	return sb.String()
}

// Format renders a type for diagnostics. defName resolves nominal
// definitions to their source names.
func (in *Interner) Format(id TyID, defName func(symbols.DefID) string) string {
	t, ok := in.Lookup(id)
	if !ok {
		return "<invalid>"
	}
	switch t.Kind {
	case KindError:
		return "{error}"
	case KindInt:
		return "i64"
	case KindFloat:
		return "f64"
	case KindBool:
		return "bool"
	case KindString:
		return "str"
	case KindUnit:
		return "()"
	case KindNever:
		return "!"
	case KindVar:
		return fmt.Sprintf("?%d", t.Var)
	case KindGenericParam:
		return fmt.Sprintf("%%%d", t.ParamIdx)
	case KindNamed:
		name := "?"
		if defName != nil {
			name = defName(t.Def)
		}
		if len(t.Args) == 0 {
			return name
		}
		args := make([]string, len(t.Args))
		for i, a := range t.Args {
			args[i] = in.Format(a, defName)
		}
		return fmt.Sprintf("%s<%s>", name, strings.Join(args, ", "))
	case KindTuple:
		elems := make([]string, len(t.Elems))
		for i, e := range t.Elems {
			elems[i] = in.Format(e, defName)
		}
		return "(" + strings.Join(elems, ", ") + ")"
	case KindRef:
		if t.Mutable {
			return "&mut " + in.Format(t.Inner, defName)
		}
		return "&" + in.Format(t.Inner, defName)
	case KindArray:
		return "[" + in.Format(t.Inner, defName) + "]"
	case KindFunction:
		params := make([]string, len(t.Elems))
		for i, p := range t.Elems {
			params[i] = in.Format(p, defName)
		}
		return fmt.Sprintf("fn(%s) -> %s", strings.Join(params, ", "), in.Format(t.Ret, defName))
	default:
		return t.Kind.String()
	}
}

package mir

import (
	"fmt"
	"io"
	"strings"
)

// Print renders a module in a readable fixed format, used by `rook mir` and
// the tests.
func Print(w io.Writer, m *Module) {
	for _, ext := range m.Externs {
		fmt.Fprintf(w, "extern %q fn %s; // symbol %s\n", ext.Abi, ext.Name, ext.Symbol)
	}
	for _, f := range m.Funcs {
		PrintFunc(w, m, f)
	}
}

// PrintFunc renders one function.
func PrintFunc(w io.Writer, m *Module, f *Func) {
	fmt.Fprintf(w, "fn %s(", f.Name)
	for i := 0; i < f.ParamCount; i++ {
		if i > 0 {
			fmt.Fprint(w, ", ")
		}
		fmt.Fprintf(w, "_%d: %s", i, m.Types.Format(f.Locals[i].Type, nil))
	}
	fmt.Fprintf(w, ") -> %s {\n", m.Types.Format(f.Result, nil))

	for i, local := range f.Locals {
		fmt.Fprintf(w, "    let _%d: %s; // %s\n", i, m.Types.Format(local.Type, nil), local.Name)
	}

	for bi := range f.Blocks {
		b := &f.Blocks[bi]
		fmt.Fprintf(w, "  bb%d:\n", bi)
		for _, instr := range b.Instrs {
			fmt.Fprintf(w, "    %s\n", formatInstr(instr))
		}
		fmt.Fprintf(w, "    %s\n", formatTerm(b.Term))
	}
	fmt.Fprintln(w, "}")
}

func formatPlace(p Place) string {
	out := fmt.Sprintf("_%d", p.Local)
	for _, proj := range p.Proj {
		switch proj.Kind {
		case ProjDeref:
			out = "(*" + out + ")"
		case ProjField:
			out = fmt.Sprintf("%s.%d", out, proj.FieldIdx)
		case ProjIndex:
			out = fmt.Sprintf("%s[_%d]", out, proj.Index)
		}
	}
	return out
}

func formatOperand(op Operand) string {
	switch op.Kind {
	case OpCopy:
		return "copy " + formatPlace(op.Place)
	case OpMove:
		return "move " + formatPlace(op.Place)
	default:
		c := op.Const
		switch {
		case c.Unit:
			return "const ()"
		case c.Str != "":
			return fmt.Sprintf("const %q", c.Str)
		case c.Bool:
			return "const true"
		case c.Fl != 0:
			return fmt.Sprintf("const %g", c.Fl)
		default:
			return fmt.Sprintf("const %d", c.Int)
		}
	}
}

var binOpNames = map[BinOp]string{
	BinAdd: "Add", BinSub: "Sub", BinMul: "Mul", BinDiv: "Div", BinRem: "Rem",
	BinEq: "Eq", BinNe: "Ne", BinLt: "Lt", BinLe: "Le", BinGt: "Gt", BinGe: "Ge",
}

func formatInstr(i Instr) string {
	switch i.Kind {
	case InstrAssign:
		return fmt.Sprintf("%s = %s;", formatPlace(i.Dest), formatRValue(i.Value))
	case InstrStorageLive:
		return fmt.Sprintf("StorageLive(_%d);", i.Local)
	case InstrStorageDead:
		return fmt.Sprintf("StorageDead(_%d);", i.Local)
	default:
		return "nop;"
	}
}

func formatRValue(v RValue) string {
	switch v.Kind {
	case RvUse:
		return formatOperand(v.Use)
	case RvBinaryOp:
		return fmt.Sprintf("%s(%s, %s)", binOpNames[v.Bin], formatOperand(v.LHS), formatOperand(v.RHS))
	case RvUnaryOp:
		name := "Neg"
		if v.Un == UnNot {
			name = "Not"
		}
		return fmt.Sprintf("%s(%s)", name, formatOperand(v.Operand))
	case RvRef:
		if v.RefMut {
			return "&mut " + formatPlace(v.RefPlace)
		}
		return "&" + formatPlace(v.RefPlace)
	case RvAggregate:
		ops := make([]string, len(v.Operands))
		for i, op := range v.Operands {
			ops[i] = formatOperand(op)
		}
		return fmt.Sprintf("aggregate{%s}", strings.Join(ops, ", "))
	default:
		return "?"
	}
}

func formatTerm(t Terminator) string {
	switch t.Kind {
	case TermReturn:
		if t.HasValue {
			return fmt.Sprintf("return %s;", formatOperand(t.Value))
		}
		return "return;"
	case TermGoto:
		return fmt.Sprintf("goto -> bb%d;", t.Target)
	case TermSwitchInt:
		parts := make([]string, 0, len(t.Targets)+1)
		for _, target := range t.Targets {
			parts = append(parts, fmt.Sprintf("%d: bb%d", target.Value, target.Target))
		}
		parts = append(parts, fmt.Sprintf("otherwise: bb%d", t.Otherwise))
		return fmt.Sprintf("switchInt(%s) -> [%s];", formatOperand(t.Discr), strings.Join(parts, ", "))
	case TermCall:
		args := make([]string, len(t.Args))
		for i, a := range t.Args {
			args[i] = formatOperand(a)
		}
		name := t.Sym
		if name == "" {
			name = fmt.Sprintf("def#%d", t.Callee)
		}
		return fmt.Sprintf("%s = call %s(%s) -> bb%d;", formatPlace(t.Dest), name, strings.Join(args, ", "), t.Target)
	case TermUnreachable:
		return "unreachable;"
	default:
		return "<unterminated>;"
	}
}

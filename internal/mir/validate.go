package mir

import (
	"fmt"
)

// Validate checks structural CFG invariants: dense blocks, exactly one
// terminator per block, in-range jump targets and locals. Returns every
// violation found.
func Validate(f *Func) []error {
	var errs []error
	report := func(format string, args ...any) {
		errs = append(errs, fmt.Errorf("%s: %s", f.Name, fmt.Sprintf(format, args...)))
	}

	if len(f.Blocks) == 0 {
		report("no blocks")
		return errs
	}
	if f.ParamCount > len(f.Locals) {
		report("parameter count %d exceeds locals %d", f.ParamCount, len(f.Locals))
	}

	validLocal := func(l LocalID) bool {
		return l >= 0 && int(l) < len(f.Locals)
	}
	validBlock := func(b BlockID) bool {
		return b >= 0 && int(b) < len(f.Blocks)
	}
	checkPlace := func(b BlockID, p Place) {
		if !validLocal(p.Local) {
			report("block %d: place references local %d out of range", b, p.Local)
		}
		for _, proj := range p.Proj {
			if proj.Kind == ProjIndex && !validLocal(proj.Index) {
				report("block %d: index projection references local %d out of range", b, proj.Index)
			}
			if proj.Kind == ProjField && proj.FieldIdx < 0 {
				report("block %d: negative field index", b)
			}
		}
	}
	checkOperand := func(b BlockID, op Operand) {
		if op.Kind != OpConst {
			checkPlace(b, op.Place)
		}
	}

	for i := range f.Blocks {
		block := &f.Blocks[i]
		id := BlockID(i)
		if block.ID != id {
			report("block %d carries ID %d; block ids must be dense and stable", i, block.ID)
		}

		for _, instr := range block.Instrs {
			switch instr.Kind {
			case InstrAssign:
				checkPlace(id, instr.Dest)
				v := instr.Value
				switch v.Kind {
				case RvUse:
					checkOperand(id, v.Use)
				case RvBinaryOp:
					checkOperand(id, v.LHS)
					checkOperand(id, v.RHS)
				case RvUnaryOp:
					checkOperand(id, v.Operand)
				case RvRef:
					checkPlace(id, v.RefPlace)
				case RvCall, RvAggregate:
					for _, op := range v.Operands {
						checkOperand(id, op)
					}
					for _, op := range v.Args {
						checkOperand(id, op)
					}
				}
			case InstrStorageLive, InstrStorageDead:
				if !validLocal(instr.Local) {
					report("block %d: storage marker for local %d out of range", id, instr.Local)
				}
			}
		}

		switch block.Term.Kind {
		case TermNone:
			report("block %d has no terminator", id)
		case TermReturn:
			if block.Term.HasValue {
				checkOperand(id, block.Term.Value)
			}
		case TermGoto:
			if !validBlock(block.Term.Target) {
				report("block %d: goto target %d out of range", id, block.Term.Target)
			}
		case TermSwitchInt:
			checkOperand(id, block.Term.Discr)
			if !validBlock(block.Term.Otherwise) {
				report("block %d: switch otherwise %d out of range", id, block.Term.Otherwise)
			}
			seen := make(map[uint64]bool)
			for _, t := range block.Term.Targets {
				if !validBlock(t.Target) {
					report("block %d: switch target %d out of range", id, t.Target)
				}
				if seen[t.Value] {
					report("block %d: duplicate switch value %d", id, t.Value)
				}
				seen[t.Value] = true
			}
		case TermCall:
			for _, a := range block.Term.Args {
				checkOperand(id, a)
			}
			checkPlace(id, block.Term.Dest)
			if !validBlock(block.Term.Target) {
				report("block %d: call continuation %d out of range", id, block.Term.Target)
			}
		case TermUnreachable:
			// nothing to check
		}
	}

	return errs
}

// ValidateModule validates every function.
func ValidateModule(m *Module) []error {
	var errs []error
	for _, f := range m.Funcs {
		errs = append(errs, Validate(f)...)
	}
	return errs
}

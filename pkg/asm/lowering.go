package asm

import (
	"fmt"
	"strconv"

	"hmny.dev/n2t-toolchain/pkg/hack"
)

// ----------------------------------------------------------------------------
// Asm Lowerer

// Lowerer turns an 'asm.Program' (instructions and label declarations interleaved, as
// they appeared in source order) into a 'hack.Program' plus the 'hack.SymbolTable' built
// from every label declaration seen along the way — label declarations themselves never
// become an instruction, they only record the ROM address of whatever follows them.
type Lowerer struct{ program Program }

// NewLowerer wraps 'p' for lowering; 'p' must be non-empty.
func NewLowerer(p Program) Lowerer {
	return Lowerer{program: p}
}

// Lower walks the program once in order. A/C instructions are converted and appended to
// the output stream; label declarations instead bind their name to the ROM address of the
// next instruction emitted (its own position contributes nothing to the stream itself).
func (l *Lowerer) Lower() (hack.Program, hack.SymbolTable, error) {
	if len(l.program) == 0 {
		return nil, nil, fmt.Errorf("the given 'program' is empty")
	}

	converted := hack.Program{}
	table := hack.SymbolTable{}

	for _, inst := range l.program {
		switch typed := inst.(type) {
		case AInstruction:
			hackInst, err := l.HandleAInst(typed)
			if err != nil {
				return nil, nil, err
			}
			converted = append(converted, hackInst)

		case CInstruction:
			hackInst, err := l.HandleCInst(typed)
			if err != nil {
				return nil, nil, err
			}
			converted = append(converted, hackInst)

		case LabelDecl:
			label, err := l.HandleLabelDecl(typed)
			if err != nil {
				return nil, nil, err
			}
			table[label] = uint16(len(converted))

		default:
			return nil, nil, fmt.Errorf("unrecognized instruction '%T'", inst)
		}
	}

	return converted, table, nil
}

// HandleAInst classifies the instruction's target: a name from the built-in register/IO
// table, a raw numeric address, or (falling through both) a user-defined label — which
// the code generator resolves later, once every label declaration has been seen.
func (Lowerer) HandleAInst(inst AInstruction) (hack.Instruction, error) {
	if _, found := hack.BuiltInTable[inst.Location]; found {
		return hack.AInstruction{LocType: hack.BuiltIn, LocName: inst.Location}, nil
	}
	if _, err := strconv.ParseUint(inst.Location, 10, 64); err == nil {
		return hack.AInstruction{LocType: hack.Raw, LocName: inst.Location}, nil
	}
	return hack.AInstruction{LocType: hack.Label, LocName: inst.Location}, nil
}

// HandleCInst carries 'dest'/'comp'/'jump' straight through: 'dest'/'jump' are independently
// optional, so lowering only re-checks that 'comp' is present before the type conversion
// to 'hack.CInstruction'.
func (Lowerer) HandleCInst(inst CInstruction) (hack.Instruction, error) {
	if inst.Comp == "" {
		return nil, fmt.Errorf("'Comp' sub-instruction should always be provided")
	}
	return hack.CInstruction{Dest: inst.Dest, Comp: inst.Comp, Jump: inst.Jump}, nil
}

// HandleLabelDecl returns the label's bare name; 'Lower' is the one that actually binds
// it to an address, since only the caller knows how many instructions precede it.
func (Lowerer) HandleLabelDecl(inst LabelDecl) (string, error) {
	return inst.Name, nil
}

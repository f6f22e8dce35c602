package vm

import (
	"fmt"
	"sort"
	"strconv"
	"strings"

	"hmny.dev/n2t-toolchain/pkg/asm"
)

// ----------------------------------------------------------------------------
// Vm Lowerer

// The Lowerer takes a 'vm.Program' (one already-parsed 'vm.Module' per linked .vm file) and
// produces its 'asm.Program' counterpart, flattening every module into a single instruction
// stream while preserving the per-module and per-function scoping the VM language relies on:
// static variables are mangled with the declaring module's name, and labels are mangled with
// the declaring function's name, so that two modules (or two functions) can reuse the same
// bare name without colliding once concatenated.
type Lowerer struct {
	program Program

	currentModule   string // basename (sans ".vm") of the module currently being lowered
	currentFunction string // fully qualified name of the function currently being lowered

	comparisonCounter uint // monotonic counter, guarantees unique eq/gt/lt branch labels
	callCounter       uint // monotonic counter, guarantees unique per-call return labels
}

// Initializes and returns to the caller a brand new 'Lowerer' struct.
// Requires the argument Program to be not nil nor empty.
func NewLowerer(p Program) Lowerer {
	return Lowerer{program: p}
}

// Triggers the lowering process. Modules are visited in sorted-name order (not map iteration
// order, which Go deliberately randomizes) so that the same linked program always lowers to
// byte-identical Asm, and within a module, operations are visited in their declared order.
func (l *Lowerer) Lowerer() (asm.Program, error) {
	if len(l.program) == 0 {
		return nil, fmt.Errorf("the given 'program' is empty")
	}

	names := make([]string, 0, len(l.program))
	for name := range l.program {
		names = append(names, name)
	}
	sort.Strings(names)

	program := asm.Program{}
	for _, name := range names {
		l.currentModule = strings.TrimSuffix(name, ".vm")
		l.currentFunction = ""

		for _, op := range l.program[name] {
			var lowered []asm.Instruction
			var err error

			switch tOp := op.(type) {
			case MemoryOp:
				lowered, err = l.HandleMemoryOp(tOp)
			case ArithmeticOp:
				lowered, err = l.HandleArithmeticOp(tOp)
			case LabelDecl:
				lowered, err = l.HandleLabelDecl(tOp)
			case GotoOp:
				lowered, err = l.HandleGotoOp(tOp)
			case FuncDecl:
				lowered, err = l.HandleFuncDecl(tOp)
			case FuncCallOp:
				lowered, err = l.HandleFuncCallOp(tOp)
			case ReturnOp:
				lowered, err = l.HandleReturnOp(tOp)
			default:
				err = fmt.Errorf("unrecognized operation '%T'", op)
			}

			if err != nil {
				return nil, fmt.Errorf("module '%s': %w", name, err)
			}
			program = append(program, lowered...)
		}
	}

	return program, nil
}

// Resolves a (non-constant, non-pointer, non-temp, non-static) segment to the A Instruction
// that loads its base address, so that 'D=M' then gives the segment's current base pointer.
var segmentBase = map[SegmentType]string{
	Local:    "LCL",
	Argument: "ARG",
	This:     "THIS",
	That:     "THAT",
}

// Specialized function to lower a 'MemoryOp' (push/pop) to its Asm counterpart.
//
// 'constant' only supports push (there's nothing to pop into). 'pointer' and 'temp' resolve
// directly to a fixed base register rather than going through an indirection, and 'static'
// resolves to a per-module mangled variable rather than a shared segment.
func (l *Lowerer) HandleMemoryOp(op MemoryOp) ([]asm.Instruction, error) {
	switch op.Segment {
	case Constant:
		if op.Operation != Push {
			return nil, fmt.Errorf("cannot 'pop' into the 'constant' segment")
		}
		return append(
			[]asm.Instruction{asm.AInstruction{Location: fmt.Sprint(op.Offset)}, asm.CInstruction{Dest: "D", Comp: "A"}},
			pushD()...,
		), nil

	case Pointer:
		if op.Offset > 1 {
			return nil, fmt.Errorf("invalid 'pointer' offset, got %d", op.Offset)
		}
		target := "THIS"
		if op.Offset == 1 {
			target = "THAT"
		}
		return l.pushOrPopDirect(op.Operation, target), nil

	case Temp:
		if op.Offset > 7 {
			return nil, fmt.Errorf("invalid 'temp' offset, got %d", op.Offset)
		}
		return l.pushOrPopIndirect(op.Operation, asm.AInstruction{Location: "5"}, op.Offset, true), nil

	case Static:
		target := fmt.Sprintf("%s.%d", l.currentModule, op.Offset)
		return l.pushOrPopDirect(op.Operation, target), nil

	case Local, Argument, This, That:
		base, found := segmentBase[op.Segment]
		if !found {
			return nil, fmt.Errorf("unrecognized SegmentType '%s'", op.Segment)
		}
		return l.pushOrPopIndirect(op.Operation, asm.AInstruction{Location: base}, op.Offset, false), nil

	default:
		return nil, fmt.Errorf("unrecognized SegmentType '%s'", op.Segment)
	}
}

// Emits push/pop for a segment reached directly by name (static variables, THIS/THAT via pointer).
func (l *Lowerer) pushOrPopDirect(operation OperationType, location string) []asm.Instruction {
	if operation == Push {
		return append(
			[]asm.Instruction{asm.AInstruction{Location: location}, asm.CInstruction{Dest: "D", Comp: "M"}},
			pushD()...,
		)
	}
	return append(
		popToD(),
		asm.AInstruction{Location: location}, asm.CInstruction{Dest: "M", Comp: "D"},
	)
}

// Emits push/pop for a segment reached through a base pointer plus an offset (local, argument,
// this, that, temp). 'baseIsConstant' is true for 'temp', whose base (5) is a raw address
// rather than a pointer that itself needs dereferencing (so we compute 'A=D+A', not 'A=D+M').
func (l *Lowerer) pushOrPopIndirect(operation OperationType, base asm.AInstruction, offset uint16, baseIsConstant bool) []asm.Instruction {
	baseComp := "M"
	if baseIsConstant {
		baseComp = "A"
	}

	if operation == Push {
		return append([]asm.Instruction{
			base, asm.CInstruction{Dest: "D", Comp: baseComp},
			asm.AInstruction{Location: fmt.Sprint(offset)}, asm.CInstruction{Dest: "A", Comp: "D+A"},
			asm.CInstruction{Dest: "D", Comp: "M"},
		}, pushD()...)
	}

	// Pop: compute the destination address first, stash it in R13, then overwrite it with the
	// popped value. We can't resolve the address last, since popping the stack clobbers D/A.
	return append([]asm.Instruction{
		base, asm.CInstruction{Dest: "D", Comp: baseComp},
		asm.AInstruction{Location: fmt.Sprint(offset)}, asm.CInstruction{Dest: "D", Comp: "D+A"},
		asm.AInstruction{Location: "R13"}, asm.CInstruction{Dest: "M", Comp: "D"},
	}, append(popToD(), asm.AInstruction{Location: "R13"}, asm.CInstruction{Dest: "A", Comp: "M"}, asm.CInstruction{Dest: "M", Comp: "D"})...)
}

// Pushes the value currently held in D onto the stack, advancing SP.
func pushD() []asm.Instruction {
	return []asm.Instruction{
		asm.AInstruction{Location: "SP"}, asm.CInstruction{Dest: "M", Comp: "M+1"},
		asm.CInstruction{Dest: "A", Comp: "M-1"}, asm.CInstruction{Dest: "M", Comp: "D"},
	}
}

// Pops the stack's top into D, retreating SP. Leaves A pointing at the popped slot.
func popToD() []asm.Instruction {
	return []asm.Instruction{
		asm.AInstruction{Location: "SP"}, asm.CInstruction{Dest: "AM", Comp: "M-1"}, asm.CInstruction{Dest: "D", Comp: "M"},
	}
}

// Specialized function to lower an 'ArithmeticOp' to its Asm counterpart.
//
// Binary operations (add/sub/and/or) pop the second operand into D, then combine it in place
// with the first operand, which is left sitting just below the new stack top. Unary operations
// (neg/not) mutate the top of the stack directly. Comparisons (eq/gt/lt) need a unique pair of
// labels per occurrence, since the Hack CPU has no conditional-move instruction.
func (l *Lowerer) HandleArithmeticOp(op ArithmeticOp) ([]asm.Instruction, error) {
	switch op.Operation {
	case Add:
		return binaryOp("D+M"), nil
	case Sub:
		return binaryOp("M-D"), nil
	case And:
		return binaryOp("D&M"), nil
	case Or:
		return binaryOp("D|M"), nil
	case Neg:
		return unaryOp("-M"), nil
	case Not:
		return unaryOp("!M"), nil
	case Eq:
		return l.comparisonOp("JEQ"), nil
	case Gt:
		return l.comparisonOp("JGT"), nil
	case Lt:
		return l.comparisonOp("JLT"), nil
	default:
		return nil, fmt.Errorf("unrecognized ArithOpType '%s'", op.Operation)
	}
}

func binaryOp(comp string) []asm.Instruction {
	return []asm.Instruction{
		asm.AInstruction{Location: "SP"}, asm.CInstruction{Dest: "AM", Comp: "M-1"},
		asm.CInstruction{Dest: "D", Comp: "M"}, asm.CInstruction{Dest: "A", Comp: "A-1"},
		asm.CInstruction{Dest: "M", Comp: comp},
	}
}

func unaryOp(comp string) []asm.Instruction {
	return []asm.Instruction{
		asm.AInstruction{Location: "SP"}, asm.CInstruction{Dest: "A", Comp: "M-1"},
		asm.CInstruction{Dest: "M", Comp: comp},
	}
}

func (l *Lowerer) comparisonOp(jump string) []asm.Instruction {
	id := l.comparisonCounter
	l.comparisonCounter++
	trueLabel := fmt.Sprintf("__COMP_TRUE_%d", id)
	endLabel := fmt.Sprintf("__COMP_END_%d", id)

	return []asm.Instruction{
		asm.AInstruction{Location: "SP"}, asm.CInstruction{Dest: "AM", Comp: "M-1"},
		asm.CInstruction{Dest: "D", Comp: "M"}, asm.CInstruction{Dest: "A", Comp: "A-1"},
		asm.CInstruction{Dest: "D", Comp: "M-D"},
		asm.AInstruction{Location: trueLabel}, asm.CInstruction{Comp: "D", Jump: jump},
		asm.AInstruction{Location: "SP"}, asm.CInstruction{Dest: "A", Comp: "M-1"}, asm.CInstruction{Dest: "M", Comp: "0"},
		asm.AInstruction{Location: endLabel}, asm.CInstruction{Comp: "0", Jump: "JMP"},
		asm.LabelDecl{Name: trueLabel},
		asm.AInstruction{Location: "SP"}, asm.CInstruction{Dest: "A", Comp: "M-1"}, asm.CInstruction{Dest: "M", Comp: "-1"},
		asm.LabelDecl{Name: endLabel},
	}
}

// Mangles a bare VM label to the function it's declared in, so that two functions can each
// declare their own "LOOP" label without colliding once flattened into one Asm program.
// Labels declared outside of any function (e.g. in the bootstrap sequence) are left bare.
func (l *Lowerer) scopedLabel(name string) string {
	if l.currentFunction == "" {
		return name
	}
	return fmt.Sprintf("%s$%s", l.currentFunction, name)
}

// Specialized function to lower a 'LabelDecl' to its Asm counterpart.
func (l *Lowerer) HandleLabelDecl(op LabelDecl) ([]asm.Instruction, error) {
	if op.Name == "" {
		return nil, fmt.Errorf("unable to lower empty label declaration")
	}
	return []asm.Instruction{asm.LabelDecl{Name: l.scopedLabel(op.Name)}}, nil
}

// Specialized function to lower a 'GotoOp' to its Asm counterpart.
func (l *Lowerer) HandleGotoOp(op GotoOp) ([]asm.Instruction, error) {
	if op.Label == "" {
		return nil, fmt.Errorf("unable to lower jump to an empty label")
	}
	target := l.scopedLabel(op.Label)

	if op.Jump == Unconditional {
		return []asm.Instruction{
			asm.AInstruction{Location: target}, asm.CInstruction{Comp: "0", Jump: "JMP"},
		}, nil
	}
	if op.Jump == Conditional {
		return append(popToD(), asm.AInstruction{Location: target}, asm.CInstruction{Comp: "D", Jump: "JNE"}), nil
	}
	return nil, fmt.Errorf("unrecognized JumpType '%s'", op.Jump)
}

// Specialized function to lower a 'FuncDecl' to its Asm counterpart.
//
// Emits the function's entrypoint label followed by 'NLocal' pushes of 'constant 0', matching
// the convention that a function's local variables are always zero-initialized on entry.
// Updates 'currentFunction' so that subsequent labels/gotos/calls scope and mangle correctly.
func (l *Lowerer) HandleFuncDecl(op FuncDecl) ([]asm.Instruction, error) {
	if op.Name == "" {
		return nil, fmt.Errorf("unable to lower empty function declaration")
	}

	l.currentFunction = op.Name
	program := []asm.Instruction{asm.LabelDecl{Name: op.Name}}
	for i := uint8(0); i < op.NLocal; i++ {
		program = append(program, asm.AInstruction{Location: "0"}, asm.CInstruction{Dest: "D", Comp: "A"})
		program = append(program, pushD()...)
	}
	return program, nil
}

// Specialized function to lower a 'FuncCallOp' to its Asm counterpart.
//
// Saves the caller's frame (return address, LCL, ARG, THIS, THAT) on the stack, repositions
// ARG to the base of the callee's arguments (SP - NArgs - 5, accounting for the frame just
// saved), repositions LCL to the current SP, then jumps to the callee. The return address is
// a freshly minted, globally unique label immediately following the jump.
func (l *Lowerer) HandleFuncCallOp(op FuncCallOp) ([]asm.Instruction, error) {
	if op.Name == "" {
		return nil, fmt.Errorf("unable to lower empty function call")
	}

	id := l.callCounter
	l.callCounter++
	returnLabel := fmt.Sprintf("%s$ret.%d", op.Name, id)

	program := []asm.Instruction{asm.AInstruction{Location: returnLabel}, asm.CInstruction{Dest: "D", Comp: "A"}}
	program = append(program, pushD()...)
	for _, reg := range []string{"LCL", "ARG", "THIS", "THAT"} {
		program = append(program, asm.AInstruction{Location: reg}, asm.CInstruction{Dest: "D", Comp: "M"})
		program = append(program, pushD()...)
	}

	offset := strconv.Itoa(int(op.NArgs) + 5)
	program = append(program,
		asm.AInstruction{Location: "SP"}, asm.CInstruction{Dest: "D", Comp: "M"},
		asm.AInstruction{Location: offset}, asm.CInstruction{Dest: "D", Comp: "D-A"},
		asm.AInstruction{Location: "ARG"}, asm.CInstruction{Dest: "M", Comp: "D"},
		asm.AInstruction{Location: "SP"}, asm.CInstruction{Dest: "D", Comp: "M"},
		asm.AInstruction{Location: "LCL"}, asm.CInstruction{Dest: "M", Comp: "D"},
		asm.AInstruction{Location: op.Name}, asm.CInstruction{Comp: "0", Jump: "JMP"},
		asm.LabelDecl{Name: returnLabel},
	)
	return program, nil
}

// Specialized function to lower a 'ReturnOp' to its Asm counterpart.
//
// Saves the frame base (LCL) and the return address (frame-5) before they're clobbered,
// overwrites the caller's argument 0 with the return value, repositions SP just past it, then
// restores THAT/THIS/ARG/LCL from the frame (in that order, walking the frame pointer down)
// before jumping to the saved return address.
func (l *Lowerer) HandleReturnOp(op ReturnOp) ([]asm.Instruction, error) {
	restore := func(dest string) []asm.Instruction {
		return []asm.Instruction{
			asm.AInstruction{Location: "R13"}, asm.CInstruction{Dest: "AM", Comp: "M-1"}, asm.CInstruction{Dest: "D", Comp: "M"},
			asm.AInstruction{Location: dest}, asm.CInstruction{Dest: "M", Comp: "D"},
		}
	}

	program := []asm.Instruction{
		asm.AInstruction{Location: "LCL"}, asm.CInstruction{Dest: "D", Comp: "M"},
		asm.AInstruction{Location: "R13"}, asm.CInstruction{Dest: "M", Comp: "D"}, // R13 = frame
		asm.AInstruction{Location: "5"}, asm.CInstruction{Dest: "A", Comp: "D-A"}, asm.CInstruction{Dest: "D", Comp: "M"},
		asm.AInstruction{Location: "R14"}, asm.CInstruction{Dest: "M", Comp: "D"}, // R14 = return address
	}
	program = append(program, popToD()...)
	program = append(program,
		asm.AInstruction{Location: "ARG"}, asm.CInstruction{Dest: "A", Comp: "M"}, asm.CInstruction{Dest: "M", Comp: "D"}, // *ARG = pop()
		asm.AInstruction{Location: "ARG"}, asm.CInstruction{Dest: "D", Comp: "M+1"},
		asm.AInstruction{Location: "SP"}, asm.CInstruction{Dest: "M", Comp: "D"}, // SP = ARG+1
	)
	program = append(program, restore("THAT")...)
	program = append(program, restore("THIS")...)
	program = append(program, restore("ARG")...)
	program = append(program, restore("LCL")...)
	program = append(program,
		asm.AInstruction{Location: "R14"}, asm.CInstruction{Dest: "A", Comp: "M"}, asm.CInstruction{Comp: "0", Jump: "JMP"},
	)
	return program, nil
}

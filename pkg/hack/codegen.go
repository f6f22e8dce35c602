package hack

import (
	"fmt"
	"strconv"
)

// ----------------------------------------------------------------------------
// Encoding tables
//
// The Hack instruction set is fixed: 16 general purpose registers (plus the five VM
// convention aliases folded into the same address space), a handful of ALU operations,
// and three independent destination/jump bit groups. These tables are the wire format
// itself, not a design choice, so they mirror the Hack CPU reference spec bit-for-bit.

var BuiltInTable = map[string]uint16{
	"SP": 0, "LCL": 1, "ARG": 2, "THIS": 3, "THAT": 4,
	"R0": 0, "R1": 1, "R2": 2, "R3": 3, "R4": 4, "R5": 5,
	"R6": 6, "R7": 7, "R8": 8, "R9": 9, "R10": 10, "R11": 11,
	"R12": 12, "R13": 13, "R14": 14, "R15": 15,
	"SCREEN": 16384, "KBD": 24576,
}

var CompTable = map[string]uint16{
	"0": 0b0101010, "1": 0b0111111, "-1": 0b0111010,
	"D": 0b0001100, "A": 0b0110000, "M": 0b1110000,
	"!D": 0b0001101, "!A": 0b0110001, "!M": 0b1110001,
	"-D": 0b0001111, "-A": 0b0110011, "-M": 0b1110011,
	"D+1": 0b0011111, "A+1": 0b0110111, "M+1": 0b1110111,
	"D-1": 0b0001110, "A-1": 0b0110010, "M-1": 0b1110010,
	"D+A": 0b0000010, "D+M": 0b1000010,
	"D-A": 0b0010011, "D-M": 0b1010011,
	"A-D": 0b0000111, "M-D": 0b1000111,
	"D&A": 0b0000000, "D&M": 0b1000000,
	"D|A": 0b0010101, "D|M": 0b1010101,
}

var DestTable = map[string]uint16{
	"": 0b000, "M": 0b001, "D": 0b010, "A": 0b100,
	"MD": 0b011, "AM": 0b101, "AD": 0b110, "AMD": 0b111,
}

var JumpTable = map[string]uint16{
	"": 0b000, "JGT": 0b001, "JEQ": 0b010, "JGE": 0b011,
	"JLT": 0b100, "JNE": 0b101, "JLE": 0b110, "JMP": 0b111,
}

// Bit offsets the three C-instruction fields occupy once shifted into their final position.
const (
	compShift = 6
	destShift = 3
	jumpShift = 0

	cOpcode = uint16(0b111) << 13
)

// ----------------------------------------------------------------------------
// Code Generator

// CodeGenerator renders an already-lowered 'hack.Program' (A/C instructions with their
// labels already bound to ROM addresses, save for fresh variable references) down to the
// 16-character '0'/'1' lines that make up a '.hack' binary.
type CodeGenerator struct {
	program Program     // instruction stream to render
	table   SymbolTable // label/variable name -> RAM or ROM address
	nextVar uint16      // count of user variables allocated so far, offset from RAM[16]
}

// NewCodeGenerator wires a 'Program' together with the 'SymbolTable' produced by the
// assembler's label-resolution pass; 'st' is mutated in place as new variables are seen.
func NewCodeGenerator(p Program, st SymbolTable) CodeGenerator {
	return CodeGenerator{program: p, table: st}
}

// Generate walks every instruction once, rendering each to its binary line. The first
// unresolvable reference or out-of-range address aborts the whole run rather than
// emitting a partial '.hack' file.
func (cg *CodeGenerator) Generate() ([]string, error) {
	lines := make([]string, 0, len(cg.program))

	for _, instruction := range cg.program {
		var line string
		var err error

		switch typed := instruction.(type) {
		case AInstruction:
			line, err = cg.GenerateAInst(typed)
		case CInstruction:
			line, err = cg.GenerateCInst(typed)
		}
		if err != nil {
			return nil, err
		}
		lines = append(lines, line)
	}

	return lines, nil
}

// resolveLocation turns an A-instruction's target into its numeric address, allocating a
// fresh RAM slot (starting right after the 16 predefined registers) the first time an
// undeclared symbol is seen.
func (cg *CodeGenerator) resolveLocation(inst AInstruction) (uint16, bool) {
	switch inst.LocType {
	case Raw:
		num, err := strconv.ParseInt(inst.LocName, 10, 16)
		if err != nil {
			return 0, false
		}
		return uint16(num), true

	case BuiltIn:
		address, found := BuiltInTable[inst.LocName]
		return address, found

	case Label:
		if address, found := cg.table[inst.LocName]; found {
			return address, true
		}
		address := 16 + cg.nextVar
		cg.table[inst.LocName] = address
		cg.nextVar++
		return address, true

	default:
		return 0, false
	}
}

// GenerateAInst renders a single A instruction: resolve its target to an address, check
// it fits the 15 address bits the Hack CPU actually has (bit 15 is the opcode marker, so
// anything at or above 2^15 is unrepresentable), then print the 16-bit binary form.
func (cg *CodeGenerator) GenerateAInst(inst AInstruction) (string, error) {
	address, found := cg.resolveLocation(inst)
	if !found {
		return "", fmt.Errorf("unable to resolve address for location '%s'", inst.LocName)
	}
	if address >= MaxAddressableMemory {
		return "", fmt.Errorf("location '%s resolved to an address not allowed", inst.LocName)
	}
	return fmt.Sprintf("%016b", address), nil
}

// GenerateCInst renders a single C instruction. 'comp', 'dest' and 'jump' are resolved
// independently against their own table — each is only ever wrong in isolation — and
// merged into the final word only once all three have checked out, so a missing 'dest'
// is never masked by a valid 'jump' (or vice versa).
func (cg *CodeGenerator) GenerateCInst(inst CInstruction) (string, error) {
	comp, found := CompTable[inst.Comp]
	if inst.Comp == "" || !found {
		return "", fmt.Errorf("unable to translate C instruction, missing or invalid operation code")
	}

	dest, found := DestTable[inst.Dest]
	if !found {
		return "", fmt.Errorf("unable to translate C instruction, unknown 'dest' opcode '%s'", inst.Dest)
	}

	jump, found := JumpTable[inst.Jump]
	if !found {
		return "", fmt.Errorf("unable to translate C instruction, unknown 'jump' opcode '%s'", inst.Jump)
	}

	word := cOpcode | comp<<compShift | dest<<destShift | jump<<jumpShift
	return fmt.Sprintf("%016b", word), nil
}

package vm

import (
	"fmt"
	"sort"
)

// ----------------------------------------------------------------------------
// Code Generator

// CodeGenerator serializes an already-lowered 'vm.Program' back out to its textual VM
// form, one line per operation. Used by the Jack compiler to hand its per-class output
// to the caller as '.vm' source rather than as in-memory 'vm.Operation' values, since the
// VM Translator stage (the next consumer down the pipeline) reads text, not Go structs.
type CodeGenerator struct {
	program Program
}

// NewCodeGenerator wraps the given Program for rendering; 'p' must not be nil.
func NewCodeGenerator(p Program) CodeGenerator {
	return CodeGenerator{program: p}
}

// render dispatches, with a type switch, each concrete operation type encountered while
// lowering to the 'Generate*' function that prints it.
func (cg *CodeGenerator) render(op Operation) (string, error) {
	switch typed := op.(type) {
	case MemoryOp:
		return cg.GenerateMemoryOp(typed)
	case ArithmeticOp:
		return cg.GenerateArithmeticOp(typed)
	case LabelDecl:
		return cg.GenerateLabelDecl(typed)
	case GotoOp:
		return cg.GenerateGotoOp(typed)
	case FuncDecl:
		return cg.GenerateFuncDecl(typed)
	case ReturnOp:
		return cg.GenerateReturnOp(typed)
	case FuncCallOp:
		return cg.GenerateFuncCallOp(typed)
	default:
		return "", fmt.Errorf("unrecognized vm operation '%T'", op)
	}
}

// Generate renders every module's operation stream to its textual lines, keyed by module
// name. Modules are visited in sorted-name order purely so repeated runs over the same
// program produce byte-identical diagnostics; the per-module line order always matches
// the module's own declared operation order regardless.
func (cg *CodeGenerator) Generate() (map[string][]string, error) {
	names := make([]string, 0, len(cg.program))
	for name := range cg.program {
		names = append(names, name)
	}
	sort.Strings(names)

	out := map[string][]string{}
	for _, name := range names {
		for _, operation := range cg.program[name] {
			line, err := cg.render(operation)
			if err != nil {
				return nil, err
			}
			out[name] = append(out[name], line)
		}
	}

	return out, nil
}

// GenerateMemoryOp renders a push/pop. 'pointer' only addresses THIS/THAT (offset 0 or
// 1) and 'temp' only the 8 temp registers; both are checked here since the VM textual
// form carries no type information to catch this later.
func (cg *CodeGenerator) GenerateMemoryOp(op MemoryOp) (string, error) {
	if op.Segment == Pointer && op.Offset > 1 {
		return "", fmt.Errorf("invalid 'pointer' offset, got %d", op.Offset)
	}
	if op.Segment == Temp && op.Offset > 7 {
		return "", fmt.Errorf("invalid 'temp' offset, got %d", op.Offset)
	}
	return fmt.Sprintf("%s %s %d", string(op.Operation), string(op.Segment), op.Offset), nil
}

// GenerateArithmeticOp renders one of the nine zero-operand stack operations; the opcode
// name itself already is the full VM-language statement (e.g. "add", "not").
func (cg *CodeGenerator) GenerateArithmeticOp(op ArithmeticOp) (string, error) {
	return string(op.Operation), nil
}

func (cg *CodeGenerator) GenerateLabelDecl(op LabelDecl) (string, error) {
	if op.Name == "" {
		return "", fmt.Errorf("unable to produce empty label declaration")
	}
	return fmt.Sprintf("label %s", op.Name), nil
}

func (cg *CodeGenerator) GenerateGotoOp(op GotoOp) (string, error) {
	if op.Label == "" {
		return "", fmt.Errorf("unable to produce empty jump label")
	}
	return fmt.Sprintf("%s %s", string(op.Jump), op.Label), nil
}

func (cg *CodeGenerator) GenerateFuncDecl(op FuncDecl) (string, error) {
	if op.Name == "" {
		return "", fmt.Errorf("unable to produce empty function declaration")
	}
	return fmt.Sprintf("function %s %d", op.Name, op.NLocal), nil
}

func (cg *CodeGenerator) GenerateReturnOp(op ReturnOp) (string, error) {
	return "return", nil
}

func (cg *CodeGenerator) GenerateFuncCallOp(op FuncCallOp) (string, error) {
	if op.Name == "" {
		return "", fmt.Errorf("unable to produce empty function call")
	}
	return fmt.Sprintf("call %s %d", op.Name, op.NArgs), nil
}

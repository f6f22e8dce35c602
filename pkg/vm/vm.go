package vm

// ----------------------------------------------------------------------------
// General information

// This section contains some general information about the VM intermediate language.
//
// We declare a shared 'Operation' interface for every macro operation available for the
// language and we define some other useful top-level struct such as Program and Module.
// Is important to note that a VM program can be composed of multiple translation units
// that can be also referenced as file or modules or also classes.

// A VM Program is just a set of multiple modules/files, in the VM spec each Jack class is
// translated to its own .vm file (just like Java .class file) that can be handled as its
// own translation unit during the compilation or lowering phases. Keyed by the module's
// file basename (e.g. "Main.vm"), since that name is also what the Lowerer mangles static
// variables with ("Main.3") and must stay stable across the whole linked program.
type Program map[string]Module

// A VM Module is just a linear list of VM operations/instructions
type Module []Operation

// Used to put together all operation in the VM language (Memory, Arithmetic, ... ops).
type Operation interface{}

// ----------------------------------------------------------------------------
// Memory Op

// In memory representation of a Memory operation for the VM language.
//
// In the VM intermediate language there are only two possible memory operation on the stack.
// We could either push a new value taken from the specified segment location on the stack's
// top or take the stack's top and saves its value at the specified segment location.
type MemoryOp struct {
	Operation OperationType // The type of operation, either 'push' or 'pop'
	Segment   SegmentType   // The named memory segment to use (this, that, temp, ...)
	Offset    uint16        // The specific location/offset inside of the memory segment
}

type OperationType string // Enum to manage the operation allowed for a MemoryOp

const (
	Push OperationType = "push"
	Pop  OperationType = "pop"
)

type SegmentType string // Enum to manage the segment accessible for a MemoryOp

const (
	Temp     SegmentType = "temp"     // Real segment used to store intermediate computations
	Constant SegmentType = "constant" // Virtual segment used to access numeric constant

	Local    SegmentType = "local"    // Real segment used to store local function variables
	Static   SegmentType = "static"   // Real segment used to store shared/static variables
	Argument SegmentType = "argument" // Real segment used to store function's argument

	This    SegmentType = "this"    // Virtual segment used to point to a specific memory location
	That    SegmentType = "that"    // Virtual segment used to point to a specific memory location
	Pointer SegmentType = "pointer" // Real segment w/ 2 location used to set the 'this' and 'that' pointers
)

// ----------------------------------------------------------------------------
// Arithmetic Op

// In memory representation of a Arithmetic operation for the VM language.
//
// In the VM intermediate language there are just a handful of operation available.
// In particular each operation acts directly on the top of the stack, of course we have both unary
// and binary operation, the specific management of each op will be handled in the lowering phase.
type ArithmeticOp struct{ Operation ArithOpType }

type ArithOpType string // Enum to manage the operation allowed for an ArithmeticOp

const (
	Eq ArithOpType = "eq" // Comparison operations
	Gt ArithOpType = "gt"
	Lt ArithOpType = "lt"

	Add ArithOpType = "add" // Arithmetic operations
	Sub ArithOpType = "sub"
	Neg ArithOpType = "neg"

	Not ArithOpType = "not" // Bitwise operations
	And ArithOpType = "and"
	Or  ArithOpType = "or"
)

// ----------------------------------------------------------------------------
// Label Decl, Goto Op

// In memory representation of a label declaration statement for the VM language.
//
// A label is scoped to the function it's declared in: the Lowerer mangles it to
// "currentFunction$Name" so that two different functions can both declare a "LOOP" label
// without colliding once every module is flattened into a single Asm program.
type LabelDecl struct {
	Name string // The symbol/ident chosen by the user for the label
}

// In memory representation of a goto/if-goto operation for the VM language.
//
// 'goto' always transfers control, 'if-goto' pops the stack's top and transfers control
// only if the popped value is not zero (VM booleans are all-ones/all-zeros, not 0/1).
type GotoOp struct {
	Jump  JumpType // Either unconditional ('goto') or conditional on the popped value ('if-goto')
	Label string   // The (unmangled) target label, resolved against the same function's scope
}

type JumpType string // Enum to manage the jump behavior of a GotoOp

const (
	Unconditional JumpType = "goto"
	Conditional   JumpType = "if-goto"
)

// ----------------------------------------------------------------------------
// Function Decl, Call Op, Return Op

// In memory representation of a function declaration for the VM language.
//
// Declares the entrypoint label for a function plus how many local variables it declares:
// the lowering phase pushes that many 'constant 0' values onto the stack right after the
// label, so the function's locals always start out zeroed.
type FuncDecl struct {
	Name   string // Fully qualified name (e.g. "Main.main"), used verbatim as the Asm label
	NLocal uint8  // Number of local variables to zero-initialize on entry
}

// In memory representation of a function call for the VM language.
//
// Implements the calling convention: saves the caller's frame (return address, LCL, ARG,
// THIS, THAT) on the stack, repositions ARG to the start of the callee's arguments, then
// jumps to the callee. 'NArgs' tells the lowerer where ARG should end up pointing.
type FuncCallOp struct {
	Name  string // Fully qualified name of the function being called
	NArgs uint8  // Number of arguments already pushed onto the stack by the caller
}

// In memory representation of a function return for the VM language.
//
// Tears down the current frame (restoring the caller's LCL/ARG/THIS/THAT), repositions the
// stack so the caller sees only its return value, and jumps back to the caller.
type ReturnOp struct{}

package vm

import (
	"fmt"
	"io"
	"os"
	"strconv"

	pc "github.com/prataprc/goparsec"
)

// ----------------------------------------------------------------------------
// Grammar
//
// The VM bytecode grammar is small and flat: a module is just a sequence of
// comments and operations, and every operation is one of nine fixed shapes
// (push/pop, the nine zero-arg arithmetic mnemonics, label/goto/if-goto, and
// function/call/return). None of it recurses, which is exactly the shape
// goparsec's combinators are built for.

var grammarAST = pc.NewAST("vm_module", 0)

var (
	pModule = grammarAST.ManyUntil("module", nil, grammarAST.OrdChoice("node", nil, pComment, pOperation), pc.End())

	pComment = grammarAST.And("comment", nil, pc.Atom("//", "//"), pc.Token(`(?m).*$`, "COMMENT"))

	pOperation = grammarAST.OrdChoice("operation", nil,
		pMemoryOp, pArithmeticOp, pLabelDecl, pGotoOp,
		pFuncDecl, pFunCallOp, pReturnOp,
	)

	// "{push|pop} {segment} {index}"
	pMemoryOp = grammarAST.And("memory_op", nil, pMemOpType, pSegment, pc.Int())
	// One of the nine zero-operand stack mnemonics.
	pArithmeticOp = grammarAST.And("arithmetic_op", nil, pArithOpType)

	// "label {symbol}"
	pLabelDecl = grammarAST.And("label_decl", nil, pc.Atom("label", "LABEL"), pIdent)
	// "{goto|if-goto} {symbol}"
	pGotoOp = grammarAST.And("goto_op", nil, pJumpType, pIdent)

	// "function {name} {nLocal}"
	pFuncDecl = grammarAST.And("func_decl", nil, pc.Atom("function", "FUNC"), pIdent, pc.Int())
	// "call {name} {nArgs}"
	pFunCallOp = grammarAST.And("func_call", nil, pc.Atom("call", "CALL"), pIdent, pc.Int())
	// "return"
	pReturnOp = grammarAST.And("return_op", nil, pc.Atom("return", "RETURN"))
)

var (
	// Identifiers name labels and functions: letters/digits/underscore plus the '.', '$'
	// and ':' the lowerer mangles into generated names (e.g. "Main.run$ret.0"); a leading
	// digit is disallowed, a leading symbol from that extra set is not.
	pIdent = pc.Token(`[A-Za-z_.$:][0-9a-zA-Z_.$:]*`, "IDENT")

	pMemOpType = grammarAST.OrdChoice("mem_op_type", nil, pc.Atom("push", "PUSH"), pc.Atom("pop", "POP"))

	pSegment = grammarAST.OrdChoice("mem_segment", nil,
		pc.Atom("argument", "ARGUMENT"), pc.Atom("local", "LOCAL"),
		pc.Atom("static", "STATIC"), pc.Atom("constant", "CONSTANT"),
		pc.Atom("this", "THIS"), pc.Atom("that", "THAT"),
		pc.Atom("temp", "TEMP"), pc.Atom("pointer", "POINTER"),
	)

	pArithOpType = grammarAST.OrdChoice("operations", nil,
		pc.Atom("eq", "EQ"), pc.Atom("gt", "GT"), pc.Atom("lt", "LT"),
		pc.Atom("add", "ADD"), pc.Atom("sub", "SUB"), pc.Atom("neg", "NEG"),
		pc.Atom("not", "NOT"), pc.Atom("and", "AND"), pc.Atom("or", "OR"),
	)

	pJumpType = grammarAST.OrdChoice("jump_type", nil, pc.Atom("goto", "GOTO"), pc.Atom("if-goto", "IF-GOTO"))
)

// ----------------------------------------------------------------------------
// Vm Parser

// Parser turns VM source text into a 'vm.Module' in two steps: 'FromSource' runs the
// goparsec grammar above to get a generic AST, then 'FromAST' walks that AST into the
// typed 'vm.Operation' values the rest of the pipeline consumes. Debug output is gated
// behind the same three env vars the Assembler's parser honors: PARSEC_DEBUG (verbose
// combinator tracing), EXPORT_AST (Graphviz dump), PRINT_AST (console dump).
type Parser struct{ reader io.Reader }

func NewParser(r io.Reader) Parser {
	return Parser{reader: r}
}

func (p *Parser) Parse() (Module, error) {
	content, err := io.ReadAll(p.reader)
	if err != nil {
		return nil, fmt.Errorf("cannot read from 'io.Reader': %s", err)
	}

	tree, ok := p.FromSource(content)
	if !ok {
		return nil, fmt.Errorf("failed to parse AST from input content")
	}

	return p.FromAST(tree)
}

func (p *Parser) FromSource(source []byte) (pc.Queryable, bool) {
	if os.Getenv("PARSEC_DEBUG") != "" {
		grammarAST.SetDebug()
	}

	root, _ := grammarAST.Parsewith(pModule, pc.NewScanner(source))

	if os.Getenv("EXPORT_AST") != "" {
		file, _ := os.Create(fmt.Sprintf("%s/debug.ast.dot", os.Getenv("DEBUG_FOLDER")))
		defer file.Close()
		file.Write([]byte(grammarAST.Dotstring("\"VM AST\"")))
	}
	if os.Getenv("PRINT_AST") != "" {
		grammarAST.Prettyprint()
	}

	// TODO (hmny): 'ManyUntil' doesn't surface whether it actually reached 'pc.End()';
	// until goparsec exposes that, a malformed tail silently parses as an empty match.
	return root, true
}

// nodeHandler converts one child subtree of the module's AST into its typed Operation.
type nodeHandler func(pc.Queryable) (Operation, error)

// FromAST walks the module's direct children once, dispatching each by node name via
// 'handlers' rather than a long switch — adding a new operation kind only means adding
// one table entry instead of another arm threaded through the whole function body.
func (p *Parser) FromAST(root pc.Queryable) (Module, error) {
	if root.GetName() != "module" {
		return nil, fmt.Errorf("expected node 'module', found %s", root.GetName())
	}

	handlers := map[string]nodeHandler{
		"memory_op":     p.HandleMemoryOp,
		"arithmetic_op": p.HandleArithmeticOp,
		"label_decl":    p.HandleLabelDecl,
		"goto_op":       p.HandleGotoOp,
		"func_decl":     p.HandleFuncDecl,
		"return_op":     p.HandleReturnOp,
		"func_call":     p.HandleFuncCall,
	}

	module := make(Module, 0, len(root.GetChildren()))
	for _, child := range root.GetChildren() {
		if child.GetName() == "comment" {
			continue
		}

		handle, known := handlers[child.GetName()]
		if !known {
			return nil, fmt.Errorf("unrecognized node '%s'", child.GetName())
		}

		op, err := handle(child)
		if err != nil {
			return nil, err
		}
		module = append(module, op)
	}

	return module, nil
}

// expectShape validates a subtree's node name and arity before any handler reaches into
// its children, so a grammar/AST mismatch surfaces as one consistent error message
// instead of a panic on an out-of-range index three lines into the handler.
func expectShape(node pc.Queryable, name string, nChildren int) error {
	if node.GetName() != name {
		return fmt.Errorf("expected node '%s', got '%s'", name, node.GetName())
	}
	if len(node.GetChildren()) != nChildren {
		return fmt.Errorf("expected node '%s' with %d children, got %d", name, nChildren, len(node.GetChildren()))
	}
	return nil
}

func (Parser) HandleMemoryOp(node pc.Queryable) (Operation, error) {
	if err := expectShape(node, "memory_op", 3); err != nil {
		return nil, err
	}

	children := node.GetChildren()
	offset, err := strconv.ParseUint(children[2].GetValue(), 10, 16)
	if err != nil {
		return nil, fmt.Errorf("failed to parse 'offset' in MemoryOp, got '%s'", children[2].GetValue())
	}

	return MemoryOp{
		Operation: OperationType(children[0].GetValue()),
		Segment:   SegmentType(children[1].GetValue()),
		Offset:    uint16(offset),
	}, nil
}

func (Parser) HandleArithmeticOp(node pc.Queryable) (Operation, error) {
	if err := expectShape(node, "arithmetic_op", 1); err != nil {
		return nil, err
	}
	return ArithmeticOp{Operation: ArithOpType(node.GetChildren()[0].GetValue())}, nil
}

func (Parser) HandleLabelDecl(node pc.Queryable) (Operation, error) {
	if err := expectShape(node, "label_decl", 2); err != nil {
		return nil, err
	}
	return LabelDecl{Name: node.GetChildren()[1].GetValue()}, nil
}

func (Parser) HandleGotoOp(node pc.Queryable) (Operation, error) {
	if err := expectShape(node, "goto_op", 2); err != nil {
		return nil, err
	}

	children := node.GetChildren()
	return GotoOp{Jump: JumpType(children[0].GetValue()), Label: children[1].GetValue()}, nil
}

func (Parser) HandleFuncDecl(node pc.Queryable) (Operation, error) {
	if err := expectShape(node, "func_decl", 3); err != nil {
		return nil, err
	}

	children := node.GetChildren()
	nLocal, err := strconv.ParseUint(children[2].GetValue(), 10, 8)
	if err != nil {
		return nil, fmt.Errorf("failed to parse 'nLocal' in FuncDecl, got '%s'", children[2].GetValue())
	}

	return FuncDecl{Name: children[1].GetValue(), NLocal: uint8(nLocal)}, nil
}

func (Parser) HandleReturnOp(node pc.Queryable) (Operation, error) {
	if err := expectShape(node, "return_op", 1); err != nil {
		return nil, err
	}
	return ReturnOp{}, nil
}

func (Parser) HandleFuncCall(node pc.Queryable) (Operation, error) {
	if err := expectShape(node, "func_call", 3); err != nil {
		return nil, err
	}

	children := node.GetChildren()
	nArgs, err := strconv.ParseUint(children[2].GetValue(), 10, 8)
	if err != nil {
		return nil, fmt.Errorf("failed to parse 'nArgs' in FuncCallOp, got '%s'", children[2].GetValue())
	}

	return FuncCallOp{Name: children[1].GetValue(), NArgs: uint8(nArgs)}, nil
}

package asm

import (
	"fmt"
	"io"
	"os"

	pc "github.com/prataprc/goparsec"
)

// ----------------------------------------------------------------------------
// Grammar
//
// A Hack assembly program is a flat sequence of comments, A-instructions, label
// declarations and C-instructions — no block ever nests another, so a combinator
// grammar maps onto it almost line for line.

var grammarAST = pc.NewAST("assembler", 0)

var (
	pProgram = grammarAST.ManyUntil("program", nil, grammarAST.OrdChoice("item", nil, pComment, pInstruction), pc.End())

	pInstruction = grammarAST.OrdChoice("instruction", nil, pAInst, pCInst, pLabelDecl)
	pComment     = grammarAST.And("comment", nil, pc.Atom("//", "//"), pc.Token(`(?m).*$`, "COMMENT"))

	// "@{label|int}"
	pAInst = grammarAST.And("a-inst", nil, pc.Atom("@", "@"), pLabel)
	// "({label})"
	pLabelDecl = grammarAST.And("label-decl", nil, pc.Atom("(", "("), pLabel, pc.Atom(")", ")"))
	// "{dest=}comp{;jump}" — dest and jump are each independently optional.
	pCInst = grammarAST.And("c-inst", nil,
		grammarAST.Maybe("maybe-assign", nil, grammarAST.And("assign", nil, pDest, pc.Atom("=", "="))),
		pComp,
		grammarAST.Maybe("maybe-goto", nil, grammarAST.And("goto", nil, pc.Atom(";", ";"), pJump)),
	)
)

var (
	// A label (used by both A-instructions and label declarations) may begin with a digit
	// only if the whole token is numeric (a raw address); otherwise it must start with a
	// letter, underscore, or one of '.', '$', ':'.
	pLabel = grammarAST.OrdChoice("label", nil, pc.Int(), pc.Token(`[A-Za-z_.$:][0-9a-zA-Z_.$:]*`, "SYMBOL"))

	// Longer mnemonics must be tried before their single-register prefixes (AM/AD/MD
	// before A/D/M alone), since goparsec's ordered choice commits to the first match.
	pDest = grammarAST.OrdChoice("dest", nil,
		pc.Atom("AMD", "AMD"),
		pc.Atom("AM", "AM"), pc.Atom("AD", "AD"), pc.Atom("MD", "MD"),
		pc.Atom("D", "D"), pc.Atom("A", "A"), pc.Atom("M", "M"),
	)

	// Same ordering constraint as 'pDest': every two/three-char comp mnemonic is listed
	// ahead of the bare register/constant atoms it could otherwise be swallowed by.
	pComp = grammarAST.OrdChoice("comp", nil,
		pc.Atom("D&A", "D&A"), pc.Atom("D&M", "D&M"),
		pc.Atom("D|A", "D|A"), pc.Atom("D|M", "D|M"),
		pc.Atom("D+A", "D+A"), pc.Atom("D+M", "D+M"),
		pc.Atom("D-A", "D-A"), pc.Atom("D-M", "D-M"),
		pc.Atom("A-D", "A-D"), pc.Atom("M-D", "M-D"),
		pc.Atom("D+1", "D+1"), pc.Atom("A+1", "A+1"), pc.Atom("M+1", "M+1"),
		pc.Atom("D-1", "D-1"), pc.Atom("A-1", "A-1"), pc.Atom("M-1", "M-1"),
		pc.Atom("!D", "!D"), pc.Atom("!A", "!A"), pc.Atom("!M", "!M"),
		pc.Atom("-D", "-D"), pc.Atom("-A", "-A"), pc.Atom("-M", "-M"),
		pc.Atom("0", "0"), pc.Atom("1", "1"), pc.Atom("-1", "-1"),
		pc.Atom("D", "D"), pc.Atom("A", "A"), pc.Atom("M", "M"),
	)

	pJump = grammarAST.OrdChoice("jump", nil,
		pc.Atom("JNE", "JNE"), pc.Atom("JEQ", "JEQ"),
		pc.Atom("JGT", "JGT"), pc.Atom("JGE", "JGE"),
		pc.Atom("JLT", "JLT"), pc.Atom("JLE", "JLE"),
		pc.Atom("JMP", "JMP"),
	)
)

// ----------------------------------------------------------------------------
// Asm Parser

// Parser turns assembly source text into an 'asm.Program' (a flat instruction/label-decl
// slice, labels not yet resolved) in two steps: 'FromSource' runs the grammar above to
// get a generic AST, 'FromAST' walks it into typed 'asm.Instruction' values. Debug output
// is gated behind PARSEC_DEBUG / EXPORT_AST / PRINT_AST, same convention as the VM parser.
type Parser struct{ reader io.Reader }

func NewParser(r io.Reader) Parser {
	return Parser{reader: r}
}

func (p *Parser) Parse() (Program, error) {
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

	root, _ := grammarAST.Parsewith(pProgram, pc.NewScanner(source))

	if os.Getenv("EXPORT_AST") != "" {
		file, _ := os.Create(fmt.Sprintf("%s/debug.ast.dot", os.Getenv("DEBUG_FOLDER")))
		defer file.Close()
		file.Write([]byte(grammarAST.Dotstring("\"Assembler AST\"")))
	}
	if os.Getenv("PRINT_AST") != "" {
		grammarAST.Prettyprint()
	}

	// TODO (hmny): 'ManyUntil' doesn't surface whether it actually reached 'pc.End()';
	// until goparsec exposes that, a malformed tail silently parses as an empty match.
	return root, true
}

type instHandler func(pc.Queryable) (Instruction, error)

// FromAST dispatches each direct child of the program root by node name via 'handlers',
// so the instruction set grows by adding a table entry rather than another switch arm.
func (p *Parser) FromAST(root pc.Queryable) (Program, error) {
	if root.GetName() != "program" {
		return nil, fmt.Errorf("expected node 'program', found %s", root.GetName())
	}

	handlers := map[string]instHandler{
		"a-inst":     p.HandleAInst,
		"c-inst":     p.HandleCInst,
		"label-decl": p.HandleLabelDecl,
	}

	program := make(Program, 0, len(root.GetChildren()))
	for _, child := range root.GetChildren() {
		if child.GetName() == "comment" {
			continue
		}

		handle, known := handlers[child.GetName()]
		if !known {
			return nil, fmt.Errorf("unrecognized node '%s'", child.GetName())
		}

		inst, err := handle(child)
		if err != nil {
			return nil, err
		}
		program = append(program, inst)
	}

	return program, nil
}

func (Parser) HandleAInst(inst pc.Queryable) (Instruction, error) {
	if inst.GetName() != "a-inst" {
		return nil, fmt.Errorf("expected node 'a-inst', found %s", inst.GetName())
	}

	symbol := inst.GetChildren()[1]
	if symbol.GetName() != "INT" && symbol.GetName() != "SYMBOL" {
		return nil, fmt.Errorf("expected token 'SYMBOL' or 'INT', got %s", symbol.GetName())
	}

	return AInstruction{Location: symbol.GetValue()}, nil
}

// HandleCInst reads 'dest'/'comp'/'jump' off the three fixed child slots. 'dest' and
// 'jump' are each wrapped in their own 'Maybe' combinator and so arrive as an empty node
// when absent — each is checked and applied independently, so a C-instruction carrying
// both (e.g. "MD=D+1;JGT") gets both, rather than one silently overwriting the other.
func (Parser) HandleCInst(inst pc.Queryable) (Instruction, error) {
	if inst.GetName() != "c-inst" {
		return nil, fmt.Errorf("expected node 'c-inst', found %s", inst.GetName())
	}

	children := inst.GetChildren()
	dest, comp, jump := children[0], children[1], children[2]

	result := CInstruction{Comp: comp.GetValue()}
	if dest.GetName() == "assign" && len(dest.GetChildren()) == 2 {
		result.Dest = dest.GetChildren()[0].GetValue()
	}
	if jump.GetName() == "goto" && len(jump.GetChildren()) == 2 {
		result.Jump = jump.GetChildren()[1].GetValue()
	}

	return result, nil
}

func (Parser) HandleLabelDecl(decl pc.Queryable) (Instruction, error) {
	if decl.GetName() != "label-decl" {
		return nil, fmt.Errorf("expected node 'label-decl', found %s", decl.GetName())
	}

	symbol := decl.GetChildren()[1]
	if symbol.GetName() != "SYMBOL" {
		return nil, fmt.Errorf("expected token 'SYMBOL', got %s", symbol.GetName())
	}

	return LabelDecl{Name: symbol.GetValue()}, nil
}

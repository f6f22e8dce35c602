package main

import (
	"bytes"
	"fmt"
	"os"
	"strings"

	"github.com/teris-io/cli"
	"hmny.dev/n2t-toolchain/pkg/asm"
	"hmny.dev/n2t-toolchain/pkg/hack"
)

var Description = strings.ReplaceAll(`
The Hack Assembler reads a single Hack assembly (.asm) source file and emits the
matching Hack binary (.hack) file: one 16-bit '0'/'1' line out for every A or C
instruction in the source (label declarations emit none). Labels are bound to ROM
addresses in a lowering pass that runs ahead of code generation; variables are
allocated in the same pass that renders the binary.
`, "\n", " ")

var HackAssembler = cli.New(Description).
	WithArg(cli.NewArg("input", "The assembler (.asm) file to be compiled")).
	WithArg(cli.NewArg("output", "The compiled binary output (.hack)")).
	WithAction(Handler)

func Handler(args []string, options map[string]string) int {
	input, err := os.ReadFile(args[0])
	if err != nil {
		fmt.Printf("ERROR: Unable to open input file: %s\n", err)
		return -1
	}

	lines, err := assemble(input)
	if err != nil {
		fmt.Printf("ERROR: %s\n", err)
		return -1
	}

	output, err := os.Create(args[1])
	if err != nil {
		fmt.Printf("ERROR: Unable to open output file: %s\n", err)
		return -1
	}
	defer output.Close()

	for _, line := range lines {
		fmt.Fprintf(output, "%s\n", line)
	}

	return 0
}

// assemble runs the parse -> lower -> codegen pipeline over raw assembly source and
// returns the rendered binary lines, kept separate from 'Handler' so the pipeline itself
// never touches a file handle.
func assemble(source []byte) ([]string, error) {
	parser := asm.NewParser(bytes.NewReader(source))
	program, err := parser.Parse()
	if err != nil {
		return nil, fmt.Errorf("unable to complete 'parsing' pass: %s", err)
	}

	lowerer := asm.NewLowerer(program)
	hackProgram, table, err := lowerer.Lower()
	if err != nil {
		return nil, fmt.Errorf("unable to complete 'lowering' pass: %s", err)
	}

	codegen := hack.NewCodeGenerator(hackProgram, table)
	compiled, err := codegen.Generate()
	if err != nil {
		return nil, fmt.Errorf("unable to complete 'codegen' pass: %s", err)
	}

	return compiled, nil
}

func main() { os.Exit(HackAssembler.Run(os.Args, os.Stdout)) }

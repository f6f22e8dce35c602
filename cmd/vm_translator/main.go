package main

import (
	"bytes"
	"fmt"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/teris-io/cli"
	"hmny.dev/n2t-toolchain/pkg/asm"
	"hmny.dev/n2t-toolchain/pkg/vm"
)

var Description = strings.ReplaceAll(`
The VM Translator translates programs (composed of multiple modules/files) written in 
the VM language into Hack assembly code that can be further elaborated. The VM language
is a higher-level (bytecode'like) language tailored for use with the Hack computer arch.
`, "\n", " ")

var VmTranslator = cli.New(Description).
	// 'AsOptional()' allows to have more than one input .vm file
	WithArg(cli.NewArg("inputs", "The bytecode (.vm) file to be compiled").
		AsOptional().WithType(cli.TypeString)).
	WithOption(cli.NewOption("output", "The compiled binary output (.asm)").
		WithType(cli.TypeString)).
	WithOption(cli.NewOption("bootstrap", "Includes bootstrap code in the final .asm file").
		WithType(cli.TypeBool)).
	WithAction(Handler)

func Handler(args []string, options map[string]string) int {
	if len(args) < 1 || options["output"] == "" {
		fmt.Printf("ERROR: Not enough arguments provided, use --help\n")
		return -1
	}

	output, err := os.Create(options["output"])
	if err != nil {
		fmt.Printf("ERROR: Unable to open output file: %s\n", err)
		return -1
	}
	defer output.Close()

	// A single directory argument means "link every .vm file inside it", mirroring how the
	// Jack compiler's multi-file programs are laid out one .vm per class. Any other input shape
	// (one or more explicit file paths) is taken as a literal, already-enumerated file list.
	inputs, isDirectory, err := expandInputs(args)
	if err != nil {
		fmt.Printf("ERROR: Unable to resolve input files: %s\n", err)
		return -1
	}

	// Allocates a 'vm.Program' struct to save all the parsed translation unit
	// (the .vm files) that will be parsed and lowered independently and then
	// sent to the codegen phases (that will create a monolithic compiled output).
	program := vm.Program{}

	// Directory mode defaults 'bootstrap' to on (a directory of linked modules is assumed to be
	// a whole program with a 'Sys.init' entrypoint); single/multi-file mode defaults it off (a
	// lone .vm file is more often a unit under test). Either default can be overridden explicitly.
	bootstrap := isDirectory
	if _, explicit := options["bootstrap"]; explicit {
		bootstrap = options["bootstrap"] != "false"
	}

	// When bootstrapping, the "call Sys.init 0" half is injected as a synthetic module so it's
	// lowered by the exact same rules (the real call protocol, with its frame save and unique
	// return label) as every other call in the program; it's keyed so it sorts (and is thus
	// lowered and emitted) before every real module. Setting 'SP=256' has no VM-level equivalent
	// (there's no opcode to assign a raw value into the stack pointer itself) so it's prepended
	// as hand-written Asm, matching how the original nand2tetris bootstrap is always described.
	if bootstrap {
		program["!bootstrap.vm"] = vm.Module{vm.FuncCallOp{Name: "Sys.init", NArgs: 0}}
	}

	// For every file provided by the user we do the following things
	for _, input := range inputs {
		content, err := os.ReadFile(input)
		if err != nil {
			fmt.Printf("ERROR: Unable to open input file: %s\n", err)
			return -1
		}

		// Instantiate a parser for the Vm program
		parser := vm.NewParser(bytes.NewReader(content))
		// Parses the input file content and extract an AST (as a 'vm.Module') from it.
		program[path.Base(input)], err = parser.Parse()
		if err != nil {
			fmt.Printf("ERROR: Unable to complete 'parsing' pass: %s\n", err)
			return -1
		}
	}

	// Instantiate a lowerer to convert the program from Vm to Asm
	lowerer := vm.NewLowerer(program)
	// Lowers the vm.Program to an in-memory/IR representation of its Asm counterpart 'asm.Program'.
	asmProgram, err := lowerer.Lowerer()
	if err != nil {
		fmt.Printf("ERROR: Unable to complete 'lowering' pass: %s\n", err)
		return -1
	}

	if bootstrap {
		asmProgram = append([]asm.Instruction{
			asm.AInstruction{Location: "256"},
			asm.CInstruction{Dest: "D", Comp: "A"},
			asm.AInstruction{Location: "SP"},
			asm.CInstruction{Dest: "M", Comp: "D"},
		}, asmProgram...)
	}

	// Now, instantiates a code generator for the Asm (compiled) program
	codegen := asm.NewCodeGenerator(asmProgram)
	// Iterates over each instruction and spits out the relative textual representation.
	compiled, err := codegen.Generate()
	if err != nil {
		fmt.Printf("ERROR: Unable to complete 'codegen' pass: %s\n", err)
		return -1
	}

	for _, comp := range compiled {
		line := fmt.Sprintf("%s\n", comp)
		output.Write([]byte(line))
	}

	return 0
}

// Resolves the raw CLI 'inputs' argument list into a concrete list of .vm file paths. A single
// argument that names a directory is expanded to every ".vm" file directly inside it (reports
// back that it did so, for the bootstrap default); anything else passes through unchanged.
func expandInputs(args []string) ([]string, bool, error) {
	if len(args) != 1 {
		return args, false, nil
	}

	info, err := os.Stat(args[0])
	if err != nil {
		return nil, false, err
	}
	if !info.IsDir() {
		return args, false, nil
	}

	entries, err := os.ReadDir(args[0])
	if err != nil {
		return nil, false, err
	}

	files := []string{}
	for _, entry := range entries {
		if !entry.IsDir() && filepath.Ext(entry.Name()) == ".vm" {
			files = append(files, filepath.Join(args[0], entry.Name()))
		}
	}
	return files, true, nil
}

func main() { os.Exit(VmTranslator.Run(os.Args, os.Stdout)) }

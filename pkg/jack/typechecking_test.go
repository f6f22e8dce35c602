package jack_test

import (
	"testing"

	"hmny.dev/n2t-toolchain/pkg/jack"
)

func TestTypeCheckEmptyProgramFails(t *testing.T) {
	tc := jack.NewTypeChecker(jack.Program{})
	if _, err := tc.Check(); err == nil {
		t.Fatalf("expected an error type-checking an empty program")
	}
}

func TestTypeCheckAcceptsMatchingLetAndReturnTypes(t *testing.T) {
	program := jack.Program{
		"Main": {
			Name:   "Main",
			Fields: newFields(),
			Subroutines: newSubroutines(jack.Subroutine{
				Name: "main", Type: jack.Function, Return: jack.Int,
				Statements: []jack.Statement{
					jack.VarStmt{Vars: []jack.Variable{{Name: "x", Type: jack.Local, DataType: jack.Int}}},
					jack.LetStmt{Lhs: jack.VarExpr{Var: "x"}, Rhs: jack.LiteralExpr{Type: jack.Int, Value: "1"}},
					jack.ReturnStmt{Expr: jack.VarExpr{Var: "x"}},
				},
			}),
		},
	}

	tc := jack.NewTypeChecker(program)
	problems, err := tc.Check()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(problems) != 0 {
		t.Errorf("expected no type mismatches, got %v", problems)
	}
}

func TestTypeCheckFlagsLetTypeMismatch(t *testing.T) {
	program := jack.Program{
		"Main": {
			Name:   "Main",
			Fields: newFields(),
			Subroutines: newSubroutines(jack.Subroutine{
				Name: "main", Type: jack.Function, Return: jack.Void,
				Statements: []jack.Statement{
					jack.VarStmt{Vars: []jack.Variable{{Name: "x", Type: jack.Local, DataType: jack.Int}}},
					jack.LetStmt{Lhs: jack.VarExpr{Var: "x"}, Rhs: jack.LiteralExpr{Type: jack.String, Value: "oops"}},
					jack.ReturnStmt{},
				},
			}),
		},
	}

	tc := jack.NewTypeChecker(program)
	problems, err := tc.Check()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(problems) != 1 {
		t.Fatalf("expected exactly 1 type mismatch, got %d: %v", len(problems), problems)
	}
}

func TestTypeCheckFlagsReturnTypeMismatch(t *testing.T) {
	program := jack.Program{
		"Main": {
			Name:   "Main",
			Fields: newFields(),
			Subroutines: newSubroutines(jack.Subroutine{
				Name: "main", Type: jack.Function, Return: jack.Void,
				Statements: []jack.Statement{
					jack.ReturnStmt{Expr: jack.LiteralExpr{Type: jack.Int, Value: "1"}},
				},
			}),
		},
	}

	tc := jack.NewTypeChecker(program)
	problems, err := tc.Check()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(problems) != 1 {
		t.Fatalf("expected exactly 1 type mismatch, got %d: %v", len(problems), problems)
	}
}

func TestTypeCheckArithmeticRequiresIntOperands(t *testing.T) {
	program := jack.Program{
		"Main": {
			Name:   "Main",
			Fields: newFields(),
			Subroutines: newSubroutines(jack.Subroutine{
				Name: "main", Type: jack.Function, Return: jack.Void,
				Statements: []jack.Statement{
					jack.VarStmt{Vars: []jack.Variable{{Name: "done", Type: jack.Local, DataType: jack.Bool}}},
					jack.LetStmt{
						Lhs: jack.VarExpr{Var: "done"},
						Rhs: jack.BinaryExpr{Type: jack.Plus, Lhs: jack.LiteralExpr{Type: jack.Bool, Value: "true"}, Rhs: jack.LiteralExpr{Type: jack.Int, Value: "1"}},
					},
					jack.ReturnStmt{},
				},
			}),
		},
	}

	tc := jack.NewTypeChecker(program)
	problems, err := tc.Check()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(problems) == 0 {
		t.Fatalf("expected at least 1 type mismatch from adding a bool to an int")
	}
}

func TestTypeCheckNullIsCompatibleWithObjectSlots(t *testing.T) {
	program := jack.Program{
		"Main": {
			Name:   "Main",
			Fields: newFields(),
			Subroutines: newSubroutines(jack.Subroutine{
				Name: "main", Type: jack.Function, Return: jack.Void,
				Statements: []jack.Statement{
					jack.VarStmt{Vars: []jack.Variable{{Name: "p", Type: jack.Local, DataType: jack.Object, ClassName: "Point"}}},
					jack.LetStmt{Lhs: jack.VarExpr{Var: "p"}, Rhs: jack.LiteralExpr{Type: jack.Object, Value: "null"}},
					jack.ReturnStmt{},
				},
			}),
		},
	}

	tc := jack.NewTypeChecker(program)
	problems, err := tc.Check()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(problems) != 0 {
		t.Errorf("expected 'null' to be assignable to an object-typed variable, got %v", problems)
	}
}

func TestTypeCheckResolvesLocalFuncCallReturnType(t *testing.T) {
	program := jack.Program{
		"Main": {
			Name:   "Main",
			Fields: newFields(),
			Subroutines: newSubroutines(
				jack.Subroutine{
					Name: "main", Type: jack.Function, Return: jack.Void,
					Statements: []jack.Statement{
						jack.VarStmt{Vars: []jack.Variable{{Name: "x", Type: jack.Local, DataType: jack.Int}}},
						jack.LetStmt{Lhs: jack.VarExpr{Var: "x"}, Rhs: jack.FuncCallExpr{FuncName: "compute"}},
						jack.ReturnStmt{},
					},
				},
				jack.Subroutine{
					Name: "compute", Type: jack.Function, Return: jack.Int,
					Statements: []jack.Statement{jack.ReturnStmt{Expr: jack.LiteralExpr{Type: jack.Int, Value: "7"}}},
				},
			),
		},
	}

	tc := jack.NewTypeChecker(program)
	problems, err := tc.Check()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(problems) != 0 {
		t.Errorf("expected no type mismatches resolving a local function call, got %v", problems)
	}
}

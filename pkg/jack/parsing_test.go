package jack_test

import (
	"strings"
	"testing"

	"hmny.dev/n2t-toolchain/pkg/jack"
)

func parseClass(t *testing.T, src string) jack.Class {
	t.Helper()

	parser, err := jack.NewParser(strings.NewReader(src))
	if err != nil {
		t.Fatalf("unexpected error building parser: %v", err)
	}
	class, err := parser.Parse()
	if err != nil {
		t.Fatalf("unexpected error parsing class: %v", err)
	}
	return class
}

func TestParseClassWithFieldsAndStatics(t *testing.T) {
	class := parseClass(t, `
		class Point {
			field int x, y;
			static int count;
		}
	`)

	if class.Name != "Point" {
		t.Fatalf("expected class name 'Point', got '%s'", class.Name)
	}
	if class.Fields.Size() != 3 {
		t.Fatalf("expected 3 fields, got %d", class.Fields.Size())
	}

	x, ok := class.Fields.Get("x")
	if !ok || x.Type != jack.Field || x.DataType != jack.Int {
		t.Errorf("expected field 'x' of type int, got %+v (found=%v)", x, ok)
	}

	count, ok := class.Fields.Get("count")
	if !ok || count.Type != jack.Static {
		t.Errorf("expected static field 'count', got %+v (found=%v)", count, ok)
	}
}

func TestParseConstructorFunctionAndMethod(t *testing.T) {
	class := parseClass(t, `
		class Point {
			field int x, y;

			constructor Point new(int ax, int ay) {
				let x = ax;
				let y = ay;
				return this;
			}

			method int getX() {
				return x;
			}

			function void main() {
				return;
			}
		}
	`)

	if class.Subroutines.Size() != 3 {
		t.Fatalf("expected 3 subroutines, got %d", class.Subroutines.Size())
	}

	ctor, ok := class.Subroutines.Get("new")
	if !ok || ctor.Type != jack.Constructor {
		t.Fatalf("expected a constructor 'new', got %+v (found=%v)", ctor, ok)
	}
	if len(ctor.Arguments) != 2 || ctor.Arguments[0].Name != "ax" || ctor.Arguments[1].Name != "ay" {
		t.Errorf("expected constructor arguments [ax, ay] in declaration order, got %+v", ctor.Arguments)
	}

	method, ok := class.Subroutines.Get("getX")
	if !ok || method.Type != jack.Method || method.Return != jack.Int {
		t.Fatalf("expected method 'getX' returning int, got %+v (found=%v)", method, ok)
	}

	fn, ok := class.Subroutines.Get("main")
	if !ok || fn.Type != jack.Function || fn.Return != jack.Void {
		t.Fatalf("expected function 'main' returning void, got %+v (found=%v)", fn, ok)
	}
}

func TestParseLocalVarDecsPrependedAsVarStmt(t *testing.T) {
	class := parseClass(t, `
		class Main {
			function void main() {
				var int a, b;
				var boolean done;
				let a = 1;
				return;
			}
		}
	`)

	main, _ := class.Subroutines.Get("main")
	if len(main.Statements) == 0 {
		t.Fatalf("expected at least one statement")
	}

	varStmt, ok := main.Statements[0].(jack.VarStmt)
	if !ok {
		t.Fatalf("expected the first statement to be a VarStmt, got %T", main.Statements[0])
	}
	if len(varStmt.Vars) != 3 {
		t.Fatalf("expected 3 local vars (a, b, done), got %d", len(varStmt.Vars))
	}
	if varStmt.Vars[2].DataType != jack.Bool {
		t.Errorf("expected 'done' to be bool, got %s", varStmt.Vars[2].DataType)
	}

	if len(main.Statements) != 3 {
		t.Fatalf("expected 3 total statements (VarStmt, LetStmt, ReturnStmt), got %d", len(main.Statements))
	}
}

func TestParseIfElseAndWhile(t *testing.T) {
	class := parseClass(t, `
		class Main {
			function void main() {
				if (true) {
					let x = 1;
				} else {
					let x = 2;
				}

				while (x) {
					let x = 0;
				}
				return;
			}
		}
	`)

	main, _ := class.Subroutines.Get("main")

	ifStmt, ok := main.Statements[0].(jack.IfStmt)
	if !ok {
		t.Fatalf("expected first statement to be IfStmt, got %T", main.Statements[0])
	}
	if len(ifStmt.ThenBlock) != 1 || len(ifStmt.ElseBlock) != 1 {
		t.Errorf("expected one statement in each if branch, got then=%d else=%d", len(ifStmt.ThenBlock), len(ifStmt.ElseBlock))
	}

	whileStmt, ok := main.Statements[1].(jack.WhileStmt)
	if !ok {
		t.Fatalf("expected second statement to be WhileStmt, got %T", main.Statements[1])
	}
	if len(whileStmt.Block) != 1 {
		t.Errorf("expected one statement in while block, got %d", len(whileStmt.Block))
	}
}

func TestParseDoStatementLocalAndExternalCalls(t *testing.T) {
	class := parseClass(t, `
		class Main {
			function void main() {
				do draw();
				do Output.printString("hi");
				return;
			}
		}
	`)

	main, _ := class.Subroutines.Get("main")

	local, ok := main.Statements[0].(jack.DoStmt)
	if !ok || local.FuncCall.IsExtCall || local.FuncCall.FuncName != "draw" {
		t.Fatalf("expected a local call to 'draw', got %+v (found=%v)", local, ok)
	}

	ext, ok := main.Statements[1].(jack.DoStmt)
	if !ok || !ext.FuncCall.IsExtCall || ext.FuncCall.Var != "Output" || ext.FuncCall.FuncName != "printString" {
		t.Fatalf("expected an external call to 'Output.printString', got %+v (found=%v)", ext, ok)
	}
	if len(ext.FuncCall.Arguments) != 1 {
		t.Fatalf("expected 1 argument, got %d", len(ext.FuncCall.Arguments))
	}
	lit, ok := ext.FuncCall.Arguments[0].(jack.LiteralExpr)
	if !ok || lit.Type != jack.String || lit.Value != "hi" {
		t.Errorf("expected string literal 'hi', got %+v (found=%v)", lit, ok)
	}
}

func TestParseExpressionHasNoOperatorPrecedenceLeftToRight(t *testing.T) {
	class := parseClass(t, `
		class Main {
			function void main() {
				let x = 1 + 2 * 3;
				return;
			}
		}
	`)

	main, _ := class.Subroutines.Get("main")
	let, ok := main.Statements[0].(jack.LetStmt)
	if !ok {
		t.Fatalf("expected a LetStmt, got %T", main.Statements[0])
	}

	// Must parse as (1 + 2) * 3, NOT 1 + (2 * 3), since Jack has no operator precedence.
	outer, ok := let.Rhs.(jack.BinaryExpr)
	if !ok || outer.Type != jack.Multiply {
		t.Fatalf("expected outermost op to be '*', got %+v (found=%v)", outer, ok)
	}

	inner, ok := outer.Lhs.(jack.BinaryExpr)
	if !ok || inner.Type != jack.Plus {
		t.Fatalf("expected lhs of outermost op to be '1 + 2', got %+v (found=%v)", inner, ok)
	}

	rhsLit, ok := outer.Rhs.(jack.LiteralExpr)
	if !ok || rhsLit.Value != "3" {
		t.Fatalf("expected rhs of outermost op to be literal '3', got %+v (found=%v)", rhsLit, ok)
	}
}

func TestParseUnaryMinusAndBoolNot(t *testing.T) {
	class := parseClass(t, `
		class Main {
			function void main() {
				let x = -y;
				let done = ~flag;
				return;
			}
		}
	`)

	main, _ := class.Subroutines.Get("main")

	neg, ok := main.Statements[0].(jack.LetStmt).Rhs.(jack.UnaryExpr)
	if !ok || neg.Type != jack.Minus {
		t.Fatalf("expected unary minus, got %+v (found=%v)", neg, ok)
	}

	not, ok := main.Statements[1].(jack.LetStmt).Rhs.(jack.UnaryExpr)
	if !ok || not.Type != jack.BoolNot {
		t.Fatalf("expected unary bool-not, got %+v (found=%v)", not, ok)
	}
}

func TestParseArrayIndexingOnLhsAndRhs(t *testing.T) {
	class := parseClass(t, `
		class Main {
			function void main() {
				let arr[i] = arr[j];
				return;
			}
		}
	`)

	main, _ := class.Subroutines.Get("main")
	let, ok := main.Statements[0].(jack.LetStmt)
	if !ok {
		t.Fatalf("expected LetStmt, got %T", main.Statements[0])
	}

	lhs, ok := let.Lhs.(jack.ArrayExpr)
	if !ok || lhs.Var != "arr" {
		t.Fatalf("expected lhs to be an ArrayExpr on 'arr', got %+v (found=%v)", lhs, ok)
	}
	rhs, ok := let.Rhs.(jack.ArrayExpr)
	if !ok || rhs.Var != "arr" {
		t.Fatalf("expected rhs to be an ArrayExpr on 'arr', got %+v (found=%v)", rhs, ok)
	}
}

func TestParseParenthesizedExpressionOverridesGrouping(t *testing.T) {
	class := parseClass(t, `
		class Main {
			function void main() {
				let x = (1 + 2) * 3;
				return;
			}
		}
	`)

	main, _ := class.Subroutines.Get("main")
	let := main.Statements[0].(jack.LetStmt)

	outer, ok := let.Rhs.(jack.BinaryExpr)
	if !ok || outer.Type != jack.Multiply {
		t.Fatalf("expected outermost op to be '*', got %+v (found=%v)", outer, ok)
	}
	if _, ok := outer.Lhs.(jack.BinaryExpr); !ok {
		t.Fatalf("expected lhs to still be the parenthesized '1 + 2', got %+v", outer.Lhs)
	}
}

func TestParseKeywordConstants(t *testing.T) {
	class := parseClass(t, `
		class Main {
			function void main() {
				let a = true;
				let b = false;
				let c = null;
				let d = this;
				return;
			}
		}
	`)

	main, _ := class.Subroutines.Get("main")

	trueLit := main.Statements[0].(jack.LetStmt).Rhs.(jack.LiteralExpr)
	if trueLit.Type != jack.Bool || trueLit.Value != "true" {
		t.Errorf("expected bool literal 'true', got %+v", trueLit)
	}

	nullLit := main.Statements[2].(jack.LetStmt).Rhs.(jack.LiteralExpr)
	if nullLit.Type != jack.Object || nullLit.Value != "null" {
		t.Errorf("expected object literal 'null', got %+v", nullLit)
	}

	thisVar := main.Statements[3].(jack.LetStmt).Rhs.(jack.VarExpr)
	if thisVar.Var != "this" {
		t.Errorf("expected var 'this', got %+v", thisVar)
	}
}

func TestParseRejectsMalformedClass(t *testing.T) {
	parser, err := jack.NewParser(strings.NewReader(`class Main { field int x }`))
	if err != nil {
		t.Fatalf("unexpected error building parser: %v", err)
	}
	if _, err := parser.Parse(); err == nil {
		t.Fatalf("expected an error parsing a classVarDec missing its trailing ';'")
	}
}

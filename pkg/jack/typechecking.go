package jack

import (
	"fmt"
)

// ----------------------------------------------------------------------------
// Type Checker

// TypeChecker is a best-effort, advisory pass: unlike the Lowerer it never blocks
// compilation on its own findings, it only surfaces type mismatches the Jack grammar itself
// cannot catch (the original toolchain shipped none of this, so there's no existing behavior
// to stay bug-compatible with). Callers decide whether to treat its errors as fatal.
type TypeChecker struct {
	program Program
	scopes  ScopeTable
}

func NewTypeChecker(program Program) TypeChecker {
	return TypeChecker{program: program, scopes: ScopeTable{}}
}

// Runs the checker over every class in the program. Returns the list of mismatches found
// (possibly empty) and an error only for structural problems (e.g. an empty program) that
// make checking impossible in the first place.
func (tc *TypeChecker) Check() ([]error, error) {
	if len(tc.program) == 0 {
		return nil, fmt.Errorf("the given 'program' is empty or nil")
	}

	var problems []error
	for name, class := range tc.program {
		found, err := tc.HandleClass(class)
		if err != nil {
			return nil, fmt.Errorf("error type-checking class '%s': %w", name, err)
		}
		problems = append(problems, found...)
	}

	return problems, nil
}

// Specialized function to type-check a 'jack.Class' and its nested fields/subroutines.
func (tc *TypeChecker) HandleClass(class Class) ([]error, error) {
	tc.scopes.PushClassScope(class.Name)
	defer tc.scopes.PopClassScope()

	for _, field := range class.Fields.Entries() {
		tc.scopes.RegisterVariable(field.Value)
	}

	var problems []error
	for _, subroutine := range class.Subroutines.Entries() {
		found, err := tc.HandleSubroutine(class, subroutine.Value)
		if err != nil {
			return nil, fmt.Errorf("error type-checking subroutine '%s' in class '%s': %w", subroutine.Value.Name, class.Name, err)
		}
		problems = append(problems, found...)
	}

	return problems, nil
}

// Specialized function to type-check a 'jack.Subroutine' body against its declared return type.
func (tc *TypeChecker) HandleSubroutine(class Class, subroutine Subroutine) ([]error, error) {
	tc.scopes.PushSubRoutineScope(subroutine.Name)
	defer tc.scopes.PopSubroutineScope()

	if subroutine.Type == Method {
		tc.scopes.RegisterVariable(Variable{Name: "__obj", Type: Parameter, DataType: Object, ClassName: class.Name})
	}
	for _, arg := range subroutine.Arguments {
		tc.scopes.RegisterVariable(arg)
	}

	var problems []error
	for _, stmt := range subroutine.Statements {
		found := tc.HandleStatement(subroutine, stmt)
		problems = append(problems, found...)
	}

	return problems, nil
}

// Generalized function to type-check a single statement, descending into nested blocks.
// Errors are collected rather than returned, so one bad statement doesn't abort the whole pass.
func (tc *TypeChecker) HandleStatement(subroutine Subroutine, stmt Statement) []error {
	switch tStmt := stmt.(type) {
	case VarStmt:
		for _, v := range tStmt.Vars {
			tc.scopes.RegisterVariable(v)
		}
		return nil

	case LetStmt:
		lhsType, err := tc.HandleExpression(tStmt.Lhs)
		if err != nil {
			return []error{err}
		}
		rhsType, err := tc.HandleExpression(tStmt.Rhs)
		if err != nil {
			return []error{err}
		}
		if !compatible(lhsType, rhsType) {
			return []error{fmt.Errorf("cannot assign value of type '%s' to variable of type '%s'", rhsType, lhsType)}
		}
		return nil

	case DoStmt:
		if _, err := tc.HandleExpression(tStmt.FuncCall); err != nil {
			return []error{err}
		}
		return nil

	case ReturnStmt:
		if tStmt.Expr == nil {
			if subroutine.Return != Void {
				return []error{fmt.Errorf("subroutine '%s' declares return type '%s' but returns no value", subroutine.Name, subroutine.Return)}
			}
			return nil
		}

		exprType, err := tc.HandleExpression(tStmt.Expr)
		if err != nil {
			return []error{err}
		}
		if !compatible(subroutine.Return, exprType) {
			return []error{fmt.Errorf("subroutine '%s' declares return type '%s' but returns '%s'", subroutine.Name, subroutine.Return, exprType)}
		}
		return nil

	case IfStmt:
		var problems []error
		if _, err := tc.HandleExpression(tStmt.Condition); err != nil {
			problems = append(problems, err)
		}
		for _, s := range tStmt.ThenBlock {
			problems = append(problems, tc.HandleStatement(subroutine, s)...)
		}
		for _, s := range tStmt.ElseBlock {
			problems = append(problems, tc.HandleStatement(subroutine, s)...)
		}
		return problems

	case WhileStmt:
		var problems []error
		if _, err := tc.HandleExpression(tStmt.Condition); err != nil {
			problems = append(problems, err)
		}
		for _, s := range tStmt.Block {
			problems = append(problems, tc.HandleStatement(subroutine, s)...)
		}
		return problems

	default:
		return []error{fmt.Errorf("unrecognized statement: %T", stmt)}
	}
}

// Generalized function to infer (and, where relevant, check) the 'DataType' of an expression.
func (tc *TypeChecker) HandleExpression(expr Expression) (DataType, error) {
	switch tExpr := expr.(type) {
	case LiteralExpr:
		return tExpr.Type, nil

	case VarExpr:
		if tExpr.Var == "this" {
			return Object, nil
		}
		_, variable, err := tc.scopes.ResolveVariable(tExpr.Var)
		if err != nil {
			return "", err
		}
		return variable.DataType, nil

	case ArrayExpr:
		_, variable, err := tc.scopes.ResolveVariable(tExpr.Var)
		if err != nil {
			return "", err
		}
		if _, err := tc.HandleExpression(tExpr.Index); err != nil {
			return "", err
		}
		if variable.DataType != Object {
			return "", fmt.Errorf("variable '%s' is not an array", tExpr.Var)
		}
		return Int, nil // Array element type isn't tracked by the grammar, assume numeric (the common case)

	case UnaryExpr:
		rhsType, err := tc.HandleExpression(tExpr.Rhs)
		if err != nil {
			return "", err
		}
		if tExpr.Type == BoolNot && rhsType != Bool {
			return "", fmt.Errorf("'~' requires a 'bool' operand, got '%s'", rhsType)
		}
		if tExpr.Type == Minus && rhsType != Int {
			return "", fmt.Errorf("unary '-' requires an 'int' operand, got '%s'", rhsType)
		}
		return rhsType, nil

	case BinaryExpr:
		lhsType, err := tc.HandleExpression(tExpr.Lhs)
		if err != nil {
			return "", err
		}
		rhsType, err := tc.HandleExpression(tExpr.Rhs)
		if err != nil {
			return "", err
		}

		switch tExpr.Type {
		case Plus, Minus, Divide, Multiply:
			if lhsType != Int || rhsType != Int {
				return "", fmt.Errorf("arithmetic operator '%s' requires 'int' operands, got '%s' and '%s'", tExpr.Type, lhsType, rhsType)
			}
			return Int, nil
		case BoolAnd, BoolOr:
			if lhsType != Bool || rhsType != Bool {
				return "", fmt.Errorf("boolean operator '%s' requires 'bool' operands, got '%s' and '%s'", tExpr.Type, lhsType, rhsType)
			}
			return Bool, nil
		case Equal, LessThan, GreatThan:
			return Bool, nil
		default:
			return "", fmt.Errorf("unrecognized binary expression type: %s", tExpr.Type)
		}

	case FuncCallExpr:
		return tc.HandleFuncCallExpr(tExpr)

	default:
		return "", fmt.Errorf("unrecognized expression: %T", expr)
	}
}

// Resolves the declared return type of the subroutine targeted by a function call expression.
// Mirrors the lowerer's own dispatch (instance call / external call on a variable / external
// call on a class name) but only reads from the program, it never emits anything.
func (tc *TypeChecker) HandleFuncCallExpr(expr FuncCallExpr) (DataType, error) {
	for _, arg := range expr.Arguments {
		if _, err := tc.HandleExpression(arg); err != nil {
			return "", err
		}
	}

	if !expr.IsExtCall {
		className := tc.scopes.GetScope()
		if idx := indexOfDot(className); idx >= 0 {
			className = className[:idx]
		}
		return tc.lookupReturnType(className, expr.FuncName)
	}

	if _, variable, err := tc.scopes.ResolveVariable(expr.Var); err == nil {
		return tc.lookupReturnType(variable.ClassName, expr.FuncName)
	}

	return tc.lookupReturnType(expr.Var, expr.FuncName)
}

// Finds 'funcName' inside 'className' regardless of how the program map itself is keyed
// (classes are looked up by their own 'Name' field, not the map key).
func (tc *TypeChecker) lookupReturnType(className, funcName string) (DataType, error) {
	for _, c := range tc.program {
		if c.Name != className {
			continue
		}
		routine, exists := c.Subroutines.Get(funcName)
		if !exists {
			return "", fmt.Errorf("subroutine '%s' not found in class '%s'", funcName, className)
		}
		return routine.Return, nil
	}

	if fn, found := LookupStdlib(className, funcName); found {
		return fn.Return, nil
	}

	return "", fmt.Errorf("class definition not found for '%s'", className)
}

// Any object type is considered compatible with any other object type (the checker does not
// track 'ClassName' compatibility rules, e.g. inheritance, since Jack classes don't have any)
// and 'null' is compatible with any object-typed slot (the standard "null is assignable to
// any reference" rule), mirroring exactly how dynamically-typed-at-the-VM-level Jack treats them.
func compatible(want, got DataType) bool {
	if want == got {
		return true
	}
	if want == Object && got == Null {
		return true
	}
	return false
}

func indexOfDot(s string) int {
	for i := 0; i < len(s); i++ {
		if s[i] == '.' {
			return i
		}
	}
	return -1
}

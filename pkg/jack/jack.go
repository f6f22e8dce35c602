package jack

import "hmny.dev/n2t-toolchain/pkg/utils"

// ----------------------------------------------------------------------------
// Program & Classes
//
// Jack has exactly one top-level construct: the class. A Program is a set of classes,
// each one destined to become its own .vm module once lowered — the same one-file-per-class
// mapping the JVM uses for .java/.class, just without a separate "package" layer above it.
// Execution always starts at 'Main.main', resolved by the host toolchain, not by this package.

type Program map[string]Class

// Class bundles a name, its fields (the instance/static state) and its subroutines (the
// instance/static behavior) under one declaration. There's no inheritance or interfaces in
// Jack, so a Class is a flat record — nothing here ever refers to another Class by pointer.
type Class struct {
	Name        string
	Fields      utils.OrderedMap[string, Variable]
	Subroutines utils.OrderedMap[string, Subroutine]
}

// ----------------------------------------------------------------------------
// Subroutines

// SubroutineType distinguishes the three call conventions Jack supports; the lowerer picks
// a different ABI prologue for each (see pkg/jack/lowering.go and pkg/jack/stdlib.go).
type SubroutineType string

const (
	Method      SubroutineType = "method"      // implicit 'this' receiver, passed as hidden argument 0
	Function    SubroutineType = "function"    // no receiver, a plain static call
	Constructor SubroutineType = "constructor" // allocates 'this' before running the body
)

// Subroutine is a named, typed sequence of statements. 'Arguments' order is load-bearing:
// it fixes each parameter's stack slot in the generated VM code, independent of this struct.
type Subroutine struct {
	Name string
	Type SubroutineType

	Return    DataType
	Arguments []Variable

	Statements []Statement
}

// ----------------------------------------------------------------------------
// Statements
//
// Statement has no methods — it exists purely so the six concrete statement kinds below
// can be stored together in a []Statement and recovered with a type switch during lowering.
type Statement interface{}

// DoStmt calls a subroutine purely for its side effects; any return value is discarded.
type DoStmt struct {
	FuncCall FuncCallExpr
}

// VarStmt introduces one or more local variables without assigning them a value.
type VarStmt struct {
	Vars []Variable
}

// LetStmt assigns 'Rhs' to 'Lhs'. 'Lhs' is restricted by the parser to a VarExpr or
// ArrayExpr — an assignment target, never an arbitrary expression.
type LetStmt struct {
	Lhs Expression
	Rhs Expression
}

// ReturnStmt hands control back to the caller, optionally carrying a value; 'Expr' is nil
// for a subroutine declared to return 'void'.
type ReturnStmt struct {
	Expr Expression
}

// IfStmt forks control flow on 'Condition'; 'ElseBlock' may be empty (no 'else' clause).
type IfStmt struct {
	Condition Expression
	ThenBlock []Statement
	ElseBlock []Statement
}

// WhileStmt repeats 'Block' for as long as 'Condition' holds.
type WhileStmt struct {
	Condition Expression
	Block     []Statement
}

// ----------------------------------------------------------------------------
// Expressions
//
// Like Statement, Expression is an empty marker interface; the six kinds below are
// recovered with a type switch wherever an expression needs evaluating or type-checking.
type Expression interface{}

// VarExpr reads the current value of a named variable (local, argument, field or static).
type VarExpr struct {
	Var string
}

// LiteralExpr is a compile-time constant: an int, a char code, a quoted string, a bool,
// or the 'null' keyword. 'Value' is always the literal's source text, never pre-parsed.
type LiteralExpr struct {
	Type  DataType
	Value string
}

// ArrayExpr reads one element of an array-typed variable at a (possibly computed) index.
type ArrayExpr struct {
	Var   string
	Index Expression
}

// UnaryExpr applies a single-operand operator — only 'Minus' (negation) and 'BoolNot' are
// valid here; every other ExprType belongs to BinaryExpr instead.
type UnaryExpr struct {
	Type ExprType
	Rhs  Expression
}

// BinaryExpr combines two operands; every ExprType except 'BoolNot' is valid here.
type BinaryExpr struct {
	Type ExprType
	Lhs  Expression
	Rhs  Expression
}

// FuncCallExpr invokes a subroutine. When 'IsExtCall' is set, 'Var' names either an object
// instance ("obj.method(...)") or a class ("Class.function(...)"); when clear, the call
// targets a method or function of the enclosing class and 'Var' is empty.
type FuncCallExpr struct {
	IsExtCall bool
	Var       string
	FuncName  string

	Arguments []Expression
}

// ExprType enumerates every unary and binary operator Jack expressions can carry.
type ExprType string

const (
	Plus     ExprType = "plus"
	Minus    ExprType = "minus" // binary subtraction when in a BinaryExpr, negation when in a UnaryExpr
	Divide   ExprType = "divide"
	Multiply ExprType = "multiply"

	BoolOr  ExprType = "bool_or"
	BoolAnd ExprType = "bool_and"
	BoolNot ExprType = "bool_neg" // unary only

	Equal     ExprType = "equal"
	LessThan  ExprType = "less_than"
	GreatThan ExprType = "greater_than"
)

// ----------------------------------------------------------------------------
// Variables

// VarType distinguishes the four places a Variable can live; it governs which VM memory
// segment the lowerer targets (local/argument/this/static), independent of its DataType.
type VarType string

const (
	Local     VarType = "local"
	Field     VarType = "field"
	Static    VarType = "static"
	Parameter VarType = "parameter"
)

// DataType is the value's shape: a primitive, 'void' (subroutine return only), or a
// user-defined class instance — in which case 'Variable.ClassName' names which one.
type DataType string

const (
	Int    DataType = "int"
	Bool   DataType = "bool"
	Char   DataType = "char"
	Null   DataType = "null"
	String DataType = "string"
	Void   DataType = "void"
	Object DataType = "object"
)

// Variable is shared by every declaration site Jack has: class fields (static or instance),
// subroutine parameters, and local variables all use this one struct, distinguished by 'Type'.
type Variable struct {
	Name      string
	Type      VarType
	DataType  DataType
	ClassName string // only meaningful when DataType == Object
}

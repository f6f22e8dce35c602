package jack

import (
	"fmt"
	"io"

	"hmny.dev/n2t-toolchain/pkg/utils"
)

// ----------------------------------------------------------------------------
// Jack Parser

// This section defines the Parser for the nand2tetris Jack language: a hand-rolled recursive
// descent parser over the 'Tokenizer' stream, producing 'jack.Class' directly (no intermediate
// generic AST to walk a second time, unlike the Vm and Asm parsers, since Jack's grammar needs
// real lookahead - e.g. telling a local call 'foo(x)' apart from a variable read 'foo' apart
// from a field access 'foo.bar(x)' all share the same leading identifier token).
//
// Jack deliberately has no operator precedence: 'a + b * c' evaluates strictly left to right,
// so 'parseExpression' never needs a precedence table, just flat left-associative folding.
type Parser struct{ tokens *Tokenizer }

// Initializes and returns to the caller a brand new 'Parser' struct.
func NewParser(r io.Reader) (*Parser, error) {
	tokens, err := NewTokenizer(r)
	if err != nil {
		return nil, fmt.Errorf("failed to tokenize input: %w", err)
	}
	return &Parser{tokens: tokens}, nil
}

// Parses a full translation unit (one Jack '.jack' file, i.e. exactly one class).
func (p *Parser) Parse() (Class, error) {
	return p.parseClass()
}

func (p *Parser) parseClass() (Class, error) {
	if err := p.expectKeyword("class"); err != nil {
		return Class{}, err
	}
	name, err := p.expectIdentifier()
	if err != nil {
		return Class{}, err
	}
	if err := p.expectSymbol("{"); err != nil {
		return Class{}, err
	}

	class := Class{
		Name:        name,
		Fields:      utils.NewOrderedMap[string, Variable](),
		Subroutines: utils.NewOrderedMap[string, Subroutine](),
	}

	for p.tokens.Peek().Value == "static" || p.tokens.Peek().Value == "field" {
		vars, err := p.parseClassVarDec()
		if err != nil {
			return Class{}, err
		}
		for _, v := range vars {
			class.Fields.Set(v.Name, v)
		}
	}

	for isSubroutineKind(p.tokens.Peek().Value) {
		sub, err := p.parseSubroutineDec()
		if err != nil {
			return Class{}, err
		}
		class.Subroutines.Set(sub.Name, sub)
	}

	if err := p.expectSymbol("}"); err != nil {
		return Class{}, err
	}
	return class, nil
}

func isSubroutineKind(kw string) bool {
	return kw == "constructor" || kw == "function" || kw == "method"
}

// classVarDec: ('static'|'field') type varName (',' varName)* ';'
func (p *Parser) parseClassVarDec() ([]Variable, error) {
	kind := p.tokens.Next().Value

	varType := Field
	if kind == "static" {
		varType = Static
	}

	dataType, className, err := p.parseType()
	if err != nil {
		return nil, err
	}

	names, err := p.parseNameList()
	if err != nil {
		return nil, err
	}
	if err := p.expectSymbol(";"); err != nil {
		return nil, err
	}

	vars := make([]Variable, 0, len(names))
	for _, name := range names {
		vars = append(vars, Variable{Name: name, Type: varType, DataType: dataType, ClassName: className})
	}
	return vars, nil
}

// varDec: 'var' type varName (',' varName)* ';'
func (p *Parser) parseVarDec() ([]Variable, error) {
	if err := p.expectKeyword("var"); err != nil {
		return nil, err
	}

	dataType, className, err := p.parseType()
	if err != nil {
		return nil, err
	}

	names, err := p.parseNameList()
	if err != nil {
		return nil, err
	}
	if err := p.expectSymbol(";"); err != nil {
		return nil, err
	}

	vars := make([]Variable, 0, len(names))
	for _, name := range names {
		vars = append(vars, Variable{Name: name, Type: Local, DataType: dataType, ClassName: className})
	}
	return vars, nil
}

// Parses a comma-separated list of at least one identifier, e.g. "x, y, z".
func (p *Parser) parseNameList() ([]string, error) {
	first, err := p.expectIdentifier()
	if err != nil {
		return nil, err
	}
	names := []string{first}

	for p.tokens.Peek().Value == "," {
		p.tokens.Next()
		name, err := p.expectIdentifier()
		if err != nil {
			return nil, err
		}
		names = append(names, name)
	}
	return names, nil
}

// type: 'int' | 'char' | 'boolean' | 'void' | className
func (p *Parser) parseType() (DataType, string, error) {
	tok := p.tokens.Next()
	switch tok.Value {
	case "int":
		return Int, "", nil
	case "char":
		return Char, "", nil
	case "boolean":
		return Bool, "", nil
	case "void":
		return Void, "", nil
	default:
		if tok.Type != IdentifierToken {
			return "", "", fmt.Errorf("expected a type, got '%s'", tok.Value)
		}
		return Object, tok.Value, nil
	}
}

// subroutineDec: ('constructor'|'function'|'method') ('void'|type) subroutineName
//
//	'(' parameterList ')' subroutineBody
func (p *Parser) parseSubroutineDec() (Subroutine, error) {
	kind := p.tokens.Next().Value

	var subType SubroutineType
	switch kind {
	case "constructor":
		subType = Constructor
	case "function":
		subType = Function
	case "method":
		subType = Method
	}

	returnType, _, err := p.parseType()
	if err != nil {
		return Subroutine{}, err
	}

	name, err := p.expectIdentifier()
	if err != nil {
		return Subroutine{}, err
	}

	if err := p.expectSymbol("("); err != nil {
		return Subroutine{}, err
	}
	args, err := p.parseParameterList()
	if err != nil {
		return Subroutine{}, err
	}
	if err := p.expectSymbol(")"); err != nil {
		return Subroutine{}, err
	}

	statements, err := p.parseSubroutineBody()
	if err != nil {
		return Subroutine{}, err
	}

	return Subroutine{Name: name, Type: subType, Return: returnType, Arguments: args, Statements: statements}, nil
}

// parameterList: ((type varName) (',' type varName)*)?
func (p *Parser) parseParameterList() ([]Variable, error) {
	args := []Variable{}
	if p.tokens.Peek().Value == ")" {
		return args, nil
	}

	for {
		dataType, className, err := p.parseType()
		if err != nil {
			return nil, err
		}
		name, err := p.expectIdentifier()
		if err != nil {
			return nil, err
		}
		args = append(args, Variable{Name: name, Type: Parameter, DataType: dataType, ClassName: className})

		if p.tokens.Peek().Value != "," {
			break
		}
		p.tokens.Next()
	}
	return args, nil
}

// subroutineBody: '{' varDec* statements '}'
func (p *Parser) parseSubroutineBody() ([]Statement, error) {
	if err := p.expectSymbol("{"); err != nil {
		return nil, err
	}

	locals := []Variable{}
	for p.tokens.Peek().Value == "var" {
		vars, err := p.parseVarDec()
		if err != nil {
			return nil, err
		}
		locals = append(locals, vars...)
	}

	body, err := p.parseStatements()
	if err != nil {
		return nil, err
	}

	if err := p.expectSymbol("}"); err != nil {
		return nil, err
	}

	if len(locals) == 0 {
		return body, nil
	}
	return append([]Statement{VarStmt{Vars: locals}}, body...), nil
}

// statements: statement*
func (p *Parser) parseStatements() ([]Statement, error) {
	statements := []Statement{}

	for isStatementKeyword(p.tokens.Peek()) {
		stmt, err := p.parseStatement()
		if err != nil {
			return nil, err
		}
		statements = append(statements, stmt)
	}
	return statements, nil
}

func isStatementKeyword(tok Token) bool {
	if tok.Type != KeywordToken {
		return false
	}
	switch tok.Value {
	case "let", "if", "while", "do", "return":
		return true
	default:
		return false
	}
}

func (p *Parser) parseStatement() (Statement, error) {
	switch p.tokens.Peek().Value {
	case "let":
		return p.parseLetStatement()
	case "if":
		return p.parseIfStatement()
	case "while":
		return p.parseWhileStatement()
	case "do":
		return p.parseDoStatement()
	case "return":
		return p.parseReturnStatement()
	default:
		return nil, fmt.Errorf("unexpected token '%s', expected a statement", p.tokens.Peek().Value)
	}
}

// letStatement: 'let' varName ('[' expression ']')? '=' expression ';'
func (p *Parser) parseLetStatement() (Statement, error) {
	if err := p.expectKeyword("let"); err != nil {
		return nil, err
	}
	name, err := p.expectIdentifier()
	if err != nil {
		return nil, err
	}

	var lhs Expression = VarExpr{Var: name}
	if p.tokens.Peek().Value == "[" {
		p.tokens.Next()
		index, err := p.parseExpression()
		if err != nil {
			return nil, err
		}
		if err := p.expectSymbol("]"); err != nil {
			return nil, err
		}
		lhs = ArrayExpr{Var: name, Index: index}
	}

	if err := p.expectSymbol("="); err != nil {
		return nil, err
	}
	rhs, err := p.parseExpression()
	if err != nil {
		return nil, err
	}
	if err := p.expectSymbol(";"); err != nil {
		return nil, err
	}

	return LetStmt{Lhs: lhs, Rhs: rhs}, nil
}

// ifStatement: 'if' '(' expression ')' '{' statements '}' ('else' '{' statements '}')?
func (p *Parser) parseIfStatement() (Statement, error) {
	if err := p.expectKeyword("if"); err != nil {
		return nil, err
	}
	if err := p.expectSymbol("("); err != nil {
		return nil, err
	}
	condition, err := p.parseExpression()
	if err != nil {
		return nil, err
	}
	if err := p.expectSymbol(")"); err != nil {
		return nil, err
	}
	if err := p.expectSymbol("{"); err != nil {
		return nil, err
	}
	thenBlock, err := p.parseStatements()
	if err != nil {
		return nil, err
	}
	if err := p.expectSymbol("}"); err != nil {
		return nil, err
	}

	var elseBlock []Statement
	if p.tokens.Peek().Value == "else" {
		p.tokens.Next()
		if err := p.expectSymbol("{"); err != nil {
			return nil, err
		}
		elseBlock, err = p.parseStatements()
		if err != nil {
			return nil, err
		}
		if err := p.expectSymbol("}"); err != nil {
			return nil, err
		}
	}

	return IfStmt{Condition: condition, ThenBlock: thenBlock, ElseBlock: elseBlock}, nil
}

// whileStatement: 'while' '(' expression ')' '{' statements '}'
func (p *Parser) parseWhileStatement() (Statement, error) {
	if err := p.expectKeyword("while"); err != nil {
		return nil, err
	}
	if err := p.expectSymbol("("); err != nil {
		return nil, err
	}
	condition, err := p.parseExpression()
	if err != nil {
		return nil, err
	}
	if err := p.expectSymbol(")"); err != nil {
		return nil, err
	}
	if err := p.expectSymbol("{"); err != nil {
		return nil, err
	}
	block, err := p.parseStatements()
	if err != nil {
		return nil, err
	}
	if err := p.expectSymbol("}"); err != nil {
		return nil, err
	}

	return WhileStmt{Condition: condition, Block: block}, nil
}

// doStatement: 'do' subroutineCall ';'
func (p *Parser) parseDoStatement() (Statement, error) {
	if err := p.expectKeyword("do"); err != nil {
		return nil, err
	}

	name, err := p.expectIdentifier()
	if err != nil {
		return nil, err
	}

	call, err := p.parseSubroutineCallTail(name)
	if err != nil {
		return nil, err
	}
	if err := p.expectSymbol(";"); err != nil {
		return nil, err
	}

	return DoStmt{FuncCall: call}, nil
}

// returnStatement: 'return' expression? ';'
func (p *Parser) parseReturnStatement() (Statement, error) {
	if err := p.expectKeyword("return"); err != nil {
		return nil, err
	}

	if p.tokens.Peek().Value == ";" {
		p.tokens.Next()
		return ReturnStmt{}, nil
	}

	expr, err := p.parseExpression()
	if err != nil {
		return nil, err
	}
	if err := p.expectSymbol(";"); err != nil {
		return nil, err
	}
	return ReturnStmt{Expr: expr}, nil
}

// expression: term (op term)*, folded strictly left to right (Jack defines no precedence).
func (p *Parser) parseExpression() (Expression, error) {
	lhs, err := p.parseTerm()
	if err != nil {
		return nil, err
	}

	for {
		opType, isOp := exprTypeFromOp(p.tokens.Peek())
		if !isOp {
			return lhs, nil
		}
		p.tokens.Next()

		rhs, err := p.parseTerm()
		if err != nil {
			return nil, err
		}
		lhs = BinaryExpr{Type: opType, Lhs: lhs, Rhs: rhs}
	}
}

func exprTypeFromOp(tok Token) (ExprType, bool) {
	if tok.Type != SymbolToken {
		return "", false
	}
	switch tok.Value {
	case "+":
		return Plus, true
	case "-":
		return Minus, true
	case "*":
		return Multiply, true
	case "/":
		return Divide, true
	case "&":
		return BoolAnd, true
	case "|":
		return BoolOr, true
	case "<":
		return LessThan, true
	case ">":
		return GreatThan, true
	case "=":
		return Equal, true
	default:
		return "", false
	}
}

// term: integerConstant | stringConstant | keywordConstant | varName | varName '[' expression ']'
//
//	| subroutineCall | '(' expression ')' | unaryOp term
func (p *Parser) parseTerm() (Expression, error) {
	tok := p.tokens.Peek()

	switch tok.Type {
	case IntConstToken:
		p.tokens.Next()
		return LiteralExpr{Type: Int, Value: tok.Value}, nil

	case StringConstToken:
		p.tokens.Next()
		return LiteralExpr{Type: String, Value: tok.Value}, nil

	case KeywordToken:
		switch tok.Value {
		case "true", "false":
			p.tokens.Next()
			return LiteralExpr{Type: Bool, Value: tok.Value}, nil
		case "null":
			p.tokens.Next()
			return LiteralExpr{Type: Object, Value: "null"}, nil
		case "this":
			p.tokens.Next()
			return VarExpr{Var: "this"}, nil
		default:
			return nil, fmt.Errorf("unexpected keyword '%s' in expression", tok.Value)
		}

	case SymbolToken:
		switch tok.Value {
		case "(":
			p.tokens.Next()
			expr, err := p.parseExpression()
			if err != nil {
				return nil, err
			}
			if err := p.expectSymbol(")"); err != nil {
				return nil, err
			}
			return expr, nil
		case "-":
			p.tokens.Next()
			rhs, err := p.parseTerm()
			if err != nil {
				return nil, err
			}
			return UnaryExpr{Type: Minus, Rhs: rhs}, nil
		case "~":
			p.tokens.Next()
			rhs, err := p.parseTerm()
			if err != nil {
				return nil, err
			}
			return UnaryExpr{Type: BoolNot, Rhs: rhs}, nil
		default:
			return nil, fmt.Errorf("unexpected symbol '%s' in expression", tok.Value)
		}

	case IdentifierToken:
		name, err := p.expectIdentifier()
		if err != nil {
			return nil, err
		}

		switch p.tokens.Peek().Value {
		case "[":
			p.tokens.Next()
			index, err := p.parseExpression()
			if err != nil {
				return nil, err
			}
			if err := p.expectSymbol("]"); err != nil {
				return nil, err
			}
			return ArrayExpr{Var: name, Index: index}, nil

		case "(", ".":
			return p.parseSubroutineCallTail(name)

		default:
			return VarExpr{Var: name}, nil
		}

	default:
		return nil, fmt.Errorf("unexpected end of input while parsing an expression")
	}
}

// subroutineCall: subroutineName '(' expressionList ')' | (className|varName) '.' subroutineName '(' expressionList ')'
//
// 'name' is the identifier already consumed by the caller; we only need to look one token
// ahead ('.' vs '(') to tell a local call from a qualified one.
func (p *Parser) parseSubroutineCallTail(name string) (FuncCallExpr, error) {
	isExtCall, target, funcName := false, "", name

	if p.tokens.Peek().Value == "." {
		p.tokens.Next()
		method, err := p.expectIdentifier()
		if err != nil {
			return FuncCallExpr{}, err
		}
		isExtCall, target, funcName = true, name, method
	}

	if err := p.expectSymbol("("); err != nil {
		return FuncCallExpr{}, err
	}
	args, err := p.parseExpressionList()
	if err != nil {
		return FuncCallExpr{}, err
	}
	if err := p.expectSymbol(")"); err != nil {
		return FuncCallExpr{}, err
	}

	return FuncCallExpr{IsExtCall: isExtCall, Var: target, FuncName: funcName, Arguments: args}, nil
}

// expressionList: (expression (',' expression)*)?
func (p *Parser) parseExpressionList() ([]Expression, error) {
	args := []Expression{}
	if p.tokens.Peek().Value == ")" {
		return args, nil
	}

	for {
		expr, err := p.parseExpression()
		if err != nil {
			return nil, err
		}
		args = append(args, expr)

		if p.tokens.Peek().Value != "," {
			break
		}
		p.tokens.Next()
	}
	return args, nil
}

// ----------------------------------------------------------------------------
// Token stream helpers

func (p *Parser) expectKeyword(kw string) error {
	tok := p.tokens.Next()
	if tok.Type != KeywordToken || tok.Value != kw {
		return fmt.Errorf("expected keyword '%s', got '%s'", kw, tok.Value)
	}
	return nil
}

func (p *Parser) expectSymbol(sym string) error {
	tok := p.tokens.Next()
	if tok.Type != SymbolToken || tok.Value != sym {
		return fmt.Errorf("expected symbol '%s', got '%s'", sym, tok.Value)
	}
	return nil
}

func (p *Parser) expectIdentifier() (string, error) {
	tok := p.tokens.Next()
	if tok.Type != IdentifierToken {
		return "", fmt.Errorf("expected an identifier, got '%s'", tok.Value)
	}
	return tok.Value, nil
}

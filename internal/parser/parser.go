// Package parser implements the recursive-descent-for-declarations,
// Pratt-precedence-for-expressions parser described in spec §4.4.
package parser

import (
	"fmt"

	"minij/internal/ast"
	"minij/internal/diag"
	"minij/internal/lexer"
)

// ErrorKind classifies why the parser stopped.
type ErrorKind int

const (
	ExpectedToken ErrorKind = iota
	ExpectedExpression
	ExpectedStatement
	ExpectedType
)

func (k ErrorKind) String() string {
	switch k {
	case ExpectedToken:
		return "ExpectedToken"
	case ExpectedExpression:
		return "ExpectedExpression"
	case ExpectedStatement:
		return "ExpectedStatement"
	case ExpectedType:
		return "ExpectedType"
	default:
		return "UnknownParseError"
	}
}

// ParseError is returned by Parse on the first syntax error; the parser does
// not attempt recovery (spec §4.4: "the first syntax error terminates the
// parser").
type ParseError struct {
	Kind     ErrorKind
	Expected string
	Span     lexer.Span
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("%s: expected %s at line %d", e.Kind, e.Expected, e.Span.Begin.Line)
}

// Parser consumes a lexer.Lexer's token stream and builds an *ast.Program.
type Parser struct {
	lex  *lexer.Lexer
	sink *diag.Sink
	err  *ParseError
}

// New returns a Parser reading tokens from lex, reporting syntax errors to
// sink in addition to returning them from Parse.
func New(lex *lexer.Lexer, sink *diag.Sink) *Parser {
	return &Parser{lex: lex, sink: sink}
}

// Parse runs the full Goal production. On the first syntax error it reports
// to the sink, stops descending, and returns the error; the partially built
// tree (if any) is discarded by the caller rather than trusted, per spec
// §7's "syntax error ... compile fails with code 2".
func (p *Parser) Parse() (*ast.Program, error) {
	main := p.parseMainClass()
	if p.err != nil {
		return nil, p.err
	}
	base := ast.NewBase(main.Line())
	prog := &ast.Program{Base: base, Main: main}
	for p.peek().Type != lexer.TokenEOF {
		c := p.parseClass()
		if p.err != nil {
			return nil, p.err
		}
		prog.Classes = append(prog.Classes, c)
	}
	return prog, nil
}

// ---- token helpers --------------------------------------------------------

func (p *Parser) peek() lexer.Token       { return p.lex.Peek(0) }
func (p *Parser) peekAt(n int) lexer.Token { return p.lex.Peek(n) }

func (p *Parser) advance() lexer.Token {
	return p.lex.Next()
}

// fail records a ParseError and returns it; once set it "latches" so callers
// unwinding the recursive-descent stack all observe the same stop condition
// without needing to check an error return at every single call site.
func (p *Parser) fail(kind ErrorKind, expected string, tok lexer.Token) *ParseError {
	if p.err != nil {
		return p.err
	}
	e := &ParseError{Kind: kind, Expected: expected, Span: tok.Span}
	p.err = e
	p.sink.Err(diag.Span{Line: tok.Span.Begin.Line, Column: tok.Span.Begin.Column, Offset: tok.Span.Begin.Offset},
		"%s: expected %s, found %q", kind, expected, tok.Lexeme)
	return e
}

// expect consumes and returns the next token if it matches t, else fails.
func (p *Parser) expect(t lexer.TokenType) lexer.Token {
	tok := p.peek()
	if p.err != nil || tok.Type != t {
		p.fail(ExpectedToken, string(t), tok)
		return tok
	}
	return p.advance()
}

func (p *Parser) at(t lexer.TokenType) bool {
	return p.err == nil && p.peek().Type == t
}

func (p *Parser) accept(t lexer.TokenType) (lexer.Token, bool) {
	if p.at(t) {
		return p.advance(), true
	}
	return lexer.Token{}, false
}

// ---- declarations ---------------------------------------------------------

func (p *Parser) parseMainClass() *ast.MainClass {
	start := p.peek()
	p.expect(lexer.TokenPublic)
	p.expect(lexer.TokenClass)
	name := p.expect(lexer.TokenIdentifier)
	p.expect(lexer.TokenLBrace)
	p.expect(lexer.TokenPublic)
	p.expect(lexer.TokenStatic)
	p.expect(lexer.TokenVoid)
	p.expect(lexer.TokenMain)
	p.expect(lexer.TokenLParen)
	p.expect(lexer.TokenString)
	p.expect(lexer.TokenLBracket)
	p.expect(lexer.TokenRBracket)
	arg := p.expect(lexer.TokenIdentifier)
	p.expect(lexer.TokenRParen)
	p.expect(lexer.TokenLBrace)
	var body []ast.Stmt
	for !p.at(lexer.TokenRBrace) && p.err == nil {
		body = append(body, p.parseStatement())
	}
	p.expect(lexer.TokenRBrace)
	p.expect(lexer.TokenRBrace)
	if p.err != nil {
		return &ast.MainClass{Base: ast.NewBase(start.Line())}
	}
	return &ast.MainClass{
		Base:      ast.NewBase(start.Line()),
		ClassName: name.Lexeme,
		ArgName:   arg.Lexeme,
		Body:      body,
	}
}

func (p *Parser) parseClass() *ast.Class {
	start := p.peek()
	p.expect(lexer.TokenClass)
	name := p.expect(lexer.TokenIdentifier)
	p.expect(lexer.TokenLBrace)

	var fields []*ast.Variable
	for p.startsType() && p.err == nil {
		fields = append(fields, p.parseVarDecl())
	}
	var methods []*ast.Method
	for p.at(lexer.TokenPublic) && p.err == nil {
		methods = append(methods, p.parseMethod())
	}
	p.expect(lexer.TokenRBrace)
	if p.err != nil {
		return &ast.Class{Base: ast.NewBase(start.Line())}
	}
	return &ast.Class{Base: ast.NewBase(start.Line()), Name: name.Lexeme, Fields: fields, Methods: methods}
}

// startsType reports whether the current token can begin a Type production,
// used to decide whether another VarDecl follows inside a class or method
// body (the grammar has no other way to tell a VarDecl from a Statement at
// one token of lookahead besides: does it start with a type keyword or an
// identifier followed by another identifier).
func (p *Parser) startsType() bool {
	t := p.peek()
	switch t.Type {
	case lexer.TokenInt, lexer.TokenBoolean:
		return true
	case lexer.TokenIdentifier:
		// "Foo bar;" (class-typed var decl) vs "foo = expr;" (assignment
		// statement): distinguish by whether a second identifier follows.
		return p.peekAt(1).Type == lexer.TokenIdentifier
	default:
		return false
	}
}

func (p *Parser) parseVarDecl() *ast.Variable {
	start := p.peek()
	typ := p.parseType()
	name := p.expect(lexer.TokenIdentifier)
	p.expect(lexer.TokenSemi)
	if p.err != nil {
		return &ast.Variable{Base: ast.NewBase(start.Line())}
	}
	return &ast.Variable{Base: ast.NewBase(start.Line()), Type: typ, Name: name.Lexeme}
}

func (p *Parser) parseType() *ast.Type {
	start := p.peek()
	switch start.Type {
	case lexer.TokenInt:
		p.advance()
		if _, ok := p.accept(lexer.TokenLBracket); ok {
			p.expect(lexer.TokenRBracket)
			return &ast.Type{Base: ast.NewBase(start.Line()), Name: "int[]"}
		}
		return &ast.Type{Base: ast.NewBase(start.Line()), Name: "int"}
	case lexer.TokenBoolean:
		p.advance()
		return &ast.Type{Base: ast.NewBase(start.Line()), Name: "boolean"}
	case lexer.TokenIdentifier:
		p.advance()
		return &ast.Type{Base: ast.NewBase(start.Line()), Name: start.Lexeme}
	default:
		p.fail(ExpectedType, "a type", start)
		return &ast.Type{Base: ast.NewBase(start.Line())}
	}
}

func (p *Parser) parseMethod() *ast.Method {
	start := p.peek()
	p.expect(lexer.TokenPublic)
	retType := p.parseType()
	name := p.expect(lexer.TokenIdentifier)
	p.expect(lexer.TokenLParen)
	var params []*ast.MethodParameter
	if !p.at(lexer.TokenRParen) {
		params = append(params, p.parseParam())
		for {
			if _, ok := p.accept(lexer.TokenComma); !ok {
				break
			}
			params = append(params, p.parseParam())
		}
	}
	p.expect(lexer.TokenRParen)
	p.expect(lexer.TokenLBrace)

	var locals []*ast.Variable
	for p.startsType() && p.err == nil {
		locals = append(locals, p.parseVarDecl())
	}
	var body []ast.Stmt
	for !p.at(lexer.TokenReturn) && !p.at(lexer.TokenRBrace) && p.err == nil {
		body = append(body, p.parseStatement())
	}
	p.expect(lexer.TokenReturn)
	retExpr := p.parseExpr(0)
	p.expect(lexer.TokenSemi)
	p.expect(lexer.TokenRBrace)
	if p.err != nil {
		return &ast.Method{Base: ast.NewBase(start.Line())}
	}
	return &ast.Method{
		Base:       ast.NewBase(start.Line()),
		ReturnType: retType,
		Name:       name.Lexeme,
		Params:     params,
		Locals:     locals,
		Body:       body,
		ReturnExpr: retExpr,
	}
}

func (p *Parser) parseParam() *ast.MethodParameter {
	start := p.peek()
	typ := p.parseType()
	name := p.expect(lexer.TokenIdentifier)
	if p.err != nil {
		return &ast.MethodParameter{Base: ast.NewBase(start.Line())}
	}
	return &ast.MethodParameter{Base: ast.NewBase(start.Line()), Type: typ, Name: name.Lexeme}
}

// ---- statements -------------------------------------------------------

func (p *Parser) parseStatement() ast.Stmt {
	start := p.peek()
	switch start.Type {
	case lexer.TokenLBrace:
		return p.parseBlock()
	case lexer.TokenIf:
		return p.parseIf()
	case lexer.TokenWhile:
		return p.parseWhile()
	case lexer.TokenPrintln:
		return p.parsePrint()
	case lexer.TokenIdentifier:
		return p.parseAssignOrArrayAssign()
	default:
		p.fail(ExpectedStatement, "a statement", start)
		return &ast.EmptyStatement{Base: ast.NewBase(start.Line())}
	}
}

func (p *Parser) parseBlock() ast.Stmt {
	start := p.expect(lexer.TokenLBrace)
	var stmts []ast.Stmt
	for !p.at(lexer.TokenRBrace) && p.err == nil {
		stmts = append(stmts, p.parseStatement())
	}
	p.expect(lexer.TokenRBrace)
	if len(stmts) == 0 {
		return &ast.EmptyStatement{Base: ast.NewBase(start.Line())}
	}
	return &ast.StatementList{Base: ast.NewBase(start.Line()), Stmts: stmts}
}

func (p *Parser) parseIf() ast.Stmt {
	start := p.expect(lexer.TokenIf)
	p.expect(lexer.TokenLParen)
	cond := p.parseExpr(0)
	p.expect(lexer.TokenRParen)
	then := p.parseStatement()
	if _, ok := p.accept(lexer.TokenElse); ok {
		els := p.parseStatement()
		if p.err != nil {
			return &ast.EmptyStatement{Base: ast.NewBase(start.Line())}
		}
		return &ast.IfElse{Base: ast.NewBase(start.Line()), Cond: cond, Then: then, Else: els}
	}
	if p.err != nil {
		return &ast.EmptyStatement{Base: ast.NewBase(start.Line())}
	}
	return &ast.If{Base: ast.NewBase(start.Line()), Cond: cond, Then: then}
}

func (p *Parser) parseWhile() ast.Stmt {
	start := p.expect(lexer.TokenWhile)
	p.expect(lexer.TokenLParen)
	cond := p.parseExpr(0)
	p.expect(lexer.TokenRParen)
	body := p.parseStatement()
	if p.err != nil {
		return &ast.EmptyStatement{Base: ast.NewBase(start.Line())}
	}
	return &ast.While{Base: ast.NewBase(start.Line()), Cond: cond, Body: body}
}

func (p *Parser) parsePrint() ast.Stmt {
	start := p.expect(lexer.TokenPrintln)
	p.expect(lexer.TokenLParen)
	e := p.parseExpr(0)
	p.expect(lexer.TokenRParen)
	p.expect(lexer.TokenSemi)
	if p.err != nil {
		return &ast.EmptyStatement{Base: ast.NewBase(start.Line())}
	}
	return &ast.Print{Base: ast.NewBase(start.Line()), Expr: e}
}

func (p *Parser) parseAssignOrArrayAssign() ast.Stmt {
	name := p.expect(lexer.TokenIdentifier)
	if _, ok := p.accept(lexer.TokenLBracket); ok {
		index := p.parseExpr(0)
		p.expect(lexer.TokenRBracket)
		p.expect(lexer.TokenAssign)
		value := p.parseExpr(0)
		p.expect(lexer.TokenSemi)
		if p.err != nil {
			return &ast.EmptyStatement{Base: ast.NewBase(name.Line())}
		}
		return &ast.ArrayAssign{Base: ast.NewBase(name.Line()), ArrayName: name.Lexeme, Index: index, Value: value}
	}
	p.expect(lexer.TokenAssign)
	rhs := p.parseExpr(0)
	p.expect(lexer.TokenSemi)
	if p.err != nil {
		return &ast.EmptyStatement{Base: ast.NewBase(name.Line())}
	}
	return &ast.Assign{Base: ast.NewBase(name.Line()), Name: name.Lexeme, Rhs: rhs}
}

// ---- expressions: Pratt precedence climbing --------------------------

// precedence levels follow spec §4.4's table, lowest to highest; unary "!"
// and postfix forms are handled outside this table in parseUnary/parsePostfix.
var binPrec = map[lexer.TokenType]int{
	lexer.TokenOr:    1,
	lexer.TokenAnd:   2,
	lexer.TokenEq:    3,
	lexer.TokenLt:    4,
	lexer.TokenGt:    4,
	lexer.TokenPlus:  5,
	lexer.TokenMinus: 5,
	lexer.TokenStar:  6,
	lexer.TokenSlash: 6,
}

var binKind = map[lexer.TokenType]ast.BinaryKind{
	lexer.TokenOr:    ast.OpOr,
	lexer.TokenAnd:   ast.OpAnd,
	lexer.TokenEq:    ast.OpEq,
	lexer.TokenLt:    ast.OpLt,
	lexer.TokenGt:    ast.OpGt,
	lexer.TokenPlus:  ast.OpPlus,
	lexer.TokenMinus: ast.OpMinus,
	lexer.TokenStar:  ast.OpMul,
	lexer.TokenSlash: ast.OpDiv,
}

func (p *Parser) parseExpr(minPrec int) ast.Expr {
	left := p.parseUnary()
	for p.err == nil {
		op := p.peek().Type
		prec, ok := binPrec[op]
		if !ok || prec < minPrec {
			break
		}
		opTok := p.advance()
		right := p.parseExpr(prec + 1) // left-associative: climb strictly higher
		if p.err != nil {
			return left
		}
		left = &ast.Binary{Base: ast.NewBase(opTok.Line()), Kind: binKind[op], Left: left, Right: right}
	}
	return left
}

func (p *Parser) parseUnary() ast.Expr {
	if tok, ok := p.accept(lexer.TokenNot); ok {
		operand := p.parseUnary()
		if p.err != nil {
			return operand
		}
		return &ast.Not{Base: ast.NewBase(tok.Line()), Expr: operand}
	}
	return p.parsePostfix(p.parseAtom())
}

func (p *Parser) parsePostfix(e ast.Expr) ast.Expr {
	for p.err == nil {
		switch {
		case p.at(lexer.TokenDot):
			dot := p.advance()
			if _, ok := p.accept(lexer.TokenLength); ok {
				e = &ast.ArrayLength{Base: ast.NewBase(dot.Line()), Array: e}
				continue
			}
			name := p.expect(lexer.TokenIdentifier)
			p.expect(lexer.TokenLParen)
			var args []ast.Expr
			if !p.at(lexer.TokenRParen) {
				args = append(args, p.parseExpr(0))
				for {
					if _, ok := p.accept(lexer.TokenComma); !ok {
						break
					}
					args = append(args, p.parseExpr(0))
				}
			}
			p.expect(lexer.TokenRParen)
			if p.err != nil {
				return e
			}
			e = &ast.MethodCall{Base: ast.NewBase(dot.Line()), Receiver: e, Method: name.Lexeme, Args: args}
		case p.at(lexer.TokenLBracket):
			lb := p.advance()
			idx := p.parseExpr(0)
			p.expect(lexer.TokenRBracket)
			if p.err != nil {
				return e
			}
			e = &ast.ArrayAccess{Base: ast.NewBase(lb.Line()), Array: e, Index: idx}
		default:
			return e
		}
	}
	return e
}

func (p *Parser) parseAtom() ast.Expr {
	start := p.peek()
	switch start.Type {
	case lexer.TokenIntLiteral:
		p.advance()
		return &ast.IntegerLiteral{Base: ast.NewBase(start.Line()), Value: start.Value}
	case lexer.TokenTrue:
		p.advance()
		return &ast.True{Base: ast.NewBase(start.Line())}
	case lexer.TokenFalse:
		p.advance()
		return &ast.False{Base: ast.NewBase(start.Line())}
	case lexer.TokenThis:
		p.advance()
		return &ast.This{Base: ast.NewBase(start.Line())}
	case lexer.TokenIdentifier:
		p.advance()
		return &ast.Identifier{Base: ast.NewBase(start.Line()), Name: start.Lexeme}
	case lexer.TokenNew:
		return p.parseNew()
	case lexer.TokenLParen:
		p.advance()
		e := p.parseExpr(0)
		p.expect(lexer.TokenRParen)
		return e
	default:
		p.fail(ExpectedExpression, "an expression", start)
		return &ast.IntegerLiteral{Base: ast.NewBase(start.Line())}
	}
}

func (p *Parser) parseNew() ast.Expr {
	start := p.expect(lexer.TokenNew)
	if _, ok := p.accept(lexer.TokenInt); ok {
		p.expect(lexer.TokenLBracket)
		length := p.parseExpr(0)
		p.expect(lexer.TokenRBracket)
		if p.err != nil {
			return &ast.IntegerLiteral{Base: ast.NewBase(start.Line())}
		}
		return &ast.NewIntArray{Base: ast.NewBase(start.Line()), Length: length}
	}
	name := p.expect(lexer.TokenIdentifier)
	p.expect(lexer.TokenLParen)
	p.expect(lexer.TokenRParen)
	if p.err != nil {
		return &ast.IntegerLiteral{Base: ast.NewBase(start.Line())}
	}
	return &ast.NewObject{Base: ast.NewBase(start.Line()), ClassName: name.Lexeme}
}

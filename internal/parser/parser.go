// Package parser implements a Pratt (precedence-climbing) recursive
// descent parser that turns a token stream into a Bauble Program.
package parser

import (
	"strconv"

	"github.com/estevaofon/bauble/internal/ast"
	"github.com/estevaofon/bauble/internal/lexer"
	"github.com/estevaofon/bauble/internal/token"
)

// Binding powers, per spec.md §4.2's precedence table.
const (
	lowest    = 0
	assignLBP = 1
	// assignRBP is spec.md §4.2's documented right binding power for
	// assignment (2), kept here to mirror the table; parseAssignment
	// itself recurses at assignLBP so a repeated '=' is absorbed by that
	// recursive call rather than bubbling back to the outer loop.
	assignRBP   = 2
	equalityLBP = 7
	equalityRBP = 8
	compareLBP  = 9
	compareRBP  = 10
	termLBP     = 11
	termRBP     = 12
	factorLBP   = 13
	factorRBP   = 14
	unaryRBP    = 15
	callLBP     = 17
	indexLBP    = 19
)

func leftBindingPower(t token.Type) int {
	switch t {
	case token.ASSIGN:
		return assignLBP
	case token.EQ, token.NEQ:
		return equalityLBP
	case token.LT, token.LTE, token.GT, token.GTE:
		return compareLBP
	case token.PLUS, token.MINUS:
		return termLBP
	case token.STAR, token.SLASH:
		return factorLBP
	case token.LPAREN:
		return callLBP
	case token.LBRACKET:
		return indexLBP
	default:
		return lowest
	}
}

// Parser consumes a lexer's token stream and produces a Program.
type Parser struct {
	l *lexer.Lexer

	cur  token.Token
	peek token.Token
}

// New primes cur/peek so the parser is ready to parse from the start.
func New(l *lexer.Lexer) *Parser {
	p := &Parser{l: l}
	p.next()
	p.next()
	return p
}

func (p *Parser) next() {
	p.cur = p.peek
	p.peek = p.l.NextToken()
}

// ParseProgram parses the whole token stream. It returns the first
// Error encountered (parsing is strict and fails fast).
func (p *Parser) ParseProgram() (*ast.Program, error) {
	prog := &ast.Program{}
	for p.cur.Type != token.EOF {
		stmt, err := p.parseStatement()
		if err != nil {
			return nil, err
		}
		prog.Statements = append(prog.Statements, stmt)
	}
	return prog, nil
}

func (p *Parser) expect(t token.Type) (token.Token, error) {
	if p.cur.Type != t {
		return token.Token{}, &Error{Kind: MissingToken, Pos: p.cur.Pos, Found: p.cur, Expected: t}
	}
	tok := p.cur
	p.next()
	return tok, nil
}

func (p *Parser) parseStatement() (ast.Statement, error) {
	switch p.cur.Type {
	case token.PRINT:
		return p.parsePrintStatement()
	case token.LBRACE:
		return p.parseBlockStatement()
	case token.LET:
		return p.parseVarStatement()
	case token.FUN:
		return p.parseFunctionStatement()
	case token.IF:
		return p.parseIfStatement()
	case token.WHILE:
		return p.parseWhileStatement()
	case token.RETURN:
		return p.parseReturnStatement()
	default:
		return p.parseExpressionStatement()
	}
}

func (p *Parser) parsePrintStatement() (ast.Statement, error) {
	tok := p.cur
	p.next()
	value, err := p.parseExpression(lowest)
	if err != nil {
		return nil, err
	}
	if _, err := p.expect(token.SEMI); err != nil {
		return nil, err
	}
	return &ast.PrintStatement{Token: tok, Value: value}, nil
}

func (p *Parser) parseBlockStatement() (*ast.BlockStatement, error) {
	tok, err := p.expect(token.LBRACE)
	if err != nil {
		return nil, err
	}
	block := &ast.BlockStatement{Token: tok}
	for p.cur.Type != token.RBRACE && p.cur.Type != token.EOF {
		stmt, err := p.parseStatement()
		if err != nil {
			return nil, err
		}
		block.Statements = append(block.Statements, stmt)
	}
	if _, err := p.expect(token.RBRACE); err != nil {
		return nil, err
	}
	return block, nil
}

func (p *Parser) parseVarStatement() (ast.Statement, error) {
	tok := p.cur
	p.next()
	nameTok, err := p.expect(token.IDENTIFIER)
	if err != nil {
		return nil, err
	}
	stmt := &ast.VarStatement{Token: tok, Name: nameTok.Literal}
	if p.cur.Type == token.ASSIGN {
		p.next()
		init, err := p.parseExpression(lowest)
		if err != nil {
			return nil, err
		}
		stmt.Init = init
	}
	if _, err := p.expect(token.SEMI); err != nil {
		return nil, err
	}
	return stmt, nil
}

func (p *Parser) parseFunctionStatement() (ast.Statement, error) {
	tok := p.cur
	p.next()
	nameTok, err := p.expect(token.IDENTIFIER)
	if err != nil {
		return nil, err
	}
	if _, err := p.expect(token.LPAREN); err != nil {
		return nil, err
	}
	var params []string
	for p.cur.Type != token.RPAREN {
		paramTok, err := p.expect(token.IDENTIFIER)
		if err != nil {
			return nil, err
		}
		params = append(params, paramTok.Literal)
		if p.cur.Type == token.COMMA {
			p.next()
		}
	}
	if _, err := p.expect(token.RPAREN); err != nil {
		return nil, err
	}
	body, err := p.parseBlockStatement()
	if err != nil {
		return nil, err
	}
	return &ast.FunctionStatement{Token: tok, Name: nameTok.Literal, Parameters: params, Body: body}, nil
}

func (p *Parser) parseIfStatement() (ast.Statement, error) {
	tok := p.cur
	p.next()
	if _, err := p.expect(token.LPAREN); err != nil {
		return nil, err
	}
	cond, err := p.parseExpression(lowest)
	if err != nil {
		return nil, err
	}
	if _, err := p.expect(token.RPAREN); err != nil {
		return nil, err
	}
	then, err := p.parseStatement()
	if err != nil {
		return nil, err
	}
	stmt := &ast.IfStatement{Token: tok, Condition: cond, Then: then}
	if p.cur.Type == token.ELSE {
		p.next()
		elseStmt, err := p.parseStatement()
		if err != nil {
			return nil, err
		}
		stmt.Else = elseStmt
	}
	return stmt, nil
}

func (p *Parser) parseWhileStatement() (ast.Statement, error) {
	tok := p.cur
	p.next()
	if _, err := p.expect(token.LPAREN); err != nil {
		return nil, err
	}
	cond, err := p.parseExpression(lowest)
	if err != nil {
		return nil, err
	}
	if _, err := p.expect(token.RPAREN); err != nil {
		return nil, err
	}
	body, err := p.parseStatement()
	if err != nil {
		return nil, err
	}
	return &ast.WhileStatement{Token: tok, Condition: cond, Body: body}, nil
}

func (p *Parser) parseReturnStatement() (ast.Statement, error) {
	tok := p.cur
	p.next()
	value, err := p.parseExpression(lowest)
	if err != nil {
		return nil, err
	}
	if _, err := p.expect(token.SEMI); err != nil {
		return nil, err
	}
	return &ast.ReturnStatement{Token: tok, Value: value}, nil
}

func (p *Parser) parseExpressionStatement() (ast.Statement, error) {
	tok := p.cur
	expr, err := p.parseExpression(lowest)
	if err != nil {
		return nil, err
	}
	if _, err := p.expect(token.SEMI); err != nil {
		return nil, err
	}
	return &ast.ExpressionStatement{Token: tok, Expression: expr}, nil
}

// parseExpression implements expression_bp(min_bp): a prefix (nud)
// parse followed by a loop over infix/postfix operators whose left
// binding power is at least min_bp.
func (p *Parser) parseExpression(minBP int) (ast.Expression, error) {
	left, err := p.parsePrefix()
	if err != nil {
		return nil, err
	}

	for {
		lbp := leftBindingPower(p.cur.Type)
		if lbp < minBP {
			break
		}
		switch p.cur.Type {
		case token.ASSIGN:
			left, err = p.parseAssignment(left)
		case token.PLUS, token.MINUS, token.STAR, token.SLASH,
			token.EQ, token.NEQ, token.LT, token.LTE, token.GT, token.GTE:
			left, err = p.parseBinary(left, lbp)
		case token.LPAREN:
			left, err = p.parseCall(left)
		case token.LBRACKET:
			left, err = p.parseIndex(left)
		default:
			return left, nil
		}
		if err != nil {
			return nil, err
		}
	}
	return left, nil
}

func (p *Parser) parsePrefix() (ast.Expression, error) {
	switch p.cur.Type {
	case token.NUMBER:
		return p.parseNumberLiteral()
	case token.STRING:
		tok := p.cur
		p.next()
		return &ast.StringLiteral{Token: tok, Value: tok.Literal}, nil
	case token.TRUE, token.FALSE:
		tok := p.cur
		p.next()
		return &ast.BooleanLiteral{Token: tok, Value: tok.Type == token.TRUE}, nil
	case token.NIL:
		tok := p.cur
		p.next()
		return &ast.NilLiteral{Token: tok}, nil
	case token.IDENTIFIER:
		tok := p.cur
		p.next()
		return &ast.Identifier{Token: tok, Value: tok.Literal}, nil
	case token.LPAREN:
		return p.parseGroupedExpression()
	case token.LBRACKET:
		return p.parseArrayExpression()
	case token.MINUS:
		return p.parseUnary(ast.Negate)
	case token.BANG:
		return p.parseUnary(ast.Not)
	default:
		return nil, &Error{Kind: MissingOperand, Pos: p.cur.Pos, Found: p.cur}
	}
}

func (p *Parser) parseNumberLiteral() (ast.Expression, error) {
	tok := p.cur
	v, err := strconv.ParseFloat(tok.Literal, 64)
	if err != nil {
		return nil, &Error{Kind: UnexpectedToken, Pos: tok.Pos, Found: tok}
	}
	p.next()
	return &ast.NumberLiteral{Token: tok, Value: v}, nil
}

func (p *Parser) parseGroupedExpression() (ast.Expression, error) {
	p.next() // consume '('
	expr, err := p.parseExpression(lowest)
	if err != nil {
		return nil, err
	}
	if p.cur.Type != token.RPAREN {
		return nil, &Error{Kind: MissingClosingParentheses, Pos: p.cur.Pos, Found: p.cur}
	}
	p.next()
	return expr, nil
}

func (p *Parser) parseArrayExpression() (ast.Expression, error) {
	tok := p.cur
	p.next() // consume '['
	initial, err := p.parseExpression(lowest)
	if err != nil {
		return nil, err
	}
	if _, err := p.expect(token.SEMI); err != nil {
		return nil, err
	}
	size, err := p.parseExpression(lowest)
	if err != nil {
		return nil, err
	}
	if _, err := p.expect(token.RBRACKET); err != nil {
		return nil, err
	}
	return &ast.ArrayExpression{Token: tok, Initial: initial, Size: size}, nil
}

func (p *Parser) parseUnary(op ast.UnaryOperator) (ast.Expression, error) {
	tok := p.cur
	p.next()
	operand, err := p.parseExpression(unaryRBP)
	if err != nil {
		return nil, err
	}
	return &ast.UnaryExpression{Token: tok, Op: op, Operand: operand}, nil
}

func binaryOperatorFor(t token.Type) ast.BinaryOperator {
	switch t {
	case token.PLUS:
		return ast.Add
	case token.MINUS:
		return ast.Sub
	case token.STAR:
		return ast.Mul
	case token.SLASH:
		return ast.Div
	case token.EQ:
		return ast.Equal
	case token.NEQ:
		return ast.NotEqual
	case token.LT:
		return ast.Less
	case token.GT:
		return ast.Greater
	case token.LTE:
		return ast.LessOrEqual
	case token.GTE:
		return ast.GreaterOrEqual
	default:
		return ast.Add
	}
}

func (p *Parser) parseBinary(left ast.Expression, lbp int) (ast.Expression, error) {
	tok := p.cur
	op := binaryOperatorFor(tok.Type)
	var rbp int
	switch lbp {
	case equalityLBP:
		rbp = equalityRBP
	case compareLBP:
		rbp = compareRBP
	case termLBP:
		rbp = termRBP
	case factorLBP:
		rbp = factorRBP
	default:
		return nil, &Error{Kind: UnknownOperation, Pos: tok.Pos, Found: tok}
	}
	p.next()
	right, err := p.parseExpression(rbp)
	if err != nil {
		return nil, err
	}
	return &ast.BinaryExpression{Token: tok, Op: op, Left: left, Right: right}, nil
}

// parseAssignment parses the right-hand side at assignLBP, not a
// strictly higher binding power: right-associativity here means a
// repeated '=' is re-absorbed by the recursive parseExpression call
// itself (which loops back into parseAssignment), rather than left
// unconsumed for the outer loop to wrongly try to re-apply to the
// AssignExpression node this call already built.
func (p *Parser) parseAssignment(left ast.Expression) (ast.Expression, error) {
	tok := p.cur
	p.next() // consume '='
	value, err := p.parseExpression(assignLBP)
	if err != nil {
		return nil, err
	}
	switch target := left.(type) {
	case *ast.Identifier:
		return &ast.AssignExpression{Token: tok, Name: target.Value, Value: value}, nil
	case *ast.IndexExpression:
		ident, ok := target.Array.(*ast.Identifier)
		if !ok {
			return nil, &Error{Kind: InvalidAssignment, Pos: tok.Pos, Found: tok}
		}
		return &ast.AssignIndexExpression{Token: tok, Variable: ident.Value, Index: target.Index, Value: value}, nil
	default:
		return nil, &Error{Kind: InvalidAssignment, Pos: tok.Pos, Found: tok}
	}
}

func (p *Parser) parseCall(left ast.Expression) (ast.Expression, error) {
	ident, ok := left.(*ast.Identifier)
	if !ok {
		return nil, &Error{Kind: InvalidCall, Pos: p.cur.Pos, Found: p.cur}
	}
	tok := p.cur
	p.next() // consume '('
	var args []ast.Expression
	for p.cur.Type != token.RPAREN {
		arg, err := p.parseExpression(lowest)
		if err != nil {
			return nil, err
		}
		args = append(args, arg)
		if p.cur.Type == token.COMMA {
			p.next()
		}
	}
	if _, err := p.expect(token.RPAREN); err != nil {
		return nil, err
	}
	return &ast.CallExpression{Token: tok, Name: ident.Value, Arguments: args}, nil
}

func (p *Parser) parseIndex(left ast.Expression) (ast.Expression, error) {
	tok := p.cur
	p.next() // consume '['
	index, err := p.parseExpression(lowest)
	if err != nil {
		return nil, err
	}
	if _, err := p.expect(token.RBRACKET); err != nil {
		return nil, err
	}
	return &ast.IndexExpression{Token: tok, Array: left, Index: index}, nil
}

package parser

import (
	"testing"

	"github.com/estevaofon/bauble/internal/ast"
	"github.com/estevaofon/bauble/internal/lexer"
)

func parse(t *testing.T, input string) *ast.Program {
	t.Helper()
	p := New(lexer.New(input))
	prog, err := p.ParseProgram()
	if err != nil {
		t.Fatalf("unexpected parse error: %v", err)
	}
	return prog
}

func TestParsePrintExpression(t *testing.T) {
	prog := parse(t, "print 1 + 2;")
	if len(prog.Statements) != 1 {
		t.Fatalf("expected 1 statement, got %d", len(prog.Statements))
	}
	ps, ok := prog.Statements[0].(*ast.PrintStatement)
	if !ok {
		t.Fatalf("expected PrintStatement, got %T", prog.Statements[0])
	}
	bin, ok := ps.Value.(*ast.BinaryExpression)
	if !ok {
		t.Fatalf("expected BinaryExpression, got %T", ps.Value)
	}
	if bin.Op != ast.Add {
		t.Fatalf("expected Add, got %v", bin.Op)
	}
}

func TestParsePrecedence(t *testing.T) {
	prog := parse(t, "print 2 + 2 * 2 - (3 + 3);")
	ps := prog.Statements[0].(*ast.PrintStatement)
	if got := ps.Value.String(); got != "((2 + (2 * 2)) - (3 + 3))" {
		t.Fatalf("unexpected precedence rendering: %s", got)
	}
}

func TestParseAssignmentRightAssociative(t *testing.T) {
	prog := parse(t, "a = b = 1;")
	es := prog.Statements[0].(*ast.ExpressionStatement)
	outer, ok := es.Expression.(*ast.AssignExpression)
	if !ok {
		t.Fatalf("expected AssignExpression, got %T", es.Expression)
	}
	if outer.Name != "a" {
		t.Fatalf("expected outer target a, got %s", outer.Name)
	}
	inner, ok := outer.Value.(*ast.AssignExpression)
	if !ok {
		t.Fatalf("expected nested AssignExpression, got %T", outer.Value)
	}
	if inner.Name != "b" {
		t.Fatalf("expected inner target b, got %s", inner.Name)
	}
}

func TestParseIndexAssignment(t *testing.T) {
	prog := parse(t, `w[0] = "D";`)
	es := prog.Statements[0].(*ast.ExpressionStatement)
	assign, ok := es.Expression.(*ast.AssignIndexExpression)
	if !ok {
		t.Fatalf("expected AssignIndexExpression, got %T", es.Expression)
	}
	if assign.Variable != "w" {
		t.Fatalf("expected variable w, got %s", assign.Variable)
	}
}

func TestParseInvalidAssignmentTarget(t *testing.T) {
	p := New(lexer.New("1 + 1 = 2;"))
	_, err := p.ParseProgram()
	if err == nil {
		t.Fatal("expected error for invalid assignment target")
	}
	pe, ok := err.(*Error)
	if !ok || pe.Kind != InvalidAssignment {
		t.Fatalf("expected InvalidAssignment error, got %v", err)
	}
}

func TestParseInvalidCallTarget(t *testing.T) {
	p := New(lexer.New("(1 + 1)(2);"))
	_, err := p.ParseProgram()
	if err == nil {
		t.Fatal("expected error for invalid call target")
	}
	pe, ok := err.(*Error)
	if !ok || pe.Kind != InvalidCall {
		t.Fatalf("expected InvalidCall error, got %v", err)
	}
}

func TestParseArrayConstructor(t *testing.T) {
	prog := parse(t, "let m = [0; 3];")
	vs := prog.Statements[0].(*ast.VarStatement)
	arr, ok := vs.Init.(*ast.ArrayExpression)
	if !ok {
		t.Fatalf("expected ArrayExpression, got %T", vs.Init)
	}
	if arr.Size.String() != "3" {
		t.Fatalf("expected size 3, got %s", arr.Size.String())
	}
}

func TestParseFunctionAndCall(t *testing.T) {
	prog := parse(t, "fun add(a, b) { return a + b; } print add(1, 2);")
	if len(prog.Statements) != 2 {
		t.Fatalf("expected 2 statements, got %d", len(prog.Statements))
	}
	fn, ok := prog.Statements[0].(*ast.FunctionStatement)
	if !ok {
		t.Fatalf("expected FunctionStatement, got %T", prog.Statements[0])
	}
	if fn.Name != "add" || len(fn.Parameters) != 2 {
		t.Fatalf("unexpected function shape: %+v", fn)
	}
	ps := prog.Statements[1].(*ast.PrintStatement)
	call, ok := ps.Value.(*ast.CallExpression)
	if !ok {
		t.Fatalf("expected CallExpression, got %T", ps.Value)
	}
	if call.Name != "add" || len(call.Arguments) != 2 {
		t.Fatalf("unexpected call shape: %+v", call)
	}
}

func TestParseIfElse(t *testing.T) {
	prog := parse(t, `
	let input = 11;
	if (input > 10) { print 3; } else if (input > 5) { print 2; } else { print 1; }
	`)
	ifStmt, ok := prog.Statements[1].(*ast.IfStatement)
	if !ok {
		t.Fatalf("expected IfStatement, got %T", prog.Statements[1])
	}
	if ifStmt.Else == nil {
		t.Fatal("expected else branch")
	}
	if _, ok := ifStmt.Else.(*ast.IfStatement); !ok {
		t.Fatalf("expected nested IfStatement for else-if, got %T", ifStmt.Else)
	}
}

func TestParseWhile(t *testing.T) {
	prog := parse(t, "let i = 5; while (i > 0) { print i; i = i - 1; } print 100;")
	ws, ok := prog.Statements[1].(*ast.WhileStatement)
	if !ok {
		t.Fatalf("expected WhileStatement, got %T", prog.Statements[1])
	}
	body, ok := ws.Body.(*ast.BlockStatement)
	if !ok || len(body.Statements) != 2 {
		t.Fatalf("unexpected while body: %+v", ws.Body)
	}
}

func TestParseMissingSemicolon(t *testing.T) {
	p := New(lexer.New("let a = 1"))
	_, err := p.ParseProgram()
	if err == nil {
		t.Fatal("expected error for missing semicolon")
	}
	pe, ok := err.(*Error)
	if !ok || pe.Kind != MissingToken {
		t.Fatalf("expected MissingToken error, got %v", err)
	}
}

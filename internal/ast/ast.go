// Package ast defines the Bauble abstract syntax tree: a Program is an
// ordered list of Statements, each possibly containing Expressions.
package ast

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/estevaofon/bauble/internal/token"
)

// Node is implemented by every AST node.
type Node interface {
	TokenLiteral() string
	String() string
}

// Statement is implemented by every statement node.
type Statement interface {
	Node
	statementNode()
}

// Expression is implemented by every expression node.
type Expression interface {
	Node
	expressionNode()
}

// Program is the root node: an ordered sequence of top-level statements.
type Program struct {
	Statements []Statement
}

func (p *Program) TokenLiteral() string {
	if len(p.Statements) > 0 {
		return p.Statements[0].TokenLiteral()
	}
	return ""
}

func (p *Program) String() string {
	var out bytes.Buffer
	for _, s := range p.Statements {
		out.WriteString(s.String())
	}
	return out.String()
}

// BinaryOperator enumerates infix arithmetic/comparison operators.
type BinaryOperator int

const (
	Add BinaryOperator = iota
	Sub
	Mul
	Div
	Equal
	NotEqual
	Less
	Greater
	LessOrEqual
	GreaterOrEqual
)

func (op BinaryOperator) String() string {
	switch op {
	case Add:
		return "+"
	case Sub:
		return "-"
	case Mul:
		return "*"
	case Div:
		return "/"
	case Equal:
		return "=="
	case NotEqual:
		return "!="
	case Less:
		return "<"
	case Greater:
		return ">"
	case LessOrEqual:
		return "<="
	case GreaterOrEqual:
		return ">="
	default:
		return "?"
	}
}

// UnaryOperator enumerates prefix operators.
type UnaryOperator int

const (
	Negate UnaryOperator = iota
	Not
)

func (op UnaryOperator) String() string {
	if op == Negate {
		return "-"
	}
	return "!"
}

// ---- Expressions ----

type NilLiteral struct {
	Token token.Token
}

func (e *NilLiteral) expressionNode()      {}
func (e *NilLiteral) TokenLiteral() string { return e.Token.Literal }
func (e *NilLiteral) String() string       { return "nil" }

type NumberLiteral struct {
	Token token.Token
	Value float64
}

func (e *NumberLiteral) expressionNode()      {}
func (e *NumberLiteral) TokenLiteral() string { return e.Token.Literal }
func (e *NumberLiteral) String() string       { return e.Token.Literal }

type BooleanLiteral struct {
	Token token.Token
	Value bool
}

func (e *BooleanLiteral) expressionNode()      {}
func (e *BooleanLiteral) TokenLiteral() string { return e.Token.Literal }
func (e *BooleanLiteral) String() string       { return e.Token.Literal }

type StringLiteral struct {
	Token token.Token
	Value string
}

func (e *StringLiteral) expressionNode()      {}
func (e *StringLiteral) TokenLiteral() string { return e.Token.Literal }
func (e *StringLiteral) String() string       { return fmt.Sprintf("%q", e.Value) }

// Identifier is a variable reference.
type Identifier struct {
	Token token.Token
	Value string
}

func (e *Identifier) expressionNode()      {}
func (e *Identifier) TokenLiteral() string { return e.Token.Literal }
func (e *Identifier) String() string       { return e.Value }

// AssignExpression is `name = value`.
type AssignExpression struct {
	Token token.Token // the '=' token
	Name  string
	Value Expression
}

func (e *AssignExpression) expressionNode()      {}
func (e *AssignExpression) TokenLiteral() string { return e.Token.Literal }
func (e *AssignExpression) String() string {
	return fmt.Sprintf("%s = %s", e.Name, e.Value.String())
}

// IndexExpression is `array[index]`.
type IndexExpression struct {
	Token token.Token // the '[' token
	Array Expression
	Index Expression
}

func (e *IndexExpression) expressionNode()      {}
func (e *IndexExpression) TokenLiteral() string { return e.Token.Literal }
func (e *IndexExpression) String() string {
	return fmt.Sprintf("%s[%s]", e.Array.String(), e.Index.String())
}

// AssignIndexExpression is `variable[index] = value`.
type AssignIndexExpression struct {
	Token    token.Token // the '=' token
	Variable string
	Index    Expression
	Value    Expression
}

func (e *AssignIndexExpression) expressionNode()      {}
func (e *AssignIndexExpression) TokenLiteral() string { return e.Token.Literal }
func (e *AssignIndexExpression) String() string {
	return fmt.Sprintf("%s[%s] = %s", e.Variable, e.Index.String(), e.Value.String())
}

// ArrayExpression is the `[initial; size]` constructor.
type ArrayExpression struct {
	Token   token.Token // the '[' token
	Initial Expression
	Size    Expression
}

func (e *ArrayExpression) expressionNode()      {}
func (e *ArrayExpression) TokenLiteral() string { return e.Token.Literal }
func (e *ArrayExpression) String() string {
	return fmt.Sprintf("[%s; %s]", e.Initial.String(), e.Size.String())
}

// BinaryExpression is `lhs op rhs`.
type BinaryExpression struct {
	Token token.Token // the operator token
	Op    BinaryOperator
	Left  Expression
	Right Expression
}

func (e *BinaryExpression) expressionNode()      {}
func (e *BinaryExpression) TokenLiteral() string { return e.Token.Literal }
func (e *BinaryExpression) String() string {
	return fmt.Sprintf("(%s %s %s)", e.Left.String(), e.Op.String(), e.Right.String())
}

// UnaryExpression is `op operand`.
type UnaryExpression struct {
	Token   token.Token // the operator token
	Op      UnaryOperator
	Operand Expression
}

func (e *UnaryExpression) expressionNode()      {}
func (e *UnaryExpression) TokenLiteral() string { return e.Token.Literal }
func (e *UnaryExpression) String() string {
	return fmt.Sprintf("(%s%s)", e.Op.String(), e.Operand.String())
}

// CallExpression is `name(args...)`.
type CallExpression struct {
	Token     token.Token // the '(' token
	Name      string
	Arguments []Expression
}

func (e *CallExpression) expressionNode()      {}
func (e *CallExpression) TokenLiteral() string { return e.Token.Literal }
func (e *CallExpression) String() string {
	args := make([]string, 0, len(e.Arguments))
	for _, a := range e.Arguments {
		args = append(args, a.String())
	}
	return fmt.Sprintf("%s(%s)", e.Name, strings.Join(args, ", "))
}

// ---- Statements ----

// ExpressionStatement wraps an expression used as a statement (e.g. a
// bare assignment or call, terminated by ';').
type ExpressionStatement struct {
	Token      token.Token
	Expression Expression
}

func (s *ExpressionStatement) statementNode()       {}
func (s *ExpressionStatement) TokenLiteral() string { return s.Token.Literal }
func (s *ExpressionStatement) String() string {
	if s.Expression == nil {
		return ""
	}
	return s.Expression.String() + ";"
}

// VarStatement is `let name (= init)? ;`.
type VarStatement struct {
	Token token.Token // the 'let' token
	Name  string
	Init  Expression // nil when no initializer
}

func (s *VarStatement) statementNode()       {}
func (s *VarStatement) TokenLiteral() string { return s.Token.Literal }
func (s *VarStatement) String() string {
	if s.Init == nil {
		return fmt.Sprintf("let %s;", s.Name)
	}
	return fmt.Sprintf("let %s = %s;", s.Name, s.Init.String())
}

// FunctionStatement is `fun name(params) { body }`.
type FunctionStatement struct {
	Token      token.Token // the 'fun' token
	Name       string
	Parameters []string
	Body       *BlockStatement
}

func (s *FunctionStatement) statementNode()       {}
func (s *FunctionStatement) TokenLiteral() string { return s.Token.Literal }
func (s *FunctionStatement) String() string {
	return fmt.Sprintf("fun %s(%s) %s", s.Name, strings.Join(s.Parameters, ", "), s.Body.String())
}

// PrintStatement is `print expr ;`.
type PrintStatement struct {
	Token token.Token
	Value Expression
}

func (s *PrintStatement) statementNode()       {}
func (s *PrintStatement) TokenLiteral() string { return s.Token.Literal }
func (s *PrintStatement) String() string       { return fmt.Sprintf("print %s;", s.Value.String()) }

// BlockStatement is `{ stmt* }`.
type BlockStatement struct {
	Token      token.Token // the '{' token
	Statements []Statement
}

func (s *BlockStatement) statementNode()       {}
func (s *BlockStatement) TokenLiteral() string { return s.Token.Literal }
func (s *BlockStatement) String() string {
	var out bytes.Buffer
	out.WriteString("{ ")
	for _, st := range s.Statements {
		out.WriteString(st.String())
	}
	out.WriteString(" }")
	return out.String()
}

// IfStatement is `if (cond) then (else else)?`.
type IfStatement struct {
	Token     token.Token
	Condition Expression
	Then      Statement
	Else      Statement // nil when absent
}

func (s *IfStatement) statementNode()       {}
func (s *IfStatement) TokenLiteral() string { return s.Token.Literal }
func (s *IfStatement) String() string {
	out := fmt.Sprintf("if (%s) %s", s.Condition.String(), s.Then.String())
	if s.Else != nil {
		out += " else " + s.Else.String()
	}
	return out
}

// WhileStatement is `while (cond) body`.
type WhileStatement struct {
	Token     token.Token
	Condition Expression
	Body      Statement
}

func (s *WhileStatement) statementNode()       {}
func (s *WhileStatement) TokenLiteral() string { return s.Token.Literal }
func (s *WhileStatement) String() string {
	return fmt.Sprintf("while (%s) %s", s.Condition.String(), s.Body.String())
}

// ReturnStatement is `return expr ;`.
type ReturnStatement struct {
	Token token.Token
	Value Expression
}

func (s *ReturnStatement) statementNode()       {}
func (s *ReturnStatement) TokenLiteral() string { return s.Token.Literal }
func (s *ReturnStatement) String() string       { return fmt.Sprintf("return %s;", s.Value.String()) }

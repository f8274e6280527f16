// Package chunk defines Bauble's instruction set and the immutable
// executable unit (Chunk) the compiler lowers a program into. Unlike
// the teacher interpreter's byte-packed bytecode buffer, a Chunk here
// is an instruction-indexed slice of Op values: spec.md models the
// instruction pointer as an index into ops, and jump offsets as signed
// displacements measured in instruction units, not bytes.
package chunk

import (
	"fmt"

	"github.com/estevaofon/bauble/internal/value"
)

// OpCode is the closed instruction-tag enum from spec.md §3.
type OpCode byte

const (
	Return OpCode = iota
	Call
	ConstFloat
	ConstBool
	Const
	Nil
	Pop
	Add
	Sub
	Mul
	Div
	Cmp
	Le
	Ge
	Not
	Print
	LoadGlobal
	StoreGlobal
	LoadLocal
	StoreLocal
	Jump
	JumpIfFalse
	LoadIndex
	StoreIndex
	Array
)

func (op OpCode) String() string {
	switch op {
	case Return:
		return "RETURN"
	case Call:
		return "CALL"
	case ConstFloat:
		return "CONST_FLOAT"
	case ConstBool:
		return "CONST_BOOL"
	case Const:
		return "CONST"
	case Nil:
		return "NIL"
	case Pop:
		return "POP"
	case Add:
		return "ADD"
	case Sub:
		return "SUB"
	case Mul:
		return "MUL"
	case Div:
		return "DIV"
	case Cmp:
		return "CMP"
	case Le:
		return "LE"
	case Ge:
		return "GE"
	case Not:
		return "NOT"
	case Print:
		return "PRINT"
	case LoadGlobal:
		return "LOAD_GLOBAL"
	case StoreGlobal:
		return "STORE_GLOBAL"
	case LoadLocal:
		return "LOAD_LOCAL"
	case StoreLocal:
		return "STORE_LOCAL"
	case Jump:
		return "JUMP"
	case JumpIfFalse:
		return "JUMP_IF_FALSE"
	case LoadIndex:
		return "LOAD_INDEX"
	case StoreIndex:
		return "STORE_INDEX"
	case Array:
		return "ARRAY"
	default:
		return fmt.Sprintf("OP_%d", byte(op))
	}
}

// Op is one bytecode instruction. Only the fields relevant to Code are
// meaningful; which one depends on Code, mirroring the way token.Token
// pairs a Type tag with payload fields.
type Op struct {
	Code   OpCode
	Int    int     // Call arity; Const/LoadGlobal/StoreGlobal pool index; LoadLocal/StoreLocal slot offset
	Float  float64 // ConstFloat operand
	Bool   bool    // ConstBool operand
	Offset int     // Jump/JumpIfFalse signed displacement, in instruction units
}

// Chunk is an immutable executable unit: an instruction list plus a
// de-duplicated constant pool, with a parallel line table for
// diagnostics.
type Chunk struct {
	Ops       []Op
	Constants []value.Value
	Lines     []int
	FileName  string
}

// OpCount satisfies value.Chunk so a *Chunk can be stored in
// value.Function.Chunk without an import cycle.
func (c *Chunk) OpCount() int { return len(c.Ops) }

func New(fileName string) *Chunk {
	return &Chunk{FileName: fileName}
}

func (c *Chunk) Op(i int) Op                { return c.Ops[i] }
func (c *Chunk) Constant(i int) value.Value { return c.Constants[i] }
func (c *Chunk) Len() int                   { return len(c.Ops) }

// Disassemble prints a human-readable instruction listing for
// diagnostic use only (spec.md §1: "the disassembler (diagnostic
// only)").
func (c *Chunk) Disassemble(name string) {
	fmt.Printf("== %s ==\n", name)
	for i := range c.Ops {
		c.disassembleInstruction(i)
	}
}

// DisassembleAll disassembles this chunk and, recursively, every
// function chunk reachable from its constant pool.
func (c *Chunk) DisassembleAll(name string) {
	c.Disassemble(name)
	for _, k := range c.Constants {
		if k.Type == value.FunctionType {
			if fnChunk, ok := k.Func.Chunk.(*Chunk); ok {
				fmt.Println()
				fnChunk.DisassembleAll(k.Func.Name)
			}
		}
	}
}

func (c *Chunk) disassembleInstruction(i int) {
	line := "   |"
	if i == 0 || c.Lines[i] != c.Lines[i-1] {
		line = fmt.Sprintf("%4d", c.Lines[i])
	}
	op := c.Ops[i]
	switch op.Code {
	case ConstFloat:
		fmt.Printf("%04d %s %-14s %v\n", i, line, op.Code, op.Float)
	case ConstBool:
		fmt.Printf("%04d %s %-14s %v\n", i, line, op.Code, op.Bool)
	case Const, LoadGlobal, StoreGlobal:
		fmt.Printf("%04d %s %-14s %4d '%v'\n", i, line, op.Code, op.Int, c.Constants[op.Int])
	case LoadLocal, StoreLocal, Call:
		fmt.Printf("%04d %s %-14s %4d\n", i, line, op.Code, op.Int)
	case Jump, JumpIfFalse:
		fmt.Printf("%04d %s %-14s %4d -> %d\n", i, line, op.Code, op.Offset, i+op.Offset)
	default:
		fmt.Printf("%04d %s %s\n", i, line, op.Code)
	}
}

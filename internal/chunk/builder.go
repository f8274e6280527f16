package chunk

import (
	"fmt"

	"github.com/estevaofon/bauble/internal/value"
)

// Builder is the mutable counterpart to Chunk, used by the compiler to
// append instructions, intern constants, and patch jump targets once
// they become known.
type Builder struct {
	chunk      *Chunk
	constIndex map[string]int
	line       int
}

func NewBuilder(fileName string) *Builder {
	return &Builder{
		chunk:      New(fileName),
		constIndex: make(map[string]int),
		line:       1,
	}
}

// SetLine records the source line subsequent AddOp calls are attributed
// to in the parallel Lines table.
func (b *Builder) SetLine(line int) {
	b.line = line
}

// AddOp appends an instruction and returns its address (instruction
// index), the unit jump offsets are measured in.
func (b *Builder) AddOp(op Op) int {
	b.chunk.Ops = append(b.chunk.Ops, op)
	b.chunk.Lines = append(b.chunk.Lines, b.line)
	return len(b.chunk.Ops) - 1
}

// AddConstant interns v into the constant pool, reusing an existing
// entry when one is structurally equal (spec.md §4.3: "keeps string
// names shared and identical numeric literals collapsed").
func (b *Builder) AddConstant(v value.Value) int {
	key := v.ConstantKey()
	if idx, ok := b.constIndex[key]; ok {
		return idx
	}
	b.chunk.Constants = append(b.chunk.Constants, v)
	idx := len(b.chunk.Constants) - 1
	b.constIndex[key] = idx
	return idx
}

// PatchJump overwrites the instruction at addr — which must be a Jump
// or JumpIfFalse placeholder — with offset. Patching a non-jump op is a
// fatal compiler bug, per spec.md §4.4.
func (b *Builder) PatchJump(addr int, offset int) {
	op := &b.chunk.Ops[addr]
	if op.Code != Jump && op.Code != JumpIfFalse {
		panic(fmt.Sprintf("patch_jump: op at %d is %s, not a jump", addr, op.Code))
	}
	op.Offset = offset
}

// PatchJumpTo patches the jump at addr so that executing it lands
// exactly on target (both instruction indices).
func (b *Builder) PatchJumpTo(addr int, target int) {
	b.PatchJump(addr, target-addr)
}

// PatchJumpToLast patches the jump at addr to land on the address the
// next emitted instruction will get (one past the current last one).
func (b *Builder) PatchJumpToLast(addr int) {
	b.PatchJumpTo(addr, len(b.chunk.Ops))
}

// FileName returns the name this builder's chunk was created with, so
// callers (e.g. the compiler spinning up a sub-compiler for a function
// body) can propagate it without holding their own copy.
func (b *Builder) FileName() string {
	return b.chunk.FileName
}

// NextAddr is the address the next AddOp call will be assigned.
func (b *Builder) NextAddr() int {
	return len(b.chunk.Ops)
}

// Build finalizes and returns the immutable Chunk.
func (b *Builder) Build() *Chunk {
	return b.chunk
}

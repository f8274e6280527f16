package chunk

import (
	"testing"

	"github.com/estevaofon/bauble/internal/value"
)

func TestConstantDeduplication(t *testing.T) {
	b := NewBuilder("test")
	i1 := b.AddConstant(value.NewText("hello"))
	i2 := b.AddConstant(value.NewText("hello"))
	if i1 != i2 {
		t.Fatalf("expected deduplicated index, got %d and %d", i1, i2)
	}
	i3 := b.AddConstant(value.NewText("world"))
	if i3 == i1 {
		t.Fatalf("expected distinct index for distinct string")
	}
}

func TestPatchJumpToLast(t *testing.T) {
	b := NewBuilder("test")
	addr := b.AddOp(Op{Code: JumpIfFalse})
	b.AddOp(Op{Code: Nil})
	b.AddOp(Op{Code: Pop})
	b.PatchJumpToLast(addr)
	c := b.Build()
	op := c.Op(addr)
	target := addr + op.Offset
	if target != 3 {
		t.Fatalf("expected jump to land on instruction 3, got %d", target)
	}
}

func TestPatchJumpPanicsOnNonJump(t *testing.T) {
	defer func() {
		if r := recover(); r == nil {
			t.Fatal("expected panic when patching a non-jump op")
		}
	}()
	b := NewBuilder("test")
	addr := b.AddOp(Op{Code: Pop})
	b.PatchJump(addr, 1)
}

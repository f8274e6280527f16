package compiler

import (
	"testing"

	"github.com/estevaofon/bauble/internal/chunk"
	"github.com/estevaofon/bauble/internal/lexer"
	"github.com/estevaofon/bauble/internal/parser"
)

func mustCompile(t *testing.T, src string) *chunk.Chunk {
	t.Helper()
	p := parser.New(lexer.New(src))
	program, err := p.ParseProgram()
	if err != nil {
		t.Fatalf("parse error: %v", err)
	}
	c, err := Compile(program, "test")
	if err != nil {
		t.Fatalf("compile error: %v", err)
	}
	return c
}

func codes(c *chunk.Chunk) []chunk.OpCode {
	out := make([]chunk.OpCode, len(c.Ops))
	for i, op := range c.Ops {
		out[i] = op.Code
	}
	return out
}

func TestCompileGlobalVarStatement(t *testing.T) {
	c := mustCompile(t, "let a = 1;")
	got := codes(c)
	want := []chunk.OpCode{chunk.ConstFloat, chunk.StoreGlobal, chunk.Pop, chunk.Nil, chunk.Return}
	if len(got) != len(want) {
		t.Fatalf("op count mismatch: got %v want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("op %d: got %s want %s", i, got[i], want[i])
		}
	}
}

func TestCompileSelfShadowingLocal(t *testing.T) {
	// Inner `a` must resolve to the outer local, not to itself, so the
	// result is 2 (outer a) rather than a self-referential error.
	// The outer `a` sits in a block so it is a local (slot 0); a
	// top-level `let` would be a global instead.
	c := mustCompile(t, "{ let a = 1; { let a = a + 1; } }")
	// Expect a LoadLocal(0) (outer a), never referencing slot 1 (the new
	// binding) as a load.
	foundLoadOuter := false
	for _, op := range c.Ops {
		if op.Code == chunk.LoadLocal && op.Int == 0 {
			foundLoadOuter = true
		}
		if op.Code == chunk.LoadLocal && op.Int == 1 {
			t.Fatalf("self-shadowing initializer loaded its own slot 1")
		}
	}
	if !foundLoadOuter {
		t.Fatalf("expected self-shadowing initializer to load the outer local (slot 0)")
	}
}

func TestCompileDuplicateLocalDeclarationErrors(t *testing.T) {
	_, err := CompileSource(t, "{ let a = 1; let a = 2; }")
	if err == nil {
		t.Fatal("expected error for duplicate local declaration in same scope")
	}
	ce, ok := err.(*Error)
	if !ok || ce.Kind != VariableAlreadyDeclared {
		t.Fatalf("expected VariableAlreadyDeclared, got %v", err)
	}
}

// CompileSource is a small test helper mirroring mustCompile but
// surfacing the error instead of failing immediately.
func CompileSource(t *testing.T, src string) (*chunk.Chunk, error) {
	t.Helper()
	p := parser.New(lexer.New(src))
	program, err := p.ParseProgram()
	if err != nil {
		t.Fatalf("parse error: %v", err)
	}
	return Compile(program, "test")
}

func TestCompileIfElseJumpsLand(t *testing.T) {
	c := mustCompile(t, "if (true) { print 1; } else { print 2; }")
	for i, op := range c.Ops {
		if op.Code == chunk.Jump || op.Code == chunk.JumpIfFalse {
			target := i + op.Offset
			if target < 0 || target > len(c.Ops) {
				t.Fatalf("jump at %d targets out-of-range instruction %d", i, target)
			}
		}
	}
}

func TestCompileWhileLoopBacklJump(t *testing.T) {
	c := mustCompile(t, "let i = 0; while (i < 3) { i = i + 1; }")
	sawBackward := false
	for i, op := range c.Ops {
		if op.Code == chunk.Jump && op.Offset < 0 {
			sawBackward = true
			target := i + op.Offset
			if target < 0 || target >= len(c.Ops) {
				t.Fatalf("backward jump at %d targets out-of-range instruction %d", i, target)
			}
		}
	}
	if !sawBackward {
		t.Fatal("expected a backward jump closing the while loop")
	}
}

func TestCompileFunctionStoresConstantAndGlobal(t *testing.T) {
	c := mustCompile(t, "fun add(a, b) { return a + b; }")
	got := codes(c)
	want := []chunk.OpCode{chunk.Const, chunk.StoreGlobal, chunk.Pop, chunk.Nil, chunk.Return}
	if len(got) != len(want) {
		t.Fatalf("op count mismatch: got %v want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("op %d: got %s want %s", i, got[i], want[i])
		}
	}
}

func TestCompileNegateLowersToConstZeroSub(t *testing.T) {
	c := mustCompile(t, "let a = -5;")
	found := false
	for i := 0; i+1 < len(c.Ops); i++ {
		if c.Ops[i].Code == chunk.ConstFloat && c.Ops[i].Float == 0 && c.Ops[i+1].Code == chunk.Sub {
			found = true
		}
	}
	if !found {
		t.Fatal("expected unary negate to lower to ConstFloat(0); Sub")
	}
}

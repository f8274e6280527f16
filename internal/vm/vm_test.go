package vm

import (
	"strings"
	"testing"
)

func run(t *testing.T, src string) string {
	t.Helper()
	var out strings.Builder
	if err := Interpret(src, "test", &out); err != nil {
		t.Fatalf("interpret error for %q: %v", src, err)
	}
	return out.String()
}

func TestScenarioNegateLiteral(t *testing.T) {
	if got := run(t, "print -1;"); got != "-1\n" {
		t.Fatalf("got %q", got)
	}
}

func TestScenarioArithmeticPrecedence(t *testing.T) {
	if got := run(t, "print 2 + 2 * 2 - (3 + 3);"); got != "0\n" {
		t.Fatalf("got %q", got)
	}
}

func TestScenarioWhileLoopCountdown(t *testing.T) {
	want := "5\n4\n3\n2\n1\n100\n"
	if got := run(t, "let i = 5; while (i > 0) { print i; i = i - 1; } print 100;"); got != want {
		t.Fatalf("got %q want %q", got, want)
	}
}

func TestScenarioFunctionCall(t *testing.T) {
	if got := run(t, "fun add(a, b) { return a + b; } print add(1, 2);"); got != "3\n" {
		t.Fatalf("got %q", got)
	}
}

func TestScenarioBlockShadowing(t *testing.T) {
	want := "1\n2\n3\n2\n"
	src := `let a = 1; print a; a = a + 1; print a; { let a = 3; print a; } print a;`
	if got := run(t, src); got != want {
		t.Fatalf("got %q want %q", got, want)
	}
}

func TestScenarioTextIndexAssignment(t *testing.T) {
	if got := run(t, `let w = "Rust"; w[0] = "D"; print w;`); got != "Dust\n" {
		t.Fatalf("got %q", got)
	}
}

func TestScenarioTextIndexIterationWithLen(t *testing.T) {
	want := "R\nu\ns\nt\n"
	src := `let s = "Rust"; let i = 0; while (i < len(s)) { print s[i]; i = i + 1; }`
	if got := run(t, src); got != want {
		t.Fatalf("got %q want %q", got, want)
	}
}

func TestScenarioArrayAliasing(t *testing.T) {
	want := "0\n1\n0\n"
	src := `let m = [0; 3]; print m[0]; m[0] = 1; print m[0]; print m[1];`
	if got := run(t, src); got != want {
		t.Fatalf("got %q want %q", got, want)
	}
}

func TestScenarioElseIfChain(t *testing.T) {
	src := `let input = 11; if (input > 10) { print 3; } else if (input > 5) { print 2; } else { print 1; }`
	if got := run(t, src); got != "3\n" {
		t.Fatalf("got %q", got)
	}
}

func TestScenarioRecursiveFactorial(t *testing.T) {
	src := `fun f(n){ if (n==0) return 1; return n*f(n-1); } print f(5);`
	if got := run(t, src); got != "120\n" {
		t.Fatalf("got %q", got)
	}
}

func TestArrayAssignmentAliasesSharedStorage(t *testing.T) {
	// Binding an array to a second name aliases the same storage; a
	// write through one binding must be visible through the other.
	src := `let a = [0; 2]; let b = a; a[0] = 9; print b[0];`
	if got := run(t, src); got != "9\n" {
		t.Fatalf("got %q, expected array aliasing to be observable", got)
	}
}

func TestStringIndexOutOfBounds(t *testing.T) {
	var out strings.Builder
	err := Interpret(`print "abc"[3];`, "test", &out)
	if err == nil {
		t.Fatal("expected an out-of-bounds error")
	}
	ve, ok := err.(*Error)
	if !ok || ve.Kind != ArrayAccessError || ve.TypeErr == nil || ve.TypeErr.Kind != IndexOutOfBounds {
		t.Fatalf("expected ArrayAccessError/IndexOutOfBounds, got %v", err)
	}
}

func TestStringIndexValidRead(t *testing.T) {
	if got := run(t, `print "abc"[0];`); got != "a\n" {
		t.Fatalf("got %q", got)
	}
}

func TestAssigningNonTextIntoTextIndexErrors(t *testing.T) {
	var out strings.Builder
	err := Interpret(`let w = "abc"; w[0] = 1;`, "test", &out)
	if err == nil {
		t.Fatal("expected UnsupportedArrayValueType error")
	}
	ve, ok := err.(*Error)
	if !ok || ve.Kind != ArrayAccessError || ve.TypeErr == nil || ve.TypeErr.Kind != UnsupportedArrayValueType {
		t.Fatalf("expected UnsupportedArrayValueType, got %v", err)
	}
}

func TestCallWrongArityErrors(t *testing.T) {
	var out strings.Builder
	err := Interpret(`fun add(a, b) { return a + b; } print add(1);`, "test", &out)
	if err == nil {
		t.Fatal("expected arity mismatch error")
	}
	if ve, ok := err.(*Error); !ok || ve.Kind != TypeMismatch {
		t.Fatalf("expected TypeMismatch, got %v", err)
	}
}

func TestStackEmptyAfterRun(t *testing.T) {
	vmi := New(&strings.Builder{})
	if err := interpretOn(vmi, "let a = 1; print a;"); err != nil {
		t.Fatalf("interpret error: %v", err)
	}
	if len(vmi.stack) != 0 {
		t.Fatalf("expected empty stack after run, got %d entries", len(vmi.stack))
	}
}

package value

import "testing"

func TestIsTruthyOnlyAcceptsBool(t *testing.T) {
	if !NewBool(true).IsTruthy() {
		t.Fatal("true should be truthy")
	}
	if NewBool(false).IsTruthy() {
		t.Fatal("false should not be truthy")
	}
	if NewNumber(0).IsTruthy() {
		t.Fatal("non-bool values are never truthy")
	}
	if Nil().IsTruthy() {
		t.Fatal("nil is never truthy")
	}
}

func TestEqualRejectsMixedTypes(t *testing.T) {
	if _, ok := Nil().Equal(NewNumber(0)); ok {
		t.Fatal("nil and 0 should not be comparable")
	}
	if eq, ok := NewNumber(1).Equal(NewNumber(1)); !ok || !eq {
		t.Fatal("equal numbers should compare equal")
	}
	if eq, ok := NewText("a").Equal(NewText("b")); !ok || eq {
		t.Fatal("distinct text should compare unequal")
	}
}

func TestEqualNaNIsNeverEqual(t *testing.T) {
	nan := NewNumber(nan())
	if eq, ok := nan.Equal(nan); !ok || eq {
		t.Fatal("NaN must not equal itself")
	}
}

func nan() float64 {
	var zero float64
	return zero / zero
}

func TestArrayAliasSharesStorage(t *testing.T) {
	arr := &Array{Elements: []Value{NewNumber(1), NewNumber(2)}}
	a := NewArray(arr)
	b := a
	b.Array.Elements[0] = NewNumber(99)
	if a.Array.Elements[0].Number != 99 {
		t.Fatal("aliasing the same *Array must share mutations")
	}
}

func TestConstantKeyDistinguishesTypes(t *testing.T) {
	if NewNumber(0).ConstantKey() == NewText("0").ConstantKey() {
		t.Fatal("number 0 and text \"0\" must have distinct constant keys")
	}
	if NewNumber(1).ConstantKey() != NewNumber(1).ConstantKey() {
		t.Fatal("identical numbers must share a constant key")
	}
}

func TestStringRendering(t *testing.T) {
	cases := []struct {
		v    Value
		want string
	}{
		{Nil(), "nil"},
		{NewBool(true), "true"},
		{NewNumber(3.5), "3.5"},
		{NewText("hi"), "hi"},
	}
	for _, c := range cases {
		if got := c.v.String(); got != c.want {
			t.Fatalf("String() = %q, want %q", got, c.want)
		}
	}
}

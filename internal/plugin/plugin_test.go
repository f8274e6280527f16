package plugin

import (
	"testing"

	"github.com/estevaofon/bauble/internal/value"
)

func TestValueToInterfaceRoundTrip(t *testing.T) {
	cases := []value.Value{
		value.Nil(),
		value.NewBool(true),
		value.NewNumber(42.5),
		value.NewText("hello"),
		value.NewArray(&value.Array{Elements: []value.Value{value.NewNumber(1), value.NewText("two")}}),
	}
	for _, v := range cases {
		back := interfaceToValue(valueToInterface(v))
		if back.Type != v.Type {
			t.Fatalf("round trip changed type: %v -> %v", v.Type, back.Type)
		}
	}
}

func TestResolveExecutableMissing(t *testing.T) {
	if _, err := resolveExecutable("nonexistent-plugin", "nonexistent-executable-xyz"); err == nil {
		t.Fatal("expected an error resolving a nonexistent executable")
	}
}

// Package value defines Bauble's runtime value representation: a tagged
// struct in the same spirit as the teacher interpreter's Value type,
// extended with a shared-mutable Array object so that aliasing an array
// binding is observable through every alias while strings stay immutable.
package value

import (
	"fmt"
	"strconv"
)

// Type tags the variant a Value currently holds.
type Type int

const (
	NilType Type = iota
	BoolType
	NumberType
	TextType
	ArrayType
	FunctionType
	NativeFunctionType
	AddressType
)

func (t Type) String() string {
	switch t {
	case NilType:
		return "nil"
	case BoolType:
		return "bool"
	case NumberType:
		return "number"
	case TextType:
		return "text"
	case ArrayType:
		return "array"
	case FunctionType:
		return "function"
	case NativeFunctionType:
		return "native function"
	case AddressType:
		return "address"
	default:
		return "unknown"
	}
}

// Chunk is satisfied by *chunk.Chunk. Kept as an interface here to avoid
// an import cycle between value and chunk (chunk.Chunk's constant pool
// holds this package's Value).
type Chunk interface {
	OpCount() int
}

// Array is the shared-mutable backing store behind an ArrayType value.
// Every Value that aliases the same Array observes writes made through
// any other alias (spec.md §9).
type Array struct {
	Elements []Value
}

// Function is a user-defined, named, immutable callable: its Chunk is
// shared by every Value referencing it.
type Function struct {
	Name  string
	Arity int
	Chunk Chunk
}

// NativeFunc is the Go-side implementation of a native function: it
// receives exactly Arity arguments and returns exactly one Value.
type NativeFunc func(args []Value) (Value, error)

// NativeFunction is a host-provided callable invoked through the same
// Call opcode as a user Function.
type NativeFunction struct {
	Name  string
	Arity int
	Fn    NativeFunc
}

// Value is a tagged union over Bauble's runtime types.
type Value struct {
	Type    Type
	Bool    bool
	Number  float64
	Text    string
	Address int
	Array   *Array
	Func    *Function
	Native  *NativeFunction
}

func Nil() Value                 { return Value{Type: NilType} }
func NewBool(b bool) Value       { return Value{Type: BoolType, Bool: b} }
func NewNumber(n float64) Value  { return Value{Type: NumberType, Number: n} }
func NewText(s string) Value     { return Value{Type: TextType, Text: s} }
func NewAddress(a int) Value     { return Value{Type: AddressType, Address: a} }
func NewArray(a *Array) Value    { return Value{Type: ArrayType, Array: a} }
func NewFunction(f *Function) Value {
	return Value{Type: FunctionType, Func: f}
}
func NewNative(n *NativeFunction) Value {
	return Value{Type: NativeFunctionType, Native: n}
}

// NewArrayOf builds a fresh shared array of size copies of initial.
func NewArrayOf(initial Value, size int) Value {
	elems := make([]Value, size)
	for i := range elems {
		elems[i] = initial
	}
	return NewArray(&Array{Elements: elems})
}

// IsTruthy follows spec.md's Bool-only condition semantics; callers
// (JumpIfFalse) reject non-bool values with TypeMismatch rather than
// calling this on arbitrary values.
func (v Value) IsTruthy() bool {
	return v.Type == BoolType && v.Bool
}

// Equal implements the equality used by Cmp: defined only for matching
// (number,number), (bool,bool) and (text,text) pairs. NaN is never equal
// to itself, per IEEE-754.
func (v Value) Equal(other Value) (bool, bool) {
	if v.Type != other.Type {
		return false, false
	}
	switch v.Type {
	case NumberType:
		return v.Number == other.Number, true
	case BoolType:
		return v.Bool == other.Bool, true
	case TextType:
		return v.Text == other.Text, true
	default:
		return false, false
	}
}

// String renders a Value the way Print does: numbers use Go's shortest
// round-tripping float format, arrays render as a length summary
// (spec.md §9: "treat as implementation-defined"; this core renders a
// summary, not an element-wise dump).
func (v Value) String() string {
	switch v.Type {
	case NilType:
		return "nil"
	case BoolType:
		return strconv.FormatBool(v.Bool)
	case NumberType:
		return strconv.FormatFloat(v.Number, 'g', -1, 64)
	case TextType:
		return v.Text
	case AddressType:
		return fmt.Sprintf("<address %d>", v.Address)
	case ArrayType:
		return fmt.Sprintf("[%d]", len(v.Array.Elements))
	case FunctionType:
		return fmt.Sprintf("<fn %s>", v.Func.Name)
	case NativeFunctionType:
		return fmt.Sprintf("<native fn %s>", v.Native.Name)
	default:
		return "<unknown>"
	}
}

// ConstantKey returns a string that uniquely identifies this value for
// constant-pool de-duplication purposes (spec.md §4.3/§4.4). Only value
// kinds that the compiler ever places in the constant pool (numbers,
// strings, functions by identity) need to be distinguishable here.
func (v Value) ConstantKey() string {
	switch v.Type {
	case NumberType:
		return "n:" + strconv.FormatFloat(v.Number, 'g', -1, 64)
	case TextType:
		return "t:" + v.Text
	case BoolType:
		return "b:" + strconv.FormatBool(v.Bool)
	case NilType:
		return "nil"
	case AddressType:
		return "addr:" + strconv.Itoa(v.Address)
	case ArrayType:
		return fmt.Sprintf("a:%p", v.Array)
	case NativeFunctionType:
		return fmt.Sprintf("nf:%p", v.Native)
	default:
		// Functions and other reference-like constants are never
		// de-duplicated against each other.
		return fmt.Sprintf("u:%p", v.Func)
	}
}

// Package vm implements Bauble's stack-based virtual machine: a single
// value stack shared by nested CallFrames, a flat global namespace, and
// an opcode dispatch loop, in the teacher interpreter's run-loop style
// but driven by chunk's instruction-indexed Chunk rather than a
// byte-packed one.
package vm

import (
	"fmt"
	"io"
	"math"

	"github.com/estevaofon/bauble/internal/chunk"
	"github.com/estevaofon/bauble/internal/value"
)

// DefaultStackCapacity is spec.md §5's default value-stack bound.
const DefaultStackCapacity = 1 << 20 // 1,048,576

// CallFrame is one activation record: a chunk, its instruction pointer,
// and the value-stack index its callable slot and locals start at.
type CallFrame struct {
	Chunk     *chunk.Chunk
	IP        int
	StackBase int
}

// Tracer is invoked before and after every instruction, purely for
// diagnostics (spec.md §4.5, §9 "Tracing"). It must be safe to leave
// nil.
type Tracer interface {
	Before(c *chunk.Chunk, ip int, stack []value.Value)
	After(c *chunk.Chunk, ip int, stack []value.Value)
}

// Vm is a single-threaded, synchronous bytecode interpreter.
type Vm struct {
	stack    []value.Value
	capacity int

	frames []*CallFrame

	globals map[string]value.Value

	out    io.Writer
	Tracer Tracer
}

// New returns a Vm writing Print output to out, with the default stack
// capacity and the standard-library natives (len, as_char, as_string)
// already registered.
func New(out io.Writer) *Vm {
	return NewWithCapacity(out, DefaultStackCapacity)
}

func NewWithCapacity(out io.Writer, capacity int) *Vm {
	vm := &Vm{
		stack:    make([]value.Value, 0, 64),
		capacity: capacity,
		globals:  make(map[string]value.Value),
		out:      out,
	}
	vm.defineStandardLibrary()
	return vm
}

// DefineNative installs a host-provided callable in the global
// namespace, the same extension point the teacher interpreter's
// vm.DefineNative offers, and the one cmd/noxy-plugin-dynamodb-backed
// natives hook into.
func (vm *Vm) DefineNative(name string, arity int, fn value.NativeFunc) {
	vm.globals[name] = value.NewNative(&value.NativeFunction{Name: name, Arity: arity, Fn: fn})
}

func (vm *Vm) defineStandardLibrary() {
	vm.DefineNative("len", 1, func(args []value.Value) (value.Value, error) {
		switch args[0].Type {
		case value.TextType:
			return value.NewNumber(float64(len([]rune(args[0].Text)))), nil
		case value.ArrayType:
			return value.NewNumber(float64(len(args[0].Array.Elements))), nil
		default:
			return value.Value{}, &Error{Kind: TypeMismatch}
		}
	})
	vm.DefineNative("as_char", 1, func(args []value.Value) (value.Value, error) {
		if args[0].Type != value.NumberType {
			return value.Value{}, &Error{Kind: TypeMismatch}
		}
		b := byte(int64(args[0].Number))
		return value.NewText(string(rune(b))), nil
	})
	vm.DefineNative("as_string", 1, func(args []value.Value) (value.Value, error) {
		return value.NewText(args[0].String()), nil
	})
}

// LoadAndRun wraps a bare chunk as an implicit script and runs it
// (spec.md §4.5, "load_and_run").
func (vm *Vm) LoadAndRun(c *chunk.Chunk) error {
	return vm.RunScript(&value.Function{Name: "<script>", Arity: 0, Chunk: c})
}

// RunScript pushes script onto the stack so its callable lives at the
// frame base, pushes the initial CallFrame, runs to completion, then
// pops the trailing script value so the stack is left empty
// (spec.md §8 invariant 1).
func (vm *Vm) RunScript(script *value.Function) error {
	vm.push(value.NewFunction(script))
	vm.frames = append(vm.frames, &CallFrame{Chunk: script.Chunk.(*chunk.Chunk), IP: 0, StackBase: 0})

	if err := vm.run(); err != nil {
		return err
	}

	if len(vm.stack) > 0 {
		vm.stack = vm.stack[:len(vm.stack)-1]
	}
	return nil
}

func (vm *Vm) currentFrame() *CallFrame {
	return vm.frames[len(vm.frames)-1]
}

func (vm *Vm) runtimeError(kind ErrorKind) *Error {
	e := &Error{Kind: kind}
	if len(vm.frames) > 0 {
		frame := vm.currentFrame()
		e.File = frame.Chunk.FileName
		ip := frame.IP
		if ip > 0 && ip <= len(frame.Chunk.Lines) {
			e.Line = frame.Chunk.Lines[ip-1]
		}
	}
	return e
}

func (vm *Vm) push(v value.Value) error {
	if len(vm.stack) >= vm.capacity {
		return vm.runtimeError(StackExhausted)
	}
	vm.stack = append(vm.stack, v)
	return nil
}

func (vm *Vm) pop() (value.Value, error) {
	if len(vm.stack) == 0 {
		return value.Value{}, vm.runtimeError(StackExhausted)
	}
	v := vm.stack[len(vm.stack)-1]
	vm.stack = vm.stack[:len(vm.stack)-1]
	return v, nil
}

func (vm *Vm) peek(distanceFromTop int) (value.Value, error) {
	i := len(vm.stack) - 1 - distanceFromTop
	if i < 0 {
		return value.Value{}, vm.runtimeError(StackExhausted)
	}
	return vm.stack[i], nil
}

// run is the main dispatch loop: it advances the top frame's ip and
// dispatches on the op, until the initial script frame itself returns.
func (vm *Vm) run() error {
	for len(vm.frames) > 0 {
		frame := vm.currentFrame()
		if frame.IP >= frame.Chunk.Len() {
			// The compiler always appends Nil;Return, so this is
			// reached only for a degenerate empty chunk.
			vm.frames = vm.frames[:len(vm.frames)-1]
			continue
		}

		addr := frame.IP
		op := frame.Chunk.Op(addr)
		frame.IP++

		if vm.Tracer != nil {
			vm.Tracer.Before(frame.Chunk, addr, vm.stack)
		}

		if err := vm.dispatch(frame, addr, op); err != nil {
			return err
		}

		if vm.Tracer != nil {
			vm.Tracer.After(frame.Chunk, addr, vm.stack)
		}
	}
	return nil
}

func (vm *Vm) dispatch(frame *CallFrame, addr int, op chunk.Op) error {
	switch op.Code {
	case chunk.ConstFloat:
		return vm.push(value.NewNumber(op.Float))
	case chunk.ConstBool:
		return vm.push(value.NewBool(op.Bool))
	case chunk.Const:
		if op.Int < 0 || op.Int >= len(frame.Chunk.Constants) {
			return vm.runtimeError(UndefinedConstant)
		}
		return vm.push(frame.Chunk.Constant(op.Int))
	case chunk.Nil:
		return vm.push(value.Nil())
	case chunk.Pop:
		_, err := vm.pop()
		return err
	case chunk.Add:
		return vm.binaryAdd()
	case chunk.Sub:
		return vm.binaryArith(op.Code)
	case chunk.Mul:
		return vm.binaryArith(op.Code)
	case chunk.Div:
		return vm.binaryArith(op.Code)
	case chunk.Cmp:
		return vm.binaryCmp()
	case chunk.Ge:
		return vm.binaryRelational(op.Code)
	case chunk.Le:
		return vm.binaryRelational(op.Code)
	case chunk.Not:
		return vm.unaryNot()
	case chunk.Print:
		return vm.doPrint()
	case chunk.StoreGlobal:
		return vm.storeGlobal(frame, op)
	case chunk.LoadGlobal:
		return vm.loadGlobal(frame, op)
	case chunk.StoreLocal:
		return vm.storeLocal(frame, op)
	case chunk.LoadLocal:
		return vm.loadLocal(frame, op)
	case chunk.Jump:
		return vm.doJump(frame, addr, op)
	case chunk.JumpIfFalse:
		return vm.doJumpIfFalse(frame, addr, op)
	case chunk.Array:
		return vm.buildArray()
	case chunk.LoadIndex:
		return vm.loadIndex()
	case chunk.StoreIndex:
		return vm.storeIndex()
	case chunk.Call:
		return vm.doCall(op.Int)
	case chunk.Return:
		return vm.doReturn()
	default:
		return vm.runtimeError(WrongOperation)
	}
}

// binaryAdd pops left (top) then right: Number+Number, or Text++Text.
func (vm *Vm) binaryAdd() error {
	left, err := vm.pop()
	if err != nil {
		return err
	}
	right, err := vm.pop()
	if err != nil {
		return err
	}
	if left.Type == value.NumberType && right.Type == value.NumberType {
		return vm.push(value.NewNumber(left.Number + right.Number))
	}
	if left.Type == value.TextType && right.Type == value.TextType {
		return vm.push(value.NewText(left.Text + right.Text))
	}
	return vm.runtimeError(TypeMismatch)
}

// binaryArith handles Sub/Mul/Div: number,number -> number.
func (vm *Vm) binaryArith(code chunk.OpCode) error {
	left, err := vm.pop()
	if err != nil {
		return err
	}
	right, err := vm.pop()
	if err != nil {
		return err
	}
	if left.Type != value.NumberType || right.Type != value.NumberType {
		return vm.runtimeError(TypeMismatch)
	}
	var result float64
	switch code {
	case chunk.Sub:
		result = left.Number - right.Number
	case chunk.Mul:
		result = left.Number * right.Number
	case chunk.Div:
		result = left.Number / right.Number
	}
	return vm.push(value.NewNumber(result))
}

// binaryCmp pops left then right and pushes their equality. Defined
// only for matching (number,number), (bool,bool), (text,text) pairs;
// anything else (including mixed types such as `nil == 0`) is rejected
// rather than guessed at (spec.md §9, Open Question resolution).
func (vm *Vm) binaryCmp() error {
	left, err := vm.pop()
	if err != nil {
		return err
	}
	right, err := vm.pop()
	if err != nil {
		return err
	}
	eq, ok := left.Equal(right)
	if !ok {
		return vm.runtimeError(TypeMismatch)
	}
	return vm.push(value.NewBool(eq))
}

// binaryRelational handles Ge/Le: pops left (top) then right, compares
// left against right directly. The compiler's lowering table maps
// GreaterOrEqual/LessOrEqual straight onto bare Ge/Le and Less/Greater
// onto Ge/Le followed by Not (spec.md §4.3); this pop order is the one
// that makes both that table and the worked `while (i > 0)` example
// (§8, scenario 3) produce the right answer.
func (vm *Vm) binaryRelational(code chunk.OpCode) error {
	left, err := vm.pop()
	if err != nil {
		return err
	}
	right, err := vm.pop()
	if err != nil {
		return err
	}
	if left.Type != value.NumberType || right.Type != value.NumberType {
		return vm.runtimeError(TypeMismatch)
	}
	var result bool
	if code == chunk.Ge {
		result = left.Number >= right.Number
	} else {
		result = left.Number <= right.Number
	}
	return vm.push(value.NewBool(result))
}

func (vm *Vm) unaryNot() error {
	v, err := vm.pop()
	if err != nil {
		return err
	}
	if v.Type != value.BoolType {
		return vm.runtimeError(TypeMismatch)
	}
	return vm.push(value.NewBool(!v.Bool))
}

func (vm *Vm) doPrint() error {
	v, err := vm.pop()
	if err != nil {
		return err
	}
	if _, werr := fmt.Fprintln(vm.out, v.String()); werr != nil {
		e := vm.runtimeError(IoError)
		e.Underlying = werr
		return e
	}
	return nil
}

func (vm *Vm) storeGlobal(frame *CallFrame, op chunk.Op) error {
	v, err := vm.peek(0)
	if err != nil {
		return err
	}
	name := frame.Chunk.Constant(op.Int)
	vm.globals[name.Text] = v
	return nil
}

func (vm *Vm) loadGlobal(frame *CallFrame, op chunk.Op) error {
	name := frame.Chunk.Constant(op.Int)
	v, ok := vm.globals[name.Text]
	if !ok {
		e := vm.runtimeError(UndefinedVariable)
		e.Name = name.Text
		return e
	}
	return vm.push(v)
}

func (vm *Vm) storeLocal(frame *CallFrame, op chunk.Op) error {
	v, err := vm.peek(0)
	if err != nil {
		return err
	}
	i := frame.StackBase + op.Int + 1
	if i < 0 || i >= len(vm.stack) {
		return vm.runtimeError(StackExhausted)
	}
	vm.stack[i] = v
	return nil
}

func (vm *Vm) loadLocal(frame *CallFrame, op chunk.Op) error {
	i := frame.StackBase + op.Int + 1
	if i < 0 || i >= len(vm.stack) {
		return vm.runtimeError(UndefinedVariable)
	}
	return vm.push(vm.stack[i])
}

// doJump and doJumpIfFalse compute their target relative to the jump
// instruction's own address (matching chunk's disassembler, which
// renders a jump's target as `i + op.Offset`), not the post-increment
// ip.
func (vm *Vm) doJump(frame *CallFrame, addr int, op chunk.Op) error {
	target := addr + op.Offset
	if target < 0 || target > frame.Chunk.Len() {
		e := vm.runtimeError(IllegalJump)
		e.IP = addr
		e.Offset = op.Offset
		return e
	}
	frame.IP = target
	return nil
}

func (vm *Vm) doJumpIfFalse(frame *CallFrame, addr int, op chunk.Op) error {
	cond, err := vm.pop()
	if err != nil {
		return err
	}
	if cond.Type != value.BoolType {
		return vm.runtimeError(TypeMismatch)
	}
	if !cond.Bool {
		target := addr + op.Offset
		if target < 0 || target > frame.Chunk.Len() {
			e := vm.runtimeError(IllegalJump)
			e.IP = addr
			e.Offset = op.Offset
			return e
		}
		frame.IP = target
	}
	return nil
}

func (vm *Vm) buildArray() error {
	initial, err := vm.pop()
	if err != nil {
		return err
	}
	sizeVal, err := vm.pop()
	if err != nil {
		return err
	}
	if sizeVal.Type != value.NumberType {
		return vm.runtimeError(TypeMismatch)
	}
	size := int(sizeVal.Number)
	if size < 0 {
		return vm.runtimeError(TypeMismatch)
	}
	return vm.push(value.NewArrayOf(initial, size))
}

// indexOf validates an index Value and converts it to an int.
func indexOf(v value.Value) (int, *TypeError) {
	if v.Type != value.NumberType {
		return 0, &TypeError{Kind: InvalidIndexType}
	}
	if v.Number != math.Trunc(v.Number) {
		return 0, &TypeError{Kind: IncorrectIndex}
	}
	return int(v.Number), nil
}

func (vm *Vm) loadIndex() error {
	arr, err := vm.pop()
	if err != nil {
		return err
	}
	idxVal, err := vm.pop()
	if err != nil {
		return err
	}
	idx, terr := indexOf(idxVal)
	if terr != nil {
		e := vm.runtimeError(ArrayAccessError)
		e.TypeErr = terr
		return e
	}
	switch arr.Type {
	case value.ArrayType:
		if idx < 0 || idx >= len(arr.Array.Elements) {
			e := vm.runtimeError(ArrayAccessError)
			e.TypeErr = &TypeError{Kind: IndexOutOfBounds, Index: idx, Size: len(arr.Array.Elements)}
			return e
		}
		return vm.push(arr.Array.Elements[idx])
	case value.TextType:
		runes := []rune(arr.Text)
		if idx < 0 || idx >= len(runes) {
			e := vm.runtimeError(ArrayAccessError)
			e.TypeErr = &TypeError{Kind: IndexOutOfBounds, Index: idx, Size: len(runes)}
			return e
		}
		return vm.push(value.NewText(string(runes[idx])))
	default:
		e := vm.runtimeError(ArrayAccessError)
		e.TypeErr = &TypeError{Kind: UnsupportedArrayType}
		return e
	}
}

// storeIndex mutates an Array in place (re-pushing the same ref) or
// produces a fresh Text with the substituted character, since Text is
// copy-on-write (spec.md §5, §9).
func (vm *Vm) storeIndex() error {
	newVal, err := vm.pop()
	if err != nil {
		return err
	}
	target, err := vm.pop()
	if err != nil {
		return err
	}
	idxVal, err := vm.pop()
	if err != nil {
		return err
	}
	idx, terr := indexOf(idxVal)
	if terr != nil {
		e := vm.runtimeError(ArrayAccessError)
		e.TypeErr = terr
		return e
	}
	switch target.Type {
	case value.ArrayType:
		if idx < 0 || idx >= len(target.Array.Elements) {
			e := vm.runtimeError(ArrayAccessError)
			e.TypeErr = &TypeError{Kind: IndexOutOfBounds, Index: idx, Size: len(target.Array.Elements)}
			return e
		}
		target.Array.Elements[idx] = newVal
		return vm.push(target)
	case value.TextType:
		if newVal.Type != value.TextType || len([]rune(newVal.Text)) != 1 {
			e := vm.runtimeError(ArrayAccessError)
			e.TypeErr = &TypeError{Kind: UnsupportedArrayValueType}
			return e
		}
		runes := []rune(target.Text)
		if idx < 0 || idx >= len(runes) {
			e := vm.runtimeError(ArrayAccessError)
			e.TypeErr = &TypeError{Kind: IndexOutOfBounds, Index: idx, Size: len(runes)}
			return e
		}
		runes[idx] = []rune(newVal.Text)[0]
		return vm.push(value.NewText(string(runes)))
	default:
		e := vm.runtimeError(ArrayAccessError)
		e.TypeErr = &TypeError{Kind: UnsupportedArrayType}
		return e
	}
}

// doCall peeks the callable at depth arity from top, per spec.md §4.5.
func (vm *Vm) doCall(arity int) error {
	callee, err := vm.peek(arity)
	if err != nil {
		return err
	}
	switch callee.Type {
	case value.FunctionType:
		if arity != callee.Func.Arity {
			return vm.runtimeError(TypeMismatch)
		}
		c, ok := callee.Func.Chunk.(*chunk.Chunk)
		if !ok {
			return vm.runtimeError(WrongOperation)
		}
		vm.frames = append(vm.frames, &CallFrame{
			Chunk:     c,
			IP:        0,
			StackBase: len(vm.stack) - arity - 1,
		})
		return nil
	case value.NativeFunctionType:
		if arity != callee.Native.Arity {
			return vm.runtimeError(TypeMismatch)
		}
		args := make([]value.Value, arity)
		copy(args, vm.stack[len(vm.stack)-arity:])
		result, nerr := callee.Native.Fn(args)
		if nerr != nil {
			return nerr
		}
		vm.stack = vm.stack[:len(vm.stack)-arity-1]
		return vm.push(result)
	default:
		return vm.runtimeError(TypeMismatch)
	}
}

// doReturn pops the result, pops the current frame, truncates the
// stack to that frame's base, and pushes the result back so it becomes
// the value the caller sees.
func (vm *Vm) doReturn() error {
	result, err := vm.pop()
	if err != nil {
		return err
	}
	frame := vm.currentFrame()
	vm.frames = vm.frames[:len(vm.frames)-1]
	vm.stack = vm.stack[:frame.StackBase]
	return vm.push(result)
}

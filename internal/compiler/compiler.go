// Package compiler lowers a Bauble ast.Program into a chunk.Chunk: it
// tracks lexical scope with a flat Locals table in the same spirit as
// the teacher interpreter's single-pass compiler, resolves names to
// either local stack slots or constant-pool-backed global names, and
// patches forward jumps once their target address is known.
package compiler

import (
	"github.com/estevaofon/bauble/internal/ast"
	"github.com/estevaofon/bauble/internal/chunk"
	"github.com/estevaofon/bauble/internal/value"
)

// local is one entry in the flat, append-only scope table. Initialized
// is false for the brief window between a `let` declaring its slot and
// its initializer finishing compilation, so that `let x = x;` resolves
// the right-hand `x` to an outer binding rather than to itself
// (spec.md §4.3, "self-shadowing").
type local struct {
	name        string
	depth       int
	initialized bool
}

// Compiler compiles one function body (or the top-level program, which
// is treated as a depth-0 function) into a single chunk.Chunk.
type Compiler struct {
	builder *chunk.Builder
	locals  []local
	depth   int
}

// New returns a compiler for the top-level program, at scope depth 0.
func New(fileName string) *Compiler {
	return &Compiler{builder: chunk.NewBuilder(fileName)}
}

// newFunctionCompiler returns a sub-compiler for a function body. Its
// parameters occupy depth 1 as already-initialized locals, matching
// spec.md §4.3's "Function(name, params, body)" rule: the body's own
// statements are compiled directly into this same depth, so a bare
// `{ ... }` function body does not introduce a second, redundant scope
// beyond the one implicitly owned by its parameters.
func newFunctionCompiler(fileName string, params []string) *Compiler {
	c := &Compiler{builder: chunk.NewBuilder(fileName), depth: 1}
	for _, p := range params {
		c.locals = append(c.locals, local{name: p, depth: 1, initialized: true})
	}
	return c
}

// Compile lowers an entire program to a Chunk. The implicit top-level
// return value is nil, matching a function falling off the end of its
// body (spec.md §4.3).
func Compile(program *ast.Program, fileName string) (*chunk.Chunk, error) {
	c := New(fileName)
	for _, stmt := range program.Statements {
		if err := c.compileStatement(stmt); err != nil {
			return nil, err
		}
	}
	c.builder.AddOp(chunk.Op{Code: chunk.Nil})
	c.builder.AddOp(chunk.Op{Code: chunk.Return})
	return c.builder.Build(), nil
}

// ---- scope management ----

func (c *Compiler) beginScope() { c.depth++ }

// endScope pops every local declared at the scope being left, one Pop
// per local (spec.md §4.3: "exactly one Pop is emitted per local
// dropped when leaving its scope").
func (c *Compiler) endScope() {
	c.depth--
	for len(c.locals) > 0 && c.locals[len(c.locals)-1].depth > c.depth {
		c.builder.AddOp(chunk.Op{Code: chunk.Pop})
		c.locals = c.locals[:len(c.locals)-1]
	}
}

// addLocal declares name in the current scope. Two locals of the same
// name at the same depth is a compile error; shadowing an outer scope
// is fine.
func (c *Compiler) addLocal(name string) error {
	for i := len(c.locals) - 1; i >= 0 && c.locals[i].depth == c.depth; i-- {
		if c.locals[i].name == name {
			return &Error{Kind: VariableAlreadyDeclared, Name: name}
		}
	}
	c.locals = append(c.locals, local{name: name, depth: c.depth})
	return nil
}

// resolveLocal scans innermost-to-outermost, skipping any entry still
// mid-initialization so self-shadowing initializers see the outer
// binding. Returns -1 when name is not a local (i.e. it is global).
func (c *Compiler) resolveLocal(name string) int {
	for i := len(c.locals) - 1; i >= 0; i-- {
		if c.locals[i].name == name && c.locals[i].initialized {
			return i
		}
	}
	return -1
}

func (c *Compiler) nameConstant(name string) int {
	return c.builder.AddConstant(value.NewText(name))
}

// ---- statements ----

func (c *Compiler) compileStatement(stmt ast.Statement) error {
	switch s := stmt.(type) {
	case *ast.ExpressionStatement:
		if err := c.compileExpression(s.Expression); err != nil {
			return err
		}
		c.builder.AddOp(chunk.Op{Code: chunk.Pop})
		return nil
	case *ast.VarStatement:
		return c.compileVarStatement(s)
	case *ast.FunctionStatement:
		return c.compileFunctionStatement(s)
	case *ast.PrintStatement:
		if err := c.compileExpression(s.Value); err != nil {
			return err
		}
		c.builder.AddOp(chunk.Op{Code: chunk.Print})
		return nil
	case *ast.BlockStatement:
		c.beginScope()
		for _, inner := range s.Statements {
			if err := c.compileStatement(inner); err != nil {
				return err
			}
		}
		c.endScope()
		return nil
	case *ast.IfStatement:
		return c.compileIfStatement(s)
	case *ast.WhileStatement:
		return c.compileWhileStatement(s)
	case *ast.ReturnStatement:
		if err := c.compileExpression(s.Value); err != nil {
			return err
		}
		c.builder.AddOp(chunk.Op{Code: chunk.Return})
		return nil
	default:
		return &Error{Kind: Unknown}
	}
}

// compileVarStatement lowers `let name = init;`. At depth 0 the binding
// becomes a global (StoreGlobal followed by Pop, since nothing should
// remain on the stack after a top-level statement); at depth > 0 it
// becomes a fresh stack slot, whose StoreLocal leaves the value in
// place as the slot's storage.
func (c *Compiler) compileVarStatement(s *ast.VarStatement) error {
	if c.depth == 0 {
		if err := c.compileInitializer(s.Init); err != nil {
			return err
		}
		idx := c.nameConstant(s.Name)
		c.builder.AddOp(chunk.Op{Code: chunk.StoreGlobal, Int: idx})
		c.builder.AddOp(chunk.Op{Code: chunk.Pop})
		return nil
	}

	// Declare the slot before compiling the initializer so a
	// self-referencing initializer resolves to the outer binding, not
	// to this still-uninitialized slot.
	if err := c.addLocal(s.Name); err != nil {
		return err
	}
	if err := c.compileInitializer(s.Init); err != nil {
		return err
	}
	c.locals[len(c.locals)-1].initialized = true
	c.builder.AddOp(chunk.Op{Code: chunk.StoreLocal, Int: len(c.locals) - 1})
	return nil
}

func (c *Compiler) compileInitializer(init ast.Expression) error {
	if init == nil {
		c.builder.AddOp(chunk.Op{Code: chunk.Nil})
		return nil
	}
	return c.compileExpression(init)
}

// compileFunctionStatement compiles the body in a fresh sub-compiler at
// depth 1, then stores the resulting value.Function as a global in the
// enclosing compiler (functions live in the same namespace as other
// globals; spec.md has no closures, so a fresh, parameterless Compiler
// suffices).
func (c *Compiler) compileFunctionStatement(s *ast.FunctionStatement) error {
	fc := newFunctionCompiler(c.builder.FileName(), s.Parameters)
	for _, inner := range s.Body.Statements {
		if err := fc.compileStatement(inner); err != nil {
			return err
		}
	}
	fc.builder.AddOp(chunk.Op{Code: chunk.Nil})
	fc.builder.AddOp(chunk.Op{Code: chunk.Return})
	fnChunk := fc.builder.Build()

	fn := &value.Function{Name: s.Name, Arity: len(s.Parameters), Chunk: fnChunk}
	idx := c.builder.AddConstant(value.NewFunction(fn))
	c.builder.AddOp(chunk.Op{Code: chunk.Const, Int: idx})
	nameIdx := c.nameConstant(s.Name)
	c.builder.AddOp(chunk.Op{Code: chunk.StoreGlobal, Int: nameIdx})
	c.builder.AddOp(chunk.Op{Code: chunk.Pop})
	return nil
}

// compileIfStatement emits: cond; JumpIfFalse elseLabel; then; Jump end;
// elseLabel: else; end:  The JumpIfFalse op also pops the condition
// value, matching chunk's opcode semantics.
func (c *Compiler) compileIfStatement(s *ast.IfStatement) error {
	if err := c.compileExpression(s.Condition); err != nil {
		return err
	}
	elseJump := c.builder.AddOp(chunk.Op{Code: chunk.JumpIfFalse})
	if err := c.compileStatement(s.Then); err != nil {
		return err
	}
	endJump := c.builder.AddOp(chunk.Op{Code: chunk.Jump})
	c.builder.PatchJumpToLast(elseJump)
	if s.Else != nil {
		if err := c.compileStatement(s.Else); err != nil {
			return err
		}
	}
	c.builder.PatchJumpToLast(endJump)
	return nil
}

// compileWhileStatement emits: loop: cond; JumpIfFalse end; body; Jump loop; end:
func (c *Compiler) compileWhileStatement(s *ast.WhileStatement) error {
	loopStart := c.builder.NextAddr()
	if err := c.compileExpression(s.Condition); err != nil {
		return err
	}
	exitJump := c.builder.AddOp(chunk.Op{Code: chunk.JumpIfFalse})
	if err := c.compileStatement(s.Body); err != nil {
		return err
	}
	backJump := c.builder.AddOp(chunk.Op{Code: chunk.Jump})
	c.builder.PatchJumpTo(backJump, loopStart)
	c.builder.PatchJumpToLast(exitJump)
	return nil
}

// ---- expressions ----

func (c *Compiler) compileExpression(expr ast.Expression) error {
	switch e := expr.(type) {
	case *ast.NilLiteral:
		c.builder.AddOp(chunk.Op{Code: chunk.Nil})
		return nil
	case *ast.NumberLiteral:
		c.builder.AddOp(chunk.Op{Code: chunk.ConstFloat, Float: e.Value})
		return nil
	case *ast.BooleanLiteral:
		c.builder.AddOp(chunk.Op{Code: chunk.ConstBool, Bool: e.Value})
		return nil
	case *ast.StringLiteral:
		idx := c.builder.AddConstant(value.NewText(e.Value))
		c.builder.AddOp(chunk.Op{Code: chunk.Const, Int: idx})
		return nil
	case *ast.Identifier:
		c.compileLoad(e.Value)
		return nil
	case *ast.AssignExpression:
		if err := c.compileExpression(e.Value); err != nil {
			return err
		}
		c.compileStore(e.Name)
		return nil
	case *ast.IndexExpression:
		if err := c.compileExpression(e.Index); err != nil {
			return err
		}
		if err := c.compileExpression(e.Array); err != nil {
			return err
		}
		c.builder.AddOp(chunk.Op{Code: chunk.LoadIndex})
		return nil
	case *ast.AssignIndexExpression:
		return c.compileAssignIndex(e)
	case *ast.ArrayExpression:
		if err := c.compileExpression(e.Size); err != nil {
			return err
		}
		if err := c.compileExpression(e.Initial); err != nil {
			return err
		}
		c.builder.AddOp(chunk.Op{Code: chunk.Array})
		return nil
	case *ast.BinaryExpression:
		return c.compileBinary(e)
	case *ast.UnaryExpression:
		return c.compileUnary(e)
	case *ast.CallExpression:
		return c.compileCall(e)
	default:
		return &Error{Kind: Unknown}
	}
}

func (c *Compiler) compileLoad(name string) {
	if i := c.resolveLocal(name); i >= 0 {
		c.builder.AddOp(chunk.Op{Code: chunk.LoadLocal, Int: i})
		return
	}
	idx := c.nameConstant(name)
	c.builder.AddOp(chunk.Op{Code: chunk.LoadGlobal, Int: idx})
}

func (c *Compiler) compileStore(name string) {
	if i := c.resolveLocal(name); i >= 0 {
		c.builder.AddOp(chunk.Op{Code: chunk.StoreLocal, Int: i})
		return
	}
	idx := c.nameConstant(name)
	c.builder.AddOp(chunk.Op{Code: chunk.StoreGlobal, Int: idx})
}

// compileAssignIndex lowers `variable[index] = value`: emit index, load
// the variable, emit value, StoreIndex (which leaves the post-write
// value — the same array for ArrayType, a new string for TextType — on
// top of the stack), then rebind variable to that result so string
// writes, which copy rather than mutate, are observable through the
// variable itself (spec.md §9).
func (c *Compiler) compileAssignIndex(e *ast.AssignIndexExpression) error {
	if e.Variable == "" {
		return &Error{Kind: UnsupportedAssignmentTarget, Context: "missing target variable"}
	}
	if err := c.compileExpression(e.Index); err != nil {
		return err
	}
	c.compileLoad(e.Variable)
	if err := c.compileExpression(e.Value); err != nil {
		return err
	}
	c.builder.AddOp(chunk.Op{Code: chunk.StoreIndex})
	c.compileStore(e.Variable)
	return nil
}

// compileBinary emits the right operand, then the left, so the left
// operand ends on top of the stack; every arithmetic/comparison opcode
// is defined to operate against the top as its first (left) operand
// and the value beneath it as the second (right) operand. Less and
// Greater piggyback on Ge/Le the way spec.md's compiler table lowers
// them, each followed by Not.
func (c *Compiler) compileBinary(e *ast.BinaryExpression) error {
	if err := c.compileExpression(e.Right); err != nil {
		return err
	}
	if err := c.compileExpression(e.Left); err != nil {
		return err
	}
	switch e.Op {
	case ast.Add:
		c.builder.AddOp(chunk.Op{Code: chunk.Add})
	case ast.Sub:
		c.builder.AddOp(chunk.Op{Code: chunk.Sub})
	case ast.Mul:
		c.builder.AddOp(chunk.Op{Code: chunk.Mul})
	case ast.Div:
		c.builder.AddOp(chunk.Op{Code: chunk.Div})
	case ast.Equal:
		c.builder.AddOp(chunk.Op{Code: chunk.Cmp})
	case ast.NotEqual:
		c.builder.AddOp(chunk.Op{Code: chunk.Cmp})
		c.builder.AddOp(chunk.Op{Code: chunk.Not})
	case ast.LessOrEqual:
		c.builder.AddOp(chunk.Op{Code: chunk.Le})
	case ast.GreaterOrEqual:
		c.builder.AddOp(chunk.Op{Code: chunk.Ge})
	case ast.Less:
		c.builder.AddOp(chunk.Op{Code: chunk.Ge})
		c.builder.AddOp(chunk.Op{Code: chunk.Not})
	case ast.Greater:
		c.builder.AddOp(chunk.Op{Code: chunk.Le})
		c.builder.AddOp(chunk.Op{Code: chunk.Not})
	default:
		return &Error{Kind: Unknown}
	}
	return nil
}

// compileUnary lowers Negate as `0 - operand` (spec.md §4.3), reusing
// Sub rather than a dedicated negate opcode.
func (c *Compiler) compileUnary(e *ast.UnaryExpression) error {
	if err := c.compileExpression(e.Operand); err != nil {
		return err
	}
	switch e.Op {
	case ast.Negate:
		c.builder.AddOp(chunk.Op{Code: chunk.ConstFloat, Float: 0})
		c.builder.AddOp(chunk.Op{Code: chunk.Sub})
	case ast.Not:
		c.builder.AddOp(chunk.Op{Code: chunk.Not})
	default:
		return &Error{Kind: Unknown}
	}
	return nil
}

// compileCall loads the callee as a global (Bauble has no first-class
// function values; every call site names a top-level function or
// native), then pushes arguments left to right, leaving the callee
// beneath all Arity arguments for Call to find.
func (c *Compiler) compileCall(e *ast.CallExpression) error {
	idx := c.nameConstant(e.Name)
	c.builder.AddOp(chunk.Op{Code: chunk.LoadGlobal, Int: idx})
	for _, arg := range e.Arguments {
		if err := c.compileExpression(arg); err != nil {
			return err
		}
	}
	c.builder.AddOp(chunk.Op{Code: chunk.Call, Int: len(e.Arguments)})
	return nil
}

package vm

import (
	"io"

	"github.com/estevaofon/bauble/internal/compiler"
	"github.com/estevaofon/bauble/internal/lexer"
	"github.com/estevaofon/bauble/internal/parser"
)

// Interpret composes lexer, parser, compiler and Vm into the single
// convenience entry point spec.md §6 calls out: "a convenience
// interpret(source) that composes the four."
func Interpret(source, fileName string, out io.Writer) error {
	p := parser.New(lexer.New(source))
	program, err := p.ParseProgram()
	if err != nil {
		return err
	}
	c, err := compiler.Compile(program, fileName)
	if err != nil {
		return err
	}
	return New(out).LoadAndRun(c)
}

// interpretOn compiles source and runs it on an already-constructed
// Vm, letting callers (tests, a REPL) inspect or reuse VM state
// afterward instead of going through the one-shot Interpret.
func interpretOn(vmInstance *Vm, source string) error {
	p := parser.New(lexer.New(source))
	program, err := p.ParseProgram()
	if err != nil {
		return err
	}
	c, err := compiler.Compile(program, "test")
	if err != nil {
		return err
	}
	return vmInstance.LoadAndRun(c)
}

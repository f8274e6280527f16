// Command noxy is Bauble's CLI driver: run a source file or fall into a
// REPL, with optional disassembly and step-trace diagnostics, in the
// teacher interpreter's cmd/noxy style.
package main

import (
	"bufio"
	"flag"
	"fmt"
	"os"
	"runtime/debug"
	"strings"

	"github.com/estevaofon/bauble/internal/chunk"
	"github.com/estevaofon/bauble/internal/compiler"
	"github.com/estevaofon/bauble/internal/lexer"
	"github.com/estevaofon/bauble/internal/parser"
	"github.com/estevaofon/bauble/internal/pkginstall"
	"github.com/estevaofon/bauble/internal/plugin"
	"github.com/estevaofon/bauble/internal/token"
	"github.com/estevaofon/bauble/internal/value"
	"github.com/estevaofon/bauble/internal/vm"
)

const version = "v0.1.0"

func main() {
	defer func() {
		if r := recover(); r != nil {
			fmt.Fprintln(os.Stderr, "panic:", r)
			debug.PrintStack()
			os.Exit(1)
		}
	}()

	if len(os.Args) > 1 && os.Args[1] == "plugins" {
		if err := runPluginsCommand(os.Args[2:]); err != nil {
			fmt.Fprintln(os.Stderr, err)
			os.Exit(1)
		}
		return
	}

	showDisasm := flag.Bool("disassemble", false, "print the compiled bytecode before running")
	showTrace := flag.Bool("trace", false, "print a step trace of every instruction executed")
	showVersion := flag.Bool("version", false, "print version information")

	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: noxy [options] [file]\n\nOptions:\n")
		flag.VisitAll(func(f *flag.Flag) {
			fmt.Fprintf(os.Stderr, "  --%s\n\t%s\n", f.Name, f.Usage)
		})
		fmt.Fprintf(os.Stderr, "\nSubcommands:\n  plugins get <name>@<version>\tfetch a plugin executable's source\n")
	}
	flag.Parse()

	if *showVersion {
		fmt.Printf("noxy %s\n", version)
		return
	}

	args := flag.Args()
	if len(args) < 1 {
		startREPL(*showDisasm, *showTrace)
		return
	}

	filename := args[0]
	content, err := os.ReadFile(filename)
	if err != nil {
		fmt.Fprintf(os.Stderr, "error reading %s: %v\n", filename, err)
		os.Exit(1)
	}

	if err := run(filename, string(content), *showDisasm, *showTrace); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run(filename, source string, showDisasm, showTrace bool) error {
	p := parser.New(lexer.New(source))
	program, err := p.ParseProgram()
	if err != nil {
		return err
	}

	c, err := compiler.Compile(program, filename)
	if err != nil {
		return err
	}

	if showDisasm {
		c.DisassembleAll(filename)
	}

	machine := vm.New(os.Stdout)
	registerPluginNatives(machine)
	if showTrace {
		machine.Tracer = &stepTracer{out: os.Stderr}
	}

	return machine.LoadAndRun(c)
}

func runPluginsCommand(args []string) error {
	if len(args) != 2 || args[0] != "get" {
		return fmt.Errorf("usage: noxy plugins get <name>@<version>")
	}
	return pkginstall.Install(args[1])
}

// registerPluginNatives wires the DynamoDB-backed key/value natives to
// a noxy-plugin-dynamodb subprocess if one can be located. When the
// executable is found the subprocess is started here, before the
// program runs, whether or not it calls kv_get/kv_put/kv_new_id. When
// it is not found the natives are left undefined, so only programs
// that call them fail, with an UndefinedVariable error.
func registerPluginNatives(machine *vm.Vm) {
	client, err := plugin.Load("dynamodb", "noxy-plugin-dynamodb")
	if err != nil {
		return
	}

	machine.DefineNative("kv_get", 1, func(args []value.Value) (value.Value, error) {
		if args[0].Type != value.TextType {
			return value.Value{}, fmt.Errorf("kv_get expects a text key")
		}
		return client.Call("kv_get", args)
	})
	machine.DefineNative("kv_put", 2, func(args []value.Value) (value.Value, error) {
		if args[0].Type != value.TextType || args[1].Type != value.TextType {
			return value.Value{}, fmt.Errorf("kv_put expects text key and value")
		}
		return client.Call("kv_put", args)
	})
	machine.DefineNative("kv_new_id", 0, func(args []value.Value) (value.Value, error) {
		return client.Call("kv_new_id", nil)
	})
}

// stepTracer prints the chunk's file name, each instruction's ip and the
// live stack before the instruction runs,
// satisfying vm.Tracer (spec.md §9: "replaceable without touching the
// VM core").
type stepTracer struct {
	out *os.File
}

func (t *stepTracer) Before(c *chunk.Chunk, ip int, stack []value.Value) {
	parts := make([]string, len(stack))
	for i, v := range stack {
		parts[i] = v.String()
	}
	fmt.Fprintf(t.out, "[%s] ip=%d stack=[%s]\n", c.FileName, ip, strings.Join(parts, ", "))
}

func (t *stepTracer) After(c *chunk.Chunk, ip int, stack []value.Value) {}

func startREPL(showDisasm, showTrace bool) {
	fmt.Printf("noxy %s\n", version)
	fmt.Println("Type 'exit' to quit.")

	machine := vm.New(os.Stdout)
	registerPluginNatives(machine)
	if showTrace {
		machine.Tracer = &stepTracer{out: os.Stderr}
	}

	scanner := bufio.NewScanner(os.Stdin)
	var buffer string

	for {
		if buffer == "" {
			fmt.Print(">>> ")
		} else {
			fmt.Print("... ")
		}

		if !scanner.Scan() {
			return
		}
		line := scanner.Text()
		if strings.TrimSpace(line) == "exit" && buffer == "" {
			return
		}
		if strings.TrimSpace(line) == "" && buffer == "" {
			continue
		}

		if buffer == "" {
			buffer = line
		} else {
			buffer += "\n" + line
		}

		p := parser.New(lexer.New(buffer))
		program, err := p.ParseProgram()
		if err != nil {
			if incomplete(err) {
				continue
			}
			fmt.Println(err)
			buffer = ""
			continue
		}

		c, err := compiler.Compile(program, "repl")
		if err != nil {
			fmt.Println(err)
			buffer = ""
			continue
		}
		if showDisasm {
			c.DisassembleAll("repl")
		}
		if err := machine.LoadAndRun(c); err != nil {
			fmt.Println(err)
		}
		buffer = ""
	}
}

// incomplete reports whether err looks like it was caused by the input
// ending mid-statement (so the REPL should keep reading lines) rather
// than a real syntax error.
func incomplete(err error) bool {
	pe, ok := err.(*parser.Error)
	return ok && pe.Found.Type == token.EOF
}

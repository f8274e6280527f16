// Package plugin lets Bauble native functions delegate to an external
// process over a newline-delimited JSON-RPC protocol, adapted from the
// teacher interpreter's internal/plugin: a plugin is any executable
// that reads one-line JSON requests from stdin and writes one-line JSON
// responses to stdout. This is the sole I/O boundary the domain stack
// (AWS SDK, UUID generation) crosses through, keeping the VM core
// synchronous and in-memory (spec.md §5).
package plugin

import (
	"bufio"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"os/exec"
	"path/filepath"
	"sync"

	"github.com/estevaofon/bauble/internal/value"
)

// Request is one call sent to a plugin process.
type Request struct {
	Method string        `json:"method"`
	Params []interface{} `json:"params"`
}

// Response is a plugin's reply to one Request.
type Response struct {
	Result interface{} `json:"result,omitempty"`
	Error  string      `json:"error,omitempty"`
}

// Client manages one plugin subprocess's stdio pipes. Calls are
// serialized through Lock since the protocol is strictly
// request-then-response over a single pair of pipes.
type Client struct {
	Name    string
	cmd     *exec.Cmd
	stdin   io.WriteCloser
	stdout  *bufio.Scanner
	running bool
	lock    sync.Mutex
}

var (
	loaded     = make(map[string]*Client)
	loadedLock sync.Mutex
)

// Load starts (or reuses an already-started) plugin process registered
// under name, locating executableName on PATH, under
// noxy_libs/<name>/, or in the working directory.
func Load(name, executableName string) (*Client, error) {
	loadedLock.Lock()
	defer loadedLock.Unlock()

	if c, ok := loaded[name]; ok {
		return c, nil
	}

	execPath, err := resolveExecutable(name, executableName)
	if err != nil {
		return nil, err
	}

	cmd := exec.Command(execPath)
	stdin, err := cmd.StdinPipe()
	if err != nil {
		return nil, fmt.Errorf("plugin %s: stdin pipe: %w", name, err)
	}
	stdoutPipe, err := cmd.StdoutPipe()
	if err != nil {
		return nil, fmt.Errorf("plugin %s: stdout pipe: %w", name, err)
	}
	cmd.Stderr = os.Stderr

	if err := cmd.Start(); err != nil {
		return nil, fmt.Errorf("plugin %s: start: %w", name, err)
	}

	c := &Client{
		Name:    name,
		cmd:     cmd,
		stdin:   stdin,
		stdout:  bufio.NewScanner(stdoutPipe),
		running: true,
	}
	loaded[name] = c
	return c, nil
}

func resolveExecutable(name, executableName string) (string, error) {
	if p, err := exec.LookPath(executableName); err == nil {
		return p, nil
	}
	libPath := filepath.Join("noxy_libs", name, executableName)
	if _, err := os.Stat(libPath); err == nil {
		return filepath.Abs(libPath)
	}
	if _, err := os.Stat(executableName); err == nil {
		return filepath.Abs(executableName)
	}
	return "", fmt.Errorf("plugin %s: could not locate executable %q", name, executableName)
}

// Call sends one JSON-RPC request and blocks for its response.
func (c *Client) Call(method string, args []value.Value) (value.Value, error) {
	c.lock.Lock()
	defer c.lock.Unlock()

	if !c.running {
		return value.Value{}, fmt.Errorf("plugin %s: not running", c.Name)
	}

	params := make([]interface{}, len(args))
	for i, a := range args {
		params[i] = valueToInterface(a)
	}

	reqBytes, err := json.Marshal(Request{Method: method, Params: params})
	if err != nil {
		return value.Value{}, fmt.Errorf("plugin %s: marshal request: %w", c.Name, err)
	}
	if _, err := c.stdin.Write(append(reqBytes, '\n')); err != nil {
		c.running = false
		return value.Value{}, fmt.Errorf("plugin %s: write: %w", c.Name, err)
	}

	if !c.stdout.Scan() {
		c.running = false
		if err := c.stdout.Err(); err != nil {
			return value.Value{}, fmt.Errorf("plugin %s: read: %w", c.Name, err)
		}
		return value.Value{}, fmt.Errorf("plugin %s: unexpected EOF", c.Name)
	}

	var resp Response
	if err := json.Unmarshal(c.stdout.Bytes(), &resp); err != nil {
		return value.Value{}, fmt.Errorf("plugin %s: unmarshal response: %w", c.Name, err)
	}
	if resp.Error != "" {
		return value.Value{}, fmt.Errorf("plugin %s: %s", c.Name, resp.Error)
	}
	return interfaceToValue(resp.Result), nil
}

// valueToInterface and interfaceToValue translate between Bauble's
// runtime Value and the plain interface{} shapes encoding/json
// understands; Function and NativeFunction values cannot cross the
// boundary and serialize as their Print-form string instead.
func valueToInterface(v value.Value) interface{} {
	switch v.Type {
	case value.NilType:
		return nil
	case value.BoolType:
		return v.Bool
	case value.NumberType:
		return v.Number
	case value.TextType:
		return v.Text
	case value.ArrayType:
		arr := make([]interface{}, len(v.Array.Elements))
		for i, e := range v.Array.Elements {
			arr[i] = valueToInterface(e)
		}
		return arr
	default:
		return v.String()
	}
}

func interfaceToValue(i interface{}) value.Value {
	switch v := i.(type) {
	case nil:
		return value.Nil()
	case bool:
		return value.NewBool(v)
	case float64:
		return value.NewNumber(v)
	case string:
		return value.NewText(v)
	case []interface{}:
		elems := make([]value.Value, len(v))
		for idx, e := range v {
			elems[idx] = interfaceToValue(e)
		}
		return value.NewArray(&value.Array{Elements: elems})
	default:
		return value.NewText(fmt.Sprintf("%v", v))
	}
}

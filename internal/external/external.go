// Package external implements external_define and external_call. A game
// names a DLL; here a DLL resolves to a plugin executable that speaks
// line-delimited JSON on its stdin and stdout.
package external

import (
	"bufio"
	"io"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
	"time"

	"gml-vm/internal/builtin"

	"github.com/go-errors/errors"
	"github.com/google/uuid"
	"github.com/hashicorp/go-hclog"
)

// waitDelay bounds how long reaping a plugin waits on its stderr copy.
const waitDelay = 2 * time.Second

// MaxArgs bounds the argument count of an external function.
const MaxArgs = 16

type Options struct {
	// SearchPath lists the directories searched for plugin executables.
	SearchPath []string
	// Launch overrides how a DLL name becomes a command.
	Launch func(dll string) (*exec.Cmd, error)
	Logger hclog.Logger
}

type client struct {
	dll    string
	cmd    *exec.Cmd
	stdin  io.WriteCloser
	stdout *bufio.Scanner
	closed bool
	mu     sync.Mutex
}

type function struct {
	id       int
	dll      string
	name     string
	resType  int
	argTypes []int
}

// Registry owns the running plugins and the functions defined on them.
// Function ids are never reused, even after external_free.
type Registry struct {
	opts   Options
	logger hclog.Logger

	mu        sync.Mutex
	clients   map[string]*client
	functions map[int]*function
	nextID    int
}

func New(opts Options) *Registry {
	logger := opts.Logger
	if logger == nil {
		logger = hclog.NewNullLogger()
	}
	return &Registry{
		opts:      opts,
		logger:    logger.Named("external"),
		clients:   make(map[string]*client),
		functions: make(map[int]*function),
	}
}

// dllKey normalizes a DLL name so "Net.dll" and "net" share a plugin.
func dllKey(dll string) string {
	base := filepath.Base(dll)
	return strings.ToLower(strings.TrimSuffix(base, filepath.Ext(base)))
}

// resolve finds the plugin executable for dll.
func (r *Registry) resolve(dll string) (string, error) {
	base := filepath.Base(dll)
	stem := strings.TrimSuffix(base, filepath.Ext(base))
	dirs := r.opts.SearchPath
	if len(dirs) == 0 {
		dirs = []string{"."}
	}
	for _, dir := range dirs {
		for _, name := range []string{stem, stem + ".exe", base} {
			path := filepath.Join(dir, name)
			if info, err := os.Stat(path); err == nil && !info.IsDir() {
				return filepath.Abs(path)
			}
		}
	}
	if path, err := exec.LookPath(stem); err == nil {
		return path, nil
	}
	return "", errors.Errorf("no plugin found for %s", dll)
}

func (r *Registry) launch(dll string) (*client, error) {
	var cmd *exec.Cmd
	if r.opts.Launch != nil {
		c, err := r.opts.Launch(dll)
		if err != nil {
			return nil, errors.Wrap(err, 0)
		}
		cmd = c
	} else {
		path, err := r.resolve(dll)
		if err != nil {
			return nil, err
		}
		cmd = exec.Command(path)
	}

	stdin, err := cmd.StdinPipe()
	if err != nil {
		return nil, errors.Errorf("failed to create stdin pipe: %v", err)
	}
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return nil, errors.Errorf("failed to create stdout pipe: %v", err)
	}
	cmd.Stderr = r.logger.Named(dllKey(dll)).StandardWriter(&hclog.StandardLoggerOptions{InferLevels: true})

	cmd.WaitDelay = waitDelay

	if err := cmd.Start(); err != nil {
		return nil, errors.Errorf("failed to start plugin process: %v", err)
	}
	r.logger.Debug("plugin started", "dll", dll, "pid", cmd.Process.Pid)

	return &client{dll: dll, cmd: cmd, stdin: stdin, stdout: bufio.NewScanner(stdout)}, nil
}

func (r *Registry) client(dll string) (*client, error) {
	key := dllKey(dll)
	if c, ok := r.clients[key]; ok {
		return c, nil
	}
	c, err := r.launch(dll)
	if err != nil {
		return nil, err
	}
	r.clients[key] = c
	return c, nil
}

// roundTrip sends one request and waits for its response.
func (c *client) roundTrip(method, fn string, params []interface{}) (interface{}, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return nil, errors.Errorf("plugin %s is not running", c.dll)
	}

	req := Request{ID: uuid.NewString(), Method: method, Function: fn, Params: params}
	line, err := json.Marshal(req)
	if err != nil {
		return nil, errors.Errorf("failed to marshal request: %v", err)
	}
	if _, err := c.stdin.Write(append(line, '\n')); err != nil {
		c.abort()
		return nil, errors.Errorf("failed to write to plugin %s: %v", c.dll, err)
	}

	if !c.stdout.Scan() {
		c.abort()
		if err := c.stdout.Err(); err != nil {
			return nil, errors.Errorf("read from plugin %s failed: %v", c.dll, err)
		}
		return nil, errors.Errorf("plugin %s exited", c.dll)
	}

	var resp Response
	if err := json.Unmarshal(c.stdout.Bytes(), &resp); err != nil {
		return nil, errors.Errorf("failed to unmarshal response: %v", err)
	}
	if resp.ID != req.ID {
		return nil, errors.Errorf("plugin %s answered request %q, expected %q", c.dll, resp.ID, req.ID)
	}
	if resp.Error != "" {
		return nil, errors.New(resp.Error)
	}
	return resp.Result, nil
}

// abort stops a plugin whose pipes broke mid-request and reaps it. Its
// exit status is dropped; the failed request already reported the problem.
func (c *client) abort() {
	c.closed = true
	c.stdin.Close()
	c.cmd.Process.Kill()
	c.cmd.Wait()
}

func (c *client) close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return nil
	}
	c.closed = true
	c.stdin.Close()
	return c.cmd.Wait()
}

// Define starts the plugin for dll if needed and checks it provides name.
func (r *Registry) Define(dll, name string, calltype, restype int, argTypes []int) (int, error) {
	if calltype != builtin.DllCdecl && calltype != builtin.DllStdcall {
		return 0, errors.Errorf("unknown calling convention %d", calltype)
	}
	if err := checkType(restype); err != nil {
		return 0, err
	}
	if len(argTypes) > MaxArgs {
		return 0, errors.Errorf("too many arguments for %s: %d", name, len(argTypes))
	}
	for _, ty := range argTypes {
		if err := checkType(ty); err != nil {
			return 0, err
		}
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	c, err := r.client(dll)
	if err != nil {
		return 0, err
	}
	if _, err := c.roundTrip("define", name, nil); err != nil {
		return 0, errors.Errorf("%s in %s: %v", name, dll, err)
	}

	id := r.nextID
	r.nextID++
	r.functions[id] = &function{
		id:       id,
		dll:      dllKey(dll),
		name:     name,
		resType:  restype,
		argTypes: append([]int(nil), argTypes...),
	}
	r.logger.Debug("external defined", "dll", dll, "function", name, "id", id)
	return id, nil
}

func checkType(ty int) error {
	if ty != builtin.TyReal && ty != builtin.TyString {
		return errors.Errorf("unknown argument type %d", ty)
	}
	return nil
}

// ErrUndefined is returned for a function id that was never defined or
// whose DLL was freed.
var ErrUndefined = errors.New("external function does not exist")

// Arg is one external call argument: a real or a string.
type Arg struct {
	Real   float64
	String string
}

// Call invokes function id. args must already match the declared types.
func (r *Registry) Call(id int, args []Arg) (Arg, error) {
	r.mu.Lock()
	fn, ok := r.functions[id]
	var c *client
	if ok {
		c = r.clients[fn.dll]
	}
	r.mu.Unlock()
	if !ok || c == nil {
		return Arg{}, ErrUndefined
	}
	if len(args) != len(fn.argTypes) {
		return Arg{}, errors.Errorf("%s expects %d arguments, got %d", fn.name, len(fn.argTypes), len(args))
	}

	params := make([]interface{}, len(args))
	for i, a := range args {
		if fn.argTypes[i] == builtin.TyString {
			params[i] = a.String
		} else {
			params[i] = a.Real
		}
	}

	result, err := c.roundTrip("call", fn.name, params)
	if err != nil {
		return Arg{}, err
	}
	return convertResult(fn, result)
}

func convertResult(fn *function, result interface{}) (Arg, error) {
	switch fn.resType {
	case builtin.TyString:
		switch v := result.(type) {
		case nil:
			return Arg{}, nil
		case string:
			return Arg{String: v}, nil
		case float64:
			return Arg{String: strconv.FormatFloat(v, 'f', -1, 64)}, nil
		}
	default:
		switch v := result.(type) {
		case nil:
			return Arg{}, nil
		case float64:
			return Arg{Real: v}, nil
		case bool:
			if v {
				return Arg{Real: 1}, nil
			}
			return Arg{}, nil
		case string:
			f, err := strconv.ParseFloat(strings.TrimSpace(v), 64)
			if err == nil {
				return Arg{Real: f}, nil
			}
		}
	}
	return Arg{}, errors.Errorf("%s returned %v, which is not a %s", fn.name, result, typeName(fn.resType))
}

func typeName(ty int) string {
	if ty == builtin.TyString {
		return "string"
	}
	return "real"
}

// Free stops the plugin for dll and forgets its functions.
func (r *Registry) Free(dll string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	key := dllKey(dll)
	c, ok := r.clients[key]
	if !ok {
		return nil
	}
	delete(r.clients, key)
	for id, fn := range r.functions {
		if fn.dll == key {
			delete(r.functions, id)
		}
	}
	r.logger.Debug("plugin freed", "dll", dll)
	return c.close()
}

// Close stops every plugin.
func (r *Registry) Close() error {
	r.mu.Lock()
	dlls := make([]string, 0, len(r.clients))
	for key := range r.clients {
		dlls = append(dlls, key)
	}
	r.mu.Unlock()

	var first error
	for _, dll := range dlls {
		if err := r.Free(dll); err != nil && first == nil {
			first = err
		}
	}
	return first
}

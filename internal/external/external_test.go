package external

import (
	"bytes"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"testing"

	"gml-vm/internal/builtin"
	"gml-vm/internal/compiler"
	"gml-vm/internal/parser"
	"gml-vm/internal/value"
	"gml-vm/internal/vm"

	"github.com/go-errors/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const helperEnv = "GMLVM_TEST_PLUGIN"

var helperHandlers = map[string]Handler{
	"add": func(params []interface{}) (interface{}, error) {
		return params[0].(float64) + params[1].(float64), nil
	},
	"greet": func(params []interface{}) (interface{}, error) {
		return "hello " + params[0].(string), nil
	},
	"count": func(params []interface{}) (interface{}, error) {
		return "42", nil
	},
	"fail": func(params []interface{}) (interface{}, error) {
		return nil, fmt.Errorf("boom")
	},
	"crash": func(params []interface{}) (interface{}, error) {
		os.Exit(3)
		return nil, nil
	},
}

// TestHelperPlugin is not a real test: it is the plugin process the other
// tests launch.
func TestHelperPlugin(t *testing.T) {
	if os.Getenv(helperEnv) != "1" {
		return
	}
	if err := Serve(os.Stdin, os.Stdout, helperHandlers); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	os.Exit(0)
}

func helperLaunch(dll string) (*exec.Cmd, error) {
	if !strings.EqualFold(dllKey(dll), "helper") {
		return nil, fmt.Errorf("no plugin named %s", dll)
	}
	cmd := exec.Command(os.Args[0], "-test.run=^TestHelperPlugin$")
	cmd.Env = append(os.Environ(), helperEnv+"=1")
	return cmd, nil
}

func newRegistry(t *testing.T) *Registry {
	t.Helper()
	r := New(Options{Launch: helperLaunch})
	t.Cleanup(func() { r.Close() })
	return r
}

func TestDefineAndCall(t *testing.T) {
	r := newRegistry(t)

	add, err := r.Define("helper.dll", "add", builtin.DllCdecl, builtin.TyReal, []int{builtin.TyReal, builtin.TyReal})
	require.NoError(t, err)
	greet, err := r.Define("Helper.DLL", "greet", builtin.DllStdcall, builtin.TyString, []int{builtin.TyString})
	require.NoError(t, err)
	assert.NotEqual(t, add, greet)
	assert.Len(t, r.clients, 1)

	res, err := r.Call(add, []Arg{{Real: 2}, {Real: 3.5}})
	require.NoError(t, err)
	assert.Equal(t, 5.5, res.Real)

	res, err = r.Call(greet, []Arg{{String: "world"}})
	require.NoError(t, err)
	assert.Equal(t, "hello world", res.String)

	count, err := r.Define("helper", "count", builtin.DllCdecl, builtin.TyReal, nil)
	require.NoError(t, err)
	res, err = r.Call(count, nil)
	require.NoError(t, err)
	assert.Equal(t, 42.0, res.Real)

	fail, err := r.Define("helper", "fail", builtin.DllCdecl, builtin.TyReal, nil)
	require.NoError(t, err)
	_, err = r.Call(fail, nil)
	assert.EqualError(t, err, "boom")
}

func TestPluginExitMidCall(t *testing.T) {
	r := newRegistry(t)

	crash, err := r.Define("helper", "crash", builtin.DllCdecl, builtin.TyReal, nil)
	require.NoError(t, err)
	add, err := r.Define("helper", "add", builtin.DllCdecl, builtin.TyReal, []int{builtin.TyReal, builtin.TyReal})
	require.NoError(t, err)
	c := r.clients["helper"]

	_, err = r.Call(crash, nil)
	assert.EqualError(t, err, "plugin helper exited")
	// the process is reaped as soon as the pipe breaks
	require.NotNil(t, c.cmd.ProcessState)
	assert.True(t, c.closed)

	_, err = r.Call(add, []Arg{{Real: 1}, {Real: 2}})
	assert.EqualError(t, err, "plugin helper is not running")

	assert.NoError(t, r.Free("helper"))
	assert.NoError(t, r.Close())
}

func TestDefineErrors(t *testing.T) {
	r := newRegistry(t)

	_, err := r.Define("helper", "missing", builtin.DllCdecl, builtin.TyReal, nil)
	assert.ErrorContains(t, err, "unknown function: missing")

	_, err = r.Define("nowhere", "add", builtin.DllCdecl, builtin.TyReal, nil)
	assert.ErrorContains(t, err, "no plugin named nowhere")

	_, err = r.Define("helper", "add", 7, builtin.TyReal, nil)
	assert.ErrorContains(t, err, "calling convention")

	_, err = r.Define("helper", "add", builtin.DllCdecl, 3, nil)
	assert.ErrorContains(t, err, "argument type")

	_, err = r.Define("helper", "add", builtin.DllCdecl, builtin.TyReal, make([]int, MaxArgs+1))
	assert.ErrorContains(t, err, "too many arguments")
}

func TestFreeForgetsFunctions(t *testing.T) {
	r := newRegistry(t)

	add, err := r.Define("helper", "add", builtin.DllCdecl, builtin.TyReal, []int{builtin.TyReal, builtin.TyReal})
	require.NoError(t, err)
	require.NoError(t, r.Free("helper.dll"))

	_, err = r.Call(add, []Arg{{Real: 1}, {Real: 2}})
	assert.True(t, errors.Is(err, ErrUndefined))

	// a new definition restarts the plugin under a fresh id
	again, err := r.Define("helper", "add", builtin.DllCdecl, builtin.TyReal, []int{builtin.TyReal, builtin.TyReal})
	require.NoError(t, err)
	assert.Greater(t, again, add)

	assert.NoError(t, r.Free("never-loaded"))
}

func TestResolveSearchPath(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "netlib")
	require.NoError(t, os.WriteFile(path, []byte("#!/bin/sh\n"), 0o755))

	r := New(Options{SearchPath: []string{t.TempDir(), dir}})
	resolved, err := r.resolve("netlib.dll")
	require.NoError(t, err)
	assert.Equal(t, path, resolved)

	_, err = r.resolve("gmlvm-no-such-plugin.dll")
	assert.Error(t, err)
}

func TestServe(t *testing.T) {
	in := strings.NewReader(`{"id":"1","method":"define","function":"add"}
{"id":"2","method":"call","function":"add","params":[1,2]}
not json
{"id":"3","method":"call","function":"nope"}
{"id":"4","method":"ping","function":"add"}
`)
	var out bytes.Buffer
	require.NoError(t, Serve(in, &out, helperHandlers))

	lines := strings.Split(strings.TrimSpace(out.String()), "\n")
	require.Len(t, lines, 5)
	assert.JSONEq(t, `{"id":"1","result":true}`, lines[0])
	assert.JSONEq(t, `{"id":"2","result":3}`, lines[1])
	assert.Contains(t, lines[2], "parse error")
	assert.JSONEq(t, `{"id":"3","error":"unknown function: nope"}`, lines[3])
	assert.JSONEq(t, `{"id":"4","error":"unknown method: ping"}`, lines[4])
}

func runScript(t *testing.T, r *Registry, src string) ([]value.Value, error) {
	t.Helper()
	program, err := parser.Parse(src)
	require.NoError(t, err)
	unit, err := compiler.Compile(program, compiler.Options{Unit: "ext"})
	require.NoError(t, err)

	var reported []value.Value
	natives := vm.NewNativeTable()
	r.Register(natives)
	natives.Define("test_report", -1, func(ctx *vm.Context, args []value.Value) (value.Value, error) {
		reported = append(reported, args...)
		return value.NewReal(0), nil
	})
	_, err = vm.New(vm.DefaultConfig(), nil, natives).Execute(unit, nil, nil)
	return reported, err
}

func TestNatives(t *testing.T) {
	r := newRegistry(t)
	reported, err := runScript(t, r, `
var add, greet;
add = external_define("helper.dll", "add", dll_cdecl, ty_real, 2, ty_real, ty_real)
greet = external_define("helper.dll", "greet", dll_stdcall, ty_string, 1, ty_string)
test_report(external_call(add, 40, 2), external_call(greet, "gml"))
external_free("helper.dll")
`)
	require.NoError(t, err)
	assert.Equal(t, []value.Value{value.NewReal(42), value.NewString("hello gml")}, reported)
}

func TestNativeErrors(t *testing.T) {
	tests := []struct {
		src  string
		kind vm.ErrorKind
	}{
		{`external_define("helper", "add", dll_cdecl, ty_real)`, vm.Arity},
		{`external_define("helper", "add", dll_cdecl, ty_real, 2, ty_real)`, vm.Arity},
		{`external_define("helper", "missing", dll_cdecl, ty_real, 0)`, vm.Other},
		{`external_call(99)`, vm.Resource},
		{`var f; f = external_define("helper", "add", dll_cdecl, ty_real, 2, ty_real, ty_real); external_call(f, 1)`, vm.Arity},
		{`var f; f = external_define("helper", "add", dll_cdecl, ty_real, 2, ty_real, ty_real); external_call(f, 1, "x")`, vm.TypeUnary},
		{`var f; f = external_define("helper", "fail", dll_cdecl, ty_real, 0); external_call(f)`, vm.Other},
		{`var f; f = external_define("helper", "add", dll_cdecl, ty_real, 2, ty_real, ty_real); external_free("helper"); external_call(f, 1, 2)`, vm.Resource},
	}

	for _, tt := range tests {
		_, err := runScript(t, newRegistry(t), tt.src)
		var rtErr *vm.RuntimeError
		require.ErrorAs(t, err, &rtErr, tt.src)
		assert.Equal(t, tt.kind, rtErr.Kind, tt.src)
	}
}

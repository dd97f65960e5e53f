package vm

import (
	"testing"

	"gml-vm/internal/builtin"
	"gml-vm/internal/chunk"
	"gml-vm/internal/compiler"
	"gml-vm/internal/parser"
	"gml-vm/internal/value"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type testInstance struct {
	id     int
	object int
	x      float64
	fields *value.Namespace
	active bool
}

func (i *testInstance) ID() int                  { return i.id }
func (i *testInstance) Fields() *value.Namespace { return i.fields }
func (i *testInstance) Active() bool             { return i.active }

type testHost struct {
	globals   *value.Namespace
	instances []*testInstance
	score     float64
}

func newTestHost(objects ...int) *testHost {
	h := &testHost{globals: value.NewNamespace()}
	for n, obj := range objects {
		h.instances = append(h.instances, &testInstance{
			id:     100001 + n,
			object: obj,
			fields: value.NewNamespace(),
			active: true,
		})
	}
	return h
}

func (h *testHost) Globals() *value.Namespace { return h.globals }

func (h *testHost) Lookup(target float64) []Instance {
	var out []Instance
	for _, inst := range h.instances {
		if !inst.active {
			continue
		}
		t := int(target)
		if t == builtin.ScopeAll || t == inst.id || t == inst.object {
			out = append(out, inst)
		}
	}
	return out
}

func (h *testHost) GetBuiltin(self Instance, variable int, index int) (value.Value, error) {
	switch variable {
	case builtin.VarX:
		return value.NewReal(self.(*testInstance).x), nil
	case builtin.VarID:
		return value.NewInt(self.ID()), nil
	case builtin.VarScore:
		return value.NewReal(h.score), nil
	}
	return value.Undefined, Errorf(Name, "no built-in %s in tests", builtin.VariableAt(variable).Name)
}

func (h *testHost) SetBuiltin(self Instance, variable int, index int, v value.Value) error {
	f, ok := v.Number()
	if !ok {
		return Errorf(TypeUnary, "built-in needs a real")
	}
	switch variable {
	case builtin.VarX:
		self.(*testInstance).x = f
		return nil
	case builtin.VarScore:
		h.score = f
		return nil
	}
	return Errorf(Name, "no built-in %s in tests", builtin.VariableAt(variable).Name)
}

var testResources = map[string]value.Value{
	"obj_a": value.NewReal(0),
	"obj_b": value.NewReal(1),
}

func compileUnit(t *testing.T, name, src string) *chunk.Chunk {
	t.Helper()
	program, err := parser.Parse(src)
	require.NoError(t, err, "parse %s", name)
	c, err := compiler.Compile(program, compiler.Options{Unit: name, Resources: testResources})
	require.NoError(t, err, "compile %s", name)
	return c
}

// harness runs source as the code of the host's first instance, capturing
// test_report arguments.
type harness struct {
	t        *testing.T
	host     *testHost
	vm       *VM
	scripts  map[string]*chunk.Chunk
	reported []value.Value
}

func newHarness(t *testing.T, host *testHost) *harness {
	h := &harness{t: t, host: host, scripts: map[string]*chunk.Chunk{}}
	natives := NewNativeTable()
	RegisterStdlib(natives, 1)
	natives.Define("test_report", -1, func(ctx *Context, args []value.Value) (value.Value, error) {
		h.reported = append(h.reported, args...)
		return value.NewReal(0), nil
	})
	cfg := DefaultConfig()
	cfg.MaxCallDepth = 64
	h.vm = New(cfg, host, natives)
	h.vm.SetScripts(func(name string) (*chunk.Chunk, bool) {
		c, ok := h.scripts[name]
		return c, ok
	})
	return h
}

func (h *harness) script(name, src string) {
	h.scripts[name] = compileUnit(h.t, name, src)
}

func (h *harness) run(src string) (value.Value, error) {
	h.reported = nil
	unit := compileUnit(h.t, "test", src)
	var self Instance
	if len(h.host.instances) > 0 {
		self = h.host.instances[0]
	}
	return h.vm.Execute(unit, self, nil)
}

type vmTestCase struct {
	input    string
	expected interface{}
}

func runVmTests(t *testing.T, tests []vmTestCase) {
	h := newHarness(t, newTestHost(0))
	for _, tt := range tests {
		_, err := h.run("test_report(" + tt.input + ")")
		require.NoError(t, err, tt.input)
		require.Len(t, h.reported, 1, tt.input)
		checkValue(t, tt.input, tt.expected, h.reported[0])
	}
}

func checkValue(t *testing.T, input string, expected interface{}, got value.Value) {
	t.Helper()
	switch want := expected.(type) {
	case int:
		assert.Equal(t, value.VAL_REAL, got.Type, input)
		assert.Equal(t, float64(want), got.AsReal, input)
	case float64:
		assert.Equal(t, value.VAL_REAL, got.Type, input)
		assert.InDelta(t, want, got.AsReal, 1e-9, input)
	case string:
		assert.Equal(t, value.VAL_STRING, got.Type, input)
		assert.Equal(t, want, got.AsString, input)
	case nil:
		assert.True(t, got.IsUndefined(), "%s: expected undefined, got %v", input, got)
	}
}

func TestArithmetic(t *testing.T) {
	tests := []vmTestCase{
		{"1", 1},
		{"1 + 2", 3},
		{"1 - 2", -1},
		{"50 / 2 * 2 + 10", 60},
		{"(5 + 10 * 2 + 15 / 3) * 2 + -10", 50},
		{"7 div 2", 3},
		{"-7 div 2", -3},
		{"7 mod 3", 1},
		{"7.5 mod 2", 1.5},
		{"1 / 4", 0.25},
		{"$ff", 255},
		{"6 & 3", 2},
		{"6 | 3", 7},
		{"6 ^ 3", 5},
		{"1 << 4", 16},
		{"256 >> 4", 16},
		{"~0", -1},
		{"+5", 5},
	}

	runVmTests(t, tests)
}

func TestBooleanLogic(t *testing.T) {
	tests := []vmTestCase{
		{"true", 1},
		{"1 < 2", 1},
		{"1 > 2", 0},
		{"2 <= 2", 1},
		{"1 = 1", 1},
		{"1 == 2", 0},
		{"1 <> 2", 1},
		{"\"a\" < \"b\"", 1},
		{"\"b\" >= \"a\"", 1},
		{"\"1\" == 1", 0},
		{"\"x\" != 1", 1},
		{"1 && 0", 0},
		{"1 and 1", 1},
		{"0 || 1", 1},
		{"1 ^^ 1", 0},
		{"1 xor 0", 1},
		{"!0", 1},
		{"not 1", 0},
		{"0.5 && 1", 0},
		{"-1 || 0", 0},
	}

	runVmTests(t, tests)
}

func TestStrings(t *testing.T) {
	tests := []vmTestCase{
		{"\"foo\" + 'bar'", "foobar"},
		{"3 * \"ab\"", "ababab"},
		{"string(3)", "3"},
		{"string(1.5)", "1.50"},
		{"real(\"2.5\")", 2.5},
		{"real(\"junk\")", 0},
		{"string_length(\"hello\")", 5},
		{"string_copy(\"hello\", 2, 3)", "ell"},
		{"string_char_at(\"hello\", 1)", "h"},
		{"string_char_at(\"hello\", 9)", ""},
		{"string_pos(\"l\", \"hello\")", 3},
		{"string_pos(\"z\", \"hello\")", 0},
		{"string_upper(\"abc\")", "ABC"},
		{"string_replace_all(\"a-b-c\", \"-\", \"+\")", "a+b+c"},
		{"string_replace(\"a-b-c\", \"-\", \"+\")", "a+b-c"},
		{"string_delete(\"hello\", 2, 2)", "hlo"},
		{"string_insert(\"XY\", \"hello\", 3)", "heXYllo"},
		{"string_count(\"l\", \"hello\")", 2},
		{"chr(65)", "A"},
		{"ord(\"A\")", 65},
		{"is_string(\"\")", 1},
		{"is_real(\"\")", 0},
	}

	runVmTests(t, tests)
}

func TestMath(t *testing.T) {
	tests := []vmTestCase{
		{"abs(-3)", 3},
		{"sign(-2)", -1},
		{"floor(2.7)", 2},
		{"ceil(2.1)", 3},
		{"round(2.5)", 2},
		{"frac(2.25)", 0.25},
		{"sqr(4)", 16},
		{"sqrt(16)", 4},
		{"power(2, 10)", 1024},
		{"min(3, 1, 2)", 1},
		{"max(3, 1, 2)", 3},
		{"mean(1, 2, 3)", 2},
		{"median(5, 1, 3)", 3},
		{"point_distance(0, 0, 3, 4)", 5},
		{"point_direction(0, 0, 0, -10)", 90},
		{"point_direction(0, 0, 0, 10)", 270},
		{"lengthdir_x(10, 0)", 10},
		{"radtodeg(pi)", 180},
	}

	runVmTests(t, tests)
}

func TestRandomIsSeeded(t *testing.T) {
	h := newHarness(t, newTestHost(0))
	_, err := h.run("random_set_seed(7); test_report(irandom(100), random_get_seed()); random_set_seed(7); test_report(irandom(100))")
	require.NoError(t, err)
	require.Len(t, h.reported, 3)
	assert.Equal(t, h.reported[0].AsReal, h.reported[2].AsReal)
	assert.Equal(t, float64(7), h.reported[1].AsReal)
}

func TestVariables(t *testing.T) {
	h := newHarness(t, newTestHost(0))

	_, err := h.run(`
x = 1; x += 2; test_report(x)
var i; i = 10; i -= 4; test_report(i)
hp = 5; hp *= 3; test_report(hp, self.hp)
global.lives_left = 2; test_report(global.lives_left)
globalvar best; best = 9; test_report(global.best)
test_report(never_written)
`)
	require.NoError(t, err)
	require.Len(t, h.reported, 7)
	checkValue(t, "x", 3, h.reported[0])
	checkValue(t, "i", 6, h.reported[1])
	checkValue(t, "hp", 15, h.reported[2])
	checkValue(t, "self.hp", 15, h.reported[3])
	checkValue(t, "global", 2, h.reported[4])
	checkValue(t, "globalvar", 9, h.reported[5])
	checkValue(t, "unwritten", nil, h.reported[6])
	assert.Equal(t, float64(3), h.host.instances[0].x)
}

func TestJaggedArrays(t *testing.T) {
	h := newHarness(t, newTestHost(0))
	_, err := h.run(`
a = 3; a[1] = 5
b = 8; b[2] = 13
c[1, 1] = 21
test_report(a + a[1] + b + b[1] + b[2] + c[0, 0] + c[1, 1])
`)
	require.NoError(t, err)
	checkValue(t, "sum", 50, h.reported[0])

	_, err = h.run("d[0] = 1; test_report(d[5])")
	assertRuntimeError(t, err, Bounds)

	_, err = h.run("e[32000] = 1")
	assertRuntimeError(t, err, Bounds)

	_, err = h.run("e[-1] = 1")
	assertRuntimeError(t, err, Bounds)

	_, err = h.run("e[31999] = 1; test_report(e[31998])")
	require.NoError(t, err)
	checkValue(t, "e", 0, h.reported[0])
}

func TestControlFlow(t *testing.T) {
	h := newHarness(t, newTestHost(0))
	_, err := h.run(`
var i, total;
total = 0
for (i = 0; i < 10; i += 1) {
    if i == 3 continue
    if i == 6 break
    total += i
}
test_report(total)

i = 0
while (i < 5) i += 2
test_report(i)

i = 0
do { i += 1 } until (i >= 4)
test_report(i)

total = 0
repeat (4) total += 2
test_report(total)

switch (2) {
case 1: test_report("one")
case 2: test_report("two")
case 3: test_report("three"); break
default: test_report("default")
}
switch ("z") { case "a": test_report("a"); break; default: test_report("fallback") }
`)
	require.NoError(t, err)
	expected := []interface{}{0 + 1 + 2 + 4 + 5, 6, 4, 8, "two", "three", "fallback"}
	require.Len(t, h.reported, len(expected))
	for i, want := range expected {
		checkValue(t, "control flow", want, h.reported[i])
	}
}

func TestScripts(t *testing.T) {
	h := newHarness(t, newTestHost(0))
	h.script("scr_add", "return argument0 + argument1")
	h.script("scr_count", "return argument_count")
	h.script("scr_missing", "return argument[3]")
	h.script("scr_nothing", "a = 1")
	h.script("scr_fact", "if argument0 <= 1 return 1; return argument0 * scr_fact(argument0 - 1)")
	h.script("scr_self", "hp = 42")

	_, err := h.run(`
test_report(scr_add(2, 3), scr_count(1, 2, 3), scr_missing(1), scr_nothing(), scr_fact(5))
scr_self()
test_report(hp)
`)
	require.NoError(t, err)
	expected := []interface{}{5, 3, 0, 0, 120, 42}
	require.Len(t, h.reported, len(expected))
	for i, want := range expected {
		checkValue(t, "scripts", want, h.reported[i])
	}

	h.script("scr_forever", "return scr_forever()")
	_, err = h.run("scr_forever()")
	assertRuntimeError(t, err, StackOverflow)
	assert.Equal(t, 0, h.vm.Depth())
}

func TestExecuteReturnsValue(t *testing.T) {
	h := newHarness(t, newTestHost(0))
	v, err := h.run("return 4 * 2")
	require.NoError(t, err)
	assert.Equal(t, float64(8), v.AsReal)

	v, err = h.run("a = 1")
	require.NoError(t, err)
	assert.Equal(t, float64(0), v.AsReal)
}

func TestWith(t *testing.T) {
	host := newTestHost(0, 1, 1, 0)
	h := newHarness(t, host)

	_, err := h.run(`
name = "first"
with (obj_b) { hp = 10; owner = other.name }
with (all) counted = 1
with (obj_a) { if id == 100004 break; marked = 1 }
test_report(id)
with (noone) test_report("never")
obj_b.hp += 5
test_report(obj_b.hp, (100003).owner)
`)
	require.NoError(t, err)

	assert.False(t, host.instances[0].fields.Has("hp"))
	for _, inst := range host.instances[1:3] {
		v, ok := inst.fields.Lookup("hp")
		require.True(t, ok)
		hp, _ := v.Get(0, 0)
		assert.Equal(t, float64(15), hp.AsReal)
	}
	for _, inst := range host.instances {
		assert.True(t, inst.fields.Has("counted"))
	}
	assert.True(t, host.instances[0].fields.Has("marked"))
	assert.False(t, host.instances[3].fields.Has("marked"))

	require.Len(t, h.reported, 3)
	checkValue(t, "self restored", 100001, h.reported[0])
	checkValue(t, "obj_b.hp", 15, h.reported[1])
	checkValue(t, "owner", "first", h.reported[2])
}

func TestWithSkipsInactive(t *testing.T) {
	host := newTestHost(0, 1, 1)
	h := newHarness(t, host)
	h.vm.Natives().Define("deactivate", 1, func(ctx *Context, args []value.Value) (value.Value, error) {
		id, _ := Int("deactivate", args, 0)
		for _, inst := range host.instances {
			if inst.id == id {
				inst.active = false
			}
		}
		return value.NewReal(0), nil
	})

	_, err := h.run("with (obj_b) { visited = 1; deactivate(100003) }")
	require.NoError(t, err)
	assert.True(t, host.instances[1].fields.Has("visited"))
	assert.False(t, host.instances[2].fields.Has("visited"))
}

func TestBuiltinAccess(t *testing.T) {
	host := newTestHost(0, 1)
	h := newHarness(t, host)
	_, err := h.run("x = 4; obj_b.x = 9; score += 10; test_report(x, obj_b.x, score, other_missing)")
	require.NoError(t, err)
	checkValue(t, "x", 4, h.reported[0])
	checkValue(t, "obj_b.x", 9, h.reported[1])
	checkValue(t, "score", 10, h.reported[2])
	assert.Equal(t, float64(10), host.score)
}

func TestNestedExecute(t *testing.T) {
	host := newTestHost(0, 1)
	h := newHarness(t, host)
	inner := compileUnit(t, "inner", "hp = argument0 * 2; return hp")
	h.vm.Natives().Define("run_inner", 1, func(ctx *Context, args []value.Value) (value.Value, error) {
		return ctx.VM.Execute(inner, host.instances[1], ctx.Self, args...)
	})

	_, err := h.run("test_report(run_inner(21) + 1)")
	require.NoError(t, err)
	checkValue(t, "nested", 43, h.reported[0])
	assert.Equal(t, 0, h.vm.Depth())
}

func assertRuntimeError(t *testing.T, err error, kind ErrorKind) *RuntimeError {
	t.Helper()
	require.Error(t, err)
	rerr, ok := err.(*RuntimeError)
	require.True(t, ok, "expected *RuntimeError, got %T: %v", err, err)
	assert.Equal(t, kind, rerr.Kind, rerr.Error())
	return rerr
}

func TestRuntimeErrors(t *testing.T) {
	tests := []struct {
		input string
		kind  ErrorKind
		line  int
	}{
		{"a = 1 / 0", DivideByZero, 1},
		{"a = 1\nb = 5 mod 0", DivideByZero, 2},
		{"a = 3 div 0", DivideByZero, 1},
		{"a = \"a\" - 1", TypeBinary, 1},
		{"a = \"a\" < 1", TypeBinary, 1},
		{"a = 2 * \"b\" + 1", TypeBinary, 1},
		{"a = never_set + 1", TypeBinary, 1},
		{"a = -\"s\"", TypeUnary, 1},
		{"if \"yes\" a = 1", TypeUnary, 1},
		{"no_such_function(1)", UnknownFunction, 1},
		{"a = abs(1, 2)", Arity, 1},
		{"a = sqrt(\"4\")", TypeUnary, 1},
		{"a = other.hp", Scope, 1},
		{"a = (100099).hp", Scope, 1},
		{"a = argument[20]", Bounds, 1},
		{"a = string_repeat(\"ab\", 2147483647)", Bounds, 1},
		{"a = 2147483647 * \"ab\"", Bounds, 1},
		{"a = \"x\"\nrepeat (30) a += a", Bounds, 2},
	}

	h := newHarness(t, newTestHost(0))
	for _, tt := range tests {
		_, err := h.run(tt.input)
		rerr := assertRuntimeError(t, err, tt.kind)
		assert.Equal(t, "test", rerr.Unit, tt.input)
		assert.Equal(t, tt.line, rerr.Line, tt.input)
		assert.Equal(t, 0, h.vm.Depth(), tt.input)
	}
}

func TestWriteToMissingTargetIsIgnored(t *testing.T) {
	h := newHarness(t, newTestHost(0))
	_, err := h.run("obj_b.hp = 1; (100050).hp = 2")
	assert.NoError(t, err)
}

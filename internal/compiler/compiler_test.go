package compiler

import (
	"bytes"
	"fmt"
	"strings"
	"testing"

	"gml-vm/internal/chunk"
	"gml-vm/internal/parser"
	"gml-vm/internal/value"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testResources = map[string]value.Value{
	"obj_player": value.NewReal(0),
	"obj_wall":   value.NewReal(1),
	"scr_move":   value.NewReal(0),
}

func compile(t *testing.T, input string) (*chunk.Chunk, error) {
	t.Helper()
	program, err := parser.Parse(input)
	require.NoError(t, err, "parse %q", input)
	return Compile(program, Options{Unit: "test", Resources: testResources})
}

func disassemble(t *testing.T, input string) string {
	t.Helper()
	c, err := compile(t, input)
	require.NoError(t, err, "compile %q", input)
	var out bytes.Buffer
	c.Disassemble(&out)
	return out.String()
}

func TestResolution(t *testing.T) {
	out := disassemble(t, `
var a;
a = 1
b = 2
globalvar g; g = 3
x = 4
other.hp = 5
global.x = 6
obj_wall.hp = 7
score = 8
`)

	tests := []string{
		"OP_SET_LOCAL        0 'a' [0]",
		"self.'b' [0]",
		"global.'g' [0]",
		"OP_SET_BUILTIN",
		"self.'x' [0]",
		"other.'hp' [0]",
		"global.'x' [0]",
		"target.'hp' [0]",
		"self.'score' [0]",
	}
	for _, want := range tests {
		assert.Contains(t, out, want)
	}
}

func TestIndexDimensions(t *testing.T) {
	out := disassemble(t, "a[1] = 2; b[1, 2] = a[1]; alarm[0] = 30; v = instance_id[0]")
	assert.Contains(t, out, "self.'a' [1]")
	assert.Contains(t, out, "self.'b' [2]")
	assert.Contains(t, out, "self.'alarm' [1]")
	assert.Contains(t, out, "self.'instance_id' [1]")
}

func TestCompoundAssignmentDuplicatesOperands(t *testing.T) {
	out := disassemble(t, "obj_wall.hp[2] += 1")
	assert.Contains(t, out, "OP_DUPN             2")
	assert.Contains(t, out, "OP_GET_FIELD")
	assert.Contains(t, out, "OP_ADD")

	out = disassemble(t, "x += 1")
	assert.NotContains(t, out, "OP_DUPN")
}

func TestConstantsCompileToLiterals(t *testing.T) {
	c, err := compile(t, "a = c_red; b = obj_wall; d = ev_user2; e = noone")
	require.NoError(t, err)

	var reals []float64
	for _, k := range c.Constants {
		reals = append(reals, k.AsReal)
	}
	assert.Equal(t, []float64{255, 1, 12, -4}, reals)
	assert.NotContains(t, c.Names, "c_red")
	assert.NotContains(t, c.Names, "obj_wall")
}

func TestCallsAreLinkedByName(t *testing.T) {
	c, err := compile(t, "no_such_function(1, 2); scr_move()")
	require.NoError(t, err)
	assert.Equal(t, []string{"no_such_function", "scr_move"}, c.Names)

	var out bytes.Buffer
	c.Disassemble(&out)
	assert.Contains(t, out.String(), "'no_such_function' (2 args)")
}

func TestHiddenLocals(t *testing.T) {
	c, err := compile(t, "var i; repeat (3) { switch (i) { case 1: break; default: i += 1 } }")
	require.NoError(t, err)
	require.Len(t, c.Locals, 3)
	assert.Equal(t, "i", c.Locals[0])
	assert.True(t, strings.HasPrefix(c.Locals[1], "$repeat"))
	assert.True(t, strings.HasPrefix(c.Locals[2], "$switch"))
}

func TestWithLayout(t *testing.T) {
	out := disassemble(t, "with (obj_wall) { if hp < 0 break; hp -= 1 }")
	assert.Contains(t, out, "OP_WITH_BEGIN")
	assert.Contains(t, out, "OP_WITH_NEXT")
	assert.Contains(t, out, "OP_WITH_POP")

	out = disassemble(t, "with (all) hp = 0")
	assert.NotContains(t, out, "OP_WITH_POP")
}

func TestCompileErrors(t *testing.T) {
	tests := []struct {
		input   string
		line    int
		message string
	}{
		{"var x", 1, "cannot redeclare built-in variable 'x'"},
		{"globalvar id", 1, "cannot redeclare built-in variable 'id'"},
		{"var obj_player", 1, "cannot redeclare constant 'obj_player'"},
		{"id = 3", 1, "cannot assign to read-only variable 'id'"},
		{"a = 1\ninstance_count += 1", 2, "cannot assign to read-only variable 'instance_count'"},
		{"true = 1", 1, "'true' is a constant"},
		{"c_red[2] = 1", 1, "'c_red' is a constant"},
		{"break", 1, "break outside of a loop"},
		{"a = 1\nif a continue", 2, "continue outside of a loop"},
		{"switch (1) { case 1: continue }", 1, "continue outside of a loop"},
		{"x[1] = 2", 1, "built-in variable 'x' is not an array"},
		{"alarm[1, 2] = 2", 1, "built-in variable 'alarm' takes one index"},
	}

	for _, tt := range tests {
		_, err := compile(t, tt.input)
		require.Error(t, err, tt.input)
		cerr, ok := err.(*CompileError)
		require.True(t, ok, "expected *CompileError for %q, got %T", tt.input, err)
		assert.Equal(t, "test", cerr.Unit)
		assert.Equal(t, tt.line, cerr.Line, tt.input)
		assert.Contains(t, cerr.Message, tt.message, tt.input)
	}
}

func TestBreakAndContinueInsideLoops(t *testing.T) {
	inputs := []string{
		"while (1) break",
		"do { continue } until (1)",
		"for (i = 0; i < 3; i += 1) { if i == 1 continue; break }",
		"repeat (2) { continue }",
		"with (all) break",
		"while (1) { switch (1) { case 1: continue } }",
	}
	for _, input := range inputs {
		_, err := compile(t, input)
		assert.NoError(t, err, input)
	}
}

func TestTooManyConstants(t *testing.T) {
	var src strings.Builder
	for i := 0; i <= 65536; i++ {
		fmt.Fprintf(&src, "a = %d\n", i)
	}
	_, err := compile(t, src.String())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "too many constants")
}

func TestDeterministic(t *testing.T) {
	input := `
var i, total;
total = 0
for (i = 0; i < 10; i += 1) {
    switch (i mod 3) {
    case 0: total += i; break
    case 1: total -= 1
    default: total = total * 2
    }
}
with (obj_wall) { hp = other.total; if hp > 5 exit }
repeat (total div 4) show_debug_message("tick " + string(total))
global.best = max(global.best, total)
`
	first, err := compile(t, input)
	require.NoError(t, err)
	second, err := compile(t, input)
	require.NoError(t, err)
	assert.Equal(t, first, second)

	// every byte carries a position
	assert.Equal(t, len(first.Code), len(first.Positions))
	for i, pos := range first.Positions {
		assert.Greater(t, pos.Line, 0, "offset %d", i)
	}
}

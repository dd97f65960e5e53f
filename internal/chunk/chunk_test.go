package chunk

import (
	"bytes"
	"strings"
	"testing"

	"gml-vm/internal/value"

	"github.com/stretchr/testify/assert"
)

func TestAddConstantDeduplicates(t *testing.T) {
	c := New("test")
	a := c.AddConstant(value.NewReal(1))
	b := c.AddConstant(value.NewString("1"))
	assert.NotEqual(t, a, b)
	assert.Equal(t, a, c.AddConstant(value.NewReal(1)))
	assert.Equal(t, 0, c.AddName("hp"))
	assert.Equal(t, 1, c.AddName("score"))
	assert.Equal(t, 0, c.AddName("hp"))
}

func TestDisassemble(t *testing.T) {
	c := New("obj_player.Step")
	c.Locals = []string{"i"}
	k := c.AddConstant(value.NewReal(3))
	name := c.AddName("hp")

	at := Position{Line: 1, Column: 1}
	c.Write(byte(OP_CONSTANT), at)
	c.Write(byte(k>>8), at)
	c.Write(byte(k), at)
	c.Write(byte(OP_SET_FIELD), at)
	c.Write(ModeSelf, at)
	c.Write(byte(name>>8), at)
	c.Write(byte(name), at)
	c.Write(0, at)
	next := Position{Line: 2, Column: 1}
	c.Write(byte(OP_JUMP), next)
	c.Write(0, next)
	c.Write(0, next)
	c.Write(byte(OP_EXIT), next)

	var out bytes.Buffer
	c.Disassemble(&out)
	lines := strings.Split(strings.TrimSpace(out.String()), "\n")

	expected := []string{
		"== obj_player.Step ==",
		"0000    1 OP_CONSTANT         0 3",
		"0003    | OP_SET_FIELD        0 self.'hp' [0]",
		"0008    2 OP_JUMP             8 -> 11",
		"0011    | OP_EXIT",
	}
	assert.Equal(t, expected, lines)
	assert.Equal(t, next, c.PositionAt(9))
	assert.Equal(t, Position{}, c.PositionAt(100))
}

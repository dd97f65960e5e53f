package chunk

import (
	"fmt"
	"gml-vm/internal/builtin"
	"gml-vm/internal/value"
	"io"
)

type OpCode byte

const (
	OP_CONSTANT OpCode = iota
	OP_UNDEFINED
	OP_POP
	OP_DUPN
	OP_GET_LOCAL
	OP_SET_LOCAL
	OP_GET_FIELD
	OP_SET_FIELD
	OP_GET_BUILTIN
	OP_SET_BUILTIN
	OP_ADD
	OP_SUBTRACT
	OP_MULTIPLY
	OP_DIVIDE
	OP_INT_DIVIDE
	OP_MODULO
	OP_NEGATE
	OP_NOT
	OP_BIT_NOT
	OP_BIT_AND
	OP_BIT_OR
	OP_BIT_XOR
	OP_SHIFT_LEFT
	OP_SHIFT_RIGHT
	OP_EQUAL
	OP_NOT_EQUAL
	OP_LESS
	OP_LESS_EQUAL
	OP_GREATER
	OP_GREATER_EQUAL
	OP_AND
	OP_OR
	OP_XOR
	OP_JUMP
	OP_JUMP_IF_FALSE
	OP_JUMP_IF_TRUE
	OP_LOOP
	OP_CALL
	OP_RETURN
	OP_EXIT
	OP_WITH_BEGIN
	OP_WITH_NEXT
	OP_WITH_POP
)

var opNames = [...]string{
	OP_CONSTANT:      "OP_CONSTANT",
	OP_UNDEFINED:     "OP_UNDEFINED",
	OP_POP:           "OP_POP",
	OP_DUPN:          "OP_DUPN",
	OP_GET_LOCAL:     "OP_GET_LOCAL",
	OP_SET_LOCAL:     "OP_SET_LOCAL",
	OP_GET_FIELD:     "OP_GET_FIELD",
	OP_SET_FIELD:     "OP_SET_FIELD",
	OP_GET_BUILTIN:   "OP_GET_BUILTIN",
	OP_SET_BUILTIN:   "OP_SET_BUILTIN",
	OP_ADD:           "OP_ADD",
	OP_SUBTRACT:      "OP_SUBTRACT",
	OP_MULTIPLY:      "OP_MULTIPLY",
	OP_DIVIDE:        "OP_DIVIDE",
	OP_INT_DIVIDE:    "OP_INT_DIVIDE",
	OP_MODULO:        "OP_MODULO",
	OP_NEGATE:        "OP_NEGATE",
	OP_NOT:           "OP_NOT",
	OP_BIT_NOT:       "OP_BIT_NOT",
	OP_BIT_AND:       "OP_BIT_AND",
	OP_BIT_OR:        "OP_BIT_OR",
	OP_BIT_XOR:       "OP_BIT_XOR",
	OP_SHIFT_LEFT:    "OP_SHIFT_LEFT",
	OP_SHIFT_RIGHT:   "OP_SHIFT_RIGHT",
	OP_EQUAL:         "OP_EQUAL",
	OP_NOT_EQUAL:     "OP_NOT_EQUAL",
	OP_LESS:          "OP_LESS",
	OP_LESS_EQUAL:    "OP_LESS_EQUAL",
	OP_GREATER:       "OP_GREATER",
	OP_GREATER_EQUAL: "OP_GREATER_EQUAL",
	OP_AND:           "OP_AND",
	OP_OR:            "OP_OR",
	OP_XOR:           "OP_XOR",
	OP_JUMP:          "OP_JUMP",
	OP_JUMP_IF_FALSE: "OP_JUMP_IF_FALSE",
	OP_JUMP_IF_TRUE:  "OP_JUMP_IF_TRUE",
	OP_LOOP:          "OP_LOOP",
	OP_CALL:          "OP_CALL",
	OP_RETURN:        "OP_RETURN",
	OP_EXIT:          "OP_EXIT",
	OP_WITH_BEGIN:    "OP_WITH_BEGIN",
	OP_WITH_NEXT:     "OP_WITH_NEXT",
	OP_WITH_POP:      "OP_WITH_POP",
}

func (op OpCode) String() string {
	if int(op) < len(opNames) && opNames[op] != "" {
		return opNames[op]
	}
	return fmt.Sprintf("OP_UNKNOWN(%d)", byte(op))
}

// Addressing modes carried by field and built-in access instructions.
const (
	ModeSelf   byte = iota
	ModeOther       // the other instance of the running event or with-block
	ModeGlobal      // the global namespace
	ModeTarget      // an instance id, object index or scope constant popped from the stack
)

func ModeName(mode byte) string {
	switch mode {
	case ModeSelf:
		return "self"
	case ModeOther:
		return "other"
	case ModeGlobal:
		return "global"
	case ModeTarget:
		return "target"
	}
	return "?"
}

// Position is a 1-based source location.
type Position struct {
	Line   int
	Column int
}

// Chunk is one compiled unit: an event handler, a script, or room or
// instance creation code.
type Chunk struct {
	Name      string
	Code      []byte
	Positions []Position
	Constants []value.Value
	Names     []string // field and function names referenced by the code
	Locals    []string // slot names; hidden slots are named with a leading '$'

	constantIndex map[value.Value]int
	nameIndex     map[string]int
}

func New(name string) *Chunk {
	return &Chunk{Name: name}
}

func (c *Chunk) Write(byteCode byte, pos Position) {
	c.Code = append(c.Code, byteCode)
	c.Positions = append(c.Positions, pos)
}

func (c *Chunk) AddConstant(v value.Value) int {
	if i, ok := c.constantIndex[v]; ok {
		return i
	}
	if c.constantIndex == nil {
		c.constantIndex = make(map[value.Value]int)
	}
	c.Constants = append(c.Constants, v)
	c.constantIndex[v] = len(c.Constants) - 1
	return len(c.Constants) - 1
}

func (c *Chunk) AddName(name string) int {
	if i, ok := c.nameIndex[name]; ok {
		return i
	}
	if c.nameIndex == nil {
		c.nameIndex = make(map[string]int)
	}
	c.Names = append(c.Names, name)
	c.nameIndex[name] = len(c.Names) - 1
	return len(c.Names) - 1
}

// PositionAt maps a code offset back to its source location.
func (c *Chunk) PositionAt(offset int) Position {
	if offset < 0 || offset >= len(c.Positions) {
		return Position{}
	}
	return c.Positions[offset]
}

func (c *Chunk) ReadShort(offset int) int {
	return int(c.Code[offset])<<8 | int(c.Code[offset+1])
}

func (c *Chunk) Disassemble(w io.Writer) {
	fmt.Fprintf(w, "== %s ==\n", c.Name)

	for offset := 0; offset < len(c.Code); {
		offset = c.DisassembleInstruction(w, offset)
	}
}

func (c *Chunk) DisassembleInstruction(w io.Writer, offset int) int {
	fmt.Fprintf(w, "%04d ", offset)
	if offset > 0 && c.Positions[offset].Line == c.Positions[offset-1].Line {
		fmt.Fprintf(w, "   | ")
	} else {
		fmt.Fprintf(w, "%4d ", c.Positions[offset].Line)
	}

	instruction := OpCode(c.Code[offset])
	switch instruction {
	case OP_CONSTANT:
		return c.constantInstruction(w, instruction, offset)
	case OP_DUPN:
		return c.byteInstruction(w, instruction, offset)
	case OP_GET_LOCAL, OP_SET_LOCAL:
		return c.localInstruction(w, instruction, offset)
	case OP_GET_FIELD, OP_SET_FIELD, OP_GET_BUILTIN, OP_SET_BUILTIN:
		return c.fieldInstruction(w, instruction, offset)
	case OP_JUMP, OP_JUMP_IF_FALSE, OP_JUMP_IF_TRUE, OP_WITH_BEGIN:
		return c.jumpInstruction(w, instruction, 1, offset)
	case OP_LOOP, OP_WITH_NEXT:
		return c.jumpInstruction(w, instruction, -1, offset)
	case OP_CALL:
		name := c.ReadShort(offset + 1)
		argc := c.Code[offset+3]
		fmt.Fprintf(w, "%-16s %4d '%s' (%d args)\n", instruction, name, c.Names[name], argc)
		return offset + 4
	default:
		if int(instruction) >= len(opNames) {
			fmt.Fprintf(w, "Unknown opcode %d\n", instruction)
			return offset + 1
		}
		return c.simpleInstruction(w, instruction, offset)
	}
}

func (c *Chunk) simpleInstruction(w io.Writer, op OpCode, offset int) int {
	fmt.Fprintf(w, "%s\n", op)
	return offset + 1
}

func (c *Chunk) constantInstruction(w io.Writer, op OpCode, offset int) int {
	constant := c.ReadShort(offset + 1)
	fmt.Fprintf(w, "%-16s %4d %q\n", op, constant, c.Constants[constant])
	return offset + 3
}

func (c *Chunk) byteInstruction(w io.Writer, op OpCode, offset int) int {
	fmt.Fprintf(w, "%-16s %4d\n", op, c.Code[offset+1])
	return offset + 2
}

func (c *Chunk) localInstruction(w io.Writer, op OpCode, offset int) int {
	slot := c.ReadShort(offset + 1)
	dims := c.Code[offset+3]
	fmt.Fprintf(w, "%-16s %4d '%s' [%d]\n", op, slot, c.Locals[slot], dims)
	return offset + 4
}

func (c *Chunk) fieldInstruction(w io.Writer, op OpCode, offset int) int {
	mode := c.Code[offset+1]
	index := c.ReadShort(offset + 2)
	dims := c.Code[offset+4]
	var name string
	if op == OP_GET_BUILTIN || op == OP_SET_BUILTIN {
		name = builtin.VariableAt(index).Name
	} else {
		name = c.Names[index]
	}
	fmt.Fprintf(w, "%-16s %4d %s.'%s' [%d]\n", op, index, ModeName(mode), name, dims)
	return offset + 5
}

func (c *Chunk) jumpInstruction(w io.Writer, op OpCode, sign int, offset int) int {
	jump := c.ReadShort(offset + 1)
	fmt.Fprintf(w, "%-16s %4d -> %d\n", op, offset, offset+3+sign*jump)
	return offset + 3
}

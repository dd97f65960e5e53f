package vm

import (
	"math"
	"strings"

	"gml-vm/internal/chunk"
	"gml-vm/internal/value"
)

// MaxStringLength bounds the strings concatenation and repetition build.
const MaxStringLength = 1 << 24

func repeat(s string, n int) (string, *RuntimeError) {
	if n <= 0 || s == "" {
		return "", nil
	}
	if len(s) > MaxStringLength/n {
		return "", Errorf(Bounds, "repeating a string of %d bytes %d times exceeds the limit of %d bytes", len(s), n, MaxStringLength)
	}
	return strings.Repeat(s, n), nil
}

var opSymbols = map[chunk.OpCode]string{
	chunk.OP_ADD:           "+",
	chunk.OP_SUBTRACT:      "-",
	chunk.OP_MULTIPLY:      "*",
	chunk.OP_DIVIDE:        "/",
	chunk.OP_INT_DIVIDE:    "div",
	chunk.OP_MODULO:        "mod",
	chunk.OP_NEGATE:        "-",
	chunk.OP_NOT:           "!",
	chunk.OP_BIT_NOT:       "~",
	chunk.OP_BIT_AND:       "&",
	chunk.OP_BIT_OR:        "|",
	chunk.OP_BIT_XOR:       "^",
	chunk.OP_SHIFT_LEFT:    "<<",
	chunk.OP_SHIFT_RIGHT:   ">>",
	chunk.OP_EQUAL:         "==",
	chunk.OP_NOT_EQUAL:     "!=",
	chunk.OP_LESS:          "<",
	chunk.OP_LESS_EQUAL:    "<=",
	chunk.OP_GREATER:       ">",
	chunk.OP_GREATER_EQUAL: ">=",
	chunk.OP_AND:           "&&",
	chunk.OP_OR:            "||",
	chunk.OP_XOR:           "^^",
}

func typeBinary(op chunk.OpCode, a, b value.Value) *RuntimeError {
	return Errorf(TypeBinary, "invalid operands for %s: %s and %s", opSymbols[op], a.TypeName(), b.TypeName())
}

func typeUnary(op chunk.OpCode, a value.Value) *RuntimeError {
	return Errorf(TypeUnary, "invalid operand for %s: %s", opSymbols[op], a.TypeName())
}

// unaryOp applies a prefix operator. All of them take reals only.
func unaryOp(op chunk.OpCode, a value.Value) (value.Value, *RuntimeError) {
	x, ok := a.Number()
	if !ok {
		return value.Undefined, typeUnary(op, a)
	}
	switch op {
	case chunk.OP_NEGATE:
		return value.NewReal(-x), nil
	case chunk.OP_NOT:
		return value.NewBool(!value.ToBool(x)), nil
	default:
		return value.NewReal(float64(^value.ToInt32(x))), nil
	}
}

// binaryOp applies an infix operator with the legacy coercion rules.
func binaryOp(op chunk.OpCode, a, b value.Value) (value.Value, *RuntimeError) {
	switch op {
	case chunk.OP_EQUAL:
		return value.NewBool(value.Equal(a, b)), nil
	case chunk.OP_NOT_EQUAL:
		return value.NewBool(!value.Equal(a, b)), nil
	case chunk.OP_LESS, chunk.OP_LESS_EQUAL, chunk.OP_GREATER, chunk.OP_GREATER_EQUAL:
		return compare(op, a, b)
	}

	if a.IsString() || b.IsString() {
		switch {
		case op == chunk.OP_ADD && a.IsString() && b.IsString():
			if len(a.AsString)+len(b.AsString) > MaxStringLength {
				return value.Undefined, Errorf(Bounds, "a string of %d bytes exceeds the limit of %d bytes", len(a.AsString)+len(b.AsString), MaxStringLength)
			}
			return value.NewString(a.AsString + b.AsString), nil
		case op == chunk.OP_MULTIPLY && a.IsReal() && b.IsString():
			s, err := repeat(b.AsString, int(value.ToInt32(a.AsReal)))
			if err != nil {
				return value.Undefined, err
			}
			return value.NewString(s), nil
		}
		return value.Undefined, typeBinary(op, a, b)
	}

	x, ok := a.Number()
	y, ok2 := b.Number()
	if !ok || !ok2 {
		return value.Undefined, typeBinary(op, a, b)
	}

	switch op {
	case chunk.OP_ADD:
		return value.NewReal(x + y), nil
	case chunk.OP_SUBTRACT:
		return value.NewReal(x - y), nil
	case chunk.OP_MULTIPLY:
		return value.NewReal(x * y), nil
	case chunk.OP_DIVIDE, chunk.OP_INT_DIVIDE, chunk.OP_MODULO:
		if y == 0 {
			return value.Undefined, Errorf(DivideByZero, "division by zero")
		}
		switch op {
		case chunk.OP_DIVIDE:
			return value.NewReal(x / y), nil
		case chunk.OP_INT_DIVIDE:
			return value.NewReal(float64(value.ToInt32(x / y))), nil
		default:
			return value.NewReal(math.Mod(x, y)), nil
		}
	case chunk.OP_AND:
		return value.NewBool(value.ToBool(x) && value.ToBool(y)), nil
	case chunk.OP_OR:
		return value.NewBool(value.ToBool(x) || value.ToBool(y)), nil
	case chunk.OP_XOR:
		return value.NewBool(value.ToBool(x) != value.ToBool(y)), nil
	}

	i, j := value.ToInt32(x), value.ToInt32(y)
	switch op {
	case chunk.OP_BIT_AND:
		return value.NewReal(float64(i & j)), nil
	case chunk.OP_BIT_OR:
		return value.NewReal(float64(i | j)), nil
	case chunk.OP_BIT_XOR:
		return value.NewReal(float64(i ^ j)), nil
	case chunk.OP_SHIFT_LEFT:
		return value.NewReal(float64(i << (uint32(j) & 31))), nil
	case chunk.OP_SHIFT_RIGHT:
		return value.NewReal(float64(i >> (uint32(j) & 31))), nil
	}
	return value.Undefined, typeBinary(op, a, b)
}

// compare orders two reals or two strings. Any other pairing is an error.
func compare(op chunk.OpCode, a, b value.Value) (value.Value, *RuntimeError) {
	var c int
	switch {
	case a.IsReal() && b.IsReal():
		switch {
		case a.AsReal < b.AsReal:
			c = -1
		case a.AsReal > b.AsReal:
			c = 1
		}
	case a.IsString() && b.IsString():
		c = strings.Compare(a.AsString, b.AsString)
	default:
		return value.Undefined, typeBinary(op, a, b)
	}

	switch op {
	case chunk.OP_LESS:
		return value.NewBool(c < 0), nil
	case chunk.OP_LESS_EQUAL:
		return value.NewBool(c <= 0), nil
	case chunk.OP_GREATER:
		return value.NewBool(c > 0), nil
	default:
		return value.NewBool(c >= 0), nil
	}
}

package value

import (
	"fmt"
	"math"
	"strconv"
)

type ValueType int

const (
	VAL_UNDEFINED ValueType = iota
	VAL_REAL
	VAL_STRING
	VAL_HANDLE // list/map/grid reference, numerically its id
)

// ResourceKind tags a handle with the namespace it was allocated from.
type ResourceKind int

const (
	KindList ResourceKind = iota
	KindMap
	KindGrid
)

func (k ResourceKind) String() string {
	switch k {
	case KindList:
		return "list"
	case KindMap:
		return "map"
	case KindGrid:
		return "grid"
	}
	return "resource"
}

type Value struct {
	Type     ValueType
	AsReal   float64
	AsString string
	Kind     ResourceKind
}

var Undefined = Value{Type: VAL_UNDEFINED}

func NewReal(v float64) Value {
	return Value{Type: VAL_REAL, AsReal: v}
}

func NewInt(v int) Value {
	return Value{Type: VAL_REAL, AsReal: float64(v)}
}

func NewBool(v bool) Value {
	if v {
		return Value{Type: VAL_REAL, AsReal: 1}
	}
	return Value{Type: VAL_REAL, AsReal: 0}
}

func NewString(v string) Value {
	return Value{Type: VAL_STRING, AsString: v}
}

func NewHandle(kind ResourceKind, id int) Value {
	return Value{Type: VAL_HANDLE, AsReal: float64(id), Kind: kind}
}

func (v Value) IsUndefined() bool { return v.Type == VAL_UNDEFINED }
func (v Value) IsString() bool    { return v.Type == VAL_STRING }

// IsReal reports whether v takes part in arithmetic. Handles do, as they did
// when they were plain numbers.
func (v Value) IsReal() bool {
	return v.Type == VAL_REAL || v.Type == VAL_HANDLE
}

// Number returns the numeric payload of a real or handle.
func (v Value) Number() (float64, bool) {
	if v.IsReal() {
		return v.AsReal, true
	}
	return 0, false
}

// ToInt32 truncates toward zero like the legacy runtime.
func ToInt32(f float64) int32 {
	if math.IsNaN(f) {
		return 0
	}
	if f >= math.MaxInt32 {
		return math.MaxInt32
	}
	if f <= math.MinInt32 {
		return math.MinInt32
	}
	return int32(f)
}

// ToBool is the legacy truthiness rule for reals.
func ToBool(f float64) bool { return ToInt32(f) > 0 }

// Equal compares structurally. Values of different types are never equal,
// except that a handle compares by its numeric id.
func Equal(a, b Value) bool {
	if an, ok := a.Number(); ok {
		bn, ok := b.Number()
		return ok && an == bn
	}
	if a.Type != b.Type {
		return false
	}
	switch a.Type {
	case VAL_STRING:
		return a.AsString == b.AsString
	case VAL_UNDEFINED:
		return true
	}
	return false
}

func (v Value) TypeName() string {
	switch v.Type {
	case VAL_UNDEFINED:
		return "undefined"
	case VAL_REAL:
		return "real"
	case VAL_STRING:
		return "string"
	case VAL_HANDLE:
		return v.Kind.String()
	}
	return "unknown"
}

// String renders a value the way string() and show_debug_message do.
func (v Value) String() string {
	switch v.Type {
	case VAL_UNDEFINED:
		return "undefined"
	case VAL_REAL, VAL_HANDLE:
		return FormatReal(v.AsReal)
	case VAL_STRING:
		return v.AsString
	}
	return "unknown"
}

// FormatReal prints whole numbers without decimals and everything else with
// two, the legacy string() rule.
func FormatReal(f float64) string {
	if math.IsInf(f, 0) || math.IsNaN(f) {
		return strconv.FormatFloat(f, 'f', -1, 64)
	}
	if f == math.Trunc(f) && math.Abs(f) < 1e15 {
		return strconv.FormatFloat(f, 'f', 0, 64)
	}
	return strconv.FormatFloat(f, 'f', 2, 64)
}

func (v Value) Format(f fmt.State, verb rune) {
	switch verb {
	case 'T':
		fmt.Fprint(f, v.TypeName())
	case 'q':
		if v.Type == VAL_STRING {
			fmt.Fprintf(f, "%q", v.AsString)
			return
		}
		fmt.Fprint(f, v.String())
	default:
		fmt.Fprint(f, v.String())
	}
}

package vm

import (
	"sort"

	"gml-vm/internal/value"
)

// Instance is the VM's view of one live object instance.
type Instance interface {
	ID() int
	Fields() *value.Namespace
	// Active is false once the instance is pending destruction.
	Active() bool
}

// Host is everything the VM knows about the world around it.
type Host interface {
	Globals() *value.Namespace
	// Lookup resolves an instance id, an object index or the all scope to
	// the active instances it names, in creation order.
	Lookup(target float64) []Instance
	GetBuiltin(self Instance, variable int, index int) (value.Value, error)
	SetBuiltin(self Instance, variable int, index int, v value.Value) error
}

// Context is handed to every native call.
type Context struct {
	VM    *VM
	Self  Instance
	Other Instance
}

type NativeFn func(ctx *Context, args []value.Value) (value.Value, error)

type Native struct {
	Name  string
	Arity int // -1 for variadic
	Fn    NativeFn
}

// NativeTable maps built-in function names to host implementations.
type NativeTable struct {
	natives map[string]*Native
}

func NewNativeTable() *NativeTable {
	return &NativeTable{natives: make(map[string]*Native)}
}

func (t *NativeTable) Define(name string, arity int, fn NativeFn) {
	t.natives[name] = &Native{Name: name, Arity: arity, Fn: fn}
}

func (t *NativeTable) Lookup(name string) (*Native, bool) {
	n, ok := t.natives[name]
	return n, ok
}

// Names lists the registered natives in sorted order.
func (t *NativeTable) Names() []string {
	names := make([]string, 0, len(t.natives))
	for name := range t.natives {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Real reads argument i as a real, failing with a TypeUnary error otherwise.
func Real(name string, args []value.Value, i int) (float64, error) {
	if f, ok := args[i].Number(); ok {
		return f, nil
	}
	return 0, Errorf(TypeUnary, "%s: argument %d must be a real, got %s", name, i, args[i].TypeName())
}

// Int reads argument i as a truncated integer.
func Int(name string, args []value.Value, i int) (int, error) {
	f, err := Real(name, args, i)
	if err != nil {
		return 0, err
	}
	return int(value.ToInt32(f)), nil
}

// String reads argument i as a string.
func String(name string, args []value.Value, i int) (string, error) {
	if args[i].IsString() {
		return args[i].AsString, nil
	}
	return "", Errorf(TypeUnary, "%s: argument %d must be a string, got %s", name, i, args[i].TypeName())
}

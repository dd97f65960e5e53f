package vm

import (
	"errors"

	"gml-vm/internal/builtin"
	"gml-vm/internal/chunk"
	"gml-vm/internal/value"
)

const (
	DefaultStackSize     = 4096
	DefaultMaxCallDepth  = 256
	DefaultMaxArrayIndex = 32000
)

type Config struct {
	StackSize     int
	MaxCallDepth  int
	MaxArrayIndex int // indices at or past this are out of bounds
}

func DefaultConfig() Config {
	return Config{
		StackSize:     DefaultStackSize,
		MaxCallDepth:  DefaultMaxCallDepth,
		MaxArrayIndex: DefaultMaxArrayIndex,
	}
}

// ScriptLinker finds a compiled script by name. Calls try scripts before
// natives.
type ScriptLinker func(name string) (*chunk.Chunk, bool)

type CallFrame struct {
	Chunk  *chunk.Chunk
	IP     int
	Base   int // operand stack height when the frame was entered
	Locals []*value.Array
	Args   []value.Value
	Self   Instance
	Other  Instance
	withs  []*withState
}

// withState is one active with-block: the instances still to visit and the
// self and other to restore afterwards.
type withState struct {
	instances []Instance
	next      int
	self      Instance
	other     Instance
}

func (f *CallFrame) readByte() int {
	b := f.Chunk.Code[f.IP]
	f.IP++
	return int(b)
}

func (f *CallFrame) readShort() int {
	v := f.Chunk.ReadShort(f.IP)
	f.IP += 2
	return v
}

type VM struct {
	cfg     Config
	host    Host
	natives *NativeTable
	scripts ScriptLinker

	stack  []value.Value
	frames []*CallFrame
}

func New(cfg Config, host Host, natives *NativeTable) *VM {
	if cfg.StackSize <= 0 {
		cfg.StackSize = DefaultStackSize
	}
	if cfg.MaxCallDepth <= 0 {
		cfg.MaxCallDepth = DefaultMaxCallDepth
	}
	if cfg.MaxArrayIndex <= 0 {
		cfg.MaxArrayIndex = DefaultMaxArrayIndex
	}
	if natives == nil {
		natives = NewNativeTable()
	}
	return &VM{
		cfg:     cfg,
		host:    host,
		natives: natives,
		stack:   make([]value.Value, 0, 256),
	}
}

func (vm *VM) SetScripts(linker ScriptLinker) { vm.scripts = linker }
func (vm *VM) Host() Host                     { return vm.host }
func (vm *VM) Natives() *NativeTable          { return vm.natives }
func (vm *VM) Config() Config                 { return vm.cfg }

// Depth is the number of active call frames.
func (vm *VM) Depth() int { return len(vm.frames) }

// Execute runs unit to completion with the given self and other. It is
// re-entrant: a native may call Execute again, and the nested run shares the
// stack and the call depth bound.
func (vm *VM) Execute(unit *chunk.Chunk, self, other Instance, args ...value.Value) (value.Value, error) {
	if len(vm.frames) >= vm.cfg.MaxCallDepth {
		return value.Undefined, &RuntimeError{
			Kind:    StackOverflow,
			Message: "maximum call depth exceeded",
			Unit:    unit.Name,
			Line:    1,
			Column:  1,
		}
	}

	base := len(vm.frames)
	stackBase := len(vm.stack)
	vm.pushFrame(unit, self, other, args)

	result, err := vm.run(base)
	if err != nil {
		vm.frames = vm.frames[:base]
		vm.stack = vm.stack[:stackBase]
		return value.Undefined, err
	}
	return result, nil
}

func (vm *VM) pushFrame(unit *chunk.Chunk, self, other Instance, args []value.Value) *CallFrame {
	frame := &CallFrame{
		Chunk:  unit,
		Base:   len(vm.stack),
		Locals: make([]*value.Array, len(unit.Locals)),
		Args:   args,
		Self:   self,
		Other:  other,
	}
	vm.frames = append(vm.frames, frame)
	return frame
}

func (vm *VM) run(base int) (value.Value, error) {
	frame := vm.frames[len(vm.frames)-1]
	c := frame.Chunk

	for {
		start := frame.IP
		if len(vm.stack) > vm.cfg.StackSize {
			return value.Undefined, vm.fail(frame, start, Errorf(StackOverflow, "operand stack exhausted"))
		}

		instruction := chunk.OP_EXIT
		if frame.IP < len(c.Code) {
			instruction = chunk.OpCode(c.Code[frame.IP])
			frame.IP++
		}

		switch instruction {
		case chunk.OP_CONSTANT:
			vm.push(c.Constants[frame.readShort()])

		case chunk.OP_UNDEFINED:
			vm.push(value.Undefined)

		case chunk.OP_POP:
			vm.pop()

		case chunk.OP_DUPN:
			n := frame.readByte()
			vm.stack = append(vm.stack, vm.stack[len(vm.stack)-n:]...)

		case chunk.OP_GET_LOCAL:
			slot := frame.readShort()
			dims := frame.readByte()
			i, j, err := vm.popIndices(dims)
			if err != nil {
				return value.Undefined, vm.fail(frame, start, err)
			}
			v, err := readArray(frame.Locals[slot], c.Locals[slot], dims, i, j)
			if err != nil {
				return value.Undefined, vm.fail(frame, start, err)
			}
			vm.push(v)

		case chunk.OP_SET_LOCAL:
			slot := frame.readShort()
			dims := frame.readByte()
			v := vm.pop()
			i, j, err := vm.popIndices(dims)
			if err != nil {
				return value.Undefined, vm.fail(frame, start, err)
			}
			if err := vm.checkWrite(c.Locals[slot], i, j); err != nil {
				return value.Undefined, vm.fail(frame, start, err)
			}
			if frame.Locals[slot] == nil {
				frame.Locals[slot] = value.NewArray()
			}
			frame.Locals[slot].Set(i, j, v)

		case chunk.OP_GET_FIELD:
			mode := byte(frame.readByte())
			name := c.Names[frame.readShort()]
			dims := frame.readByte()
			v, err := vm.getField(frame, mode, name, dims)
			if err != nil {
				return value.Undefined, vm.fail(frame, start, err)
			}
			vm.push(v)

		case chunk.OP_SET_FIELD:
			mode := byte(frame.readByte())
			name := c.Names[frame.readShort()]
			dims := frame.readByte()
			if err := vm.setField(frame, mode, name, dims); err != nil {
				return value.Undefined, vm.fail(frame, start, err)
			}

		case chunk.OP_GET_BUILTIN:
			mode := byte(frame.readByte())
			variable := frame.readShort()
			dims := frame.readByte()
			v, err := vm.getBuiltin(frame, mode, variable, dims)
			if err != nil {
				return value.Undefined, vm.fail(frame, start, err)
			}
			vm.push(v)

		case chunk.OP_SET_BUILTIN:
			mode := byte(frame.readByte())
			variable := frame.readShort()
			dims := frame.readByte()
			if err := vm.setBuiltin(frame, mode, variable, dims); err != nil {
				return value.Undefined, vm.fail(frame, start, err)
			}

		case chunk.OP_NEGATE, chunk.OP_NOT, chunk.OP_BIT_NOT:
			r, err := unaryOp(instruction, vm.pop())
			if err != nil {
				return value.Undefined, vm.fail(frame, start, err)
			}
			vm.push(r)

		case chunk.OP_ADD, chunk.OP_SUBTRACT, chunk.OP_MULTIPLY, chunk.OP_DIVIDE,
			chunk.OP_INT_DIVIDE, chunk.OP_MODULO, chunk.OP_BIT_AND, chunk.OP_BIT_OR,
			chunk.OP_BIT_XOR, chunk.OP_SHIFT_LEFT, chunk.OP_SHIFT_RIGHT, chunk.OP_EQUAL,
			chunk.OP_NOT_EQUAL, chunk.OP_LESS, chunk.OP_LESS_EQUAL, chunk.OP_GREATER,
			chunk.OP_GREATER_EQUAL, chunk.OP_AND, chunk.OP_OR, chunk.OP_XOR:
			b := vm.pop()
			a := vm.pop()
			r, err := binaryOp(instruction, a, b)
			if err != nil {
				return value.Undefined, vm.fail(frame, start, err)
			}
			vm.push(r)

		case chunk.OP_JUMP:
			offset := frame.readShort()
			frame.IP += offset

		case chunk.OP_JUMP_IF_FALSE, chunk.OP_JUMP_IF_TRUE:
			offset := frame.readShort()
			cond, err := condition(vm.pop())
			if err != nil {
				return value.Undefined, vm.fail(frame, start, err)
			}
			if cond == (instruction == chunk.OP_JUMP_IF_TRUE) {
				frame.IP += offset
			}

		case chunk.OP_LOOP:
			offset := frame.readShort()
			frame.IP -= offset

		case chunk.OP_CALL:
			name := c.Names[frame.readShort()]
			argc := frame.readByte()
			args := make([]value.Value, argc)
			copy(args, vm.stack[len(vm.stack)-argc:])
			vm.stack = vm.stack[:len(vm.stack)-argc]

			if vm.scripts != nil {
				if unit, ok := vm.scripts(name); ok {
					if argc > builtin.MaxArguments {
						return value.Undefined, vm.fail(frame, start, Errorf(Arity, "script %s takes at most %d arguments, got %d", name, builtin.MaxArguments, argc))
					}
					if len(vm.frames) >= vm.cfg.MaxCallDepth {
						return value.Undefined, vm.fail(frame, start, Errorf(StackOverflow, "maximum call depth exceeded calling %s", name))
					}
					frame = vm.pushFrame(unit, frame.Self, frame.Other, args)
					c = frame.Chunk
					continue
				}
			}

			native, ok := vm.natives.Lookup(name)
			if !ok {
				return value.Undefined, vm.fail(frame, start, Errorf(UnknownFunction, "unknown function or script '%s'", name))
			}
			if native.Arity >= 0 && argc != native.Arity {
				return value.Undefined, vm.fail(frame, start, Errorf(Arity, "%s takes %d arguments, got %d", name, native.Arity, argc))
			}
			r, err := native.Fn(&Context{VM: vm, Self: frame.Self, Other: frame.Other}, args)
			if err != nil {
				return value.Undefined, vm.fail(frame, start, err)
			}
			vm.push(r)

		case chunk.OP_RETURN, chunk.OP_EXIT:
			result := value.NewReal(0)
			if instruction == chunk.OP_RETURN {
				result = vm.pop()
			}
			vm.stack = vm.stack[:frame.Base]
			vm.frames = vm.frames[:len(vm.frames)-1]
			if len(vm.frames) == base {
				return result, nil
			}
			frame = vm.frames[len(vm.frames)-1]
			c = frame.Chunk
			vm.push(result)

		case chunk.OP_WITH_BEGIN:
			offset := frame.readShort()
			instances, err := vm.withTargets(frame, vm.pop())
			if err != nil {
				return value.Undefined, vm.fail(frame, start, err)
			}
			if len(instances) == 0 {
				frame.IP += offset
				continue
			}
			frame.withs = append(frame.withs, &withState{
				instances: instances,
				next:      1,
				self:      frame.Self,
				other:     frame.Other,
			})
			frame.Other = frame.Self
			frame.Self = instances[0]

		case chunk.OP_WITH_NEXT:
			offset := frame.readShort()
			w := frame.withs[len(frame.withs)-1]
			for w.next < len(w.instances) && !w.instances[w.next].Active() {
				w.next++
			}
			if w.next < len(w.instances) {
				frame.Self = w.instances[w.next]
				w.next++
				frame.IP -= offset
				continue
			}
			frame.popWith()

		case chunk.OP_WITH_POP:
			frame.popWith()

		default:
			return value.Undefined, vm.fail(frame, start, Errorf(Other, "unknown opcode %d", instruction))
		}
	}
}

func (f *CallFrame) popWith() {
	w := f.withs[len(f.withs)-1]
	f.withs = f.withs[:len(f.withs)-1]
	f.Self = w.self
	f.Other = w.other
}

// fail positions err at the instruction starting at offset. Errors that
// already carry a unit came from a nested Execute and keep their location.
func (vm *VM) fail(frame *CallFrame, offset int, err error) error {
	var rerr *RuntimeError
	if !errors.As(err, &rerr) {
		rerr = &RuntimeError{Kind: Other, Message: err.Error()}
	}
	if rerr.Unit == "" {
		pos := frame.Chunk.PositionAt(offset)
		rerr.Unit = frame.Chunk.Name
		rerr.Line = pos.Line
		rerr.Column = pos.Column
	}
	return rerr
}

func (vm *VM) push(v value.Value) {
	vm.stack = append(vm.stack, v)
}

func (vm *VM) pop() value.Value {
	v := vm.stack[len(vm.stack)-1]
	vm.stack = vm.stack[:len(vm.stack)-1]
	return v
}

func condition(v value.Value) (bool, error) {
	f, ok := v.Number()
	if !ok {
		return false, Errorf(TypeUnary, "condition must be a real, got %s", v.TypeName())
	}
	return value.ToBool(f), nil
}

func toIndex(v value.Value) (int, error) {
	f, ok := v.Number()
	if !ok {
		return 0, Errorf(TypeUnary, "array index must be a real, got %s", v.TypeName())
	}
	return int(value.ToInt32(f)), nil
}

// popIndices pops the index operands of an access. One index addresses
// [0, i]; two address [i, j].
func (vm *VM) popIndices(dims int) (int, int, error) {
	switch dims {
	case 0:
		return 0, 0, nil
	case 1:
		j, err := toIndex(vm.pop())
		return 0, j, err
	default:
		j, err := toIndex(vm.pop())
		if err != nil {
			return 0, 0, err
		}
		i, err := toIndex(vm.pop())
		return i, j, err
	}
}

func readArray(arr *value.Array, name string, dims, i, j int) (value.Value, error) {
	if arr == nil {
		if dims == 0 {
			return value.Undefined, nil
		}
		return value.Undefined, Errorf(Bounds, "index [%d, %d] is out of bounds for '%s'", i, j, name)
	}
	v, ok := arr.Get(i, j)
	if !ok {
		return value.Undefined, Errorf(Bounds, "index [%d, %d] is out of bounds for '%s'", i, j, name)
	}
	return v, nil
}

func (vm *VM) checkWrite(name string, i, j int) error {
	limit := vm.cfg.MaxArrayIndex
	if i < 0 || j < 0 || i >= limit || j >= limit {
		return Errorf(Bounds, "index [%d, %d] is out of bounds for '%s'", i, j, name)
	}
	return nil
}

// resolveScope turns a target value into instances. global reports the
// global scope, which has no instances.
func (vm *VM) resolveScope(frame *CallFrame, target value.Value) (instances []Instance, global bool, err error) {
	f, ok := target.Number()
	if !ok {
		return nil, false, Errorf(Scope, "%s is not an instance or object", target.TypeName())
	}
	switch value.ToInt32(f) {
	case builtin.ScopeSelf:
		if frame.Self == nil {
			return nil, false, Errorf(Scope, "there is no self instance")
		}
		return []Instance{frame.Self}, false, nil
	case builtin.ScopeOther:
		if frame.Other == nil {
			return nil, false, Errorf(Scope, "there is no other instance")
		}
		return []Instance{frame.Other}, false, nil
	case builtin.ScopeGlobal:
		return nil, true, nil
	case builtin.ScopeNoone:
		return nil, false, nil
	case builtin.ScopeLocal:
		return nil, false, Errorf(Scope, "the local scope cannot be addressed")
	}
	return vm.host.Lookup(f), false, nil
}

// namespaces resolves the field tables an access touches. Reads use the
// first; writes go to all of them.
func (vm *VM) namespaces(frame *CallFrame, mode byte, target value.Value) ([]*value.Namespace, error) {
	switch mode {
	case chunk.ModeSelf:
		if frame.Self == nil {
			return nil, Errorf(Scope, "there is no self instance")
		}
		return []*value.Namespace{frame.Self.Fields()}, nil
	case chunk.ModeOther:
		if frame.Other == nil {
			return nil, Errorf(Scope, "there is no other instance")
		}
		return []*value.Namespace{frame.Other.Fields()}, nil
	case chunk.ModeGlobal:
		return []*value.Namespace{vm.host.Globals()}, nil
	}

	instances, global, err := vm.resolveScope(frame, target)
	if err != nil {
		return nil, err
	}
	if global {
		return []*value.Namespace{vm.host.Globals()}, nil
	}
	out := make([]*value.Namespace, len(instances))
	for i, inst := range instances {
		out[i] = inst.Fields()
	}
	return out, nil
}

func (vm *VM) getField(frame *CallFrame, mode byte, name string, dims int) (value.Value, error) {
	i, j, err := vm.popIndices(dims)
	if err != nil {
		return value.Undefined, err
	}
	var target value.Value
	if mode == chunk.ModeTarget {
		target = vm.pop()
	}
	nss, err := vm.namespaces(frame, mode, target)
	if err != nil {
		return value.Undefined, err
	}
	if len(nss) == 0 {
		return value.Undefined, Errorf(Scope, "no instance of %s to read '%s' from", target, name)
	}
	arr, _ := nss[0].Lookup(name)
	return readArray(arr, name, dims, i, j)
}

func (vm *VM) setField(frame *CallFrame, mode byte, name string, dims int) error {
	v := vm.pop()
	i, j, err := vm.popIndices(dims)
	if err != nil {
		return err
	}
	var target value.Value
	if mode == chunk.ModeTarget {
		target = vm.pop()
	}
	if err := vm.checkWrite(name, i, j); err != nil {
		return err
	}
	nss, err := vm.namespaces(frame, mode, target)
	if err != nil {
		return err
	}
	for _, ns := range nss {
		ns.Ensure(name).Set(i, j, v)
	}
	return nil
}

// builtinTargets resolves the instances an instance-owned built-in access
// touches.
func (vm *VM) builtinTargets(frame *CallFrame, mode byte, target value.Value, name string) ([]Instance, error) {
	switch mode {
	case chunk.ModeSelf:
		if frame.Self == nil {
			return nil, Errorf(Scope, "there is no self instance")
		}
		return []Instance{frame.Self}, nil
	case chunk.ModeOther:
		if frame.Other == nil {
			return nil, Errorf(Scope, "there is no other instance")
		}
		return []Instance{frame.Other}, nil
	case chunk.ModeTarget:
		instances, global, err := vm.resolveScope(frame, target)
		if err != nil {
			return nil, err
		}
		if global {
			return nil, Errorf(Scope, "built-in variable '%s' needs an instance", name)
		}
		return instances, nil
	}
	return nil, Errorf(Scope, "built-in variable '%s' needs an instance", name)
}

func (vm *VM) getBuiltin(frame *CallFrame, mode byte, variable int, dims int) (value.Value, error) {
	_, index, err := vm.popIndices(dims)
	if err != nil {
		return value.Undefined, err
	}
	var target value.Value
	if mode == chunk.ModeTarget {
		target = vm.pop()
	}

	v := builtin.VariableAt(variable)
	switch v.Owner {
	case builtin.OwnerArgument:
		return getArgument(frame, variable, index)
	case builtin.OwnerGlobal:
		return vm.host.GetBuiltin(frame.Self, variable, index)
	}

	instances, err := vm.builtinTargets(frame, mode, target, v.Name)
	if err != nil {
		return value.Undefined, err
	}
	if len(instances) == 0 {
		return value.Undefined, Errorf(Scope, "no instance of %s to read '%s' from", target, v.Name)
	}
	return vm.host.GetBuiltin(instances[0], variable, index)
}

func (vm *VM) setBuiltin(frame *CallFrame, mode byte, variable int, dims int) error {
	val := vm.pop()
	_, index, err := vm.popIndices(dims)
	if err != nil {
		return err
	}
	var target value.Value
	if mode == chunk.ModeTarget {
		target = vm.pop()
	}

	v := builtin.VariableAt(variable)
	if v.ReadOnly {
		return Errorf(Write, "variable '%s' is read-only", v.Name)
	}
	switch v.Owner {
	case builtin.OwnerArgument:
		return setArgument(frame, variable, index, val)
	case builtin.OwnerGlobal:
		return vm.host.SetBuiltin(frame.Self, variable, index, val)
	}

	instances, err := vm.builtinTargets(frame, mode, target, v.Name)
	if err != nil {
		return err
	}
	for _, inst := range instances {
		if err := vm.host.SetBuiltin(inst, variable, index, val); err != nil {
			return err
		}
	}
	return nil
}

func argumentSlot(variable, index int) (int, error) {
	n := index
	if i, ok := builtin.ArgumentIndex(variable); ok {
		n = i
	}
	if n < 0 || n >= builtin.MaxArguments {
		return 0, Errorf(Bounds, "argument index %d is out of range", n)
	}
	return n, nil
}

func getArgument(frame *CallFrame, variable, index int) (value.Value, error) {
	if variable == builtin.VarArgumentCount {
		return value.NewInt(len(frame.Args)), nil
	}
	n, err := argumentSlot(variable, index)
	if err != nil {
		return value.Undefined, err
	}
	if n >= len(frame.Args) {
		return value.NewReal(0), nil
	}
	return frame.Args[n], nil
}

func setArgument(frame *CallFrame, variable, index int, v value.Value) error {
	n, err := argumentSlot(variable, index)
	if err != nil {
		return err
	}
	for len(frame.Args) <= n {
		frame.Args = append(frame.Args, value.NewReal(0))
	}
	frame.Args[n] = v
	return nil
}

// withTargets resolves the instances a with-statement visits.
func (vm *VM) withTargets(frame *CallFrame, target value.Value) ([]Instance, error) {
	instances, global, err := vm.resolveScope(frame, target)
	if err != nil {
		return nil, err
	}
	if global {
		return nil, Errorf(Scope, "with cannot iterate the global scope")
	}
	active := instances[:0:0]
	for _, inst := range instances {
		if inst.Active() {
			active = append(active, inst)
		}
	}
	return active, nil
}

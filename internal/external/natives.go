package external

import (
	"gml-vm/internal/builtin"
	"gml-vm/internal/value"
	"gml-vm/internal/vm"

	"github.com/go-errors/errors"
)

// Register defines external_define, external_call and external_free.
func (r *Registry) Register(t *vm.NativeTable) {
	t.Define("external_define", -1, func(_ *vm.Context, args []value.Value) (value.Value, error) {
		const name = "external_define"
		if len(args) < 5 {
			return value.Undefined, vm.Errorf(vm.Arity, "%s expects at least 5 arguments, got %d", name, len(args))
		}
		dll, err := vm.String(name, args, 0)
		if err != nil {
			return value.Undefined, err
		}
		fn, err := vm.String(name, args, 1)
		if err != nil {
			return value.Undefined, err
		}
		ints := make([]int, 3)
		for i := range ints {
			if ints[i], err = vm.Int(name, args, i+2); err != nil {
				return value.Undefined, err
			}
		}
		calltype, restype, argnumb := ints[0], ints[1], ints[2]
		if argnumb != len(args)-5 {
			return value.Undefined, vm.Errorf(vm.Arity, "%s: %s declares %d arguments but lists %d types", name, fn, argnumb, len(args)-5)
		}
		argTypes := make([]int, argnumb)
		for i := range argTypes {
			if argTypes[i], err = vm.Int(name, args, i+5); err != nil {
				return value.Undefined, err
			}
		}

		id, err := r.Define(dll, fn, calltype, restype, argTypes)
		if err != nil {
			return value.Undefined, vm.Errorf(vm.Other, "%s: %v", name, err)
		}
		return value.NewInt(id), nil
	})

	t.Define("external_call", -1, func(_ *vm.Context, args []value.Value) (value.Value, error) {
		const name = "external_call"
		if len(args) < 1 {
			return value.Undefined, vm.Errorf(vm.Arity, "%s expects at least 1 argument, got 0", name)
		}
		id, err := vm.Int(name, args, 0)
		if err != nil {
			return value.Undefined, err
		}

		r.mu.Lock()
		fn, ok := r.functions[id]
		r.mu.Unlock()
		if !ok {
			return value.Undefined, vm.Errorf(vm.Resource, "the external function with id %d does not exist", id)
		}

		callArgs := make([]Arg, len(args)-1)
		if len(callArgs) != len(fn.argTypes) {
			return value.Undefined, vm.Errorf(vm.Arity, "%s: %s expects %d arguments, got %d", name, fn.name, len(fn.argTypes), len(callArgs))
		}
		for i := range callArgs {
			if fn.argTypes[i] == builtin.TyString {
				callArgs[i].String, err = vm.String(name, args, i+1)
			} else {
				callArgs[i].Real, err = vm.Real(name, args, i+1)
			}
			if err != nil {
				return value.Undefined, err
			}
		}

		result, err := r.Call(id, callArgs)
		switch {
		case errors.Is(err, ErrUndefined):
			return value.Undefined, vm.Errorf(vm.Resource, "the external function with id %d does not exist", id)
		case err != nil:
			return value.Undefined, vm.Errorf(vm.Other, "%s: %s: %v", name, fn.name, err)
		}
		if fn.resType == builtin.TyString {
			return value.NewString(result.String), nil
		}
		return value.NewReal(result.Real), nil
	})

	t.Define("external_free", 1, func(_ *vm.Context, args []value.Value) (value.Value, error) {
		dll, err := vm.String("external_free", args, 0)
		if err != nil {
			return value.Undefined, err
		}
		if err := r.Free(dll); err != nil {
			r.logger.Warn("plugin did not exit cleanly", "dll", dll, "error", err)
		}
		return value.Undefined, nil
	})
}

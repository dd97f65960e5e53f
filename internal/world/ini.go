package world

import (
	"strconv"
	"strings"

	"gml-vm/internal/value"
	"gml-vm/internal/vm"
)

// iniArgs reads the leading string arguments of an ini function and checks
// that a file is open.
func (w *World) iniArgs(name string, args []value.Value, n int) ([]string, error) {
	if w.iniFile == "" {
		return nil, vm.Errorf(vm.Other, "%s: no INI file is open", name)
	}
	out := make([]string, n)
	for i := range out {
		s, err := vm.String(name, args, i)
		if err != nil {
			return nil, err
		}
		out[i] = s
	}
	return out, nil
}

func storeError(name string, err error) error {
	return vm.Errorf(vm.Other, "%s: %v", name, err)
}

func (w *World) registerINI(t *vm.NativeTable) {
	t.Define("ini_open", 1, func(ctx *vm.Context, args []value.Value) (value.Value, error) {
		file, err := vm.String("ini_open", args, 0)
		if err != nil {
			return value.Undefined, err
		}
		if file == "" {
			return value.Undefined, vm.Errorf(vm.Other, "ini_open: empty file name")
		}
		w.iniFile = file
		w.logger.Trace("ini opened", "file", file)
		return value.Undefined, nil
	})

	t.Define("ini_close", 0, func(ctx *vm.Context, args []value.Value) (value.Value, error) {
		w.iniFile = ""
		return value.Undefined, nil
	})

	t.Define("ini_read_string", 3, func(ctx *vm.Context, args []value.Value) (value.Value, error) {
		s, err := w.iniArgs("ini_read_string", args, 3)
		if err != nil {
			return value.Undefined, err
		}
		v, ok, err := w.store.Read(w.ctx, w.iniFile, s[0], s[1])
		if err != nil {
			return value.Undefined, storeError("ini_read_string", err)
		}
		if !ok {
			return value.NewString(s[2]), nil
		}
		return value.NewString(v), nil
	})

	t.Define("ini_read_real", 3, func(ctx *vm.Context, args []value.Value) (value.Value, error) {
		s, err := w.iniArgs("ini_read_real", args, 2)
		if err != nil {
			return value.Undefined, err
		}
		def, err := vm.Real("ini_read_real", args, 2)
		if err != nil {
			return value.Undefined, err
		}
		v, ok, err := w.store.Read(w.ctx, w.iniFile, s[0], s[1])
		if err != nil {
			return value.Undefined, storeError("ini_read_real", err)
		}
		if !ok {
			return value.NewReal(def), nil
		}
		f, err := strconv.ParseFloat(strings.TrimSpace(v), 64)
		if err != nil {
			return value.NewReal(0), nil
		}
		return value.NewReal(f), nil
	})

	t.Define("ini_write_string", 3, func(ctx *vm.Context, args []value.Value) (value.Value, error) {
		s, err := w.iniArgs("ini_write_string", args, 3)
		if err != nil {
			return value.Undefined, err
		}
		if err := w.store.Write(w.ctx, w.iniFile, s[0], s[1], s[2]); err != nil {
			return value.Undefined, storeError("ini_write_string", err)
		}
		return value.Undefined, nil
	})

	t.Define("ini_write_real", 3, func(ctx *vm.Context, args []value.Value) (value.Value, error) {
		s, err := w.iniArgs("ini_write_real", args, 2)
		if err != nil {
			return value.Undefined, err
		}
		f, err := vm.Real("ini_write_real", args, 2)
		if err != nil {
			return value.Undefined, err
		}
		if err := w.store.Write(w.ctx, w.iniFile, s[0], s[1], strconv.FormatFloat(f, 'f', -1, 64)); err != nil {
			return value.Undefined, storeError("ini_write_real", err)
		}
		return value.Undefined, nil
	})

	t.Define("ini_key_exists", 2, func(ctx *vm.Context, args []value.Value) (value.Value, error) {
		s, err := w.iniArgs("ini_key_exists", args, 2)
		if err != nil {
			return value.Undefined, err
		}
		_, ok, err := w.store.Read(w.ctx, w.iniFile, s[0], s[1])
		if err != nil {
			return value.Undefined, storeError("ini_key_exists", err)
		}
		return value.NewBool(ok), nil
	})

	t.Define("ini_section_exists", 1, func(ctx *vm.Context, args []value.Value) (value.Value, error) {
		s, err := w.iniArgs("ini_section_exists", args, 1)
		if err != nil {
			return value.Undefined, err
		}
		ok, err := w.store.SectionExists(w.ctx, w.iniFile, s[0])
		if err != nil {
			return value.Undefined, storeError("ini_section_exists", err)
		}
		return value.NewBool(ok), nil
	})

	t.Define("ini_key_delete", 2, func(ctx *vm.Context, args []value.Value) (value.Value, error) {
		s, err := w.iniArgs("ini_key_delete", args, 2)
		if err != nil {
			return value.Undefined, err
		}
		if err := w.store.DeleteKey(w.ctx, w.iniFile, s[0], s[1]); err != nil {
			return value.Undefined, storeError("ini_key_delete", err)
		}
		return value.Undefined, nil
	})

	t.Define("ini_section_delete", 1, func(ctx *vm.Context, args []value.Value) (value.Value, error) {
		s, err := w.iniArgs("ini_section_delete", args, 1)
		if err != nil {
			return value.Undefined, err
		}
		if err := w.store.DeleteSection(w.ctx, w.iniFile, s[0]); err != nil {
			return value.Undefined, storeError("ini_section_delete", err)
		}
		return value.Undefined, nil
	})
}

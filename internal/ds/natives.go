package ds

import (
	"gml-vm/internal/value"
	"gml-vm/internal/vm"
)

// handle reads argument i as a resource id of the given kind. Plain reals
// are accepted since legacy code stores handles in ordinary variables.
func handle(name string, kind value.ResourceKind, args []value.Value, i int) (int, error) {
	v := args[i]
	if v.Type == value.VAL_HANDLE && v.Kind != kind {
		return 0, vm.Errorf(vm.Resource, "%s: expected a %s, got %s %s", name, kind, v.Kind, v)
	}
	return vm.Int(name, args, i)
}

func ints(name string, args []value.Value, from, n int) ([]int, error) {
	out := make([]int, n)
	for k := range out {
		x, err := vm.Int(name, args, from+k)
		if err != nil {
			return nil, err
		}
		out[k] = x
	}
	return out, nil
}

var zero = value.NewReal(0)

// Register defines the ds_* natives against s.
func (s *State) Register(t *vm.NativeTable) {
	s.registerLists(t)
	s.registerMaps(t)
	s.registerGrids(t)
}

func (s *State) registerLists(t *vm.NativeTable) {
	list := func(name string, args []value.Value) (int, error) {
		return handle(name, value.KindList, args, 0)
	}

	t.Define("ds_list_create", 0, func(ctx *vm.Context, args []value.Value) (value.Value, error) {
		return value.NewHandle(value.KindList, s.ListCreate()), nil
	})
	t.Define("ds_list_destroy", 1, func(ctx *vm.Context, args []value.Value) (value.Value, error) {
		id, err := list("ds_list_destroy", args)
		if err != nil {
			return zero, err
		}
		return zero, s.ListDestroy(id)
	})
	t.Define("ds_list_clear", 1, func(ctx *vm.Context, args []value.Value) (value.Value, error) {
		id, err := list("ds_list_clear", args)
		if err != nil {
			return zero, err
		}
		return zero, s.ListClear(id)
	})
	t.Define("ds_list_size", 1, func(ctx *vm.Context, args []value.Value) (value.Value, error) {
		id, err := list("ds_list_size", args)
		if err != nil {
			return zero, err
		}
		n, err := s.ListSize(id)
		return value.NewInt(n), err
	})
	t.Define("ds_list_empty", 1, func(ctx *vm.Context, args []value.Value) (value.Value, error) {
		id, err := list("ds_list_empty", args)
		if err != nil {
			return zero, err
		}
		n, err := s.ListSize(id)
		return value.NewBool(n == 0), err
	})
	t.Define("ds_list_add", -1, func(ctx *vm.Context, args []value.Value) (value.Value, error) {
		if len(args) < 2 {
			return zero, vm.Errorf(vm.Arity, "ds_list_add takes a list and at least one value, got %d arguments", len(args))
		}
		id, err := list("ds_list_add", args)
		if err != nil {
			return zero, err
		}
		return zero, s.ListAdd(id, args[1:]...)
	})
	t.Define("ds_list_delete", 2, func(ctx *vm.Context, args []value.Value) (value.Value, error) {
		id, err := list("ds_list_delete", args)
		if err != nil {
			return zero, err
		}
		pos, err := vm.Int("ds_list_delete", args, 1)
		if err != nil {
			return zero, err
		}
		return zero, s.ListDelete(id, pos)
	})
	t.Define("ds_list_find_index", 2, func(ctx *vm.Context, args []value.Value) (value.Value, error) {
		id, err := list("ds_list_find_index", args)
		if err != nil {
			return zero, err
		}
		pos, err := s.ListFindIndex(id, args[1])
		return value.NewInt(pos), err
	})
	t.Define("ds_list_find_value", 2, func(ctx *vm.Context, args []value.Value) (value.Value, error) {
		id, err := list("ds_list_find_value", args)
		if err != nil {
			return zero, err
		}
		pos, err := vm.Int("ds_list_find_value", args, 1)
		if err != nil {
			return zero, err
		}
		return s.ListFindValue(id, pos)
	})
	t.Define("ds_list_insert", 3, func(ctx *vm.Context, args []value.Value) (value.Value, error) {
		id, err := list("ds_list_insert", args)
		if err != nil {
			return zero, err
		}
		pos, err := vm.Int("ds_list_insert", args, 1)
		if err != nil {
			return zero, err
		}
		return zero, s.ListInsert(id, pos, args[2])
	})
	t.Define("ds_list_replace", 3, func(ctx *vm.Context, args []value.Value) (value.Value, error) {
		id, err := list("ds_list_replace", args)
		if err != nil {
			return zero, err
		}
		pos, err := vm.Int("ds_list_replace", args, 1)
		if err != nil {
			return zero, err
		}
		return zero, s.ListReplace(id, pos, args[2])
	})
}

func (s *State) registerMaps(t *vm.NativeTable) {
	m := func(name string, args []value.Value) (int, error) {
		return handle(name, value.KindMap, args, 0)
	}
	// keyed wraps the natives of shape fn(map, key) -> value.
	keyed := func(name string, fn func(id int, key value.Value) (value.Value, error)) {
		t.Define(name, 2, func(ctx *vm.Context, args []value.Value) (value.Value, error) {
			id, err := m(name, args)
			if err != nil {
				return zero, err
			}
			return fn(id, args[1])
		})
	}
	// whole wraps the natives of shape fn(map) -> value.
	whole := func(name string, fn func(id int) (value.Value, error)) {
		t.Define(name, 1, func(ctx *vm.Context, args []value.Value) (value.Value, error) {
			id, err := m(name, args)
			if err != nil {
				return zero, err
			}
			return fn(id)
		})
	}

	t.Define("ds_map_create", 0, func(ctx *vm.Context, args []value.Value) (value.Value, error) {
		return value.NewHandle(value.KindMap, s.MapCreate()), nil
	})
	whole("ds_map_destroy", func(id int) (value.Value, error) {
		return zero, s.MapDestroy(id)
	})
	whole("ds_map_clear", func(id int) (value.Value, error) {
		return zero, s.MapClear(id)
	})
	whole("ds_map_size", func(id int) (value.Value, error) {
		n, err := s.MapSize(id)
		return value.NewInt(n), err
	})
	whole("ds_map_empty", func(id int) (value.Value, error) {
		n, err := s.MapSize(id)
		return value.NewBool(n == 0), err
	})
	whole("ds_map_find_first", s.MapFindFirst)
	whole("ds_map_find_last", s.MapFindLast)

	t.Define("ds_map_add", 3, func(ctx *vm.Context, args []value.Value) (value.Value, error) {
		id, err := m("ds_map_add", args)
		if err != nil {
			return zero, err
		}
		return zero, s.MapAdd(id, args[1], args[2])
	})
	t.Define("ds_map_replace", 3, func(ctx *vm.Context, args []value.Value) (value.Value, error) {
		id, err := m("ds_map_replace", args)
		if err != nil {
			return zero, err
		}
		return zero, s.MapReplace(id, args[1], args[2])
	})
	keyed("ds_map_delete", func(id int, key value.Value) (value.Value, error) {
		return zero, s.MapDelete(id, key)
	})
	keyed("ds_map_exists", func(id int, key value.Value) (value.Value, error) {
		ok, err := s.MapExists(id, key)
		return value.NewBool(ok), err
	})
	keyed("ds_map_find_value", s.MapFindValue)
	keyed("ds_map_find_next", s.MapFindNext)
	keyed("ds_map_find_previous", s.MapFindPrevious)
}

func (s *State) registerGrids(t *vm.NativeTable) {
	g := func(name string, args []value.Value) (int, error) {
		return handle(name, value.KindGrid, args, 0)
	}

	t.Define("ds_grid_create", 2, func(ctx *vm.Context, args []value.Value) (value.Value, error) {
		wh, err := ints("ds_grid_create", args, 0, 2)
		if err != nil {
			return zero, err
		}
		id, err := s.GridCreate(wh[0], wh[1])
		if err != nil {
			return zero, err
		}
		return value.NewHandle(value.KindGrid, id), nil
	})
	t.Define("ds_grid_destroy", 1, func(ctx *vm.Context, args []value.Value) (value.Value, error) {
		id, err := g("ds_grid_destroy", args)
		if err != nil {
			return zero, err
		}
		return zero, s.GridDestroy(id)
	})
	t.Define("ds_grid_resize", 3, func(ctx *vm.Context, args []value.Value) (value.Value, error) {
		id, err := g("ds_grid_resize", args)
		if err != nil {
			return zero, err
		}
		wh, err := ints("ds_grid_resize", args, 1, 2)
		if err != nil {
			return zero, err
		}
		return zero, s.GridResize(id, wh[0], wh[1])
	})
	t.Define("ds_grid_width", 1, func(ctx *vm.Context, args []value.Value) (value.Value, error) {
		id, err := g("ds_grid_width", args)
		if err != nil {
			return zero, err
		}
		w, err := s.GridWidth(id)
		return value.NewInt(w), err
	})
	t.Define("ds_grid_height", 1, func(ctx *vm.Context, args []value.Value) (value.Value, error) {
		id, err := g("ds_grid_height", args)
		if err != nil {
			return zero, err
		}
		h, err := s.GridHeight(id)
		return value.NewInt(h), err
	})
	t.Define("ds_grid_clear", 2, func(ctx *vm.Context, args []value.Value) (value.Value, error) {
		id, err := g("ds_grid_clear", args)
		if err != nil {
			return zero, err
		}
		return zero, s.GridClear(id, args[1])
	})
	t.Define("ds_grid_set", 4, func(ctx *vm.Context, args []value.Value) (value.Value, error) {
		id, err := g("ds_grid_set", args)
		if err != nil {
			return zero, err
		}
		xy, err := ints("ds_grid_set", args, 1, 2)
		if err != nil {
			return zero, err
		}
		return zero, s.GridSet(id, xy[0], xy[1], args[3])
	})
	t.Define("ds_grid_get", 3, func(ctx *vm.Context, args []value.Value) (value.Value, error) {
		id, err := g("ds_grid_get", args)
		if err != nil {
			return zero, err
		}
		xy, err := ints("ds_grid_get", args, 1, 2)
		if err != nil {
			return zero, err
		}
		return s.GridGet(id, xy[0], xy[1])
	})
}

package ds

import (
	"testing"

	"gml-vm/internal/compiler"
	"gml-vm/internal/parser"
	"gml-vm/internal/value"
	"gml-vm/internal/vm"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHandlesAreNeverReused(t *testing.T) {
	s := New(0)

	a := s.ListCreate()
	b := s.ListCreate()
	assert.Equal(t, 0, a)
	assert.Equal(t, 1, b)

	require.NoError(t, s.ListDestroy(a))
	c := s.ListCreate()
	assert.Equal(t, 2, c)

	// kinds count independently
	assert.Equal(t, 0, s.MapCreate())
	g, err := s.GridCreate(1, 1)
	require.NoError(t, err)
	assert.Equal(t, 0, g)

	err = s.ListAdd(a, value.NewReal(1))
	require.Error(t, err)
	assert.Equal(t, "Resource error: the list with id 0 does not exist", err.Error())

	assert.Error(t, s.ListDestroy(a))
	assert.Equal(t, 2, s.Live(value.KindList))
}

func TestList(t *testing.T) {
	s := New(0)
	l := s.ListCreate()

	require.NoError(t, s.ListAdd(l, value.NewReal(10), value.NewString("b"), value.NewReal(30)))
	n, _ := s.ListSize(l)
	assert.Equal(t, 3, n)

	pos, _ := s.ListFindIndex(l, value.NewString("b"))
	assert.Equal(t, 1, pos)
	pos, _ = s.ListFindIndex(l, value.NewString("10"))
	assert.Equal(t, -1, pos)

	require.NoError(t, s.ListInsert(l, 0, value.NewReal(5)))
	require.NoError(t, s.ListInsert(l, 4, value.NewReal(40)))
	require.NoError(t, s.ListInsert(l, 9, value.NewReal(99)))
	require.NoError(t, s.ListReplace(l, 2, value.NewString("c")))
	require.NoError(t, s.ListReplace(l, 7, value.NewString("ignored")))
	require.NoError(t, s.ListDelete(l, 1))
	require.NoError(t, s.ListDelete(l, -1))

	var got []string
	n, _ = s.ListSize(l)
	for i := 0; i < n; i++ {
		v, err := s.ListFindValue(l, i)
		require.NoError(t, err)
		got = append(got, v.String())
	}
	assert.Equal(t, []string{"5", "c", "30", "40"}, got)

	v, err := s.ListFindValue(l, 100)
	require.NoError(t, err)
	assert.Equal(t, value.NewReal(0), v)

	require.NoError(t, s.ListClear(l))
	n, _ = s.ListSize(l)
	assert.Equal(t, 0, n)
}

func TestMapOrdering(t *testing.T) {
	s := New(0)
	m := s.MapCreate()

	for _, k := range []value.Value{
		value.NewString("beta"),
		value.NewReal(10),
		value.NewString("alpha"),
		value.NewReal(-2),
		value.NewString("10"),
	} {
		require.NoError(t, s.MapAdd(m, k, value.NewString("v"+k.String())))
	}

	var keys []string
	k, err := s.MapFindFirst(m)
	require.NoError(t, err)
	for i := 0; i < 5; i++ {
		keys = append(keys, k.String())
		k, err = s.MapFindNext(m, k)
		require.NoError(t, err)
	}
	assert.Equal(t, []string{"-2", "10", "10", "alpha", "beta"}, keys)
	assert.Equal(t, value.NewReal(0), k)

	last, _ := s.MapFindLast(m)
	assert.Equal(t, value.NewString("beta"), last)
	prev, _ := s.MapFindPrevious(m, value.NewString("alpha"))
	assert.Equal(t, value.NewString("10"), prev)
	prev, _ = s.MapFindPrevious(m, value.NewString("10"))
	assert.Equal(t, value.NewReal(10), prev)
	prev, _ = s.MapFindPrevious(m, value.NewReal(-2))
	assert.Equal(t, value.NewReal(0), prev)

	// the next key after an absent one is the first key above it
	next, _ := s.MapFindNext(m, value.NewReal(0))
	assert.Equal(t, value.NewReal(10), next)
}

func TestMapOperations(t *testing.T) {
	s := New(0)
	m := s.MapCreate()

	require.NoError(t, s.MapAdd(m, value.NewString("hp"), value.NewReal(3)))
	err := s.MapAdd(m, value.NewString("hp"), value.NewReal(4))
	require.Error(t, err)
	assert.Contains(t, err.Error(), `key "hp" already exists`)

	require.NoError(t, s.MapReplace(m, value.NewString("hp"), value.NewReal(5)))
	require.NoError(t, s.MapReplace(m, value.NewString("mp"), value.NewReal(1)))

	v, _ := s.MapFindValue(m, value.NewString("hp"))
	assert.Equal(t, value.NewReal(5), v)
	v, _ = s.MapFindValue(m, value.NewString("mp"))
	assert.Equal(t, value.NewReal(0), v)

	ok, _ := s.MapExists(m, value.NewString("mp"))
	assert.False(t, ok)

	// a handle key is its id
	require.NoError(t, s.MapAdd(m, value.NewHandle(value.KindList, 7), value.NewString("list")))
	v, _ = s.MapFindValue(m, value.NewReal(7))
	assert.Equal(t, value.NewString("list"), v)

	require.NoError(t, s.MapDelete(m, value.NewString("hp")))
	n, _ := s.MapSize(m)
	assert.Equal(t, 1, n)

	require.NoError(t, s.MapClear(m))
	n, _ = s.MapSize(m)
	assert.Equal(t, 0, n)

	assert.Error(t, s.MapAdd(m, value.Undefined, value.NewReal(1)))
}

func TestGrid(t *testing.T) {
	s := New(0)
	g, err := s.GridCreate(3, 2)
	require.NoError(t, err)

	require.NoError(t, s.GridSet(g, 2, 1, value.NewString("corner")))
	require.NoError(t, s.GridSet(g, 3, 0, value.NewString("outside")))
	require.NoError(t, s.GridSet(g, 0, 0, value.NewReal(9)))

	v, _ := s.GridGet(g, 1, 1)
	assert.Equal(t, value.NewReal(0), v)
	v, _ = s.GridGet(g, 2, 1)
	assert.Equal(t, value.NewString("corner"), v)
	v, _ = s.GridGet(g, -1, 0)
	assert.Equal(t, value.NewReal(0), v)

	require.NoError(t, s.GridResize(g, 2, 4))
	w, _ := s.GridWidth(g)
	h, _ := s.GridHeight(g)
	assert.Equal(t, 2, w)
	assert.Equal(t, 4, h)
	v, _ = s.GridGet(g, 0, 0)
	assert.Equal(t, value.NewReal(9), v)
	v, _ = s.GridGet(g, 2, 1)
	assert.Equal(t, value.NewReal(0), v)

	require.NoError(t, s.GridClear(g, value.NewString("x")))
	v, _ = s.GridGet(g, 1, 3)
	assert.Equal(t, value.NewString("x"), v)

	require.NoError(t, s.GridDestroy(g))
	_, err = s.GridGet(g, 0, 0)
	assert.EqualError(t, err, "Resource error: the grid with id 0 does not exist")
}

func TestGridSizeLimit(t *testing.T) {
	s := New(100)

	_, err := s.GridCreate(2147483647, 2147483647)
	require.Error(t, err)
	assert.Equal(t, vm.Bounds, err.(*vm.RuntimeError).Kind)

	_, err = s.GridCreate(11, 10)
	assert.EqualError(t, err, "Bounds error: a 11x10 grid exceeds the limit of 100 cells")
	assert.Equal(t, 0, s.Live(value.KindGrid))

	g, err := s.GridCreate(10, 10)
	require.NoError(t, err)
	require.NoError(t, s.GridSet(g, 9, 9, value.NewReal(1)))

	err = s.GridResize(g, 1000, 1000)
	require.Error(t, err)
	assert.Equal(t, vm.Bounds, err.(*vm.RuntimeError).Kind)
	w, _ := s.GridWidth(g)
	assert.Equal(t, 10, w)
	v, _ := s.GridGet(g, 9, 9)
	assert.Equal(t, value.NewReal(1), v)

	// negative sizes clamp to an empty grid
	g, err = s.GridCreate(-5, 3)
	require.NoError(t, err)
	w, _ = s.GridWidth(g)
	assert.Equal(t, 0, w)
}

func TestMapKeysMustBeDefined(t *testing.T) {
	s := New(0)
	m := s.MapCreate()
	require.NoError(t, s.MapAdd(m, value.NewString(""), value.NewReal(7)))

	checks := map[string]func() error{
		"add":     func() error { return s.MapAdd(m, value.Undefined, value.NewReal(1)) },
		"replace": func() error { return s.MapReplace(m, value.Undefined, value.NewReal(1)) },
		"delete":  func() error { return s.MapDelete(m, value.Undefined) },
		"exists": func() error {
			_, err := s.MapExists(m, value.Undefined)
			return err
		},
		"find_value": func() error {
			_, err := s.MapFindValue(m, value.Undefined)
			return err
		},
		"find_next": func() error {
			_, err := s.MapFindNext(m, value.Undefined)
			return err
		},
		"find_previous": func() error {
			_, err := s.MapFindPrevious(m, value.Undefined)
			return err
		},
	}
	for name, check := range checks {
		err := check()
		require.Error(t, err, name)
		rerr, ok := err.(*vm.RuntimeError)
		require.True(t, ok, name)
		assert.Equal(t, vm.TypeUnary, rerr.Kind, name)
	}

	// the empty string key is untouched
	v, err := s.MapFindValue(m, value.NewString(""))
	require.NoError(t, err)
	assert.Equal(t, value.NewReal(7), v)
	n, _ := s.MapSize(m)
	assert.Equal(t, 1, n)
}

// runScript executes source with the ds natives and a capture native.
func runScript(t *testing.T, src string) ([]value.Value, error) {
	t.Helper()
	program, err := parser.Parse(src)
	require.NoError(t, err)
	unit, err := compiler.Compile(program, compiler.Options{Unit: "ds"})
	require.NoError(t, err)

	var reported []value.Value
	natives := vm.NewNativeTable()
	New(0).Register(natives)
	natives.Define("test_report", -1, func(ctx *vm.Context, args []value.Value) (value.Value, error) {
		reported = append(reported, args...)
		return value.NewReal(0), nil
	})
	machine := vm.New(vm.DefaultConfig(), nil, natives)
	_, err = machine.Execute(unit, nil, nil)
	return reported, err
}

func TestNatives(t *testing.T) {
	reported, err := runScript(t, `
var l, m, g, k, total;
l = ds_list_create()
ds_list_add(l, 1, 2, 3)
test_report(ds_list_size(l), ds_list_find_value(l, 1), ds_list_empty(l))

m = ds_map_create()
ds_map_add(m, "a", 1); ds_map_add(m, "b", 2); ds_map_add(m, 5, 3)
total = 0
k = ds_map_find_first(m)
repeat (ds_map_size(m)) {
    total += ds_map_find_value(m, k)
    k = ds_map_find_next(m, k)
}
test_report(total, ds_map_exists(m, "b"))

g = ds_grid_create(4, 4)
ds_grid_set(g, 1, 2, "cell")
test_report(ds_grid_get(g, 1, 2), ds_grid_width(g), l == 0, m == 0)
`)
	require.NoError(t, err)
	expected := []value.Value{
		value.NewReal(3), value.NewReal(2), value.NewReal(0),
		value.NewReal(6), value.NewReal(1),
		value.NewString("cell"), value.NewReal(4), value.NewReal(1), value.NewReal(1),
	}
	assert.Equal(t, expected, reported)
}

func TestNativeErrors(t *testing.T) {
	tests := []struct {
		input   string
		kind    vm.ErrorKind
		message string
	}{
		{"var l; l = ds_list_create(); ds_list_destroy(l); ds_list_add(l, 1)", vm.Resource, "the list with id 0 does not exist"},
		{"ds_map_find_value(3, \"k\")", vm.Resource, "the map with id 3 does not exist"},
		{"var l; l = ds_list_create(); ds_map_size(l)", vm.Resource, "ds_map_size: expected a map, got list 0"},
		{"var m; m = ds_map_create(); ds_map_add(m, 1, 1); ds_map_add(m, 1, 2)", vm.Other, "an entry with key 1 already exists in the map"},
		{"ds_list_add(ds_list_create())", vm.Arity, "ds_list_add takes a list and at least one value, got 1 arguments"},
		{"ds_grid_get(\"g\", 0, 0)", vm.TypeUnary, "ds_grid_get: argument 0 must be a real, got string"},
		{"ds_grid_create(2147483647, 2147483647)", vm.Bounds, "a 2147483647x2147483647 grid exceeds the limit of 4194304 cells"},
		{"var g; g = ds_grid_create(2, 2); ds_grid_resize(g, 65536, 65536)", vm.Bounds, "a 65536x65536 grid exceeds the limit of 4194304 cells"},
		{"var m; m = ds_map_create(); ds_map_add(m, \"\", 7); ds_map_exists(m, undefined)", vm.TypeUnary, "map keys must be reals or strings, got undefined"},
		{"var m; m = ds_map_create(); ds_map_add(m, \"\", 7); ds_map_find_value(m, undefined)", vm.TypeUnary, "map keys must be reals or strings, got undefined"},
	}

	for _, tt := range tests {
		_, err := runScript(t, tt.input)
		require.Error(t, err, tt.input)
		rerr, ok := err.(*vm.RuntimeError)
		require.True(t, ok, tt.input)
		assert.Equal(t, tt.kind, rerr.Kind, tt.input)
		assert.Equal(t, tt.message, rerr.Message, tt.input)
		assert.Equal(t, "ds", rerr.Unit, tt.input)
	}
}

func TestDestroyedHandleDiffersFromNew(t *testing.T) {
	reported, err := runScript(t, `
var a, b;
a = ds_map_create()
ds_map_destroy(a)
b = ds_map_create()
test_report(a == b, b)
`)
	require.NoError(t, err)
	assert.Equal(t, value.NewReal(0), reported[0])
	assert.Equal(t, value.NewHandle(value.KindMap, 1), reported[1])
}

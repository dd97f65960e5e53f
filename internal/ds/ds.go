// Package ds implements the handle-addressed list, map and grid resources.
// Each kind has its own id counter starting at 0, and an id is never handed
// out twice, so a stale handle always fails instead of aliasing a newer
// resource.
package ds

import (
	"strings"

	"gml-vm/internal/value"
	"gml-vm/internal/vm"

	"github.com/tidwall/btree"
)

type entry struct {
	key value.Value
	val value.Value
}

// keyLess orders reals (and handles, by id) numerically before strings,
// and strings lexicographically.
func keyLess(a, b entry) bool {
	ar, aIsReal := a.key.Number()
	br, bIsReal := b.key.Number()
	switch {
	case aIsReal && bIsReal:
		return ar < br
	case aIsReal:
		return true
	case bIsReal:
		return false
	}
	return strings.Compare(a.key.AsString, b.key.AsString) < 0
}

type dsMap struct {
	tree *btree.BTreeG[entry]
}

func newMap() *dsMap {
	return &dsMap{tree: btree.NewBTreeG(keyLess)}
}

// DefaultMaxGridCells bounds width*height when New is given no limit.
const DefaultMaxGridCells = 1 << 22

type grid struct {
	width, height int
	cells         []value.Value
}

func newGrid(w, h int) *grid {
	g := &grid{width: w, height: h, cells: make([]value.Value, w*h)}
	for i := range g.cells {
		g.cells[i] = value.NewReal(0)
	}
	return g
}

func (g *grid) inside(x, y int) bool {
	return x >= 0 && y >= 0 && x < g.width && y < g.height
}

// State owns every live resource of one world.
type State struct {
	maxCells int

	lists    map[int][]value.Value
	nextList int

	maps    map[int]*dsMap
	nextMap int

	grids    map[int]*grid
	nextGrid int
}

// New returns an empty State. Grids may hold at most maxCells cells; 0
// means DefaultMaxGridCells.
func New(maxCells int) *State {
	if maxCells <= 0 {
		maxCells = DefaultMaxGridCells
	}
	return &State{
		maxCells: maxCells,
		lists:    make(map[int][]value.Value),
		maps:     make(map[int]*dsMap),
		grids:    make(map[int]*grid),
	}
}

func missing(kind value.ResourceKind, id int) *vm.RuntimeError {
	return vm.Errorf(vm.Resource, "the %s with id %d does not exist", kind, id)
}

// Live reports how many resources of a kind currently exist.
func (s *State) Live(kind value.ResourceKind) int {
	switch kind {
	case value.KindList:
		return len(s.lists)
	case value.KindMap:
		return len(s.maps)
	case value.KindGrid:
		return len(s.grids)
	}
	return 0
}

// lists

func (s *State) ListCreate() int {
	id := s.nextList
	s.nextList++
	s.lists[id] = nil
	return id
}

func (s *State) list(id int) ([]value.Value, error) {
	l, ok := s.lists[id]
	if !ok {
		return nil, missing(value.KindList, id)
	}
	return l, nil
}

func (s *State) ListDestroy(id int) error {
	if _, err := s.list(id); err != nil {
		return err
	}
	delete(s.lists, id)
	return nil
}

func (s *State) ListClear(id int) error {
	if _, err := s.list(id); err != nil {
		return err
	}
	s.lists[id] = nil
	return nil
}

func (s *State) ListSize(id int) (int, error) {
	l, err := s.list(id)
	return len(l), err
}

func (s *State) ListAdd(id int, vals ...value.Value) error {
	l, err := s.list(id)
	if err != nil {
		return err
	}
	s.lists[id] = append(l, vals...)
	return nil
}

// ListDelete removes the element at pos. Out of range does nothing.
func (s *State) ListDelete(id, pos int) error {
	l, err := s.list(id)
	if err != nil {
		return err
	}
	if pos < 0 || pos >= len(l) {
		return nil
	}
	s.lists[id] = append(l[:pos], l[pos+1:]...)
	return nil
}

// ListFindIndex returns the position of the first element equal to v, or -1.
func (s *State) ListFindIndex(id int, v value.Value) (int, error) {
	l, err := s.list(id)
	if err != nil {
		return -1, err
	}
	for i, e := range l {
		if value.Equal(e, v) {
			return i, nil
		}
	}
	return -1, nil
}

// ListFindValue returns the element at pos, or real 0 when out of range.
func (s *State) ListFindValue(id, pos int) (value.Value, error) {
	l, err := s.list(id)
	if err != nil {
		return value.Undefined, err
	}
	if pos < 0 || pos >= len(l) {
		return value.NewReal(0), nil
	}
	return l[pos], nil
}

// ListInsert inserts v before pos; pos may equal the size to append.
func (s *State) ListInsert(id, pos int, v value.Value) error {
	l, err := s.list(id)
	if err != nil {
		return err
	}
	if pos < 0 || pos > len(l) {
		return nil
	}
	l = append(l, value.Value{})
	copy(l[pos+1:], l[pos:])
	l[pos] = v
	s.lists[id] = l
	return nil
}

func (s *State) ListReplace(id, pos int, v value.Value) error {
	l, err := s.list(id)
	if err != nil {
		return err
	}
	if pos >= 0 && pos < len(l) {
		l[pos] = v
	}
	return nil
}

// maps

func (s *State) MapCreate() int {
	id := s.nextMap
	s.nextMap++
	s.maps[id] = newMap()
	return id
}

func (s *State) dsMap(id int) (*dsMap, error) {
	m, ok := s.maps[id]
	if !ok {
		return nil, missing(value.KindMap, id)
	}
	return m, nil
}

func checkKey(key value.Value) error {
	if key.IsUndefined() {
		return vm.Errorf(vm.TypeUnary, "map keys must be reals or strings, got undefined")
	}
	return nil
}

func (s *State) MapDestroy(id int) error {
	if _, err := s.dsMap(id); err != nil {
		return err
	}
	delete(s.maps, id)
	return nil
}

func (s *State) MapClear(id int) error {
	m, err := s.dsMap(id)
	if err != nil {
		return err
	}
	m.tree = btree.NewBTreeG(keyLess)
	return nil
}

func (s *State) MapSize(id int) (int, error) {
	m, err := s.dsMap(id)
	if err != nil {
		return 0, err
	}
	return m.tree.Len(), nil
}

// MapAdd inserts a new key. Adding a key that is already present fails.
func (s *State) MapAdd(id int, key, val value.Value) error {
	m, err := s.dsMap(id)
	if err != nil {
		return err
	}
	if err := checkKey(key); err != nil {
		return err
	}
	if _, ok := m.tree.Get(entry{key: key}); ok {
		return vm.Errorf(vm.Other, "an entry with key %s already exists in the map", quoteKey(key))
	}
	m.tree.Set(entry{key: key, val: val})
	return nil
}

// keyed resolves a map and validates the key every keyed operation takes.
func (s *State) keyed(id int, key value.Value) (*dsMap, error) {
	m, err := s.dsMap(id)
	if err != nil {
		return nil, err
	}
	if err := checkKey(key); err != nil {
		return nil, err
	}
	return m, nil
}

// MapReplace overwrites an existing key and ignores a missing one.
func (s *State) MapReplace(id int, key, val value.Value) error {
	m, err := s.keyed(id, key)
	if err != nil {
		return err
	}
	if _, ok := m.tree.Get(entry{key: key}); ok {
		m.tree.Set(entry{key: key, val: val})
	}
	return nil
}

func (s *State) MapDelete(id int, key value.Value) error {
	m, err := s.keyed(id, key)
	if err != nil {
		return err
	}
	m.tree.Delete(entry{key: key})
	return nil
}

func (s *State) MapExists(id int, key value.Value) (bool, error) {
	m, err := s.keyed(id, key)
	if err != nil {
		return false, err
	}
	_, ok := m.tree.Get(entry{key: key})
	return ok, nil
}

// MapFindValue returns the value under key, or real 0.
func (s *State) MapFindValue(id int, key value.Value) (value.Value, error) {
	m, err := s.keyed(id, key)
	if err != nil {
		return value.Undefined, err
	}
	if e, ok := m.tree.Get(entry{key: key}); ok {
		return e.val, nil
	}
	return value.NewReal(0), nil
}

func (s *State) MapFindFirst(id int) (value.Value, error) {
	m, err := s.dsMap(id)
	if err != nil {
		return value.Undefined, err
	}
	if e, ok := m.tree.Min(); ok {
		return e.key, nil
	}
	return value.NewReal(0), nil
}

func (s *State) MapFindLast(id int) (value.Value, error) {
	m, err := s.dsMap(id)
	if err != nil {
		return value.Undefined, err
	}
	if e, ok := m.tree.Max(); ok {
		return e.key, nil
	}
	return value.NewReal(0), nil
}

// MapFindNext returns the smallest key strictly after key, or real 0.
func (s *State) MapFindNext(id int, key value.Value) (value.Value, error) {
	m, err := s.keyed(id, key)
	if err != nil {
		return value.Undefined, err
	}
	pivot := entry{key: key}
	next := value.NewReal(0)
	m.tree.Ascend(pivot, func(e entry) bool {
		if keyLess(pivot, e) {
			next = e.key
			return false
		}
		return true
	})
	return next, nil
}

// MapFindPrevious returns the largest key strictly before key, or real 0.
func (s *State) MapFindPrevious(id int, key value.Value) (value.Value, error) {
	m, err := s.keyed(id, key)
	if err != nil {
		return value.Undefined, err
	}
	pivot := entry{key: key}
	prev := value.NewReal(0)
	m.tree.Descend(pivot, func(e entry) bool {
		if keyLess(e, pivot) {
			prev = e.key
			return false
		}
		return true
	})
	return prev, nil
}

func quoteKey(key value.Value) string {
	if key.IsString() {
		return `"` + key.AsString + `"`
	}
	return key.String()
}

// grids

// checkSize clamps negative sizes to 0 and rejects grids over the cell limit.
func (s *State) checkSize(w, h int) (int, int, error) {
	w, h = max(w, 0), max(h, 0)
	if w > 0 && h > s.maxCells/w {
		return 0, 0, vm.Errorf(vm.Bounds, "a %dx%d grid exceeds the limit of %d cells", w, h, s.maxCells)
	}
	return w, h, nil
}

// GridCreate makes a w by h grid of zeros. Negative sizes count as 0.
func (s *State) GridCreate(w, h int) (int, error) {
	w, h, err := s.checkSize(w, h)
	if err != nil {
		return 0, err
	}
	id := s.nextGrid
	s.nextGrid++
	s.grids[id] = newGrid(w, h)
	return id, nil
}

func (s *State) grid(id int) (*grid, error) {
	g, ok := s.grids[id]
	if !ok {
		return nil, missing(value.KindGrid, id)
	}
	return g, nil
}

func (s *State) GridDestroy(id int) error {
	if _, err := s.grid(id); err != nil {
		return err
	}
	delete(s.grids, id)
	return nil
}

// GridResize changes the dimensions, keeping the cells the old and new grids
// share.
func (s *State) GridResize(id, w, h int) error {
	g, err := s.grid(id)
	if err != nil {
		return err
	}
	w, h, err = s.checkSize(w, h)
	if err != nil {
		return err
	}
	resized := newGrid(w, h)
	for y := 0; y < min(g.height, resized.height); y++ {
		for x := 0; x < min(g.width, resized.width); x++ {
			resized.cells[y*resized.width+x] = g.cells[y*g.width+x]
		}
	}
	*g = *resized
	return nil
}

func (s *State) GridWidth(id int) (int, error) {
	g, err := s.grid(id)
	if err != nil {
		return 0, err
	}
	return g.width, nil
}

func (s *State) GridHeight(id int) (int, error) {
	g, err := s.grid(id)
	if err != nil {
		return 0, err
	}
	return g.height, nil
}

func (s *State) GridClear(id int, v value.Value) error {
	g, err := s.grid(id)
	if err != nil {
		return err
	}
	for i := range g.cells {
		g.cells[i] = v
	}
	return nil
}

// GridSet writes a cell. Out of range does nothing.
func (s *State) GridSet(id, x, y int, v value.Value) error {
	g, err := s.grid(id)
	if err != nil {
		return err
	}
	if g.inside(x, y) {
		g.cells[y*g.width+x] = v
	}
	return nil
}

// GridGet reads a cell, or real 0 when out of range.
func (s *State) GridGet(id, x, y int) (value.Value, error) {
	g, err := s.grid(id)
	if err != nil {
		return value.Undefined, err
	}
	if !g.inside(x, y) {
		return value.NewReal(0), nil
	}
	return g.cells[y*g.width+x], nil
}

package value

// Array is a variable slot. Every variable is a jagged two dimensional
// array and a scalar lives at [0, 0].
type Array struct {
	rows  [][]Value
	width int // widest row, the column high-water mark
}

func NewArray() *Array {
	return &Array{}
}

// Scalar returns an array holding v at [0, 0].
func Scalar(v Value) *Array {
	return &Array{rows: [][]Value{{v}}, width: 1}
}

// Get reads [i, j]. Unwritten cells inside the high-water mark read as real
// 0; anything beyond it reports false.
func (a *Array) Get(i, j int) (Value, bool) {
	if i < 0 || j < 0 || i >= len(a.rows) {
		return Value{}, false
	}
	row := a.rows[i]
	if j < len(row) {
		return row[j], true
	}
	if j < a.width {
		return NewReal(0), true
	}
	return Value{}, false
}

// Set writes [i, j], growing the outer array with empty rows and the row
// with zeros. Negative indices report false.
func (a *Array) Set(i, j int, v Value) bool {
	if i < 0 || j < 0 {
		return false
	}
	for len(a.rows) <= i {
		a.rows = append(a.rows, nil)
	}
	row := a.rows[i]
	for len(row) <= j {
		row = append(row, NewReal(0))
	}
	row[j] = v
	a.rows[i] = row
	if len(row) > a.width {
		a.width = len(row)
	}
	return true
}

// Height is the number of rows.
func (a *Array) Height() int { return len(a.rows) }

// Length is the length of row i, 0 when it does not exist.
func (a *Array) Length(i int) int {
	if i < 0 || i >= len(a.rows) {
		return 0
	}
	return len(a.rows[i])
}

// Copy returns an independent copy of every row.
func (a *Array) Copy() *Array {
	c := &Array{rows: make([][]Value, len(a.rows)), width: a.width}
	for i, row := range a.rows {
		c.rows[i] = append([]Value(nil), row...)
	}
	return c
}

package table

import (
	"fmt"

	"github.com/zclconf/go-cty/cty"
)

// Table is an ordered collection of named columns of equal length. The
// optional index column labels rows in diagnostics; when unset, row positions
// are used.
type Table struct {
	cols     []string
	data     map[string][]cty.Value
	indexCol string
}

// New returns an empty table with no columns.
func New() *Table {
	return &Table{data: make(map[string][]cty.Value)}
}

// NumRows returns the number of rows.
func (t *Table) NumRows() int {
	if len(t.cols) == 0 {
		return 0
	}
	return len(t.data[t.cols[0]])
}

// NumCols returns the number of columns.
func (t *Table) NumCols() int { return len(t.cols) }

// Columns returns the column names in order. The returned slice is a copy.
func (t *Table) Columns() []string {
	out := make([]string, len(t.cols))
	copy(out, t.cols)
	return out
}

// HasColumn reports whether the named column exists.
func (t *Table) HasColumn(name string) bool {
	_, ok := t.data[name]
	return ok
}

// Column returns the cells of the named column. The returned slice is shared;
// callers must not mutate it.
func (t *Table) Column(name string) ([]cty.Value, error) {
	vals, ok := t.data[name]
	if !ok {
		return nil, &ColumnNotFoundError{Column: name}
	}
	return vals, nil
}

// Cell returns the value at the named column and row.
func (t *Table) Cell(name string, row int) (cty.Value, error) {
	vals, err := t.Column(name)
	if err != nil {
		return cty.NilVal, err
	}
	if row < 0 || row >= len(vals) {
		return cty.NilVal, fmt.Errorf("row %d out of range [0, %d)", row, len(vals))
	}
	return vals[row], nil
}

// AddColumn appends a column. The cell count must match the existing row
// count unless the table has no columns yet.
func (t *Table) AddColumn(name string, cells []cty.Value) error {
	if t.HasColumn(name) {
		return fmt.Errorf("column %q already exists", name)
	}
	if len(t.cols) > 0 && len(cells) != t.NumRows() {
		return fmt.Errorf("column %q has %d cells, table has %d rows", name, len(cells), t.NumRows())
	}
	t.cols = append(t.cols, name)
	t.data[name] = cells
	return nil
}

// SetColumn replaces the cells of an existing column, or appends a new one.
func (t *Table) SetColumn(name string, cells []cty.Value) error {
	if !t.HasColumn(name) {
		return t.AddColumn(name, cells)
	}
	if len(cells) != t.NumRows() {
		return fmt.Errorf("column %q has %d cells, table has %d rows", name, len(cells), t.NumRows())
	}
	t.data[name] = cells
	return nil
}

// DropColumns removes the named columns. Every name must exist.
func (t *Table) DropColumns(names ...string) error {
	for _, name := range names {
		if !t.HasColumn(name) {
			return &ColumnNotFoundError{Column: name}
		}
	}
	drop := make(map[string]struct{}, len(names))
	for _, name := range names {
		drop[name] = struct{}{}
		delete(t.data, name)
	}
	kept := t.cols[:0]
	for _, col := range t.cols {
		if _, gone := drop[col]; !gone {
			kept = append(kept, col)
		}
	}
	t.cols = kept
	if _, gone := drop[t.indexCol]; gone {
		t.indexCol = ""
	}
	return nil
}

// KeepColumns drops every column not named. Order follows the names given.
func (t *Table) KeepColumns(names ...string) error {
	for _, name := range names {
		if !t.HasColumn(name) {
			return &ColumnNotFoundError{Column: name}
		}
	}
	keep := make(map[string]struct{}, len(names))
	for _, name := range names {
		keep[name] = struct{}{}
	}
	for _, col := range t.Columns() {
		if _, ok := keep[col]; !ok {
			if err := t.DropColumns(col); err != nil {
				return err
			}
		}
	}
	t.cols = append(t.cols[:0], names...)
	return nil
}

// RenameColumn renames a column in place, preserving its position.
func (t *Table) RenameColumn(from, to string) error {
	if !t.HasColumn(from) {
		return &ColumnNotFoundError{Column: from}
	}
	if from == to {
		return nil
	}
	if t.HasColumn(to) {
		return fmt.Errorf("column %q already exists", to)
	}
	for i, col := range t.cols {
		if col == from {
			t.cols[i] = to
			break
		}
	}
	t.data[to] = t.data[from]
	delete(t.data, from)
	if t.indexCol == from {
		t.indexCol = to
	}
	return nil
}

// SetIndex marks the named column as the row index.
func (t *Table) SetIndex(name string) error {
	if name != "" && !t.HasColumn(name) {
		return &ColumnNotFoundError{Column: name}
	}
	t.indexCol = name
	return nil
}

// IndexName returns the name of the index column, or "" when unset.
func (t *Table) IndexName() string { return t.indexCol }

// IndexValues returns one label per row: the index column's cells when an
// index is set, otherwise ordinal row numbers.
func (t *Table) IndexValues() []cty.Value {
	if t.indexCol != "" {
		return t.data[t.indexCol]
	}
	out := make([]cty.Value, t.NumRows())
	for i := range out {
		out[i] = cty.NumberIntVal(int64(i))
	}
	return out
}

// Select returns a new table containing only the rows where mask is true.
// The mask must be row-aligned.
func (t *Table) Select(mask []bool) (*Table, error) {
	if len(mask) != t.NumRows() {
		return nil, fmt.Errorf("mask has %d entries, table has %d rows", len(mask), t.NumRows())
	}
	out := New()
	out.indexCol = t.indexCol
	for _, col := range t.cols {
		src := t.data[col]
		var cells []cty.Value
		for i, keep := range mask {
			if keep {
				cells = append(cells, src[i])
			}
		}
		out.cols = append(out.cols, col)
		out.data[col] = cells
	}
	return out, nil
}

// Clone returns a deep copy of the table. Cell values are immutable and are
// shared; column slices are copied.
func (t *Table) Clone() *Table {
	out := New()
	out.indexCol = t.indexCol
	out.cols = make([]string, len(t.cols))
	copy(out.cols, t.cols)
	for col, cells := range t.data {
		dup := make([]cty.Value, len(cells))
		copy(dup, cells)
		out.data[col] = dup
	}
	return out
}

// Equal reports whether two tables have identical column order, index, and
// cell values.
func (t *Table) Equal(other *Table) bool {
	if other == nil || len(t.cols) != len(other.cols) || t.indexCol != other.indexCol {
		return false
	}
	for i, col := range t.cols {
		if other.cols[i] != col {
			return false
		}
		a, b := t.data[col], other.data[col]
		if len(a) != len(b) {
			return false
		}
		for j := range a {
			if !a[j].RawEquals(b[j]) {
				return false
			}
		}
	}
	return true
}

// Concat appends the rows of every given table to a copy of t. All tables
// must share t's column set and order.
func (t *Table) Concat(others ...*Table) (*Table, error) {
	out := t.Clone()
	for _, other := range others {
		if len(other.cols) != len(out.cols) {
			return nil, fmt.Errorf("cannot concat: column count mismatch (%d vs %d)", len(out.cols), len(other.cols))
		}
		for i, col := range out.cols {
			if other.cols[i] != col {
				return nil, fmt.Errorf("cannot concat: column %d is %q, want %q", i, other.cols[i], col)
			}
			out.data[col] = append(out.data[col], other.data[col]...)
		}
	}
	return out, nil
}

// String renders a short shape summary for logs.
func (t *Table) String() string {
	return fmt.Sprintf("table(%d rows x %d cols)", t.NumRows(), t.NumCols())
}

// ColumnNotFoundError reports a reference to a column the table does not have.
type ColumnNotFoundError struct {
	Column string
}

func (e *ColumnNotFoundError) Error() string {
	return fmt.Sprintf("table has no column %q", e.Column)
}

package telemetry

import "fmt"

// Column is one named series of a Table. Valid[i] reports whether Values[i]
// holds an observation; Values[i] is meaningless when it does not.
type Column struct {
	Name   string
	Values []float64
	Valid  []bool
}

// Defined returns the number of valid cells.
func (c *Column) Defined() int {
	n := 0
	for _, ok := range c.Valid {
		if ok {
			n++
		}
	}
	return n
}

// Table is the unified, time-aligned table. The timestamp column is strictly
// increasing. Columns are only ever appended; rows are only removed by Filter
// and DropIncomplete, which return a new Table.
type Table struct {
	timestamps []uint64
	columns    []*Column
	index      map[string]int
	version    int
}

// NewTable creates a table over the given timeline with no columns.
func NewTable(timestamps []uint64) (*Table, error) {
	for i := 1; i < len(timestamps); i++ {
		if timestamps[i] <= timestamps[i-1] {
			return nil, fmt.Errorf("%w: timestamps not strictly increasing at row %d (%d after %d)",
				ErrConfiguration, i, timestamps[i], timestamps[i-1])
		}
	}
	return &Table{
		timestamps: timestamps,
		index:      make(map[string]int),
	}, nil
}

// Len returns the number of rows.
func (t *Table) Len() int {
	return len(t.timestamps)
}

// Timestamps returns the timeline. Callers must not modify it.
func (t *Table) Timestamps() []uint64 {
	return t.timestamps
}

// Version increases with every added column. A caller holding column slices
// from an earlier version should re-read the table.
func (t *Table) Version() int {
	return t.version
}

// Names returns the column names in order, excluding timestamp.
func (t *Table) Names() []string {
	names := make([]string, len(t.columns))
	for i, c := range t.columns {
		names[i] = c.Name
	}
	return names
}

// Columns returns the columns in order. Callers must not modify them.
func (t *Table) Columns() []*Column {
	return t.columns
}

// Has reports whether a column exists.
func (t *Table) Has(name string) bool {
	_, ok := t.index[name]
	return ok
}

// Column returns the named column or an ErrLookup naming it.
func (t *Table) Column(name string) (*Column, error) {
	i, ok := t.index[name]
	if !ok {
		return nil, fmt.Errorf("%w: column %q not in table", ErrLookup, name)
	}
	return t.columns[i], nil
}

// Value returns one cell and whether it is defined.
func (t *Table) Value(name string, row int) (float64, bool, error) {
	c, err := t.Column(name)
	if err != nil {
		return 0, false, err
	}
	if row < 0 || row >= len(t.timestamps) {
		return 0, false, fmt.Errorf("%w: row %d out of range [0,%d)", ErrLookup, row, len(t.timestamps))
	}
	return c.Values[row], c.Valid[row], nil
}

// AddColumn appends a column. A nil valid slice marks every cell defined.
// The table takes ownership of both slices.
func (t *Table) AddColumn(name string, values []float64, valid []bool) error {
	if name == "" || name == TimestampColumn {
		return fmt.Errorf("%w: invalid column name %q", ErrConfiguration, name)
	}
	if _, exists := t.index[name]; exists {
		return fmt.Errorf("%w: column %q already exists", ErrConfiguration, name)
	}
	if len(values) != len(t.timestamps) {
		return fmt.Errorf("%w: column %q has %d values for %d rows",
			ErrConfiguration, name, len(values), len(t.timestamps))
	}
	if valid == nil {
		valid = make([]bool, len(values))
		for i := range valid {
			valid[i] = true
		}
	} else if len(valid) != len(values) {
		return fmt.Errorf("%w: column %q has %d validity flags for %d rows",
			ErrConfiguration, name, len(valid), len(values))
	}
	t.index[name] = len(t.columns)
	t.columns = append(t.columns, &Column{Name: name, Values: values, Valid: valid})
	t.version++
	return nil
}

// Complete reports whether every column is defined at row.
func (t *Table) Complete(row int) bool {
	for _, c := range t.columns {
		if !c.Valid[row] {
			return false
		}
	}
	return true
}

// Filter returns a new table holding only the rows where keep is true.
// Column order is preserved.
func (t *Table) Filter(keep []bool) (*Table, error) {
	if len(keep) != len(t.timestamps) {
		return nil, fmt.Errorf("%w: filter mask has %d entries for %d rows",
			ErrConfiguration, len(keep), len(t.timestamps))
	}
	n := 0
	for _, k := range keep {
		if k {
			n++
		}
	}

	ts := make([]uint64, 0, n)
	for i, k := range keep {
		if k {
			ts = append(ts, t.timestamps[i])
		}
	}
	out := &Table{
		timestamps: ts,
		columns:    make([]*Column, 0, len(t.columns)),
		index:      make(map[string]int, len(t.columns)),
		version:    t.version,
	}
	for _, c := range t.columns {
		nc := &Column{
			Name:   c.Name,
			Values: make([]float64, 0, n),
			Valid:  make([]bool, 0, n),
		}
		for i, k := range keep {
			if k {
				nc.Values = append(nc.Values, c.Values[i])
				nc.Valid = append(nc.Valid, c.Valid[i])
			}
		}
		out.index[c.Name] = len(out.columns)
		out.columns = append(out.columns, nc)
	}
	return out, nil
}

// DropIncomplete returns a new table without the rows that hold any
// undefined cell.
func (t *Table) DropIncomplete() *Table {
	keep := make([]bool, len(t.timestamps))
	for i := range keep {
		keep[i] = t.Complete(i)
	}
	out, _ := t.Filter(keep)
	return out
}

package frame

import "fmt"

// Frame is a columnar container for tabular data. Every Frame carries a row
// index; frames derived from it (selections, clones, masks) keep the same
// labels so rows can be aligned after reordering or chunking.
type Frame struct {
	schema Schema
	cols   []Column
	index  map[string]int // name -> col index
	rows   []int          // row labels
}

func NewFrame(s Schema) *Frame {
	f := &Frame{schema: s, cols: make([]Column, len(s.Columns)), index: make(map[string]int)}
	for i, cs := range s.Columns {
		c, err := NewColumn(cs.Name, cs.Type, 0)
		if err != nil {
			panic(err)
		}
		f.cols[i] = c
		f.index[cs.Name] = i
	}
	return f
}

// FromColumns builds a Frame from existing columns. All columns must have the
// same length and unique names. The row index defaults to 0..n-1.
func FromColumns(cols ...Column) (*Frame, error) {
	f := &Frame{index: make(map[string]int, len(cols))}
	n := -1
	for i, c := range cols {
		if _, dup := f.index[c.Name()]; dup {
			return nil, fmt.Errorf("duplicate column: %s", c.Name())
		}
		if n >= 0 && c.Len() != n {
			return nil, fmt.Errorf("column %s has %d rows, expected %d", c.Name(), c.Len(), n)
		}
		n = c.Len()
		f.index[c.Name()] = i
		f.cols = append(f.cols, c)
		f.schema.Columns = append(f.schema.Columns, ColumnSchema{Name: c.Name(), Type: c.Kind(), Nullable: true})
	}
	if n < 0 {
		n = 0
	}
	f.rows = make([]int, n)
	for i := range f.rows {
		f.rows[i] = i
	}
	return f, nil
}

func (f *Frame) Schema() Schema      { return f.schema }
func (f *Frame) Rows() int           { return len(f.rows) }
func (f *Frame) Cols() int           { return len(f.cols) }
func (f *Frame) Names() []string     { return f.schema.Names() }
func (f *Frame) Column(i int) Column { return f.cols[i] }

// Index returns a copy of the row labels.
func (f *Frame) Index() []int { return append([]int(nil), f.rows...) }

// SetIndex replaces the row labels. The length must match the row count.
func (f *Frame) SetIndex(labels []int) error {
	if len(labels) != len(f.rows) {
		return fmt.Errorf("index has %d labels, frame has %d rows", len(labels), len(f.rows))
	}
	f.rows = append(f.rows[:0], labels...)
	return nil
}

func (f *Frame) ColumnByName(name string) (Column, bool) {
	i, ok := f.index[name]
	if !ok {
		return nil, false
	}
	return f.cols[i], true
}

// AppendNullRow appends a row with all-null values.
func (f *Frame) AppendNullRow() {
	for _, c := range f.cols {
		c.AppendNull()
	}
	label := 0
	if n := len(f.rows); n > 0 {
		label = f.rows[n-1] + 1
	}
	f.rows = append(f.rows, label)
}

// SetCell sets a single cell value by name (row must exist).
func (f *Frame) SetCell(row int, name string, v any) error {
	i, ok := f.index[name]
	if !ok {
		return fmt.Errorf("unknown column: %s", name)
	}
	return f.cols[i].SetValue(row, v)
}

// Clone returns a deep copy of the frame, index included.
func (f *Frame) Clone() *Frame {
	out := &Frame{
		schema: Schema{Columns: append([]ColumnSchema(nil), f.schema.Columns...)},
		cols:   make([]Column, len(f.cols)),
		index:  make(map[string]int, len(f.index)),
		rows:   f.Index(),
	}
	for i, c := range f.cols {
		out.cols[i] = c.Clone()
	}
	for k, v := range f.index {
		out.index[k] = v
	}
	return out
}

// Replace swaps the column with the same name for c.
func (f *Frame) Replace(c Column) error {
	i, ok := f.index[c.Name()]
	if !ok {
		return fmt.Errorf("unknown column: %s", c.Name())
	}
	if c.Len() != f.Rows() {
		return fmt.Errorf("column %s has %d rows, frame has %d", c.Name(), c.Len(), f.Rows())
	}
	f.cols[i] = c
	f.schema.Columns[i].Type = c.Kind()
	return nil
}

// Select returns a frame sharing the named columns and the row index.
func (f *Frame) Select(names ...string) (*Frame, error) {
	cols := make([]Column, 0, len(names))
	for _, n := range names {
		c, ok := f.ColumnByName(n)
		if !ok {
			return nil, fmt.Errorf("unknown column: %s", n)
		}
		cols = append(cols, c)
	}
	out, err := FromColumns(cols...)
	if err != nil {
		return nil, err
	}
	out.rows = f.Index()
	return out, nil
}

// Missing returns the missingness mask of f: one int column per original
// column, 1 where the cell is null, sharing f's row index.
func (f *Frame) Missing() *Frame {
	cols := make([]Column, len(f.cols))
	for i, c := range f.cols {
		m := NewIntColumn(c.Name(), c.Len())
		for r := 0; r < c.Len(); r++ {
			if c.IsNull(r) {
				m.Set(r, 1)
			} else {
				m.Set(r, 0)
			}
		}
		cols[i] = m
	}
	out, _ := FromColumns(cols...)
	out.rows = f.Index()
	return out
}

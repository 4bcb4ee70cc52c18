package frame

import (
	"fmt"
	"time"
)

// Schema describes the logical shape of a dataset.
type Schema struct {
	Columns []ColumnSchema
}

type ColumnSchema struct {
	Name     string
	Type     Kind
	Nullable bool
}

// Names returns the column names in declaration order.
func (s Schema) Names() []string {
	out := make([]string, len(s.Columns))
	for i, cs := range s.Columns {
		out[i] = cs.Name
	}
	return out
}

// Kind enumerates supported logical types.
type Kind int

const (
	KindInvalid Kind = iota
	KindBool
	KindInt
	KindFloat
	KindString
	KindTime
)

func (k Kind) String() string {
	switch k {
	case KindBool:
		return "bool"
	case KindInt:
		return "int"
	case KindFloat:
		return "float"
	case KindString:
		return "string"
	case KindTime:
		return "time"
	default:
		return "invalid"
	}
}

// IsNumeric reports whether values of the kind can be used as real numbers.
func (k Kind) IsNumeric() bool { return k == KindInt || k == KindFloat }

// Column is a typed, nullable column abstraction.
type Column interface {
	Name() string
	Kind() Kind
	Len() int
	IsNull(i int) bool
	SetNull(i int)
	// Value returns the cell as its Go value, or nil when the cell is null.
	Value(i int) any
	// SetValue coerces v to the column kind; nil sets the cell null.
	SetValue(i int, v any) error
	AppendNull()
	Clone() Column
	Rename(name string) Column
}

// NewColumn allocates an all-null column of the given kind.
func NewColumn(name string, k Kind, n int) (Column, error) {
	var c Column
	switch k {
	case KindBool:
		c = NewBoolColumn(name, n)
	case KindInt:
		c = NewIntColumn(name, n)
	case KindFloat:
		c = NewFloatColumn(name, n)
	case KindString:
		c = NewStringColumn(name, n)
	case KindTime:
		c = NewTimeColumn(name, n)
	default:
		return nil, fmt.Errorf("invalid column kind %v for %s", k, name)
	}
	return c, nil
}

func allNull(n int) []bool {
	nulls := make([]bool, n)
	for i := range nulls {
		nulls[i] = true
	}
	return nulls
}

type BoolColumn struct {
	name  string
	data  []bool
	nulls []bool
}

func NewBoolColumn(name string, n int) *BoolColumn {
	return &BoolColumn{name: name, data: make([]bool, n), nulls: allNull(n)}
}
func (c *BoolColumn) Name() string           { return c.name }
func (c *BoolColumn) Kind() Kind             { return KindBool }
func (c *BoolColumn) Len() int               { return len(c.data) }
func (c *BoolColumn) IsNull(i int) bool      { return c.nulls[i] }
func (c *BoolColumn) SetNull(i int)          { c.nulls[i] = true }
func (c *BoolColumn) Get(i int) (bool, bool) { return c.data[i], !c.nulls[i] }
func (c *BoolColumn) Set(i int, v bool)      { c.data[i] = v; c.nulls[i] = false }
func (c *BoolColumn) AppendNull()            { c.data = append(c.data, false); c.nulls = append(c.nulls, true) }
func (c *BoolColumn) Append(v bool)          { c.data = append(c.data, v); c.nulls = append(c.nulls, false) }
func (c *BoolColumn) Value(i int) any {
	if c.nulls[i] {
		return nil
	}
	return c.data[i]
}
func (c *BoolColumn) SetValue(i int, v any) error {
	if v == nil {
		c.SetNull(i)
		return nil
	}
	b, ok := v.(bool)
	if !ok {
		return fmt.Errorf("column %s expects bool, got %T", c.name, v)
	}
	c.Set(i, b)
	return nil
}
func (c *BoolColumn) Clone() Column {
	return &BoolColumn{name: c.name, data: append([]bool(nil), c.data...), nulls: append([]bool(nil), c.nulls...)}
}
func (c *BoolColumn) Rename(name string) Column { out := c.Clone().(*BoolColumn); out.name = name; return out }

type IntColumn struct {
	name  string
	data  []int64
	nulls []bool
}

func NewIntColumn(name string, n int) *IntColumn {
	return &IntColumn{name: name, data: make([]int64, n), nulls: allNull(n)}
}
func (c *IntColumn) Name() string            { return c.name }
func (c *IntColumn) Kind() Kind              { return KindInt }
func (c *IntColumn) Len() int                { return len(c.data) }
func (c *IntColumn) IsNull(i int) bool       { return c.nulls[i] }
func (c *IntColumn) SetNull(i int)           { c.nulls[i] = true }
func (c *IntColumn) Get(i int) (int64, bool) { return c.data[i], !c.nulls[i] }
func (c *IntColumn) Set(i int, v int64)      { c.data[i] = v; c.nulls[i] = false }
func (c *IntColumn) AppendNull()             { c.data = append(c.data, 0); c.nulls = append(c.nulls, true) }
func (c *IntColumn) Append(v int64)          { c.data = append(c.data, v); c.nulls = append(c.nulls, false) }
func (c *IntColumn) Value(i int) any {
	if c.nulls[i] {
		return nil
	}
	return c.data[i]
}
func (c *IntColumn) SetValue(i int, v any) error {
	switch t := v.(type) {
	case nil:
		c.SetNull(i)
	case int:
		c.Set(i, int64(t))
	case int32:
		c.Set(i, int64(t))
	case int64:
		c.Set(i, t)
	case float64:
		c.Set(i, int64(t))
	default:
		return fmt.Errorf("column %s expects int/int64, got %T", c.name, v)
	}
	return nil
}
func (c *IntColumn) Clone() Column {
	return &IntColumn{name: c.name, data: append([]int64(nil), c.data...), nulls: append([]bool(nil), c.nulls...)}
}
func (c *IntColumn) Rename(name string) Column { out := c.Clone().(*IntColumn); out.name = name; return out }

type FloatColumn struct {
	name  string
	data  []float64
	nulls []bool
}

func NewFloatColumn(name string, n int) *FloatColumn {
	return &FloatColumn{name: name, data: make([]float64, n), nulls: allNull(n)}
}
func (c *FloatColumn) Name() string              { return c.name }
func (c *FloatColumn) Kind() Kind                { return KindFloat }
func (c *FloatColumn) Len() int                  { return len(c.data) }
func (c *FloatColumn) IsNull(i int) bool         { return c.nulls[i] }
func (c *FloatColumn) SetNull(i int)             { c.nulls[i] = true }
func (c *FloatColumn) Get(i int) (float64, bool) { return c.data[i], !c.nulls[i] }
func (c *FloatColumn) Set(i int, v float64)      { c.data[i] = v; c.nulls[i] = false }
func (c *FloatColumn) AppendNull()               { c.data = append(c.data, 0); c.nulls = append(c.nulls, true) }
func (c *FloatColumn) Append(v float64)          { c.data = append(c.data, v); c.nulls = append(c.nulls, false) }
func (c *FloatColumn) Value(i int) any {
	if c.nulls[i] {
		return nil
	}
	return c.data[i]
}
func (c *FloatColumn) SetValue(i int, v any) error {
	switch t := v.(type) {
	case nil:
		c.SetNull(i)
	case float32:
		c.Set(i, float64(t))
	case float64:
		c.Set(i, t)
	case int:
		c.Set(i, float64(t))
	case int64:
		c.Set(i, float64(t))
	default:
		return fmt.Errorf("column %s expects float64, got %T", c.name, v)
	}
	return nil
}
func (c *FloatColumn) Clone() Column {
	return &FloatColumn{name: c.name, data: append([]float64(nil), c.data...), nulls: append([]bool(nil), c.nulls...)}
}
func (c *FloatColumn) Rename(name string) Column { out := c.Clone().(*FloatColumn); out.name = name; return out }

type StringColumn struct {
	name  string
	data  []string
	nulls []bool
}

func NewStringColumn(name string, n int) *StringColumn {
	return &StringColumn{name: name, data: make([]string, n), nulls: allNull(n)}
}
func (c *StringColumn) Name() string             { return c.name }
func (c *StringColumn) Kind() Kind               { return KindString }
func (c *StringColumn) Len() int                 { return len(c.data) }
func (c *StringColumn) IsNull(i int) bool        { return c.nulls[i] }
func (c *StringColumn) SetNull(i int)            { c.nulls[i] = true }
func (c *StringColumn) Get(i int) (string, bool) { return c.data[i], !c.nulls[i] }
func (c *StringColumn) Set(i int, v string)      { c.data[i] = v; c.nulls[i] = false }
func (c *StringColumn) AppendNull()              { c.data = append(c.data, ""); c.nulls = append(c.nulls, true) }
func (c *StringColumn) Append(v string)          { c.data = append(c.data, v); c.nulls = append(c.nulls, false) }
func (c *StringColumn) Value(i int) any {
	if c.nulls[i] {
		return nil
	}
	return c.data[i]
}
func (c *StringColumn) SetValue(i int, v any) error {
	if v == nil {
		c.SetNull(i)
		return nil
	}
	s, ok := v.(string)
	if !ok {
		return fmt.Errorf("column %s expects string, got %T", c.name, v)
	}
	c.Set(i, s)
	return nil
}
func (c *StringColumn) Clone() Column {
	return &StringColumn{name: c.name, data: append([]string(nil), c.data...), nulls: append([]bool(nil), c.nulls...)}
}
func (c *StringColumn) Rename(name string) Column { out := c.Clone().(*StringColumn); out.name = name; return out }

type TimeColumn struct {
	name  string
	data  []time.Time
	nulls []bool
}

func NewTimeColumn(name string, n int) *TimeColumn {
	return &TimeColumn{name: name, data: make([]time.Time, n), nulls: allNull(n)}
}
func (c *TimeColumn) Name() string                { return c.name }
func (c *TimeColumn) Kind() Kind                  { return KindTime }
func (c *TimeColumn) Len() int                    { return len(c.data) }
func (c *TimeColumn) IsNull(i int) bool           { return c.nulls[i] }
func (c *TimeColumn) SetNull(i int)               { c.nulls[i] = true }
func (c *TimeColumn) Get(i int) (time.Time, bool) { return c.data[i], !c.nulls[i] }
func (c *TimeColumn) Set(i int, v time.Time)      { c.data[i] = v; c.nulls[i] = false }
func (c *TimeColumn) AppendNull() {
	c.data = append(c.data, time.Time{})
	c.nulls = append(c.nulls, true)
}
func (c *TimeColumn) Append(v time.Time) {
	c.data = append(c.data, v)
	c.nulls = append(c.nulls, false)
}
func (c *TimeColumn) Value(i int) any {
	if c.nulls[i] {
		return nil
	}
	return c.data[i]
}
func (c *TimeColumn) SetValue(i int, v any) error {
	if v == nil {
		c.SetNull(i)
		return nil
	}
	t, ok := v.(time.Time)
	if !ok {
		return fmt.Errorf("column %s expects time.Time, got %T", c.name, v)
	}
	c.Set(i, t)
	return nil
}
func (c *TimeColumn) Clone() Column {
	return &TimeColumn{name: c.name, data: append([]time.Time(nil), c.data...), nulls: append([]bool(nil), c.nulls...)}
}
func (c *TimeColumn) Rename(name string) Column { out := c.Clone().(*TimeColumn); out.name = name; return out }

// Numeric returns cell i of a numeric or datetime column as a float64.
// Datetime cells are expressed in Unix seconds.
func Numeric(c Column, i int) (float64, bool) {
	switch col := c.(type) {
	case *FloatColumn:
		return col.Get(i)
	case *IntColumn:
		v, ok := col.Get(i)
		return float64(v), ok
	case *TimeColumn:
		v, ok := col.Get(i)
		if !ok {
			return 0, false
		}
		return float64(v.Unix()) + float64(v.Nanosecond())/1e9, true
	case *BoolColumn:
		v, ok := col.Get(i)
		if v {
			return 1, ok
		}
		return 0, ok
	}
	return 0, false
}

// NullCount returns the number of null cells in c.
func NullCount(c Column) int {
	n := 0
	for i := 0; i < c.Len(); i++ {
		if c.IsNull(i) {
			n++
		}
	}
	return n
}

package engine

import (
	"fmt"
	"sort"
	"strconv"

	"github.com/virtualphoton/autoimpute/pkg/frame"
)

// DummyFrame is the one-hot expansion of a dataset's categorical columns.
// Indicator values are stored column-major and share the dataset's rows.
type DummyFrame struct {
	columns []string
	mapping map[string][]string
	origin  map[string]string
	values  [][]float64
}

// Columns returns the indicator labels in encounter order.
func (d *DummyFrame) Columns() []string { return append([]string(nil), d.columns...) }

func (d *DummyFrame) Len() int { return len(d.columns) }

// Mapping returns a copy of the original column -> indicator labels mapping.
func (d *DummyFrame) Mapping() map[string][]string {
	out := make(map[string][]string, len(d.mapping))
	for k, v := range d.mapping {
		out[k] = append([]string(nil), v...)
	}
	return out
}

// Origin returns the categorical column an indicator was derived from.
func (d *DummyFrame) Origin(indicator string) (string, bool) {
	o, ok := d.origin[indicator]
	return o, ok
}

// CategoryLabel renders a categorical cell the way indicator names use it.
func CategoryLabel(c frame.Column, i int) (string, bool) {
	switch v := c.Value(i).(type) {
	case nil:
		return "", false
	case string:
		return v, true
	case bool:
		return strconv.FormatBool(v), true
	default:
		return fmt.Sprint(v), true
	}
}

// EncodeDummies expands each categorical column of f into one indicator
// column per distinct observed category. Missing cells get no indicator.
// warn, when non-nil, receives a message for every column that expands to a
// single indicator.
func EncodeDummies(f *frame.Frame, categorical []string, warn func(string)) (*DummyFrame, error) {
	d := &DummyFrame{mapping: make(map[string][]string, len(categorical)), origin: map[string]string{}}
	taken := make(map[string]bool, f.Cols())
	for _, n := range f.Names() {
		taken[n] = true
	}
	for _, name := range categorical {
		col, ok := f.ColumnByName(name)
		if !ok {
			return nil, fmt.Errorf("%w: categorical column %q not in dataset", ErrValidation, name)
		}
		seen := map[string]bool{}
		var cats []string
		for i := 0; i < col.Len(); i++ {
			label, ok := CategoryLabel(col, i)
			if !ok || seen[label] {
				continue
			}
			seen[label] = true
			cats = append(cats, label)
		}
		sort.Strings(cats)

		pos := make(map[string]int, len(cats))
		names := make([]string, len(cats))
		for j, cat := range cats {
			ind := name + "_" + cat
			if taken[ind] || d.origin[ind] != "" {
				return nil, fmt.Errorf("%w: indicator %q for %s collides with an existing column", ErrValidation, ind, name)
			}
			d.origin[ind] = name
			names[j] = ind
			pos[cat] = j
		}
		block := make([][]float64, len(cats))
		for j := range block {
			block[j] = make([]float64, col.Len())
		}
		for i := 0; i < col.Len(); i++ {
			if label, ok := CategoryLabel(col, i); ok {
				block[pos[label]][i] = 1
			}
		}
		d.mapping[name] = names
		d.columns = append(d.columns, names...)
		d.values = append(d.values, block...)

		if len(names) == 1 && warn != nil {
			warn(fmt.Sprintf("%s only category for feature %s. Consider removing %s from dataset.", names[0], name, name))
		}
	}
	return d, nil
}

// Encode expands the categorical columns of f onto d's indicators. Cells
// whose category has no indicator in d are left unencoded.
func (d *DummyFrame) Encode(f *frame.Frame) (*DummyFrame, error) {
	out := &DummyFrame{columns: d.columns, mapping: d.mapping, origin: d.origin, values: make([][]float64, len(d.columns))}
	pos := make(map[string]int, len(d.columns))
	for j, ind := range d.columns {
		pos[ind] = j
		out.values[j] = make([]float64, f.Rows())
	}
	for name := range d.mapping {
		col, ok := f.ColumnByName(name)
		if !ok {
			return nil, fmt.Errorf("%w: categorical column %q not in dataset", ErrValidation, name)
		}
		for i := 0; i < col.Len(); i++ {
			label, ok := CategoryLabel(col, i)
			if !ok {
				continue
			}
			ind := name + "_" + label
			if j, ok := pos[ind]; ok && d.origin[ind] == name {
				out.values[j][i] = 1
			}
		}
	}
	return out, nil
}

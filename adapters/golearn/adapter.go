// Package golearn converts design matrices into golearn DenseInstances so
// missingness can be modelled with golearn classifiers.
package golearn

import (
	"fmt"
	"math"

	"github.com/sjwhitworth/golearn/base"
	"github.com/virtualphoton/autoimpute/pkg/engine"
)

// Class labels of the missingness attribute.
const (
	Observed = "0"
	Missing  = "1"
)

// Encoder turns design matrices with a fixed column layout into
// DenseInstances. Training and prediction grids built by the same Encoder
// share attribute definitions, which golearn requires for compatibility.
type Encoder struct {
	columns []string
	fill    []float64
	attrs   []base.Attribute
	class   *base.CategoricalAttribute
}

// NewEncoder creates an encoder for the given design columns. fill, when
// non-nil, replaces NaN cells column by column.
func NewEncoder(target string, columns []string, fill []float64) (*Encoder, error) {
	if fill != nil && len(fill) != len(columns) {
		return nil, fmt.Errorf("%d fill values for %d columns", len(fill), len(columns))
	}
	e := &Encoder{columns: append([]string(nil), columns...), fill: fill}
	for _, c := range columns {
		e.attrs = append(e.attrs, base.NewFloatAttribute(c))
	}
	e.class = new(base.CategoricalAttribute)
	e.class.SetName(target + "_mis")
	// fix the label order
	e.class.GetSysValFromString(Observed)
	e.class.GetSysValFromString(Missing)
	return e, nil
}

func (e *Encoder) Columns() []string { return append([]string(nil), e.columns...) }

// ToDenseInstances converts X, aligned to the encoder's columns, into
// instances. y is the missingness label per row; nil labels every row
// observed, as needed for prediction grids.
func (e *Encoder) ToDenseInstances(X *engine.DesignMatrix, y []bool) (*base.DenseInstances, error) {
	X = X.Align(e.columns)
	if y != nil && len(y) != X.Rows() {
		return nil, fmt.Errorf("%d labels for %d rows", len(y), X.Rows())
	}
	inst := base.NewDenseInstances()
	specs := make([]base.AttributeSpec, len(e.attrs))
	for i, a := range e.attrs {
		specs[i] = inst.AddAttribute(a)
	}
	classSpec := inst.AddAttribute(e.class)
	if err := inst.AddClassAttribute(e.class); err != nil {
		return nil, err
	}
	if err := inst.Extend(X.Rows()); err != nil {
		return nil, err
	}
	observed := e.class.GetSysValFromString(Observed)
	missing := e.class.GetSysValFromString(Missing)
	for r := 0; r < X.Rows(); r++ {
		for c := range e.columns {
			v := X.At(r, c)
			if math.IsNaN(v) && e.fill != nil {
				v = e.fill[c]
			}
			inst.Set(specs[c], r, base.PackFloatToBytes(v))
		}
		if y != nil && y[r] {
			inst.Set(classSpec, r, missing)
		} else {
			inst.Set(classSpec, r, observed)
		}
	}
	return inst, nil
}

// Labels reads the predicted missingness of every row of a prediction grid.
func Labels(grid base.FixedDataGrid) []bool {
	_, rows := grid.Size()
	out := make([]bool, rows)
	for r := range out {
		out[r] = base.GetClass(grid, r) == Missing
	}
	return out
}

// ColumnMeans returns the mean of the non-NaN cells of each column of X, or
// 0 for a column with none.
func ColumnMeans(X *engine.DesignMatrix) []float64 {
	out := make([]float64, X.Cols())
	for j := range out {
		var sum float64
		var n int
		for i := 0; i < X.Rows(); i++ {
			if v := X.At(i, j); !math.IsNaN(v) {
				sum += v
				n++
			}
		}
		if n > 0 {
			out[j] = sum / float64(n)
		}
	}
	return out
}

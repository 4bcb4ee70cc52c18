package engine

import (
	"fmt"

	"gonum.org/v1/gonum/mat"
)

// DesignMatrix is the predictor block assembled for one target column.
// Values are stored column-major; missing numeric and datetime cells are
// NaN.
type DesignMatrix struct {
	Target  string
	Columns []string
	Index   []int
	values  [][]float64
}

// NewDesignMatrix builds a matrix from columns of len(index) values each.
func NewDesignMatrix(target string, columns []string, index []int, values [][]float64) (*DesignMatrix, error) {
	if len(columns) != len(values) {
		return nil, fmt.Errorf("%w: %d column labels for %d columns", ErrValidation, len(columns), len(values))
	}
	d := &DesignMatrix{Target: target, Columns: append([]string(nil), columns...), Index: append([]int(nil), index...)}
	for j, v := range values {
		if len(v) != len(index) {
			return nil, fmt.Errorf("%w: column %s has %d values, index has %d", ErrValidation, columns[j], len(v), len(index))
		}
		d.values = append(d.values, append([]float64(nil), v...))
	}
	return d, nil
}

func (d *DesignMatrix) Rows() int { return len(d.Index) }
func (d *DesignMatrix) Cols() int { return len(d.Columns) }

func (d *DesignMatrix) At(i, j int) float64 { return d.values[j][i] }

// Column returns a copy of column j.
func (d *DesignMatrix) Column(j int) []float64 { return append([]float64(nil), d.values[j]...) }

// Align returns a matrix with exactly the given columns in that order.
// Columns d lacks are filled with zeros, which is what an indicator of a
// category absent from d would hold.
func (d *DesignMatrix) Align(columns []string) *DesignMatrix {
	pos := make(map[string]int, len(d.Columns))
	for j, c := range d.Columns {
		pos[c] = j
	}
	out := &DesignMatrix{Target: d.Target, Columns: append([]string(nil), columns...), Index: d.Index}
	for _, c := range columns {
		if j, ok := pos[c]; ok {
			out.values = append(out.values, d.values[j])
			continue
		}
		out.values = append(out.values, make([]float64, d.Rows()))
	}
	return out
}

// Dense returns the matrix as a gonum Dense. It returns nil when the matrix
// has no rows.
func (d *DesignMatrix) Dense() *mat.Dense {
	if d.Rows() == 0 || d.Cols() == 0 {
		return nil
	}
	m := mat.NewDense(d.Rows(), d.Cols(), nil)
	for j, col := range d.values {
		m.SetCol(j, col)
	}
	return m
}

// Assemble builds the design matrix for target and returns it with the
// target's missingness vector. Blocks are ordered numeric, dummy, datetime;
// each keeps declaration order. The target's own numeric column and dummy
// group are never included.
func (p *Prepared) Assemble(target string, preds map[string]Predictors) (*DesignMatrix, []bool, error) {
	if _, ok := p.groups.GroupOf(target); !ok {
		return nil, nil, fmt.Errorf("%w: column %q not in dataset", ErrValidation, target)
	}
	pr, ok := preds[target]
	if !ok {
		return nil, nil, fmt.Errorf("%w: no resolved predictors for %q", ErrValidation, target)
	}
	var allowed map[string]bool
	if pr.All {
		p.base.progress("no predictors given, using all columns", "target", target)
	} else {
		allowed = toSet(pr.Columns)
		p.base.progress("using columns as covariates", "target", target, "predictors", pr.String())
	}
	use := func(name string) bool { return name != target && (allowed == nil || allowed[name]) }

	d := &DesignMatrix{Target: target, Index: p.data.Index()}
	var numCols, dumCols, timeCols []string
	for j, n := range p.groups.Numeric {
		if use(n) {
			numCols = append(numCols, n)
			d.values = append(d.values, p.num[j])
		}
	}
	for j, n := range p.dummies.columns {
		if use(p.dummies.origin[n]) {
			dumCols = append(dumCols, n)
			d.values = append(d.values, p.dum[j])
		}
	}
	// A datetime target is not its own predictor either.
	for j, n := range p.groups.Datetime {
		if use(n) {
			timeCols = append(timeCols, n)
			d.values = append(d.values, p.tim[j])
		}
	}
	d.Columns = append(append(append(d.Columns, numCols...), dumCols...), timeCols...)
	if len(d.Columns) == 0 {
		return nil, nil, fmt.Errorf("%w: need at least one predictor column to fit %s", ErrData, target)
	}
	p.base.progress("columns used", "target", target,
		"numeric", numCols, "categorical", dumCols, "datetime", timeCols)

	y, err := p.Missing(target)
	if err != nil {
		return nil, nil, err
	}
	return d, y, nil
}

package series

import (
	"math"

	"github.com/virtualphoton/autoimpute/pkg/engine"
	"github.com/virtualphoton/autoimpute/pkg/frame"
	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat"
)

// LeastSquares fits an ordinary least squares regression with intercept of
// a numeric column on its design matrix. Rows whose predictors are not all
// observed are filled with the observed mean instead.
type LeastSquares struct {
	fitted  bool
	columns []string
	coef    []float64 // intercept first; nil when only the mean is usable
	mean    float64
}

func (l *LeastSquares) Strategy() string { return StrategyLeastSquares }

func (l *LeastSquares) Fit(X *engine.DesignMatrix, col frame.Column) error {
	if err := requireNumeric(StrategyLeastSquares, col); err != nil {
		return err
	}
	obs := observedFloats(col)
	if len(obs) == 0 {
		return noObserved(StrategyLeastSquares, col)
	}
	l.mean = stat.Mean(obs, nil)
	l.columns = append([]string(nil), X.Columns...)
	l.coef = nil
	l.fitted = true

	var rows []int
	for i := 0; i < X.Rows(); i++ {
		if _, ok := frame.Numeric(col, i); ok && completeRow(X, i) {
			rows = append(rows, i)
		}
	}
	p := X.Cols() + 1
	if len(rows) < p {
		return nil
	}
	A := mat.NewDense(len(rows), p, nil)
	b := mat.NewVecDense(len(rows), nil)
	for r, i := range rows {
		A.Set(r, 0, 1)
		for j := 0; j < X.Cols(); j++ {
			A.Set(r, j+1, X.At(i, j))
		}
		y, _ := frame.Numeric(col, i)
		b.SetVec(r, y)
	}
	var beta mat.VecDense
	if err := beta.SolveVec(A, b); err != nil {
		// rank deficient or ill-conditioned: keep the mean fallback
		return nil
	}
	l.coef = make([]float64, p)
	for j := range l.coef {
		l.coef[j] = beta.AtVec(j)
	}
	return nil
}

// Coefficients returns the intercept followed by one coefficient per design
// column, or nil when the fit fell back to the mean.
func (l *LeastSquares) Coefficients() []float64 { return append([]float64(nil), l.coef...) }

func (l *LeastSquares) Impute(X *engine.DesignMatrix, col frame.Column) (frame.Column, error) {
	if !l.fitted {
		return nil, notFitted(StrategyLeastSquares)
	}
	if err := requireNumeric(StrategyLeastSquares, col); err != nil {
		return nil, err
	}
	X = X.Align(l.columns)
	return fillEach(col, func(i int) (any, error) {
		if l.coef == nil {
			return numericValue(col, l.mean), nil
		}
		y := l.coef[0]
		for j := range l.columns {
			v := X.At(i, j)
			if math.IsNaN(v) {
				return numericValue(col, l.mean), nil
			}
			y += l.coef[j+1] * v
		}
		return numericValue(col, y), nil
	})
}

func completeRow(X *engine.DesignMatrix, i int) bool {
	for j := 0; j < X.Cols(); j++ {
		if math.IsNaN(X.At(i, j)) {
			return false
		}
	}
	return true
}

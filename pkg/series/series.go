// Package series implements single-column imputation strategies. Every
// imputer is fitted on a column and then fills the missing cells of a
// column of the same kind, returning a new column.
package series

import (
	"fmt"
	"math"
	"sort"

	"github.com/virtualphoton/autoimpute/pkg/engine"
	"github.com/virtualphoton/autoimpute/pkg/frame"
)

const (
	StrategyMean         = "mean"
	StrategyMedian       = "median"
	StrategyMode         = "mode"
	StrategyRandom       = "random"
	StrategyConstant     = "constant"
	StrategyLeastSquares = "least squares"
)

// Imputer fills a column from statistics of observed values.
type Imputer interface {
	Strategy() string
	Fit(col frame.Column) error
	Impute(col frame.Column) (frame.Column, error)
}

// Predictive fills a column from a design matrix of other columns.
type Predictive interface {
	Strategy() string
	Fit(X *engine.DesignMatrix, col frame.Column) error
	Impute(X *engine.DesignMatrix, col frame.Column) (frame.Column, error)
}

// IsPredictive reports whether a strategy needs a design matrix.
func IsPredictive(strategy string) bool { return strategy == StrategyLeastSquares }

// New returns an unfitted column imputer for strategy, configured from
// params.
func New(strategy string, params map[string]any) (Imputer, error) {
	switch strategy {
	case StrategyMean:
		return &Mean{}, noParams(strategy, params)
	case StrategyMedian:
		return &Median{}, noParams(strategy, params)
	case StrategyMode:
		return &Mode{}, noParams(strategy, params)
	case StrategyRandom:
		r := &Random{}
		for k, v := range params {
			if k != "seed" {
				return nil, unexpectedParam(strategy, k)
			}
			seed, ok := toInt64(v)
			if !ok {
				return nil, fmt.Errorf("%w: random seed must be an integer, got %T", engine.ErrConfiguration, v)
			}
			r.Seed = seed
		}
		return r, nil
	case StrategyConstant:
		c := &Constant{}
		for k, v := range params {
			if k != "value" {
				return nil, unexpectedParam(strategy, k)
			}
			c.Value = v
		}
		return c, nil
	default:
		return nil, fmt.Errorf("%w: %q is not a column imputation strategy", engine.ErrConfiguration, strategy)
	}
}

// NewPredictive returns an unfitted design-matrix imputer for strategy.
func NewPredictive(strategy string, params map[string]any) (Predictive, error) {
	if strategy != StrategyLeastSquares {
		return nil, fmt.Errorf("%w: %q is not a predictive strategy", engine.ErrConfiguration, strategy)
	}
	if err := noParams(strategy, params); err != nil {
		return nil, err
	}
	return &LeastSquares{}, nil
}

func noParams(strategy string, params map[string]any) error {
	for k := range params {
		return unexpectedParam(strategy, k)
	}
	return nil
}

func unexpectedParam(strategy, key string) error {
	return fmt.Errorf("%w: unexpected param %q for %s imputer", engine.ErrConfiguration, key, strategy)
}

func toInt64(v any) (int64, bool) {
	switch t := v.(type) {
	case int:
		return int64(t), true
	case int64:
		return t, true
	case uint64:
		return int64(t), true
	case float64:
		if t == math.Trunc(t) {
			return int64(t), true
		}
	}
	return 0, false
}

func notFitted(strategy string) error {
	return fmt.Errorf("%w: %s imputer is not fitted; call Fit first", engine.ErrState, strategy)
}

// requireNumeric rejects columns a numeric strategy cannot handle.
func requireNumeric(strategy string, col frame.Column) error {
	if !col.Kind().IsNumeric() {
		return fmt.Errorf("%w: %s imputation requires a numeric column, %s is %s",
			engine.ErrData, strategy, col.Name(), col.Kind())
	}
	return nil
}

// observedFloats returns the observed cells of a numeric column.
func observedFloats(col frame.Column) []float64 {
	out := make([]float64, 0, col.Len())
	for i := 0; i < col.Len(); i++ {
		if v, ok := frame.Numeric(col, i); ok {
			out = append(out, v)
		}
	}
	return out
}

func noObserved(strategy string, col frame.Column) error {
	return fmt.Errorf("%w: %s imputation needs at least one observed value in %s", engine.ErrData, strategy, col.Name())
}

// fillNumeric returns a copy of col with missing cells set to v. Int columns
// round to nearest.
func fillNumeric(col frame.Column, v float64) (frame.Column, error) {
	return fillEach(col, func(int) (any, error) { return numericValue(col, v), nil })
}

func numericValue(col frame.Column, v float64) any {
	if col.Kind() == frame.KindInt {
		return int64(math.Round(v))
	}
	return v
}

// fillEach returns a copy of col with each missing cell i set to next(i).
func fillEach(col frame.Column, next func(i int) (any, error)) (frame.Column, error) {
	out := col.Clone()
	for i := 0; i < out.Len(); i++ {
		if !out.IsNull(i) {
			continue
		}
		v, err := next(i)
		if err != nil {
			return nil, err
		}
		if err := out.SetValue(i, v); err != nil {
			return nil, fmt.Errorf("%w: %v", engine.ErrData, err)
		}
	}
	return out, nil
}

// distinct returns the observed values of col in first-seen order with
// their counts.
func distinct(col frame.Column) ([]any, map[any]int) {
	var order []any
	counts := map[any]int{}
	for i := 0; i < col.Len(); i++ {
		v := col.Value(i)
		if v == nil {
			continue
		}
		if _, seen := counts[v]; !seen {
			order = append(order, v)
		}
		counts[v]++
	}
	return order, counts
}

func median(vals []float64) float64 {
	s := append([]float64(nil), vals...)
	sort.Float64s(s)
	mid := len(s) / 2
	if len(s)%2 == 0 {
		return (s[mid-1] + s[mid]) / 2
	}
	return s[mid]
}

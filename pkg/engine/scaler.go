package engine

import (
	"fmt"
	"math"
	"strings"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat"
)

// Scaler fits a normalizer to a block of columns. Every call to Fit must
// return an independent FittedScaler.
type Scaler interface {
	Fit(X mat.Matrix) (FittedScaler, error)
}

// FittedScaler applies a fitted normalization.
type FittedScaler interface {
	Transform(X mat.Matrix) (*mat.Dense, error)
}

// ScalerByName returns a built-in scaler: "standard" or "minmax".
func ScalerByName(name string) (Scaler, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "standard":
		return StandardScaler{}, nil
	case "minmax":
		return MinMaxScaler{}, nil
	default:
		return nil, fmt.Errorf("%w: unknown scaler %q (want standard or minmax)", ErrConfiguration, name)
	}
}

// observed returns the non-NaN values of column j.
func observed(X mat.Matrix, j int) []float64 {
	r, _ := X.Dims()
	out := make([]float64, 0, r)
	for i := 0; i < r; i++ {
		if v := X.At(i, j); !math.IsNaN(v) {
			out = append(out, v)
		}
	}
	return out
}

// affine is a per-column (x - shift) / scale transform. NaN cells stay NaN.
type affine struct {
	shift []float64
	scale []float64
}

func (a affine) Transform(X mat.Matrix) (*mat.Dense, error) {
	r, c := X.Dims()
	if c != len(a.shift) {
		return nil, fmt.Errorf("%w: scaler fitted on %d columns, got %d", ErrData, len(a.shift), c)
	}
	out := mat.NewDense(r, c, nil)
	for i := 0; i < r; i++ {
		for j := 0; j < c; j++ {
			out.Set(i, j, (X.At(i, j)-a.shift[j])/a.scale[j])
		}
	}
	return out, nil
}

// StandardScaler centers each column on its mean and divides by the
// population standard deviation. Constant columns are only centered.
type StandardScaler struct{}

func (StandardScaler) Fit(X mat.Matrix) (FittedScaler, error) {
	_, c := X.Dims()
	a := affine{shift: make([]float64, c), scale: make([]float64, c)}
	for j := 0; j < c; j++ {
		a.scale[j] = 1
		obs := observed(X, j)
		if len(obs) == 0 {
			continue
		}
		mean, variance := stat.PopMeanVariance(obs, nil)
		a.shift[j] = mean
		if sd := math.Sqrt(variance); sd > 0 {
			a.scale[j] = sd
		}
	}
	return a, nil
}

// MinMaxScaler maps each column onto [0, 1].
type MinMaxScaler struct{}

func (MinMaxScaler) Fit(X mat.Matrix) (FittedScaler, error) {
	_, c := X.Dims()
	a := affine{shift: make([]float64, c), scale: make([]float64, c)}
	for j := 0; j < c; j++ {
		a.scale[j] = 1
		obs := observed(X, j)
		if len(obs) == 0 {
			continue
		}
		lo, hi := floats.Min(obs), floats.Max(obs)
		a.shift[j] = lo
		if hi > lo {
			a.scale[j] = hi - lo
		}
	}
	return a, nil
}

// ScalerAdapter applies a Scaler to column-major blocks. Each block gets its
// own fitted state.
type ScalerAdapter struct {
	scaler Scaler
}

func NewScalerAdapter(s Scaler) (*ScalerAdapter, error) {
	if s == nil {
		return nil, fmt.Errorf("%w: scaler must implement Fit and Transform", ErrConfiguration)
	}
	return &ScalerAdapter{scaler: s}, nil
}

// Fit fits the scaler to a block given as columns of equal length. It
// returns nil for an empty block.
func (a *ScalerAdapter) Fit(cols [][]float64) (FittedScaler, error) {
	X := blockMatrix(cols)
	if X == nil {
		return nil, nil
	}
	fitted, err := a.scaler.Fit(X)
	if err != nil {
		return nil, fmt.Errorf("scaler fit: %w", err)
	}
	return fitted, nil
}

// FitTransform scales a block given as columns of equal length and returns
// the scaled columns. Empty blocks are returned unchanged.
func (a *ScalerAdapter) FitTransform(cols [][]float64) ([][]float64, error) {
	fitted, err := a.Fit(cols)
	if err != nil {
		return nil, err
	}
	return ScaleBlock(fitted, cols)
}

// ScaleBlock applies a fitted scaler to a block. A nil scaler or an empty
// block returns cols unchanged.
func ScaleBlock(fitted FittedScaler, cols [][]float64) ([][]float64, error) {
	X := blockMatrix(cols)
	if fitted == nil || X == nil {
		return cols, nil
	}
	out, err := fitted.Transform(X)
	if err != nil {
		return nil, fmt.Errorf("scaler transform: %w", err)
	}
	scaled := make([][]float64, len(cols))
	for j := range scaled {
		scaled[j] = mat.Col(nil, j, out)
	}
	return scaled, nil
}

func blockMatrix(cols [][]float64) *mat.Dense {
	if len(cols) == 0 || len(cols[0]) == 0 {
		return nil
	}
	X := mat.NewDense(len(cols[0]), len(cols), nil)
	for j, col := range cols {
		X.SetCol(j, col)
	}
	return X
}

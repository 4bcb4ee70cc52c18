package imputer

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/sjwhitworth/golearn/knn"

	adapter "github.com/virtualphoton/autoimpute/adapters/golearn"
	"github.com/virtualphoton/autoimpute/pkg/engine"
	"github.com/virtualphoton/autoimpute/pkg/frame"
)

const DefaultNeighbors = 5

// MissingSuffix is appended to a column name to label its predicted
// missingness.
const MissingSuffix = "_mis"

type ClassifierConfig struct {
	// Predictors defaults to every other column.
	Predictors engine.PredictorSpec
	// Neighbors is the k of the nearest-neighbour classifier. Zero means
	// DefaultNeighbors.
	Neighbors int
}

// MissingnessClassifier predicts, for each column, whether a cell is
// missing from the values of the other columns.
type MissingnessClassifier struct {
	base *engine.Base
	cfg  ClassifierConfig

	fitted     bool
	schema     frame.Schema
	prep       *engine.Prepared
	predictors map[string]engine.Predictors
	models     map[string]*missingnessModel
}

type missingnessModel struct {
	// constant holds the answer for columns that were always or never missing.
	constant *bool
	encoder  *adapter.Encoder
	knn      *knn.KNNClassifier
}

func NewMissingnessClassifier(cfg ClassifierConfig, opts ...engine.Option) (*MissingnessClassifier, error) {
	if cfg.Predictors.IsZero() {
		cfg.Predictors = engine.All()
	}
	if cfg.Neighbors == 0 {
		cfg.Neighbors = DefaultNeighbors
	}
	if cfg.Neighbors < 0 {
		return nil, fmt.Errorf("%w: neighbors must be positive, got %d", engine.ErrConfiguration, cfg.Neighbors)
	}
	b, err := engine.New(opts...)
	if err != nil {
		return nil, err
	}
	return &MissingnessClassifier{base: b, cfg: cfg}, nil
}

func (m *MissingnessClassifier) Name() string { return "missingness_classifier" }

// Fit trains one classifier per column on f's missingness mask.
func (m *MissingnessClassifier) Fit(ctx context.Context, f *frame.Frame) error {
	prep, err := m.base.Prepare(f)
	if err != nil {
		return err
	}
	preds, err := engine.ResolvePredictors(m.cfg.Predictors, prep.Columns())
	if err != nil {
		return err
	}
	m.fitted = false
	m.schema = f.Schema()
	m.prep = prep
	m.predictors = preds
	m.models = make(map[string]*missingnessModel, f.Cols())
	for _, name := range prep.Columns() {
		if err := ctx.Err(); err != nil {
			return err
		}
		X, y, err := prep.Assemble(name, preds)
		if err != nil {
			return err
		}
		model := &missingnessModel{}
		if c, ok := constantLabel(y); ok {
			model.constant = &c
			m.models[name] = model
			m.base.Logger().Debug("constant missingness, not fitting", slog.String("column", name), slog.Bool("missing", c))
			continue
		}
		model.encoder, err = adapter.NewEncoder(name, X.Columns, adapter.ColumnMeans(X))
		if err != nil {
			return err
		}
		train, err := model.encoder.ToDenseInstances(X, y)
		if err != nil {
			return fmt.Errorf("encode %s: %w", name, err)
		}
		k := m.cfg.Neighbors
		if k > X.Rows() {
			k = X.Rows()
		}
		model.knn = knn.NewKnnClassifier("euclidean", "linear", k)
		if err := model.knn.Fit(train); err != nil {
			return fmt.Errorf("fit classifier for %s: %w", name, err)
		}
		m.models[name] = model
		m.base.Logger().Debug("fitted missingness classifier", slog.String("column", name), slog.Int("neighbors", k))
	}
	m.fitted = true
	return nil
}

// Predict returns one int column per column of f, named with MissingSuffix,
// holding 1 where the cell is predicted missing. The result keeps f's index.
func (m *MissingnessClassifier) Predict(ctx context.Context, f *frame.Frame) (*frame.Frame, error) {
	if !m.fitted {
		return nil, fmt.Errorf("%w: missingness classifier is not fitted; call Fit first", engine.ErrState)
	}
	if err := sameSchema(m.schema, f.Schema()); err != nil {
		return nil, err
	}
	prep, err := m.prep.Apply(f)
	if err != nil {
		return nil, err
	}
	cols := make([]frame.Column, 0, f.Cols())
	for _, name := range f.Names() {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		labels, err := m.predictColumn(prep, name, f.Rows())
		if err != nil {
			return nil, err
		}
		out := frame.NewIntColumn(name+MissingSuffix, f.Rows())
		for i, missing := range labels {
			if missing {
				out.Set(i, 1)
			} else {
				out.Set(i, 0)
			}
		}
		cols = append(cols, out)
	}
	res, err := frame.FromColumns(cols...)
	if err != nil {
		return nil, err
	}
	if err := res.SetIndex(f.Index()); err != nil {
		return nil, err
	}
	return res, nil
}

func (m *MissingnessClassifier) predictColumn(prep *engine.Prepared, name string, rows int) ([]bool, error) {
	model := m.models[name]
	if model.constant != nil {
		out := make([]bool, rows)
		for i := range out {
			out[i] = *model.constant
		}
		return out, nil
	}
	X, _, err := prep.Assemble(name, m.predictors)
	if err != nil {
		return nil, err
	}
	grid, err := model.encoder.ToDenseInstances(X, nil)
	if err != nil {
		return nil, fmt.Errorf("encode %s: %w", name, err)
	}
	pred, err := model.knn.Predict(grid)
	if err != nil {
		return nil, fmt.Errorf("predict missingness of %s: %w", name, err)
	}
	return adapter.Labels(pred), nil
}

func (m *MissingnessClassifier) FitPredict(ctx context.Context, f *frame.Frame) (*frame.Frame, error) {
	if err := m.Fit(ctx, f); err != nil {
		return nil, err
	}
	return m.Predict(ctx, f)
}

func constantLabel(y []bool) (bool, bool) {
	if len(y) == 0 {
		return false, true
	}
	for _, v := range y[1:] {
		if v != y[0] {
			return false, false
		}
	}
	return y[0], true
}

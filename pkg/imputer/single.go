// Package imputer fits imputation models across every column of a frame.
package imputer

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/virtualphoton/autoimpute/pkg/engine"
	"github.com/virtualphoton/autoimpute/pkg/frame"
	"github.com/virtualphoton/autoimpute/pkg/series"
)

// StrategyDefault picks mean for numeric columns and mode for the rest.
const StrategyDefault = "default"

// SingleStrategies is the set of strategies a Single imputer accepts.
var SingleStrategies = []string{
	StrategyDefault,
	series.StrategyMean,
	series.StrategyMedian,
	series.StrategyMode,
	series.StrategyRandom,
	series.StrategyConstant,
	series.StrategyLeastSquares,
}

type SingleConfig struct {
	// Strategy defaults to StrategyDefault for every column.
	Strategy engine.StrategySpec
	// Predictors defaults to every other column. Only predictive strategies
	// use them.
	Predictors engine.PredictorSpec
}

// Single imputes every column once with its own strategy.
type Single struct {
	base *engine.Base
	cfg  SingleConfig

	fitted     bool
	schema     frame.Schema
	prep       *engine.Prepared
	strategies map[string]string
	imputers   map[string]series.Imputer
	predictive map[string]series.Predictive
	predictors map[string]engine.Predictors
}

// NewSingle validates the configured strategies against SingleStrategies
// before any data is seen.
func NewSingle(cfg SingleConfig, opts ...engine.Option) (*Single, error) {
	if cfg.Strategy.IsZero() {
		cfg.Strategy = engine.SingleStrategy(StrategyDefault)
	}
	if cfg.Predictors.IsZero() {
		cfg.Predictors = engine.All()
	}
	if err := engine.CheckStrategies(cfg.Strategy, SingleStrategies); err != nil {
		return nil, err
	}
	b, err := engine.New(opts...)
	if err != nil {
		return nil, err
	}
	return &Single{base: b, cfg: cfg}, nil
}

func (s *Single) Name() string { return "single_imputer" }

// Strategies returns the strategy fitted for each column, with defaults
// already resolved.
func (s *Single) Strategies() map[string]string {
	out := make(map[string]string, len(s.strategies))
	for k, v := range s.strategies {
		out[k] = v
	}
	return out
}

// Fit learns one imputer per column of f.
func (s *Single) Fit(ctx context.Context, f *frame.Frame) error {
	prep, err := s.base.Prepare(f)
	if err != nil {
		return err
	}
	cols := prep.Columns()
	strategies, err := engine.ResolveStrategies(s.cfg.Strategy, SingleStrategies, cols)
	if err != nil {
		return err
	}
	preds, err := engine.ResolvePredictors(s.cfg.Predictors, cols)
	if err != nil {
		return err
	}

	s.fitted = false
	s.schema = f.Schema()
	s.prep = prep
	s.strategies = make(map[string]string, len(cols))
	s.imputers = map[string]series.Imputer{}
	s.predictive = map[string]series.Predictive{}
	s.predictors = preds
	log := s.base.Logger()
	for i, name := range cols {
		if err := ctx.Err(); err != nil {
			return err
		}
		col := f.Column(i)
		strategy, ok := strategies[name]
		if !ok || strategy == StrategyDefault {
			strategy = defaultStrategy(col.Kind())
		}
		s.strategies[name] = strategy
		params := s.base.Params(name, strategy)

		if series.IsPredictive(strategy) {
			p, err := series.NewPredictive(strategy, params)
			if err != nil {
				return fmt.Errorf("column %s: %w", name, err)
			}
			X, _, err := prep.Assemble(name, preds)
			if err != nil {
				return err
			}
			if err := p.Fit(X, col); err != nil {
				return fmt.Errorf("fit %s with %s: %w", name, strategy, err)
			}
			s.predictive[name] = p
		} else {
			imp, err := series.New(strategy, params)
			if err != nil {
				return fmt.Errorf("column %s: %w", name, err)
			}
			if err := imp.Fit(col); err != nil {
				return fmt.Errorf("fit %s with %s: %w", name, strategy, err)
			}
			s.imputers[name] = imp
		}
		log.Debug("fitted column", slog.String("column", name), slog.String("strategy", strategy))
	}
	s.fitted = true
	return nil
}

// Transform returns a copy of f with every missing cell imputed. f must have
// the columns seen by Fit. Predictive strategies see f encoded and scaled the
// way the fit data was.
func (s *Single) Transform(ctx context.Context, f *frame.Frame) (*frame.Frame, error) {
	if !s.fitted {
		return nil, fmt.Errorf("%w: single imputer is not fitted; call Fit first", engine.ErrState)
	}
	if err := sameSchema(s.schema, f.Schema()); err != nil {
		return nil, err
	}
	var prep *engine.Prepared
	if len(s.predictive) > 0 {
		var err error
		if prep, err = s.prep.Apply(f); err != nil {
			return nil, err
		}
	}
	out := f.Clone()
	for i, name := range f.Names() {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		col := f.Column(i)
		if frame.NullCount(col) == 0 {
			continue
		}
		var (
			filled frame.Column
			err    error
		)
		if p, ok := s.predictive[name]; ok {
			X, _, aerr := prep.Assemble(name, s.predictors)
			if aerr != nil {
				return nil, aerr
			}
			filled, err = p.Impute(X, col)
		} else {
			filled, err = s.imputers[name].Impute(col)
		}
		if err != nil {
			return nil, fmt.Errorf("impute %s: %w", name, err)
		}
		if err := out.Replace(filled); err != nil {
			return nil, err
		}
	}
	return out, nil
}

func (s *Single) FitTransform(ctx context.Context, f *frame.Frame) (*frame.Frame, error) {
	if err := s.Fit(ctx, f); err != nil {
		return nil, err
	}
	return s.Transform(ctx, f)
}

// Apply fits on the first frame it sees and transforms every frame, so a
// Single can sit in a frame.Pipeline or run over chunks.
func (s *Single) Apply(ctx context.Context, f *frame.Frame) (*frame.Frame, error) {
	if !s.fitted {
		if err := s.Fit(ctx, f); err != nil {
			return nil, err
		}
	}
	return s.Transform(ctx, f)
}

func defaultStrategy(k frame.Kind) string {
	if k.IsNumeric() {
		return series.StrategyMean
	}
	return series.StrategyMode
}

func sameSchema(fitted, got frame.Schema) error {
	if len(fitted.Columns) != len(got.Columns) {
		return fmt.Errorf("%w: fitted on %d columns, got %d", engine.ErrValidation, len(fitted.Columns), len(got.Columns))
	}
	for i, c := range fitted.Columns {
		g := got.Columns[i]
		if c.Name != g.Name || c.Type != g.Type {
			return fmt.Errorf("%w: column %d is %s (%s), fitted on %s (%s)",
				engine.ErrValidation, i, g.Name, g.Type, c.Name, c.Type)
		}
	}
	return nil
}

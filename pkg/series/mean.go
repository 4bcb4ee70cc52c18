package series

import (
	"github.com/virtualphoton/autoimpute/pkg/frame"
	"gonum.org/v1/gonum/stat"
)

// Mean fills missing cells with the mean of the observed cells.
type Mean struct {
	fitted bool
	mean   float64
}

func (m *Mean) Strategy() string { return StrategyMean }

func (m *Mean) Fit(col frame.Column) error {
	if err := requireNumeric(StrategyMean, col); err != nil {
		return err
	}
	obs := observedFloats(col)
	if len(obs) == 0 {
		return noObserved(StrategyMean, col)
	}
	m.mean = stat.Mean(obs, nil)
	m.fitted = true
	return nil
}

// Statistic returns the fitted mean.
func (m *Mean) Statistic() float64 { return m.mean }

func (m *Mean) Impute(col frame.Column) (frame.Column, error) {
	if !m.fitted {
		return nil, notFitted(StrategyMean)
	}
	if err := requireNumeric(StrategyMean, col); err != nil {
		return nil, err
	}
	return fillNumeric(col, m.mean)
}

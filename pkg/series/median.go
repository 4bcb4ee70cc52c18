package series

import "github.com/virtualphoton/autoimpute/pkg/frame"

// Median fills missing cells with the median of the observed cells. An even
// number of observations averages the middle pair.
type Median struct {
	fitted bool
	median float64
}

func (m *Median) Strategy() string { return StrategyMedian }

func (m *Median) Fit(col frame.Column) error {
	if err := requireNumeric(StrategyMedian, col); err != nil {
		return err
	}
	obs := observedFloats(col)
	if len(obs) == 0 {
		return noObserved(StrategyMedian, col)
	}
	m.median = median(obs)
	m.fitted = true
	return nil
}

func (m *Median) Statistic() float64 { return m.median }

func (m *Median) Impute(col frame.Column) (frame.Column, error) {
	if !m.fitted {
		return nil, notFitted(StrategyMedian)
	}
	if err := requireNumeric(StrategyMedian, col); err != nil {
		return nil, err
	}
	return fillNumeric(col, m.median)
}

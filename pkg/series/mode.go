package series

import (
	"fmt"

	"github.com/virtualphoton/autoimpute/pkg/engine"
	"github.com/virtualphoton/autoimpute/pkg/frame"
)

// Mode fills missing cells with the most frequent observed value. Ties go to
// the value seen first.
type Mode struct {
	fitted bool
	kind   frame.Kind
	mode   any
}

func (m *Mode) Strategy() string { return StrategyMode }

func (m *Mode) Fit(col frame.Column) error {
	order, counts := distinct(col)
	if len(order) == 0 {
		return noObserved(StrategyMode, col)
	}
	best, bestc := order[0], counts[order[0]]
	for _, v := range order[1:] {
		if counts[v] > bestc {
			best, bestc = v, counts[v]
		}
	}
	m.mode, m.kind, m.fitted = best, col.Kind(), true
	return nil
}

func (m *Mode) Statistic() any { return m.mode }

func (m *Mode) Impute(col frame.Column) (frame.Column, error) {
	if !m.fitted {
		return nil, notFitted(StrategyMode)
	}
	if col.Kind() != m.kind {
		return nil, fmt.Errorf("%w: mode fitted on %s column, %s is %s", engine.ErrData, m.kind, col.Name(), col.Kind())
	}
	return fillEach(col, func(int) (any, error) { return m.mode, nil })
}

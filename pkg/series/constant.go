package series

import (
	"fmt"
	"time"

	"github.com/virtualphoton/autoimpute/pkg/engine"
	"github.com/virtualphoton/autoimpute/pkg/frame"
)

// Constant fills missing cells with Value, coerced to the column kind. A nil
// Value fills numeric columns with 0, text with "missing" and booleans with
// false.
type Constant struct {
	Value any

	fitted bool
	fill   any
}

func (c *Constant) Strategy() string { return StrategyConstant }

func (c *Constant) Fit(col frame.Column) error {
	v, err := coerce(c.Value, col.Kind())
	if err != nil {
		return fmt.Errorf("%w: constant for %s: %v", engine.ErrData, col.Name(), err)
	}
	c.fill, c.fitted = v, true
	return nil
}

func (c *Constant) Impute(col frame.Column) (frame.Column, error) {
	if !c.fitted {
		return nil, notFitted(StrategyConstant)
	}
	return fillEach(col, func(int) (any, error) { return c.fill, nil })
}

func coerce(v any, k frame.Kind) (any, error) {
	if v == nil {
		switch k {
		case frame.KindInt:
			return int64(0), nil
		case frame.KindFloat:
			return 0.0, nil
		case frame.KindString:
			return "missing", nil
		case frame.KindBool:
			return false, nil
		default:
			return nil, fmt.Errorf("no default fill value for %s columns", k)
		}
	}
	switch k {
	case frame.KindInt:
		if i, ok := toInt64(v); ok {
			return i, nil
		}
	case frame.KindFloat:
		switch t := v.(type) {
		case float64:
			return t, nil
		case int:
			return float64(t), nil
		case int64:
			return float64(t), nil
		}
	case frame.KindString:
		if s, ok := v.(string); ok {
			return s, nil
		}
		return fmt.Sprint(v), nil
	case frame.KindBool:
		if b, ok := v.(bool); ok {
			return b, nil
		}
	case frame.KindTime:
		switch t := v.(type) {
		case time.Time:
			return t, nil
		case string:
			return time.Parse(time.RFC3339, t)
		}
	}
	return nil, fmt.Errorf("cannot use %v (%T) for a %s column", v, v, k)
}

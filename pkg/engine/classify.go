package engine

import (
	"fmt"

	"github.com/virtualphoton/autoimpute/pkg/frame"
)

// Group identifies one of the three column groups.
type Group int

const (
	GroupNumeric Group = iota + 1
	GroupCategorical
	GroupDatetime
)

func (g Group) String() string {
	switch g {
	case GroupNumeric:
		return "numeric"
	case GroupCategorical:
		return "categorical"
	case GroupDatetime:
		return "datetime"
	default:
		return "unknown"
	}
}

// ColumnGroups partitions a dataset's columns. Each column appears in
// exactly one group; each group keeps declaration order.
type ColumnGroups struct {
	Numeric     []string
	Categorical []string
	Datetime    []string

	of map[string]Group
}

// Classify partitions the columns of f into numeric, categorical and
// datetime groups. Int and float columns are numeric, time columns are
// datetime and everything else (text, booleans) is categorical.
func Classify(f *frame.Frame) (ColumnGroups, error) {
	if f == nil || f.Cols() == 0 {
		return ColumnGroups{}, fmt.Errorf("%w: dataset has no columns", ErrValidation)
	}
	g := ColumnGroups{of: make(map[string]Group, f.Cols())}
	for _, cs := range f.Schema().Columns {
		grp := KindGroup(cs.Type)
		switch grp {
		case GroupNumeric:
			g.Numeric = append(g.Numeric, cs.Name)
		case GroupDatetime:
			g.Datetime = append(g.Datetime, cs.Name)
		default:
			g.Categorical = append(g.Categorical, cs.Name)
		}
		g.of[cs.Name] = grp
	}
	return g, nil
}

// KindGroup returns the group a column of kind k belongs to.
func KindGroup(k frame.Kind) Group {
	switch {
	case k.IsNumeric():
		return GroupNumeric
	case k == frame.KindTime:
		return GroupDatetime
	default:
		return GroupCategorical
	}
}

// GroupOf returns the group a column was classified into.
func (g ColumnGroups) GroupOf(name string) (Group, bool) {
	grp, ok := g.of[name]
	return grp, ok
}

func (g ColumnGroups) Len() int { return len(g.Numeric) + len(g.Categorical) + len(g.Datetime) }

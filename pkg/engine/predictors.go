package engine

import (
	"fmt"
	"strings"
)

// AllPredictors is the marker for "use every other column".
const AllPredictors = "all"

// PredictorSpec declares which columns may predict each target: a single
// name (a column or AllPredictors), a list of columns, or a per-column
// mapping of either.
type PredictorSpec struct {
	kind     specKind
	name     string
	list     []string
	byColumn map[string]PredictorSpec
}

func Named(name string) PredictorSpec { return PredictorSpec{kind: kindSingle, name: name} }

func All() PredictorSpec { return Named(AllPredictors) }

func List(cols ...string) PredictorSpec {
	return PredictorSpec{kind: kindPerPosition, list: append([]string(nil), cols...)}
}

func PredictorsPerColumn(m map[string]PredictorSpec) PredictorSpec {
	cp := make(map[string]PredictorSpec, len(m))
	for k, v := range m {
		cp[k] = v
	}
	return PredictorSpec{kind: kindPerColumn, byColumn: cp}
}

func (p PredictorSpec) IsZero() bool { return p.kind == 0 }

const predictorShapes = "predictors must be a string, a list, or a mapping of column to string or list"

// ParsePredictorSpec converts a decoded configuration value into a
// PredictorSpec. A nil value means AllPredictors.
func ParsePredictorSpec(v any) (PredictorSpec, error) {
	if v == nil {
		return All(), nil
	}
	if m, ok := v.(map[string]any); ok {
		out := make(map[string]PredictorSpec, len(m))
		for k, e := range m {
			switch e.(type) {
			case string, []string, []any:
			default:
				return PredictorSpec{}, fmt.Errorf("%w: values in predictor must be str, list, or tuple (got %T for %q)", ErrValidation, e, k)
			}
			ps, err := ParsePredictorSpec(e)
			if err != nil {
				return PredictorSpec{}, err
			}
			out[k] = ps
		}
		return PredictorsPerColumn(out), nil
	}
	switch t := v.(type) {
	case PredictorSpec:
		return t, nil
	case string:
		return Named(t), nil
	case []string:
		return List(t...), nil
	case []any:
		list := make([]string, len(t))
		for i, e := range t {
			s, ok := e.(string)
			if !ok {
				return PredictorSpec{}, fmt.Errorf("%w: %s, got %T at position %d", ErrConfiguration, predictorShapes, e, i)
			}
			list[i] = s
		}
		return List(list...), nil
	case map[string]string:
		out := make(map[string]PredictorSpec, len(t))
		for k, s := range t {
			out[k] = Named(s)
		}
		return PredictorsPerColumn(out), nil
	case map[string][]string:
		out := make(map[string]PredictorSpec, len(t))
		for k, s := range t {
			out[k] = List(s...)
		}
		return PredictorsPerColumn(out), nil
	default:
		return PredictorSpec{}, fmt.Errorf("%w: %s, got %T", ErrConfiguration, predictorShapes, v)
	}
}

// Predictors is the resolved predictor set of one target column.
type Predictors struct {
	All     bool
	Columns []string
}

func (p Predictors) String() string {
	if p.All {
		return AllPredictors
	}
	return "[" + strings.Join(p.Columns, ", ") + "]"
}

// ResolvePredictors validates spec against columns and returns a new mapping
// with an entry for every column. Columns a per-column spec leaves out use
// every other column.
func ResolvePredictors(spec PredictorSpec, columns []string) (map[string]Predictors, error) {
	known := toSet(columns)
	out := make(map[string]Predictors, len(columns))
	switch spec.kind {
	case kindSingle, kindPerPosition:
		p, err := resolveOne(spec, known, "")
		if err != nil {
			return nil, err
		}
		for _, c := range columns {
			out[c] = p.clone()
		}
	case kindPerColumn:
		bad := map[string]bool{}
		for k := range spec.byColumn {
			if !known[k] {
				bad[k] = true
			}
		}
		if len(bad) > 0 {
			return nil, fmt.Errorf("%w: keys of predictors and column names must match; ill-specified keys: %v",
				ErrValidation, sortedSet(bad))
		}
		for _, k := range sortedKeys(spec.byColumn) {
			p, err := resolveOne(spec.byColumn[k], known, k)
			if err != nil {
				return nil, err
			}
			out[k] = p
		}
		for _, c := range columns {
			if _, ok := out[c]; !ok {
				out[c] = Predictors{All: true}
			}
		}
	default:
		return nil, fmt.Errorf("%w: %s", ErrConfiguration, predictorShapes)
	}
	return out, nil
}

func resolveOne(spec PredictorSpec, known map[string]bool, target string) (Predictors, error) {
	scope := ""
	if target != "" {
		scope = " for " + target
	}
	switch spec.kind {
	case kindSingle:
		if spec.name == AllPredictors {
			return Predictors{All: true}, nil
		}
		if !known[spec.name] {
			return Predictors{}, fmt.Errorf("%w: predictor %q%s must be a valid column; to use all columns, set predictors to %q",
				ErrValidation, spec.name, scope, AllPredictors)
		}
		return Predictors{Columns: []string{spec.name}}, nil
	case kindPerPosition:
		var bad []string
		for _, p := range spec.list {
			if !known[p] {
				bad = append(bad, p)
			}
		}
		if len(bad) > 0 {
			return Predictors{}, fmt.Errorf("%w: %v in predictors%s not a valid column", ErrValidation, bad, scope)
		}
		return Predictors{Columns: append([]string(nil), spec.list...)}, nil
	default:
		return Predictors{}, fmt.Errorf("%w: values in predictor must be str, list, or tuple%s", ErrValidation, scope)
	}
}

func (p Predictors) clone() Predictors {
	return Predictors{All: p.All, Columns: append([]string(nil), p.Columns...)}
}

package engine

import (
	"fmt"
	"sort"
	"strings"
)

type specKind int

const (
	kindSingle specKind = iota + 1
	kindPerPosition
	kindPerColumn
)

// StrategySpec is a caller-supplied strategy declaration in one of three
// shapes: a single strategy for every column, one strategy per column
// position, or strategies keyed by column name.
type StrategySpec struct {
	kind     specKind
	single   string
	list     []string
	byColumn map[string]string
}

func SingleStrategy(s string) StrategySpec { return StrategySpec{kind: kindSingle, single: s} }

func PerPosition(s ...string) StrategySpec {
	return StrategySpec{kind: kindPerPosition, list: append([]string(nil), s...)}
}

func PerColumn(m map[string]string) StrategySpec {
	cp := make(map[string]string, len(m))
	for k, v := range m {
		cp[k] = v
	}
	return StrategySpec{kind: kindPerColumn, byColumn: cp}
}

// IsPerColumn reports whether s names strategies by column. Such
// specs may leave columns out; callers default them.
func (s StrategySpec) IsPerColumn() bool { return s.kind == kindPerColumn }

func (s StrategySpec) IsZero() bool { return s.kind == 0 }

func (s StrategySpec) String() string {
	switch s.kind {
	case kindSingle:
		return s.single
	case kindPerPosition:
		return "[" + strings.Join(s.list, ", ") + "]"
	case kindPerColumn:
		keys := sortedKeys(s.byColumn)
		parts := make([]string, len(keys))
		for i, k := range keys {
			parts[i] = k + ": " + s.byColumn[k]
		}
		return "{" + strings.Join(parts, ", ") + "}"
	default:
		return "<unset>"
	}
}

const strategyShapes = "strategy must be a string, a list, or a mapping of column to string"

// ParseStrategySpec converts a decoded configuration value into a
// StrategySpec.
func ParseStrategySpec(v any) (StrategySpec, error) {
	switch t := v.(type) {
	case StrategySpec:
		return t, nil
	case string:
		return SingleStrategy(t), nil
	case []string:
		return PerPosition(t...), nil
	case []any:
		list := make([]string, len(t))
		for i, e := range t {
			s, ok := e.(string)
			if !ok {
				return StrategySpec{}, fmt.Errorf("%w: %s, got %T at position %d", ErrConfiguration, strategyShapes, e, i)
			}
			list[i] = s
		}
		return PerPosition(list...), nil
	case map[string]string:
		return PerColumn(t), nil
	case map[string]any:
		m := make(map[string]string, len(t))
		for k, e := range t {
			s, ok := e.(string)
			if !ok {
				return StrategySpec{}, fmt.Errorf("%w: %s, got %T for %q", ErrConfiguration, strategyShapes, e, k)
			}
			m[k] = s
		}
		return PerColumn(m), nil
	default:
		return StrategySpec{}, fmt.Errorf("%w: %s, got %T", ErrConfiguration, strategyShapes, v)
	}
}

// CheckStrategies verifies that every strategy named by spec is in allowed.
// It does not look at any data.
func CheckStrategies(spec StrategySpec, allowed []string) error {
	ok := make(map[string]bool, len(allowed))
	for _, a := range allowed {
		ok[a] = true
	}
	var named []string
	switch spec.kind {
	case kindSingle:
		if !ok[spec.single] {
			return fmt.Errorf("%w: strategy %q not a valid imputation method; strategies must be one of %v",
				ErrValidation, spec.single, allowed)
		}
		return nil
	case kindPerPosition:
		named = spec.list
	case kindPerColumn:
		for _, v := range spec.byColumn {
			named = append(named, v)
		}
	default:
		return fmt.Errorf("%w: %s", ErrConfiguration, strategyShapes)
	}
	bad := map[string]bool{}
	for _, s := range named {
		if !ok[s] {
			bad[s] = true
		}
	}
	if len(bad) > 0 {
		return fmt.Errorf("%w: strategies %v in %s not valid imputation; strategies must be one of %v",
			ErrValidation, sortedSet(bad), spec, allowed)
	}
	return nil
}

// ResolveStrategies maps columns to strategies. Single and per-position specs
// cover every column. A per-column spec is returned as given (copied) after
// checking its keys; columns it omits are absent from the result.
//
// A strategy is never checked against the data type of its column here.
func ResolveStrategies(spec StrategySpec, allowed []string, columns []string) (map[string]string, error) {
	if err := CheckStrategies(spec, allowed); err != nil {
		return nil, err
	}
	out := make(map[string]string, len(columns))
	switch spec.kind {
	case kindSingle:
		for _, c := range columns {
			out[c] = spec.single
		}
	case kindPerPosition:
		if len(spec.list) != len(columns) {
			return nil, fmt.Errorf("%w: length of columns not equal to number of strategies (columns: %d, strategies: %d)",
				ErrValidation, len(columns), len(spec.list))
		}
		for i, c := range columns {
			out[c] = spec.list[i]
		}
	case kindPerColumn:
		known := toSet(columns)
		bad := map[string]bool{}
		for k, v := range spec.byColumn {
			if !known[k] {
				bad[k] = true
				continue
			}
			out[k] = v
		}
		if len(bad) > 0 {
			return nil, fmt.Errorf("%w: keys of strategies and column names must match; ill-specified keys: %v",
				ErrValidation, sortedSet(bad))
		}
	}
	return out, nil
}

func toSet(xs []string) map[string]bool {
	m := make(map[string]bool, len(xs))
	for _, x := range xs {
		m[x] = true
	}
	return m
}

func sortedSet(m map[string]bool) []string {
	out := make([]string, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

func sortedKeys[V any](m map[string]V) []string {
	out := make([]string, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

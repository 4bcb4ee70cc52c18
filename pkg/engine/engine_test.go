package engine

import (
	"errors"
	"log/slog"
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/virtualphoton/autoimpute/internal/testutil"
	"github.com/virtualphoton/autoimpute/pkg/frame"
)

// abcFrame builds A (float), B (string, x/y) and C (time) with a few gaps.
func abcFrame(t *testing.T) *frame.Frame {
	t.Helper()
	a := frame.NewFloatColumn("A", 0)
	b := frame.NewStringColumn("B", 0)
	c := frame.NewTimeColumn("C", 0)
	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	for i := 0; i < 4; i++ {
		a.Append(float64(i + 1))
		c.Append(base.AddDate(0, 0, i))
	}
	a.SetNull(1)
	for _, v := range []string{"x", "y", "", "x"} {
		if v == "" {
			b.AppendNull()
			continue
		}
		b.Append(v)
	}
	f, err := frame.FromColumns(a, b, c)
	require.NoError(t, err)
	return f
}

func prepare(t *testing.T, f *frame.Frame, opts ...Option) *Prepared {
	t.Helper()
	opts = append([]Option{WithLogger(testutil.NewTestLogger(t)), WithVerbose(true)}, opts...)
	b, err := New(opts...)
	require.NoError(t, err)
	p, err := b.Prepare(f)
	require.NoError(t, err)
	return p
}

func TestClassifyPartitionsColumns(t *testing.T) {
	i := frame.NewIntColumn("i", 1)
	s := frame.NewStringColumn("s", 1)
	bo := frame.NewBoolColumn("b", 1)
	fl := frame.NewFloatColumn("f", 1)
	tm := frame.NewTimeColumn("t", 1)
	f, err := frame.FromColumns(i, s, bo, fl, tm)
	require.NoError(t, err)

	g, err := Classify(f)
	require.NoError(t, err)
	assert.Equal(t, []string{"i", "f"}, g.Numeric)
	assert.Equal(t, []string{"s", "b"}, g.Categorical)
	assert.Equal(t, []string{"t"}, g.Datetime)
	assert.Equal(t, f.Cols(), g.Len())

	for _, n := range f.Names() {
		hits := 0
		for _, grp := range [][]string{g.Numeric, g.Categorical, g.Datetime} {
			for _, m := range grp {
				if m == n {
					hits++
				}
			}
		}
		assert.Equal(t, 1, hits, "column %s", n)
	}
	grp, ok := g.GroupOf("t")
	assert.True(t, ok)
	assert.Equal(t, GroupDatetime, grp)
}

func TestClassifyRejectsEmptyDataset(t *testing.T) {
	f, err := frame.FromColumns()
	require.NoError(t, err)
	_, err = Classify(f)
	assert.ErrorIs(t, err, ErrValidation)
}

func TestEncodeDummies(t *testing.T) {
	f := abcFrame(t)
	var warnings []string
	d, err := EncodeDummies(f, []string{"B"}, func(m string) { warnings = append(warnings, m) })
	require.NoError(t, err)

	assert.Equal(t, []string{"B_x", "B_y"}, d.Columns())
	assert.Equal(t, map[string][]string{"B": {"B_x", "B_y"}}, d.Mapping())
	assert.Empty(t, warnings)
	// missing row has no indicator set
	assert.Equal(t, []float64{1, 0, 0, 1}, d.values[0])
	assert.Equal(t, []float64{0, 1, 0, 0}, d.values[1])
	origin, ok := d.Origin("B_y")
	assert.True(t, ok)
	assert.Equal(t, "B", origin)
}

func TestEncodeDummiesUnionEqualsGroup(t *testing.T) {
	s1 := frame.NewStringColumn("color", 0)
	s2 := frame.NewBoolColumn("flag", 0)
	for i, v := range []string{"red", "blue", "green", "blue", "red"} {
		s1.Append(v)
		s2.Append(i%2 == 0)
	}
	f, err := frame.FromColumns(s1, s2)
	require.NoError(t, err)

	d, err := EncodeDummies(f, []string{"color", "flag"}, nil)
	require.NoError(t, err)
	assert.Equal(t, []string{"color_blue", "color_green", "color_red", "flag_false", "flag_true"}, d.Columns())

	var union []string
	for _, n := range []string{"color", "flag"} {
		union = append(union, d.Mapping()[n]...)
	}
	assert.Equal(t, d.Columns(), union)
	assert.Len(t, d.Mapping()["color"], 3)
}

func TestEncodeDummiesWarnsOnSingleCategory(t *testing.T) {
	s := frame.NewStringColumn("k", 0)
	s.Append("only")
	s.AppendNull()
	f, err := frame.FromColumns(s)
	require.NoError(t, err)

	rec := testutil.NewRecorder(slog.LevelWarn)
	b, err := New(WithLogger(rec.Logger))
	require.NoError(t, err)
	p, err := b.Prepare(f)
	require.NoError(t, err)

	require.Len(t, p.Warnings(), 1)
	assert.Equal(t, "k_only only category for feature k. Consider removing k from dataset.", p.Warnings()[0])
	assert.Contains(t, rec.String(), "k_only only category")
}

func TestEncodeDummiesNoCategorical(t *testing.T) {
	a := frame.NewFloatColumn("a", 2)
	f, err := frame.FromColumns(a)
	require.NoError(t, err)
	d, err := EncodeDummies(f, nil, nil)
	require.NoError(t, err)
	assert.Equal(t, 0, d.Len())
	assert.Empty(t, d.Mapping())
}

func TestEncodeDummiesCollision(t *testing.T) {
	s := frame.NewStringColumn("B", 0)
	s.Append("x")
	n := frame.NewFloatColumn("B_x", 1)
	f, err := frame.FromColumns(s, n)
	require.NoError(t, err)
	_, err = EncodeDummies(f, []string{"B"}, nil)
	assert.ErrorIs(t, err, ErrValidation)
}

func TestResolveStrategies(t *testing.T) {
	allowed := []string{"default", "mean", "median", "mode"}
	cols := []string{"A", "B"}

	tests := []struct {
		name    string
		spec    StrategySpec
		want    map[string]string
		wantErr error
	}{
		{"single broadcasts", SingleStrategy("mean"), map[string]string{"A": "mean", "B": "mean"}, nil},
		{"single unknown", SingleStrategy("bogus"), nil, ErrValidation},
		{"positional", PerPosition("median", "mode"), map[string]string{"A": "median", "B": "mode"}, nil},
		{"positional too short", PerPosition("median"), nil, ErrValidation},
		{"positional too long", PerPosition("median", "mode", "mean"), nil, ErrValidation},
		{"positional unknown", PerPosition("median", "bogus"), nil, ErrValidation},
		{"per column kept partial", PerColumn(map[string]string{"A": "median"}), map[string]string{"A": "median"}, nil},
		{"per column unknown key", PerColumn(map[string]string{"Z": "median"}), nil, ErrValidation},
		{"per column unknown value", PerColumn(map[string]string{"A": "bogus"}), nil, ErrValidation},
		{"unset", StrategySpec{}, nil, ErrConfiguration},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ResolveStrategies(tt.spec, allowed, cols)
			if tt.wantErr != nil {
				require.Error(t, err)
				assert.True(t, errors.Is(err, tt.wantErr), "got %v", err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

// "mean" is accepted for a categorical column here; the data-aware check
// happens when the column imputer is fitted.
func TestResolveStrategiesIgnoresColumnTypes(t *testing.T) {
	p := prepare(t, abcFrame(t))
	got, err := ResolveStrategies(SingleStrategy("mean"), []string{"mean"}, []string{"A", "B"})
	require.NoError(t, err)
	assert.Equal(t, map[string]string{"A": "mean", "B": "mean"}, got)
	assert.Equal(t, []string{"B"}, p.Groups().Categorical)
}

func TestParseStrategySpec(t *testing.T) {
	s, err := ParseStrategySpec("mean")
	require.NoError(t, err)
	assert.Equal(t, SingleStrategy("mean"), s)

	s, err = ParseStrategySpec([]any{"mean", "mode"})
	require.NoError(t, err)
	assert.Equal(t, PerPosition("mean", "mode"), s)

	s, err = ParseStrategySpec(map[string]any{"A": "median"})
	require.NoError(t, err)
	assert.True(t, s.IsPerColumn())

	for _, bad := range []any{42, nil, []any{"mean", 3}, map[string]any{"A": 1}} {
		_, err := ParseStrategySpec(bad)
		assert.ErrorIs(t, err, ErrConfiguration, "%#v", bad)
	}
}

func TestCheckStrategiesListsOffenders(t *testing.T) {
	err := CheckStrategies(PerColumn(map[string]string{"a": "zzz", "b": "aaa", "c": "mean"}), []string{"mean"})
	require.ErrorIs(t, err, ErrValidation)
	assert.Contains(t, err.Error(), "[aaa zzz]")
}

func TestResolvePredictors(t *testing.T) {
	cols := []string{"A", "B", "C"}
	all := Predictors{All: true}

	got, err := ResolvePredictors(PredictorsPerColumn(map[string]PredictorSpec{"A": List("B")}), cols)
	require.NoError(t, err)
	assert.Equal(t, map[string]Predictors{"A": {Columns: []string{"B"}}, "B": all, "C": all}, got)

	got, err = ResolvePredictors(All(), cols)
	require.NoError(t, err)
	assert.Equal(t, map[string]Predictors{"A": all, "B": all, "C": all}, got)

	got, err = ResolvePredictors(Named("C"), cols)
	require.NoError(t, err)
	assert.Equal(t, []string{"C"}, got["A"].Columns)

	got, err = ResolvePredictors(List("A", "C"), cols)
	require.NoError(t, err)
	for _, c := range cols {
		assert.Equal(t, []string{"A", "C"}, got[c].Columns)
	}

	failures := map[string]PredictorSpec{
		"unknown name":          Named("Z"),
		"unknown in list":       List("A", "Z"),
		"unknown key":           PredictorsPerColumn(map[string]PredictorSpec{"Z": All()}),
		"unknown value for key": PredictorsPerColumn(map[string]PredictorSpec{"A": Named("Z")}),
		"nested mapping": PredictorsPerColumn(map[string]PredictorSpec{
			"A": PredictorsPerColumn(map[string]PredictorSpec{"B": All()}),
		}),
	}
	for name, spec := range failures {
		_, err := ResolvePredictors(spec, cols)
		assert.ErrorIs(t, err, ErrValidation, name)
	}
	_, err = ResolvePredictors(PredictorSpec{}, cols)
	assert.ErrorIs(t, err, ErrConfiguration)
}

func TestResolvePredictorsDoesNotMutateInput(t *testing.T) {
	in := map[string]any{"A": []any{"B"}}
	spec, err := ParsePredictorSpec(in)
	require.NoError(t, err)
	_, err = ResolvePredictors(spec, []string{"A", "B", "C"})
	require.NoError(t, err)
	assert.Len(t, in, 1)
	assert.Len(t, spec.byColumn, 1)
}

func TestParsePredictorSpec(t *testing.T) {
	s, err := ParsePredictorSpec(nil)
	require.NoError(t, err)
	assert.Equal(t, All(), s)

	_, err = ParsePredictorSpec(map[string]any{"A": map[string]any{"B": "all"}})
	assert.ErrorIs(t, err, ErrValidation)

	_, err = ParsePredictorSpec(3.5)
	assert.ErrorIs(t, err, ErrConfiguration)
}

func TestAssembleAllColumns(t *testing.T) {
	p := prepare(t, abcFrame(t))
	preds, err := ResolvePredictors(All(), p.Columns())
	require.NoError(t, err)

	X, y, err := p.Assemble("A", preds)
	require.NoError(t, err)
	assert.Equal(t, []string{"B_x", "B_y", "C"}, X.Columns)
	assert.Equal(t, []bool{false, true, false, false}, y)
	assert.Equal(t, p.Index(), X.Index)
	assert.Equal(t, float64(time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC).Unix()), X.At(0, 2))

	X, _, err = p.Assemble("B", preds)
	require.NoError(t, err)
	assert.Equal(t, []string{"A", "C"}, X.Columns)
	assert.True(t, math.IsNaN(X.At(1, 0)))
}

func TestAssembleExplicitPredictors(t *testing.T) {
	p := prepare(t, abcFrame(t))
	preds, err := ResolvePredictors(PredictorsPerColumn(map[string]PredictorSpec{
		"A": List("B"),
		"C": List("C", "A"),
	}), p.Columns())
	require.NoError(t, err)

	X, _, err := p.Assemble("A", preds)
	require.NoError(t, err)
	assert.Equal(t, []string{"B_x", "B_y"}, X.Columns)

	X, _, err = p.Assemble("C", preds)
	require.NoError(t, err)
	assert.Equal(t, []string{"A"}, X.Columns)
}

func TestAssembleNeverIncludesTarget(t *testing.T) {
	p := prepare(t, abcFrame(t))
	preds, err := ResolvePredictors(All(), p.Columns())
	require.NoError(t, err)
	for _, target := range p.Columns() {
		X, _, err := p.Assemble(target, preds)
		require.NoError(t, err)
		for _, c := range X.Columns {
			origin, _ := p.Dummies().Origin(c)
			assert.NotEqual(t, target, c)
			assert.NotEqual(t, target, origin)
		}
	}
}

func TestAssembleNoPredictors(t *testing.T) {
	p := prepare(t, abcFrame(t))
	preds, err := ResolvePredictors(Named("A"), p.Columns())
	require.NoError(t, err)
	_, _, err = p.Assemble("A", preds)
	require.ErrorIs(t, err, ErrData)
	assert.Contains(t, err.Error(), "need at least one predictor column to fit A")

	_, _, err = p.Assemble("nope", preds)
	assert.ErrorIs(t, err, ErrValidation)
}

func TestAssembleIsIdempotent(t *testing.T) {
	p := prepare(t, abcFrame(t), WithScalerName("standard"))
	preds, err := ResolvePredictors(All(), p.Columns())
	require.NoError(t, err)

	first, y1, err := p.Assemble("B", preds)
	require.NoError(t, err)
	second, y2, err := p.Assemble("B", preds)
	require.NoError(t, err)
	assert.Equal(t, first.Columns, second.Columns)
	assert.Equal(t, y1, y2)
	for j := 0; j < first.Cols(); j++ {
		a, b := first.Column(j), second.Column(j)
		for i := range a {
			assert.Equal(t, math.Float64bits(a[i]), math.Float64bits(b[i]))
		}
	}
}

func TestDesignMatrixDense(t *testing.T) {
	p := prepare(t, abcFrame(t))
	preds, err := ResolvePredictors(List("B"), p.Columns())
	require.NoError(t, err)
	X, _, err := p.Assemble("A", preds)
	require.NoError(t, err)

	d := X.Dense()
	r, c := d.Dims()
	assert.Equal(t, 4, r)
	assert.Equal(t, 2, c)
	assert.Equal(t, 1.0, d.At(3, 0))
}

func TestPrepareLeavesFrameUntouched(t *testing.T) {
	f := abcFrame(t)
	p := prepare(t, f, WithScalerName("minmax"))
	v, ok := f.Column(0).(*frame.FloatColumn).Get(3)
	assert.True(t, ok)
	assert.Equal(t, 4.0, v)
	assert.Same(t, f, p.Frame())
	m, err := p.Missing("B")
	require.NoError(t, err)
	assert.Equal(t, []bool{false, false, true, false}, m)
}

func TestOptionsValidate(t *testing.T) {
	_, err := New(WithScaler(nil))
	assert.ErrorIs(t, err, ErrConfiguration)

	_, err = New(WithScalerName("robust"))
	assert.ErrorIs(t, err, ErrConfiguration)

	_, err = New(WithParams(map[string]any{"A": 3}))
	assert.ErrorIs(t, err, ErrConfiguration)

	b, err := New(WithParams(map[string]any{
		"constant": map[string]any{"value": 0},
		"A":        map[string]any{"value": 9},
	}))
	require.NoError(t, err)
	assert.Equal(t, map[string]any{"value": 9}, b.Params("A", "constant"))
	assert.Equal(t, map[string]any{"value": 0}, b.Params("B", "constant"))
	assert.Nil(t, b.Params("B", "mean"))
}

func TestDesignMatrixAlign(t *testing.T) {
	d, err := NewDesignMatrix("y", []string{"a", "b"}, []int{10, 11}, [][]float64{{1, 2}, {3, 4}})
	require.NoError(t, err)
	out := d.Align([]string{"b", "missing", "a"})
	assert.Equal(t, []string{"b", "missing", "a"}, out.Columns)
	assert.Equal(t, []float64{3, 4}, out.Column(0))
	assert.Equal(t, []float64{0, 0}, out.Column(1))
	assert.Equal(t, []float64{1, 2}, out.Column(2))
	assert.Equal(t, []int{10, 11}, out.Index)

	_, err = NewDesignMatrix("y", []string{"a"}, []int{0}, [][]float64{{1, 2}})
	assert.ErrorIs(t, err, ErrValidation)
}

func TestAssembleDatetimeTarget(t *testing.T) {
	p := prepare(t, abcFrame(t))
	preds, err := ResolvePredictors(All(), p.Columns())
	require.NoError(t, err)
	X, y, err := p.Assemble("C", preds)
	require.NoError(t, err)
	assert.Equal(t, []string{"A", "B_x", "B_y"}, X.Columns)
	assert.Equal(t, []bool{false, false, false, false}, y)

	preds, err = ResolvePredictors(PredictorsPerColumn(map[string]PredictorSpec{"C": List("C")}), p.Columns())
	require.NoError(t, err)
	_, _, err = p.Assemble("C", preds)
	assert.ErrorIs(t, err, ErrData)
}

// chunkFrame has abcFrame's columns: A {10, _}, B {z, y}, C {2024-02-01, _}.
func chunkFrame(t *testing.T) *frame.Frame {
	t.Helper()
	a := frame.NewFloatColumn("A", 2)
	b := frame.NewStringColumn("B", 2)
	c := frame.NewTimeColumn("C", 2)
	a.Set(0, 10)
	b.Set(0, "z")
	b.Set(1, "y")
	c.Set(0, time.Date(2024, 2, 1, 0, 0, 0, 0, time.UTC))
	f, err := frame.FromColumns(a, b, c)
	require.NoError(t, err)
	return f
}

func TestApplyUsesFittedState(t *testing.T) {
	s := &countingScaler{}
	p := prepare(t, abcFrame(t), WithScaler(s))
	q, err := p.Apply(chunkFrame(t))
	require.NoError(t, err)

	assert.Equal(t, 2, s.fits)
	// min 1, max 4 at fit
	assert.Equal(t, 3.0, q.num[0][0])
	assert.True(t, math.IsNaN(q.num[0][1]))
	assert.Equal(t, []string{"B_x", "B_y"}, q.Dummies().Columns())
	assert.Equal(t, []float64{0, 0}, q.dum[0])
	assert.Equal(t, []float64{0, 1}, q.dum[1])

	preds, err := ResolvePredictors(All(), q.Columns())
	require.NoError(t, err)
	X, y, err := q.Assemble("A", preds)
	require.NoError(t, err)
	assert.Equal(t, []string{"B_x", "B_y", "C"}, X.Columns)
	assert.Equal(t, []bool{false, true}, y)
	assert.True(t, math.IsNaN(X.At(1, 2)))
}

func TestApplyKeepsIndicatorsOfAbsentCategories(t *testing.T) {
	p := prepare(t, abcFrame(t))
	b := frame.NewStringColumn("B", 3)
	f, err := frame.FromColumns(frame.NewFloatColumn("A", 3), b, frame.NewTimeColumn("C", 3))
	require.NoError(t, err)
	q, err := p.Apply(f)
	require.NoError(t, err)

	preds, err := ResolvePredictors(PredictorsPerColumn(map[string]PredictorSpec{"A": List("B")}), q.Columns())
	require.NoError(t, err)
	X, _, err := q.Assemble("A", preds)
	require.NoError(t, err)
	assert.Equal(t, []string{"B_x", "B_y"}, X.Columns)
	assert.Equal(t, []float64{0, 0, 0}, X.Column(0))
}

func TestApplyChecksColumns(t *testing.T) {
	p := prepare(t, abcFrame(t))
	missing, err := abcFrame(t).Select("A", "B")
	require.NoError(t, err)
	_, err = p.Apply(missing)
	assert.ErrorIs(t, err, ErrValidation)

	retyped, err := frame.FromColumns(frame.NewStringColumn("A", 1), frame.NewStringColumn("B", 1), frame.NewTimeColumn("C", 1))
	require.NoError(t, err)
	_, err = p.Apply(retyped)
	assert.ErrorIs(t, err, ErrValidation)
}

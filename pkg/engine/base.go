// Package engine prepares a dataset for column-wise imputation: it classifies
// columns, one-hot encodes categorical columns, resolves strategy and
// predictor specs, and assembles the design matrix used to fit each column.
package engine

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"math"

	"github.com/virtualphoton/autoimpute/pkg/frame"
)

// Option configures a Base.
type Option func(*Base) error

func WithLogger(l *slog.Logger) Option {
	return func(b *Base) error {
		if l != nil {
			b.logger = l
		}
		return nil
	}
}

// WithScaler normalizes the numeric and dummy blocks during Prepare.
func WithScaler(s Scaler) Option {
	return func(b *Base) error {
		a, err := NewScalerAdapter(s)
		if err != nil {
			return err
		}
		b.scaler = a
		return nil
	}
}

// WithScalerName is WithScaler for a built-in scaler. An empty name means no
// scaling.
func WithScalerName(name string) Option {
	return func(b *Base) error {
		if name == "" {
			return nil
		}
		s, err := ScalerByName(name)
		if err != nil {
			return err
		}
		return WithScaler(s)(b)
	}
}

// WithVerbose reports preparation and assembly at Info instead of Debug.
func WithVerbose(v bool) Option {
	return func(b *Base) error { b.verbose = v; return nil }
}

// WithParams sets per-imputer parameters keyed by column name or strategy.
// Every value must be a map of parameter name to value.
func WithParams(p map[string]any) Option {
	return func(b *Base) error {
		for k, v := range p {
			if v == nil {
				continue
			}
			if _, ok := v.(map[string]any); !ok {
				return fmt.Errorf("%w: params for %q must be a map of args used to init the imputer, got %T", ErrConfiguration, k, v)
			}
		}
		b.params = p
		return nil
	}
}

// Base is the unfitted configuration shared by every imputer. It holds no
// data; Prepare produces the fitted state.
type Base struct {
	scaler  *ScalerAdapter
	logger  *slog.Logger
	verbose bool
	params  map[string]any
}

func New(opts ...Option) (*Base, error) {
	b := &Base{logger: slog.New(slog.NewTextHandler(io.Discard, nil))}
	for _, o := range opts {
		if err := o(b); err != nil {
			return nil, err
		}
	}
	return b, nil
}

func (b *Base) Logger() *slog.Logger { return b.logger }

func (b *Base) Verbose() bool { return b.verbose }

// Params returns the parameters for an imputer of the given column and
// strategy. Column parameters take precedence over strategy parameters.
func (b *Base) Params(column, strategy string) map[string]any {
	if p, ok := b.params[column].(map[string]any); ok {
		return p
	}
	if p, ok := b.params[strategy].(map[string]any); ok {
		return p
	}
	return nil
}

func (b *Base) progress(msg string, args ...any) {
	level := slog.LevelDebug
	if b.verbose {
		level = slog.LevelInfo
	}
	b.logger.Log(context.Background(), level, msg, args...)
}

// Prepared is the fitted state of one dataset: the missingness mask, column
// groups, dummy mapping and the (optionally scaled) predictor blocks.
type Prepared struct {
	base     *Base
	data     *frame.Frame
	mask     *frame.Frame
	groups   ColumnGroups
	dummies  *DummyFrame
	num      [][]float64
	dum      [][]float64
	tim      [][]float64
	warnings []string

	numScale FittedScaler
	dumScale FittedScaler
}

// Prepare classifies and encodes f. f is not modified.
func (b *Base) Prepare(f *frame.Frame) (*Prepared, error) {
	groups, err := Classify(f)
	if err != nil {
		return nil, err
	}
	p := &Prepared{base: b, data: f, mask: f.Missing(), groups: groups}
	b.progress("prepping dataframe for imputation analysis", "rows", f.Rows(), "columns", f.Cols())

	p.dummies, err = EncodeDummies(f, groups.Categorical, func(msg string) {
		p.warnings = append(p.warnings, msg)
		b.logger.Warn(msg)
	})
	if err != nil {
		return nil, err
	}
	p.num = numericBlock(f, groups.Numeric)
	p.tim = numericBlock(f, groups.Datetime)
	p.dum = p.dummies.values
	if b.scaler != nil {
		if p.numScale, err = b.scaler.Fit(p.num); err != nil {
			return nil, fmt.Errorf("scale numeric columns: %w", err)
		}
		if p.dumScale, err = b.scaler.Fit(p.dum); err != nil {
			return nil, fmt.Errorf("scale dummy columns: %w", err)
		}
	}
	if err = p.scale(); err != nil {
		return nil, err
	}
	b.progress("column groups",
		"numeric", len(groups.Numeric),
		"categorical_after_encoding", p.dummies.Len(),
		"datetime", len(groups.Datetime))
	return p, nil
}

// Apply prepares new data with the state fitted by Prepare: the same column
// groups, the fitted indicator layout and the fitted scalers. Categories
// unseen at fit time get no indicator, and indicators of categories absent
// from f are all zero. f must hold the columns p was prepared from.
func (p *Prepared) Apply(f *frame.Frame) (*Prepared, error) {
	for _, name := range p.data.Names() {
		col, ok := f.ColumnByName(name)
		if !ok {
			return nil, fmt.Errorf("%w: column %q not in dataset", ErrValidation, name)
		}
		want, _ := p.groups.GroupOf(name)
		if got := KindGroup(col.Kind()); got != want {
			return nil, fmt.Errorf("%w: column %s is %s, prepared as %s", ErrValidation, name, got, want)
		}
	}
	dummies, err := p.dummies.Encode(f)
	if err != nil {
		return nil, err
	}
	q := &Prepared{
		base:     p.base,
		data:     f,
		mask:     f.Missing(),
		groups:   p.groups,
		dummies:  dummies,
		num:      numericBlock(f, p.groups.Numeric),
		dum:      dummies.values,
		tim:      numericBlock(f, p.groups.Datetime),
		numScale: p.numScale,
		dumScale: p.dumScale,
	}
	if err := q.scale(); err != nil {
		return nil, err
	}
	p.base.progress("applied fitted preparation", "rows", f.Rows(), "columns", f.Cols())
	return q, nil
}

func (p *Prepared) scale() error {
	var err error
	if p.num, err = ScaleBlock(p.numScale, p.num); err != nil {
		return fmt.Errorf("scale numeric columns: %w", err)
	}
	if p.dum, err = ScaleBlock(p.dumScale, p.dum); err != nil {
		return fmt.Errorf("scale dummy columns: %w", err)
	}
	return nil
}

func numericBlock(f *frame.Frame, names []string) [][]float64 {
	out := make([][]float64, len(names))
	for j, n := range names {
		col, _ := f.ColumnByName(n)
		vals := make([]float64, col.Len())
		for i := range vals {
			v, ok := frame.Numeric(col, i)
			if !ok {
				v = math.NaN()
			}
			vals[i] = v
		}
		out[j] = vals
	}
	return out
}

func (p *Prepared) Base() *Base          { return p.base }
func (p *Prepared) Frame() *frame.Frame  { return p.data }
func (p *Prepared) Groups() ColumnGroups { return p.groups }
func (p *Prepared) Columns() []string    { return p.data.Names() }
func (p *Prepared) Index() []int         { return p.data.Index() }

// Mask returns the missingness mask: 1 where the original cell was missing.
func (p *Prepared) Mask() *frame.Frame { return p.mask }

func (p *Prepared) Dummies() *DummyFrame { return p.dummies }

// Warnings returns the non-fatal messages raised while preparing.
func (p *Prepared) Warnings() []string { return append([]string(nil), p.warnings...) }

// Missing returns the missingness vector of a column.
func (p *Prepared) Missing(column string) ([]bool, error) {
	col, ok := p.mask.ColumnByName(column)
	if !ok {
		return nil, fmt.Errorf("%w: column %q not in dataset", ErrValidation, column)
	}
	m := col.(*frame.IntColumn)
	out := make([]bool, m.Len())
	for i := range out {
		v, _ := m.Get(i)
		out[i] = v == 1
	}
	return out, nil
}

package series

import (
	"fmt"
	"math/rand/v2"

	"github.com/virtualphoton/autoimpute/pkg/engine"
	"github.com/virtualphoton/autoimpute/pkg/frame"
)

// Random fills each missing cell with a draw, with replacement, from the
// distinct observed values. Draws are reproducible for a given non-zero
// Seed; a zero Seed draws from a randomly seeded source.
type Random struct {
	Seed int64

	fitted bool
	kind   frame.Kind
	values []any
	rng    *rand.Rand
}

func (r *Random) Strategy() string { return StrategyRandom }

func (r *Random) Fit(col frame.Column) error {
	order, _ := distinct(col)
	if len(order) == 0 {
		return noObserved(StrategyRandom, col)
	}
	r.values, r.kind, r.fitted = order, col.Kind(), true
	seed := uint64(r.Seed)
	if seed == 0 {
		seed = rand.Uint64()
	}
	r.rng = rand.New(rand.NewPCG(seed, seed))
	return nil
}

// Values returns the distinct observed values draws are taken from.
func (r *Random) Values() []any { return append([]any(nil), r.values...) }

func (r *Random) Impute(col frame.Column) (frame.Column, error) {
	if !r.fitted {
		return nil, notFitted(StrategyRandom)
	}
	if col.Kind() != r.kind {
		return nil, fmt.Errorf("%w: random fitted on %s column, %s is %s", engine.ErrData, r.kind, col.Name(), col.Kind())
	}
	return fillEach(col, func(int) (any, error) { return r.values[r.rng.IntN(len(r.values))], nil })
}

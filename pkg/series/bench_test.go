package series

import (
	"testing"

	"github.com/virtualphoton/autoimpute/pkg/frame"
)

func makeLargeFloatColumn(n int) *frame.FloatColumn {
	c := frame.NewFloatColumn("x", n)
	for i := 0; i < n; i += 2 {
		c.Set(i, float64(i%10))
	}
	return c
}

func BenchmarkImputeMean(b *testing.B) {
	col := makeLargeFloatColumn(10000)
	for n := 0; n < b.N; n++ {
		m := &Mean{}
		if err := m.Fit(col); err != nil {
			b.Fatal(err)
		}
		if _, err := m.Impute(col); err != nil {
			b.Fatal(err)
		}
	}
}

func BenchmarkImputeMedian(b *testing.B) {
	col := makeLargeFloatColumn(10000)
	for n := 0; n < b.N; n++ {
		m := &Median{}
		if err := m.Fit(col); err != nil {
			b.Fatal(err)
		}
		if _, err := m.Impute(col); err != nil {
			b.Fatal(err)
		}
	}
}

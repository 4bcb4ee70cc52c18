package imputer

import (
	"context"
	"errors"
	"testing"

	"github.com/smartystreets/goconvey/convey"

	"github.com/virtualphoton/autoimpute/pkg/engine"
	"github.com/virtualphoton/autoimpute/pkg/frame"
)

// thresholdFrame: y is missing exactly when x is large; x is never missing.
func thresholdFrame() *frame.Frame {
	x := frame.NewFloatColumn("x", 0)
	y := frame.NewFloatColumn("y", 0)
	for i, v := range []float64{1, 2, 3, 4, 20, 21, 22, 23} {
		x.Append(v)
		if i < 4 {
			y.Append(v * 10)
		} else {
			y.AppendNull()
		}
	}
	f, _ := frame.FromColumns(x, y)
	return f
}

func ints(c frame.Column) []int64 {
	out := make([]int64, c.Len())
	for i := range out {
		v, _ := c.(*frame.IntColumn).Get(i)
		out[i] = v
	}
	return out
}

func TestMissingnessClassifier(t *testing.T) {
	convey.Convey("Given a frame whose gaps follow another column", t, func() {
		f := thresholdFrame()

		convey.Convey("Fitting a classifier with three neighbours", func() {
			m, err := NewMissingnessClassifier(ClassifierConfig{Neighbors: 3})
			convey.So(err, convey.ShouldBeNil)
			out, err := m.FitPredict(context.Background(), f)
			convey.So(err, convey.ShouldBeNil)

			convey.Convey("Output columns carry the missingness suffix", func() {
				convey.So(out.Names(), convey.ShouldResemble, []string{"x_mis", "y_mis"})
				convey.So(out.Index(), convey.ShouldResemble, f.Index())
			})

			convey.Convey("A column that is never missing is predicted constant", func() {
				convey.So(ints(out.Column(0)), convey.ShouldResemble, []int64{0, 0, 0, 0, 0, 0, 0, 0})
			})

			convey.Convey("The gaps are recovered from the neighbouring rows", func() {
				convey.So(ints(out.Column(1)), convey.ShouldResemble, []int64{0, 0, 0, 0, 1, 1, 1, 1})
			})
		})

		convey.Convey("Predicting new rows with a scaler", func() {
			m, err := NewMissingnessClassifier(ClassifierConfig{Neighbors: 3}, engine.WithScalerName("minmax"))
			convey.So(err, convey.ShouldBeNil)
			convey.So(m.Fit(context.Background(), f), convey.ShouldBeNil)

			x := frame.NewFloatColumn("x", 0)
			x.Append(20)
			x.Append(21)
			next, err := frame.FromColumns(x, frame.NewFloatColumn("y", 2))
			convey.So(err, convey.ShouldBeNil)
			out, err := m.Predict(context.Background(), next)
			convey.So(err, convey.ShouldBeNil)

			convey.Convey("Rows are scaled with the fitted range", func() {
				convey.So(ints(out.Column(1)), convey.ShouldResemble, []int64{1, 1})
			})
		})

		convey.Convey("Predicting before fitting fails", func() {
			m, err := NewMissingnessClassifier(ClassifierConfig{})
			convey.So(err, convey.ShouldBeNil)
			_, err = m.Predict(context.Background(), f)
			convey.So(errors.Is(err, engine.ErrState), convey.ShouldBeTrue)
		})

		convey.Convey("Negative neighbours are rejected", func() {
			_, err := NewMissingnessClassifier(ClassifierConfig{Neighbors: -1})
			convey.So(errors.Is(err, engine.ErrConfiguration), convey.ShouldBeTrue)
		})

		convey.Convey("More neighbours than rows still fits", func() {
			m, err := NewMissingnessClassifier(ClassifierConfig{Neighbors: 50})
			convey.So(err, convey.ShouldBeNil)
			convey.So(m.Fit(context.Background(), f), convey.ShouldBeNil)
		})
	})
}

package main

import (
	"context"
	"math/rand/v2"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/virtualphoton/autoimpute/pkg/frame"
	"github.com/virtualphoton/autoimpute/pkg/imputer"
)

func TestStreamGeneratedData(t *testing.T) {
	src := &genSource{
		schema:  buildSchema(2, 1, 1),
		remain:  250,
		chunk:   100,
		missing: 0.2,
		rnd:     rand.New(rand.NewPCG(1, 1)),
	}
	imp, err := imputer.NewSingle(imputer.SingleConfig{})
	require.NoError(t, err)

	var chunks []*frame.Frame
	sink := &collectSink{write: func(f *frame.Frame) { chunks = append(chunks, f) }}
	require.NoError(t, frame.RunStream(context.Background(), frame.NewPipeline().Add(imp), src, sink))

	require.Len(t, chunks, 3)
	assert.Equal(t, 50, chunks[2].Rows())
	assert.Equal(t, []int{200, 201}, chunks[2].Index()[:2])
	for _, f := range chunks {
		for i := 0; i < f.Cols(); i++ {
			assert.Zero(t, frame.NullCount(f.Column(i)))
		}
	}
	assert.Equal(t, map[string]string{"f0": "mean", "f1": "mean", "i0": "mean", "s0": "mode"}, imp.Strategies())
}

type collectSink struct{ write func(*frame.Frame) }

func (c *collectSink) Write(f *frame.Frame) error { c.write(f); return nil }
func (c *collectSink) Close() error               { return nil }

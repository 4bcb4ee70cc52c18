package parquetio

import (
	"io"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/virtualphoton/autoimpute/pkg/frame"
)

func mixedFrame(t *testing.T) *frame.Frame {
	t.Helper()
	x := frame.NewFloatColumn("x", 4)
	n := frame.NewIntColumn("n", 4)
	s := frame.NewStringColumn("s", 4)
	b := frame.NewBoolColumn("b", 4)
	d := frame.NewTimeColumn("d", 4)
	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	for i := 0; i < 4; i++ {
		if i != 1 {
			x.Set(i, float64(i)+0.5)
		}
		if i != 2 {
			n.Set(i, int64(i*10))
			d.Set(i, base.AddDate(0, 0, i))
		}
		if i != 3 {
			s.Set(i, []string{"a", "b", "c"}[i])
		}
		b.Set(i, i%2 == 0)
	}
	f, err := frame.FromColumns(x, n, s, b, d)
	require.NoError(t, err)
	return f
}

func TestParquetRoundTrip(t *testing.T) {
	src := mixedFrame(t)
	path := filepath.Join(t.TempDir(), "mixed.parquet")
	require.NoError(t, WriteAll(path, src))

	got, err := ReadFile(path)
	require.NoError(t, err)
	require.Equal(t, src.Names(), got.Names())
	require.Equal(t, 4, got.Rows())
	for c := 0; c < src.Cols(); c++ {
		assert.Equal(t, src.Column(c).Kind(), got.Column(c).Kind(), src.Names()[c])
		for r := 0; r < 4; r++ {
			assert.Equal(t, src.Column(c).Value(r), got.Column(c).Value(r), "%s[%d]", src.Names()[c], r)
		}
	}
}

func TestParquetStream(t *testing.T) {
	path := filepath.Join(t.TempDir(), "chunks.parquet")
	sw, err := NewStreamWriter(path, makeFrame(1).Schema())
	require.NoError(t, err)
	require.NoError(t, sw.Write(makeFrame(25)))
	require.NoError(t, sw.Write(makeFrame(10)))
	require.NoError(t, sw.Close())

	sr, err := NewStreamReader(path, 8, 0)
	require.NoError(t, err)
	defer func() { _ = sr.Close() }()
	total, nulls := 0, 0
	for {
		fr, err := sr.Next()
		if err == io.EOF {
			break
		}
		require.NoError(t, err)
		require.LessOrEqual(t, fr.Rows(), 8)
		total += fr.Rows()
		nulls += frame.NullCount(fr.Column(0))
	}
	assert.Equal(t, 35, total)
	// rows 0,7,14,21 of the first chunk and 0,7 of the second
	assert.Equal(t, 6, nulls)
}

func TestSchemaRejectsTagSeparators(t *testing.T) {
	c := frame.NewIntColumn("a,b", 1)
	f, err := frame.FromColumns(c)
	require.NoError(t, err)
	assert.Error(t, WriteAll(filepath.Join(t.TempDir(), "bad.parquet"), f))
}

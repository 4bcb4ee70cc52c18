package frame

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSetCellCoercion(t *testing.T) {
	s := Schema{Columns: []ColumnSchema{
		{Name: "i", Type: KindInt},
		{Name: "f", Type: KindFloat},
		{Name: "s", Type: KindString},
		{Name: "t", Type: KindTime},
		{Name: "b", Type: KindBool},
	}}
	f := NewFrame(s)
	f.AppendNullRow()

	require.NoError(t, f.SetCell(0, "i", 3))
	require.NoError(t, f.SetCell(0, "f", int64(2)))
	require.NoError(t, f.SetCell(0, "s", "x"))
	ts := time.Date(2020, 1, 2, 0, 0, 0, 0, time.UTC)
	require.NoError(t, f.SetCell(0, "t", ts))
	require.NoError(t, f.SetCell(0, "b", true))

	assert.Error(t, f.SetCell(0, "s", 1))
	assert.Error(t, f.SetCell(0, "nope", 1))

	i, _ := f.ColumnByName("i")
	assert.Equal(t, int64(3), i.Value(0))
	fl, _ := f.ColumnByName("f")
	assert.Equal(t, 2.0, fl.Value(0))
	tc, _ := f.ColumnByName("t")
	v, ok := Numeric(tc, 0)
	require.True(t, ok)
	assert.Equal(t, float64(ts.Unix()), v)

	require.NoError(t, f.SetCell(0, "i", nil))
	assert.True(t, i.IsNull(0))
}

func TestFromColumnsValidates(t *testing.T) {
	a := NewFloatColumn("a", 2)
	b := NewFloatColumn("a", 2)
	_, err := FromColumns(a, b)
	assert.Error(t, err)

	c := NewFloatColumn("c", 3)
	_, err = FromColumns(a, c)
	assert.Error(t, err)

	f, err := FromColumns()
	require.NoError(t, err)
	assert.Equal(t, 0, f.Cols())
	assert.Equal(t, 0, f.Rows())
}

func TestMissingSharesIndex(t *testing.T) {
	f := makeFrame(8)
	require.NoError(t, f.SetIndex([]int{10, 11, 12, 13, 14, 15, 16, 17}))
	m := f.Missing()
	assert.Equal(t, f.Index(), m.Index())
	assert.Equal(t, f.Names(), m.Names())

	a, _ := m.ColumnByName("a")
	// row 0 of makeFrame leaves "a" null
	assert.Equal(t, int64(1), a.Value(0))
	assert.Equal(t, int64(0), a.Value(1))
}

func TestSelectAndClone(t *testing.T) {
	f := makeFrame(4)
	require.NoError(t, f.SetIndex([]int{3, 2, 1, 0}))
	sel, err := f.Select("s", "a")
	require.NoError(t, err)
	assert.Equal(t, []string{"s", "a"}, sel.Names())
	assert.Equal(t, []int{3, 2, 1, 0}, sel.Index())

	_, err = f.Select("missing")
	assert.Error(t, err)

	cl := f.Clone()
	require.NoError(t, cl.SetCell(1, "a", 99.0))
	orig, _ := f.ColumnByName("a")
	v, _ := orig.(*FloatColumn).Get(1)
	assert.NotEqual(t, 99.0, v)
}

func TestReplace(t *testing.T) {
	f := makeFrame(2)
	nc := NewFloatColumn("a", 2)
	nc.Set(0, 5)
	nc.Set(1, 6)
	require.NoError(t, f.Replace(nc))
	c, _ := f.ColumnByName("a")
	assert.Equal(t, 6.0, c.Value(1))

	assert.Error(t, f.Replace(NewFloatColumn("a", 3)))
	assert.Error(t, f.Replace(NewFloatColumn("zz", 2)))
}

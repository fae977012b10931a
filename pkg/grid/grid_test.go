package grid

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ajitpratap0/gridload/pkg/errors"
	"github.com/ajitpratap0/gridload/pkg/heap"
)

func TestNewGridStartsZero(t *testing.T) {
	g, err := New(3, 2, RowMajor)
	require.NoError(t, err)

	assert.Equal(t, 3, g.Rows())
	assert.Equal(t, 2, g.Cols())
	assert.Equal(t, DTypeObject, g.DType())
	for r := 0; r < 3; r++ {
		for c := 0; c < 2; c++ {
			assert.True(t, g.At(r, c).IsZero())
		}
	}
}

func TestFromCellsShapeMismatch(t *testing.T) {
	_, err := FromCells(make([]heap.Handle, 10), 3, 3, RowMajor, DTypeObject)
	require.Error(t, err)
	assert.True(t, errors.IsType(err, errors.ErrorTypeShapeMismatch))

	_, err = New(-1, 2, RowMajor)
	assert.True(t, errors.IsType(err, errors.ErrorTypeShapeMismatch))

	_, err = FromCells(nil, 0, 0, Layout(7), DTypeObject)
	assert.True(t, errors.IsType(err, errors.ErrorTypeShapeMismatch))
}

func TestSplitStrides(t *testing.T) {
	tests := []struct {
		layout     Layout
		wantStride int
		wantIndex  func(row, col int) int
	}{
		{RowMajor, 4, func(r, c int) int { return r*4 + c }},
		{ColumnMajor, 1, func(r, c int) int { return c*5 + r }},
	}

	for _, tt := range tests {
		t.Run(tt.layout.String(), func(t *testing.T) {
			cells := make([]heap.Handle, 20)
			g, err := FromCells(cells, 5, 4, tt.layout, DTypeObject)
			require.NoError(t, err)

			dests, err := g.Split(4)
			require.NoError(t, err)
			require.Len(t, dests, 4)

			for c, d := range dests {
				assert.Equal(t, c, d.Column())
				assert.Equal(t, 5, d.Rows())
				assert.Equal(t, tt.wantStride, d.Stride())
				for r := 0; r < 5; r++ {
					d.Set(r, heap.None)
					assert.True(t, cells[tt.wantIndex(r, c)].IsNone(), "row %d col %d", r, c)
					assert.True(t, g.At(r, c).IsNone())
					assert.True(t, d.Get(r).IsNone())
				}
			}
		})
	}
}

func TestSplitRejectsWrongColumnCount(t *testing.T) {
	g, err := New(4, 3, RowMajor)
	require.NoError(t, err)

	for _, n := range []int{0, -1, 2, 4} {
		_, err := g.Split(n)
		require.Error(t, err)
		assert.True(t, errors.IsType(err, errors.ErrorTypeShapeMismatch), "ncols=%d", n)
	}

	// failed splits do not consume the grid
	_, err = g.Split(3)
	assert.NoError(t, err)
}

func TestSplitRejectsDType(t *testing.T) {
	g, err := FromCells(make([]heap.Handle, 4), 2, 2, RowMajor, DType("float64"))
	require.NoError(t, err)

	_, err = g.Split(2)
	require.Error(t, err)
	assert.True(t, errors.IsType(err, errors.ErrorTypeDTypeMismatch))
}

func TestSplitOnce(t *testing.T) {
	g, err := New(2, 2, ColumnMajor)
	require.NoError(t, err)

	_, err = g.Split(2)
	require.NoError(t, err)
	_, err = g.Split(2)
	assert.True(t, errors.IsType(err, errors.ErrorTypeValidation))
}

func TestDestSame(t *testing.T) {
	g, err := New(3, 2, RowMajor)
	require.NoError(t, err)
	dests, err := g.Split(2)
	require.NoError(t, err)

	clone := dests[0]
	assert.True(t, dests[0].Same(clone))
	assert.False(t, dests[0].Same(dests[1]))

	other, err := New(3, 2, RowMajor)
	require.NoError(t, err)
	otherDests, err := other.Split(2)
	require.NoError(t, err)
	assert.False(t, dests[0].Same(otherDests[0]))
}

func TestColumnAndRelease(t *testing.T) {
	rt := heap.NewArrowRuntime(nil, 0)
	g, err := New(2, 1, RowMajor)
	require.NoError(t, err)
	dests, err := g.Split(1)
	require.NoError(t, err)

	h, err := rt.NewFloat64Sequence([]float64{1})
	require.NoError(t, err)
	dests[0].Set(0, h)
	dests[0].Set(1, heap.None)

	col := g.Column(0)
	require.Len(t, col, 2)
	assert.Equal(t, 1, col[0].Len())
	assert.True(t, col[1].IsNone())

	g.Release()
	assert.True(t, g.At(0, 0).IsZero())
	assert.True(t, g.At(1, 0).IsZero())
}

func TestParseLayout(t *testing.T) {
	for _, l := range []Layout{RowMajor, ColumnMajor} {
		got, err := ParseLayout(l.String())
		require.NoError(t, err)
		assert.Equal(t, l, got)
	}
	_, err := ParseLayout("diagonal")
	assert.True(t, errors.IsType(err, errors.ErrorTypeValidation))
}

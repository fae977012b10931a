package heap

import (
	"testing"

	"github.com/apache/arrow-go/v18/arrow/memory"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ajitpratap0/gridload/pkg/errors"
)

func TestArrowRuntimeSequences(t *testing.T) {
	mem := memory.NewCheckedAllocator(memory.NewGoAllocator())
	defer mem.AssertSize(t, 0)

	rt := NewArrowRuntime(mem, 0)

	fh, err := rt.NewFloat64Sequence([]float64{1.5, 2.5})
	require.NoError(t, err)
	defer fh.Release()

	vals, ok := fh.Float64s()
	require.True(t, ok)
	assert.Equal(t, []float64{1.5, 2.5}, vals)
	assert.Equal(t, 2, fh.Len())
	_, ok = fh.Int64s()
	assert.False(t, ok)

	ih, err := rt.NewInt64Sequence([]int64{7, 8, 9})
	require.NoError(t, err)
	defer ih.Release()

	ivals, ok := ih.Int64s()
	require.True(t, ok)
	assert.Equal(t, []int64{7, 8, 9}, ivals)

	assert.Equal(t, int64(2), rt.Objects())
	assert.Equal(t, int64(5), rt.Values())
}

func TestArrowRuntimeEmptySequence(t *testing.T) {
	rt := NewArrowRuntime(nil, 0)

	h, err := rt.NewFloat64Sequence(nil)
	require.NoError(t, err)
	defer h.Release()

	assert.False(t, h.IsZero())
	assert.False(t, h.IsNone())
	vals, ok := h.Float64s()
	require.True(t, ok)
	assert.Empty(t, vals)
}

func TestArrowRuntimeCopiesInput(t *testing.T) {
	rt := NewArrowRuntime(nil, 0)
	src := []int64{1, 2}

	h, err := rt.NewInt64Sequence(src)
	require.NoError(t, err)
	defer h.Release()

	src[0] = 100
	vals, _ := h.Int64s()
	assert.Equal(t, []int64{1, 2}, vals)
}

func TestArrowRuntimeMaxValues(t *testing.T) {
	rt := NewArrowRuntime(nil, 3)

	h, err := rt.NewFloat64Sequence([]float64{1, 2})
	require.NoError(t, err)
	defer h.Release()

	_, err = rt.NewFloat64Sequence([]float64{3, 4})
	require.Error(t, err)
	assert.True(t, errors.IsType(err, errors.ErrorTypeHandleConstruction))

	// a failed construction leaves the runtime usable
	h2, err := rt.NewFloat64Sequence([]float64{3})
	require.NoError(t, err)
	defer h2.Release()
}

func TestArrowRuntimeReleaseFreesBudget(t *testing.T) {
	rt := NewArrowRuntime(nil, 4)

	h, err := rt.NewInt64Sequence([]int64{1, 2, 3})
	require.NoError(t, err)
	assert.Equal(t, int64(3), rt.Values())

	_, err = rt.NewInt64Sequence([]int64{4, 5})
	require.Error(t, err)

	h.Release()
	assert.Equal(t, int64(0), rt.Values())

	// the replacement of a released cell fits again
	h2, err := rt.NewInt64Sequence([]int64{4, 5, 6, 7})
	require.NoError(t, err)
	defer h2.Release()
	assert.Equal(t, int64(4), rt.Values())
	assert.Equal(t, int64(2), rt.Objects())

	rt.None().Release()
	assert.Equal(t, int64(4), rt.Values())
}

func TestArrowRuntimeDetectsReentry(t *testing.T) {
	rt := NewArrowRuntime(nil, 0)
	rt.active.Store(1)

	_, err := rt.NewInt64Sequence([]int64{1})
	require.Error(t, err)
	assert.True(t, errors.IsType(err, errors.ErrorTypeHandleConstruction))
}

func TestHandleStates(t *testing.T) {
	var zero Handle
	assert.True(t, zero.IsZero())
	assert.False(t, zero.IsNone())
	assert.Equal(t, 0, zero.Len())
	assert.Nil(t, zero.Array())
	zero.Release()

	rt := NewArrowRuntime(nil, 0)
	none := rt.None()
	assert.True(t, none.IsNone())
	assert.False(t, none.IsZero())
	_, ok := none.Float64s()
	assert.False(t, ok)
}

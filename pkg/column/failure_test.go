package column

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ajitpratap0/gridload/pkg/errors"
	"github.com/ajitpratap0/gridload/pkg/heap"
)

// failingRuntime refuses the failOn-th construction (1-based) and panics on
// the panicOn-th.
type failingRuntime struct {
	heap.Runtime
	failOn  int
	panicOn int
	calls   int
}

func (r *failingRuntime) NewFloat64Sequence(v []float64) (heap.Handle, error) {
	r.calls++
	switch r.calls {
	case r.failOn:
		return heap.Handle{}, fmt.Errorf("runtime refused allocation")
	case r.panicOn:
		panic("runtime crashed")
	}
	return r.Runtime.NewFloat64Sequence(v)
}

func TestFlushFailurePartialProgress(t *testing.T) {
	f := newFixture(t, 3, 1, 1_000_000)
	rt := &failingRuntime{Runtime: heap.NewArrowRuntime(nil, 0), failOn: 2}
	f.opts.Guard = heap.NewGuard(rt)
	col := splitOne[float64](t, f)

	require.NoError(t, col.Write([]float64{1}, 0))
	require.NoError(t, col.Write([]float64{2, 3}, 1))
	require.NoError(t, col.WriteNull(2))

	err := col.Flush()
	require.Error(t, err)
	assert.True(t, errors.IsType(err, errors.ErrorTypeHandleConstruction))
	column, ok := errors.DetailOf(err, "column")
	require.True(t, ok)
	assert.Equal(t, "col0", column)
	row, ok := errors.DetailOf(err, "row")
	require.True(t, ok)
	assert.Equal(t, 1, row)

	// No rollback: the cell written before the failing entry keeps its
	// handle while later cells stay unwritten. The load must be aborted.
	requireFloats(t, f.grid.At(0, 0), []float64{1})
	assert.True(t, f.grid.At(1, 0).IsZero())
	assert.True(t, f.grid.At(2, 0).IsZero())

	// buffered state is untouched
	assert.Equal(t, 3, col.Buffered())
	assert.Len(t, col.buffer, 3)
	assert.Equal(t, 0, col.Stats().Flushes)

	// a retry rewrites every buffered row
	require.NoError(t, col.Flush())
	requireFloats(t, f.grid.At(0, 0), []float64{1})
	requireFloats(t, f.grid.At(1, 0), []float64{2, 3})
	assert.True(t, f.grid.At(2, 0).IsNone())
}

func TestHeapExhaustionSurfacesFromWrite(t *testing.T) {
	f := newFixture(t, 2, 1, 2)
	f.opts.Guard = heap.NewGuard(heap.NewArrowRuntime(nil, 3))
	col := splitOne[float64](t, f)

	require.NoError(t, col.Write([]float64{1, 2}, 0))
	err := col.Write([]float64{3, 4}, 1)
	require.Error(t, err)
	assert.True(t, errors.IsType(err, errors.ErrorTypeHandleConstruction))
	assert.Equal(t, 1, col.Buffered())
}

func TestPanicPoisonsEveryWriter(t *testing.T) {
	f := newFixture(t, 2, 2, 1)
	rt := &failingRuntime{Runtime: heap.NewArrowRuntime(nil, 0), panicOn: 1}
	f.opts.Guard = heap.NewGuard(rt)
	cols, err := Split[float64](f.grid, 2, f.opts)
	require.NoError(t, err)

	assert.Panics(t, func() {
		_ = cols[0].Write([]float64{1}, 0)
	})

	err = cols[1].Write([]float64{2}, 0)
	require.Error(t, err)
	assert.True(t, errors.IsType(err, errors.ErrorTypeLockPoisoned))
	column, _ := errors.DetailOf(err, "column")
	assert.Equal(t, "col1", column)

	err = cols[1].Finalize()
	assert.True(t, errors.IsType(err, errors.ErrorTypeLockPoisoned))
}

func TestRetriedFlushStaysWithinValueBudget(t *testing.T) {
	f := newFixture(t, 2, 1, 1_000_000)
	arrow := heap.NewArrowRuntime(nil, 5)
	f.opts.Guard = heap.NewGuard(&failingRuntime{Runtime: arrow, failOn: 2})
	col := splitOne[float64](t, f)

	require.NoError(t, col.Write([]float64{1, 2}, 0))
	require.NoError(t, col.Write([]float64{3, 4}, 1))
	require.Error(t, col.Flush())
	assert.Equal(t, int64(2), arrow.Values())

	// the retry rebuilds row 0 and releases the stale handle it replaces
	require.NoError(t, col.Flush())
	assert.Equal(t, int64(4), arrow.Values())
	requireFloats(t, f.grid.At(0, 0), []float64{1, 2})
	requireFloats(t, f.grid.At(1, 0), []float64{3, 4})

	f.grid.Release()
	assert.Equal(t, int64(0), arrow.Values())
}

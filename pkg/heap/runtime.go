package heap

import (
	"sync/atomic"

	"github.com/apache/arrow-go/v18/arrow/array"
	"github.com/apache/arrow-go/v18/arrow/memory"

	"github.com/ajitpratap0/gridload/pkg/errors"
)

// Runtime constructs sequence handles. Implementations are not safe for
// concurrent use and must only be reached through Guard.Do.
type Runtime interface {
	// NewFloat64Sequence builds a handle holding a copy of values.
	NewFloat64Sequence(values []float64) (Handle, error)
	// NewInt64Sequence builds a handle holding a copy of values.
	NewInt64Sequence(values []int64) (Handle, error)
	// None returns the null object.
	None() Handle
}

// ArrowRuntime is a Runtime that stores sequences as Arrow arrays built on a
// shared allocator.
type ArrowRuntime struct {
	mem       memory.Allocator
	maxValues int64

	values  atomic.Int64
	objects atomic.Int64
	active  atomic.Int32
}

// NewArrowRuntime creates a runtime allocating from mem. A nil allocator uses
// memory.DefaultAllocator. maxValues caps the total number of scalars the
// runtime holds at once, 0 means unlimited. Releasing a handle frees its
// values for later constructions.
func NewArrowRuntime(mem memory.Allocator, maxValues int64) *ArrowRuntime {
	if mem == nil {
		mem = memory.DefaultAllocator
	}
	return &ArrowRuntime{
		mem:       mem,
		maxValues: maxValues,
	}
}

// NewFloat64Sequence implements Runtime.
func (r *ArrowRuntime) NewFloat64Sequence(values []float64) (Handle, error) {
	if err := r.enter(len(values)); err != nil {
		return Handle{}, err
	}
	defer r.exit()

	b := array.NewFloat64Builder(r.mem)
	defer b.Release()
	b.AppendValues(values, nil)
	return r.track(NewHandle(b.NewFloat64Array()), len(values)), nil
}

// NewInt64Sequence implements Runtime.
func (r *ArrowRuntime) NewInt64Sequence(values []int64) (Handle, error) {
	if err := r.enter(len(values)); err != nil {
		return Handle{}, err
	}
	defer r.exit()

	b := array.NewInt64Builder(r.mem)
	defer b.Release()
	b.AppendValues(values, nil)
	return r.track(NewHandle(b.NewInt64Array()), len(values)), nil
}

// None implements Runtime.
func (r *ArrowRuntime) None() Handle { return None }

// Objects returns the number of sequences constructed so far, released or not.
func (r *ArrowRuntime) Objects() int64 { return r.objects.Load() }

// Values returns the number of scalars held by live sequences.
func (r *ArrowRuntime) Values() int64 { return r.values.Load() }

func (r *ArrowRuntime) enter(n int) error {
	if !r.active.CompareAndSwap(0, 1) {
		return errors.New(errors.ErrorTypeHandleConstruction, "runtime entered concurrently, allocation lock not held")
	}
	if r.maxValues > 0 && r.values.Load()+int64(n) > r.maxValues {
		r.active.Store(0)
		return errors.New(errors.ErrorTypeHandleConstruction, "heap exhausted").
			WithDetail("requested", n).
			WithDetail("held", r.values.Load()).
			WithDetail("max_values", r.maxValues)
	}
	return nil
}

func (r *ArrowRuntime) exit() {
	r.active.Store(0)
}

func (r *ArrowRuntime) track(h Handle, n int) Handle {
	r.values.Add(int64(n))
	r.objects.Add(1)
	h.held = &r.values
	return h
}

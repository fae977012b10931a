package heap

import (
	"sync/atomic"

	"github.com/apache/arrow-go/v18/arrow"
	"github.com/apache/arrow-go/v18/arrow/array"
)

// Handle is an opaque reference to a sequence object owned by a Runtime.
//
// The zero Handle marks a grid cell that has never been written. The None
// handle is the runtime's null object.
type Handle struct {
	arr  arrow.Array
	none bool
	// held is the owning runtime's value counter, credited back on Release
	held *atomic.Int64
}

// None is the runtime's null object.
var None = Handle{none: true}

// NewHandle wraps an Arrow array. Ownership of one reference moves to the handle.
func NewHandle(arr arrow.Array) Handle {
	return Handle{arr: arr}
}

// IsZero reports whether the cell holding h was never written.
func (h Handle) IsZero() bool { return h.arr == nil && !h.none }

// IsNone reports whether h is the null object.
func (h Handle) IsNone() bool { return h.none }

// Len returns the number of elements of the sequence, 0 for None and zero handles.
func (h Handle) Len() int {
	if h.arr == nil {
		return 0
	}
	return h.arr.Len()
}

// Array returns the underlying Arrow array, nil for None and zero handles.
func (h Handle) Array() arrow.Array { return h.arr }

// Float64s returns a copy of the values if h holds a float64 sequence.
func (h Handle) Float64s() ([]float64, bool) {
	a, ok := h.arr.(*array.Float64)
	if !ok {
		return nil, false
	}
	return append([]float64{}, a.Float64Values()...), true
}

// Int64s returns a copy of the values if h holds an int64 sequence.
func (h Handle) Int64s() ([]int64, bool) {
	a, ok := h.arr.(*array.Int64)
	if !ok {
		return nil, false
	}
	return append([]int64{}, a.Int64Values()...), true
}

// Release drops the handle's reference to its array and returns its values
// to the owning runtime's budget. Each handle is released once by its owner.
func (h Handle) Release() {
	if h.arr == nil {
		return
	}
	if h.held != nil {
		h.held.Add(-int64(h.arr.Len()))
	}
	h.arr.Release()
}

// Package heap models the foreign object runtime that owns the values stored
// in a destination grid.
//
// A Runtime constructs opaque sequence handles from scalar slices. Runtimes are
// not reentrant: every call must be made while holding the process-wide
// allocation lock, which is exposed only through Guard.Do. Column writers never
// see a Runtime outside that callback.
//
//	g := heap.Global()
//	err := g.Do(func(rt heap.Runtime) error {
//	    h, err := rt.NewFloat64Sequence([]float64{1, 2})
//	    if err != nil {
//	        return err
//	    }
//	    cells[row] = h
//	    return nil
//	})
//
// The default runtime stores sequences as Apache Arrow arrays.
package heap

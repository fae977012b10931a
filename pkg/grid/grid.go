// Package grid provides the pre-allocated destination of a load: a 2-D view
// of sequence-handle cells shared by every column writer.
//
// A Grid is split exactly once into per-column write capabilities (Dest).
// Dests address the shared cell slice directly; writers holding Dests of the
// same column must target disjoint rows. That contract is not checked here.
package grid

import (
	"sync/atomic"

	"github.com/ajitpratap0/gridload/pkg/errors"
	"github.com/ajitpratap0/gridload/pkg/heap"
)

// DType is the element type declared by the allocator of a grid.
type DType string

// DTypeObject is the only element type column writers accept: opaque
// sequence handles.
const DTypeObject DType = "object"

// Layout describes how cells are ordered in the backing slice.
type Layout int

const (
	// RowMajor stores each row contiguously, columns have stride cols.
	RowMajor Layout = iota
	// ColumnMajor stores each column contiguously, columns have stride 1.
	ColumnMajor
)

func (l Layout) String() string {
	switch l {
	case RowMajor:
		return "row_major"
	case ColumnMajor:
		return "column_major"
	default:
		return "unknown"
	}
}

// ParseLayout parses row_major or column_major.
func ParseLayout(s string) (Layout, error) {
	switch s {
	case "row_major", "":
		return RowMajor, nil
	case "column_major":
		return ColumnMajor, nil
	default:
		return RowMajor, errors.Newf(errors.ErrorTypeValidation, "unknown layout %q", s)
	}
}

// Grid is a rows x cols view over handle cells.
type Grid struct {
	cells  []heap.Handle
	rows   int
	cols   int
	layout Layout
	dtype  DType
	split  atomic.Bool
}

// New allocates a grid of object cells. Every cell starts out zero.
func New(rows, cols int, layout Layout) (*Grid, error) {
	if rows < 0 || cols < 0 {
		return nil, errors.Newf(errors.ErrorTypeShapeMismatch, "invalid grid shape %dx%d", rows, cols)
	}
	return FromCells(make([]heap.Handle, rows*cols), rows, cols, layout, DTypeObject)
}

// FromCells wraps an externally allocated cell buffer.
func FromCells(cells []heap.Handle, rows, cols int, layout Layout, dtype DType) (*Grid, error) {
	if rows < 0 || cols < 0 || rows*cols != len(cells) {
		return nil, errors.Newf(errors.ErrorTypeShapeMismatch, "cannot view %d cells as %dx%d", len(cells), rows, cols).
			WithDetail("cells", len(cells)).
			WithDetail("rows", rows).
			WithDetail("cols", cols)
	}
	if layout != RowMajor && layout != ColumnMajor {
		return nil, errors.Newf(errors.ErrorTypeShapeMismatch, "unknown layout %d", int(layout))
	}
	return &Grid{
		cells:  cells,
		rows:   rows,
		cols:   cols,
		layout: layout,
		dtype:  dtype,
	}, nil
}

// Rows returns the number of rows.
func (g *Grid) Rows() int { return g.rows }

// Cols returns the number of columns.
func (g *Grid) Cols() int { return g.cols }

// Layout returns the storage order of the cells.
func (g *Grid) Layout() Layout { return g.layout }

// DType returns the declared element type.
func (g *Grid) DType() DType { return g.dtype }

// At returns the cell at (row, col). It must not be called while writers are active.
func (g *Grid) At(row, col int) heap.Handle {
	return g.cells[g.index(row, col)]
}

// Column returns a copy of the cells of col. It must not be called while writers are active.
func (g *Grid) Column(col int) []heap.Handle {
	out := make([]heap.Handle, g.rows)
	for r := range out {
		out[r] = g.At(r, col)
	}
	return out
}

// Release drops every handle held by the grid and resets the cells to zero.
func (g *Grid) Release() {
	for i := range g.cells {
		g.cells[i].Release()
		g.cells[i] = heap.Handle{}
	}
}

func (g *Grid) index(row, col int) int {
	base, stride := g.strides(col)
	return base + row*stride
}

func (g *Grid) strides(col int) (base, stride int) {
	if g.layout == ColumnMajor {
		return col * g.rows, 1
	}
	return col, g.cols
}

// Split hands out one Dest per column. ncols is the column count the caller
// expects; it must match the grid's shape. A grid can be split only once.
func (g *Grid) Split(ncols int) ([]Dest, error) {
	if g.dtype != DTypeObject {
		return nil, errors.Newf(errors.ErrorTypeDTypeMismatch, "expected %s grid, got %s", DTypeObject, g.dtype)
	}
	if ncols <= 0 || ncols != g.cols {
		return nil, errors.Newf(errors.ErrorTypeShapeMismatch, "cannot split %dx%d grid into %d columns", g.rows, g.cols, ncols).
			WithDetail("cells", len(g.cells)).
			WithDetail("columns", ncols)
	}
	if !g.split.CompareAndSwap(false, true) {
		return nil, errors.New(errors.ErrorTypeValidation, "grid already split")
	}

	dests := make([]Dest, ncols)
	for c := range dests {
		base, stride := g.strides(c)
		dests[c] = Dest{
			cells:  g.cells,
			base:   base,
			stride: stride,
			rows:   g.rows,
			col:    c,
		}
	}
	return dests, nil
}

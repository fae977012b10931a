package grid

import "github.com/ajitpratap0/gridload/pkg/heap"

// Dest is the write capability of one grid column: cell i of the column lives
// at base + i*stride in the shared cell slice. Copies of a Dest alias the same
// cells.
type Dest struct {
	cells  []heap.Handle
	base   int
	stride int
	rows   int
	col    int
}

// Rows returns the number of rows of the column.
func (d Dest) Rows() int { return d.rows }

// Column returns the index of the column in its grid.
func (d Dest) Column() int { return d.col }

// Stride returns the distance between consecutive rows in the cell slice.
func (d Dest) Stride() int { return d.stride }

// Set stores h in row. row must be in [0, Rows()).
func (d Dest) Set(row int, h heap.Handle) {
	d.cells[d.base+row*d.stride] = h
}

// Get returns the cell at row.
func (d Dest) Get(row int) heap.Handle {
	return d.cells[d.base+row*d.stride]
}

// Same reports whether d and o address the same column of the same grid.
func (d Dest) Same(o Dest) bool {
	if len(d.cells) != len(o.cells) || d.base != o.base || d.stride != o.stride || d.rows != o.rows {
		return false
	}
	return len(d.cells) == 0 || &d.cells[0] == &o.cells[0]
}

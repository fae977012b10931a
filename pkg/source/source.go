// Package source provides the upstream side of a load: partitioned row
// sources that deliver one value per column for every destination row.
package source

import (
	"context"
	"fmt"

	"github.com/ajitpratap0/gridload/pkg/column"
)

// Field describes one column of a source.
type Field struct {
	Name string      `json:"name" yaml:"name"`
	Kind column.Kind `json:"-" yaml:"-"`
}

// Schema is the ordered list of columns of a source.
type Schema []Field

// Names returns the column names in order.
func (s Schema) Names() []string {
	names := make([]string, len(s))
	for i, f := range s {
		names[i] = f.Name
	}
	return names
}

// Range is a half-open range of destination rows [Start, End).
type Range struct {
	Start int
	End   int
}

// Len returns the number of rows in r.
func (r Range) Len() int { return r.End - r.Start }

// Contains reports whether row lies in r.
func (r Range) Contains(row int) bool { return row >= r.Start && row < r.End }

func (r Range) String() string { return fmt.Sprintf("[%d, %d)", r.Start, r.End) }

// Row is one upstream row. Values holds one entry per schema field; an untyped
// nil entry is a null, while a nil []float64 or []int64 is an empty list.
type Row struct {
	Index  int
	Values []any
}

// Reader iterates the rows of one partition.
type Reader interface {
	// Next returns the next row, or io.EOF when the partition is exhausted.
	Next(ctx context.Context) (Row, error)
	Close() error
}

// Partitioned is a source that can be read in independent row ranges.
type Partitioned interface {
	Schema() Schema
	Rows() int
	Open(ctx context.Context, r Range) (Reader, error)
}

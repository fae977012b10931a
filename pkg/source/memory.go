package source

import (
	"context"
	"io"

	"github.com/ajitpratap0/gridload/pkg/errors"
)

// Memory is a Partitioned source over rows held in memory. Row i of the
// source is written to destination row i.
type Memory struct {
	schema Schema
	rows   [][]any
}

// NewMemory creates a source; every row must have one value per field.
func NewMemory(schema Schema, rows [][]any) (*Memory, error) {
	for i, r := range rows {
		if len(r) != len(schema) {
			return nil, errors.Newf(errors.ErrorTypeValidation, "row %d has %d values, schema has %d fields", i, len(r), len(schema))
		}
	}
	return &Memory{schema: schema, rows: rows}, nil
}

// Schema implements Partitioned.
func (m *Memory) Schema() Schema { return m.schema }

// Rows implements Partitioned.
func (m *Memory) Rows() int { return len(m.rows) }

// Open implements Partitioned.
func (m *Memory) Open(_ context.Context, r Range) (Reader, error) {
	if r.Start < 0 || r.End > len(m.rows) || r.Start > r.End {
		return nil, errors.Newf(errors.ErrorTypeValidation, "range %s outside source of %d rows", r, len(m.rows))
	}
	return &memoryReader{rows: m.rows, next: r.Start, end: r.End}, nil
}

type memoryReader struct {
	rows [][]any
	next int
	end  int
}

func (r *memoryReader) Next(ctx context.Context) (Row, error) {
	if err := ctx.Err(); err != nil {
		return Row{}, err
	}
	if r.next >= r.end {
		return Row{}, io.EOF
	}
	row := Row{Index: r.next, Values: r.rows[r.next]}
	r.next++
	return row, nil
}

func (r *memoryReader) Close() error { return nil }

package source

import (
	"context"

	"github.com/jackc/pgx/v5"

	"github.com/ajitpratap0/gridload/pkg/column"
	"github.com/ajitpratap0/gridload/pkg/errors"
)

// Querier is satisfied by *pgx.Conn, *pgxpool.Pool and pgx.Tx.
type Querier interface {
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
}

// ReadPostgres runs query and decodes its result into a Memory source. The
// query must return one array column (float8[] or int8[]) per schema field,
// in schema order. SQL NULL becomes a null row.
func ReadPostgres(ctx context.Context, q Querier, schema Schema, query string, args ...any) (*Memory, error) {
	rows, err := q.Query(ctx, query, args...)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrorTypeSource, "postgres query")
	}
	defer rows.Close()

	if got := len(rows.FieldDescriptions()); got != len(schema) {
		return nil, errors.Newf(errors.ErrorTypeSource, "query returns %d columns, schema has %d", got, len(schema))
	}

	var out [][]any
	for rows.Next() {
		dest := make([]any, len(schema))
		for i, f := range schema {
			switch f.Kind {
			case column.KindFloat64List:
				dest[i] = new([]float64)
			case column.KindInt64List:
				dest[i] = new([]int64)
			default:
				return nil, errors.Newf(errors.ErrorTypeValidation, "field %s has unsupported kind %s", f.Name, f.Kind)
			}
		}
		if err := rows.Scan(dest...); err != nil {
			return nil, errors.Wrap(err, errors.ErrorTypeSource, "scan postgres row").WithDetail("row", len(out))
		}

		values := make([]any, len(schema))
		for i, d := range dest {
			switch v := d.(type) {
			case *[]float64:
				if *v != nil {
					values[i] = *v
				}
			case *[]int64:
				if *v != nil {
					values[i] = *v
				}
			}
		}
		out = append(out, values)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.Wrap(err, errors.ErrorTypeSource, "read postgres rows").WithDetail("row", len(out))
	}
	return NewMemory(schema, out)
}

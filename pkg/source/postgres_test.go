package source

import (
	"context"
	"fmt"
	"testing"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ajitpratap0/gridload/pkg/errors"
)

// fakeRows serves pre-decoded rows through the pgx.Rows interface.
type fakeRows struct {
	fields int
	data   [][]any
	pos    int
	err    error
	closed bool
}

func (r *fakeRows) Close()                                       { r.closed = true }
func (r *fakeRows) Err() error                                   { return r.err }
func (r *fakeRows) CommandTag() pgconn.CommandTag                { return pgconn.CommandTag{} }
func (r *fakeRows) Values() ([]any, error)                       { return r.data[r.pos-1], nil }
func (r *fakeRows) RawValues() [][]byte                          { return nil }
func (r *fakeRows) Conn() *pgx.Conn                              { return nil }
func (r *fakeRows) FieldDescriptions() []pgconn.FieldDescription { return make([]pgconn.FieldDescription, r.fields) }

func (r *fakeRows) Next() bool {
	if r.pos >= len(r.data) {
		return false
	}
	r.pos++
	return true
}

func (r *fakeRows) Scan(dest ...any) error {
	row := r.data[r.pos-1]
	for i, d := range dest {
		switch p := d.(type) {
		case *[]float64:
			v, ok := row[i].([]float64)
			if row[i] != nil && !ok {
				return fmt.Errorf("cannot scan %T into float8[]", row[i])
			}
			*p = v
		case *[]int64:
			v, ok := row[i].([]int64)
			if row[i] != nil && !ok {
				return fmt.Errorf("cannot scan %T into int8[]", row[i])
			}
			*p = v
		}
	}
	return nil
}

type fakeQuerier struct {
	rows  *fakeRows
	err   error
	query string
	args  []any
}

func (q *fakeQuerier) Query(_ context.Context, sql string, args ...any) (pgx.Rows, error) {
	q.query, q.args = sql, args
	if q.err != nil {
		return nil, q.err
	}
	return q.rows, nil
}

func TestReadPostgres(t *testing.T) {
	q := &fakeQuerier{rows: &fakeRows{fields: 2, data: [][]any{
		{[]float64{1, 2}, []int64{3}},
		{nil, []int64{}},
	}}}

	src, err := ReadPostgres(context.Background(), q, testSchema, "SELECT scores, ids FROM features WHERE day = $1", "2024-01-01")
	require.NoError(t, err)
	assert.True(t, q.rows.closed)
	assert.Equal(t, []any{"2024-01-01"}, q.args)

	require.Equal(t, 2, src.Rows())
	assert.Equal(t, []float64{1, 2}, src.rows[0][0])
	assert.Nil(t, src.rows[1][0])
	assert.Equal(t, []int64{}, src.rows[1][1])
}

func TestReadPostgresErrors(t *testing.T) {
	ctx := context.Background()

	_, err := ReadPostgres(ctx, &fakeQuerier{err: fmt.Errorf("connection refused")}, testSchema, "SELECT 1")
	assert.True(t, errors.IsType(err, errors.ErrorTypeSource))

	_, err = ReadPostgres(ctx, &fakeQuerier{rows: &fakeRows{fields: 1}}, testSchema, "SELECT scores")
	assert.True(t, errors.IsType(err, errors.ErrorTypeSource))

	_, err = ReadPostgres(ctx, &fakeQuerier{rows: &fakeRows{fields: 2, data: [][]any{{"x", nil}}}}, testSchema, "SELECT")
	require.Error(t, err)
	row, _ := errors.DetailOf(err, "row")
	assert.Equal(t, 0, row)

	_, err = ReadPostgres(ctx, &fakeQuerier{rows: &fakeRows{fields: 2, err: fmt.Errorf("reset")}}, testSchema, "SELECT")
	assert.True(t, errors.IsType(err, errors.ErrorTypeSource))
}

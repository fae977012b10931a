package source

import (
	"context"
	"io"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ajitpratap0/gridload/pkg/column"
	"github.com/ajitpratap0/gridload/pkg/errors"
)

var testSchema = Schema{
	{Name: "scores", Kind: column.KindFloat64List},
	{Name: "ids", Kind: column.KindInt64List},
}

func TestMemoryOpenRange(t *testing.T) {
	src, err := NewMemory(testSchema, [][]any{
		{[]float64{1}, nil},
		{nil, []int64{2}},
		{[]float64{3}, []int64{3}},
	})
	require.NoError(t, err)
	assert.Equal(t, 3, src.Rows())

	ctx := context.Background()
	r, err := src.Open(ctx, Range{Start: 1, End: 3})
	require.NoError(t, err)
	defer r.Close()

	row, err := r.Next(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, row.Index)
	assert.Nil(t, row.Values[0])

	row, err = r.Next(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, row.Index)

	_, err = r.Next(ctx)
	assert.Equal(t, io.EOF, err)
}

func TestMemoryValidation(t *testing.T) {
	_, err := NewMemory(testSchema, [][]any{{nil}})
	assert.True(t, errors.IsType(err, errors.ErrorTypeValidation))

	src, err := NewMemory(testSchema, nil)
	require.NoError(t, err)
	_, err = src.Open(context.Background(), Range{Start: 0, End: 1})
	assert.True(t, errors.IsType(err, errors.ErrorTypeValidation))
}

func TestMemoryReaderHonorsContext(t *testing.T) {
	src, err := NewMemory(testSchema, [][]any{{nil, nil}})
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	r, err := src.Open(ctx, Range{Start: 0, End: 1})
	require.NoError(t, err)
	cancel()

	_, err = r.Next(ctx)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestReadJSONLines(t *testing.T) {
	input := `{"scores": [1.5, 2], "ids": [1, 2, 3]}

{"scores": null, "ids": []}
{"ids": [7]}
`
	src, err := ReadJSONLines(strings.NewReader(input), testSchema)
	require.NoError(t, err)
	require.Equal(t, 3, src.Rows())

	assert.Equal(t, []float64{1.5, 2}, src.rows[0][0])
	assert.Equal(t, []int64{1, 2, 3}, src.rows[0][1])
	assert.Nil(t, src.rows[1][0])
	assert.Equal(t, []int64{}, src.rows[1][1])
	assert.Nil(t, src.rows[2][0])
	assert.Equal(t, []int64{7}, src.rows[2][1])
}

func TestReadJSONLinesErrors(t *testing.T) {
	_, err := ReadJSONLines(strings.NewReader("{not json}\n"), testSchema)
	require.Error(t, err)
	assert.True(t, errors.IsType(err, errors.ErrorTypeSource))

	_, err = ReadJSONLines(strings.NewReader(`{"ids": [1.5]}`+"\n"), testSchema)
	require.Error(t, err)
	line, ok := errors.DetailOf(err, "line")
	require.True(t, ok)
	assert.Equal(t, 1, line)
	field, _ := errors.DetailOf(err, "field")
	assert.Equal(t, "ids", field)

	input := `{"scores": [1.5], "ids": [1]}` + "\n" + `{"scores": [1, null, 2]}` + "\n"
	_, err = ReadJSONLines(strings.NewReader(input), testSchema)
	require.Error(t, err)
	assert.True(t, errors.IsType(err, errors.ErrorTypeSource))
	line, _ = errors.DetailOf(err, "line")
	assert.Equal(t, 2, line)
	field, _ = errors.DetailOf(err, "field")
	assert.Equal(t, "scores", field)
	index, _ := errors.DetailOf(err, "index")
	assert.Equal(t, 1, index)

	_, err = ReadJSONLines(strings.NewReader(`{"ids": [null]}`+"\n"), testSchema)
	assert.True(t, errors.IsType(err, errors.ErrorTypeSource))
}

func TestParseSchema(t *testing.T) {
	schema, err := ParseSchema([]string{"scores:list<float64>", "ids:int64_list"})
	require.NoError(t, err)
	assert.Equal(t, testSchema, schema)
	assert.Equal(t, []string{"scores", "ids"}, schema.Names())

	for _, bad := range []string{"scores", ":list<int64>", "x:", "x:list<string>"} {
		_, err := ParseSchema([]string{bad})
		assert.Error(t, err, bad)
	}
	_, err = ParseSchema([]string{"a:list<int64>", "a:list<float64>"})
	assert.Error(t, err)
}

func TestRange(t *testing.T) {
	r := Range{Start: 2, End: 5}
	assert.Equal(t, 3, r.Len())
	assert.True(t, r.Contains(2))
	assert.False(t, r.Contains(5))
	assert.Equal(t, "[2, 5)", r.String())
}

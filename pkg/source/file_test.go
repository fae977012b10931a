package source

import (
	"bytes"
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/klauspost/compress/gzip"
	"github.com/klauspost/compress/snappy"
	"github.com/klauspost/compress/zstd"
	"github.com/pierrec/lz4/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ajitpratap0/gridload/pkg/errors"
)

const fileRows = `{"scores": [1.5], "ids": [1, 2]}
{"scores": null, "ids": []}
`

func compress(t *testing.T, codec Codec, data []byte) []byte {
	t.Helper()
	var buf bytes.Buffer
	var w io.WriteCloser
	switch codec {
	case CodecNone:
		return data
	case CodecGzip:
		w = gzip.NewWriter(&buf)
	case CodecZstd:
		enc, err := zstd.NewWriter(&buf)
		require.NoError(t, err)
		w = enc
	case CodecLZ4:
		w = lz4.NewWriter(&buf)
	case CodecSnappy:
		w = snappy.NewBufferedWriter(&buf)
	}
	_, err := w.Write(data)
	require.NoError(t, err)
	require.NoError(t, w.Close())
	return buf.Bytes()
}

func TestCodecFor(t *testing.T) {
	assert.Equal(t, CodecGzip, CodecFor("rows.jsonl.gz"))
	assert.Equal(t, CodecZstd, CodecFor("ROWS.ZST"))
	assert.Equal(t, CodecLZ4, CodecFor("a/b.lz4"))
	assert.Equal(t, CodecSnappy, CodecFor("b.sz"))
	assert.Equal(t, CodecNone, CodecFor("rows.jsonl"))
}

func TestOpenFileDecompresses(t *testing.T) {
	exts := map[Codec]string{
		CodecNone:   ".jsonl",
		CodecGzip:   ".jsonl.gz",
		CodecZstd:   ".jsonl.zst",
		CodecLZ4:    ".jsonl.lz4",
		CodecSnappy: ".jsonl.sz",
	}
	for codec, ext := range exts {
		t.Run(string(codec), func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "rows"+ext)
			require.NoError(t, os.WriteFile(path, compress(t, codec, []byte(fileRows)), 0o600))

			r, err := OpenFile(path)
			require.NoError(t, err)
			src, err := ReadJSONLines(r, testSchema)
			require.NoError(t, err)
			require.NoError(t, r.Close())

			require.Equal(t, 2, src.Rows())
			assert.Equal(t, []float64{1.5}, src.rows[0][0])
			assert.Equal(t, []int64{1, 2}, src.rows[0][1])
			assert.Nil(t, src.rows[1][0])
		})
	}
}

func TestOpenFileErrors(t *testing.T) {
	_, err := OpenFile(filepath.Join(t.TempDir(), "missing.jsonl"))
	assert.True(t, errors.IsType(err, errors.ErrorTypeFile))

	path := filepath.Join(t.TempDir(), "bad.gz")
	require.NoError(t, os.WriteFile(path, []byte("not gzip"), 0o600))
	_, err = OpenFile(path)
	assert.True(t, errors.IsType(err, errors.ErrorTypeSource))

	_, err = Decompress(bytes.NewReader(nil), Codec("brotli"))
	assert.True(t, errors.IsType(err, errors.ErrorTypeValidation))
}

// Package export writes a materialized grid out as list columns, either as an
// Arrow IPC file or as Parquet. Cells holding the null object, and cells that
// were never written, are exported as null lists.
package export

import (
	goerrors "errors"
	"io"
	"os"

	"github.com/apache/arrow-go/v18/arrow"
	"github.com/apache/arrow-go/v18/arrow/array"
	"github.com/apache/arrow-go/v18/arrow/ipc"
	"github.com/apache/arrow-go/v18/arrow/memory"
	"github.com/apache/arrow-go/v18/parquet"
	"github.com/apache/arrow-go/v18/parquet/compress"
	"github.com/apache/arrow-go/v18/parquet/pqarrow"
	"go.uber.org/zap"

	"github.com/ajitpratap0/gridload/pkg/column"
	"github.com/ajitpratap0/gridload/pkg/config"
	"github.com/ajitpratap0/gridload/pkg/errors"
	"github.com/ajitpratap0/gridload/pkg/grid"
	"github.com/ajitpratap0/gridload/pkg/logger"
)

// DefaultBatchRows is the number of grid rows per record batch.
const DefaultBatchRows = 64 * 1024

// Column names and types one grid column.
type Column struct {
	Name string
	Kind column.Kind
}

// Options tunes a Writer.
type Options struct {
	Allocator memory.Allocator
	BatchRows int
	Logger    *zap.Logger
}

// Writer exports grids in one format.
type Writer struct {
	cfg    config.ExportConfig
	mem    memory.Allocator
	batch  int
	logger *zap.Logger
}

// NewWriter creates a writer for cfg.Format (arrow when empty).
func NewWriter(cfg config.ExportConfig, opts Options) (*Writer, error) {
	if cfg.Format == "" {
		cfg.Format = config.FormatArrow
	}
	if cfg.Format != config.FormatArrow && cfg.Format != config.FormatParquet {
		return nil, errors.Newf(errors.ErrorTypeConfig, "unknown export format %q", cfg.Format)
	}
	w := &Writer{cfg: cfg, mem: opts.Allocator, batch: opts.BatchRows, logger: opts.Logger}
	if w.mem == nil {
		w.mem = memory.NewGoAllocator()
	}
	if w.batch <= 0 {
		w.batch = DefaultBatchRows
	}
	if w.logger == nil {
		w.logger = logger.Get()
	}
	return w, nil
}

// Schema returns the Arrow schema of the exported columns.
func Schema(cols []Column) (*arrow.Schema, error) {
	fields := make([]arrow.Field, len(cols))
	for i, c := range cols {
		elem, err := elementType(c.Kind)
		if err != nil {
			return nil, errors.Wrap(err, errors.ErrorTypeValidation, "export schema").WithDetail("column", c.Name)
		}
		fields[i] = arrow.Field{Name: c.Name, Type: arrow.ListOf(elem), Nullable: true}
	}
	return arrow.NewSchema(fields, nil), nil
}

// Write streams g to out and returns the number of rows written.
func (w *Writer) Write(out io.Writer, g *grid.Grid, cols []Column) (int, error) {
	if len(cols) != g.Cols() {
		return 0, errors.Newf(errors.ErrorTypeShapeMismatch, "grid has %d columns, export names %d", g.Cols(), len(cols))
	}
	schema, err := Schema(cols)
	if err != nil {
		return 0, err
	}

	rw, err := w.open(out, schema)
	if err != nil {
		return 0, err
	}

	for start := 0; start < g.Rows(); start += w.batch {
		end := min(start+w.batch, g.Rows())
		rec, err := w.record(schema, g, cols, start, end)
		if err != nil {
			_ = rw.Close()
			return start, err
		}
		err = rw.Write(rec)
		rec.Release()
		if err != nil {
			_ = rw.Close()
			return start, errors.Wrap(err, errors.ErrorTypeFile, "write record batch").
				WithDetail("row_start", start).
				WithDetail("format", w.cfg.Format)
		}
	}
	if err := rw.Close(); err != nil {
		return g.Rows(), errors.Wrap(err, errors.ErrorTypeFile, "close "+w.cfg.Format+" writer")
	}

	w.logger.Info("exported grid",
		zap.String("format", w.cfg.Format),
		zap.String("compression", w.cfg.Compression),
		zap.Int("rows", g.Rows()),
		zap.Int("columns", len(cols)))
	return g.Rows(), nil
}

// WriteFile exports g to cfg.Path.
func (w *Writer) WriteFile(g *grid.Grid, cols []Column) (int, error) {
	if w.cfg.Path == "" {
		return 0, errors.New(errors.ErrorTypeConfig, "export path is empty")
	}
	f, err := os.Create(w.cfg.Path)
	if err != nil {
		return 0, errors.Wrap(err, errors.ErrorTypeFile, "create export file").WithDetail("path", w.cfg.Path)
	}
	n, err := w.Write(f, g, cols)
	// the parquet writer closes its sink
	if cerr := f.Close(); cerr != nil && !goerrors.Is(cerr, os.ErrClosed) && err == nil {
		err = errors.Wrap(cerr, errors.ErrorTypeFile, "close export file").WithDetail("path", w.cfg.Path)
	}
	return n, err
}

type recordWriter interface {
	Write(arrow.Record) error
	Close() error
}

func (w *Writer) open(out io.Writer, schema *arrow.Schema) (recordWriter, error) {
	switch w.cfg.Format {
	case config.FormatParquet:
		codec, err := parquetCodec(w.cfg.Compression)
		if err != nil {
			return nil, err
		}
		props := parquet.NewWriterProperties(
			parquet.WithCompression(codec),
			parquet.WithAllocator(w.mem),
		)
		fw, err := pqarrow.NewFileWriter(schema, out, props, pqarrow.NewArrowWriterProperties(pqarrow.WithAllocator(w.mem)))
		if err != nil {
			return nil, errors.Wrap(err, errors.ErrorTypeFile, "create parquet writer")
		}
		return fw, nil
	default:
		opts := []ipc.Option{ipc.WithSchema(schema), ipc.WithAllocator(w.mem)}
		switch w.cfg.Compression {
		case "", "none":
		case "lz4":
			opts = append(opts, ipc.WithLZ4())
		case "zstd":
			opts = append(opts, ipc.WithZstd())
		default:
			return nil, errors.Newf(errors.ErrorTypeConfig, "compression %q is not supported by arrow export", w.cfg.Compression)
		}
		fw, err := ipc.NewFileWriter(out, opts...)
		if err != nil {
			return nil, errors.Wrap(err, errors.ErrorTypeFile, "create arrow writer")
		}
		return fw, nil
	}
}

func parquetCodec(name string) (compress.Compression, error) {
	switch name {
	case "", "none":
		return compress.Codecs.Uncompressed, nil
	case "snappy":
		return compress.Codecs.Snappy, nil
	case "lz4":
		return compress.Codecs.Lz4Raw, nil
	case "zstd":
		return compress.Codecs.Zstd, nil
	default:
		return compress.Codecs.Uncompressed, errors.Newf(errors.ErrorTypeConfig, "compression %q is not supported by parquet export", name)
	}
}

// record builds rows [start, end) of g as one record batch.
func (w *Writer) record(schema *arrow.Schema, g *grid.Grid, cols []Column, start, end int) (arrow.Record, error) {
	arrays := make([]arrow.Array, 0, len(cols))
	release := func() {
		for _, a := range arrays {
			a.Release()
		}
	}

	for c, col := range cols {
		elem, _ := elementType(col.Kind)
		lb := array.NewListBuilder(w.mem, elem)
		for r := start; r < end; r++ {
			if err := appendCell(lb, g, r, c); err != nil {
				lb.Release()
				release()
				return nil, errors.Wrap(err, errors.ErrorTypeDTypeMismatch, "export cell").
					WithDetail("column", col.Name).
					WithDetail("row", r)
			}
		}
		arrays = append(arrays, lb.NewArray())
		lb.Release()
	}

	rec := array.NewRecord(schema, arrays, int64(end-start))
	release()
	return rec, nil
}

func appendCell(lb *array.ListBuilder, g *grid.Grid, row, col int) error {
	h := g.At(row, col)
	if h.IsZero() || h.IsNone() {
		lb.AppendNull()
		return nil
	}
	switch vb := lb.ValueBuilder().(type) {
	case *array.Float64Builder:
		a, ok := h.Array().(*array.Float64)
		if !ok {
			return errors.Newf(errors.ErrorTypeDTypeMismatch, "cell holds %s, column is list<float64>", h.Array().DataType())
		}
		lb.Append(true)
		vb.AppendValues(a.Float64Values(), nil)
	case *array.Int64Builder:
		a, ok := h.Array().(*array.Int64)
		if !ok {
			return errors.Newf(errors.ErrorTypeDTypeMismatch, "cell holds %s, column is list<int64>", h.Array().DataType())
		}
		lb.Append(true)
		vb.AppendValues(a.Int64Values(), nil)
	default:
		return errors.Newf(errors.ErrorTypeInternal, "unsupported value builder %T", vb)
	}
	return nil
}

func elementType(k column.Kind) (arrow.DataType, error) {
	switch k {
	case column.KindFloat64List:
		return arrow.PrimitiveTypes.Float64, nil
	case column.KindInt64List:
		return arrow.PrimitiveTypes.Int64, nil
	default:
		return nil, errors.Newf(errors.ErrorTypeValidation, "kind %s cannot be exported", k)
	}
}

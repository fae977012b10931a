// Package pipeline provides the parallel load engine of gridload. It plays
// the scheduler for the column writers: it splits the destination grid into
// column sinks, partitions every sink once per worker, hands each worker a
// disjoint row range and drives the writers until every partition has been
// finalized.
//
// # Basic Usage
//
//	g, _ := grid.New(src.Rows(), len(src.Schema()), grid.RowMajor)
//	loader := pipeline.NewLoader(cfg, heap.Global(), logger)
//	result, err := loader.Run(ctx, g, src)
//
// # Failure model
//
// The first error cancels the remaining workers and is returned decorated
// with the failing column and row range. A failed load leaves the grid with a
// mix of written and unwritten cells and must be discarded.
package pipeline

import (
	"context"
	"io"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/ajitpratap0/gridload/pkg/column"
	"github.com/ajitpratap0/gridload/pkg/config"
	"github.com/ajitpratap0/gridload/pkg/errors"
	"github.com/ajitpratap0/gridload/pkg/grid"
	"github.com/ajitpratap0/gridload/pkg/heap"
	"github.com/ajitpratap0/gridload/pkg/logger"
	"github.com/ajitpratap0/gridload/pkg/metrics"
	"github.com/ajitpratap0/gridload/pkg/source"
)

const tracerName = "github.com/ajitpratap0/gridload/internal/pipeline"

// Loader materializes partitioned sources into grids.
type Loader struct {
	cfg    *config.LoaderConfig
	guard  *heap.Guard
	logger *zap.Logger
	tracer trace.Tracer
}

// Result summarizes a completed load.
type Result struct {
	LoadID     string
	Rows       int
	Partitions []source.Range
	Columns    map[string]column.Stats
	Duration   time.Duration
}

// Total returns the stats summed over all columns.
func (r *Result) Total() column.Stats {
	var total column.Stats
	for _, s := range r.Columns {
		total = total.Add(s)
	}
	return total
}

// NewLoader creates a loader. A nil guard uses heap.Global(), a nil logger the
// global logger.
func NewLoader(cfg *config.LoaderConfig, guard *heap.Guard, log *zap.Logger) *Loader {
	if cfg == nil {
		cfg = config.NewLoaderConfig("gridload")
	}
	if guard == nil {
		guard = heap.Global()
	}
	if log == nil {
		log = logger.Get()
	}
	return &Loader{
		cfg:    cfg,
		guard:  guard,
		logger: log,
		tracer: otel.Tracer(tracerName),
	}
}

// Run loads src into g using cfg.Workers contiguous row ranges.
func (l *Loader) Run(ctx context.Context, g *grid.Grid, src source.Partitioned) (*Result, error) {
	return l.RunRanges(ctx, g, src, SplitRows(src.Rows(), l.cfg.GetWorkers()))
}

// RunRanges loads src into g with one worker per range. The ranges must be
// disjoint and cover every row that should be written.
func (l *Loader) RunRanges(ctx context.Context, g *grid.Grid, src source.Partitioned, ranges []source.Range) (result *Result, err error) {
	loadID := uuid.NewString()
	ctx = logger.WithLoadID(ctx, loadID)
	log := l.logger.With(zap.String("load_id", loadID), zap.String("load", l.cfg.Name))

	ctx, span := l.tracer.Start(ctx, "gridload.load", trace.WithAttributes(
		attribute.String("load.id", loadID),
		attribute.Int("load.rows", src.Rows()),
		attribute.Int("load.partitions", len(ranges)),
	))
	start := time.Now()
	defer func() {
		status := "success"
		if err != nil {
			status = "failure"
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
			log.Error("load failed", append(logger.ErrorFields(err), zap.Duration("duration", time.Since(start)))...)
		}
		metrics.LoadDuration.WithLabelValues(status).Observe(time.Since(start).Seconds())
		span.End()
	}()

	schema := src.Schema()
	if g.Rows() != src.Rows() {
		return nil, errors.Newf(errors.ErrorTypeShapeMismatch, "grid has %d rows, source has %d", g.Rows(), src.Rows())
	}
	if err := CheckDisjoint(ranges, g.Rows()); err != nil {
		return nil, err
	}

	sinks, err := l.openSinks(g, schema)
	if err != nil {
		return nil, err
	}

	// parts[c][p] is the writer of column c owned by worker p
	parts := make([][]column.Sink, len(sinks))
	for c, s := range sinks {
		if len(ranges) == 0 {
			break
		}
		parts[c], err = s.Partitions(len(ranges))
		if err != nil {
			return nil, errors.Wrap(err, errors.TypeOf(err), "partition column").WithDetail("column", schema[c].Name)
		}
	}

	log.Info("starting load",
		zap.Int("rows", src.Rows()),
		zap.Int("columns", len(schema)),
		zap.Int("partitions", len(ranges)),
		zap.String("layout", g.Layout().String()))

	stats := make([][]column.Stats, len(ranges))
	eg, egCtx := errgroup.WithContext(ctx)
	for p, r := range ranges {
		writers := make([]column.Sink, len(parts))
		for c := range parts {
			writers[c] = parts[c][p]
		}
		eg.Go(func() error {
			s, err := l.work(egCtx, src, schema, p, r, writers)
			stats[p] = s
			return err
		})
	}
	if err := eg.Wait(); err != nil {
		return nil, err
	}

	result = &Result{
		LoadID:     loadID,
		Rows:       src.Rows(),
		Partitions: ranges,
		Columns:    make(map[string]column.Stats, len(schema)),
		Duration:   time.Since(start),
	}
	for _, f := range schema {
		result.Columns[f.Name] = column.Stats{}
	}
	for _, perColumn := range stats {
		for c, s := range perColumn {
			result.Columns[schema[c].Name] = result.Columns[schema[c].Name].Add(s)
		}
	}

	total := result.Total()
	log.Info("load completed",
		zap.Int("rows", result.Rows),
		zap.Int("cells", total.Rows),
		zap.Int("nulls", total.Nulls),
		zap.Int("flushes", total.Flushes),
		zap.Duration("duration", result.Duration))
	return result, nil
}

func (l *Loader) openSinks(g *grid.Grid, schema source.Schema) ([]column.Sink, error) {
	dests, err := g.Split(len(schema))
	if err != nil {
		return nil, err
	}
	// split-level sinks are partitioned before any row is written
	opts := column.Options{
		Buffer:        l.cfg.Buffer,
		Guard:         l.guard,
		Names:         schema.Names(),
		Logger:        l.logger,
		PartitionOnly: true,
	}
	sinks := make([]column.Sink, len(dests))
	for c, d := range dests {
		sinks[c], err = column.NewSink(schema[c].Kind, d, opts)
		if err != nil {
			return nil, errors.Wrap(err, errors.ErrorTypeValidation, "open column").WithDetail("column", schema[c].Name)
		}
	}
	return sinks, nil
}

// work drives the writers of one partition over range r and finalizes them.
func (l *Loader) work(ctx context.Context, src source.Partitioned, schema source.Schema, p int, r source.Range, writers []column.Sink) ([]column.Stats, error) {
	ctx, span := l.tracer.Start(logger.WithPartition(ctx, p), "gridload.partition", trace.WithAttributes(
		attribute.Int("partition", p),
		attribute.Int("row.start", r.Start),
		attribute.Int("row.end", r.End),
	))
	defer span.End()

	fail := func(err error, col string) ([]column.Stats, error) {
		e := errors.Wrap(err, errors.TypeOf(err), "load partition "+r.String()).
			WithDetail("partition", p).
			WithDetail("row_start", r.Start).
			WithDetail("row_end", r.End)
		if col != "" {
			e = e.WithDetail("column", col)
		}
		span.RecordError(e)
		span.SetStatus(codes.Error, e.Error())
		return nil, e
	}

	reader, err := src.Open(ctx, r)
	if err != nil {
		return fail(errors.Wrap(err, errors.ErrorTypeSource, "open partition"), "")
	}
	defer reader.Close()

	rows := 0
	for {
		row, err := reader.Next(ctx)
		if err == io.EOF {
			break
		}
		if err != nil {
			return fail(errors.Wrap(err, errors.ErrorTypeSource, "read row"), "")
		}
		if !r.Contains(row.Index) {
			return fail(errors.Newf(errors.ErrorTypeValidation, "source produced row %d outside assigned range", row.Index), "")
		}
		if len(row.Values) != len(writers) {
			return fail(errors.Newf(errors.ErrorTypeValidation, "row %d has %d values, want %d", row.Index, len(row.Values), len(writers)), "")
		}
		for c, w := range writers {
			if err := w.WriteValue(row.Values[c], row.Index); err != nil {
				return fail(err, schema[c].Name)
			}
		}
		rows++
	}

	stats := make([]column.Stats, len(writers))
	for c, w := range writers {
		if err := w.Finalize(); err != nil {
			return fail(err, schema[c].Name)
		}
		stats[c] = w.Stats()
	}

	span.SetAttributes(attribute.Int("rows", rows))
	l.logger.With(logger.Fields(ctx)...).Debug("partition finalized",
		zap.Int("rows", rows),
		zap.String("range", r.String()))
	return stats, nil
}

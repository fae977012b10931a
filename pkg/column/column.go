// Package column implements buffered list-column writers that materialize
// variable-length numeric sequences into a shared destination grid.
//
// Writers append rows to a private buffer without synchronization. When the
// buffer reaches its threshold, or on Finalize, the writer takes the global
// allocation lock once, converts every buffered row into a sequence handle and
// stores the handles at their destination rows.
//
// Several writers may target the same grid column after Partition. They share
// the column's Dest and must be fed disjoint rows; the writers do not verify
// this.
package column

import (
	"math"
	"time"

	"go.uber.org/zap"

	"github.com/ajitpratap0/gridload/pkg/errors"
	"github.com/ajitpratap0/gridload/pkg/grid"
	"github.com/ajitpratap0/gridload/pkg/heap"
	"github.com/ajitpratap0/gridload/pkg/metrics"
)

// nullLength marks a buffered row as null in the lengths channel.
const nullLength = math.MaxInt

// Stats counts what a writer has materialized.
type Stats struct {
	Rows    int `json:"rows"`
	Nulls   int `json:"nulls"`
	Values  int `json:"values"`
	Flushes int `json:"flushes"`
}

// Add returns the element-wise sum of s and o.
func (s Stats) Add(o Stats) Stats {
	return Stats{
		Rows:    s.Rows + o.Rows,
		Nulls:   s.Nulls + o.Nulls,
		Values:  s.Values + o.Values,
		Flushes: s.Flushes + o.Flushes,
	}
}

// ArrayColumn is a buffered writer for one grid column of V sequences.
// An ArrayColumn is owned by a single goroutine.
type ArrayColumn[V Scalar] struct {
	dest  grid.Dest
	guard *heap.Guard

	buffer  []V
	lengths []int // nullLength for null rows
	rowIdx  []int
	bufSize int

	name      string
	logger    *zap.Logger
	finalized bool
	retired   bool
	stats     Stats
}

func newArrayColumn[V Scalar](dest grid.Dest, opts Options, name string, reserve func(bufSize int) int) *ArrayColumn[V] {
	bufSize := opts.Buffer.BufferElements(elemSize[V]())
	if bufSize < 1 {
		bufSize = 1
	}
	var buffer []V
	if !opts.PartitionOnly {
		buffer = make([]V, 0, reserve(bufSize))
	}
	return &ArrayColumn[V]{
		dest:    dest,
		guard:   opts.guard(),
		buffer:  buffer,
		bufSize: bufSize,
		name:    name,
		logger:  opts.logger().With(zap.String("column", name), zap.String("kind", kindOf[V]().String())),
	}
}

// New creates a writer over dest. The buffer is reserved with the configured
// over-allocation so it does not grow before the first flush, unless
// opts.PartitionOnly is set.
func New[V Scalar](dest grid.Dest, opts Options) *ArrayColumn[V] {
	metrics.WritersCreated.WithLabelValues("split").Inc()
	return newArrayColumn[V](dest, opts, opts.name(dest.Column()), opts.Buffer.ReserveElements)
}

// Split splits g into one writer per column. ncols must match the grid.
func Split[V Scalar](g *grid.Grid, ncols int, opts Options) ([]*ArrayColumn[V], error) {
	dests, err := g.Split(ncols)
	if err != nil {
		return nil, err
	}
	cols := make([]*ArrayColumn[V], len(dests))
	for i, d := range dests {
		cols[i] = New[V](d, opts)
	}
	return cols, nil
}

// Partition retires c and returns n writers sharing its destination and flush
// threshold, each with empty buffers. The caller assigns disjoint rows to the
// partitions. c must not hold buffered rows.
func (c *ArrayColumn[V]) Partition(n int) ([]*ArrayColumn[V], error) {
	if err := c.checkOpen(); err != nil {
		return nil, err
	}
	if n <= 0 {
		return nil, errors.Newf(errors.ErrorTypeValidation, "partition count must be positive, got %d", n).
			WithDetail("column", c.name)
	}
	if len(c.lengths) > 0 {
		return nil, errors.Newf(errors.ErrorTypeValidation, "cannot partition column with %d buffered rows", len(c.lengths)).
			WithDetail("column", c.name)
	}

	parts := make([]*ArrayColumn[V], n)
	for i := range parts {
		parts[i] = &ArrayColumn[V]{
			dest:    c.dest,
			guard:   c.guard,
			buffer:  make([]V, 0, c.bufSize),
			bufSize: c.bufSize,
			name:    c.name,
			logger:  c.logger.With(zap.Int("partition", i)),
		}
	}
	c.retired = true
	metrics.WritersCreated.WithLabelValues("partition").Add(float64(n))
	return parts, nil
}

// Write buffers vals as the value of row and flushes when the buffer reaches
// its threshold.
func (c *ArrayColumn[V]) Write(vals []V, row int) error {
	if err := c.checkWrite(row); err != nil {
		return err
	}
	c.lengths = append(c.lengths, len(vals))
	c.buffer = append(c.buffer, vals...)
	c.rowIdx = append(c.rowIdx, row)
	return c.tryFlush()
}

// WriteNull buffers a null for row. It never triggers a flush.
func (c *ArrayColumn[V]) WriteNull(row int) error {
	if err := c.checkWrite(row); err != nil {
		return err
	}
	c.lengths = append(c.lengths, nullLength)
	c.rowIdx = append(c.rowIdx, row)
	return nil
}

// WriteOptional writes vals when ok is true and a null otherwise.
func (c *ArrayColumn[V]) WriteOptional(vals []V, ok bool, row int) error {
	if !ok {
		return c.WriteNull(row)
	}
	return c.Write(vals, row)
}

func (c *ArrayColumn[V]) tryFlush() error {
	if len(c.buffer) >= c.bufSize {
		return c.Flush()
	}
	return nil
}

// Flush materializes every buffered row into the grid while holding the
// allocation lock. On failure the buffered rows are kept and cells written
// before the failing row keep their new handles.
func (c *ArrayColumn[V]) Flush() error {
	n := len(c.lengths)
	if n == 0 {
		return nil
	}

	timer := metrics.NewTimer("flush")
	nulls := 0
	err := c.guard.Do(func(rt heap.Runtime) error {
		start := 0
		for i, l := range c.lengths {
			row := c.rowIdx[i]
			if l == nullLength {
				c.set(row, rt.None())
				nulls++
				continue
			}
			end := start + l
			h, err := newSequence(rt, c.buffer[start:end])
			if err != nil {
				return errors.Wrap(err, errors.ErrorTypeHandleConstruction, "construct sequence").
					WithDetail("row", row).
					WithDetail("entry", i)
			}
			c.set(row, h)
			start = end
		}
		return nil
	})

	elapsed := timer.Stop()
	kind := kindOf[V]().String()
	metrics.ObserveFlush(kind, elapsed, n, nulls, err)
	if err != nil {
		c.logger.Error("flush failed", zap.Int("rows", n), zap.Error(err))
		return errors.Wrap(err, errors.TypeOf(err), "flush column "+c.name).
			WithDetail("column", c.name).
			WithDetail("buffered_rows", n)
	}

	c.stats.Rows += n
	c.stats.Nulls += nulls
	c.stats.Values += len(c.buffer)
	c.stats.Flushes++
	c.logger.Debug("flushed column buffer",
		zap.Int("rows", n),
		zap.Int("nulls", nulls),
		zap.Int("values", len(c.buffer)),
		zap.Duration("duration", elapsed))

	c.buffer = c.buffer[:0]
	c.lengths = c.lengths[:0]
	c.rowIdx = c.rowIdx[:0]
	return nil
}

// set replaces the handle at row, releasing a handle left by an earlier
// failed flush of the same row.
func (c *ArrayColumn[V]) set(row int, h heap.Handle) {
	c.dest.Get(row).Release()
	c.dest.Set(row, h)
}

// Finalize flushes unconditionally and retires the writer.
func (c *ArrayColumn[V]) Finalize() error {
	if err := c.checkOpen(); err != nil {
		return err
	}
	start := time.Now()
	if err := c.Flush(); err != nil {
		return err
	}
	c.finalized = true
	c.logger.Debug("finalized column writer",
		zap.Int("rows", c.stats.Rows),
		zap.Int("flushes", c.stats.Flushes),
		zap.Duration("final_flush", time.Since(start)))
	return nil
}

func (c *ArrayColumn[V]) checkOpen() error {
	if c.finalized {
		return errors.New(errors.ErrorTypeFinalized, "column writer already finalized").WithDetail("column", c.name)
	}
	if c.retired {
		return errors.New(errors.ErrorTypeFinalized, "column writer was partitioned").WithDetail("column", c.name)
	}
	return nil
}

func (c *ArrayColumn[V]) checkWrite(row int) error {
	if err := c.checkOpen(); err != nil {
		return err
	}
	if row < 0 || row >= c.dest.Rows() {
		return errors.Newf(errors.ErrorTypeValidation, "row %d out of range [0, %d)", row, c.dest.Rows()).
			WithDetail("column", c.name).
			WithDetail("row", row)
	}
	return nil
}

// Name returns the column name used in logs and errors.
func (c *ArrayColumn[V]) Name() string { return c.name }

// Dest returns the destination capability shared by all partitions of the column.
func (c *ArrayColumn[V]) Dest() grid.Dest { return c.dest }

// BufSize returns the flush threshold in elements.
func (c *ArrayColumn[V]) BufSize() int { return c.bufSize }

// Buffered returns the number of rows waiting for a flush.
func (c *ArrayColumn[V]) Buffered() int { return len(c.lengths) }

// Stats returns counters of materialized rows.
func (c *ArrayColumn[V]) Stats() Stats { return c.stats }

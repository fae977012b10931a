// Package gridload materializes list-valued columns into a pre-allocated grid
// of sequence handles.
//
// A load decodes rows from a partitioned source and hands each column to a
// buffered writer. Writers stage scalars in a flat buffer next to a lengths
// channel, where a sentinel length marks a null row, and turn the staged rows
// into runtime-owned sequences only when the buffer fills or the writer is
// finalized. Every flush runs under one process-wide allocation lock, so the
// lock is taken once per buffer instead of once per row.
//
// # Architecture
//
// A grid is split exactly once into per-column write capabilities. Each
// column writer can then be partitioned into writers that share the same
// destination and are driven by independent workers over disjoint row
// ranges. Nothing inside the writers checks that ranges are disjoint; the
// loader does that before any worker starts.
//
// If code panics while holding the allocation lock, the lock is poisoned.
// Every later flush then fails with a lock_poisoned error instead of running
// against a runtime in an unknown state.
//
// # Quick Start
//
//	schema, _ := source.ParseSchema([]string{"scores:list<float64>", "ids:list<int64>"})
//	src, _ := source.ReadJSONLines(f, schema)
//
//	g, _ := grid.New(src.Rows(), len(schema), grid.RowMajor)
//	defer g.Release()
//
//	cfg := config.NewLoaderConfig("features")
//	result, err := pipeline.NewLoader(cfg, heap.Global(), logger.Get()).Run(ctx, g, src)
//
// # Key Packages
//
//	pkg/grid          - Destination grid, layouts and column write capabilities
//	pkg/column        - Buffered list-column writers and partitioning
//	pkg/heap          - Sequence runtime, handles and the allocation lock
//	pkg/source        - Partitioned row sources (memory, JSON lines, Postgres)
//	pkg/export        - Arrow IPC and Parquet export of a grid
//	pkg/config        - Loader configuration
//	pkg/errors        - Structured error handling
//	pkg/logger        - Structured logging
//	pkg/metrics       - Prometheus metrics
//	pkg/observability - OpenTelemetry tracing
//	internal/pipeline - Parallel loader
//
// # Command Line
//
//	gridload load --input rows.jsonl \
//	    --column scores:list<float64> --column ids:list<int64> \
//	    --workers 8 --buffer-mb 16 --output grid.parquet --format parquet
package gridload

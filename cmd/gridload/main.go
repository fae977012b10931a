package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"runtime"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/ajitpratap0/gridload/pkg/logger"
)

var version = "0.1.0"

func main() {
	// Load .env file if it exists
	_ = godotenv.Load()

	root := &cobra.Command{
		Use:   "gridload",
		Short: "gridload - parallel list-column materializer",
		Long: `gridload decodes rows of list-valued columns and materializes them into a
pre-allocated grid of sequence handles, using one buffered writer per column
and partition. The grid can be exported as an Arrow IPC or Parquet file.`,
		SilenceUsage: true,
	}

	root.AddCommand(&cobra.Command{
		Use:   "version",
		Short: "Show version information",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Printf("gridload v%s\n", version)
			fmt.Printf("Go version: %s\n", runtime.Version())
			fmt.Printf("OS/Arch: %s/%s\n", runtime.GOOS, runtime.GOARCH)
		},
	})

	var opts loadOptions
	loadCmd := &cobra.Command{
		Use:   "load",
		Short: "Load a JSON lines file or a PostgreSQL query into a grid",
		Long: `Load decodes a JSON lines file (optionally .gz, .zst, .lz4 or .sz compressed)
or the result of a PostgreSQL query, materializes every declared column in
parallel and prints a JSON summary of the load.

Example:
  gridload load --input rows.jsonl --column scores:list<float64> --column ids:list<int64> --output grid.arrow`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := buildConfig(opts, cmd.Flags().Changed)
			if err != nil {
				return err
			}
			if err := logger.Init(logger.Config{
				Level:    cfg.Observability.LogLevel,
				Encoding: cfg.Observability.LogEncoding,
			}); err != nil {
				return err
			}
			defer func() { _ = logger.Sync() }()

			ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			if opts.timeout > 0 {
				var cancel context.CancelFunc
				ctx, cancel = context.WithTimeout(ctx, opts.timeout)
				defer cancel()
			}

			sum, err := runLoad(ctx, cfg, logger.Get())
			if err != nil {
				return err
			}
			return sum.print(cmd.OutOrStdout())
		},
	}

	f := loadCmd.Flags()
	f.StringVarP(&opts.configFile, "config", "c", "", "Path to YAML configuration file")
	f.StringVarP(&opts.input, "input", "i", "", "JSON lines file to load")
	f.StringVar(&opts.postgresDSN, "postgres-dsn", "", "Read rows from PostgreSQL instead of --input")
	f.StringVar(&opts.query, "query", "", "Query returning one array column per --column, used with --postgres-dsn")
	f.StringArrayVar(&opts.columns, "column", nil, "Column declaration name:kind, repeatable (kinds: list<float64>, list<int64>)")
	f.IntVar(&opts.workers, "workers", runtime.NumCPU(), "Number of parallel partitions")
	f.IntVar(&opts.bufferMB, "buffer-mb", 16, "Buffer budget per column writer in megabytes")
	f.IntVar(&opts.bufferElements, "buffer-elements", 0, "Exact buffer threshold in elements, overrides --buffer-mb")
	f.StringVar(&opts.layout, "layout", "row_major", "Grid layout (row_major, column_major)")
	f.Int64Var(&opts.maxValues, "max-values", 0, "Maximum scalar values held by the heap (0 = unlimited)")
	f.StringVarP(&opts.output, "output", "o", "", "Export the grid to this file")
	f.StringVar(&opts.format, "format", "arrow", "Export format (arrow, parquet)")
	f.StringVar(&opts.compression, "compression", "none", "Export compression (none, lz4, zstd, snappy)")
	f.StringVar(&opts.logLevel, "log-level", "info", "Log level (debug, info, warn, error)")
	f.BoolVar(&opts.enableMetrics, "enable-metrics", false, "Serve Prometheus metrics while loading")
	f.StringVar(&opts.metricsAddr, "metrics-addr", ":9090", "Listen address of the metrics endpoint")
	f.BoolVar(&opts.trace, "trace", false, "Export OpenTelemetry spans to stderr")
	f.DurationVar(&opts.timeout, "timeout", 30*time.Minute, "Load timeout")

	root.AddCommand(loadCmd)

	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

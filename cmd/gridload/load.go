package main

import (
	"context"
	"io"
	"net/http"
	"os"
	"time"

	gojson "github.com/goccy/go-json"
	"github.com/jackc/pgx/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/shirou/gopsutil/v3/process"
	"go.uber.org/zap"

	"github.com/ajitpratap0/gridload/internal/pipeline"
	"github.com/ajitpratap0/gridload/pkg/column"
	"github.com/ajitpratap0/gridload/pkg/config"
	"github.com/ajitpratap0/gridload/pkg/errors"
	"github.com/ajitpratap0/gridload/pkg/export"
	"github.com/ajitpratap0/gridload/pkg/grid"
	"github.com/ajitpratap0/gridload/pkg/heap"
	"github.com/ajitpratap0/gridload/pkg/observability"
	"github.com/ajitpratap0/gridload/pkg/source"
)

type loadOptions struct {
	configFile     string
	input          string
	postgresDSN    string
	query          string
	columns        []string
	workers        int
	bufferMB       int
	bufferElements int
	layout         string
	maxValues      int64
	output         string
	format         string
	compression    string
	logLevel       string
	enableMetrics  bool
	metricsAddr    string
	trace          bool
	timeout        time.Duration
}

// summary is printed after a successful load.
type summary struct {
	LoadID     string                  `json:"load_id"`
	Name       string                  `json:"name"`
	Rows       int                     `json:"rows"`
	Partitions int                     `json:"partitions"`
	Layout     string                  `json:"layout"`
	Columns    map[string]column.Stats `json:"columns"`
	DurationMS int64                   `json:"duration_ms"`
	RSSBytes   uint64                  `json:"rss_bytes,omitempty"`
	Output     string                  `json:"output,omitempty"`
}

func (s *summary) print(w io.Writer) error {
	enc := gojson.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(s)
}

// buildConfig layers the config file, then explicitly set flags, over the defaults.
func buildConfig(opts loadOptions, changed func(string) bool) (*config.LoaderConfig, error) {
	cfg := config.NewLoaderConfig("gridload")
	if opts.configFile != "" {
		if err := config.Load(opts.configFile, cfg); err != nil {
			return nil, errors.Wrap(err, errors.ErrorTypeConfig, "load config").WithDetail("path", opts.configFile)
		}
	}

	set := func(flag string) bool { return changed(flag) || opts.configFile == "" }
	if opts.input != "" {
		cfg.Input = opts.input
	}
	if opts.postgresDSN != "" {
		cfg.Postgres.DSN = opts.postgresDSN
	}
	if opts.query != "" {
		cfg.Postgres.Query = opts.query
	}
	if len(opts.columns) > 0 {
		cfg.Columns = opts.columns
	}
	if set("workers") {
		cfg.Workers = opts.workers
	}
	if set("buffer-mb") {
		cfg.Buffer.SizeMB = opts.bufferMB
	}
	if set("buffer-elements") {
		cfg.Buffer.Elements = opts.bufferElements
	}
	if set("layout") {
		cfg.Layout = opts.layout
	}
	if set("max-values") {
		cfg.Runtime.MaxValues = opts.maxValues
	}
	if opts.output != "" {
		cfg.Export.Path = opts.output
	}
	if set("format") {
		cfg.Export.Format = opts.format
	}
	if set("compression") {
		cfg.Export.Compression = opts.compression
	}
	if set("log-level") {
		cfg.Observability.LogLevel = opts.logLevel
	}
	if changed("enable-metrics") {
		cfg.Observability.EnableMetrics = opts.enableMetrics
	}
	if set("metrics-addr") {
		cfg.Observability.MetricsAddr = opts.metricsAddr
	}
	if changed("trace") {
		cfg.Observability.EnableTracing = opts.trace
	}

	if cfg.Input == "" && cfg.Postgres.DSN == "" {
		return nil, errors.New(errors.ErrorTypeConfig, "an input file or a postgres dsn is required")
	}
	if len(cfg.Columns) == 0 {
		return nil, errors.New(errors.ErrorTypeConfig, "at least one column is required")
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// runLoad reads cfg.Input, materializes it and optionally exports the grid.
func runLoad(ctx context.Context, cfg *config.LoaderConfig, log *zap.Logger) (*summary, error) {
	log = log.With(zap.String("component", "gridload-cli"), zap.String("load", cfg.Name))

	if cfg.Observability.EnableMetrics {
		srv := &http.Server{Addr: cfg.Observability.MetricsAddr, Handler: promhttp.Handler(), ReadHeaderTimeout: 5 * time.Second}
		go func() {
			if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				log.Warn("metrics server stopped", zap.Error(err))
			}
		}()
		defer func() { _ = srv.Close() }()
	}
	if cfg.Observability.EnableTracing {
		shutdown, err := observability.Init(observability.DefaultConfig())
		if err != nil {
			return nil, err
		}
		defer func() {
			if err := shutdown(context.Background()); err != nil {
				log.Warn("failed to flush spans", zap.Error(err))
			}
		}()
	}

	schema, err := source.ParseSchema(cfg.Columns)
	if err != nil {
		return nil, err
	}
	layout, err := grid.ParseLayout(cfg.Layout)
	if err != nil {
		return nil, err
	}

	src, err := readSource(ctx, cfg, schema)
	if err != nil {
		return nil, err
	}
	log.Info("decoded input", zap.Int("rows", src.Rows()), zap.Strings("columns", schema.Names()))

	g, err := grid.New(src.Rows(), len(schema), layout)
	if err != nil {
		return nil, err
	}
	defer g.Release()

	guard := heap.NewGuard(heap.NewArrowRuntime(nil, cfg.Runtime.MaxValues))
	result, err := pipeline.NewLoader(cfg, guard, log).Run(ctx, g, src)
	if err != nil {
		return nil, err
	}

	sum := &summary{
		LoadID:     result.LoadID,
		Name:       cfg.Name,
		Rows:       result.Rows,
		Partitions: len(result.Partitions),
		Layout:     layout.String(),
		Columns:    result.Columns,
		DurationMS: result.Duration.Milliseconds(),
		RSSBytes:   residentBytes(),
	}

	if cfg.Export.Path != "" {
		cols := make([]export.Column, len(schema))
		for i, fld := range schema {
			cols[i] = export.Column{Name: fld.Name, Kind: fld.Kind}
		}
		w, err := export.NewWriter(cfg.Export, export.Options{Logger: log})
		if err != nil {
			return nil, err
		}
		if _, err := w.WriteFile(g, cols); err != nil {
			return nil, err
		}
		sum.Output = cfg.Export.Path
	}
	return sum, nil
}

// readSource decodes the rows of a PostgreSQL query or of a possibly
// compressed JSON lines file.
func readSource(ctx context.Context, cfg *config.LoaderConfig, schema source.Schema) (*source.Memory, error) {
	if cfg.Postgres.DSN != "" {
		conn, err := pgx.Connect(ctx, cfg.Postgres.DSN)
		if err != nil {
			return nil, errors.Wrap(err, errors.ErrorTypeSource, "connect to postgres")
		}
		defer func() { _ = conn.Close(context.Background()) }()
		return source.ReadPostgres(ctx, conn, schema, cfg.Postgres.Query)
	}

	r, err := source.OpenFile(cfg.Input)
	if err != nil {
		return nil, err
	}
	defer func() { _ = r.Close() }()
	return source.ReadJSONLines(r, schema)
}

// residentBytes reports the resident set size of the process, 0 if unknown.
func residentBytes() uint64 {
	proc, err := process.NewProcess(int32(os.Getpid()))
	if err != nil {
		return 0
	}
	mem, err := proc.MemoryInfo()
	if err != nil {
		return 0
	}
	return mem.RSS
}

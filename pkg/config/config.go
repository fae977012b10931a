// Package config provides the configuration system for gridload.
// A single LoaderConfig drives the column writers, the parallel loader,
// the foreign heap and the observability stack.
//
// The configuration is organized into logical sections:
//   - Buffer: per-writer memory budget that amortizes allocation-lock round trips
//   - Workers: parallelism of the load
//   - Runtime: limits of the foreign object heap
//   - Observability: logging, metrics and tracing
//   - Export: optional Arrow IPC or Parquet output of the materialized grid
//
// Example usage:
//
//	cfg := config.NewLoaderConfig("orders")
//	cfg.Buffer.SizeMB = 4
//
//	if err := cfg.Validate(); err != nil {
//	    log.Fatal(err)
//	}
//
// Configuration files are YAML. Values of the form ${VAR} are replaced with
// environment variables before parsing. Load into a config seeded with
// defaults so omitted keys keep their default value:
//
//	name: nightly-features
//	workers: 8
//	layout: column_major
//	input: /data/features.jsonl
//	columns:
//	  - scores:list<float64>
//	  - ids:list<int64>
//	buffer:
//	  size_mb: 16
//	observability:
//	  log_level: ${LOG_LEVEL}
//	export:
//	  path: /data/features.arrow
//	  compression: zstd
package config

import (
	"fmt"
	"runtime"

	"github.com/ajitpratap0/gridload/pkg/errors"
)

// Grid layouts understood by the loader.
const (
	LayoutRowMajor    = "row_major"
	LayoutColumnMajor = "column_major"
)

// LoaderConfig is the unified configuration of a load.
type LoaderConfig struct {
	// Name identifies the load in logs and metrics
	Name string `yaml:"name" json:"name"`
	// Workers defines the number of concurrent partitions
	Workers int `yaml:"workers" json:"workers"`
	// Layout selects how the destination grid is stored
	Layout string `yaml:"layout" json:"layout"`
	// Input is the JSON lines file to load
	Input string `yaml:"input,omitempty" json:"input,omitempty"`
	// Columns declares the schema as name:kind pairs, e.g. scores:list<float64>
	Columns []string `yaml:"columns,omitempty" json:"columns,omitempty"`
	// Postgres reads the rows from a query instead of Input
	Postgres PostgresConfig `yaml:"postgres,omitempty" json:"postgres,omitempty"`

	// Buffer settings of every column writer
	Buffer BufferConfig `yaml:"buffer" json:"buffer"`

	// Runtime settings of the foreign object heap
	Runtime RuntimeConfig `yaml:"runtime" json:"runtime"`

	// Observability settings for monitoring and debugging
	Observability ObservabilityConfig `yaml:"observability" json:"observability"`

	// Export settings for writing the grid out after the load
	Export ExportConfig `yaml:"export" json:"export"`
}

// BufferConfig controls the write buffer of each column writer.
type BufferConfig struct {
	// SizeMB is the scalar buffer budget per writer in megabytes
	SizeMB int `yaml:"size_mb" json:"size_mb"`
	// Elements overrides SizeMB with an exact element threshold when positive
	Elements int `yaml:"elements" json:"elements"`
	// ReserveFactor over-allocates the initial buffer to avoid growth
	ReserveFactor float64 `yaml:"reserve_factor" json:"reserve_factor"`
}

// PostgresConfig selects a PostgreSQL query returning one array column per
// declared column.
type PostgresConfig struct {
	DSN   string `yaml:"dsn,omitempty" json:"dsn,omitempty"`
	Query string `yaml:"query,omitempty" json:"query,omitempty"`
}

// RuntimeConfig contains settings of the foreign heap.
type RuntimeConfig struct {
	// MaxValues caps the number of scalar values the heap will hold (0 = unlimited)
	MaxValues int64 `yaml:"max_values" json:"max_values"`
}

// ObservabilityConfig contains monitoring and observability settings.
type ObservabilityConfig struct {
	// LogLevel sets logging verbosity (debug, info, warn, error)
	LogLevel string `yaml:"log_level" json:"log_level"`
	// LogEncoding selects json or console output
	LogEncoding string `yaml:"log_encoding" json:"log_encoding"`
	// EnableMetrics activates the Prometheus endpoint
	EnableMetrics bool `yaml:"enable_metrics" json:"enable_metrics"`
	// MetricsAddr is the listen address of the metrics endpoint
	MetricsAddr string `yaml:"metrics_addr" json:"metrics_addr"`
	// EnableTracing activates OpenTelemetry tracing to stdout
	EnableTracing bool `yaml:"enable_tracing" json:"enable_tracing"`
}

// Export formats.
const (
	FormatArrow   = "arrow"
	FormatParquet = "parquet"
)

// ExportConfig controls export of the materialized grid.
type ExportConfig struct {
	// Path of the output file, empty disables export
	Path string `yaml:"path" json:"path"`
	// Format is arrow (IPC file) or parquet
	Format string `yaml:"format" json:"format"`
	// Compression selects the codec (none, lz4, zstd, and snappy for parquet)
	Compression string `yaml:"compression" json:"compression"`
}

// NewLoaderConfig creates a new LoaderConfig with sensible defaults.
func NewLoaderConfig(name string) *LoaderConfig {
	return &LoaderConfig{
		Name:    name,
		Workers: runtime.NumCPU(),
		Layout:  LayoutRowMajor,
		Buffer: BufferConfig{
			SizeMB:        16,
			ReserveFactor: 1.1,
		},
		Observability: ObservabilityConfig{
			LogLevel:    "info",
			LogEncoding: "json",
			MetricsAddr: ":9090",
		},
		Export: ExportConfig{
			Format:      FormatArrow,
			Compression: "none",
		},
	}
}

// Validate validates the configuration for correctness.
func (c *LoaderConfig) Validate() error {
	if c.Name == "" {
		return errors.New(errors.ErrorTypeConfig, "name is required")
	}
	if c.Workers < 0 {
		return errors.New(errors.ErrorTypeConfig, "workers cannot be negative")
	}
	if c.Layout != LayoutRowMajor && c.Layout != LayoutColumnMajor {
		return errors.Newf(errors.ErrorTypeConfig, "unknown layout %q", c.Layout)
	}
	if c.Buffer.SizeMB <= 0 && c.Buffer.Elements <= 0 {
		return errors.New(errors.ErrorTypeConfig, "buffer.size_mb or buffer.elements must be positive")
	}
	if c.Buffer.ReserveFactor != 0 && c.Buffer.ReserveFactor < 1 {
		return errors.New(errors.ErrorTypeConfig, "buffer.reserve_factor must be at least 1")
	}
	if c.Runtime.MaxValues < 0 {
		return errors.New(errors.ErrorTypeConfig, "runtime.max_values cannot be negative")
	}
	if c.Postgres.DSN != "" && c.Postgres.Query == "" {
		return errors.New(errors.ErrorTypeConfig, "postgres.query is required with postgres.dsn")
	}
	switch c.Export.Format {
	case "", FormatArrow, FormatParquet:
	default:
		return errors.Newf(errors.ErrorTypeConfig, "unknown export format %q", c.Export.Format)
	}
	switch c.Export.Compression {
	case "", "none", "lz4", "zstd":
	case "snappy":
		if c.Export.Format != FormatParquet {
			return errors.New(errors.ErrorTypeConfig, "snappy compression requires parquet export")
		}
	default:
		return errors.Newf(errors.ErrorTypeConfig, "unknown export compression %q", c.Export.Compression)
	}
	return nil
}

// GetWorkers returns the number of workers, ensuring it's at least 1
func (c *LoaderConfig) GetWorkers() int {
	if c.Workers <= 0 {
		return runtime.NumCPU()
	}
	return c.Workers
}

// BufferElements converts the megabyte budget into an element threshold for
// scalars of elemSize bytes.
func (b *BufferConfig) BufferElements(elemSize int) int {
	if b.Elements > 0 {
		return b.Elements
	}
	if elemSize <= 0 {
		panic(fmt.Sprintf("config: invalid element size %d", elemSize))
	}
	return b.SizeMB * (1 << 20) / elemSize
}

// ReserveElements returns the initial buffer capacity for a threshold of n elements.
func (b *BufferConfig) ReserveElements(n int) int {
	f := b.ReserveFactor
	if f < 1 {
		f = 1
	}
	return int(float64(n) * f)
}

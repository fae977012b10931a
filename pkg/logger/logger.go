// Package logger holds the process-wide zap logger and the context fields a
// load attaches to every line it emits.
package logger

import (
	"context"
	stderrors "errors"
	"sort"
	"sync/atomic"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/ajitpratap0/gridload/pkg/errors"
)

var global atomic.Pointer[zap.Logger]

type contextKey string

const (
	// LoadIDKey is the context key for the load id
	LoadIDKey contextKey = "load_id"
	// PartitionKey is the context key for the partition index
	PartitionKey contextKey = "partition"
)

// Config represents logger configuration
type Config struct {
	Level       string
	Development bool
	Encoding    string // json or console
	OutputPaths []string
}

// Set replaces the global logger
func Set(l *zap.Logger) {
	global.Store(l)
}

// Init builds a logger from cfg and installs it as the global logger.
// On error the current logger is left in place.
func Init(cfg Config) error {
	l, err := newLogger(cfg)
	if err != nil {
		return err
	}
	if old := global.Swap(l); old != nil {
		_ = old.Sync()
	}
	return nil
}

func newLogger(cfg Config) (*zap.Logger, error) {
	level, err := zapcore.ParseLevel(cfg.Level)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrorTypeConfig, "invalid log level").WithDetail("level", cfg.Level)
	}

	enc := zap.NewProductionEncoderConfig()
	enc.TimeKey = "timestamp"
	enc.MessageKey = "message"
	enc.EncodeTime = zapcore.ISO8601TimeEncoder
	enc.EncodeDuration = zapcore.StringDurationEncoder
	if cfg.Development {
		enc.EncodeLevel = zapcore.CapitalColorLevelEncoder
	}

	zc := zap.Config{
		Level:            zap.NewAtomicLevelAt(level),
		Development:      cfg.Development,
		Encoding:         cfg.Encoding,
		EncoderConfig:    enc,
		OutputPaths:      cfg.OutputPaths,
		ErrorOutputPaths: []string{"stderr"},
	}
	if zc.Encoding == "" {
		zc.Encoding = "json"
	}
	if len(zc.OutputPaths) == 0 {
		zc.OutputPaths = []string{"stderr"}
	}

	opts := []zap.Option{}
	if cfg.Development {
		opts = append(opts, zap.AddStacktrace(zapcore.ErrorLevel))
	}
	l, err := zc.Build(opts...)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrorTypeConfig, "build logger")
	}
	return l, nil
}

// Get returns the global logger, installing an info-level JSON logger on
// stderr if none has been set.
func Get() *zap.Logger {
	if l := global.Load(); l != nil {
		return l
	}
	l, err := newLogger(Config{Level: "info"})
	if err != nil {
		l = zap.NewNop()
	}
	if global.CompareAndSwap(nil, l) {
		return l
	}
	return global.Load()
}

// Fields returns the load id and partition carried by ctx as zap fields.
func Fields(ctx context.Context) []zap.Field {
	var fields []zap.Field
	if loadID, ok := ctx.Value(LoadIDKey).(string); ok {
		fields = append(fields, zap.String("load_id", loadID))
	}
	if partition, ok := ctx.Value(PartitionKey).(int); ok {
		fields = append(fields, zap.Int("partition", partition))
	}
	return fields
}

// ErrorFields describes err as zap fields: the error itself, its type and
// every detail found on the chain, outer details winning.
func ErrorFields(err error) []zap.Field {
	if err == nil {
		return nil
	}
	fields := []zap.Field{zap.Error(err), zap.String("error_type", string(errors.TypeOf(err)))}

	details := map[string]any{}
	for e := err; e != nil; {
		var typed *errors.Error
		if !stderrors.As(e, &typed) {
			break
		}
		for k, v := range typed.Details {
			if _, seen := details[k]; !seen {
				details[k] = v
			}
		}
		e = typed.Cause
	}
	keys := make([]string, 0, len(details))
	for k := range details {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		fields = append(fields, zap.Any(k, details[k]))
	}
	return fields
}

// WithContext returns the global logger annotated with the fields of ctx
func WithContext(ctx context.Context) *zap.Logger {
	return Get().With(Fields(ctx)...)
}

// WithLoadID returns a context carrying the load id
func WithLoadID(ctx context.Context, loadID string) context.Context {
	return context.WithValue(ctx, LoadIDKey, loadID)
}

// WithPartition returns a context carrying the partition index
func WithPartition(ctx context.Context, partition int) context.Context {
	return context.WithValue(ctx, PartitionKey, partition)
}

// Sync flushes any buffered log entries
func Sync() error {
	if l := global.Load(); l != nil {
		return l.Sync()
	}
	return nil
}

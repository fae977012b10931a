package column

import (
	"strconv"

	"go.uber.org/zap"

	"github.com/ajitpratap0/gridload/pkg/config"
	"github.com/ajitpratap0/gridload/pkg/heap"
	"github.com/ajitpratap0/gridload/pkg/logger"
)

// Options configure column writers created by Split and NewSink.
type Options struct {
	// Buffer sets the flush threshold, see config.BufferConfig
	Buffer config.BufferConfig
	// Guard is the allocation lock, heap.Global() when nil
	Guard *heap.Guard
	// Names labels columns in logs and errors, indexed by column
	Names []string
	// Logger defaults to the global logger
	Logger *zap.Logger
	// PartitionOnly creates writers that are only partitioned, never written.
	// Their buffers are not reserved; partitions still reserve bufSize.
	PartitionOnly bool
}

// DefaultOptions returns the buffer defaults of config.NewLoaderConfig.
func DefaultOptions() Options {
	return Options{Buffer: config.NewLoaderConfig("default").Buffer}
}

func (o Options) guard() *heap.Guard {
	if o.Guard != nil {
		return o.Guard
	}
	return heap.Global()
}

func (o Options) logger() *zap.Logger {
	if o.Logger != nil {
		return o.Logger
	}
	return logger.Get()
}

func (o Options) name(col int) string {
	if col < len(o.Names) && o.Names[col] != "" {
		return o.Names[col]
	}
	return "col" + strconv.Itoa(col)
}

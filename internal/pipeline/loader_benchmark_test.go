package pipeline

import (
	"context"
	"fmt"
	"testing"

	"go.uber.org/zap"

	"github.com/ajitpratap0/gridload/pkg/config"
	"github.com/ajitpratap0/gridload/pkg/grid"
	"github.com/ajitpratap0/gridload/pkg/heap"
	"github.com/ajitpratap0/gridload/pkg/testutil"
)

func BenchmarkLoader(b *testing.B) {
	const rowCount = 20000
	src, _ := testutil.MemorySource(b, schema, rowCount, 16, 10)

	for _, workers := range []int{1, 4, 8} {
		for _, bufMB := range []int{1, 16} {
			b.Run(fmt.Sprintf("Workers_%d_BufferMB_%d", workers, bufMB), func(b *testing.B) {
				cfg := config.NewLoaderConfig("bench")
				cfg.Workers = workers
				cfg.Buffer.SizeMB = bufMB
				guard := heap.NewGuard(heap.NewArrowRuntime(nil, 0))
				loader := NewLoader(cfg, guard, zap.NewNop())

				b.ReportAllocs()
				b.ResetTimer()
				for i := 0; i < b.N; i++ {
					g, err := grid.New(rowCount, len(schema), grid.RowMajor)
					if err != nil {
						b.Fatal(err)
					}
					if _, err := loader.Run(context.Background(), g, src); err != nil {
						b.Fatal(err)
					}
					g.Release()
				}
				b.ReportMetric(float64(rowCount*b.N)/b.Elapsed().Seconds(), "rows/sec")
			})
		}
	}
}

func BenchmarkSplitRows(b *testing.B) {
	for i := 0; i < b.N; i++ {
		_ = SplitRows(1_000_000, 64)
	}
}

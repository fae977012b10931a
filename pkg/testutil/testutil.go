// Package testutil provides testing utilities for gridload
package testutil

import (
	"context"
	"math/rand"
	"testing"
	"time"

	"github.com/apache/arrow-go/v18/arrow/memory"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest"

	"github.com/ajitpratap0/gridload/pkg/column"
	"github.com/ajitpratap0/gridload/pkg/heap"
	"github.com/ajitpratap0/gridload/pkg/source"
)

// TestLogger creates a test logger that writes to the test output.
func TestLogger(t testing.TB) *zap.Logger {
	return zaptest.NewLogger(t)
}

// TestContext creates a context with a 30-second timeout, canceled when the
// test completes.
func TestContext(t testing.TB) context.Context {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	t.Cleanup(cancel)
	return ctx
}

// CheckedGuard returns a private allocation guard whose runtime allocates from
// a checked allocator. Callers assert mem.CurrentAlloc() after releasing
// their grids.
func CheckedGuard(t testing.TB, maxValues int64) (*heap.Guard, *memory.CheckedAllocator) {
	t.Helper()
	mem := memory.NewCheckedAllocator(memory.NewGoAllocator())
	return heap.NewGuard(heap.NewArrowRuntime(mem, maxValues)), mem
}

// GenerateRows builds n deterministic rows for schema. Lists hold up to
// maxLen elements and roughly one cell in nullEvery is null (0 disables
// nulls).
func GenerateRows(schema source.Schema, n, maxLen, nullEvery int, seed int64) [][]any {
	rng := rand.New(rand.NewSource(seed))
	rows := make([][]any, n)
	for i := range rows {
		values := make([]any, len(schema))
		for c, f := range schema {
			if nullEvery > 0 && rng.Intn(nullEvery) == 0 {
				continue
			}
			size := rng.Intn(maxLen + 1)
			switch f.Kind {
			case column.KindFloat64List:
				v := make([]float64, size)
				for j := range v {
					v[j] = rng.Float64()
				}
				values[c] = v
			case column.KindInt64List:
				v := make([]int64, size)
				for j := range v {
					v[j] = rng.Int63()
				}
				values[c] = v
			}
		}
		rows[i] = values
	}
	return rows
}

// MemorySource builds a Memory source over GenerateRows output.
func MemorySource(t testing.TB, schema source.Schema, n, maxLen, nullEvery int) (*source.Memory, [][]any) {
	t.Helper()
	rows := GenerateRows(schema, n, maxLen, nullEvery, 1)
	src, err := source.NewMemory(schema, rows)
	if err != nil {
		t.Fatalf("memory source: %v", err)
	}
	return src, rows
}

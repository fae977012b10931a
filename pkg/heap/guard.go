package heap

import (
	"sync"
	"sync/atomic"
	"time"

	"github.com/ajitpratap0/gridload/pkg/errors"
	"github.com/ajitpratap0/gridload/pkg/metrics"
)

// Guard is the allocation lock together with the runtime it protects.
//
// A panic inside Do poisons the guard: the lock is released, the panic keeps
// unwinding, and every later Do fails with ErrorTypeLockPoisoned.
type Guard struct {
	mu sync.Mutex
	rt Runtime

	poisoned     atomic.Bool
	acquisitions atomic.Int64
}

// NewGuard wraps rt in a new allocation lock.
func NewGuard(rt Runtime) *Guard {
	return &Guard{rt: rt}
}

var (
	global     *Guard
	globalOnce sync.Once
)

// Global returns the process-wide guard around the default Arrow runtime.
func Global() *Guard {
	globalOnce.Do(func() {
		global = NewGuard(NewArrowRuntime(nil, 0))
	})
	return global
}

// Do runs fn with exclusive access to the runtime. It blocks until the lock is
// available.
func (g *Guard) Do(fn func(rt Runtime) error) error {
	waitStart := time.Now()
	g.mu.Lock()
	defer g.mu.Unlock()

	g.acquisitions.Add(1)
	metrics.LockWait.Observe(time.Since(waitStart).Seconds())

	if g.poisoned.Load() {
		return errors.New(errors.ErrorTypeLockPoisoned, "allocation lock poisoned by a panic in another writer")
	}

	holdStart := time.Now()
	completed := false
	defer func() {
		metrics.LockHold.Observe(time.Since(holdStart).Seconds())
		if !completed {
			g.poisoned.Store(true)
		}
	}()

	err := fn(g.rt)
	completed = true
	return err
}

// Acquisitions returns how many times the lock has been taken.
func (g *Guard) Acquisitions() int64 { return g.acquisitions.Load() }

// Poisoned reports whether a panic escaped a previous Do.
func (g *Guard) Poisoned() bool { return g.poisoned.Load() }

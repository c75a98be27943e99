package memory

import (
	"context"
	"sync"
	"sync/atomic"

	"github.com/aretw0/tablecast/pkg/domain"
	"github.com/aretw0/tablecast/pkg/ports"
	"golang.org/x/sync/semaphore"
)

// DefaultMaxSessions is the number of concurrent browser sessions per process.
const DefaultMaxSessions = 2

// Limiter implements ports.SessionLimiter with a process-wide weighted semaphore.
// Safe for concurrent use.
type Limiter struct {
	sem    *semaphore.Weighted
	size   int
	inUse  atomic.Int32
	closed atomic.Bool
}

// NewLimiter creates a limiter with n slots. Non-positive n uses DefaultMaxSessions.
func NewLimiter(n int) *Limiter {
	if n <= 0 {
		n = DefaultMaxSessions
	}
	return &Limiter{
		sem:  semaphore.NewWeighted(int64(n)),
		size: n,
	}
}

// Acquire blocks until a slot is free or ctx is done.
func (l *Limiter) Acquire(ctx context.Context) (ports.ReleaseFunc, error) {
	if l.closed.Load() {
		return nil, domain.ErrLimiterClosed
	}
	if err := l.sem.Acquire(ctx, 1); err != nil {
		return nil, err
	}
	l.inUse.Add(1)

	var once sync.Once
	return func() {
		once.Do(func() {
			l.inUse.Add(-1)
			l.sem.Release(1)
		})
	}, nil
}

// Size returns the number of slots.
func (l *Limiter) Size() int { return l.size }

// InUse returns the number of slots currently held.
func (l *Limiter) InUse() int { return int(l.inUse.Load()) }

// Close stops handing out slots. Held slots can still be released.
func (l *Limiter) Close() error {
	l.closed.Store(true)
	return nil
}

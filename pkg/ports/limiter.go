package ports

import (
	"context"
)

// ReleaseFunc returns a slot to its limiter. It is safe to call more than once.
type ReleaseFunc func()

// SessionLimiter bounds the number of concurrently open automation sessions.
// Browser sessions are process- and memory-heavy, so every browser strategy attempt
// holds one slot from Launch until Teardown.
type SessionLimiter interface {
	// Acquire blocks until a slot is available or ctx is done.
	// The returned ReleaseFunc MUST be called to give the slot back.
	Acquire(ctx context.Context) (ReleaseFunc, error)
}

// Package tests holds reusable contract suites for port implementations.
package tests

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/aretw0/tablecast/pkg/ports"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// RunSessionLimiterContract verifies that a SessionLimiter built with capacity slots
// adheres to the interface contract. newLimiter must return a fresh limiter per call.
func RunSessionLimiterContract(t *testing.T, capacity int, newLimiter func(t *testing.T) ports.SessionLimiter) {
	t.Run("Acquire and Release", func(t *testing.T) {
		l := newLimiter(t)
		release, err := l.Acquire(context.Background())
		require.NoError(t, err)
		require.NotNil(t, release)
		release()
		// Double release must not free a slot twice.
		release()

		held := make([]ports.ReleaseFunc, 0, capacity)
		for i := 0; i < capacity; i++ {
			r, err := l.Acquire(context.Background())
			require.NoError(t, err, "slot %d should be available", i)
			held = append(held, r)
		}
		for _, r := range held {
			r()
		}
	})

	t.Run("Blocks When Full", func(t *testing.T) {
		l := newLimiter(t)
		held := make([]ports.ReleaseFunc, 0, capacity)
		for i := 0; i < capacity; i++ {
			r, err := l.Acquire(context.Background())
			require.NoError(t, err)
			held = append(held, r)
		}

		ctx, cancel := context.WithTimeout(context.Background(), 150*time.Millisecond)
		defer cancel()
		_, err := l.Acquire(ctx)
		assert.Error(t, err, "Acquire should fail when every slot is held and ctx expires")

		held[0]()
		r, err := l.Acquire(context.Background())
		require.NoError(t, err, "released slot should be reusable")
		r()
		for _, r := range held[1:] {
			r()
		}
	})

	t.Run("Never Exceeds Capacity", func(t *testing.T) {
		l := newLimiter(t)
		var (
			inUse   atomic.Int32
			maxSeen atomic.Int32
			wg      sync.WaitGroup
		)
		for i := 0; i < capacity*4; i++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
				defer cancel()
				release, err := l.Acquire(ctx)
				if !assert.NoError(t, err) {
					return
				}
				n := inUse.Add(1)
				for {
					m := maxSeen.Load()
					if n <= m || maxSeen.CompareAndSwap(m, n) {
						break
					}
				}
				time.Sleep(5 * time.Millisecond)
				inUse.Add(-1)
				release()
			}()
		}
		wg.Wait()
		assert.LessOrEqual(t, int(maxSeen.Load()), capacity)
		assert.Zero(t, inUse.Load())
	})
}

package redis_test

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/aretw0/tablecast/pkg/adapters/redis"
	"github.com/aretw0/tablecast/pkg/ports"
	"github.com/aretw0/tablecast/pkg/ports/tests"
	backend "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newClient(t *testing.T) (*miniredis.Miniredis, *backend.Client) {
	t.Helper()
	mr, err := miniredis.Run()
	require.NoError(t, err)
	t.Cleanup(mr.Close)

	client := backend.NewClient(&backend.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return mr, client
}

func TestRedisLimiter_Contract(t *testing.T) {
	tests.RunSessionLimiterContract(t, 2, func(t *testing.T) ports.SessionLimiter {
		_, client := newClient(t)
		return redis.NewLimiter(client, 2, redis.WithPollInterval(5*time.Millisecond))
	})
}

func TestRedisLimiter_SharedAcrossReplicas(t *testing.T) {
	_, client := newClient(t)
	a := redis.NewLimiter(client, 1, redis.WithPollInterval(5*time.Millisecond))
	b := redis.NewLimiter(client, 1, redis.WithPollInterval(5*time.Millisecond))

	release, err := a.Acquire(context.Background())
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	_, err = b.Acquire(ctx)
	assert.ErrorIs(t, err, context.DeadlineExceeded)

	release()
	release2, err := b.Acquire(context.Background())
	require.NoError(t, err)
	release2()
}

func TestRedisLimiter_ExpiredSlotIsNotReleasedByOldHolder(t *testing.T) {
	mr, client := newClient(t)
	l := redis.NewLimiter(client, 1, redis.WithTTL(time.Second), redis.WithPrefix("t:"))

	stale, err := l.Acquire(context.Background())
	require.NoError(t, err)

	mr.FastForward(2 * time.Second)
	fresh, err := l.Acquire(context.Background())
	require.NoError(t, err)

	// The stale holder must not free the slot now owned by fresh.
	stale()
	assert.True(t, mr.Exists("t:session-slot:0"))

	fresh()
	assert.False(t, mr.Exists("t:session-slot:0"))
}

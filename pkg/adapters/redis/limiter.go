package redis

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"strconv"
	"sync"
	"time"

	"github.com/aretw0/tablecast/pkg/ports"
	"github.com/google/uuid"
	backend "github.com/redis/go-redis/v9"
)

const (
	DefaultPrefix       = "tablecast:"
	DefaultTTL          = 5 * time.Minute
	DefaultPollInterval = 100 * time.Millisecond
	releaseTimeout      = 5 * time.Second
)

// releaseScript deletes a slot only if it still holds our token, so a slot that
// expired and was taken by another replica is never freed by mistake.
var releaseScript = backend.NewScript(`
	if redis.call("get", KEYS[1]) == ARGV[1] then
		return redis.call("del", KEYS[1])
	else
		return 0
	end
`)

// Limiter implements ports.SessionLimiter across replicas.
// Each of the N slots is a Redis key taken with SET NX PX; the TTL frees slots of
// crashed holders and must exceed the longest strategy timeout.
type Limiter struct {
	client backend.UniversalClient
	slots  int
	prefix string
	ttl    time.Duration
	poll   time.Duration
	logger *slog.Logger
}

// Option configures the Limiter.
type Option func(*Limiter)

// WithPrefix sets the key prefix.
func WithPrefix(prefix string) Option {
	return func(l *Limiter) {
		l.prefix = prefix
	}
}

// WithTTL sets the slot expiration.
func WithTTL(ttl time.Duration) Option {
	return func(l *Limiter) {
		l.ttl = ttl
	}
}

// WithPollInterval sets how often a blocked Acquire retries.
func WithPollInterval(d time.Duration) Option {
	return func(l *Limiter) {
		l.poll = d
	}
}

// WithLogger configures the structured logger.
func WithLogger(logger *slog.Logger) Option {
	return func(l *Limiter) {
		l.logger = logger
	}
}

// NewLimiter creates a limiter with the given number of slots.
func NewLimiter(client backend.UniversalClient, slots int, opts ...Option) *Limiter {
	if slots <= 0 {
		slots = 1
	}
	l := &Limiter{
		client: client,
		slots:  slots,
		prefix: DefaultPrefix,
		ttl:    DefaultTTL,
		poll:   DefaultPollInterval,
		logger: slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

func (l *Limiter) key(i int) string {
	return l.prefix + "session-slot:" + strconv.Itoa(i)
}

// Acquire polls the slots until one is free or ctx is done.
func (l *Limiter) Acquire(ctx context.Context) (ports.ReleaseFunc, error) {
	token := uuid.NewString()

	ticker := time.NewTicker(l.poll)
	defer ticker.Stop()

	for {
		for i := 0; i < l.slots; i++ {
			key := l.key(i)
			ok, err := l.client.SetNX(ctx, key, token, l.ttl).Result()
			if err != nil {
				return nil, fmt.Errorf("redis error acquiring session slot: %w", err)
			}
			if ok {
				return l.releaser(key, token), nil
			}
		}

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-ticker.C:
		}
	}
}

func (l *Limiter) releaser(key, token string) ports.ReleaseFunc {
	var once sync.Once
	return func() {
		once.Do(func() {
			// The attempt context is usually done by now.
			ctx, cancel := context.WithTimeout(context.Background(), releaseTimeout)
			defer cancel()
			if err := releaseScript.Run(ctx, l.client, []string{key}, token).Err(); err != nil {
				l.logger.Warn("session slot release failed", "key", key, "err", err)
			}
		})
	}
}

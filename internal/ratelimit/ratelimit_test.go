package ratelimit

import (
	"context"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/snupai/shortlink/internal/repository"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeClock struct {
	mu sync.Mutex
	t  time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.t = c.t.Add(d)
}

func newClock() *fakeClock {
	return &fakeClock{t: time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)}
}

func newStoreLimiter(t *testing.T, clock *fakeClock) Limiter {
	t.Helper()
	db, err := repository.Open(repository.Options{
		Driver: "sqlite",
		DSN:    filepath.Join(t.TempDir(), "ratelimit.db"),
	})
	require.NoError(t, err)
	t.Cleanup(func() { _ = repository.Close(db) })

	return NewStoreLimiter(repository.NewRateLimitRepository(db), Config{
		Limit:  10,
		Window: 5 * time.Second,
		Now:    clock.Now,
	})
}

func newRedisLimiter(t *testing.T, clock *fakeClock) Limiter {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	return NewRedisLimiter(client, Config{
		Limit:  10,
		Window: 5 * time.Second,
		Now:    clock.Now,
	})
}

var backends = map[string]func(*testing.T, *fakeClock) Limiter{
	"store": newStoreLimiter,
	"redis": newRedisLimiter,
}

func TestLimiterBurstWindow(t *testing.T) {
	for name, build := range backends {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			clock := newClock()
			limiter := build(t, clock)

			for i := 0; i < 10; i++ {
				d, err := limiter.CheckAndRecord(ctx, "42")
				require.NoError(t, err)
				assert.True(t, d.Allowed, "request %d should pass", i+1)
				assert.Equal(t, 9-i, d.Remaining)
				assert.Equal(t, 10, d.Limit)
				clock.Advance(100 * time.Millisecond)
			}

			d, err := limiter.CheckAndRecord(ctx, "42")
			require.NoError(t, err)
			assert.False(t, d.Allowed)
			assert.Equal(t, 0, d.Remaining)
			assert.WithinDuration(t, newClock().Now().Add(5*time.Second), d.ResetAt, 0)

			// other subjects are unaffected
			d, err = limiter.CheckAndRecord(ctx, "43")
			require.NoError(t, err)
			assert.True(t, d.Allowed)
		})
	}
}

func TestLimiterRecoversAfterWindow(t *testing.T) {
	for name, build := range backends {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			clock := newClock()
			limiter := build(t, clock)

			for i := 0; i < 10; i++ {
				_, err := limiter.CheckAndRecord(ctx, "k")
				require.NoError(t, err)
			}
			d, err := limiter.CheckAndRecord(ctx, "k")
			require.NoError(t, err)
			assert.False(t, d.Allowed)

			// exactly one window later the records fall out (timestamp > now-window)
			clock.Advance(5 * time.Second)
			d, err = limiter.CheckAndRecord(ctx, "k")
			require.NoError(t, err)
			assert.True(t, d.Allowed)
			assert.Equal(t, 9, d.Remaining)
		})
	}
}

func TestLimiterRejectedRequestsAreNotRecorded(t *testing.T) {
	for name, build := range backends {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			clock := newClock()
			limiter := build(t, clock)

			for i := 0; i < 10; i++ {
				_, err := limiter.CheckAndRecord(ctx, "k")
				require.NoError(t, err)
			}
			clock.Advance(4 * time.Second)
			for i := 0; i < 5; i++ {
				d, err := limiter.CheckAndRecord(ctx, "k")
				require.NoError(t, err)
				assert.False(t, d.Allowed)
			}

			clock.Advance(time.Second)
			d, err := limiter.CheckAndRecord(ctx, "k")
			require.NoError(t, err)
			assert.True(t, d.Allowed)
			assert.Equal(t, 9, d.Remaining)
		})
	}
}

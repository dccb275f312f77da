package service

import (
	"context"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
	"golang.org/x/time/rate"
)

// Debouncer admits at most one event per key within its window.
type Debouncer interface {
	Allow(ctx context.Context, key string) (bool, error)
}

// RedisDebouncer claims a key with SET NX PX, so the window is shared
// across API replicas.
type RedisDebouncer struct {
	client *redis.Client
	window time.Duration
	prefix string
}

func NewRedisDebouncer(client *redis.Client, window time.Duration) *RedisDebouncer {
	return &RedisDebouncer{client: client, window: window, prefix: "debounce:video:"}
}

func (d *RedisDebouncer) Allow(ctx context.Context, key string) (bool, error) {
	return d.client.SetNX(ctx, d.prefix+key, 1, d.window).Result()
}

// MemoryDebouncer keeps a one-token bucket per key refilled once per window.
type MemoryDebouncer struct {
	mu       sync.Mutex
	window   time.Duration
	now      func() time.Time
	limiters map[string]*rate.Limiter
}

func NewMemoryDebouncer(window time.Duration, now func() time.Time) *MemoryDebouncer {
	if now == nil {
		now = time.Now
	}
	return &MemoryDebouncer{window: window, now: now, limiters: make(map[string]*rate.Limiter)}
}

func (d *MemoryDebouncer) Allow(_ context.Context, key string) (bool, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	l, ok := d.limiters[key]
	if !ok {
		l = rate.NewLimiter(rate.Every(d.window), 1)
		d.limiters[key] = l
	}
	return l.AllowN(d.now(), 1), nil
}

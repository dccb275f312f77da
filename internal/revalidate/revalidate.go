// Package revalidate signals that cached views of portal data are stale.
package revalidate

import (
	"context"

	"github.com/redis/go-redis/v9"
)

// View paths invalidated by mutating operations.
const (
	AdminDocuments   = "/admin/documents"
	AdminSubmissions = "/admin/submissions"
	AdminHRRecords   = "/admin/hr-records"
	AdminTraining    = "/admin/training"
	StaffOnboarding  = "/staff/onboarding"
	StaffHRRecords   = "/staff/hr-records"
	StaffTraining    = "/staff/training"
)

// Hook is called after every mutating operation.
type Hook interface {
	Invalidate(ctx context.Context, paths ...string) error
}

// Noop discards invalidations.
type Noop struct{}

func (Noop) Invalidate(context.Context, ...string) error { return nil }

// RedisHook evicts "<prefix><path>" cache keys and publishes each path on channel.
type RedisHook struct {
	client  *redis.Client
	channel string
	prefix  string
}

func NewRedisHook(client *redis.Client, channel string) *RedisHook {
	if channel == "" {
		channel = "portal:revalidate"
	}
	return &RedisHook{client: client, channel: channel, prefix: "view:"}
}

func (h *RedisHook) Invalidate(ctx context.Context, paths ...string) error {
	if len(paths) == 0 {
		return nil
	}
	keys := make([]string, len(paths))
	for i, p := range paths {
		keys[i] = h.prefix + p
	}
	pipe := h.client.Pipeline()
	pipe.Del(ctx, keys...)
	for _, p := range paths {
		pipe.Publish(ctx, h.channel, p)
	}
	_, err := pipe.Exec(ctx)
	return err
}

package sessions

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"time"

	"github.com/redis/go-redis/v9"
)

// Blacklist records revoked access tokens until they would have expired.
// A Blacklist without a Redis client accepts every token.
type Blacklist struct {
	client *redis.Client
}

func NewBlacklist(client *redis.Client) *Blacklist {
	return &Blacklist{client: client}
}

// digest names a token in Redis keys without storing the token itself.
func digest(token string) string {
	sum := sha256.Sum256([]byte(token))
	return hex.EncodeToString(sum[:])
}

func blacklistKey(token string) string { return "blacklist:access:" + digest(token) }

// Add revokes token for ttl.
func (b *Blacklist) Add(ctx context.Context, token string, ttl time.Duration) error {
	if b == nil || b.client == nil || ttl <= 0 {
		return nil
	}
	return b.client.Set(ctx, blacklistKey(token), "1", ttl).Err()
}

// Contains reports whether token has been revoked.
func (b *Blacklist) Contains(ctx context.Context, token string) (bool, error) {
	if b == nil || b.client == nil {
		return false, nil
	}
	n, err := b.client.Exists(ctx, blacklistKey(token)).Result()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

package sessions

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisRepository keeps each session as JSON under "<prefix><digest>" with a
// TTL matching its expiry, plus a per-user set of digests so all of a user's
// sessions can be revoked at once. Raw refresh tokens never appear in keys.
type RedisRepository struct {
	client *redis.Client
	prefix string
}

func NewRedisRepository(client *redis.Client, prefix string) *RedisRepository {
	if prefix == "" {
		prefix = "session:"
	}
	return &RedisRepository{client: client, prefix: prefix}
}

func (r *RedisRepository) sessionKey(digest string) string { return r.prefix + digest }
func (r *RedisRepository) userKey(userID string) string    { return r.prefix + "user:" + userID }

func (r *RedisRepository) Create(ctx context.Context, s *Session) error {
	ttl := time.Until(s.ExpiresAt)
	if ttl <= 0 {
		return errors.New("session already expired")
	}
	b, err := json.Marshal(s)
	if err != nil {
		return err
	}
	d := digest(s.RefreshToken)
	pipe := r.client.Pipeline()
	pipe.Set(ctx, r.sessionKey(d), b, ttl)
	pipe.SAdd(ctx, r.userKey(s.UserID), d)
	pipe.Expire(ctx, r.userKey(s.UserID), ttl)
	_, err = pipe.Exec(ctx)
	return err
}

func (r *RedisRepository) GetByRefresh(ctx context.Context, refresh string) (*Session, error) {
	b, err := r.client.Get(ctx, r.sessionKey(digest(refresh))).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	var s Session
	if err := json.Unmarshal(b, &s); err != nil {
		return nil, err
	}
	return &s, nil
}

func (r *RedisRepository) DeleteByRefresh(ctx context.Context, refresh string) error {
	s, err := r.GetByRefresh(ctx, refresh)
	if err != nil || s == nil {
		return err
	}
	d := digest(refresh)
	pipe := r.client.Pipeline()
	pipe.Del(ctx, r.sessionKey(d))
	pipe.SRem(ctx, r.userKey(s.UserID), d)
	_, err = pipe.Exec(ctx)
	return err
}

func (r *RedisRepository) DeleteByUser(ctx context.Context, userID string) (int64, error) {
	digests, err := r.client.SMembers(ctx, r.userKey(userID)).Result()
	if err != nil {
		return 0, err
	}
	keys := []string{r.userKey(userID)}
	for _, d := range digests {
		keys = append(keys, r.sessionKey(d))
	}
	n, err := r.client.Del(ctx, keys...).Result()
	if err != nil {
		return 0, err
	}
	if len(digests) > 0 && n > 0 {
		// the index key itself is not a session
		n--
	}
	return n, nil
}

package middleware

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"

	"github.com/staffhub/portal/pkg/logger"
	"github.com/staffhub/portal/pkg/metrics"
)

// RedisRateLimitMiddleware counts requests per caller in fixed windows shared
// by every API replica. A caller gets floor(rps*window)+burst requests per
// window. Without a client it degrades to the in-process limiter.
func RedisRateLimitMiddleware(client *redis.Client, rps float64, burst int, window time.Duration) gin.HandlerFunc {
	if client == nil {
		return RateLimitMiddleware(rps, burst)
	}
	secs := int64(window.Seconds())
	if secs <= 0 {
		secs = 1
	}
	budget := int64(rps*float64(secs)) + int64(burst)
	ttl := time.Duration(secs+1) * time.Second

	return func(c *gin.Context) {
		ctx := c.Request.Context()
		key := "rl:" + limitKey(c) + ":" + strconv.FormatInt(time.Now().Unix()/secs, 10)

		pipe := client.Pipeline()
		incr := pipe.Incr(ctx, key)
		pipe.Expire(ctx, key, ttl)
		if _, err := pipe.Exec(ctx); err != nil {
			logger.Errorf("redis rate limit check failed: %v", err)
			abort(c, http.StatusServiceUnavailable, "internal", "rate limit check failed")
			return
		}
		if incr.Val() > budget {
			c.Header("Retry-After", strconv.FormatInt(secs, 10))
			metrics.RateLimitRejected.WithLabelValues("redis").Inc()
			abort(c, http.StatusTooManyRequests, "rate_limited", "Rate limit exceeded")
			return
		}
		metrics.RateLimitAllowed.WithLabelValues("redis").Inc()
		c.Next()
	}
}

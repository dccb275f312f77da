package middleware

import (
	"net/http"
	"sync"

	"github.com/gin-gonic/gin"
	"golang.org/x/time/rate"

	"github.com/staffhub/portal/pkg/metrics"
)

// limitKey prefers the signed-in principal, then the token subject, then the client IP.
func limitKey(c *gin.Context) string {
	if p := Principal(c); p != nil && p.ID != "" {
		return "user:" + p.ID
	}
	if v, ok := c.Get(ClaimsKey); ok {
		if cm, ok := v.(map[string]interface{}); ok {
			if sub, ok := cm["sub"].(string); ok && sub != "" {
				return "sub:" + sub
			}
		}
	}
	ip := c.ClientIP()
	if ip == "" {
		ip = "unknown"
	}
	return "ip:" + ip
}

// RateLimitMiddleware returns a Gin middleware enforcing a token bucket per key
// (see limitKey). rps = allowed events per second, burst = maximum tokens in bucket.
// Each middleware instance keeps its own buckets.
func RateLimitMiddleware(rps float64, burst int) gin.HandlerFunc {
	var limiters sync.Map // map[string]*rate.Limiter
	return func(c *gin.Context) {
		key := limitKey(c)
		v, ok := limiters.Load(key)
		if !ok {
			v, _ = limiters.LoadOrStore(key, rate.NewLimiter(rate.Limit(rps), burst))
		}
		if !v.(*rate.Limiter).Allow() {
			c.Header("Retry-After", "1")
			metrics.RateLimitRejected.WithLabelValues("memory").Inc()
			abort(c, http.StatusTooManyRequests, "rate_limited", "Rate limit exceeded")
			return
		}
		metrics.RateLimitAllowed.WithLabelValues("memory").Inc()
		c.Next()
	}
}

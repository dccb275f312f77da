package middleware

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	mr "github.com/alicebob/miniredis/v2"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"

	"github.com/staffhub/portal/internal/access"
	"github.com/staffhub/portal/pkg/metrics"
)

func redisLimited(t *testing.T, budget int) (*gin.Engine, *mr.Miniredis) {
	t.Helper()
	m, err := mr.Run()
	require.NoError(t, err)
	t.Cleanup(m.Close)

	r := gin.New()
	r.Use(func(c *gin.Context) {
		if id := c.Query("as"); id != "" {
			c.Set(PrincipalKey, &access.Principal{ID: id})
		}
		c.Next()
	})
	// one-minute windows keep the test clear of bucket boundaries
	r.Use(RedisRateLimitMiddleware(redis.NewClient(&redis.Options{Addr: m.Addr()}), 0, budget, time.Minute))
	r.GET("/r", func(c *gin.Context) { c.JSON(http.StatusOK, gin.H{"ok": true}) })
	return r, m
}

func TestRedisRateLimitMiddleware_WindowBudget(t *testing.T) {
	r, m := redisLimited(t, 2)
	rejected := testutil.ToFloat64(metrics.RateLimitRejected.WithLabelValues("redis"))

	require.Equal(t, http.StatusOK, get(r, "/r"))
	require.Equal(t, http.StatusOK, get(r, "/r"))

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest("GET", "/r", nil))
	require.Equal(t, http.StatusTooManyRequests, w.Code)
	require.Equal(t, "60", w.Header().Get("Retry-After"))
	var body map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	require.Equal(t, false, body["success"])
	require.Equal(t, "rate_limited", body["code"])
	require.Equal(t, rejected+1, testutil.ToFloat64(metrics.RateLimitRejected.WithLabelValues("redis")))

	m.FastForward(2 * time.Minute)
	require.Equal(t, http.StatusOK, get(r, "/r"))
}

func TestRedisRateLimitMiddleware_KeysByCaller(t *testing.T) {
	r, m := redisLimited(t, 1)

	require.Equal(t, http.StatusOK, get(r, "/r?as=u1"))
	require.Equal(t, http.StatusTooManyRequests, get(r, "/r?as=u1"))
	require.Equal(t, http.StatusOK, get(r, "/r?as=u2"))

	var userKeys int
	for _, k := range m.Keys() {
		if strings.HasPrefix(k, "rl:user:") {
			userKeys++
		}
	}
	require.Equal(t, 2, userKeys)
}

func TestRedisRateLimitMiddleware_UnavailableRedis(t *testing.T) {
	r, m := redisLimited(t, 5)
	m.Close()
	require.Equal(t, http.StatusServiceUnavailable, get(r, "/r"))
}

func TestRedisRateLimitMiddleware_NilClientFallsBack(t *testing.T) {
	r := gin.New()
	r.Use(RedisRateLimitMiddleware(nil, 1, 1, time.Second))
	r.GET("/r", func(c *gin.Context) { c.Status(http.StatusOK) })
	require.Equal(t, http.StatusOK, get(r, "/r"))
	require.Equal(t, http.StatusTooManyRequests, get(r, "/r"))
}

package middleware

import (
	"net/http"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/almanac/almanacbackend/apperrors"
	"github.com/almanac/almanacbackend/config"
	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func newTestRedis(t *testing.T) (*miniredis.Miniredis, *redis.Client) {
	t.Helper()
	mr, err := miniredis.Run()
	require.NoError(t, err)
	t.Cleanup(mr.Close)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return mr, client
}

var testLimit = config.RateLimitConfig{Enabled: true, Requests: 2, Window: time.Minute, Block: 5 * time.Minute}

func limitedRouter(rdb *redis.Client, cfg config.RateLimitConfig) *gin.Engine {
	r := newRouter(false)
	r.GET("/auth/login", RateLimit(rdb, cfg, "auth", zap.NewNop()), func(c *gin.Context) {
		c.Status(http.StatusNoContent)
	})
	return r
}

func TestRateLimitBlocksAfterLimit(t *testing.T) {
	mr, rdb := newTestRedis(t)
	r := limitedRouter(rdb, testLimit)

	w, _ := do(r, http.MethodGet, "/auth/login", "")
	assert.Equal(t, http.StatusNoContent, w.Code)
	assert.Equal(t, "2", w.Header().Get("X-RateLimit-Limit"))
	assert.Equal(t, "1", w.Header().Get("X-RateLimit-Remaining"))

	w, _ = do(r, http.MethodGet, "/auth/login", "")
	assert.Equal(t, http.StatusNoContent, w.Code)
	assert.Equal(t, "0", w.Header().Get("X-RateLimit-Remaining"))

	w, env := do(r, http.MethodGet, "/auth/login", "")
	assert.Equal(t, http.StatusTooManyRequests, w.Code)
	assert.Equal(t, "300", w.Header().Get("Retry-After"))
	require.NotNil(t, env.Error)
	assert.Equal(t, apperrors.CodeRateLimited, env.Error.Code)

	// The block outlives the counting window.
	mr.FastForward(2 * time.Minute)
	w, _ = do(r, http.MethodGet, "/auth/login", "")
	assert.Equal(t, http.StatusTooManyRequests, w.Code)

	mr.FastForward(4 * time.Minute)
	w, _ = do(r, http.MethodGet, "/auth/login", "")
	assert.Equal(t, http.StatusNoContent, w.Code)
}

func TestRateLimitWindowResets(t *testing.T) {
	mr, rdb := newTestRedis(t)
	r := limitedRouter(rdb, testLimit)

	for i := 0; i < 2; i++ {
		w, _ := do(r, http.MethodGet, "/auth/login", "")
		require.Equal(t, http.StatusNoContent, w.Code)
	}
	mr.FastForward(time.Minute + time.Second)

	w, _ := do(r, http.MethodGet, "/auth/login", "")
	assert.Equal(t, http.StatusNoContent, w.Code)
}

func TestRateLimitFailsOpen(t *testing.T) {
	mr, err := miniredis.Run()
	require.NoError(t, err)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr(), MaxRetries: -1})
	defer rdb.Close()
	r := limitedRouter(rdb, testLimit)
	mr.Close()

	for i := 0; i < 5; i++ {
		w, _ := do(r, http.MethodGet, "/auth/login", "")
		assert.Equal(t, http.StatusNoContent, w.Code)
	}
}

func TestRateLimitDisabled(t *testing.T) {
	_, rdb := newTestRedis(t)
	disabled := testLimit
	disabled.Enabled = false

	for _, r := range []*gin.Engine{limitedRouter(nil, testLimit), limitedRouter(rdb, disabled)} {
		for i := 0; i < 5; i++ {
			w, _ := do(r, http.MethodGet, "/auth/login", "")
			assert.Equal(t, http.StatusNoContent, w.Code)
		}
	}
}

func TestRateLimitCounterCarriesWindowTTL(t *testing.T) {
	mr, rdb := newTestRedis(t)
	r := limitedRouter(rdb, testLimit)

	w, _ := do(r, http.MethodGet, "/auth/login", "")
	require.Equal(t, http.StatusNoContent, w.Code)
	assert.Equal(t, []string{"auth:ip:192.0.2.1"}, mr.Keys())
	assert.Equal(t, time.Minute, mr.TTL("auth:ip:192.0.2.1"))

	// Later hits in the same window do not push the expiry out.
	mr.FastForward(10 * time.Second)
	w, _ = do(r, http.MethodGet, "/auth/login", "")
	require.Equal(t, http.StatusNoContent, w.Code)
	assert.Equal(t, 50*time.Second, mr.TTL("auth:ip:192.0.2.1"))
}

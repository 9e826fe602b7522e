package middleware

import (
	"strconv"
	"time"

	"github.com/almanac/almanacbackend/apperrors"
	"github.com/almanac/almanacbackend/config"
	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// RateLimit is a fixed-window limiter keyed by client IP. A client over the
// limit is blocked for cfg.Block. Redis errors let the request through.
func RateLimit(rdb *redis.Client, cfg config.RateLimitConfig, keyPrefix string, log *zap.Logger) gin.HandlerFunc {
	if rdb == nil || !cfg.Enabled || cfg.Requests <= 0 {
		return func(c *gin.Context) { c.Next() }
	}
	if log == nil {
		log = zap.NewNop()
	}

	return func(c *gin.Context) {
		ctx := c.Request.Context()

		clientID := "ip:" + c.ClientIP()
		key := keyPrefix + ":" + clientID
		blockKey := key + ":blocked"

		if blocked, _ := rdb.Get(ctx, blockKey).Result(); blocked == "1" {
			ttl, _ := rdb.TTL(ctx, blockKey).Result()
			reject(c, ttl)
			return
		}

		// NX keeps the window anchored at the first hit of the window.
		var incr *redis.IntCmd
		_, err := rdb.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			incr = pipe.Incr(ctx, key)
			pipe.ExpireNX(ctx, key, cfg.Window)
			return nil
		})
		if err != nil {
			log.Warn("rate limiter unavailable", zap.Error(err))
			c.Next()
			return
		}
		count := incr.Val()

		if count > int64(cfg.Requests) {
			rdb.Set(ctx, blockKey, "1", cfg.Block)
			log.Warn("client rate limited", zap.String("client", clientID), zap.String("prefix", keyPrefix))
			reject(c, cfg.Block)
			return
		}

		ttl, _ := rdb.TTL(ctx, key).Result()
		c.Header("X-RateLimit-Limit", strconv.Itoa(cfg.Requests))
		c.Header("X-RateLimit-Remaining", strconv.Itoa(cfg.Requests-int(count)))
		c.Header("X-RateLimit-Reset", strconv.Itoa(int(ttl.Seconds())))
		c.Next()
	}
}

func reject(c *gin.Context, retryAfter time.Duration) {
	secs := int(retryAfter.Seconds())
	if secs < 1 {
		secs = 1
	}
	c.Header("Retry-After", strconv.Itoa(secs))
	_ = c.Error(apperrors.RateLimited(secs))
	c.Abort()
}

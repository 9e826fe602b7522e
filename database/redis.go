package database

import (
	"context"
	"time"

	"github.com/almanac/almanacbackend/config"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// NewRedisClient returns a connected client, or nil when no address is
// configured or the server does not answer. Callers treat nil as "rate
// limiting disabled".
func NewRedisClient(cfg config.RedisConfig, log *zap.Logger) *redis.Client {
	if cfg.Addr == "" {
		return nil
	}
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		log.Warn("redis unavailable, rate limiting disabled", zap.String("addr", cfg.Addr), zap.Error(err))
		_ = client.Close()
		return nil
	}
	return client
}

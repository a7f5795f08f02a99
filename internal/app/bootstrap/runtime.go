package bootstrap

import (
	"context"
	"crypto/tls"
	"strings"

	"github.com/redis/go-redis/v9"

	appconfig "github.com/wolfman30/salon-booking/internal/config"
	"github.com/wolfman30/salon-booking/internal/session"
	"github.com/wolfman30/salon-booking/pkg/logging"
)

// BuildRedisClient returns a configured Redis client or nil when disabled.
// When verify is true, a ping is issued and failures return nil.
func BuildRedisClient(ctx context.Context, cfg *appconfig.Config, logger *logging.Logger, verify bool) *redis.Client {
	if cfg == nil || strings.TrimSpace(cfg.RedisAddr) == "" {
		return nil
	}
	if logger == nil {
		logger = logging.Default()
	}
	if ctx == nil {
		ctx = context.Background()
	}

	redisOptions := &redis.Options{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
	}
	if cfg.RedisTLS {
		redisOptions.TLSConfig = &tls.Config{MinVersion: tls.VersionTLS12}
	}
	client := redis.NewClient(redisOptions)
	if !verify {
		return client
	}
	if err := client.Ping(ctx).Err(); err != nil {
		logger.Warn("redis not available", "error", err)
		_ = client.Close()
		return nil
	}
	return client
}

// BuildSessionKV picks the persisted session backend. "redis" falls back to
// the in-process store when Redis cannot be reached. The returned close
// function is never nil.
func BuildSessionKV(ctx context.Context, cfg *appconfig.Config, logger *logging.Logger) (session.KV, func()) {
	if logger == nil {
		logger = logging.Default()
	}
	if cfg.SessionBackend == "redis" {
		if client := BuildRedisClient(ctx, cfg, logger, true); client != nil {
			logger.Info("session store: redis", "addr", cfg.RedisAddr)
			return session.NewRedisKV(client, cfg.SessionTTL), func() { _ = client.Close() }
		}
		logger.Warn("session store: falling back to memory")
	} else {
		logger.Info("session store: memory")
	}
	return session.NewMemoryKV(cfg.SessionTTL), func() {}
}

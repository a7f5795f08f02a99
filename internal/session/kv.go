// Package session holds the per-browser token store, its persisted key-value
// backends and the non-validating access token decoder.
package session

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	gocache "github.com/patrickmn/go-cache"
	"github.com/redis/go-redis/v9"
)

// Persisted key names, relative to a session namespace.
const (
	KeyAccessToken  = "accessToken"
	KeyRefreshToken = "refreshToken"
	KeyCustomerData = "customerData"
)

// KV is the persisted key-value storage behind a Store.
type KV interface {
	Get(ctx context.Context, key string) (string, bool, error)
	Set(ctx context.Context, key, value string) error
	Delete(ctx context.Context, keys ...string) error
}

// RedisKV persists session keys in redis under a fixed prefix.
type RedisKV struct {
	client *redis.Client
	prefix string
	ttl    time.Duration
}

// NewRedisKV creates a redis backed KV. A zero ttl keeps keys until deleted.
func NewRedisKV(client *redis.Client, ttl time.Duration) *RedisKV {
	return &RedisKV{client: client, prefix: "salon:session:", ttl: ttl}
}

func (r *RedisKV) key(k string) string {
	return r.prefix + k
}

func (r *RedisKV) Get(ctx context.Context, key string) (string, bool, error) {
	val, err := r.client.Get(ctx, r.key(key)).Result()
	if errors.Is(err, redis.Nil) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("session: redis get: %w", err)
	}
	return val, true, nil
}

func (r *RedisKV) Set(ctx context.Context, key, value string) error {
	if err := r.client.Set(ctx, r.key(key), value, r.ttl).Err(); err != nil {
		return fmt.Errorf("session: redis set: %w", err)
	}
	return nil
}

func (r *RedisKV) Delete(ctx context.Context, keys ...string) error {
	if len(keys) == 0 {
		return nil
	}
	full := make([]string, 0, len(keys))
	for _, k := range keys {
		full = append(full, r.key(k))
	}
	if err := r.client.Del(ctx, full...).Err(); err != nil {
		return fmt.Errorf("session: redis del: %w", err)
	}
	return nil
}

// MemoryKV keeps keys in process memory. Used for single-instance deployments
// and tests.
type MemoryKV struct {
	c *gocache.Cache
}

// NewMemoryKV creates an in-process KV whose entries expire after ttl.
func NewMemoryKV(ttl time.Duration) *MemoryKV {
	if ttl <= 0 {
		ttl = gocache.NoExpiration
	}
	return &MemoryKV{c: gocache.New(ttl, time.Minute)}
}

func (m *MemoryKV) Get(_ context.Context, key string) (string, bool, error) {
	v, ok := m.c.Get(key)
	if !ok {
		return "", false, nil
	}
	s, _ := v.(string)
	return s, true, nil
}

func (m *MemoryKV) Set(_ context.Context, key, value string) error {
	m.c.Set(key, value, gocache.DefaultExpiration)
	return nil
}

func (m *MemoryKV) Delete(_ context.Context, keys ...string) error {
	for _, k := range keys {
		m.c.Delete(k)
	}
	return nil
}

func scopedKey(sessionID, name string) string {
	return strings.TrimSpace(sessionID) + ":" + name
}

package cache

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"
)

// ListCache holds serialized pothole listings. It is best effort: failures
// are logged and reported as misses so the store stays the source of truth.
type ListCache interface {
	// Get returns the cached value and the cache version it was read at.
	Get(ctx context.Context, key string) (value []byte, version int64, ok bool)
	// Set stores value under the version returned by the Get that missed,
	// so a listing loaded before an invalidation is never served after it.
	Set(ctx context.Context, key string, version int64, value []byte)
	// Invalidate drops every cached listing.
	Invalidate(ctx context.Context)
}

// Noop never stores anything.
type Noop struct{}

func (Noop) Get(context.Context, string) ([]byte, int64, bool) { return nil, 0, false }

func (Noop) Set(context.Context, string, int64, []byte) {}

func (Noop) Invalidate(context.Context) {}

const (
	keyPrefix     = "spothole:potholes"
	generationKey = keyPrefix + ":gen"
)

// RedisListCache namespaces entries under a generation counter. Invalidate
// bumps the counter, so old entries become unreachable at once and expire
// through their TTL.
type RedisListCache struct {
	client *redis.Client
	ttl    time.Duration
}

func NewRedisListCache(client *redis.Client, ttl time.Duration) *RedisListCache {
	return &RedisListCache{client: client, ttl: ttl}
}

// Connect pings the server and returns a cache bound to it.
func Connect(ctx context.Context, addr, password string, db int, ttl time.Duration) (*RedisListCache, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("redis ping: %w", err)
	}
	slog.Info("redis connected", "addr", addr)
	return NewRedisListCache(client, ttl), nil
}

func (r *RedisListCache) generation(ctx context.Context) (int64, error) {
	gen, err := r.client.Get(ctx, generationKey).Int64()
	if errors.Is(err, redis.Nil) {
		return 0, nil
	}
	return gen, err
}

func (r *RedisListCache) key(gen int64, key string) string {
	return fmt.Sprintf("%s:v%d:%s", keyPrefix, gen, key)
}

func (r *RedisListCache) Get(ctx context.Context, key string) ([]byte, int64, bool) {
	gen, err := r.generation(ctx)
	if err != nil {
		slog.Warn("list cache generation read failed", "error", err)
		return nil, -1, false
	}
	val, err := r.client.Get(ctx, r.key(gen, key)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, gen, false
	}
	if err != nil {
		slog.Warn("list cache read failed", "key", key, "error", err)
		return nil, -1, false
	}
	return val, gen, true
}

func (r *RedisListCache) Set(ctx context.Context, key string, version int64, value []byte) {
	if version < 0 {
		return
	}
	if err := r.client.Set(ctx, r.key(version, key), value, r.ttl).Err(); err != nil {
		slog.Warn("list cache write failed", "key", key, "error", err)
	}
}

func (r *RedisListCache) Invalidate(ctx context.Context) {
	if err := r.client.Incr(ctx, generationKey).Err(); err != nil {
		slog.Warn("list cache invalidate failed", "error", err)
	}
}

func (r *RedisListCache) Close() error {
	return r.client.Close()
}

// Package middleware provides HTTP middleware components for the API server.
package middleware

import (
	"context"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"
)

// redisKeyPrefix namespaces rate limit keys so they do not collide with
// other application data in the same Redis instance.
const redisKeyPrefix = "ratelimit:"

// RedisRateLimitStore implements RateLimitStore backed by Redis.
// It uses a fixed window counter (INCR + EXPIRE), so limits are shared
// across all API instances pointing at the same Redis.
//
// If Redis is unreachable the store fails open: the request is allowed and
// the failure is counted on the metrics Redis error counter (when set).
type RedisRateLimitStore struct {
	client  *redis.Client
	metrics *Metrics
	logger  *slog.Logger
}

// NewRedisRateLimitStore creates a Redis-backed rate limit store.
func NewRedisRateLimitStore(client *redis.Client) *RedisRateLimitStore {
	return &RedisRateLimitStore{client: client}
}

// WithMetrics attaches middleware metrics so fail-open events are counted.
func (s *RedisRateLimitStore) WithMetrics(m *Metrics) *RedisRateLimitStore {
	s.metrics = m
	return s
}

// WithLogger attaches a logger for Redis failures.
func (s *RedisRateLimitStore) WithLogger(logger *slog.Logger) *RedisRateLimitStore {
	s.logger = logger
	return s
}

// Allow checks if a request from the given key should be allowed.
// Implements the RateLimitStore interface.
func (s *RedisRateLimitStore) Allow(ctx context.Context, key string, config RateLimitConfig) (bool, int) {
	redisKey := redisKeyPrefix + key

	// INCR creates the key at 1 on first use within a window.
	count, err := s.client.Incr(ctx, redisKey).Result()
	if err != nil {
		s.failOpen("incr", err)
		return true, 0
	}

	// First request in the window sets the expiry. If this EXPIRE is lost
	// the key lives forever, so set it with NX on every request as well.
	if count == 1 {
		if err := s.client.Expire(ctx, redisKey, config.WindowDuration).Err(); err != nil {
			s.failOpen("expire", err)
			return true, 0
		}
	} else {
		// Guard against a window that never got an expiry (crashed between
		// INCR and EXPIRE). ExpireNX only sets a TTL if none exists.
		_ = s.client.ExpireNX(ctx, redisKey, config.WindowDuration).Err()
	}

	if count <= int64(config.RequestsPerWindow) {
		return true, 0
	}

	// Over the limit: report seconds until the window resets.
	ttl, err := s.client.TTL(ctx, redisKey).Result()
	if err != nil || ttl <= 0 {
		return false, 1
	}
	retryAfter := int(ttl / time.Second)
	if retryAfter <= 0 {
		retryAfter = 1
	}
	return false, retryAfter
}

// failOpen records a Redis failure. Requests are allowed when the store
// cannot reach Redis.
func (s *RedisRateLimitStore) failOpen(op string, err error) {
	if s.metrics != nil {
		s.metrics.IncRateLimitRedisErrors()
	}
	if s.logger != nil {
		s.logger.Warn("rate limit redis error, failing open",
			slog.String("op", op),
			slog.String("error", err.Error()),
		)
	}
}

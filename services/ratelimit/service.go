// Package ratelimit counts requests per client in fixed windows stored in Redis.
package ratelimit

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

const keyPrefix = "ratelimit:"

// Store is the subset of the Redis client used for counting
type Store interface {
	Incr(ctx context.Context, key string) *redis.IntCmd
	Expire(ctx context.Context, key string, expiration time.Duration) *redis.BoolCmd
}

// Config holds the window settings
type Config struct {
	Requests int
	Window   time.Duration
}

// Result represents the outcome of a rate limit check
type Result struct {
	Allowed   bool
	Limit     int
	Remaining int
	ResetAt   time.Time
}

// Limiter enforces a request budget per scope and client. A nil store
// disables limiting.
type Limiter struct {
	store  Store
	cfg    Config
	logger *zap.Logger
	now    func() time.Time
}

// NewLimiter creates a new Limiter
func NewLimiter(store Store, cfg Config, logger *zap.Logger) *Limiter {
	if cfg.Window <= 0 {
		cfg.Window = time.Minute
	}
	return &Limiter{
		store:  store,
		cfg:    cfg,
		logger: logger,
		now:    time.Now,
	}
}

// Enabled reports whether requests are being counted
func (l *Limiter) Enabled() bool {
	return l != nil && l.store != nil && l.cfg.Requests > 0
}

// windowBounds returns the index of the window containing now and its end
func (l *Limiter) windowBounds(now time.Time) (int64, time.Time) {
	size := int64(l.cfg.Window / time.Second)
	if size <= 0 {
		size = 1
	}
	idx := now.Unix() / size
	return idx, time.Unix((idx+1)*size, 0)
}

func buildKey(scope, client string, window int64) string {
	return fmt.Sprintf("%s%s:%s:%d", keyPrefix, scope, client, window)
}

// Check counts one request for client within scope. On a store error the
// request is allowed and the error is returned for logging.
func (l *Limiter) Check(ctx context.Context, scope, client string) (*Result, error) {
	if !l.Enabled() {
		return &Result{Allowed: true}, nil
	}

	idx, resetAt := l.windowBounds(l.now())
	key := buildKey(scope, client, idx)

	count, err := l.store.Incr(ctx, key).Result()
	if err != nil {
		return &Result{Allowed: true, Limit: l.cfg.Requests, Remaining: l.cfg.Requests, ResetAt: resetAt},
			fmt.Errorf("failed to increment %s: %w", key, err)
	}

	if count == 1 {
		// the key outlives its window slightly so late increments still expire
		if err := l.store.Expire(ctx, key, l.cfg.Window+time.Second).Err(); err != nil {
			l.logger.Warn("failed to set rate limit expiry", zap.String("key", key), zap.Error(err))
		}
	}

	remaining := l.cfg.Requests - int(count)
	if remaining < 0 {
		remaining = 0
	}

	return &Result{
		Allowed:   count <= int64(l.cfg.Requests),
		Limit:     l.cfg.Requests,
		Remaining: remaining,
		ResetAt:   resetAt,
	}, nil
}

package rate

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

var (
	ErrRateLimited      = errors.New("rate limited")
	ErrRedisUnavailable = errors.New("redis unavailable")
)

// Config holds refresh throttle tuning.
type Config struct {
	Prefix      string
	MaxAttempts int
	Window      time.Duration
}

// Limiter counts refresh exchanges per refresh token.
type Limiter struct {
	redis  redis.UniversalClient
	config Config
}

// New creates a [Limiter]. It returns nil when redisClient is nil or the
// config disables throttling; a nil Limiter allows everything.
func New(redisClient redis.UniversalClient, cfg Config) *Limiter {
	if redisClient == nil || cfg.MaxAttempts <= 0 || cfg.Window <= 0 {
		return nil
	}
	if cfg.Prefix == "" {
		cfg.Prefix = "gb"
	}
	return &Limiter{redis: redisClient, config: cfg}
}

// AllowRefresh records one refresh exchange for tokenHash and returns
// [ErrRateLimited] once the window's budget is spent.
func (l *Limiter) AllowRefresh(ctx context.Context, tokenHash string) error {
	if l == nil {
		return nil
	}
	count, err := l.incrementWithTTL(ctx, l.refreshKey(tokenHash), l.config.Window)
	if err != nil {
		return err
	}
	if count > int64(l.config.MaxAttempts) {
		return ErrRateLimited
	}
	return nil
}

// Attempts returns the exchanges recorded for tokenHash in the current window.
func (l *Limiter) Attempts(ctx context.Context, tokenHash string) (int, error) {
	if l == nil {
		return 0, nil
	}
	count, err := l.redis.Get(ctx, l.refreshKey(tokenHash)).Int64()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return 0, nil
		}
		return 0, fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}
	if count < 0 {
		return 0, nil
	}
	return int(count), nil
}

func (l *Limiter) refreshKey(tokenHash string) string {
	return l.config.Prefix + ":rl:refresh:" + tokenHash
}

func (l *Limiter) incrementWithTTL(ctx context.Context, key string, ttl time.Duration) (int64, error) {
	count, err := l.redis.Incr(ctx, key).Result()
	if err != nil {
		return 0, fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}

	// Fixed window: only the first hit sets the TTL.
	if count == 1 {
		if err := l.redis.Expire(ctx, key, ttl).Err(); err != nil {
			return 0, fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
		}
	}

	return count, nil
}

package rate

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
)

func newTestLimiter(t *testing.T, max int, window time.Duration) (*Limiter, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })
	return New(rdb, Config{Prefix: "test", MaxAttempts: max, Window: window}), mr
}

func TestAllowRefreshFixedWindow(t *testing.T) {
	l, mr := newTestLimiter(t, 2, time.Minute)
	ctx := context.Background()

	for i := 0; i < 2; i++ {
		if err := l.AllowRefresh(ctx, "h1"); err != nil {
			t.Fatalf("attempt %d: unexpected error %v", i+1, err)
		}
	}
	if err := l.AllowRefresh(ctx, "h1"); !errors.Is(err, ErrRateLimited) {
		t.Fatalf("expected ErrRateLimited, got %v", err)
	}
	if err := l.AllowRefresh(ctx, "h2"); err != nil {
		t.Fatalf("other token must have its own budget: %v", err)
	}

	if ttl := mr.TTL("test:rl:refresh:h1"); ttl <= 0 || ttl > time.Minute {
		t.Fatalf("unexpected window ttl %v", ttl)
	}

	mr.FastForward(time.Minute + time.Second)
	if err := l.AllowRefresh(ctx, "h1"); err != nil {
		t.Fatalf("expected budget to reset after window: %v", err)
	}
	if n, err := l.Attempts(ctx, "h1"); err != nil || n != 1 {
		t.Fatalf("expected 1 attempt, got %d %v", n, err)
	}
}

func TestNilLimiterAllows(t *testing.T) {
	var l *Limiter
	if err := l.AllowRefresh(context.Background(), "h"); err != nil {
		t.Fatalf("nil limiter must allow: %v", err)
	}
	if New(nil, Config{MaxAttempts: 1, Window: time.Second}) != nil {
		t.Fatal("expected nil limiter without redis")
	}
}

func TestRedisUnavailable(t *testing.T) {
	l, mr := newTestLimiter(t, 5, time.Minute)
	mr.Close()

	err := l.AllowRefresh(context.Background(), "h")
	if !errors.Is(err, ErrRedisUnavailable) {
		t.Fatalf("expected ErrRedisUnavailable, got %v", err)
	}
}

package limits

import (
	"context"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
)

func newTestLimiter(t *testing.T) (*RateLimiter, *miniredis.Miniredis, func()) {
	t.Helper()
	server, err := miniredis.Run()
	if err != nil {
		t.Fatalf("start miniredis: %v", err)
	}
	client := redis.NewClient(&redis.Options{Addr: server.Addr()})
	limiter := NewRateLimiter(client)
	cleanup := func() {
		client.Close()
		server.Close()
	}
	return limiter, server, cleanup
}

func TestRateLimiterAllowEnforcesPerMinute(t *testing.T) {
	limiter, _, cleanup := newTestLimiter(t)
	defer cleanup()
	fixed := time.Date(2023, time.October, 4, 9, 0, 10, 0, time.UTC)
	limiter.now = func() time.Time { return fixed }

	ctx := context.Background()
	key := CheckInKey("user-1")
	for i := 0; i < 2; i++ {
		if err := limiter.Allow(ctx, key, 2); err != nil {
			t.Fatalf("request %d should pass: %v", i+1, err)
		}
	}
	if err := limiter.Allow(ctx, key, 2); err != ErrLimitExceeded {
		t.Fatalf("expected limit error, got %v", err)
	}
	if err := limiter.Allow(ctx, CheckInKey("user-2"), 2); err != nil {
		t.Fatalf("other users should be unaffected: %v", err)
	}

	fixed = fixed.Add(time.Minute)
	if err := limiter.Allow(ctx, key, 2); err != nil {
		t.Fatalf("next window should pass: %v", err)
	}
}

func TestRateLimiterSetsExpiry(t *testing.T) {
	limiter, server, cleanup := newTestLimiter(t)
	defer cleanup()

	ctx := context.Background()
	if err := limiter.AllowWindow(ctx, LoginKey("a@example.com"), 15*time.Minute, 5); err != nil {
		t.Fatalf("allow: %v", err)
	}
	keys := server.Keys()
	if len(keys) != 1 {
		t.Fatalf("expected one key, got %v", keys)
	}
	if ttl := server.TTL(keys[0]); ttl != 15*time.Minute {
		t.Fatalf("unexpected ttl %s", ttl)
	}

	limiter.Reset(ctx, LoginKey("a@example.com"), 15*time.Minute)
	if len(server.Keys()) != 0 {
		t.Fatalf("expected reset to delete the window")
	}
}

func TestRateLimiterDisabled(t *testing.T) {
	var nilLimiter *RateLimiter
	if err := nilLimiter.Allow(context.Background(), "k", 1); err != nil {
		t.Fatalf("nil limiter should allow: %v", err)
	}
	limiter := NewRateLimiter(nil)
	if err := limiter.Allow(context.Background(), "k", 1); err != nil {
		t.Fatalf("nil client should allow: %v", err)
	}
}

package limits

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

var ErrLimitExceeded = errors.New("rate limit exceeded")

// RateLimiter enforces fixed-window counters in Redis. A nil limiter or client allows everything.
type RateLimiter struct {
	client *redis.Client
	now    func() time.Time
}

func NewRateLimiter(client *redis.Client) *RateLimiter {
	return &RateLimiter{client: client, now: time.Now}
}

// Allow counts one event for key in the current minute and fails once perMinute is exceeded.
// A non-positive perMinute disables the check.
func (l *RateLimiter) Allow(ctx context.Context, key string, perMinute int) error {
	return l.AllowWindow(ctx, key, time.Minute, perMinute)
}

// AllowWindow is Allow with a caller-chosen window length.
func (l *RateLimiter) AllowWindow(ctx context.Context, key string, window time.Duration, limit int) error {
	if l == nil || l.client == nil || limit <= 0 {
		return nil
	}
	if window < time.Second {
		window = time.Second
	}
	cnt, err := l.client.Incr(ctx, l.bucketKey(key, window)).Result()
	if err != nil {
		return fmt.Errorf("rate limit counter: %w", err)
	}
	if cnt == 1 {
		l.client.Expire(ctx, l.bucketKey(key, window), window)
	}
	if int(cnt) > limit {
		return ErrLimitExceeded
	}
	return nil
}

// Reset clears the current window for key, e.g. after a successful login.
func (l *RateLimiter) Reset(ctx context.Context, key string, window time.Duration) {
	if l == nil || l.client == nil {
		return
	}
	if window < time.Second {
		window = time.Second
	}
	l.client.Del(ctx, l.bucketKey(key, window))
}

func (l *RateLimiter) bucketKey(key string, window time.Duration) string {
	bucket := l.now().UTC().Unix() / int64(window.Seconds())
	return fmt.Sprintf("limit:%s:%d", key, bucket)
}

// CheckInKey scopes the check-in limiter to one user.
func CheckInKey(userID string) string {
	return "checkin:" + userID
}

// LoginKey scopes the failed-login limiter to one email address.
func LoginKey(email string) string {
	return "login:" + email
}

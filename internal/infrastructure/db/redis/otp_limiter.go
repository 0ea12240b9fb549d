package redis

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const (
	defaultLimitWindow = 15 * time.Minute
	defaultLimitMax    = 5
)

// OTPLimiter throttles challenge sends per (purpose, email) with a
// TTL-keyed counter. Key format: otp_sends:<purpose>:<email>
type OTPLimiter struct {
	client *redis.Client
	window time.Duration
	max    int64
}

// NewOTPLimiter creates an OTPLimiter. Non-positive window or max fall back
// to 5 sends per 15 minutes.
func NewOTPLimiter(client *redis.Client, window time.Duration, max int64) *OTPLimiter {
	if window <= 0 {
		window = defaultLimitWindow
	}
	if max <= 0 {
		max = defaultLimitMax
	}
	return &OTPLimiter{client: client, window: window, max: max}
}

// Allow increments the send counter and reports whether this send is within
// the window's budget. The first send in a window sets the key's expiry.
func (l *OTPLimiter) Allow(ctx context.Context, purpose, email string) (bool, error) {
	key := l.key(purpose, email)

	n, err := l.client.Incr(ctx, key).Result()
	if err != nil {
		return false, fmt.Errorf("otp limiter incr: %w", err)
	}
	if n == 1 {
		if err := l.client.Expire(ctx, key, l.window).Err(); err != nil {
			return false, fmt.Errorf("otp limiter expire: %w", err)
		}
	}
	return n <= l.max, nil
}

func (l *OTPLimiter) key(purpose, email string) string {
	return fmt.Sprintf("otp_sends:%s:%s", purpose, email)
}

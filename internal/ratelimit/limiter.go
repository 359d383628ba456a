// Package ratelimit throttles login attempts per email and client IP.
package ratelimit

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// Limiter counts failed login attempts in Redis and locks out an
// email+IP pair that exceeds the limit inside the window.
type Limiter struct {
	client          *redis.Client
	window          time.Duration
	maxAttempts     int
	lockoutDuration time.Duration
}

// NewLimiter creates a login rate limiter
func NewLimiter(client *redis.Client, window time.Duration, maxAttempts int, lockoutDuration time.Duration) *Limiter {
	return &Limiter{
		client:          client,
		window:          window,
		maxAttempts:     maxAttempts,
		lockoutDuration: lockoutDuration,
	}
}

func (l *Limiter) attemptKey(email, ipAddress string) string {
	return fmt.Sprintf("ratelimit:login:%s:%s", ipAddress, email)
}

func (l *Limiter) lockoutKey(email, ipAddress string) string {
	return fmt.Sprintf("ratelimit:lockout:%s:%s", ipAddress, email)
}

// CheckLoginAttempt reports whether another attempt is allowed.
// Returns allowed, remaining attempts and, when locked out, the time left.
func (l *Limiter) CheckLoginAttempt(ctx context.Context, email, ipAddress string) (bool, int, time.Duration, error) {
	lockoutKey := l.lockoutKey(email, ipAddress)

	ttl, err := l.client.TTL(ctx, lockoutKey).Result()
	if err != nil && err != redis.Nil {
		return false, 0, 0, fmt.Errorf("failed to check lockout status: %w", err)
	}
	if ttl > 0 {
		return false, 0, ttl, nil
	}

	count, err := l.client.Get(ctx, l.attemptKey(email, ipAddress)).Int()
	if err != nil && err != redis.Nil {
		return false, 0, 0, fmt.Errorf("failed to get attempt count: %w", err)
	}

	remaining := l.maxAttempts - count
	if remaining <= 0 {
		// Limit exceeded, start the lockout and reset the counter
		if err := l.client.Set(ctx, lockoutKey, "1", l.lockoutDuration).Err(); err != nil {
			return false, 0, 0, fmt.Errorf("failed to set lockout: %w", err)
		}
		if err := l.client.Del(ctx, l.attemptKey(email, ipAddress)).Err(); err != nil {
			return false, 0, l.lockoutDuration, fmt.Errorf("failed to clear attempt counter: %w", err)
		}
		return false, 0, l.lockoutDuration, nil
	}

	return true, remaining, 0, nil
}

// RecordFailedAttempt increments the attempt counter
func (l *Limiter) RecordFailedAttempt(ctx context.Context, email, ipAddress string) error {
	key := l.attemptKey(email, ipAddress)

	count, err := l.client.Incr(ctx, key).Result()
	if err != nil {
		return fmt.Errorf("failed to increment attempt counter: %w", err)
	}
	if count == 1 {
		if err := l.client.Expire(ctx, key, l.window).Err(); err != nil {
			return fmt.Errorf("failed to set expiry: %w", err)
		}
	}

	return nil
}

// RecordSuccessfulAttempt clears the counter after a successful login
func (l *Limiter) RecordSuccessfulAttempt(ctx context.Context, email, ipAddress string) error {
	if err := l.client.Del(ctx, l.attemptKey(email, ipAddress)).Err(); err != nil {
		return fmt.Errorf("failed to clear attempt counter: %w", err)
	}
	return nil
}

// ClearLockout lifts a lockout (operator tooling)
func (l *Limiter) ClearLockout(ctx context.Context, email, ipAddress string) error {
	if err := l.client.Del(ctx, l.lockoutKey(email, ipAddress), l.attemptKey(email, ipAddress)).Err(); err != nil {
		return fmt.Errorf("failed to clear lockout: %w", err)
	}
	return nil
}

package service

import (
	"context"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

const loginAttemptKeyPrefix = "auth:login_attempts:"

// LoginLimiter throttles failed login attempts per email using Redis.
// When Redis is unreachable it fails open so an outage of the cache never
// locks users out.
type LoginLimiter struct {
	client      *redis.Client
	maxAttempts int
	cooldown    time.Duration
	logger      *zap.Logger
}

// NewLoginLimiter builds a limiter. A nil client disables throttling.
func NewLoginLimiter(client *redis.Client, maxAttempts int, cooldown time.Duration, logger *zap.Logger) *LoginLimiter {
	return &LoginLimiter{client: client, maxAttempts: maxAttempts, cooldown: cooldown, logger: logger}
}

// Allow reports whether another login attempt is permitted for the email.
func (l *LoginLimiter) Allow(ctx context.Context, email string) bool {
	if l == nil || l.client == nil || l.maxAttempts <= 0 {
		return true
	}
	count, err := l.client.Get(ctx, l.key(email)).Int()
	if err != nil && err != redis.Nil {
		l.logger.Warn("login limiter unavailable", zap.Error(err))
		return true
	}
	return count < l.maxAttempts
}

// RecordFailure counts a failed attempt, starting the cooldown window on
// the first one.
func (l *LoginLimiter) RecordFailure(ctx context.Context, email string) {
	if l == nil || l.client == nil || l.maxAttempts <= 0 {
		return
	}
	key := l.key(email)
	count, err := l.client.Incr(ctx, key).Result()
	if err != nil {
		l.logger.Warn("login limiter unavailable", zap.Error(err))
		return
	}
	if count == 1 {
		l.client.Expire(ctx, key, l.cooldown)
	}
}

// Reset clears the failure counter after a successful login.
func (l *LoginLimiter) Reset(ctx context.Context, email string) {
	if l == nil || l.client == nil {
		return
	}
	l.client.Del(ctx, l.key(email))
}

func (l *LoginLimiter) key(email string) string {
	return loginAttemptKeyPrefix + strings.ToLower(email)
}

package redis

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
)

const (
	defaultMaxFailures = 5
	defaultLockout     = 15 * time.Minute
)

// LoginLimiter throttles repeated failed logins per key using a Redis hash.
type LoginLimiter struct {
	client      *redis.Client
	maxFailures int
	window      time.Duration
	now         func() time.Time
}

func NewLoginLimiter(client *redis.Client, maxFailures int, window time.Duration) *LoginLimiter {
	if maxFailures <= 0 {
		maxFailures = defaultMaxFailures
	}
	if window <= 0 {
		window = defaultLockout
	}
	return &LoginLimiter{client: client, maxFailures: maxFailures, window: window, now: time.Now}
}

func (l *LoginLimiter) Locked(ctx context.Context, key string) (bool, error) {
	raw, err := l.client.HGet(ctx, lockoutKey(key), "locked_until").Result()
	if errors.Is(err, redis.Nil) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("lockout get: %w", err)
	}
	until, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return false, fmt.Errorf("lockout parse locked_until %q: %w", raw, err)
	}
	return l.now().Unix() < until, nil
}

// RecordFailure bumps the failure counter and sets locked_until once the
// threshold is reached.
func (l *LoginLimiter) RecordFailure(ctx context.Context, key string) error {
	redisKey := lockoutKey(key)

	count, err := l.client.HIncrBy(ctx, redisKey, "failed_count", 1).Result()
	if err != nil {
		return fmt.Errorf("lockout incr: %w", err)
	}

	if int(count) >= l.maxFailures {
		until := l.now().Add(l.window).Unix()
		_, err = l.client.TxPipelined(ctx, func(p redis.Pipeliner) error {
			p.HSet(ctx, redisKey, "locked_until", until, "failed_count", 0)
			p.Expire(ctx, redisKey, l.window)
			return nil
		})
		if err != nil {
			return fmt.Errorf("lockout set: %w", err)
		}
		return nil
	}

	return l.client.Expire(ctx, redisKey, l.window).Err()
}

func (l *LoginLimiter) Reset(ctx context.Context, key string) error {
	return l.client.Del(ctx, lockoutKey(key)).Err()
}

func lockoutKey(key string) string {
	return "auth:lockout:" + key
}

package redis

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/workdesk/request-tracker/internal/core/domain"
)

const (
	defaultIdempotencyTTL = 24 * time.Hour
	pendingTTL            = 30 * time.Second
	pendingMarker         = "pending"
)

// IdempotencyStore maps Idempotency-Key header values to the task they created.
// Key format: idem:task:<key>. The value is "pending" while a create holds the
// key and the task id once it finished.
type IdempotencyStore struct {
	client     *redis.Client
	ttl        time.Duration
	pendingTTL time.Duration
}

func NewIdempotencyStore(client *redis.Client, ttl time.Duration) *IdempotencyStore {
	if ttl <= 0 {
		ttl = defaultIdempotencyTTL
	}
	return &IdempotencyStore{client: client, ttl: ttl, pendingTTL: pendingTTL}
}

// Reserve claims key with a pending marker. The pending TTL bounds how long a
// crashed request can hold the key.
func (s *IdempotencyStore) Reserve(ctx context.Context, key string) (int64, bool, error) {
	redisKey := idempotencyKey(key)

	// One retry covers a claim that expired between SETNX and GET.
	for attempt := 0; attempt < 2; attempt++ {
		ok, err := s.client.SetNX(ctx, redisKey, pendingMarker, s.pendingTTL).Result()
		if err != nil {
			return 0, false, fmt.Errorf("idempotency reserve: %w", err)
		}
		if ok {
			return 0, false, nil
		}

		raw, err := s.client.Get(ctx, redisKey).Result()
		if errors.Is(err, redis.Nil) {
			continue
		}
		if err != nil {
			return 0, false, fmt.Errorf("idempotency lookup: %w", err)
		}
		if raw == pendingMarker {
			return 0, false, domain.ErrIdempotencyInProgress
		}
		id, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			return 0, false, fmt.Errorf("idempotency value %q: %w", raw, err)
		}
		return id, true, nil
	}
	return 0, false, domain.ErrIdempotencyInProgress
}

// Complete binds key to orderID for the full TTL.
func (s *IdempotencyStore) Complete(ctx context.Context, key string, orderID int64) error {
	if err := s.client.Set(ctx, idempotencyKey(key), orderID, s.ttl).Err(); err != nil {
		return fmt.Errorf("idempotency complete: %w", err)
	}
	return nil
}

// Release drops a pending claim so the client can retry.
func (s *IdempotencyStore) Release(ctx context.Context, key string) error {
	if err := s.client.Del(ctx, idempotencyKey(key)).Err(); err != nil {
		return fmt.Errorf("idempotency release: %w", err)
	}
	return nil
}

func idempotencyKey(key string) string {
	return "idem:task:" + key
}

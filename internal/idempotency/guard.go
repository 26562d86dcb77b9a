// Package idempotency guards event ingestion against duplicate event ids.
package idempotency

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const (
	keyPrefix = "idempotency:event:"
	marker    = "processing"
	// TTL bounds how long a processed event id is remembered.
	TTL = 24 * time.Hour
)

// Store is the subset of a redis client the guard needs.
type Store interface {
	SetNX(ctx context.Context, key string, value interface{}, expiration time.Duration) *redis.BoolCmd
	Del(ctx context.Context, keys ...string) *redis.IntCmd
}

type Guard struct {
	store Store
	ttl   time.Duration
}

func NewGuard(store Store) *Guard {
	return &Guard{store: store, ttl: TTL}
}

// Claim atomically reserves eventID. It returns true when the caller is the first
// to see the id and false for a duplicate. Store failures are returned as errors;
// callers must not proceed unguarded.
func (g *Guard) Claim(ctx context.Context, eventID string) (bool, error) {
	if eventID == "" {
		return false, fmt.Errorf("event id is required")
	}
	ok, err := g.store.SetNX(ctx, Key(eventID), marker, g.ttl).Result()
	if err != nil {
		return false, fmt.Errorf("failed to claim event %s: %w", eventID, err)
	}
	return ok, nil
}

// Release drops the marker so a publish that failed after Claim can be retried
// by the producer with the same event id.
func (g *Guard) Release(ctx context.Context, eventID string) error {
	if err := g.store.Del(ctx, Key(eventID)).Err(); err != nil {
		return fmt.Errorf("failed to release event %s: %w", eventID, err)
	}
	return nil
}

// Key returns the redis key holding the marker for eventID.
func Key(eventID string) string {
	return keyPrefix + eventID
}

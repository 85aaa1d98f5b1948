// Package idempotency deduplicates Pub/Sub redeliveries per consumer.
package idempotency

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Store is the slice of the Redis client the guard needs.
type Store interface {
	SetNX(ctx context.Context, key string, value any, ttl time.Duration) (bool, error)
	Del(ctx context.Context, keys ...string) error
	IdempotencyKey(scope, id string) string
}

// Guard claims event IDs for one named consumer. Claims expire after ttl,
// so the window only needs to outlast the subscription's redelivery horizon.
type Guard struct {
	store Store
	scope string
	ttl   time.Duration
}

func NewGuard(store Store, consumer string, ttl time.Duration) (*Guard, error) {
	consumer = strings.TrimSpace(consumer)
	switch {
	case store == nil:
		return nil, errors.New("idempotency store is required")
	case consumer == "":
		return nil, errors.New("consumer name is required")
	case ttl < 0:
		return nil, errors.New("ttl must be non-negative")
	}
	return &Guard{store: store, scope: "evt:" + consumer, ttl: ttl}, nil
}

// Claim reports whether this call took ownership of eventID. A false result
// with a nil error means another delivery already handled it.
func (g *Guard) Claim(ctx context.Context, eventID uuid.UUID) (bool, error) {
	if eventID == uuid.Nil {
		return false, errors.New("event id is required")
	}
	return g.store.SetNX(ctx, g.key(eventID), "1", g.ttl)
}

// Release gives a claim back after a failed handler so the redelivery runs.
func (g *Guard) Release(ctx context.Context, eventID uuid.UUID) error {
	return g.store.Del(ctx, g.key(eventID))
}

func (g *Guard) key(eventID uuid.UUID) string {
	return g.store.IdempotencyKey(g.scope, eventID.String())
}

package idempotency

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type memStore struct {
	keys    map[string]time.Duration
	failing error
}

func (m *memStore) SetNX(_ context.Context, key string, _ any, ttl time.Duration) (bool, error) {
	if m.failing != nil {
		return false, m.failing
	}
	if _, taken := m.keys[key]; taken {
		return false, nil
	}
	m.keys[key] = ttl
	return true, nil
}

func (m *memStore) Del(_ context.Context, keys ...string) error {
	for _, key := range keys {
		delete(m.keys, key)
	}
	return nil
}

func (m *memStore) IdempotencyKey(scope, id string) string {
	return "bo:idempotency:" + scope + ":" + id
}

func TestGuardClaimsOncePerConsumer(t *testing.T) {
	store := &memStore{keys: map[string]time.Duration{}}
	notify, err := NewGuard(store, "notifications", time.Hour)
	require.NoError(t, err)
	audit, err := NewGuard(store, "audit", time.Hour)
	require.NoError(t, err)

	ctx := context.Background()
	eventID := uuid.New()

	first, err := notify.Claim(ctx, eventID)
	require.NoError(t, err)
	assert.True(t, first)
	assert.Equal(t, time.Hour, store.keys["bo:idempotency:evt:notifications:"+eventID.String()])

	again, err := notify.Claim(ctx, eventID)
	require.NoError(t, err)
	assert.False(t, again, "redelivery must not be claimed twice")

	other, err := audit.Claim(ctx, eventID)
	require.NoError(t, err)
	assert.True(t, other, "consumers are independent")
}

func TestGuardReleaseReopensClaim(t *testing.T) {
	store := &memStore{keys: map[string]time.Duration{}}
	guard, err := NewGuard(store, "notifications", time.Minute)
	require.NoError(t, err)
	ctx := context.Background()
	eventID := uuid.New()

	_, err = guard.Claim(ctx, eventID)
	require.NoError(t, err)
	require.NoError(t, guard.Release(ctx, eventID))

	claimed, err := guard.Claim(ctx, eventID)
	require.NoError(t, err)
	assert.True(t, claimed)
}

func TestGuardValidation(t *testing.T) {
	store := &memStore{keys: map[string]time.Duration{}}
	_, err := NewGuard(nil, "c", time.Minute)
	assert.Error(t, err)
	_, err = NewGuard(store, "  ", time.Minute)
	assert.Error(t, err)
	_, err = NewGuard(store, "c", -time.Second)
	assert.Error(t, err)

	guard, err := NewGuard(store, "c", time.Minute)
	require.NoError(t, err)
	_, err = guard.Claim(context.Background(), uuid.Nil)
	assert.Error(t, err)

	store.failing = errors.New("redis down")
	_, err = guard.Claim(context.Background(), uuid.New())
	assert.ErrorContains(t, err, "redis down")
}

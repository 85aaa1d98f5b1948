package session

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	redislib "github.com/redis/go-redis/v9"

	"github.com/angelmondragon/backoffice-api/pkg/config"
)

type mockStore struct {
	mu   sync.Mutex
	data map[string]string
	sets map[string][]string
}

func newMockStore() *mockStore {
	return &mockStore{data: make(map[string]string), sets: make(map[string][]string)}
}

func (m *mockStore) Set(_ context.Context, key string, value any, _ time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.data[key] = fmt.Sprint(value)
	return nil
}

func (m *mockStore) Get(_ context.Context, key string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	val, ok := m.data[key]
	if !ok {
		return "", redislib.Nil
	}
	return val, nil
}

func (m *mockStore) Del(_ context.Context, keys ...string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, key := range keys {
		delete(m.data, key)
		delete(m.sets, key)
	}
	return nil
}

func (m *mockStore) AddToSet(_ context.Context, key string, _ time.Duration, members ...string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sets[key] = append(m.sets[key], members...)
	return nil
}

func (m *mockStore) SetMembers(_ context.Context, key string) ([]string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string(nil), m.sets[key]...), nil
}

func (m *mockStore) AccessSessionKey(accessID string) string { return "sess:" + accessID }
func (m *mockStore) UserSessionsKey(userID string) string    { return "user:" + userID }

func newTestManager() (*Manager, *mockStore) {
	store := newMockStore()
	return &Manager{store: store, ttl: time.Hour}, store
}

func TestManagerGenerateAndRotate(t *testing.T) {
	manager, store := newTestManager()
	ctx := context.Background()
	userID := uuid.New()

	token, err := manager.Generate(ctx, userID, "access-123")
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	stored := store.data["sess:access-123"]
	if stored == "" || strings.Contains(stored, token) || !strings.HasPrefix(stored, userID.String()+":") {
		t.Fatalf("expected a user-bound digest, got %q", stored)
	}

	if _, _, err := manager.Rotate(ctx, uuid.New(), "access-123", token); !errors.Is(err, ErrInvalidRefreshToken) {
		t.Fatalf("another user's refresh must be rejected, got %v", err)
	}

	if _, _, err := manager.Rotate(ctx, userID, "access-123", "wrong"); !errors.Is(err, ErrInvalidRefreshToken) {
		t.Fatalf("expected invalid refresh token error, got %v", err)
	}

	newAccessID, newToken, err := manager.Rotate(ctx, userID, "access-123", token)
	if err != nil {
		t.Fatalf("rotate: %v", err)
	}
	if _, exists := store.data["sess:access-123"]; exists {
		t.Fatalf("old access key left behind")
	}
	if newToken == token {
		t.Fatalf("rotation must mint a new refresh token")
	}
	if ok, _ := manager.HasSession(ctx, newAccessID); !ok {
		t.Fatalf("new session not stored")
	}

	if _, _, err := manager.Rotate(ctx, userID, "access-123", token); !errors.Is(err, ErrInvalidRefreshToken) {
		t.Fatalf("replayed refresh token should be rejected, got %v", err)
	}
}

func TestManagerHasSessionAndRevoke(t *testing.T) {
	manager, _ := newTestManager()
	ctx := context.Background()

	if _, err := manager.Generate(ctx, uuid.New(), "a1"); err != nil {
		t.Fatalf("generate: %v", err)
	}
	ok, err := manager.HasSession(ctx, "a1")
	if err != nil || !ok {
		t.Fatalf("expected live session, ok=%v err=%v", ok, err)
	}
	if err := manager.Revoke(ctx, "a1"); err != nil {
		t.Fatalf("revoke: %v", err)
	}
	ok, err = manager.HasSession(ctx, "a1")
	if err != nil || ok {
		t.Fatalf("expected revoked session, ok=%v err=%v", ok, err)
	}
	if _, err := manager.HasSession(ctx, " "); err == nil {
		t.Fatalf("expected error for blank access id")
	}
}

func TestManagerRevokeAll(t *testing.T) {
	manager, store := newTestManager()
	ctx := context.Background()
	userID := uuid.New()
	other := uuid.New()

	for _, id := range []string{"a1", "a2"} {
		if _, err := manager.Generate(ctx, userID, id); err != nil {
			t.Fatalf("generate %s: %v", id, err)
		}
	}
	if _, err := manager.Generate(ctx, other, "b1"); err != nil {
		t.Fatalf("generate other: %v", err)
	}

	if err := manager.RevokeAll(ctx, userID); err != nil {
		t.Fatalf("revoke all: %v", err)
	}
	for _, id := range []string{"a1", "a2"} {
		if ok, _ := manager.HasSession(ctx, id); ok {
			t.Fatalf("session %s should be revoked", id)
		}
	}
	if ok, _ := manager.HasSession(ctx, "b1"); !ok {
		t.Fatalf("other user's session must survive")
	}
	if _, exists := store.sets["user:"+userID.String()]; exists {
		t.Fatalf("session index should be removed")
	}
}

func TestNewManagerRejectsShortRefreshTTL(t *testing.T) {
	if _, err := NewManager(nil, config.JWTConfig{ExpirationMinutes: 60}); err == nil {
		t.Fatalf("expected error without a store")
	}
	cfg := config.JWTConfig{ExpirationMinutes: 60, RefreshTokenTTLMinutes: 30}
	if _, err := NewManager(newMockStore(), cfg); err == nil {
		t.Fatalf("refresh ttl shorter than access ttl must be rejected")
	}
}

package notifications

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"testing"
	"time"

	pubsub "cloud.google.com/go/pubsub/v2"
	"github.com/google/uuid"

	"github.com/angelmondragon/backoffice-api/pkg/db/models"
	"github.com/angelmondragon/backoffice-api/pkg/enums"
	"github.com/angelmondragon/backoffice-api/pkg/logger"
	"github.com/angelmondragon/backoffice-api/pkg/outbox"
	"github.com/angelmondragon/backoffice-api/pkg/outbox/idempotency"
	"github.com/angelmondragon/backoffice-api/pkg/outbox/payloads"
)

type noopSource struct{}

func (noopSource) Receive(context.Context, func(context.Context, *pubsub.Message)) error { return nil }

type memStore struct {
	keys map[string]bool
}

func (m *memStore) SetNX(_ context.Context, key string, _ any, _ time.Duration) (bool, error) {
	if m.keys[key] {
		return false, nil
	}
	m.keys[key] = true
	return true, nil
}

func (m *memStore) Del(_ context.Context, keys ...string) error {
	for _, k := range keys {
		delete(m.keys, k)
	}
	return nil
}

func (m *memStore) IdempotencyKey(scope, id string) string { return scope + ":" + id }

type stubAdmins struct {
	users []models.User
}

func (s stubAdmins) ListByRole(context.Context, enums.Role) ([]models.User, error) {
	return s.users, nil
}

type recordingNotifier struct {
	sent []Message
	err  error
}

func (r *recordingNotifier) Deliver(_ context.Context, msg Message) error {
	if r.err != nil {
		return r.err
	}
	r.sent = append(r.sent, msg)
	return nil
}

func newTestConsumer(t *testing.T, notifier Notifier) (*Consumer, *memStore) {
	t.Helper()
	store := &memStore{keys: map[string]bool{}}
	guard, err := idempotency.NewGuard(store, ConsumerName, time.Hour)
	if err != nil {
		t.Fatalf("idempotency guard: %v", err)
	}
	consumer, err := NewConsumer(ConsumerParams{
		Subscription: noopSource{},
		Guard:        guard,
		Admins:       stubAdmins{users: []models.User{{Email: "ops@shop.test"}, {Email: "lead@shop.test"}}},
		Notifier:     notifier,
		ResetURL:     "https://shop.test/reset",
		Logger:       logger.Nop(),
	})
	if err != nil {
		t.Fatalf("new consumer: %v", err)
	}
	return consumer, store
}

func envelopeFor(t *testing.T, eventID string, data any) []byte {
	t.Helper()
	raw, err := json.Marshal(data)
	if err != nil {
		t.Fatalf("marshal data: %v", err)
	}
	out, err := json.Marshal(outbox.PayloadEnvelope{Version: 1, EventID: eventID, OccurredAt: time.Now(), Data: raw})
	if err != nil {
		t.Fatalf("marshal envelope: %v", err)
	}
	return out
}

func attrs(eventType enums.OutboxEventType) map[string]string {
	return map[string]string{"event_type": string(eventType)}
}

func TestStockLowNotifiesEveryAdminOnce(t *testing.T) {
	notifier := &recordingNotifier{}
	consumer, _ := newTestConsumer(t, notifier)
	data := envelopeFor(t, uuid.NewString(), payloads.StockLowEvent{ItemID: uuid.New(), Name: "Mug", Quantity: 3, Threshold: 10})

	if consumer.process(context.Background(), "m1", attrs(enums.EventStockLow), data) != outcomeDone {
		t.Fatal("expected ack")
	}
	if len(notifier.sent) != 2 {
		t.Fatalf("expected 2 deliveries, got %d", len(notifier.sent))
	}
	if notifier.sent[0].Subject != "Low stock: Mug" {
		t.Fatalf("unexpected subject %q", notifier.sent[0].Subject)
	}

	consumer.process(context.Background(), "m1-redelivered", attrs(enums.EventStockLow), data)
	if len(notifier.sent) != 2 {
		t.Fatalf("redelivery must not notify again, got %d", len(notifier.sent))
	}
}

func TestPasswordResetBuildsLink(t *testing.T) {
	notifier := &recordingNotifier{}
	consumer, _ := newTestConsumer(t, notifier)
	data := envelopeFor(t, uuid.NewString(), payloads.PasswordResetRequestedEvent{
		UserID:    uuid.New(),
		Email:     "ada@shop.test",
		FirstName: "Ada",
		Token:     "raw-token",
		ExpiresAt: time.Now().Add(time.Hour),
	})

	if consumer.process(context.Background(), "m2", attrs(enums.EventPasswordResetRequested), data) != outcomeDone {
		t.Fatal("expected ack")
	}
	if len(notifier.sent) != 1 {
		t.Fatalf("expected 1 delivery, got %d", len(notifier.sent))
	}
	msg := notifier.sent[0]
	if msg.Recipient != "ada@shop.test" || !strings.Contains(msg.Body, "https://shop.test/reset?token=raw-token") {
		t.Fatalf("unexpected message %+v", msg)
	}
}

func TestDeliveryFailureReleasesClaim(t *testing.T) {
	notifier := &recordingNotifier{err: errors.New("smtp down")}
	consumer, store := newTestConsumer(t, notifier)
	data := envelopeFor(t, uuid.NewString(), payloads.StockLowEvent{Name: "Mug", Quantity: 1, Threshold: 10})

	if consumer.process(context.Background(), "m3", attrs(enums.EventStockLow), data) != outcomeRetry {
		t.Fatal("expected nack on delivery failure")
	}
	if len(store.keys) != 0 {
		t.Fatalf("claim should be released for retry, keys=%v", store.keys)
	}
}

func TestIgnoredAndMalformedMessagesAreAcked(t *testing.T) {
	consumer, store := newTestConsumer(t, &recordingNotifier{})

	if consumer.process(context.Background(), "m4", attrs(enums.EventOrderCreated), []byte(`{}`)) != outcomeDone {
		t.Fatal("order events should be acked")
	}
	if consumer.process(context.Background(), "m5", attrs(enums.EventStockLow), []byte(`not json`)) != outcomeDone {
		t.Fatal("malformed envelopes should be acked")
	}
	if len(store.keys) != 0 {
		t.Fatalf("nothing should be claimed, keys=%v", store.keys)
	}
}

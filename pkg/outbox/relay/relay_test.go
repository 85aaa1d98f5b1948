package relay_test

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/angelmondragon/backoffice-api/pkg/config"
	"github.com/angelmondragon/backoffice-api/pkg/db"
	"github.com/angelmondragon/backoffice-api/pkg/db/dbtest"
	"github.com/angelmondragon/backoffice-api/pkg/db/models"
	"github.com/angelmondragon/backoffice-api/pkg/enums"
	"github.com/angelmondragon/backoffice-api/pkg/logger"
	"github.com/angelmondragon/backoffice-api/pkg/outbox"
	"github.com/angelmondragon/backoffice-api/pkg/outbox/payloads"
	"github.com/angelmondragon/backoffice-api/pkg/outbox/registry"
	"github.com/angelmondragon/backoffice-api/pkg/outbox/relay"
)

type sent struct {
	topic string
	data  []byte
	attrs map[string]string
}

type fakeSink struct {
	mu   sync.Mutex
	msgs []sent
	errs []error
}

func (s *fakeSink) Send(_ context.Context, topic string, data []byte, attrs map[string]string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.msgs = append(s.msgs, sent{topic: topic, data: data, attrs: attrs})
	if len(s.errs) == 0 {
		return nil
	}
	err := s.errs[0]
	s.errs = s.errs[1:]
	return err
}

type fixture struct {
	client *db.Client
	repo   *outbox.Repository
	emit   *outbox.Service
	sink   *fakeSink
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	client := dbtest.Open(t)
	repo := outbox.NewRepository(client.DB())
	return &fixture{client: client, repo: repo, emit: outbox.NewService(repo, nil), sink: &fakeSink{}}
}

func (f *fixture) relay(t *testing.T, maxAttempts int) *relay.Relay {
	t.Helper()
	reg, err := registry.NewEventRegistry(config.PubSubConfig{OrdersTopic: "orders", NotificationTopic: "notifications"})
	require.NoError(t, err)
	r, err := relay.New(relay.Params{
		Tx:          f.client,
		Store:       f.repo,
		Resolver:    reg,
		Sink:        f.sink,
		Logger:      logger.Nop(),
		MaxAttempts: maxAttempts,
	})
	require.NoError(t, err)
	return r
}

func (f *fixture) queue(t *testing.T, events ...outbox.DomainEvent) {
	t.Helper()
	ctx := context.Background()
	require.NoError(t, f.client.WithTx(ctx, func(tx *gorm.DB) error {
		for _, event := range events {
			if err := f.emit.Emit(ctx, tx, event); err != nil {
				return err
			}
		}
		return nil
	}))
}

func orderCreated() outbox.DomainEvent {
	id := uuid.New()
	return outbox.DomainEvent{
		EventType:     enums.EventOrderCreated,
		AggregateType: enums.AggregateOrder,
		AggregateID:   id,
		Data:          payloads.OrderCreatedEvent{OrderID: id, TotalAmount: 12.5, Status: enums.PaymentStatusPaid},
	}
}

func TestDrainPublishesToRegisteredTopics(t *testing.T) {
	f := newFixture(t)
	itemID := uuid.New()
	f.queue(t, orderCreated(), outbox.DomainEvent{
		EventType:     enums.EventStockLow,
		AggregateType: enums.AggregateInventoryItem,
		AggregateID:   itemID,
		Data:          payloads.StockLowEvent{ItemID: itemID, Name: "Mug", Quantity: 2, Threshold: 10},
	})

	settled, err := f.relay(t, 5).Drain(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, settled)

	require.Len(t, f.sink.msgs, 2)
	assert.Equal(t, "orders", f.sink.msgs[0].topic)
	assert.Equal(t, "notifications", f.sink.msgs[1].topic)
	assert.Equal(t, "stock_low", f.sink.msgs[1].attrs["event_type"])
	assert.Equal(t, itemID.String(), f.sink.msgs[1].attrs["aggregate_id"])

	var envelope outbox.PayloadEnvelope
	require.NoError(t, json.Unmarshal(f.sink.msgs[1].data, &envelope))
	assert.Equal(t, envelope.EventID, f.sink.msgs[1].attrs["event_id"])

	pending, err := f.repo.FetchUnpublished(10)
	require.NoError(t, err)
	assert.Empty(t, pending)
}

func TestDrainRetriesTransientFailures(t *testing.T) {
	f := newFixture(t)
	f.queue(t, orderCreated(), orderCreated())
	f.sink.errs = []error{errors.New("deadline exceeded")}

	settled, err := f.relay(t, 5).Drain(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, settled)

	pending, err := f.repo.FetchUnpublished(10)
	require.NoError(t, err)
	require.Len(t, pending, 1)
	assert.Equal(t, 1, pending[0].AttemptCount)
	require.NotNil(t, pending[0].LastError)
	assert.Equal(t, "deadline exceeded", *pending[0].LastError)
}

func TestDrainDeadLettersAtAttemptCeiling(t *testing.T) {
	f := newFixture(t)
	f.queue(t, orderCreated())
	f.sink.errs = []error{errors.New("unavailable")}

	_, err := f.relay(t, 1).Drain(context.Background())
	require.NoError(t, err)

	rows, err := f.repo.FetchUnpublished(10)
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, 1, rows[0].AttemptCount)

	entry, err := f.repo.DeadLetter(context.Background(), rows[0].ID)
	require.NoError(t, err)
	require.NotNil(t, entry)
	assert.Equal(t, enums.OutboxDLQReasonMaxAttempts, entry.ErrorReason)

	settled, err := f.relay(t, 1).Drain(context.Background())
	require.NoError(t, err)
	assert.Zero(t, settled, "dead-lettered rows are never fetched again")
}

func TestDrainDeadLettersUnresolvableRows(t *testing.T) {
	f := newFixture(t)
	row := models.OutboxEvent{
		ID:            uuid.New(),
		EventType:     "inventory_renamed",
		AggregateType: enums.AggregateInventoryItem,
		AggregateID:   uuid.New(),
		Payload:       []byte(`{"version":1,"data":{}}`),
	}
	require.NoError(t, f.client.WithTx(context.Background(), func(tx *gorm.DB) error {
		return f.repo.Insert(tx, row)
	}))

	_, err := f.relay(t, 5).Drain(context.Background())
	require.NoError(t, err)
	assert.Empty(t, f.sink.msgs)

	entry, err := f.repo.DeadLetter(context.Background(), row.ID)
	require.NoError(t, err)
	require.NotNil(t, entry)
	assert.Equal(t, enums.OutboxDLQReasonNonRetryable, entry.ErrorReason)
}

func TestDrainDeadLettersPermanentSinkErrors(t *testing.T) {
	f := newFixture(t)
	f.queue(t, orderCreated())
	f.sink.errs = []error{registry.NewNonRetryableError(errors.New("topic deleted"))}

	_, err := f.relay(t, 5).Drain(context.Background())
	require.NoError(t, err)

	rows, err := f.repo.FetchUnpublished(10)
	require.NoError(t, err)
	require.Len(t, rows, 1)
	entry, err := f.repo.DeadLetter(context.Background(), rows[0].ID)
	require.NoError(t, err)
	require.NotNil(t, entry)
	assert.Equal(t, enums.OutboxDLQReasonNonRetryable, entry.ErrorReason)
}

func TestRunStopsWithContext(t *testing.T) {
	f := newFixture(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.ErrorIs(t, f.relay(t, 5).Run(ctx), context.Canceled)
}

func TestNewRequiresCollaborators(t *testing.T) {
	_, err := relay.New(relay.Params{Logger: logger.Nop()})
	assert.Error(t, err)
}

package outbox_test

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/angelmondragon/backoffice-api/pkg/db/dbtest"
	"github.com/angelmondragon/backoffice-api/pkg/db/models"
	"github.com/angelmondragon/backoffice-api/pkg/enums"
	"github.com/angelmondragon/backoffice-api/pkg/logger"
	"github.com/angelmondragon/backoffice-api/pkg/outbox"
	"github.com/angelmondragon/backoffice-api/pkg/outbox/payloads"
)

func TestEmitWritesEnvelope(t *testing.T) {
	client := dbtest.Open(t)
	repo := outbox.NewRepository(client.DB())
	svc := outbox.NewService(repo, logger.Nop())
	ctx := context.Background()

	itemID := uuid.New()
	err := client.WithTx(ctx, func(tx *gorm.DB) error {
		return svc.Emit(ctx, tx, outbox.DomainEvent{
			EventType:     enums.EventStockLow,
			AggregateType: enums.AggregateInventoryItem,
			AggregateID:   itemID,
			Data:          payloads.StockLowEvent{ItemID: itemID, Name: "Mug", Quantity: 3, Threshold: 10},
		})
	})
	require.NoError(t, err)

	rows, err := repo.FetchUnpublished(10)
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, itemID, rows[0].AggregateID)

	var envelope outbox.PayloadEnvelope
	require.NoError(t, json.Unmarshal(rows[0].Payload, &envelope))
	assert.Equal(t, 1, envelope.Version)
	assert.NotEmpty(t, envelope.EventID)

	var data payloads.StockLowEvent
	require.NoError(t, json.Unmarshal(envelope.Data, &data))
	assert.Equal(t, "Mug", data.Name)
	assert.Equal(t, 3, data.Quantity)
}

func TestEmitRejectsUnknownEventsAndMissingTx(t *testing.T) {
	client := dbtest.Open(t)
	svc := outbox.NewService(outbox.NewRepository(client.DB()), nil)
	ctx := context.Background()

	require.Error(t, svc.Emit(ctx, nil, outbox.DomainEvent{EventType: enums.EventOrderDeleted, AggregateType: enums.AggregateOrder}))

	err := client.WithTx(ctx, func(tx *gorm.DB) error {
		return svc.Emit(ctx, tx, outbox.DomainEvent{EventType: "bogus", AggregateType: enums.AggregateOrder, AggregateID: uuid.New()})
	})
	require.Error(t, err)
}

func TestEmitRollsBackWithCallerTransaction(t *testing.T) {
	client := dbtest.Open(t)
	repo := outbox.NewRepository(client.DB())
	svc := outbox.NewService(repo, nil)
	ctx := context.Background()

	boom := errors.New("boom")
	err := client.WithTx(ctx, func(tx *gorm.DB) error {
		if err := svc.Emit(ctx, tx, outbox.DomainEvent{
			EventType:     enums.EventOrderDeleted,
			AggregateType: enums.AggregateOrder,
			AggregateID:   uuid.New(),
			Data:          payloads.OrderDeletedEvent{},
		}); err != nil {
			return err
		}
		return boom
	})
	require.ErrorIs(t, err, boom)

	rows, err := repo.FetchUnpublished(10)
	require.NoError(t, err)
	assert.Empty(t, rows)
}

func TestPublishLifecycle(t *testing.T) {
	client := dbtest.Open(t)
	repo := outbox.NewRepository(client.DB())
	ctx := context.Background()

	var ids []uuid.UUID
	require.NoError(t, client.WithTx(ctx, func(tx *gorm.DB) error {
		for range 3 {
			row := models.OutboxEvent{
				ID:            uuid.New(),
				EventType:     enums.EventOrderDeleted,
				AggregateType: enums.AggregateOrder,
				AggregateID:   uuid.New(),
				Payload:       []byte(`{"version":1,"data":{}}`),
			}
			ids = append(ids, row.ID)
			if err := repo.Insert(tx, row); err != nil {
				return err
			}
		}
		return nil
	}))

	require.NoError(t, client.WithTx(ctx, func(tx *gorm.DB) error {
		rows, err := repo.FetchUnpublishedForPublish(tx, 10, 3)
		require.NoError(t, err)
		require.Len(t, rows, 3)

		require.NoError(t, repo.MarkPublishedTx(tx, ids[0]))
		require.NoError(t, repo.MarkFailedTx(tx, ids[1], errors.New("timeout")))
		var terminal models.OutboxEvent
		require.NoError(t, tx.First(&terminal, "id = ?", ids[2]).Error)
		return repo.DeadLetterTx(tx, terminal, enums.OutboxDLQReasonNonRetryable, errors.New("bad payload"), 3)
	}))

	require.NoError(t, client.WithTx(ctx, func(tx *gorm.DB) error {
		rows, err := repo.FetchUnpublishedForPublish(tx, 10, 3)
		require.NoError(t, err)
		require.Len(t, rows, 1)
		assert.Equal(t, ids[1], rows[0].ID)
		assert.Equal(t, 1, rows[0].AttemptCount)
		require.NotNil(t, rows[0].LastError)
		assert.Equal(t, "timeout", *rows[0].LastError)
		return nil
	}))

	entry, err := repo.DeadLetter(ctx, ids[2])
	require.NoError(t, err)
	require.NotNil(t, entry)
	assert.Equal(t, enums.OutboxDLQReasonNonRetryable, entry.ErrorReason)
	require.NotNil(t, entry.ErrorMessage)
	assert.Equal(t, "bad payload", *entry.ErrorMessage)

	missing, err := repo.DeadLetter(ctx, uuid.New())
	require.NoError(t, err)
	assert.Nil(t, missing)
}

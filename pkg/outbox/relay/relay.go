// Package relay moves committed outbox rows onto the message bus.
package relay

import (
	"context"
	"errors"
	"fmt"
	"math/rand/v2"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/angelmondragon/backoffice-api/pkg/db/models"
	"github.com/angelmondragon/backoffice-api/pkg/enums"
	"github.com/angelmondragon/backoffice-api/pkg/logger"
	"github.com/angelmondragon/backoffice-api/pkg/metrics"
	"github.com/angelmondragon/backoffice-api/pkg/outbox/registry"
)

const (
	defaultBatchSize   = 50
	defaultMaxAttempts = 10
	defaultPoll        = 500 * time.Millisecond
	defaultSendTimeout = 15 * time.Second
	maxBackoff         = 10 * time.Second
	jitter             = 250 * time.Millisecond
)

// Sink delivers one message and returns once the broker acknowledged it.
type Sink interface {
	Send(ctx context.Context, topic string, data []byte, attrs map[string]string) error
}

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type store interface {
	FetchUnpublishedForPublish(tx *gorm.DB, limit, maxAttempts int) ([]models.OutboxEvent, error)
	MarkPublishedTx(tx *gorm.DB, id uuid.UUID) error
	MarkFailedTx(tx *gorm.DB, id uuid.UUID, err error) error
	DeadLetterTx(tx *gorm.DB, event models.OutboxEvent, reason enums.OutboxDLQErrorReason, cause error, ceiling int) error
}

type resolver interface {
	Resolve(models.OutboxEvent) (*registry.ResolvedEvent, error)
}

type Params struct {
	Tx       txRunner
	Store    store
	Resolver resolver
	Sink     Sink
	Metrics  *metrics.OutboxMetrics
	Logger   *logger.Logger

	BatchSize    int
	MaxAttempts  int
	PollInterval time.Duration
	SendTimeout  time.Duration
}

type Relay struct {
	tx          txRunner
	store       store
	resolver    resolver
	sink        Sink
	metrics     *metrics.OutboxMetrics
	logg        *logger.Logger
	batchSize   int
	maxAttempts int
	poll        time.Duration
	sendTimeout time.Duration
}

func New(p Params) (*Relay, error) {
	switch {
	case p.Tx == nil:
		return nil, errors.New("transaction runner is required")
	case p.Store == nil:
		return nil, errors.New("outbox store is required")
	case p.Resolver == nil:
		return nil, errors.New("event registry is required")
	case p.Sink == nil:
		return nil, errors.New("message sink is required")
	case p.Logger == nil:
		return nil, errors.New("logger is required")
	}
	return &Relay{
		tx:          p.Tx,
		store:       p.Store,
		resolver:    p.Resolver,
		sink:        p.Sink,
		metrics:     p.Metrics,
		logg:        p.Logger,
		batchSize:   orDefault(p.BatchSize, defaultBatchSize),
		maxAttempts: orDefault(p.MaxAttempts, defaultMaxAttempts),
		poll:        orDefault(p.PollInterval, defaultPoll),
		sendTimeout: orDefault(p.SendTimeout, defaultSendTimeout),
	}, nil
}

func orDefault[T int | time.Duration](v, fallback T) T {
	if v <= 0 {
		return fallback
	}
	return v
}

// Run drains batches until ctx ends. A full batch is followed immediately by
// the next one, an empty batch waits one poll interval and a failed batch
// backs off exponentially up to maxBackoff.
func (r *Relay) Run(ctx context.Context) error {
	var wait time.Duration
	failures := 0
	for {
		if err := sleep(ctx, wait); err != nil {
			r.logg.Info(ctx, "outbox relay stopping")
			return err
		}

		handled, err := r.Drain(ctx)
		switch {
		case err != nil:
			failures++
			wait = backoff(r.poll, failures)
			r.logg.Error(r.logg.WithField(ctx, "retry_in", wait.String()), "outbox batch failed", err)
		case handled == 0:
			failures = 0
			wait = r.poll + time.Duration(rand.Int64N(int64(jitter)))
		default:
			failures = 0
			wait = 0
		}
	}
}

// Drain handles one locked batch and reports how many rows it settled.
// Rows are settled individually; only storage failures abort the batch.
func (r *Relay) Drain(ctx context.Context) (int, error) {
	settled := 0
	err := r.tx.WithTx(ctx, func(tx *gorm.DB) error {
		events, err := r.store.FetchUnpublishedForPublish(tx, r.batchSize, r.maxAttempts)
		if err != nil {
			return fmt.Errorf("fetch outbox batch: %w", err)
		}
		for _, event := range events {
			if err := r.settle(ctx, tx, event); err != nil {
				return err
			}
			settled++
		}
		return nil
	})
	return settled, err
}

func (r *Relay) settle(ctx context.Context, tx *gorm.DB, event models.OutboxEvent) error {
	ctx = r.logg.WithFields(ctx, map[string]any{
		"outbox_id":     event.ID.String(),
		"event_type":    event.EventType,
		"aggregate_id":  event.AggregateID.String(),
		"attempt_count": event.AttemptCount,
	})

	resolved, err := r.resolver.Resolve(event)
	if err != nil {
		return r.deadLetter(ctx, tx, event, enums.OutboxDLQReasonNonRetryable, err)
	}
	ctx = r.logg.WithFields(ctx, map[string]any{
		"topic":    resolved.Topic,
		"event_id": resolved.Envelope.EventID,
	})

	sendErr := r.send(ctx, event, resolved)
	var permanent registry.NonRetryableError
	switch {
	case sendErr == nil:
		if err := r.store.MarkPublishedTx(tx, event.ID); err != nil {
			return fmt.Errorf("mark %s published: %w", event.ID, err)
		}
		r.metrics.IncPublished(string(event.EventType))
		r.logg.Info(ctx, "outbox event published")
		return nil
	case errors.As(sendErr, &permanent):
		return r.deadLetter(ctx, tx, event, enums.OutboxDLQReasonNonRetryable, sendErr)
	case event.AttemptCount+1 >= r.maxAttempts:
		return r.deadLetter(ctx, tx, event, enums.OutboxDLQReasonMaxAttempts,
			fmt.Errorf("gave up after %d attempts: %w", event.AttemptCount+1, sendErr))
	}

	r.logg.Warn(r.logg.WithField(ctx, "error", sendErr.Error()), "outbox publish failed, will retry")
	r.metrics.IncFailed(string(event.EventType))
	if err := r.store.MarkFailedTx(tx, event.ID, sendErr); err != nil {
		return fmt.Errorf("mark %s failed: %w", event.ID, err)
	}
	return nil
}

func (r *Relay) send(ctx context.Context, event models.OutboxEvent, resolved *registry.ResolvedEvent) error {
	sendCtx, cancel := context.WithTimeout(ctx, r.sendTimeout)
	defer cancel()
	return r.sink.Send(sendCtx, resolved.Topic, event.Payload, Attributes(event, resolved.Envelope.EventID))
}

func (r *Relay) deadLetter(ctx context.Context, tx *gorm.DB, event models.OutboxEvent, reason enums.OutboxDLQErrorReason, cause error) error {
	ctx = r.logg.WithFields(ctx, map[string]any{"error_reason": reason, "error": cause.Error()})
	r.logg.Warn(ctx, "outbox event dead-lettered")
	if err := r.store.DeadLetterTx(tx, event, reason, cause, r.maxAttempts); err != nil {
		return fmt.Errorf("dead-letter %s: %w", event.ID, err)
	}
	r.metrics.IncDeadLettered(string(event.EventType), string(reason))
	return nil
}

// Attributes are the message attributes consumers filter and dedupe on.
func Attributes(event models.OutboxEvent, eventID string) map[string]string {
	return map[string]string{
		"event_id":       eventID,
		"event_type":     string(event.EventType),
		"aggregate_type": string(event.AggregateType),
		"aggregate_id":   event.AggregateID.String(),
		"created_at":     event.CreatedAt.UTC().Format(time.RFC3339Nano),
	}
}

func backoff(base time.Duration, failures int) time.Duration {
	d := base << min(failures, 8)
	if d <= 0 || d > maxBackoff {
		d = maxBackoff
	}
	return d + time.Duration(rand.Int64N(int64(jitter)))
}

func sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

package notifications

import (
	"context"
	"encoding/json"
	"fmt"

	pubsub "cloud.google.com/go/pubsub/v2"
	"github.com/google/uuid"

	"github.com/angelmondragon/backoffice-api/pkg/db/models"
	"github.com/angelmondragon/backoffice-api/pkg/enums"
	"github.com/angelmondragon/backoffice-api/pkg/logger"
	"github.com/angelmondragon/backoffice-api/pkg/outbox"
	"github.com/angelmondragon/backoffice-api/pkg/outbox/idempotency"
	"github.com/angelmondragon/backoffice-api/pkg/outbox/payloads"
	"github.com/angelmondragon/backoffice-api/pkg/outbox/registry"
)

// ConsumerName scopes idempotency claims for this consumer.
const ConsumerName = "backoffice-notifications"

type messageSource interface {
	Receive(ctx context.Context, f func(context.Context, *pubsub.Message)) error
}

type adminDirectory interface {
	ListByRole(ctx context.Context, role enums.Role) ([]models.User, error)
}

// ConsumerParams wires the notification consumer.
type ConsumerParams struct {
	Subscription messageSource
	Guard        *idempotency.Guard
	Admins       adminDirectory
	Notifier     Notifier
	ResetURL     string
	Logger       *logger.Logger
}

// Consumer turns stock_low and password_reset_requested events into
// delivered messages.
type Consumer struct {
	subscription messageSource
	guard        *idempotency.Guard
	handlers     *registry.Handlers
	admins       adminDirectory
	notifier     Notifier
	resetURL     string
	logg         *logger.Logger
}

func NewConsumer(params ConsumerParams) (*Consumer, error) {
	if params.Subscription == nil {
		return nil, fmt.Errorf("notification subscription required")
	}
	if params.Guard == nil {
		return nil, fmt.Errorf("idempotency guard required")
	}
	if params.Admins == nil {
		return nil, fmt.Errorf("admin directory required")
	}
	if params.Notifier == nil {
		return nil, fmt.Errorf("notifier required")
	}
	if params.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	c := &Consumer{
		subscription: params.Subscription,
		guard:        params.Guard,
		handlers:     registry.NewHandlers(),
		admins:       params.Admins,
		notifier:     params.Notifier,
		resetURL:     params.ResetURL,
		logg:         params.Logger,
	}
	registry.On(c.handlers, enums.EventStockLow, c.notifyStockLow)
	registry.On(c.handlers, enums.EventPasswordResetRequested, c.notifyPasswordReset)
	return c, nil
}

// Run starts the consumer loop until the context is canceled.
func (c *Consumer) Run(ctx context.Context) error {
	return c.subscription.Receive(ctx, func(ctx context.Context, msg *pubsub.Message) {
		if c.process(ctx, msg.ID, msg.Attributes, msg.Data) == outcomeRetry {
			msg.Nack()
			return
		}
		msg.Ack()
	})
}

type outcome int

const (
	outcomeDone outcome = iota
	outcomeRetry
)

// process acks anything it can never handle and nacks only failures a
// redelivery could fix.
func (c *Consumer) process(ctx context.Context, messageID string, attrs map[string]string, data []byte) outcome {
	eventType := enums.OutboxEventType(attrs["event_type"])
	ctx = c.logg.WithFields(ctx, map[string]any{
		"message_id": messageID,
		"event_type": string(eventType),
	})

	if !c.handlers.Handles(eventType) {
		c.logg.Debug(ctx, "skipping event without notification")
		return outcomeDone
	}

	var envelope outbox.PayloadEnvelope
	if err := json.Unmarshal(data, &envelope); err != nil {
		c.logg.Error(ctx, "failed to decode envelope", err)
		return outcomeDone
	}
	eventID, err := uuid.Parse(envelope.EventID)
	if err != nil {
		c.logg.Error(ctx, "invalid event id", err)
		return outcomeDone
	}
	ctx = c.logg.WithField(ctx, "event_id", eventID.String())

	run, err := c.handlers.Bind(eventType, envelope)
	if err != nil {
		c.logg.Error(ctx, "failed to parse payload", err)
		return outcomeDone
	}

	claimed, err := c.guard.Claim(ctx, eventID)
	if err != nil {
		c.logg.Error(ctx, "idempotency check failed", err)
		return outcomeRetry
	}
	if !claimed {
		c.logg.Info(ctx, "event already processed")
		return outcomeDone
	}

	if err := run(ctx); err != nil {
		c.logg.Error(ctx, "notification handling failed", err)
		if relErr := c.guard.Release(ctx, eventID); relErr != nil {
			c.logg.Error(ctx, "idempotency release failed", relErr)
		}
		return outcomeRetry
	}
	return outcomeDone
}

func (c *Consumer) notifyStockLow(ctx context.Context, _ outbox.PayloadEnvelope, event payloads.StockLowEvent) error {
	admins, err := c.admins.ListByRole(ctx, enums.RoleAdmin)
	if err != nil {
		return err
	}
	subject := fmt.Sprintf("Low stock: %s", event.Name)
	body := fmt.Sprintf("%s has %d left, below the threshold of %d.", event.Name, event.Quantity, event.Threshold)
	for _, admin := range admins {
		if err := c.notifier.Deliver(ctx, Message{
			Kind:      string(enums.EventStockLow),
			Recipient: admin.Email,
			Subject:   subject,
			Body:      body,
		}); err != nil {
			return err
		}
	}
	return nil
}

func (c *Consumer) notifyPasswordReset(ctx context.Context, _ outbox.PayloadEnvelope, event payloads.PasswordResetRequestedEvent) error {
	if event.Email == "" || event.Token == "" {
		return fmt.Errorf("reset event missing email or token")
	}
	link := event.Token
	if c.resetURL != "" {
		link = fmt.Sprintf("%s?token=%s", c.resetURL, event.Token)
	}
	return c.notifier.Deliver(ctx, Message{
		Kind:      string(enums.EventPasswordResetRequested),
		Recipient: event.Email,
		Subject:   "Reset your password",
		Body: fmt.Sprintf("Hi %s, use %s to choose a new password. The link expires at %s.",
			event.FirstName, link, event.ExpiresAt.UTC().Format("2006-01-02 15:04 MST")),
	})
}

package registry

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/angelmondragon/backoffice-api/pkg/config"
	"github.com/angelmondragon/backoffice-api/pkg/db/models"
	"github.com/angelmondragon/backoffice-api/pkg/enums"
	"github.com/angelmondragon/backoffice-api/pkg/outbox"
	"github.com/angelmondragon/backoffice-api/pkg/outbox/payloads"
)

// route says where one event type is published and how its data decodes.
type route struct {
	aggregate enums.OutboxAggregateType
	topic     string
	decode    func(json.RawMessage) (any, error)
}

// ResolvedEvent is an outbox row that passed validation and is ready to send.
type ResolvedEvent struct {
	Topic    string
	Envelope outbox.PayloadEnvelope
	Payload  any
}

// EventRegistry routes order events to the orders topic and operator
// notifications to the notification topic.
type EventRegistry struct {
	routes map[enums.OutboxEventType]route
}

func NewEventRegistry(cfg config.PubSubConfig) (*EventRegistry, error) {
	if cfg.OrdersTopic == "" {
		return nil, errors.New("orders topic is required")
	}
	if cfg.NotificationTopic == "" {
		return nil, errors.New("notification topic is required")
	}

	orders := func(decode func(json.RawMessage) (any, error)) route {
		return route{aggregate: enums.AggregateOrder, topic: cfg.OrdersTopic, decode: decode}
	}
	return &EventRegistry{routes: map[enums.OutboxEventType]route{
		enums.EventOrderCreated:       orders(decodeAs[payloads.OrderCreatedEvent]),
		enums.EventOrderUpdated:       orders(decodeAs[payloads.OrderUpdatedEvent]),
		enums.EventOrderStatusChanged: orders(decodeAs[payloads.OrderStatusChangedEvent]),
		enums.EventOrderDeleted:       orders(decodeAs[payloads.OrderDeletedEvent]),
		enums.EventStockLow: {
			aggregate: enums.AggregateInventoryItem,
			topic:     cfg.NotificationTopic,
			decode:    decodeAs[payloads.StockLowEvent],
		},
		enums.EventPasswordResetRequested: {
			aggregate: enums.AggregateUser,
			topic:     cfg.NotificationTopic,
			decode:    decodeAs[payloads.PasswordResetRequestedEvent],
		},
	}}, nil
}

func decodeAs[T any](data json.RawMessage) (any, error) {
	out := new(T)
	if err := json.Unmarshal(data, out); err != nil {
		return nil, err
	}
	return out, nil
}

func (r *EventRegistry) Topic(eventType enums.OutboxEventType) (string, bool) {
	rt, ok := r.routes[eventType]
	return rt.topic, ok
}

// Resolve checks a stored row against its route and decodes the payload.
// Every failure is a NonRetryableError since the row will never change.
func (r *EventRegistry) Resolve(event models.OutboxEvent) (*ResolvedEvent, error) {
	rt, ok := r.routes[event.EventType]
	switch {
	case !ok:
		return nil, permanent("unsupported event type %s", event.EventType)
	case rt.aggregate != event.AggregateType:
		return nil, permanent("%s expects aggregate %s, row has %s", event.EventType, rt.aggregate, event.AggregateType)
	case event.AggregateID == uuid.Nil:
		return nil, permanent("%s row has no aggregate id", event.EventType)
	}

	var env outbox.PayloadEnvelope
	if err := json.Unmarshal(event.Payload, &env); err != nil {
		return nil, permanent("decode envelope: %v", err)
	}
	if data := bytes.TrimSpace(env.Data); len(data) == 0 || bytes.Equal(data, []byte("null")) {
		return nil, permanent("%s envelope has no data", event.EventType)
	}
	payload, err := rt.decode(env.Data)
	if err != nil {
		return nil, permanent("decode %s payload: %v", event.EventType, err)
	}
	return &ResolvedEvent{Topic: rt.topic, Envelope: env, Payload: payload}, nil
}

func permanent(format string, args ...any) error {
	return NewNonRetryableError(fmt.Errorf(format, args...))
}

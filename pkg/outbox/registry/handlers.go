package registry

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/angelmondragon/backoffice-api/pkg/enums"
	"github.com/angelmondragon/backoffice-api/pkg/outbox"
)

type binder func(env outbox.PayloadEnvelope) (func(context.Context) error, error)

// Handlers routes consumed envelopes to typed callbacks by event type.
type Handlers struct {
	routes map[enums.OutboxEventType]binder
}

func NewHandlers() *Handlers {
	return &Handlers{routes: make(map[enums.OutboxEventType]binder)}
}

// On registers fn for eventType; the envelope data is decoded into T.
func On[T any](h *Handlers, eventType enums.OutboxEventType, fn func(ctx context.Context, env outbox.PayloadEnvelope, payload T) error) {
	h.routes[eventType] = func(env outbox.PayloadEnvelope) (func(context.Context) error, error) {
		var payload T
		if err := json.Unmarshal(env.Data, &payload); err != nil {
			return nil, NewNonRetryableError(fmt.Errorf("decode %s payload: %w", eventType, err))
		}
		return func(ctx context.Context) error { return fn(ctx, env, payload) }, nil
	}
}

// Handles reports whether eventType has a registered callback.
func (h *Handlers) Handles(eventType enums.OutboxEventType) bool {
	_, ok := h.routes[eventType]
	return ok
}

// Bind decodes env for eventType and returns the call that runs its handler.
// Decode problems come back as NonRetryableError.
func (h *Handlers) Bind(eventType enums.OutboxEventType, env outbox.PayloadEnvelope) (func(context.Context) error, error) {
	bind, ok := h.routes[eventType]
	if !ok {
		return nil, NewNonRetryableError(fmt.Errorf("no handler for %s", eventType))
	}
	if env.Version < 1 || env.Version > outbox.CurrentVersion {
		return nil, NewNonRetryableError(fmt.Errorf("%s envelope version %d not supported", eventType, env.Version))
	}
	return bind(env)
}

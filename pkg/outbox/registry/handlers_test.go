package registry

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/angelmondragon/backoffice-api/pkg/enums"
	"github.com/angelmondragon/backoffice-api/pkg/outbox"
	"github.com/angelmondragon/backoffice-api/pkg/outbox/payloads"
)

func TestHandlersBindDecodesTypedPayload(t *testing.T) {
	h := NewHandlers()
	var got payloads.StockLowEvent
	On(h, enums.EventStockLow, func(_ context.Context, _ outbox.PayloadEnvelope, p payloads.StockLowEvent) error {
		got = p
		return nil
	})

	if !h.Handles(enums.EventStockLow) || h.Handles(enums.EventOrderCreated) {
		t.Fatal("unexpected Handles result")
	}

	run, err := h.Bind(enums.EventStockLow, outbox.PayloadEnvelope{Version: 1, Data: json.RawMessage(`{"name":"Mug","quantity":2,"threshold":10}`)})
	if err != nil {
		t.Fatalf("bind: %v", err)
	}
	if got.Name != "" {
		t.Fatal("handler must not run before the bound call")
	}
	if err := run(context.Background()); err != nil {
		t.Fatalf("run: %v", err)
	}
	if got.Name != "Mug" || got.Quantity != 2 {
		t.Fatalf("unexpected payload %+v", got)
	}
}

func TestHandlersBindRejectsBadInput(t *testing.T) {
	h := NewHandlers()
	On(h, enums.EventStockLow, func(context.Context, outbox.PayloadEnvelope, payloads.StockLowEvent) error { return nil })

	cases := []struct {
		name      string
		eventType enums.OutboxEventType
		env       outbox.PayloadEnvelope
	}{
		{"unregistered", enums.EventOrderCreated, outbox.PayloadEnvelope{Version: 1, Data: json.RawMessage(`{}`)}},
		{"future version", enums.EventStockLow, outbox.PayloadEnvelope{Version: 2, Data: json.RawMessage(`{}`)}},
		{"bad json", enums.EventStockLow, outbox.PayloadEnvelope{Version: 1, Data: json.RawMessage(`{"quantity":"two"}`)}},
	}
	for _, tc := range cases {
		_, err := h.Bind(tc.eventType, tc.env)
		var permanent NonRetryableError
		if !errors.As(err, &permanent) {
			t.Fatalf("%s: expected NonRetryableError, got %v", tc.name, err)
		}
	}
}

package payloads

import (
	"time"

	"github.com/google/uuid"

	"github.com/angelmondragon/backoffice-api/pkg/enums"
)

// OrderLine mirrors one purchased line in order events.
type OrderLine struct {
	ItemID   uuid.UUID `json:"item_id"`
	Name     string    `json:"name"`
	Price    float64   `json:"price"`
	Quantity int       `json:"quantity"`
}

// OrderCreatedEvent is emitted by checkout once the order and stock decrements commit.
type OrderCreatedEvent struct {
	OrderID       uuid.UUID           `json:"order_id"`
	UserID        uuid.UUID           `json:"user_id"`
	TotalAmount   float64             `json:"total_amount"`
	Status        enums.PaymentStatus `json:"status"`
	PaymentMethod enums.PaymentMethod `json:"payment_method"`
	ChargeID      string              `json:"charge_id,omitempty"`
	Lines         []OrderLine         `json:"lines"`
}

// OrderUpdatedEvent lists the fields an admin changed.
type OrderUpdatedEvent struct {
	OrderID uuid.UUID `json:"order_id"`
	Fields  []string  `json:"fields"`
}

// OrderStatusChangedEvent records a fulfillment status transition.
type OrderStatusChangedEvent struct {
	OrderID uuid.UUID               `json:"order_id"`
	UserID  uuid.UUID               `json:"user_id"`
	From    enums.FulfillmentStatus `json:"from"`
	To      enums.FulfillmentStatus `json:"to"`
}

type OrderDeletedEvent struct {
	OrderID uuid.UUID `json:"order_id"`
}

// StockLowEvent fires when a checkout decrement leaves an item below the threshold.
type StockLowEvent struct {
	ItemID    uuid.UUID `json:"item_id"`
	Name      string    `json:"name"`
	Quantity  int       `json:"quantity"`
	Threshold int       `json:"threshold"`
}

// PasswordResetRequestedEvent carries the raw reset token to the delivery channel.
// Only its hash is stored on the user row.
type PasswordResetRequestedEvent struct {
	UserID    uuid.UUID `json:"user_id"`
	Email     string    `json:"email"`
	FirstName string    `json:"first_name"`
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expires_at"`
}

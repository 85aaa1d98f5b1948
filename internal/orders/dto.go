package orders

import (
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/angelmondragon/backoffice-api/internal/users"
	"github.com/angelmondragon/backoffice-api/pkg/db/models"
	"github.com/angelmondragon/backoffice-api/pkg/enums"
	pkgerrors "github.com/angelmondragon/backoffice-api/pkg/errors"
	"github.com/angelmondragon/backoffice-api/pkg/outbox/payloads"
)

// LineItemInput is one product line as submitted by clients.
type LineItemInput struct {
	Item     uuid.UUID `json:"item"`
	Name     string    `json:"name"`
	Price    float64   `json:"price"`
	Quantity int       `json:"quantity"`
}

// CreateInput is the body of POST /orders.
type CreateInput struct {
	Products      []LineItemInput `json:"products"`
	TotalAmount   *float64        `json:"totalAmount"`
	Status        *string         `json:"status"`
	PaymentMethod *string         `json:"paymentMethod"`
	Supplier      *string         `json:"supplier"`
}

// ReplaceInput is the body of PUT /orders/{id}. Any client total is ignored.
type ReplaceInput struct {
	Products    []LineItemInput `json:"products"`
	TotalAmount *float64        `json:"totalAmount"`
	Status      *string         `json:"status"`
}

type LineItemDTO struct {
	Item     uuid.UUID `json:"item"`
	Name     string    `json:"name"`
	Price    float64   `json:"price"`
	Quantity int       `json:"quantity"`
}

// OrderDTO is the order JSON returned to clients. User is populated when
// the owner row exists.
type OrderDTO struct {
	ID            uuid.UUID               `json:"id"`
	Products      []LineItemDTO           `json:"products"`
	TotalAmount   float64                 `json:"totalAmount"`
	Supplier      *string                 `json:"supplier,omitempty"`
	Status        enums.PaymentStatus     `json:"status"`
	OrderStatus   enums.FulfillmentStatus `json:"orderStatus"`
	PaymentMethod *enums.PaymentMethod    `json:"paymentMethod,omitempty"`
	UserID        uuid.UUID               `json:"userId"`
	User          *users.SummaryDTO       `json:"user,omitempty"`
	CreatedAt     time.Time               `json:"createdAt"`
	UpdatedAt     time.Time               `json:"updatedAt"`
}

func FromModel(o *models.Order) *OrderDTO {
	if o == nil {
		return nil
	}
	lines := make([]LineItemDTO, 0, len(o.LineItems))
	for _, li := range o.LineItems {
		lines = append(lines, LineItemDTO{Item: li.ItemID, Name: li.Name, Price: li.Price, Quantity: li.Quantity})
	}
	return &OrderDTO{
		ID:            o.ID,
		Products:      lines,
		TotalAmount:   o.TotalAmount,
		Supplier:      o.Supplier,
		Status:        o.Status,
		OrderStatus:   o.OrderStatus,
		PaymentMethod: o.PaymentMethod,
		UserID:        o.UserID,
		User:          users.SummaryFromModel(o.User),
		CreatedAt:     o.CreatedAt,
		UpdatedAt:     o.UpdatedAt,
	}
}

// LineItemModels converts inputs into positioned line-item rows.
func LineItemModels(lines []LineItemInput) []models.OrderLineItem {
	out := make([]models.OrderLineItem, 0, len(lines))
	for i, l := range lines {
		out = append(out, models.OrderLineItem{
			Position: i,
			ItemID:   l.Item,
			Name:     strings.TrimSpace(l.Name),
			Price:    l.Price,
			Quantity: l.Quantity,
		})
	}
	return out
}

// EventLines projects line items onto the outbox payload shape.
func EventLines(lines []models.OrderLineItem) []payloads.OrderLine {
	out := make([]payloads.OrderLine, 0, len(lines))
	for _, l := range lines {
		out = append(out, payloads.OrderLine{ItemID: l.ItemID, Name: l.Name, Price: l.Price, Quantity: l.Quantity})
	}
	return out
}

// ValidateLines requires every line to name an item, a name, and a positive
// quantity and price.
func ValidateLines(lines []LineItemInput) error {
	if len(lines) == 0 {
		return pkgerrors.New(pkgerrors.CodeValidation, "Invalid products format")
	}
	for _, l := range lines {
		if l.Item == uuid.Nil || strings.TrimSpace(l.Name) == "" || l.Quantity <= 0 || l.Price <= 0 {
			return pkgerrors.New(pkgerrors.CodeValidation, "Invalid products format")
		}
	}
	return nil
}

func parsePaymentStatus(raw *string) (*enums.PaymentStatus, error) {
	if raw == nil || *raw == "" {
		return nil, nil
	}
	status, err := enums.ParsePaymentStatus(*raw)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "Invalid payment status")
	}
	return &status, nil
}

func parsePaymentMethod(raw *string) (*enums.PaymentMethod, error) {
	if raw == nil || *raw == "" {
		return nil, nil
	}
	method, err := enums.ParsePaymentMethod(*raw)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "Invalid payment method")
	}
	return &method, nil
}

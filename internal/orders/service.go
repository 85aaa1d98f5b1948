package orders

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/angelmondragon/backoffice-api/pkg/auth"
	"github.com/angelmondragon/backoffice-api/pkg/db/models"
	"github.com/angelmondragon/backoffice-api/pkg/enums"
	pkgerrors "github.com/angelmondragon/backoffice-api/pkg/errors"
	"github.com/angelmondragon/backoffice-api/pkg/logger"
	"github.com/angelmondragon/backoffice-api/pkg/outbox"
	"github.com/angelmondragon/backoffice-api/pkg/outbox/payloads"
)

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type outboxPublisher interface {
	Emit(ctx context.Context, tx *gorm.DB, event outbox.DomainEvent) error
}

// Service exposes the order ledger.
type Service interface {
	List(ctx context.Context, caller auth.Principal) ([]OrderDTO, error)
	Get(ctx context.Context, id uuid.UUID) (*OrderDTO, error)
	Create(ctx context.Context, input CreateInput, caller auth.Principal) (*OrderDTO, error)
	ReplaceLineItems(ctx context.Context, id uuid.UUID, input ReplaceInput, caller auth.Principal) (*OrderDTO, error)
	SetFulfillmentStatus(ctx context.Context, id uuid.UUID, status string, caller auth.Principal) (*OrderDTO, error)
	Delete(ctx context.Context, id uuid.UUID, caller auth.Principal) error
}

type service struct {
	repo   Repository
	tx     txRunner
	outbox outboxPublisher
	logg   *logger.Logger
}

func NewService(repo Repository, tx txRunner, outbox outboxPublisher, logg *logger.Logger) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("orders repository required")
	}
	if tx == nil {
		return nil, fmt.Errorf("transaction runner required")
	}
	if outbox == nil {
		return nil, fmt.Errorf("outbox publisher required")
	}
	return &service{repo: repo, tx: tx, outbox: outbox, logg: logg}, nil
}

func (s *service) List(ctx context.Context, caller auth.Principal) ([]OrderDTO, error) {
	var owner *uuid.UUID
	switch caller.Role {
	case enums.RoleAdmin:
	case enums.RoleUser:
		owner = &caller.UserID
	default:
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "Forbidden")
	}

	rows, err := s.repo.List(ctx, owner)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "Failed to fetch orders")
	}
	out := make([]OrderDTO, 0, len(rows))
	for i := range rows {
		out = append(out, *FromModel(&rows[i]))
	}
	return out, nil
}

func (s *service) Get(ctx context.Context, id uuid.UUID) (*OrderDTO, error) {
	order, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, notFoundOr(err, "Failed to fetch order")
	}
	return FromModel(order), nil
}

func (s *service) Create(ctx context.Context, input CreateInput, caller auth.Principal) (*OrderDTO, error) {
	if len(input.Products) == 0 || input.TotalAmount == nil || *input.TotalAmount == 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "Products and total amount are required")
	}
	status, err := parsePaymentStatus(input.Status)
	if err != nil {
		return nil, err
	}
	method, err := parsePaymentMethod(input.PaymentMethod)
	if err != nil {
		return nil, err
	}

	order := &models.Order{
		UserID:        caller.UserID,
		TotalAmount:   *input.TotalAmount,
		Supplier:      input.Supplier,
		PaymentMethod: method,
		LineItems:     LineItemModels(input.Products),
	}
	if status != nil {
		order.Status = *status
	}

	err = s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		if err := s.repo.WithTx(tx).Create(ctx, order); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "Failed to create order")
		}
		return s.emit(ctx, tx, caller, order.ID, enums.EventOrderCreated, payloads.OrderCreatedEvent{
			OrderID:       order.ID,
			UserID:        order.UserID,
			TotalAmount:   order.TotalAmount,
			Status:        order.Status,
			PaymentMethod: derefMethod(order.PaymentMethod),
			Lines:         EventLines(order.LineItems),
		})
	})
	if err != nil {
		return nil, err
	}
	return FromModel(order), nil
}

// ReplaceLineItems overwrites the line set and recomputes the total as the
// sum of quantity times price; any client-supplied total is discarded.
func (s *service) ReplaceLineItems(ctx context.Context, id uuid.UUID, input ReplaceInput, caller auth.Principal) (*OrderDTO, error) {
	var result *models.Order
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		if _, err := repo.FindByID(ctx, id); err != nil {
			return notFoundOr(err, "Failed to update order")
		}
		if err := ValidateLines(input.Products); err != nil {
			return err
		}
		status, err := parsePaymentStatus(input.Status)
		if err != nil {
			return err
		}

		lines := LineItemModels(input.Products)
		total := LineTotal(lines)
		if err := repo.ReplaceLineItems(ctx, id, lines, total, status); err != nil {
			return notFoundOr(err, "Failed to update order")
		}

		fields := []string{"products", "totalAmount"}
		if status != nil {
			fields = append(fields, "status")
		}
		if err := s.emit(ctx, tx, caller, id, enums.EventOrderUpdated, payloads.OrderUpdatedEvent{OrderID: id, Fields: fields}); err != nil {
			return err
		}

		result, err = repo.FindByID(ctx, id)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "Failed to update order")
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return FromModel(result), nil
}

// SetFulfillmentStatus stores status as given. Values outside the known set
// are logged and still written.
func (s *service) SetFulfillmentStatus(ctx context.Context, id uuid.UUID, status string, caller auth.Principal) (*OrderDTO, error) {
	next := enums.FulfillmentStatus(status)
	if !next.IsValid() && s.logg != nil {
		fields := map[string]any{"order_id": id.String(), "order_status": status}
		s.logg.Warn(s.logg.WithFields(ctx, fields), "order status outside known set")
	}

	var result *models.Order
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		current, err := repo.FindByID(ctx, id)
		if err != nil {
			return notFoundOr(err, "Server error")
		}
		if err := repo.UpdateFulfillmentStatus(ctx, id, next); err != nil {
			return notFoundOr(err, "Server error")
		}
		if err := s.emit(ctx, tx, caller, id, enums.EventOrderStatusChanged, payloads.OrderStatusChangedEvent{
			OrderID: id,
			UserID:  current.UserID,
			From:    current.OrderStatus,
			To:      next,
		}); err != nil {
			return err
		}
		result, err = repo.FindByID(ctx, id)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "Server error")
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return FromModel(result), nil
}

func (s *service) Delete(ctx context.Context, id uuid.UUID, caller auth.Principal) error {
	return s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		if err := s.repo.WithTx(tx).Delete(ctx, id); err != nil {
			return notFoundOr(err, "Failed to delete order")
		}
		return s.emit(ctx, tx, caller, id, enums.EventOrderDeleted, payloads.OrderDeletedEvent{OrderID: id})
	})
}

func (s *service) emit(ctx context.Context, tx *gorm.DB, caller auth.Principal, orderID uuid.UUID, eventType enums.OutboxEventType, data any) error {
	event := outbox.DomainEvent{
		EventType:     eventType,
		AggregateType: enums.AggregateOrder,
		AggregateID:   orderID,
		Actor:         &outbox.ActorRef{UserID: caller.UserID, Role: caller.Role},
		Data:          data,
	}
	if err := s.outbox.Emit(ctx, tx, event); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "emit order event")
	}
	return nil
}

// LineTotal sums quantity times price in decimal to avoid float drift.
func LineTotal(lines []models.OrderLineItem) float64 {
	sum := decimal.Zero
	for _, l := range lines {
		sum = sum.Add(decimal.NewFromFloat(l.Price).Mul(decimal.NewFromInt(int64(l.Quantity))))
	}
	total, _ := sum.Float64()
	return total
}

func derefMethod(m *enums.PaymentMethod) enums.PaymentMethod {
	if m == nil {
		return ""
	}
	return *m
}

func notFoundOr(err error, msg string) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return pkgerrors.New(pkgerrors.CodeNotFound, "Order not found")
	}
	if typed := pkgerrors.As(err); typed != nil {
		return typed
	}
	return pkgerrors.Wrap(pkgerrors.CodeInternal, err, msg)
}

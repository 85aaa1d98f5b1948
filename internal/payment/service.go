package payment

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/angelmondragon/backoffice-api/internal/inventory"
	"github.com/angelmondragon/backoffice-api/internal/orders"
	"github.com/angelmondragon/backoffice-api/pkg/auth"
	"github.com/angelmondragon/backoffice-api/pkg/db/models"
	"github.com/angelmondragon/backoffice-api/pkg/enums"
	pkgerrors "github.com/angelmondragon/backoffice-api/pkg/errors"
	"github.com/angelmondragon/backoffice-api/pkg/logger"
	"github.com/angelmondragon/backoffice-api/pkg/metrics"
	"github.com/angelmondragon/backoffice-api/pkg/outbox"
	"github.com/angelmondragon/backoffice-api/pkg/outbox/payloads"
	"github.com/angelmondragon/backoffice-api/pkg/stripe"
)

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type outboxPublisher interface {
	Emit(ctx context.Context, tx *gorm.DB, event outbox.DomainEvent) error
}

type stockDecrementer interface {
	DecrementStock(ctx context.Context, tx *gorm.DB, itemID uuid.UUID, qty int) (inventory.DecrementResult, *models.InventoryItem, error)
}

// CheckoutInput is the body of POST /payment. Status is accepted for
// compatibility and ignored; the payment method decides it.
type CheckoutInput struct {
	Token          string                 `json:"token"`
	Amount         float64                `json:"amount"`
	PaymentMethod  string                 `json:"paymentMethod"`
	Products       []orders.LineItemInput `json:"products"`
	Status         *string                `json:"status"`
	IdempotencyKey string                 `json:"-"`
}

// Service sequences charge capture, order creation, and stock decrements.
type Service interface {
	Checkout(ctx context.Context, input CheckoutInput, caller auth.Principal) (*orders.OrderDTO, error)
}

type ServiceParams struct {
	Orders            orders.Repository
	Stock             stockDecrementer
	Tx                txRunner
	Outbox            outboxPublisher
	Charger           stripe.Charger
	Metrics           *metrics.CheckoutMetrics
	Logger            *logger.Logger
	Currency          string
	Description       string
	LowStockThreshold int
}

type service struct {
	orders      orders.Repository
	stock       stockDecrementer
	tx          txRunner
	outbox      outboxPublisher
	charger     stripe.Charger
	metrics     *metrics.CheckoutMetrics
	logg        *logger.Logger
	currency    string
	description string
	threshold   int
}

// NewService wires the checkout flow. Charger may be nil when card payments
// are disabled; card checkouts then fail with a dependency error.
func NewService(params ServiceParams) (Service, error) {
	if params.Orders == nil {
		return nil, fmt.Errorf("orders repository required")
	}
	if params.Stock == nil {
		return nil, fmt.Errorf("stock decrementer required")
	}
	if params.Tx == nil {
		return nil, fmt.Errorf("transaction runner required")
	}
	if params.Outbox == nil {
		return nil, fmt.Errorf("outbox publisher required")
	}
	currency := strings.ToLower(strings.TrimSpace(params.Currency))
	if currency == "" {
		currency = "usd"
	}
	return &service{
		orders:      params.Orders,
		stock:       params.Stock,
		tx:          params.Tx,
		outbox:      params.Outbox,
		charger:     params.Charger,
		metrics:     params.Metrics,
		logg:        params.Logger,
		currency:    currency,
		description: params.Description,
		threshold:   params.LowStockThreshold,
	}, nil
}

func (s *service) Checkout(ctx context.Context, input CheckoutInput, caller auth.Principal) (*orders.OrderDTO, error) {
	method, err := enums.ParseCheckoutMethod(input.PaymentMethod)
	if err != nil {
		s.metrics.ObserveAttempt("", metrics.OutcomeInvalidRequest, 0)
		return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "Invalid payment method")
	}
	if err := validate(input); err != nil {
		s.metrics.ObserveAttempt(string(method), metrics.OutcomeInvalidRequest, 0)
		return nil, err
	}

	// Each attempt gets its own order id, and the processor key is bound to
	// it: a retry after a refunded attempt must capture a new charge.
	orderID := uuid.New()

	var charge *stripe.ChargeResult
	if method == enums.CheckoutMethodCard {
		charge, err = s.charge(ctx, input, orderID)
		if err != nil {
			s.metrics.ObserveAttempt(string(method), metrics.OutcomePaymentFailed, 0)
			return nil, err
		}
	}

	order, err := s.record(ctx, orderID, input, method, charge, caller)
	if err != nil {
		if charge != nil {
			s.refund(ctx, charge.ID)
		}
		outcome := metrics.OutcomeError
		if pkgerrors.IsCode(err, pkgerrors.CodeConflict) {
			outcome = metrics.OutcomeOutOfStock
		}
		s.metrics.ObserveAttempt(string(method), outcome, 0)
		return nil, err
	}

	s.metrics.ObserveAttempt(string(method), metrics.OutcomeSuccess, input.Amount)
	return orders.FromModel(order), nil
}

func validate(input CheckoutInput) error {
	if input.Amount <= 0 {
		return pkgerrors.New(pkgerrors.CodeValidation, "amount must be greater than zero")
	}
	return orders.ValidateLines(input.Products)
}

// minorUnits converts a major-unit amount into cents, rounding half away
// from zero.
func minorUnits(amount float64) int64 {
	return decimal.NewFromFloat(amount).Mul(decimal.NewFromInt(100)).Round(0).IntPart()
}

// chargeKey scopes the processor idempotency key to one checkout attempt.
func chargeKey(clientKey string, orderID uuid.UUID) string {
	if clientKey == "" {
		return "order:" + orderID.String()
	}
	return clientKey + ":" + orderID.String()
}

func (s *service) charge(ctx context.Context, input CheckoutInput, orderID uuid.UUID) (*stripe.ChargeResult, error) {
	if s.charger == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "card payments unavailable")
	}
	result, err := s.charger.Charge(ctx, stripe.ChargeRequest{
		AmountCents:    minorUnits(input.Amount),
		Currency:       s.currency,
		Token:          input.Token,
		Description:    s.description,
		IdempotencyKey: chargeKey(input.IdempotencyKey, orderID),
	})
	if err != nil {
		var declined *stripe.DeclinedError
		if errors.As(err, &declined) {
			return nil, pkgerrors.Wrap(pkgerrors.CodePayment, err, declined.Error())
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodePayment, err, "Charge unsuccessful")
	}
	if result == nil || result.ID == "" {
		return nil, pkgerrors.New(pkgerrors.CodePayment, "Charge unsuccessful")
	}
	return result, nil
}

// record writes the order, decrements stock, and queues events in one
// transaction. Any insufficient line rolls the whole checkout back.
func (s *service) record(ctx context.Context, orderID uuid.UUID, input CheckoutInput, method enums.CheckoutMethod, charge *stripe.ChargeResult, caller auth.Principal) (*models.Order, error) {
	paymentMethod := method.PaymentMethod()
	order := &models.Order{
		ID:            orderID,
		UserID:        caller.UserID,
		TotalAmount:   input.Amount,
		Status:        method.PaymentStatus(),
		PaymentMethod: &paymentMethod,
		LineItems:     orders.LineItemModels(input.Products),
	}

	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		if err := s.orders.WithTx(tx).Create(ctx, order); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "db: insert order")
		}

		for _, line := range order.LineItems {
			result, item, err := s.stock.DecrementStock(ctx, tx, line.ItemID, line.Quantity)
			if err != nil {
				return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "db: decrement stock")
			}
			switch result {
			case inventory.DecrementMissing:
				if s.logg != nil {
					s.logg.Warn(s.logg.WithField(ctx, "item_id", line.ItemID.String()), "checkout line references missing item")
				}
			case inventory.DecrementInsufficient:
				return pkgerrors.New(pkgerrors.CodeConflict, "Insufficient stock").
					WithDetails(map[string]any{"item": line.ItemID, "available": item.Quantity, "requested": line.Quantity})
			case inventory.DecrementApplied:
				if err := s.maybeStockLow(ctx, tx, caller, item, line.Quantity); err != nil {
					return err
				}
			}
		}

		chargeID := ""
		if charge != nil {
			chargeID = charge.ID
		}
		return s.emit(ctx, tx, caller, enums.EventOrderCreated, enums.AggregateOrder, order.ID, payloads.OrderCreatedEvent{
			OrderID:       order.ID,
			UserID:        order.UserID,
			TotalAmount:   order.TotalAmount,
			Status:        order.Status,
			PaymentMethod: paymentMethod,
			ChargeID:      chargeID,
			Lines:         orders.EventLines(order.LineItems),
		})
	})
	if err != nil {
		return nil, err
	}
	return order, nil
}

// maybeStockLow queues stock_low only when this decrement crossed the threshold.
func (s *service) maybeStockLow(ctx context.Context, tx *gorm.DB, caller auth.Principal, item *models.InventoryItem, taken int) error {
	if s.threshold <= 0 || item == nil {
		return nil
	}
	if item.Quantity >= s.threshold || item.Quantity+taken < s.threshold {
		return nil
	}
	s.metrics.IncStockLow()
	return s.emit(ctx, tx, caller, enums.EventStockLow, enums.AggregateInventoryItem, item.ID, payloads.StockLowEvent{
		ItemID:    item.ID,
		Name:      item.Name,
		Quantity:  item.Quantity,
		Threshold: s.threshold,
	})
}

func (s *service) emit(ctx context.Context, tx *gorm.DB, caller auth.Principal, eventType enums.OutboxEventType, aggregate enums.OutboxAggregateType, aggregateID uuid.UUID, data any) error {
	err := s.outbox.Emit(ctx, tx, outbox.DomainEvent{
		EventType:     eventType,
		AggregateType: aggregate,
		AggregateID:   aggregateID,
		Actor:         &outbox.ActorRef{UserID: caller.UserID, Role: caller.Role},
		Data:          data,
	})
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "emit checkout event")
	}
	return nil
}

// refund reverses a captured charge whose order could not be recorded.
func (s *service) refund(ctx context.Context, chargeID string) {
	err := s.charger.Refund(context.WithoutCancel(ctx), chargeID)
	s.metrics.IncRefund(err == nil)
	if s.logg == nil {
		return
	}
	logCtx := s.logg.WithField(ctx, "charge_id", chargeID)
	if err != nil {
		s.logg.Error(logCtx, "compensating refund failed", err)
		return
	}
	s.logg.Warn(logCtx, "charge refunded after checkout failure")
}

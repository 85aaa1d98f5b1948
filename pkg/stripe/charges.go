package stripe

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/stripe/stripe-go/v84"
	"github.com/stripe/stripe-go/v84/charge"
	"github.com/stripe/stripe-go/v84/refund"
)

// ChargeRequest describes a one-off card charge against a tokenized source.
type ChargeRequest struct {
	AmountCents int64
	Currency    string
	Token       string
	Description string
	// IdempotencyKey is forwarded to Stripe so network retries of one request
	// never double charge.
	IdempotencyKey string
}

// ChargeResult is the subset of the Stripe charge the checkout flow records.
type ChargeResult struct {
	ID     string
	Status string
	Paid   bool
}

// DeclinedError wraps a processor rejection with the message Stripe returned.
type DeclinedError struct {
	Message string
	Code    string
	err     error
}

func (e *DeclinedError) Error() string {
	if e.Message == "" {
		return "card charge declined"
	}
	return e.Message
}

func (e *DeclinedError) Unwrap() error { return e.err }

// Charger exposes the card operations used by checkout.
type Charger interface {
	Charge(ctx context.Context, req ChargeRequest) (*ChargeResult, error)
	Refund(ctx context.Context, chargeID string) error
}

// NewCharger returns the Stripe-backed Charger. The client must be initialized
// because the package funcs rely on the global key it sets.
func NewCharger(api *Client) Charger {
	if api == nil {
		return nil
	}
	return &chargeWrapper{}
}

type chargeWrapper struct{}

func (w *chargeWrapper) Charge(ctx context.Context, req ChargeRequest) (*ChargeResult, error) {
	if err := req.validate(); err != nil {
		return nil, err
	}

	params := &stripe.ChargeParams{
		Amount:      stripe.Int64(req.AmountCents),
		Currency:    stripe.String(strings.ToLower(req.Currency)),
		Description: stripe.String(req.Description),
		Source:      &stripe.PaymentSourceSourceParams{Token: stripe.String(req.Token)},
	}
	params.Context = ctx
	if req.IdempotencyKey != "" {
		params.SetIdempotencyKey(req.IdempotencyKey)
	}

	ch, err := charge.New(params)
	if err != nil {
		return nil, translateError(err)
	}
	if !ch.Paid {
		return nil, &DeclinedError{Message: ch.FailureMessage, Code: ch.FailureCode}
	}
	return &ChargeResult{ID: ch.ID, Status: string(ch.Status), Paid: ch.Paid}, nil
}

func (w *chargeWrapper) Refund(ctx context.Context, chargeID string) error {
	if strings.TrimSpace(chargeID) == "" {
		return errors.New("charge id is required")
	}
	params := &stripe.RefundParams{Charge: stripe.String(chargeID)}
	params.Context = ctx
	if _, err := refund.New(params); err != nil {
		return fmt.Errorf("refund charge %s: %w", chargeID, err)
	}
	return nil
}

func (r ChargeRequest) validate() error {
	if r.AmountCents <= 0 {
		return &DeclinedError{Message: "amount must be greater than zero"}
	}
	if strings.TrimSpace(r.Token) == "" {
		return &DeclinedError{Message: "payment token is required"}
	}
	if strings.TrimSpace(r.Currency) == "" {
		return errors.New("currency is required")
	}
	return nil
}

// translateError turns card and request errors into DeclinedError so callers
// can map them to a payment failure; anything else is returned untouched.
func translateError(err error) error {
	var stripeErr *stripe.Error
	if !errors.As(err, &stripeErr) {
		return err
	}
	switch stripeErr.Type {
	case stripe.ErrorTypeCard, stripe.ErrorTypeInvalidRequest:
		return &DeclinedError{Message: stripeErr.Msg, Code: string(stripeErr.Code), err: err}
	default:
		return err
	}
}

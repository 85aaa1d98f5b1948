package controllers

import (
	"net/http"
	"strings"

	"github.com/angelmondragon/backoffice-api/api/middleware"
	"github.com/angelmondragon/backoffice-api/api/responses"
	"github.com/angelmondragon/backoffice-api/api/validators"
	"github.com/angelmondragon/backoffice-api/internal/orders"
	"github.com/angelmondragon/backoffice-api/internal/payment"
	"github.com/angelmondragon/backoffice-api/pkg/logger"
)

type checkoutResponse struct {
	Success bool             `json:"success"`
	Order   *orders.OrderDTO `json:"order,omitempty"`
	Message string           `json:"message,omitempty"`
}

// PaymentCheckout answers in the {success, order|message} envelope the
// storefront expects rather than the generic error body.
func PaymentCheckout(svc payment.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		fail := func(err error) {
			rendered := responses.Render(err)
			if logg != nil {
				ctx := logg.WithField(r.Context(), "error_code", string(rendered.Code))
				if rendered.Status >= http.StatusInternalServerError {
					logg.Error(ctx, "payment.checkout_failed", err)
				} else {
					logg.Warn(ctx, "payment.checkout_rejected")
				}
			}
			responses.WriteJSON(w, rendered.Status, checkoutResponse{Message: rendered.Message})
		}

		caller, err := callerFrom(r)
		if err != nil {
			fail(err)
			return
		}
		var body payment.CheckoutInput
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			fail(err)
			return
		}
		body.IdempotencyKey = strings.TrimSpace(r.Header.Get(middleware.IdempotencyHeader))

		order, err := svc.Checkout(r.Context(), body, caller)
		if err != nil {
			fail(err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, checkoutResponse{Success: true, Order: order})
	}
}

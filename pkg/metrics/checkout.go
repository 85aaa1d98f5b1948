package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Checkout outcomes used as label values.
const (
	OutcomeSuccess        = "success"
	OutcomePaymentFailed  = "payment_failed"
	OutcomeOutOfStock     = "out_of_stock"
	OutcomeInvalidRequest = "invalid_request"
	OutcomeError          = "error"
)

// CheckoutMetrics records payment attempts and the value they carry.
type CheckoutMetrics struct {
	attempts *prometheus.CounterVec
	amount   *prometheus.HistogramVec
	stockLow prometheus.Counter
	refunds  *prometheus.CounterVec
}

// NewCheckoutMetrics registers the checkout metrics on the provided registerer.
func NewCheckoutMetrics(reg prometheus.Registerer) *CheckoutMetrics {
	if reg == nil {
		return &CheckoutMetrics{}
	}
	attempts := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "checkout_attempts_total",
		Help: "Checkout attempts by payment method and outcome.",
	}, []string{"method", "outcome"})
	amount := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "checkout_amount",
		Help:    "Order totals of successful checkouts.",
		Buckets: []float64{5, 10, 25, 50, 100, 250, 500, 1000, 5000},
	}, []string{"method"})
	stockLow := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "checkout_stock_low_total",
		Help: "Items that dropped below the low-stock threshold after a checkout.",
	})
	refunds := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "checkout_refunds_total",
		Help: "Compensating refunds issued after a charge could not be recorded.",
	}, []string{"result"})
	reg.MustRegister(attempts, amount, stockLow, refunds)
	return &CheckoutMetrics{
		attempts: attempts,
		amount:   amount,
		stockLow: stockLow,
		refunds:  refunds,
	}
}

// ObserveAttempt counts one checkout; amount is recorded only for successes.
func (c *CheckoutMetrics) ObserveAttempt(method, outcome string, amount float64) {
	if c == nil || c.attempts == nil {
		return
	}
	method = normalizeLabel(method)
	c.attempts.WithLabelValues(method, normalizeLabel(outcome)).Inc()
	if outcome == OutcomeSuccess {
		c.amount.WithLabelValues(method).Observe(amount)
	}
}

func (c *CheckoutMetrics) IncStockLow() {
	if c == nil || c.stockLow == nil {
		return
	}
	c.stockLow.Inc()
}

// IncRefund records a compensating refund; ok reports whether Stripe accepted it.
func (c *CheckoutMetrics) IncRefund(ok bool) {
	if c == nil || c.refunds == nil {
		return
	}
	result := "failed"
	if ok {
		result = "succeeded"
	}
	c.refunds.WithLabelValues(result).Inc()
}

func normalizeLabel(value string) string {
	if value == "" {
		return "unknown"
	}
	return value
}

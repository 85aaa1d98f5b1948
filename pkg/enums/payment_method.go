package enums

// PaymentMethod is the method recorded on an order.
type PaymentMethod string

const (
	PaymentMethodCard           PaymentMethod = "Card"
	PaymentMethodCashOnDelivery PaymentMethod = "Cash on Delivery"
)

var paymentMethods = []PaymentMethod{PaymentMethodCard, PaymentMethodCashOnDelivery}

func (p PaymentMethod) String() string { return string(p) }

func (p PaymentMethod) IsValid() bool { return member(p, paymentMethods) }

func ParsePaymentMethod(value string) (PaymentMethod, error) {
	return parse("payment method", value, paymentMethods)
}

// CheckoutMethod is the method a caller selects at checkout. It is distinct
// from PaymentMethod: "card" records Card, "cash" records Cash on Delivery.
type CheckoutMethod string

const (
	CheckoutMethodCard CheckoutMethod = "card"
	CheckoutMethodCash CheckoutMethod = "cash"
)

// ParseCheckoutMethod is exact-match; "Card" or " cash" are rejected.
func ParseCheckoutMethod(value string) (CheckoutMethod, error) {
	return parse("checkout method", value, []CheckoutMethod{CheckoutMethodCard, CheckoutMethodCash})
}

// PaymentMethod maps the checkout choice to the method stored on the order.
func (c CheckoutMethod) PaymentMethod() PaymentMethod {
	if c == CheckoutMethodCard {
		return PaymentMethodCard
	}
	return PaymentMethodCashOnDelivery
}

// PaymentStatus maps the checkout choice to the initial order payment status.
func (c CheckoutMethod) PaymentStatus() PaymentStatus {
	if c == CheckoutMethodCard {
		return PaymentStatusPaid
	}
	return PaymentStatusCashOnDelivery
}

package enums

// PaymentStatus records whether and how an order was paid. The values are
// display strings and are matched case-sensitively.
type PaymentStatus string

const (
	PaymentStatusCashOnDelivery PaymentStatus = "Cash on Delivery"
	PaymentStatusPaid           PaymentStatus = "Paid"
	PaymentStatusCancelled      PaymentStatus = "Cancelled"
)

var paymentStatuses = []PaymentStatus{PaymentStatusCashOnDelivery, PaymentStatusPaid, PaymentStatusCancelled}

func (p PaymentStatus) String() string { return string(p) }

func (p PaymentStatus) IsValid() bool { return member(p, paymentStatuses) }

func ParsePaymentStatus(value string) (PaymentStatus, error) {
	return parse("payment status", value, paymentStatuses)
}

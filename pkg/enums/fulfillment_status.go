package enums

// FulfillmentStatus is the shipping stage of an order. Values outside the
// declared set are stored as-is; IsValid only classifies them.
type FulfillmentStatus string

const (
	FulfillmentPlaced         FulfillmentStatus = "Placed"
	FulfillmentShipped        FulfillmentStatus = "Shipped"
	FulfillmentOutForDelivery FulfillmentStatus = "Out for Delivery"
	FulfillmentDelivered      FulfillmentStatus = "Delivered"
	FulfillmentCancelled      FulfillmentStatus = "Cancelled"
)

var fulfillmentStatuses = []FulfillmentStatus{
	FulfillmentPlaced,
	FulfillmentShipped,
	FulfillmentOutForDelivery,
	FulfillmentDelivered,
	FulfillmentCancelled,
}

func (f FulfillmentStatus) String() string { return string(f) }

func (f FulfillmentStatus) IsValid() bool { return member(f, fulfillmentStatuses) }

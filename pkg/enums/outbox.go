package enums

// OutboxAggregateType names the entity an outbox event is about.
type OutboxAggregateType string

const (
	AggregateOrder         OutboxAggregateType = "order"
	AggregateInventoryItem OutboxAggregateType = "inventory_item"
	AggregateUser          OutboxAggregateType = "user"
)

var aggregateTypes = []OutboxAggregateType{AggregateOrder, AggregateInventoryItem, AggregateUser}

func (a OutboxAggregateType) IsValid() bool { return member(a, aggregateTypes) }

// OutboxEventType names a domain event written to the outbox.
type OutboxEventType string

const (
	EventOrderCreated           OutboxEventType = "order_created"
	EventOrderUpdated           OutboxEventType = "order_updated"
	EventOrderStatusChanged     OutboxEventType = "order_status_changed"
	EventOrderDeleted           OutboxEventType = "order_deleted"
	EventStockLow               OutboxEventType = "stock_low"
	EventPasswordResetRequested OutboxEventType = "password_reset_requested"
)

var eventTypes = []OutboxEventType{
	EventOrderCreated,
	EventOrderUpdated,
	EventOrderStatusChanged,
	EventOrderDeleted,
	EventStockLow,
	EventPasswordResetRequested,
}

func (e OutboxEventType) IsValid() bool { return member(e, eventTypes) }

// OutboxDLQErrorReason records why an event was dead-lettered instead of published.
type OutboxDLQErrorReason string

const (
	OutboxDLQReasonMaxAttempts  OutboxDLQErrorReason = "max_attempts"
	OutboxDLQReasonNonRetryable OutboxDLQErrorReason = "non_retryable"
)

func (r OutboxDLQErrorReason) IsValid() bool {
	return r == OutboxDLQReasonMaxAttempts || r == OutboxDLQReasonNonRetryable
}

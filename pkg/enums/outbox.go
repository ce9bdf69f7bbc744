package enums

import "slices"

// OutboxAggregateType names the entity whose id keys an outbox event. Events
// sharing an aggregate id are relayed in insertion order.
type OutboxAggregateType string

const (
	AggregateOrder        OutboxAggregateType = "order"
	AggregateMenuItem     OutboxAggregateType = "menu_item"
	AggregateNotification OutboxAggregateType = "notification"
	AggregatePayment      OutboxAggregateType = "payment"
)

func (a OutboxAggregateType) IsValid() bool {
	return slices.Contains([]OutboxAggregateType{
		AggregateOrder, AggregateMenuItem, AggregateNotification, AggregatePayment,
	}, a)
}

// OutboxEventType is stored in outbox_events.event_type and forwarded as the
// event_type message header.
type OutboxEventType string

const (
	EventOrderPlaced           OutboxEventType = "order_placed"
	EventOrderStatusChanged    OutboxEventType = "order_status_changed"
	EventNotificationRequested OutboxEventType = "notification_requested"
	EventInventoryLowStock     OutboxEventType = "inventory_low_stock"
	EventPaymentRecorded       OutboxEventType = "payment_recorded"
)

// OutboxEventTypes lists every event the relay knows how to route.
func OutboxEventTypes() []OutboxEventType {
	return []OutboxEventType{
		EventOrderPlaced,
		EventOrderStatusChanged,
		EventNotificationRequested,
		EventInventoryLowStock,
		EventPaymentRecorded,
	}
}

func (e OutboxEventType) IsValid() bool {
	return slices.Contains(OutboxEventTypes(), e)
}

// OutboxDLQErrorReason is why a row stopped being retried.
type OutboxDLQErrorReason string

const (
	OutboxDLQReasonMaxAttempts  OutboxDLQErrorReason = "max_attempts"
	OutboxDLQReasonNonRetryable OutboxDLQErrorReason = "non_retryable"
)

func (r OutboxDLQErrorReason) IsValid() bool {
	return r == OutboxDLQReasonMaxAttempts || r == OutboxDLQReasonNonRetryable
}

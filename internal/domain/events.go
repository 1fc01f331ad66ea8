package domain

import (
	"time"

	"github.com/google/uuid"
)

// Event is a domain event raised by an aggregate. Events are buffered on the
// aggregate during a transition and drained by the caller after the change is
// persisted; the domain never dispatches them itself.
type Event interface {
	// EventName returns a stable dotted name used as the publish subject
	// suffix (e.g., "order.shipped").
	EventName() string

	// OccurredAt returns when the event was raised.
	OccurredAt() time.Time
}

// eventBase carries the fields common to every order event.
type eventBase struct {
	OrderID     uuid.UUID `json:"order_id"`
	OrderNumber string    `json:"order_number"`
	TenantID    string    `json:"tenant_id"`
	At          time.Time `json:"occurred_at"`
}

func (e eventBase) OccurredAt() time.Time { return e.At }

// OrderCreatedEvent is raised by the order factory.
type OrderCreatedEvent struct {
	eventBase
	CustomerEmail string `json:"customer_email"`
	GrandTotal    string `json:"grand_total"`
	Currency      string `json:"currency"`
}

func (OrderCreatedEvent) EventName() string { return "order.created" }

// OrderConfirmedEvent is raised when a pending order is confirmed.
type OrderConfirmedEvent struct {
	eventBase
	CustomerEmail string `json:"customer_email"`
}

func (OrderConfirmedEvent) EventName() string { return "order.confirmed" }

// OrderStatusChangedEvent is raised for transitions that have no richer
// dedicated event (currently Confirmed -> Processing).
type OrderStatusChangedEvent struct {
	eventBase
	From OrderStatus `json:"from"`
	To   OrderStatus `json:"to"`
}

func (OrderStatusChangedEvent) EventName() string { return "order.status_changed" }

// OrderShippedEvent is raised when an order ships.
type OrderShippedEvent struct {
	eventBase
	CustomerEmail  string `json:"customer_email"`
	TrackingNumber string `json:"tracking_number"`
	Carrier        string `json:"carrier"`
}

func (OrderShippedEvent) EventName() string { return "order.shipped" }

// OrderDeliveredEvent is raised when a shipped order is delivered.
type OrderDeliveredEvent struct {
	eventBase
}

func (OrderDeliveredEvent) EventName() string { return "order.delivered" }

// OrderCompletedEvent is raised when a delivered order is completed.
type OrderCompletedEvent struct {
	eventBase
}

func (OrderCompletedEvent) EventName() string { return "order.completed" }

// OrderCancelledEvent is raised when an order is cancelled. Inventory release
// is coordinated by the calling service, not by the aggregate.
type OrderCancelledEvent struct {
	eventBase
	CustomerEmail string `json:"customer_email"`
	Reason        string `json:"reason,omitempty"`
}

func (OrderCancelledEvent) EventName() string { return "order.cancelled" }

// OrderReturnedEvent is raised when a delivered or completed order is returned.
type OrderReturnedEvent struct {
	eventBase
	Reason string `json:"reason,omitempty"`
}

func (OrderReturnedEvent) EventName() string { return "order.returned" }

// OrderRefundedEvent is raised when a refund is recorded against the order.
type OrderRefundedEvent struct {
	eventBase
	Amount   string `json:"amount"`
	Currency string `json:"currency"`
}

func (OrderRefundedEvent) EventName() string { return "order.refunded" }

// Package domain provides the core business types for Noir: the order
// aggregate and its state machine, money primitives, the inventory movement
// ledger entry, and the domain events raised by transitions.
//
// The aggregate is purely in-memory. Transitions are guard-then-mutate: they
// check the current status against an allow-list, mutate fields, and append
// events to an internal buffer. Persistence and event dispatch are the
// calling service's responsibility. An illegal transition returns a business
// error and leaves the aggregate untouched.
package domain

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// OrderStatus is the lifecycle state of an order.
type OrderStatus string

const (
	OrderPending    OrderStatus = "pending"
	OrderConfirmed  OrderStatus = "confirmed"
	OrderProcessing OrderStatus = "processing"
	OrderShipped    OrderStatus = "shipped"
	OrderDelivered  OrderStatus = "delivered"
	OrderCompleted  OrderStatus = "completed"
	OrderCancelled  OrderStatus = "cancelled"
	OrderRefunded   OrderStatus = "refunded"
	OrderReturned   OrderStatus = "returned"
)

// ValidOrderStatus reports whether s is a known order status.
func ValidOrderStatus(s OrderStatus) bool {
	switch s {
	case OrderPending, OrderConfirmed, OrderProcessing, OrderShipped,
		OrderDelivered, OrderCompleted, OrderCancelled, OrderRefunded, OrderReturned:
		return true
	}
	return false
}

// Stable references for order business-rule violations. Clients and tests
// key on these; the message text is free to change.
const (
	RefOrderCreateInvalid    = "NOIR-ORDER-001"
	RefOrderConfirmInvalid   = "NOIR-ORDER-002"
	RefOrderProcessInvalid   = "NOIR-ORDER-003"
	RefOrderShipInvalid      = "NOIR-ORDER-004"
	RefOrderShipNoTracking   = "NOIR-ORDER-005"
	RefOrderDeliverInvalid   = "NOIR-ORDER-006"
	RefOrderCompleteInvalid  = "NOIR-ORDER-007"
	RefOrderCancelInvalid    = "NOIR-ORDER-008"
	RefOrderReturnInvalid    = "NOIR-ORDER-009"
	RefOrderRefundInvalid    = "NOIR-ORDER-010"
	RefOrderRefundBadAmount  = "NOIR-ORDER-011"
	RefOrderItemsLocked      = "NOIR-ORDER-012"
	RefOrderAmountInvalid    = "NOIR-ORDER-013"
)

// OrderItem is a line item owned by the order. Fields are price/name
// snapshots taken at order time; items are immutable once the order leaves
// Pending.
type OrderItem struct {
	ID             uuid.UUID
	ProductID      uuid.UUID
	VariantID      uuid.UUID
	ProductName    string
	SKU            string
	UnitPrice      Money
	Quantity       Quantity
	DiscountAmount Money
}

// Total returns unit price * quantity minus the per-item discount.
func (i OrderItem) Total() Money {
	gross := i.UnitPrice.MulQuantity(i.Quantity)
	total, err := gross.Sub(i.DiscountAmount)
	if err != nil {
		// Currencies are validated when the item is added.
		return gross
	}
	return total
}

// Order is the aggregate root for the order lifecycle. All mutation goes
// through the factory and the named transition methods.
type Order struct {
	id            uuid.UUID
	tenantID      string
	orderNumber   string
	customerEmail string
	currency      string
	status        OrderStatus

	subTotal       Money
	discountAmount Money
	shippingAmount Money
	taxAmount      Money
	grandTotal     Money

	items []OrderItem

	trackingNumber  string
	shippingCarrier string

	cancellationReason string
	returnReason       string

	createdAt   time.Time
	confirmedAt *time.Time
	shippedAt   *time.Time
	deliveredAt *time.Time
	completedAt *time.Time
	cancelledAt *time.Time
	returnedAt  *time.Time

	events []Event
}

// CreateOrderParams are the inputs to the order factory.
type CreateOrderParams struct {
	TenantID      string
	OrderNumber   string
	CustomerEmail string
	Currency      string
	SubTotal      decimal.Decimal
	GrandTotal    decimal.Decimal
}

// CreateOrder builds a new pending order and raises OrderCreatedEvent.
// SubTotal and GrandTotal must be non-negative; email, currency, tenant id
// and order number are required.
func CreateOrder(params CreateOrderParams) (*Order, error) {
	const op = "order.create"

	if strings.TrimSpace(params.TenantID) == "" {
		return nil, ErrTenantRequired.WithOp(op)
	}
	if strings.TrimSpace(params.OrderNumber) == "" {
		return nil, orderErr(RefOrderCreateInvalid, op, "order number is required")
	}
	if strings.TrimSpace(params.CustomerEmail) == "" {
		return nil, orderErr(RefOrderCreateInvalid, op, "customer email is required")
	}
	currency := strings.ToUpper(strings.TrimSpace(params.Currency))
	if currency == "" {
		return nil, orderErr(RefOrderCreateInvalid, op, "currency is required")
	}
	if params.SubTotal.IsNegative() {
		return nil, orderErr(RefOrderCreateInvalid, op, "subtotal must not be negative")
	}
	if params.GrandTotal.IsNegative() {
		return nil, orderErr(RefOrderCreateInvalid, op, "grand total must not be negative")
	}

	now := time.Now().UTC()
	o := &Order{
		id:             uuid.New(),
		tenantID:       params.TenantID,
		orderNumber:    params.OrderNumber,
		customerEmail:  params.CustomerEmail,
		currency:       currency,
		status:         OrderPending,
		subTotal:       Money{Amount: params.SubTotal, Currency: currency},
		discountAmount: Zero(currency),
		shippingAmount: Zero(currency),
		taxAmount:      Zero(currency),
		grandTotal:     Money{Amount: params.GrandTotal, Currency: currency},
		createdAt:      now,
	}

	o.raise(OrderCreatedEvent{
		eventBase:     o.base(now),
		CustomerEmail: o.customerEmail,
		GrandTotal:    o.grandTotal.Amount.String(),
		Currency:      currency,
	})
	return o, nil
}

// --- Accessors ---

func (o *Order) ID() uuid.UUID { return o.id }
func (o *Order) TenantID() string { return o.tenantID }
func (o *Order) OrderNumber() string { return o.orderNumber }
func (o *Order) CustomerEmail() string { return o.customerEmail }
func (o *Order) Currency() string { return o.currency }
func (o *Order) Status() OrderStatus { return o.status }
func (o *Order) SubTotal() Money { return o.subTotal }
func (o *Order) DiscountAmount() Money { return o.discountAmount }
func (o *Order) ShippingAmount() Money { return o.shippingAmount }
func (o *Order) TaxAmount() Money { return o.taxAmount }
func (o *Order) GrandTotal() Money { return o.grandTotal }
func (o *Order) TrackingNumber() string { return o.trackingNumber }
func (o *Order) ShippingCarrier() string { return o.shippingCarrier }
func (o *Order) CancellationReason() string { return o.cancellationReason }
func (o *Order) ReturnReason() string { return o.returnReason }
func (o *Order) CreatedAt() time.Time { return o.createdAt }
func (o *Order) ConfirmedAt() *time.Time { return o.confirmedAt }
func (o *Order) ShippedAt() *time.Time { return o.shippedAt }
func (o *Order) DeliveredAt() *time.Time { return o.deliveredAt }
func (o *Order) CompletedAt() *time.Time { return o.completedAt }
func (o *Order) CancelledAt() *time.Time { return o.cancelledAt }
func (o *Order) ReturnedAt() *time.Time { return o.returnedAt }

// Items returns a copy of the line items; the aggregate owns the originals.
func (o *Order) Items() []OrderItem {
	items := make([]OrderItem, len(o.items))
	copy(items, o.items)
	return items
}

// TakeEvents drains and returns the buffered domain events. The caller
// dispatches them after the surrounding unit of work commits.
func (o *Order) TakeEvents() []Event {
	events := o.events
	o.events = nil
	return events
}

// --- Pending-only mutations ---

// OrderItemParams are the inputs for adding a line item.
type OrderItemParams struct {
	ProductID      uuid.UUID
	VariantID      uuid.UUID
	ProductName    string
	SKU            string
	UnitPrice      decimal.Decimal
	Quantity       int32
	DiscountAmount decimal.Decimal
}

// AddItem appends a line item and recomputes totals. Only allowed while the
// order is Pending; items are immutable afterwards.
func (o *Order) AddItem(params OrderItemParams) error {
	const op = "order.add_item"

	if o.status != OrderPending {
		return orderErr(RefOrderItemsLocked, op,
			"items cannot be modified once the order has left pending")
	}
	qty, err := NewQuantity(params.Quantity)
	if err != nil {
		return orderErr(RefOrderAmountInvalid, op, "quantity must be greater than zero")
	}
	if params.UnitPrice.IsNegative() {
		return orderErr(RefOrderAmountInvalid, op, "unit price must not be negative")
	}
	if params.DiscountAmount.IsNegative() {
		return orderErr(RefOrderAmountInvalid, op, "item discount must not be negative")
	}
	if strings.TrimSpace(params.ProductName) == "" || strings.TrimSpace(params.SKU) == "" {
		return orderErr(RefOrderAmountInvalid, op, "product name and sku are required")
	}
	lineGross := params.UnitPrice.Mul(decimal.NewFromInt32(params.Quantity))
	if params.DiscountAmount.Cmp(lineGross) > 0 {
		return orderErr(RefOrderAmountInvalid, op, "item discount cannot exceed the line total")
	}

	item := OrderItem{
		ID:             uuid.New(),
		ProductID:      params.ProductID,
		VariantID:      params.VariantID,
		ProductName:    params.ProductName,
		SKU:            params.SKU,
		UnitPrice:      Money{Amount: params.UnitPrice, Currency: o.currency},
		Quantity:       qty,
		DiscountAmount: Money{Amount: params.DiscountAmount, Currency: o.currency},
	}

	// Adding the first item switches SubTotal from the creation-time value to
	// the item-derived sum, so an already-applied order discount must be
	// re-checked against the prospective subtotal before mutating.
	sub := Zero(o.currency)
	for _, existing := range o.items {
		sub, _ = sub.Add(existing.Total())
	}
	sub, _ = sub.Add(item.Total())
	if o.discountAmount.Cmp(sub) > 0 {
		return orderErr(RefOrderAmountInvalid, op, "discount cannot exceed subtotal")
	}

	o.items = append(o.items, item)
	o.recalcTotals()
	return nil
}

// ApplyDiscount sets the order-level discount. Pending only.
func (o *Order) ApplyDiscount(amount decimal.Decimal) error {
	return o.setCharge("order.apply_discount", &o.discountAmount, amount)
}

// SetShipping sets the shipping charge. Pending only.
func (o *Order) SetShipping(amount decimal.Decimal) error {
	return o.setCharge("order.set_shipping", &o.shippingAmount, amount)
}

// SetTax sets the tax amount. Pending only.
func (o *Order) SetTax(amount decimal.Decimal) error {
	return o.setCharge("order.set_tax", &o.taxAmount, amount)
}

func (o *Order) setCharge(op string, field *Money, amount decimal.Decimal) error {
	if o.status != OrderPending {
		return orderErr(RefOrderItemsLocked, op,
			"totals cannot be modified once the order has left pending")
	}
	if amount.IsNegative() {
		return orderErr(RefOrderAmountInvalid, op, "amount must not be negative")
	}
	prev := *field
	*field = Money{Amount: amount, Currency: o.currency}
	if o.discountAmount.Cmp(o.subTotal) > 0 {
		*field = prev
		return orderErr(RefOrderAmountInvalid, op, "discount cannot exceed subtotal")
	}
	o.recalcTotals()
	return nil
}

// recalcTotals maintains the invariant
// GrandTotal == SubTotal - DiscountAmount + ShippingAmount + TaxAmount.
// When line items exist, SubTotal is derived from them.
func (o *Order) recalcTotals() {
	if len(o.items) > 0 {
		sub := Zero(o.currency)
		for _, item := range o.items {
			sub, _ = sub.Add(item.Total())
		}
		o.subTotal = sub
	}
	total := o.subTotal.Amount.
		Sub(o.discountAmount.Amount).
		Add(o.shippingAmount.Amount).
		Add(o.taxAmount.Amount)
	o.grandTotal = Money{Amount: total, Currency: o.currency}
}

// --- Transitions ---

// Confirm moves Pending -> Confirmed and raises OrderConfirmedEvent.
func (o *Order) Confirm() error {
	const op = "order.confirm"
	if err := o.guard(op, RefOrderConfirmInvalid, OrderPending); err != nil {
		return err
	}
	now := time.Now().UTC()
	o.status = OrderConfirmed
	o.confirmedAt = &now
	o.raise(OrderConfirmedEvent{eventBase: o.base(now), CustomerEmail: o.customerEmail})
	return nil
}

// StartProcessing moves Confirmed -> Processing.
func (o *Order) StartProcessing() error {
	const op = "order.start_processing"
	if err := o.guard(op, RefOrderProcessInvalid, OrderConfirmed); err != nil {
		return err
	}
	now := time.Now().UTC()
	from := o.status
	o.status = OrderProcessing
	o.raise(OrderStatusChangedEvent{eventBase: o.base(now), From: from, To: OrderProcessing})
	return nil
}

// Ship moves Processing -> Shipped, recording tracking details.
func (o *Order) Ship(trackingNumber, carrier string) error {
	const op = "order.ship"
	if err := o.guard(op, RefOrderShipInvalid, OrderProcessing); err != nil {
		return err
	}
	if strings.TrimSpace(trackingNumber) == "" {
		return orderErr(RefOrderShipNoTracking, op, "tracking number is required")
	}
	now := time.Now().UTC()
	o.status = OrderShipped
	o.shippedAt = &now
	o.trackingNumber = trackingNumber
	o.shippingCarrier = carrier
	o.raise(OrderShippedEvent{
		eventBase:      o.base(now),
		CustomerEmail:  o.customerEmail,
		TrackingNumber: trackingNumber,
		Carrier:        carrier,
	})
	return nil
}

// MarkAsDelivered moves Shipped -> Delivered.
func (o *Order) MarkAsDelivered() error {
	const op = "order.mark_delivered"
	if err := o.guard(op, RefOrderDeliverInvalid, OrderShipped); err != nil {
		return err
	}
	now := time.Now().UTC()
	o.status = OrderDelivered
	o.deliveredAt = &now
	o.raise(OrderDeliveredEvent{eventBase: o.base(now)})
	return nil
}

// Complete moves Delivered -> Completed. Completion strictly requires prior
// delivery confirmation; every other status fails.
func (o *Order) Complete() error {
	const op = "order.complete"
	if err := o.guard(op, RefOrderCompleteInvalid, OrderDelivered); err != nil {
		return err
	}
	now := time.Now().UTC()
	o.status = OrderCompleted
	o.completedAt = &now
	o.raise(OrderCompletedEvent{eventBase: o.base(now)})
	return nil
}

// Cancel moves {Pending, Confirmed, Processing} -> Cancelled with an optional
// reason. Releasing reserved inventory is the calling service's side effect.
func (o *Order) Cancel(reason string) error {
	const op = "order.cancel"
	if err := o.guard(op, RefOrderCancelInvalid, OrderPending, OrderConfirmed, OrderProcessing); err != nil {
		return err
	}
	now := time.Now().UTC()
	o.status = OrderCancelled
	o.cancelledAt = &now
	o.cancellationReason = reason
	o.raise(OrderCancelledEvent{eventBase: o.base(now), CustomerEmail: o.customerEmail, Reason: reason})
	return nil
}

// Return moves {Delivered, Completed} -> Returned with an optional reason.
func (o *Order) Return(reason string) error {
	const op = "order.return"
	if err := o.guard(op, RefOrderReturnInvalid, OrderDelivered, OrderCompleted); err != nil {
		return err
	}
	now := time.Now().UTC()
	o.status = OrderReturned
	o.returnedAt = &now
	o.returnReason = reason
	o.raise(OrderReturnedEvent{eventBase: o.base(now), Reason: reason})
	return nil
}

// MarkAsRefunded records a full or partial refund and moves the order to
// Refunded. Allowed from any status except Pending, Cancelled and Refunded,
// including the otherwise-terminal Completed and Returned states; a
// completed-then-returned order can still be refunded.
func (o *Order) MarkAsRefunded(amount decimal.Decimal) error {
	const op = "order.mark_refunded"
	switch o.status {
	case OrderPending, OrderCancelled, OrderRefunded:
		return orderErr(RefOrderRefundInvalid, op,
			fmt.Sprintf("cannot refund an order in status %s", o.status))
	}
	if !amount.IsPositive() {
		return orderErr(RefOrderRefundBadAmount, op, "refund amount must be greater than zero")
	}
	if amount.Cmp(o.grandTotal.Amount) > 0 {
		return orderErr(RefOrderRefundBadAmount, op, "refund amount exceeds order grand total")
	}
	now := time.Now().UTC()
	o.status = OrderRefunded
	o.raise(OrderRefundedEvent{
		eventBase: o.base(now),
		Amount:    amount.String(),
		Currency:  o.currency,
	})
	return nil
}

// guard checks the current status against an allow-list and returns a
// business error with the given reference when the transition is illegal.
func (o *Order) guard(op, ref string, allowed ...OrderStatus) error {
	for _, s := range allowed {
		if o.status == s {
			return nil
		}
	}
	verb := strings.TrimPrefix(op, "order.")
	return orderErr(ref, op, fmt.Sprintf("cannot %s an order in status %s",
		strings.ReplaceAll(verb, "_", " "), o.status))
}

func (o *Order) raise(e Event) {
	o.events = append(o.events, e)
}

func (o *Order) base(at time.Time) eventBase {
	return eventBase{
		OrderID:     o.id,
		OrderNumber: o.orderNumber,
		TenantID:    o.tenantID,
		At:          at,
	}
}

func orderErr(ref, op, message string) error {
	return &Error{Code: EINVALID, Ref: ref, Op: op, Message: message}
}

// OrderSnapshot is the persistence-shaped view of an order. Stores use it to
// save and rehydrate aggregates without reaching into unexported fields.
type OrderSnapshot struct {
	ID                 uuid.UUID
	TenantID           string
	OrderNumber        string
	CustomerEmail      string
	Currency           string
	Status             OrderStatus
	SubTotal           decimal.Decimal
	DiscountAmount     decimal.Decimal
	ShippingAmount     decimal.Decimal
	TaxAmount          decimal.Decimal
	GrandTotal         decimal.Decimal
	Items              []OrderItem
	TrackingNumber     string
	ShippingCarrier    string
	CancellationReason string
	ReturnReason       string
	CreatedAt          time.Time
	ConfirmedAt        *time.Time
	ShippedAt          *time.Time
	DeliveredAt        *time.Time
	CompletedAt        *time.Time
	CancelledAt        *time.Time
	ReturnedAt         *time.Time
}

// Snapshot returns the persistence view of the aggregate.
func (o *Order) Snapshot() OrderSnapshot {
	return OrderSnapshot{
		ID:                 o.id,
		TenantID:           o.tenantID,
		OrderNumber:        o.orderNumber,
		CustomerEmail:      o.customerEmail,
		Currency:           o.currency,
		Status:             o.status,
		SubTotal:           o.subTotal.Amount,
		DiscountAmount:     o.discountAmount.Amount,
		ShippingAmount:     o.shippingAmount.Amount,
		TaxAmount:          o.taxAmount.Amount,
		GrandTotal:         o.grandTotal.Amount,
		Items:              o.Items(),
		TrackingNumber:     o.trackingNumber,
		ShippingCarrier:    o.shippingCarrier,
		CancellationReason: o.cancellationReason,
		ReturnReason:       o.returnReason,
		CreatedAt:          o.createdAt,
		ConfirmedAt:        o.confirmedAt,
		ShippedAt:          o.shippedAt,
		DeliveredAt:        o.deliveredAt,
		CompletedAt:        o.completedAt,
		CancelledAt:        o.cancelledAt,
		ReturnedAt:         o.returnedAt,
	}
}

// RehydrateOrder rebuilds an aggregate from a stored snapshot. It trusts the
// store: no validation or events are raised.
func RehydrateOrder(s OrderSnapshot) *Order {
	return &Order{
		id:                 s.ID,
		tenantID:           s.TenantID,
		orderNumber:        s.OrderNumber,
		customerEmail:      s.CustomerEmail,
		currency:           s.Currency,
		status:             s.Status,
		subTotal:           Money{Amount: s.SubTotal, Currency: s.Currency},
		discountAmount:     Money{Amount: s.DiscountAmount, Currency: s.Currency},
		shippingAmount:     Money{Amount: s.ShippingAmount, Currency: s.Currency},
		taxAmount:          Money{Amount: s.TaxAmount, Currency: s.Currency},
		grandTotal:         Money{Amount: s.GrandTotal, Currency: s.Currency},
		items:              s.Items,
		trackingNumber:     s.TrackingNumber,
		shippingCarrier:    s.ShippingCarrier,
		cancellationReason: s.CancellationReason,
		returnReason:       s.ReturnReason,
		createdAt:          s.CreatedAt,
		confirmedAt:        s.ConfirmedAt,
		shippedAt:          s.ShippedAt,
		deliveredAt:        s.DeliveredAt,
		completedAt:        s.CompletedAt,
		cancelledAt:        s.CancelledAt,
		returnedAt:         s.ReturnedAt,
	}
}

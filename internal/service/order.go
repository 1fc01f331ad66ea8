// Package service implements the application layer: order lifecycle
// orchestration, order number generation, inventory recording, and shipping
// rate fan-out. Services load aggregates, invoke domain transitions, persist
// the result, and publish the drained events after the write commits.
package service

import (
	"context"
	"errors"
	"log/slog"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/noirlabs/noir/internal/billing"
	"github.com/noirlabs/noir/internal/domain"
	"github.com/noirlabs/noir/internal/events"
	"github.com/noirlabs/noir/internal/repository"
	"github.com/noirlabs/noir/internal/telemetry"
)

// createOrderAttempts bounds the regenerate-and-retry loop on order number
// collisions.
const createOrderAttempts = 3

// OrderService orchestrates the order lifecycle for a single tenant.
type OrderService struct {
	store     repository.OrderStore
	generator *OrderNumberGenerator
	billing   billing.Provider
	publisher events.Publisher
	metrics   *telemetry.BusinessMetrics
	logger    *slog.Logger
	tenantID  string
}

// NewOrderService creates an order service scoped to one tenant.
func NewOrderService(
	store repository.OrderStore,
	tenantID string,
	billingProvider billing.Provider,
	publisher events.Publisher,
	metrics *telemetry.BusinessMetrics,
	logger *slog.Logger,
) *OrderService {
	return &OrderService{
		store:     store,
		generator: NewOrderNumberGenerator(store),
		billing:   billingProvider,
		publisher: publisher,
		metrics:   metrics,
		logger:    logger.With(slog.String("service", "order"), slog.String("tenant_id", tenantID)),
		tenantID:  tenantID,
	}
}

// CreateOrderItemInput is one requested line item.
type CreateOrderItemInput struct {
	ProductID      uuid.UUID
	VariantID      uuid.UUID
	ProductName    string
	SKU            string
	UnitPrice      decimal.Decimal
	Quantity       int32
	DiscountAmount decimal.Decimal
}

// CreateOrderInput is the request to create an order.
type CreateOrderInput struct {
	CustomerEmail  string
	Currency       string
	Items          []CreateOrderItemInput
	DiscountAmount decimal.Decimal
	ShippingAmount decimal.Decimal
	TaxAmount      decimal.Decimal
}

// CreateOrder builds a pending order from the input, reserves stock for every
// line item, and persists it atomically. Order number collisions regenerate
// and retry up to createOrderAttempts times before giving up.
func (s *OrderService) CreateOrder(ctx context.Context, input CreateOrderInput) (*domain.Order, error) {
	const op = "service.order.create"

	correlationID := uuid.New()

	for attempt := 1; attempt <= createOrderAttempts; attempt++ {
		number, err := s.generator.GenerateNext(ctx, s.tenantID)
		if err != nil {
			return nil, err
		}

		order, err := s.buildOrder(number, input)
		if err != nil {
			return nil, err
		}

		err = s.store.Create(ctx, s.tenantID, order.Snapshot(), correlationID)
		if errors.Is(err, repository.ErrDuplicateOrderNumber) {
			s.metrics.OrderNumberConflicts.WithLabelValues(s.tenantID).Inc()
			s.logger.Warn("order number collision, retrying",
				slog.String("order_number", number),
				slog.Int("attempt", attempt))
			continue
		}
		if err != nil {
			return nil, err
		}

		s.metrics.OrdersCreated.WithLabelValues(s.tenantID).Inc()
		total, _ := order.GrandTotal().Amount.Float64()
		s.metrics.OrderValue.WithLabelValues(s.tenantID).Observe(total)
		s.metrics.OrderItemCount.WithLabelValues(s.tenantID).Observe(float64(len(order.Items())))

		s.publish(ctx, order.TakeEvents())
		s.logger.Info("order created",
			slog.String("order_id", order.ID().String()),
			slog.String("order_number", order.OrderNumber()),
			slog.String("grand_total", order.GrandTotal().String()))
		return order, nil
	}

	return nil, ErrOrderNumberExhausted.WithOp(op)
}

// buildOrder assembles the aggregate for one creation attempt.
func (s *OrderService) buildOrder(orderNumber string, input CreateOrderInput) (*domain.Order, error) {
	order, err := domain.CreateOrder(domain.CreateOrderParams{
		TenantID:      s.tenantID,
		OrderNumber:   orderNumber,
		CustomerEmail: input.CustomerEmail,
		Currency:      input.Currency,
	})
	if err != nil {
		return nil, err
	}

	for _, item := range input.Items {
		if err := order.AddItem(domain.OrderItemParams{
			ProductID:      item.ProductID,
			VariantID:      item.VariantID,
			ProductName:    item.ProductName,
			SKU:            item.SKU,
			UnitPrice:      item.UnitPrice,
			Quantity:       item.Quantity,
			DiscountAmount: item.DiscountAmount,
		}); err != nil {
			return nil, err
		}
	}
	if input.DiscountAmount.IsPositive() {
		if err := order.ApplyDiscount(input.DiscountAmount); err != nil {
			return nil, err
		}
	}
	if input.ShippingAmount.IsPositive() {
		if err := order.SetShipping(input.ShippingAmount); err != nil {
			return nil, err
		}
	}
	if input.TaxAmount.IsPositive() {
		if err := order.SetTax(input.TaxAmount); err != nil {
			return nil, err
		}
	}
	return order, nil
}

// Get loads an order with its items by id.
func (s *OrderService) Get(ctx context.Context, id uuid.UUID) (*domain.Order, error) {
	snapshot, err := s.store.Get(ctx, s.tenantID, id)
	if err != nil {
		if domain.ErrorCode(err) == domain.ENOTFOUND {
			return nil, ErrOrderNotFound.WithOp("service.order.get")
		}
		return nil, err
	}
	return domain.RehydrateOrder(snapshot), nil
}

// GetByNumber loads an order with its items by order number.
func (s *OrderService) GetByNumber(ctx context.Context, orderNumber string) (*domain.Order, error) {
	snapshot, err := s.store.GetByNumber(ctx, s.tenantID, orderNumber)
	if err != nil {
		if domain.ErrorCode(err) == domain.ENOTFOUND {
			return nil, ErrOrderNotFound.WithOp("service.order.get_by_number")
		}
		return nil, err
	}
	return domain.RehydrateOrder(snapshot), nil
}

// OrderPage is one page of an order listing.
type OrderPage struct {
	Orders []*domain.Order
	Total  int64
}

// List returns a page of the tenant's orders, newest first.
func (s *OrderService) List(ctx context.Context, filter repository.OrderFilter) (*OrderPage, error) {
	const op = "service.order.list"

	if filter.Status != "" && !domain.ValidOrderStatus(filter.Status) {
		return nil, domain.Errorf(domain.EINVALID, op, "unknown order status: %s", filter.Status)
	}
	if filter.Limit <= 0 || filter.Limit > 100 {
		filter.Limit = 50
	}
	if filter.Offset < 0 {
		filter.Offset = 0
	}

	snapshots, err := s.store.List(ctx, s.tenantID, filter)
	if err != nil {
		return nil, err
	}
	total, err := s.store.Count(ctx, s.tenantID, filter)
	if err != nil {
		return nil, err
	}

	orders := make([]*domain.Order, len(snapshots))
	for i, snapshot := range snapshots {
		orders[i] = domain.RehydrateOrder(snapshot)
	}
	return &OrderPage{Orders: orders, Total: total}, nil
}

// CreatePaymentIntent opens a gateway charge for a pending order's grand
// total. The tenant and order number travel in gateway metadata; the
// gateway's webhook brings them back and confirms the order.
func (s *OrderService) CreatePaymentIntent(ctx context.Context, id uuid.UUID) (*billing.PaymentIntent, error) {
	const op = "service.order.create_payment_intent"

	order, err := s.load(ctx, id, op)
	if err != nil {
		return nil, err
	}
	if order.Status() != domain.OrderPending {
		return nil, domain.Errorf(domain.ECONFLICT, op,
			"payment can only be taken for a pending order, status is %s", order.Status())
	}

	intent, err := s.billing.CreatePaymentIntent(ctx, billing.CreatePaymentIntentParams{
		Amount:        order.GrandTotal().Amount,
		Currency:      order.Currency(),
		TenantID:      s.tenantID,
		OrderNumber:   order.OrderNumber(),
		CustomerEmail: order.CustomerEmail(),
	})
	if err != nil {
		s.logger.Error("payment intent creation failed",
			slog.String("order_id", order.ID().String()),
			slog.Any("error", err))
		return nil, err
	}

	s.metrics.PaymentIntentsCreated.WithLabelValues(s.tenantID).Inc()
	s.logger.Info("payment intent created",
		slog.String("order_id", order.ID().String()),
		slog.String("order_number", order.OrderNumber()),
		slog.String("payment_intent_id", intent.ID))
	return intent, nil
}

// Confirm moves a pending order to confirmed.
func (s *OrderService) Confirm(ctx context.Context, id uuid.UUID) (*domain.Order, error) {
	return s.transition(ctx, id, func(o *domain.Order) error { return o.Confirm() })
}

// StartProcessing moves a confirmed order to processing.
func (s *OrderService) StartProcessing(ctx context.Context, id uuid.UUID) (*domain.Order, error) {
	return s.transition(ctx, id, func(o *domain.Order) error { return o.StartProcessing() })
}

// Ship moves a processing order to shipped with tracking details.
func (s *OrderService) Ship(ctx context.Context, id uuid.UUID, trackingNumber, carrier string) (*domain.Order, error) {
	return s.transition(ctx, id, func(o *domain.Order) error {
		return o.Ship(trackingNumber, carrier)
	})
}

// MarkAsDelivered moves a shipped order to delivered.
func (s *OrderService) MarkAsDelivered(ctx context.Context, id uuid.UUID) (*domain.Order, error) {
	return s.transition(ctx, id, func(o *domain.Order) error { return o.MarkAsDelivered() })
}

// Complete moves a delivered order to completed.
func (s *OrderService) Complete(ctx context.Context, id uuid.UUID) (*domain.Order, error) {
	return s.transition(ctx, id, func(o *domain.Order) error { return o.Complete() })
}

// Return moves a delivered or completed order to returned.
func (s *OrderService) Return(ctx context.Context, id uuid.UUID, reason string) (*domain.Order, error) {
	return s.transition(ctx, id, func(o *domain.Order) error { return o.Return(reason) })
}

// Cancel cancels an order and releases its reserved stock in the same
// transaction as the status change.
func (s *OrderService) Cancel(ctx context.Context, id uuid.UUID, reason string) (*domain.Order, error) {
	order, err := s.load(ctx, id, "service.order.cancel")
	if err != nil {
		return nil, err
	}
	from := order.Status()
	if err := order.Cancel(reason); err != nil {
		return nil, err
	}

	if err := s.store.ReleaseAndUpdate(ctx, s.tenantID, order.Snapshot(), from, uuid.New()); err != nil {
		return nil, err
	}

	s.metrics.OrderTransitions.WithLabelValues(s.tenantID, string(order.Status())).Inc()
	s.publish(ctx, order.TakeEvents())
	s.logger.Info("order cancelled",
		slog.String("order_id", order.ID().String()),
		slog.String("order_number", order.OrderNumber()),
		slog.String("reason", reason))
	return order, nil
}

// Refund records a refund against the order. The aggregate validates the
// transition and amount first; the gateway refund runs before the status is
// persisted, so a gateway failure leaves the order untouched.
func (s *OrderService) Refund(ctx context.Context, id uuid.UUID, paymentIntentID string, amount decimal.Decimal, reason string) (*domain.Order, error) {
	const op = "service.order.refund"

	order, err := s.load(ctx, id, op)
	if err != nil {
		return nil, err
	}
	currency := order.Currency()
	from := order.Status()
	if err := order.MarkAsRefunded(amount); err != nil {
		return nil, err
	}

	if _, err := s.billing.RefundPayment(ctx, billing.RefundParams{
		PaymentIntentID: paymentIntentID,
		Amount:          amount,
		Currency:        currency,
		Reason:          reason,
	}); err != nil {
		s.logger.Error("gateway refund failed",
			slog.String("order_id", order.ID().String()),
			slog.String("payment_intent_id", paymentIntentID),
			slog.Any("error", err))
		return nil, ErrRefundGatewayFailed.WithOp(op)
	}

	if err := s.store.Update(ctx, s.tenantID, order.Snapshot(), from); err != nil {
		return nil, err
	}

	s.metrics.RefundsIssued.WithLabelValues(s.tenantID).Inc()
	value, _ := amount.Float64()
	s.metrics.RefundValue.WithLabelValues(s.tenantID).Observe(value)
	s.publish(ctx, order.TakeEvents())
	s.logger.Info("order refunded",
		slog.String("order_id", order.ID().String()),
		slog.String("order_number", order.OrderNumber()),
		slog.String("amount", amount.String()))
	return order, nil
}

// transition runs load -> mutate -> persist -> publish for the simple status
// changes that have no storage side effects beyond the order row.
func (s *OrderService) transition(ctx context.Context, id uuid.UUID, mutate func(*domain.Order) error) (*domain.Order, error) {
	order, err := s.load(ctx, id, "service.order.transition")
	if err != nil {
		return nil, err
	}
	from := order.Status()
	if err := mutate(order); err != nil {
		return nil, err
	}
	if err := s.store.Update(ctx, s.tenantID, order.Snapshot(), from); err != nil {
		return nil, err
	}

	s.metrics.OrderTransitions.WithLabelValues(s.tenantID, string(order.Status())).Inc()
	s.publish(ctx, order.TakeEvents())
	s.logger.Info("order transitioned",
		slog.String("order_id", order.ID().String()),
		slog.String("order_number", order.OrderNumber()),
		slog.String("status", string(order.Status())))
	return order, nil
}

func (s *OrderService) load(ctx context.Context, id uuid.UUID, op string) (*domain.Order, error) {
	snapshot, err := s.store.Get(ctx, s.tenantID, id)
	if err != nil {
		if domain.ErrorCode(err) == domain.ENOTFOUND {
			return nil, ErrOrderNotFound.WithOp(op)
		}
		return nil, err
	}
	return domain.RehydrateOrder(snapshot), nil
}

// publish dispatches drained events after the write committed. Failures are
// logged and counted but never surfaced; the state change already happened.
func (s *OrderService) publish(ctx context.Context, drained []domain.Event) {
	for _, event := range drained {
		if err := s.publisher.Publish(ctx, s.tenantID, event); err != nil {
			s.metrics.EventPublishFailed.WithLabelValues(s.tenantID, event.EventName()).Inc()
			s.logger.Error("event publish failed",
				slog.String("event", event.EventName()),
				slog.Any("error", err))
			continue
		}
		s.metrics.EventsPublished.WithLabelValues(s.tenantID, event.EventName()).Inc()
	}
}

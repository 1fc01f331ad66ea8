package telemetry

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// BusinessMetrics holds Prometheus metrics for business-level observability.
// All metrics include a tenant_id label for multi-tenant dashboards.
type BusinessMetrics struct {
	// Orders
	OrdersCreated    *prometheus.CounterVec
	OrderTransitions *prometheus.CounterVec
	OrderValue       *prometheus.HistogramVec
	OrderItemCount   *prometheus.HistogramVec
	RefundsIssued    *prometheus.CounterVec
	RefundValue      *prometheus.HistogramVec

	// Order numbers
	OrderNumberConflicts *prometheus.CounterVec

	// Inventory
	StockMovements     *prometheus.CounterVec
	InsufficientStock  *prometheus.CounterVec

	// Shipping rate quotes
	RateQuoteRequests  *prometheus.CounterVec
	RateProviderErrors *prometheus.CounterVec

	// Payments
	PaymentIntentsCreated *prometheus.CounterVec
	WebhooksReceived      *prometheus.CounterVec
	WebhooksProcessed     *prometheus.CounterVec
	WebhooksFailed        *prometheus.CounterVec

	// Events
	EventsPublished     *prometheus.CounterVec
	EventPublishFailed  *prometheus.CounterVec
	NotificationsSent   *prometheus.CounterVec
	NotificationsFailed *prometheus.CounterVec
}

// NewBusinessMetrics creates and registers business metrics with the default
// Prometheus registry.
func NewBusinessMetrics(namespace string) *BusinessMetrics {
	if namespace == "" {
		namespace = "noir"
	}

	counter := func(name, help string, labels ...string) *prometheus.CounterVec {
		return promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      name,
			Help:      help,
		}, labels)
	}
	histogram := func(name, help string, buckets []float64, labels ...string) *prometheus.HistogramVec {
		return promauto.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      name,
			Help:      help,
			Buckets:   buckets,
		}, labels)
	}

	return &BusinessMetrics{
		OrdersCreated: counter("orders_created_total",
			"Orders created", "tenant_id"),
		OrderTransitions: counter("order_transitions_total",
			"Order status transitions", "tenant_id", "to_status"),
		OrderValue: histogram("order_value",
			"Order grand total in major currency units",
			[]float64{10, 25, 50, 100, 250, 500, 1000, 2500}, "tenant_id"),
		OrderItemCount: histogram("order_item_count",
			"Line items per order",
			[]float64{1, 2, 3, 5, 10, 20}, "tenant_id"),
		RefundsIssued: counter("refunds_issued_total",
			"Refunds recorded against orders", "tenant_id"),
		RefundValue: histogram("refund_value",
			"Refund amount in major currency units",
			[]float64{10, 25, 50, 100, 250, 500, 1000}, "tenant_id"),
		OrderNumberConflicts: counter("order_number_conflicts_total",
			"Order number collisions that triggered a regenerate-and-retry", "tenant_id"),
		StockMovements: counter("stock_movements_total",
			"Inventory ledger appends", "tenant_id", "movement_type"),
		InsufficientStock: counter("insufficient_stock_total",
			"Stock operations rejected for insufficient inventory", "tenant_id"),
		RateQuoteRequests: counter("rate_quote_requests_total",
			"Shipping rate quote requests", "tenant_id"),
		RateProviderErrors: counter("rate_provider_errors_total",
			"Shipping providers that failed during a quote fan-out", "tenant_id", "provider"),
		PaymentIntentsCreated: counter("payment_intents_created_total",
			"Gateway payment intents opened for pending orders", "tenant_id"),
		WebhooksReceived: counter("webhooks_received_total",
			"Gateway webhook events received", "tenant_id", "event_type"),
		WebhooksProcessed: counter("webhooks_processed_total",
			"Gateway webhook events handled successfully", "tenant_id", "event_type"),
		WebhooksFailed: counter("webhooks_failed_total",
			"Gateway webhook events that could not be handled", "tenant_id", "event_type"),
		EventsPublished: counter("events_published_total",
			"Domain events published", "tenant_id", "event"),
		EventPublishFailed: counter("event_publish_failed_total",
			"Domain events that failed to publish", "tenant_id", "event"),
		NotificationsSent: counter("notifications_sent_total",
			"Notification emails sent", "tenant_id", "kind"),
		NotificationsFailed: counter("notifications_failed_total",
			"Notification emails that failed to send", "tenant_id", "kind"),
	}
}

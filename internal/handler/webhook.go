package handler

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"

	"github.com/google/uuid"
	"github.com/stripe/stripe-go/v82"

	"github.com/noirlabs/noir/internal/billing"
	"github.com/noirlabs/noir/internal/domain"
	"github.com/noirlabs/noir/internal/middleware"
	"github.com/noirlabs/noir/internal/telemetry"
)

// maxWebhookBody caps the webhook request body. Stripe events are small;
// anything larger is not a legitimate event.
const maxWebhookBody = int64(65536)

// webhookOrderService is the slice of the order service the webhook needs.
type webhookOrderService interface {
	GetByNumber(ctx context.Context, orderNumber string) (*domain.Order, error)
	Confirm(ctx context.Context, id uuid.UUID) (*domain.Order, error)
}

// StripeWebhookHandler receives payment gateway events and advances the
// matching order. Events are authenticated by signature, then the referenced
// payment intent is re-fetched from the gateway rather than trusted from the
// request body.
type StripeWebhookHandler struct {
	provider billing.Provider
	orders   webhookOrderService
	metrics  *telemetry.BusinessMetrics
	tenantID string
}

// NewStripeWebhookHandler creates a webhook handler.
func NewStripeWebhookHandler(provider billing.Provider, orders webhookOrderService, metrics *telemetry.BusinessMetrics, tenantID string) *StripeWebhookHandler {
	return &StripeWebhookHandler{
		provider: provider,
		orders:   orders,
		metrics:  metrics,
		tenantID: tenantID,
	}
}

// Handle handles POST /webhooks/stripe. Once the signature verifies, the
// endpoint always acknowledges with 200 so the gateway does not retry events
// we have already seen or deliberately skipped.
func (h *StripeWebhookHandler) Handle(w http.ResponseWriter, r *http.Request) {
	logger := middleware.GetLogger(r.Context())

	r.Body = http.MaxBytesReader(w, r.Body, maxWebhookBody)
	payload, err := io.ReadAll(r.Body)
	if err != nil {
		respondError(w, r, domain.Invalid("handler.webhook.read", "failed to read webhook body"))
		return
	}

	if err := h.provider.VerifyWebhookSignature(payload, r.Header.Get("Stripe-Signature")); err != nil {
		respondError(w, r, domain.Errorf(domain.EUNAUTHORIZED, "handler.webhook.verify",
			"webhook signature verification failed"))
		return
	}

	var event stripe.Event
	if err := json.Unmarshal(payload, &event); err != nil {
		respondError(w, r, domain.Invalid("handler.webhook.decode", "malformed webhook event"))
		return
	}

	eventType := string(event.Type)
	h.metrics.WebhooksReceived.WithLabelValues(h.tenantID, eventType).Inc()
	logger.Info("webhook event received",
		slog.String("event_id", event.ID),
		slog.String("event_type", eventType))

	switch event.Type {
	case "payment_intent.succeeded":
		if err := h.handlePaymentIntentSucceeded(r.Context(), logger, event); err != nil {
			h.metrics.WebhooksFailed.WithLabelValues(h.tenantID, eventType).Inc()
			logger.Error("webhook handling failed",
				slog.String("event_id", event.ID),
				slog.String("event_type", eventType),
				slog.String("error", err.Error()))
		} else {
			h.metrics.WebhooksProcessed.WithLabelValues(h.tenantID, eventType).Inc()
		}
	default:
		logger.Info("webhook event ignored", slog.String("event_type", eventType))
	}

	respondJSON(w, http.StatusOK, map[string]bool{"received": true})
}

func (h *StripeWebhookHandler) handlePaymentIntentSucceeded(ctx context.Context, logger *slog.Logger, event stripe.Event) error {
	const op = "handler.webhook.payment_intent_succeeded"

	if event.Data == nil {
		return domain.Invalid(op, "event carries no payload")
	}
	var payload stripe.PaymentIntent
	if err := json.Unmarshal(event.Data.Raw, &payload); err != nil {
		return domain.WrapError(err, domain.EINVALID, op, "malformed payment intent payload")
	}

	// Re-fetch the intent so routing decisions rest on gateway state, not on
	// whatever the request body claims.
	intent, err := h.provider.GetPaymentIntent(ctx, payload.ID)
	if err != nil {
		return domain.WrapError(err, domain.EINTERNAL, op, "failed to fetch payment intent")
	}

	if intent.Metadata["tenant_id"] != h.tenantID {
		logger.Info("webhook event for another tenant skipped",
			slog.String("payment_intent_id", intent.ID))
		return nil
	}

	orderNumber := intent.Metadata["order_number"]
	if orderNumber == "" {
		return domain.Errorf(domain.EINVALID, op, "payment intent %s carries no order number", intent.ID)
	}

	order, err := h.orders.GetByNumber(ctx, orderNumber)
	if err != nil {
		return err
	}

	// Stripe retries delivery, so the same success event can arrive more than
	// once. A non-pending order has already been advanced.
	if order.Status() != domain.OrderPending {
		logger.Info("order already advanced, webhook skipped",
			slog.String("order_number", orderNumber),
			slog.String("status", string(order.Status())))
		return nil
	}

	if _, err := h.orders.Confirm(ctx, order.ID()); err != nil {
		return err
	}

	logger.Info("order confirmed from payment webhook",
		slog.String("order_number", orderNumber),
		slog.String("payment_intent_id", intent.ID))
	return nil
}

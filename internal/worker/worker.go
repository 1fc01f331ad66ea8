// Package worker consumes published order events and sends customer
// notification emails. It runs as a JetStream queue group so multiple
// replicas share the work without double-sending.
package worker

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/nats-io/nats.go"

	"github.com/noirlabs/noir/internal/email"
	"github.com/noirlabs/noir/internal/events"
	"github.com/noirlabs/noir/internal/telemetry"
)

const (
	// queueGroup is the JetStream queue group shared by all worker replicas.
	queueGroup = "noir-notifications"

	// maxDeliver bounds redelivery of a failing message before JetStream
	// gives up on it.
	maxDeliver = 5

	// ackWait is how long JetStream waits for an ack before redelivering.
	ackWait = 30 * time.Second
)

// Worker consumes order events and dispatches notification emails.
type Worker struct {
	conn    *nats.Conn
	js      nats.JetStreamContext
	email   *email.Service
	metrics *telemetry.BusinessMetrics
	logger  *slog.Logger

	sub *nats.Subscription
}

// NewWorker connects to NATS and prepares the notification consumer.
func NewWorker(url string, emailService *email.Service, metrics *telemetry.BusinessMetrics, logger *slog.Logger) (*Worker, error) {
	conn, err := nats.Connect(url, nats.Name("noir-notification-worker"))
	if err != nil {
		return nil, fmt.Errorf("nats connect: %w", err)
	}

	js, err := conn.JetStream()
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("jetstream context: %w", err)
	}

	return &Worker{
		conn:    conn,
		js:      js,
		email:   emailService,
		metrics: metrics,
		logger:  logger.With(slog.String("component", "notification_worker")),
	}, nil
}

// Start subscribes to order events and blocks until the context is
// cancelled.
func (w *Worker) Start(ctx context.Context) error {
	sub, err := w.js.QueueSubscribe(
		events.SubjectPrefix+".order.*",
		queueGroup,
		w.handle,
		nats.BindStream(events.StreamName),
		nats.ManualAck(),
		nats.AckWait(ackWait),
		nats.MaxDeliver(maxDeliver),
	)
	if err != nil {
		return fmt.Errorf("subscribe: %w", err)
	}
	w.sub = sub

	w.logger.Info("notification worker started",
		slog.String("subject", events.SubjectPrefix+".order.*"),
		slog.String("queue_group", queueGroup))

	<-ctx.Done()

	if err := sub.Drain(); err != nil {
		w.logger.Warn("drain failed", slog.Any("error", err))
	}
	w.conn.Close()
	w.logger.Info("notification worker stopped")
	return ctx.Err()
}

// notificationPayload is the superset of event fields the worker reads. Only
// the fields relevant to a given subject are populated.
type notificationPayload struct {
	OrderNumber    string `json:"order_number"`
	TenantID       string `json:"tenant_id"`
	CustomerEmail  string `json:"customer_email"`
	TrackingNumber string `json:"tracking_number"`
	Carrier        string `json:"carrier"`
	Reason         string `json:"reason"`
}

func (w *Worker) handle(msg *nats.Msg) {
	ctx, cancel := context.WithTimeout(context.Background(), ackWait/2)
	defer cancel()

	var payload notificationPayload
	if err := json.Unmarshal(msg.Data, &payload); err != nil {
		// Malformed payloads never become valid; drop instead of redelivering.
		w.logger.Error("malformed event payload",
			slog.String("subject", msg.Subject),
			slog.Any("error", err))
		msg.Term()
		return
	}

	kind, err := w.dispatch(ctx, msg.Subject, payload)
	if kind == "" {
		// Subjects with no notification (created, delivered, ...) are
		// acknowledged and skipped.
		msg.Ack()
		return
	}

	tenant := payload.TenantID
	if tenant == "" {
		tenant = msg.Header.Get(events.HeaderTenantID)
	}

	if err != nil {
		w.metrics.NotificationsFailed.WithLabelValues(tenant, kind).Inc()
		w.logger.Error("notification failed",
			slog.String("kind", kind),
			slog.String("order_number", payload.OrderNumber),
			slog.Any("error", err))
		msg.Nak()
		return
	}

	w.metrics.NotificationsSent.WithLabelValues(tenant, kind).Inc()
	w.logger.Info("notification sent",
		slog.String("kind", kind),
		slog.String("order_number", payload.OrderNumber))
	msg.Ack()
}

// dispatch routes a subject to its email. Returns the notification kind, or
// "" for subjects that carry no customer notification.
func (w *Worker) dispatch(ctx context.Context, subject string, payload notificationPayload) (string, error) {
	switch subject {
	case events.SubjectPrefix + ".order.confirmed":
		return "order_confirmed", w.email.SendOrderConfirmed(ctx, payload.CustomerEmail, payload.OrderNumber)
	case events.SubjectPrefix + ".order.shipped":
		return "order_shipped", w.email.SendOrderShipped(ctx, payload.CustomerEmail, payload.OrderNumber, payload.TrackingNumber, payload.Carrier)
	case events.SubjectPrefix + ".order.cancelled":
		return "order_cancelled", w.email.SendOrderCancelled(ctx, payload.CustomerEmail, payload.OrderNumber, payload.Reason)
	default:
		return "", nil
	}
}

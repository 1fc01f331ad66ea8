// Package events dispatches committed domain events to NATS JetStream.
// Services drain the aggregate's event buffer after the unit of work commits
// and hand the events here; publish failures are logged by the caller and
// never roll back the committed transition.
package events

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/nats-io/nats.go"

	"github.com/noirlabs/noir/internal/domain"
)

const (
	// StreamName is the JetStream stream holding all order events.
	StreamName = "NOIR_ORDERS"

	// SubjectPrefix namespaces every published subject.
	SubjectPrefix = "noir"

	// HeaderTenantID carries the tenant on every published message.
	HeaderTenantID = "Noir-Tenant-Id"
)

// Publisher dispatches domain events for downstream consumers
// (notifications, analytics, webhooks).
type Publisher interface {
	// Publish sends one event. The subject is derived from the event name.
	Publish(ctx context.Context, tenantID string, event domain.Event) error

	// Close releases the underlying connection.
	Close()
}

// NATSPublisher publishes events to a JetStream stream.
type NATSPublisher struct {
	conn *nats.Conn
	js   nats.JetStreamContext
}

// NewNATSPublisher connects to NATS and ensures the order stream exists.
func NewNATSPublisher(url string) (*NATSPublisher, error) {
	conn, err := nats.Connect(url, nats.Name("noir-publisher"))
	if err != nil {
		return nil, fmt.Errorf("nats connect: %w", err)
	}

	js, err := conn.JetStream()
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("jetstream context: %w", err)
	}

	_, err = js.AddStream(&nats.StreamConfig{
		Name:     StreamName,
		Subjects: []string{SubjectPrefix + ".order.>"},
		Storage:  nats.FileStorage,
	})
	if err != nil && err != nats.ErrStreamNameAlreadyInUse {
		conn.Close()
		return nil, fmt.Errorf("ensure stream: %w", err)
	}

	return &NATSPublisher{conn: conn, js: js}, nil
}

// Publish sends one event as JSON to "noir.<event name>".
func (p *NATSPublisher) Publish(ctx context.Context, tenantID string, event domain.Event) error {
	payload, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("marshal event %s: %w", event.EventName(), err)
	}

	msg := nats.NewMsg(fmt.Sprintf("%s.%s", SubjectPrefix, event.EventName()))
	msg.Data = payload
	msg.Header.Set(HeaderTenantID, tenantID)

	if _, err := p.js.PublishMsg(msg, nats.Context(ctx)); err != nil {
		return fmt.Errorf("publish %s: %w", msg.Subject, err)
	}
	return nil
}

// Close drains and closes the NATS connection.
func (p *NATSPublisher) Close() {
	p.conn.Close()
}

// NoopPublisher discards events. Used in tests and NATS-less development.
type NoopPublisher struct {
	// Published records events when Record is true.
	Record    bool
	Published []domain.Event
}

// Publish records or discards the event.
func (p *NoopPublisher) Publish(ctx context.Context, tenantID string, event domain.Event) error {
	if p.Record {
		p.Published = append(p.Published, event)
	}
	return nil
}

// Close is a no-op.
func (p *NoopPublisher) Close() {}

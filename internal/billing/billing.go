// Package billing defines the payment-gateway boundary consumed by the order
// service. The domain never talks to a gateway directly; it receives
// success/failure plus gateway metadata through this interface.
package billing

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
)

// Provider defines the interface for payment processing.
// Implementations can use Stripe, PayPal, Square, etc.
type Provider interface {
	// CreatePaymentIntent creates a payment intent for a one-time charge.
	CreatePaymentIntent(ctx context.Context, params CreatePaymentIntentParams) (*PaymentIntent, error)

	// GetPaymentIntent retrieves an existing payment intent.
	GetPaymentIntent(ctx context.Context, paymentIntentID string) (*PaymentIntent, error)

	// RefundPayment refunds a completed payment, fully or partially.
	RefundPayment(ctx context.Context, params RefundParams) (*Refund, error)

	// VerifyWebhookSignature verifies that a webhook request is authentic.
	VerifyWebhookSignature(payload []byte, signature string) error
}

// CreatePaymentIntentParams contains parameters for creating a payment intent.
type CreatePaymentIntentParams struct {
	Amount   decimal.Decimal
	Currency string

	// TenantID and OrderNumber are carried in gateway metadata for
	// reconciliation.
	TenantID    string
	OrderNumber string

	CustomerEmail string
}

// PaymentIntent is the gateway-side record of a pending or completed charge.
type PaymentIntent struct {
	ID           string
	ClientSecret string
	Status       string
	Amount       decimal.Decimal
	Currency     string
	Metadata     map[string]string
	CreatedAt    time.Time
}

// RefundParams contains parameters for refunding a payment.
type RefundParams struct {
	PaymentIntentID string
	Amount          decimal.Decimal
	Currency        string
	Reason          string
}

// Refund is the gateway-side record of a refund.
type Refund struct {
	ID        string
	Status    string
	Amount    decimal.Decimal
	CreatedAt time.Time
}

package billing

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stripe/stripe-go/v82"
	"github.com/stripe/stripe-go/v82/paymentintent"
	"github.com/stripe/stripe-go/v82/refund"
	"github.com/stripe/stripe-go/v82/webhook"

	"github.com/noirlabs/noir/internal/domain"
)

// StripeConfig holds configuration for the Stripe provider.
type StripeConfig struct {
	APIKey        string
	WebhookSecret string
}

// StripeProvider implements Provider using the Stripe Go SDK.
type StripeProvider struct {
	webhookSecret string
}

// NewStripeProvider creates a new Stripe billing provider.
func NewStripeProvider(cfg StripeConfig) (*StripeProvider, error) {
	if cfg.APIKey == "" {
		return nil, domain.Invalid("billing.stripe.new", "stripe api key is required")
	}
	stripe.Key = cfg.APIKey
	return &StripeProvider{webhookSecret: cfg.WebhookSecret}, nil
}

// CreatePaymentIntent creates a Stripe payment intent. The amount is
// converted to the currency's minor unit (cents).
func (s *StripeProvider) CreatePaymentIntent(ctx context.Context, params CreatePaymentIntentParams) (*PaymentIntent, error) {
	const op = "billing.stripe.create_payment_intent"

	piParams := &stripe.PaymentIntentParams{
		Amount:       stripe.Int64(toMinorUnits(params.Amount)),
		Currency:     stripe.String(params.Currency),
		ReceiptEmail: stripe.String(params.CustomerEmail),
	}
	piParams.Context = ctx
	piParams.AddMetadata("tenant_id", params.TenantID)
	piParams.AddMetadata("order_number", params.OrderNumber)

	pi, err := paymentintent.New(piParams)
	if err != nil {
		return nil, domain.WrapError(err, domain.EINTERNAL, op, "stripe payment intent creation failed")
	}
	return fromStripeIntent(pi), nil
}

// GetPaymentIntent retrieves an existing payment intent.
func (s *StripeProvider) GetPaymentIntent(ctx context.Context, paymentIntentID string) (*PaymentIntent, error) {
	const op = "billing.stripe.get_payment_intent"

	params := &stripe.PaymentIntentParams{}
	params.Context = ctx
	pi, err := paymentintent.Get(paymentIntentID, params)
	if err != nil {
		return nil, domain.WrapError(err, domain.EINTERNAL, op, "stripe payment intent lookup failed")
	}
	return fromStripeIntent(pi), nil
}

// RefundPayment refunds a completed payment, fully or partially.
func (s *StripeProvider) RefundPayment(ctx context.Context, params RefundParams) (*Refund, error) {
	const op = "billing.stripe.refund"

	refundParams := &stripe.RefundParams{
		PaymentIntent: stripe.String(params.PaymentIntentID),
		Amount:        stripe.Int64(toMinorUnits(params.Amount)),
	}
	refundParams.Context = ctx
	if params.Reason != "" {
		refundParams.AddMetadata("reason", params.Reason)
	}

	r, err := refund.New(refundParams)
	if err != nil {
		return nil, domain.WrapError(err, domain.EINTERNAL, op, "stripe refund failed")
	}
	return &Refund{
		ID:        r.ID,
		Status:    string(r.Status),
		Amount:    fromMinorUnits(r.Amount),
		CreatedAt: time.Unix(r.Created, 0).UTC(),
	}, nil
}

// VerifyWebhookSignature verifies that a webhook request is authentic.
func (s *StripeProvider) VerifyWebhookSignature(payload []byte, signature string) error {
	const op = "billing.stripe.verify_webhook"

	if _, err := webhook.ConstructEvent(payload, signature, s.webhookSecret); err != nil {
		return domain.WrapError(err, domain.EUNAUTHORIZED, op, "invalid webhook signature")
	}
	return nil
}

func fromStripeIntent(pi *stripe.PaymentIntent) *PaymentIntent {
	return &PaymentIntent{
		ID:           pi.ID,
		ClientSecret: pi.ClientSecret,
		Status:       string(pi.Status),
		Amount:       fromMinorUnits(pi.Amount),
		Currency:     string(pi.Currency),
		Metadata:     pi.Metadata,
		CreatedAt:    time.Unix(pi.Created, 0).UTC(),
	}
}

func toMinorUnits(amount decimal.Decimal) int64 {
	return amount.Mul(decimal.NewFromInt(100)).Round(0).IntPart()
}

func fromMinorUnits(minor int64) decimal.Decimal {
	return decimal.NewFromInt(minor).Div(decimal.NewFromInt(100))
}

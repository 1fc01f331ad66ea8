package billing

import (
	"context"
	"fmt"

	"github.com/google/uuid"
)

// MockProvider is an in-memory Provider for tests and NATS-less development.
type MockProvider struct {
	// RefundErr, when set, is returned by RefundPayment.
	RefundErr error

	// VerifyErr, when set, is returned by VerifyWebhookSignature.
	VerifyErr error

	// Refunds records every refund issued.
	Refunds []RefundParams

	intents map[string]*PaymentIntent
}

// NewMockProvider creates an empty mock billing provider.
func NewMockProvider() *MockProvider {
	return &MockProvider{intents: make(map[string]*PaymentIntent)}
}

// CreatePaymentIntent records and returns a fake succeeded intent.
func (m *MockProvider) CreatePaymentIntent(ctx context.Context, params CreatePaymentIntentParams) (*PaymentIntent, error) {
	pi := &PaymentIntent{
		ID:           "pi_mock_" + uuid.New().String()[:8],
		ClientSecret: "secret_mock",
		Status:       "succeeded",
		Amount:       params.Amount,
		Currency:     params.Currency,
		Metadata: map[string]string{
			"tenant_id":    params.TenantID,
			"order_number": params.OrderNumber,
		},
	}
	m.intents[pi.ID] = pi
	return pi, nil
}

// GetPaymentIntent returns a previously created intent.
func (m *MockProvider) GetPaymentIntent(ctx context.Context, paymentIntentID string) (*PaymentIntent, error) {
	pi, ok := m.intents[paymentIntentID]
	if !ok {
		return nil, fmt.Errorf("payment intent %s not found", paymentIntentID)
	}
	return pi, nil
}

// RefundPayment records the refund, failing with RefundErr when configured.
func (m *MockProvider) RefundPayment(ctx context.Context, params RefundParams) (*Refund, error) {
	if m.RefundErr != nil {
		return nil, m.RefundErr
	}
	m.Refunds = append(m.Refunds, params)
	return &Refund{
		ID:     "re_mock_" + uuid.New().String()[:8],
		Status: "succeeded",
		Amount: params.Amount,
	}, nil
}

// VerifyWebhookSignature succeeds unless VerifyErr is configured.
func (m *MockProvider) VerifyWebhookSignature(payload []byte, signature string) error {
	return m.VerifyErr
}

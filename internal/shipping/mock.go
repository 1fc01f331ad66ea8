package shipping

import "context"

// MockProvider is a configurable Provider for tests.
type MockProvider struct {
	ProviderName string
	GetRatesFn   func(ctx context.Context, params RateParams) ([]Rate, error)

	// Calls records how many times GetRates was invoked.
	Calls int
}

// Name identifies the mock in logs and metrics.
func (m *MockProvider) Name() string {
	if m.ProviderName == "" {
		return "mock"
	}
	return m.ProviderName
}

// GetRates delegates to GetRatesFn.
func (m *MockProvider) GetRates(ctx context.Context, params RateParams) ([]Rate, error) {
	m.Calls++
	if m.GetRatesFn == nil {
		return nil, nil
	}
	return m.GetRatesFn(ctx, params)
}

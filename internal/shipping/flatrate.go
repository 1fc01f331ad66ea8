package shipping

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
)

// FlatRateProvider returns predefined flat-rate shipping options.
// Used when real carrier integration is not needed.
type FlatRateProvider struct {
	currency string
	rates    []FlatRate
}

// FlatRate defines a single flat-rate shipping option.
type FlatRate struct {
	ServiceName string
	ServiceCode string
	Cost        decimal.Decimal
	DaysMin     int
	DaysMax     int
}

// NewFlatRateProvider creates a new flat-rate shipping provider.
func NewFlatRateProvider(currency string, rates []FlatRate) *FlatRateProvider {
	return &FlatRateProvider{currency: currency, rates: rates}
}

// Name identifies the provider in logs and metrics.
func (p *FlatRateProvider) Name() string { return "flatrate" }

// GetRates converts the configured flat rates to Rate values.
func (p *FlatRateProvider) GetRates(ctx context.Context, params RateParams) ([]Rate, error) {
	if params.TenantID == "" {
		return nil, ErrTenantRequired
	}
	if len(params.Packages) == 0 {
		return nil, ErrNoPackages
	}

	result := make([]Rate, len(p.rates))
	for i, fr := range p.rates {
		result[i] = Rate{
			Carrier:               "Flat Rate",
			ServiceName:           fr.ServiceName,
			ServiceCode:           fr.ServiceCode,
			Cost:                  fr.Cost,
			Currency:              p.currency,
			EstimatedDaysMin:      fr.DaysMin,
			EstimatedDaysMax:      fr.DaysMax,
			EstimatedDeliveryDate: time.Now().AddDate(0, 0, fr.DaysMax),
		}
	}
	return result, nil
}

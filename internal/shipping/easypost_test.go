package shipping

import (
	"context"
	"log/slog"
	"testing"

	"github.com/EasyPost/easypost-go/v5"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func Test_NewEasyPostProvider_RequiresAPIKey(t *testing.T) {
	_, err := NewEasyPostProvider(EasyPostConfig{})
	assert.ErrorIs(t, err, ErrMissingAPIKey)
}

func Test_EasyPostProvider_GetRates_ValidatesParams(t *testing.T) {
	p := &EasyPostProvider{logger: slog.Default()}

	origin := Address{Line1: "123 Roast St", City: "Portland", State: "OR", PostalCode: "97201", Country: "US"}
	pkg := Package{WeightGrams: 500, LengthCm: 20, WidthCm: 15, HeightCm: 10}

	tests := []struct {
		name   string
		params RateParams
		want   error
	}{
		{"missing tenant", RateParams{OriginAddress: origin, Packages: []Package{pkg}}, ErrTenantRequired},
		{"missing origin", RateParams{TenantID: "t1", Packages: []Package{pkg}}, ErrOriginRequired},
		{"no packages", RateParams{TenantID: "t1", OriginAddress: origin}, ErrNoPackages},
		{"multi package", RateParams{TenantID: "t1", OriginAddress: origin, Packages: []Package{pkg, pkg}}, ErrMultiPackageNotSupported},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := p.GetRates(context.Background(), tt.params)
			assert.ErrorIs(t, err, tt.want)
		})
	}
}

func Test_ToEasyPostParcel_ConvertsMetricToImperial(t *testing.T) {
	parcel := toEasyPostParcel(Package{WeightGrams: 1000, LengthCm: 100, WidthCm: 50, HeightCm: 10})

	assert.InDelta(t, 39.3701, parcel.Length, 0.001)
	assert.InDelta(t, 19.6851, parcel.Width, 0.001)
	assert.InDelta(t, 3.93701, parcel.Height, 0.001)
	assert.InDelta(t, 35.274, parcel.Weight, 0.001)
}

func Test_FromEasyPostRate_ParsesDecimalCost(t *testing.T) {
	rate, err := fromEasyPostRate(&easypost.Rate{
		Carrier:      "USPS",
		Service:      "Priority",
		Rate:         "7.33",
		Currency:     "USD",
		DeliveryDays: 2,
	})
	require.NoError(t, err)

	assert.Equal(t, "USPS", rate.Carrier)
	assert.Equal(t, "Priority", rate.ServiceCode)
	assert.True(t, rate.Cost.Equal(decimal.RequireFromString("7.33")),
		"cost should parse exactly, got %s", rate.Cost)
	assert.Equal(t, "USD", rate.Currency)
	assert.Equal(t, 2, rate.EstimatedDaysMin)
	assert.Equal(t, 2, rate.EstimatedDaysMax)
	assert.False(t, rate.EstimatedDeliveryDate.IsZero())
}

func Test_FromEasyPostRate_RejectsUnparseableAmount(t *testing.T) {
	_, err := fromEasyPostRate(&easypost.Rate{Carrier: "USPS", Service: "Priority", Rate: "n/a"})
	assert.Error(t, err)
}

func Test_FilterRatesByService_KeepsOnlyRequestedCodes(t *testing.T) {
	rates := []Rate{
		{ServiceCode: "Priority"},
		{ServiceCode: "Ground"},
		{ServiceCode: "Express"},
	}

	filtered := filterRatesByService(rates, []string{"Ground", "Express"})

	require.Len(t, filtered, 2)
	assert.Equal(t, "Ground", filtered[0].ServiceCode)
	assert.Equal(t, "Express", filtered[1].ServiceCode)
}

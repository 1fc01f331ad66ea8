package shipping

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/EasyPost/easypost-go/v5"
	"github.com/shopspring/decimal"
)

// Conversion constants for metric to imperial units. EasyPost quotes in
// inches and ounces.
const (
	cmToInchRatio  = 0.393701
	gramsToOzRatio = 0.035274
)

// EasyPostProvider quotes carrier rates through the EasyPost API.
type EasyPostProvider struct {
	client *easypost.Client
	logger *slog.Logger
}

// EasyPostConfig contains configuration for the EasyPost provider.
type EasyPostConfig struct {
	APIKey string
	Logger *slog.Logger // Optional: defaults to slog.Default()
}

// NewEasyPostProvider creates an EasyPost shipping provider.
func NewEasyPostProvider(cfg EasyPostConfig) (*EasyPostProvider, error) {
	if cfg.APIKey == "" {
		return nil, ErrMissingAPIKey
	}

	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	return &EasyPostProvider{
		client: easypost.New(cfg.APIKey),
		logger: logger,
	}, nil
}

// Name identifies the provider in logs and metrics.
func (p *EasyPostProvider) Name() string { return "easypost" }

// GetRates returns available shipping options for a shipment. Only
// single-package shipments are supported.
func (p *EasyPostProvider) GetRates(ctx context.Context, params RateParams) ([]Rate, error) {
	if params.TenantID == "" {
		return nil, ErrTenantRequired
	}
	if params.OriginAddress.Line1 == "" {
		return nil, ErrOriginRequired
	}
	if len(params.Packages) == 0 {
		return nil, ErrNoPackages
	}
	if len(params.Packages) > 1 {
		return nil, ErrMultiPackageNotSupported
	}

	logger := p.logger.With(
		slog.String("tenant_id", params.TenantID),
		slog.String("destination_country", params.DestinationAddress.Country),
		slog.String("destination_state", params.DestinationAddress.State),
	)

	// The tenant travels in the shipment reference so later lookups can
	// verify ownership.
	shipment, err := p.client.CreateShipment(&easypost.Shipment{
		FromAddress: toEasyPostAddress(params.OriginAddress),
		ToAddress:   toEasyPostAddress(params.DestinationAddress),
		Parcel:      toEasyPostParcel(params.Packages[0]),
		Reference:   params.TenantID,
	})
	if err != nil {
		logger.Error("easypost shipment creation failed", slog.Any("error", err))
		return nil, fmt.Errorf("%w: %v", ErrProviderUnavailable, err)
	}

	if len(shipment.Rates) == 0 {
		logger.Warn("no rates available for shipment")
		return nil, ErrNoRates
	}

	rates := make([]Rate, 0, len(shipment.Rates))
	for _, r := range shipment.Rates {
		rate, err := fromEasyPostRate(r)
		if err != nil {
			logger.Warn("skipping unparseable rate",
				slog.String("carrier", r.Carrier), slog.Any("error", err))
			continue
		}
		rates = append(rates, rate)
	}

	if len(params.ServiceTypes) > 0 {
		rates = filterRatesByService(rates, params.ServiceTypes)
	}

	logger.Info("carrier rates fetched",
		slog.Int("rate_count", len(rates)),
		slog.String("shipment_id", shipment.ID))
	return rates, nil
}

func toEasyPostAddress(addr Address) *easypost.Address {
	return &easypost.Address{
		Name:    addr.Name,
		Company: addr.Company,
		Street1: addr.Line1,
		Street2: addr.Line2,
		City:    addr.City,
		State:   addr.State,
		Zip:     addr.PostalCode,
		Country: addr.Country,
		Phone:   addr.Phone,
	}
}

// toEasyPostParcel converts a metric Package to an imperial EasyPost parcel.
func toEasyPostParcel(pkg Package) *easypost.Parcel {
	return &easypost.Parcel{
		Length: cmToInches(pkg.LengthCm),
		Width:  cmToInches(pkg.WidthCm),
		Height: cmToInches(pkg.HeightCm),
		Weight: gramsToOunces(pkg.WeightGrams),
	}
}

func fromEasyPostRate(r *easypost.Rate) (Rate, error) {
	cost, err := decimal.NewFromString(r.Rate)
	if err != nil {
		return Rate{}, fmt.Errorf("parse rate amount %q: %w", r.Rate, err)
	}

	daysMin, daysMax := 1, 5
	if r.DeliveryDays > 0 {
		daysMin, daysMax = r.DeliveryDays, r.DeliveryDays
	}

	var estDelivery time.Time
	if r.DeliveryDate != nil {
		estDelivery = r.DeliveryDate.AsTime()
	}
	if estDelivery.IsZero() {
		estDelivery = time.Now().AddDate(0, 0, daysMax)
	}

	return Rate{
		Carrier:               r.Carrier,
		ServiceName:           r.Service,
		ServiceCode:           r.Service,
		Cost:                  cost,
		Currency:              r.Currency,
		EstimatedDaysMin:      daysMin,
		EstimatedDaysMax:      daysMax,
		EstimatedDeliveryDate: estDelivery,
	}, nil
}

func filterRatesByService(rates []Rate, services []string) []Rate {
	serviceSet := make(map[string]bool, len(services))
	for _, s := range services {
		serviceSet[s] = true
	}

	var filtered []Rate
	for _, r := range rates {
		if serviceSet[r.ServiceCode] {
			filtered = append(filtered, r)
		}
	}
	return filtered
}

func cmToInches(cm int32) float64 {
	return float64(cm) * cmToInchRatio
}

func gramsToOunces(grams int32) float64 {
	return float64(grams) * gramsToOzRatio
}

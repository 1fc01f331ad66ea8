// Package shipping defines the carrier rate-quote boundary. Implementations
// integrate real carriers; the flat-rate provider serves stores that ship at
// fixed prices.
package shipping

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
)

// Provider quotes shipping rates for a shipment.
type Provider interface {
	// Name identifies the provider in logs and metrics.
	Name() string

	// GetRates returns available shipping options for a shipment.
	GetRates(ctx context.Context, params RateParams) ([]Rate, error)
}

// RateParams contains parameters for calculating shipping rates.
type RateParams struct {
	TenantID           string
	OriginAddress      Address
	DestinationAddress Address
	Packages           []Package
	ServiceTypes       []string // Optional filter for specific service types
}

// Address is a shipping address.
type Address struct {
	Name       string
	Company    string
	Line1      string
	Line2      string
	City       string
	State      string
	PostalCode string
	Country    string
	Phone      string
}

// Package represents a physical package to be shipped.
type Package struct {
	WeightGrams int32
	LengthCm    int32
	WidthCm     int32
	HeightCm    int32
}

// Rate represents a single shipping rate option.
type Rate struct {
	Carrier               string
	ServiceName           string
	ServiceCode           string
	Cost                  decimal.Decimal
	Currency              string
	EstimatedDaysMin      int
	EstimatedDaysMax      int
	EstimatedDeliveryDate time.Time
}

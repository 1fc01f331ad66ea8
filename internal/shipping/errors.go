package shipping

import "errors"

var (
	// ErrTenantRequired is returned when rate params omit the tenant id.
	ErrTenantRequired = errors.New("tenant id required")

	// ErrNoPackages is returned when rate params contain no packages.
	ErrNoPackages = errors.New("at least one package required")

	// ErrProviderUnavailable is returned when a provider cannot be reached.
	ErrProviderUnavailable = errors.New("shipping provider unavailable")

	// ErrMissingAPIKey is returned when a carrier provider is configured
	// without credentials.
	ErrMissingAPIKey = errors.New("carrier api key required")

	// ErrOriginRequired is returned when rate params omit the origin address.
	ErrOriginRequired = errors.New("origin address required")

	// ErrMultiPackageNotSupported is returned for multi-package shipments.
	ErrMultiPackageNotSupported = errors.New("multi-package shipments not supported")

	// ErrNoRates is returned when a carrier quotes no rates for a shipment.
	ErrNoRates = errors.New("no rates available")
)

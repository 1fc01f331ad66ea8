package service

import (
	"context"
	"log/slog"
	"sort"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/noirlabs/noir/internal/shipping"
	"github.com/noirlabs/noir/internal/telemetry"
)

// providerTimeout bounds each provider call so one slow carrier cannot stall
// the whole quote.
const providerTimeout = 10 * time.Second

// RateQuoteService fans a rate request out to every configured shipping
// provider concurrently and merges the results. A provider failure drops that
// provider's rates from the quote; only when every provider fails does the
// quote itself fail.
type RateQuoteService struct {
	providers []shipping.Provider
	metrics   *telemetry.BusinessMetrics
	logger    *slog.Logger
	tenantID  string
}

// NewRateQuoteService creates a rate quote service scoped to one tenant.
func NewRateQuoteService(
	providers []shipping.Provider,
	tenantID string,
	metrics *telemetry.BusinessMetrics,
	logger *slog.Logger,
) *RateQuoteService {
	return &RateQuoteService{
		providers: providers,
		metrics:   metrics,
		logger:    logger.With(slog.String("service", "rates"), slog.String("tenant_id", tenantID)),
		tenantID:  tenantID,
	}
}

// GetRates queries all providers and returns the merged rates sorted by cost
// ascending.
func (s *RateQuoteService) GetRates(ctx context.Context, params shipping.RateParams) ([]shipping.Rate, error) {
	const op = "service.rates.get"

	params.TenantID = s.tenantID
	s.metrics.RateQuoteRequests.WithLabelValues(s.tenantID).Inc()

	var (
		mu    sync.Mutex
		rates []shipping.Rate
	)

	g, gctx := errgroup.WithContext(ctx)
	for _, provider := range s.providers {
		g.Go(func() error {
			pctx, cancel := context.WithTimeout(gctx, providerTimeout)
			defer cancel()

			result, err := provider.GetRates(pctx, params)
			if err != nil {
				// Degrade instead of failing the quote; the error is
				// recorded and the remaining providers still count.
				s.metrics.RateProviderErrors.WithLabelValues(s.tenantID, provider.Name()).Inc()
				s.logger.Warn("shipping provider failed",
					slog.String("provider", provider.Name()),
					slog.Any("error", err))
				return nil
			}

			mu.Lock()
			rates = append(rates, result...)
			mu.Unlock()
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	if len(rates) == 0 {
		return nil, ErrNoRatesAvailable.WithOp(op)
	}

	sort.Slice(rates, func(i, j int) bool {
		return rates[i].Cost.LessThan(rates[j].Cost)
	})
	return rates, nil
}

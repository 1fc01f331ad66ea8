package service

import (
	"context"
	"log/slog"
	"strings"

	"github.com/google/uuid"

	"github.com/noirlabs/noir/internal/domain"
	"github.com/noirlabs/noir/internal/repository"
	"github.com/noirlabs/noir/internal/telemetry"
)

// InventoryService records stock movements and reads the movement ledger for
// a single tenant.
type InventoryService struct {
	store    repository.InventoryStore
	metrics  *telemetry.BusinessMetrics
	logger   *slog.Logger
	tenantID string
}

// NewInventoryService creates an inventory service scoped to one tenant.
func NewInventoryService(
	store repository.InventoryStore,
	tenantID string,
	metrics *telemetry.BusinessMetrics,
	logger *slog.Logger,
) *InventoryService {
	return &InventoryService{
		store:    store,
		metrics:  metrics,
		logger:   logger.With(slog.String("service", "inventory"), slog.String("tenant_id", tenantID)),
		tenantID: tenantID,
	}
}

// RegisterVariant creates the stock record for a product variant so
// movements and reservations can be recorded against it. Idempotent:
// registering a known variant changes nothing.
func (s *InventoryService) RegisterVariant(ctx context.Context, variantID, productID uuid.UUID, sku string) error {
	const op = "service.inventory.register_variant"

	if strings.TrimSpace(sku) == "" {
		return domain.Errorf(domain.EINVALID, op, "sku is required")
	}
	if err := s.store.RegisterVariant(ctx, s.tenantID, variantID, productID, sku); err != nil {
		return err
	}

	s.logger.Info("variant registered",
		slog.String("variant_id", variantID.String()),
		slog.String("sku", sku))
	return nil
}

// StockLevel returns the current on-hand quantity for a variant.
func (s *InventoryService) StockLevel(ctx context.Context, variantID uuid.UUID) (int32, error) {
	level, err := s.store.StockLevel(ctx, s.tenantID, variantID)
	if err != nil {
		if domain.ErrorCode(err) == domain.ENOTFOUND {
			return 0, ErrVariantNotFound.WithOp("service.inventory.stock_level")
		}
		return 0, err
	}
	return level, nil
}

// RecordMovement appends a movement to the ledger and applies its delta to
// the variant's stock counter. The reference ties the movement to its cause
// (an order number, a stocktake id).
func (s *InventoryService) RecordMovement(
	ctx context.Context,
	variantID uuid.UUID,
	movementType domain.MovementType,
	quantity int32,
	reference string,
) (*domain.InventoryMovement, error) {
	const op = "service.inventory.record"

	movement, err := s.store.Record(ctx, s.tenantID, variantID, movementType, quantity, reference, uuid.New())
	if err != nil {
		switch domain.ErrorCode(err) {
		case domain.ENOTFOUND:
			return nil, ErrVariantNotFound.WithOp(op)
		case domain.ECONFLICT:
			s.metrics.InsufficientStock.WithLabelValues(s.tenantID).Inc()
		}
		return nil, err
	}

	s.metrics.StockMovements.WithLabelValues(s.tenantID, string(movementType)).Inc()
	s.logger.Info("stock movement recorded",
		slog.String("variant_id", variantID.String()),
		slog.String("movement_type", string(movementType)),
		slog.Int("quantity", int(quantity)),
		slog.Int("quantity_after", int(movement.QuantityAfter)))
	return movement, nil
}

// ListMovements returns the movement ledger for a variant, newest first.
func (s *InventoryService) ListMovements(ctx context.Context, variantID uuid.UUID, limit, offset int32) ([]domain.InventoryMovement, error) {
	if limit <= 0 || limit > 200 {
		limit = 50
	}
	if offset < 0 {
		offset = 0
	}
	return s.store.ListMovements(ctx, s.tenantID, variantID, limit, offset)
}

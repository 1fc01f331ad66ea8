package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/noirlabs/noir/internal/domain"
)

// InventoryStore is the pgx implementation of repository.InventoryStore.
type InventoryStore struct {
	pool *pgxpool.Pool
}

// NewInventoryStore creates an InventoryStore backed by the given pool.
func NewInventoryStore(pool *pgxpool.Pool) *InventoryStore {
	return &InventoryStore{pool: pool}
}

// RegisterVariant creates the product_skus row a variant's ledger hangs off.
// Safe to call repeatedly; existing rows are left untouched.
func (s *InventoryStore) RegisterVariant(ctx context.Context, tenantID string, variantID, productID uuid.UUID, sku string) error {
	const op = "postgres.inventory.register_variant"

	tenant, err := parseTenantID(tenantID)
	if err != nil {
		return domain.Internal(err, op, "invalid tenant id")
	}

	_, err = s.pool.Exec(ctx, `
		INSERT INTO product_skus (id, tenant_id, sku, product_id, stock_quantity)
		VALUES ($1, $2, $3, $4, 0)
		ON CONFLICT DO NOTHING`,
		pgUUID(variantID), tenant, sku, pgUUID(productID))
	if err != nil {
		return domain.Internal(err, op, "failed to register variant")
	}
	return nil
}

// StockLevel returns the current on-hand quantity for a variant.
func (s *InventoryStore) StockLevel(ctx context.Context, tenantID string, variantID uuid.UUID) (int32, error) {
	const op = "postgres.inventory.stock_level"

	tenant, err := parseTenantID(tenantID)
	if err != nil {
		return 0, domain.Internal(err, op, "invalid tenant id")
	}

	var level int32
	err = s.pool.QueryRow(ctx,
		`SELECT stock_quantity FROM product_skus WHERE tenant_id = $1 AND id = $2`,
		tenant, pgUUID(variantID)).Scan(&level)
	if errors.Is(err, pgx.ErrNoRows) {
		return 0, domain.NotFound(op, "product variant", variantID.String())
	}
	if err != nil {
		return 0, domain.Internal(err, op, "failed to read stock level")
	}
	return level, nil
}

// Record appends one movement and applies its delta to the stock counter in
// the same transaction. Before/after quantities are computed under the row
// lock so concurrent writers serialize through Postgres.
func (s *InventoryStore) Record(ctx context.Context, tenantID string, variantID uuid.UUID, movementType domain.MovementType, quantity int32, reference string, correlationID uuid.UUID) (*domain.InventoryMovement, error) {
	const op = "postgres.inventory.record"

	tenant, err := parseTenantID(tenantID)
	if err != nil {
		return nil, domain.Internal(err, op, "invalid tenant id")
	}

	var movement *domain.InventoryMovement
	err = withTx(ctx, s.pool, func(tx pgx.Tx) error {
		m, err := lockAndMove(ctx, tx, tenant, tenantID, variantID,
			movementType, quantity, reference, correlationID)
		if err != nil {
			return err
		}
		movement = m
		return nil
	})
	if err != nil {
		var derr *domain.Error
		if errors.As(err, &derr) {
			return nil, err
		}
		return nil, domain.Internal(err, op, "failed to record movement")
	}
	return movement, nil
}

// ListMovements returns the ledger for a variant, newest first.
func (s *InventoryStore) ListMovements(ctx context.Context, tenantID string, variantID uuid.UUID, limit, offset int32) ([]domain.InventoryMovement, error) {
	const op = "postgres.inventory.list_movements"

	tenant, err := parseTenantID(tenantID)
	if err != nil {
		return nil, domain.Internal(err, op, "invalid tenant id")
	}
	if limit <= 0 || limit > 500 {
		limit = 50
	}

	rows, err := s.pool.Query(ctx, `
		SELECT id, product_variant_id, movement_type, quantity_before,
		       quantity_moved, quantity_after, reference, correlation_id, created_at
		FROM inventory_movements
		WHERE tenant_id = $1 AND product_variant_id = $2
		ORDER BY created_at DESC
		LIMIT $3 OFFSET $4`,
		tenant, pgUUID(variantID), limit, max32(offset, 0))
	if err != nil {
		return nil, domain.Internal(err, op, "failed to list movements")
	}
	defer rows.Close()

	var movements []domain.InventoryMovement
	for rows.Next() {
		var (
			m                  domain.InventoryMovement
			id, variant, corr  pgtype.UUID
			movementTypeRaw    string
		)
		if err := rows.Scan(&id, &variant, &movementTypeRaw, &m.QuantityBefore,
			&m.QuantityMoved, &m.QuantityAfter, &m.Reference, &corr, &m.CreatedAt); err != nil {
			return nil, domain.Internal(err, op, "failed to scan movement")
		}
		m.ID = id.Bytes
		m.TenantID = tenantID
		m.ProductVariantID = variant.Bytes
		m.MovementType = domain.MovementType(movementTypeRaw)
		m.CorrelationID = corr.Bytes
		movements = append(movements, m)
	}
	return movements, rows.Err()
}

// applyMovementTx is the shared write path for stock-affecting operations:
// lock the sku row, build the movement from the locked quantity, append the
// ledger row and update the counter. Used by the order store inside its own
// transactions so reservations commit atomically with the order itself.
func applyMovementTx(ctx context.Context, tx pgx.Tx, tenant pgtype.UUID, tenantID string, variantID uuid.UUID, movementType domain.MovementType, quantity int32, reference string, correlationID uuid.UUID) error {
	_, err := lockAndMove(ctx, tx, tenant, tenantID, variantID, movementType, quantity, reference, correlationID)
	return err
}

func lockAndMove(ctx context.Context, tx pgx.Tx, tenant pgtype.UUID, tenantID string, variantID uuid.UUID, movementType domain.MovementType, quantity int32, reference string, correlationID uuid.UUID) (*domain.InventoryMovement, error) {
	const op = "postgres.inventory.move"

	var before int32
	err := tx.QueryRow(ctx, `
		SELECT stock_quantity FROM product_skus
		WHERE tenant_id = $1 AND id = $2
		FOR UPDATE`,
		tenant, pgUUID(variantID)).Scan(&before)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, domain.NotFound(op, "product variant", variantID.String())
	}
	if err != nil {
		return nil, fmt.Errorf("lock sku row: %w", err)
	}

	movement, err := domain.ApplyMovement(domain.NewMovementParams{
		TenantID:         tenantID,
		ProductVariantID: variantID,
		MovementType:     movementType,
		Quantity:         quantity,
		QuantityBefore:   before,
		Reference:        reference,
		CorrelationID:    correlationID,
	})
	if err != nil {
		return nil, err
	}

	_, err = tx.Exec(ctx, `
		INSERT INTO inventory_movements (
			id, tenant_id, product_variant_id, movement_type,
			quantity_before, quantity_moved, quantity_after,
			reference, correlation_id, created_at
		) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10)`,
		pgUUID(movement.ID), tenant, pgUUID(variantID), string(movement.MovementType),
		movement.QuantityBefore, movement.QuantityMoved, movement.QuantityAfter,
		movement.Reference, pgUUID(movement.CorrelationID), movement.CreatedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("insert movement: %w", err)
	}

	_, err = tx.Exec(ctx, `
		UPDATE product_skus SET stock_quantity = $3, updated_at = now()
		WHERE tenant_id = $1 AND id = $2`,
		tenant, pgUUID(variantID), movement.QuantityAfter)
	if err != nil {
		return nil, fmt.Errorf("update stock counter: %w", err)
	}

	return movement, nil
}

package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/noirlabs/noir/internal/domain"
	"github.com/noirlabs/noir/internal/repository"
)

// OrderStore is the pgx implementation of repository.OrderStore.
type OrderStore struct {
	pool *pgxpool.Pool
}

// NewOrderStore creates an OrderStore backed by the given pool.
func NewOrderStore(pool *pgxpool.Pool) *OrderStore {
	return &OrderStore{pool: pool}
}

const orderColumns = `
	id, tenant_id, order_number, customer_email, currency, status,
	sub_total::text, discount_amount::text, shipping_amount::text,
	tax_amount::text, grand_total::text,
	COALESCE(tracking_number, ''), COALESCE(shipping_carrier, ''),
	COALESCE(cancellation_reason, ''), COALESCE(return_reason, ''),
	created_at, confirmed_at, shipped_at, delivered_at, completed_at,
	cancelled_at, returned_at`

// Create inserts the order, its items, one Reservation movement per item and
// the stock decrements in a single transaction.
func (s *OrderStore) Create(ctx context.Context, tenantID string, order domain.OrderSnapshot, correlationID uuid.UUID) error {
	const op = "postgres.order.create"

	tenant, err := parseTenantID(tenantID)
	if err != nil {
		return domain.Internal(err, op, "invalid tenant id")
	}

	err = withTx(ctx, s.pool, func(tx pgx.Tx) error {
		_, err := tx.Exec(ctx, `
			INSERT INTO orders (
				id, tenant_id, order_number, customer_email, currency, status,
				sub_total, discount_amount, shipping_amount, tax_amount, grand_total,
				tracking_number, shipping_carrier, cancellation_reason, return_reason,
				created_at, confirmed_at, shipped_at, delivered_at, completed_at,
				cancelled_at, returned_at
			) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,$16,$17,$18,$19,$20,$21,$22)`,
			pgUUID(order.ID), tenant, order.OrderNumber, order.CustomerEmail,
			order.Currency, string(order.Status),
			order.SubTotal.String(), order.DiscountAmount.String(),
			order.ShippingAmount.String(), order.TaxAmount.String(),
			order.GrandTotal.String(),
			textOrNil(order.TrackingNumber), textOrNil(order.ShippingCarrier),
			textOrNil(order.CancellationReason), textOrNil(order.ReturnReason),
			order.CreatedAt, order.ConfirmedAt, order.ShippedAt, order.DeliveredAt,
			order.CompletedAt, order.CancelledAt, order.ReturnedAt,
		)
		if err != nil {
			if isUniqueViolation(err) {
				return repository.ErrDuplicateOrderNumber.WithOp(op)
			}
			return fmt.Errorf("insert order: %w", err)
		}

		for _, item := range order.Items {
			_, err := tx.Exec(ctx, `
				INSERT INTO order_items (
					id, tenant_id, order_id, product_id, variant_id,
					product_name, sku, unit_price, quantity, discount_amount
				) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10)`,
				pgUUID(item.ID), tenant, pgUUID(order.ID),
				pgUUID(item.ProductID), pgUUID(item.VariantID),
				item.ProductName, item.SKU,
				item.UnitPrice.Amount.String(), item.Quantity.Int32(),
				item.DiscountAmount.Amount.String(),
			)
			if err != nil {
				return fmt.Errorf("insert order item: %w", err)
			}

			if err := applyMovementTx(ctx, tx, tenant, tenantID, item.VariantID,
				domain.MovementReservation, item.Quantity.Int32(),
				order.OrderNumber, correlationID); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		var derr *domain.Error
		if errors.As(err, &derr) {
			return err
		}
		return domain.Internal(err, op, "failed to create order")
	}
	return nil
}

// Update persists a transitioned aggregate. The WHERE clause carries the
// status the aggregate was loaded with, so a concurrent transition that
// committed first makes this write match zero rows instead of clobbering it.
// Items are immutable after Pending and are not rewritten.
func (s *OrderStore) Update(ctx context.Context, tenantID string, order domain.OrderSnapshot, from domain.OrderStatus) error {
	const op = "postgres.order.update"

	tenant, err := parseTenantID(tenantID)
	if err != nil {
		return domain.Internal(err, op, "invalid tenant id")
	}

	tag, err := s.pool.Exec(ctx, `
		UPDATE orders SET
			status = $3,
			sub_total = $4, discount_amount = $5, shipping_amount = $6,
			tax_amount = $7, grand_total = $8,
			tracking_number = $9, shipping_carrier = $10,
			cancellation_reason = $11, return_reason = $12,
			confirmed_at = $13, shipped_at = $14, delivered_at = $15,
			completed_at = $16, cancelled_at = $17, returned_at = $18
		WHERE tenant_id = $1 AND id = $2 AND status = $19`,
		tenant, pgUUID(order.ID), string(order.Status),
		order.SubTotal.String(), order.DiscountAmount.String(),
		order.ShippingAmount.String(), order.TaxAmount.String(),
		order.GrandTotal.String(),
		textOrNil(order.TrackingNumber), textOrNil(order.ShippingCarrier),
		textOrNil(order.CancellationReason), textOrNil(order.ReturnReason),
		order.ConfirmedAt, order.ShippedAt, order.DeliveredAt,
		order.CompletedAt, order.CancelledAt, order.ReturnedAt,
		string(from),
	)
	if err != nil {
		return domain.Internal(err, op, "failed to update order")
	}
	if tag.RowsAffected() == 0 {
		return staleOrMissing(ctx, s.pool, op, tenant, order.ID)
	}
	return nil
}

// staleOrMissing classifies a zero-row guarded update: the order either does
// not exist or its status moved on under a concurrent transition.
func staleOrMissing(ctx context.Context, q rowQuerier, op string, tenant pgtype.UUID, id uuid.UUID) error {
	var exists bool
	err := q.QueryRow(ctx,
		`SELECT EXISTS (SELECT 1 FROM orders WHERE tenant_id = $1 AND id = $2)`,
		tenant, pgUUID(id)).Scan(&exists)
	if err != nil {
		return domain.Internal(err, op, "failed to check order row")
	}
	if !exists {
		return domain.NotFound(op, "order", id.String())
	}
	return repository.ErrStaleOrder.WithOp(op)
}

// ReleaseAndUpdate persists a cancellation together with one
// ReservationRelease movement and stock restore per line item. The status
// guard keeps a racing transition from cancelling twice or releasing stock
// for an order that already moved on.
func (s *OrderStore) ReleaseAndUpdate(ctx context.Context, tenantID string, order domain.OrderSnapshot, from domain.OrderStatus, correlationID uuid.UUID) error {
	const op = "postgres.order.release"

	tenant, err := parseTenantID(tenantID)
	if err != nil {
		return domain.Internal(err, op, "invalid tenant id")
	}

	err = withTx(ctx, s.pool, func(tx pgx.Tx) error {
		tag, err := tx.Exec(ctx, `
			UPDATE orders SET
				status = $3, cancellation_reason = $4, cancelled_at = $5
			WHERE tenant_id = $1 AND id = $2 AND status = $6`,
			tenant, pgUUID(order.ID), string(order.Status),
			textOrNil(order.CancellationReason), order.CancelledAt,
			string(from),
		)
		if err != nil {
			return fmt.Errorf("update order: %w", err)
		}
		if tag.RowsAffected() == 0 {
			return staleOrMissing(ctx, tx, op, tenant, order.ID)
		}

		for _, item := range order.Items {
			if err := applyMovementTx(ctx, tx, tenant, tenantID, item.VariantID,
				domain.MovementReservationRelease, item.Quantity.Int32(),
				order.OrderNumber, correlationID); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		var derr *domain.Error
		if errors.As(err, &derr) {
			return err
		}
		return domain.Internal(err, op, "failed to cancel order")
	}
	return nil
}

// Get loads an order with its items by id.
func (s *OrderStore) Get(ctx context.Context, tenantID string, id uuid.UUID) (domain.OrderSnapshot, error) {
	const op = "postgres.order.get"

	tenant, err := parseTenantID(tenantID)
	if err != nil {
		return domain.OrderSnapshot{}, domain.Internal(err, op, "invalid tenant id")
	}

	row := s.pool.QueryRow(ctx,
		`SELECT `+orderColumns+` FROM orders WHERE tenant_id = $1 AND id = $2`,
		tenant, pgUUID(id))
	snap, err := scanOrder(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.OrderSnapshot{}, domain.NotFound(op, "order", id.String())
		}
		return domain.OrderSnapshot{}, domain.Internal(err, op, "failed to load order")
	}

	if snap.Items, err = s.loadItems(ctx, tenant, snap.ID); err != nil {
		return domain.OrderSnapshot{}, domain.Internal(err, op, "failed to load order items")
	}
	return snap, nil
}

// GetByNumber loads an order with its items by order number.
func (s *OrderStore) GetByNumber(ctx context.Context, tenantID string, orderNumber string) (domain.OrderSnapshot, error) {
	const op = "postgres.order.get_by_number"

	tenant, err := parseTenantID(tenantID)
	if err != nil {
		return domain.OrderSnapshot{}, domain.Internal(err, op, "invalid tenant id")
	}

	row := s.pool.QueryRow(ctx,
		`SELECT `+orderColumns+` FROM orders WHERE tenant_id = $1 AND order_number = $2`,
		tenant, orderNumber)
	snap, err := scanOrder(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.OrderSnapshot{}, domain.NotFound(op, "order", orderNumber)
		}
		return domain.OrderSnapshot{}, domain.Internal(err, op, "failed to load order")
	}

	if snap.Items, err = s.loadItems(ctx, tenant, snap.ID); err != nil {
		return domain.OrderSnapshot{}, domain.Internal(err, op, "failed to load order items")
	}
	return snap, nil
}

// List returns orders matching the filter, newest first, without items.
func (s *OrderStore) List(ctx context.Context, tenantID string, filter repository.OrderFilter) ([]domain.OrderSnapshot, error) {
	const op = "postgres.order.list"

	tenant, err := parseTenantID(tenantID)
	if err != nil {
		return nil, domain.Internal(err, op, "invalid tenant id")
	}

	limit := filter.Limit
	if limit <= 0 || limit > 500 {
		limit = 50
	}

	query := `SELECT ` + orderColumns + ` FROM orders WHERE tenant_id = $1`
	args := []any{tenant}
	if filter.Status != "" {
		query += ` AND status = $2`
		args = append(args, string(filter.Status))
	}
	query += fmt.Sprintf(` ORDER BY created_at DESC LIMIT %d OFFSET %d`, limit, max32(filter.Offset, 0))

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, domain.Internal(err, op, "failed to list orders")
	}
	defer rows.Close()

	var orders []domain.OrderSnapshot
	for rows.Next() {
		snap, err := scanOrder(rows)
		if err != nil {
			return nil, domain.Internal(err, op, "failed to scan order")
		}
		orders = append(orders, snap)
	}
	return orders, rows.Err()
}

// Count returns the total number of orders matching the filter.
func (s *OrderStore) Count(ctx context.Context, tenantID string, filter repository.OrderFilter) (int64, error) {
	const op = "postgres.order.count"

	tenant, err := parseTenantID(tenantID)
	if err != nil {
		return 0, domain.Internal(err, op, "invalid tenant id")
	}

	query := `SELECT COUNT(*) FROM orders WHERE tenant_id = $1`
	args := []any{tenant}
	if filter.Status != "" {
		query += ` AND status = $2`
		args = append(args, string(filter.Status))
	}

	var count int64
	if err := s.pool.QueryRow(ctx, query, args...).Scan(&count); err != nil {
		return 0, domain.Internal(err, op, "failed to count orders")
	}
	return count, nil
}

// LatestOrderNumber returns the highest order number with the given prefix,
// or "" when none exists. Ordering by length before value keeps numeric order
// once sequences outgrow the zero-padded width.
func (s *OrderStore) LatestOrderNumber(ctx context.Context, tenantID string, prefix string) (string, error) {
	const op = "postgres.order.latest_number"

	tenant, err := parseTenantID(tenantID)
	if err != nil {
		return "", domain.Internal(err, op, "invalid tenant id")
	}

	var number string
	err = s.pool.QueryRow(ctx, `
		SELECT order_number FROM orders
		WHERE tenant_id = $1 AND order_number LIKE $2 || '%'
		ORDER BY length(order_number) DESC, order_number DESC
		LIMIT 1`,
		tenant, prefix).Scan(&number)
	if errors.Is(err, pgx.ErrNoRows) {
		return "", nil
	}
	if err != nil {
		return "", domain.Internal(err, op, "failed to query latest order number")
	}
	return number, nil
}

func (s *OrderStore) loadItems(ctx context.Context, tenant pgtype.UUID, orderID uuid.UUID) ([]domain.OrderItem, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT oi.id, oi.product_id, oi.variant_id, oi.product_name, oi.sku,
		       oi.unit_price::text, oi.quantity, oi.discount_amount::text,
		       o.currency
		FROM order_items oi
		JOIN orders o ON o.id = oi.order_id
		WHERE oi.tenant_id = $1 AND oi.order_id = $2
		ORDER BY oi.created_at`,
		tenant, pgUUID(orderID))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var items []domain.OrderItem
	for rows.Next() {
		var (
			item                        domain.OrderItem
			id, productID, variantID    pgtype.UUID
			unitPrice, discount, curr   string
			quantity                    int32
		)
		if err := rows.Scan(&id, &productID, &variantID, &item.ProductName,
			&item.SKU, &unitPrice, &quantity, &discount, &curr); err != nil {
			return nil, err
		}
		item.ID = id.Bytes
		item.ProductID = productID.Bytes
		item.VariantID = variantID.Bytes
		item.UnitPrice = domain.Money{Amount: parseNumeric(unitPrice), Currency: curr}
		item.DiscountAmount = domain.Money{Amount: parseNumeric(discount), Currency: curr}
		item.Quantity = domain.Quantity(quantity)
		items = append(items, item)
	}
	return items, rows.Err()
}

// scanOrder reads one order row in orderColumns order.
func scanOrder(row pgx.Row) (domain.OrderSnapshot, error) {
	var (
		snap               domain.OrderSnapshot
		id, tenant         pgtype.UUID
		status             string
		sub, disc, ship    string
		tax, grand         string
		confirmed, shipped pgtype.Timestamptz
		delivered, done    pgtype.Timestamptz
		cancelled, ret     pgtype.Timestamptz
	)

	err := row.Scan(&id, &tenant, &snap.OrderNumber, &snap.CustomerEmail,
		&snap.Currency, &status, &sub, &disc, &ship, &tax, &grand,
		&snap.TrackingNumber, &snap.ShippingCarrier,
		&snap.CancellationReason, &snap.ReturnReason,
		&snap.CreatedAt, &confirmed, &shipped, &delivered, &done, &cancelled, &ret)
	if err != nil {
		return snap, err
	}

	snap.ID = id.Bytes
	snap.TenantID = uuid.UUID(tenant.Bytes).String()
	snap.Status = domain.OrderStatus(status)
	snap.SubTotal = parseNumeric(sub)
	snap.DiscountAmount = parseNumeric(disc)
	snap.ShippingAmount = parseNumeric(ship)
	snap.TaxAmount = parseNumeric(tax)
	snap.GrandTotal = parseNumeric(grand)
	snap.ConfirmedAt = tsPtr(confirmed)
	snap.ShippedAt = tsPtr(shipped)
	snap.DeliveredAt = tsPtr(delivered)
	snap.CompletedAt = tsPtr(done)
	snap.CancelledAt = tsPtr(cancelled)
	snap.ReturnedAt = tsPtr(ret)
	return snap, nil
}

func tsPtr(ts pgtype.Timestamptz) *time.Time {
	if !ts.Valid {
		return nil
	}
	t := ts.Time
	return &t
}

func max32(a, b int32) int32 {
	if a > b {
		return a
	}
	return b
}

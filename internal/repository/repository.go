// Package repository defines the persistence boundary consumed by the order
// and inventory services. Implementations live in internal/postgres; every
// method takes an explicit tenant id; there is no ambient tenant filter.
package repository

import (
	"context"

	"github.com/google/uuid"

	"github.com/noirlabs/noir/internal/domain"
)

// ErrDuplicateOrderNumber is returned by OrderStore.Create when the
// (tenant_id, order_number) uniqueness constraint rejects the insert. The
// caller regenerates the number and retries.
var ErrDuplicateOrderNumber = &domain.Error{
	Code:    domain.ECONFLICT,
	Ref:     "NOIR-ORDER-014",
	Message: "Order number already exists for this tenant",
}

// ErrStaleOrder is returned by OrderStore.Update and ReleaseAndUpdate when
// the order row no longer holds the status the aggregate was loaded with; a
// concurrent transition won the write and the caller's copy is stale.
var ErrStaleOrder = &domain.Error{
	Code:    domain.ECONFLICT,
	Ref:     "NOIR-ORDER-017",
	Message: "Order was modified concurrently",
}

// OrderFilter narrows order listings.
type OrderFilter struct {
	// Status filters by exact status when non-empty.
	Status domain.OrderStatus

	Limit  int32
	Offset int32
}

// OrderStore persists order aggregates and their stock side effects.
//
// Create and ReleaseAndUpdate pair the order write with ledger appends and
// stock-counter updates in a single transaction: reservations never commit
// without their movements and vice versa.
type OrderStore interface {
	// Create inserts the order, its items, one Reservation movement per item,
	// and the matching stock decrements atomically. Returns
	// ErrDuplicateOrderNumber on an order-number conflict and an
	// insufficient-stock conflict when any variant lacks inventory.
	Create(ctx context.Context, tenantID string, order domain.OrderSnapshot, correlationID uuid.UUID) error

	// Update persists a transitioned aggregate (status, timestamps, tracking,
	// reasons). The write is guarded by from, the status the aggregate was
	// loaded with; ErrStaleOrder is returned when a concurrent transition
	// changed the row first. Items are immutable after Pending and are not
	// rewritten.
	Update(ctx context.Context, tenantID string, order domain.OrderSnapshot, from domain.OrderStatus) error

	// ReleaseAndUpdate persists a cancellation: the order update plus one
	// ReservationRelease movement and stock restore per item, atomically.
	// Guarded by from the same way as Update.
	ReleaseAndUpdate(ctx context.Context, tenantID string, order domain.OrderSnapshot, from domain.OrderStatus, correlationID uuid.UUID) error

	// Get loads an order with its items by id.
	Get(ctx context.Context, tenantID string, id uuid.UUID) (domain.OrderSnapshot, error)

	// GetByNumber loads an order with its items by order number.
	GetByNumber(ctx context.Context, tenantID string, orderNumber string) (domain.OrderSnapshot, error)

	// List returns orders matching the filter, newest first, without items.
	List(ctx context.Context, tenantID string, filter OrderFilter) ([]domain.OrderSnapshot, error)

	// Count returns the total number of orders matching the filter.
	Count(ctx context.Context, tenantID string, filter OrderFilter) (int64, error)

	// LatestOrderNumber returns the highest existing order number with the
	// given prefix for the tenant, or "" when none exists.
	LatestOrderNumber(ctx context.Context, tenantID string, prefix string) (string, error)
}

// InventoryStore persists the append-only movement ledger and the live stock
// counters. There is deliberately no update or delete for movements.
type InventoryStore interface {
	// RegisterVariant creates the stock row for a product variant with zero
	// on-hand quantity. Registering an already-known variant is a no-op.
	RegisterVariant(ctx context.Context, tenantID string, variantID, productID uuid.UUID, sku string) error

	// StockLevel returns the current on-hand quantity for a variant.
	StockLevel(ctx context.Context, tenantID string, variantID uuid.UUID) (int32, error)

	// Record appends a movement and applies its delta to the stock counter in
	// one transaction. The movement's before/after quantities are recomputed
	// under the row lock, not trusted from the caller's earlier read.
	Record(ctx context.Context, tenantID string, variantID uuid.UUID, movementType domain.MovementType, quantity int32, reference string, correlationID uuid.UUID) (*domain.InventoryMovement, error)

	// ListMovements returns the ledger for a variant, newest first.
	ListMovements(ctx context.Context, tenantID string, variantID uuid.UUID, limit, offset int32) ([]domain.InventoryMovement, error)
}

package domain

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

// MovementType classifies a stock movement. The type determines the sign
// applied to the moved quantity when computing the resulting stock level.
type MovementType string

const (
	MovementStockIn            MovementType = "stock_in"
	MovementStockOut           MovementType = "stock_out"
	MovementAdjustment         MovementType = "adjustment"
	MovementReturn             MovementType = "return"
	MovementReservation        MovementType = "reservation"
	MovementReservationRelease MovementType = "reservation_release"
	MovementDamaged            MovementType = "damaged"
	MovementExpired            MovementType = "expired"
)

// Stable references for inventory business-rule violations.
const (
	RefStockMovementInvalid = "NOIR-STOCK-001"
	RefStockInsufficient    = "NOIR-STOCK-002"
)

// ValidMovementType reports whether t is a known movement type.
func ValidMovementType(t MovementType) bool {
	switch t {
	case MovementStockIn, MovementStockOut, MovementAdjustment, MovementReturn,
		MovementReservation, MovementReservationRelease, MovementDamaged, MovementExpired:
		return true
	}
	return false
}

// SignedDelta returns the change in stock for moving qty units under type t.
// Inbound types (stock in, return, reservation release) add stock; outbound
// types (stock out, reservation, damaged, expired) remove it. Adjustment is
// inbound; a downward adjustment is recorded as stock_out or damaged.
func SignedDelta(t MovementType, qty Quantity) int32 {
	switch t {
	case MovementStockIn, MovementReturn, MovementReservationRelease, MovementAdjustment:
		return qty.Int32()
	case MovementStockOut, MovementReservation, MovementDamaged, MovementExpired:
		return -qty.Int32()
	default:
		return 0
	}
}

// InventoryMovement is one append-only ledger record of a stock change.
// A movement is immutable once written; there is deliberately no API to
// update or delete one.
type InventoryMovement struct {
	ID               uuid.UUID
	TenantID         string
	ProductVariantID uuid.UUID
	MovementType     MovementType
	QuantityBefore   int32
	QuantityMoved    int32
	QuantityAfter    int32
	Reference        string
	CorrelationID    uuid.UUID
	CreatedAt        time.Time
}

// NewMovementParams are the inputs to ApplyMovement.
type NewMovementParams struct {
	TenantID         string
	ProductVariantID uuid.UUID
	MovementType     MovementType
	Quantity         int32
	QuantityBefore   int32
	Reference        string
	CorrelationID    uuid.UUID
}

// ApplyMovement builds a ledger record from the current stock level,
// enforcing QuantityAfter == QuantityBefore + SignedDelta(type, qty) and
// rejecting movements that would take stock below zero.
func ApplyMovement(params NewMovementParams) (*InventoryMovement, error) {
	const op = "inventory.apply_movement"

	if params.TenantID == "" {
		return nil, ErrTenantRequired.WithOp(op)
	}
	if !ValidMovementType(params.MovementType) {
		return nil, &Error{Code: EINVALID, Ref: RefStockMovementInvalid, Op: op,
			Message: fmt.Sprintf("unknown movement type %q", params.MovementType)}
	}
	qty, err := NewQuantity(params.Quantity)
	if err != nil {
		return nil, &Error{Code: EINVALID, Ref: RefStockMovementInvalid, Op: op,
			Message: "moved quantity must be greater than zero"}
	}

	after := params.QuantityBefore + SignedDelta(params.MovementType, qty)
	if after < 0 {
		return nil, &Error{Code: ECONFLICT, Ref: RefStockInsufficient, Op: op,
			Message: fmt.Sprintf("insufficient stock: %d on hand, %d requested",
				params.QuantityBefore, params.Quantity)}
	}

	correlationID := params.CorrelationID
	if correlationID == uuid.Nil {
		correlationID = uuid.New()
	}

	return &InventoryMovement{
		ID:               uuid.New(),
		TenantID:         params.TenantID,
		ProductVariantID: params.ProductVariantID,
		MovementType:     params.MovementType,
		QuantityBefore:   params.QuantityBefore,
		QuantityMoved:    qty.Int32(),
		QuantityAfter:    after,
		Reference:        params.Reference,
		CorrelationID:    correlationID,
		CreatedAt:        time.Now().UTC(),
	}, nil
}

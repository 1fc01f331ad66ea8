package service

import "github.com/noirlabs/noir/internal/domain"

// Shared business errors surfaced by the services. Transition-specific
// violations come from the aggregate itself with their own references.
var (
	ErrOrderNotFound = &domain.Error{
		Code: domain.ENOTFOUND, Ref: "NOIR-ORDER-015",
		Message: "Order not found",
	}

	// ErrOrderNumberExhausted is returned when order creation keeps colliding
	// on the (tenant, order number) uniqueness constraint after retries.
	ErrOrderNumberExhausted = &domain.Error{
		Code: domain.ECONFLICT, Ref: "NOIR-ORDER-016",
		Message: "Could not allocate a unique order number, please retry",
	}

	ErrVariantNotFound = &domain.Error{
		Code: domain.ENOTFOUND, Ref: "NOIR-STOCK-003",
		Message: "Product variant not found",
	}

	// ErrNoRatesAvailable is returned when every shipping provider in the
	// fan-out failed.
	ErrNoRatesAvailable = &domain.Error{
		Code: domain.EINTERNAL, Ref: "NOIR-RATE-001",
		Message: "No shipping rates available",
	}

	ErrRefundGatewayFailed = &domain.Error{
		Code: domain.EINTERNAL, Ref: "NOIR-PAY-001",
		Message: "Payment gateway refused the refund",
	}
)

package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/noirlabs/noir/internal/domain"
)

// InventoryService is the application-layer surface the inventory endpoints
// consume.
type InventoryService interface {
	RegisterVariant(ctx context.Context, variantID, productID uuid.UUID, sku string) error
	StockLevel(ctx context.Context, variantID uuid.UUID) (int32, error)
	RecordMovement(ctx context.Context, variantID uuid.UUID, movementType domain.MovementType, quantity int32, reference string) (*domain.InventoryMovement, error)
	ListMovements(ctx context.Context, variantID uuid.UUID, limit, offset int32) ([]domain.InventoryMovement, error)
}

// InventoryHandler serves stock levels and the movement ledger.
type InventoryHandler struct {
	inventory InventoryService
}

// NewInventoryHandler creates an inventory handler.
func NewInventoryHandler(inventory InventoryService) *InventoryHandler {
	return &InventoryHandler{inventory: inventory}
}

type createVariantRequest struct {
	// ID is optional; the server assigns one when absent.
	ID        string `json:"id,omitempty" validate:"omitempty,uuid"`
	ProductID string `json:"product_id" validate:"required,uuid"`
	SKU       string `json:"sku" validate:"required"`
}

type variantResponse struct {
	ID            string `json:"id"`
	ProductID     string `json:"product_id"`
	SKU           string `json:"sku"`
	StockQuantity int32  `json:"stock_quantity"`
}

type recordMovementRequest struct {
	MovementType string `json:"movement_type" validate:"required"`
	Quantity     int32  `json:"quantity" validate:"required,gt=0"`
	Reference    string `json:"reference,omitempty"`
}

type movementResponse struct {
	ID             string    `json:"id"`
	VariantID      string    `json:"variant_id"`
	MovementType   string    `json:"movement_type"`
	QuantityBefore int32     `json:"quantity_before"`
	QuantityMoved  int32     `json:"quantity_moved"`
	QuantityAfter  int32     `json:"quantity_after"`
	Reference      string    `json:"reference,omitempty"`
	CorrelationID  string    `json:"correlation_id"`
	CreatedAt      time.Time `json:"created_at"`
}

type stockLevelResponse struct {
	VariantID     string `json:"variant_id"`
	StockQuantity int32  `json:"stock_quantity"`
}

func toMovementResponse(m domain.InventoryMovement) movementResponse {
	return movementResponse{
		ID:             m.ID.String(),
		VariantID:      m.ProductVariantID.String(),
		MovementType:   string(m.MovementType),
		QuantityBefore: m.QuantityBefore,
		QuantityMoved:  m.QuantityMoved,
		QuantityAfter:  m.QuantityAfter,
		Reference:      m.Reference,
		CorrelationID:  m.CorrelationID.String(),
		CreatedAt:      m.CreatedAt,
	}
}

// CreateVariant handles POST /variants. Variants must be registered before
// stock can be received or reserved against them.
func (h *InventoryHandler) CreateVariant(w http.ResponseWriter, r *http.Request) {
	var req createVariantRequest
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, r, err)
		return
	}

	variantID := uuid.New()
	if req.ID != "" {
		variantID = uuid.MustParse(req.ID)
	}
	productID := uuid.MustParse(req.ProductID)

	if err := h.inventory.RegisterVariant(r.Context(), variantID, productID, req.SKU); err != nil {
		respondError(w, r, err)
		return
	}
	respondJSON(w, http.StatusCreated, variantResponse{
		ID:            variantID.String(),
		ProductID:     productID.String(),
		SKU:           req.SKU,
		StockQuantity: 0,
	})
}

// StockLevel handles GET /variants/{id}/stock.
func (h *InventoryHandler) StockLevel(w http.ResponseWriter, r *http.Request) {
	variantID, err := pathUUID(r, "id")
	if err != nil {
		respondError(w, r, err)
		return
	}

	level, err := h.inventory.StockLevel(r.Context(), variantID)
	if err != nil {
		respondError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, stockLevelResponse{
		VariantID:     variantID.String(),
		StockQuantity: level,
	})
}

// RecordMovement handles POST /variants/{id}/movements.
func (h *InventoryHandler) RecordMovement(w http.ResponseWriter, r *http.Request) {
	variantID, err := pathUUID(r, "id")
	if err != nil {
		respondError(w, r, err)
		return
	}

	var req recordMovementRequest
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, r, err)
		return
	}

	movement, err := h.inventory.RecordMovement(r.Context(), variantID,
		domain.MovementType(req.MovementType), req.Quantity, req.Reference)
	if err != nil {
		respondError(w, r, err)
		return
	}
	respondJSON(w, http.StatusCreated, toMovementResponse(*movement))
}

// ListMovements handles GET /variants/{id}/movements.
func (h *InventoryHandler) ListMovements(w http.ResponseWriter, r *http.Request) {
	variantID, err := pathUUID(r, "id")
	if err != nil {
		respondError(w, r, err)
		return
	}

	movements, err := h.inventory.ListMovements(r.Context(), variantID,
		queryInt32(r, "limit"), queryInt32(r, "offset"))
	if err != nil {
		respondError(w, r, err)
		return
	}

	body := make([]movementResponse, len(movements))
	for i, movement := range movements {
		body[i] = toMovementResponse(movement)
	}
	respondJSON(w, http.StatusOK, map[string]any{"movements": body})
}

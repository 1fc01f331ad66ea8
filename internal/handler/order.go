package handler

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/noirlabs/noir/internal/billing"
	"github.com/noirlabs/noir/internal/domain"
	"github.com/noirlabs/noir/internal/repository"
	"github.com/noirlabs/noir/internal/service"
)

// OrderService is the application-layer surface the order endpoints consume.
type OrderService interface {
	CreateOrder(ctx context.Context, input service.CreateOrderInput) (*domain.Order, error)
	Get(ctx context.Context, id uuid.UUID) (*domain.Order, error)
	GetByNumber(ctx context.Context, orderNumber string) (*domain.Order, error)
	List(ctx context.Context, filter repository.OrderFilter) (*service.OrderPage, error)
	Confirm(ctx context.Context, id uuid.UUID) (*domain.Order, error)
	StartProcessing(ctx context.Context, id uuid.UUID) (*domain.Order, error)
	Ship(ctx context.Context, id uuid.UUID, trackingNumber, carrier string) (*domain.Order, error)
	MarkAsDelivered(ctx context.Context, id uuid.UUID) (*domain.Order, error)
	Complete(ctx context.Context, id uuid.UUID) (*domain.Order, error)
	Cancel(ctx context.Context, id uuid.UUID, reason string) (*domain.Order, error)
	Return(ctx context.Context, id uuid.UUID, reason string) (*domain.Order, error)
	Refund(ctx context.Context, id uuid.UUID, paymentIntentID string, amount decimal.Decimal, reason string) (*domain.Order, error)
	CreatePaymentIntent(ctx context.Context, id uuid.UUID) (*billing.PaymentIntent, error)
}

// OrderHandler serves the order lifecycle endpoints.
type OrderHandler struct {
	orders OrderService
}

// NewOrderHandler creates an order handler.
func NewOrderHandler(orders OrderService) *OrderHandler {
	return &OrderHandler{orders: orders}
}

type createOrderItemRequest struct {
	ProductID      string `json:"product_id" validate:"required,uuid"`
	VariantID      string `json:"variant_id" validate:"required,uuid"`
	ProductName    string `json:"product_name" validate:"required"`
	SKU            string `json:"sku" validate:"required"`
	UnitPrice      string `json:"unit_price" validate:"required"`
	Quantity       int32  `json:"quantity" validate:"required,gt=0"`
	DiscountAmount string `json:"discount_amount,omitempty"`
}

type createOrderRequest struct {
	CustomerEmail  string                   `json:"customer_email" validate:"required,email"`
	Currency       string                   `json:"currency" validate:"required,len=3"`
	Items          []createOrderItemRequest `json:"items" validate:"required,min=1,dive"`
	DiscountAmount string                   `json:"discount_amount,omitempty"`
	ShippingAmount string                   `json:"shipping_amount,omitempty"`
	TaxAmount      string                   `json:"tax_amount,omitempty"`
}

type shipOrderRequest struct {
	TrackingNumber string `json:"tracking_number" validate:"required"`
	Carrier        string `json:"carrier,omitempty"`
}

type reasonRequest struct {
	Reason string `json:"reason,omitempty"`
}

type refundOrderRequest struct {
	PaymentIntentID string `json:"payment_intent_id" validate:"required"`
	Amount          string `json:"amount" validate:"required"`
	Reason          string `json:"reason,omitempty"`
}

type paymentIntentResponse struct {
	ID           string `json:"id"`
	ClientSecret string `json:"client_secret"`
	Status       string `json:"status"`
	Amount       string `json:"amount"`
	Currency     string `json:"currency"`
}

type orderItemResponse struct {
	ID             string `json:"id"`
	ProductID      string `json:"product_id"`
	VariantID      string `json:"variant_id"`
	ProductName    string `json:"product_name"`
	SKU            string `json:"sku"`
	UnitPrice      string `json:"unit_price"`
	Quantity       int32  `json:"quantity"`
	DiscountAmount string `json:"discount_amount"`
	Total          string `json:"total"`
}

type orderResponse struct {
	ID                 string              `json:"id"`
	OrderNumber        string              `json:"order_number"`
	Status             string              `json:"status"`
	CustomerEmail      string              `json:"customer_email"`
	Currency           string              `json:"currency"`
	SubTotal           string              `json:"sub_total"`
	DiscountAmount     string              `json:"discount_amount"`
	ShippingAmount     string              `json:"shipping_amount"`
	TaxAmount          string              `json:"tax_amount"`
	GrandTotal         string              `json:"grand_total"`
	Items              []orderItemResponse `json:"items,omitempty"`
	TrackingNumber     string              `json:"tracking_number,omitempty"`
	ShippingCarrier    string              `json:"shipping_carrier,omitempty"`
	CancellationReason string              `json:"cancellation_reason,omitempty"`
	ReturnReason       string              `json:"return_reason,omitempty"`
	CreatedAt          time.Time           `json:"created_at"`
	ConfirmedAt        *time.Time          `json:"confirmed_at,omitempty"`
	ShippedAt          *time.Time          `json:"shipped_at,omitempty"`
	DeliveredAt        *time.Time          `json:"delivered_at,omitempty"`
	CompletedAt        *time.Time          `json:"completed_at,omitempty"`
	CancelledAt        *time.Time          `json:"cancelled_at,omitempty"`
	ReturnedAt         *time.Time          `json:"returned_at,omitempty"`
}

type orderListResponse struct {
	Orders []orderResponse `json:"orders"`
	Total  int64           `json:"total"`
}

func toOrderResponse(order *domain.Order) orderResponse {
	items := order.Items()
	itemBodies := make([]orderItemResponse, len(items))
	for i, item := range items {
		itemBodies[i] = orderItemResponse{
			ID:             item.ID.String(),
			ProductID:      item.ProductID.String(),
			VariantID:      item.VariantID.String(),
			ProductName:    item.ProductName,
			SKU:            item.SKU,
			UnitPrice:      item.UnitPrice.Amount.String(),
			Quantity:       item.Quantity.Int32(),
			DiscountAmount: item.DiscountAmount.Amount.String(),
			Total:          item.Total().Amount.String(),
		}
	}

	return orderResponse{
		ID:                 order.ID().String(),
		OrderNumber:        order.OrderNumber(),
		Status:             string(order.Status()),
		CustomerEmail:      order.CustomerEmail(),
		Currency:           order.Currency(),
		SubTotal:           order.SubTotal().Amount.String(),
		DiscountAmount:     order.DiscountAmount().Amount.String(),
		ShippingAmount:     order.ShippingAmount().Amount.String(),
		TaxAmount:          order.TaxAmount().Amount.String(),
		GrandTotal:         order.GrandTotal().Amount.String(),
		Items:              itemBodies,
		TrackingNumber:     order.TrackingNumber(),
		ShippingCarrier:    order.ShippingCarrier(),
		CancellationReason: order.CancellationReason(),
		ReturnReason:       order.ReturnReason(),
		CreatedAt:          order.CreatedAt(),
		ConfirmedAt:        order.ConfirmedAt(),
		ShippedAt:          order.ShippedAt(),
		DeliveredAt:        order.DeliveredAt(),
		CompletedAt:        order.CompletedAt(),
		CancelledAt:        order.CancelledAt(),
		ReturnedAt:         order.ReturnedAt(),
	}
}

// Create handles POST /orders.
func (h *OrderHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req createOrderRequest
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, r, err)
		return
	}

	input := service.CreateOrderInput{
		CustomerEmail: req.CustomerEmail,
		Currency:      req.Currency,
	}

	var err error
	if input.DiscountAmount, err = parseAmount("discount_amount", req.DiscountAmount); err != nil {
		respondError(w, r, err)
		return
	}
	if input.ShippingAmount, err = parseAmount("shipping_amount", req.ShippingAmount); err != nil {
		respondError(w, r, err)
		return
	}
	if input.TaxAmount, err = parseAmount("tax_amount", req.TaxAmount); err != nil {
		respondError(w, r, err)
		return
	}

	for _, item := range req.Items {
		unitPrice, err := parseAmount("unit_price", item.UnitPrice)
		if err != nil {
			respondError(w, r, err)
			return
		}
		itemDiscount, err := parseAmount("discount_amount", item.DiscountAmount)
		if err != nil {
			respondError(w, r, err)
			return
		}
		input.Items = append(input.Items, service.CreateOrderItemInput{
			ProductID:      uuid.MustParse(item.ProductID),
			VariantID:      uuid.MustParse(item.VariantID),
			ProductName:    item.ProductName,
			SKU:            item.SKU,
			UnitPrice:      unitPrice,
			Quantity:       item.Quantity,
			DiscountAmount: itemDiscount,
		})
	}

	order, err := h.orders.CreateOrder(r.Context(), input)
	if err != nil {
		respondError(w, r, err)
		return
	}
	respondJSON(w, http.StatusCreated, toOrderResponse(order))
}

// Get handles GET /orders/{id}.
func (h *OrderHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, err := pathUUID(r, "id")
	if err != nil {
		respondError(w, r, err)
		return
	}

	order, err := h.orders.Get(r.Context(), id)
	if err != nil {
		respondError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, toOrderResponse(order))
}

// GetByNumber handles GET /orders/number/{number}.
func (h *OrderHandler) GetByNumber(w http.ResponseWriter, r *http.Request) {
	order, err := h.orders.GetByNumber(r.Context(), r.PathValue("number"))
	if err != nil {
		respondError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, toOrderResponse(order))
}

// List handles GET /orders.
func (h *OrderHandler) List(w http.ResponseWriter, r *http.Request) {
	filter := repository.OrderFilter{
		Status: domain.OrderStatus(r.URL.Query().Get("status")),
		Limit:  queryInt32(r, "limit"),
		Offset: queryInt32(r, "offset"),
	}

	page, err := h.orders.List(r.Context(), filter)
	if err != nil {
		respondError(w, r, err)
		return
	}

	body := orderListResponse{Total: page.Total, Orders: make([]orderResponse, len(page.Orders))}
	for i, order := range page.Orders {
		body.Orders[i] = toOrderResponse(order)
	}
	respondJSON(w, http.StatusOK, body)
}

// CreatePaymentIntent handles POST /orders/{id}/payment-intent.
func (h *OrderHandler) CreatePaymentIntent(w http.ResponseWriter, r *http.Request) {
	id, err := pathUUID(r, "id")
	if err != nil {
		respondError(w, r, err)
		return
	}

	intent, err := h.orders.CreatePaymentIntent(r.Context(), id)
	if err != nil {
		respondError(w, r, err)
		return
	}
	respondJSON(w, http.StatusCreated, paymentIntentResponse{
		ID:           intent.ID,
		ClientSecret: intent.ClientSecret,
		Status:       intent.Status,
		Amount:       intent.Amount.String(),
		Currency:     intent.Currency,
	})
}

// Confirm handles POST /orders/{id}/confirm.
func (h *OrderHandler) Confirm(w http.ResponseWriter, r *http.Request) {
	h.simpleTransition(w, r, h.orders.Confirm)
}

// StartProcessing handles POST /orders/{id}/process.
func (h *OrderHandler) StartProcessing(w http.ResponseWriter, r *http.Request) {
	h.simpleTransition(w, r, h.orders.StartProcessing)
}

// MarkAsDelivered handles POST /orders/{id}/deliver.
func (h *OrderHandler) MarkAsDelivered(w http.ResponseWriter, r *http.Request) {
	h.simpleTransition(w, r, h.orders.MarkAsDelivered)
}

// Complete handles POST /orders/{id}/complete.
func (h *OrderHandler) Complete(w http.ResponseWriter, r *http.Request) {
	h.simpleTransition(w, r, h.orders.Complete)
}

// Ship handles POST /orders/{id}/ship.
func (h *OrderHandler) Ship(w http.ResponseWriter, r *http.Request) {
	id, err := pathUUID(r, "id")
	if err != nil {
		respondError(w, r, err)
		return
	}

	var req shipOrderRequest
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, r, err)
		return
	}

	order, err := h.orders.Ship(r.Context(), id, req.TrackingNumber, req.Carrier)
	if err != nil {
		respondError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, toOrderResponse(order))
}

// Cancel handles POST /orders/{id}/cancel.
func (h *OrderHandler) Cancel(w http.ResponseWriter, r *http.Request) {
	h.reasonTransition(w, r, h.orders.Cancel)
}

// Return handles POST /orders/{id}/return.
func (h *OrderHandler) Return(w http.ResponseWriter, r *http.Request) {
	h.reasonTransition(w, r, h.orders.Return)
}

// Refund handles POST /orders/{id}/refund.
func (h *OrderHandler) Refund(w http.ResponseWriter, r *http.Request) {
	id, err := pathUUID(r, "id")
	if err != nil {
		respondError(w, r, err)
		return
	}

	var req refundOrderRequest
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, r, err)
		return
	}
	amount, err := parseAmount("amount", req.Amount)
	if err != nil {
		respondError(w, r, err)
		return
	}

	order, err := h.orders.Refund(r.Context(), id, req.PaymentIntentID, amount, req.Reason)
	if err != nil {
		respondError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, toOrderResponse(order))
}

func (h *OrderHandler) simpleTransition(w http.ResponseWriter, r *http.Request, run func(context.Context, uuid.UUID) (*domain.Order, error)) {
	id, err := pathUUID(r, "id")
	if err != nil {
		respondError(w, r, err)
		return
	}

	order, err := run(r.Context(), id)
	if err != nil {
		respondError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, toOrderResponse(order))
}

func (h *OrderHandler) reasonTransition(w http.ResponseWriter, r *http.Request, run func(context.Context, uuid.UUID, string) (*domain.Order, error)) {
	id, err := pathUUID(r, "id")
	if err != nil {
		respondError(w, r, err)
		return
	}

	// Reason bodies are optional.
	var req reasonRequest
	if r.ContentLength > 0 {
		if err := decodeJSON(r, &req); err != nil {
			respondError(w, r, err)
			return
		}
	}

	order, err := run(r.Context(), id, req.Reason)
	if err != nil {
		respondError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, toOrderResponse(order))
}

// pathUUID parses a UUID path parameter.
func pathUUID(r *http.Request, name string) (uuid.UUID, error) {
	id, err := uuid.Parse(r.PathValue(name))
	if err != nil {
		return uuid.Nil, domain.Errorf(domain.EINVALID, "handler.path",
			"%s is not a valid UUID", name)
	}
	return id, nil
}

// queryInt32 parses an optional integer query parameter, 0 when absent or
// malformed.
func queryInt32(r *http.Request, name string) int32 {
	value, err := strconv.ParseInt(r.URL.Query().Get(name), 10, 32)
	if err != nil {
		return 0
	}
	return int32(value)
}

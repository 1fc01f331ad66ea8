package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noirlabs/noir/internal/billing"
	"github.com/noirlabs/noir/internal/domain"
	"github.com/noirlabs/noir/internal/repository"
	"github.com/noirlabs/noir/internal/router"
	"github.com/noirlabs/noir/internal/service"
)

// stubOrderService implements OrderService with overridable functions.
type stubOrderService struct {
	createFn func(ctx context.Context, input service.CreateOrderInput) (*domain.Order, error)
	getFn    func(ctx context.Context, id uuid.UUID) (*domain.Order, error)
	shipFn   func(ctx context.Context, id uuid.UUID, trackingNumber, carrier string) (*domain.Order, error)
	cancelFn func(ctx context.Context, id uuid.UUID, reason string) (*domain.Order, error)
	refundFn func(ctx context.Context, id uuid.UUID, paymentIntentID string, amount decimal.Decimal, reason string) (*domain.Order, error)
	intentFn func(ctx context.Context, id uuid.UUID) (*billing.PaymentIntent, error)
}

func (s *stubOrderService) CreateOrder(ctx context.Context, input service.CreateOrderInput) (*domain.Order, error) {
	return s.createFn(ctx, input)
}

func (s *stubOrderService) Get(ctx context.Context, id uuid.UUID) (*domain.Order, error) {
	return s.getFn(ctx, id)
}

func (s *stubOrderService) GetByNumber(ctx context.Context, orderNumber string) (*domain.Order, error) {
	return nil, service.ErrOrderNotFound
}

func (s *stubOrderService) List(ctx context.Context, filter repository.OrderFilter) (*service.OrderPage, error) {
	return &service.OrderPage{}, nil
}

func (s *stubOrderService) Confirm(ctx context.Context, id uuid.UUID) (*domain.Order, error) {
	return s.getFn(ctx, id)
}

func (s *stubOrderService) StartProcessing(ctx context.Context, id uuid.UUID) (*domain.Order, error) {
	return s.getFn(ctx, id)
}

func (s *stubOrderService) Ship(ctx context.Context, id uuid.UUID, trackingNumber, carrier string) (*domain.Order, error) {
	return s.shipFn(ctx, id, trackingNumber, carrier)
}

func (s *stubOrderService) MarkAsDelivered(ctx context.Context, id uuid.UUID) (*domain.Order, error) {
	return s.getFn(ctx, id)
}

func (s *stubOrderService) Complete(ctx context.Context, id uuid.UUID) (*domain.Order, error) {
	return s.getFn(ctx, id)
}

func (s *stubOrderService) Cancel(ctx context.Context, id uuid.UUID, reason string) (*domain.Order, error) {
	return s.cancelFn(ctx, id, reason)
}

func (s *stubOrderService) Return(ctx context.Context, id uuid.UUID, reason string) (*domain.Order, error) {
	return s.cancelFn(ctx, id, reason)
}

func (s *stubOrderService) Refund(ctx context.Context, id uuid.UUID, paymentIntentID string, amount decimal.Decimal, reason string) (*domain.Order, error) {
	return s.refundFn(ctx, id, paymentIntentID, amount, reason)
}

func (s *stubOrderService) CreatePaymentIntent(ctx context.Context, id uuid.UUID) (*billing.PaymentIntent, error) {
	return s.intentFn(ctx, id)
}

func sampleOrder(t *testing.T) *domain.Order {
	t.Helper()

	order, err := domain.CreateOrder(domain.CreateOrderParams{
		TenantID:      "11111111-1111-1111-1111-111111111111",
		OrderNumber:   "ORD-20260826-0001",
		CustomerEmail: "customer@example.com",
		Currency:      "USD",
		SubTotal:      decimal.RequireFromString("37.00"),
		GrandTotal:    decimal.RequireFromString("42.00"),
	})
	require.NoError(t, err)
	return order
}

func newOrderRouter(svc OrderService) *router.Router {
	h := NewOrderHandler(svc)
	r := router.New()
	r.Post("/orders", h.Create)
	r.Get("/orders/{id}", h.Get)
	r.Post("/orders/{id}/ship", h.Ship)
	r.Post("/orders/{id}/cancel", h.Cancel)
	r.Post("/orders/{id}/refund", h.Refund)
	r.Post("/orders/{id}/payment-intent", h.CreatePaymentIntent)
	return r
}

func decodeErrorBody(t *testing.T, w *httptest.ResponseRecorder) errorBody {
	t.Helper()

	var body errorResponse
	require.NoError(t, json.NewDecoder(w.Body).Decode(&body))
	return body.Error
}

func Test_OrderHandler_Create_ReturnsCreatedOrder(t *testing.T) {
	svc := &stubOrderService{
		createFn: func(ctx context.Context, input service.CreateOrderInput) (*domain.Order, error) {
			assert.Equal(t, "customer@example.com", input.CustomerEmail)
			require.Len(t, input.Items, 1)
			assert.True(t, input.Items[0].UnitPrice.Equal(decimal.RequireFromString("18.50")))
			return sampleOrder(t), nil
		},
	}

	payload := `{
		"customer_email": "customer@example.com",
		"currency": "USD",
		"items": [{
			"product_id": "` + uuid.NewString() + `",
			"variant_id": "` + uuid.NewString() + `",
			"product_name": "Single Origin Espresso",
			"sku": "ESP-250",
			"unit_price": "18.50",
			"quantity": 2
		}],
		"shipping_amount": "5.00"
	}`

	req := httptest.NewRequest(http.MethodPost, "/orders", strings.NewReader(payload))
	w := httptest.NewRecorder()
	newOrderRouter(svc).ServeHTTP(w, req)

	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	var body orderResponse
	require.NoError(t, json.NewDecoder(w.Body).Decode(&body))
	assert.Equal(t, "ORD-20260826-0001", body.OrderNumber)
	assert.Equal(t, "pending", body.Status)
}

func Test_OrderHandler_Create_ValidationFailures(t *testing.T) {
	svc := &stubOrderService{
		createFn: func(ctx context.Context, input service.CreateOrderInput) (*domain.Order, error) {
			t.Fatal("service must not be called on invalid input")
			return nil, nil
		},
	}

	tests := []struct {
		name    string
		payload string
	}{
		{"missing email", `{"currency":"USD","items":[{"product_id":"` + uuid.NewString() + `","variant_id":"` + uuid.NewString() + `","product_name":"x","sku":"X","unit_price":"1.00","quantity":1}]}`},
		{"bad currency", `{"customer_email":"a@b.com","currency":"DOLLARS","items":[{"product_id":"` + uuid.NewString() + `","variant_id":"` + uuid.NewString() + `","product_name":"x","sku":"X","unit_price":"1.00","quantity":1}]}`},
		{"no items", `{"customer_email":"a@b.com","currency":"USD","items":[]}`},
		{"zero quantity", `{"customer_email":"a@b.com","currency":"USD","items":[{"product_id":"` + uuid.NewString() + `","variant_id":"` + uuid.NewString() + `","product_name":"x","sku":"X","unit_price":"1.00","quantity":0}]}`},
		{"malformed json", `{"customer_email": `},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodPost, "/orders", strings.NewReader(tt.payload))
			w := httptest.NewRecorder()
			newOrderRouter(svc).ServeHTTP(w, req)

			assert.Equal(t, http.StatusBadRequest, w.Code)
			assert.Equal(t, domain.EINVALID, decodeErrorBody(t, w).Code)
		})
	}
}

func Test_OrderHandler_Get_NotFoundMapsTo404(t *testing.T) {
	svc := &stubOrderService{
		getFn: func(ctx context.Context, id uuid.UUID) (*domain.Order, error) {
			return nil, service.ErrOrderNotFound
		},
	}

	req := httptest.NewRequest(http.MethodGet, "/orders/"+uuid.NewString(), nil)
	w := httptest.NewRecorder()
	newOrderRouter(svc).ServeHTTP(w, req)

	assert.Equal(t, http.StatusNotFound, w.Code)
	body := decodeErrorBody(t, w)
	assert.Equal(t, domain.ENOTFOUND, body.Code)
	assert.Equal(t, "NOIR-ORDER-015", body.Ref)
}

func Test_OrderHandler_Get_RejectsMalformedID(t *testing.T) {
	svc := &stubOrderService{}

	req := httptest.NewRequest(http.MethodGet, "/orders/not-a-uuid", nil)
	w := httptest.NewRecorder()
	newOrderRouter(svc).ServeHTTP(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func Test_OrderHandler_Ship_RequiresTrackingNumber(t *testing.T) {
	svc := &stubOrderService{
		shipFn: func(ctx context.Context, id uuid.UUID, trackingNumber, carrier string) (*domain.Order, error) {
			t.Fatal("service must not be called without a tracking number")
			return nil, nil
		},
	}

	req := httptest.NewRequest(http.MethodPost, "/orders/"+uuid.NewString()+"/ship",
		strings.NewReader(`{"carrier":"UPS"}`))
	w := httptest.NewRecorder()
	newOrderRouter(svc).ServeHTTP(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func Test_OrderHandler_Cancel_IllegalTransitionCarriesRef(t *testing.T) {
	svc := &stubOrderService{
		cancelFn: func(ctx context.Context, id uuid.UUID, reason string) (*domain.Order, error) {
			return nil, &domain.Error{
				Code: domain.EINVALID, Ref: domain.RefOrderCancelInvalid,
				Op: "order.cancel", Message: "cannot cancel an order in status shipped",
			}
		},
	}

	req := httptest.NewRequest(http.MethodPost, "/orders/"+uuid.NewString()+"/cancel",
		strings.NewReader(`{"reason":"too late"}`))
	w := httptest.NewRecorder()
	newOrderRouter(svc).ServeHTTP(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
	body := decodeErrorBody(t, w)
	assert.Equal(t, domain.RefOrderCancelInvalid, body.Ref)
}

func Test_OrderHandler_Cancel_BodyIsOptional(t *testing.T) {
	svc := &stubOrderService{
		cancelFn: func(ctx context.Context, id uuid.UUID, reason string) (*domain.Order, error) {
			assert.Empty(t, reason)
			return sampleOrder(t), nil
		},
	}

	req := httptest.NewRequest(http.MethodPost, "/orders/"+uuid.NewString()+"/cancel", nil)
	w := httptest.NewRecorder()
	newOrderRouter(svc).ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
}

func Test_OrderHandler_CreatePaymentIntent_ReturnsIntent(t *testing.T) {
	svc := &stubOrderService{
		intentFn: func(ctx context.Context, id uuid.UUID) (*billing.PaymentIntent, error) {
			return &billing.PaymentIntent{
				ID:           "pi_123",
				ClientSecret: "pi_123_secret",
				Status:       "requires_payment_method",
				Amount:       decimal.RequireFromString("42.00"),
				Currency:     "USD",
			}, nil
		},
	}

	req := httptest.NewRequest(http.MethodPost, "/orders/"+uuid.NewString()+"/payment-intent", nil)
	w := httptest.NewRecorder()
	newOrderRouter(svc).ServeHTTP(w, req)

	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	var body paymentIntentResponse
	require.NoError(t, json.NewDecoder(w.Body).Decode(&body))
	assert.Equal(t, "pi_123", body.ID)
	assert.Equal(t, "pi_123_secret", body.ClientSecret)
	assert.Equal(t, "42", body.Amount)
	assert.Equal(t, "USD", body.Currency)
}

func Test_OrderHandler_CreatePaymentIntent_NonPendingMapsTo409(t *testing.T) {
	svc := &stubOrderService{
		intentFn: func(ctx context.Context, id uuid.UUID) (*billing.PaymentIntent, error) {
			return nil, domain.Errorf(domain.ECONFLICT, "service.order.create_payment_intent",
				"payment can only be taken for a pending order, status is cancelled")
		},
	}

	req := httptest.NewRequest(http.MethodPost, "/orders/"+uuid.NewString()+"/payment-intent", nil)
	w := httptest.NewRecorder()
	newOrderRouter(svc).ServeHTTP(w, req)

	assert.Equal(t, http.StatusConflict, w.Code)
	assert.Equal(t, domain.ECONFLICT, decodeErrorBody(t, w).Code)
}

func Test_OrderHandler_Refund_GatewayFailureMapsTo500(t *testing.T) {
	svc := &stubOrderService{
		refundFn: func(ctx context.Context, id uuid.UUID, paymentIntentID string, amount decimal.Decimal, reason string) (*domain.Order, error) {
			return nil, service.ErrRefundGatewayFailed
		},
	}

	req := httptest.NewRequest(http.MethodPost, "/orders/"+uuid.NewString()+"/refund",
		strings.NewReader(`{"payment_intent_id":"pi_123","amount":"42.00"}`))
	w := httptest.NewRecorder()
	newOrderRouter(svc).ServeHTTP(w, req)

	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.Equal(t, "NOIR-PAY-001", decodeErrorBody(t, w).Ref)
}

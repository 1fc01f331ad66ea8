package domain_test

import (
	"math/rand"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noirlabs/noir/internal/domain"
)

const testTenant = "11111111-1111-1111-1111-111111111111"

func dec(s string) decimal.Decimal { return decimal.RequireFromString(s) }

// newPendingOrder builds a fresh pending order and drains the creation event.
func newPendingOrder(t *testing.T) *domain.Order {
	t.Helper()
	o, err := domain.CreateOrder(domain.CreateOrderParams{
		TenantID:      testTenant,
		OrderNumber:   "ORD-20260826-0001",
		CustomerEmail: "buyer@example.com",
		Currency:      "USD",
		SubTotal:      dec("300.00"),
		GrandTotal:    dec("300.00"),
	})
	require.NoError(t, err)
	o.TakeEvents()
	return o
}

// orderInStatus rehydrates an order directly into the given status so guard
// behavior can be checked exhaustively without walking the state machine.
func orderInStatus(status domain.OrderStatus) *domain.Order {
	return domain.RehydrateOrder(domain.OrderSnapshot{
		ID:          uuid.New(),
		TenantID:    testTenant,
		OrderNumber: "ORD-20260826-0099",
		CustomerEmail: "buyer@example.com",
		Currency:    "USD",
		Status:      status,
		SubTotal:    dec("300.00"),
		GrandTotal:  dec("305.00"),
		CreatedAt:   time.Now().UTC(),
	})
}

var allStatuses = []domain.OrderStatus{
	domain.OrderPending, domain.OrderConfirmed, domain.OrderProcessing,
	domain.OrderShipped, domain.OrderDelivered, domain.OrderCompleted,
	domain.OrderCancelled, domain.OrderRefunded, domain.OrderReturned,
}

func Test_CreateOrder_Validation(t *testing.T) {
	valid := domain.CreateOrderParams{
		TenantID:      testTenant,
		OrderNumber:   "ORD-20260826-0001",
		CustomerEmail: "buyer@example.com",
		Currency:      "USD",
		SubTotal:      dec("10.00"),
		GrandTotal:    dec("10.00"),
	}

	tests := []struct {
		name    string
		mutate  func(*domain.CreateOrderParams)
		wantRef string
	}{
		{
			name:    "missing customer email",
			mutate:  func(p *domain.CreateOrderParams) { p.CustomerEmail = "  " },
			wantRef: domain.RefOrderCreateInvalid,
		},
		{
			name:    "missing currency",
			mutate:  func(p *domain.CreateOrderParams) { p.Currency = "" },
			wantRef: domain.RefOrderCreateInvalid,
		},
		{
			name:    "missing order number",
			mutate:  func(p *domain.CreateOrderParams) { p.OrderNumber = "" },
			wantRef: domain.RefOrderCreateInvalid,
		},
		{
			name:    "negative subtotal",
			mutate:  func(p *domain.CreateOrderParams) { p.SubTotal = dec("-0.01") },
			wantRef: domain.RefOrderCreateInvalid,
		},
		{
			name:    "negative grand total",
			mutate:  func(p *domain.CreateOrderParams) { p.GrandTotal = dec("-1") },
			wantRef: domain.RefOrderCreateInvalid,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			params := valid
			tt.mutate(&params)
			_, err := domain.CreateOrder(params)
			require.Error(t, err)
			assert.Equal(t, domain.EINVALID, domain.ErrorCode(err))
			assert.Equal(t, tt.wantRef, domain.ErrorRef(err))
		})
	}

	t.Run("missing tenant id", func(t *testing.T) {
		params := valid
		params.TenantID = ""
		_, err := domain.CreateOrder(params)
		require.Error(t, err)
		assert.Equal(t, "NOIR-TENANT-002", domain.ErrorRef(err))
	})
}

func Test_CreateOrder_StartsPendingAndRaisesCreated(t *testing.T) {
	o, err := domain.CreateOrder(domain.CreateOrderParams{
		TenantID:      testTenant,
		OrderNumber:   "ORD-20260826-0001",
		CustomerEmail: "buyer@example.com",
		Currency:      "usd",
		SubTotal:      dec("42.00"),
		GrandTotal:    dec("42.00"),
	})
	require.NoError(t, err)

	assert.Equal(t, domain.OrderPending, o.Status())
	assert.Equal(t, "USD", o.Currency(), "currency tag is normalized to upper case")
	assert.Nil(t, o.ConfirmedAt())

	events := o.TakeEvents()
	require.Len(t, events, 1)
	created, ok := events[0].(domain.OrderCreatedEvent)
	require.True(t, ok, "factory raises OrderCreatedEvent")
	assert.Equal(t, "order.created", created.EventName())
	assert.Equal(t, "buyer@example.com", created.CustomerEmail)
	assert.Empty(t, o.TakeEvents(), "TakeEvents drains the buffer")
}

// Spec example: subtotal 300.00, discount 50.00, shipping 30.00, tax 25.00
// must yield a grand total of 305.00.
func Test_Order_GrandTotal_SpecificationExample(t *testing.T) {
	o := newPendingOrder(t)

	require.NoError(t, o.ApplyDiscount(dec("50.00")))
	require.NoError(t, o.SetShipping(dec("30.00")))
	require.NoError(t, o.SetTax(dec("25.00")))

	assert.True(t, o.GrandTotal().Amount.Equal(dec("305.00")),
		"300 - 50 + 30 + 25 = 305, got %s", o.GrandTotal())
}

// Property check: GrandTotal == SubTotal - Discount + Shipping + Tax holds
// after every mutation, over random non-negative decimal inputs.
func Test_Order_GrandTotalInvariant_RandomInputs(t *testing.T) {
	rng := rand.New(rand.NewSource(1))

	randAmount := func() decimal.Decimal {
		return decimal.NewFromInt(rng.Int63n(100000)).Div(decimal.NewFromInt(100))
	}

	checkInvariants := func(o *domain.Order) {
		t.Helper()
		want := o.SubTotal().Amount.
			Sub(o.DiscountAmount().Amount).
			Add(o.ShippingAmount().Amount).
			Add(o.TaxAmount().Amount)
		assert.True(t, o.GrandTotal().Amount.Equal(want),
			"grand total %s != %s - %s + %s + %s", o.GrandTotal().Amount,
			o.SubTotal().Amount, o.DiscountAmount().Amount,
			o.ShippingAmount().Amount, o.TaxAmount().Amount)
		for name, amount := range map[string]decimal.Decimal{
			"sub_total":       o.SubTotal().Amount,
			"discount_amount": o.DiscountAmount().Amount,
			"shipping_amount": o.ShippingAmount().Amount,
			"tax_amount":      o.TaxAmount().Amount,
			"grand_total":     o.GrandTotal().Amount,
		} {
			assert.False(t, amount.IsNegative(), "%s went negative: %s", name, amount)
		}
	}

	for i := 0; i < 50; i++ {
		o := newPendingOrder(t)

		mutations := []func() error{
			func() error { return o.ApplyDiscount(randAmount()) },
			func() error { return o.SetShipping(randAmount()) },
			func() error { return o.SetTax(randAmount()) },
		}
		for j := 0; j < 6; j++ {
			mutations = append(mutations, func() error {
				return o.AddItem(domain.OrderItemParams{
					ProductID:      uuid.New(),
					VariantID:      uuid.New(),
					ProductName:    "Widget",
					SKU:            "WID-1",
					UnitPrice:      randAmount(),
					Quantity:       int32(rng.Intn(5) + 1),
					DiscountAmount: randAmount(),
				})
			})
		}
		rng.Shuffle(len(mutations), func(a, b int) {
			mutations[a], mutations[b] = mutations[b], mutations[a]
		})

		for _, mutate := range mutations {
			if err := mutate(); err != nil {
				// Rejected mutations leave the aggregate untouched.
				assert.Equal(t, domain.RefOrderAmountInvalid, domain.ErrorRef(err))
			}
			checkInvariants(o)
		}
	}
}

func Test_Order_AddItem_RejectsDiscountAboveLineTotal(t *testing.T) {
	o := newPendingOrder(t)

	err := o.AddItem(domain.OrderItemParams{
		ProductID:      uuid.New(),
		VariantID:      uuid.New(),
		ProductName:    "Sampler",
		SKU:            "SMP-1",
		UnitPrice:      dec("1.00"),
		Quantity:       1,
		DiscountAmount: dec("5.00"),
	})
	require.Error(t, err)
	assert.Equal(t, domain.RefOrderAmountInvalid, domain.ErrorRef(err))
	assert.Empty(t, o.Items())
	assert.True(t, o.SubTotal().Amount.Equal(dec("300.00")), "got %s", o.SubTotal())
	assert.False(t, o.GrandTotal().Amount.IsNegative())
}

func Test_Order_AddItem_RejectsStandingDiscountAboveDerivedSubtotal(t *testing.T) {
	o := newPendingOrder(t) // creation-time subtotal 300.00
	require.NoError(t, o.ApplyDiscount(dec("50.00")))

	// The first item switches the subtotal to the item-derived sum (1.00),
	// which the standing 50.00 discount would exceed.
	err := o.AddItem(domain.OrderItemParams{
		ProductID:   uuid.New(),
		VariantID:   uuid.New(),
		ProductName: "Sticker",
		SKU:         "STK-1",
		UnitPrice:   dec("1.00"),
		Quantity:    1,
	})
	require.Error(t, err)
	assert.Equal(t, domain.RefOrderAmountInvalid, domain.ErrorRef(err))
	assert.Empty(t, o.Items())
	assert.True(t, o.SubTotal().Amount.Equal(dec("300.00")), "got %s", o.SubTotal())
	assert.True(t, o.GrandTotal().Amount.Equal(dec("250.00")), "got %s", o.GrandTotal())
}

func Test_Order_AddItem_DerivesSubtotalFromItems(t *testing.T) {
	o := newPendingOrder(t)

	require.NoError(t, o.AddItem(domain.OrderItemParams{
		ProductID:   uuid.New(),
		VariantID:   uuid.New(),
		ProductName: "Ethiopia Natural",
		SKU:         "ETH-12OZ",
		UnitPrice:   dec("18.50"),
		Quantity:    2,
		DiscountAmount: dec("2.00"),
	}))

	// 18.50 * 2 - 2.00 = 35.00
	assert.True(t, o.SubTotal().Amount.Equal(dec("35.00")), "got %s", o.SubTotal())
	assert.True(t, o.GrandTotal().Amount.Equal(dec("35.00")))
	require.Len(t, o.Items(), 1)
}

func Test_Order_Complete_FailsFromEveryStatusExceptDelivered(t *testing.T) {
	for _, status := range allStatuses {
		t.Run(string(status), func(t *testing.T) {
			o := orderInStatus(status)
			err := o.Complete()

			if status == domain.OrderDelivered {
				require.NoError(t, err)
				assert.Equal(t, domain.OrderCompleted, o.Status())
				assert.NotNil(t, o.CompletedAt())
				return
			}

			require.Error(t, err)
			assert.Equal(t, domain.EINVALID, domain.ErrorCode(err))
			assert.Equal(t, domain.RefOrderCompleteInvalid, domain.ErrorRef(err))
			assert.Equal(t, status, o.Status(), "failed transition must not mutate")
			assert.Nil(t, o.CompletedAt())
		})
	}
}

func Test_Order_Cancel_OnlyFromPendingConfirmedProcessing(t *testing.T) {
	cancellable := map[domain.OrderStatus]bool{
		domain.OrderPending:    true,
		domain.OrderConfirmed:  true,
		domain.OrderProcessing: true,
	}

	for _, status := range allStatuses {
		t.Run(string(status), func(t *testing.T) {
			o := orderInStatus(status)
			err := o.Cancel("customer request")

			if cancellable[status] {
				require.NoError(t, err)
				assert.Equal(t, domain.OrderCancelled, o.Status())
				assert.Equal(t, "customer request", o.CancellationReason())
				assert.NotNil(t, o.CancelledAt())
				return
			}

			require.Error(t, err)
			assert.Equal(t, domain.RefOrderCancelInvalid, domain.ErrorRef(err))
			assert.Equal(t, status, o.Status())
		})
	}
}

func Test_Order_MarkAsRefunded_Rules(t *testing.T) {
	t.Run("rejected statuses", func(t *testing.T) {
		for _, status := range []domain.OrderStatus{
			domain.OrderPending, domain.OrderCancelled, domain.OrderRefunded,
		} {
			o := orderInStatus(status)
			err := o.MarkAsRefunded(dec("10.00"))
			require.Error(t, err, "status %s", status)
			assert.Equal(t, domain.RefOrderRefundInvalid, domain.ErrorRef(err))
			assert.Equal(t, status, o.Status())
		}
	})

	t.Run("amount must be positive and within grand total", func(t *testing.T) {
		for _, amount := range []string{"0", "-5.00", "305.01"} {
			o := orderInStatus(domain.OrderConfirmed)
			err := o.MarkAsRefunded(dec(amount))
			require.Error(t, err, "amount %s", amount)
			assert.Equal(t, domain.RefOrderRefundBadAmount, domain.ErrorRef(err))
			assert.Equal(t, domain.OrderConfirmed, o.Status())
		}
	})

	t.Run("partial and full refunds succeed from remaining statuses", func(t *testing.T) {
		for _, status := range []domain.OrderStatus{
			domain.OrderConfirmed, domain.OrderProcessing, domain.OrderShipped,
			domain.OrderDelivered, domain.OrderCompleted, domain.OrderReturned,
		} {
			for _, amount := range []string{"50.00", "305.00"} {
				o := orderInStatus(status)
				require.NoError(t, o.MarkAsRefunded(dec(amount)), "status %s amount %s", status, amount)
				assert.Equal(t, domain.OrderRefunded, o.Status())
			}
		}
	})
}

func Test_Order_Ship_RequiresTrackingNumber(t *testing.T) {
	o := orderInStatus(domain.OrderProcessing)
	err := o.Ship("  ", "GHTK")
	require.Error(t, err)
	assert.Equal(t, domain.RefOrderShipNoTracking, domain.ErrorRef(err))
	assert.Equal(t, domain.OrderProcessing, o.Status())
	assert.Empty(t, o.TrackingNumber())
}

// Full happy path: Create -> Confirm -> StartProcessing -> Ship ->
// MarkAsDelivered -> Complete, with strictly ordered timestamps.
func Test_Order_Lifecycle_HappyPath(t *testing.T) {
	o := newPendingOrder(t)

	require.NoError(t, o.Confirm())
	assert.Equal(t, domain.OrderConfirmed, o.Status())
	assert.Nil(t, o.ShippedAt(), "later timestamps stay unset")

	require.NoError(t, o.StartProcessing())
	time.Sleep(2 * time.Millisecond)

	require.NoError(t, o.Ship("TRACK-123", "GHTK"))
	assert.Equal(t, "TRACK-123", o.TrackingNumber())
	assert.Equal(t, "GHTK", o.ShippingCarrier())
	time.Sleep(2 * time.Millisecond)

	require.NoError(t, o.MarkAsDelivered())
	time.Sleep(2 * time.Millisecond)

	require.NoError(t, o.Complete())
	assert.Equal(t, domain.OrderCompleted, o.Status())

	require.NotNil(t, o.ConfirmedAt())
	require.NotNil(t, o.ShippedAt())
	require.NotNil(t, o.DeliveredAt())
	require.NotNil(t, o.CompletedAt())
	assert.True(t, o.ConfirmedAt().Before(*o.ShippedAt()))
	assert.True(t, o.ShippedAt().Before(*o.DeliveredAt()))
	assert.True(t, o.DeliveredAt().Before(*o.CompletedAt()))
	assert.Nil(t, o.CancelledAt())
	assert.Nil(t, o.ReturnedAt())

	names := make([]string, 0)
	for _, e := range o.TakeEvents() {
		names = append(names, e.EventName())
	}
	assert.Equal(t, []string{
		"order.confirmed", "order.status_changed", "order.shipped",
		"order.delivered", "order.completed",
	}, names)
}

// Cancelled orders reject further fulfilment transitions.
func Test_Order_CancelThenShipOrComplete_Fails(t *testing.T) {
	o := newPendingOrder(t)
	require.NoError(t, o.Confirm())
	require.NoError(t, o.Cancel("customer request"))

	assert.Equal(t, domain.OrderCancelled, o.Status())
	assert.Equal(t, "customer request", o.CancellationReason())

	err := o.Ship("TRACK-999", "UPS")
	require.Error(t, err)
	assert.Equal(t, domain.EINVALID, domain.ErrorCode(err))

	err = o.Complete()
	require.Error(t, err)
	assert.Equal(t, domain.RefOrderCompleteInvalid, domain.ErrorRef(err))
}

// Returned is reachable from Completed, and a refund is still possible after
// the return. The overlap between the Returned and Refunded terminals is
// intentional: a completed-then-returned order can still be refunded.
func Test_Order_ReturnAfterComplete_ThenRefund(t *testing.T) {
	o := newPendingOrder(t)
	require.NoError(t, o.Confirm())
	require.NoError(t, o.StartProcessing())
	require.NoError(t, o.Ship("TRACK-123", "GHTK"))
	require.NoError(t, o.MarkAsDelivered())
	require.NoError(t, o.Complete())

	require.NoError(t, o.Return("defective"))
	assert.Equal(t, domain.OrderReturned, o.Status())
	assert.Equal(t, "defective", o.ReturnReason())
	assert.NotNil(t, o.ReturnedAt())

	require.NoError(t, o.MarkAsRefunded(dec("50")))
	assert.Equal(t, domain.OrderRefunded, o.Status())
}

func Test_Order_ItemsLockedAfterPending(t *testing.T) {
	o := newPendingOrder(t)
	require.NoError(t, o.Confirm())

	err := o.AddItem(domain.OrderItemParams{
		ProductID:   uuid.New(),
		VariantID:   uuid.New(),
		ProductName: "Late addition",
		SKU:         "LATE-1",
		UnitPrice:   dec("1.00"),
		Quantity:    1,
	})
	require.Error(t, err)
	assert.Equal(t, domain.RefOrderItemsLocked, domain.ErrorRef(err))

	err = o.ApplyDiscount(dec("1.00"))
	require.Error(t, err)
	assert.Equal(t, domain.RefOrderItemsLocked, domain.ErrorRef(err))
}

func Test_Order_SnapshotRoundTrip(t *testing.T) {
	o := newPendingOrder(t)
	require.NoError(t, o.AddItem(domain.OrderItemParams{
		ProductID:   uuid.New(),
		VariantID:   uuid.New(),
		ProductName: "Widget",
		SKU:         "WID-1",
		UnitPrice:   dec("10.00"),
		Quantity:    3,
	}))
	require.NoError(t, o.Confirm())

	restored := domain.RehydrateOrder(o.Snapshot())

	assert.Equal(t, o.ID(), restored.ID())
	assert.Equal(t, o.Status(), restored.Status())
	assert.True(t, o.GrandTotal().Amount.Equal(restored.GrandTotal().Amount))
	assert.Equal(t, o.Items(), restored.Items())
	require.NotNil(t, restored.ConfirmedAt())
	assert.Empty(t, restored.TakeEvents(), "rehydration raises no events")

	// The rehydrated aggregate continues the state machine correctly.
	require.NoError(t, restored.StartProcessing())
	assert.Equal(t, domain.OrderProcessing, restored.Status())
}

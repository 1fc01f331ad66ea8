package service

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noirlabs/noir/internal/domain"
)

// fakeInventoryStore keeps stock levels and the ledger in memory.
type fakeInventoryStore struct {
	levels    map[uuid.UUID]int32
	movements []domain.InventoryMovement
}

func newFakeInventoryStore() *fakeInventoryStore {
	return &fakeInventoryStore{levels: make(map[uuid.UUID]int32)}
}

func (f *fakeInventoryStore) RegisterVariant(ctx context.Context, tenantID string, variantID, productID uuid.UUID, sku string) error {
	if _, ok := f.levels[variantID]; !ok {
		f.levels[variantID] = 0
	}
	return nil
}

func (f *fakeInventoryStore) StockLevel(ctx context.Context, tenantID string, variantID uuid.UUID) (int32, error) {
	level, ok := f.levels[variantID]
	if !ok {
		return 0, domain.NotFound("fake.stock_level", "variant", variantID.String())
	}
	return level, nil
}

func (f *fakeInventoryStore) Record(ctx context.Context, tenantID string, variantID uuid.UUID, movementType domain.MovementType, quantity int32, reference string, correlationID uuid.UUID) (*domain.InventoryMovement, error) {
	before, ok := f.levels[variantID]
	if !ok {
		return nil, domain.NotFound("fake.record", "variant", variantID.String())
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

	f.levels[variantID] = movement.QuantityAfter
	f.movements = append(f.movements, *movement)
	return movement, nil
}

func (f *fakeInventoryStore) ListMovements(ctx context.Context, tenantID string, variantID uuid.UUID, limit, offset int32) ([]domain.InventoryMovement, error) {
	var result []domain.InventoryMovement
	for i := len(f.movements) - 1; i >= 0; i-- {
		if f.movements[i].ProductVariantID == variantID {
			result = append(result, f.movements[i])
		}
	}
	return result, nil
}

func Test_InventoryService_RegisterVariant_BootstrapsStockFromZero(t *testing.T) {
	store := newFakeInventoryStore()
	variant := uuid.New()

	svc := NewInventoryService(store, testTenant, testMetrics, testLogger())

	// Unregistered variants cannot receive stock.
	_, err := svc.RecordMovement(context.Background(), variant, domain.MovementStockIn, 20, "PO-1001")
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrVariantNotFound)

	require.NoError(t, svc.RegisterVariant(context.Background(), variant, uuid.New(), "ETH-12OZ"))

	movement, err := svc.RecordMovement(context.Background(), variant, domain.MovementStockIn, 20, "PO-1001")
	require.NoError(t, err)
	assert.Equal(t, int32(0), movement.QuantityBefore)
	assert.Equal(t, int32(20), movement.QuantityAfter)

	// Re-registering is a no-op, not a reset.
	require.NoError(t, svc.RegisterVariant(context.Background(), variant, uuid.New(), "ETH-12OZ"))
	level, err := svc.StockLevel(context.Background(), variant)
	require.NoError(t, err)
	assert.Equal(t, int32(20), level)
}

func Test_InventoryService_RegisterVariant_RequiresSKU(t *testing.T) {
	svc := NewInventoryService(newFakeInventoryStore(), testTenant, testMetrics, testLogger())

	err := svc.RegisterVariant(context.Background(), uuid.New(), uuid.New(), "  ")
	require.Error(t, err)
	assert.Equal(t, domain.EINVALID, domain.ErrorCode(err))
}

func Test_InventoryService_RecordMovement_AppendsLedgerAndUpdatesLevel(t *testing.T) {
	store := newFakeInventoryStore()
	variant := uuid.New()
	store.levels[variant] = 10

	svc := NewInventoryService(store, testTenant, testMetrics, testLogger())

	movement, err := svc.RecordMovement(context.Background(), variant, domain.MovementStockIn, 5, "PO-1001")
	require.NoError(t, err)
	assert.Equal(t, int32(10), movement.QuantityBefore)
	assert.Equal(t, int32(15), movement.QuantityAfter)
	assert.Equal(t, "PO-1001", movement.Reference)

	level, err := svc.StockLevel(context.Background(), variant)
	require.NoError(t, err)
	assert.Equal(t, int32(15), level)
}

func Test_InventoryService_RecordMovement_RejectsOverdraw(t *testing.T) {
	store := newFakeInventoryStore()
	variant := uuid.New()
	store.levels[variant] = 3

	svc := NewInventoryService(store, testTenant, testMetrics, testLogger())

	_, err := svc.RecordMovement(context.Background(), variant, domain.MovementStockOut, 5, "ORD-20260826-0001")
	require.Error(t, err)
	assert.Equal(t, domain.ECONFLICT, domain.ErrorCode(err))
	assert.Equal(t, domain.RefStockInsufficient, domain.ErrorRef(err))

	level, _ := svc.StockLevel(context.Background(), variant)
	assert.Equal(t, int32(3), level, "rejected movement must not change stock")
}

func Test_InventoryService_RecordMovement_UnknownVariant(t *testing.T) {
	svc := NewInventoryService(newFakeInventoryStore(), testTenant, testMetrics, testLogger())

	_, err := svc.RecordMovement(context.Background(), uuid.New(), domain.MovementStockIn, 5, "PO-1001")
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrVariantNotFound)
}

func Test_InventoryService_ListMovements_NewestFirst(t *testing.T) {
	store := newFakeInventoryStore()
	variant := uuid.New()
	store.levels[variant] = 0

	svc := NewInventoryService(store, testTenant, testMetrics, testLogger())

	_, err := svc.RecordMovement(context.Background(), variant, domain.MovementStockIn, 10, "PO-1")
	require.NoError(t, err)
	_, err = svc.RecordMovement(context.Background(), variant, domain.MovementReservation, 4, "ORD-20260826-0001")
	require.NoError(t, err)

	movements, err := svc.ListMovements(context.Background(), variant, 50, 0)
	require.NoError(t, err)
	require.Len(t, movements, 2)
	assert.Equal(t, domain.MovementReservation, movements[0].MovementType)
	assert.Equal(t, domain.MovementStockIn, movements[1].MovementType)
}

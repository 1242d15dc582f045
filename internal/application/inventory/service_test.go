package inventory

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/shopcore/backend/internal/domain/inventory"
	"github.com/shopcore/backend/internal/infrastructure/persistence/memory"
)

func newTestService() (*Service, *inventory.ReservationEngine) {
	ledger := memory.NewLedgerRepository()
	reservations := memory.NewReservationRepository()
	scope := memory.NewScope(ledger, reservations)
	engine := inventory.NewReservationEngine(scope, ledger, reservations, zap.NewNop())
	service := NewService(engine, inventory.NewStockLedger(ledger), nil, zap.NewNop())
	return service, engine
}

func TestService_AdjustAndAvailability(t *testing.T) {
	ctx := context.Background()
	service, engine := newTestService()
	variantID := uuid.New()

	require.NoError(t, service.Adjust(ctx, variantID, 20, inventory.ReasonReceipt, nil))
	require.NoError(t, service.Adjust(ctx, variantID, -4, "", nil))

	avail, err := service.Availability(ctx, variantID)
	require.NoError(t, err)
	assert.Equal(t, int64(16), avail.OnHand)
	assert.Equal(t, int64(16), avail.Available)

	_, err = engine.Reserve(ctx, uuid.New(), variantID, 6, "order_hold")
	require.NoError(t, err)

	avail, err = service.Availability(ctx, variantID)
	require.NoError(t, err)
	assert.Equal(t, int64(16), avail.OnHand)
	assert.Equal(t, int64(6), avail.Reserved)
	assert.Equal(t, int64(10), avail.Available)
}

func TestService_History(t *testing.T) {
	ctx := context.Background()
	service, _ := newTestService()
	variantID := uuid.New()

	require.NoError(t, service.Adjust(ctx, variantID, 5, inventory.ReasonReceipt, nil))
	require.NoError(t, service.Adjust(ctx, variantID, -2, inventory.ReasonAdjustment, nil))

	entries, token, err := service.History(ctx, variantID, "", 10)
	require.NoError(t, err)
	assert.Empty(t, token)
	require.Len(t, entries, 2)
}

func TestService_ActiveReservations(t *testing.T) {
	ctx := context.Background()
	service, engine := newTestService()
	variantID := uuid.New()
	orderID := uuid.New()
	require.NoError(t, service.Adjust(ctx, variantID, 5, inventory.ReasonReceipt, nil))
	_, err := engine.Reserve(ctx, orderID, variantID, 3, "order_hold")
	require.NoError(t, err)

	active, err := service.ActiveReservations(ctx, orderID)
	require.NoError(t, err)
	require.Len(t, active, 1)
	assert.Equal(t, int64(3), active[0].Quantity)
}

package integration

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/shopcore/backend/internal/domain/inventory"
	"github.com/shopcore/backend/internal/domain/shared"
	"github.com/shopcore/backend/internal/infrastructure/persistence"
)

func newEngine(tdb *TestDB) *inventory.ReservationEngine {
	ledgerRepo := persistence.NewGormLedgerRepository(tdb.DB)
	reservationRepo := persistence.NewGormReservationRepository(tdb.DB)
	scope := persistence.NewGormTransactionScope(tdb.DB)
	return inventory.NewReservationEngine(scope, ledgerRepo, reservationRepo, zap.NewNop())
}

func TestReserve_ContentionForLastUnits(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}

	tdb := NewTestDB(t)
	engine := newEngine(tdb)
	ctx := context.Background()
	variantID := uuid.New()

	require.NoError(t, engine.Adjust(ctx, variantID, 5, inventory.ReasonReceipt, nil))

	// Ten orders race for 5 units in holds of 3: at most one can win.
	const contenders = 10
	var wg sync.WaitGroup
	results := make(chan error, contenders)

	for i := 0; i < contenders; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := engine.Reserve(ctx, uuid.New(), variantID, 3, "order_hold")
			results <- err
		}()
	}
	wg.Wait()
	close(results)

	var wins, rejections int
	for err := range results {
		if err == nil {
			wins++
			continue
		}
		var stockErr *inventory.InsufficientStockError
		require.ErrorAs(t, err, &stockErr, "unexpected error kind: %v", err)
		rejections++
	}

	assert.Equal(t, 1, wins, "exactly one contender can hold 3 of the 5 units")
	assert.Equal(t, contenders-1, rejections)

	avail, err := engine.Availability(ctx, variantID)
	require.NoError(t, err)
	assert.Equal(t, int64(3), avail.Reserved)
	assert.Equal(t, int64(2), avail.Available)
}

func TestReserve_ExtendsExistingHold(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}

	tdb := NewTestDB(t)
	engine := newEngine(tdb)
	ctx := context.Background()
	variantID := uuid.New()
	orderID := uuid.New()

	require.NoError(t, engine.Adjust(ctx, variantID, 10, inventory.ReasonReceipt, nil))

	first, err := engine.Reserve(ctx, orderID, variantID, 3, "order_hold")
	require.NoError(t, err)

	second, err := engine.Reserve(ctx, orderID, variantID, 2, "order_hold")
	require.NoError(t, err)

	// One row per (order, variant) pair, extended in place
	assert.Equal(t, first.ID, second.ID)
	assert.Equal(t, int64(5), second.Quantity)

	active, err := engine.ActiveReservations(ctx, orderID)
	require.NoError(t, err)
	require.Len(t, active, 1)
	assert.Equal(t, int64(5), active[0].Quantity)
}

func TestRelease_IsIdempotentForRetriedCancellations(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}

	tdb := NewTestDB(t)
	engine := newEngine(tdb)
	ctx := context.Background()
	variantID := uuid.New()
	orderID := uuid.New()

	require.NoError(t, engine.Adjust(ctx, variantID, 5, inventory.ReasonReceipt, nil))
	_, err := engine.Reserve(ctx, orderID, variantID, 5, "order_hold")
	require.NoError(t, err)

	require.NoError(t, engine.Release(ctx, orderID, variantID, 5, "cancellation"))
	require.NoError(t, engine.Release(ctx, orderID, variantID, 5, "cancellation"), "retried release is a no-op")

	var notFound *inventory.ReservationNotFoundError
	err = engine.Release(ctx, uuid.New(), variantID, 1, "cancellation")
	require.ErrorAs(t, err, &notFound)
}

func TestConsume_WritesLedgerAndTerminatesHold(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}

	tdb := NewTestDB(t)
	engine := newEngine(tdb)
	ctx := context.Background()
	variantID := uuid.New()
	orderID := uuid.New()

	require.NoError(t, engine.Adjust(ctx, variantID, 8, inventory.ReasonReceipt, nil))
	_, err := engine.Reserve(ctx, orderID, variantID, 3, "order_hold")
	require.NoError(t, err)

	require.NoError(t, engine.Consume(ctx, orderID, variantID, 3, nil))

	avail, err := engine.Availability(ctx, variantID)
	require.NoError(t, err)
	assert.Equal(t, int64(5), avail.OnHand)
	assert.Equal(t, int64(0), avail.Reserved)

	// The hold is terminal; consuming again fails
	err = engine.Consume(ctx, orderID, variantID, 1, nil)
	var notFound *inventory.ReservationNotFoundError
	require.ErrorAs(t, err, &notFound)
}

func TestReservation_ActiveUniquenessEnforcedByStore(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}

	tdb := NewTestDB(t)
	repo := persistence.NewGormReservationRepository(tdb.DB)
	ctx := context.Background()
	orderID := uuid.New()
	variantID := uuid.New()

	first, err := inventory.NewReservation(orderID, variantID, 2)
	require.NoError(t, err)
	require.NoError(t, repo.Create(ctx, first))

	// The partial unique index rejects a second Active row for the pair
	second, err := inventory.NewReservation(orderID, variantID, 1)
	require.NoError(t, err)
	err = repo.Create(ctx, second)
	require.Error(t, err)
	assert.True(t, errors.Is(err, shared.ErrAlreadyExists))
}

package order

import (
	"context"
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/shopcore/backend/internal/domain/shared"
)

// fakeReserver records stock operations so guard wiring can be asserted
// without the real reservation engine.
type fakeReserver struct {
	mu          sync.Mutex
	held        map[uuid.UUID]map[uuid.UUID]int64 // order -> variant -> qty
	consumed    []LineDemand
	restored    []LineDemand
	releases    int
	failReserve error
	failConsume error
}

func newFakeReserver() *fakeReserver {
	return &fakeReserver{held: make(map[uuid.UUID]map[uuid.UUID]int64)}
}

func (f *fakeReserver) ReserveLines(_ context.Context, orderID uuid.UUID, lines []LineDemand) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failReserve != nil {
		return f.failReserve
	}
	holds, ok := f.held[orderID]
	if !ok {
		holds = make(map[uuid.UUID]int64)
		f.held[orderID] = holds
	}
	for _, line := range lines {
		holds[line.VariantID] += line.Quantity
	}
	return nil
}

func (f *fakeReserver) ConsumeLines(_ context.Context, orderID uuid.UUID, lines []LineDemand, _ *string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failConsume != nil {
		return f.failConsume
	}
	holds := f.held[orderID]
	for _, line := range lines {
		if holds[line.VariantID] < line.Quantity {
			return shared.NewDomainError("INSUFFICIENT_HOLD", "hold does not cover the line")
		}
	}
	for _, line := range lines {
		holds[line.VariantID] -= line.Quantity
		f.consumed = append(f.consumed, line)
	}
	return nil
}

func (f *fakeReserver) RestoreConsumedLines(_ context.Context, orderID uuid.UUID, lines []LineDemand, _ *string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	holds, ok := f.held[orderID]
	if !ok {
		holds = make(map[uuid.UUID]int64)
		f.held[orderID] = holds
	}
	for _, line := range lines {
		holds[line.VariantID] += line.Quantity
	}
	f.restored = append(f.restored, lines...)
	return nil
}

func (f *fakeReserver) ReleaseOrder(_ context.Context, orderID uuid.UUID) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.releases++
	delete(f.held, orderID)
	return nil
}

func (f *fakeReserver) HeldQuantities(_ context.Context, orderID uuid.UUID) (map[uuid.UUID]int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make(map[uuid.UUID]int64)
	for variantID, qty := range f.held[orderID] {
		out[variantID] = qty
	}
	return out, nil
}

// fakeOrderRepo is an in-memory order store with an optimistic version check
type fakeOrderRepo struct {
	mu     sync.Mutex
	orders map[uuid.UUID]*Order
}

func newFakeOrderRepo() *fakeOrderRepo {
	return &fakeOrderRepo{orders: make(map[uuid.UUID]*Order)}
}

func (r *fakeOrderRepo) Create(_ context.Context, o *Order) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	cp := *o
	r.orders[o.ID] = &cp
	return nil
}

func (r *fakeOrderRepo) Save(_ context.Context, o *Order) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	stored, ok := r.orders[o.ID]
	if !ok {
		return shared.ErrNotFound
	}
	if stored.Version != o.Version {
		return shared.ErrConcurrencyConflict
	}
	cp := *o
	cp.Version++
	r.orders[o.ID] = &cp
	o.Version = cp.Version
	return nil
}

func (r *fakeOrderRepo) FindByID(_ context.Context, id uuid.UUID) (*Order, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	stored, ok := r.orders[id]
	if !ok {
		return nil, shared.ErrNotFound
	}
	cp := *stored
	return &cp, nil
}

func (r *fakeOrderRepo) FindByOrderNumber(_ context.Context, orderNumber string) (*Order, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, stored := range r.orders {
		if stored.OrderNumber == orderNumber {
			cp := *stored
			return &cp, nil
		}
	}
	return nil, shared.ErrNotFound
}

func (r *fakeOrderRepo) FindAll(_ context.Context, _ shared.Filter) (shared.Paginated[*Order], error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	items := make([]*Order, 0, len(r.orders))
	for _, stored := range r.orders {
		cp := *stored
		items = append(items, &cp)
	}
	return shared.NewPaginated(items, int64(len(items)), 1, len(items)+1), nil
}

func newTestMachine(t *testing.T) (*StateMachine, *fakeOrderRepo, *fakeReserver) {
	t.Helper()
	repo := newFakeOrderRepo()
	return NewStateMachine(repo, zap.NewNop()), repo, newFakeReserver()
}

func persistedOrder(t *testing.T, repo *fakeOrderRepo, lines int) *Order {
	t.Helper()
	o, err := NewOrder("SO-" + uuid.NewString()[:8])
	require.NoError(t, err)
	for i := 0; i < lines; i++ {
		require.NoError(t, o.AddLine("SKU", uuid.New(), 2, decimal.RequireFromString("10.00")))
	}
	require.NoError(t, repo.Create(context.Background(), o))
	return o
}

func TestStateMachine_IsAllowed(t *testing.T) {
	m, _, _ := newTestMachine(t)

	allowed := []struct{ from, to Status }{
		{StatusCreated, StatusConfirmed},
		{StatusCreated, StatusCancelled},
		{StatusConfirmed, StatusPaid},
		{StatusConfirmed, StatusCancelled},
		{StatusPaid, StatusPartiallyShipped},
		{StatusPaid, StatusShipped},
		{StatusPaid, StatusRefunded},
		{StatusPaid, StatusPartiallyRefunded},
		{StatusPartiallyShipped, StatusShipped},
		{StatusPartiallyShipped, StatusDelivered},
		{StatusPartiallyShipped, StatusPartiallyRefunded},
		{StatusShipped, StatusDelivered},
		{StatusShipped, StatusPartiallyRefunded},
		{StatusShipped, StatusRefunded},
		{StatusDelivered, StatusPartiallyRefunded},
		{StatusDelivered, StatusRefunded},
		{StatusPartiallyRefunded, StatusRefunded},
	}
	for _, tc := range allowed {
		assert.True(t, m.IsAllowed(tc.from, tc.to), "%s -> %s must be allowed", tc.from, tc.to)
	}

	denied := []struct{ from, to Status }{
		{StatusCancelled, StatusPaid},
		{StatusCreated, StatusPaid},
		{StatusCreated, StatusShipped},
		{StatusConfirmed, StatusShipped},
		{StatusPaid, StatusCancelled},
		{StatusDelivered, StatusShipped},
		{StatusRefunded, StatusCreated},
	}
	for _, tc := range denied {
		assert.False(t, m.IsAllowed(tc.from, tc.to), "%s -> %s must be denied", tc.from, tc.to)
	}

	t.Run("terminal states have no outgoing edges", func(t *testing.T) {
		all := []Status{
			StatusCreated, StatusConfirmed, StatusPaid, StatusPartiallyShipped,
			StatusShipped, StatusDelivered, StatusPartiallyRefunded,
			StatusCancelled, StatusRefunded,
		}
		for _, from := range []Status{StatusCancelled, StatusRefunded} {
			for _, to := range all {
				assert.False(t, m.IsAllowed(from, to))
			}
		}
	})

	t.Run("self transitions are disallowed", func(t *testing.T) {
		for _, s := range []Status{StatusCreated, StatusPaid, StatusShipped} {
			assert.False(t, m.IsAllowed(s, s))
		}
	})
}

func TestStateMachine_Apply_InvalidTransition(t *testing.T) {
	ctx := context.Background()
	m, repo, reserver := newTestMachine(t)
	o := persistedOrder(t, repo, 1)

	err := m.Apply(ctx, o, StatusPaid, GuardContext{Reserver: reserver})
	var invalid *InvalidTransitionError
	require.ErrorAs(t, err, &invalid)
	assert.Equal(t, StatusCreated, invalid.From)
	assert.Equal(t, StatusPaid, invalid.To)
	assert.Equal(t, StatusCreated, o.Status)
}

func TestStateMachine_Apply_Confirm(t *testing.T) {
	ctx := context.Background()

	t.Run("reserves stock for every line", func(t *testing.T) {
		m, repo, reserver := newTestMachine(t)
		o := persistedOrder(t, repo, 2)

		require.NoError(t, m.Apply(ctx, o, StatusConfirmed, GuardContext{Reserver: reserver}))
		assert.Equal(t, StatusConfirmed, o.Status)
		assert.NotNil(t, o.ConfirmedAt)

		held, err := reserver.HeldQuantities(ctx, o.ID)
		require.NoError(t, err)
		assert.Len(t, held, 2)

		stored, err := repo.FindByID(ctx, o.ID)
		require.NoError(t, err)
		assert.Equal(t, StatusConfirmed, stored.Status)
	})

	t.Run("rejects an order without lines", func(t *testing.T) {
		m, repo, reserver := newTestMachine(t)
		o := persistedOrder(t, repo, 0)

		err := m.Apply(ctx, o, StatusConfirmed, GuardContext{Reserver: reserver})
		var failed *GuardFailedError
		require.ErrorAs(t, err, &failed)
		assert.Equal(t, "order_has_lines", failed.Guard)
		assert.Equal(t, StatusCreated, o.Status)
	})

	t.Run("reservation failure leaves the order unchanged", func(t *testing.T) {
		m, repo, reserver := newTestMachine(t)
		reserver.failReserve = shared.NewDomainError("INSUFFICIENT_STOCK", "not enough")
		o := persistedOrder(t, repo, 1)

		err := m.Apply(ctx, o, StatusConfirmed, GuardContext{Reserver: reserver})
		var failed *GuardFailedError
		require.ErrorAs(t, err, &failed)
		assert.Equal(t, StatusCreated, o.Status)

		stored, ferr := repo.FindByID(ctx, o.ID)
		require.NoError(t, ferr)
		assert.Equal(t, StatusCreated, stored.Status)
	})
}

func TestStateMachine_Apply_Pay(t *testing.T) {
	ctx := context.Background()

	confirmed := func(t *testing.T, m *StateMachine, repo *fakeOrderRepo, reserver *fakeReserver) *Order {
		t.Helper()
		o := persistedOrder(t, repo, 1)
		require.NoError(t, m.Apply(ctx, o, StatusConfirmed, GuardContext{Reserver: reserver}))
		return o
	}

	t.Run("fails before payment is captured and appends nothing", func(t *testing.T) {
		m, repo, reserver := newTestMachine(t)
		o := confirmed(t, m, repo, reserver)

		err := m.Apply(ctx, o, StatusPaid, GuardContext{Reserver: reserver})
		var failed *GuardFailedError
		require.ErrorAs(t, err, &failed)
		assert.Equal(t, "payment_captured_covers_total", failed.Guard)
		assert.Equal(t, StatusConfirmed, o.Status)
		assert.Empty(t, reserver.consumed)
	})

	t.Run("succeeds once payment covers the total and stock is held", func(t *testing.T) {
		m, repo, reserver := newTestMachine(t)
		o := confirmed(t, m, repo, reserver)
		require.NoError(t, o.RecordPayment(o.Total(), "pay-1"))
		require.NoError(t, repo.Save(ctx, o))

		require.NoError(t, m.Apply(ctx, o, StatusPaid, GuardContext{Reserver: reserver}))
		assert.Equal(t, StatusPaid, o.Status)
		assert.NotNil(t, o.PaidAt)
	})

	t.Run("fails when the reservation no longer covers the lines", func(t *testing.T) {
		m, repo, reserver := newTestMachine(t)
		o := confirmed(t, m, repo, reserver)
		require.NoError(t, o.RecordPayment(o.Total(), "pay-1"))
		require.NoError(t, repo.Save(ctx, o))
		require.NoError(t, reserver.ReleaseOrder(ctx, o.ID))

		err := m.Apply(ctx, o, StatusPaid, GuardContext{Reserver: reserver})
		var failed *GuardFailedError
		require.ErrorAs(t, err, &failed)
		assert.Equal(t, "reservation_held_for_all_lines", failed.Guard)
	})
}

func TestStateMachine_Apply_ShipAndDeliver(t *testing.T) {
	ctx := context.Background()

	paid := func(t *testing.T, m *StateMachine, repo *fakeOrderRepo, reserver *fakeReserver, lines int) *Order {
		t.Helper()
		o := persistedOrder(t, repo, lines)
		require.NoError(t, m.Apply(ctx, o, StatusConfirmed, GuardContext{Reserver: reserver}))
		require.NoError(t, o.RecordPayment(o.Total(), "pay-1"))
		require.NoError(t, repo.Save(ctx, o))
		require.NoError(t, m.Apply(ctx, o, StatusPaid, GuardContext{Reserver: reserver}))
		return o
	}

	t.Run("full shipment consumes every line", func(t *testing.T) {
		m, repo, reserver := newTestMachine(t)
		o := paid(t, m, repo, reserver, 2)

		require.NoError(t, m.Apply(ctx, o, StatusShipped, GuardContext{Reserver: reserver}))
		assert.Equal(t, StatusShipped, o.Status)
		assert.NotNil(t, o.ShippedAt)
		assert.Len(t, reserver.consumed, 2)
		assert.Empty(t, o.RemainingDemands())
	})

	t.Run("partial shipment consumes only the shipped subset", func(t *testing.T) {
		m, repo, reserver := newTestMachine(t)
		o := paid(t, m, repo, reserver, 2)
		first := o.Lines[0].VariantID

		gc := GuardContext{
			Reserver:     reserver,
			ShippedLines: []LineDemand{{VariantID: first, Quantity: 2}},
		}
		require.NoError(t, m.Apply(ctx, o, StatusPartiallyShipped, gc))
		assert.Equal(t, StatusPartiallyShipped, o.Status)
		assert.Len(t, reserver.consumed, 1)
		assert.Len(t, o.RemainingDemands(), 1)

		require.NoError(t, m.Apply(ctx, o, StatusShipped, GuardContext{Reserver: reserver}))
		assert.Empty(t, o.RemainingDemands())
	})

	t.Run("a covering shipment may not target the partial status", func(t *testing.T) {
		m, repo, reserver := newTestMachine(t)
		o := paid(t, m, repo, reserver, 1)

		gc := GuardContext{Reserver: reserver, ShippedLines: o.RemainingDemands()}
		err := m.Apply(ctx, o, StatusPartiallyShipped, gc)
		var failed *GuardFailedError
		require.ErrorAs(t, err, &failed)
		assert.Empty(t, reserver.consumed)
	})

	t.Run("delivery carries no stock guard", func(t *testing.T) {
		m, repo, reserver := newTestMachine(t)
		o := paid(t, m, repo, reserver, 1)
		require.NoError(t, m.Apply(ctx, o, StatusShipped, GuardContext{Reserver: reserver}))

		require.NoError(t, m.Apply(ctx, o, StatusDelivered, GuardContext{Reserver: reserver}))
		assert.Equal(t, StatusDelivered, o.Status)
		assert.NotNil(t, o.DeliveredAt)
	})
}

func TestStateMachine_Apply_CancelAndRefund(t *testing.T) {
	ctx := context.Background()

	t.Run("cancel releases held stock and records the reason", func(t *testing.T) {
		m, repo, reserver := newTestMachine(t)
		o := persistedOrder(t, repo, 1)
		require.NoError(t, m.Apply(ctx, o, StatusConfirmed, GuardContext{Reserver: reserver}))

		gc := GuardContext{Reserver: reserver, CancelReason: "customer request"}
		require.NoError(t, m.Apply(ctx, o, StatusCancelled, gc))
		assert.Equal(t, StatusCancelled, o.Status)
		assert.Equal(t, "customer request", o.CancelReason)
		assert.NotNil(t, o.CancelledAt)

		held, err := reserver.HeldQuantities(ctx, o.ID)
		require.NoError(t, err)
		assert.Empty(t, held)
	})

	t.Run("full refund from paid requires full coverage and releases holds", func(t *testing.T) {
		m, repo, reserver := newTestMachine(t)
		o := persistedOrder(t, repo, 1)
		require.NoError(t, m.Apply(ctx, o, StatusConfirmed, GuardContext{Reserver: reserver}))
		require.NoError(t, o.RecordPayment(o.Total(), "pay-1"))
		require.NoError(t, repo.Save(ctx, o))
		require.NoError(t, m.Apply(ctx, o, StatusPaid, GuardContext{Reserver: reserver}))

		err := m.Apply(ctx, o, StatusRefunded, GuardContext{Reserver: reserver})
		var failed *GuardFailedError
		require.ErrorAs(t, err, &failed)
		assert.Equal(t, "refund_covers_captured_amount", failed.Guard)

		require.NoError(t, o.RecordRefund(o.CapturedAmount(), "ref-1"))
		require.NoError(t, repo.Save(ctx, o))
		require.NoError(t, m.Apply(ctx, o, StatusRefunded, GuardContext{Reserver: reserver}))
		assert.Equal(t, StatusRefunded, o.Status)

		held, herr := reserver.HeldQuantities(ctx, o.ID)
		require.NoError(t, herr)
		assert.Empty(t, held)
	})

	t.Run("partial refund requires a recorded refund", func(t *testing.T) {
		m, repo, reserver := newTestMachine(t)
		o := persistedOrder(t, repo, 1)
		require.NoError(t, m.Apply(ctx, o, StatusConfirmed, GuardContext{Reserver: reserver}))
		require.NoError(t, o.RecordPayment(o.Total(), "pay-1"))
		require.NoError(t, repo.Save(ctx, o))
		require.NoError(t, m.Apply(ctx, o, StatusPaid, GuardContext{Reserver: reserver}))

		err := m.Apply(ctx, o, StatusPartiallyRefunded, GuardContext{Reserver: reserver})
		var failed *GuardFailedError
		require.ErrorAs(t, err, &failed)

		require.NoError(t, o.RecordRefund(decimal.RequireFromString("5.00"), "ref-1"))
		require.NoError(t, repo.Save(ctx, o))
		require.NoError(t, m.Apply(ctx, o, StatusPartiallyRefunded, GuardContext{Reserver: reserver}))
		assert.Equal(t, StatusPartiallyRefunded, o.Status)
	})
}

func TestStateMachine_Apply_StaleVersionRestoresConsumedStock(t *testing.T) {
	ctx := context.Background()
	m, repo, reserver := newTestMachine(t)
	o := persistedOrder(t, repo, 1)
	variantID := o.Lines[0].VariantID
	require.NoError(t, m.Apply(ctx, o, StatusConfirmed, GuardContext{Reserver: reserver}))
	require.NoError(t, o.RecordPayment(o.Total(), "pay-1"))
	require.NoError(t, repo.Save(ctx, o))
	require.NoError(t, m.Apply(ctx, o, StatusPaid, GuardContext{Reserver: reserver}))

	// A concurrent writer bumps the stored version behind this copy's back.
	stored, err := repo.FindByID(ctx, o.ID)
	require.NoError(t, err)
	require.NoError(t, repo.Save(ctx, stored))

	err = m.Apply(ctx, o, StatusShipped, GuardContext{Reserver: reserver})
	assert.ErrorIs(t, err, shared.ErrConcurrencyConflict)
	assert.True(t, shared.IsRetryable(err))
	assert.Equal(t, StatusPaid, o.Status)
	assert.Len(t, o.RemainingDemands(), 1, "shipment bookkeeping must be unwound")
	assert.Equal(t, []LineDemand{{VariantID: variantID, Quantity: 2}}, reserver.restored)

	held, herr := reserver.HeldQuantities(ctx, o.ID)
	require.NoError(t, herr)
	assert.Equal(t, int64(2), held[variantID], "the consumed hold must be active again")

	// The retry with a fresh copy of the order succeeds.
	fresh, ferr := repo.FindByID(ctx, o.ID)
	require.NoError(t, ferr)
	require.NoError(t, m.Apply(ctx, fresh, StatusShipped, GuardContext{Reserver: reserver}))
	assert.Equal(t, StatusShipped, fresh.Status)
}

func TestStateMachine_Apply_StaleVersionCompensates(t *testing.T) {
	ctx := context.Background()
	m, repo, reserver := newTestMachine(t)
	o := persistedOrder(t, repo, 1)

	// A concurrent writer bumps the stored version behind this copy's back.
	stored, err := repo.FindByID(ctx, o.ID)
	require.NoError(t, err)
	require.NoError(t, repo.Save(ctx, stored))

	err = m.Apply(ctx, o, StatusConfirmed, GuardContext{Reserver: reserver})
	assert.ErrorIs(t, err, shared.ErrConcurrencyConflict)
	assert.True(t, shared.IsRetryable(err))
	assert.Equal(t, StatusCreated, o.Status)

	held, herr := reserver.HeldQuantities(ctx, o.ID)
	require.NoError(t, herr)
	assert.Empty(t, held, "the reservation taken by the guard must be released")
}

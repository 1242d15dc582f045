package order

import (
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func money(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func newTestOrder(t *testing.T) *Order {
	t.Helper()
	o, err := NewOrder("SO-1001")
	require.NoError(t, err)
	return o
}

func TestNewOrder(t *testing.T) {
	o := newTestOrder(t)
	assert.Equal(t, StatusCreated, o.Status)
	assert.Equal(t, "SO-1001", o.OrderNumber)
	assert.Equal(t, 1, o.GetVersion())
	assert.Len(t, o.GetDomainEvents(), 1)

	_, err := NewOrder("")
	assert.Error(t, err)
}

func TestOrder_AddLine(t *testing.T) {
	t.Run("accumulates lines while created", func(t *testing.T) {
		o := newTestOrder(t)
		require.NoError(t, o.AddLine("TS-RED-M", uuid.New(), 2, money("19.99")))
		require.NoError(t, o.AddLine("TS-BLU-L", uuid.New(), 1, money("24.50")))
		assert.Len(t, o.Lines, 2)
		assert.True(t, o.Total().Equal(money("64.48")))
	})

	t.Run("rejects lines after the order left created", func(t *testing.T) {
		o := newTestOrder(t)
		require.NoError(t, o.AddLine("TS-RED-M", uuid.New(), 1, money("10.00")))
		o.applyStatus(StatusConfirmed, "")
		assert.Error(t, o.AddLine("TS-BLU-L", uuid.New(), 1, money("10.00")))
	})

	t.Run("rejects invalid lines", func(t *testing.T) {
		o := newTestOrder(t)
		assert.Error(t, o.AddLine("", uuid.New(), 1, money("10.00")))
		assert.Error(t, o.AddLine("SKU", uuid.Nil, 1, money("10.00")))
		assert.Error(t, o.AddLine("SKU", uuid.New(), 0, money("10.00")))
		assert.Error(t, o.AddLine("SKU", uuid.New(), 1, money("-1.00")))
	})
}

func TestOrder_PaymentsAndRefunds(t *testing.T) {
	o := newTestOrder(t)
	require.NoError(t, o.AddLine("SKU", uuid.New(), 2, money("25.00")))

	require.NoError(t, o.RecordPayment(money("50.00"), "pay-1"))
	assert.True(t, o.CapturedAmount().Equal(money("50.00")))

	t.Run("refunds cannot exceed the captured amount", func(t *testing.T) {
		assert.Error(t, o.RecordRefund(money("60.00"), "ref-1"))
		require.NoError(t, o.RecordRefund(money("20.00"), "ref-1"))
		require.NoError(t, o.RecordRefund(money("30.00"), "ref-2"))
		assert.Error(t, o.RecordRefund(money("0.01"), "ref-3"))
		assert.True(t, o.RefundedAmount().Equal(money("50.00")))
	})

	t.Run("rejects non-positive amounts", func(t *testing.T) {
		assert.Error(t, o.RecordPayment(money("0"), "pay-0"))
		assert.Error(t, o.RecordRefund(money("-5"), "ref-0"))
	})
}

func TestOrder_ShipmentBookkeeping(t *testing.T) {
	variantA, variantB := uuid.New(), uuid.New()
	o := newTestOrder(t)
	require.NoError(t, o.AddLine("A", variantA, 3, money("10.00")))
	require.NoError(t, o.AddLine("B", variantB, 2, money("10.00")))

	require.NoError(t, o.recordShipment([]LineDemand{{VariantID: variantA, Quantity: 2}}))
	assert.Equal(t, int64(2), o.Lines[0].ShippedQuantity)
	assert.Equal(t, int64(1), o.Lines[0].RemainingQuantity())

	remaining := o.RemainingDemands()
	require.Len(t, remaining, 2)
	assert.Equal(t, int64(1), remaining[0].Quantity)
	assert.Equal(t, int64(2), remaining[1].Quantity)

	err := o.recordShipment([]LineDemand{{VariantID: variantB, Quantity: 5}})
	assert.Error(t, err)
}

func TestStatus(t *testing.T) {
	assert.True(t, StatusCancelled.IsTerminal())
	assert.True(t, StatusRefunded.IsTerminal())
	assert.False(t, StatusPaid.IsTerminal())
	assert.True(t, StatusPartiallyShipped.IsValid())
	assert.False(t, Status("unknown").IsValid())
}

package telemetry

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/metric/noop"
	"go.uber.org/zap"

	"github.com/shopcore/backend/internal/domain/inventory"
	"github.com/shopcore/backend/internal/domain/order"
	"github.com/shopcore/backend/internal/domain/shared"
)

func newTestMetricsHandler(t *testing.T) *MetricsEventHandler {
	t.Helper()
	metrics, err := NewBusinessMetrics(BusinessMetricsConfig{
		Meter: noop.NewMeterProvider().Meter("test"),
	})
	require.NoError(t, err)
	return NewMetricsEventHandler(metrics, zap.NewNop())
}

func TestMetricsEventHandler_EventTypes(t *testing.T) {
	handler := newTestMetricsHandler(t)
	assert.Contains(t, handler.EventTypes(), order.EventTypeOrderCreated)
	assert.Contains(t, handler.EventTypes(), order.EventTypeOrderStatusChanged)
	assert.Contains(t, handler.EventTypes(), inventory.EventTypeStockAdjusted)
}

func TestMetricsEventHandler_HandleKnownEvents(t *testing.T) {
	handler := newTestMetricsHandler(t)
	ctx := context.Background()
	orderID := uuid.New()
	variantID := uuid.New()

	events := []struct {
		name  string
		event shared.DomainEvent
	}{
		{"order created", order.NewOrderCreatedEvent(orderID, "ORD-1")},
		{"status changed", order.NewOrderStatusChangedEvent(orderID, "ORD-1", order.StatusCreated, order.StatusConfirmed)},
		{"stock adjusted", inventory.NewStockAdjustedEvent(variantID, 5, inventory.ReasonReceipt)},
		{"stock reserved", inventory.NewStockReservedEvent(uuid.New(), orderID, variantID, 2)},
		{"reservation consumed", inventory.NewReservationConsumedEvent(orderID, variantID, 2)},
	}
	for _, tt := range events {
		t.Run(tt.name, func(t *testing.T) {
			assert.NoError(t, handler.Handle(ctx, tt.event))
		})
	}
}

func TestMetricsEventHandler_IgnoresUnknownEvent(t *testing.T) {
	handler := newTestMetricsHandler(t)
	event := inventory.NewReservationReleasedEvent(uuid.New(), uuid.New(), 1)
	assert.NoError(t, handler.Handle(context.Background(), event))
}

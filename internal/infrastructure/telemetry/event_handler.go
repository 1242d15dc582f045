package telemetry

import (
	"context"

	"go.uber.org/zap"

	"github.com/shopcore/backend/internal/domain/inventory"
	"github.com/shopcore/backend/internal/domain/order"
	"github.com/shopcore/backend/internal/domain/shared"
)

// MetricsEventHandler projects domain events onto business metrics. It
// subscribes to the in-process event bus so that neither the order nor
// the inventory services carry a metrics dependency.
type MetricsEventHandler struct {
	metrics *BusinessMetrics
	logger  *zap.Logger
}

// NewMetricsEventHandler creates a metrics event handler
func NewMetricsEventHandler(metrics *BusinessMetrics, logger *zap.Logger) *MetricsEventHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &MetricsEventHandler{metrics: metrics, logger: logger}
}

// EventTypes returns the event types this handler consumes
func (h *MetricsEventHandler) EventTypes() []string {
	return []string{
		order.EventTypeOrderCreated,
		order.EventTypeOrderStatusChanged,
		inventory.EventTypeStockAdjusted,
		inventory.EventTypeStockReserved,
		inventory.EventTypeReservationConsumed,
	}
}

// Handle records the metric matching the event. Unknown events are
// ignored so bus wiring changes never break metrics collection.
func (h *MetricsEventHandler) Handle(ctx context.Context, event shared.DomainEvent) error {
	switch e := event.(type) {
	case *order.OrderCreatedEvent:
		h.metrics.RecordOrderCreated(ctx)
	case *order.OrderStatusChangedEvent:
		h.metrics.RecordOrderTransition(ctx, string(e.From), string(e.To))
	case *inventory.StockAdjustedEvent:
		h.metrics.RecordLedgerEntry(ctx, string(e.Reason))
	case *inventory.StockReservedEvent:
		h.metrics.RecordReservationRequest(ctx, ReservationOutcomeReserved)
	case *inventory.ReservationConsumedEvent:
		h.metrics.RecordLedgerEntry(ctx, string(inventory.ReasonShipmentAllocation))
	default:
		h.logger.Debug("ignoring event without a metric mapping",
			zap.String("event_type", event.EventType()))
	}
	return nil
}

var _ shared.EventHandler = (*MetricsEventHandler)(nil)

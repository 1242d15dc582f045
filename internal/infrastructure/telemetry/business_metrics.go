// Package telemetry provides OpenTelemetry integration for metrics collection.
package telemetry

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/metric"
	"go.uber.org/zap"
)

// BusinessMetrics tracks order lifecycle activity, stock movements and
// reservation health.
type BusinessMetrics struct {
	meter  metric.Meter
	logger *zap.Logger

	// Counter metrics (monotonically increasing)
	orderTransitionsTotal    *Counter
	ordersCreatedTotal       *Counter
	ledgerEntriesTotal       *Counter
	reservationRequestsTotal *Counter

	// Gauge metrics (point-in-time values)
	reservedQuantity *Gauge

	// Periodic collector
	stopChan    chan struct{}
	stopOnce    sync.Once
	collectOnce sync.Once

	stockProvider StockMetricsProvider
}

// StockMetricsProvider provides reservation data for periodic metrics
// collection without a direct dependency on the inventory domain.
type StockMetricsProvider interface {
	// GetReservedQuantityByVariant returns total active reserved quantity per variant.
	GetReservedQuantityByVariant(ctx context.Context) (map[uuid.UUID]int64, error)
}

// BusinessMetricsConfig holds configuration for business metrics.
type BusinessMetricsConfig struct {
	Meter           metric.Meter
	Logger          *zap.Logger
	CollectInterval time.Duration // Default: 5 minutes
	StockProvider   StockMetricsProvider
}

// NewBusinessMetrics creates a new BusinessMetrics instance.
func NewBusinessMetrics(cfg BusinessMetricsConfig) (*BusinessMetrics, error) {
	if cfg.Meter == nil {
		return nil, ErrMeterNil
	}

	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	bm := &BusinessMetrics{
		meter:         cfg.Meter,
		logger:        logger,
		stopChan:      make(chan struct{}),
		stockProvider: cfg.StockProvider,
	}

	var err error

	bm.ordersCreatedTotal, err = NewCounter(
		cfg.Meter,
		"shopcore_orders_created_total",
		"Total number of orders created",
		"{orders}",
	)
	if err != nil {
		return nil, err
	}

	bm.orderTransitionsTotal, err = NewCounter(
		cfg.Meter,
		"shopcore_order_transitions_total",
		"Total number of order status transitions",
		"{transitions}",
	)
	if err != nil {
		return nil, err
	}

	bm.ledgerEntriesTotal, err = NewCounter(
		cfg.Meter,
		"shopcore_stock_ledger_entries_total",
		"Total number of stock ledger entries appended",
		"{entries}",
	)
	if err != nil {
		return nil, err
	}

	bm.reservationRequestsTotal, err = NewCounter(
		cfg.Meter,
		"shopcore_reservation_requests_total",
		"Total number of stock reservation requests by outcome",
		"{requests}",
	)
	if err != nil {
		return nil, err
	}

	bm.reservedQuantity, err = NewGauge(
		cfg.Meter,
		"shopcore_reserved_quantity",
		"Current active reserved stock quantity",
		"{units}",
	)
	if err != nil {
		return nil, err
	}

	return bm, nil
}

// =============================================================================
// Order Metrics
// =============================================================================

// RecordOrderCreated records an order creation event.
func (bm *BusinessMetrics) RecordOrderCreated(ctx context.Context) {
	bm.ordersCreatedTotal.Inc(ctx)
}

// RecordOrderTransition records a successful order status transition.
func (bm *BusinessMetrics) RecordOrderTransition(ctx context.Context, from, to string) {
	bm.orderTransitionsTotal.Inc(ctx,
		AttrFromStatus.String(from),
		AttrToStatus.String(to),
	)
}

// =============================================================================
// Inventory Metrics
// =============================================================================

// RecordLedgerEntry records a stock ledger append, labeled by movement reason.
func (bm *BusinessMetrics) RecordLedgerEntry(ctx context.Context, reason string) {
	bm.ledgerEntriesTotal.Inc(ctx, AttrLedgerReason.String(reason))
}

// ReservationOutcome labels the result of a reservation request.
type ReservationOutcome string

const (
	ReservationOutcomeReserved     ReservationOutcome = "reserved"
	ReservationOutcomeInsufficient ReservationOutcome = "insufficient_stock"
	ReservationOutcomeConflict     ReservationOutcome = "conflict"
)

// RecordReservationRequest records the outcome of a reservation request.
func (bm *BusinessMetrics) RecordReservationRequest(ctx context.Context, outcome ReservationOutcome) {
	bm.reservationRequestsTotal.Inc(ctx, AttrOutcome.String(string(outcome)))
}

// RecordReservedQuantity records the current active reserved quantity for a variant.
// This is a gauge metric that should be updated periodically.
func (bm *BusinessMetrics) RecordReservedQuantity(ctx context.Context, variantID uuid.UUID, quantity int64) {
	bm.reservedQuantity.Record(ctx, quantity,
		AttrVariantID.String(variantID.String()),
	)
}

// =============================================================================
// Periodic Collection
// =============================================================================

// StartPeriodicCollection starts periodic collection of gauge metrics.
// This is non-blocking; use Stop() to stop collection.
func (bm *BusinessMetrics) StartPeriodicCollection(ctx context.Context, interval time.Duration) {
	bm.collectOnce.Do(func() {
		if interval <= 0 {
			interval = 5 * time.Minute
		}

		go bm.runPeriodicCollection(ctx, interval)
	})
}

func (bm *BusinessMetrics) runPeriodicCollection(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	bm.collectStockMetrics(ctx)

	for {
		select {
		case <-bm.stopChan:
			bm.logger.Info("Stopping periodic business metrics collection")
			return
		case <-ctx.Done():
			bm.logger.Info("Context cancelled, stopping periodic business metrics collection")
			return
		case <-ticker.C:
			bm.collectStockMetrics(ctx)
		}
	}
}

func (bm *BusinessMetrics) collectStockMetrics(ctx context.Context) {
	if bm.stockProvider == nil {
		bm.logger.Debug("No stock provider configured, skipping stock metrics collection")
		return
	}

	reservedByVariant, err := bm.stockProvider.GetReservedQuantityByVariant(ctx)
	if err != nil {
		bm.logger.Warn("Failed to get reserved quantities", zap.Error(err))
		return
	}

	for variantID, quantity := range reservedByVariant {
		bm.RecordReservedQuantity(ctx, variantID, quantity)
	}
}

// Stop stops the periodic collection.
func (bm *BusinessMetrics) Stop() {
	bm.stopOnce.Do(func() {
		close(bm.stopChan)
	})
}

// =============================================================================
// Error Types
// =============================================================================

// ErrMeterNil is returned when meter is nil.
var ErrMeterNil = &MetricsError{Op: "NewBusinessMetrics", Err: "meter cannot be nil"}

// MetricsError represents a metrics-related error.
type MetricsError struct {
	Op  string
	Err string
}

func (e *MetricsError) Error() string {
	return e.Op + ": " + e.Err
}

package inventory

import (
	"context"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/shopcore/backend/internal/domain/inventory"
	"github.com/shopcore/backend/internal/domain/shared"
)

// Service exposes inventory administration: direct ledger corrections,
// availability readings and ledger history for the admin API.
type Service struct {
	engine *inventory.ReservationEngine
	ledger *inventory.StockLedger
	events shared.EventPublisher
	logger *zap.Logger
}

// NewService creates an inventory service
func NewService(
	engine *inventory.ReservationEngine,
	ledger *inventory.StockLedger,
	events shared.EventPublisher,
	logger *zap.Logger,
) *Service {
	return &Service{
		engine: engine,
		ledger: ledger,
		events: events,
		logger: logger,
	}
}

// Adjust appends a direct ledger correction. Receipts and operator
// overrides go through here; order fulfillment never does.
func (s *Service) Adjust(ctx context.Context, variantID uuid.UUID, delta int64, reason inventory.LedgerReason, referenceID *string) error {
	if reason == "" {
		reason = inventory.ReasonAdjustment
	}
	if err := s.engine.Adjust(ctx, variantID, delta, reason, referenceID); err != nil {
		return err
	}
	s.publish(ctx, inventory.NewStockAdjustedEvent(variantID, delta, reason))
	return nil
}

// Availability recomputes on-hand, reserved and available for a variant
func (s *Service) Availability(ctx context.Context, variantID uuid.UUID) (inventory.Availability, error) {
	return s.engine.Availability(ctx, variantID)
}

// History lists a variant's ledger entries newest first with a
// continuation token
func (s *Service) History(ctx context.Context, variantID uuid.UUID, token string, limit int) ([]*inventory.LedgerEntry, string, error) {
	return s.ledger.History(ctx, variantID, token, limit)
}

// ActiveReservations returns the active holds of an order
func (s *Service) ActiveReservations(ctx context.Context, orderID uuid.UUID) ([]*inventory.Reservation, error) {
	return s.engine.ActiveReservations(ctx, orderID)
}

func (s *Service) publish(ctx context.Context, event shared.DomainEvent) {
	if s.events == nil {
		return
	}
	if err := s.events.Publish(ctx, event); err != nil {
		s.logger.Warn("failed to publish inventory event",
			zap.String("event_type", event.EventType()),
			zap.Error(err))
	}
}

package inventory

import (
	"github.com/google/uuid"

	"github.com/shopcore/backend/internal/domain/shared"
)

// Event types for the inventory domain
const (
	EventTypeStockReserved       = "inventory.stock_reserved"
	EventTypeReservationReleased = "inventory.reservation_released"
	EventTypeReservationConsumed = "inventory.reservation_consumed"
	EventTypeStockAdjusted       = "inventory.stock_adjusted"
)

// StockReservedEvent is published when stock is held for an order
type StockReservedEvent struct {
	shared.BaseDomainEvent
	OrderID   uuid.UUID `json:"order_id"`
	VariantID uuid.UUID `json:"variant_id"`
	Quantity  int64     `json:"quantity"`
}

// NewStockReservedEvent creates a stock reserved event
func NewStockReservedEvent(reservationID, orderID, variantID uuid.UUID, quantity int64) *StockReservedEvent {
	return &StockReservedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeStockReserved, "Reservation", reservationID),
		OrderID:         orderID,
		VariantID:       variantID,
		Quantity:        quantity,
	}
}

// ReservationReleasedEvent is published when a hold is given back
type ReservationReleasedEvent struct {
	shared.BaseDomainEvent
	OrderID   uuid.UUID `json:"order_id"`
	VariantID uuid.UUID `json:"variant_id"`
	Quantity  int64     `json:"quantity"`
}

// NewReservationReleasedEvent creates a reservation released event
func NewReservationReleasedEvent(orderID, variantID uuid.UUID, quantity int64) *ReservationReleasedEvent {
	return &ReservationReleasedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeReservationReleased, "Reservation", orderID),
		OrderID:         orderID,
		VariantID:       variantID,
		Quantity:        quantity,
	}
}

// ReservationConsumedEvent is published when a hold becomes a permanent
// stock decrement
type ReservationConsumedEvent struct {
	shared.BaseDomainEvent
	OrderID   uuid.UUID `json:"order_id"`
	VariantID uuid.UUID `json:"variant_id"`
	Quantity  int64     `json:"quantity"`
}

// NewReservationConsumedEvent creates a reservation consumed event
func NewReservationConsumedEvent(orderID, variantID uuid.UUID, quantity int64) *ReservationConsumedEvent {
	return &ReservationConsumedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeReservationConsumed, "Reservation", orderID),
		OrderID:         orderID,
		VariantID:       variantID,
		Quantity:        quantity,
	}
}

// StockAdjustedEvent is published on a direct operator ledger correction
type StockAdjustedEvent struct {
	shared.BaseDomainEvent
	VariantID uuid.UUID    `json:"variant_id"`
	Delta     int64        `json:"delta"`
	Reason    LedgerReason `json:"reason"`
}

// NewStockAdjustedEvent creates a stock adjusted event
func NewStockAdjustedEvent(variantID uuid.UUID, delta int64, reason LedgerReason) *StockAdjustedEvent {
	return &StockAdjustedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeStockAdjusted, "Variant", variantID),
		VariantID:       variantID,
		Delta:           delta,
		Reason:          reason,
	}
}

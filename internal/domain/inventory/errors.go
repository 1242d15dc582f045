package inventory

import (
	"fmt"

	"github.com/google/uuid"
)

// InsufficientStockError rejects a reservation that exceeds available stock
type InsufficientStockError struct {
	VariantID uuid.UUID
	Requested int64
	Available int64
}

// Error implements the error interface
func (e *InsufficientStockError) Error() string {
	return fmt.Sprintf("insufficient stock for variant %s: requested %d, available %d",
		e.VariantID, e.Requested, e.Available)
}

// ReservationNotFoundError rejects a release or consume with no matching reservation
type ReservationNotFoundError struct {
	OrderID   uuid.UUID
	VariantID uuid.UUID
}

// Error implements the error interface
func (e *ReservationNotFoundError) Error() string {
	return fmt.Sprintf("no reservation found for order %s variant %s", e.OrderID, e.VariantID)
}

// InsufficientReservationError rejects a consume beyond the held quantity
type InsufficientReservationError struct {
	OrderID   uuid.UUID
	VariantID uuid.UUID
	Requested int64
	Held      int64
}

// Error implements the error interface
func (e *InsufficientReservationError) Error() string {
	return fmt.Sprintf("reservation for order %s variant %s holds %d, cannot consume %d",
		e.OrderID, e.VariantID, e.Held, e.Requested)
}

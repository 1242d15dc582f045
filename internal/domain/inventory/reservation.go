package inventory

import (
	"github.com/google/uuid"

	"github.com/shopcore/backend/internal/domain/shared"
)

// ReservationStatus represents the lifecycle state of a reservation
type ReservationStatus string

const (
	ReservationStatusActive   ReservationStatus = "active"
	ReservationStatusReleased ReservationStatus = "released"
	ReservationStatusConsumed ReservationStatus = "consumed"
)

// IsTerminal reports whether the status is immutable
func (s ReservationStatus) IsTerminal() bool {
	return s == ReservationStatusReleased || s == ReservationStatusConsumed
}

// Reservation is a soft hold of stock for one order line variant. At most
// one Active reservation exists per (order, variant) pair; repeated holds
// for the same pair extend the existing row instead of creating a second.
type Reservation struct {
	shared.BaseAggregateRoot
	VariantID uuid.UUID         `gorm:"type:uuid;not null;index:idx_reservation_variant"`
	OrderID   uuid.UUID         `gorm:"type:uuid;not null;index:idx_reservation_order"`
	Quantity  int64             `gorm:"not null"`
	Status    ReservationStatus `gorm:"type:varchar(16);not null"`
}

// TableName returns the table name for GORM
func (Reservation) TableName() string {
	return "stock_reservations"
}

// NewReservation creates an active reservation
func NewReservation(orderID, variantID uuid.UUID, quantity int64) (*Reservation, error) {
	if orderID == uuid.Nil || variantID == uuid.Nil {
		return nil, shared.NewDomainError("INVALID_RESERVATION", "Order ID and variant ID are required")
	}
	if quantity <= 0 {
		return nil, shared.NewDomainError("INVALID_QUANTITY", "Reservation quantity must be positive")
	}
	return &Reservation{
		BaseAggregateRoot: shared.NewBaseAggregateRoot(),
		VariantID:         variantID,
		OrderID:           orderID,
		Quantity:          quantity,
		Status:            ReservationStatusActive,
	}, nil
}

// Extend increases the held quantity of an active reservation
func (r *Reservation) Extend(quantity int64) error {
	if quantity <= 0 {
		return shared.NewDomainError("INVALID_QUANTITY", "Extension quantity must be positive")
	}
	if r.Status != ReservationStatusActive {
		return shared.ErrInvalidState
	}
	r.Quantity += quantity
	return nil
}

// ReleaseQuantity gives back held stock. Releasing at least the full held
// quantity moves the reservation to Released; a smaller quantity shrinks
// the hold and keeps it Active. Terminal reservations are not modified.
func (r *Reservation) ReleaseQuantity(quantity int64) error {
	if quantity <= 0 {
		return shared.NewDomainError("INVALID_QUANTITY", "Release quantity must be positive")
	}
	if r.Status != ReservationStatusActive {
		return shared.ErrInvalidState
	}
	if quantity >= r.Quantity {
		r.Status = ReservationStatusReleased
		return nil
	}
	r.Quantity -= quantity
	return nil
}

// ConsumeQuantity converts held stock into a permanent decrement. Consuming
// the full held quantity moves the reservation to Consumed; a smaller
// quantity shrinks the Active hold so the remainder stays reserved.
func (r *Reservation) ConsumeQuantity(quantity int64) error {
	if quantity <= 0 {
		return shared.NewDomainError("INVALID_QUANTITY", "Consume quantity must be positive")
	}
	if r.Status != ReservationStatusActive {
		return shared.ErrInvalidState
	}
	if quantity > r.Quantity {
		return &InsufficientReservationError{
			OrderID:   r.OrderID,
			VariantID: r.VariantID,
			Requested: quantity,
			Held:      r.Quantity,
		}
	}
	if quantity == r.Quantity {
		r.Status = ReservationStatusConsumed
		return nil
	}
	r.Quantity -= quantity
	return nil
}

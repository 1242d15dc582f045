package inventory

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// LedgerRepository persists stock ledger entries. The ledger is append-only:
// the interface deliberately has no update or delete methods.
type LedgerRepository interface {
	// Create appends a ledger entry
	Create(ctx context.Context, entry *LedgerEntry) error
	// SumByVariant returns the sum of all quantity deltas for a variant.
	// A variant with no history sums to zero.
	SumByVariant(ctx context.Context, variantID uuid.UUID) (int64, error)
	// SumByVariantSince returns the sum of deltas appended strictly
	// after the given instant
	SumByVariantSince(ctx context.Context, variantID uuid.UUID, after time.Time) (int64, error)
	// FindByVariant lists entries for a variant, newest first, starting
	// after the cursor position. Returns up to limit entries and the
	// cursor of the last returned row.
	FindByVariant(ctx context.Context, variantID uuid.UUID, cursor Cursor, limit int) ([]*LedgerEntry, Cursor, error)
	// FindByVariantAndDateRange lists entries for a variant within
	// [from, to], newest first, starting after the cursor position.
	FindByVariantAndDateRange(ctx context.Context, variantID uuid.UUID, from, to time.Time, cursor Cursor, limit int) ([]*LedgerEntry, Cursor, error)
}

// ReservationRepository persists reservations
type ReservationRepository interface {
	// Create persists a new reservation
	Create(ctx context.Context, reservation *Reservation) error
	// Save persists changes to an existing reservation with an optimistic
	// version check
	Save(ctx context.Context, reservation *Reservation) error
	// FindActive returns the single Active reservation for an (order,
	// variant) pair, or shared.ErrNotFound
	FindActive(ctx context.Context, orderID, variantID uuid.UUID) (*Reservation, error)
	// FindLatest returns the most recently updated reservation for an
	// (order, variant) pair regardless of status, or shared.ErrNotFound
	FindLatest(ctx context.Context, orderID, variantID uuid.UUID) (*Reservation, error)
	// FindActiveByOrder returns all Active reservations for an order
	FindActiveByOrder(ctx context.Context, orderID uuid.UUID) ([]*Reservation, error)
	// SumActiveByVariant returns the total quantity held by Active
	// reservations for a variant
	SumActiveByVariant(ctx context.Context, variantID uuid.UUID) (int64, error)
}

// Repositories bundles the stores one engine operation mutates together
type Repositories struct {
	Ledger       LedgerRepository
	Reservations ReservationRepository
}

// TransactionScope runs a unit of work whose store mutations commit or
// roll back as one
type TransactionScope interface {
	Execute(ctx context.Context, fn func(repos Repositories) error) error
}

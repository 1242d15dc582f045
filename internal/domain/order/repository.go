package order

import (
	"context"

	"github.com/google/uuid"

	"github.com/shopcore/backend/internal/domain/shared"
)

// Repository persists order aggregates
type Repository interface {
	// Create persists a new order with its lines
	Create(ctx context.Context, o *Order) error
	// Save persists changes to an existing order. The write carries an
	// optimistic version check; a stale aggregate fails with
	// shared.ErrConcurrencyConflict.
	Save(ctx context.Context, o *Order) error
	// FindByID loads an order with its lines, payments and refunds,
	// or shared.ErrNotFound
	FindByID(ctx context.Context, id uuid.UUID) (*Order, error)
	// FindByOrderNumber loads an order by its unique number,
	// or shared.ErrNotFound
	FindByOrderNumber(ctx context.Context, orderNumber string) (*Order, error)
	// FindAll lists orders matching the filter
	FindAll(ctx context.Context, filter shared.Filter) (shared.Paginated[*Order], error)
}

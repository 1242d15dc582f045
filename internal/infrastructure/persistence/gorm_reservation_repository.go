package persistence

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/shopcore/backend/internal/domain/inventory"
	"github.com/shopcore/backend/internal/domain/shared"
)

// GormReservationRepository implements ReservationRepository using GORM.
// A partial unique index on (order_id, variant_id) WHERE status = 'active'
// backs the single-active-row invariant at the store level.
type GormReservationRepository struct {
	db *gorm.DB
}

// NewGormReservationRepository creates a new GormReservationRepository
func NewGormReservationRepository(db *gorm.DB) *GormReservationRepository {
	return &GormReservationRepository{db: db}
}

// Create persists a new reservation
func (r *GormReservationRepository) Create(ctx context.Context, reservation *inventory.Reservation) error {
	if err := r.db.WithContext(ctx).Create(reservation).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return shared.ErrAlreadyExists
		}
		return shared.NewPersistenceError("reservation.create", err)
	}
	return nil
}

// Save persists changes to an existing reservation with an optimistic
// version check
func (r *GormReservationRepository) Save(ctx context.Context, reservation *inventory.Reservation) error {
	result := r.db.WithContext(ctx).
		Model(&inventory.Reservation{}).
		Where("id = ? AND version = ?", reservation.ID, reservation.Version).
		Updates(map[string]any{
			"quantity":   reservation.Quantity,
			"status":     reservation.Status,
			"version":    reservation.Version + 1,
			"updated_at": time.Now().UTC(),
		})
	if result.Error != nil {
		return shared.NewPersistenceError("reservation.save", result.Error)
	}
	if result.RowsAffected == 0 {
		return shared.ErrConcurrencyConflict
	}
	reservation.Version++
	return nil
}

// FindActive returns the single Active reservation for an (order, variant) pair
func (r *GormReservationRepository) FindActive(ctx context.Context, orderID, variantID uuid.UUID) (*inventory.Reservation, error) {
	var reservation inventory.Reservation
	err := r.db.WithContext(ctx).
		Where("order_id = ? AND variant_id = ? AND status = ?", orderID, variantID, inventory.ReservationStatusActive).
		First(&reservation).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound
		}
		return nil, shared.NewPersistenceError("reservation.find_active", err)
	}
	return &reservation, nil
}

// FindLatest returns the most recently updated reservation for an
// (order, variant) pair regardless of status
func (r *GormReservationRepository) FindLatest(ctx context.Context, orderID, variantID uuid.UUID) (*inventory.Reservation, error) {
	var reservation inventory.Reservation
	err := r.db.WithContext(ctx).
		Where("order_id = ? AND variant_id = ?", orderID, variantID).
		Order("updated_at DESC").
		First(&reservation).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound
		}
		return nil, shared.NewPersistenceError("reservation.find_latest", err)
	}
	return &reservation, nil
}

// FindActiveByOrder returns all Active reservations for an order
func (r *GormReservationRepository) FindActiveByOrder(ctx context.Context, orderID uuid.UUID) ([]*inventory.Reservation, error) {
	var reservations []*inventory.Reservation
	err := r.db.WithContext(ctx).
		Where("order_id = ? AND status = ?", orderID, inventory.ReservationStatusActive).
		Order("created_at ASC").
		Find(&reservations).Error
	if err != nil {
		return nil, shared.NewPersistenceError("reservation.find_by_order", err)
	}
	return reservations, nil
}

// SumActiveByVariant returns the total quantity held by Active reservations
// for a variant
func (r *GormReservationRepository) SumActiveByVariant(ctx context.Context, variantID uuid.UUID) (int64, error) {
	var sum int64
	err := r.db.WithContext(ctx).
		Model(&inventory.Reservation{}).
		Where("variant_id = ? AND status = ?", variantID, inventory.ReservationStatusActive).
		Select("COALESCE(SUM(quantity), 0)").
		Scan(&sum).Error
	if err != nil {
		return 0, shared.NewPersistenceError("reservation.sum_active", err)
	}
	return sum, nil
}

// GetReservedQuantityByVariant returns the total Active held quantity per
// variant across all orders. Used by periodic metrics collection.
func (r *GormReservationRepository) GetReservedQuantityByVariant(ctx context.Context) (map[uuid.UUID]int64, error) {
	var rows []struct {
		VariantID uuid.UUID
		Total     int64
	}
	err := r.db.WithContext(ctx).
		Model(&inventory.Reservation{}).
		Where("status = ?", inventory.ReservationStatusActive).
		Select("variant_id, SUM(quantity) AS total").
		Group("variant_id").
		Scan(&rows).Error
	if err != nil {
		return nil, shared.NewPersistenceError("reservation.reserved_by_variant", err)
	}
	out := make(map[uuid.UUID]int64, len(rows))
	for _, row := range rows {
		out[row.VariantID] = row.Total
	}
	return out, nil
}

var _ inventory.ReservationRepository = (*GormReservationRepository)(nil)

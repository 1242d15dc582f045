package persistence

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/shopcore/backend/internal/domain/order"
	"github.com/shopcore/backend/internal/domain/shared"
)

// GormOrderRepository implements order.Repository using GORM
type GormOrderRepository struct {
	db *gorm.DB
}

// NewGormOrderRepository creates a new GormOrderRepository
func NewGormOrderRepository(db *gorm.DB) *GormOrderRepository {
	return &GormOrderRepository{db: db}
}

// Create persists a new order with its lines
func (r *GormOrderRepository) Create(ctx context.Context, o *order.Order) error {
	if err := r.db.WithContext(ctx).Create(o).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return shared.ErrAlreadyExists
		}
		return shared.NewPersistenceError("order.create", err)
	}
	return nil
}

// Save persists changes to an existing order. The order row carries an
// optimistic version check; lines, payments and refunds are upserted.
func (r *GormOrderRepository) Save(ctx context.Context, o *order.Order) error {
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		result := tx.Model(&order.Order{}).
			Where("id = ? AND version = ?", o.ID, o.Version).
			Updates(map[string]any{
				"status":        o.Status,
				"cancel_reason": o.CancelReason,
				"confirmed_at":  o.ConfirmedAt,
				"paid_at":       o.PaidAt,
				"shipped_at":    o.ShippedAt,
				"delivered_at":  o.DeliveredAt,
				"cancelled_at":  o.CancelledAt,
				"refunded_at":   o.RefundedAt,
				"version":       o.Version + 1,
				"updated_at":    time.Now().UTC(),
			})
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			return shared.ErrConcurrencyConflict
		}

		if len(o.Lines) > 0 {
			if err := tx.Clauses(clause.OnConflict{UpdateAll: true}).Create(&o.Lines).Error; err != nil {
				return err
			}
		}
		if len(o.Payments) > 0 {
			if err := tx.Clauses(clause.OnConflict{UpdateAll: true}).Create(&o.Payments).Error; err != nil {
				return err
			}
		}
		if len(o.Refunds) > 0 {
			if err := tx.Clauses(clause.OnConflict{UpdateAll: true}).Create(&o.Refunds).Error; err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		if errors.Is(err, shared.ErrConcurrencyConflict) {
			return shared.ErrConcurrencyConflict
		}
		return shared.NewPersistenceError("order.save", err)
	}
	o.Version++
	return nil
}

// FindByID loads an order with its lines, payments and refunds
func (r *GormOrderRepository) FindByID(ctx context.Context, id uuid.UUID) (*order.Order, error) {
	var o order.Order
	err := r.withAssociations(r.db.WithContext(ctx)).First(&o, "id = ?", id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound
		}
		return nil, shared.NewPersistenceError("order.find", err)
	}
	return &o, nil
}

// FindByOrderNumber loads an order by its unique number
func (r *GormOrderRepository) FindByOrderNumber(ctx context.Context, orderNumber string) (*order.Order, error) {
	var o order.Order
	err := r.withAssociations(r.db.WithContext(ctx)).First(&o, "order_number = ?", orderNumber).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound
		}
		return nil, shared.NewPersistenceError("order.find_by_number", err)
	}
	return &o, nil
}

// FindAll lists orders matching the filter
func (r *GormOrderRepository) FindAll(ctx context.Context, filter shared.Filter) (shared.Paginated[*order.Order], error) {
	var empty shared.Paginated[*order.Order]

	base := r.db.WithContext(ctx).Model(&order.Order{})
	base = applyOrderFilters(base, filter)

	var total int64
	if err := base.Count(&total).Error; err != nil {
		return empty, shared.NewPersistenceError("order.count", err)
	}

	query := applyOrderFilters(r.withAssociations(r.db.WithContext(ctx)), filter)
	query = query.Order(orderSortClause(filter))
	if filter.Page > 0 && filter.PageSize > 0 {
		query = query.Offset((filter.Page - 1) * filter.PageSize).Limit(filter.PageSize)
	}

	var orders []*order.Order
	if err := query.Find(&orders).Error; err != nil {
		return empty, shared.NewPersistenceError("order.list", err)
	}

	return shared.NewPaginated(orders, total, filter.Page, filter.PageSize), nil
}

func (r *GormOrderRepository) withAssociations(db *gorm.DB) *gorm.DB {
	return db.Preload("Lines").Preload("Payments").Preload("Refunds")
}

func applyOrderFilters(query *gorm.DB, filter shared.Filter) *gorm.DB {
	for key, value := range filter.Filters {
		switch key {
		case "status":
			query = query.Where("status = ?", value)
		case "order_number":
			query = query.Where("order_number = ?", value)
		}
	}
	return query
}

// orderSortClause builds the ORDER BY clause from a whitelist of sortable
// columns. Unknown columns fall back to creation order.
func orderSortClause(filter shared.Filter) string {
	column := "created_at"
	switch filter.OrderBy {
	case "created_at", "updated_at", "order_number", "status":
		column = filter.OrderBy
	}
	direction := "DESC"
	if strings.EqualFold(filter.OrderDir, "asc") {
		direction = "ASC"
	}
	return column + " " + direction
}

var _ order.Repository = (*GormOrderRepository)(nil)

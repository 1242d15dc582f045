package persistence

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/shopcore/backend/internal/domain/inventory"
	"github.com/shopcore/backend/internal/domain/shared"
)

// GormLedgerRepository implements LedgerRepository using GORM. The ledger
// is append-only; no update or delete statements are ever issued.
type GormLedgerRepository struct {
	db *gorm.DB
}

// NewGormLedgerRepository creates a new GormLedgerRepository
func NewGormLedgerRepository(db *gorm.DB) *GormLedgerRepository {
	return &GormLedgerRepository{db: db}
}

// Create appends a ledger entry
func (r *GormLedgerRepository) Create(ctx context.Context, entry *inventory.LedgerEntry) error {
	if err := r.db.WithContext(ctx).Create(entry).Error; err != nil {
		return shared.NewPersistenceError("ledger.append", err)
	}
	return nil
}

// SumByVariant returns the sum of all quantity deltas for a variant.
// A variant with no history sums to zero.
func (r *GormLedgerRepository) SumByVariant(ctx context.Context, variantID uuid.UUID) (int64, error) {
	var sum int64
	err := r.db.WithContext(ctx).
		Model(&inventory.LedgerEntry{}).
		Where("variant_id = ?", variantID).
		Select("COALESCE(SUM(quantity_delta), 0)").
		Scan(&sum).Error
	if err != nil {
		return 0, shared.NewPersistenceError("ledger.sum", err)
	}
	return sum, nil
}

// SumByVariantSince returns the sum of deltas appended strictly after the given instant
func (r *GormLedgerRepository) SumByVariantSince(ctx context.Context, variantID uuid.UUID, after time.Time) (int64, error) {
	var sum int64
	err := r.db.WithContext(ctx).
		Model(&inventory.LedgerEntry{}).
		Where("variant_id = ? AND created_at > ?", variantID, after).
		Select("COALESCE(SUM(quantity_delta), 0)").
		Scan(&sum).Error
	if err != nil {
		return 0, shared.NewPersistenceError("ledger.sum_since", err)
	}
	return sum, nil
}

// FindByVariant lists entries for a variant, newest first, starting after
// the cursor position
func (r *GormLedgerRepository) FindByVariant(ctx context.Context, variantID uuid.UUID, cursor inventory.Cursor, limit int) ([]*inventory.LedgerEntry, inventory.Cursor, error) {
	query := r.db.WithContext(ctx).Where("variant_id = ?", variantID)
	return r.findPage(query, cursor, limit)
}

// FindByVariantAndDateRange lists entries for a variant within [from, to],
// newest first, starting after the cursor position
func (r *GormLedgerRepository) FindByVariantAndDateRange(ctx context.Context, variantID uuid.UUID, from, to time.Time, cursor inventory.Cursor, limit int) ([]*inventory.LedgerEntry, inventory.Cursor, error) {
	query := r.db.WithContext(ctx).
		Where("variant_id = ? AND created_at >= ? AND created_at <= ?", variantID, from, to)
	return r.findPage(query, cursor, limit)
}

// findPage applies keyset pagination over (created_at, id) descending
func (r *GormLedgerRepository) findPage(query *gorm.DB, cursor inventory.Cursor, limit int) ([]*inventory.LedgerEntry, inventory.Cursor, error) {
	if !cursor.IsZero() {
		query = query.Where("(created_at, id) < (?, ?)", cursor.CreatedAt, cursor.ID)
	}

	var entries []*inventory.LedgerEntry
	err := query.
		Order("created_at DESC, id DESC").
		Limit(limit).
		Find(&entries).Error
	if err != nil {
		return nil, inventory.Cursor{}, shared.NewPersistenceError("ledger.list", err)
	}

	if len(entries) == 0 {
		return entries, inventory.Cursor{}, nil
	}
	last := entries[len(entries)-1]
	return entries, inventory.Cursor{CreatedAt: last.CreatedAt, ID: last.ID}, nil
}

var _ inventory.LedgerRepository = (*GormLedgerRepository)(nil)

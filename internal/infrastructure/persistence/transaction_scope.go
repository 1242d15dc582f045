package persistence

import (
	"context"

	"gorm.io/gorm"

	"github.com/shopcore/backend/internal/domain/inventory"
)

// GormTransactionScope implements inventory.TransactionScope using GORM
// transactions. Repositories handed to the unit of work are bound to the
// transaction, so every mutation commits or rolls back as one.
type GormTransactionScope struct {
	db *gorm.DB
}

// NewGormTransactionScope creates a new GormTransactionScope
func NewGormTransactionScope(db *gorm.DB) *GormTransactionScope {
	return &GormTransactionScope{db: db}
}

// Execute runs the given function within a database transaction.
// If the function returns an error, the transaction is rolled back.
func (s *GormTransactionScope) Execute(ctx context.Context, fn func(repos inventory.Repositories) error) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(inventory.Repositories{
			Ledger:       NewGormLedgerRepository(tx),
			Reservations: NewGormReservationRepository(tx),
		})
	})
}

var _ inventory.TransactionScope = (*GormTransactionScope)(nil)

package persistence

import (
	"context"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/shopcore/backend/internal/domain/inventory"
	"github.com/shopcore/backend/internal/domain/shared"
)

func TestGormReservationRepository_Create(t *testing.T) {
	t.Run("persists a new reservation", func(t *testing.T) {
		db, mock, mockDB := newMockDB(t)
		defer mockDB.Close()
		repo := NewGormReservationRepository(db)

		reservation, err := inventory.NewReservation(uuid.New(), uuid.New(), 3)
		require.NoError(t, err)

		mock.ExpectExec(`INSERT INTO "stock_reservations"`).
			WillReturnResult(sqlmock.NewResult(0, 1))

		require.NoError(t, repo.Create(context.Background(), reservation))
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("maps duplicate active rows to already exists", func(t *testing.T) {
		db, mock, mockDB := newMockDB(t)
		defer mockDB.Close()
		repo := NewGormReservationRepository(db)

		reservation, err := inventory.NewReservation(uuid.New(), uuid.New(), 3)
		require.NoError(t, err)

		mock.ExpectExec(`INSERT INTO "stock_reservations"`).
			WillReturnError(gorm.ErrDuplicatedKey)

		err = repo.Create(context.Background(), reservation)
		assert.ErrorIs(t, err, shared.ErrAlreadyExists)
	})
}

func TestGormReservationRepository_Save(t *testing.T) {
	t.Run("bumps the version on success", func(t *testing.T) {
		db, mock, mockDB := newMockDB(t)
		defer mockDB.Close()
		repo := NewGormReservationRepository(db)

		reservation, err := inventory.NewReservation(uuid.New(), uuid.New(), 3)
		require.NoError(t, err)
		require.Equal(t, 1, reservation.Version)

		mock.ExpectExec(`UPDATE "stock_reservations" SET .* WHERE id = \$\d+ AND version = \$\d+`).
			WillReturnResult(sqlmock.NewResult(0, 1))

		require.NoError(t, repo.Save(context.Background(), reservation))
		assert.Equal(t, 2, reservation.Version)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("stale version is a concurrency conflict", func(t *testing.T) {
		db, mock, mockDB := newMockDB(t)
		defer mockDB.Close()
		repo := NewGormReservationRepository(db)

		reservation, err := inventory.NewReservation(uuid.New(), uuid.New(), 3)
		require.NoError(t, err)

		mock.ExpectExec(`UPDATE "stock_reservations"`).
			WillReturnResult(sqlmock.NewResult(0, 0))

		err = repo.Save(context.Background(), reservation)
		assert.ErrorIs(t, err, shared.ErrConcurrencyConflict)
		assert.True(t, shared.IsRetryable(err))
		assert.Equal(t, 1, reservation.Version, "version must not advance on conflict")
	})
}

func TestGormReservationRepository_FindActive(t *testing.T) {
	t.Run("finds the active row", func(t *testing.T) {
		db, mock, mockDB := newMockDB(t)
		defer mockDB.Close()
		repo := NewGormReservationRepository(db)

		orderID := uuid.New()
		variantID := uuid.New()
		rows := sqlmock.NewRows([]string{"id", "version", "variant_id", "order_id", "quantity", "status"}).
			AddRow(uuid.New(), 1, variantID, orderID, 5, "active")

		mock.ExpectQuery(`SELECT \* FROM "stock_reservations" WHERE order_id = \$1 AND variant_id = \$2 AND status = \$3`).
			WithArgs(orderID, variantID, "active", 1).
			WillReturnRows(rows)

		reservation, err := repo.FindActive(context.Background(), orderID, variantID)
		require.NoError(t, err)
		assert.Equal(t, int64(5), reservation.Quantity)
		assert.Equal(t, inventory.ReservationStatusActive, reservation.Status)
	})

	t.Run("missing row maps to not found", func(t *testing.T) {
		db, mock, mockDB := newMockDB(t)
		defer mockDB.Close()
		repo := NewGormReservationRepository(db)

		mock.ExpectQuery(`SELECT \* FROM "stock_reservations"`).
			WillReturnError(gorm.ErrRecordNotFound)

		_, err := repo.FindActive(context.Background(), uuid.New(), uuid.New())
		assert.ErrorIs(t, err, shared.ErrNotFound)
	})
}

func TestGormReservationRepository_SumActiveByVariant(t *testing.T) {
	db, mock, mockDB := newMockDB(t)
	defer mockDB.Close()
	repo := NewGormReservationRepository(db)
	variantID := uuid.New()

	mock.ExpectQuery(`SELECT COALESCE\(SUM\(quantity\), 0\) FROM "stock_reservations" WHERE variant_id = \$1 AND status = \$2`).
		WithArgs(variantID, "active").
		WillReturnRows(sqlmock.NewRows([]string{"coalesce"}).AddRow(8))

	sum, err := repo.SumActiveByVariant(context.Background(), variantID)
	require.NoError(t, err)
	assert.Equal(t, int64(8), sum)
}

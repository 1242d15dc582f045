package inventory

import (
	"bytes"
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/shopcore/backend/internal/domain/shared"
)

// In-memory stores backing the engine and ledger tests.

type memoryLedgerRepo struct {
	mu      sync.Mutex
	entries []*LedgerEntry
}

func newMemoryLedgerRepo() *memoryLedgerRepo {
	return &memoryLedgerRepo{}
}

func (r *memoryLedgerRepo) Create(_ context.Context, entry *LedgerEntry) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	cp := *entry
	r.entries = append(r.entries, &cp)
	return nil
}

func (r *memoryLedgerRepo) SumByVariant(_ context.Context, variantID uuid.UUID) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var sum int64
	for _, e := range r.entries {
		if e.VariantID == variantID {
			sum += e.QuantityDelta
		}
	}
	return sum, nil
}

func (r *memoryLedgerRepo) SumByVariantSince(_ context.Context, variantID uuid.UUID, after time.Time) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var sum int64
	for _, e := range r.entries {
		if e.VariantID == variantID && e.CreatedAt.After(after) {
			sum += e.QuantityDelta
		}
	}
	return sum, nil
}

func (r *memoryLedgerRepo) sortedByVariant(variantID uuid.UUID) []*LedgerEntry {
	var out []*LedgerEntry
	for _, e := range r.entries {
		if e.VariantID == variantID {
			cp := *e
			out = append(out, &cp)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.After(out[j].CreatedAt)
		}
		return bytes.Compare(out[i].ID[:], out[j].ID[:]) > 0
	})
	return out
}

func paginate(entries []*LedgerEntry, cursor Cursor, limit int) ([]*LedgerEntry, Cursor) {
	start := 0
	if !cursor.IsZero() {
		for i, e := range entries {
			if e.ID == cursor.ID {
				start = i + 1
				break
			}
		}
	}
	end := start + limit
	if end > len(entries) {
		end = len(entries)
	}
	page := entries[start:end]
	var next Cursor
	if len(page) > 0 {
		last := page[len(page)-1]
		next = Cursor{CreatedAt: last.CreatedAt, ID: last.ID}
	}
	return page, next
}

func (r *memoryLedgerRepo) FindByVariant(_ context.Context, variantID uuid.UUID, cursor Cursor, limit int) ([]*LedgerEntry, Cursor, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	page, next := paginate(r.sortedByVariant(variantID), cursor, limit)
	return page, next, nil
}

func (r *memoryLedgerRepo) FindByVariantAndDateRange(_ context.Context, variantID uuid.UUID, from, to time.Time, cursor Cursor, limit int) ([]*LedgerEntry, Cursor, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var filtered []*LedgerEntry
	for _, e := range r.sortedByVariant(variantID) {
		if !e.CreatedAt.Before(from) && !e.CreatedAt.After(to) {
			filtered = append(filtered, e)
		}
	}
	page, next := paginate(filtered, cursor, limit)
	return page, next, nil
}

type memoryReservationRepo struct {
	mu           sync.Mutex
	reservations []*Reservation
}

func newMemoryReservationRepo() *memoryReservationRepo {
	return &memoryReservationRepo{}
}

func (r *memoryReservationRepo) Create(_ context.Context, reservation *Reservation) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	cp := *reservation
	r.reservations = append(r.reservations, &cp)
	return nil
}

func (r *memoryReservationRepo) Save(_ context.Context, reservation *Reservation) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for i, existing := range r.reservations {
		if existing.ID == reservation.ID {
			if existing.Version != reservation.Version {
				return shared.ErrConcurrencyConflict
			}
			cp := *reservation
			cp.Version++
			cp.UpdatedAt = time.Now().UTC()
			r.reservations[i] = &cp
			reservation.Version = cp.Version
			return nil
		}
	}
	return shared.ErrNotFound
}

func (r *memoryReservationRepo) FindActive(_ context.Context, orderID, variantID uuid.UUID) (*Reservation, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, res := range r.reservations {
		if res.OrderID == orderID && res.VariantID == variantID && res.Status == ReservationStatusActive {
			cp := *res
			return &cp, nil
		}
	}
	return nil, shared.ErrNotFound
}

func (r *memoryReservationRepo) FindLatest(_ context.Context, orderID, variantID uuid.UUID) (*Reservation, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var latest *Reservation
	for _, res := range r.reservations {
		if res.OrderID == orderID && res.VariantID == variantID {
			if latest == nil || res.UpdatedAt.After(latest.UpdatedAt) {
				latest = res
			}
		}
	}
	if latest == nil {
		return nil, shared.ErrNotFound
	}
	cp := *latest
	return &cp, nil
}

func (r *memoryReservationRepo) FindActiveByOrder(_ context.Context, orderID uuid.UUID) ([]*Reservation, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*Reservation
	for _, res := range r.reservations {
		if res.OrderID == orderID && res.Status == ReservationStatusActive {
			cp := *res
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (r *memoryReservationRepo) SumActiveByVariant(_ context.Context, variantID uuid.UUID) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var sum int64
	for _, res := range r.reservations {
		if res.VariantID == variantID && res.Status == ReservationStatusActive {
			sum += res.Quantity
		}
	}
	return sum, nil
}

type memoryScope struct {
	repos Repositories
}

func (s *memoryScope) Execute(_ context.Context, fn func(Repositories) error) error {
	return fn(s.repos)
}

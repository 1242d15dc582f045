// Package memory provides in-process implementations of the domain store
// ports. They back unit tests and local development where a database is
// not available; production wiring uses the GORM repositories instead.
package memory

import (
	"bytes"
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/shopcore/backend/internal/domain/inventory"
	"github.com/shopcore/backend/internal/domain/order"
	"github.com/shopcore/backend/internal/domain/shared"
)

// LedgerRepository is an in-memory append-only ledger store
type LedgerRepository struct {
	mu      sync.Mutex
	entries []*inventory.LedgerEntry
}

// NewLedgerRepository creates an empty in-memory ledger store
func NewLedgerRepository() *LedgerRepository {
	return &LedgerRepository{}
}

// Create appends a ledger entry
func (r *LedgerRepository) Create(_ context.Context, entry *inventory.LedgerEntry) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	cp := *entry
	r.entries = append(r.entries, &cp)
	return nil
}

// SumByVariant sums all deltas for a variant
func (r *LedgerRepository) SumByVariant(_ context.Context, variantID uuid.UUID) (int64, error) {
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

// SumByVariantSince sums deltas appended strictly after the given instant
func (r *LedgerRepository) SumByVariantSince(_ context.Context, variantID uuid.UUID, after time.Time) (int64, error) {
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

func (r *LedgerRepository) sortedByVariant(variantID uuid.UUID) []*inventory.LedgerEntry {
	var out []*inventory.LedgerEntry
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

func paginate(entries []*inventory.LedgerEntry, cursor inventory.Cursor, limit int) ([]*inventory.LedgerEntry, inventory.Cursor) {
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
	var next inventory.Cursor
	if len(page) > 0 {
		last := page[len(page)-1]
		next = inventory.Cursor{CreatedAt: last.CreatedAt, ID: last.ID}
	}
	return page, next
}

// FindByVariant lists entries newest first after the cursor position
func (r *LedgerRepository) FindByVariant(_ context.Context, variantID uuid.UUID, cursor inventory.Cursor, limit int) ([]*inventory.LedgerEntry, inventory.Cursor, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	page, next := paginate(r.sortedByVariant(variantID), cursor, limit)
	return page, next, nil
}

// FindByVariantAndDateRange lists entries within [from, to] newest first
func (r *LedgerRepository) FindByVariantAndDateRange(_ context.Context, variantID uuid.UUID, from, to time.Time, cursor inventory.Cursor, limit int) ([]*inventory.LedgerEntry, inventory.Cursor, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var filtered []*inventory.LedgerEntry
	for _, e := range r.sortedByVariant(variantID) {
		if !e.CreatedAt.Before(from) && !e.CreatedAt.After(to) {
			filtered = append(filtered, e)
		}
	}
	page, next := paginate(filtered, cursor, limit)
	return page, next, nil
}

// ReservationRepository is an in-memory reservation store
type ReservationRepository struct {
	mu           sync.Mutex
	reservations []*inventory.Reservation
}

// NewReservationRepository creates an empty in-memory reservation store
func NewReservationRepository() *ReservationRepository {
	return &ReservationRepository{}
}

// Create persists a new reservation
func (r *ReservationRepository) Create(_ context.Context, reservation *inventory.Reservation) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, existing := range r.reservations {
		if existing.OrderID == reservation.OrderID &&
			existing.VariantID == reservation.VariantID &&
			existing.Status == inventory.ReservationStatusActive {
			return shared.ErrAlreadyExists
		}
	}
	cp := *reservation
	r.reservations = append(r.reservations, &cp)
	return nil
}

// Save persists changes with an optimistic version check
func (r *ReservationRepository) Save(_ context.Context, reservation *inventory.Reservation) error {
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

// FindActive returns the Active reservation for an (order, variant) pair
func (r *ReservationRepository) FindActive(_ context.Context, orderID, variantID uuid.UUID) (*inventory.Reservation, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, res := range r.reservations {
		if res.OrderID == orderID && res.VariantID == variantID && res.Status == inventory.ReservationStatusActive {
			cp := *res
			return &cp, nil
		}
	}
	return nil, shared.ErrNotFound
}

// FindLatest returns the most recently updated reservation for a pair
func (r *ReservationRepository) FindLatest(_ context.Context, orderID, variantID uuid.UUID) (*inventory.Reservation, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var latest *inventory.Reservation
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

// FindActiveByOrder returns all Active reservations of an order
func (r *ReservationRepository) FindActiveByOrder(_ context.Context, orderID uuid.UUID) ([]*inventory.Reservation, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*inventory.Reservation
	for _, res := range r.reservations {
		if res.OrderID == orderID && res.Status == inventory.ReservationStatusActive {
			cp := *res
			out = append(out, &cp)
		}
	}
	return out, nil
}

// SumActiveByVariant sums Active reservation quantities for a variant
func (r *ReservationRepository) SumActiveByVariant(_ context.Context, variantID uuid.UUID) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var sum int64
	for _, res := range r.reservations {
		if res.VariantID == variantID && res.Status == inventory.ReservationStatusActive {
			sum += res.Quantity
		}
	}
	return sum, nil
}

// Scope is a pass-through transaction scope for the in-memory stores
type Scope struct {
	repos inventory.Repositories
}

// NewScope creates a scope over the in-memory inventory stores
func NewScope(ledger *LedgerRepository, reservations *ReservationRepository) *Scope {
	return &Scope{repos: inventory.Repositories{Ledger: ledger, Reservations: reservations}}
}

// Execute runs the unit of work directly against the live stores
func (s *Scope) Execute(_ context.Context, fn func(repos inventory.Repositories) error) error {
	return fn(s.repos)
}

// OrderRepository is an in-memory order store with optimistic locking
type OrderRepository struct {
	mu     sync.Mutex
	orders map[uuid.UUID]*order.Order
}

// NewOrderRepository creates an empty in-memory order store
func NewOrderRepository() *OrderRepository {
	return &OrderRepository{orders: make(map[uuid.UUID]*order.Order)}
}

// Create persists a new order
func (r *OrderRepository) Create(_ context.Context, o *order.Order) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, existing := range r.orders {
		if existing.OrderNumber == o.OrderNumber {
			return shared.ErrAlreadyExists
		}
	}
	cp := cloneOrder(o)
	r.orders[o.ID] = cp
	return nil
}

// Save persists changes with an optimistic version check
func (r *OrderRepository) Save(_ context.Context, o *order.Order) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	stored, ok := r.orders[o.ID]
	if !ok {
		return shared.ErrNotFound
	}
	if stored.Version != o.Version {
		return shared.ErrConcurrencyConflict
	}
	cp := cloneOrder(o)
	cp.Version++
	r.orders[o.ID] = cp
	o.Version = cp.Version
	return nil
}

// FindByID loads an order or shared.ErrNotFound
func (r *OrderRepository) FindByID(_ context.Context, id uuid.UUID) (*order.Order, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	stored, ok := r.orders[id]
	if !ok {
		return nil, shared.ErrNotFound
	}
	return cloneOrder(stored), nil
}

// FindByOrderNumber loads an order by its unique number
func (r *OrderRepository) FindByOrderNumber(_ context.Context, orderNumber string) (*order.Order, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, stored := range r.orders {
		if stored.OrderNumber == orderNumber {
			return cloneOrder(stored), nil
		}
	}
	return nil, shared.ErrNotFound
}

// FindAll lists orders matching the filter
func (r *OrderRepository) FindAll(_ context.Context, filter shared.Filter) (shared.Paginated[*order.Order], error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	all := make([]*order.Order, 0, len(r.orders))
	for _, stored := range r.orders {
		all = append(all, cloneOrder(stored))
	}
	sort.Slice(all, func(i, j int) bool {
		return all[i].CreatedAt.After(all[j].CreatedAt)
	})
	page := filter.Page
	if page < 1 {
		page = 1
	}
	size := filter.PageSize
	if size < 1 {
		size = 20
	}
	start := (page - 1) * size
	if start > len(all) {
		start = len(all)
	}
	end := start + size
	if end > len(all) {
		end = len(all)
	}
	return shared.NewPaginated(all[start:end], int64(len(all)), page, size), nil
}

func cloneOrder(o *order.Order) *order.Order {
	cp := *o
	cp.Lines = append([]order.OrderLine(nil), o.Lines...)
	cp.Payments = append([]order.PaymentRecord(nil), o.Payments...)
	cp.Refunds = append([]order.RefundRecord(nil), o.Refunds...)
	return &cp
}

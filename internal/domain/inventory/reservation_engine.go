package inventory

import (
	"context"
	"errors"
	"sync"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/shopcore/backend/internal/domain/shared"
)

// variantLocks hands out one mutex per variant so that all mutations of a
// single variant's available quantity are serialized in-process.
type variantLocks struct {
	mu    sync.Mutex
	locks map[uuid.UUID]*sync.Mutex
}

func newVariantLocks() *variantLocks {
	return &variantLocks{locks: make(map[uuid.UUID]*sync.Mutex)}
}

func (v *variantLocks) forVariant(variantID uuid.UUID) *sync.Mutex {
	v.mu.Lock()
	defer v.mu.Unlock()
	lock, ok := v.locks[variantID]
	if !ok {
		lock = &sync.Mutex{}
		v.locks[variantID] = lock
	}
	return lock
}

// Availability is a point-in-time stock reading for a variant
type Availability struct {
	VariantID uuid.UUID `json:"variant_id"`
	OnHand    int64     `json:"on_hand"`
	Reserved  int64     `json:"reserved"`
	Available int64     `json:"available"`
}

// LineReservation names one order line's demand in a multi-line operation
type LineReservation struct {
	VariantID uuid.UUID
	Quantity  int64
}

// ReservationEngine creates, releases and consumes reservations against
// the stock ledger. Holds live only in the reservation store; the ledger
// is written when stock physically moves, on Consume and Adjust.
//
// Every mutation of one variant runs under that variant's lock and inside
// a single transaction scope. Context cancellation is honored before the
// lock is acquired, never inside the critical section.
type ReservationEngine struct {
	scope        TransactionScope
	ledger       LedgerRepository
	reservations ReservationRepository
	locks        *variantLocks
	logger       *zap.Logger
	events       shared.EventPublisher
}

// NewReservationEngine creates a reservation engine
func NewReservationEngine(
	scope TransactionScope,
	ledger LedgerRepository,
	reservations ReservationRepository,
	logger *zap.Logger,
) *ReservationEngine {
	return &ReservationEngine{
		scope:        scope,
		ledger:       ledger,
		reservations: reservations,
		locks:        newVariantLocks(),
		logger:       logger,
	}
}

// SetEventPublisher wires the publisher used to announce reservation
// state changes. Events are best-effort; a nil publisher disables them.
func (e *ReservationEngine) SetEventPublisher(events shared.EventPublisher) {
	e.events = events
}

func (e *ReservationEngine) publish(ctx context.Context, event shared.DomainEvent) {
	if e.events == nil {
		return
	}
	if err := e.events.Publish(ctx, event); err != nil {
		e.logger.Warn("failed to publish inventory event",
			zap.String("event_type", event.EventType()),
			zap.Error(err))
	}
}

// Availability recomputes on-hand, reserved and available for a variant
func (e *ReservationEngine) Availability(ctx context.Context, variantID uuid.UUID) (Availability, error) {
	onHand, err := e.ledger.SumByVariant(ctx, variantID)
	if err != nil {
		return Availability{}, err
	}
	reserved, err := e.reservations.SumActiveByVariant(ctx, variantID)
	if err != nil {
		return Availability{}, err
	}
	return Availability{
		VariantID: variantID,
		OnHand:    onHand,
		Reserved:  reserved,
		Available: onHand - reserved,
	}, nil
}

// Reserve places a soft hold of quantity units for an order. If an Active
// reservation already exists for the (order, variant) pair it is extended
// instead of duplicated. Under contention for the last units, exactly one
// caller succeeds and the others observe InsufficientStockError. The
// reason is informational; holds never touch the ledger, so it is carried
// into the operation log only.
func (e *ReservationEngine) Reserve(ctx context.Context, orderID, variantID uuid.UUID, quantity int64, reason string) (*Reservation, error) {
	if quantity <= 0 {
		return nil, shared.NewDomainError("INVALID_QUANTITY", "Reservation quantity must be positive")
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	lock := e.locks.forVariant(variantID)
	lock.Lock()
	defer lock.Unlock()

	var out *Reservation
	err := e.scope.Execute(ctx, func(repos Repositories) error {
		onHand, err := repos.Ledger.SumByVariant(ctx, variantID)
		if err != nil {
			return err
		}
		reserved, err := repos.Reservations.SumActiveByVariant(ctx, variantID)
		if err != nil {
			return err
		}
		available := onHand - reserved
		if quantity > available {
			return &InsufficientStockError{
				VariantID: variantID,
				Requested: quantity,
				Available: available,
			}
		}

		existing, err := repos.Reservations.FindActive(ctx, orderID, variantID)
		if err != nil && !errors.Is(err, shared.ErrNotFound) {
			return err
		}
		if existing != nil {
			if err := existing.Extend(quantity); err != nil {
				return err
			}
			if err := repos.Reservations.Save(ctx, existing); err != nil {
				return err
			}
			out = existing
			return nil
		}

		reservation, err := NewReservation(orderID, variantID, quantity)
		if err != nil {
			return err
		}
		if err := repos.Reservations.Create(ctx, reservation); err != nil {
			return err
		}
		out = reservation
		return nil
	})
	if err != nil {
		return nil, err
	}

	e.logger.Info("stock reserved",
		zap.String("order_id", orderID.String()),
		zap.String("variant_id", variantID.String()),
		zap.Int64("quantity", quantity),
		zap.String("reason", reason))
	e.publish(ctx, NewStockReservedEvent(out.ID, orderID, variantID, quantity))
	return out, nil
}

// Release gives back held stock. Releasing a reservation that was already
// released is a no-op so that retried cancellations do not fail; a pair
// with no reservation at all fails with ReservationNotFoundError.
func (e *ReservationEngine) Release(ctx context.Context, orderID, variantID uuid.UUID, quantity int64, reason string) error {
	if quantity <= 0 {
		return shared.NewDomainError("INVALID_QUANTITY", "Release quantity must be positive")
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	lock := e.locks.forVariant(variantID)
	lock.Lock()
	defer lock.Unlock()

	err := e.scope.Execute(ctx, func(repos Repositories) error {
		reservation, err := repos.Reservations.FindActive(ctx, orderID, variantID)
		if errors.Is(err, shared.ErrNotFound) {
			latest, lerr := repos.Reservations.FindLatest(ctx, orderID, variantID)
			if errors.Is(lerr, shared.ErrNotFound) {
				return &ReservationNotFoundError{OrderID: orderID, VariantID: variantID}
			}
			if lerr != nil {
				return lerr
			}
			if latest.Status == ReservationStatusReleased {
				return nil
			}
			return &ReservationNotFoundError{OrderID: orderID, VariantID: variantID}
		}
		if err != nil {
			return err
		}
		if err := reservation.ReleaseQuantity(quantity); err != nil {
			return err
		}
		return repos.Reservations.Save(ctx, reservation)
	})
	if err != nil {
		return err
	}

	e.logger.Info("reservation released",
		zap.String("order_id", orderID.String()),
		zap.String("variant_id", variantID.String()),
		zap.Int64("quantity", quantity),
		zap.String("reason", reason))
	e.publish(ctx, NewReservationReleasedEvent(orderID, variantID, quantity))
	return nil
}

// Consume converts held stock into a permanent decrement: the reservation
// is consumed and a negative shipment allocation entry is appended to the
// ledger in the same transaction.
func (e *ReservationEngine) Consume(ctx context.Context, orderID, variantID uuid.UUID, quantity int64, referenceID *string) error {
	if quantity <= 0 {
		return shared.NewDomainError("INVALID_QUANTITY", "Consume quantity must be positive")
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	lock := e.locks.forVariant(variantID)
	lock.Lock()
	defer lock.Unlock()

	err := e.scope.Execute(ctx, func(repos Repositories) error {
		reservation, err := repos.Reservations.FindActive(ctx, orderID, variantID)
		if errors.Is(err, shared.ErrNotFound) {
			return &ReservationNotFoundError{OrderID: orderID, VariantID: variantID}
		}
		if err != nil {
			return err
		}
		if err := reservation.ConsumeQuantity(quantity); err != nil {
			return err
		}
		if err := repos.Reservations.Save(ctx, reservation); err != nil {
			return err
		}
		ref := referenceID
		if ref == nil {
			id := orderID.String()
			ref = &id
		}
		entry, err := NewLedgerEntry(variantID, -quantity, ReasonShipmentAllocation, ref)
		if err != nil {
			return err
		}
		return repos.Ledger.Create(ctx, entry)
	})
	if err != nil {
		return err
	}

	e.logger.Info("reservation consumed",
		zap.String("order_id", orderID.String()),
		zap.String("variant_id", variantID.String()),
		zap.Int64("quantity", quantity))
	e.publish(ctx, NewReservationConsumedEvent(orderID, variantID, quantity))
	return nil
}

// Adjust appends a direct ledger correction for receipts and operator
// overrides. It never rejects the delta: adjustments may drive on-hand,
// and therefore available, negative.
func (e *ReservationEngine) Adjust(ctx context.Context, variantID uuid.UUID, delta int64, reason LedgerReason, referenceID *string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	lock := e.locks.forVariant(variantID)
	lock.Lock()
	defer lock.Unlock()

	err := e.scope.Execute(ctx, func(repos Repositories) error {
		entry, err := NewLedgerEntry(variantID, delta, reason, referenceID)
		if err != nil {
			return err
		}
		return repos.Ledger.Create(ctx, entry)
	})
	if err != nil {
		return err
	}

	e.logger.Info("stock adjusted",
		zap.String("variant_id", variantID.String()),
		zap.Int64("delta", delta),
		zap.String("reason", string(reason)))
	return nil
}

// ReserveLines reserves stock for every line of an order. Lines are
// reserved one at a time; if any line fails, the lines already reserved
// by this call are released before the error surfaces so no partial
// reservation stays visible.
func (e *ReservationEngine) ReserveLines(ctx context.Context, orderID uuid.UUID, lines []LineReservation) error {
	reserved := make([]LineReservation, 0, len(lines))
	for _, line := range lines {
		if _, err := e.Reserve(ctx, orderID, line.VariantID, line.Quantity, "order_line_hold"); err != nil {
			e.compensate(ctx, orderID, reserved)
			return err
		}
		reserved = append(reserved, line)
	}
	return nil
}

func (e *ReservationEngine) compensate(ctx context.Context, orderID uuid.UUID, reserved []LineReservation) {
	for _, line := range reserved {
		if err := e.Release(ctx, orderID, line.VariantID, line.Quantity, "hold_compensation"); err != nil {
			e.logger.Error("failed to compensate reservation",
				zap.String("order_id", orderID.String()),
				zap.String("variant_id", line.VariantID.String()),
				zap.Int64("quantity", line.Quantity),
				zap.Error(err))
		}
	}
}

// ConsumeLines consumes reservations for every given line. All lines are
// validated against their held quantities before any line is consumed;
// the validation runs outside the per-variant critical sections, so a
// line can still fail at consume time, in which case the lines already
// consumed by this call are restored before the error surfaces.
func (e *ReservationEngine) ConsumeLines(ctx context.Context, orderID uuid.UUID, lines []LineReservation, referenceID *string) error {
	for _, line := range lines {
		reservation, err := e.reservations.FindActive(ctx, orderID, line.VariantID)
		if errors.Is(err, shared.ErrNotFound) {
			return &ReservationNotFoundError{OrderID: orderID, VariantID: line.VariantID}
		}
		if err != nil {
			return err
		}
		if line.Quantity > reservation.Quantity {
			return &InsufficientReservationError{
				OrderID:   orderID,
				VariantID: line.VariantID,
				Requested: line.Quantity,
				Held:      reservation.Quantity,
			}
		}
	}
	consumed := make([]LineReservation, 0, len(lines))
	for _, line := range lines {
		if err := e.Consume(ctx, orderID, line.VariantID, line.Quantity, referenceID); err != nil {
			if rerr := e.RestoreConsumedLines(ctx, orderID, consumed, referenceID); rerr != nil {
				e.logger.Error("failed to restore consumed lines",
					zap.String("order_id", orderID.String()),
					zap.Error(rerr))
			}
			return err
		}
		consumed = append(consumed, line)
	}
	return nil
}

// RestoreConsumedLines reverses consumptions left behind by a failed unit
// of work: each line's hold becomes Active again and a positive shipment
// allocation entry cancels the decrement, so on-hand and reserved read as
// they did before the doomed consume.
func (e *ReservationEngine) RestoreConsumedLines(ctx context.Context, orderID uuid.UUID, lines []LineReservation, referenceID *string) error {
	for _, line := range lines {
		if err := e.restoreConsumed(ctx, orderID, line.VariantID, line.Quantity, referenceID); err != nil {
			return err
		}
	}
	return nil
}

func (e *ReservationEngine) restoreConsumed(ctx context.Context, orderID, variantID uuid.UUID, quantity int64, referenceID *string) error {
	if quantity <= 0 {
		return shared.NewDomainError("INVALID_QUANTITY", "Restore quantity must be positive")
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	lock := e.locks.forVariant(variantID)
	lock.Lock()
	defer lock.Unlock()

	err := e.scope.Execute(ctx, func(repos Repositories) error {
		existing, err := repos.Reservations.FindActive(ctx, orderID, variantID)
		if err != nil && !errors.Is(err, shared.ErrNotFound) {
			return err
		}
		if existing != nil {
			if err := existing.Extend(quantity); err != nil {
				return err
			}
			if err := repos.Reservations.Save(ctx, existing); err != nil {
				return err
			}
		} else {
			// Consumed rows are terminal; the restored hold is a new row.
			reservation, rerr := NewReservation(orderID, variantID, quantity)
			if rerr != nil {
				return rerr
			}
			if err := repos.Reservations.Create(ctx, reservation); err != nil {
				return err
			}
		}
		ref := referenceID
		if ref == nil {
			id := orderID.String()
			ref = &id
		}
		entry, err := NewLedgerEntry(variantID, quantity, ReasonShipmentAllocation, ref)
		if err != nil {
			return err
		}
		return repos.Ledger.Create(ctx, entry)
	})
	if err != nil {
		return err
	}

	e.logger.Warn("consumed reservation restored",
		zap.String("order_id", orderID.String()),
		zap.String("variant_id", variantID.String()),
		zap.Int64("quantity", quantity))
	return nil
}

// ReleaseOrder releases every Active reservation held for an order.
// An order with no active reservations is a no-op.
func (e *ReservationEngine) ReleaseOrder(ctx context.Context, orderID uuid.UUID) error {
	active, err := e.reservations.FindActiveByOrder(ctx, orderID)
	if err != nil {
		return err
	}
	for _, reservation := range active {
		if err := e.Release(ctx, orderID, reservation.VariantID, reservation.Quantity, "order_release"); err != nil {
			return err
		}
	}
	return nil
}

// ActiveReservations returns the order's currently held reservations
func (e *ReservationEngine) ActiveReservations(ctx context.Context, orderID uuid.UUID) ([]*Reservation, error) {
	return e.reservations.FindActiveByOrder(ctx, orderID)
}

package order

import (
	"context"

	"github.com/google/uuid"

	"github.com/shopcore/backend/internal/domain/shared"
)

// LineDemand names the stock one order line needs from a variant
type LineDemand struct {
	VariantID uuid.UUID
	Quantity  int64
}

// StockReserver is the reservation engine as transition guards see it
type StockReserver interface {
	// ReserveLines holds stock for every line or for none of them
	ReserveLines(ctx context.Context, orderID uuid.UUID, lines []LineDemand) error
	// ConsumeLines converts holds into permanent stock decrements
	ConsumeLines(ctx context.Context, orderID uuid.UUID, lines []LineDemand, referenceID *string) error
	// RestoreConsumedLines reverses consumptions after a failed unit of work
	RestoreConsumedLines(ctx context.Context, orderID uuid.UUID, lines []LineDemand, referenceID *string) error
	// ReleaseOrder releases every active hold of an order; idempotent
	ReleaseOrder(ctx context.Context, orderID uuid.UUID) error
	// HeldQuantities returns the active hold per variant for an order
	HeldQuantities(ctx context.Context, orderID uuid.UUID) (map[uuid.UUID]int64, error)
}

// GuardContext carries the collaborators and command input a transition's
// guards consult
type GuardContext struct {
	Reserver StockReserver
	// ShippedLines names the lines a partial shipment fulfills
	ShippedLines []LineDemand
	// ShipmentRef correlates consumed stock to a shipment
	ShipmentRef *string
	// CancelReason is recorded when the target status is Cancelled
	CancelReason string
	// consumed collects the lines a consume guard decremented during this
	// transition so a later failure can reverse them. Apply initializes it.
	consumed *[]LineDemand
}

// Guard is one business precondition of a transition. Check may have side
// effects on the stock stores; Compensate undoes them and is nil when
// Check is pure.
type Guard struct {
	Name       string
	Check      func(ctx context.Context, o *Order, gc GuardContext) error
	Compensate func(ctx context.Context, o *Order, gc GuardContext) error
}

func guardHasLines() Guard {
	return Guard{
		Name: "order_has_lines",
		Check: func(_ context.Context, o *Order, _ GuardContext) error {
			if len(o.Lines) == 0 {
				return shared.NewDomainError("EMPTY_ORDER", "Order has no lines")
			}
			return nil
		},
	}
}

func guardReserveAllLines() Guard {
	return Guard{
		Name: "reserve_stock_for_all_lines",
		Check: func(ctx context.Context, o *Order, gc GuardContext) error {
			return gc.Reserver.ReserveLines(ctx, o.ID, o.LineDemands())
		},
		Compensate: func(ctx context.Context, o *Order, gc GuardContext) error {
			return gc.Reserver.ReleaseOrder(ctx, o.ID)
		},
	}
}

func guardPaymentCovered() Guard {
	return Guard{
		Name: "payment_captured_covers_total",
		Check: func(_ context.Context, o *Order, _ GuardContext) error {
			if o.CapturedAmount().LessThan(o.Total()) {
				return shared.NewDomainError("PAYMENT_NOT_CAPTURED",
					"Captured amount does not cover the order total")
			}
			return nil
		},
	}
}

func guardReservationsHeld() Guard {
	return Guard{
		Name: "reservation_held_for_all_lines",
		Check: func(ctx context.Context, o *Order, gc GuardContext) error {
			held, err := gc.Reserver.HeldQuantities(ctx, o.ID)
			if err != nil {
				return err
			}
			need := make(map[uuid.UUID]int64)
			for _, d := range o.RemainingDemands() {
				need[d.VariantID] += d.Quantity
			}
			for variantID, quantity := range need {
				if held[variantID] < quantity {
					return shared.NewDomainError("RESERVATION_MISSING",
						"No active reservation covers variant "+variantID.String())
				}
			}
			return nil
		},
	}
}

func guardConsumeRemainingLines() Guard {
	return Guard{
		Name: "consume_reservations_for_remaining_lines",
		Check: func(ctx context.Context, o *Order, gc GuardContext) error {
			remaining := o.RemainingDemands()
			if len(remaining) == 0 {
				return shared.NewDomainError("NOTHING_TO_SHIP", "All lines are already shipped")
			}
			if err := gc.Reserver.ConsumeLines(ctx, o.ID, remaining, gc.ShipmentRef); err != nil {
				return err
			}
			if gc.consumed != nil {
				*gc.consumed = remaining
			}
			return o.recordShipment(remaining)
		},
		Compensate: compensateConsumedLines,
	}
}

// compensateConsumedLines reverses a consume guard when a later step of
// the same transition fails: the shipment bookkeeping is unwound and the
// consumed stock is restored, so the failed transition leaves order,
// ledger and reservations as they were.
func compensateConsumedLines(ctx context.Context, o *Order, gc GuardContext) error {
	if gc.consumed == nil || len(*gc.consumed) == 0 {
		return nil
	}
	lines := *gc.consumed
	o.unrecordShipment(lines)
	return gc.Reserver.RestoreConsumedLines(ctx, o.ID, lines, gc.ShipmentRef)
}

func guardConsumeShippedLines() Guard {
	return Guard{
		Name: "consume_reservations_for_shipped_lines",
		Check: func(ctx context.Context, o *Order, gc GuardContext) error {
			if len(gc.ShippedLines) == 0 {
				return shared.NewDomainError("EMPTY_SHIPMENT", "A partial shipment must name at least one line")
			}
			remaining := make(map[uuid.UUID]int64)
			var open int64
			for _, d := range o.RemainingDemands() {
				remaining[d.VariantID] += d.Quantity
				open += d.Quantity
			}
			var shipping int64
			for _, s := range gc.ShippedLines {
				if s.Quantity <= 0 {
					return shared.NewDomainError("INVALID_QUANTITY", "Shipped quantity must be positive")
				}
				if s.Quantity > remaining[s.VariantID] {
					return shared.NewDomainError("SHIPMENT_EXCEEDS_ORDER",
						"Shipped quantity exceeds the open quantity for variant "+s.VariantID.String())
				}
				shipping += s.Quantity
			}
			if shipping == open {
				return shared.NewDomainError("SHIPMENT_IS_FULL",
					"A shipment covering every open line must target the Shipped status")
			}
			if err := gc.Reserver.ConsumeLines(ctx, o.ID, gc.ShippedLines, gc.ShipmentRef); err != nil {
				return err
			}
			if gc.consumed != nil {
				*gc.consumed = gc.ShippedLines
			}
			return o.recordShipment(gc.ShippedLines)
		},
		Compensate: compensateConsumedLines,
	}
}

func guardReleaseAllReservations() Guard {
	return Guard{
		Name: "release_all_active_reservations",
		Check: func(ctx context.Context, o *Order, gc GuardContext) error {
			// An order that never reserved anything releases nothing.
			return gc.Reserver.ReleaseOrder(ctx, o.ID)
		},
	}
}

func guardRefundRecorded() Guard {
	return Guard{
		Name: "refund_recorded",
		Check: func(_ context.Context, o *Order, _ GuardContext) error {
			if !o.RefundedAmount().IsPositive() {
				return shared.NewDomainError("REFUND_NOT_RECORDED", "No refund has been recorded")
			}
			return nil
		},
	}
}

func guardFullyRefunded() Guard {
	return Guard{
		Name: "refund_covers_captured_amount",
		Check: func(_ context.Context, o *Order, _ GuardContext) error {
			if o.RefundedAmount().LessThan(o.CapturedAmount()) {
				return shared.NewDomainError("REFUND_INCOMPLETE",
					"Recorded refunds do not cover the captured amount")
			}
			return nil
		},
	}
}

package order

import (
	"context"

	"github.com/google/uuid"

	"github.com/shopcore/backend/internal/domain/inventory"
	"github.com/shopcore/backend/internal/domain/order"
)

// engineReserver adapts the reservation engine to the narrow interface
// the order transition guards consume.
type engineReserver struct {
	engine *inventory.ReservationEngine
}

// NewStockReserver wraps the reservation engine for transition guards
func NewStockReserver(engine *inventory.ReservationEngine) order.StockReserver {
	return &engineReserver{engine: engine}
}

func toLineReservations(lines []order.LineDemand) []inventory.LineReservation {
	out := make([]inventory.LineReservation, 0, len(lines))
	for _, line := range lines {
		out = append(out, inventory.LineReservation{VariantID: line.VariantID, Quantity: line.Quantity})
	}
	return out
}

func (r *engineReserver) ReserveLines(ctx context.Context, orderID uuid.UUID, lines []order.LineDemand) error {
	return r.engine.ReserveLines(ctx, orderID, toLineReservations(lines))
}

func (r *engineReserver) ConsumeLines(ctx context.Context, orderID uuid.UUID, lines []order.LineDemand, referenceID *string) error {
	return r.engine.ConsumeLines(ctx, orderID, toLineReservations(lines), referenceID)
}

func (r *engineReserver) RestoreConsumedLines(ctx context.Context, orderID uuid.UUID, lines []order.LineDemand, referenceID *string) error {
	return r.engine.RestoreConsumedLines(ctx, orderID, toLineReservations(lines), referenceID)
}

func (r *engineReserver) ReleaseOrder(ctx context.Context, orderID uuid.UUID) error {
	return r.engine.ReleaseOrder(ctx, orderID)
}

func (r *engineReserver) HeldQuantities(ctx context.Context, orderID uuid.UUID) (map[uuid.UUID]int64, error) {
	active, err := r.engine.ActiveReservations(ctx, orderID)
	if err != nil {
		return nil, err
	}
	held := make(map[uuid.UUID]int64, len(active))
	for _, reservation := range active {
		held[reservation.VariantID] += reservation.Quantity
	}
	return held, nil
}

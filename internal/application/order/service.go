package order

import (
	"context"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/shopcore/backend/internal/domain/order"
	"github.com/shopcore/backend/internal/domain/shared"
)

// Service handles order commands. Every status change goes through the
// state machine; the service only loads aggregates, records payment and
// refund facts, picks the target status and publishes domain events.
type Service struct {
	orders   order.Repository
	machine  *order.StateMachine
	reserver order.StockReserver
	events   shared.EventPublisher
	logger   *zap.Logger
}

// NewService creates an order service
func NewService(
	orders order.Repository,
	machine *order.StateMachine,
	reserver order.StockReserver,
	events shared.EventPublisher,
	logger *zap.Logger,
) *Service {
	return &Service{
		orders:   orders,
		machine:  machine,
		reserver: reserver,
		events:   events,
		logger:   logger,
	}
}

// CreateOrder creates an order in the Created state
func (s *Service) CreateOrder(ctx context.Context, cmd CreateOrderCommand) (*order.Order, error) {
	o, err := order.NewOrder(cmd.OrderNumber)
	if err != nil {
		return nil, err
	}
	for _, line := range cmd.Lines {
		if err := o.AddLine(line.SKU, line.VariantID, line.Quantity, line.UnitPrice); err != nil {
			return nil, err
		}
	}
	if err := s.orders.Create(ctx, o); err != nil {
		return nil, err
	}
	s.publishEvents(ctx, o)
	s.logger.Info("order created",
		zap.String("order_id", o.ID.String()),
		zap.String("order_number", o.OrderNumber),
		zap.Int("lines", len(o.Lines)))
	return o, nil
}

// Confirm reserves stock for every line and moves the order to Confirmed
func (s *Service) Confirm(ctx context.Context, orderID uuid.UUID) (*order.Order, error) {
	return s.transition(ctx, orderID, order.StatusConfirmed, order.GuardContext{Reserver: s.reserver}, nil)
}

// Pay records the captured payment and moves the order to Paid
func (s *Service) Pay(ctx context.Context, cmd PayCommand) (*order.Order, error) {
	mutate := func(o *order.Order) error {
		return o.RecordPayment(cmd.Amount, cmd.Reference)
	}
	return s.transition(ctx, cmd.OrderID, order.StatusPaid, order.GuardContext{Reserver: s.reserver}, mutate)
}

// Ship consumes reservations for the shipped lines. Shipping everything
// still open targets Shipped; shipping a subset targets PartiallyShipped.
func (s *Service) Ship(ctx context.Context, cmd ShipCommand) (*order.Order, error) {
	gc := order.GuardContext{Reserver: s.reserver}
	if cmd.ShipmentRef != "" {
		ref := cmd.ShipmentRef
		gc.ShipmentRef = &ref
	}
	target := order.StatusShipped
	if len(cmd.Lines) > 0 {
		o, err := s.orders.FindByID(ctx, cmd.OrderID)
		if err != nil {
			return nil, err
		}
		full, err := classifyShipment(o, cmd.Lines)
		if err != nil {
			return nil, err
		}
		if !full {
			target = order.StatusPartiallyShipped
			for _, line := range cmd.Lines {
				gc.ShippedLines = append(gc.ShippedLines, order.LineDemand{
					VariantID: line.VariantID,
					Quantity:  line.Quantity,
				})
			}
		}
	}
	return s.transition(ctx, cmd.OrderID, target, gc, nil)
}

// classifyShipment reports whether the shipped lines cover every quantity
// the order still has open. A line exceeding its open quantity is
// rejected here, on the full and the partial path alike.
func classifyShipment(o *order.Order, lines []ShipLine) (bool, error) {
	open := make(map[uuid.UUID]int64)
	for _, d := range o.RemainingDemands() {
		open[d.VariantID] += d.Quantity
	}
	for _, line := range lines {
		if line.Quantity <= 0 {
			return false, shared.NewDomainError("INVALID_QUANTITY", "Shipped quantity must be positive")
		}
		if line.Quantity > open[line.VariantID] {
			return false, shared.NewDomainError("SHIPMENT_EXCEEDS_ORDER",
				"Shipped quantity exceeds the open quantity for variant "+line.VariantID.String())
		}
		open[line.VariantID] -= line.Quantity
	}
	for _, rest := range open {
		if rest > 0 {
			return false, nil
		}
	}
	return true, nil
}

// Deliver moves the order to Delivered
func (s *Service) Deliver(ctx context.Context, orderID uuid.UUID) (*order.Order, error) {
	return s.transition(ctx, orderID, order.StatusDelivered, order.GuardContext{Reserver: s.reserver}, nil)
}

// Cancel releases all held stock and moves the order to Cancelled
func (s *Service) Cancel(ctx context.Context, cmd CancelCommand) (*order.Order, error) {
	gc := order.GuardContext{Reserver: s.reserver, CancelReason: cmd.Reason}
	return s.transition(ctx, cmd.OrderID, order.StatusCancelled, gc, nil)
}

// Refund records a refund and moves the order to Refunded when the
// recorded refunds cover the captured amount and the graph allows it,
// otherwise to PartiallyRefunded.
func (s *Service) Refund(ctx context.Context, cmd RefundCommand) (*order.Order, error) {
	o, err := s.orders.FindByID(ctx, cmd.OrderID)
	if err != nil {
		return nil, err
	}
	if err := o.RecordRefund(cmd.Amount, cmd.Reference); err != nil {
		return nil, err
	}
	target := order.StatusPartiallyRefunded
	if !o.RefundedAmount().LessThan(o.CapturedAmount()) && s.machine.IsAllowed(o.Status, order.StatusRefunded) {
		target = order.StatusRefunded
	}
	gc := order.GuardContext{Reserver: s.reserver}
	if err := s.machine.Apply(ctx, o, target, gc); err != nil {
		return nil, err
	}
	s.publishEvents(ctx, o)
	return o, nil
}

// GetOrder loads an order by ID
func (s *Service) GetOrder(ctx context.Context, orderID uuid.UUID) (*order.Order, error) {
	return s.orders.FindByID(ctx, orderID)
}

// GetOrderByNumber loads an order by its unique number
func (s *Service) GetOrderByNumber(ctx context.Context, orderNumber string) (*order.Order, error) {
	return s.orders.FindByOrderNumber(ctx, orderNumber)
}

// ListOrders lists orders matching the filter
func (s *Service) ListOrders(ctx context.Context, filter shared.Filter) (shared.Paginated[*order.Order], error) {
	return s.orders.FindAll(ctx, filter)
}

// transition loads the order, applies an optional mutation, and runs the
// state machine transition to the target status
func (s *Service) transition(
	ctx context.Context,
	orderID uuid.UUID,
	target order.Status,
	gc order.GuardContext,
	mutate func(*order.Order) error,
) (*order.Order, error) {
	o, err := s.orders.FindByID(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if mutate != nil {
		if err := mutate(o); err != nil {
			return nil, err
		}
	}
	if err := s.machine.Apply(ctx, o, target, gc); err != nil {
		return nil, err
	}
	s.publishEvents(ctx, o)
	return o, nil
}

func (s *Service) publishEvents(ctx context.Context, o *order.Order) {
	events := o.GetDomainEvents()
	if len(events) == 0 || s.events == nil {
		return
	}
	if err := s.events.Publish(ctx, events...); err != nil {
		s.logger.Warn("failed to publish order events",
			zap.String("order_id", o.ID.String()),
			zap.Error(err))
	}
	o.ClearDomainEvents()
}

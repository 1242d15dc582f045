package order

import (
	"context"

	"go.uber.org/zap"
)

// transition is one directed edge of the order lifecycle graph
type transition struct {
	From Status
	To   Status
}

// StateMachine validates and applies order status transitions. The graph
// is an immutable table mapping each allowed edge to its ordered guards;
// edges absent from the table, including self-loops and everything out of
// a terminal status, are disallowed.
type StateMachine struct {
	edges  map[transition][]Guard
	orders Repository
	logger *zap.Logger
}

// NewStateMachine creates a state machine with the full lifecycle graph
func NewStateMachine(orders Repository, logger *zap.Logger) *StateMachine {
	return &StateMachine{
		edges: map[transition][]Guard{
			{StatusCreated, StatusConfirmed}:                  {guardHasLines(), guardReserveAllLines()},
			{StatusCreated, StatusCancelled}:                  {guardReleaseAllReservations()},
			{StatusConfirmed, StatusPaid}:                     {guardPaymentCovered(), guardReservationsHeld()},
			{StatusConfirmed, StatusCancelled}:                {guardReleaseAllReservations()},
			{StatusPaid, StatusPartiallyShipped}:              {guardConsumeShippedLines()},
			{StatusPaid, StatusShipped}:                       {guardConsumeRemainingLines()},
			{StatusPaid, StatusRefunded}:                      {guardFullyRefunded(), guardReleaseAllReservations()},
			{StatusPaid, StatusPartiallyRefunded}:             {guardRefundRecorded()},
			{StatusPartiallyShipped, StatusShipped}:           {guardConsumeRemainingLines()},
			{StatusPartiallyShipped, StatusDelivered}:         {},
			{StatusPartiallyShipped, StatusPartiallyRefunded}: {guardRefundRecorded()},
			{StatusShipped, StatusDelivered}:                  {},
			{StatusShipped, StatusPartiallyRefunded}:          {guardRefundRecorded()},
			{StatusShipped, StatusRefunded}:                   {guardFullyRefunded()},
			{StatusDelivered, StatusPartiallyRefunded}:        {guardRefundRecorded()},
			{StatusDelivered, StatusRefunded}:                 {guardFullyRefunded()},
			{StatusPartiallyRefunded, StatusRefunded}:         {guardFullyRefunded()},
		},
		orders: orders,
		logger: logger,
	}
}

// IsAllowed reports whether the edge (from, to) exists in the lifecycle
// graph. Pure lookup, total over all status pairs.
func (m *StateMachine) IsAllowed(from, to Status) bool {
	if from == to {
		return false
	}
	_, ok := m.edges[transition{From: from, To: to}]
	return ok
}

// Apply moves an order to the target status. The edge is first validated
// against the graph, then the edge's guards run in order; a guard failure
// compensates the side effects of the guards that already ran, so order,
// ledger and reservations are left as they were. On success the status
// change is persisted with an optimistic version check; a failed save is
// compensated the same way, so a stale-version conflict can be retried
// without stock drift.
func (m *StateMachine) Apply(ctx context.Context, o *Order, to Status, gc GuardContext) error {
	from := o.Status
	if !m.IsAllowed(from, to) {
		return &InvalidTransitionError{From: from, To: to}
	}

	guards := m.edges[transition{From: from, To: to}]
	if gc.consumed == nil {
		gc.consumed = new([]LineDemand)
	}
	applied := make([]Guard, 0, len(guards))
	for _, guard := range guards {
		if err := guard.Check(ctx, o, gc); err != nil {
			m.compensate(ctx, o, gc, applied)
			return &GuardFailedError{From: from, To: to, Guard: guard.Name, Err: err}
		}
		applied = append(applied, guard)
	}

	o.applyStatus(to, gc.CancelReason)
	if err := m.orders.Save(ctx, o); err != nil {
		m.compensate(ctx, o, gc, applied)
		o.Status = from
		return err
	}

	m.logger.Info("order transitioned",
		zap.String("order_id", o.ID.String()),
		zap.String("order_number", o.OrderNumber),
		zap.String("from", string(from)),
		zap.String("to", string(to)))
	return nil
}

func (m *StateMachine) compensate(ctx context.Context, o *Order, gc GuardContext, applied []Guard) {
	for i := len(applied) - 1; i >= 0; i-- {
		guard := applied[i]
		if guard.Compensate == nil {
			continue
		}
		if err := guard.Compensate(ctx, o, gc); err != nil {
			m.logger.Error("guard compensation failed",
				zap.String("order_id", o.ID.String()),
				zap.String("guard", guard.Name),
				zap.Error(err))
		}
	}
}

package order

import (
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// CreateOrderCommand creates a new order with its lines
type CreateOrderCommand struct {
	OrderNumber string
	Lines       []CreateOrderLine
}

// CreateOrderLine is one position of a new order
type CreateOrderLine struct {
	SKU       string
	VariantID uuid.UUID
	Quantity  int64
	UnitPrice decimal.Decimal
}

// PayCommand records a captured payment and moves the order to Paid
type PayCommand struct {
	OrderID   uuid.UUID
	Amount    decimal.Decimal
	Reference string
}

// ShipCommand ships order lines. An empty Lines slice ships everything
// still open and targets Shipped; a subset targets PartiallyShipped.
type ShipCommand struct {
	OrderID     uuid.UUID
	Lines       []ShipLine
	ShipmentRef string
}

// ShipLine is one shipped position
type ShipLine struct {
	VariantID uuid.UUID
	Quantity  int64
}

// CancelCommand cancels an order and releases its held stock
type CancelCommand struct {
	OrderID uuid.UUID
	Reason  string
}

// RefundCommand records a refund. The order moves to Refunded when the
// recorded refunds cover the captured amount and the lifecycle graph
// allows it, otherwise to PartiallyRefunded.
type RefundCommand struct {
	OrderID   uuid.UUID
	Amount    decimal.Decimal
	Reference string
}

package order

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/shopcore/backend/internal/domain/shared"
)

// Order is the order aggregate root. Status is mutated only through
// state-machine validated transitions; payments and refunds are recorded
// by upstream collaborators and read by transition guards.
type Order struct {
	shared.BaseAggregateRoot
	OrderNumber  string          `gorm:"type:varchar(64);uniqueIndex;not null"`
	Status       Status          `gorm:"type:varchar(32);not null"`
	Lines        []OrderLine     `gorm:"foreignKey:OrderID"`
	Payments     []PaymentRecord `gorm:"foreignKey:OrderID"`
	Refunds      []RefundRecord  `gorm:"foreignKey:OrderID"`
	CancelReason string          `gorm:"type:varchar(255)"`
	ConfirmedAt  *time.Time
	PaidAt       *time.Time
	ShippedAt    *time.Time
	DeliveredAt  *time.Time
	CancelledAt  *time.Time
	RefundedAt   *time.Time
}

// TableName returns the table name for GORM
func (Order) TableName() string {
	return "orders"
}

// OrderLine is one sellable position of an order. Quantity and variant
// are immutable once the order leaves Created; shipment and refund
// bookkeeping is appended as fulfillment progresses.
type OrderLine struct {
	shared.BaseEntity
	OrderID          uuid.UUID       `gorm:"type:uuid;not null;index"`
	SKU              string          `gorm:"type:varchar(64);not null"`
	VariantID        uuid.UUID       `gorm:"type:uuid;not null"`
	Quantity         int64           `gorm:"not null"`
	UnitPrice        decimal.Decimal `gorm:"type:decimal(12,2);not null"`
	ShippedQuantity  int64           `gorm:"not null;default:0"`
	RefundedQuantity int64           `gorm:"not null;default:0"`
}

// TableName returns the table name for GORM
func (OrderLine) TableName() string {
	return "order_lines"
}

// RemainingQuantity is the quantity not yet shipped
func (l *OrderLine) RemainingQuantity() int64 {
	return l.Quantity - l.ShippedQuantity
}

// PaymentRecord is a captured payment recorded by the payment collaborator
type PaymentRecord struct {
	shared.BaseEntity
	OrderID   uuid.UUID       `gorm:"type:uuid;not null;index"`
	Amount    decimal.Decimal `gorm:"type:decimal(12,2);not null"`
	Reference string          `gorm:"type:varchar(128)"`
}

// TableName returns the table name for GORM
func (PaymentRecord) TableName() string {
	return "order_payments"
}

// RefundRecord is a refund recorded by the payment collaborator
type RefundRecord struct {
	shared.BaseEntity
	OrderID   uuid.UUID       `gorm:"type:uuid;not null;index"`
	Amount    decimal.Decimal `gorm:"type:decimal(12,2);not null"`
	Reference string          `gorm:"type:varchar(128)"`
}

// TableName returns the table name for GORM
func (RefundRecord) TableName() string {
	return "order_refunds"
}

// NewOrder creates an order in the Created state
func NewOrder(orderNumber string) (*Order, error) {
	if orderNumber == "" {
		return nil, shared.NewDomainError("INVALID_ORDER_NUMBER", "Order number is required")
	}
	o := &Order{
		BaseAggregateRoot: shared.NewBaseAggregateRoot(),
		OrderNumber:       orderNumber,
		Status:            StatusCreated,
	}
	o.AddDomainEvent(NewOrderCreatedEvent(o.ID, orderNumber))
	return o, nil
}

// AddLine adds a sellable position. Lines can only be added while the
// order is still in Created.
func (o *Order) AddLine(sku string, variantID uuid.UUID, quantity int64, unitPrice decimal.Decimal) error {
	if o.Status != StatusCreated {
		return shared.ErrInvalidState
	}
	if sku == "" || variantID == uuid.Nil {
		return shared.NewDomainError("INVALID_LINE", "SKU and variant ID are required")
	}
	if quantity <= 0 {
		return shared.NewDomainError("INVALID_QUANTITY", "Line quantity must be positive")
	}
	if unitPrice.IsNegative() {
		return shared.NewDomainError("INVALID_PRICE", "Unit price cannot be negative")
	}
	o.Lines = append(o.Lines, OrderLine{
		BaseEntity: shared.NewBaseEntity(),
		OrderID:    o.ID,
		SKU:        sku,
		VariantID:  variantID,
		Quantity:   quantity,
		UnitPrice:  unitPrice,
	})
	return nil
}

// Total is the sum of line quantity times unit price
func (o *Order) Total() decimal.Decimal {
	total := decimal.Zero
	for _, line := range o.Lines {
		total = total.Add(line.UnitPrice.Mul(decimal.NewFromInt(line.Quantity)))
	}
	return total
}

// CapturedAmount is the sum of recorded payments
func (o *Order) CapturedAmount() decimal.Decimal {
	total := decimal.Zero
	for _, p := range o.Payments {
		total = total.Add(p.Amount)
	}
	return total
}

// RefundedAmount is the sum of recorded refunds
func (o *Order) RefundedAmount() decimal.Decimal {
	total := decimal.Zero
	for _, r := range o.Refunds {
		total = total.Add(r.Amount)
	}
	return total
}

// RecordPayment records a captured payment
func (o *Order) RecordPayment(amount decimal.Decimal, reference string) error {
	if o.Status.IsTerminal() {
		return shared.ErrInvalidState
	}
	if !amount.IsPositive() {
		return shared.NewDomainError("INVALID_AMOUNT", "Payment amount must be positive")
	}
	o.Payments = append(o.Payments, PaymentRecord{
		BaseEntity: shared.NewBaseEntity(),
		OrderID:    o.ID,
		Amount:     amount,
		Reference:  reference,
	})
	return nil
}

// RecordRefund records a refund issued by the payment collaborator
func (o *Order) RecordRefund(amount decimal.Decimal, reference string) error {
	if !amount.IsPositive() {
		return shared.NewDomainError("INVALID_AMOUNT", "Refund amount must be positive")
	}
	if o.RefundedAmount().Add(amount).GreaterThan(o.CapturedAmount()) {
		return shared.NewDomainError("REFUND_EXCEEDS_CAPTURE", "Refunds cannot exceed the captured amount")
	}
	o.Refunds = append(o.Refunds, RefundRecord{
		BaseEntity: shared.NewBaseEntity(),
		OrderID:    o.ID,
		Amount:     amount,
		Reference:  reference,
	})
	return nil
}

// LineDemands returns the full stock demand of every line
func (o *Order) LineDemands() []LineDemand {
	demands := make([]LineDemand, 0, len(o.Lines))
	for _, line := range o.Lines {
		demands = append(demands, LineDemand{VariantID: line.VariantID, Quantity: line.Quantity})
	}
	return demands
}

// RemainingDemands returns the not-yet-shipped stock demand per line
func (o *Order) RemainingDemands() []LineDemand {
	demands := make([]LineDemand, 0, len(o.Lines))
	for _, line := range o.Lines {
		if remaining := line.RemainingQuantity(); remaining > 0 {
			demands = append(demands, LineDemand{VariantID: line.VariantID, Quantity: remaining})
		}
	}
	return demands
}

// recordShipment books shipped quantities onto the matching lines
func (o *Order) recordShipment(shipped []LineDemand) error {
	for _, s := range shipped {
		remaining := s.Quantity
		for i := range o.Lines {
			if o.Lines[i].VariantID != s.VariantID {
				continue
			}
			room := o.Lines[i].RemainingQuantity()
			if room <= 0 {
				continue
			}
			take := remaining
			if take > room {
				take = room
			}
			o.Lines[i].ShippedQuantity += take
			remaining -= take
			if remaining == 0 {
				break
			}
		}
		if remaining > 0 {
			return shared.NewDomainError("SHIPMENT_EXCEEDS_ORDER",
				"Shipped quantity exceeds the ordered quantity for variant "+s.VariantID.String())
		}
	}
	return nil
}

// unrecordShipment reverses shipment bookkeeping after a failed
// transition, giving back the quantities recordShipment just booked
func (o *Order) unrecordShipment(shipped []LineDemand) {
	for _, s := range shipped {
		remaining := s.Quantity
		for i := len(o.Lines) - 1; i >= 0; i-- {
			if o.Lines[i].VariantID != s.VariantID {
				continue
			}
			give := remaining
			if give > o.Lines[i].ShippedQuantity {
				give = o.Lines[i].ShippedQuantity
			}
			o.Lines[i].ShippedQuantity -= give
			remaining -= give
			if remaining == 0 {
				break
			}
		}
	}
}

// applyStatus moves the order to its new status and stamps the matching
// lifecycle timestamp. Callers must have validated the transition.
func (o *Order) applyStatus(to Status, cancelReason string) {
	from := o.Status
	o.Status = to
	now := time.Now().UTC()
	switch to {
	case StatusConfirmed:
		o.ConfirmedAt = &now
	case StatusPaid:
		o.PaidAt = &now
	case StatusShipped:
		o.ShippedAt = &now
	case StatusDelivered:
		o.DeliveredAt = &now
	case StatusCancelled:
		o.CancelledAt = &now
		o.CancelReason = cancelReason
	case StatusRefunded:
		o.RefundedAt = &now
	}
	o.AddDomainEvent(NewOrderStatusChangedEvent(o.ID, o.OrderNumber, from, to))
}

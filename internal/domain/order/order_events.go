package order

import (
	"github.com/google/uuid"

	"github.com/shopcore/backend/internal/domain/shared"
)

// Event types for the order domain
const (
	EventTypeOrderCreated       = "order.created"
	EventTypeOrderStatusChanged = "order.status_changed"
)

// OrderCreatedEvent is published when an order is created
type OrderCreatedEvent struct {
	shared.BaseDomainEvent
	OrderNumber string `json:"order_number"`
}

// NewOrderCreatedEvent creates an order created event
func NewOrderCreatedEvent(orderID uuid.UUID, orderNumber string) *OrderCreatedEvent {
	return &OrderCreatedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeOrderCreated, "Order", orderID),
		OrderNumber:     orderNumber,
	}
}

// OrderStatusChangedEvent is published on every committed transition
type OrderStatusChangedEvent struct {
	shared.BaseDomainEvent
	OrderNumber string `json:"order_number"`
	From        Status `json:"from"`
	To          Status `json:"to"`
}

// NewOrderStatusChangedEvent creates a status changed event
func NewOrderStatusChangedEvent(orderID uuid.UUID, orderNumber string, from, to Status) *OrderStatusChangedEvent {
	return &OrderStatusChangedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeOrderStatusChanged, "Order", orderID),
		OrderNumber:     orderNumber,
		From:            from,
		To:              to,
	}
}

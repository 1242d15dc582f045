package order

// Status represents the lifecycle state of an order
type Status string

const (
	StatusCreated           Status = "created"
	StatusConfirmed         Status = "confirmed"
	StatusPaid              Status = "paid"
	StatusPartiallyShipped  Status = "partially_shipped"
	StatusShipped           Status = "shipped"
	StatusDelivered         Status = "delivered"
	StatusPartiallyRefunded Status = "partially_refunded"
	StatusCancelled         Status = "cancelled"
	StatusRefunded          Status = "refunded"
)

// IsValid checks if the status is a known lifecycle state
func (s Status) IsValid() bool {
	switch s {
	case StatusCreated, StatusConfirmed, StatusPaid, StatusPartiallyShipped,
		StatusShipped, StatusDelivered, StatusPartiallyRefunded,
		StatusCancelled, StatusRefunded:
		return true
	}
	return false
}

// IsTerminal reports whether the status has no outgoing transitions
func (s Status) IsTerminal() bool {
	return s == StatusCancelled || s == StatusRefunded
}

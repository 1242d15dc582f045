package inventory

import (
	"time"

	"github.com/google/uuid"

	"github.com/shopcore/backend/internal/domain/shared"
)

// LedgerReason classifies why a stock ledger entry was appended
type LedgerReason string

const (
	ReasonReceipt            LedgerReason = "receipt"
	ReasonAdjustment         LedgerReason = "adjustment"
	ReasonReservationHold    LedgerReason = "reservation_hold"
	ReasonReservationRelease LedgerReason = "reservation_release"
	ReasonReservationConsume LedgerReason = "reservation_consume"
	ReasonShipmentAllocation LedgerReason = "shipment_allocation"
)

// IsValid checks if the ledger reason is valid
func (r LedgerReason) IsValid() bool {
	switch r {
	case ReasonReceipt, ReasonAdjustment, ReasonReservationHold,
		ReasonReservationRelease, ReasonReservationConsume, ReasonShipmentAllocation:
		return true
	}
	return false
}

// LedgerEntry is one immutable row of the stock ledger. The sum of all
// entries for a variant is that variant's on-hand quantity; corrections
// are made by appending a compensating delta, never by editing history.
type LedgerEntry struct {
	ID            uuid.UUID    `gorm:"type:uuid;primaryKey"`
	VariantID     uuid.UUID    `gorm:"type:uuid;not null;index:idx_ledger_variant_created,priority:1"`
	QuantityDelta int64        `gorm:"not null"`
	Reason        LedgerReason `gorm:"type:varchar(32);not null"`
	ReferenceID   *string      `gorm:"type:varchar(64)"`
	CreatedAt     time.Time    `gorm:"not null;index:idx_ledger_variant_created,priority:2"`
}

// TableName returns the table name for GORM
func (LedgerEntry) TableName() string {
	return "stock_ledger_entries"
}

// NewLedgerEntry creates a ledger entry. The delta's sign is the caller's
// business decision; only a zero delta and unknown reasons are rejected.
func NewLedgerEntry(variantID uuid.UUID, delta int64, reason LedgerReason, referenceID *string) (*LedgerEntry, error) {
	if variantID == uuid.Nil {
		return nil, shared.NewDomainError("INVALID_VARIANT", "Variant ID is required")
	}
	if delta == 0 {
		return nil, shared.NewDomainError("ZERO_DELTA", "Ledger entries must carry a non-zero quantity delta")
	}
	if !reason.IsValid() {
		return nil, shared.NewDomainError("INVALID_REASON", "Unknown ledger reason: "+string(reason))
	}
	return &LedgerEntry{
		ID:            uuid.New(),
		VariantID:     variantID,
		QuantityDelta: delta,
		Reason:        reason,
		ReferenceID:   referenceID,
		CreatedAt:     time.Now().UTC(),
	}, nil
}

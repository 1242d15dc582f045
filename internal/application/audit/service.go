package audit

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/shopcore/backend/internal/domain/inventory"
)

// Entry is one ledger entry annotated with the on-hand balance right
// after it was appended. The annotation is derived at read time; the
// ledger itself stores only deltas.
type Entry struct {
	ID            uuid.UUID              `json:"id"`
	VariantID     uuid.UUID              `json:"variant_id"`
	QuantityDelta int64                  `json:"quantity_delta"`
	Reason        inventory.LedgerReason `json:"reason"`
	ReferenceID   *string                `json:"reference_id,omitempty"`
	BalanceAfter  int64                  `json:"balance_after"`
	CreatedAt     time.Time              `json:"created_at"`
}

// Service is the audit trail read model over the stock ledger. It is
// purely derived and never writes.
type Service struct {
	ledger  *inventory.StockLedger
	entries inventory.LedgerRepository
}

// NewService creates an audit trail service
func NewService(ledger *inventory.StockLedger, entries inventory.LedgerRepository) *Service {
	return &Service{ledger: ledger, entries: entries}
}

// ListEntries projects a variant's ledger entries within a date range,
// newest first, each annotated with the balance after it was appended.
// The returned token continues the listing; empty means exhausted.
func (s *Service) ListEntries(ctx context.Context, variantID uuid.UUID, from, to time.Time, token string, limit int) ([]Entry, string, error) {
	entries, next, err := s.ledger.HistoryRange(ctx, variantID, from, to, token, limit)
	if err != nil {
		return nil, "", err
	}
	if len(entries) == 0 {
		return []Entry{}, "", nil
	}

	onHand, err := s.entries.SumByVariant(ctx, variantID)
	if err != nil {
		return nil, "", err
	}
	newer, err := s.entries.SumByVariantSince(ctx, variantID, entries[0].CreatedAt)
	if err != nil {
		return nil, "", err
	}

	balance := onHand - newer
	out := make([]Entry, 0, len(entries))
	for _, e := range entries {
		out = append(out, Entry{
			ID:            e.ID,
			VariantID:     e.VariantID,
			QuantityDelta: e.QuantityDelta,
			Reason:        e.Reason,
			ReferenceID:   e.ReferenceID,
			BalanceAfter:  balance,
			CreatedAt:     e.CreatedAt,
		})
		balance -= e.QuantityDelta
	}
	return out, next, nil
}

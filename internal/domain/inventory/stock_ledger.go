package inventory

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// StockLedger is the authoritative append-only record of physical stock
// movement. On-hand quantity is never stored; every read recomputes the
// sum of deltas so no caller can observe a stale cached figure.
type StockLedger struct {
	entries LedgerRepository
}

// NewStockLedger creates a stock ledger over an entry store
func NewStockLedger(entries LedgerRepository) *StockLedger {
	return &StockLedger{entries: entries}
}

// Append records a signed quantity delta for a variant and returns the
// entry ID. The delta's business meaning is the caller's responsibility.
func (l *StockLedger) Append(ctx context.Context, variantID uuid.UUID, delta int64, reason LedgerReason, referenceID *string) (uuid.UUID, error) {
	entry, err := NewLedgerEntry(variantID, delta, reason, referenceID)
	if err != nil {
		return uuid.Nil, err
	}
	if err := l.entries.Create(ctx, entry); err != nil {
		return uuid.Nil, err
	}
	return entry.ID, nil
}

// OnHand returns the current physical quantity for a variant
func (l *StockLedger) OnHand(ctx context.Context, variantID uuid.UUID) (int64, error) {
	return l.entries.SumByVariant(ctx, variantID)
}

// History lists a variant's ledger entries newest first. The returned
// token resumes the listing after the last entry of this page; an empty
// token means the history is exhausted.
func (l *StockLedger) History(ctx context.Context, variantID uuid.UUID, token string, limit int) ([]*LedgerEntry, string, error) {
	cursor, err := DecodeCursor(token)
	if err != nil {
		return nil, "", err
	}
	if limit <= 0 {
		limit = 50
	}
	entries, next, err := l.entries.FindByVariant(ctx, variantID, cursor, limit)
	if err != nil {
		return nil, "", err
	}
	if len(entries) < limit {
		return entries, "", nil
	}
	return entries, next.Encode(), nil
}

// HistoryRange lists a variant's ledger entries within a date range,
// newest first, with the same continuation semantics as History.
func (l *StockLedger) HistoryRange(ctx context.Context, variantID uuid.UUID, from, to time.Time, token string, limit int) ([]*LedgerEntry, string, error) {
	cursor, err := DecodeCursor(token)
	if err != nil {
		return nil, "", err
	}
	if limit <= 0 {
		limit = 50
	}
	entries, next, err := l.entries.FindByVariantAndDateRange(ctx, variantID, from, to, cursor, limit)
	if err != nil {
		return nil, "", err
	}
	if len(entries) < limit {
		return entries, "", nil
	}
	return entries, next.Encode(), nil
}

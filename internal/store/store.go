package store

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
)

// ProcessedPayment is one confirmed upstream submission. Records are
// append-only; a duplicate correlation id is dropped, never updated.
type ProcessedPayment struct {
	CID         string
	Amount      decimal.Decimal
	ProcessedBy string
	ProcessedAt time.Time
}

type SummaryRow struct {
	TotalRequests int64
	TotalAmount   decimal.Decimal
}

// Summary always carries both rows; a processor with no payments in
// range reports a zeroed row rather than being absent.
type Summary struct {
	Default  SummaryRow
	Fallback SummaryRow
}

// Store is the ledger contract: append a confirmed payment, aggregate
// over a closed time range, and wipe for test runs. Record must treat a
// duplicate correlation id as an idempotent no-op so that at-least-once
// retries never double-count locally.
type Store interface {
	Record(ctx context.Context, p ProcessedPayment) error
	Summarize(ctx context.Context, from, to *time.Time) (Summary, error)
	Purge(ctx context.Context) error
	Close() error
}

func inRange(t time.Time, from, to *time.Time) bool {
	if from != nil && t.Before(*from) {
		return false
	}
	if to != nil && t.After(*to) {
		return false
	}
	return true
}

func roundRows(s Summary) Summary {
	s.Default.TotalAmount = s.Default.TotalAmount.Round(2)
	s.Fallback.TotalAmount = s.Fallback.TotalAmount.Round(2)
	return s
}

package store

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"
)

func payment(cid string, amount float64, processedBy string, at time.Time) ProcessedPayment {
	return ProcessedPayment{
		CID:         cid,
		Amount:      decimal.NewFromFloat(amount),
		ProcessedBy: processedBy,
		ProcessedAt: at,
	}
}

func TestMemoryRecordDeduplicates(t *testing.T) {
	ctx := context.Background()
	m := NewMemory(16)
	at := time.Date(2026, 9, 1, 12, 0, 0, 0, time.UTC)

	if err := m.Record(ctx, payment("abc", 100, "default", at)); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := m.Record(ctx, payment("abc", 100, "default", at.Add(time.Second))); err != nil {
		t.Fatalf("duplicate insert should be a no-op, got %v", err)
	}

	s, err := m.Summarize(ctx, nil, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if s.Default.TotalRequests != 1 {
		t.Errorf("expected 1 default payment, got %d", s.Default.TotalRequests)
	}
	if !s.Default.TotalAmount.Equal(decimal.NewFromInt(100)) {
		t.Errorf("expected total amount 100, got %s", s.Default.TotalAmount)
	}
}

func TestMemorySummarizeRange(t *testing.T) {
	ctx := context.Background()
	m := NewMemory(16)
	base := time.Date(2026, 9, 1, 0, 0, 0, 0, time.UTC)

	at := func(sec int) time.Time { return base.Add(time.Duration(sec) * time.Second) }

	m.Record(ctx, payment("a", 100, "default", at(10)))
	m.Record(ctx, payment("b", 50, "fallback", at(20)))
	m.Record(ctx, payment("c", 30, "default", at(5)))

	from, to := at(8), at(25)
	s, err := m.Summarize(ctx, &from, &to)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if s.Default.TotalRequests != 1 || !s.Default.TotalAmount.Equal(decimal.NewFromInt(100)) {
		t.Errorf("default row = {%d, %s}, want {1, 100}", s.Default.TotalRequests, s.Default.TotalAmount)
	}
	if s.Fallback.TotalRequests != 1 || !s.Fallback.TotalAmount.Equal(decimal.NewFromInt(50)) {
		t.Errorf("fallback row = {%d, %s}, want {1, 50}", s.Fallback.TotalRequests, s.Fallback.TotalAmount)
	}
}

func TestMemorySummarizeRangeIsInclusive(t *testing.T) {
	ctx := context.Background()
	m := NewMemory(16)
	at := time.Date(2026, 9, 1, 12, 0, 0, 0, time.UTC)

	m.Record(ctx, payment("edge-from", 10, "default", at))
	m.Record(ctx, payment("edge-to", 20, "default", at.Add(time.Minute)))

	from, to := at, at.Add(time.Minute)
	s, err := m.Summarize(ctx, &from, &to)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if s.Default.TotalRequests != 2 {
		t.Errorf("expected both boundary payments in range, got %d", s.Default.TotalRequests)
	}
}

func TestMemorySummarizeUnboundedSides(t *testing.T) {
	ctx := context.Background()
	m := NewMemory(16)
	at := time.Date(2026, 9, 1, 12, 0, 0, 0, time.UTC)

	m.Record(ctx, payment("early", 10, "fallback", at.Add(-time.Hour)))
	m.Record(ctx, payment("late", 20, "fallback", at.Add(time.Hour)))

	s, err := m.Summarize(ctx, &at, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if s.Fallback.TotalRequests != 1 {
		t.Errorf("expected 1 payment after the cutoff, got %d", s.Fallback.TotalRequests)
	}

	s, err = m.Summarize(ctx, nil, &at)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if s.Fallback.TotalRequests != 1 {
		t.Errorf("expected 1 payment before the cutoff, got %d", s.Fallback.TotalRequests)
	}
}

func TestMemorySummarizeRoundsToTwoDecimals(t *testing.T) {
	ctx := context.Background()
	m := NewMemory(16)
	at := time.Date(2026, 9, 1, 12, 0, 0, 0, time.UTC)

	m.Record(ctx, payment("a", 0.105, "default", at))
	m.Record(ctx, payment("b", 0.105, "default", at))

	s, err := m.Summarize(ctx, nil, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	// 0.21 exactly; and half-up rounding, not banker's, on odd sums.
	if got := s.Default.TotalAmount.String(); got != "0.21" {
		t.Errorf("expected 0.21, got %s", got)
	}

	m.Record(ctx, payment("c", 0.005, "default", at))
	s, _ = m.Summarize(ctx, nil, nil)
	if got := s.Default.TotalAmount.String(); got != "0.22" {
		t.Errorf("expected half-up rounding to 0.22, got %s", got)
	}
}

func TestMemoryMissingGroupsReportZeros(t *testing.T) {
	ctx := context.Background()
	m := NewMemory(16)

	s, err := m.Summarize(ctx, nil, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if s.Default.TotalRequests != 0 || !s.Default.TotalAmount.IsZero() {
		t.Errorf("expected zeroed default row, got %+v", s.Default)
	}
	if s.Fallback.TotalRequests != 0 || !s.Fallback.TotalAmount.IsZero() {
		t.Errorf("expected zeroed fallback row, got %+v", s.Fallback)
	}
}

func TestMemoryPurge(t *testing.T) {
	ctx := context.Background()
	m := NewMemory(16)
	at := time.Date(2026, 9, 1, 12, 0, 0, 0, time.UTC)

	m.Record(ctx, payment("a", 100, "default", at))
	if err := m.Purge(ctx); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	s, _ := m.Summarize(ctx, nil, nil)
	if s.Default.TotalRequests != 0 {
		t.Errorf("expected empty ledger after purge, got %d payments", s.Default.TotalRequests)
	}

	// The id set is cleared too, so the same cid can be recorded again.
	if err := m.Record(ctx, payment("a", 100, "default", at)); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	s, _ = m.Summarize(ctx, nil, nil)
	if s.Default.TotalRequests != 1 {
		t.Errorf("expected 1 payment after re-record, got %d", s.Default.TotalRequests)
	}
}

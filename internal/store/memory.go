package store

import (
	"context"
	"time"
)

// Memory keeps the ledger in process memory. All access is serialized
// by the core actor, so there is no internal locking.
type Memory struct {
	payments []ProcessedPayment
	seen     map[string]struct{}
}

func NewMemory(capacity int) *Memory {
	return &Memory{
		payments: make([]ProcessedPayment, 0, capacity),
		seen:     make(map[string]struct{}, capacity),
	}
}

func (m *Memory) Record(_ context.Context, p ProcessedPayment) error {
	if _, ok := m.seen[p.CID]; ok {
		return nil
	}

	m.seen[p.CID] = struct{}{}
	m.payments = append(m.payments, p)
	return nil
}

func (m *Memory) Summarize(_ context.Context, from, to *time.Time) (Summary, error) {
	var s Summary

	for _, p := range m.payments {
		if !inRange(p.ProcessedAt, from, to) {
			continue
		}

		switch p.ProcessedBy {
		case "default":
			s.Default.TotalRequests++
			s.Default.TotalAmount = s.Default.TotalAmount.Add(p.Amount)
		case "fallback":
			s.Fallback.TotalRequests++
			s.Fallback.TotalAmount = s.Fallback.TotalAmount.Add(p.Amount)
		}
	}

	return roundRows(s), nil
}

func (m *Memory) Purge(_ context.Context) error {
	m.payments = m.payments[:0]
	clear(m.seen)
	return nil
}

func (m *Memory) Close() error {
	return nil
}

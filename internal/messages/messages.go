package messages

import "time"

// Payment is a buffered payment request as received on ingestion.
// RequestedAt is stamped only at submission time, right before the
// upstream call.
type Payment struct {
	Amount      float64 `json:"amount"`
	CID         string  `json:"correlationId"`
	RequestedAt string  `json:"requestedAt,omitempty"`
}

// ProcessorHealth is the normalized health record for one upstream
// processor. It is replaced wholesale on every poll, never patched.
type ProcessorHealth struct {
	Failing         bool  `json:"failing"`
	MinResponseTime int64 `json:"minResponseTime"`
}

// CompositeHealth pairs the two per-processor snapshots. Its zero value
// reads as "both healthy", which keeps routing optimistic until the
// first poll lands.
type CompositeHealth struct {
	Default  ProcessorHealth `json:"default"`
	Fallback ProcessorHealth `json:"fallback"`
}

// SummaryRow is the wire shape of one processor's aggregate, shared by
// the public summary endpoint and the follower's internal one.
type SummaryRow struct {
	TotalRequests int64   `json:"totalRequests"`
	TotalAmount   float64 `json:"totalAmount"`
}

type PaymentsSummary struct {
	Default  SummaryRow `json:"default"`
	Fallback SummaryRow `json:"fallback"`
}

// Core actor messages.

type EnqueuePayment struct {
	Payment Payment
}

type UpdateHealth struct {
	Health CompositeHealth
}

type BatchTick struct{}

type PaymentProcessed struct {
	Payment     Payment
	ProcessedBy string
	ProcessedAt time.Time
}

type RequeuePayment struct {
	Payment Payment
}

type SummarizePayments struct {
	From *time.Time
	To   *time.Time
}

type PurgePayments struct{}

// BufferLen asks the core actor for the current buffer depth.
type BufferLen struct{}

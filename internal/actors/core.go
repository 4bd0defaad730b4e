package actors

import (
	"context"
	"log/slog"
	"time"

	"github.com/anthdm/hollywood/actor"
	"github.com/shopspring/decimal"

	"payment-proxy/internal/messages"
	"payment-proxy/internal/routing"
	"payment-proxy/internal/store"
)

// Core owns the payment buffer, the latest composite health snapshot
// and the ledger handle. Every mutation of that state flows through its
// mailbox, one message to completion before the next, so the state
// needs no locking. Upstream fan-out runs in goroutines that report
// back via messages instead of touching the buffer directly.
type Core struct {
	store     store.Store
	submitter Submitter
	health    messages.CompositeHealth
	buffer    []messages.Payment
	batchSize int
	tickEvery time.Duration
	repeater  actor.SendRepeater
	engine    *actor.Engine
}

func (a *Core) Receive(c *actor.Context) {
	switch msg := c.Message().(type) {
	case actor.Started:
		a.engine = c.Engine()
		a.repeater = c.SendRepeat(c.PID(), messages.BatchTick{}, a.tickEvery)
	case actor.Stopped:
		a.repeater.Stop()
	case messages.EnqueuePayment:
		a.buffer = append(a.buffer, msg.Payment)
	case messages.UpdateHealth:
		a.health = msg.Health
	case messages.BatchTick:
		a.runBatch(c.PID())
	case messages.PaymentProcessed:
		a.record(msg)
	case messages.RequeuePayment:
		a.buffer = append(a.buffer, msg.Payment)
	case messages.SummarizePayments:
		s, err := a.store.Summarize(context.Background(), msg.From, msg.To)
		if err != nil {
			slog.Error("summarize failed", slog.String("error", err.Error()))
		}
		c.Respond(s)
	case messages.PurgePayments:
		if err := a.store.Purge(context.Background()); err != nil {
			slog.Error("purge failed", slog.String("error", err.Error()))
		}
	case messages.BufferLen:
		c.Respond(len(a.buffer))
	}
}

// runBatch drains up to batchSize requests and fans them out to the
// chosen processor. When no processor is viable the buffer is left
// untouched; requests only accumulate until one recovers.
func (a *Core) runBatch(self *actor.PID) {
	if len(a.buffer) == 0 {
		return
	}

	processor := routing.Choose(a.health)
	if processor == routing.None {
		return
	}

	n := min(a.batchSize, len(a.buffer))
	batch := make([]messages.Payment, n)
	copy(batch, a.buffer[:n])
	a.buffer = a.buffer[n:]

	for _, p := range batch {
		go a.submit(self, p, processor)
	}
}

func (a *Core) submit(self *actor.PID, p messages.Payment, processor routing.Processor) {
	now := time.Now().UTC()
	p.RequestedAt = now.Format(time.RFC3339Nano)

	if !a.submitter.Submit(p, processor) {
		a.engine.Send(self, messages.RequeuePayment{Payment: p})
		return
	}

	a.engine.Send(self, messages.PaymentProcessed{
		Payment:     p,
		ProcessedBy: string(processor),
		ProcessedAt: now,
	})
}

func (a *Core) record(msg messages.PaymentProcessed) {
	err := a.store.Record(context.Background(), store.ProcessedPayment{
		CID:         msg.Payment.CID,
		Amount:      decimal.NewFromFloat(msg.Payment.Amount),
		ProcessedBy: msg.ProcessedBy,
		ProcessedAt: msg.ProcessedAt,
	})
	if err != nil {
		slog.Error("recording payment failed",
			slog.String("cid", msg.Payment.CID),
			slog.String("error", err.Error()))
	}
}

func NewCore(st store.Store, submitter Submitter, batchSize int, tickEvery time.Duration) actor.Producer {
	return func() actor.Receiver {
		return &Core{
			store:     st,
			submitter: submitter,
			buffer:    make([]messages.Payment, 0, 1024),
			batchSize: batchSize,
			tickEvery: tickEvery,
		}
	}
}

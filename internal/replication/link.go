package replication

import (
	"fmt"
	"log/slog"
	"net/http"
	"time"

	goJson "github.com/goccy/go-json"
	"github.com/shopspring/decimal"
	"github.com/valyala/fasthttp"

	"payment-proxy/internal/messages"
	"payment-proxy/internal/store"
)

const (
	statusPushPath      = "/processor-status"
	internalSummaryPath = "/internal/payments-summary"
)

// Link is the leader's channel to its follower: best-effort health
// pushes and bounded-timeout summary pulls. Either side failing is a
// degradation, never an error surfaced to clients.
type Link struct {
	client      *fasthttp.Client
	peerURL     string
	pushTimeout time.Duration
	pullTimeout time.Duration
}

func New(client *fasthttp.Client, peerURL string, pushTimeout, pullTimeout time.Duration) *Link {
	return &Link{
		client:      client,
		peerURL:     peerURL,
		pushTimeout: pushTimeout,
		pullTimeout: pullTimeout,
	}
}

// PushHealth forwards a fresh composite snapshot to the follower. A
// failed push is logged and dropped; the follower keeps serving its
// last-known value until the next push lands.
func (l *Link) PushHealth(h messages.CompositeHealth) {
	body, _ := goJson.Marshal(h)

	req := fasthttp.AcquireRequest()
	resp := fasthttp.AcquireResponse()
	defer fasthttp.ReleaseRequest(req)
	defer fasthttp.ReleaseResponse(resp)

	req.SetRequestURI(l.peerURL + statusPushPath)
	req.Header.SetMethod(fasthttp.MethodPost)
	req.Header.SetContentType("application/json")
	req.SetBody(body)

	err := l.client.DoTimeout(req, resp, l.pushTimeout)
	if err != nil {
		slog.Warn("health push to follower failed", slog.String("error", err.Error()))
		return
	}

	if resp.StatusCode() != http.StatusAccepted {
		slog.Warn("follower rejected health push", slog.Int("status", resp.StatusCode()))
	}
}

// PullSummary fetches the follower's local summary for the range. The
// caller degrades to leader-only data on any error.
func (l *Link) PullSummary(from, to *time.Time) (store.Summary, error) {
	req := fasthttp.AcquireRequest()
	resp := fasthttp.AcquireResponse()
	defer fasthttp.ReleaseRequest(req)
	defer fasthttp.ReleaseResponse(resp)

	req.SetRequestURI(l.peerURL + internalSummaryPath)
	req.Header.SetMethod(fasthttp.MethodGet)
	if from != nil {
		req.URI().QueryArgs().Set("from", from.UTC().Format(time.RFC3339Nano))
	}
	if to != nil {
		req.URI().QueryArgs().Set("to", to.UTC().Format(time.RFC3339Nano))
	}

	err := l.client.DoTimeout(req, resp, l.pullTimeout)
	if err != nil {
		return store.Summary{}, fmt.Errorf("pulling follower summary: %w", err)
	}

	if resp.StatusCode() != http.StatusOK {
		return store.Summary{}, fmt.Errorf("follower summary returned status %d", resp.StatusCode())
	}

	var wire messages.PaymentsSummary
	if err := goJson.Unmarshal(resp.Body(), &wire); err != nil {
		return store.Summary{}, fmt.Errorf("decoding follower summary: %w", err)
	}

	return store.Summary{
		Default: store.SummaryRow{
			TotalRequests: wire.Default.TotalRequests,
			TotalAmount:   decimal.NewFromFloat(wire.Default.TotalAmount),
		},
		Fallback: store.SummaryRow{
			TotalRequests: wire.Fallback.TotalRequests,
			TotalAmount:   decimal.NewFromFloat(wire.Fallback.TotalAmount),
		},
	}, nil
}

// Merge combines the leader's and the follower's summaries row by row,
// re-rounding the summed amounts to 2 decimals.
func Merge(local, remote store.Summary) store.Summary {
	return store.Summary{
		Default:  mergeRow(local.Default, remote.Default),
		Fallback: mergeRow(local.Fallback, remote.Fallback),
	}
}

func mergeRow(a, b store.SummaryRow) store.SummaryRow {
	return store.SummaryRow{
		TotalRequests: a.TotalRequests + b.TotalRequests,
		TotalAmount:   a.TotalAmount.Add(b.TotalAmount).Round(2),
	}
}

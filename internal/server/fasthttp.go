package server

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/anthdm/hollywood/actor"
	"github.com/buger/jsonparser"
	goJson "github.com/goccy/go-json"
	"github.com/valyala/fasthttp"

	"payment-proxy/internal/config"
	"payment-proxy/internal/messages"
	"payment-proxy/internal/replication"
	"payment-proxy/internal/store"
)

var (
	processPaymentPath  = "/payments"
	purgePaymentsPath   = "/purge-payments"
	summaryPath         = "/payments-summary"
	statusPushPath      = "/processor-status"
	internalSummaryPath = "/internal/payments-summary"
	healthcheckPath     = "/healthcheck"
)

type Handler struct {
	engine         *actor.Engine
	corePID        *actor.PID
	role           config.Role
	link           *replication.Link
	requestTimeout time.Duration
}

func (h *Handler) handler(ctx *fasthttp.RequestCtx) {
	switch string(ctx.Method()) {
	case fasthttp.MethodPost:
		h.handlePost(ctx)
	case fasthttp.MethodGet:
		h.handleGet(ctx)
	default:
		ctx.Error("Method Not Allowed", fasthttp.StatusMethodNotAllowed)
	}
}

func (h *Handler) handlePost(ctx *fasthttp.RequestCtx) {
	switch string(ctx.Path()) {
	case processPaymentPath:
		h.handleProcessPayment(ctx)
	case statusPushPath:
		h.handleStatusPush(ctx)
	case purgePaymentsPath:
		h.handlePurgePayments(ctx)
	default:
		ctx.Error("Not Found", fasthttp.StatusNotFound)
	}
}

func (h *Handler) handleGet(ctx *fasthttp.RequestCtx) {
	switch string(ctx.Path()) {
	case summaryPath:
		h.handleGetSummary(ctx)
	case internalSummaryPath:
		h.handleInternalSummary(ctx)
	case healthcheckPath:
		ctx.SetStatusCode(fasthttp.StatusOK)
		ctx.SetBodyString("OK")
	default:
		ctx.Error("Not Found", fasthttp.StatusNotFound)
	}
}

// handleProcessPayment queues the request and answers immediately; the
// caller never waits on an upstream submission.
func (h *Handler) handleProcessPayment(ctx *fasthttp.RequestCtx) {
	body := ctx.PostBody()

	cid, err := jsonparser.GetString(body, "correlationId")
	amount, amountErr := jsonparser.GetFloat(body, "amount")
	if err != nil || amountErr != nil || cid == "" || amount <= 0 {
		ctx.SetStatusCode(fasthttp.StatusBadRequest)
		return
	}

	h.engine.Send(h.corePID, messages.EnqueuePayment{
		Payment: messages.Payment{
			CID:    cid,
			Amount: amount,
		},
	})

	ctx.SetStatusCode(fasthttp.StatusAccepted)
}

func (h *Handler) handleGetSummary(ctx *fasthttp.RequestCtx) {
	// The follower's numbers are reachable only through the leader's
	// merge; it does not serve the public endpoint itself.
	if h.role == config.RoleFollower {
		ctx.SetStatusCode(fasthttp.StatusMisdirectedRequest)
		return
	}

	from, to := parseRange(ctx)

	if h.role == config.RoleLeader {
		h.handleMergedSummary(ctx, from, to)
		return
	}

	local, ok := h.localSummary(ctx, from, to)
	if !ok {
		return
	}

	writeSummary(ctx, local)
}

func (h *Handler) handleMergedSummary(ctx *fasthttp.RequestCtx, from, to *time.Time) {
	type pullResult struct {
		summary store.Summary
		err     error
	}

	pullCh := make(chan pullResult, 1)
	go func() {
		s, err := h.link.PullSummary(from, to)
		pullCh <- pullResult{summary: s, err: err}
	}()

	local, ok := h.localSummary(ctx, from, to)
	if !ok {
		return
	}

	pulled := <-pullCh
	if pulled.err != nil {
		slog.Warn("follower summary unavailable, serving leader-only data",
			slog.String("error", pulled.err.Error()))
		writeSummary(ctx, local)
		return
	}

	writeSummary(ctx, replication.Merge(local, pulled.summary))
}

func (h *Handler) handleInternalSummary(ctx *fasthttp.RequestCtx) {
	if h.role != config.RoleFollower {
		ctx.SetStatusCode(fasthttp.StatusMisdirectedRequest)
		return
	}

	from, to := parseRange(ctx)

	local, ok := h.localSummary(ctx, from, to)
	if !ok {
		return
	}

	writeSummary(ctx, local)
}

func (h *Handler) handleStatusPush(ctx *fasthttp.RequestCtx) {
	if h.role != config.RoleFollower {
		ctx.SetStatusCode(fasthttp.StatusMisdirectedRequest)
		return
	}

	var health messages.CompositeHealth
	if err := goJson.Unmarshal(ctx.PostBody(), &health); err != nil {
		ctx.SetStatusCode(fasthttp.StatusBadRequest)
		return
	}

	h.engine.Send(h.corePID, messages.UpdateHealth{Health: health})

	ctx.SetStatusCode(fasthttp.StatusAccepted)
}

func (h *Handler) handlePurgePayments(ctx *fasthttp.RequestCtx) {
	h.engine.Send(h.corePID, messages.PurgePayments{})

	ctx.SetStatusCode(fasthttp.StatusOK)
}

func (h *Handler) localSummary(ctx *fasthttp.RequestCtx, from, to *time.Time) (store.Summary, bool) {
	resp := h.engine.Request(h.corePID, messages.SummarizePayments{From: from, To: to}, h.requestTimeout)

	res, err := resp.Result()
	if err != nil {
		ctx.SetStatusCode(fasthttp.StatusInternalServerError)
		return store.Summary{}, false
	}

	summary, ok := res.(store.Summary)
	if !ok {
		ctx.SetStatusCode(fasthttp.StatusInternalServerError)
		return store.Summary{}, false
	}

	return summary, true
}

func writeSummary(ctx *fasthttp.RequestCtx, s store.Summary) {
	body, _ := goJson.Marshal(messages.PaymentsSummary{
		Default: messages.SummaryRow{
			TotalRequests: s.Default.TotalRequests,
			TotalAmount:   s.Default.TotalAmount.Round(2).InexactFloat64(),
		},
		Fallback: messages.SummaryRow{
			TotalRequests: s.Fallback.TotalRequests,
			TotalAmount:   s.Fallback.TotalAmount.Round(2).InexactFloat64(),
		},
	})

	ctx.SetStatusCode(fasthttp.StatusOK)
	ctx.SetContentType("application/json")
	ctx.SetBody(body)
}

func parseRange(ctx *fasthttp.RequestCtx) (*time.Time, *time.Time) {
	var from, to *time.Time

	if pFrom, err := time.Parse(time.RFC3339Nano, string(ctx.QueryArgs().Peek("from"))); err == nil {
		from = &pFrom
	}
	if pTo, err := time.Parse(time.RFC3339Nano, string(ctx.QueryArgs().Peek("to"))); err == nil {
		to = &pTo
	}

	return from, to
}

type Server struct {
	server *fasthttp.Server
}

func (s *Server) Start(port int) {
	go func() {
		if err := s.server.ListenAndServe(fmt.Sprintf(":%d", port)); err != nil {
			slog.Error("Error starting server", slog.String("error", err.Error()))
		}
	}()
}

func (s *Server) Shutdown() error {
	return s.server.Shutdown()
}

func New(
	engine *actor.Engine,
	corePID *actor.PID,
	role config.Role,
	link *replication.Link,
	requestTimeout time.Duration,
) *Server {
	h := &Handler{
		engine:         engine,
		corePID:        corePID,
		role:           role,
		link:           link,
		requestTimeout: requestTimeout,
	}

	s := &fasthttp.Server{
		Handler:               h.handler,
		NoDefaultServerHeader: true,
		NoDefaultDate:         true,
	}

	return &Server{server: s}
}

package health

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/anthdm/hollywood/actor"
	"github.com/buger/jsonparser"
	"github.com/valyala/fasthttp"

	"payment-proxy/internal/messages"
)

// Pusher forwards a fresh composite snapshot to the follower. Only the
// leader wires one in.
type Pusher interface {
	PushHealth(h messages.CompositeHealth)
}

// Monitor polls both processors on a fixed interval and publishes the
// composite snapshot to the core actor. Each poll replaces the previous
// value wholesale; there is no smoothing between ticks.
type Monitor struct {
	client      *fasthttp.Client
	defaultURL  string
	fallbackURL string
	interval    time.Duration
	timeout     time.Duration
	engine      *actor.Engine
	corePID     *actor.PID
	pusher      Pusher
	done        chan struct{}
}

func NewMonitor(
	client *fasthttp.Client,
	defaultURL, fallbackURL string,
	interval, timeout time.Duration,
	engine *actor.Engine,
	corePID *actor.PID,
	pusher Pusher,
) *Monitor {
	return &Monitor{
		client:      client,
		defaultURL:  defaultURL + "/payments/service-health",
		fallbackURL: fallbackURL + "/payments/service-health",
		interval:    interval,
		timeout:     timeout,
		engine:      engine,
		corePID:     corePID,
		pusher:      pusher,
		done:        make(chan struct{}),
	}
}

func (m *Monitor) Start() {
	go m.loop()
}

func (m *Monitor) Stop() {
	close(m.done)
}

func (m *Monitor) loop() {
	m.tick()

	ticker := time.NewTicker(m.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			m.tick()
		case <-m.done:
			return
		}
	}
}

func (m *Monitor) tick() {
	type result struct {
		processor string
		health    messages.ProcessorHealth
	}

	// One check per processor, concurrently; a failure on one side never
	// affects the other's evaluation.
	resCh := make(chan result, 2)
	go func() { resCh <- result{"default", m.probe(m.defaultURL)} }()
	go func() { resCh <- result{"fallback", m.probe(m.fallbackURL)} }()

	var h messages.CompositeHealth
	for i := 0; i < 2; i++ {
		r := <-resCh
		if r.processor == "default" {
			h.Default = r.health
		} else {
			h.Fallback = r.health
		}
	}

	slog.Info("health snapshot refreshed",
		slog.Bool("defaultFailing", h.Default.Failing),
		slog.Bool("fallbackFailing", h.Fallback.Failing))

	m.engine.Send(m.corePID, messages.UpdateHealth{Health: h})

	if m.pusher != nil {
		m.pusher.PushHealth(h)
	}
}

// probe issues one bounded health-check call. Any transport error,
// timeout or non-200 response degrades the processor to failing.
func (m *Monitor) probe(url string) messages.ProcessorHealth {
	req := fasthttp.AcquireRequest()
	resp := fasthttp.AcquireResponse()
	defer fasthttp.ReleaseRequest(req)
	defer fasthttp.ReleaseResponse(resp)

	req.SetRequestURI(url)
	req.Header.SetMethod(fasthttp.MethodGet)

	err := m.client.DoTimeout(req, resp, m.timeout)
	if err != nil {
		slog.Warn("health check failed", slog.String("url", url), slog.String("error", err.Error()))
		return messages.ProcessorHealth{Failing: true}
	}

	if resp.StatusCode() != http.StatusOK {
		slog.Warn("health check returned non-OK status",
			slog.String("url", url), slog.Int("status", resp.StatusCode()))
		return messages.ProcessorHealth{Failing: true}
	}

	body := resp.Body()
	failing, _ := jsonparser.GetBoolean(body, "failing")
	minResponseTime, _ := jsonparser.GetInt(body, "minResponseTime")

	return messages.ProcessorHealth{
		Failing:         failing,
		MinResponseTime: minResponseTime,
	}
}

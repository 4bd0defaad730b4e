package health

import (
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/anthdm/hollywood/actor"
	"github.com/valyala/fasthttp"

	"payment-proxy/internal/messages"
)

type fakePusher struct {
	mu     sync.Mutex
	pushed []messages.CompositeHealth
}

func (f *fakePusher) PushHealth(h messages.CompositeHealth) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.pushed = append(f.pushed, h)
}

func (f *fakePusher) last() (messages.CompositeHealth, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.pushed) == 0 {
		return messages.CompositeHealth{}, false
	}
	return f.pushed[len(f.pushed)-1], true
}

func healthHandler(failing bool, minResponseTime int) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if !strings.HasSuffix(r.URL.Path, "/payments/service-health") {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		if failing {
			w.Write([]byte(`{"failing":true,"minResponseTime":0}`))
			return
		}
		w.Write([]byte(`{"failing":false,"minResponseTime":` + strconv.Itoa(minResponseTime) + `}`))
	}
}

func collectHealth(t *testing.T) (*actor.Engine, *actor.PID, func() (messages.CompositeHealth, bool)) {
	t.Helper()

	engine, err := actor.NewEngine(actor.NewEngineConfig())
	if err != nil {
		t.Fatalf("creating engine: %v", err)
	}

	var mu sync.Mutex
	var got []messages.CompositeHealth

	pid := engine.SpawnFunc(func(c *actor.Context) {
		if msg, ok := c.Message().(messages.UpdateHealth); ok {
			mu.Lock()
			got = append(got, msg.Health)
			mu.Unlock()
		}
	}, "health-collector")

	last := func() (messages.CompositeHealth, bool) {
		mu.Lock()
		defer mu.Unlock()
		if len(got) == 0 {
			return messages.CompositeHealth{}, false
		}
		return got[len(got)-1], true
	}

	return engine, pid, last
}

func waitFor(t *testing.T, cond func() bool, msg string) {
	t.Helper()

	deadline := time.Now().Add(3 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatal(msg)
}

func TestTickPublishesBothHealthRecords(t *testing.T) {
	defaultSrv := httptest.NewServer(healthHandler(false, 120))
	defer defaultSrv.Close()
	fallbackSrv := httptest.NewServer(healthHandler(true, 0))
	defer fallbackSrv.Close()

	engine, pid, last := collectHealth(t)
	pusher := &fakePusher{}

	m := NewMonitor(&fasthttp.Client{}, defaultSrv.URL, fallbackSrv.URL,
		time.Hour, time.Second, engine, pid, pusher)
	m.tick()

	waitFor(t, func() bool { _, ok := last(); return ok }, "expected a published snapshot")

	h, _ := last()
	if h.Default.Failing || h.Default.MinResponseTime != 120 {
		t.Errorf("unexpected default health: %+v", h.Default)
	}
	if !h.Fallback.Failing {
		t.Errorf("expected fallback marked failing: %+v", h.Fallback)
	}

	pushed, ok := pusher.last()
	if !ok {
		t.Fatal("expected the snapshot forwarded to the pusher")
	}
	if pushed != h {
		t.Errorf("pushed snapshot %+v differs from published %+v", pushed, h)
	}
}

func TestProbeMarksFailingOnNonOKStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	m := NewMonitor(&fasthttp.Client{}, srv.URL, srv.URL, time.Hour, time.Second, nil, nil, nil)

	h := m.probe(m.defaultURL)
	if !h.Failing {
		t.Error("expected failing=true for a 500 response")
	}
	if h.MinResponseTime != 0 {
		t.Errorf("expected zeroed response time, got %d", h.MinResponseTime)
	}
}

func TestProbeMarksFailingOnTimeout(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(500 * time.Millisecond)
		w.Write([]byte(`{"failing":false,"minResponseTime":1}`))
	}))
	defer srv.Close()

	m := NewMonitor(&fasthttp.Client{}, srv.URL, srv.URL, time.Hour, 50*time.Millisecond, nil, nil, nil)

	h := m.probe(m.defaultURL)
	if !h.Failing {
		t.Error("expected failing=true when the check exceeds its timeout")
	}
}

func TestProbeMarksFailingOnUnreachableProcessor(t *testing.T) {
	m := NewMonitor(&fasthttp.Client{}, "http://127.0.0.1:1", "http://127.0.0.1:1",
		time.Hour, 200*time.Millisecond, nil, nil, nil)

	h := m.probe(m.defaultURL)
	if !h.Failing {
		t.Error("expected failing=true for an unreachable processor")
	}
}

func TestTickEvaluatesProcessorsIndependently(t *testing.T) {
	defaultSrv := httptest.NewServer(healthHandler(false, 30))
	defer defaultSrv.Close()

	engine, pid, last := collectHealth(t)

	// Fallback URL points nowhere; its failure must not taint default.
	m := NewMonitor(&fasthttp.Client{}, defaultSrv.URL, "http://127.0.0.1:1",
		time.Hour, 200*time.Millisecond, engine, pid, nil)
	m.tick()

	waitFor(t, func() bool { _, ok := last(); return ok }, "expected a published snapshot")

	h, _ := last()
	if h.Default.Failing {
		t.Errorf("default should stay healthy, got %+v", h.Default)
	}
	if !h.Fallback.Failing {
		t.Errorf("fallback should be failing, got %+v", h.Fallback)
	}
}

package actors

import (
	"net/http"
	"time"

	goJson "github.com/goccy/go-json"
	"github.com/valyala/fasthttp"

	"payment-proxy/internal/messages"
	"payment-proxy/internal/routing"
)

// Submitter sends one payment to an upstream processor and reports
// whether it was accepted.
type Submitter interface {
	Submit(p messages.Payment, processor routing.Processor) bool
}

type HTTPSubmitter struct {
	client      *fasthttp.Client
	defaultURL  string
	fallbackURL string
	timeout     time.Duration
}

func NewHTTPSubmitter(client *fasthttp.Client, defaultURL, fallbackURL string, timeout time.Duration) *HTTPSubmitter {
	return &HTTPSubmitter{
		client:      client,
		defaultURL:  defaultURL + "/payments",
		fallbackURL: fallbackURL + "/payments",
		timeout:     timeout,
	}
}

func (s *HTTPSubmitter) Submit(p messages.Payment, processor routing.Processor) bool {
	url := s.defaultURL
	if processor == routing.Fallback {
		url = s.fallbackURL
	}

	buf, _ := goJson.Marshal(p)

	req := fasthttp.AcquireRequest()
	resp := fasthttp.AcquireResponse()
	defer fasthttp.ReleaseRequest(req)
	defer fasthttp.ReleaseResponse(resp)

	req.SetRequestURI(url)
	req.Header.SetMethod(fasthttp.MethodPost)
	req.Header.SetContentType("application/json")
	req.SetBody(buf)

	err := s.client.DoTimeout(req, resp, s.timeout)
	return !isErr(resp, err)
}

func isErr(resp *fasthttp.Response, err error) bool {
	if err != nil {
		return true
	}

	// 422 means the processor already settled this correlation id; the
	// retry that caused it should count as accepted, not requeue forever.
	if resp.StatusCode() == http.StatusUnprocessableEntity {
		return false
	}

	if resp.StatusCode() != http.StatusOK {
		return true
	}

	return false
}

package provider

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"github.com/vietddude/callcore/internal/infra/rpc"
	"github.com/vietddude/callcore/internal/infra/rpc/classify"
	"github.com/vietddude/callcore/internal/metrics"
)

// maxBodySize caps how much of a response body is read.
const maxBodySize = 4 << 20

// HTTPProvider issues JSON requests against a base URL.
type HTTPProvider struct {
	name       string
	baseURL    string
	httpClient *http.Client
	limiter    *rate.Limiter
	header     http.Header

	Monitor *Monitor
}

// HTTPOption configures an HTTPProvider.
type HTTPOption func(*HTTPProvider)

// WithRateLimit paces outgoing requests to rps with the given burst.
// A non-positive rps disables pacing.
func WithRateLimit(rps float64, burst int) HTTPOption {
	return func(p *HTTPProvider) {
		if rps <= 0 {
			p.limiter = nil
			return
		}
		if burst <= 0 {
			burst = 1
		}
		p.limiter = rate.NewLimiter(rate.Limit(rps), burst)
	}
}

// WithHeader sets a header sent with every request.
func WithHeader(key, value string) HTTPOption {
	return func(p *HTTPProvider) {
		p.header.Set(key, value)
	}
}

// NewHTTPProvider creates a new HTTP provider.
func NewHTTPProvider(name, baseURL string, timeout time.Duration, opts ...HTTPOption) *HTTPProvider {
	p := &HTTPProvider{
		name:    name,
		baseURL: strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{
			Timeout: timeout,
			Transport: &http.Transport{
				MaxIdleConns:        100,
				MaxIdleConnsPerHost: 10,
				IdleConnTimeout:     90 * time.Second,
			},
		},
		header:  make(http.Header),
		Monitor: NewMonitor(),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Do sends a request and returns the raw response body.
//
// Failures come back in shapes the classifier understands: a request that
// never got a response wraps classify.ErrNoResponse, and any non-2xx status
// is a *classify.ResponseError.
func (p *HTTPProvider) Do(ctx context.Context, method, path string, body any) ([]byte, error) {
	if p.limiter != nil {
		if err := p.limiter.Wait(ctx); err != nil {
			return nil, fmt.Errorf("rate limit wait: %w", err)
		}
	}

	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("marshal request: %w", err)
		}
		reader = bytes.NewReader(data)
	}

	url := p.resolve(path)
	req, err := http.NewRequestWithContext(ctx, method, url, reader)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	for k, v := range p.header {
		req.Header[k] = v
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	start := time.Now()
	resp, err := p.httpClient.Do(req)
	if err != nil {
		p.Monitor.RecordFailure()
		metrics.HTTPRequestsTotal.WithLabelValues(p.name, "none").Inc()
		return nil, fmt.Errorf("%s %s: %w: %w", method, url, classify.ErrNoResponse, err)
	}
	defer resp.Body.Close()

	latency := time.Since(start)
	metrics.HTTPLatency.WithLabelValues(p.name).Observe(latency.Seconds())
	metrics.HTTPRequestsTotal.WithLabelValues(p.name, strconv.Itoa(resp.StatusCode)).Inc()

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxBodySize))
	if err != nil {
		p.Monitor.RecordFailure()
		return nil, fmt.Errorf("read response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		if resp.StatusCode == http.StatusTooManyRequests {
			p.Monitor.RecordThrottle()
		} else {
			p.Monitor.RecordFailure()
		}
		return nil, &classify.ResponseError{StatusCode: resp.StatusCode, Body: data}
	}

	p.Monitor.RecordSuccess(latency)
	return data, nil
}

// Get is shorthand for Do with GET and no body.
func (p *HTTPProvider) Get(ctx context.Context, path string) ([]byte, error) {
	return p.Do(ctx, http.MethodGet, path, nil)
}

// Operation returns a repeatable operation issuing the request.
func (p *HTTPProvider) Operation(method, path string, body any) rpc.Operation[[]byte] {
	return func(ctx context.Context) ([]byte, error) {
		return p.Do(ctx, method, path, body)
	}
}

// GetJSON fetches path and decodes the JSON response into R.
func GetJSON[R any](ctx context.Context, p *HTTPProvider, path string) (R, error) {
	var out R
	data, err := p.Get(ctx, path)
	if err != nil {
		return out, err
	}
	if err := json.Unmarshal(data, &out); err != nil {
		return out, fmt.Errorf("decode %s: %w", path, err)
	}
	return out, nil
}

// GetName returns the provider's name.
func (p *HTTPProvider) GetName() string {
	return p.name
}

// GetHealth returns the provider's health status.
func (p *HTTPProvider) GetHealth() HealthStatus {
	return p.Monitor.Health()
}

// Close cleans up resources.
func (p *HTTPProvider) Close() error {
	p.httpClient.CloseIdleConnections()
	return nil
}

func (p *HTTPProvider) resolve(path string) string {
	if strings.HasPrefix(path, "http://") || strings.HasPrefix(path, "https://") {
		return path
	}
	if path == "" {
		return p.baseURL
	}
	if p.baseURL == "" {
		return path
	}
	return p.baseURL + "/" + strings.TrimLeft(path, "/")
}

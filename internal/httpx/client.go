package httpx

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/8adimka/Go_Weather_Agent/internal/errorsx"
	"github.com/8adimka/Go_Weather_Agent/internal/metrics"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
)

// maxBodyBytes caps how much of an upstream response is read.
const maxBodyBytes = 4 << 20

// ClientConfig describes the outbound transport. An empty ProxyURL means a
// direct connection; HTTP_PROXY and friends are never consulted.
type ClientConfig struct {
	Timeout  time.Duration
	ProxyURL string
}

// NewClient builds the HTTP client shared by the geocoder and the weather provider
func NewClient(cfg ClientConfig) (*http.Client, error) {
	transport := http.DefaultTransport.(*http.Transport).Clone()
	transport.Proxy = nil

	if cfg.ProxyURL != "" {
		u, err := url.Parse(cfg.ProxyURL)
		if err != nil || u.Scheme == "" || u.Host == "" {
			return nil, fmt.Errorf("invalid proxy url %q", cfg.ProxyURL)
		}
		transport.Proxy = http.ProxyURL(u)
	}

	return &http.Client{
		Transport: otelhttp.NewTransport(transport),
		Timeout:   cfg.Timeout,
	}, nil
}

// StatusError is returned for non-2xx upstream responses
type StatusError struct {
	StatusCode int
	Reason     string
}

func (e *StatusError) Error() string {
	if e.Reason != "" {
		return fmt.Sprintf("upstream returned %d: %s", e.StatusCode, e.Reason)
	}
	return fmt.Sprintf("upstream returned %d", e.StatusCode)
}

func (e *StatusError) Unwrap() error {
	return errorsx.ErrUpstream
}

// JSONClient performs GET requests against a JSON API and records them
// under Service in the upstream metrics.
type JSONClient struct {
	HTTP    *http.Client
	Service string
	Metrics *metrics.Metrics
}

// Get fetches rawURL and decodes the body into dest. endpoint labels the
// call in logs and metrics.
func (c *JSONClient) Get(ctx context.Context, endpoint, rawURL string, dest any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return errorsx.Wrap(err, "build request")
	}
	req.Header.Set("Accept", "application/json")

	start := time.Now()
	resp, err := c.HTTP.Do(req)
	if err != nil {
		c.Metrics.RecordUpstreamRequest(ctx, c.Service, endpoint, "error", time.Since(start))
		slog.WarnContext(ctx, "Upstream request failed",
			"service", c.Service, "endpoint", endpoint, "error", err)
		return fmt.Errorf("%w: %s %s: %w", errorsx.ErrUpstream, c.Service, endpoint, err)
	}
	defer resp.Body.Close()

	c.Metrics.RecordUpstreamRequest(ctx, c.Service, endpoint, strconv.Itoa(resp.StatusCode), time.Since(start))

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return fmt.Errorf("%w: read %s response: %w", errorsx.ErrUpstream, endpoint, err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		statusErr := &StatusError{StatusCode: resp.StatusCode, Reason: upstreamReason(body)}
		slog.WarnContext(ctx, "Upstream returned error status",
			"service", c.Service, "endpoint", endpoint,
			"status", resp.StatusCode, "reason", statusErr.Reason)
		return fmt.Errorf("%s %s: %w", c.Service, endpoint, statusErr)
	}

	if err := json.Unmarshal(body, dest); err != nil {
		return fmt.Errorf("%w: decode %s response: %w", errorsx.ErrMalformedPayload, endpoint, err)
	}
	return nil
}

// upstreamReason extracts Open-Meteo's {"error":true,"reason":"..."} message
func upstreamReason(body []byte) string {
	var payload struct {
		Reason string `json:"reason"`
	}
	if err := json.Unmarshal(body, &payload); err != nil {
		return ""
	}
	return payload.Reason
}

// ClientError returns the upstream response carried by err when the
// upstream rejected the request with a 4xx status
func ClientError(err error) (*StatusError, bool) {
	var statusErr *StatusError
	if errors.As(err, &statusErr) && statusErr.StatusCode >= 400 && statusErr.StatusCode < 500 {
		return statusErr, true
	}
	return nil, false
}

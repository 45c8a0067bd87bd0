package metrics

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/mux"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// Metrics holds all application metrics. A nil *Metrics records nothing,
// so components can be built without telemetry in tests.
type Metrics struct {
	httpRequestsTotal   metric.Int64Counter
	httpRequestDuration metric.Float64Histogram

	toolCallsTotal   metric.Int64Counter
	toolCallDuration metric.Float64Histogram

	upstreamRequestsTotal   metric.Int64Counter
	upstreamRequestDuration metric.Float64Histogram

	completionsTotal   metric.Int64Counter
	completionDuration metric.Float64Histogram
	tokenUsageByModel  metric.Int64Counter
	contextTokenCount  metric.Int64Histogram
}

// NewMetrics creates and initializes all metrics
func NewMetrics(meter metric.Meter) (*Metrics, error) {
	httpRequestsTotal, err := meter.Int64Counter(
		"http_server_requests_total",
		metric.WithDescription("Total number of HTTP requests"),
		metric.WithUnit("1"),
	)
	if err != nil {
		return nil, err
	}

	httpRequestDuration, err := meter.Float64Histogram(
		"http_server_latency_ms",
		metric.WithDescription("HTTP request latency in milliseconds"),
		metric.WithUnit("ms"),
	)
	if err != nil {
		return nil, err
	}

	toolCallsTotal, err := meter.Int64Counter(
		"tool_calls_total",
		metric.WithDescription("Tool executions by tool and outcome"),
		metric.WithUnit("1"),
	)
	if err != nil {
		return nil, err
	}

	toolCallDuration, err := meter.Float64Histogram(
		"tool_call_duration_ms",
		metric.WithDescription("Tool execution latency in milliseconds"),
		metric.WithUnit("ms"),
	)
	if err != nil {
		return nil, err
	}

	upstreamRequestsTotal, err := meter.Int64Counter(
		"upstream_requests_total",
		metric.WithDescription("Requests to geocoding and weather APIs"),
		metric.WithUnit("1"),
	)
	if err != nil {
		return nil, err
	}

	upstreamRequestDuration, err := meter.Float64Histogram(
		"upstream_request_duration_ms",
		metric.WithDescription("Upstream API latency in milliseconds"),
		metric.WithUnit("ms"),
	)
	if err != nil {
		return nil, err
	}

	completionsTotal, err := meter.Int64Counter(
		"openai_requests_total",
		metric.WithDescription("Total OpenAI API requests"),
		metric.WithUnit("1"),
	)
	if err != nil {
		return nil, err
	}

	completionDuration, err := meter.Float64Histogram(
		"openai_request_duration_ms",
		metric.WithDescription("OpenAI API request duration in milliseconds"),
		metric.WithUnit("ms"),
	)
	if err != nil {
		return nil, err
	}

	tokenUsageByModel, err := meter.Int64Counter(
		"token_usage_by_model",
		metric.WithDescription("Token usage broken down by model"),
		metric.WithUnit("1"),
	)
	if err != nil {
		return nil, err
	}

	contextTokenCount, err := meter.Int64Histogram(
		"context_token_count",
		metric.WithDescription("Distribution of context token counts"),
		metric.WithUnit("1"),
		metric.WithExplicitBucketBoundaries(100, 500, 1000, 2000, 4000, 8000, 16000, 32000),
	)
	if err != nil {
		return nil, err
	}

	return &Metrics{
		httpRequestsTotal:       httpRequestsTotal,
		httpRequestDuration:     httpRequestDuration,
		toolCallsTotal:          toolCallsTotal,
		toolCallDuration:        toolCallDuration,
		upstreamRequestsTotal:   upstreamRequestsTotal,
		upstreamRequestDuration: upstreamRequestDuration,
		completionsTotal:        completionsTotal,
		completionDuration:      completionDuration,
		tokenUsageByModel:       tokenUsageByModel,
		contextTokenCount:       contextTokenCount,
	}, nil
}

// HTTPMetricsMiddleware returns middleware for collecting HTTP metrics.
// The path attribute is the mux route template when one matched, which
// keeps tool and agent names out of the label set.
func (m *Metrics) HTTPMetricsMiddleware() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		if m == nil {
			return next
		}
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()

			rw := &responseWriter{ResponseWriter: w, statusCode: http.StatusOK}
			next.ServeHTTP(rw, r)

			durationMs := float64(time.Since(start).Nanoseconds()) / 1e6
			attrs := metric.WithAttributes(
				attribute.String("method", r.Method),
				attribute.String("path", routePath(r)),
				attribute.String("status_code", strconv.Itoa(rw.statusCode)),
			)

			m.httpRequestsTotal.Add(r.Context(), 1, attrs)
			m.httpRequestDuration.Record(r.Context(), durationMs, attrs)
		})
	}
}

func routePath(r *http.Request) string {
	if route := mux.CurrentRoute(r); route != nil {
		if tmpl, err := route.GetPathTemplate(); err == nil {
			return tmpl
		}
	}
	return r.URL.Path
}

// RecordToolCall records one tool execution. outcome is "ok" or an error code.
func (m *Metrics) RecordToolCall(ctx context.Context, tool, outcome string, duration time.Duration) {
	if m == nil {
		return
	}
	attrs := metric.WithAttributes(
		attribute.String("tool", tool),
		attribute.String("outcome", outcome),
	)
	m.toolCallsTotal.Add(ctx, 1, attrs)
	m.toolCallDuration.Record(ctx, float64(duration.Milliseconds()), attrs)
}

// RecordUpstreamRequest records a call to an external API.
// status is the HTTP status code, or "error" when no response arrived.
func (m *Metrics) RecordUpstreamRequest(ctx context.Context, service, endpoint, status string, duration time.Duration) {
	if m == nil {
		return
	}
	attrs := metric.WithAttributes(
		attribute.String("service", service),
		attribute.String("endpoint", endpoint),
		attribute.String("status", status),
	)
	m.upstreamRequestsTotal.Add(ctx, 1, attrs)
	m.upstreamRequestDuration.Record(ctx, float64(duration.Milliseconds()), attrs)
}

// RecordCompletion records one chat completion round-trip with its token usage
func (m *Metrics) RecordCompletion(ctx context.Context, agent, model string, duration time.Duration, promptTokens, completionTokens int64) {
	if m == nil {
		return
	}
	attrs := metric.WithAttributes(
		attribute.String("agent", agent),
		attribute.String("model", model),
	)
	m.completionsTotal.Add(ctx, 1, attrs)
	m.completionDuration.Record(ctx, float64(duration.Milliseconds()), attrs)

	for tokenType, n := range map[string]int64{
		"prompt":     promptTokens,
		"completion": completionTokens,
		"total":      promptTokens + completionTokens,
	} {
		m.tokenUsageByModel.Add(ctx, n, metric.WithAttributes(
			attribute.String("model", model),
			attribute.String("token_type", tokenType),
		))
	}
}

// RecordContextTokenCount records the size of the prompt sent to the model
func (m *Metrics) RecordContextTokenCount(ctx context.Context, agent string, tokenCount int64) {
	if m == nil {
		return
	}
	m.contextTokenCount.Record(ctx, tokenCount, metric.WithAttributes(attribute.String("agent", agent)))
}

// responseWriter captures the status code for metrics
type responseWriter struct {
	http.ResponseWriter
	statusCode int
}

func (rw *responseWriter) WriteHeader(code int) {
	rw.statusCode = code
	rw.ResponseWriter.WriteHeader(code)
}

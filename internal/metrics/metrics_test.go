package metrics

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gorilla/mux"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"
)

func newTestMetrics(t *testing.T) (*Metrics, *sdkmetric.ManualReader) {
	t.Helper()
	reader := sdkmetric.NewManualReader()
	provider := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))
	t.Cleanup(func() { _ = provider.Shutdown(context.Background()) })

	m, err := NewMetrics(provider.Meter("test"))
	if err != nil {
		t.Fatalf("Failed to create metrics: %v", err)
	}
	return m, reader
}

// counterTotal sums every data point of the named Int64 counter
func counterTotal(t *testing.T, reader *sdkmetric.ManualReader, name string) int64 {
	t.Helper()
	var rm metricdata.ResourceMetrics
	if err := reader.Collect(context.Background(), &rm); err != nil {
		t.Fatalf("collect: %v", err)
	}
	var total int64
	for _, sm := range rm.ScopeMetrics {
		for _, m := range sm.Metrics {
			if m.Name != name {
				continue
			}
			sum, ok := m.Data.(metricdata.Sum[int64])
			if !ok {
				t.Fatalf("%s is %T, not an int64 sum", name, m.Data)
			}
			for _, dp := range sum.DataPoints {
				total += dp.Value
			}
		}
	}
	return total
}

func TestHTTPMetricsMiddleware(t *testing.T) {
	m, reader := newTestMetrics(t)

	r := mux.NewRouter()
	r.Use(m.HTTPMetricsMiddleware())
	r.HandleFunc("/v1/tools/{name}", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	})
	r.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("ok"))
	})

	for _, path := range []string{"/health", "/v1/tools/get_weather", "/v1/tools/nope"} {
		rec := httptest.NewRecorder()
		r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))
	}

	if got := counterTotal(t, reader, "http_server_requests_total"); got != 3 {
		t.Errorf("Expected 3 requests recorded, got %d", got)
	}
	if got := routePath(httptest.NewRequest(http.MethodGet, "/plain", nil)); got != "/plain" {
		t.Errorf("routePath without a route = %q", got)
	}
}

func TestRecordToolAndUpstream(t *testing.T) {
	m, reader := newTestMetrics(t)
	ctx := context.Background()

	m.RecordToolCall(ctx, "get_weather", "ok", 20*time.Millisecond)
	m.RecordToolCall(ctx, "get_weather_by_date", "location_not_found", 5*time.Millisecond)
	m.RecordUpstreamRequest(ctx, "open-meteo", "archive", "200", time.Millisecond)

	if got := counterTotal(t, reader, "tool_calls_total"); got != 2 {
		t.Errorf("tool_calls_total = %d, want 2", got)
	}
	if got := counterTotal(t, reader, "upstream_requests_total"); got != 1 {
		t.Errorf("upstream_requests_total = %d, want 1", got)
	}
}

func TestRecordCompletion(t *testing.T) {
	m, reader := newTestMetrics(t)
	ctx := context.Background()

	m.RecordCompletion(ctx, "weather", "gpt-4o", time.Second, 100, 20)
	m.RecordContextTokenCount(ctx, "weather", 120)

	if got := counterTotal(t, reader, "openai_requests_total"); got != 1 {
		t.Errorf("openai_requests_total = %d, want 1", got)
	}
	// prompt + completion + total
	if got := counterTotal(t, reader, "token_usage_by_model"); got != 240 {
		t.Errorf("token_usage_by_model = %d, want 240", got)
	}
}

func TestNilMetricsIsNoop(t *testing.T) {
	var m *Metrics
	ctx := context.Background()

	m.RecordToolCall(ctx, "get_weather", "ok", time.Millisecond)
	m.RecordUpstreamRequest(ctx, "open-meteo", "forecast", "error", time.Millisecond)
	m.RecordCompletion(ctx, "weather", "gpt-4o", time.Millisecond, 1, 1)
	m.RecordContextTokenCount(ctx, "weather", 1)

	h := m.HTTPMetricsMiddleware()(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTeapot)
	}))
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	if rec.Code != http.StatusTeapot {
		t.Errorf("Expected pass-through status, got %d", rec.Code)
	}
}

package health

import (
	"context"
	"encoding/json"
	"net/http"
	"time"
)

// Pinger is a dependency that can report whether it is reachable
type Pinger interface {
	Ping(ctx context.Context) error
}

// HealthResponse represents the health check response
type HealthResponse struct {
	Status    string            `json:"status"`
	Version   string            `json:"version,omitempty"`
	Timestamp time.Time         `json:"timestamp"`
	Checks    map[string]string `json:"checks,omitempty"`
}

// HealthChecker handles health checks
type HealthChecker struct {
	version string
	redis   Pinger
}

// NewHealthChecker creates a new health checker. redis may be nil when
// conversation history is not configured.
func NewHealthChecker(version string, redis Pinger) *HealthChecker {
	return &HealthChecker{
		version: version,
		redis:   redis,
	}
}

// HealthHandler handles the /health endpoint
func (h *HealthChecker) HealthHandler(w http.ResponseWriter, r *http.Request) {
	response := HealthResponse{
		Status:    "healthy",
		Version:   h.version,
		Timestamp: time.Now().UTC(),
		Checks:    h.checks(r.Context()),
	}

	statusCode := http.StatusOK
	if response.Checks["redis"] != "ok" && response.Checks["redis"] != "not configured" {
		response.Status = "unhealthy"
		statusCode = http.StatusServiceUnavailable
	}

	writeResponse(w, statusCode, response)
}

// ReadyHandler handles the /ready endpoint
func (h *HealthChecker) ReadyHandler(w http.ResponseWriter, r *http.Request) {
	response := HealthResponse{
		Status:    "ready",
		Version:   h.version,
		Timestamp: time.Now().UTC(),
		Checks:    h.checks(r.Context()),
	}

	statusCode := http.StatusOK
	if response.Checks["redis"] != "ok" && response.Checks["redis"] != "not configured" {
		response.Status = "not ready"
		statusCode = http.StatusServiceUnavailable
	}

	writeResponse(w, statusCode, response)
}

func (h *HealthChecker) checks(ctx context.Context) map[string]string {
	checks := make(map[string]string)

	if h.redis == nil {
		checks["redis"] = "not configured"
		return checks
	}

	ctx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()

	if err := h.redis.Ping(ctx); err != nil {
		checks["redis"] = "failed: " + err.Error()
	} else {
		checks["redis"] = "ok"
	}
	return checks
}

func writeResponse(w http.ResponseWriter, statusCode int, response HealthResponse) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	json.NewEncoder(w).Encode(response)
}

package httpx

import (
	"crypto/subtle"
	"log/slog"
	"net/http"
	"strings"
)

// APIKeyAuth provides API key authentication middleware
type APIKeyAuth struct {
	apiKey string
}

// NewAPIKeyAuth creates a new API key authentication middleware
func NewAPIKeyAuth(apiKey string) *APIKeyAuth {
	return &APIKeyAuth{
		apiKey: apiKey,
	}
}

// Middleware checks the X-API-Key header. With no key configured every
// request passes.
func (a *APIKeyAuth) Middleware() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if a.apiKey == "" {
				next.ServeHTTP(w, r)
				return
			}

			providedKey := r.Header.Get("X-API-Key")
			if providedKey == "" {
				slog.WarnContext(r.Context(), "API key missing",
					"method", r.Method,
					"path", r.URL.Path,
				)
				unauthorized(w, "API key required")
				return
			}

			if subtle.ConstantTimeCompare([]byte(providedKey), []byte(a.apiKey)) != 1 {
				slog.WarnContext(r.Context(), "Invalid API key",
					"method", r.Method,
					"path", r.URL.Path,
				)
				unauthorized(w, "Invalid API key")
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

func unauthorized(w http.ResponseWriter, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("WWW-Authenticate", "API-Key")
	w.WriteHeader(http.StatusUnauthorized)
	_, _ = w.Write([]byte(`{"error":"unauthorized","message":"` + message + `"}`))
}

// ProtectedRoutes applies API key auth to every path except publicPaths.
// A pattern ending in "/*" matches the prefix and everything below it.
func ProtectedRoutes(apiKey string, publicPaths []string) func(http.Handler) http.Handler {
	auth := NewAPIKeyAuth(apiKey).Middleware()

	return func(next http.Handler) http.Handler {
		protected := auth(next)
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			for _, publicPath := range publicPaths {
				if matchesPath(r.URL.Path, publicPath) {
					next.ServeHTTP(w, r)
					return
				}
			}
			protected.ServeHTTP(w, r)
		})
	}
}

func matchesPath(path, pattern string) bool {
	if path == pattern {
		return true
	}
	if strings.HasSuffix(pattern, "/*") {
		prefix := strings.TrimSuffix(pattern, "/*")
		return strings.HasPrefix(path, prefix+"/") || path == prefix
	}
	return false
}

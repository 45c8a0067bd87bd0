package errorsx

import (
	"errors"
	"fmt"
	"net/http"
)

// Error kinds surfaced by the weather tools and the HTTP surface
var (
	ErrLocationNotFound    = errors.New("location not found")
	ErrNoDataForDate       = errors.New("no weather data available")
	ErrForecastUnavailable = errors.New("forecast not available")
	ErrCurrentUnavailable  = errors.New("current conditions unavailable")
	ErrInvalidInput        = errors.New("invalid input")
	ErrUpstream            = errors.New("upstream service error")
	ErrMalformedPayload    = errors.New("malformed upstream payload")
	ErrUnknownTool         = errors.New("unknown tool")
	ErrNotFound            = errors.New("resource not found")
	ErrUnauthorized        = errors.New("unauthorized")
)

// Wrap wraps an error with additional context message
// Returns nil if the error is nil
func Wrap(err error, message string) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w", message, err)
}

// Wrapf wraps an error with a formatted context message
// Returns nil if the error is nil
func Wrapf(err error, format string, args ...interface{}) error {
	if err == nil {
		return nil
	}
	message := fmt.Sprintf(format, args...)
	return fmt.Errorf("%s: %w", message, err)
}

// kinds is ordered: the first matching sentinel decides the code.
var kinds = []struct {
	err    error
	code   string
	status int
}{
	{ErrInvalidInput, "invalid_input", http.StatusBadRequest},
	{ErrUnauthorized, "unauthorized", http.StatusUnauthorized},
	{ErrLocationNotFound, "location_not_found", http.StatusNotFound},
	{ErrUnknownTool, "unknown_tool", http.StatusNotFound},
	{ErrNotFound, "not_found", http.StatusNotFound},
	{ErrNoDataForDate, "no_data_for_date", http.StatusUnprocessableEntity},
	{ErrForecastUnavailable, "forecast_unavailable", http.StatusUnprocessableEntity},
	{ErrCurrentUnavailable, "current_unavailable", http.StatusUnprocessableEntity},
	{ErrUpstream, "upstream_error", http.StatusBadGateway},
	{ErrMalformedPayload, "upstream_error", http.StatusBadGateway},
}

// Code returns a stable machine-readable code for err
func Code(err error) string {
	if err == nil {
		return ""
	}
	for _, k := range kinds {
		if errors.Is(err, k.err) {
			return k.code
		}
	}
	return "internal"
}

// HTTPStatus maps an error onto the HTTP status used by the API
func HTTPStatus(err error) int {
	if err == nil {
		return http.StatusOK
	}
	for _, k := range kinds {
		if errors.Is(err, k.err) {
			return k.status
		}
	}
	return http.StatusInternalServerError
}

// IsNotFound reports whether err means the requested thing does not exist
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound) ||
		errors.Is(err, ErrLocationNotFound) ||
		errors.Is(err, ErrUnknownTool)
}

// IsInvalidInput checks if an error is an invalid input error
func IsInvalidInput(err error) bool {
	return errors.Is(err, ErrInvalidInput)
}

// IsNoData reports whether err is one of the "no data" kinds of the resolver
func IsNoData(err error) bool {
	return errors.Is(err, ErrNoDataForDate) ||
		errors.Is(err, ErrForecastUnavailable) ||
		errors.Is(err, ErrCurrentUnavailable)
}

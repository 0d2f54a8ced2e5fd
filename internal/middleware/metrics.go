package middleware

import (
	"net/http"
	"strconv"
	"time"

	"asset-catalog/internal/metrics"
)

// knownPaths bounds the path label; anything else is recorded as "other".
var knownPaths = map[string]bool{
	"/metrics": true,
	"/healthz": true,
}

// Metrics returns middleware that records request counts and durations.
func Metrics() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			metrics.HTTPRequestsInFlight.Inc()
			defer metrics.HTTPRequestsInFlight.Dec()

			wrapped := newResponseWriter(w)
			start := time.Now()
			next.ServeHTTP(wrapped, r)

			path := normalizePath(r.URL.Path)
			metrics.HTTPRequestsTotal.WithLabelValues(r.Method, path, strconv.Itoa(wrapped.statusCode)).Inc()
			metrics.HTTPRequestDuration.WithLabelValues(r.Method, path).Observe(time.Since(start).Seconds())
		})
	}
}

func normalizePath(path string) string {
	if knownPaths[path] {
		return path
	}
	return "other"
}

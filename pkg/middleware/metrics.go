package middleware

import (
	"net/http"
	"time"
)

// Observer receives one observation per completed request.
// Pattern is the matched ServeMux pattern, or "unmatched".
type Observer interface {
	ObserveRequest(method, pattern string, status int, elapsed time.Duration)
}

// Metrics returns middleware that reports each request to obs.
func Metrics(obs Observer) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			rec := record(w)
			next.ServeHTTP(rec, r)

			pattern := r.Pattern
			if pattern == "" {
				pattern = "unmatched"
			}
			obs.ObserveRequest(r.Method, pattern, rec.status, time.Since(start))
		})
	}
}

// Package middleware contains the HTTP middleware stack.
package middleware

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"

	"github.com/appraisehub/valuation-platform/internal/infrastructure/monitoring/logging"
	"github.com/appraisehub/valuation-platform/internal/infrastructure/monitoring/prometheus"
)

// RequestLogger logs one line per request and records the HTTP metrics,
// labelled by the chi route pattern rather than the raw path so cardinality
// stays bounded.
func RequestLogger(log logging.Logger, metrics *prometheus.Metrics) func(http.Handler) http.Handler {
	log = log.Named("http")
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ww := chimiddleware.NewWrapResponseWriter(w, r.ProtoMajor)
			started := time.Now()

			next.ServeHTTP(ww, r)

			elapsed := time.Since(started)
			route := chi.RouteContext(r.Context()).RoutePattern()
			if route == "" {
				route = "unmatched"
			}
			metrics.ObserveHTTP(r.Method, route, strconv.Itoa(ww.Status()), elapsed)

			log.Info("request served",
				logging.String("method", r.Method),
				logging.String("path", r.URL.Path),
				logging.Int("status", ww.Status()),
				logging.Duration("elapsed", elapsed),
				logging.Int("bytes", ww.BytesWritten()))
		})
	}
}

// Package http assembles the chi router and HTTP server of the valuation
// API.
package http

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"

	"github.com/appraisehub/valuation-platform/internal/infrastructure/monitoring/logging"
	"github.com/appraisehub/valuation-platform/internal/infrastructure/monitoring/prometheus"
	"github.com/appraisehub/valuation-platform/internal/interfaces/http/handlers"
	"github.com/appraisehub/valuation-platform/internal/interfaces/http/middleware"
)

// RouterDeps bundles everything the router mounts.
type RouterDeps struct {
	Evidence *handlers.EvidenceHandler
	Sections *handlers.SectionHandler
	Reports  *handlers.ReportHandler
	Health   *handlers.HealthHandler
	Metrics  *prometheus.Metrics
	Logger   logging.Logger
}

// NewRouter wires the full route tree.
func NewRouter(d RouterDeps) chi.Router {
	r := chi.NewRouter()

	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(chimiddleware.Recoverer)
	r.Use(chimiddleware.Timeout(60 * time.Second))
	r.Use(middleware.CORS)
	r.Use(middleware.RequestLogger(d.Logger, d.Metrics))

	r.Get("/healthz", d.Health.Liveness)
	r.Get("/readyz", d.Health.Readiness)
	r.Method(http.MethodGet, "/metrics", d.Metrics.Handler())

	r.Route("/api/v1", func(r chi.Router) {
		r.Route("/evidence", func(r chi.Router) {
			r.Post("/", d.Evidence.Submit)
			r.Put("/{id}", d.Evidence.Update)
			r.Delete("/{id}", d.Evidence.Delete)
		})

		r.Route("/properties/{address}", func(r chi.Router) {
			r.Get("/evidence", d.Evidence.List)
			r.Get("/estimate", d.Evidence.Estimate)

			r.Get("/sections", d.Sections.States)
			r.Put("/sections/{key}", d.Sections.UpsertFields)
			r.Put("/sections/{key}/inclusion", d.Sections.SetInclusion)

			r.Get("/contradictions", d.Reports.ContradictionCheck)
			r.Post("/compile", d.Reports.Compile)
			r.Get("/audit", d.Reports.AuditTrail)
			r.Get("/reports/{hash}/url", d.Reports.ArtifactURL)
		})
	})

	return r
}

package handlers

import (
	"context"
	"net/http"
	"strconv"
	"time"

	appreport "github.com/appraisehub/valuation-platform/internal/application/report"
	domreport "github.com/appraisehub/valuation-platform/internal/domain/report"
	"github.com/appraisehub/valuation-platform/internal/infrastructure/monitoring/logging"
	"github.com/appraisehub/valuation-platform/internal/infrastructure/monitoring/prometheus"
	"github.com/appraisehub/valuation-platform/pkg/types/common"
)

// ArtifactURLSource issues download links for stored report artifacts.  Nil
// when no artifact store is configured.
type ArtifactURLSource interface {
	PresignedURL(ctx context.Context, address common.PropertyAddress, documentHash string) (string, error)
}

// ReportHandler serves contradiction checking, compilation, and the audit
// trail.
type ReportHandler struct {
	svc       *appreport.Service
	artifacts ArtifactURLSource
	metrics   *prometheus.Metrics
	log       logging.Logger
}

// NewReportHandler constructs a ReportHandler.
func NewReportHandler(svc *appreport.Service, artifacts ArtifactURLSource,
	metrics *prometheus.Metrics, log logging.Logger) *ReportHandler {
	return &ReportHandler{svc: svc, artifacts: artifacts, metrics: metrics, log: log.Named("report_handler")}
}

// ContradictionCheck handles GET /api/v1/properties/{address}/contradictions.
func (h *ReportHandler) ContradictionCheck(w http.ResponseWriter, r *http.Request) {
	address := common.PropertyAddress(urlParam(r, "address"))

	report, err := h.svc.RunContradictionCheck(r.Context(), address)
	if err != nil {
		writeError(w, h.log, err)
		return
	}
	for _, finding := range report.Findings {
		h.metrics.ContradictionFindingsTotal.WithLabelValues(string(finding.Severity)).Inc()
	}
	writeJSON(w, http.StatusOK, report)
}

type compileRequest struct {
	Override bool `json:"override"`
}

// Compile handles POST /api/v1/properties/{address}/compile.  A blocked
// attempt returns 409 with the full outcome so the caller can act on the
// findings.
func (h *ReportHandler) Compile(w http.ResponseWriter, r *http.Request) {
	address := common.PropertyAddress(urlParam(r, "address"))

	var req compileRequest
	if r.ContentLength > 0 {
		if err := decodeBody(r, &req); err != nil {
			writeError(w, h.log, err)
			return
		}
	}

	started := time.Now()
	outcome, err := h.svc.CompileReport(r.Context(), address, req.Override)
	if err != nil {
		h.metrics.ObserveCompile("error", time.Since(started))
		writeError(w, h.log, err)
		return
	}
	h.metrics.ObserveCompile(string(outcome.FinalState), time.Since(started))

	status := http.StatusOK
	if outcome.FinalState == domreport.StateBlocked {
		status = http.StatusConflict
	}
	writeJSON(w, status, outcome)
}

// AuditTrail handles GET /api/v1/properties/{address}/audit.
func (h *ReportHandler) AuditTrail(w http.ResponseWriter, r *http.Request) {
	address := common.PropertyAddress(urlParam(r, "address"))

	limit := 50
	if raw := r.URL.Query().Get("limit"); raw != "" {
		if n, err := strconv.Atoi(raw); err == nil && n > 0 {
			limit = n
		}
	}

	trail, err := h.svc.AuditTrail(r.Context(), address, limit)
	if err != nil {
		writeError(w, h.log, err)
		return
	}
	writeJSON(w, http.StatusOK, trail)
}

// ArtifactURL handles GET /api/v1/properties/{address}/reports/{hash}/url.
func (h *ReportHandler) ArtifactURL(w http.ResponseWriter, r *http.Request) {
	if h.artifacts == nil {
		w.WriteHeader(http.StatusNotFound)
		return
	}
	address := common.PropertyAddress(urlParam(r, "address"))
	hash := urlParam(r, "hash")

	url, err := h.artifacts.PresignedURL(r.Context(), address, hash)
	if err != nil {
		writeError(w, h.log, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"url": url})
}

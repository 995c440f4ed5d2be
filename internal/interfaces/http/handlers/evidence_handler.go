package handlers

import (
	"net/http"
	"time"

	appreport "github.com/appraisehub/valuation-platform/internal/application/report"
	"github.com/appraisehub/valuation-platform/internal/domain/evidence"
	"github.com/appraisehub/valuation-platform/internal/infrastructure/monitoring/logging"
	"github.com/appraisehub/valuation-platform/internal/infrastructure/monitoring/prometheus"
	"github.com/appraisehub/valuation-platform/pkg/errors"
	"github.com/appraisehub/valuation-platform/pkg/types/common"
)

// EvidenceHandler serves the evidence façade.
type EvidenceHandler struct {
	svc     *appreport.Service
	metrics *prometheus.Metrics
	log     logging.Logger
}

// NewEvidenceHandler constructs an EvidenceHandler.
func NewEvidenceHandler(svc *appreport.Service, metrics *prometheus.Metrics, log logging.Logger) *EvidenceHandler {
	return &EvidenceHandler{svc: svc, metrics: metrics, log: log.Named("evidence_handler")}
}

// evidenceRequest is the wire form of a submitted or patched record.
type evidenceRequest struct {
	PropertyAddress string  `json:"property_address"`
	Kind            string  `json:"kind"`
	Amount          float64 `json:"amount"`
	TransactionDate string  `json:"transaction_date"`
	Status          string  `json:"status"`
	PropertyType    string  `json:"property_type,omitempty"`
	BuildingArea    float64 `json:"building_area,omitempty"`
	LandArea        float64 `json:"land_area,omitempty"`
	Bedrooms        int     `json:"bedrooms,omitempty"`
	Bathrooms       int     `json:"bathrooms,omitempty"`
	CarSpaces       int     `json:"car_spaces,omitempty"`
	Notes           string  `json:"notes,omitempty"`
}

func (req *evidenceRequest) toRecord() (*evidence.Record, error) {
	date, err := time.Parse("2006-01-02", req.TransactionDate)
	if err != nil {
		return nil, errors.New(errors.ErrCodeEvidenceInvalid,
			"transaction_date must be YYYY-MM-DD").WithCause(err)
	}
	return &evidence.Record{
		PropertyAddress: common.PropertyAddress(req.PropertyAddress),
		Kind:            evidence.TransactionKind(req.Kind),
		Amount:          req.Amount,
		TransactionDate: date,
		Status:          evidence.RecordStatus(req.Status),
		PropertyType:    req.PropertyType,
		BuildingArea:    req.BuildingArea,
		LandArea:        req.LandArea,
		Bedrooms:        req.Bedrooms,
		Bathrooms:       req.Bathrooms,
		CarSpaces:       req.CarSpaces,
		Notes:           req.Notes,
	}, nil
}

// Submit handles POST /api/v1/evidence.
func (h *EvidenceHandler) Submit(w http.ResponseWriter, r *http.Request) {
	var req evidenceRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, h.log, err)
		return
	}
	record, err := req.toRecord()
	if err != nil {
		writeError(w, h.log, err)
		return
	}

	stored, err := h.svc.SubmitEvidence(r.Context(), record)
	if err != nil {
		writeError(w, h.log, err)
		return
	}
	h.metrics.EvidenceMutationsTotal.WithLabelValues("create").Inc()
	writeJSON(w, http.StatusCreated, stored)
}

// List handles GET /api/v1/properties/{address}/evidence.
func (h *EvidenceHandler) List(w http.ResponseWriter, r *http.Request) {
	address := common.PropertyAddress(urlParam(r, "address"))

	records, err := h.svc.ListEvidence(r.Context(), address)
	if err != nil {
		writeError(w, h.log, err)
		return
	}
	writeJSON(w, http.StatusOK, records)
}

// Update handles PUT /api/v1/evidence/{id}.
func (h *EvidenceHandler) Update(w http.ResponseWriter, r *http.Request) {
	id := common.ID(urlParam(r, "id"))

	var req evidenceRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, h.log, err)
		return
	}
	patch, err := req.toRecord()
	if err != nil {
		writeError(w, h.log, err)
		return
	}

	updated, err := h.svc.UpdateEvidence(r.Context(), id, patch)
	if err != nil {
		writeError(w, h.log, err)
		return
	}
	h.metrics.EvidenceMutationsTotal.WithLabelValues("update").Inc()
	writeJSON(w, http.StatusOK, updated)
}

// Delete handles DELETE /api/v1/evidence/{id}.
func (h *EvidenceHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id := common.ID(urlParam(r, "id"))

	if err := h.svc.RemoveEvidence(r.Context(), id); err != nil {
		writeError(w, h.log, err)
		return
	}
	h.metrics.EvidenceMutationsTotal.WithLabelValues("delete").Inc()
	w.WriteHeader(http.StatusNoContent)
}

// Estimate handles GET /api/v1/properties/{address}/estimate.
func (h *EvidenceHandler) Estimate(w http.ResponseWriter, r *http.Request) {
	address := common.PropertyAddress(urlParam(r, "address"))

	est, err := h.svc.CurrentEstimate(r.Context(), address)
	if err != nil {
		writeError(w, h.log, err)
		return
	}
	if est == nil {
		writeError(w, h.log, errors.New(errors.ErrCodeValuationDataInsufficient,
			"fewer than the minimum qualifying comparables exist"))
		return
	}
	h.metrics.ComparableSetSize.WithLabelValues(address.String()).Set(float64(len(est.ComparableIDs)))
	writeJSON(w, http.StatusOK, est)
}

package handlers

import (
	"context"
	"net/http"
	"time"

	appreport "github.com/appraisehub/valuation-platform/internal/application/report"
	"github.com/appraisehub/valuation-platform/internal/domain/section"
	"github.com/appraisehub/valuation-platform/internal/infrastructure/monitoring/logging"
	"github.com/appraisehub/valuation-platform/pkg/errors"
	"github.com/appraisehub/valuation-platform/pkg/types/common"
)

// FieldDataStore is the writable side of the field-data source, implemented
// by the postgres FieldRepository and the in-memory store.
type FieldDataStore interface {
	appreport.FieldDataSource
	UpsertFields(ctx context.Context, address common.PropertyAddress, key section.Key, fields map[string]string, now time.Time) error
	SetInclusion(ctx context.Context, address common.PropertyAddress, key section.Key, rule section.InclusionRule) error
}

// SectionHandler serves section payload editing and classification.
type SectionHandler struct {
	svc    *appreport.Service
	fields FieldDataStore
	log    logging.Logger
}

// NewSectionHandler constructs a SectionHandler.
func NewSectionHandler(svc *appreport.Service, fields FieldDataStore, log logging.Logger) *SectionHandler {
	return &SectionHandler{svc: svc, fields: fields, log: log.Named("section_handler")}
}

// States handles GET /api/v1/properties/{address}/sections.  The response
// lists states in canonical order.
func (h *SectionHandler) States(w http.ResponseWriter, r *http.Request) {
	address := common.PropertyAddress(urlParam(r, "address"))

	states, err := h.svc.GetSectionStates(r.Context(), address)
	if err != nil {
		writeError(w, h.log, err)
		return
	}

	ordered := make([]*section.State, 0, len(section.CanonicalOrder))
	for _, key := range section.CanonicalOrder {
		ordered = append(ordered, states[key])
	}
	writeJSON(w, http.StatusOK, ordered)
}

type upsertFieldsRequest struct {
	Fields map[string]string `json:"fields"`
}

// UpsertFields handles PUT /api/v1/properties/{address}/sections/{key}.
func (h *SectionHandler) UpsertFields(w http.ResponseWriter, r *http.Request) {
	address := common.PropertyAddress(urlParam(r, "address"))
	key := section.Key(urlParam(r, "key"))
	if !section.IsKnown(key) {
		writeError(w, h.log, errors.New(errors.ErrCodeSectionUnknown, "unknown section key").
			WithDetail(string(key)))
		return
	}

	var req upsertFieldsRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, h.log, err)
		return
	}
	if len(req.Fields) == 0 {
		writeError(w, h.log, errors.InvalidParam("fields must not be empty"))
		return
	}

	if err := h.fields.UpsertFields(r.Context(), address, key, req.Fields, time.Now().UTC()); err != nil {
		writeError(w, h.log, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// SetInclusion handles PUT /api/v1/properties/{address}/sections/{key}/inclusion.
func (h *SectionHandler) SetInclusion(w http.ResponseWriter, r *http.Request) {
	address := common.PropertyAddress(urlParam(r, "address"))
	key := section.Key(urlParam(r, "key"))
	if !section.IsKnown(key) {
		writeError(w, h.log, errors.New(errors.ErrCodeSectionUnknown, "unknown section key").
			WithDetail(string(key)))
		return
	}

	var rule section.InclusionRule
	if err := decodeBody(r, &rule); err != nil {
		writeError(w, h.log, err)
		return
	}
	if rule.Required && !rule.Included {
		writeError(w, h.log, errors.New(errors.ErrCodeSectionRequiredExcluded,
			"required section cannot be excluded").WithDetail(string(key)))
		return
	}

	if err := h.fields.SetInclusion(r.Context(), address, key, rule); err != nil {
		writeError(w, h.log, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

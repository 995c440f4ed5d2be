package http

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	appreport "github.com/appraisehub/valuation-platform/internal/application/report"
	"github.com/appraisehub/valuation-platform/internal/domain/contradiction"
	domevidence "github.com/appraisehub/valuation-platform/internal/domain/evidence"
	domreport "github.com/appraisehub/valuation-platform/internal/domain/report"
	"github.com/appraisehub/valuation-platform/internal/domain/section"
	"github.com/appraisehub/valuation-platform/internal/domain/valuation"
	"github.com/appraisehub/valuation-platform/internal/infrastructure/monitoring/logging"
	"github.com/appraisehub/valuation-platform/internal/infrastructure/monitoring/prometheus"
	"github.com/appraisehub/valuation-platform/internal/infrastructure/signing"
	"github.com/appraisehub/valuation-platform/internal/interfaces/http/handlers"
)

func newTestRouter(t *testing.T) http.Handler {
	t.Helper()
	log := logging.NewNopLogger()
	metrics := prometheus.New()
	fields := appreport.NewMemoryFieldStore()

	evSvc := domevidence.NewService(domevidence.NewMemoryRepository(),
		domevidence.NewSelector(), domevidence.NewMutexLocker(), nil, log)

	svc := appreport.NewService(appreport.Deps{
		Evidence:   evSvc,
		Estimator:  valuation.NewRateProjection(200),
		Classifier: section.NewClassifier(),
		Checker:    contradiction.NewChecker(0.10),
		Compiler:   domreport.NewCompiler(signing.NewHMACSigner("test-secret"), log),
		Fields:     fields,
		Logger:     log,
	})

	return NewRouter(RouterDeps{
		Evidence: handlers.NewEvidenceHandler(svc, metrics, log),
		Sections: handlers.NewSectionHandler(svc, fields, log),
		Reports:  handlers.NewReportHandler(svc, nil, metrics, log),
		Health:   handlers.NewHealthHandler(nil),
		Metrics:  metrics,
		Logger:   log,
	})
}

func doJSON(t *testing.T, h http.Handler, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var reader *bytes.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	} else {
		reader = bytes.NewReader(nil)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func submitSale(t *testing.T, h http.Handler, date string) {
	t.Helper()
	rec := doJSON(t, h, http.MethodPost, "/api/v1/evidence", map[string]any{
		"property_address": "40 King St",
		"kind":             "sale",
		"amount":           900000,
		"transaction_date": date,
		"status":           "settled",
		"building_area":    180,
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
}

const propertyPath = "/api/v1/properties/" + "40%20King%20St"

func TestHealthEndpoints(t *testing.T) {
	h := newTestRouter(t)

	rec := doJSON(t, h, http.MethodGet, "/healthz", nil)
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = doJSON(t, h, http.MethodGet, "/readyz", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestEvidenceLifecycle(t *testing.T) {
	h := newTestRouter(t)

	// Malformed records are rejected at the boundary.
	rec := doJSON(t, h, http.MethodPost, "/api/v1/evidence", map[string]any{
		"property_address": "40 King St",
		"kind":             "sale",
		"amount":           -1,
		"transaction_date": "2024-01-01",
		"status":           "settled",
	})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	submitSale(t, h, "2024-01-01")
	submitSale(t, h, "2024-02-01")

	rec = doJSON(t, h, http.MethodGet, propertyPath+"/evidence", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var resp struct {
		Data []struct {
			ID           string `json:"id"`
			IsComparable bool   `json:"is_comparable"`
		} `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.Len(t, resp.Data, 2)
	for _, r := range resp.Data {
		assert.False(t, r.IsComparable)
	}

	// Below the minimum there is no estimate.
	rec = doJSON(t, h, http.MethodGet, propertyPath+"/estimate", nil)
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)

	// The third settled sale crosses the threshold.
	submitSale(t, h, "2024-03-01")
	rec = doJSON(t, h, http.MethodGet, propertyPath+"/estimate", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestSectionEndpoints(t *testing.T) {
	h := newTestRouter(t)

	rec := doJSON(t, h, http.MethodPut, propertyPath+"/sections/location", map[string]any{
		"fields": map[string]string{
			"address":              "40 King St",
			"locality_description": "Established residential street",
		},
	})
	require.Equal(t, http.StatusNoContent, rec.Code, rec.Body.String())

	rec = doJSON(t, h, http.MethodPut, propertyPath+"/sections/tenancy/inclusion",
		section.InclusionRule{Included: false})
	require.Equal(t, http.StatusNoContent, rec.Code)

	rec = doJSON(t, h, http.MethodPut, propertyPath+"/sections/mystery", map[string]any{
		"fields": map[string]string{"x": "y"},
	})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = doJSON(t, h, http.MethodGet, propertyPath+"/sections", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var resp struct {
		Data []struct {
			Key    string  `json:"key"`
			Status string  `json:"status"`
			Compl  float64 `json:"completion"`
		} `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.Len(t, resp.Data, len(section.CanonicalOrder))
	assert.Equal(t, "location", resp.Data[0].Key)
	assert.Equal(t, "supplied", resp.Data[0].Status)
}

func TestCompileEndpoint(t *testing.T) {
	h := newTestRouter(t)
	submitSale(t, h, "2024-01-01")
	submitSale(t, h, "2024-02-01")
	submitSale(t, h, "2024-03-01")

	rec := doJSON(t, h, http.MethodPut, propertyPath+"/sections/certificate", map[string]any{
		"fields": map[string]string{
			"market_value":   "925000",
			"valuer_name":    "J. Calder",
			"valuation_date": "2024-05-20",
		},
	})
	require.Equal(t, http.StatusNoContent, rec.Code)

	rec = doJSON(t, h, http.MethodPost, propertyPath+"/compile", nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var resp struct {
		Data struct {
			FinalState string `json:"final_state"`
			Report     struct {
				DocumentHash   string `json:"document_hash"`
				SignatureToken string `json:"signature_token"`
				TotalPages     int    `json:"total_pages"`
			} `json:"report"`
		} `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "complete", resp.Data.FinalState)
	assert.NotEmpty(t, resp.Data.Report.DocumentHash)
	assert.NotEmpty(t, resp.Data.Report.SignatureToken)
	assert.Greater(t, resp.Data.Report.TotalPages, 0)
}

func TestCompileEndpointBlockedAndOverride(t *testing.T) {
	h := newTestRouter(t)
	submitSale(t, h, "2024-01-01")
	submitSale(t, h, "2024-02-01")
	submitSale(t, h, "2024-03-01")

	rec := doJSON(t, h, http.MethodPut, propertyPath+"/sections/certificate", map[string]any{
		"fields": map[string]string{
			"market_value":      "500000",
			"valuer_name":       "J. Calder",
			"valuation_date":    "2024-05-20",
			"component_value_1": "650000",
		},
	})
	require.Equal(t, http.StatusNoContent, rec.Code)

	rec = doJSON(t, h, http.MethodGet, propertyPath+"/contradictions", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var check struct {
		Data struct {
			HasContradictions bool `json:"has_contradictions"`
		} `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &check))
	assert.True(t, check.Data.HasContradictions)

	rec = doJSON(t, h, http.MethodPost, propertyPath+"/compile", nil)
	assert.Equal(t, http.StatusConflict, rec.Code)

	rec = doJSON(t, h, http.MethodPost, propertyPath+"/compile", map[string]any{"override": true})
	assert.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
}

func TestRouteParamDecoding(t *testing.T) {
	// The address travels URL-encoded and must come back intact.
	h := newTestRouter(t)
	submitSale(t, h, "2024-01-01")

	escaped := url.PathEscape("40 King St")
	rec := doJSON(t, h, http.MethodGet, fmt.Sprintf("/api/v1/properties/%s/evidence", escaped), nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var resp struct {
		Data []struct {
			PropertyAddress string `json:"property_address"`
		} `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.Len(t, resp.Data, 1)
	assert.Equal(t, "40 King St", resp.Data[0].PropertyAddress)
}

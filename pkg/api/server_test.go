package api

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/platinummonkey/mspbill/pkg/observability"
)

func TestHealthRoutes(t *testing.T) {
	checker := observability.NewHealthChecker(nil, nil)
	s := NewServer(&mockInvoiceService{}, nil, nil, checker, testLogger())

	for _, path := range []string{"/healthz", "/healthz/live", "/healthz/ready"} {
		t.Run(path, func(t *testing.T) {
			rec := httptest.NewRecorder()
			s.ServeHTTP(rec, httptest.NewRequest("GET", path, nil))
			assert.Equal(t, http.StatusOK, rec.Code)
		})
	}
}

func TestHealthRoutesSkipTenantCheck(t *testing.T) {
	checker := observability.NewHealthChecker(nil, nil)
	s := NewServer(&mockInvoiceService{}, nil, nil, checker, testLogger())

	// No X-Tenant-ID header; health probes must still answer.
	rec := httptest.NewRecorder()
	s.ServeHTTP(rec, httptest.NewRequest("GET", "/healthz/live", nil))

	require.Equal(t, http.StatusOK, rec.Code)

	var body map[string]interface{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, observability.StatusHealthy, body["status"])
}

func TestTenantHeaderRequired(t *testing.T) {
	s := newTestServer(&mockInvoiceService{}, nil, nil)

	rec := httptest.NewRecorder()
	s.ServeHTTP(rec, httptest.NewRequest("GET", "/api/v1/invoices/1", nil))

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestResponsesCarryRequestID(t *testing.T) {
	s := newTestServer(&mockInvoiceService{}, nil, nil)

	rec := doRequest(s, "GET", "/api/v1/invoices/abc", "")

	assert.NotEmpty(t, rec.Header().Get("X-Request-ID"))
}

func TestUnknownRoute(t *testing.T) {
	s := newTestServer(&mockInvoiceService{}, nil, nil)

	rec := doRequest(s, "GET", "/api/v1/nope", "")

	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestHandlerPanicReturns500(t *testing.T) {
	// A nil getInvoiceFunc makes the handler panic; recovery middleware
	// must turn that into a 500 instead of killing the server.
	s := newTestServer(&mockInvoiceService{}, nil, nil)

	rec := doRequest(s, "GET", "/api/v1/invoices/1", "")

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
}

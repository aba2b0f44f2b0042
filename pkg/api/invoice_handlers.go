package api

import (
	"errors"
	"net/http"
	"time"

	"github.com/platinummonkey/mspbill/pkg/billing"
	"github.com/platinummonkey/mspbill/pkg/httputil"
	"github.com/platinummonkey/mspbill/pkg/invoices"
	"github.com/platinummonkey/mspbill/pkg/tenant"
)

// defaultInvoiceListLimit bounds unqualified invoice listings
const defaultInvoiceListLimit = 50

type generateInvoiceRequest struct {
	PeriodStart time.Time `json:"period_start"`
	PeriodEnd   time.Time `json:"period_end"`
}

// generateInvoice handles POST /api/v1/companies/{companyID}/invoices/generate
func (s *Server) generateInvoice(w http.ResponseWriter, r *http.Request) {
	tenantID, ok := tenant.FromContext(r.Context())
	if !ok {
		httputil.WriteBadRequest(w, "missing tenant")
		return
	}

	companyID, ok := httputil.ParsePathInt64OrError(w, r, "companyID")
	if !ok {
		return
	}

	var req generateInvoiceRequest
	if !httputil.ParseJSONOrError(w, r, &req) {
		return
	}
	if req.PeriodStart.IsZero() || req.PeriodEnd.IsZero() {
		httputil.WriteBadRequest(w, "period_start and period_end are required")
		return
	}

	invoice, err := s.invoices.GenerateInvoice(r.Context(), tenantID, companyID, req.PeriodStart, req.PeriodEnd)
	if err != nil {
		s.writeInvoiceError(w, err)
		return
	}

	httputil.WriteCreated(w, invoice)
}

// finalizeInvoice handles POST /api/v1/invoices/{invoiceID}/finalize
func (s *Server) finalizeInvoice(w http.ResponseWriter, r *http.Request) {
	tenantID, ok := tenant.FromContext(r.Context())
	if !ok {
		httputil.WriteBadRequest(w, "missing tenant")
		return
	}

	invoiceID, ok := httputil.ParsePathInt64OrError(w, r, "invoiceID")
	if !ok {
		return
	}

	invoice, err := s.invoices.FinalizeInvoice(r.Context(), tenantID, invoiceID)
	if err != nil {
		s.writeInvoiceError(w, err)
		return
	}

	httputil.WriteSuccess(w, invoice)
}

// getInvoice handles GET /api/v1/invoices/{invoiceID}
func (s *Server) getInvoice(w http.ResponseWriter, r *http.Request) {
	tenantID, ok := tenant.FromContext(r.Context())
	if !ok {
		httputil.WriteBadRequest(w, "missing tenant")
		return
	}

	invoiceID, ok := httputil.ParsePathInt64OrError(w, r, "invoiceID")
	if !ok {
		return
	}

	invoice, err := s.invoices.GetInvoice(r.Context(), tenantID, invoiceID)
	if err != nil {
		s.writeInvoiceError(w, err)
		return
	}

	httputil.WriteSuccess(w, invoice)
}

// listInvoices handles GET /api/v1/companies/{companyID}/invoices
func (s *Server) listInvoices(w http.ResponseWriter, r *http.Request) {
	tenantID, ok := tenant.FromContext(r.Context())
	if !ok {
		httputil.WriteBadRequest(w, "missing tenant")
		return
	}

	companyID, ok := httputil.ParsePathInt64OrError(w, r, "companyID")
	if !ok {
		return
	}

	limit, err := httputil.ParseQueryInt(r, "limit", defaultInvoiceListLimit)
	if err != nil {
		httputil.WriteBadRequest(w, err.Error())
		return
	}

	list, err := s.invoices.ListInvoices(r.Context(), tenantID, companyID, limit)
	if err != nil {
		s.writeInvoiceError(w, err)
		return
	}

	httputil.WriteSuccess(w, list)
}

// writeInvoiceError maps invoice domain errors onto HTTP status codes
func (s *Server) writeInvoiceError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, billing.ErrInvalidPeriod):
		httputil.WriteBadRequest(w, err.Error())
	case errors.Is(err, billing.ErrNoActivePlans), errors.Is(err, billing.ErrMissingRate):
		httputil.WriteUnprocessable(w, err.Error())
	case errors.Is(err, billing.ErrCompanyNotFound), errors.Is(err, invoices.ErrInvoiceNotFound):
		httputil.WriteNotFoundError(w, err.Error())
	case errors.Is(err, invoices.ErrInvoiceNotDraft):
		httputil.WriteConflict(w, err.Error())
	default:
		s.logger.WithError(err).Error("invoice operation failed")
		httputil.WriteInternalError(w, err)
	}
}

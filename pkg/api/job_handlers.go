package api

import (
	"errors"
	"net/http"

	"github.com/platinummonkey/mspbill/pkg/httputil"
	"github.com/platinummonkey/mspbill/pkg/jobs"
	"github.com/platinummonkey/mspbill/pkg/tenant"
)

type sendInvoicesRequest struct {
	InvoiceIDs []int64 `json:"invoice_ids"`
}

// sendInvoices handles POST /api/v1/jobs/send-invoices. The delivery
// pipeline runs in the background; the response carries the processing
// job for the caller to poll.
func (s *Server) sendInvoices(w http.ResponseWriter, r *http.Request) {
	tenantID, ok := tenant.FromContext(r.Context())
	if !ok {
		httputil.WriteBadRequest(w, "missing tenant")
		return
	}

	var req sendInvoicesRequest
	if !httputil.ParseJSONOrError(w, r, &req) {
		return
	}
	if len(req.InvoiceIDs) == 0 {
		httputil.WriteBadRequest(w, "invoice_ids is required")
		return
	}

	job, err := s.orchestrator.SendInvoices(r.Context(), tenantID, req.InvoiceIDs)
	if err != nil {
		s.logger.WithError(err).Error("failed to start send invoices job")
		httputil.WriteInternalError(w, err)
		return
	}

	httputil.WriteAccepted(w, job)
}

// getJob handles GET /api/v1/jobs/{jobID}
func (s *Server) getJob(w http.ResponseWriter, r *http.Request) {
	tenantID, ok := tenant.FromContext(r.Context())
	if !ok {
		httputil.WriteBadRequest(w, "missing tenant")
		return
	}

	jobID, ok := httputil.ParsePathStringOrError(w, r, "jobID")
	if !ok {
		return
	}

	job, err := s.jobs.GetJob(r.Context(), tenantID, jobID)
	if err != nil {
		if errors.Is(err, jobs.ErrJobNotFound) {
			httputil.WriteNotFoundError(w, err.Error())
			return
		}
		s.logger.WithError(err).Error("failed to load job")
		httputil.WriteInternalError(w, err)
		return
	}

	httputil.WriteSuccess(w, job)
}

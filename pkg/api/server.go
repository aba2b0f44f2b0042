package api

import (
	"net/http"

	"github.com/gorilla/mux"

	"github.com/platinummonkey/mspbill/pkg/httputil"
	"github.com/platinummonkey/mspbill/pkg/invoices"
	"github.com/platinummonkey/mspbill/pkg/jobs"
	"github.com/platinummonkey/mspbill/pkg/observability"
	"github.com/platinummonkey/mspbill/pkg/tenant"
)

// Server represents our API server
type Server struct {
	router       *mux.Router
	handler      http.Handler
	logger       *observability.Logger
	invoices     invoices.Service
	jobs         jobs.Service
	orchestrator *jobs.Orchestrator
	health       *observability.HealthChecker
}

// NewServer creates a new API server
func NewServer(invoiceService invoices.Service, jobService jobs.Service, orchestrator *jobs.Orchestrator, health *observability.HealthChecker, logger *observability.Logger) *Server {
	if logger == nil {
		logger = observability.NewLogger(observability.InfoLevel, nil)
	}

	s := &Server{
		router:       mux.NewRouter(),
		logger:       logger,
		invoices:     invoiceService,
		jobs:         jobService,
		orchestrator: orchestrator,
		health:       health,
	}

	s.setupRoutes()

	s.handler = httputil.Chain(
		httputil.RequestIDMiddleware,
		httputil.LoggingMiddleware(logger),
		httputil.RecoveryMiddleware(logger),
	)(s.router)

	return s
}

// setupRoutes configures all the API routes
func (s *Server) setupRoutes() {
	// Health routes sit outside the tenant-scoped API
	if s.health != nil {
		s.router.HandleFunc("/healthz", s.health.Readiness).Methods("GET")
		s.router.HandleFunc("/healthz/live", s.health.Liveness).Methods("GET")
		s.router.HandleFunc("/healthz/ready", s.health.Readiness).Methods("GET")
	}

	api := s.router.PathPrefix("/api/v1").Subrouter()
	api.Use(tenant.Middleware)

	// Invoice routes
	api.HandleFunc("/companies/{companyID}/invoices/generate", s.generateInvoice).Methods("POST")
	api.HandleFunc("/companies/{companyID}/invoices", s.listInvoices).Methods("GET")
	api.HandleFunc("/invoices/{invoiceID}", s.getInvoice).Methods("GET")
	api.HandleFunc("/invoices/{invoiceID}/finalize", s.finalizeInvoice).Methods("POST")

	// Job routes
	api.HandleFunc("/jobs/send-invoices", s.sendInvoices).Methods("POST")
	api.HandleFunc("/jobs/{jobID}", s.getJob).Methods("GET")
}

// ServeHTTP implements http.Handler
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.handler.ServeHTTP(w, r)
}

package invoices

import (
	"context"
	"time"

	"github.com/platinummonkey/mspbill/pkg/billing"
	"github.com/platinummonkey/mspbill/pkg/observability"
)

// Sweeper generates invoices for every company with a plan of a given
// frequency active in a period. It is driven by the scheduler binary.
// Unlike the delivery pipeline, a sweep is not fail-fast: a failure for
// one company is logged and the sweep continues.
type Sweeper struct {
	service Service
	repo    billing.Repository
	logger  *observability.Logger
}

// NewSweeper creates a new Sweeper
func NewSweeper(service Service, repo billing.Repository, logger *observability.Logger) *Sweeper {
	if logger == nil {
		logger = observability.NewLogger(observability.InfoLevel, nil)
	}
	return &Sweeper{service: service, repo: repo, logger: logger}
}

// SweepResult summarizes one sweep run
type SweepResult struct {
	Generated int
	Failed    int
}

// Run generates invoices for all companies of the tenant with an active
// plan of the given frequency over [periodStart, periodEnd).
func (s *Sweeper) Run(ctx context.Context, tenantID int64, frequency billing.BillingFrequency, periodStart, periodEnd time.Time) (SweepResult, error) {
	var result SweepResult

	companyIDs, err := s.repo.CompaniesWithActivePlans(ctx, tenantID, frequency, periodStart, periodEnd)
	if err != nil {
		return result, err
	}

	for _, companyID := range companyIDs {
		invoice, err := s.service.GenerateInvoice(ctx, tenantID, companyID, periodStart, periodEnd)
		if err != nil {
			result.Failed++
			s.logger.WithError(err).WithFields(map[string]interface{}{
				"tenant_id":  tenantID,
				"company_id": companyID,
			}).Error("sweep invoice generation failed")
			continue
		}
		result.Generated++
		s.logger.WithFields(map[string]interface{}{
			"tenant_id":      tenantID,
			"company_id":     companyID,
			"invoice_number": invoice.InvoiceNumber,
		}).Info("sweep generated invoice")
	}
	return result, nil
}

// PreviousPeriod returns the closed period that precedes now for a
// billing frequency, aligned to calendar boundaries in UTC.
func PreviousPeriod(now time.Time, frequency billing.BillingFrequency) (time.Time, time.Time) {
	now = now.UTC()
	switch frequency {
	case billing.FrequencyQuarterly:
		quarter := (int(now.Month()) - 1) / 3
		end := time.Date(now.Year(), time.Month(quarter*3+1), 1, 0, 0, 0, 0, time.UTC)
		return end.AddDate(0, -3, 0), end
	case billing.FrequencyAnnually:
		end := time.Date(now.Year(), 1, 1, 0, 0, 0, 0, time.UTC)
		return end.AddDate(-1, 0, 0), end
	default:
		end := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, time.UTC)
		return end.AddDate(0, -1, 0), end
	}
}

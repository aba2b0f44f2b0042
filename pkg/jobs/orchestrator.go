package jobs

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/platinummonkey/mspbill/pkg/billing"
	"github.com/platinummonkey/mspbill/pkg/email"
	"github.com/platinummonkey/mspbill/pkg/invoices"
	"github.com/platinummonkey/mspbill/pkg/observability"
	"github.com/platinummonkey/mspbill/pkg/pdf"
)

// pdfRenderVersion is the render version requested for every invoice
const pdfRenderVersion = 1

// Orchestrator drives the per-invoice delivery pipeline: render the
// PDF, then email it to the company's billing recipient. Steps for
// one job run on a single goroutine; distinct jobs are safe to run
// concurrently because all state lives in the job record.
type Orchestrator struct {
	jobs     Service
	invoices invoices.Service
	pdf      pdf.Service
	sender   email.Sender
	logger   *observability.Logger
	tempDir  string
}

// NewOrchestrator creates a new delivery pipeline orchestrator
func NewOrchestrator(jobService Service, invoiceService invoices.Service, pdfService pdf.Service, sender email.Sender, logger *observability.Logger) *Orchestrator {
	if logger == nil {
		logger = observability.NewLogger(observability.InfoLevel, nil)
	}
	return &Orchestrator{
		jobs:     jobService,
		invoices: invoiceService,
		pdf:      pdfService,
		sender:   sender,
		logger:   logger,
		tempDir:  os.TempDir(),
	}
}

// SendInvoices creates a job for the batch and starts the pipeline on
// its own goroutine. The returned job is in the processing state;
// callers poll GetJob for progress.
func (o *Orchestrator) SendInvoices(ctx context.Context, tenantID int64, invoiceIDs []int64) (*Job, error) {
	job, err := o.jobs.CreateJob(ctx, tenantID, JobTypeSendInvoices, invoiceIDs)
	if err != nil {
		return nil, fmt.Errorf("failed to create send job: %w", err)
	}

	go func() {
		defer observability.RecoverPanic(o.logger, "send invoices pipeline")

		// The pipeline outlives the request that started it.
		if err := o.Run(context.Background(), tenantID, job.ID, invoiceIDs); err != nil {
			o.logger.WithError(err).WithFields(map[string]interface{}{
				"tenant_id": tenantID,
				"job_id":    job.ID,
			}).Error("send invoices job failed")
		}
	}()

	return job, nil
}

// Run processes the batch sequentially and fail-fast: a hard failure
// on invoice k marks the job failed and leaves invoices k+1..N
// untouched. When every invoice succeeds the job is marked completed.
func (o *Orchestrator) Run(ctx context.Context, tenantID int64, jobID string, invoiceIDs []int64) error {
	for _, invoiceID := range invoiceIDs {
		if err := o.processInvoice(ctx, tenantID, jobID, invoiceID); err != nil {
			if markErr := o.jobs.MarkFailed(ctx, tenantID, jobID, err.Error()); markErr != nil {
				o.logger.WithError(markErr).WithFields(map[string]interface{}{
					"tenant_id": tenantID,
					"job_id":    jobID,
				}).Error("failed to record job failure")
			}
			return err
		}
	}

	if err := o.jobs.MarkCompleted(ctx, tenantID, jobID); err != nil {
		return fmt.Errorf("failed to mark job %s completed: %w", jobID, err)
	}

	o.logger.WithFields(map[string]interface{}{
		"tenant_id":     tenantID,
		"job_id":        jobID,
		"invoice_count": len(invoiceIDs),
	}).Info("send invoices job completed")

	return nil
}

// processInvoice runs the two-step pipeline for one invoice. Each
// step is appended as started and completed once its work succeeds; a
// failure leaves the step in the started state and surfaces an error
// naming the invoice and company.
func (o *Orchestrator) processInvoice(ctx context.Context, tenantID int64, jobID string, invoiceID int64) error {
	detail, err := o.invoices.GetInvoiceDetail(ctx, tenantID, invoiceID)
	if err != nil {
		return fmt.Errorf("invoice %d: %w", invoiceID, err)
	}
	inv, company := detail.Invoice, detail.Company

	fail := func(cause error) error {
		return fmt.Errorf("invoice %s (company %s): %w", inv.InvoiceNumber, company.Name, cause)
	}

	renderStep, err := o.jobs.AppendStep(ctx, tenantID, jobID, JobStep{
		Name:      fmt.Sprintf("Generate PDF for %s", inv.InvoiceNumber),
		Type:      StepTypePDFGeneration,
		InvoiceID: invoiceID,
		Detail:    "rendering invoice",
	})
	if err != nil {
		return fail(err)
	}

	fileID, err := o.pdf.GenerateAndStore(ctx, tenantID, invoiceID, inv.InvoiceNumber, pdfRenderVersion)
	if err != nil {
		return fail(err)
	}

	if err := o.jobs.CompleteStep(ctx, tenantID, jobID, renderStep.ID, StepResult{
		Detail: "pdf stored",
		FileID: fileID,
	}); err != nil {
		return fail(err)
	}

	recipientEmail, recipientName, ok := company.BillingRecipient()
	if !ok {
		return fail(ErrNoRecipient)
	}

	sendStep, err := o.jobs.AppendStep(ctx, tenantID, jobID, JobStep{
		Name:      fmt.Sprintf("Email %s", inv.InvoiceNumber),
		Type:      StepTypeEmailSend,
		InvoiceID: invoiceID,
		Detail:    fmt.Sprintf("sending to %s", recipientEmail),
	})
	if err != nil {
		return fail(err)
	}

	if err := o.deliver(ctx, tenantID, inv, company, fileID, recipientEmail, recipientName); err != nil {
		return fail(err)
	}

	if err := o.jobs.CompleteStep(ctx, tenantID, jobID, sendStep.ID, StepResult{
		Detail:         "invoice emailed",
		RecipientEmail: recipientEmail,
	}); err != nil {
		return fail(err)
	}

	return nil
}

// deliver downloads the rendered artifact to a temp file and emails
// it. The temp file is removed on every exit path.
func (o *Orchestrator) deliver(ctx context.Context, tenantID int64, inv *invoices.Invoice, company *billing.Company, fileID, recipientEmail, recipientName string) error {
	body, err := o.pdf.DownloadFile(ctx, tenantID, fileID)
	if err != nil {
		return err
	}

	path := filepath.Join(o.tempDir, fmt.Sprintf("invoice-%s-%d.pdf", inv.InvoiceNumber, time.Now().UnixNano()))
	if err := os.WriteFile(path, body, 0o600); err != nil {
		return fmt.Errorf("write temp file: %w", err)
	}
	defer os.Remove(path)

	accepted, err := o.sender.SendInvoiceEmail(ctx, email.Message{
		To:            recipientEmail,
		ToName:        recipientName,
		Subject:       fmt.Sprintf("Invoice %s", inv.InvoiceNumber),
		TextBody:      deliveryBody(inv, company, recipientName),
		InvoiceNumber: inv.InvoiceNumber,
	}, path)
	if err != nil {
		return err
	}
	if !accepted {
		return ErrSendFailed
	}

	return nil
}

func deliveryBody(inv *invoices.Invoice, company *billing.Company, recipientName string) string {
	return fmt.Sprintf(
		"Hi %s,\n\nPlease find invoice %s for %s attached, covering %s to %s.\n\nThank you for your business.\n",
		recipientName, inv.InvoiceNumber, company.Name,
		inv.PeriodStart.Format("2006-01-02"), inv.PeriodEnd.Format("2006-01-02"))
}

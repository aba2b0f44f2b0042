package jobs

import (
	"context"
	"time"
)

// Status represents the state of a job
type Status string

const (
	StatusProcessing Status = "processing"
	StatusCompleted  Status = "completed"
	StatusFailed     Status = "failed"
)

// Terminal reports whether the job can no longer change state.
func (s Status) Terminal() bool {
	return s == StatusCompleted || s == StatusFailed
}

// StepType identifies the kind of pipeline work a step performed
type StepType string

const (
	StepTypePDFGeneration StepType = "pdf_generation"
	StepTypeEmailSend     StepType = "email_send"
)

// StepStatus is the reported state of one step
type StepStatus string

const (
	StepStatusStarted   StepStatus = "started"
	StepStatusCompleted StepStatus = "completed"
)

// JobTypeSendInvoices is the job type for the invoice delivery pipeline
const JobTypeSendInvoices = "send_invoices"

// Job represents one asynchronous batch of pipeline work
type Job struct {
	ID           string     `json:"id"`
	TenantID     int64      `json:"tenant_id"`
	Type         string     `json:"type"`
	Status       Status     `json:"status"`
	InvoiceIDs   []int64    `json:"invoice_ids"`
	Steps        []JobStep  `json:"steps,omitempty"`
	ErrorMessage string     `json:"error_message,omitempty"`
	CreatedAt    time.Time  `json:"created_at"`
	StartedAt    *time.Time `json:"started_at,omitempty"`
	CompletedAt  *time.Time `json:"completed_at,omitempty"`
}

// JobStep is one recorded step result. FileID is set on completed
// render steps, RecipientEmail on completed delivery steps.
type JobStep struct {
	ID             int64      `json:"id"`
	JobID          string     `json:"job_id"`
	Name           string     `json:"name"`
	Type           StepType   `json:"type"`
	InvoiceID      int64      `json:"invoice_id"`
	Status         StepStatus `json:"status"`
	Detail         string     `json:"detail,omitempty"`
	FileID         string     `json:"file_id,omitempty"`
	RecipientEmail string     `json:"recipient_email,omitempty"`
	CreatedAt      time.Time  `json:"created_at"`
}

// StepResult carries the completion fields for a finished step
type StepResult struct {
	Detail         string
	FileID         string
	RecipientEmail string
}

// Service defines the interface for job state operations
type Service interface {
	// CreateJob records a new processing job for a batch of invoices.
	CreateJob(ctx context.Context, tenantID int64, jobType string, invoiceIDs []int64) (*Job, error)

	// GetJob retrieves a job with its ordered step history.
	GetJob(ctx context.Context, tenantID int64, jobID string) (*Job, error)

	// AppendStep appends a started step to the job's history and
	// returns it with its assigned id.
	AppendStep(ctx context.Context, tenantID int64, jobID string, step JobStep) (*JobStep, error)

	// CompleteStep transitions a started step to completed with its
	// result fields.
	CompleteStep(ctx context.Context, tenantID int64, jobID string, stepID int64, result StepResult) error

	// MarkCompleted transitions the job to its terminal completed state.
	MarkCompleted(ctx context.Context, tenantID int64, jobID string) error

	// MarkFailed transitions the job to its terminal failed state with a message.
	MarkFailed(ctx context.Context, tenantID int64, jobID string, message string) error
}

package jobs

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"
)

// PostgresService implements Service using PostgreSQL
type PostgresService struct {
	db *sql.DB
}

// NewPostgresService creates a new PostgreSQL-backed job service
func NewPostgresService(db *sql.DB) *PostgresService {
	return &PostgresService{db: db}
}

var _ Service = (*PostgresService)(nil)

// CreateJob records a new processing job for a batch of invoices
func (s *PostgresService) CreateJob(ctx context.Context, tenantID int64, jobType string, invoiceIDs []int64) (*Job, error) {
	job := &Job{
		ID:         uuid.New().String(),
		TenantID:   tenantID,
		Type:       jobType,
		Status:     StatusProcessing,
		InvoiceIDs: invoiceIDs,
	}

	now := time.Now().UTC()
	err := s.db.QueryRowContext(ctx, `
		INSERT INTO jobs (id, tenant_id, job_type, status, invoice_ids, started_at)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING created_at
	`, job.ID, tenantID, jobType, job.Status, pq.Array(invoiceIDs), now).Scan(&job.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("failed to create job: %w", err)
	}
	job.StartedAt = &now

	return job, nil
}

// GetJob retrieves a job with its ordered step history
func (s *PostgresService) GetJob(ctx context.Context, tenantID int64, jobID string) (*Job, error) {
	job := &Job{}
	var invoiceIDs pq.Int64Array
	err := s.db.QueryRowContext(ctx, `
		SELECT id, tenant_id, job_type, status, invoice_ids, error_message,
		       created_at, started_at, completed_at
		FROM jobs
		WHERE tenant_id = $1 AND id = $2
	`, tenantID, jobID).Scan(
		&job.ID, &job.TenantID, &job.Type, &job.Status, &invoiceIDs,
		&job.ErrorMessage, &job.CreatedAt, &job.StartedAt, &job.CompletedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrJobNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get job: %w", err)
	}
	job.InvoiceIDs = invoiceIDs

	steps, err := s.steps(ctx, tenantID, jobID)
	if err != nil {
		return nil, err
	}
	job.Steps = steps

	return job, nil
}

// AppendStep appends a started step to the job's history
func (s *PostgresService) AppendStep(ctx context.Context, tenantID int64, jobID string, step JobStep) (*JobStep, error) {
	step.JobID = jobID
	if step.Status == "" {
		step.Status = StepStatusStarted
	}
	err := s.db.QueryRowContext(ctx, `
		INSERT INTO job_steps (job_id, tenant_id, step_name, step_type, invoice_id,
		                       status, detail, file_id, recipient_email)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		RETURNING id, created_at
	`, jobID, tenantID, step.Name, step.Type, step.InvoiceID,
		step.Status, step.Detail, step.FileID, step.RecipientEmail).Scan(&step.ID, &step.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("failed to append job step: %w", err)
	}
	return &step, nil
}

// CompleteStep transitions a started step to completed with its result fields
func (s *PostgresService) CompleteStep(ctx context.Context, tenantID int64, jobID string, stepID int64, result StepResult) error {
	res, err := s.db.ExecContext(ctx, `
		UPDATE job_steps
		SET status = $1, detail = $2, file_id = $3, recipient_email = $4
		WHERE tenant_id = $5 AND job_id = $6 AND id = $7 AND status = $8
	`, StepStatusCompleted, result.Detail, result.FileID, result.RecipientEmail,
		tenantID, jobID, stepID, StepStatusStarted)
	if err != nil {
		return fmt.Errorf("failed to complete job step: %w", err)
	}

	rows, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to check step update: %w", err)
	}
	if rows == 0 {
		return ErrStepNotFound
	}

	return nil
}

// MarkCompleted transitions the job to its terminal completed state
func (s *PostgresService) MarkCompleted(ctx context.Context, tenantID int64, jobID string) error {
	return s.finish(ctx, tenantID, jobID, StatusCompleted, "")
}

// MarkFailed transitions the job to its terminal failed state with a message
func (s *PostgresService) MarkFailed(ctx context.Context, tenantID int64, jobID string, message string) error {
	return s.finish(ctx, tenantID, jobID, StatusFailed, message)
}

func (s *PostgresService) finish(ctx context.Context, tenantID int64, jobID string, status Status, message string) error {
	result, err := s.db.ExecContext(ctx, `
		UPDATE jobs
		SET status = $1, error_message = $2, completed_at = NOW()
		WHERE tenant_id = $3 AND id = $4 AND status = $5
	`, status, message, tenantID, jobID, StatusProcessing)
	if err != nil {
		return fmt.Errorf("failed to update job status: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to check job update: %w", err)
	}
	if rows == 0 {
		return ErrJobNotFound
	}

	return nil
}

func (s *PostgresService) steps(ctx context.Context, tenantID int64, jobID string) ([]JobStep, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, job_id, step_name, step_type, invoice_id, status,
		       detail, file_id, recipient_email, created_at
		FROM job_steps
		WHERE tenant_id = $1 AND job_id = $2
		ORDER BY id ASC
	`, tenantID, jobID)
	if err != nil {
		return nil, fmt.Errorf("failed to list job steps: %w", err)
	}
	defer rows.Close()

	var steps []JobStep
	for rows.Next() {
		var step JobStep
		if err := rows.Scan(
			&step.ID, &step.JobID, &step.Name, &step.Type, &step.InvoiceID,
			&step.Status, &step.Detail, &step.FileID, &step.RecipientEmail,
			&step.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("failed to scan job step: %w", err)
		}
		steps = append(steps, step)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate job steps: %w", err)
	}

	return steps, nil
}

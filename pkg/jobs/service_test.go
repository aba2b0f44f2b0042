package jobs

import (
	"context"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPostgresCreateJob(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectQuery("INSERT INTO jobs").
		WithArgs(sqlmock.AnyArg(), int64(1), JobTypeSendInvoices, StatusProcessing,
			pq.Array([]int64{10, 11}), sqlmock.AnyArg()).
		WillReturnRows(sqlmock.NewRows([]string{"created_at"}).AddRow(time.Now()))

	service := NewPostgresService(db)

	job, err := service.CreateJob(context.Background(), 1, JobTypeSendInvoices, []int64{10, 11})
	require.NoError(t, err)
	assert.NotEmpty(t, job.ID)
	assert.Equal(t, StatusProcessing, job.Status)
	assert.Equal(t, []int64{10, 11}, job.InvoiceIDs)
	assert.NotNil(t, job.StartedAt)

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresGetJob(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	jobID := "5f9c2c6a-0b1e-4a3a-9f5d-1c2d3e4f5a6b"
	now := time.Now()

	mock.ExpectQuery("SELECT (.+) FROM jobs").
		WithArgs(int64(1), jobID).
		WillReturnRows(sqlmock.NewRows([]string{
			"id", "tenant_id", "job_type", "status", "invoice_ids",
			"error_message", "created_at", "started_at", "completed_at",
		}).AddRow(jobID, int64(1), JobTypeSendInvoices, "completed",
			pq.Array([]int64{10}), "", now, now, now))

	mock.ExpectQuery("SELECT (.+) FROM job_steps").
		WithArgs(int64(1), jobID).
		WillReturnRows(sqlmock.NewRows([]string{
			"id", "job_id", "step_name", "step_type", "invoice_id", "status",
			"detail", "file_id", "recipient_email", "created_at",
		}).
			AddRow(int64(1), jobID, "Generate PDF for INV-1-000010", "pdf_generation",
				int64(10), "completed", "pdf stored", "file-1", "", now).
			AddRow(int64(2), jobID, "Email INV-1-000010", "email_send",
				int64(10), "completed", "invoice emailed", "", "ap@acme.example", now))

	service := NewPostgresService(db)

	job, err := service.GetJob(context.Background(), 1, jobID)
	require.NoError(t, err)
	assert.Equal(t, StatusCompleted, job.Status)
	assert.Equal(t, []int64{10}, job.InvoiceIDs)
	require.Len(t, job.Steps, 2)
	assert.Equal(t, StepTypePDFGeneration, job.Steps[0].Type)
	assert.Equal(t, "file-1", job.Steps[0].FileID)
	assert.Equal(t, StepTypeEmailSend, job.Steps[1].Type)
	assert.Equal(t, "ap@acme.example", job.Steps[1].RecipientEmail)

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresGetJobNotFound(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectQuery("SELECT (.+) FROM jobs").
		WithArgs(int64(1), "missing").
		WillReturnRows(sqlmock.NewRows([]string{
			"id", "tenant_id", "job_type", "status", "invoice_ids",
			"error_message", "created_at", "started_at", "completed_at",
		}))

	service := NewPostgresService(db)

	_, err = service.GetJob(context.Background(), 1, "missing")
	assert.ErrorIs(t, err, ErrJobNotFound)

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresAppendAndCompleteStep(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	jobID := "5f9c2c6a-0b1e-4a3a-9f5d-1c2d3e4f5a6b"

	mock.ExpectQuery("INSERT INTO job_steps").
		WithArgs(jobID, int64(1), "Generate PDF for INV-1-000010", string(StepTypePDFGeneration),
			int64(10), StepStatusStarted, "rendering invoice", "", "").
		WillReturnRows(sqlmock.NewRows([]string{"id", "created_at"}).AddRow(int64(7), time.Now()))

	mock.ExpectExec("UPDATE job_steps").
		WithArgs(StepStatusCompleted, "pdf stored", "file-1", "",
			int64(1), jobID, int64(7), StepStatusStarted).
		WillReturnResult(sqlmock.NewResult(0, 1))

	service := NewPostgresService(db)

	step, err := service.AppendStep(context.Background(), 1, jobID, JobStep{
		Name:      "Generate PDF for INV-1-000010",
		Type:      StepTypePDFGeneration,
		InvoiceID: 10,
		Detail:    "rendering invoice",
	})
	require.NoError(t, err)
	assert.Equal(t, int64(7), step.ID)
	assert.Equal(t, StepStatusStarted, step.Status)

	err = service.CompleteStep(context.Background(), 1, jobID, step.ID, StepResult{
		Detail: "pdf stored",
		FileID: "file-1",
	})
	require.NoError(t, err)

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresCompleteStepNotFound(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectExec("UPDATE job_steps").
		WillReturnResult(sqlmock.NewResult(0, 0))

	service := NewPostgresService(db)

	err = service.CompleteStep(context.Background(), 1, "job", 99, StepResult{})
	assert.ErrorIs(t, err, ErrStepNotFound)
}

func TestPostgresMarkTerminal(t *testing.T) {
	t.Run("mark failed records the message", func(t *testing.T) {
		db, mock, err := sqlmock.New()
		require.NoError(t, err)
		defer db.Close()

		mock.ExpectExec("UPDATE jobs").
			WithArgs(StatusFailed, "invoice INV-1-000010 (company Acme Corp): email delivery failed",
				int64(1), "job-1", StatusProcessing).
			WillReturnResult(sqlmock.NewResult(0, 1))

		service := NewPostgresService(db)
		err = service.MarkFailed(context.Background(), 1, "job-1",
			"invoice INV-1-000010 (company Acme Corp): email delivery failed")
		require.NoError(t, err)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("already terminal job is not found", func(t *testing.T) {
		db, mock, err := sqlmock.New()
		require.NoError(t, err)
		defer db.Close()

		mock.ExpectExec("UPDATE jobs").
			WillReturnResult(sqlmock.NewResult(0, 0))

		service := NewPostgresService(db)
		err = service.MarkCompleted(context.Background(), 1, "job-1")
		assert.ErrorIs(t, err, ErrJobNotFound)
	})
}

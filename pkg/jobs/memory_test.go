package jobs

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInMemoryJobLifecycle(t *testing.T) {
	service := NewInMemoryService()
	ctx := context.Background()

	job, err := service.CreateJob(ctx, 1, JobTypeSendInvoices, []int64{10, 11})
	require.NoError(t, err)
	assert.Equal(t, StatusProcessing, job.Status)
	assert.NotNil(t, job.StartedAt)

	step, err := service.AppendStep(ctx, 1, job.ID, JobStep{
		Name:      "Generate PDF for INV-1-000010",
		Type:      StepTypePDFGeneration,
		InvoiceID: 10,
	})
	require.NoError(t, err)
	assert.Equal(t, StepStatusStarted, step.Status)

	err = service.CompleteStep(ctx, 1, job.ID, step.ID, StepResult{FileID: "file-1"})
	require.NoError(t, err)

	err = service.MarkCompleted(ctx, 1, job.ID)
	require.NoError(t, err)

	got, err := service.GetJob(ctx, 1, job.ID)
	require.NoError(t, err)
	assert.Equal(t, StatusCompleted, got.Status)
	assert.NotNil(t, got.CompletedAt)
	require.Len(t, got.Steps, 1)
	assert.Equal(t, StepStatusCompleted, got.Steps[0].Status)
	assert.Equal(t, "file-1", got.Steps[0].FileID)
}

func TestInMemoryTenantIsolation(t *testing.T) {
	service := NewInMemoryService()
	ctx := context.Background()

	job, err := service.CreateJob(ctx, 1, JobTypeSendInvoices, []int64{10})
	require.NoError(t, err)

	_, err = service.GetJob(ctx, 2, job.ID)
	assert.ErrorIs(t, err, ErrJobNotFound)

	_, err = service.AppendStep(ctx, 2, job.ID, JobStep{Type: StepTypePDFGeneration})
	assert.ErrorIs(t, err, ErrJobNotFound)

	err = service.MarkFailed(ctx, 2, job.ID, "nope")
	assert.ErrorIs(t, err, ErrJobNotFound)
}

func TestInMemoryTerminalExactlyOnce(t *testing.T) {
	service := NewInMemoryService()
	ctx := context.Background()

	job, err := service.CreateJob(ctx, 1, JobTypeSendInvoices, []int64{10})
	require.NoError(t, err)

	require.NoError(t, service.MarkFailed(ctx, 1, job.ID, "boom"))

	// A terminal job cannot transition again
	assert.ErrorIs(t, service.MarkCompleted(ctx, 1, job.ID), ErrJobNotFound)
	assert.ErrorIs(t, service.MarkFailed(ctx, 1, job.ID, "again"), ErrJobNotFound)

	got, err := service.GetJob(ctx, 1, job.ID)
	require.NoError(t, err)
	assert.Equal(t, StatusFailed, got.Status)
	assert.Equal(t, "boom", got.ErrorMessage)
}

func TestInMemoryCompleteStepRequiresStartedStep(t *testing.T) {
	service := NewInMemoryService()
	ctx := context.Background()

	job, err := service.CreateJob(ctx, 1, JobTypeSendInvoices, []int64{10})
	require.NoError(t, err)

	step, err := service.AppendStep(ctx, 1, job.ID, JobStep{Type: StepTypeEmailSend, InvoiceID: 10})
	require.NoError(t, err)
	require.NoError(t, service.CompleteStep(ctx, 1, job.ID, step.ID, StepResult{RecipientEmail: "ap@acme.example"}))

	assert.ErrorIs(t, service.CompleteStep(ctx, 1, job.ID, step.ID, StepResult{}), ErrStepNotFound)
	assert.ErrorIs(t, service.CompleteStep(ctx, 1, job.ID, 999, StepResult{}), ErrStepNotFound)
}

func TestInMemoryGetJobReturnsCopies(t *testing.T) {
	service := NewInMemoryService()
	ctx := context.Background()

	job, err := service.CreateJob(ctx, 1, JobTypeSendInvoices, []int64{10})
	require.NoError(t, err)

	got, err := service.GetJob(ctx, 1, job.ID)
	require.NoError(t, err)
	got.Status = StatusFailed
	got.InvoiceIDs[0] = 999

	again, err := service.GetJob(ctx, 1, job.ID)
	require.NoError(t, err)
	assert.Equal(t, StatusProcessing, again.Status)
	assert.Equal(t, []int64{10}, again.InvoiceIDs)
}

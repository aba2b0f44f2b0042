package jobs

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
)

// InMemoryService implements Service with an in-process map. It is
// used by tests and by single-node deployments that do not need job
// history to survive restarts.
type InMemoryService struct {
	mu     sync.RWMutex
	jobs   map[string]*Job
	nextID int64
}

// NewInMemoryService creates an empty in-memory job service
func NewInMemoryService() *InMemoryService {
	return &InMemoryService{jobs: make(map[string]*Job)}
}

var _ Service = (*InMemoryService)(nil)

// CreateJob records a new processing job for a batch of invoices
func (s *InMemoryService) CreateJob(ctx context.Context, tenantID int64, jobType string, invoiceIDs []int64) (*Job, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := time.Now().UTC()
	job := &Job{
		ID:         uuid.New().String(),
		TenantID:   tenantID,
		Type:       jobType,
		Status:     StatusProcessing,
		InvoiceIDs: append([]int64(nil), invoiceIDs...),
		CreatedAt:  now,
		StartedAt:  &now,
	}
	s.jobs[job.ID] = job

	return copyJob(job), nil
}

// GetJob retrieves a job with its ordered step history
func (s *InMemoryService) GetJob(ctx context.Context, tenantID int64, jobID string) (*Job, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	job, ok := s.jobs[jobID]
	if !ok || job.TenantID != tenantID {
		return nil, ErrJobNotFound
	}
	return copyJob(job), nil
}

// AppendStep appends a started step to the job's history
func (s *InMemoryService) AppendStep(ctx context.Context, tenantID int64, jobID string, step JobStep) (*JobStep, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	job, ok := s.jobs[jobID]
	if !ok || job.TenantID != tenantID {
		return nil, ErrJobNotFound
	}

	s.nextID++
	step.ID = s.nextID
	step.JobID = jobID
	if step.Status == "" {
		step.Status = StepStatusStarted
	}
	step.CreatedAt = time.Now().UTC()
	job.Steps = append(job.Steps, step)

	out := step
	return &out, nil
}

// CompleteStep transitions a started step to completed with its result fields
func (s *InMemoryService) CompleteStep(ctx context.Context, tenantID int64, jobID string, stepID int64, result StepResult) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	job, ok := s.jobs[jobID]
	if !ok || job.TenantID != tenantID {
		return ErrJobNotFound
	}

	for i := range job.Steps {
		step := &job.Steps[i]
		if step.ID != stepID || step.Status != StepStatusStarted {
			continue
		}
		step.Status = StepStatusCompleted
		step.Detail = result.Detail
		step.FileID = result.FileID
		step.RecipientEmail = result.RecipientEmail
		return nil
	}

	return ErrStepNotFound
}

// MarkCompleted transitions the job to its terminal completed state
func (s *InMemoryService) MarkCompleted(ctx context.Context, tenantID int64, jobID string) error {
	return s.finish(tenantID, jobID, StatusCompleted, "")
}

// MarkFailed transitions the job to its terminal failed state with a message
func (s *InMemoryService) MarkFailed(ctx context.Context, tenantID int64, jobID string, message string) error {
	return s.finish(tenantID, jobID, StatusFailed, message)
}

func (s *InMemoryService) finish(tenantID int64, jobID string, status Status, message string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	job, ok := s.jobs[jobID]
	if !ok || job.TenantID != tenantID || job.Status.Terminal() {
		return ErrJobNotFound
	}

	now := time.Now().UTC()
	job.Status = status
	job.ErrorMessage = message
	job.CompletedAt = &now

	return nil
}

func copyJob(job *Job) *Job {
	out := *job
	out.InvoiceIDs = append([]int64(nil), job.InvoiceIDs...)
	out.Steps = append([]JobStep(nil), job.Steps...)
	return &out
}

package controller

import (
	"context"
	"fmt"

	e "github.com/gartstein/jobboard/internal/jobboard/errors"
	"github.com/gartstein/jobboard/internal/jobboard/events"
	"github.com/gartstein/jobboard/internal/jobboard/models"
	"github.com/gartstein/jobboard/internal/jobboard/policy"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// CreateJobInput describes a new posting. CompanyID defaults to the
// caller's stored company.
type CreateJobInput struct {
	Title       string     `json:"title" validate:"required,max=200"`
	Description string     `json:"description" validate:"required,max=5000"`
	CompanyID   *uuid.UUID `json:"companyId"`
}

type JobService struct {
	repo     Repository
	producer EventProducer
	logger   *zap.Logger
}

func NewJobService(repo Repository, producer EventProducer, logger *zap.Logger) *JobService {
	return &JobService{
		repo:     repo,
		producer: producer,
		logger:   logger.Named("job_service"),
	}
}

// ListOpen returns every open job.
func (s *JobService) ListOpen(ctx context.Context, p models.Principal) ([]*models.Job, error) {
	if err := authenticated(p); err != nil {
		return nil, err
	}
	if err := policy.Require(p, policy.JobRead, policy.Target{}); err != nil {
		return nil, err
	}
	jobs, err := s.repo.ListOpenJobs(ctx, models.JobFilter{})
	if err != nil {
		return nil, fmt.Errorf("failed to list jobs: %w", err)
	}
	return jobs, nil
}

// ListCompany returns the open jobs of one company.
func (s *JobService) ListCompany(ctx context.Context, p models.Principal, companyID uuid.UUID) ([]*models.Job, error) {
	if err := authenticated(p); err != nil {
		return nil, err
	}
	current, err := currentPrincipal(ctx, s.repo, p)
	if err != nil {
		return nil, err
	}
	if _, err := s.repo.GetCompany(ctx, companyID); err != nil {
		return nil, lookupErr("company", err)
	}
	if err := policy.Require(current, policy.JobListCompany, companyTarget(companyID)); err != nil {
		return nil, err
	}
	jobs, err := s.repo.ListOpenJobs(ctx, models.JobFilter{CompanyID: &companyID})
	if err != nil {
		return nil, fmt.Errorf("failed to list jobs: %w", err)
	}
	return jobs, nil
}

// Get returns a job, open or closed, with its active application count.
func (s *JobService) Get(ctx context.Context, p models.Principal, id uuid.UUID) (*models.Job, error) {
	if err := authenticated(p); err != nil {
		return nil, err
	}
	job, err := s.repo.GetJob(ctx, id)
	if err != nil {
		return nil, lookupErr("job", err)
	}
	if err := policy.Require(p, policy.JobRead, companyTarget(job.CompanyID)); err != nil {
		return nil, err
	}
	count, err := s.repo.CountJobApplications(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to count applications: %w", err)
	}
	job.ApplicationsCount = count
	return job, nil
}

func (s *JobService) Create(ctx context.Context, p models.Principal, in CreateJobInput) (*models.Job, error) {
	if err := validateInput(in); err != nil {
		return nil, err
	}
	if err := authenticated(p); err != nil {
		return nil, err
	}
	current, err := currentPrincipal(ctx, s.repo, p)
	if err != nil {
		return nil, err
	}
	companyID := in.CompanyID
	if companyID == nil {
		companyID = current.CompanyID
	}
	if companyID == nil {
		return nil, fmt.Errorf("%w: companyId is required", e.ErrInvalidInput)
	}

	company, err := s.repo.GetCompany(ctx, *companyID)
	if err != nil {
		return nil, lookupErr("company", err)
	}
	if err := policy.Require(current, policy.JobCreate, companyTarget(*companyID)); err != nil {
		return nil, err
	}

	job := &models.Job{
		Title:       in.Title,
		Description: in.Description,
		CompanyID:   *companyID,
		Status:      models.JobOpen,
	}
	if err := s.repo.CreateJob(ctx, job); err != nil {
		return nil, fmt.Errorf("failed to create job: %w", err)
	}
	job.Company = company

	s.producer.Produce(events.NewEvent(events.JobCreated, job.ID, p.UserID, map[string]string{
		"title":     job.Title,
		"companyId": job.CompanyID.String(),
	}))
	return job, nil
}

// Close stops a job from accepting applications. Closing a closed job
// fails with ErrResourceUnavailable.
func (s *JobService) Close(ctx context.Context, p models.Principal, id uuid.UUID) (*models.Job, error) {
	if err := authenticated(p); err != nil {
		return nil, err
	}
	current, err := currentPrincipal(ctx, s.repo, p)
	if err != nil {
		return nil, err
	}
	job, err := s.repo.GetJob(ctx, id)
	if err != nil {
		return nil, lookupErr("job", err)
	}
	if err := policy.Require(current, policy.JobClose, companyTarget(job.CompanyID)); err != nil {
		return nil, err
	}
	if !job.IsOpen() {
		return nil, fmt.Errorf("%w: job is already closed", e.ErrResourceUnavailable)
	}

	if err := s.repo.SetJobStatus(ctx, id, models.JobClosed); err != nil {
		return nil, fmt.Errorf("failed to close job: %w", err)
	}
	job.Status = models.JobClosed

	s.producer.Produce(events.NewEvent(events.JobClosed, id, p.UserID, map[string]string{
		"companyId": job.CompanyID.String(),
	}))
	return job, nil
}

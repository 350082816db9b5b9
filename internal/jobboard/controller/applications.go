package controller

import (
	"context"
	"errors"
	"fmt"

	e "github.com/gartstein/jobboard/internal/jobboard/errors"
	"github.com/gartstein/jobboard/internal/jobboard/events"
	"github.com/gartstein/jobboard/internal/jobboard/models"
	"github.com/gartstein/jobboard/internal/jobboard/policy"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

var errJobUnavailable = fmt.Errorf("%w: job is not accepting applications", e.ErrResourceUnavailable)

// ApplyInput names the job to apply to. UserID lets an ADMIN apply on
// behalf of another account; it defaults to the caller.
type ApplyInput struct {
	JobID  uuid.UUID  `json:"jobId"`
	UserID *uuid.UUID `json:"userId"`
}

type ApplicationService struct {
	repo     Repository
	producer EventProducer
	logger   *zap.Logger
}

func NewApplicationService(repo Repository, producer EventProducer, logger *zap.Logger) *ApplicationService {
	return &ApplicationService{
		repo:     repo,
		producer: producer,
		logger:   logger.Named("application_service"),
	}
}

// List returns the active applications of userID, or of the caller when
// userID is nil.
func (s *ApplicationService) List(ctx context.Context, p models.Principal, userID *uuid.UUID) ([]*models.Application, error) {
	if err := authenticated(p); err != nil {
		return nil, err
	}
	owner := p.UserID
	if userID != nil {
		owner = *userID
	}
	if err := policy.Require(p, policy.ApplicationList, policy.Target{UserID: &owner}); err != nil {
		return nil, err
	}
	apps, err := s.repo.ListUserApplications(ctx, owner)
	if err != nil {
		return nil, fmt.Errorf("failed to list applications: %w", err)
	}
	return apps, nil
}

// Create applies to an open job. A missing, deleted or closed job fails
// with ErrResourceUnavailable for every caller; a second active
// application for the same pair fails with ErrConflict.
func (s *ApplicationService) Create(ctx context.Context, p models.Principal, in ApplyInput) (*models.Application, error) {
	if in.JobID == uuid.Nil {
		return nil, fmt.Errorf("%w: jobId is required", e.ErrInvalidInput)
	}
	if in.UserID != nil && *in.UserID == uuid.Nil {
		return nil, fmt.Errorf("%w: userId is invalid", e.ErrInvalidInput)
	}
	if err := authenticated(p); err != nil {
		return nil, err
	}
	applicant := p.UserID
	if in.UserID != nil {
		applicant = *in.UserID
	}

	job, err := s.repo.GetJob(ctx, in.JobID)
	if err != nil {
		if errors.Is(err, e.ErrNotFound) {
			return nil, errJobUnavailable
		}
		return nil, lookupErr("job", err)
	}
	if !job.IsOpen() {
		return nil, errJobUnavailable
	}
	if err := policy.Require(p, policy.ApplicationCreate, policy.Target{UserID: &applicant}); err != nil {
		return nil, err
	}
	if !p.Is(applicant) {
		if _, err := s.repo.GetUser(ctx, applicant); err != nil {
			return nil, lookupErr("user", err)
		}
	}

	exists, err := s.repo.ActiveApplicationExists(ctx, applicant, job.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to check application existence: %w", err)
	}
	if exists {
		return nil, fmt.Errorf("%w: already applied to this job", e.ErrConflict)
	}

	app := &models.Application{UserID: applicant, JobID: job.ID}
	if err := s.repo.CreateApplication(ctx, app); err != nil {
		if errors.Is(err, e.ErrConflict) {
			return nil, fmt.Errorf("%w: already applied to this job", e.ErrConflict)
		}
		return nil, fmt.Errorf("failed to create application: %w", err)
	}
	app.Job = job

	s.producer.Produce(events.NewEvent(events.ApplicationCreated, app.ID, p.UserID, map[string]string{
		"userId": applicant.String(),
		"jobId":  job.ID.String(),
	}))
	return app, nil
}

// Cancel soft-deletes an application.
func (s *ApplicationService) Cancel(ctx context.Context, p models.Principal, id uuid.UUID) error {
	if err := authenticated(p); err != nil {
		return err
	}
	app, err := s.repo.GetApplication(ctx, id)
	if err != nil {
		return lookupErr("application", err)
	}
	if err := policy.Require(p, policy.ApplicationCancel, policy.Target{UserID: &app.UserID}); err != nil {
		return err
	}

	if err := s.repo.DeleteApplication(ctx, id); err != nil {
		if errors.Is(err, e.ErrNotFound) {
			return lookupErr("application", err)
		}
		return fmt.Errorf("failed to cancel application: %w", err)
	}
	s.producer.Produce(events.NewEvent(events.ApplicationCancelled, id, p.UserID, map[string]string{
		"userId": app.UserID.String(),
		"jobId":  app.JobID.String(),
	}))
	return nil
}

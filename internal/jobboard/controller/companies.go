package controller

import (
	"context"
	"errors"
	"fmt"

	"github.com/gartstein/jobboard/internal/jobboard/db"
	e "github.com/gartstein/jobboard/internal/jobboard/errors"
	"github.com/gartstein/jobboard/internal/jobboard/events"
	"github.com/gartstein/jobboard/internal/jobboard/models"
	"github.com/gartstein/jobboard/internal/jobboard/policy"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

type CreateCompanyInput struct {
	Name string `json:"name" validate:"required,max=120"`
	CNPJ string `json:"cnpj" validate:"required,len=14,numeric"`
}

type UpdateCompanyInput struct {
	Name *string `json:"name" validate:"omitempty,min=1,max=120"`
	CNPJ *string `json:"cnpj" validate:"omitempty,len=14,numeric"`
}

// CompanyService manages companies and their member accounts.
type CompanyService struct {
	repo     Repository
	producer EventProducer
	logger   *zap.Logger
}

func NewCompanyService(repo Repository, producer EventProducer, logger *zap.Logger) *CompanyService {
	return &CompanyService{
		repo:     repo,
		producer: producer,
		logger:   logger.Named("company_service"),
	}
}

func companyTarget(id uuid.UUID) policy.Target {
	return policy.Target{CompanyID: &id}
}

func (s *CompanyService) List(ctx context.Context, p models.Principal) ([]*models.Company, error) {
	if err := authenticated(p); err != nil {
		return nil, err
	}
	if err := policy.Require(p, policy.CompanyRead, policy.Target{}); err != nil {
		return nil, err
	}
	companies, err := s.repo.ListCompanies(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list companies: %w", err)
	}
	return companies, nil
}

func (s *CompanyService) Get(ctx context.Context, p models.Principal, id uuid.UUID) (*models.Company, error) {
	if err := authenticated(p); err != nil {
		return nil, err
	}
	company, err := s.repo.GetCompany(ctx, id)
	if err != nil {
		return nil, lookupErr("company", err)
	}
	if err := policy.Require(p, policy.CompanyRead, companyTarget(id)); err != nil {
		return nil, err
	}
	return company, nil
}

// Create adds a company. A COMPANY_ADMIN creator is attached to it in the
// same transaction; the new membership shows up in tokens issued after the
// next login and is honored by company-scoped operations right away.
func (s *CompanyService) Create(ctx context.Context, p models.Principal, in CreateCompanyInput) (*models.Company, error) {
	in.CNPJ = normalizeCNPJ(in.CNPJ)
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
	if err := policy.Require(current, policy.CompanyCreate, policy.Target{}); err != nil {
		return nil, err
	}

	exists, err := s.repo.CNPJExists(ctx, in.CNPJ)
	if err != nil {
		return nil, fmt.Errorf("failed to check cnpj existence: %w", err)
	}
	if exists {
		return nil, fmt.Errorf("%w: cnpj already registered", e.ErrConflict)
	}

	company := &models.Company{Name: in.Name, CNPJ: in.CNPJ}
	attach := current.Role.IsCompanyRole()
	err = s.repo.WithTransaction(ctx, func(tx *db.Repository) error {
		if err := tx.CreateCompany(ctx, company); err != nil {
			return err
		}
		if attach {
			return tx.SetUserCompany(ctx, current.UserID, &company.ID)
		}
		return nil
	})
	if err != nil {
		if errors.Is(err, e.ErrConflict) {
			return nil, fmt.Errorf("%w: cnpj already registered", e.ErrConflict)
		}
		return nil, fmt.Errorf("failed to create company: %w", err)
	}

	s.producer.Produce(events.NewEvent(events.CompanyCreated, company.ID, p.UserID, map[string]string{
		"name": company.Name,
		"cnpj": company.CNPJ,
	}))
	if attach {
		s.producer.Produce(events.NewEvent(events.CompanyUserAttached, company.ID, p.UserID, map[string]string{
			"userId": current.UserID.String(),
		}))
	}
	return company, nil
}

func (s *CompanyService) Update(ctx context.Context, p models.Principal, id uuid.UUID, in UpdateCompanyInput) (*models.Company, error) {
	if in.CNPJ != nil {
		cnpj := normalizeCNPJ(*in.CNPJ)
		in.CNPJ = &cnpj
	}
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

	company, err := s.repo.GetCompany(ctx, id)
	if err != nil {
		return nil, lookupErr("company", err)
	}
	if err := policy.Require(current, policy.CompanyUpdate, companyTarget(id)); err != nil {
		return nil, err
	}

	if in.CNPJ != nil && *in.CNPJ != company.CNPJ {
		exists, err := s.repo.CNPJExists(ctx, *in.CNPJ)
		if err != nil {
			return nil, fmt.Errorf("failed to check cnpj existence: %w", err)
		}
		if exists {
			return nil, fmt.Errorf("%w: cnpj already registered", e.ErrConflict)
		}
	}

	err = s.repo.UpdateCompany(ctx, &models.CompanyUpdate{ID: id, Name: in.Name, CNPJ: in.CNPJ})
	if err != nil {
		if errors.Is(err, e.ErrConflict) {
			return nil, fmt.Errorf("%w: cnpj already registered", e.ErrConflict)
		}
		if errors.Is(err, e.ErrNotFound) {
			return nil, err
		}
		return nil, fmt.Errorf("failed to update company: %w", err)
	}

	updated, err := s.repo.GetCompany(ctx, id)
	if err != nil {
		s.logger.Error("Failed to get company for event",
			zap.Error(err),
			zap.String("company_id", id.String()),
		)
		return nil, err
	}
	s.producer.Produce(events.NewEvent(events.CompanyUpdated, id, p.UserID, map[string]string{
		"name": updated.Name,
		"cnpj": updated.CNPJ,
	}))
	return updated, nil
}

// Delete soft-deletes a company and its jobs and detaches its members, in
// one transaction.
func (s *CompanyService) Delete(ctx context.Context, p models.Principal, id uuid.UUID) error {
	if err := authenticated(p); err != nil {
		return err
	}
	current, err := currentPrincipal(ctx, s.repo, p)
	if err != nil {
		return err
	}
	if _, err := s.repo.GetCompany(ctx, id); err != nil {
		return lookupErr("company", err)
	}
	if err := policy.Require(current, policy.CompanyDelete, companyTarget(id)); err != nil {
		return err
	}

	err = s.repo.WithTransaction(ctx, func(tx *db.Repository) error {
		if err := tx.DeleteCompanyJobs(ctx, id); err != nil {
			return err
		}
		if err := tx.DetachCompanyUsers(ctx, id); err != nil {
			return err
		}
		return tx.DeleteCompany(ctx, id)
	})
	if err != nil {
		if errors.Is(err, e.ErrNotFound) {
			return lookupErr("company", err)
		}
		return fmt.Errorf("failed to delete company: %w", err)
	}

	s.producer.Produce(events.NewEvent(events.CompanyDeleted, id, p.UserID, nil))
	return nil
}

// AttachUser links a COMPANY_ADMIN or COMPANY_HR account to the company.
// Attaching a user already in the company is a no-op.
func (s *CompanyService) AttachUser(ctx context.Context, p models.Principal, companyID, userID uuid.UUID) (*models.User, error) {
	user, err := s.membership(ctx, p, policy.CompanyAttachUser, companyID, userID)
	if err != nil {
		return nil, err
	}
	if user.CompanyID != nil {
		if *user.CompanyID == companyID {
			return user.Public(), nil
		}
		return nil, fmt.Errorf("%w: user already belongs to another company", e.ErrConflict)
	}

	if err := s.repo.SetUserCompany(ctx, userID, &companyID); err != nil {
		if errors.Is(err, e.ErrNotFound) {
			return nil, lookupErr("user", err)
		}
		return nil, fmt.Errorf("failed to attach user: %w", err)
	}
	user.CompanyID = &companyID

	s.producer.Produce(events.NewEvent(events.CompanyUserAttached, companyID, p.UserID, map[string]string{
		"userId": userID.String(),
	}))
	return user.Public(), nil
}

// DetachUser removes a member from the company.
func (s *CompanyService) DetachUser(ctx context.Context, p models.Principal, companyID, userID uuid.UUID) error {
	user, err := s.membership(ctx, p, policy.CompanyDetachUser, companyID, userID)
	if err != nil {
		return err
	}
	if user.CompanyID == nil || *user.CompanyID != companyID {
		return fmt.Errorf("%w: user is not attached to this company", e.ErrInvalidInput)
	}

	if err := s.repo.SetUserCompany(ctx, userID, nil); err != nil {
		if errors.Is(err, e.ErrNotFound) {
			return lookupErr("user", err)
		}
		return fmt.Errorf("failed to detach user: %w", err)
	}

	s.producer.Produce(events.NewEvent(events.CompanyUserDetached, companyID, p.UserID, map[string]string{
		"userId": userID.String(),
	}))
	return nil
}

// membership runs the shared part of attach and detach: reload the caller,
// fetch both sides, authorize, and reject accounts that cannot belong to a
// company.
func (s *CompanyService) membership(ctx context.Context, p models.Principal, action policy.Action,
	companyID, userID uuid.UUID) (*models.User, error) {
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
	user, err := s.repo.GetUser(ctx, userID)
	if err != nil {
		return nil, lookupErr("user", err)
	}

	target := policy.Target{CompanyID: &companyID, UserID: &userID, Role: user.Role}
	if err := policy.Require(current, action, target); err != nil {
		return nil, err
	}
	if !user.Role.IsCompanyRole() {
		return nil, fmt.Errorf("%w: only COMPANY_ADMIN and COMPANY_HR accounts belong to companies", e.ErrInvalidInput)
	}
	return user, nil
}

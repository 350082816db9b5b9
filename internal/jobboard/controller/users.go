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

type CreateUserInput struct {
	Name      string      `json:"name" validate:"required,max=100"`
	Email     string      `json:"email" validate:"required,email,max=254"`
	Password  string      `json:"password" validate:"required,min=6,max=72"`
	Role      models.Role `json:"role" validate:"required,oneof=ADMIN COMPANY_ADMIN COMPANY_HR USER"`
	CompanyID *uuid.UUID  `json:"companyId"`
}

// UpdateUserInput holds a partial update. Company membership is changed
// through CompanyService.AttachUser and DetachUser.
type UpdateUserInput struct {
	Name     *string      `json:"name" validate:"omitempty,min=1,max=100"`
	Email    *string      `json:"email" validate:"omitempty,email,max=254"`
	Password *string      `json:"password" validate:"omitempty,min=6,max=72"`
	Role     *models.Role `json:"role" validate:"omitempty,oneof=ADMIN COMPANY_ADMIN COMPANY_HR USER"`
}

// UserDetail is a user with its active applications. Applications is nil
// when the caller may not list them.
type UserDetail struct {
	User         *models.User
	Applications []*models.Application
}

type UserService struct {
	repo     Repository
	hasher   PasswordHasher
	producer EventProducer
	logger   *zap.Logger
}

func NewUserService(repo Repository, hasher PasswordHasher, producer EventProducer, logger *zap.Logger) *UserService {
	return &UserService{
		repo:     repo,
		hasher:   hasher,
		producer: producer,
		logger:   logger.Named("user_service"),
	}
}

func userTarget(u *models.User) policy.Target {
	return policy.Target{CompanyID: u.CompanyID, UserID: &u.ID, Role: u.Role}
}

// List returns every user to an ADMIN and the members of the caller's
// company to a COMPANY_ADMIN.
func (s *UserService) List(ctx context.Context, p models.Principal) ([]*models.User, error) {
	if err := authenticated(p); err != nil {
		return nil, err
	}
	current, err := currentPrincipal(ctx, s.repo, p)
	if err != nil {
		return nil, err
	}
	var filter models.UserFilter
	if !policy.Decide(current, policy.UserList, policy.Target{}).Allowed {
		if err := policy.Require(current, policy.UserList, policy.Target{CompanyID: current.CompanyID}); err != nil {
			return nil, err
		}
		filter.CompanyID = current.CompanyID
	}

	users, err := s.repo.ListUsers(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("failed to list users: %w", err)
	}
	out := make([]*models.User, 0, len(users))
	for _, u := range users {
		out = append(out, u.Public())
	}
	return out, nil
}

func (s *UserService) Get(ctx context.Context, p models.Principal, id uuid.UUID) (*UserDetail, error) {
	if err := authenticated(p); err != nil {
		return nil, err
	}
	current, err := currentPrincipal(ctx, s.repo, p)
	if err != nil {
		return nil, err
	}
	user, err := s.repo.GetUser(ctx, id)
	if err != nil {
		return nil, lookupErr("user", err)
	}
	if err := policy.Require(current, policy.UserRead, userTarget(user)); err != nil {
		return nil, err
	}

	detail := &UserDetail{User: user.Public()}
	if policy.Decide(current, policy.ApplicationList, policy.Target{UserID: &user.ID}).Allowed {
		apps, err := s.repo.ListUserApplications(ctx, user.ID)
		if err != nil {
			return nil, fmt.Errorf("failed to list applications: %w", err)
		}
		detail.Applications = apps
	}
	return detail, nil
}

// Create adds an account on behalf of an administrator. Company roles must
// name an existing company; ADMIN and USER accounts must not.
func (s *UserService) Create(ctx context.Context, p models.Principal, in CreateUserInput) (*models.User, error) {
	if err := validateInput(in); err != nil {
		return nil, err
	}
	if in.Role.IsCompanyRole() && in.CompanyID == nil {
		return nil, fmt.Errorf("%w: companyId is required for role %s", e.ErrInvalidInput, in.Role)
	}
	if !in.Role.IsCompanyRole() && in.CompanyID != nil {
		return nil, fmt.Errorf("%w: role %s cannot belong to a company", e.ErrInvalidInput, in.Role)
	}
	if err := authenticated(p); err != nil {
		return nil, err
	}
	current, err := currentPrincipal(ctx, s.repo, p)
	if err != nil {
		return nil, err
	}

	if in.CompanyID != nil {
		if _, err := s.repo.GetCompany(ctx, *in.CompanyID); err != nil {
			return nil, lookupErr("company", err)
		}
	}
	if err := policy.Require(current, policy.UserCreate, policy.Target{CompanyID: in.CompanyID, Role: in.Role}); err != nil {
		return nil, err
	}

	email := normalizeEmail(in.Email)
	exists, err := s.repo.EmailExists(ctx, email)
	if err != nil {
		return nil, fmt.Errorf("failed to check email existence: %w", err)
	}
	if exists {
		return nil, fmt.Errorf("%w: email already registered", e.ErrConflict)
	}

	digest, err := s.hasher.Hash(in.Password)
	if err != nil {
		return nil, err
	}
	user := &models.User{
		Name:         in.Name,
		Email:        email,
		PasswordHash: digest,
		Role:         in.Role,
		CompanyID:    in.CompanyID,
	}
	if err := s.repo.CreateUser(ctx, user); err != nil {
		if errors.Is(err, e.ErrConflict) {
			return nil, fmt.Errorf("%w: email already registered", e.ErrConflict)
		}
		return nil, fmt.Errorf("failed to create user: %w", err)
	}

	s.logger.Info("User created",
		zap.String("user_id", user.ID.String()),
		zap.String("role", string(user.Role)),
		zap.String("actor_id", p.UserID.String()),
	)
	s.producer.Produce(events.NewEvent(events.UserCreated, user.ID, p.UserID, userPayload(user)))
	return user.Public(), nil
}

// Update applies a partial update. Changing the role additionally requires
// the user:change-role capability; moving to ADMIN or USER detaches the
// account from its company.
func (s *UserService) Update(ctx context.Context, p models.Principal, id uuid.UUID, in UpdateUserInput) (*models.User, error) {
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

	user, err := s.repo.GetUser(ctx, id)
	if err != nil {
		return nil, lookupErr("user", err)
	}
	if err := policy.Require(current, policy.UserUpdate, userTarget(user)); err != nil {
		return nil, err
	}

	update := &models.UserUpdate{ID: id, Name: in.Name}
	if in.Role != nil && *in.Role != user.Role {
		target := userTarget(user)
		target.Role = *in.Role
		if err := policy.Require(current, policy.UserChangeRole, target); err != nil {
			return nil, err
		}
		update.Role = in.Role
		update.ClearCompany = !in.Role.IsCompanyRole()
	}
	if in.Email != nil {
		email := normalizeEmail(*in.Email)
		if email != user.Email {
			exists, err := s.repo.EmailExists(ctx, email)
			if err != nil {
				return nil, fmt.Errorf("failed to check email existence: %w", err)
			}
			if exists {
				return nil, fmt.Errorf("%w: email already registered", e.ErrConflict)
			}
			update.Email = &email
		}
	}
	if in.Password != nil {
		digest, err := s.hasher.Hash(*in.Password)
		if err != nil {
			return nil, err
		}
		update.PasswordHash = &digest
	}

	if err := s.repo.UpdateUser(ctx, update); err != nil {
		if errors.Is(err, e.ErrConflict) {
			return nil, fmt.Errorf("%w: email already registered", e.ErrConflict)
		}
		if errors.Is(err, e.ErrNotFound) {
			return nil, err
		}
		return nil, fmt.Errorf("failed to update user: %w", err)
	}

	updated, err := s.repo.GetUser(ctx, id)
	if err != nil {
		s.logger.Error("Failed to get user for event",
			zap.Error(err),
			zap.String("user_id", id.String()),
		)
		return nil, err
	}
	s.producer.Produce(events.NewEvent(events.UserUpdated, id, p.UserID, userPayload(updated)))
	return updated.Public(), nil
}

// Delete soft-deletes a user. Nobody can delete their own account.
func (s *UserService) Delete(ctx context.Context, p models.Principal, id uuid.UUID) error {
	if err := authenticated(p); err != nil {
		return err
	}
	current, err := currentPrincipal(ctx, s.repo, p)
	if err != nil {
		return err
	}
	user, err := s.repo.GetUser(ctx, id)
	if err != nil {
		return lookupErr("user", err)
	}
	if err := policy.Require(current, policy.UserDelete, userTarget(user)); err != nil {
		return err
	}

	if err := s.repo.DeleteUser(ctx, id); err != nil {
		if errors.Is(err, e.ErrNotFound) {
			return lookupErr("user", err)
		}
		return fmt.Errorf("failed to delete user: %w", err)
	}
	s.producer.Produce(events.NewEvent(events.UserDeleted, id, p.UserID, nil))
	return nil
}

func userPayload(u *models.User) map[string]interface{} {
	payload := map[string]interface{}{"role": u.Role}
	if u.CompanyID != nil {
		payload["companyId"] = u.CompanyID.String()
	}
	return payload
}

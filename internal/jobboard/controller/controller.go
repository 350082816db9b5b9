// Package controller implements the business logic (service layer) of the
// job board. Every operation follows the same pipeline: validate input,
// require an authenticated principal, fetch the target, ask the policy,
// then mutate and emit an event.
package controller

import (
	"context"
	"errors"
	"fmt"
	"reflect"
	"strings"

	"github.com/gartstein/jobboard/internal/jobboard/db"
	e "github.com/gartstein/jobboard/internal/jobboard/errors"
	"github.com/gartstein/jobboard/internal/jobboard/events"
	"github.com/gartstein/jobboard/internal/jobboard/models"
	"github.com/gartstein/jobboard/internal/jobboard/ratelimit"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

type EventProducer interface {
	Produce(event events.Event)
}

// Repository defines the storage interface used by the services.
type Repository interface {
	CreateUser(ctx context.Context, user *models.User) error
	GetUser(ctx context.Context, id uuid.UUID) (*models.User, error)
	GetUserByEmail(ctx context.Context, email string) (*models.User, error)
	EmailExists(ctx context.Context, email string) (bool, error)
	ListUsers(ctx context.Context, filter models.UserFilter) ([]*models.User, error)
	UpdateUser(ctx context.Context, update *models.UserUpdate) error
	SetUserCompany(ctx context.Context, userID uuid.UUID, companyID *uuid.UUID) error
	DeleteUser(ctx context.Context, id uuid.UUID) error

	CreateCompany(ctx context.Context, company *models.Company) error
	GetCompany(ctx context.Context, id uuid.UUID) (*models.Company, error)
	ListCompanies(ctx context.Context) ([]*models.Company, error)
	CNPJExists(ctx context.Context, cnpj string) (bool, error)
	UpdateCompany(ctx context.Context, update *models.CompanyUpdate) error

	CreateJob(ctx context.Context, job *models.Job) error
	GetJob(ctx context.Context, id uuid.UUID) (*models.Job, error)
	ListOpenJobs(ctx context.Context, filter models.JobFilter) ([]*models.Job, error)
	SetJobStatus(ctx context.Context, id uuid.UUID, status models.JobStatus) error

	CreateApplication(ctx context.Context, app *models.Application) error
	GetApplication(ctx context.Context, id uuid.UUID) (*models.Application, error)
	ActiveApplicationExists(ctx context.Context, userID, jobID uuid.UUID) (bool, error)
	ListUserApplications(ctx context.Context, userID uuid.UUID) ([]*models.Application, error)
	CountJobApplications(ctx context.Context, jobID uuid.UUID) (int64, error)
	DeleteApplication(ctx context.Context, id uuid.UUID) error

	WithTransaction(ctx context.Context, fn func(repo *db.Repository) error) error
	Close() error
}

type PasswordHasher interface {
	Hash(plaintext string) (string, error)
	Verify(plaintext, digest string) bool
}

type TokenIssuer interface {
	Sign(p models.Principal) (string, error)
}

// Deps bundles the collaborators of the services.
type Deps struct {
	Repo     Repository
	Hasher   PasswordHasher
	Tokens   TokenIssuer
	Limiter  ratelimit.Limiter
	Throttle LoginThrottle
	Producer EventProducer
	Logger   *zap.Logger
}

// Services groups every service of the job board.
type Services struct {
	Auth         *AuthService
	Users        *UserService
	Companies    *CompanyService
	Jobs         *JobService
	Applications *ApplicationService
}

func NewServices(d Deps) *Services {
	if d.Producer == nil {
		d.Producer = events.NopProducer{}
	}
	return &Services{
		Auth:         NewAuthService(d.Repo, d.Hasher, d.Tokens, d.Limiter, d.Throttle, d.Producer, d.Logger),
		Users:        NewUserService(d.Repo, d.Hasher, d.Producer, d.Logger),
		Companies:    NewCompanyService(d.Repo, d.Producer, d.Logger),
		Jobs:         NewJobService(d.Repo, d.Producer, d.Logger),
		Applications: NewApplicationService(d.Repo, d.Producer, d.Logger),
	}
}

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

// validateInput runs struct validation and reports the first failing field
// as ErrInvalidInput.
func validateInput(in interface{}) error {
	err := validate.Struct(in)
	if err == nil {
		return nil
	}
	var fieldErrs validator.ValidationErrors
	if errors.As(err, &fieldErrs) && len(fieldErrs) > 0 {
		f := fieldErrs[0]
		if f.Param() != "" {
			return fmt.Errorf("%w: %s must satisfy %s=%s", e.ErrInvalidInput, f.Field(), f.Tag(), f.Param())
		}
		return fmt.Errorf("%w: %s must satisfy %s", e.ErrInvalidInput, f.Field(), f.Tag())
	}
	return fmt.Errorf("%w: %v", e.ErrInvalidInput, err)
}

func authenticated(p models.Principal) error {
	if p.IsZero() {
		return fmt.Errorf("%w: missing credentials", e.ErrUnauthenticated)
	}
	return nil
}

// currentPrincipal reloads the caller's account. Membership and role can
// change after a token is issued; company-scoped decisions use the stored
// values.
func currentPrincipal(ctx context.Context, repo Repository, p models.Principal) (models.Principal, error) {
	actor, err := repo.GetUser(ctx, p.UserID)
	if err != nil {
		if errors.Is(err, e.ErrNotFound) {
			return models.Principal{}, fmt.Errorf("%w: account no longer exists", e.ErrUnauthenticated)
		}
		return models.Principal{}, lookupErr("user", err)
	}
	return actor.Principal(), nil
}

// lookupErr names the missing entity on ErrNotFound and wraps anything else.
func lookupErr(entity string, err error) error {
	if errors.Is(err, e.ErrNotFound) {
		return fmt.Errorf("%s %w", entity, e.ErrNotFound)
	}
	return fmt.Errorf("failed to get %s: %w", entity, err)
}

var cnpjPunctuation = strings.NewReplacer(".", "", "/", "", "-", "", " ", "")

// normalizeCNPJ strips the usual XX.XXX.XXX/XXXX-XX formatting.
func normalizeCNPJ(s string) string {
	return cnpjPunctuation.Replace(s)
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

package controller

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/gartstein/jobboard/internal/jobboard/auth"
	"github.com/gartstein/jobboard/internal/jobboard/db"
	e "github.com/gartstein/jobboard/internal/jobboard/errors"
	"github.com/gartstein/jobboard/internal/jobboard/events"
	"github.com/gartstein/jobboard/internal/jobboard/models"
	"github.com/gartstein/jobboard/internal/jobboard/ratelimit"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
	"golang.org/x/crypto/bcrypt"
)

const testPassword = "password123"

// MockProducer records produced events.
type MockProducer struct {
	mu     sync.Mutex
	events []events.Event
}

func (m *MockProducer) Produce(event events.Event) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.events = append(m.events, event)
}

func (m *MockProducer) Types() []events.EventType {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]events.EventType, 0, len(m.events))
	for _, ev := range m.events {
		out = append(out, ev.Type)
	}
	return out
}

type fixture struct {
	repo     *db.Repository
	svc      *Services
	tokens   *auth.Tokens
	hasher   *auth.BcryptHasher
	producer *MockProducer
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	repo, err := db.NewSQLiteRepository(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = repo.Close() })

	f := &fixture{
		repo:     repo,
		tokens:   auth.NewTokens("test-secret", time.Hour),
		hasher:   auth.NewBcryptHasher(bcrypt.MinCost),
		producer: &MockProducer{},
	}
	f.svc = NewServices(Deps{
		Repo:     repo,
		Hasher:   f.hasher,
		Tokens:   f.tokens,
		Limiter:  ratelimit.NewMemoryLimiter(0, nil),
		Throttle: LoginThrottle{Limit: 3, Window: time.Minute},
		Producer: f.producer,
		Logger:   zaptest.NewLogger(t),
	})
	return f
}

func (f *fixture) company(t *testing.T, cnpj string) *models.Company {
	t.Helper()
	c := &models.Company{Name: "Company " + cnpj, CNPJ: cnpj}
	require.NoError(t, f.repo.CreateCompany(context.Background(), c))
	return c
}

func (f *fixture) user(t *testing.T, role models.Role, companyID *uuid.UUID) (*models.User, models.Principal) {
	t.Helper()
	digest, err := f.hasher.Hash(testPassword)
	require.NoError(t, err)
	u := &models.User{
		Name:         string(role) + " user",
		Email:        uuid.NewString() + "@example.com",
		PasswordHash: digest,
		Role:         role,
		CompanyID:    companyID,
	}
	require.NoError(t, f.repo.CreateUser(context.Background(), u))
	return u, u.Principal()
}

func (f *fixture) job(t *testing.T, companyID uuid.UUID) *models.Job {
	t.Helper()
	j := &models.Job{Title: "Backend engineer", Description: "Go services", CompanyID: companyID}
	require.NoError(t, f.repo.CreateJob(context.Background(), j))
	return j
}

func TestRegisterThenLogin(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	registered, err := f.svc.Auth.Register(ctx, RegisterInput{Name: "Ana", Email: "Ana@Example.com", Password: testPassword})
	require.NoError(t, err)
	assert.Empty(t, registered.User.PasswordHash)
	assert.Equal(t, models.RoleUser, registered.User.Role)
	assert.Equal(t, "ana@example.com", registered.User.Email)

	result, err := f.svc.Auth.Login(ctx, LoginInput{Email: "ana@example.com", Password: testPassword})
	require.NoError(t, err)
	principal, err := f.tokens.Verify(result.Token)
	require.NoError(t, err)
	assert.Equal(t, registered.User.ID, principal.UserID)
	assert.Equal(t, models.RoleUser, principal.Role)
	assert.Nil(t, principal.CompanyID)

	assert.Contains(t, f.producer.Types(), events.UserRegistered)
}

func TestRegisterValidation(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	tests := []struct {
		name  string
		input RegisterInput
	}{
		{"missing name", RegisterInput{Email: "a@example.com", Password: testPassword}},
		{"bad email", RegisterInput{Name: "A", Email: "not-an-email", Password: testPassword}},
		{"short password", RegisterInput{Name: "A", Email: "a@example.com", Password: "123"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := f.svc.Auth.Register(ctx, tt.input)
			assert.ErrorIs(t, err, e.ErrInvalidInput)
		})
	}

	_, err := f.svc.Auth.Register(ctx, RegisterInput{Name: "A", Email: "dup@example.com", Password: testPassword})
	require.NoError(t, err)
	_, err = f.svc.Auth.Register(ctx, RegisterInput{Name: "B", Email: "DUP@example.com", Password: testPassword})
	assert.ErrorIs(t, err, e.ErrInvalidInput, "email already registered")
}

func TestLoginFailuresAreUniform(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	user, _ := f.user(t, models.RoleUser, nil)
	_, adminPrincipal := f.user(t, models.RoleAdmin, nil)

	_, wrongPassword := f.svc.Auth.Login(ctx, LoginInput{Email: user.Email, Password: "wrong-password"})
	_, unknown := f.svc.Auth.Login(ctx, LoginInput{Email: "ghost@example.com", Password: testPassword})
	require.ErrorIs(t, wrongPassword, e.ErrUnauthenticated)
	require.ErrorIs(t, unknown, e.ErrUnauthenticated)
	assert.Equal(t, wrongPassword.Error(), unknown.Error())

	require.NoError(t, f.svc.Users.Delete(ctx, adminPrincipal, user.ID))
	_, deleted := f.svc.Auth.Login(ctx, LoginInput{Email: user.Email, Password: testPassword})
	assert.ErrorIs(t, deleted, e.ErrUnauthenticated)
	assert.Equal(t, unknown.Error(), deleted.Error())
}

func TestLoginThrottled(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	user, _ := f.user(t, models.RoleUser, nil)

	for i := 0; i < 3; i++ {
		_, err := f.svc.Auth.Login(ctx, LoginInput{Email: user.Email, Password: "wrong-password"})
		require.ErrorIs(t, err, e.ErrUnauthenticated)
	}
	_, err := f.svc.Auth.Login(ctx, LoginInput{Email: user.Email, Password: testPassword})
	assert.ErrorIs(t, err, e.ErrRateLimited)
}

func TestUnauthenticatedPrincipalFailsBeforeLookup(t *testing.T) {
	repo := &MockRepository{t: t}
	svc := NewServices(Deps{Repo: repo, Hasher: auth.NewBcryptHasher(bcrypt.MinCost), Logger: zaptest.NewLogger(t)})
	ctx := context.Background()
	var nobody models.Principal
	id := uuid.New()

	_, err := svc.Companies.Get(ctx, nobody, id)
	assert.ErrorIs(t, err, e.ErrUnauthenticated)
	_, err = svc.Jobs.Get(ctx, nobody, id)
	assert.ErrorIs(t, err, e.ErrUnauthenticated)
	err = svc.Users.Delete(ctx, nobody, id)
	assert.ErrorIs(t, err, e.ErrUnauthenticated)
	err = svc.Applications.Cancel(ctx, nobody, id)
	assert.ErrorIs(t, err, e.ErrUnauthenticated)
	_, err = svc.Applications.List(ctx, nobody, nil)
	assert.ErrorIs(t, err, e.ErrUnauthenticated)
}

func TestCompanyAdminScopedToOwnCompany(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	own := f.company(t, "11222333000181")
	other := f.company(t, "99888777000166")
	_, ca := f.user(t, models.RoleCompanyAdmin, &own.ID)

	name := "Renamed"
	_, err := f.svc.Companies.Update(ctx, ca, other.ID, UpdateCompanyInput{Name: &name})
	assert.ErrorIs(t, err, e.ErrForbidden)
	err = f.svc.Companies.Delete(ctx, ca, other.ID)
	assert.ErrorIs(t, err, e.ErrForbidden)
	_, err = f.svc.Jobs.Create(ctx, ca, CreateJobInput{Title: "T", Description: "D", CompanyID: &other.ID})
	assert.ErrorIs(t, err, e.ErrForbidden)
	_, err = f.svc.Companies.Create(ctx, ca, CreateCompanyInput{Name: "Second", CNPJ: "55666777000199"})
	assert.ErrorIs(t, err, e.ErrForbidden, "an attached COMPANY_ADMIN cannot create another company")

	updated, err := f.svc.Companies.Update(ctx, ca, own.ID, UpdateCompanyInput{Name: &name})
	require.NoError(t, err)
	assert.Equal(t, "Renamed", updated.Name)

	job, err := f.svc.Jobs.Create(ctx, ca, CreateJobInput{Title: "T", Description: "D"})
	require.NoError(t, err, "company defaults to the caller's")
	assert.Equal(t, own.ID, job.CompanyID)

	_, err = f.svc.Companies.Update(ctx, ca, uuid.New(), UpdateCompanyInput{Name: &name})
	assert.ErrorIs(t, err, e.ErrNotFound, "missing targets are reported before authorization")
}

func TestCompanyCreateAttachesCompanyAdmin(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	creator, ca := f.user(t, models.RoleCompanyAdmin, nil)

	company, err := f.svc.Companies.Create(ctx, ca, CreateCompanyInput{Name: "Acme", CNPJ: "11.222.333/0001-81"})
	require.NoError(t, err)
	assert.Equal(t, "11222333000181", company.CNPJ)

	stored, err := f.repo.GetUser(ctx, creator.ID)
	require.NoError(t, err)
	require.NotNil(t, stored.CompanyID)
	assert.Equal(t, company.ID, *stored.CompanyID)

	// The stale token has no company, but the stored membership wins.
	_, err = f.svc.Companies.Create(ctx, ca, CreateCompanyInput{Name: "Again", CNPJ: "99888777000166"})
	assert.ErrorIs(t, err, e.ErrForbidden)

	_, admin := f.user(t, models.RoleAdmin, nil)
	_, err = f.svc.Companies.Create(ctx, admin, CreateCompanyInput{Name: "Clone", CNPJ: "11222333000181"})
	assert.ErrorIs(t, err, e.ErrConflict)
	_, err = f.svc.Companies.Create(ctx, admin, CreateCompanyInput{Name: "Bad", CNPJ: "123"})
	assert.ErrorIs(t, err, e.ErrInvalidInput)

	_, hr := f.user(t, models.RoleCompanyHR, nil)
	_, err = f.svc.Companies.Create(ctx, hr, CreateCompanyInput{Name: "HR Co", CNPJ: "55666777000199"})
	assert.ErrorIs(t, err, e.ErrForbidden)

	assert.Contains(t, f.producer.Types(), events.CompanyUserAttached)
}

// racingRepository reports every email and CNPJ as free, as when a
// concurrent request takes the value between the check and the insert.
type racingRepository struct {
	*db.Repository
}

func (racingRepository) EmailExists(context.Context, string) (bool, error) { return false, nil }

func (racingRepository) CNPJExists(context.Context, string) (bool, error) { return false, nil }

func TestStorageConflictsAreDescribed(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	svc := NewServices(Deps{
		Repo:     racingRepository{f.repo},
		Hasher:   f.hasher,
		Producer: f.producer,
		Logger:   zaptest.NewLogger(t),
	})
	company := f.company(t, "11222333000181")
	other := f.company(t, "99888777000166")
	taken, _ := f.user(t, models.RoleUser, nil)
	victim, _ := f.user(t, models.RoleUser, nil)
	_, admin := f.user(t, models.RoleAdmin, nil)

	_, err := svc.Companies.Create(ctx, admin, CreateCompanyInput{Name: "Clone", CNPJ: company.CNPJ})
	require.ErrorIs(t, err, e.ErrConflict)
	assert.EqualError(t, err, "conflict: cnpj already registered")

	_, err = svc.Companies.Update(ctx, admin, other.ID, UpdateCompanyInput{CNPJ: &company.CNPJ})
	require.ErrorIs(t, err, e.ErrConflict)
	assert.EqualError(t, err, "conflict: cnpj already registered")

	_, err = svc.Users.Create(ctx, admin, CreateUserInput{
		Name: "Twin", Email: taken.Email, Password: testPassword, Role: models.RoleUser,
	})
	require.ErrorIs(t, err, e.ErrConflict)
	assert.EqualError(t, err, "conflict: email already registered")

	_, err = svc.Users.Update(ctx, admin, victim.ID, UpdateUserInput{Email: &taken.Email})
	require.ErrorIs(t, err, e.ErrConflict)
	assert.EqualError(t, err, "conflict: email already registered")

	assert.Empty(t, f.producer.Types())
}

// A token keeps the membership it was issued with; company-scoped
// operations follow the stored account instead.
func TestCompanyScopeFollowsStoredMembership(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	company := f.company(t, "11222333000181")
	other := f.company(t, "99888777000166")
	caUser, ca := f.user(t, models.RoleCompanyAdmin, &company.ID)
	_, admin := f.user(t, models.RoleAdmin, nil)
	job := f.job(t, company.ID)

	require.NoError(t, f.svc.Companies.DetachUser(ctx, admin, company.ID, caUser.ID))
	require.NotNil(t, ca.CompanyID)
	assert.Equal(t, company.ID, *ca.CompanyID, "the token still names the old company")

	name := "Renamed"
	_, err := f.svc.Companies.Update(ctx, ca, company.ID, UpdateCompanyInput{Name: &name})
	assert.ErrorIs(t, err, e.ErrForbidden)
	assert.ErrorIs(t, f.svc.Companies.Delete(ctx, ca, company.ID), e.ErrForbidden)
	_, err = f.svc.Jobs.Create(ctx, ca, CreateJobInput{Title: "T", Description: "D", CompanyID: &company.ID})
	assert.ErrorIs(t, err, e.ErrForbidden)
	_, err = f.svc.Jobs.Create(ctx, ca, CreateJobInput{Title: "T", Description: "D"})
	assert.ErrorIs(t, err, e.ErrInvalidInput, "no stored company to default to")
	_, err = f.svc.Jobs.Close(ctx, ca, job.ID)
	assert.ErrorIs(t, err, e.ErrForbidden)
	_, err = f.svc.Users.List(ctx, ca)
	assert.ErrorIs(t, err, e.ErrForbidden)

	_, err = f.svc.Companies.AttachUser(ctx, admin, other.ID, caUser.ID)
	require.NoError(t, err)
	created, err := f.svc.Jobs.Create(ctx, ca, CreateJobInput{Title: "T", Description: "D"})
	require.NoError(t, err, "the new membership applies before the next login")
	assert.Equal(t, other.ID, created.CompanyID)

	require.NoError(t, f.svc.Users.Delete(ctx, admin, caUser.ID))
	_, err = f.svc.Jobs.Close(ctx, ca, created.ID)
	assert.ErrorIs(t, err, e.ErrUnauthenticated, "deleted accounts lose access before the token expires")
}

func TestCompanyDeleteCascades(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	company := f.company(t, "11222333000181")
	member, ca := f.user(t, models.RoleCompanyAdmin, &company.ID)
	job := f.job(t, company.ID)

	require.NoError(t, f.svc.Companies.Delete(ctx, ca, company.ID))

	_, err := f.svc.Companies.Get(ctx, ca, company.ID)
	assert.ErrorIs(t, err, e.ErrNotFound)
	_, err = f.repo.GetJob(ctx, job.ID)
	assert.ErrorIs(t, err, e.ErrNotFound)
	stored, err := f.repo.GetUser(ctx, member.ID)
	require.NoError(t, err)
	assert.Nil(t, stored.CompanyID)

	err = f.svc.Companies.Delete(ctx, ca, company.ID)
	assert.ErrorIs(t, err, e.ErrNotFound, "deleting twice is not a success")
}

func TestAttachAndDetach(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	company := f.company(t, "11222333000181")
	other := f.company(t, "99888777000166")
	_, ca := f.user(t, models.RoleCompanyAdmin, &company.ID)
	_, admin := f.user(t, models.RoleAdmin, nil)
	hr, _ := f.user(t, models.RoleCompanyHR, nil)
	plain, _ := f.user(t, models.RoleUser, nil)
	foreign, _ := f.user(t, models.RoleCompanyHR, &other.ID)

	attached, err := f.svc.Companies.AttachUser(ctx, ca, company.ID, hr.ID)
	require.NoError(t, err)
	require.NotNil(t, attached.CompanyID)
	assert.Equal(t, company.ID, *attached.CompanyID)
	assert.Empty(t, attached.PasswordHash)

	_, err = f.svc.Companies.AttachUser(ctx, ca, company.ID, hr.ID)
	assert.NoError(t, err, "attaching twice is a no-op")

	_, err = f.svc.Companies.AttachUser(ctx, ca, company.ID, plain.ID)
	assert.ErrorIs(t, err, e.ErrForbidden)
	_, err = f.svc.Companies.AttachUser(ctx, admin, company.ID, plain.ID)
	assert.ErrorIs(t, err, e.ErrInvalidInput)
	_, err = f.svc.Companies.AttachUser(ctx, ca, other.ID, hr.ID)
	assert.ErrorIs(t, err, e.ErrForbidden)
	_, err = f.svc.Companies.AttachUser(ctx, admin, company.ID, foreign.ID)
	assert.ErrorIs(t, err, e.ErrConflict)

	err = f.svc.Companies.DetachUser(ctx, admin, company.ID, foreign.ID)
	assert.ErrorIs(t, err, e.ErrInvalidInput)
	require.NoError(t, f.svc.Companies.DetachUser(ctx, ca, company.ID, hr.ID))
	stored, err := f.repo.GetUser(ctx, hr.ID)
	require.NoError(t, err)
	assert.Nil(t, stored.CompanyID)
}

func TestApplicationsListScopedToSelf(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	company := f.company(t, "11222333000181")
	job := f.job(t, company.ID)
	alice, alicePrincipal := f.user(t, models.RoleUser, nil)
	_, bob := f.user(t, models.RoleUser, nil)
	_, admin := f.user(t, models.RoleAdmin, nil)
	_, hr := f.user(t, models.RoleCompanyHR, &company.ID)

	_, err := f.svc.Applications.Create(ctx, alicePrincipal, ApplyInput{JobID: job.ID})
	require.NoError(t, err)

	_, err = f.svc.Applications.List(ctx, bob, &alice.ID)
	assert.ErrorIs(t, err, e.ErrForbidden)
	_, err = f.svc.Applications.List(ctx, hr, &alice.ID)
	assert.ErrorIs(t, err, e.ErrForbidden)

	own, err := f.svc.Applications.List(ctx, alicePrincipal, nil)
	require.NoError(t, err)
	require.Len(t, own, 1)
	require.NotNil(t, own[0].Job)
	require.NotNil(t, own[0].Job.Company)
	assert.Equal(t, company.ID, own[0].Job.Company.ID)

	byAdmin, err := f.svc.Applications.List(ctx, admin, &alice.ID)
	require.NoError(t, err)
	assert.Len(t, byAdmin, 1)
}

func TestApplyTwiceCancelApplyAgain(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	company := f.company(t, "11222333000181")
	job := f.job(t, company.ID)
	_, user := f.user(t, models.RoleUser, nil)

	first, err := f.svc.Applications.Create(ctx, user, ApplyInput{JobID: job.ID})
	require.NoError(t, err)

	_, err = f.svc.Applications.Create(ctx, user, ApplyInput{JobID: job.ID})
	assert.ErrorIs(t, err, e.ErrConflict)

	require.NoError(t, f.svc.Applications.Cancel(ctx, user, first.ID))
	assert.ErrorIs(t, f.svc.Applications.Cancel(ctx, user, first.ID), e.ErrNotFound)

	third, err := f.svc.Applications.Create(ctx, user, ApplyInput{JobID: job.ID})
	require.NoError(t, err)
	assert.NotEqual(t, first.ID, third.ID)

	detail, err := f.svc.Jobs.Get(ctx, user, job.ID)
	require.NoError(t, err)
	assert.EqualValues(t, 1, detail.ApplicationsCount)
}

func TestApplyOnBehalfAndCancelScope(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	company := f.company(t, "11222333000181")
	job := f.job(t, company.ID)
	alice, alicePrincipal := f.user(t, models.RoleUser, nil)
	_, bob := f.user(t, models.RoleUser, nil)
	_, admin := f.user(t, models.RoleAdmin, nil)

	_, err := f.svc.Applications.Create(ctx, bob, ApplyInput{JobID: job.ID, UserID: &alice.ID})
	assert.ErrorIs(t, err, e.ErrForbidden)

	app, err := f.svc.Applications.Create(ctx, admin, ApplyInput{JobID: job.ID, UserID: &alice.ID})
	require.NoError(t, err)
	assert.Equal(t, alice.ID, app.UserID)

	ghost := uuid.New()
	_, err = f.svc.Applications.Create(ctx, admin, ApplyInput{JobID: job.ID, UserID: &ghost})
	assert.ErrorIs(t, err, e.ErrNotFound)

	assert.ErrorIs(t, f.svc.Applications.Cancel(ctx, bob, app.ID), e.ErrForbidden)
	assert.NoError(t, f.svc.Applications.Cancel(ctx, alicePrincipal, app.ID))
}

func TestApplyToClosedJobUnavailableForEveryRole(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	company := f.company(t, "11222333000181")
	job := f.job(t, company.ID)
	_, ca := f.user(t, models.RoleCompanyAdmin, &company.ID)

	closed, err := f.svc.Jobs.Close(ctx, ca, job.ID)
	require.NoError(t, err)
	assert.Equal(t, models.JobClosed, closed.Status)
	_, err = f.svc.Jobs.Close(ctx, ca, job.ID)
	assert.ErrorIs(t, err, e.ErrResourceUnavailable)

	for _, role := range models.Roles {
		_, p := f.user(t, role, nil)
		_, err := f.svc.Applications.Create(ctx, p, ApplyInput{JobID: job.ID})
		assert.ErrorIs(t, err, e.ErrResourceUnavailable, "role %s", role)
	}

	_, p := f.user(t, models.RoleUser, nil)
	_, err = f.svc.Applications.Create(ctx, p, ApplyInput{JobID: uuid.New()})
	assert.ErrorIs(t, err, e.ErrResourceUnavailable, "missing jobs are unavailable too")

	open, err := f.svc.Jobs.ListOpen(ctx, p)
	require.NoError(t, err)
	assert.Empty(t, open)
}

func TestJobListCompany(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	company := f.company(t, "11222333000181")
	other := f.company(t, "99888777000166")
	f.job(t, company.ID)
	f.job(t, other.ID)
	_, hr := f.user(t, models.RoleCompanyHR, &company.ID)
	_, user := f.user(t, models.RoleUser, nil)

	jobs, err := f.svc.Jobs.ListCompany(ctx, hr, company.ID)
	require.NoError(t, err)
	assert.Len(t, jobs, 1)

	_, err = f.svc.Jobs.ListCompany(ctx, hr, other.ID)
	assert.ErrorIs(t, err, e.ErrForbidden)
	_, err = f.svc.Jobs.ListCompany(ctx, user, company.ID)
	assert.ErrorIs(t, err, e.ErrForbidden)
}

func TestSelfDeletion(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	company := f.company(t, "11222333000181")

	for _, role := range models.Roles {
		var companyID *uuid.UUID
		if role.IsCompanyRole() {
			companyID = &company.ID
		}
		u, p := f.user(t, role, companyID)
		err := f.svc.Users.Delete(ctx, p, u.ID)
		assert.ErrorIs(t, err, e.ErrSelfDeletion, "role %s", role)
	}
}

func TestUserCRUD(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	company := f.company(t, "11222333000181")
	other := f.company(t, "99888777000166")
	_, admin := f.user(t, models.RoleAdmin, nil)
	caUser, ca := f.user(t, models.RoleCompanyAdmin, &company.ID)
	_, user := f.user(t, models.RoleUser, nil)

	hr, err := f.svc.Users.Create(ctx, ca, CreateUserInput{
		Name: "Helen", Email: "helen@example.com", Password: testPassword,
		Role: models.RoleCompanyHR, CompanyID: &company.ID,
	})
	require.NoError(t, err)
	assert.Empty(t, hr.PasswordHash)

	_, err = f.svc.Users.Create(ctx, ca, CreateUserInput{
		Name: "Colleague", Email: "colleague@example.com", Password: testPassword,
		Role: models.RoleCompanyAdmin, CompanyID: &company.ID,
	})
	assert.NoError(t, err, "a COMPANY_ADMIN may create other company admins")

	_, err = f.svc.Users.Create(ctx, ca, CreateUserInput{
		Name: "X", Email: "x@example.com", Password: testPassword,
		Role: models.RoleCompanyHR, CompanyID: &other.ID,
	})
	assert.ErrorIs(t, err, e.ErrForbidden)
	_, err = f.svc.Users.Create(ctx, ca, CreateUserInput{
		Name: "X", Email: "x@example.com", Password: testPassword, Role: models.RoleAdmin,
	})
	assert.ErrorIs(t, err, e.ErrForbidden)
	_, err = f.svc.Users.Create(ctx, admin, CreateUserInput{
		Name: "X", Email: "x@example.com", Password: testPassword, Role: models.RoleUser, CompanyID: &company.ID,
	})
	assert.ErrorIs(t, err, e.ErrInvalidInput)
	_, err = f.svc.Users.Create(ctx, admin, CreateUserInput{
		Name: "X", Email: "helen@example.com", Password: testPassword, Role: models.RoleUser,
	})
	assert.ErrorIs(t, err, e.ErrConflict)

	members, err := f.svc.Users.List(ctx, ca)
	require.NoError(t, err)
	assert.Len(t, members, 3)
	for _, m := range members {
		assert.Empty(t, m.PasswordHash)
	}
	all, err := f.svc.Users.List(ctx, admin)
	require.NoError(t, err)
	assert.Len(t, all, 5)
	_, err = f.svc.Users.List(ctx, user)
	assert.ErrorIs(t, err, e.ErrForbidden)

	_, err = f.svc.Users.Get(ctx, user, hr.ID)
	assert.ErrorIs(t, err, e.ErrForbidden)
	detail, err := f.svc.Users.Get(ctx, ca, hr.ID)
	require.NoError(t, err)
	assert.Nil(t, detail.Applications)

	name := "Helen B"
	updated, err := f.svc.Users.Update(ctx, ca, hr.ID, UpdateUserInput{Name: &name})
	require.NoError(t, err)
	assert.Equal(t, "Helen B", updated.Name)

	role := models.RoleCompanyHR
	_, err = f.svc.Users.Update(ctx, ca, caUser.ID, UpdateUserInput{Role: &role})
	assert.ErrorIs(t, err, e.ErrForbidden, "a COMPANY_ADMIN cannot change its own role")

	demote := models.RoleUser
	_, err = f.svc.Users.Update(ctx, ca, hr.ID, UpdateUserInput{Role: &demote})
	assert.ErrorIs(t, err, e.ErrForbidden)
	demoted, err := f.svc.Users.Update(ctx, admin, hr.ID, UpdateUserInput{Role: &demote})
	require.NoError(t, err)
	assert.Equal(t, models.RoleUser, demoted.Role)
	assert.Nil(t, demoted.CompanyID, "leaving company roles detaches the account")

	require.NoError(t, f.svc.Users.Delete(ctx, admin, hr.ID))
	_, err = f.svc.Users.Get(ctx, admin, hr.ID)
	assert.ErrorIs(t, err, e.ErrNotFound)
	assert.ErrorIs(t, f.svc.Users.Delete(ctx, admin, hr.ID), e.ErrNotFound)
}

func TestUserSelfServiceAndApplications(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	company := f.company(t, "11222333000181")
	job := f.job(t, company.ID)
	u, user := f.user(t, models.RoleUser, nil)
	_, admin := f.user(t, models.RoleAdmin, nil)

	_, err := f.svc.Applications.Create(ctx, user, ApplyInput{JobID: job.ID})
	require.NoError(t, err)

	self, err := f.svc.Users.Get(ctx, user, u.ID)
	require.NoError(t, err)
	assert.Len(t, self.Applications, 1)
	byAdmin, err := f.svc.Users.Get(ctx, admin, u.ID)
	require.NoError(t, err)
	assert.Len(t, byAdmin.Applications, 1)

	role := models.RoleAdmin
	_, err = f.svc.Users.Update(ctx, user, u.ID, UpdateUserInput{Role: &role})
	assert.ErrorIs(t, err, e.ErrForbidden, "users cannot escalate their own role")

	password := "new-password"
	_, err = f.svc.Users.Update(ctx, user, u.ID, UpdateUserInput{Password: &password})
	require.NoError(t, err)
	_, err = f.svc.Auth.Login(ctx, LoginInput{Email: u.Email, Password: password})
	assert.NoError(t, err)
}

// MockRepository fails the test on any storage access not stubbed by a
// func field.
type MockRepository struct {
	Repository
	t             *testing.T
	listCompanies func(context.Context) ([]*models.Company, error)
	getUser       func(context.Context, uuid.UUID) (*models.User, error)
}

func (m *MockRepository) ListCompanies(ctx context.Context) ([]*models.Company, error) {
	if m.listCompanies == nil {
		m.t.Fatal("unexpected ListCompanies call")
	}
	return m.listCompanies(ctx)
}

func (m *MockRepository) GetUser(ctx context.Context, id uuid.UUID) (*models.User, error) {
	if m.getUser == nil {
		m.t.Fatal("unexpected GetUser call")
	}
	return m.getUser(ctx, id)
}

func (m *MockRepository) GetCompany(context.Context, uuid.UUID) (*models.Company, error) {
	m.t.Fatal("unexpected GetCompany call")
	return nil, nil
}

func (m *MockRepository) GetJob(context.Context, uuid.UUID) (*models.Job, error) {
	m.t.Fatal("unexpected GetJob call")
	return nil, nil
}

func (m *MockRepository) GetApplication(context.Context, uuid.UUID) (*models.Application, error) {
	m.t.Fatal("unexpected GetApplication call")
	return nil, nil
}

func TestStorageFailuresAreNotSentinels(t *testing.T) {
	storageErr := errors.New("connection reset")
	repo := &MockRepository{
		t: t,
		listCompanies: func(context.Context) ([]*models.Company, error) {
			return nil, storageErr
		},
		getUser: func(context.Context, uuid.UUID) (*models.User, error) {
			return nil, storageErr
		},
	}
	svc := NewServices(Deps{Repo: repo, Logger: zaptest.NewLogger(t)})
	p := models.Principal{UserID: uuid.New(), Role: models.RoleAdmin}

	_, err := svc.Companies.List(context.Background(), p)
	require.ErrorIs(t, err, storageErr)
	assert.NotErrorIs(t, err, e.ErrNotFound)

	_, err = svc.Users.Get(context.Background(), p, uuid.New())
	require.ErrorIs(t, err, storageErr)
	assert.Contains(t, err.Error(), "failed to get user")
}

package controller

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	e "github.com/gartstein/jobboard/internal/jobboard/errors"
	"github.com/gartstein/jobboard/internal/jobboard/events"
	"github.com/gartstein/jobboard/internal/jobboard/models"
	"github.com/gartstein/jobboard/internal/jobboard/ratelimit"
	"go.uber.org/zap"
)

var errInvalidCredentials = fmt.Errorf("%w: invalid credentials", e.ErrUnauthenticated)

type RegisterInput struct {
	Name     string `json:"name" validate:"required,max=100"`
	Email    string `json:"email" validate:"required,email,max=254"`
	Password string `json:"password" validate:"required,min=6,max=72"`
}

type LoginInput struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

// AuthResult is returned by Register and Login. User never carries the
// password digest.
type AuthResult struct {
	Token string
	User  *models.User
}

// LoginThrottle bounds login attempts per email within Window. A zero
// Limit disables throttling.
type LoginThrottle struct {
	Limit  int
	Window time.Duration
}

// AuthService registers accounts and exchanges credentials for tokens.
type AuthService struct {
	repo     Repository
	hasher   PasswordHasher
	tokens   TokenIssuer
	limiter  ratelimit.Limiter
	throttle LoginThrottle
	producer EventProducer
	logger   *zap.Logger

	dummyOnce   sync.Once
	dummyDigest string
}

func NewAuthService(repo Repository, hasher PasswordHasher, tokens TokenIssuer, limiter ratelimit.Limiter,
	throttle LoginThrottle, producer EventProducer, logger *zap.Logger) *AuthService {
	return &AuthService{
		repo:     repo,
		hasher:   hasher,
		tokens:   tokens,
		limiter:  limiter,
		throttle: throttle,
		producer: producer,
		logger:   logger.Named("auth_service"),
	}
}

// Register creates a USER account and returns a token for it.
func (s *AuthService) Register(ctx context.Context, in RegisterInput) (*AuthResult, error) {
	if err := validateInput(in); err != nil {
		return nil, err
	}
	email := normalizeEmail(in.Email)

	exists, err := s.repo.EmailExists(ctx, email)
	if err != nil {
		return nil, fmt.Errorf("failed to check email existence: %w", err)
	}
	if exists {
		return nil, fmt.Errorf("%w: email already registered", e.ErrInvalidInput)
	}

	digest, err := s.hasher.Hash(in.Password)
	if err != nil {
		return nil, err
	}
	user := &models.User{
		Name:         in.Name,
		Email:        email,
		PasswordHash: digest,
		Role:         models.RoleUser,
	}
	if err := s.repo.CreateUser(ctx, user); err != nil {
		if errors.Is(err, e.ErrConflict) {
			return nil, fmt.Errorf("%w: email already registered", e.ErrInvalidInput)
		}
		return nil, fmt.Errorf("failed to create user: %w", err)
	}

	token, err := s.tokens.Sign(user.Principal())
	if err != nil {
		return nil, err
	}
	s.producer.Produce(events.NewEvent(events.UserRegistered, user.ID, user.ID, map[string]string{
		"role": string(user.Role),
	}))
	return &AuthResult{Token: token, User: user.Public()}, nil
}

// Login verifies credentials. Unknown emails, deleted accounts and wrong
// passwords all fail with the same error.
func (s *AuthService) Login(ctx context.Context, in LoginInput) (*AuthResult, error) {
	if err := validateInput(in); err != nil {
		return nil, err
	}
	email := normalizeEmail(in.Email)

	if err := s.throttleLogin(ctx, email); err != nil {
		return nil, err
	}

	user, err := s.repo.GetUserByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, e.ErrNotFound) {
			s.hasher.Verify(in.Password, s.dummy())
			return nil, errInvalidCredentials
		}
		return nil, fmt.Errorf("failed to get user: %w", err)
	}
	if !s.hasher.Verify(in.Password, user.PasswordHash) {
		return nil, errInvalidCredentials
	}

	token, err := s.tokens.Sign(user.Principal())
	if err != nil {
		return nil, err
	}
	return &AuthResult{Token: token, User: user.Public()}, nil
}

func (s *AuthService) throttleLogin(ctx context.Context, email string) error {
	if s.limiter == nil || s.throttle.Limit <= 0 {
		return nil
	}
	decision, err := s.limiter.Allow(ctx, "login:"+email, s.throttle.Limit, s.throttle.Window)
	if err != nil {
		s.logger.Warn("Login rate limiter unavailable", zap.Error(err))
		return nil
	}
	if !decision.Allowed {
		s.logger.Info("Login throttled",
			zap.String("email", email),
			zap.Time("reset_at", decision.ResetAt),
		)
		return fmt.Errorf("%w: retry after %s", e.ErrRateLimited, decision.ResetAt.UTC().Format(time.RFC3339))
	}
	return nil
}

// dummy returns a digest compared against when the email is unknown, so
// both paths spend the same hashing time.
func (s *AuthService) dummy() string {
	s.dummyOnce.Do(func() {
		digest, err := s.hasher.Hash("not-a-real-password")
		if err != nil {
			s.logger.Error("Failed to prepare dummy digest", zap.Error(err))
			return
		}
		s.dummyDigest = digest
	})
	return s.dummyDigest
}

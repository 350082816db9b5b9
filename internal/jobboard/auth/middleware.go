package auth

import (
	"fmt"
	"net/http"
	"strings"

	e "github.com/gartstein/jobboard/internal/jobboard/errors"
	"github.com/gartstein/jobboard/internal/jobboard/models"
)

// Verifier recovers a principal from a token.
type Verifier interface {
	Verify(token string) (models.Principal, error)
}

// Authenticator resolves the principal of an HTTP request from its
// Authorization header.
type Authenticator struct {
	verifier Verifier
}

func NewAuthenticator(verifier Verifier) *Authenticator {
	return &Authenticator{verifier: verifier}
}

// Authenticate returns the request's principal or an error wrapping
// ErrUnauthenticated.
func (a *Authenticator) Authenticate(r *http.Request) (models.Principal, error) {
	tokenString, err := extractTokenFromHeader(r)
	if err != nil {
		return models.Principal{}, err
	}
	return a.verifier.Verify(tokenString)
}

func extractTokenFromHeader(r *http.Request) (string, error) {
	authHeader := r.Header.Get("Authorization")
	if authHeader == "" {
		return "", fmt.Errorf("%w: authorization header required", e.ErrUnauthenticated)
	}

	if !strings.HasPrefix(authHeader, "Bearer ") {
		return "", fmt.Errorf("%w: invalid authorization format: missing Bearer prefix", e.ErrUnauthenticated)
	}

	tokenString := strings.TrimSpace(strings.TrimPrefix(authHeader, "Bearer "))
	if tokenString == "" {
		return "", fmt.Errorf("%w: invalid authorization format: empty token", e.ErrUnauthenticated)
	}

	return tokenString, nil
}

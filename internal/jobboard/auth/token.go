// Package auth issues and verifies session tokens, hashes passwords and
// extracts bearer credentials from HTTP requests.
package auth

import (
	"fmt"
	"time"

	e "github.com/gartstein/jobboard/internal/jobboard/errors"
	"github.com/gartstein/jobboard/internal/jobboard/models"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// DefaultTokenTTL is the lifetime of an issued token.
const DefaultTokenTTL = time.Hour

// Claims is the token payload: the principal plus its expiry.
type Claims struct {
	UserID    uuid.UUID   `json:"userId"`
	Role      models.Role `json:"role"`
	CompanyID *uuid.UUID  `json:"companyId,omitempty"`
	jwt.RegisteredClaims
}

// Tokens signs and verifies HS256 tokens with a shared secret.
type Tokens struct {
	secret []byte
	ttl    time.Duration
	now    func() time.Time
}

// NewTokens creates a Tokens. A non-positive ttl selects DefaultTokenTTL.
func NewTokens(secret string, ttl time.Duration) *Tokens {
	if ttl <= 0 {
		ttl = DefaultTokenTTL
	}
	return &Tokens{secret: []byte(secret), ttl: ttl, now: time.Now}
}

// Sign issues a token for the principal.
func (t *Tokens) Sign(p models.Principal) (string, error) {
	claims := Claims{
		UserID:    p.UserID,
		Role:      p.Role,
		CompanyID: p.CompanyID,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(t.now().Add(t.ttl)),
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(t.secret)
	if err != nil {
		return "", fmt.Errorf("failed to sign token: %w", err)
	}
	return signed, nil
}

// Verify checks the signature and expiry and returns the embedded principal.
// Every failure wraps ErrInvalidToken.
func (t *Tokens) Verify(tokenString string) (models.Principal, error) {
	claims := &Claims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return t.secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(t.now),
	)
	if err != nil {
		return models.Principal{}, fmt.Errorf("%w: %v", e.ErrInvalidToken, err)
	}
	if !token.Valid {
		return models.Principal{}, e.ErrInvalidToken
	}

	p := models.Principal{UserID: claims.UserID, Role: claims.Role, CompanyID: claims.CompanyID}
	if p.IsZero() {
		return models.Principal{}, fmt.Errorf("%w: malformed claims", e.ErrInvalidToken)
	}
	return p, nil
}

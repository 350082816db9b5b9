// Package models defines the core domain models of the job board:
// users and their roles, companies, jobs and applications.
package models

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Role is the closed set of account roles.
type Role string

const (
	RoleAdmin        Role = "ADMIN"
	RoleCompanyAdmin Role = "COMPANY_ADMIN"
	RoleCompanyHR    Role = "COMPANY_HR"
	RoleUser         Role = "USER"
)

// Roles lists every valid role.
var Roles = []Role{RoleAdmin, RoleCompanyAdmin, RoleCompanyHR, RoleUser}

// Valid reports whether r is one of the known roles.
func (r Role) Valid() bool {
	switch r {
	case RoleAdmin, RoleCompanyAdmin, RoleCompanyHR, RoleUser:
		return true
	default:
		return false
	}
}

// IsCompanyRole reports whether r is a role that can be attached to a company.
func (r Role) IsCompanyRole() bool {
	return r == RoleCompanyAdmin || r == RoleCompanyHR
}

// ParseRole converts a raw string into a Role.
func ParseRole(s string) (Role, error) {
	r := Role(s)
	if !r.Valid() {
		return "", fmt.Errorf("unknown role %q", s)
	}
	return r, nil
}

// Principal is the authenticated actor of a request.
type Principal struct {
	UserID    uuid.UUID
	Role      Role
	CompanyID *uuid.UUID
}

// IsZero reports whether p carries no usable identity.
func (p Principal) IsZero() bool {
	return p.UserID == uuid.Nil || !p.Role.Valid()
}

// Is reports whether the principal is the user with the given id.
func (p Principal) Is(userID uuid.UUID) bool {
	return p.UserID != uuid.Nil && p.UserID == userID
}

// BelongsTo reports whether the principal is attached to the given company.
func (p Principal) BelongsTo(companyID *uuid.UUID) bool {
	return p.CompanyID != nil && companyID != nil && *p.CompanyID == *companyID
}

// User defines the domain model for an account.
type User struct {
	ID    uuid.UUID
	Name  string
	Email string
	// PasswordHash is the bcrypt digest. It never leaves the service layer.
	PasswordHash string
	Role         Role
	CompanyID    *uuid.UUID
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// Principal returns the identity a token for this user carries.
func (u *User) Principal() Principal {
	return Principal{UserID: u.ID, Role: u.Role, CompanyID: u.CompanyID}
}

// UserUpdate represents the fields that can be updated for a User.
// Pointer types are used to allow partial updates.
type UserUpdate struct {
	ID           uuid.UUID
	Name         *string
	Email        *string
	PasswordHash *string
	Role         *Role
	// ClearCompany detaches the user from its company.
	ClearCompany bool
}

// UserFilter narrows user listings.
type UserFilter struct {
	CompanyID *uuid.UUID
}

// Public returns a copy of u without the password digest.
func (u *User) Public() *User {
	if u == nil {
		return nil
	}
	c := *u
	c.PasswordHash = ""
	return &c
}

// Package policy implements the role-based authorization rules of the job
// board. Decide is a pure function: callers fetch whatever ownership data the
// rule needs and pass it in a Target.
package policy

import (
	"errors"
	"fmt"

	e "github.com/gartstein/jobboard/internal/jobboard/errors"
	"github.com/gartstein/jobboard/internal/jobboard/models"
	"github.com/google/uuid"
)

// Action names a capability checked against the rule table.
type Action string

const (
	CompanyRead       Action = "company:read"
	CompanyCreate     Action = "company:create"
	CompanyUpdate     Action = "company:update"
	CompanyDelete     Action = "company:delete"
	CompanyAttachUser Action = "company:attach-user"
	CompanyDetachUser Action = "company:detach-user"

	JobRead        Action = "job:read"
	JobListCompany Action = "job:list-company"
	JobCreate      Action = "job:create"
	JobClose       Action = "job:close"

	ApplicationList   Action = "application:list"
	ApplicationCreate Action = "application:create"
	ApplicationCancel Action = "application:cancel"

	UserList       Action = "user:list"
	UserCreate     Action = "user:create"
	UserRead       Action = "user:read"
	UserUpdate     Action = "user:update"
	UserChangeRole Action = "user:change-role"
	UserDelete     Action = "user:delete"
)

// Target carries the ownership fields of the resource an action applies to.
type Target struct {
	// CompanyID is the owning company: the company itself, a job's company,
	// or the company a user is (or will be) attached to.
	CompanyID *uuid.UUID
	// UserID is the user acted upon: the target account, or the applicant.
	UserID *uuid.UUID
	// Role is the role of the target account (or its requested new role).
	Role models.Role
}

// Reason explains a denial.
type Reason string

const (
	ReasonUnauthenticated  Reason = "unauthenticated"
	ReasonRoleNotPermitted Reason = "role_not_permitted"
	ReasonCompanyMismatch  Reason = "company_mismatch"
	ReasonAlreadyAttached  Reason = "already_attached"
	ReasonTargetRole       Reason = "target_role_not_permitted"
	ReasonNotSelf          Reason = "not_self"
	ReasonSelfDeletion     Reason = "self_deletion"
)

// Decision is the outcome of Decide.
type Decision struct {
	Allowed bool
	Reason  Reason
}

var allow = Decision{Allowed: true}

func deny(r Reason) Decision {
	return Decision{Reason: r}
}

// Err returns nil for an allowed decision and a *DeniedError otherwise.
func (d Decision) Err() error {
	if d.Allowed {
		return nil
	}
	var kind error
	switch d.Reason {
	case ReasonSelfDeletion:
		kind = e.ErrSelfDeletion
	case ReasonUnauthenticated:
		kind = e.ErrUnauthenticated
	default:
		kind = e.ErrForbidden
	}
	return &DeniedError{Reason: d.Reason, Err: kind}
}

// DeniedError reports a denied decision. It unwraps to the error kind.
type DeniedError struct {
	Reason Reason
	Err    error
}

func (d *DeniedError) Error() string {
	if d == nil {
		return ""
	}
	return fmt.Sprintf("%v: %s", d.Err, d.Reason)
}

func (d *DeniedError) Unwrap() error {
	if d == nil {
		return nil
	}
	return d.Err
}

// IsDenied extracts a *DeniedError from err.
func IsDenied(err error) (*DeniedError, bool) {
	var denied *DeniedError
	if errors.As(err, &denied) {
		return denied, true
	}
	return nil, false
}

type rule func(p models.Principal, t Target) Decision

func always(models.Principal, Target) Decision { return allow }

// ownCompany allows when the target belongs to the principal's company.
func ownCompany(p models.Principal, t Target) Decision {
	if p.BelongsTo(t.CompanyID) {
		return allow
	}
	return deny(ReasonCompanyMismatch)
}

// self allows when the target user is the principal.
func self(p models.Principal, t Target) Decision {
	if t.UserID != nil && p.Is(*t.UserID) {
		return allow
	}
	return deny(ReasonNotSelf)
}

// ownCompanyMember allows company-scoped actions whose target is a company
// role account (or requested company role).
func ownCompanyMember(p models.Principal, t Target) Decision {
	if d := ownCompany(p, t); !d.Allowed {
		return d
	}
	if !t.Role.IsCompanyRole() {
		return deny(ReasonTargetRole)
	}
	return allow
}

// rules is keyed by action then by the principal's role. A missing entry
// is a denial.
var rules = map[Action]map[models.Role]rule{
	CompanyRead: {
		models.RoleAdmin:        always,
		models.RoleCompanyAdmin: always,
		models.RoleCompanyHR:    always,
		models.RoleUser:         always,
	},
	CompanyCreate: {
		models.RoleAdmin: always,
		models.RoleCompanyAdmin: func(p models.Principal, _ Target) Decision {
			if p.CompanyID != nil {
				return deny(ReasonAlreadyAttached)
			}
			return allow
		},
	},
	CompanyUpdate: {
		models.RoleAdmin:        always,
		models.RoleCompanyAdmin: ownCompany,
	},
	CompanyDelete: {
		models.RoleAdmin:        always,
		models.RoleCompanyAdmin: ownCompany,
	},
	CompanyAttachUser: {
		models.RoleAdmin:        always,
		models.RoleCompanyAdmin: ownCompanyMember,
	},
	CompanyDetachUser: {
		models.RoleAdmin:        always,
		models.RoleCompanyAdmin: ownCompanyMember,
	},

	JobRead: {
		models.RoleAdmin:        always,
		models.RoleCompanyAdmin: always,
		models.RoleCompanyHR:    always,
		models.RoleUser:         always,
	},
	JobListCompany: {
		models.RoleAdmin:        always,
		models.RoleCompanyAdmin: ownCompany,
		models.RoleCompanyHR:    ownCompany,
	},
	JobCreate: {
		models.RoleAdmin:        always,
		models.RoleCompanyAdmin: ownCompany,
	},
	JobClose: {
		models.RoleAdmin:        always,
		models.RoleCompanyAdmin: ownCompany,
	},

	ApplicationList: {
		models.RoleAdmin: always,
		models.RoleUser:  self,
	},
	ApplicationCreate: {
		models.RoleAdmin: always,
		models.RoleUser:  self,
	},
	ApplicationCancel: {
		models.RoleAdmin: always,
		models.RoleUser:  self,
	},

	UserList: {
		models.RoleAdmin:        always,
		models.RoleCompanyAdmin: ownCompany,
	},
	UserCreate: {
		models.RoleAdmin:        always,
		models.RoleCompanyAdmin: ownCompanyMember,
	},
	UserRead: {
		models.RoleAdmin:        always,
		models.RoleCompanyAdmin: ownCompany,
		models.RoleCompanyHR:    self,
		models.RoleUser:         self,
	},
	UserUpdate: {
		models.RoleAdmin:        always,
		models.RoleCompanyAdmin: ownCompany,
		models.RoleCompanyHR:    self,
		models.RoleUser:         self,
	},
	UserChangeRole: {
		models.RoleAdmin: always,
		models.RoleCompanyAdmin: func(p models.Principal, t Target) Decision {
			if t.UserID != nil && p.Is(*t.UserID) {
				return deny(ReasonRoleNotPermitted)
			}
			return ownCompanyMember(p, t)
		},
	},
	UserDelete: {
		models.RoleAdmin:        always,
		models.RoleCompanyAdmin: ownCompany,
	},
}

// Decide evaluates action for principal p against target t.
func Decide(p models.Principal, action Action, t Target) Decision {
	if p.IsZero() {
		return deny(ReasonUnauthenticated)
	}

	isSelf := t.UserID != nil && p.Is(*t.UserID)
	switch action {
	case UserDelete:
		if isSelf {
			return deny(ReasonSelfDeletion)
		}
	case UserRead, UserUpdate:
		if isSelf {
			return allow
		}
	}

	byRole, ok := rules[action]
	if !ok {
		return deny(ReasonRoleNotPermitted)
	}
	r, ok := byRole[p.Role]
	if !ok {
		return deny(ReasonRoleNotPermitted)
	}
	return r(p, t)
}

// Require is Decide followed by Decision.Err.
func Require(p models.Principal, action Action, t Target) error {
	return Decide(p, action, t).Err()
}

// Actions lists every action known to the rule table.
func Actions() []Action {
	out := make([]Action, 0, len(rules))
	for a := range rules {
		out = append(out, a)
	}
	return out
}

// Allows reports whether role has any rule for action. It does not evaluate
// ownership.
func Allows(role models.Role, action Action) bool {
	_, ok := rules[action][role]
	return ok
}

package errors

import (
	"fmt"
)

var (
	ErrInvalidInput        = fmt.Errorf("invalid input")
	ErrUnauthenticated     = fmt.Errorf("unauthenticated")
	ErrInvalidToken        = fmt.Errorf("%w: invalid token", ErrUnauthenticated)
	ErrForbidden           = fmt.Errorf("forbidden")
	ErrSelfDeletion        = fmt.Errorf("cannot delete own user")
	ErrNotFound            = fmt.Errorf("not found")
	ErrConflict            = fmt.Errorf("conflict")
	ErrResourceUnavailable = fmt.Errorf("resource unavailable")
	ErrRateLimited         = fmt.Errorf("too many attempts")
)

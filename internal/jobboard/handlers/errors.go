package handlers

import (
	"errors"
	"net/http"

	e "github.com/gartstein/jobboard/internal/jobboard/errors"
	"go.uber.org/zap"
)

const (
	kindValidation          = "VALIDATION_ERROR"
	kindAuthentication      = "AUTHENTICATION_ERROR"
	kindAuthorization       = "AUTHORIZATION_ERROR"
	kindSelfDeletion        = "SELF_DELETION_ERROR"
	kindNotFound            = "NOT_FOUND"
	kindMethodNotAllowed    = "METHOD_NOT_ALLOWED"
	kindConflict            = "CONFLICT"
	kindResourceUnavailable = "RESOURCE_UNAVAILABLE"
	kindRateLimited         = "RATE_LIMITED"
	kindInternal            = "INTERNAL_ERROR"
)

type errorResponse struct {
	Success bool   `json:"success"`
	Kind    string `json:"kind"`
	Message string `json:"message"`
	Detail  string `json:"detail,omitempty"`
	Stack   string `json:"stack,omitempty"`
}

// mapServiceError maps a service error to its HTTP status and kind.
func mapServiceError(err error) (int, string) {
	switch {
	case errors.Is(err, e.ErrInvalidInput):
		return http.StatusBadRequest, kindValidation
	case errors.Is(err, e.ErrUnauthenticated):
		return http.StatusUnauthorized, kindAuthentication
	case errors.Is(err, e.ErrSelfDeletion):
		return http.StatusForbidden, kindSelfDeletion
	case errors.Is(err, e.ErrForbidden):
		return http.StatusForbidden, kindAuthorization
	case errors.Is(err, e.ErrNotFound):
		return http.StatusNotFound, kindNotFound
	case errors.Is(err, e.ErrConflict):
		return http.StatusConflict, kindConflict
	case errors.Is(err, e.ErrResourceUnavailable):
		return http.StatusBadRequest, kindResourceUnavailable
	case errors.Is(err, e.ErrRateLimited):
		return http.StatusTooManyRequests, kindRateLimited
	default:
		return http.StatusInternalServerError, kindInternal
	}
}

// writeError renders err. Internal errors are logged and replaced by a
// generic message unless the API runs in development mode.
func (a *API) writeError(w http.ResponseWriter, r *http.Request, err error) {
	status, kind := mapServiceError(err)
	body := errorResponse{Kind: kind, Message: err.Error()}
	if status == http.StatusInternalServerError {
		a.logger.Error("Request failed",
			zap.Error(err),
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
		)
		body.Message = "internal server error"
		if a.development {
			body.Detail = err.Error()
		}
	}
	a.writeJSON(w, status, body)
}

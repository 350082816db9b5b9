package handlers

import (
	"context"
	"fmt"
	"net/http"

	"github.com/gartstein/jobboard/internal/jobboard/controller"
	e "github.com/gartstein/jobboard/internal/jobboard/errors"
	"github.com/gartstein/jobboard/internal/jobboard/models"
	"github.com/google/uuid"
	"github.com/grpc-ecosystem/grpc-gateway/v2/runtime"
	"go.uber.org/zap"
)

const maxBodyBytes = 1 << 20

// Authenticator resolves the principal of a request.
type Authenticator interface {
	Authenticate(r *http.Request) (models.Principal, error)
}

// API exposes the services as JSON over HTTP.
type API struct {
	services    *controller.Services
	authn       Authenticator
	logger      *zap.Logger
	marshaler   runtime.Marshaler
	development bool
}

func NewAPI(services *controller.Services, authn Authenticator, logger *zap.Logger, development bool) *API {
	return &API{
		services:    services,
		authn:       authn,
		logger:      logger.Named("http_api"),
		marshaler:   &runtime.JSONBuiltin{},
		development: development,
	}
}

type route struct {
	method  string
	pattern string
	handler runtime.HandlerFunc
}

func (a *API) routes() []route {
	return []route{
		{http.MethodPost, "/v1/auth/register", a.register},
		{http.MethodPost, "/v1/auth/login", a.login},

		{http.MethodGet, "/v1/users", a.authed(a.listUsers)},
		{http.MethodPost, "/v1/users", a.authed(a.createUser)},
		{http.MethodGet, "/v1/users/{id}", a.authed(a.getUser)},
		{http.MethodPatch, "/v1/users/{id}", a.authed(a.updateUser)},
		{http.MethodDelete, "/v1/users/{id}", a.authed(a.deleteUser)},

		{http.MethodGet, "/v1/companies", a.authed(a.listCompanies)},
		{http.MethodPost, "/v1/companies", a.authed(a.createCompany)},
		{http.MethodGet, "/v1/companies/{id}", a.authed(a.getCompany)},
		{http.MethodPatch, "/v1/companies/{id}", a.authed(a.updateCompany)},
		{http.MethodDelete, "/v1/companies/{id}", a.authed(a.deleteCompany)},
		{http.MethodGet, "/v1/companies/{id}/jobs", a.authed(a.listCompanyJobs)},
		{http.MethodPut, "/v1/companies/{company_id}/users/{user_id}", a.authed(a.attachUser)},
		{http.MethodDelete, "/v1/companies/{company_id}/users/{user_id}", a.authed(a.detachUser)},

		{http.MethodGet, "/v1/jobs", a.authed(a.listJobs)},
		{http.MethodPost, "/v1/jobs", a.authed(a.createJob)},
		{http.MethodGet, "/v1/jobs/{id}", a.authed(a.getJob)},
		{http.MethodPatch, "/v1/jobs/{id}/close", a.authed(a.closeJob)},

		{http.MethodGet, "/v1/applications", a.authed(a.listApplications)},
		{http.MethodPost, "/v1/applications", a.authed(a.createApplication)},
		{http.MethodDelete, "/v1/applications/{id}", a.authed(a.cancelApplication)},
	}
}

// NewRouter builds a gateway mux serving every API route. Extra options,
// such as the health endpoint, are applied to the mux.
func NewRouter(api *API, opts ...runtime.ServeMuxOption) (*runtime.ServeMux, error) {
	opts = append([]runtime.ServeMuxOption{runtime.WithRoutingErrorHandler(api.routingError)}, opts...)
	mux := runtime.NewServeMux(opts...)
	for _, rt := range api.routes() {
		if err := mux.HandlePath(rt.method, rt.pattern, rt.handler); err != nil {
			return nil, fmt.Errorf("failed to register %s %s: %w", rt.method, rt.pattern, err)
		}
	}
	return mux, nil
}

// principalHandler is a route handler that runs after authentication.
type principalHandler func(w http.ResponseWriter, r *http.Request, p models.Principal, params map[string]string)

// authed authenticates the request and hands the principal to h as an
// explicit argument.
func (a *API) authed(h principalHandler) runtime.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request, params map[string]string) {
		p, err := a.authn.Authenticate(r)
		if err != nil {
			a.writeError(w, r, err)
			return
		}
		if rec, ok := w.(*statusRecorder); ok {
			rec.principal = &p
		}
		h(w, r, p, params)
	}
}

func (a *API) routingError(_ context.Context, _ *runtime.ServeMux, _ runtime.Marshaler,
	w http.ResponseWriter, r *http.Request, status int) {
	body := errorResponse{Kind: kindNotFound, Message: fmt.Sprintf("no route for %s %s", r.Method, r.URL.Path)}
	switch status {
	case http.StatusMethodNotAllowed:
		body.Kind = kindMethodNotAllowed
	case http.StatusBadRequest:
		body.Kind = kindValidation
		body.Message = "malformed request"
	default:
		status = http.StatusNotFound
	}
	a.writeJSON(w, status, body)
}

func (a *API) writeJSON(w http.ResponseWriter, status int, v interface{}) {
	data, err := a.marshaler.Marshal(v)
	if err != nil {
		a.logger.Error("Failed to encode response", zap.Error(err))
		w.WriteHeader(http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", a.marshaler.ContentType(v))
	w.WriteHeader(status)
	if _, err := w.Write(data); err != nil {
		a.logger.Debug("Failed to write response", zap.Error(err))
	}
}

func (a *API) noContent(w http.ResponseWriter) {
	w.WriteHeader(http.StatusNoContent)
}

// decode reads a JSON body into v.
func (a *API) decode(w http.ResponseWriter, r *http.Request, v interface{}) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := a.marshaler.NewDecoder(r.Body).Decode(v); err != nil {
		return fmt.Errorf("%w: malformed JSON body: %v", e.ErrInvalidInput, err)
	}
	return nil
}

func pathID(params map[string]string, name string) (uuid.UUID, error) {
	id, err := uuid.Parse(params[name])
	if err != nil {
		return uuid.Nil, fmt.Errorf("%w: invalid %s", e.ErrInvalidInput, name)
	}
	return id, nil
}

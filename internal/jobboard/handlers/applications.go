package handlers

import (
	"fmt"
	"net/http"

	"github.com/gartstein/jobboard/internal/jobboard/controller"
	e "github.com/gartstein/jobboard/internal/jobboard/errors"
	"github.com/gartstein/jobboard/internal/jobboard/models"
	"github.com/google/uuid"
)

func (a *API) listApplications(w http.ResponseWriter, r *http.Request, p models.Principal, _ map[string]string) {
	var userID *uuid.UUID
	if raw := r.URL.Query().Get("user_id"); raw != "" {
		id, err := uuid.Parse(raw)
		if err != nil {
			a.writeError(w, r, fmt.Errorf("%w: invalid user_id", e.ErrInvalidInput))
			return
		}
		userID = &id
	}
	apps, err := a.services.Applications.List(r.Context(), p, userID)
	if err != nil {
		a.writeError(w, r, err)
		return
	}
	a.writeJSON(w, http.StatusOK, toApplications(apps))
}

func (a *API) createApplication(w http.ResponseWriter, r *http.Request, p models.Principal, _ map[string]string) {
	var in controller.ApplyInput
	if err := a.decode(w, r, &in); err != nil {
		a.writeError(w, r, err)
		return
	}
	app, err := a.services.Applications.Create(r.Context(), p, in)
	if err != nil {
		a.writeError(w, r, err)
		return
	}
	a.writeJSON(w, http.StatusCreated, toApplication(app))
}

func (a *API) cancelApplication(w http.ResponseWriter, r *http.Request, p models.Principal, params map[string]string) {
	id, err := pathID(params, "id")
	if err != nil {
		a.writeError(w, r, err)
		return
	}
	if err := a.services.Applications.Cancel(r.Context(), p, id); err != nil {
		a.writeError(w, r, err)
		return
	}
	a.noContent(w)
}

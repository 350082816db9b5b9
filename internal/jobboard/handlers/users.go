package handlers

import (
	"net/http"

	"github.com/gartstein/jobboard/internal/jobboard/controller"
	"github.com/gartstein/jobboard/internal/jobboard/models"
)

func (a *API) listUsers(w http.ResponseWriter, r *http.Request, p models.Principal, _ map[string]string) {
	users, err := a.services.Users.List(r.Context(), p)
	if err != nil {
		a.writeError(w, r, err)
		return
	}
	a.writeJSON(w, http.StatusOK, toUsers(users))
}

func (a *API) createUser(w http.ResponseWriter, r *http.Request, p models.Principal, _ map[string]string) {
	var in controller.CreateUserInput
	if err := a.decode(w, r, &in); err != nil {
		a.writeError(w, r, err)
		return
	}
	user, err := a.services.Users.Create(r.Context(), p, in)
	if err != nil {
		a.writeError(w, r, err)
		return
	}
	a.writeJSON(w, http.StatusCreated, toUser(user))
}

func (a *API) getUser(w http.ResponseWriter, r *http.Request, p models.Principal, params map[string]string) {
	id, err := pathID(params, "id")
	if err != nil {
		a.writeError(w, r, err)
		return
	}
	detail, err := a.services.Users.Get(r.Context(), p, id)
	if err != nil {
		a.writeError(w, r, err)
		return
	}
	a.writeJSON(w, http.StatusOK, toUserDetail(detail))
}

func (a *API) updateUser(w http.ResponseWriter, r *http.Request, p models.Principal, params map[string]string) {
	id, err := pathID(params, "id")
	if err != nil {
		a.writeError(w, r, err)
		return
	}
	var in controller.UpdateUserInput
	if err := a.decode(w, r, &in); err != nil {
		a.writeError(w, r, err)
		return
	}
	user, err := a.services.Users.Update(r.Context(), p, id, in)
	if err != nil {
		a.writeError(w, r, err)
		return
	}
	a.writeJSON(w, http.StatusOK, toUser(user))
}

func (a *API) deleteUser(w http.ResponseWriter, r *http.Request, p models.Principal, params map[string]string) {
	id, err := pathID(params, "id")
	if err != nil {
		a.writeError(w, r, err)
		return
	}
	if err := a.services.Users.Delete(r.Context(), p, id); err != nil {
		a.writeError(w, r, err)
		return
	}
	a.noContent(w)
}

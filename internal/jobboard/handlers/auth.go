package handlers

import (
	"net/http"

	"github.com/gartstein/jobboard/internal/jobboard/controller"
)

func (a *API) register(w http.ResponseWriter, r *http.Request, _ map[string]string) {
	var in controller.RegisterInput
	if err := a.decode(w, r, &in); err != nil {
		a.writeError(w, r, err)
		return
	}
	result, err := a.services.Auth.Register(r.Context(), in)
	if err != nil {
		a.writeError(w, r, err)
		return
	}
	a.writeJSON(w, http.StatusCreated, toAuth(result))
}

func (a *API) login(w http.ResponseWriter, r *http.Request, _ map[string]string) {
	var in controller.LoginInput
	if err := a.decode(w, r, &in); err != nil {
		a.writeError(w, r, err)
		return
	}
	result, err := a.services.Auth.Login(r.Context(), in)
	if err != nil {
		a.writeError(w, r, err)
		return
	}
	a.writeJSON(w, http.StatusOK, toAuth(result))
}

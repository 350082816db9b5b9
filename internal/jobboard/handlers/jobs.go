package handlers

import (
	"net/http"

	"github.com/gartstein/jobboard/internal/jobboard/controller"
	"github.com/gartstein/jobboard/internal/jobboard/models"
)

func (a *API) listJobs(w http.ResponseWriter, r *http.Request, p models.Principal, _ map[string]string) {
	jobs, err := a.services.Jobs.ListOpen(r.Context(), p)
	if err != nil {
		a.writeError(w, r, err)
		return
	}
	a.writeJSON(w, http.StatusOK, toJobs(jobs))
}

func (a *API) createJob(w http.ResponseWriter, r *http.Request, p models.Principal, _ map[string]string) {
	var in controller.CreateJobInput
	if err := a.decode(w, r, &in); err != nil {
		a.writeError(w, r, err)
		return
	}
	job, err := a.services.Jobs.Create(r.Context(), p, in)
	if err != nil {
		a.writeError(w, r, err)
		return
	}
	a.writeJSON(w, http.StatusCreated, toJob(job))
}

func (a *API) getJob(w http.ResponseWriter, r *http.Request, p models.Principal, params map[string]string) {
	id, err := pathID(params, "id")
	if err != nil {
		a.writeError(w, r, err)
		return
	}
	job, err := a.services.Jobs.Get(r.Context(), p, id)
	if err != nil {
		a.writeError(w, r, err)
		return
	}
	a.writeJSON(w, http.StatusOK, toJobDetail(job))
}

func (a *API) closeJob(w http.ResponseWriter, r *http.Request, p models.Principal, params map[string]string) {
	id, err := pathID(params, "id")
	if err != nil {
		a.writeError(w, r, err)
		return
	}
	job, err := a.services.Jobs.Close(r.Context(), p, id)
	if err != nil {
		a.writeError(w, r, err)
		return
	}
	a.writeJSON(w, http.StatusOK, toJob(job))
}

package handlers

import (
	"net/http"

	"github.com/gartstein/jobboard/internal/jobboard/controller"
	"github.com/gartstein/jobboard/internal/jobboard/models"
)

func (a *API) listCompanies(w http.ResponseWriter, r *http.Request, p models.Principal, _ map[string]string) {
	companies, err := a.services.Companies.List(r.Context(), p)
	if err != nil {
		a.writeError(w, r, err)
		return
	}
	a.writeJSON(w, http.StatusOK, toCompanies(companies))
}

func (a *API) createCompany(w http.ResponseWriter, r *http.Request, p models.Principal, _ map[string]string) {
	var in controller.CreateCompanyInput
	if err := a.decode(w, r, &in); err != nil {
		a.writeError(w, r, err)
		return
	}
	company, err := a.services.Companies.Create(r.Context(), p, in)
	if err != nil {
		a.writeError(w, r, err)
		return
	}
	a.writeJSON(w, http.StatusCreated, toCompany(company))
}

func (a *API) getCompany(w http.ResponseWriter, r *http.Request, p models.Principal, params map[string]string) {
	id, err := pathID(params, "id")
	if err != nil {
		a.writeError(w, r, err)
		return
	}
	company, err := a.services.Companies.Get(r.Context(), p, id)
	if err != nil {
		a.writeError(w, r, err)
		return
	}
	a.writeJSON(w, http.StatusOK, toCompany(company))
}

func (a *API) updateCompany(w http.ResponseWriter, r *http.Request, p models.Principal, params map[string]string) {
	id, err := pathID(params, "id")
	if err != nil {
		a.writeError(w, r, err)
		return
	}
	var in controller.UpdateCompanyInput
	if err := a.decode(w, r, &in); err != nil {
		a.writeError(w, r, err)
		return
	}
	company, err := a.services.Companies.Update(r.Context(), p, id, in)
	if err != nil {
		a.writeError(w, r, err)
		return
	}
	a.writeJSON(w, http.StatusOK, toCompany(company))
}

func (a *API) deleteCompany(w http.ResponseWriter, r *http.Request, p models.Principal, params map[string]string) {
	id, err := pathID(params, "id")
	if err != nil {
		a.writeError(w, r, err)
		return
	}
	if err := a.services.Companies.Delete(r.Context(), p, id); err != nil {
		a.writeError(w, r, err)
		return
	}
	a.noContent(w)
}

func (a *API) listCompanyJobs(w http.ResponseWriter, r *http.Request, p models.Principal, params map[string]string) {
	id, err := pathID(params, "id")
	if err != nil {
		a.writeError(w, r, err)
		return
	}
	jobs, err := a.services.Jobs.ListCompany(r.Context(), p, id)
	if err != nil {
		a.writeError(w, r, err)
		return
	}
	a.writeJSON(w, http.StatusOK, toJobs(jobs))
}

func (a *API) attachUser(w http.ResponseWriter, r *http.Request, p models.Principal, params map[string]string) {
	companyID, err := pathID(params, "company_id")
	if err != nil {
		a.writeError(w, r, err)
		return
	}
	userID, err := pathID(params, "user_id")
	if err != nil {
		a.writeError(w, r, err)
		return
	}
	user, err := a.services.Companies.AttachUser(r.Context(), p, companyID, userID)
	if err != nil {
		a.writeError(w, r, err)
		return
	}
	a.writeJSON(w, http.StatusOK, toUser(user))
}

func (a *API) detachUser(w http.ResponseWriter, r *http.Request, p models.Principal, params map[string]string) {
	companyID, err := pathID(params, "company_id")
	if err != nil {
		a.writeError(w, r, err)
		return
	}
	userID, err := pathID(params, "user_id")
	if err != nil {
		a.writeError(w, r, err)
		return
	}
	if err := a.services.Companies.DetachUser(r.Context(), p, companyID, userID); err != nil {
		a.writeError(w, r, err)
		return
	}
	a.noContent(w)
}

package handlers

import (
	"time"

	"github.com/gartstein/jobboard/internal/jobboard/controller"
	"github.com/gartstein/jobboard/internal/jobboard/models"
)

// Response bodies. None of them has a field for the password digest.

type userResponse struct {
	ID           string                `json:"id"`
	Name         string                `json:"name"`
	Email        string                `json:"email"`
	Role         models.Role           `json:"role"`
	CompanyID    *string               `json:"companyId"`
	CreatedAt    time.Time             `json:"createdAt"`
	UpdatedAt    time.Time             `json:"updatedAt"`
	Applications []applicationResponse `json:"applications,omitempty"`
}

type companyResponse struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	CNPJ      string    `json:"cnpj"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

type jobResponse struct {
	ID                string           `json:"id"`
	Title             string           `json:"title"`
	Description       string           `json:"description"`
	CompanyID         string           `json:"companyId"`
	Status            models.JobStatus `json:"status"`
	Company           *companyResponse `json:"company,omitempty"`
	ApplicationsCount *int64           `json:"applicationsCount,omitempty"`
	CreatedAt         time.Time        `json:"createdAt"`
	UpdatedAt         time.Time        `json:"updatedAt"`
}

type applicationResponse struct {
	ID        string       `json:"id"`
	UserID    string       `json:"userId"`
	JobID     string       `json:"jobId"`
	Job       *jobResponse `json:"job,omitempty"`
	CreatedAt time.Time    `json:"createdAt"`
}

type authResponse struct {
	Token string       `json:"token"`
	User  userResponse `json:"user"`
}

func toUser(u *models.User) userResponse {
	resp := userResponse{
		ID:        u.ID.String(),
		Name:      u.Name,
		Email:     u.Email,
		Role:      u.Role,
		CreatedAt: u.CreatedAt,
		UpdatedAt: u.UpdatedAt,
	}
	if u.CompanyID != nil {
		id := u.CompanyID.String()
		resp.CompanyID = &id
	}
	return resp
}

func toUserDetail(d *controller.UserDetail) userResponse {
	resp := toUser(d.User)
	if d.Applications != nil {
		resp.Applications = toApplications(d.Applications)
	}
	return resp
}

func toUsers(users []*models.User) []userResponse {
	out := make([]userResponse, 0, len(users))
	for _, u := range users {
		out = append(out, toUser(u))
	}
	return out
}

func toCompany(c *models.Company) companyResponse {
	return companyResponse{
		ID:        c.ID.String(),
		Name:      c.Name,
		CNPJ:      c.CNPJ,
		CreatedAt: c.CreatedAt,
		UpdatedAt: c.UpdatedAt,
	}
}

func toCompanies(companies []*models.Company) []companyResponse {
	out := make([]companyResponse, 0, len(companies))
	for _, c := range companies {
		out = append(out, toCompany(c))
	}
	return out
}

func toJob(j *models.Job) jobResponse {
	resp := jobResponse{
		ID:          j.ID.String(),
		Title:       j.Title,
		Description: j.Description,
		CompanyID:   j.CompanyID.String(),
		Status:      j.Status,
		CreatedAt:   j.CreatedAt,
		UpdatedAt:   j.UpdatedAt,
	}
	if j.Company != nil {
		c := toCompany(j.Company)
		resp.Company = &c
	}
	return resp
}

// toJobDetail includes the application count.
func toJobDetail(j *models.Job) jobResponse {
	resp := toJob(j)
	count := j.ApplicationsCount
	resp.ApplicationsCount = &count
	return resp
}

func toJobs(jobs []*models.Job) []jobResponse {
	out := make([]jobResponse, 0, len(jobs))
	for _, j := range jobs {
		out = append(out, toJob(j))
	}
	return out
}

func toApplication(a *models.Application) applicationResponse {
	resp := applicationResponse{
		ID:        a.ID.String(),
		UserID:    a.UserID.String(),
		JobID:     a.JobID.String(),
		CreatedAt: a.CreatedAt,
	}
	if a.Job != nil {
		j := toJob(a.Job)
		resp.Job = &j
	}
	return resp
}

func toApplications(apps []*models.Application) []applicationResponse {
	out := make([]applicationResponse, 0, len(apps))
	for _, a := range apps {
		out = append(out, toApplication(a))
	}
	return out
}

func toAuth(r *controller.AuthResult) authResponse {
	return authResponse{Token: r.Token, User: toUser(r.User)}
}

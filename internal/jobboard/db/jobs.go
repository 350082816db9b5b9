package db

import (
	"context"

	rows "github.com/gartstein/jobboard/internal/jobboard/db/models"
	e "github.com/gartstein/jobboard/internal/jobboard/errors"
	"github.com/gartstein/jobboard/internal/jobboard/models"
	"github.com/google/uuid"
	"gorm.io/gorm/clause"
)

func jobFromRow(row *rows.Job) *models.Job {
	job := &models.Job{
		ID:          row.ID,
		Title:       row.Title,
		Description: row.Description,
		CompanyID:   row.CompanyID,
		Status:      models.JobStatus(row.Status),
		CreatedAt:   row.CreatedAt,
		UpdatedAt:   row.UpdatedAt,
	}
	if row.Company.ID != uuid.Nil {
		job.Company = companyFromRow(&row.Company)
	}
	return job
}

func (r *Repository) CreateJob(ctx context.Context, job *models.Job) error {
	if job.ID == uuid.Nil {
		job.ID = uuid.New()
	}
	if job.Status == "" {
		job.Status = models.JobOpen
	}
	row := &rows.Job{
		ID:          job.ID,
		Title:       job.Title,
		Description: job.Description,
		CompanyID:   job.CompanyID,
		Status:      string(job.Status),
	}
	if err := r.db.WithContext(ctx).Omit(clause.Associations).Create(row).Error; err != nil {
		return translate(err)
	}
	job.CreatedAt = row.CreatedAt
	job.UpdatedAt = row.UpdatedAt
	return nil
}

// GetJob returns an active job, open or closed, with its company.
func (r *Repository) GetJob(ctx context.Context, id uuid.UUID) (*models.Job, error) {
	var row rows.Job
	if err := r.db.WithContext(ctx).Preload("Company").First(&row, "id = ?", id).Error; err != nil {
		return nil, translate(err)
	}
	return jobFromRow(&row), nil
}

// ListOpenJobs returns open, active jobs with their companies.
func (r *Repository) ListOpenJobs(ctx context.Context, filter models.JobFilter) ([]*models.Job, error) {
	q := r.db.WithContext(ctx).Preload("Company").
		Where("status = ?", string(models.JobOpen)).
		Order("created_at DESC, id")
	if filter.CompanyID != nil {
		q = q.Where("company_id = ?", *filter.CompanyID)
	}
	var found []rows.Job
	if err := q.Find(&found).Error; err != nil {
		return nil, err
	}
	out := make([]*models.Job, 0, len(found))
	for i := range found {
		out = append(out, jobFromRow(&found[i]))
	}
	return out, nil
}

// SetJobStatus changes the status of an active job.
func (r *Repository) SetJobStatus(ctx context.Context, id uuid.UUID, status models.JobStatus) error {
	result := r.db.WithContext(ctx).Model(&rows.Job{}).
		Where("id = ?", id).
		Update("status", string(status))
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return e.ErrNotFound
	}
	return nil
}

// DeleteCompanyJobs soft-deletes every job of a company.
func (r *Repository) DeleteCompanyJobs(ctx context.Context, companyID uuid.UUID) error {
	return r.db.WithContext(ctx).Where("company_id = ?", companyID).Delete(&rows.Job{}).Error
}

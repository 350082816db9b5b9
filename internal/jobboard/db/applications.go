package db

import (
	"context"

	rows "github.com/gartstein/jobboard/internal/jobboard/db/models"
	e "github.com/gartstein/jobboard/internal/jobboard/errors"
	"github.com/gartstein/jobboard/internal/jobboard/models"
	"github.com/google/uuid"
	"gorm.io/gorm/clause"
)

func applicationFromRow(row *rows.Application) *models.Application {
	app := &models.Application{
		ID:        row.ID,
		UserID:    row.UserID,
		JobID:     row.JobID,
		CreatedAt: row.CreatedAt,
	}
	if row.Job.ID != uuid.Nil {
		app.Job = jobFromRow(&row.Job)
	}
	return app
}

// CreateApplication inserts an application. A concurrent duplicate active
// application is rejected by the partial unique index with ErrConflict.
func (r *Repository) CreateApplication(ctx context.Context, app *models.Application) error {
	if app.ID == uuid.Nil {
		app.ID = uuid.New()
	}
	row := &rows.Application{ID: app.ID, UserID: app.UserID, JobID: app.JobID}
	if err := r.db.WithContext(ctx).Omit(clause.Associations).Create(row).Error; err != nil {
		return translate(err)
	}
	app.CreatedAt = row.CreatedAt
	return nil
}

func (r *Repository) GetApplication(ctx context.Context, id uuid.UUID) (*models.Application, error) {
	var row rows.Application
	if err := r.db.WithContext(ctx).First(&row, "id = ?", id).Error; err != nil {
		return nil, translate(err)
	}
	return applicationFromRow(&row), nil
}

// ActiveApplicationExists reports whether userID has an active application
// for jobID.
func (r *Repository) ActiveApplicationExists(ctx context.Context, userID, jobID uuid.UUID) (bool, error) {
	var count int64
	result := r.db.WithContext(ctx).Model(&rows.Application{}).
		Where("user_id = ? AND job_id = ?", userID, jobID).
		Limit(1).
		Count(&count)
	return count > 0, result.Error
}

// ListUserApplications returns the active applications of a user with
// their jobs and companies.
func (r *Repository) ListUserApplications(ctx context.Context, userID uuid.UUID) ([]*models.Application, error) {
	var found []rows.Application
	err := r.db.WithContext(ctx).
		Preload("Job").
		Preload("Job.Company").
		Where("user_id = ?", userID).
		Order("created_at DESC, id").
		Find(&found).Error
	if err != nil {
		return nil, err
	}
	out := make([]*models.Application, 0, len(found))
	for i := range found {
		out = append(out, applicationFromRow(&found[i]))
	}
	return out, nil
}

// CountJobApplications counts active applications for a job.
func (r *Repository) CountJobApplications(ctx context.Context, jobID uuid.UUID) (int64, error) {
	var count int64
	result := r.db.WithContext(ctx).Model(&rows.Application{}).
		Where("job_id = ?", jobID).
		Count(&count)
	return count, result.Error
}

func (r *Repository) DeleteApplication(ctx context.Context, id uuid.UUID) error {
	result := r.db.WithContext(ctx).Delete(&rows.Application{}, "id = ?", id)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return e.ErrNotFound
	}
	return nil
}

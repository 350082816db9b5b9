package db

import (
	"context"
	"strings"

	rows "github.com/gartstein/jobboard/internal/jobboard/db/models"
	e "github.com/gartstein/jobboard/internal/jobboard/errors"
	"github.com/gartstein/jobboard/internal/jobboard/models"
	"github.com/google/uuid"
	"gorm.io/gorm/clause"
)

func userFromRow(row *rows.User) *models.User {
	return &models.User{
		ID:           row.ID,
		Name:         row.Name,
		Email:        row.Email,
		PasswordHash: row.PasswordHash,
		Role:         models.Role(row.Role),
		CompanyID:    row.CompanyID,
		CreatedAt:    row.CreatedAt,
		UpdatedAt:    row.UpdatedAt,
	}
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// CreateUser inserts user, assigning a new ID when unset.
func (r *Repository) CreateUser(ctx context.Context, user *models.User) error {
	if user.ID == uuid.Nil {
		user.ID = uuid.New()
	}
	user.Email = normalizeEmail(user.Email)
	row := &rows.User{
		ID:           user.ID,
		Name:         user.Name,
		Email:        user.Email,
		PasswordHash: user.PasswordHash,
		Role:         string(user.Role),
		CompanyID:    user.CompanyID,
	}
	if err := r.db.WithContext(ctx).Omit(clause.Associations).Create(row).Error; err != nil {
		return translate(err)
	}
	user.CreatedAt = row.CreatedAt
	user.UpdatedAt = row.UpdatedAt
	return nil
}

func (r *Repository) GetUser(ctx context.Context, id uuid.UUID) (*models.User, error) {
	var row rows.User
	if err := r.db.WithContext(ctx).First(&row, "id = ?", id).Error; err != nil {
		return nil, translate(err)
	}
	return userFromRow(&row), nil
}

// GetUserByEmail returns the active user with the given email.
func (r *Repository) GetUserByEmail(ctx context.Context, email string) (*models.User, error) {
	var row rows.User
	if err := r.db.WithContext(ctx).First(&row, "email = ?", normalizeEmail(email)).Error; err != nil {
		return nil, translate(err)
	}
	return userFromRow(&row), nil
}

// EmailExists checks every user row, soft-deleted ones included.
func (r *Repository) EmailExists(ctx context.Context, email string) (bool, error) {
	var count int64
	result := r.db.WithContext(ctx).Unscoped().Model(&rows.User{}).
		Where("email = ?", normalizeEmail(email)).
		Limit(1).
		Count(&count)
	return count > 0, result.Error
}

func (r *Repository) ListUsers(ctx context.Context, filter models.UserFilter) ([]*models.User, error) {
	q := r.db.WithContext(ctx).Model(&rows.User{}).Order("created_at, id")
	if filter.CompanyID != nil {
		q = q.Where("company_id = ?", *filter.CompanyID)
	}
	var found []rows.User
	if err := q.Find(&found).Error; err != nil {
		return nil, err
	}
	out := make([]*models.User, 0, len(found))
	for i := range found {
		out = append(out, userFromRow(&found[i]))
	}
	return out, nil
}

func (r *Repository) UpdateUser(ctx context.Context, update *models.UserUpdate) error {
	fields := map[string]interface{}{}
	if update.Name != nil {
		fields["name"] = *update.Name
	}
	if update.Email != nil {
		fields["email"] = normalizeEmail(*update.Email)
	}
	if update.PasswordHash != nil {
		fields["password_hash"] = *update.PasswordHash
	}
	if update.Role != nil {
		fields["role"] = string(*update.Role)
	}
	if update.ClearCompany {
		fields["company_id"] = nil
	}
	if len(fields) == 0 {
		_, err := r.GetUser(ctx, update.ID)
		return err
	}

	result := r.db.WithContext(ctx).Model(&rows.User{}).
		Where("id = ?", update.ID).
		Updates(fields)
	if result.Error != nil {
		return translate(result.Error)
	}
	if result.RowsAffected == 0 {
		return e.ErrNotFound
	}
	return nil
}

// SetUserCompany attaches the user to companyID, or detaches it when nil.
func (r *Repository) SetUserCompany(ctx context.Context, userID uuid.UUID, companyID *uuid.UUID) error {
	result := r.db.WithContext(ctx).Model(&rows.User{}).
		Where("id = ?", userID).
		Update("company_id", companyID)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return e.ErrNotFound
	}
	return nil
}

// DetachCompanyUsers clears the company of every user attached to companyID.
func (r *Repository) DetachCompanyUsers(ctx context.Context, companyID uuid.UUID) error {
	return r.db.WithContext(ctx).Model(&rows.User{}).
		Where("company_id = ?", companyID).
		Update("company_id", nil).Error
}

func (r *Repository) DeleteUser(ctx context.Context, id uuid.UUID) error {
	result := r.db.WithContext(ctx).Delete(&rows.User{}, "id = ?", id)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return e.ErrNotFound
	}
	return nil
}

package db

import (
	"context"

	rows "github.com/gartstein/jobboard/internal/jobboard/db/models"
	e "github.com/gartstein/jobboard/internal/jobboard/errors"
	"github.com/gartstein/jobboard/internal/jobboard/models"
	"github.com/google/uuid"
)

func companyFromRow(row *rows.Company) *models.Company {
	return &models.Company{
		ID:        row.ID,
		Name:      row.Name,
		CNPJ:      row.CNPJ,
		CreatedAt: row.CreatedAt,
		UpdatedAt: row.UpdatedAt,
	}
}

func (r *Repository) CreateCompany(ctx context.Context, company *models.Company) error {
	if company.ID == uuid.Nil {
		company.ID = uuid.New()
	}
	row := &rows.Company{ID: company.ID, Name: company.Name, CNPJ: company.CNPJ}
	if err := r.db.WithContext(ctx).Create(row).Error; err != nil {
		return translate(err)
	}
	company.CreatedAt = row.CreatedAt
	company.UpdatedAt = row.UpdatedAt
	return nil
}

func (r *Repository) GetCompany(ctx context.Context, id uuid.UUID) (*models.Company, error) {
	var row rows.Company
	if err := r.db.WithContext(ctx).First(&row, "id = ?", id).Error; err != nil {
		return nil, translate(err)
	}
	return companyFromRow(&row), nil
}

func (r *Repository) ListCompanies(ctx context.Context) ([]*models.Company, error) {
	var found []rows.Company
	if err := r.db.WithContext(ctx).Order("name, id").Find(&found).Error; err != nil {
		return nil, err
	}
	out := make([]*models.Company, 0, len(found))
	for i := range found {
		out = append(out, companyFromRow(&found[i]))
	}
	return out, nil
}

// CNPJExists reports whether an active company already uses cnpj.
func (r *Repository) CNPJExists(ctx context.Context, cnpj string) (bool, error) {
	var count int64
	result := r.db.WithContext(ctx).Model(&rows.Company{}).
		Where("cnpj = ?", cnpj).
		Limit(1).
		Count(&count)
	return count > 0, result.Error
}

func (r *Repository) UpdateCompany(ctx context.Context, update *models.CompanyUpdate) error {
	fields := map[string]interface{}{}
	if update.Name != nil {
		fields["name"] = *update.Name
	}
	if update.CNPJ != nil {
		fields["cnpj"] = *update.CNPJ
	}
	if len(fields) == 0 {
		_, err := r.GetCompany(ctx, update.ID)
		return err
	}

	result := r.db.WithContext(ctx).Model(&rows.Company{}).
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

func (r *Repository) DeleteCompany(ctx context.Context, id uuid.UUID) error {
	result := r.db.WithContext(ctx).Delete(&rows.Company{}, "id = ?", id)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return e.ErrNotFound
	}
	return nil
}

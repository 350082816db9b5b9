// Package models contains the persistence rows of the job board,
// configured to work using GORM as the ORM. Every row is soft-deleted
// through gorm.DeletedAt.
package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// User is an account row. Email is unique across all rows, soft-deleted
// ones included.
type User struct {
	ID           uuid.UUID  `gorm:"type:uuid;primaryKey"`
	Name         string     `gorm:"size:120;not null"`
	Email        string     `gorm:"size:254;not null;uniqueIndex"`
	PasswordHash string     `gorm:"not null"`
	Role         string     `gorm:"size:20;not null;index"`
	CompanyID    *uuid.UUID `gorm:"type:uuid;index"`
	CreatedAt    time.Time
	UpdatedAt    time.Time
	DeletedAt    gorm.DeletedAt `gorm:"index"`
}

// Company row. CNPJ is unique among active companies.
type Company struct {
	ID        uuid.UUID `gorm:"type:uuid;primaryKey"`
	Name      string    `gorm:"size:120;not null"`
	CNPJ      string    `gorm:"column:cnpj;size:14;not null;uniqueIndex:idx_companies_cnpj_active,where:deleted_at IS NULL"`
	CreatedAt time.Time
	UpdatedAt time.Time
	DeletedAt gorm.DeletedAt `gorm:"index"`
}

// Job row.
type Job struct {
	ID          uuid.UUID `gorm:"type:uuid;primaryKey"`
	Title       string    `gorm:"size:200;not null"`
	Description string    `gorm:"size:5000"`
	CompanyID   uuid.UUID `gorm:"type:uuid;not null;index"`
	Company     Company   `gorm:"foreignKey:CompanyID"`
	Status      string    `gorm:"size:10;not null;index"`
	CreatedAt   time.Time
	UpdatedAt   time.Time
	DeletedAt   gorm.DeletedAt `gorm:"index"`
}

// Application row. At most one active row exists per (user, job).
type Application struct {
	ID        uuid.UUID `gorm:"type:uuid;primaryKey"`
	UserID    uuid.UUID `gorm:"type:uuid;not null;uniqueIndex:idx_applications_active,where:deleted_at IS NULL"`
	JobID     uuid.UUID `gorm:"type:uuid;not null;uniqueIndex:idx_applications_active,where:deleted_at IS NULL"`
	Job       Job       `gorm:"foreignKey:JobID"`
	CreatedAt time.Time
	UpdatedAt time.Time
	DeletedAt gorm.DeletedAt `gorm:"index"`
}

// All lists every row type for migrations.
func All() []interface{} {
	return []interface{}{&Company{}, &User{}, &Job{}, &Application{}}
}

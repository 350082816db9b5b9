package models

import (
	"time"

	"github.com/google/uuid"
)

// Company defines the domain model for a company entity.
type Company struct {
	// ID is the unique identifier for the company.
	ID uuid.UUID
	// Name is the company’s name.
	Name string
	// CNPJ is the Brazilian tax id, digits only.
	CNPJ string
	// CreatedAt records the timestamp when the company was created.
	CreatedAt time.Time
	// UpdatedAt records the timestamp when the company was last updated.
	UpdatedAt time.Time
}

// CompanyUpdate represents the fields that can be updated for a Company.
// Pointer types are used to allow partial updates.
type CompanyUpdate struct {
	// ID is the unique identifier for the company to update.
	ID uuid.UUID
	// Name is the new name for the company.
	Name *string
	// CNPJ is the new tax id.
	CNPJ *string
}

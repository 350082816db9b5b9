package models

import (
	"time"

	"github.com/google/uuid"
)

// JobStatus is the lifecycle state of a job posting.
type JobStatus string

const (
	JobOpen   JobStatus = "OPEN"
	JobClosed JobStatus = "CLOSED"
)

// Job is a posting owned by a company.
type Job struct {
	ID          uuid.UUID
	Title       string
	Description string
	CompanyID   uuid.UUID
	Status      JobStatus
	// Company is populated when the owning company was loaded with the job.
	Company *Company
	// ApplicationsCount counts active applications; only set on detail reads.
	ApplicationsCount int64
	CreatedAt         time.Time
	UpdatedAt         time.Time
}

// IsOpen reports whether the job accepts applications.
func (j *Job) IsOpen() bool {
	return j.Status == JobOpen
}

// JobFilter narrows job listings.
type JobFilter struct {
	CompanyID *uuid.UUID
}

// Application links a user to a job.
type Application struct {
	ID     uuid.UUID
	UserID uuid.UUID
	JobID  uuid.UUID
	// Job is populated, with its company, on listings.
	Job       *Job
	CreatedAt time.Time
}

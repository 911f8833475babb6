package models

import "time"

// Project statuses. The set is open: clients may persist other values, these
// are just the ones the UI knows about.
const (
	ProjectStatusActive    = "active"
	ProjectStatusCompleted = "completed"
	ProjectStatusArchived  = "archived"
)

// Project is a child aggregate of a Tenant and owns its Tasks. TenantID must
// always equal the tenant of its creator and of every accessor.
type Project struct {
	ID          string    `json:"id" db:"id"`
	TenantID    string    `json:"tenant_id" db:"tenant_id"`
	Name        string    `json:"name" db:"name"`
	Description string    `json:"description" db:"description"`
	Status      string    `json:"status" db:"status"`
	CreatedBy   *string   `json:"created_by" db:"created_by"` // nil when the creator was deleted
	CreatedAt   time.Time `json:"created_at" db:"created_at"`
	UpdatedAt   time.Time `json:"updated_at" db:"updated_at"`
}

// ProjectSummary is a Project joined with its creator's name and task count
// for the list endpoint.
type ProjectSummary struct {
	Project
	CreatorName *string `json:"creator_name" db:"creator_name"` // nil when the creator was deleted
	TaskCount   int     `json:"task_count" db:"task_count"`
}

// Package models defines the database entities for the task tracking service.
// Every tenant-scoped entity carries its tenant_id so the repository layer can
// require it as a query parameter; nullable columns map to pointer fields.
package models

import "time"

// Tenant statuses.
const (
	TenantStatusActive    = "active"
	TenantStatusSuspended = "suspended"
)

// Subscription plans.
const (
	PlanFree = "free"
	PlanPro  = "pro"
)

// Default resource ceilings applied when a tenant row is missing its limit
// columns. These match the free plan.
const (
	DefaultMaxProjects = 3
	DefaultMaxUsers    = 5
)

// Tenant represents an isolated customer organization. The subdomain is the
// human-chosen unique identifier used as login context and is immutable after
// registration.
type Tenant struct {
	ID               string    `json:"id" db:"id"`
	Name             string    `json:"name" db:"name"`
	Subdomain        string    `json:"subdomain" db:"subdomain"`
	Status           string    `json:"status" db:"status"`
	SubscriptionPlan string    `json:"subscription_plan" db:"subscription_plan"`
	MaxUsers         int       `json:"max_users" db:"max_users"`
	MaxProjects      int       `json:"max_projects" db:"max_projects"`
	CreatedAt        time.Time `json:"created_at" db:"created_at"`
	UpdatedAt        time.Time `json:"updated_at" db:"updated_at"`
}

// TenantStats holds aggregate counts shown on the tenant detail endpoint.
type TenantStats struct {
	TotalUsers    int `json:"total_users"`
	TotalProjects int `json:"total_projects"`
}

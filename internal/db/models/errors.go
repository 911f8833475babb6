// errors.go defines the typed domain errors surfaced by the repository layer.
// Handlers map these to HTTP status codes; anything not listed here is treated
// as an unexpected storage failure and becomes a 500.
package models

import "errors"

var (
	// ErrNotFound is returned when a row does not exist in the caller's
	// tenant. A row that exists in another tenant produces the same error so
	// cross-tenant probing cannot distinguish the two cases.
	ErrNotFound = errors.New("resource not found")

	// ErrLimitReached is returned when creating a project or user would
	// exceed the tenant's subscription ceiling.
	ErrLimitReached = errors.New("plan limit reached")

	// ErrDuplicateSubdomain is returned when registering a tenant whose
	// subdomain is already taken.
	ErrDuplicateSubdomain = errors.New("subdomain already exists")

	// ErrDuplicateEmail is returned when creating a user whose email already
	// exists within the same tenant.
	ErrDuplicateEmail = errors.New("email already exists in this tenant")

	// ErrAssigneeNotInTenant is returned when a task is assigned to a user
	// that does not belong to the task's tenant.
	ErrAssigneeNotInTenant = errors.New("assignee does not belong to this tenant")
)

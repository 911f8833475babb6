// user.go defines the User model and the role constants used by the
// authorization engine.
package models

import "time"

// Roles, in decreasing order of privilege. A super admin has no tenant
// (TenantID is nil) and holds cross-tenant read and tenant-administration
// rights; tenant admins and members are always bound to exactly one tenant.
const (
	RoleSuperAdmin  = "super_admin"
	RoleTenantAdmin = "tenant_admin"
	RoleUser        = "user"
)

// ValidRole reports whether r is one of the known roles.
func ValidRole(r string) bool {
	return r == RoleSuperAdmin || r == RoleTenantAdmin || r == RoleUser
}

// User represents an account. Email uniqueness is scoped per tenant: two
// different tenants may each have a user with the same email address.
type User struct {
	ID           string    `json:"id" db:"id"`
	TenantID     *string   `json:"tenant_id" db:"tenant_id"` // nil for super admins
	Email        string    `json:"email" db:"email"`
	PasswordHash string    `json:"-" db:"password_hash"`
	FullName     string    `json:"full_name" db:"full_name"`
	Role         string    `json:"role" db:"role"`
	IsActive     bool      `json:"is_active" db:"is_active"`
	CreatedAt    time.Time `json:"created_at" db:"created_at"`
	UpdatedAt    time.Time `json:"updated_at" db:"updated_at"`
}

// TenantIDString returns the user's tenant id, or "" for super admins.
func (u *User) TenantIDString() string {
	if u.TenantID == nil {
		return ""
	}
	return *u.TenantID
}

// UserWithSubdomain is a User joined with its tenant's subdomain, used by the
// login flow to verify the supplied tenant context.
type UserWithSubdomain struct {
	User
	Subdomain *string `db:"subdomain"` // nil when the user has no tenant
}

// audit_log.go defines the append-only AuditLog model. Entries are written
// best-effort by the audit recorder and never updated or deleted by the
// application.
package models

import "time"

// Audit actions recorded for mutating operations.
const (
	ActionRegisterTenant   = "REGISTER_TENANT"
	ActionUpdateTenant     = "UPDATE_TENANT"
	ActionCreateUser       = "CREATE_USER"
	ActionUpdateUser       = "UPDATE_USER"
	ActionDeleteUser       = "DELETE_USER"
	ActionCreateProject    = "CREATE_PROJECT"
	ActionUpdateProject    = "UPDATE_PROJECT"
	ActionDeleteProject    = "DELETE_PROJECT"
	ActionCreateTask       = "CREATE_TASK"
	ActionUpdateTask       = "UPDATE_TASK"
	ActionUpdateTaskStatus = "UPDATE_TASK_STATUS"
	ActionDeleteTask       = "DELETE_TASK"
)

// AuditLog records a single mutating action for traceability.
type AuditLog struct {
	ID         string    `json:"id" db:"id"`
	TenantID   *string   `json:"tenant_id" db:"tenant_id"` // nil for super-admin actions
	UserID     string    `json:"user_id" db:"user_id"`
	Action     string    `json:"action" db:"action"`
	EntityType string    `json:"entity_type" db:"entity_type"`
	EntityID   string    `json:"entity_id" db:"entity_id"`
	IPAddress  *string   `json:"ip_address" db:"ip_address"`
	CreatedAt  time.Time `json:"created_at" db:"created_at"`
}

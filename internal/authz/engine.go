// Package authz contains the single authorization decision function used by
// every handler. Centralizing the role and tenant checks here replaces the
// per-query role tests that otherwise end up duplicated, and easy to miss,
// across handlers.
package authz

import "github.com/taskhive/taskhive/internal/db/models"

// Action identifies a requested operation.
type Action string

// Actions covered by the engine. Handlers pass exactly one per request.
const (
	ActionListTenants     Action = "tenants:list"
	ActionViewTenant      Action = "tenants:view"
	ActionUpdateTenant    Action = "tenants:update"
	ActionViewTenantStats Action = "tenants:stats"

	ActionCreateUser Action = "users:create"
	ActionListUsers  Action = "users:list"
	ActionUpdateUser Action = "users:update"
	ActionDeleteUser Action = "users:delete"

	ActionCreateProject Action = "projects:create"
	ActionListProjects  Action = "projects:list"
	ActionViewProject   Action = "projects:view"
	ActionUpdateProject Action = "projects:update"
	ActionDeleteProject Action = "projects:delete"

	ActionCreateTask       Action = "tasks:create"
	ActionListTasks        Action = "tasks:list"
	ActionUpdateTask       Action = "tasks:update"
	ActionUpdateTaskStatus Action = "tasks:update_status"
	ActionDeleteTask       Action = "tasks:delete"
)

// Caller is the authenticated identity making the request. It is built from
// the canonical user row fetched by the auth middleware, never from token
// claims alone.
type Caller struct {
	ID       string
	TenantID *string
	Role     string
}

// Resource describes the target of the action. TenantID is the tenant the
// resource belongs to, empty for global actions such as listing tenants.
// OwnerID is set for user-targeted actions and holds the target user's id, so
// the self-protection and self-service rules can be decided here.
type Resource struct {
	TenantID string
	OwnerID  string
}

// Reason classifies a denial.
type Reason int

const (
	// ReasonNone means the action was allowed.
	ReasonNone Reason = iota
	// ReasonRole means the caller's role does not cover the action.
	ReasonRole
	// ReasonCrossTenant means the resource belongs to a different tenant.
	// Handlers render this as a not-found response so the resource's
	// existence is not leaked.
	ReasonCrossTenant
	// ReasonSelfDelete means the caller tried to delete their own account.
	ReasonSelfDelete
)

// Decision is the outcome of an authorization check. Denials are expected
// outcomes, not errors.
type Decision struct {
	Allowed bool
	Reason  Reason
}

func allow() Decision {
	return Decision{Allowed: true}
}

func deny(reason Reason) Decision {
	return Decision{Reason: reason}
}

// readOnly reports whether the action only reads state.
func readOnly(action Action) bool {
	switch action {
	case ActionListTenants, ActionViewTenant, ActionViewTenantStats,
		ActionListUsers, ActionListProjects, ActionViewProject, ActionListTasks:
		return true
	}
	return false
}

// tenantAdministration reports whether the action manages tenant records
// themselves rather than data inside a tenant's workspace.
func tenantAdministration(action Action) bool {
	switch action {
	case ActionListTenants, ActionViewTenant, ActionUpdateTenant, ActionViewTenantStats:
		return true
	}
	return false
}

// Authorize decides whether caller may perform action on res. Rules, in
// precedence order:
//
//  1. Nobody may delete their own account, regardless of role.
//  2. A super admin may perform any read and any tenant administration
//     action, across all tenants. They may NOT mutate another tenant's
//     users, projects, or tasks; that stays with the tenant's own roles.
//  3. For everyone else, a resource outside the caller's tenant is denied
//     as cross-tenant, before any role logic runs.
//  4. A tenant admin may do everything within their own tenant.
//  5. A regular user gets project and task operations, tenant-local reads,
//     and updates to their own user record.
func Authorize(caller Caller, action Action, res Resource) Decision {
	if action == ActionDeleteUser && res.OwnerID != "" && res.OwnerID == caller.ID {
		return deny(ReasonSelfDelete)
	}

	if caller.Role == models.RoleSuperAdmin {
		if readOnly(action) || tenantAdministration(action) {
			return allow()
		}
		return deny(ReasonRole)
	}

	// ListTenants is the only action with no resource tenant; it never
	// reaches here for a super admin, and nobody else may perform it.
	if action == ActionListTenants {
		return deny(ReasonRole)
	}

	if caller.TenantID == nil || res.TenantID == "" || *caller.TenantID != res.TenantID {
		return deny(ReasonCrossTenant)
	}

	if caller.Role == models.RoleTenantAdmin {
		return allow()
	}

	// models.RoleUser from here on.
	switch action {
	case ActionListProjects, ActionViewProject, ActionCreateProject,
		ActionUpdateProject, ActionDeleteProject,
		ActionCreateTask, ActionListTasks, ActionUpdateTask,
		ActionUpdateTaskStatus, ActionDeleteTask:
		return allow()
	case ActionViewTenant, ActionViewTenantStats, ActionListUsers:
		return allow()
	case ActionUpdateUser:
		if res.OwnerID != "" && res.OwnerID == caller.ID {
			return allow()
		}
		return deny(ReasonRole)
	}

	return deny(ReasonRole)
}

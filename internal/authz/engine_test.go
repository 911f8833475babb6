package authz

import (
	"testing"

	"github.com/taskhive/taskhive/internal/db/models"
)

func strPtr(s string) *string { return &s }

func superAdmin() Caller {
	return Caller{ID: "sa-1", TenantID: nil, Role: models.RoleSuperAdmin}
}

func tenantAdmin(tenantID string) Caller {
	return Caller{ID: "admin-1", TenantID: strPtr(tenantID), Role: models.RoleTenantAdmin}
}

func member(tenantID string) Caller {
	return Caller{ID: "user-1", TenantID: strPtr(tenantID), Role: models.RoleUser}
}

func TestAuthorize(t *testing.T) {
	tests := []struct {
		name       string
		caller     Caller
		action     Action
		res        Resource
		want       bool
		wantReason Reason
	}{
		// Self-protection beats everything else.
		{
			name:       "tenant admin cannot delete self",
			caller:     tenantAdmin("t1"),
			action:     ActionDeleteUser,
			res:        Resource{TenantID: "t1", OwnerID: "admin-1"},
			want:       false,
			wantReason: ReasonSelfDelete,
		},
		{
			name:       "super admin cannot delete self",
			caller:     superAdmin(),
			action:     ActionDeleteUser,
			res:        Resource{TenantID: "t1", OwnerID: "sa-1"},
			want:       false,
			wantReason: ReasonSelfDelete,
		},

		// Super admin: reads and tenant administration anywhere.
		{
			name:   "super admin lists tenants",
			caller: superAdmin(),
			action: ActionListTenants,
			res:    Resource{},
			want:   true,
		},
		{
			name:   "super admin views any tenant",
			caller: superAdmin(),
			action: ActionViewTenant,
			res:    Resource{TenantID: "t2"},
			want:   true,
		},
		{
			name:   "super admin updates any tenant",
			caller: superAdmin(),
			action: ActionUpdateTenant,
			res:    Resource{TenantID: "t2"},
			want:   true,
		},
		{
			name:   "super admin reads any tenant's projects",
			caller: superAdmin(),
			action: ActionListProjects,
			res:    Resource{TenantID: "t2"},
			want:   true,
		},
		{
			name:   "super admin lists any tenant's users",
			caller: superAdmin(),
			action: ActionListUsers,
			res:    Resource{TenantID: "t2"},
			want:   true,
		},

		// Super admin: no workspace mutations.
		{
			name:       "super admin cannot create users in a tenant",
			caller:     superAdmin(),
			action:     ActionCreateUser,
			res:        Resource{TenantID: "t2"},
			want:       false,
			wantReason: ReasonRole,
		},
		{
			name:       "super admin cannot create projects in a tenant",
			caller:     superAdmin(),
			action:     ActionCreateProject,
			res:        Resource{TenantID: "t2"},
			want:       false,
			wantReason: ReasonRole,
		},
		{
			name:       "super admin cannot delete another tenant's task",
			caller:     superAdmin(),
			action:     ActionDeleteTask,
			res:        Resource{TenantID: "t2"},
			want:       false,
			wantReason: ReasonRole,
		},

		// Cross-tenant is checked before role for tenant-bound callers.
		{
			name:       "tenant admin blocked from another tenant's project",
			caller:     tenantAdmin("t1"),
			action:     ActionViewProject,
			res:        Resource{TenantID: "t2"},
			want:       false,
			wantReason: ReasonCrossTenant,
		},
		{
			name:       "member blocked from another tenant's task",
			caller:     member("t1"),
			action:     ActionUpdateTask,
			res:        Resource{TenantID: "t2"},
			want:       false,
			wantReason: ReasonCrossTenant,
		},
		{
			name:       "tenant admin cannot manage another tenant's users",
			caller:     tenantAdmin("t1"),
			action:     ActionCreateUser,
			res:        Resource{TenantID: "t2"},
			want:       false,
			wantReason: ReasonCrossTenant,
		},
		{
			name:       "member cannot list tenants",
			caller:     member("t1"),
			action:     ActionListTenants,
			res:        Resource{},
			want:       false,
			wantReason: ReasonRole,
		},

		// Tenant admin: everything within own tenant.
		{
			name:   "tenant admin creates users",
			caller: tenantAdmin("t1"),
			action: ActionCreateUser,
			res:    Resource{TenantID: "t1"},
			want:   true,
		},
		{
			name:   "tenant admin deletes another user",
			caller: tenantAdmin("t1"),
			action: ActionDeleteUser,
			res:    Resource{TenantID: "t1", OwnerID: "user-2"},
			want:   true,
		},
		{
			name:   "tenant admin updates own tenant",
			caller: tenantAdmin("t1"),
			action: ActionUpdateTenant,
			res:    Resource{TenantID: "t1"},
			want:   true,
		},
		{
			name:   "tenant admin full task access",
			caller: tenantAdmin("t1"),
			action: ActionDeleteTask,
			res:    Resource{TenantID: "t1"},
			want:   true,
		},

		// Regular user: project and task CRUD within own tenant.
		{
			name:   "member creates project",
			caller: member("t1"),
			action: ActionCreateProject,
			res:    Resource{TenantID: "t1"},
			want:   true,
		},
		{
			name:   "member deletes project",
			caller: member("t1"),
			action: ActionDeleteProject,
			res:    Resource{TenantID: "t1"},
			want:   true,
		},
		{
			name:   "member updates task status",
			caller: member("t1"),
			action: ActionUpdateTaskStatus,
			res:    Resource{TenantID: "t1"},
			want:   true,
		},
		{
			name:   "member views own tenant",
			caller: member("t1"),
			action: ActionViewTenant,
			res:    Resource{TenantID: "t1"},
			want:   true,
		},
		{
			name:   "member lists tenant users",
			caller: member("t1"),
			action: ActionListUsers,
			res:    Resource{TenantID: "t1"},
			want:   true,
		},

		// Regular user: no administration.
		{
			name:       "member cannot create users",
			caller:     member("t1"),
			action:     ActionCreateUser,
			res:        Resource{TenantID: "t1"},
			want:       false,
			wantReason: ReasonRole,
		},
		{
			name:       "member cannot delete users",
			caller:     member("t1"),
			action:     ActionDeleteUser,
			res:        Resource{TenantID: "t1", OwnerID: "user-2"},
			want:       false,
			wantReason: ReasonRole,
		},
		{
			name:       "member cannot update tenant",
			caller:     member("t1"),
			action:     ActionUpdateTenant,
			res:        Resource{TenantID: "t1"},
			want:       false,
			wantReason: ReasonRole,
		},

		// Self-service user updates.
		{
			name:   "member updates own record",
			caller: member("t1"),
			action: ActionUpdateUser,
			res:    Resource{TenantID: "t1", OwnerID: "user-1"},
			want:   true,
		},
		{
			name:       "member cannot update another user",
			caller:     member("t1"),
			action:     ActionUpdateUser,
			res:        Resource{TenantID: "t1", OwnerID: "user-2"},
			want:       false,
			wantReason: ReasonRole,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Authorize(tt.caller, tt.action, tt.res)
			if got.Allowed != tt.want {
				t.Fatalf("Allowed = %v, want %v", got.Allowed, tt.want)
			}
			if !tt.want && got.Reason != tt.wantReason {
				t.Errorf("Reason = %v, want %v", got.Reason, tt.wantReason)
			}
			if tt.want && got.Reason != ReasonNone {
				t.Errorf("Reason = %v, want ReasonNone on allow", got.Reason)
			}
		})
	}
}

package handlers

import (
	"net/http"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/gin-gonic/gin"

	"github.com/taskhive/taskhive/internal/authz"
	"github.com/taskhive/taskhive/internal/db/repositories"
)

var tenantRowCols = []string{"id", "name", "subdomain", "status", "subscription_plan", "max_users", "max_projects", "created_at", "updated_at"}

func newTenantRouter(t *testing.T, caller authz.Caller) (*gin.Engine, sqlmock.Sqlmock) {
	t.Helper()
	db, mock := newMockDB(t)
	h := NewTenantHandlers(repositories.NewTenantRepository(db), noopRecorder())

	r := gin.New()
	r.Use(withCaller(caller, nil))
	r.GET("/api/tenants", h.ListTenantsHandler())
	r.GET("/api/tenants/:id", h.GetTenantHandler())
	r.PUT("/api/tenants/:id", h.UpdateTenantHandler())
	return r, mock
}

// ---------------------------------------------------------------------------
// List tenants
// ---------------------------------------------------------------------------

func TestListTenants_SuperAdmin(t *testing.T) {
	r, mock := newTenantRouter(t, superAdminCaller("root-1"))
	mock.ExpectQuery("SELECT .* FROM tenants ORDER BY created_at DESC").
		WillReturnRows(sqlmock.NewRows(tenantRowCols).
			AddRow("tenant-1", "Acme Corp", "acme", "active", "free", 5, 3, time.Now(), time.Now()).
			AddRow("tenant-2", "Globex", "globex", "active", "pro", 50, 30, time.Now(), time.Now()))

	w, env := doJSON(t, r, http.MethodGet, "/api/tenants", nil)

	assertStatus(t, w, http.StatusOK)
	assertMessage(t, env, "All tenants")
	tenants, ok := env.Data["tenants"].([]interface{})
	if !ok || len(tenants) != 2 {
		t.Fatalf("tenants = %v, want 2 entries", env.Data["tenants"])
	}
}

// Platform-wide enumeration is reserved for the super admin; even a tenant
// admin is turned away.
func TestListTenants_TenantAdminDenied(t *testing.T) {
	r, _ := newTenantRouter(t, tenantAdminCaller("admin-1", "tenant-1"))

	w, env := doJSON(t, r, http.MethodGet, "/api/tenants", nil)

	assertStatus(t, w, http.StatusForbidden)
	assertMessage(t, env, "Not authorized")
}

// ---------------------------------------------------------------------------
// Get tenant
// ---------------------------------------------------------------------------

func TestGetTenant_MemberSeesOwnTenant(t *testing.T) {
	r, mock := newTenantRouter(t, memberCaller("user-1", "tenant-1"))
	mock.ExpectQuery("SELECT .* FROM tenants WHERE id").
		WithArgs("tenant-1").
		WillReturnRows(sqlmock.NewRows(tenantRowCols).
			AddRow("tenant-1", "Acme Corp", "acme", "active", "free", 5, 3, time.Now(), time.Now()))
	mock.ExpectQuery(`SELECT.*COUNT\(\*\) FROM users.*COUNT\(\*\) FROM projects`).
		WithArgs("tenant-1").
		WillReturnRows(sqlmock.NewRows([]string{"total_users", "total_projects"}).AddRow(4, 2))

	w, env := doJSON(t, r, http.MethodGet, "/api/tenants/tenant-1", nil)

	assertStatus(t, w, http.StatusOK)
	assertMessage(t, env, "Tenant details")
	stats, ok := env.Data["stats"].(map[string]interface{})
	if !ok {
		t.Fatalf("stats missing from response: %v", env.Data)
	}
	if stats["total_users"].(float64) != 4 {
		t.Errorf("total_users = %v, want 4", stats["total_users"])
	}
}

// A tenant id outside the caller's tenant renders as not-found, never as
// forbidden: the response must not confirm the tenant exists.
func TestGetTenant_CrossTenantRendersNotFound(t *testing.T) {
	r, _ := newTenantRouter(t, memberCaller("user-1", "tenant-1"))

	w, env := doJSON(t, r, http.MethodGet, "/api/tenants/tenant-2", nil)

	assertStatus(t, w, http.StatusNotFound)
	assertMessage(t, env, "Resource not found")
}

func TestGetTenant_SuperAdminSeesAnyTenant(t *testing.T) {
	r, mock := newTenantRouter(t, superAdminCaller("root-1"))
	mock.ExpectQuery("SELECT .* FROM tenants WHERE id").
		WithArgs("tenant-2").
		WillReturnRows(sqlmock.NewRows(tenantRowCols).
			AddRow("tenant-2", "Globex", "globex", "active", "pro", 50, 30, time.Now(), time.Now()))
	mock.ExpectQuery(`SELECT.*COUNT\(\*\) FROM users.*COUNT\(\*\) FROM projects`).
		WithArgs("tenant-2").
		WillReturnRows(sqlmock.NewRows([]string{"total_users", "total_projects"}).AddRow(10, 8))

	w, _ := doJSON(t, r, http.MethodGet, "/api/tenants/tenant-2", nil)

	assertStatus(t, w, http.StatusOK)
}

func TestGetTenant_UnknownID(t *testing.T) {
	r, mock := newTenantRouter(t, superAdminCaller("root-1"))
	mock.ExpectQuery("SELECT .* FROM tenants WHERE id").
		WithArgs("tenant-9").
		WillReturnRows(sqlmock.NewRows(tenantRowCols))

	w, env := doJSON(t, r, http.MethodGet, "/api/tenants/tenant-9", nil)

	assertStatus(t, w, http.StatusNotFound)
	assertMessage(t, env, "Tenant not found")
}

// ---------------------------------------------------------------------------
// Update tenant
// ---------------------------------------------------------------------------

func TestUpdateTenant_AdminRenamesOwnTenant(t *testing.T) {
	r, mock := newTenantRouter(t, tenantAdminCaller("admin-1", "tenant-1"))
	mock.ExpectQuery("UPDATE tenants SET name").
		WithArgs("tenant-1", "Acme Inc").
		WillReturnRows(sqlmock.NewRows(tenantRowCols).
			AddRow("tenant-1", "Acme Inc", "acme", "active", "free", 5, 3, time.Now(), time.Now()))

	w, env := doJSON(t, r, http.MethodPut, "/api/tenants/tenant-1", gin.H{"name": "Acme Inc"})

	assertStatus(t, w, http.StatusOK)
	assertMessage(t, env, "Tenant updated")
	if env.Data["name"] != "Acme Inc" {
		t.Errorf("name = %v, want Acme Inc", env.Data["name"])
	}
}

func TestUpdateTenant_MemberDenied(t *testing.T) {
	r, _ := newTenantRouter(t, memberCaller("user-1", "tenant-1"))

	w, env := doJSON(t, r, http.MethodPut, "/api/tenants/tenant-1", gin.H{"name": "Acme Inc"})

	assertStatus(t, w, http.StatusForbidden)
	assertMessage(t, env, "Not authorized")
}

func TestUpdateTenant_CrossTenantRendersNotFound(t *testing.T) {
	r, _ := newTenantRouter(t, tenantAdminCaller("admin-1", "tenant-1"))

	w, env := doJSON(t, r, http.MethodPut, "/api/tenants/tenant-2", gin.H{"name": "Evil Rename"})

	assertStatus(t, w, http.StatusNotFound)
	assertMessage(t, env, "Resource not found")
}

func TestUpdateTenant_BlankName(t *testing.T) {
	r, _ := newTenantRouter(t, tenantAdminCaller("admin-1", "tenant-1"))

	w, _ := doJSON(t, r, http.MethodPut, "/api/tenants/tenant-1", gin.H{"name": "   "})

	assertStatus(t, w, http.StatusBadRequest)
}

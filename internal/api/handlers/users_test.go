package handlers

import (
	"net/http"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/gin-gonic/gin"
	"github.com/lib/pq"

	"github.com/taskhive/taskhive/internal/authz"
	"github.com/taskhive/taskhive/internal/db/models"
	"github.com/taskhive/taskhive/internal/db/repositories"
)

var userRowCols = []string{"id", "tenant_id", "email", "password_hash", "full_name", "role", "is_active", "created_at", "updated_at"}

func newUserRouter(t *testing.T, caller authz.Caller) (*gin.Engine, sqlmock.Sqlmock) {
	t.Helper()
	db, mock := newMockDB(t)
	h := NewUserHandlers(repositories.NewUserRepository(db), noopRecorder())

	r := gin.New()
	r.Use(withCaller(caller, nil))
	r.POST("/api/tenants/:id/users", h.AddUserHandler())
	r.GET("/api/tenants/:id/users", h.ListTenantUsersHandler())
	r.PUT("/api/users/:id", h.UpdateUserHandler())
	r.DELETE("/api/users/:id", h.DeleteUserHandler())
	return r, mock
}

func addUserBody() gin.H {
	return gin.H{
		"email":    "new@acme.com",
		"password": "hunter2hunter2",
		"fullName": "New Member",
	}
}

// expectUserLimitCheck mocks the limit-checked creation transaction up to the
// count query; the caller appends the insert outcome.
func expectUserLimitCheck(mock sqlmock.Sqlmock, tenantID string, maxUsers, current int) {
	mock.ExpectBegin()
	mock.ExpectQuery("SELECT max_users FROM tenants WHERE id").
		WithArgs(tenantID).
		WillReturnRows(sqlmock.NewRows([]string{"max_users"}).AddRow(maxUsers))
	mock.ExpectQuery(`SELECT COUNT\(\*\) FROM users WHERE tenant_id`).
		WithArgs(tenantID).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(current))
}

// ---------------------------------------------------------------------------
// Add user
// ---------------------------------------------------------------------------

func TestAddUser_Success(t *testing.T) {
	r, mock := newUserRouter(t, tenantAdminCaller("admin-1", "tenant-1"))
	expectUserLimitCheck(mock, "tenant-1", 5, 2)
	mock.ExpectExec("INSERT INTO users").WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	w, env := doJSON(t, r, http.MethodPost, "/api/tenants/tenant-1/users", addUserBody())

	assertStatus(t, w, http.StatusCreated)
	assertMessage(t, env, "User added successfully")
	if env.Data["email"] != "new@acme.com" {
		t.Errorf("email = %v", env.Data["email"])
	}
	if env.Data["role"] != models.RoleUser {
		t.Errorf("role = %v, want default %s", env.Data["role"], models.RoleUser)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unmet expectations: %v", err)
	}
}

func TestAddUser_PlanLimitReached(t *testing.T) {
	r, mock := newUserRouter(t, tenantAdminCaller("admin-1", "tenant-1"))
	expectUserLimitCheck(mock, "tenant-1", 5, 5)
	mock.ExpectRollback()

	w, env := doJSON(t, r, http.MethodPost, "/api/tenants/tenant-1/users", addUserBody())

	assertStatus(t, w, http.StatusForbidden)
	assertMessage(t, env, "User limit reached for your plan")
}

func TestAddUser_DuplicateEmail(t *testing.T) {
	r, mock := newUserRouter(t, tenantAdminCaller("admin-1", "tenant-1"))
	expectUserLimitCheck(mock, "tenant-1", 5, 2)
	mock.ExpectExec("INSERT INTO users").WillReturnError(&pq.Error{Code: "23505"})
	mock.ExpectRollback()

	w, env := doJSON(t, r, http.MethodPost, "/api/tenants/tenant-1/users", addUserBody())

	assertStatus(t, w, http.StatusConflict)
	assertMessage(t, env, "Email already exists in this tenant")
}

func TestAddUser_MemberDenied(t *testing.T) {
	r, _ := newUserRouter(t, memberCaller("user-1", "tenant-1"))

	w, env := doJSON(t, r, http.MethodPost, "/api/tenants/tenant-1/users", addUserBody())

	assertStatus(t, w, http.StatusForbidden)
	assertMessage(t, env, "Not authorized")
}

func TestAddUser_CrossTenantRendersNotFound(t *testing.T) {
	r, _ := newUserRouter(t, tenantAdminCaller("admin-1", "tenant-1"))

	w, env := doJSON(t, r, http.MethodPost, "/api/tenants/tenant-2/users", addUserBody())

	assertStatus(t, w, http.StatusNotFound)
	assertMessage(t, env, "Resource not found")
}

func TestAddUser_SuperAdminRoleRejected(t *testing.T) {
	r, _ := newUserRouter(t, tenantAdminCaller("admin-1", "tenant-1"))
	body := addUserBody()
	body["role"] = models.RoleSuperAdmin

	w, _ := doJSON(t, r, http.MethodPost, "/api/tenants/tenant-1/users", body)

	assertStatus(t, w, http.StatusBadRequest)
}

func TestAddUser_InvalidEmail(t *testing.T) {
	r, _ := newUserRouter(t, tenantAdminCaller("admin-1", "tenant-1"))
	body := addUserBody()
	body["email"] = "not-an-email"

	w, _ := doJSON(t, r, http.MethodPost, "/api/tenants/tenant-1/users", body)

	assertStatus(t, w, http.StatusBadRequest)
}

// ---------------------------------------------------------------------------
// List users
// ---------------------------------------------------------------------------

func TestListUsers_Member(t *testing.T) {
	r, mock := newUserRouter(t, memberCaller("user-1", "tenant-1"))
	mock.ExpectQuery("SELECT .* FROM users WHERE tenant_id").
		WithArgs("tenant-1").
		WillReturnRows(sqlmock.NewRows(userRowCols).
			AddRow("user-1", "tenant-1", "dana@acme.com", "hash", "Dana", models.RoleUser, true, time.Now(), time.Now()).
			AddRow("admin-1", "tenant-1", "ada@acme.com", "hash", "Ada", models.RoleTenantAdmin, true, time.Now(), time.Now()))

	w, env := doJSON(t, r, http.MethodGet, "/api/tenants/tenant-1/users", nil)

	assertStatus(t, w, http.StatusOK)
	assertMessage(t, env, "Users fetched")
	users, ok := env.Data["users"].([]interface{})
	if !ok || len(users) != 2 {
		t.Fatalf("users = %v, want 2 entries", env.Data["users"])
	}
	// Password hashes never leave the API.
	first := users[0].(map[string]interface{})
	if _, leaked := first["password_hash"]; leaked {
		t.Error("password_hash leaked in response")
	}
}

func TestListUsers_CrossTenantRendersNotFound(t *testing.T) {
	r, _ := newUserRouter(t, memberCaller("user-1", "tenant-1"))

	w, env := doJSON(t, r, http.MethodGet, "/api/tenants/tenant-2/users", nil)

	assertStatus(t, w, http.StatusNotFound)
	assertMessage(t, env, "Resource not found")
}

// ---------------------------------------------------------------------------
// Update user
// ---------------------------------------------------------------------------

func TestUpdateUser_AdminChangesRole(t *testing.T) {
	r, mock := newUserRouter(t, tenantAdminCaller("admin-1", "tenant-1"))
	mock.ExpectQuery("UPDATE users").
		WillReturnRows(sqlmock.NewRows(userRowCols).
			AddRow("user-1", "tenant-1", "dana@acme.com", "hash", "Dana", models.RoleTenantAdmin, true, time.Now(), time.Now()))

	w, env := doJSON(t, r, http.MethodPut, "/api/users/user-1", gin.H{"role": models.RoleTenantAdmin})

	assertStatus(t, w, http.StatusOK)
	if env.Data["role"] != models.RoleTenantAdmin {
		t.Errorf("role = %v, want %s", env.Data["role"], models.RoleTenantAdmin)
	}
}

func TestUpdateUser_SelfRename(t *testing.T) {
	r, mock := newUserRouter(t, memberCaller("user-1", "tenant-1"))
	mock.ExpectQuery("UPDATE users").
		WillReturnRows(sqlmock.NewRows(userRowCols).
			AddRow("user-1", "tenant-1", "dana@acme.com", "hash", "Dana Q.", models.RoleUser, true, time.Now(), time.Now()))

	w, env := doJSON(t, r, http.MethodPut, "/api/users/user-1", gin.H{"fullName": "Dana Q."})

	assertStatus(t, w, http.StatusOK)
	if env.Data["full_name"] != "Dana Q." {
		t.Errorf("full_name = %v", env.Data["full_name"])
	}
}

// A member can rename themselves but may not touch privileged fields.
func TestUpdateUser_MemberCannotEscalateRole(t *testing.T) {
	r, _ := newUserRouter(t, memberCaller("user-1", "tenant-1"))

	w, env := doJSON(t, r, http.MethodPut, "/api/users/user-1", gin.H{"role": models.RoleTenantAdmin})

	assertStatus(t, w, http.StatusForbidden)
	assertMessage(t, env, "Not authorized")
}

func TestUpdateUser_MemberCannotDeactivate(t *testing.T) {
	r, _ := newUserRouter(t, memberCaller("user-1", "tenant-1"))

	w, _ := doJSON(t, r, http.MethodPut, "/api/users/user-1", gin.H{"isActive": false})

	assertStatus(t, w, http.StatusForbidden)
}

func TestUpdateUser_MemberCannotUpdateOthers(t *testing.T) {
	r, _ := newUserRouter(t, memberCaller("user-1", "tenant-1"))

	w, env := doJSON(t, r, http.MethodPut, "/api/users/user-2", gin.H{"fullName": "Hijack"})

	assertStatus(t, w, http.StatusForbidden)
	assertMessage(t, env, "Not authorized")
}

func TestUpdateUser_NotFound(t *testing.T) {
	r, mock := newUserRouter(t, tenantAdminCaller("admin-1", "tenant-1"))
	mock.ExpectQuery("UPDATE users").
		WillReturnRows(sqlmock.NewRows(userRowCols))

	w, env := doJSON(t, r, http.MethodPut, "/api/users/user-9", gin.H{"fullName": "Ghost"})

	assertStatus(t, w, http.StatusNotFound)
	assertMessage(t, env, "User not found")
}

// ---------------------------------------------------------------------------
// Delete user
// ---------------------------------------------------------------------------

func TestDeleteUser_Success(t *testing.T) {
	r, mock := newUserRouter(t, tenantAdminCaller("admin-1", "tenant-1"))
	mock.ExpectExec("DELETE FROM users").
		WithArgs("user-1", "tenant-1").
		WillReturnResult(sqlmock.NewResult(0, 1))

	w, env := doJSON(t, r, http.MethodDelete, "/api/users/user-1", nil)

	assertStatus(t, w, http.StatusOK)
	assertMessage(t, env, "User deleted successfully")
}

// Self-deletion is blocked before any role logic; even the super admin gets
// the same refusal.
func TestDeleteUser_SelfDeleteBlocked(t *testing.T) {
	r, _ := newUserRouter(t, tenantAdminCaller("admin-1", "tenant-1"))

	w, env := doJSON(t, r, http.MethodDelete, "/api/users/admin-1", nil)

	assertStatus(t, w, http.StatusForbidden)
	assertMessage(t, env, "You cannot delete yourself")
}

func TestDeleteUser_SuperAdminSelfDeleteBlocked(t *testing.T) {
	r, _ := newUserRouter(t, superAdminCaller("root-1"))

	w, env := doJSON(t, r, http.MethodDelete, "/api/users/root-1", nil)

	assertStatus(t, w, http.StatusForbidden)
	assertMessage(t, env, "You cannot delete yourself")
}

func TestDeleteUser_MemberDenied(t *testing.T) {
	r, _ := newUserRouter(t, memberCaller("user-1", "tenant-1"))

	w, env := doJSON(t, r, http.MethodDelete, "/api/users/user-2", nil)

	assertStatus(t, w, http.StatusForbidden)
	assertMessage(t, env, "Not authorized")
}

func TestDeleteUser_NotFound(t *testing.T) {
	r, mock := newUserRouter(t, tenantAdminCaller("admin-1", "tenant-1"))
	mock.ExpectExec("DELETE FROM users").
		WithArgs("user-9", "tenant-1").
		WillReturnResult(sqlmock.NewResult(0, 0))

	w, env := doJSON(t, r, http.MethodDelete, "/api/users/user-9", nil)

	assertStatus(t, w, http.StatusNotFound)
	assertMessage(t, env, "User not found")
}

// users.go implements user management inside a tenant: adding users (plan
// limit gated), listing, partial update, and deletion. The route paths mirror
// the rest of the API: add/list are nested under the tenant, update/delete
// address the user directly and are scoped to the caller's tenant.
package handlers

import (
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/taskhive/taskhive/internal/audit"
	"github.com/taskhive/taskhive/internal/auth"
	"github.com/taskhive/taskhive/internal/authz"
	"github.com/taskhive/taskhive/internal/db/models"
	"github.com/taskhive/taskhive/internal/db/repositories"
	"github.com/taskhive/taskhive/internal/middleware"
	"github.com/taskhive/taskhive/internal/telemetry"
	"github.com/taskhive/taskhive/internal/validation"
)

// UserHandlers handles user management endpoints.
type UserHandlers struct {
	userRepo *repositories.UserRepository
	recorder *audit.Recorder
}

// NewUserHandlers creates a new UserHandlers instance.
func NewUserHandlers(userRepo *repositories.UserRepository, recorder *audit.Recorder) *UserHandlers {
	return &UserHandlers{userRepo: userRepo, recorder: recorder}
}

// AddUserRequest is the payload for adding a user to a tenant.
type AddUserRequest struct {
	Email    string `json:"email" binding:"required"`
	Password string `json:"password" binding:"required"`
	FullName string `json:"fullName" binding:"required"`
	Role     string `json:"role"`
}

// @Summary      Add user
// @Description  Add a user to a tenant. Only that tenant's admin may add users; the user count is checked against the plan limit.
// @Tags         Users
// @Security     Bearer
// @Accept       json
// @Produce      json
// @Param        tenantId  path  string          true  "Tenant ID"
// @Param        request   body  AddUserRequest  true  "User details"
// @Success      201  {object}  map[string]interface{}  "created user"
// @Failure      403  {object}  map[string]interface{}  "Not authorized or plan limit reached"
// @Failure      409  {object}  map[string]interface{}  "Email already exists in this tenant"
// @Router       /api/tenants/{tenantId}/users [post]
// AddUserHandler creates a user inside the given tenant, limit-gated.
// POST /api/tenants/:tenantId/users
func (h *UserHandlers) AddUserHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		tenantID := c.Param("id")
		if !middleware.Authorize(c, authz.ActionCreateUser, authz.Resource{TenantID: tenantID}) {
			return
		}

		var req AddUserRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			Error(c, http.StatusBadRequest, "email, password and fullName are required")
			return
		}
		if err := validation.ValidateEmail(req.Email); err != nil {
			Error(c, http.StatusBadRequest, err.Error())
			return
		}
		if err := validation.ValidatePassword(req.Password); err != nil {
			Error(c, http.StatusBadRequest, err.Error())
			return
		}
		role := req.Role
		if role == "" {
			role = models.RoleUser
		}
		if err := validation.ValidateRole(role); err != nil {
			Error(c, http.StatusBadRequest, err.Error())
			return
		}

		hash, err := auth.HashPassword(req.Password)
		if err != nil {
			slog.Error("password hash failed", "error", err)
			Error(c, http.StatusInternalServerError, "Failed to add user")
			return
		}

		user := &models.User{
			TenantID:     &tenantID,
			Email:        req.Email,
			PasswordHash: hash,
			FullName:     strings.TrimSpace(req.FullName),
			Role:         role,
		}

		if err := h.userRepo.CreateWithinLimit(c.Request.Context(), user); err != nil {
			switch {
			case errors.Is(err, models.ErrLimitReached):
				telemetry.PlanLimitRejectionsTotal.WithLabelValues("user").Inc()
				Error(c, http.StatusForbidden, "User limit reached for your plan")
			case errors.Is(err, models.ErrDuplicateEmail):
				Error(c, http.StatusConflict, "Email already exists in this tenant")
			case errors.Is(err, models.ErrNotFound):
				Error(c, http.StatusNotFound, "Tenant not found")
			default:
				slog.Error("user creation failed", "tenant_id", tenantID, "error", err)
				Error(c, http.StatusInternalServerError, "Failed to add user")
			}
			return
		}

		caller, _ := middleware.CallerFrom(c)
		h.recorder.Record(audit.Entry{
			TenantID:   &tenantID,
			UserID:     caller.ID,
			Action:     models.ActionCreateUser,
			EntityType: "user",
			EntityID:   user.ID,
			IPAddress:  c.ClientIP(),
		})

		Success(c, http.StatusCreated, "User added successfully", user)
	}
}

// @Summary      List tenant users
// @Description  List all users of a tenant. Accessible to members of the tenant and the super admin.
// @Tags         Users
// @Security     Bearer
// @Produce      json
// @Param        tenantId  path  string  true  "Tenant ID"
// @Success      200  {object}  map[string]interface{}  "users: []models.User"
// @Router       /api/tenants/{tenantId}/users [get]
// ListTenantUsersHandler lists the users of a tenant.
// GET /api/tenants/:tenantId/users
func (h *UserHandlers) ListTenantUsersHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		tenantID := c.Param("id")
		if !middleware.Authorize(c, authz.ActionListUsers, authz.Resource{TenantID: tenantID}) {
			return
		}

		users, err := h.userRepo.ListByTenant(c.Request.Context(), tenantID)
		if err != nil {
			slog.Error("user list failed", "tenant_id", tenantID, "error", err)
			Error(c, http.StatusInternalServerError, "Server Error")
			return
		}

		Success(c, http.StatusOK, "Users fetched", gin.H{"users": users})
	}
}

// UpdateUserRequest is the payload for partial user updates. Role and
// isActive may only be changed by a tenant admin.
type UpdateUserRequest struct {
	FullName *string `json:"fullName"`
	Role     *string `json:"role"`
	IsActive *bool   `json:"isActive"`
}

// @Summary      Update user
// @Description  Partially update a user in the caller's tenant. Users may update their own name; role and active status require tenant admin.
// @Tags         Users
// @Security     Bearer
// @Accept       json
// @Produce      json
// @Param        id       path  string             true  "User ID"
// @Param        request  body  UpdateUserRequest  true  "Fields to update"
// @Success      200  {object}  map[string]interface{}  "updated user"
// @Failure      403  {object}  map[string]interface{}  "Not authorized"
// @Failure      404  {object}  map[string]interface{}  "User not found"
// @Router       /api/users/{id} [put]
// UpdateUserHandler applies a partial update to a user in the caller's tenant.
// PUT /api/users/:id
func (h *UserHandlers) UpdateUserHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		userID := c.Param("id")
		caller, _ := middleware.CallerFrom(c)

		// The target is addressed inside the caller's own tenant; a target
		// from another tenant falls out as not-found below.
		callerTenant := ""
		if caller.TenantID != nil {
			callerTenant = *caller.TenantID
		}
		if !middleware.Authorize(c, authz.ActionUpdateUser, authz.Resource{TenantID: callerTenant, OwnerID: userID}) {
			return
		}

		var req UpdateUserRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			Error(c, http.StatusBadRequest, "invalid request body")
			return
		}

		// Privilege fields are admin only; a member editing their own record
		// may not touch them.
		if (req.Role != nil || req.IsActive != nil) && caller.Role != models.RoleTenantAdmin {
			Error(c, http.StatusForbidden, "Not authorized")
			return
		}
		if req.Role != nil {
			if err := validation.ValidateRole(*req.Role); err != nil {
				Error(c, http.StatusBadRequest, err.Error())
				return
			}
		}

		user, err := h.userRepo.Update(c.Request.Context(), callerTenant, userID, req.FullName, req.Role, req.IsActive)
		if err != nil {
			slog.Error("user update failed", "user_id", userID, "error", err)
			Error(c, http.StatusInternalServerError, "Update failed")
			return
		}
		if user == nil {
			Error(c, http.StatusNotFound, "User not found")
			return
		}

		h.recorder.Record(audit.Entry{
			TenantID:   &callerTenant,
			UserID:     caller.ID,
			Action:     models.ActionUpdateUser,
			EntityType: "user",
			EntityID:   userID,
			IPAddress:  c.ClientIP(),
		})

		Success(c, http.StatusOK, "User updated", user)
	}
}

// @Summary      Delete user
// @Description  Delete a user from the caller's tenant. Tenant admin only; self-deletion is always rejected.
// @Tags         Users
// @Security     Bearer
// @Produce      json
// @Param        id  path  string  true  "User ID"
// @Success      200  {object}  map[string]interface{}
// @Failure      403  {object}  map[string]interface{}  "Not authorized or self-delete"
// @Failure      404  {object}  map[string]interface{}  "User not found"
// @Router       /api/users/{id} [delete]
// DeleteUserHandler removes a user from the caller's tenant.
// DELETE /api/users/:id
func (h *UserHandlers) DeleteUserHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		userID := c.Param("id")
		caller, _ := middleware.CallerFrom(c)

		callerTenant := ""
		if caller.TenantID != nil {
			callerTenant = *caller.TenantID
		}
		if !middleware.Authorize(c, authz.ActionDeleteUser, authz.Resource{TenantID: callerTenant, OwnerID: userID}) {
			return
		}

		if err := h.userRepo.Delete(c.Request.Context(), callerTenant, userID); err != nil {
			if errors.Is(err, models.ErrNotFound) {
				Error(c, http.StatusNotFound, "User not found")
				return
			}
			slog.Error("user delete failed", "user_id", userID, "error", err)
			Error(c, http.StatusInternalServerError, "Failed to delete user")
			return
		}

		h.recorder.Record(audit.Entry{
			TenantID:   &callerTenant,
			UserID:     caller.ID,
			Action:     models.ActionDeleteUser,
			EntityType: "user",
			EntityID:   userID,
			IPAddress:  c.ClientIP(),
		})

		Success(c, http.StatusOK, "User deleted successfully", nil)
	}
}

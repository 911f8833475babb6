// tenants.go implements tenant listing, detail (with usage stats), and the
// name-only update. Tenant records are administered by their own admins and
// by the platform super admin; the subdomain is immutable.
package handlers

import (
	"log/slog"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/taskhive/taskhive/internal/audit"
	"github.com/taskhive/taskhive/internal/authz"
	"github.com/taskhive/taskhive/internal/db/models"
	"github.com/taskhive/taskhive/internal/db/repositories"
	"github.com/taskhive/taskhive/internal/middleware"
)

// TenantHandlers handles tenant management endpoints.
type TenantHandlers struct {
	tenantRepo *repositories.TenantRepository
	recorder   *audit.Recorder
}

// NewTenantHandlers creates a new TenantHandlers instance.
func NewTenantHandlers(tenantRepo *repositories.TenantRepository, recorder *audit.Recorder) *TenantHandlers {
	return &TenantHandlers{tenantRepo: tenantRepo, recorder: recorder}
}

// @Summary      List tenants
// @Description  List all tenants on the platform. Super admin only.
// @Tags         Tenants
// @Security     Bearer
// @Produce      json
// @Success      200  {object}  map[string]interface{}  "tenants: []models.Tenant"
// @Failure      403  {object}  map[string]interface{}  "Not authorized"
// @Router       /api/tenants [get]
// ListTenantsHandler lists every tenant.
// GET /api/tenants
func (h *TenantHandlers) ListTenantsHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		if !middleware.Authorize(c, authz.ActionListTenants, authz.Resource{}) {
			return
		}

		tenants, err := h.tenantRepo.List(c.Request.Context())
		if err != nil {
			slog.Error("tenant list failed", "error", err)
			Error(c, http.StatusInternalServerError, "Server Error")
			return
		}

		Success(c, http.StatusOK, "All tenants", gin.H{"tenants": tenants})
	}
}

// @Summary      Get tenant
// @Description  Get a tenant with its usage stats. Accessible to members of the tenant and the super admin.
// @Tags         Tenants
// @Security     Bearer
// @Produce      json
// @Param        id  path  string  true  "Tenant ID"
// @Success      200  {object}  map[string]interface{}  "tenant fields + stats"
// @Failure      404  {object}  map[string]interface{}  "Tenant not found"
// @Router       /api/tenants/{id} [get]
// GetTenantHandler returns a tenant and its user/project counts.
// GET /api/tenants/:id
func (h *TenantHandlers) GetTenantHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		tenantID := c.Param("id")
		if !middleware.Authorize(c, authz.ActionViewTenant, authz.Resource{TenantID: tenantID}) {
			return
		}

		tenant, err := h.tenantRepo.GetByID(c.Request.Context(), tenantID)
		if err != nil {
			slog.Error("tenant lookup failed", "tenant_id", tenantID, "error", err)
			Error(c, http.StatusInternalServerError, "Server Error")
			return
		}
		if tenant == nil {
			Error(c, http.StatusNotFound, "Tenant not found")
			return
		}

		stats, err := h.tenantRepo.Stats(c.Request.Context(), tenantID)
		if err != nil {
			slog.Error("tenant stats failed", "tenant_id", tenantID, "error", err)
			Error(c, http.StatusInternalServerError, "Server Error")
			return
		}

		Success(c, http.StatusOK, "Tenant details", gin.H{
			"tenant": tenant,
			"stats":  stats,
		})
	}
}

// UpdateTenantRequest is the payload for the tenant update. Only the display
// name can change.
type UpdateTenantRequest struct {
	Name string `json:"name" binding:"required"`
}

// @Summary      Update tenant
// @Description  Update a tenant's display name. Tenant admins may update their own tenant; the super admin may update any.
// @Tags         Tenants
// @Security     Bearer
// @Accept       json
// @Produce      json
// @Param        id       path  string               true  "Tenant ID"
// @Param        request  body  UpdateTenantRequest  true  "New name"
// @Success      200  {object}  map[string]interface{}  "updated tenant"
// @Failure      403  {object}  map[string]interface{}  "Not authorized"
// @Failure      404  {object}  map[string]interface{}  "Tenant not found"
// @Router       /api/tenants/{id} [put]
// UpdateTenantHandler renames a tenant.
// PUT /api/tenants/:id
func (h *TenantHandlers) UpdateTenantHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		tenantID := c.Param("id")
		if !middleware.Authorize(c, authz.ActionUpdateTenant, authz.Resource{TenantID: tenantID}) {
			return
		}

		var req UpdateTenantRequest
		if err := c.ShouldBindJSON(&req); err != nil || strings.TrimSpace(req.Name) == "" {
			Error(c, http.StatusBadRequest, "name is required")
			return
		}

		tenant, err := h.tenantRepo.UpdateName(c.Request.Context(), tenantID, strings.TrimSpace(req.Name))
		if err != nil {
			slog.Error("tenant update failed", "tenant_id", tenantID, "error", err)
			Error(c, http.StatusInternalServerError, "Update failed")
			return
		}
		if tenant == nil {
			Error(c, http.StatusNotFound, "Tenant not found")
			return
		}

		caller, _ := middleware.CallerFrom(c)
		h.recorder.Record(audit.Entry{
			TenantID:   &tenant.ID,
			UserID:     caller.ID,
			Action:     models.ActionUpdateTenant,
			EntityType: "tenant",
			EntityID:   tenant.ID,
			IPAddress:  c.ClientIP(),
		})

		Success(c, http.StatusOK, "Tenant updated", tenant)
	}
}

// projects.go implements project CRUD within the caller's tenant. Creation is
// gated by the tenant's plan limit; every mutating operation is audited.
// Deletion is open to any tenant member, matching the product's collaborative
// model.
package handlers

import (
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/taskhive/taskhive/internal/audit"
	"github.com/taskhive/taskhive/internal/authz"
	"github.com/taskhive/taskhive/internal/db/models"
	"github.com/taskhive/taskhive/internal/db/repositories"
	"github.com/taskhive/taskhive/internal/middleware"
	"github.com/taskhive/taskhive/internal/telemetry"
)

// ProjectHandlers handles project endpoints.
type ProjectHandlers struct {
	projectRepo *repositories.ProjectRepository
	recorder    *audit.Recorder
}

// NewProjectHandlers creates a new ProjectHandlers instance.
func NewProjectHandlers(projectRepo *repositories.ProjectRepository, recorder *audit.Recorder) *ProjectHandlers {
	return &ProjectHandlers{projectRepo: projectRepo, recorder: recorder}
}

// callerTenant returns the caller and their tenant id ("" for super admins).
// Workspace mutations with an empty tenant id are rejected by the
// authorization engine; reads must handle the tenant-less case themselves
// since no workspace rows can match a NULL tenant.
func callerTenant(c *gin.Context) (authz.Caller, string) {
	caller, _ := middleware.CallerFrom(c)
	if caller.TenantID == nil {
		return caller, ""
	}
	return caller, *caller.TenantID
}

// CreateProjectRequest is the payload for project creation.
type CreateProjectRequest struct {
	Name        string `json:"name" binding:"required"`
	Description string `json:"description"`
	Status      string `json:"status"`
}

// @Summary      Create project
// @Description  Create a project in the caller's tenant. The project count is checked against the plan limit.
// @Tags         Projects
// @Security     Bearer
// @Accept       json
// @Produce      json
// @Param        request  body  CreateProjectRequest  true  "Project details"
// @Success      201  {object}  map[string]interface{}  "created project"
// @Failure      403  {object}  map[string]interface{}  "Plan limit reached"
// @Router       /api/projects [post]
// CreateProjectHandler creates a project, limit-gated.
// POST /api/projects
func (h *ProjectHandlers) CreateProjectHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		caller, tenantID := callerTenant(c)
		if !middleware.Authorize(c, authz.ActionCreateProject, authz.Resource{TenantID: tenantID}) {
			return
		}

		var req CreateProjectRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			Error(c, http.StatusBadRequest, "name is required")
			return
		}

		project := &models.Project{
			TenantID:    tenantID,
			Name:        strings.TrimSpace(req.Name),
			Description: req.Description,
			Status:      req.Status,
			CreatedBy:   &caller.ID,
		}

		if err := h.projectRepo.CreateWithinLimit(c.Request.Context(), project); err != nil {
			switch {
			case errors.Is(err, models.ErrLimitReached):
				telemetry.PlanLimitRejectionsTotal.WithLabelValues("project").Inc()
				Error(c, http.StatusForbidden, "Project limit reached for your subscription plan")
			case errors.Is(err, models.ErrNotFound):
				Error(c, http.StatusNotFound, "Tenant not found")
			default:
				slog.Error("project creation failed", "tenant_id", tenantID, "error", err)
				Error(c, http.StatusInternalServerError, "Failed to create project")
			}
			return
		}

		h.recorder.Record(audit.Entry{
			TenantID:   &project.TenantID,
			UserID:     caller.ID,
			Action:     models.ActionCreateProject,
			EntityType: "project",
			EntityID:   project.ID,
			IPAddress:  c.ClientIP(),
		})

		Success(c, http.StatusCreated, "Project created", project)
	}
}

// @Summary      List projects
// @Description  List the caller's tenant's projects with creator name and task count, newest first.
// @Tags         Projects
// @Security     Bearer
// @Produce      json
// @Success      200  {object}  map[string]interface{}  "projects: []models.ProjectSummary"
// @Router       /api/projects [get]
// ListProjectsHandler lists the tenant's projects.
// GET /api/projects
func (h *ProjectHandlers) ListProjectsHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		_, tenantID := callerTenant(c)
		if !middleware.Authorize(c, authz.ActionListProjects, authz.Resource{TenantID: tenantID}) {
			return
		}

		// Super admins have no workspace; there is nothing to list.
		if tenantID == "" {
			Success(c, http.StatusOK, "Projects fetched", gin.H{"projects": []*models.ProjectSummary{}})
			return
		}

		projects, err := h.projectRepo.ListByTenant(c.Request.Context(), tenantID)
		if err != nil {
			slog.Error("project list failed", "tenant_id", tenantID, "error", err)
			Error(c, http.StatusInternalServerError, "Failed to fetch projects")
			return
		}

		Success(c, http.StatusOK, "Projects fetched", gin.H{"projects": projects})
	}
}

// @Summary      Get project
// @Description  Get a single project in the caller's tenant.
// @Tags         Projects
// @Security     Bearer
// @Produce      json
// @Param        id  path  string  true  "Project ID"
// @Success      200  {object}  map[string]interface{}  "project"
// @Failure      404  {object}  map[string]interface{}  "Project not found"
// @Router       /api/projects/{id} [get]
// GetProjectHandler returns one project.
// GET /api/projects/:id
func (h *ProjectHandlers) GetProjectHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		projectID := c.Param("id")
		_, tenantID := callerTenant(c)
		if !middleware.Authorize(c, authz.ActionViewProject, authz.Resource{TenantID: tenantID}) {
			return
		}

		// No project lives outside a tenant.
		if tenantID == "" {
			Error(c, http.StatusNotFound, "Project not found")
			return
		}

		project, err := h.projectRepo.GetByID(c.Request.Context(), tenantID, projectID)
		if err != nil {
			slog.Error("project lookup failed", "project_id", projectID, "error", err)
			Error(c, http.StatusInternalServerError, "Server error")
			return
		}
		if project == nil {
			Error(c, http.StatusNotFound, "Project not found")
			return
		}

		Success(c, http.StatusOK, "Project details", project)
	}
}

// UpdateProjectRequest is the payload for partial project updates.
type UpdateProjectRequest struct {
	Name        *string `json:"name"`
	Description *string `json:"description"`
	Status      *string `json:"status"`
}

// @Summary      Update project
// @Description  Partially update a project in the caller's tenant. Omitted fields keep their values.
// @Tags         Projects
// @Security     Bearer
// @Accept       json
// @Produce      json
// @Param        id       path  string                true  "Project ID"
// @Param        request  body  UpdateProjectRequest  true  "Fields to update"
// @Success      200  {object}  map[string]interface{}  "updated project"
// @Failure      404  {object}  map[string]interface{}  "Project not found"
// @Router       /api/projects/{id} [put]
// UpdateProjectHandler applies a partial update.
// PUT /api/projects/:id
func (h *ProjectHandlers) UpdateProjectHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		projectID := c.Param("id")
		caller, tenantID := callerTenant(c)
		if !middleware.Authorize(c, authz.ActionUpdateProject, authz.Resource{TenantID: tenantID}) {
			return
		}

		var req UpdateProjectRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			Error(c, http.StatusBadRequest, "invalid request body")
			return
		}

		project, err := h.projectRepo.Update(c.Request.Context(), tenantID, projectID, req.Name, req.Description, req.Status)
		if err != nil {
			slog.Error("project update failed", "project_id", projectID, "error", err)
			Error(c, http.StatusInternalServerError, "Update failed")
			return
		}
		if project == nil {
			Error(c, http.StatusNotFound, "Project not found")
			return
		}

		h.recorder.Record(audit.Entry{
			TenantID:   &project.TenantID,
			UserID:     caller.ID,
			Action:     models.ActionUpdateProject,
			EntityType: "project",
			EntityID:   projectID,
			IPAddress:  c.ClientIP(),
		})

		Success(c, http.StatusOK, "Project updated", project)
	}
}

// @Summary      Delete project
// @Description  Delete a project and, via cascade, its tasks. Any member of the tenant may delete.
// @Tags         Projects
// @Security     Bearer
// @Produce      json
// @Param        id  path  string  true  "Project ID"
// @Success      200  {object}  map[string]interface{}
// @Failure      404  {object}  map[string]interface{}  "Project not found"
// @Router       /api/projects/{id} [delete]
// DeleteProjectHandler removes a project.
// DELETE /api/projects/:id
func (h *ProjectHandlers) DeleteProjectHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		projectID := c.Param("id")
		caller, tenantID := callerTenant(c)
		if !middleware.Authorize(c, authz.ActionDeleteProject, authz.Resource{TenantID: tenantID}) {
			return
		}

		if err := h.projectRepo.Delete(c.Request.Context(), tenantID, projectID); err != nil {
			if errors.Is(err, models.ErrNotFound) {
				Error(c, http.StatusNotFound, "Project not found")
				return
			}
			slog.Error("project delete failed", "project_id", projectID, "error", err)
			Error(c, http.StatusInternalServerError, "Failed to delete project")
			return
		}

		h.recorder.Record(audit.Entry{
			TenantID:   &tenantID,
			UserID:     caller.ID,
			Action:     models.ActionDeleteProject,
			EntityType: "project",
			EntityID:   projectID,
			IPAddress:  c.ClientIP(),
		})

		Success(c, http.StatusOK, "Project deleted successfully", nil)
	}
}

// tasks.go implements task endpoints. Creation and listing are nested under
// the parent project, whose tenant membership is verified first; status
// change, full update, and deletion address the task directly. Assignees must
// belong to the task's tenant; the repository enforces this inside the write
// transaction.
package handlers

import (
	"errors"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/taskhive/taskhive/internal/audit"
	"github.com/taskhive/taskhive/internal/authz"
	"github.com/taskhive/taskhive/internal/db/models"
	"github.com/taskhive/taskhive/internal/db/repositories"
	"github.com/taskhive/taskhive/internal/middleware"
	"github.com/taskhive/taskhive/internal/validation"
)

// TaskHandlers handles task endpoints.
type TaskHandlers struct {
	taskRepo    *repositories.TaskRepository
	projectRepo *repositories.ProjectRepository
	recorder    *audit.Recorder
}

// NewTaskHandlers creates a new TaskHandlers instance.
func NewTaskHandlers(taskRepo *repositories.TaskRepository, projectRepo *repositories.ProjectRepository, recorder *audit.Recorder) *TaskHandlers {
	return &TaskHandlers{taskRepo: taskRepo, projectRepo: projectRepo, recorder: recorder}
}

// CreateTaskRequest is the payload for task creation.
type CreateTaskRequest struct {
	Title       string     `json:"title" binding:"required"`
	Description string     `json:"description"`
	Priority    string     `json:"priority"`
	AssignedTo  *string    `json:"assignedTo"`
	DueDate     *time.Time `json:"dueDate"`
}

// @Summary      Create task
// @Description  Create a task in a project of the caller's tenant. The assignee, when given, must belong to the same tenant.
// @Tags         Tasks
// @Security     Bearer
// @Accept       json
// @Produce      json
// @Param        projectId  path  string             true  "Project ID"
// @Param        request    body  CreateTaskRequest  true  "Task details"
// @Success      201  {object}  map[string]interface{}  "created task"
// @Failure      400  {object}  map[string]interface{}  "Validation failure or unknown assignee"
// @Failure      404  {object}  map[string]interface{}  "Project not found"
// @Router       /api/projects/{projectId}/tasks [post]
// CreateTaskHandler creates a task under a project.
// POST /api/projects/:projectId/tasks
func (h *TaskHandlers) CreateTaskHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		projectID := c.Param("id")
		caller, tenantID := callerTenant(c)
		if !middleware.Authorize(c, authz.ActionCreateTask, authz.Resource{TenantID: tenantID}) {
			return
		}

		exists, err := h.projectRepo.Exists(c.Request.Context(), tenantID, projectID)
		if err != nil {
			slog.Error("project check failed", "project_id", projectID, "error", err)
			Error(c, http.StatusInternalServerError, "Failed to create task")
			return
		}
		if !exists {
			Error(c, http.StatusNotFound, "Project not found")
			return
		}

		var req CreateTaskRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			Error(c, http.StatusBadRequest, "title is required")
			return
		}
		if req.Priority != "" {
			if err := validation.ValidatePriority(req.Priority); err != nil {
				Error(c, http.StatusBadRequest, err.Error())
				return
			}
		}

		task := &models.Task{
			ProjectID:   projectID,
			TenantID:    tenantID,
			Title:       strings.TrimSpace(req.Title),
			Description: req.Description,
			Priority:    req.Priority,
			AssignedTo:  req.AssignedTo,
			DueDate:     req.DueDate,
		}

		if err := h.taskRepo.Create(c.Request.Context(), task); err != nil {
			if errors.Is(err, models.ErrAssigneeNotInTenant) {
				Error(c, http.StatusBadRequest, "Assignee not found in this tenant")
				return
			}
			slog.Error("task creation failed", "project_id", projectID, "error", err)
			Error(c, http.StatusInternalServerError, "Failed to create task")
			return
		}

		h.recorder.Record(audit.Entry{
			TenantID:   &task.TenantID,
			UserID:     caller.ID,
			Action:     models.ActionCreateTask,
			EntityType: "task",
			EntityID:   task.ID,
			IPAddress:  c.ClientIP(),
		})

		Success(c, http.StatusCreated, "Task created", task)
	}
}

// @Summary      List tasks
// @Description  List a project's tasks with assignee names, highest priority first, then earliest due date.
// @Tags         Tasks
// @Security     Bearer
// @Produce      json
// @Param        projectId  path  string  true  "Project ID"
// @Success      200  {object}  map[string]interface{}  "tasks: []models.TaskWithAssignee"
// @Failure      404  {object}  map[string]interface{}  "Project not found"
// @Router       /api/projects/{projectId}/tasks [get]
// ListTasksHandler lists the tasks of a project.
// GET /api/projects/:projectId/tasks
func (h *TaskHandlers) ListTasksHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		projectID := c.Param("id")
		_, tenantID := callerTenant(c)
		if !middleware.Authorize(c, authz.ActionListTasks, authz.Resource{TenantID: tenantID}) {
			return
		}

		// No project lives outside a tenant.
		if tenantID == "" {
			Error(c, http.StatusNotFound, "Project not found")
			return
		}

		exists, err := h.projectRepo.Exists(c.Request.Context(), tenantID, projectID)
		if err != nil {
			slog.Error("project check failed", "project_id", projectID, "error", err)
			Error(c, http.StatusInternalServerError, "Failed to fetch tasks")
			return
		}
		if !exists {
			Error(c, http.StatusNotFound, "Project not found")
			return
		}

		tasks, err := h.taskRepo.ListByProject(c.Request.Context(), tenantID, projectID)
		if err != nil {
			slog.Error("task list failed", "project_id", projectID, "error", err)
			Error(c, http.StatusInternalServerError, "Failed to fetch tasks")
			return
		}

		Success(c, http.StatusOK, "Tasks fetched", gin.H{"tasks": tasks})
	}
}

// UpdateTaskStatusRequest is the payload for the status-only update.
type UpdateTaskStatusRequest struct {
	Status string `json:"status" binding:"required"`
}

// @Summary      Update task status
// @Description  Move a task to another status.
// @Tags         Tasks
// @Security     Bearer
// @Accept       json
// @Produce      json
// @Param        id       path  string                   true  "Task ID"
// @Param        request  body  UpdateTaskStatusRequest  true  "New status"
// @Success      200  {object}  map[string]interface{}  "updated task"
// @Failure      404  {object}  map[string]interface{}  "Task not found"
// @Router       /api/tasks/{id}/status [patch]
// UpdateTaskStatusHandler changes only the status of a task.
// PATCH /api/tasks/:id/status
func (h *TaskHandlers) UpdateTaskStatusHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		taskID := c.Param("id")
		caller, tenantID := callerTenant(c)
		if !middleware.Authorize(c, authz.ActionUpdateTaskStatus, authz.Resource{TenantID: tenantID}) {
			return
		}

		var req UpdateTaskStatusRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			Error(c, http.StatusBadRequest, "status is required")
			return
		}
		if err := validation.ValidateTaskStatus(req.Status); err != nil {
			Error(c, http.StatusBadRequest, err.Error())
			return
		}

		task, err := h.taskRepo.UpdateStatus(c.Request.Context(), tenantID, taskID, req.Status)
		if err != nil {
			slog.Error("task status update failed", "task_id", taskID, "error", err)
			Error(c, http.StatusInternalServerError, "Failed to update task")
			return
		}
		if task == nil {
			Error(c, http.StatusNotFound, "Task not found")
			return
		}

		h.recorder.Record(audit.Entry{
			TenantID:   &task.TenantID,
			UserID:     caller.ID,
			Action:     models.ActionUpdateTaskStatus,
			EntityType: "task",
			EntityID:   taskID,
			IPAddress:  c.ClientIP(),
		})

		Success(c, http.StatusOK, "Task status updated", task)
	}
}

// UpdateTaskRequest is the payload for partial task updates.
type UpdateTaskRequest struct {
	Title       *string    `json:"title"`
	Description *string    `json:"description"`
	Priority    *string    `json:"priority"`
	Status      *string    `json:"status"`
	AssignedTo  *string    `json:"assignedTo"`
	DueDate     *time.Time `json:"dueDate"`
}

// @Summary      Update task
// @Description  Partially update a task. Omitted fields keep their values; a new assignee must belong to the same tenant.
// @Tags         Tasks
// @Security     Bearer
// @Accept       json
// @Produce      json
// @Param        id       path  string             true  "Task ID"
// @Param        request  body  UpdateTaskRequest  true  "Fields to update"
// @Success      200  {object}  map[string]interface{}  "updated task"
// @Failure      400  {object}  map[string]interface{}  "Validation failure or unknown assignee"
// @Failure      404  {object}  map[string]interface{}  "Task not found"
// @Router       /api/tasks/{id} [put]
// UpdateTaskHandler applies a partial update to a task.
// PUT /api/tasks/:id
func (h *TaskHandlers) UpdateTaskHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		taskID := c.Param("id")
		caller, tenantID := callerTenant(c)
		if !middleware.Authorize(c, authz.ActionUpdateTask, authz.Resource{TenantID: tenantID}) {
			return
		}

		var req UpdateTaskRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			Error(c, http.StatusBadRequest, "invalid request body")
			return
		}
		if req.Priority != nil {
			if err := validation.ValidatePriority(*req.Priority); err != nil {
				Error(c, http.StatusBadRequest, err.Error())
				return
			}
		}
		if req.Status != nil {
			if err := validation.ValidateTaskStatus(*req.Status); err != nil {
				Error(c, http.StatusBadRequest, err.Error())
				return
			}
		}

		task, err := h.taskRepo.Update(c.Request.Context(), tenantID, taskID, req.Title, req.Description, req.Priority, req.Status, req.AssignedTo, req.DueDate)
		if err != nil {
			if errors.Is(err, models.ErrAssigneeNotInTenant) {
				Error(c, http.StatusBadRequest, "Assignee not found in this tenant")
				return
			}
			slog.Error("task update failed", "task_id", taskID, "error", err)
			Error(c, http.StatusInternalServerError, "Update failed")
			return
		}
		if task == nil {
			Error(c, http.StatusNotFound, "Task not found")
			return
		}

		h.recorder.Record(audit.Entry{
			TenantID:   &task.TenantID,
			UserID:     caller.ID,
			Action:     models.ActionUpdateTask,
			EntityType: "task",
			EntityID:   taskID,
			IPAddress:  c.ClientIP(),
		})

		Success(c, http.StatusOK, "Task updated", task)
	}
}

// @Summary      Delete task
// @Description  Delete a task from the caller's tenant.
// @Tags         Tasks
// @Security     Bearer
// @Produce      json
// @Param        id  path  string  true  "Task ID"
// @Success      200  {object}  map[string]interface{}
// @Failure      404  {object}  map[string]interface{}  "Task not found"
// @Router       /api/tasks/{id} [delete]
// DeleteTaskHandler removes a task.
// DELETE /api/tasks/:id
func (h *TaskHandlers) DeleteTaskHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		taskID := c.Param("id")
		caller, tenantID := callerTenant(c)
		if !middleware.Authorize(c, authz.ActionDeleteTask, authz.Resource{TenantID: tenantID}) {
			return
		}

		if err := h.taskRepo.Delete(c.Request.Context(), tenantID, taskID); err != nil {
			if errors.Is(err, models.ErrNotFound) {
				Error(c, http.StatusNotFound, "Task not found")
				return
			}
			slog.Error("task delete failed", "task_id", taskID, "error", err)
			Error(c, http.StatusInternalServerError, "Failed to delete task")
			return
		}

		h.recorder.Record(audit.Entry{
			TenantID:   &tenantID,
			UserID:     caller.ID,
			Action:     models.ActionDeleteTask,
			EntityType: "task",
			EntityID:   taskID,
			IPAddress:  c.ClientIP(),
		})

		Success(c, http.StatusOK, "Task deleted successfully", nil)
	}
}

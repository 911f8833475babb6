// task_repository.go implements TaskRepository, providing tenant-scoped task
// queries over sqlx. Every statement filters on tenant_id in addition to the
// row's own id so a task from another tenant is indistinguishable from a
// missing one.
package repositories

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/taskhive/taskhive/internal/db/models"
)

// TaskRepository handles task database operations
type TaskRepository struct {
	db *sqlx.DB
}

// NewTaskRepository creates a new TaskRepository
func NewTaskRepository(db *sqlx.DB) *TaskRepository {
	return &TaskRepository{db: db}
}

// Create inserts a new task under a project. When an assignee is given it is
// verified to belong to the same tenant inside the insert transaction;
// models.ErrAssigneeNotInTenant is returned otherwise.
func (r *TaskRepository) Create(ctx context.Context, task *models.Task) error {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck // no-op after commit

	if task.AssignedTo != nil {
		var ok bool
		err = tx.GetContext(ctx, &ok,
			`SELECT EXISTS(SELECT 1 FROM users WHERE id = $1 AND tenant_id = $2)`,
			*task.AssignedTo, task.TenantID,
		)
		if err != nil {
			return fmt.Errorf("failed to check assignee: %w", err)
		}
		if !ok {
			return models.ErrAssigneeNotInTenant
		}
	}

	now := time.Now()
	task.ID = uuid.New().String()
	if task.Priority == "" {
		task.Priority = models.PriorityMedium
	}
	if task.Status == "" {
		task.Status = models.TaskStatusTodo
	}
	task.CreatedAt = now
	task.UpdatedAt = now

	_, err = tx.ExecContext(ctx, `
		INSERT INTO tasks (id, project_id, tenant_id, title, description, priority, status, assigned_to, due_date, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
	`,
		task.ID,
		task.ProjectID,
		task.TenantID,
		task.Title,
		task.Description,
		task.Priority,
		task.Status,
		task.AssignedTo,
		task.DueDate,
		task.CreatedAt,
		task.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create task: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit task creation: %w", err)
	}

	return nil
}

// ListByProject retrieves a project's tasks with the assignee's name, ordered
// by priority (high first) and then by due date.
func (r *TaskRepository) ListByProject(ctx context.Context, tenantID, projectID string) ([]*models.TaskWithAssignee, error) {
	query := `
		SELECT t.id, t.project_id, t.tenant_id, t.title, t.description, t.priority, t.status,
		       t.assigned_to, t.due_date, t.created_at, t.updated_at,
		       u.full_name AS assignee_name
		FROM tasks t
		LEFT JOIN users u ON t.assigned_to = u.id
		WHERE t.project_id = $1 AND t.tenant_id = $2
		ORDER BY CASE t.priority WHEN 'high' THEN 3 WHEN 'medium' THEN 2 ELSE 1 END DESC,
		         t.due_date ASC NULLS LAST
	`

	tasks := make([]*models.TaskWithAssignee, 0)
	if err := r.db.SelectContext(ctx, &tasks, query, projectID, tenantID); err != nil {
		return nil, fmt.Errorf("failed to list tasks: %w", err)
	}

	return tasks, nil
}

// GetByID retrieves a task within the given tenant. Returns (nil, nil) when
// the id does not exist or belongs to another tenant.
func (r *TaskRepository) GetByID(ctx context.Context, tenantID, taskID string) (*models.Task, error) {
	task := &models.Task{}
	err := r.db.GetContext(ctx, task,
		`SELECT * FROM tasks WHERE id = $1 AND tenant_id = $2`,
		taskID, tenantID,
	)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get task: %w", err)
	}
	return task, nil
}

// Update applies a partial update to a task within the given tenant. Nil
// fields keep their current value. A non-nil assignee is re-validated against
// the tenant's users inside the update transaction, same as Create, so a
// concurrently removed user cannot slip into assigned_to. Returns (nil, nil)
// when no task with that id exists in the tenant.
func (r *TaskRepository) Update(ctx context.Context, tenantID, taskID string, title, description, priority, status, assignedTo *string, dueDate *time.Time) (*models.Task, error) {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck // no-op after commit

	if assignedTo != nil && *assignedTo != "" {
		var ok bool
		err := tx.GetContext(ctx, &ok,
			`SELECT EXISTS(SELECT 1 FROM users WHERE id = $1 AND tenant_id = $2)`,
			*assignedTo, tenantID,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to check assignee: %w", err)
		}
		if !ok {
			return nil, models.ErrAssigneeNotInTenant
		}
	}

	query := `
		UPDATE tasks
		SET title = COALESCE($3, title),
		    description = COALESCE($4, description),
		    priority = COALESCE($5, priority),
		    status = COALESCE($6, status),
		    assigned_to = COALESCE($7, assigned_to),
		    due_date = COALESCE($8, due_date),
		    updated_at = NOW()
		WHERE id = $1 AND tenant_id = $2
		RETURNING *
	`

	task := &models.Task{}
	err = tx.GetContext(ctx, task, query, taskID, tenantID, title, description, priority, status, assignedTo, dueDate)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to update task: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit task update: %w", err)
	}
	return task, nil
}

// UpdateStatus changes only the status of a task within the given tenant.
// This is the lightweight path for board-style status moves, open to any
// member of the tenant. Returns (nil, nil) when no row matched.
func (r *TaskRepository) UpdateStatus(ctx context.Context, tenantID, taskID, status string) (*models.Task, error) {
	query := `
		UPDATE tasks
		SET status = $3, updated_at = NOW()
		WHERE id = $1 AND tenant_id = $2
		RETURNING *
	`

	task := &models.Task{}
	err := r.db.GetContext(ctx, task, query, taskID, tenantID, status)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to update task status: %w", err)
	}
	return task, nil
}

// Delete removes a task within the given tenant. Returns models.ErrNotFound
// when no row matched.
func (r *TaskRepository) Delete(ctx context.Context, tenantID, taskID string) error {
	result, err := r.db.ExecContext(ctx, `DELETE FROM tasks WHERE id = $1 AND tenant_id = $2`, taskID, tenantID)
	if err != nil {
		return fmt.Errorf("failed to delete task: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return models.ErrNotFound
	}

	return nil
}

package repositories

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/taskhive/taskhive/internal/db/models"
)

// ProjectRepository handles project database operations
type ProjectRepository struct {
	db *sql.DB
}

// NewProjectRepository creates a new ProjectRepository
func NewProjectRepository(db *sql.DB) *ProjectRepository {
	return &ProjectRepository{db: db}
}

const projectColumns = `id, tenant_id, name, description, status, created_by, created_at, updated_at`

func scanProject(row *sql.Row) (*models.Project, error) {
	project := &models.Project{}
	err := row.Scan(
		&project.ID,
		&project.TenantID,
		&project.Name,
		&project.Description,
		&project.Status,
		&project.CreatedBy,
		&project.CreatedAt,
		&project.UpdatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get project: %w", err)
	}
	return project, nil
}

// CreateWithinLimit inserts a new project after re-checking the tenant's
// max_projects ceiling inside the insert transaction. The FOR UPDATE lock on
// the tenant row keeps concurrent creations from both sneaking under the
// limit. Returns models.ErrLimitReached when the tenant is at capacity.
func (r *ProjectRepository) CreateWithinLimit(ctx context.Context, project *models.Project) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck // no-op after commit

	var maxProjects sql.NullInt64
	err = tx.QueryRowContext(ctx, `SELECT max_projects FROM tenants WHERE id = $1 FOR UPDATE`, project.TenantID).Scan(&maxProjects)
	if err == sql.ErrNoRows {
		return models.ErrNotFound
	}
	if err != nil {
		return fmt.Errorf("failed to lock tenant: %w", err)
	}

	limit := models.DefaultMaxProjects
	if maxProjects.Valid {
		limit = int(maxProjects.Int64)
	}

	var count int
	if err := tx.QueryRowContext(ctx, `SELECT COUNT(*) FROM projects WHERE tenant_id = $1`, project.TenantID).Scan(&count); err != nil {
		return fmt.Errorf("failed to count projects: %w", err)
	}
	if count >= limit {
		return models.ErrLimitReached
	}

	now := time.Now()
	project.ID = uuid.New().String()
	if project.Status == "" {
		project.Status = models.ProjectStatusActive
	}
	project.CreatedAt = now
	project.UpdatedAt = now

	_, err = tx.ExecContext(ctx, `
		INSERT INTO projects (id, tenant_id, name, description, status, created_by, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`,
		project.ID,
		project.TenantID,
		project.Name,
		project.Description,
		project.Status,
		project.CreatedBy,
		project.CreatedAt,
		project.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create project: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit project creation: %w", err)
	}

	return nil
}

// ListByTenant retrieves the tenant's projects enriched with the creator's
// name and a task count, newest first.
func (r *ProjectRepository) ListByTenant(ctx context.Context, tenantID string) ([]*models.ProjectSummary, error) {
	query := `
		SELECT p.id, p.tenant_id, p.name, p.description, p.status, p.created_by, p.created_at, p.updated_at,
		       u.full_name AS creator_name,
		       (SELECT COUNT(*) FROM tasks t WHERE t.project_id = p.id) AS task_count
		FROM projects p
		LEFT JOIN users u ON p.created_by = u.id
		WHERE p.tenant_id = $1
		ORDER BY p.created_at DESC
	`

	rows, err := r.db.QueryContext(ctx, query, tenantID)
	if err != nil {
		return nil, fmt.Errorf("failed to list projects: %w", err)
	}
	defer rows.Close()

	projects := make([]*models.ProjectSummary, 0)
	for rows.Next() {
		p := &models.ProjectSummary{}
		err := rows.Scan(
			&p.ID,
			&p.TenantID,
			&p.Name,
			&p.Description,
			&p.Status,
			&p.CreatedBy,
			&p.CreatedAt,
			&p.UpdatedAt,
			&p.CreatorName,
			&p.TaskCount,
		)
		if err != nil {
			return nil, err
		}
		projects = append(projects, p)
	}

	return projects, rows.Err()
}

// GetByID retrieves a project within the given tenant. Returns (nil, nil)
// when the id does not exist or belongs to another tenant.
func (r *ProjectRepository) GetByID(ctx context.Context, tenantID, projectID string) (*models.Project, error) {
	query := `SELECT ` + projectColumns + ` FROM projects WHERE id = $1 AND tenant_id = $2`
	return scanProject(r.db.QueryRowContext(ctx, query, projectID, tenantID))
}

// Exists reports whether a project with the given id exists in the tenant.
// Task handlers use it to anchor project-scoped task operations.
func (r *ProjectRepository) Exists(ctx context.Context, tenantID, projectID string) (bool, error) {
	var exists bool
	err := r.db.QueryRowContext(ctx,
		`SELECT EXISTS(SELECT 1 FROM projects WHERE id = $1 AND tenant_id = $2)`,
		projectID, tenantID,
	).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("failed to check project: %w", err)
	}
	return exists, nil
}

// Update applies a partial update to a project within the given tenant. Nil
// fields keep their current value. Returns (nil, nil) when no project with
// that id exists in the tenant.
func (r *ProjectRepository) Update(ctx context.Context, tenantID, projectID string, name, description, status *string) (*models.Project, error) {
	query := `
		UPDATE projects
		SET name = COALESCE($3, name),
		    description = COALESCE($4, description),
		    status = COALESCE($5, status),
		    updated_at = NOW()
		WHERE id = $1 AND tenant_id = $2
		RETURNING ` + projectColumns

	return scanProject(r.db.QueryRowContext(ctx, query, projectID, tenantID, name, description, status))
}

// Delete removes a project within the given tenant. Tasks under it go with it
// via the schema's ON DELETE CASCADE. Returns models.ErrNotFound when no row
// matched.
func (r *ProjectRepository) Delete(ctx context.Context, tenantID, projectID string) error {
	result, err := r.db.ExecContext(ctx, `DELETE FROM projects WHERE id = $1 AND tenant_id = $2`, projectID, tenantID)
	if err != nil {
		return fmt.Errorf("failed to delete project: %w", err)
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

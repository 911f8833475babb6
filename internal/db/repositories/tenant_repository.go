// Package repositories implements the data access layer for the task tracking
// service. Each repository type encapsulates all database queries for one
// entity. Handlers never issue SQL directly, and every read or write of a
// tenant-scoped entity takes the caller's tenant id as an explicit parameter —
// omitting the tenant filter is a compile-time error, not a runtime bug.
package repositories

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"

	"github.com/taskhive/taskhive/internal/db/models"
)

// uniqueViolation is the PostgreSQL error code for unique constraint failures.
const uniqueViolation = "23505"

func isUniqueViolation(err error) bool {
	if pqErr, ok := err.(*pq.Error); ok {
		return pqErr.Code == uniqueViolation
	}
	return false
}

// TenantRepository handles tenant database operations, including the atomic
// registration workflow.
type TenantRepository struct {
	db *sql.DB
}

// NewTenantRepository creates a new TenantRepository
func NewTenantRepository(db *sql.DB) *TenantRepository {
	return &TenantRepository{db: db}
}

// Register atomically creates a tenant and its first admin user. The subdomain
// uniqueness check, tenant insert, and admin insert run in one transaction so
// any failure leaves no partial tenant behind. The admin's PasswordHash must
// already be set by the caller; tenant status, plan, and limits are forced to
// the free-plan defaults.
func (r *TenantRepository) Register(ctx context.Context, tenant *models.Tenant, admin *models.User) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck // no-op after commit

	var existing string
	err = tx.QueryRowContext(ctx, `SELECT id FROM tenants WHERE subdomain = $1`, tenant.Subdomain).Scan(&existing)
	if err == nil {
		return models.ErrDuplicateSubdomain
	}
	if err != sql.ErrNoRows {
		return fmt.Errorf("failed to check subdomain: %w", err)
	}

	now := time.Now()
	tenant.ID = uuid.New().String()
	tenant.Status = models.TenantStatusActive
	tenant.SubscriptionPlan = models.PlanFree
	tenant.MaxUsers = models.DefaultMaxUsers
	tenant.MaxProjects = models.DefaultMaxProjects
	tenant.CreatedAt = now
	tenant.UpdatedAt = now

	_, err = tx.ExecContext(ctx, `
		INSERT INTO tenants (id, name, subdomain, status, subscription_plan, max_users, max_projects, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`,
		tenant.ID,
		tenant.Name,
		tenant.Subdomain,
		tenant.Status,
		tenant.SubscriptionPlan,
		tenant.MaxUsers,
		tenant.MaxProjects,
		tenant.CreatedAt,
		tenant.UpdatedAt,
	)
	if err != nil {
		// A concurrent registration can slip between the check and the
		// insert; the unique index settles the race.
		if isUniqueViolation(err) {
			return models.ErrDuplicateSubdomain
		}
		return fmt.Errorf("failed to create tenant: %w", err)
	}

	admin.ID = uuid.New().String()
	admin.TenantID = &tenant.ID
	admin.Role = models.RoleTenantAdmin
	admin.IsActive = true
	admin.CreatedAt = now
	admin.UpdatedAt = now

	_, err = tx.ExecContext(ctx, `
		INSERT INTO users (id, tenant_id, email, password_hash, full_name, role, is_active, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`,
		admin.ID,
		admin.TenantID,
		admin.Email,
		admin.PasswordHash,
		admin.FullName,
		admin.Role,
		admin.IsActive,
		admin.CreatedAt,
		admin.UpdatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return models.ErrDuplicateEmail
		}
		return fmt.Errorf("failed to create admin user: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit registration: %w", err)
	}

	return nil
}

const tenantColumns = `id, name, subdomain, status, subscription_plan, max_users, max_projects, created_at, updated_at`

func scanTenant(row *sql.Row) (*models.Tenant, error) {
	tenant := &models.Tenant{}
	err := row.Scan(
		&tenant.ID,
		&tenant.Name,
		&tenant.Subdomain,
		&tenant.Status,
		&tenant.SubscriptionPlan,
		&tenant.MaxUsers,
		&tenant.MaxProjects,
		&tenant.CreatedAt,
		&tenant.UpdatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get tenant: %w", err)
	}
	return tenant, nil
}

// GetByID retrieves a tenant by ID. Returns (nil, nil) when not found.
func (r *TenantRepository) GetByID(ctx context.Context, tenantID string) (*models.Tenant, error) {
	query := `SELECT ` + tenantColumns + ` FROM tenants WHERE id = $1`
	return scanTenant(r.db.QueryRowContext(ctx, query, tenantID))
}

// GetBySubdomain retrieves a tenant by its subdomain. Returns (nil, nil) when
// not found.
func (r *TenantRepository) GetBySubdomain(ctx context.Context, subdomain string) (*models.Tenant, error) {
	query := `SELECT ` + tenantColumns + ` FROM tenants WHERE subdomain = $1`
	return scanTenant(r.db.QueryRowContext(ctx, query, subdomain))
}

// List retrieves all tenants, newest first. Super-admin only at the API layer.
func (r *TenantRepository) List(ctx context.Context) ([]*models.Tenant, error) {
	query := `SELECT ` + tenantColumns + ` FROM tenants ORDER BY created_at DESC`

	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to list tenants: %w", err)
	}
	defer rows.Close()

	tenants := make([]*models.Tenant, 0)
	for rows.Next() {
		tenant := &models.Tenant{}
		err := rows.Scan(
			&tenant.ID,
			&tenant.Name,
			&tenant.Subdomain,
			&tenant.Status,
			&tenant.SubscriptionPlan,
			&tenant.MaxUsers,
			&tenant.MaxProjects,
			&tenant.CreatedAt,
			&tenant.UpdatedAt,
		)
		if err != nil {
			return nil, err
		}
		tenants = append(tenants, tenant)
	}

	return tenants, rows.Err()
}

// UpdateName updates a tenant's display name. The subdomain is immutable after
// registration and the plan/limit columns are only changed out of band, so
// name is the only updatable field. Returns (nil, nil) when the tenant does
// not exist.
func (r *TenantRepository) UpdateName(ctx context.Context, tenantID, name string) (*models.Tenant, error) {
	query := `
		UPDATE tenants SET name = $2, updated_at = NOW()
		WHERE id = $1
		RETURNING ` + tenantColumns

	return scanTenant(r.db.QueryRowContext(ctx, query, tenantID, name))
}

// Stats returns the tenant's current user and project counts.
func (r *TenantRepository) Stats(ctx context.Context, tenantID string) (*models.TenantStats, error) {
	query := `
		SELECT
			(SELECT COUNT(*) FROM users WHERE tenant_id = $1) AS total_users,
			(SELECT COUNT(*) FROM projects WHERE tenant_id = $1) AS total_projects
	`

	stats := &models.TenantStats{}
	err := r.db.QueryRowContext(ctx, query, tenantID).Scan(&stats.TotalUsers, &stats.TotalProjects)
	if err != nil {
		return nil, fmt.Errorf("failed to get tenant stats: %w", err)
	}

	return stats, nil
}

// user_repository.go implements UserRepository, providing user lookup for
// authentication plus tenant-scoped user management with plan-limit
// enforcement on creation.
package repositories

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/taskhive/taskhive/internal/db/models"
)

// UserRepository handles user database operations
type UserRepository struct {
	db *sql.DB
}

// NewUserRepository creates a new UserRepository
func NewUserRepository(db *sql.DB) *UserRepository {
	return &UserRepository{db: db}
}

const userColumns = `id, tenant_id, email, password_hash, full_name, role, is_active, created_at, updated_at`

func scanUser(row *sql.Row) (*models.User, error) {
	user := &models.User{}
	err := row.Scan(
		&user.ID,
		&user.TenantID,
		&user.Email,
		&user.PasswordHash,
		&user.FullName,
		&user.Role,
		&user.IsActive,
		&user.CreatedAt,
		&user.UpdatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get user: %w", err)
	}
	return user, nil
}

// GetByID retrieves a user by ID, unscoped. This is the canonical per-request
// identity lookup: the auth middleware calls it with the user id from a
// verified token and trusts the returned role/tenant over the token's claims.
// Returns (nil, nil) when not found.
func (r *UserRepository) GetByID(ctx context.Context, userID string) (*models.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE id = $1`
	return scanUser(r.db.QueryRowContext(ctx, query, userID))
}

// GetByEmail retrieves a user by email joined with their tenant's subdomain.
// The lookup is deliberately unscoped: email is only unique per tenant and a
// super admin has no tenant at all, so the login flow resolves tenant context
// after the password check. Returns (nil, nil) when not found.
func (r *UserRepository) GetByEmail(ctx context.Context, email string) (*models.UserWithSubdomain, error) {
	query := `
		SELECT u.id, u.tenant_id, u.email, u.password_hash, u.full_name, u.role, u.is_active, u.created_at, u.updated_at, t.subdomain
		FROM users u
		LEFT JOIN tenants t ON u.tenant_id = t.id
		WHERE u.email = $1
	`

	user := &models.UserWithSubdomain{}
	err := r.db.QueryRowContext(ctx, query, email).Scan(
		&user.ID,
		&user.TenantID,
		&user.Email,
		&user.PasswordHash,
		&user.FullName,
		&user.Role,
		&user.IsActive,
		&user.CreatedAt,
		&user.UpdatedAt,
		&user.Subdomain,
	)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get user by email: %w", err)
	}

	return user, nil
}

// CreateWithinLimit inserts a new tenant-bound user, re-validating the
// tenant's max_users ceiling inside the same transaction as the insert. The
// SELECT ... FOR UPDATE on the tenant row serializes concurrent creations for
// the same tenant, so two requests racing for the last seat cannot both pass
// the count check. Returns models.ErrLimitReached when the ceiling is hit and
// models.ErrDuplicateEmail on a per-tenant email conflict.
func (r *UserRepository) CreateWithinLimit(ctx context.Context, user *models.User) error {
	if user.TenantID == nil {
		return fmt.Errorf("user has no tenant")
	}
	tenantID := *user.TenantID

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck // no-op after commit

	var maxUsers sql.NullInt64
	err = tx.QueryRowContext(ctx, `SELECT max_users FROM tenants WHERE id = $1 FOR UPDATE`, tenantID).Scan(&maxUsers)
	if err == sql.ErrNoRows {
		return models.ErrNotFound
	}
	if err != nil {
		return fmt.Errorf("failed to lock tenant: %w", err)
	}

	limit := models.DefaultMaxUsers
	if maxUsers.Valid {
		limit = int(maxUsers.Int64)
	}

	var count int
	if err := tx.QueryRowContext(ctx, `SELECT COUNT(*) FROM users WHERE tenant_id = $1`, tenantID).Scan(&count); err != nil {
		return fmt.Errorf("failed to count users: %w", err)
	}
	if count >= limit {
		return models.ErrLimitReached
	}

	now := time.Now()
	user.ID = uuid.New().String()
	user.IsActive = true
	user.CreatedAt = now
	user.UpdatedAt = now

	_, err = tx.ExecContext(ctx, `
		INSERT INTO users (id, tenant_id, email, password_hash, full_name, role, is_active, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`,
		user.ID,
		user.TenantID,
		user.Email,
		user.PasswordHash,
		user.FullName,
		user.Role,
		user.IsActive,
		user.CreatedAt,
		user.UpdatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return models.ErrDuplicateEmail
		}
		return fmt.Errorf("failed to create user: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit user creation: %w", err)
	}

	return nil
}

// Create inserts a user without limit enforcement. Used by seeding for the
// super admin, who is not counted against any tenant's plan.
func (r *UserRepository) Create(ctx context.Context, user *models.User) error {
	now := time.Now()
	user.ID = uuid.New().String()
	user.CreatedAt = now
	user.UpdatedAt = now

	_, err := r.db.ExecContext(ctx, `
		INSERT INTO users (id, tenant_id, email, password_hash, full_name, role, is_active, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`,
		user.ID,
		user.TenantID,
		user.Email,
		user.PasswordHash,
		user.FullName,
		user.Role,
		user.IsActive,
		user.CreatedAt,
		user.UpdatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return models.ErrDuplicateEmail
		}
		return fmt.Errorf("failed to create user: %w", err)
	}

	return nil
}

// ListByTenant retrieves all users of one tenant.
func (r *UserRepository) ListByTenant(ctx context.Context, tenantID string) ([]*models.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE tenant_id = $1 ORDER BY created_at`

	rows, err := r.db.QueryContext(ctx, query, tenantID)
	if err != nil {
		return nil, fmt.Errorf("failed to list users: %w", err)
	}
	defer rows.Close()

	users := make([]*models.User, 0)
	for rows.Next() {
		user := &models.User{}
		err := rows.Scan(
			&user.ID,
			&user.TenantID,
			&user.Email,
			&user.PasswordHash,
			&user.FullName,
			&user.Role,
			&user.IsActive,
			&user.CreatedAt,
			&user.UpdatedAt,
		)
		if err != nil {
			return nil, err
		}
		users = append(users, user)
	}

	return users, rows.Err()
}

// Update applies a partial update to a user within the given tenant. Nil
// fields keep their current value. Returns (nil, nil) when no user with that
// id exists in the tenant.
func (r *UserRepository) Update(ctx context.Context, tenantID, userID string, fullName, role *string, isActive *bool) (*models.User, error) {
	query := `
		UPDATE users
		SET full_name = COALESCE($3, full_name),
		    role = COALESCE($4, role),
		    is_active = COALESCE($5, is_active),
		    updated_at = NOW()
		WHERE id = $1 AND tenant_id = $2
		RETURNING ` + userColumns

	return scanUser(r.db.QueryRowContext(ctx, query, userID, tenantID, fullName, role, isActive))
}

// Delete removes a user within the given tenant. Returns models.ErrNotFound
// when no row matched, which covers both a bogus id and an id belonging to
// another tenant.
func (r *UserRepository) Delete(ctx context.Context, tenantID, userID string) error {
	result, err := r.db.ExecContext(ctx, `DELETE FROM users WHERE id = $1 AND tenant_id = $2`, userID, tenantID)
	if err != nil {
		return fmt.Errorf("failed to delete user: %w", err)
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

// CountByRole returns how many users hold the given role, across all tenants.
// Used by seeding to decide whether a super admin already exists.
func (r *UserRepository) CountByRole(ctx context.Context, role string) (int, error) {
	var count int
	err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM users WHERE role = $1`, role).Scan(&count)
	return count, err
}

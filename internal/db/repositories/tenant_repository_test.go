package repositories

import (
	"context"
	"errors"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"

	"github.com/taskhive/taskhive/internal/db/models"
)

var errDB = errors.New("db error")

var tenantCols = []string{"id", "name", "subdomain", "status", "subscription_plan", "max_users", "max_projects", "created_at", "updated_at"}

func sampleTenantRow() *sqlmock.Rows {
	return sqlmock.NewRows(tenantCols).
		AddRow("tenant-1", "Acme Corp", "acme", "active", "free", 5, 3, time.Now(), time.Now())
}

func emptyTenantRow() *sqlmock.Rows {
	return sqlmock.NewRows(tenantCols)
}

func newTenantRepo(t *testing.T) (*TenantRepository, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return NewTenantRepository(db), mock
}

// ---------------------------------------------------------------------------
// Register
// ---------------------------------------------------------------------------

func TestRegister_Success(t *testing.T) {
	repo, mock := newTenantRepo(t)
	mock.ExpectBegin()
	mock.ExpectQuery("SELECT id FROM tenants WHERE subdomain").
		WithArgs("acme").
		WillReturnRows(sqlmock.NewRows([]string{"id"}))
	mock.ExpectExec("INSERT INTO tenants").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("INSERT INTO users").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	tenant := &models.Tenant{Name: "Acme Corp", Subdomain: "acme"}
	admin := &models.User{Email: "admin@acme.com", PasswordHash: "hash", FullName: "Admin"}
	if err := repo.Register(context.Background(), tenant, admin); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if tenant.ID == "" {
		t.Error("expected tenant ID to be assigned")
	}
	if admin.Role != models.RoleTenantAdmin {
		t.Errorf("Role = %s, want %s", admin.Role, models.RoleTenantAdmin)
	}
	if admin.TenantID == nil || *admin.TenantID != tenant.ID {
		t.Error("expected admin to be bound to the new tenant")
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unmet expectations: %v", err)
	}
}

func TestRegister_DuplicateSubdomain(t *testing.T) {
	repo, mock := newTenantRepo(t)
	mock.ExpectBegin()
	mock.ExpectQuery("SELECT id FROM tenants WHERE subdomain").
		WithArgs("acme").
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow("tenant-0"))
	mock.ExpectRollback()

	tenant := &models.Tenant{Name: "Acme Corp", Subdomain: "acme"}
	admin := &models.User{Email: "admin@acme.com", PasswordHash: "hash", FullName: "Admin"}
	err := repo.Register(context.Background(), tenant, admin)
	if !errors.Is(err, models.ErrDuplicateSubdomain) {
		t.Errorf("err = %v, want ErrDuplicateSubdomain", err)
	}
}

func TestRegister_AdminInsertFails(t *testing.T) {
	repo, mock := newTenantRepo(t)
	mock.ExpectBegin()
	mock.ExpectQuery("SELECT id FROM tenants WHERE subdomain").
		WithArgs("acme").
		WillReturnRows(sqlmock.NewRows([]string{"id"}))
	mock.ExpectExec("INSERT INTO tenants").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("INSERT INTO users").
		WillReturnError(errDB)
	mock.ExpectRollback()

	tenant := &models.Tenant{Name: "Acme Corp", Subdomain: "acme"}
	admin := &models.User{Email: "admin@acme.com", PasswordHash: "hash", FullName: "Admin"}
	if err := repo.Register(context.Background(), tenant, admin); err == nil {
		t.Error("expected error, got nil")
	}
}

// ---------------------------------------------------------------------------
// GetByID / GetBySubdomain
// ---------------------------------------------------------------------------

func TestGetTenantByID_Found(t *testing.T) {
	repo, mock := newTenantRepo(t)
	mock.ExpectQuery("SELECT.*FROM tenants.*WHERE id").
		WithArgs("tenant-1").
		WillReturnRows(sampleTenantRow())

	tenant, err := repo.GetByID(context.Background(), "tenant-1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if tenant == nil {
		t.Fatal("expected tenant, got nil")
	}
	if tenant.Subdomain != "acme" {
		t.Errorf("Subdomain = %s, want acme", tenant.Subdomain)
	}
}

func TestGetTenantByID_NotFound(t *testing.T) {
	repo, mock := newTenantRepo(t)
	mock.ExpectQuery("SELECT.*FROM tenants.*WHERE id").
		WithArgs("missing").
		WillReturnRows(emptyTenantRow())

	tenant, err := repo.GetByID(context.Background(), "missing")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if tenant != nil {
		t.Errorf("expected nil tenant, got %v", tenant)
	}
}

func TestGetTenantBySubdomain_Found(t *testing.T) {
	repo, mock := newTenantRepo(t)
	mock.ExpectQuery("SELECT.*FROM tenants.*WHERE subdomain").
		WithArgs("acme").
		WillReturnRows(sampleTenantRow())

	tenant, err := repo.GetBySubdomain(context.Background(), "acme")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if tenant == nil {
		t.Fatal("expected tenant, got nil")
	}
}

func TestGetTenantBySubdomain_DBError(t *testing.T) {
	repo, mock := newTenantRepo(t)
	mock.ExpectQuery("SELECT.*FROM tenants.*WHERE subdomain").
		WithArgs("acme").
		WillReturnError(errDB)

	_, err := repo.GetBySubdomain(context.Background(), "acme")
	if err == nil {
		t.Error("expected error, got nil")
	}
}

// ---------------------------------------------------------------------------
// List / UpdateName / Stats
// ---------------------------------------------------------------------------

func TestListTenants(t *testing.T) {
	repo, mock := newTenantRepo(t)
	rows := sqlmock.NewRows(tenantCols).
		AddRow("tenant-1", "Acme Corp", "acme", "active", "free", 5, 3, time.Now(), time.Now()).
		AddRow("tenant-2", "Globex", "globex", "active", "pro", 50, 30, time.Now(), time.Now())
	mock.ExpectQuery("SELECT.*FROM tenants.*ORDER BY created_at").
		WillReturnRows(rows)

	tenants, err := repo.List(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(tenants) != 2 {
		t.Errorf("len = %d, want 2", len(tenants))
	}
}

func TestUpdateTenantName_Found(t *testing.T) {
	repo, mock := newTenantRepo(t)
	mock.ExpectQuery("UPDATE tenants.*SET name").
		WithArgs("tenant-1", "New Name").
		WillReturnRows(sampleTenantRow())

	tenant, err := repo.UpdateName(context.Background(), "tenant-1", "New Name")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if tenant == nil {
		t.Fatal("expected tenant, got nil")
	}
}

func TestUpdateTenantName_NotFound(t *testing.T) {
	repo, mock := newTenantRepo(t)
	mock.ExpectQuery("UPDATE tenants.*SET name").
		WithArgs("missing", "New Name").
		WillReturnRows(emptyTenantRow())

	tenant, err := repo.UpdateName(context.Background(), "missing", "New Name")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if tenant != nil {
		t.Errorf("expected nil tenant, got %v", tenant)
	}
}

func TestTenantStats(t *testing.T) {
	repo, mock := newTenantRepo(t)
	mock.ExpectQuery("SELECT.*COUNT.*FROM users.*COUNT.*FROM projects").
		WithArgs("tenant-1").
		WillReturnRows(sqlmock.NewRows([]string{"total_users", "total_projects"}).AddRow(4, 2))

	stats, err := repo.Stats(context.Background(), "tenant-1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if stats.TotalUsers != 4 || stats.TotalProjects != 2 {
		t.Errorf("stats = %+v, want {4 2}", stats)
	}
}

// auth.go implements tenant registration, login, logout, and the current-user
// endpoint. Login failures are deliberately indistinguishable from the
// outside: unknown email, wrong password, wrong tenant context, and a
// deactivated account all produce the same 401 body.
package handlers

import (
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/taskhive/taskhive/internal/audit"
	"github.com/taskhive/taskhive/internal/auth"
	"github.com/taskhive/taskhive/internal/config"
	"github.com/taskhive/taskhive/internal/db/models"
	"github.com/taskhive/taskhive/internal/db/repositories"
	"github.com/taskhive/taskhive/internal/middleware"
	"github.com/taskhive/taskhive/internal/telemetry"
	"github.com/taskhive/taskhive/internal/validation"
)

// AuthHandlers handles registration and session endpoints.
type AuthHandlers struct {
	cfg        *config.Config
	tenantRepo *repositories.TenantRepository
	userRepo   *repositories.UserRepository
	recorder   *audit.Recorder
}

// NewAuthHandlers creates a new AuthHandlers instance.
func NewAuthHandlers(cfg *config.Config, tenantRepo *repositories.TenantRepository, userRepo *repositories.UserRepository, recorder *audit.Recorder) *AuthHandlers {
	return &AuthHandlers{
		cfg:        cfg,
		tenantRepo: tenantRepo,
		userRepo:   userRepo,
		recorder:   recorder,
	}
}

// RegisterTenantRequest is the payload for tenant self-registration.
type RegisterTenantRequest struct {
	TenantName    string `json:"tenantName" binding:"required"`
	Subdomain     string `json:"subdomain" binding:"required"`
	AdminEmail    string `json:"adminEmail" binding:"required"`
	AdminPassword string `json:"adminPassword" binding:"required"`
	AdminFullName string `json:"adminFullName" binding:"required"`
}

// UserSummary is the user shape returned by login.
type UserSummary struct {
	ID       string  `json:"id"`
	Email    string  `json:"email"`
	FullName string  `json:"fullName"`
	Role     string  `json:"role"`
	TenantID *string `json:"tenantId"`
}

// @Summary      Register tenant
// @Description  Create a new tenant workspace with its first admin user. The new tenant starts on the free plan.
// @Tags         Auth
// @Accept       json
// @Produce      json
// @Param        request  body  RegisterTenantRequest  true  "Tenant and admin details"
// @Success      201  {object}  map[string]interface{}  "tenantId, subdomain, adminUser"
// @Failure      400  {object}  map[string]interface{}  "Validation failure"
// @Failure      409  {object}  map[string]interface{}  "Subdomain already exists"
// @Router       /api/auth/register-tenant [post]
// RegisterTenantHandler creates a tenant and its first tenant_admin atomically.
// POST /api/auth/register-tenant
func (h *AuthHandlers) RegisterTenantHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		var req RegisterTenantRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			Error(c, http.StatusBadRequest, "tenantName, subdomain, adminEmail, adminPassword and adminFullName are required")
			return
		}

		if err := validation.ValidateSubdomain(req.Subdomain); err != nil {
			Error(c, http.StatusBadRequest, err.Error())
			return
		}
		if err := validation.ValidateEmail(req.AdminEmail); err != nil {
			Error(c, http.StatusBadRequest, err.Error())
			return
		}
		if err := validation.ValidatePassword(req.AdminPassword); err != nil {
			Error(c, http.StatusBadRequest, err.Error())
			return
		}

		hash, err := auth.HashPassword(req.AdminPassword)
		if err != nil {
			slog.Error("password hash failed", "error", err)
			Error(c, http.StatusInternalServerError, "Registration failed")
			return
		}

		tenant := &models.Tenant{
			Name:      strings.TrimSpace(req.TenantName),
			Subdomain: req.Subdomain,
		}
		admin := &models.User{
			Email:        req.AdminEmail,
			PasswordHash: hash,
			FullName:     strings.TrimSpace(req.AdminFullName),
		}

		if err := h.tenantRepo.Register(c.Request.Context(), tenant, admin); err != nil {
			if errors.Is(err, models.ErrDuplicateSubdomain) {
				Error(c, http.StatusConflict, "Subdomain already exists")
				return
			}
			slog.Error("tenant registration failed", "subdomain", req.Subdomain, "error", err)
			Error(c, http.StatusInternalServerError, "Registration failed")
			return
		}

		telemetry.TenantRegistrationsTotal.Inc()
		h.recorder.Record(audit.Entry{
			TenantID:   &tenant.ID,
			UserID:     admin.ID,
			Action:     models.ActionRegisterTenant,
			EntityType: "tenant",
			EntityID:   tenant.ID,
			IPAddress:  c.ClientIP(),
		})

		Success(c, http.StatusCreated, "Tenant registered successfully", gin.H{
			"tenantId":  tenant.ID,
			"subdomain": tenant.Subdomain,
			"adminUser": admin,
		})
	}
}

// LoginRequest is the payload for password login. TenantSubdomain is the
// optional tenant context; when present it must match the user's tenant.
type LoginRequest struct {
	Email           string `json:"email" binding:"required"`
	Password        string `json:"password" binding:"required"`
	TenantSubdomain string `json:"tenantSubdomain"`
}

// @Summary      Login
// @Description  Authenticate with email and password, optionally scoped to a tenant subdomain. Returns a bearer token.
// @Tags         Auth
// @Accept       json
// @Produce      json
// @Param        request  body  LoginRequest  true  "Credentials"
// @Success      200  {object}  map[string]interface{}  "user, token, expiresIn"
// @Failure      401  {object}  map[string]interface{}  "Invalid credentials"
// @Router       /api/auth/login [post]
// LoginHandler verifies credentials and issues a session token.
// POST /api/auth/login
func (h *AuthHandlers) LoginHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		var req LoginRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			Error(c, http.StatusBadRequest, "email and password are required")
			return
		}

		fail := func(logReason string) {
			telemetry.LoginAttemptsTotal.WithLabelValues("failure").Inc()
			slog.Info("login rejected", "email", req.Email, "reason", logReason)
			Error(c, http.StatusUnauthorized, "Invalid credentials")
		}

		user, err := h.userRepo.GetByEmail(c.Request.Context(), req.Email)
		if err != nil {
			slog.Error("login lookup failed", "error", err)
			Error(c, http.StatusInternalServerError, "Login failed")
			return
		}
		if user == nil {
			fail("unknown email")
			return
		}
		if !auth.CheckPassword(req.Password, user.PasswordHash) {
			fail("wrong password")
			return
		}
		if !user.IsActive {
			fail("inactive account")
			return
		}
		// Tenant context check. The failure body stays identical to a bad
		// password so a subdomain cannot be probed for known emails.
		if user.Role != models.RoleSuperAdmin && req.TenantSubdomain != "" {
			if user.Subdomain == nil || *user.Subdomain != req.TenantSubdomain {
				fail("wrong tenant context")
				return
			}
		}

		token, err := auth.IssueToken(user.ID, user.TenantID, user.Role, h.cfg.Auth.TokenTTL)
		if err != nil {
			slog.Error("token issue failed", "error", err)
			Error(c, http.StatusInternalServerError, "Login failed")
			return
		}

		telemetry.LoginAttemptsTotal.WithLabelValues("success").Inc()
		Success(c, http.StatusOK, "Login successful", gin.H{
			"user": UserSummary{
				ID:       user.ID,
				Email:    user.Email,
				FullName: user.FullName,
				Role:     user.Role,
				TenantID: user.TenantID,
			},
			"token":     token,
			"expiresIn": int(h.cfg.Auth.TokenTTL.Seconds()),
		})
	}
}

// @Summary      Logout
// @Description  Acknowledge logout. Tokens are stateless; clients discard them.
// @Tags         Auth
// @Security     Bearer
// @Produce      json
// @Success      200  {object}  map[string]interface{}
// @Router       /api/auth/logout [post]
// LogoutHandler acknowledges a logout request.
// POST /api/auth/logout
func (h *AuthHandlers) LogoutHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		Success(c, http.StatusOK, "Logged out", nil)
	}
}

// @Summary      Current user
// @Description  Return the authenticated user and, when applicable, their tenant record.
// @Tags         Auth
// @Security     Bearer
// @Produce      json
// @Success      200  {object}  map[string]interface{}  "user, tenant"
// @Failure      401  {object}  map[string]interface{}  "Unauthorized"
// @Router       /api/auth/me [get]
// MeHandler returns the caller's canonical user row plus tenant.
// GET /api/auth/me
func (h *AuthHandlers) MeHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		user, ok := middleware.UserFrom(c)
		if !ok {
			Error(c, http.StatusUnauthorized, "Not authorized, no token")
			return
		}

		var tenant *models.Tenant
		if user.TenantID != nil {
			t, err := h.tenantRepo.GetByID(c.Request.Context(), *user.TenantID)
			if err != nil {
				slog.Error("tenant lookup failed", "tenant_id", *user.TenantID, "error", err)
				Error(c, http.StatusInternalServerError, "Failed to load tenant")
				return
			}
			tenant = t
		}

		Success(c, http.StatusOK, "Current user", gin.H{
			"user":   user,
			"tenant": tenant,
		})
	}
}

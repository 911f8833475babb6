// Package api wires together all HTTP routes for the task tracking service.
//
// Route grouping philosophy:
//   - /api/health and the two /api/auth entry points (register-tenant, login)
//     are public. Login and registration sit behind a stricter rate limit
//     keyed by client IP.
//   - Everything else requires a bearer token. The auth middleware loads the
//     caller's canonical user row on every request; the handlers then consult
//     the authorization engine, so there is exactly one place where access
//     rules live.
package api

import (
	"database/sql"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/jmoiron/sqlx"

	"github.com/taskhive/taskhive/internal/api/handlers"
	"github.com/taskhive/taskhive/internal/audit"
	"github.com/taskhive/taskhive/internal/config"
	"github.com/taskhive/taskhive/internal/db/repositories"
	"github.com/taskhive/taskhive/internal/middleware"
)

// BackgroundServices holds references to background resources that must be
// stopped during graceful shutdown. The caller (cmd/server) is responsible
// for calling Shutdown() when the process receives a termination signal.
type BackgroundServices struct {
	rateLimiters []*middleware.RateLimiter
	auditMirror  *audit.FileMirror
}

// Shutdown stops background goroutines and closes the audit file mirror. It
// should be called after the HTTP server has been shut down so that in-flight
// requests are drained first.
func (bg *BackgroundServices) Shutdown() {
	slog.Info("stopping background services")
	for _, rl := range bg.rateLimiters {
		rl.Stop()
	}
	if bg.auditMirror != nil {
		if err := bg.auditMirror.Close(); err != nil {
			slog.Error("failed to close audit file mirror", "error", err)
		}
	}
	slog.Info("all background services stopped")
}

// NewRouter creates and configures the Gin router.
func NewRouter(cfg *config.Config, db *sql.DB) (*gin.Engine, *BackgroundServices) {
	router := gin.New()

	// Repositories. Task queries use sqlx; the rest run on database/sql.
	userRepo := repositories.NewUserRepository(db)
	tenantRepo := repositories.NewTenantRepository(db)
	projectRepo := repositories.NewProjectRepository(db)
	auditRepo := repositories.NewAuditRepository(db)

	sqlxDB := sqlx.NewDb(db, "postgres")
	taskRepo := repositories.NewTaskRepository(sqlxDB)

	// Audit recorder with optional file mirror. A mirror that cannot be
	// opened disables mirroring but never blocks startup: audit is
	// best-effort by design.
	var mirror *audit.FileMirror
	if cfg.Audit.Enabled && cfg.Audit.File.Enabled {
		m, err := audit.NewFileMirror(cfg.Audit.File.Path)
		if err != nil {
			slog.Error("audit file mirror unavailable", "path", cfg.Audit.File.Path, "error", err)
		} else {
			mirror = m
		}
	}
	recorder := audit.NewRecorder(auditRepo, mirror, cfg.Audit.Enabled)

	// Middleware ordering: security headers first so they appear on every
	// response, then request id, metrics, logging, CORS. Rate limiting and
	// auth are applied per route group below.
	router.Use(gin.Recovery())
	router.Use(middleware.SecurityHeadersMiddleware(middleware.APISecurityHeadersConfig()))
	router.Use(middleware.RequestIDMiddleware())
	router.Use(middleware.MetricsMiddleware())
	router.Use(LoggerMiddleware(cfg))
	router.Use(middleware.CORSMiddleware(cfg))

	// Rate limiters
	authRateLimiter := middleware.NewRateLimiter(middleware.AuthRateLimitConfig())
	generalRateLimiter := middleware.NewRateLimiter(rateLimitFromConfig(cfg))

	// Handlers
	authHandlers := handlers.NewAuthHandlers(cfg, tenantRepo, userRepo, recorder)
	tenantHandlers := handlers.NewTenantHandlers(tenantRepo, recorder)
	userHandlers := handlers.NewUserHandlers(userRepo, recorder)
	projectHandlers := handlers.NewProjectHandlers(projectRepo, recorder)
	taskHandlers := handlers.NewTaskHandlers(taskRepo, projectRepo, recorder)

	apiGroup := router.Group("/api")
	{
		apiGroup.GET("/health", healthCheckHandler(db))
		apiGroup.GET("/version", versionHandler())

		// Public authentication endpoints, strictly rate limited.
		authGroup := apiGroup.Group("/auth")
		authGroup.Use(middleware.RateLimitMiddleware(authRateLimiter))
		{
			authGroup.POST("/register-tenant", authHandlers.RegisterTenantHandler())
			authGroup.POST("/login", authHandlers.LoginHandler())
		}

		// Everything below requires a valid token and a live user row.
		authed := apiGroup.Group("")
		authed.Use(middleware.RateLimitMiddleware(generalRateLimiter))
		authed.Use(middleware.AuthMiddleware(userRepo))
		{
			authed.POST("/auth/logout", authHandlers.LogoutHandler())
			authed.GET("/auth/me", authHandlers.MeHandler())

			// Tenant administration. The platform-wide listing additionally
			// carries a route-level super admin guard; it is the only
			// endpoint that enumerates across tenants.
			authed.GET("/tenants", middleware.RequireSuperAdmin(), tenantHandlers.ListTenantsHandler())
			authed.GET("/tenants/:id", tenantHandlers.GetTenantHandler())
			authed.PUT("/tenants/:id", tenantHandlers.UpdateTenantHandler())

			// User management. Add/list nest under the tenant; update and
			// delete address users directly within the caller's tenant.
			authed.POST("/tenants/:id/users", userHandlers.AddUserHandler())
			authed.GET("/tenants/:id/users", userHandlers.ListTenantUsersHandler())
			authed.PUT("/users/:id", userHandlers.UpdateUserHandler())
			authed.DELETE("/users/:id", userHandlers.DeleteUserHandler())

			// Projects and their nested tasks.
			authed.GET("/projects", projectHandlers.ListProjectsHandler())
			authed.POST("/projects", projectHandlers.CreateProjectHandler())
			authed.GET("/projects/:id", projectHandlers.GetProjectHandler())
			authed.PUT("/projects/:id", projectHandlers.UpdateProjectHandler())
			authed.DELETE("/projects/:id", projectHandlers.DeleteProjectHandler())
			authed.POST("/projects/:id/tasks", taskHandlers.CreateTaskHandler())
			authed.GET("/projects/:id/tasks", taskHandlers.ListTasksHandler())

			authed.PATCH("/tasks/:id/status", taskHandlers.UpdateTaskStatusHandler())
			authed.PUT("/tasks/:id", taskHandlers.UpdateTaskHandler())
			authed.DELETE("/tasks/:id", taskHandlers.DeleteTaskHandler())
		}
	}

	bg := &BackgroundServices{
		rateLimiters: []*middleware.RateLimiter{authRateLimiter, generalRateLimiter},
		auditMirror:  mirror,
	}

	return router, bg
}

// rateLimitFromConfig builds the general rate limit from configuration,
// falling back to the defaults when rate limiting is disabled (the limiter is
// still constructed so the wiring stays uniform; a generous limit makes it a
// no-op in practice).
func rateLimitFromConfig(cfg *config.Config) middleware.RateLimitConfig {
	if !cfg.Security.RateLimiting.Enabled {
		return middleware.RateLimitConfig{
			RequestsPerMinute: 100000,
			BurstSize:         100000,
			CleanupInterval:   5 * time.Minute,
		}
	}
	return middleware.RateLimitConfig{
		RequestsPerMinute: cfg.Security.RateLimiting.RequestsPerMinute,
		BurstSize:         cfg.Security.RateLimiting.Burst,
		CleanupInterval:   5 * time.Minute,
	}
}

// @Summary      Health check
// @Description  Returns the health status of the service, including database connectivity.
// @Tags         System
// @Produce      json
// @Success      200  {object}  map[string]interface{}  "status: ok, database: connected"
// @Failure      503  {object}  map[string]interface{}  "status: error, database: disconnected"
// @Router       /api/health [get]
// healthCheckHandler returns the health status of the service
func healthCheckHandler(db *sql.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		if err := db.Ping(); err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{
				"status":    "error",
				"database":  "disconnected",
				"timestamp": time.Now().UTC().Format(time.RFC3339),
			})
			return
		}

		c.JSON(http.StatusOK, gin.H{
			"status":    "ok",
			"database":  "connected",
			"timestamp": time.Now().UTC().Format(time.RFC3339),
		})
	}
}

// @Summary      API version
// @Description  Returns the current API version.
// @Tags         System
// @Produce      json
// @Success      200  {object}  map[string]interface{}
// @Router       /api/version [get]
// versionHandler returns the API version
func versionHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"version":     "0.1.0",
			"api_version": "v1",
		})
	}
}

// LoggerMiddleware provides structured logging
func LoggerMiddleware(cfg *config.Config) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		path := c.Request.URL.Path
		query := c.Request.URL.RawQuery

		c.Next()

		latency := time.Since(start)

		requestID, _ := c.Get(middleware.RequestIDKey)
		slog.LogAttrs(
			c.Request.Context(),
			slog.LevelInfo,
			"http request",
			slog.String("method", c.Request.Method),
			slog.String("path", path),
			slog.String("query", query),
			slog.Int("status", c.Writer.Status()),
			slog.Int("size", c.Writer.Size()),
			slog.Duration("latency", latency),
			slog.String("ip", c.ClientIP()),
			slog.String("request_id", fmt.Sprintf("%v", requestID)),
			slog.String("user_agent", c.Request.UserAgent()),
		)
	}
}

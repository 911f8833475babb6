// Package middleware provides Gin HTTP middleware for authentication,
// authorization, rate limiting, security headers, and request telemetry.
//
// Middleware ordering matters and is enforced in router.go:
//
//	Security → RequestID → Metrics → RateLimit → Auth → Handler
//
// Security headers run first so they appear on all responses including errors.
// Rate limiting runs before auth to block brute-force attacks before any DB
// work. Auth populates the caller identity; handlers consult the authorization
// engine with it.
package middleware

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/taskhive/taskhive/internal/auth"
	"github.com/taskhive/taskhive/internal/authz"
	"github.com/taskhive/taskhive/internal/db/models"
	"github.com/taskhive/taskhive/internal/db/repositories"
)

// Context keys set by AuthMiddleware.
const (
	// CallerKey holds the authz.Caller for the authenticated user.
	CallerKey = "caller"
	// UserKey holds the full *models.User row.
	UserKey = "user"
	// UserIDKey holds the user id string, used by rate limit keying.
	UserIDKey = "user_id"
)

func abortUnauthorized(c *gin.Context, message string) {
	c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
		"success": false,
		"message": message,
		"data":    nil,
	})
}

// AuthMiddleware validates the Bearer session token and loads the caller's
// canonical identity. The token claims are only trusted for the user id
// lookup; role, tenant, and active status come from the database row on every
// request, so a role change or deactivation takes effect immediately rather
// than at token expiry.
func AuthMiddleware(userRepo *repositories.UserRepository) gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")
		if authHeader == "" {
			abortUnauthorized(c, "Not authorized, no token")
			return
		}

		if !strings.HasPrefix(authHeader, "Bearer ") {
			abortUnauthorized(c, "Not authorized, no token")
			return
		}

		token := strings.TrimSpace(strings.TrimPrefix(authHeader, "Bearer "))
		if token == "" {
			abortUnauthorized(c, "Not authorized, no token")
			return
		}

		claims, err := auth.VerifyToken(token)
		if err != nil {
			// Malformed, expired, and invalid all collapse into the same
			// response; the distinction only exists in debug logs.
			abortUnauthorized(c, "Not authorized, token failed")
			return
		}

		user, err := userRepo.GetByID(c.Request.Context(), claims.UserID)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{
				"success": false,
				"message": "Failed to load user",
				"data":    nil,
			})
			return
		}

		// A token for a deleted or deactivated account is rejected exactly
		// like a bad token.
		if user == nil || !user.IsActive {
			abortUnauthorized(c, "Not authorized, token failed")
			return
		}

		c.Set(UserKey, user)
		c.Set(UserIDKey, user.ID)
		c.Set(CallerKey, authz.Caller{
			ID:       user.ID,
			TenantID: user.TenantID,
			Role:     user.Role,
		})

		c.Next()
	}
}

// CallerFrom retrieves the authz.Caller placed by AuthMiddleware.
func CallerFrom(c *gin.Context) (authz.Caller, bool) {
	v, ok := c.Get(CallerKey)
	if !ok {
		return authz.Caller{}, false
	}
	caller, ok := v.(authz.Caller)
	return caller, ok
}

// UserFrom retrieves the canonical user row placed by AuthMiddleware.
func UserFrom(c *gin.Context) (*models.User, bool) {
	v, ok := c.Get(UserKey)
	if !ok {
		return nil, false
	}
	user, ok := v.(*models.User)
	return user, ok
}

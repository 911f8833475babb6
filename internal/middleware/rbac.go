// rbac.go renders authorization decisions to HTTP. The rules themselves live
// in internal/authz; this file only translates a Decision into the right
// response shape so every handler denies identically.
package middleware

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/taskhive/taskhive/internal/authz"
	"github.com/taskhive/taskhive/internal/db/models"
)

// Authorize runs the decision function for the current caller and, on denial,
// writes the response and aborts the request. Returns true if the handler may
// proceed.
//
// Denial mapping:
//   - cross-tenant   → 404, indistinguishable from a missing resource
//   - self-delete    → 403 with an explicit message
//   - role           → 403 generic
func Authorize(c *gin.Context, action authz.Action, res authz.Resource) bool {
	caller, ok := CallerFrom(c)
	if !ok {
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
			"success": false,
			"message": "Not authorized, no token",
			"data":    nil,
		})
		return false
	}

	decision := authz.Authorize(caller, action, res)
	if decision.Allowed {
		return true
	}

	switch decision.Reason {
	case authz.ReasonCrossTenant:
		c.AbortWithStatusJSON(http.StatusNotFound, gin.H{
			"success": false,
			"message": "Resource not found",
			"data":    nil,
		})
	case authz.ReasonSelfDelete:
		c.AbortWithStatusJSON(http.StatusForbidden, gin.H{
			"success": false,
			"message": "You cannot delete yourself",
			"data":    nil,
		})
	default:
		c.AbortWithStatusJSON(http.StatusForbidden, gin.H{
			"success": false,
			"message": "Not authorized",
			"data":    nil,
		})
	}
	return false
}

// RequireSuperAdmin guards routes that only the platform operator may reach.
// It runs after AuthMiddleware and checks the canonical role, not the token.
func RequireSuperAdmin() gin.HandlerFunc {
	return func(c *gin.Context) {
		caller, ok := CallerFrom(c)
		if !ok || caller.Role != models.RoleSuperAdmin {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{
				"success": false,
				"message": "Not authorized",
				"data":    nil,
			})
			return
		}
		c.Next()
	}
}

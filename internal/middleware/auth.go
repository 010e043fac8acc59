package middleware

import (
	"log"
	"strings"

	"github.com/gin-gonic/gin"

	"clinic-booking-server/internal/config"
	"clinic-booking-server/internal/models"
	"clinic-booking-server/internal/session"
	"clinic-booking-server/internal/utils"
)

// TabIDHeader carries the browser tab id the web client generates per tab.
const TabIDHeader = "X-Tab-ID"

// AuthMiddleware creates a middleware for JWT authentication. When a tab
// store is provided and the request carries a tab id, the tab's binding
// must match the token's user.
func AuthMiddleware(cfg *config.Config, tabs *session.TabStore) gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")
		if authHeader == "" {
			utils.Unauthorized(c, "Authorization header required")
			c.Abort()
			return
		}

		parts := strings.Split(authHeader, " ")
		if len(parts) != 2 || strings.ToLower(parts[0]) != "bearer" {
			utils.Unauthorized(c, "Invalid authorization header format")
			c.Abort()
			return
		}

		tokenString := parts[1]
		claims, err := utils.ValidateToken(tokenString, cfg.JWTSecret)
		if err != nil {
			utils.Unauthorized(c, "Invalid token: "+err.Error())
			c.Abort()
			return
		}

		// A tab bound to another account means the user logged into a
		// different account in this tab; the stale token must not act as
		// the old user.
		if tabID := c.GetHeader(TabIDHeader); tabID != "" && tabs != nil {
			boundUser, err := tabs.UserFor(c.Request.Context(), tabID)
			if err != nil {
				log.Println("tab session lookup failed:", err)
			} else if boundUser != "" && boundUser != claims.UserID {
				utils.Unauthorized(c, "Session tab is bound to a different account")
				c.Abort()
				return
			}
		}

		// Set user information in context for downstream handlers
		c.Set("userID", claims.UserID)
		c.Set("userRole", claims.Role)

		c.Next()
	}
}

// RoleAuthMiddleware creates a middleware for role-based authorization.
// It should be used *after* AuthMiddleware.
func RoleAuthMiddleware(allowedRoles ...models.Role) gin.HandlerFunc {
	return func(c *gin.Context) {
		userRole, exists := c.Get("userRole")
		if !exists {
			utils.InternalServerError(c, "User role not found in context. AuthMiddleware might be missing.")
			c.Abort()
			return
		}

		role, ok := userRole.(models.Role)
		if !ok {
			utils.InternalServerError(c, "User role in context is not of expected type.")
			c.Abort()
			return
		}

		isAllowed := false
		for _, allowedRole := range allowedRoles {
			if role == allowedRole {
				isAllowed = true
				break
			}
		}

		if !isAllowed {
			utils.Forbidden(c, "You do not have permission to access this resource.")
			c.Abort()
			return
		}

		c.Next()
	}
}

// Helper function to get user ID from context
func GetUserIDFromContext(c *gin.Context) (string, bool) {
	userID, exists := c.Get("userID")
	if !exists {
		return "", false
	}
	idStr, ok := userID.(string)
	return idStr, ok
}

// Helper function to get user role from context
func GetUserRoleFromContext(c *gin.Context) (models.Role, bool) {
	userRole, exists := c.Get("userRole")
	if !exists {
		return "", false
	}
	role, ok := userRole.(models.Role)
	return role, ok
}

// ActorFromContext returns the authenticated user as a (id, role) pair.
func ActorFromContext(c *gin.Context) (string, models.Role, bool) {
	id, okID := GetUserIDFromContext(c)
	role, okRole := GetUserRoleFromContext(c)
	return id, role, okID && okRole
}

package middleware

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/BilalEnesS/doc-panel/internal/shared/auth"
	"github.com/BilalEnesS/doc-panel/internal/shared/server/respond"
)

const (
	userIDKey    = "userId"
	userEmailKey = "userEmail"
	userRoleKey  = "userRole"
)

// RoleAdmin is the role allowed to manage shared resources.
const RoleAdmin = "admin"

var publicPrefixes = []string{
	"/api/v1/health/",
	"/api/v1/auth/google/",
}

var publicPaths = map[string]struct{}{
	"/":                   {},
	"/metrics":            {},
	"/api/v1/auth/signup": {},
	"/api/v1/auth/login":  {},
}

// IsPublicPath reports whether path is served without a bearer token.
func IsPublicPath(path string) bool {
	if _, ok := publicPaths[path]; ok {
		return true
	}
	for _, p := range publicPrefixes {
		if strings.HasPrefix(path, p) {
			return true
		}
	}
	return false
}

// Auth validates bearer JWTs and stores identity in context.
func Auth() gin.HandlerFunc {
	return func(c *gin.Context) {
		if c.Request.Method == http.MethodOptions {
			c.Status(http.StatusNoContent)
			return
		}
		if IsPublicPath(c.Request.URL.Path) {
			c.Next()
			return
		}

		authHeader := strings.TrimSpace(c.GetHeader("Authorization"))
		if !strings.HasPrefix(authHeader, "Bearer ") {
			respond.Error(c, http.StatusUnauthorized, "unauthorized", "Could not validate credentials", nil)
			return
		}
		token := strings.TrimSpace(strings.TrimPrefix(authHeader, "Bearer"))
		if token == "" {
			respond.Error(c, http.StatusUnauthorized, "unauthorized", "Could not validate credentials", nil)
			return
		}

		claims, err := auth.VerifyJWT(token)
		if err != nil {
			respond.Error(c, http.StatusUnauthorized, "unauthorized", "Could not validate credentials", nil)
			return
		}
		id, err := strconv.ParseInt(claims.Sub, 10, 64)
		if err != nil || id <= 0 {
			respond.Error(c, http.StatusUnauthorized, "unauthorized", "Could not validate credentials", nil)
			return
		}

		SetIdentity(c, id, claims.Email, claims.Role)
		c.Next()
	}
}

// RequireAdmin aborts with 403 unless the caller has the admin role.
func RequireAdmin() gin.HandlerFunc {
	return func(c *gin.Context) {
		if UserRoleFromContext(c) != RoleAdmin {
			respond.Error(c, http.StatusForbidden, "forbidden", "Admin privileges required", nil)
			return
		}
		c.Next()
	}
}

// SetIdentity stores the authenticated caller on the gin context.
func SetIdentity(c *gin.Context, userID int64, email, role string) {
	c.Set(userIDKey, userID)
	if email != "" {
		c.Set(userEmailKey, email)
	}
	if role != "" {
		c.Set(userRoleKey, role)
	}
}

// UserIDFromContext fetches the user ID set by the auth middleware, or 0.
func UserIDFromContext(c *gin.Context) int64 {
	if c == nil {
		return 0
	}
	val, _ := c.Get(userIDKey)
	if id, ok := val.(int64); ok {
		return id
	}
	return 0
}

// UserEmailFromContext fetches the user email set by the auth middleware.
func UserEmailFromContext(c *gin.Context) string {
	if c == nil {
		return ""
	}
	return c.GetString(userEmailKey)
}

// UserRoleFromContext fetches the role claim set by the auth middleware.
func UserRoleFromContext(c *gin.Context) string {
	if c == nil {
		return ""
	}
	return c.GetString(userRoleKey)
}

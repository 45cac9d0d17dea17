package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"

	"github.com/BilalEnesS/doc-panel/internal/shared/auth"
)

func newAuthRouter() *gin.Engine {
	gin.SetMode(gin.TestMode)
	router := gin.New()
	router.Use(Auth())
	router.GET("/api/v1/documents", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"user": UserIDFromContext(c), "role": UserRoleFromContext(c)})
	})
	router.POST("/api/v1/auth/login", func(c *gin.Context) {
		c.Status(http.StatusOK)
	})
	router.GET("/api/v1/health/live", func(c *gin.Context) {
		c.Status(http.StatusOK)
	})
	admin := router.Group("/api/v1/admin", RequireAdmin())
	admin.POST("/thing", func(c *gin.Context) { c.Status(http.StatusCreated) })
	return router
}

func TestAuthAllowsOptionsWithoutIdentity(t *testing.T) {
	gin.SetMode(gin.TestMode)
	router := gin.New()
	router.Use(Auth())
	router.OPTIONS("/api/v1/documents/:id", func(c *gin.Context) {
		c.Status(http.StatusNoContent)
	})

	req := httptest.NewRequest(http.MethodOptions, "/api/v1/documents/1", nil)
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, req)

	if resp.Code != http.StatusNoContent {
		t.Fatalf("expected 204, got %d", resp.Code)
	}
}

func TestAuthBearerToken(t *testing.T) {
	t.Setenv("JWT_SECRET", "test-secret")
	router := newAuthRouter()

	valid, err := auth.SignJWT(auth.Claims{Sub: "42", Email: "a@b.c", Role: "user"})
	if err != nil {
		t.Fatalf("SignJWT: %v", err)
	}
	nonNumeric, _ := auth.SignJWT(auth.Claims{Sub: "guest:abc"})

	tests := []struct {
		name   string
		method string
		path   string
		header string
		want   int
	}{
		{name: "missing header", method: http.MethodGet, path: "/api/v1/documents", want: http.StatusUnauthorized},
		{name: "wrong scheme", method: http.MethodGet, path: "/api/v1/documents", header: "Basic abc", want: http.StatusUnauthorized},
		{name: "garbage token", method: http.MethodGet, path: "/api/v1/documents", header: "Bearer nope", want: http.StatusUnauthorized},
		{name: "non numeric subject", method: http.MethodGet, path: "/api/v1/documents", header: "Bearer " + nonNumeric, want: http.StatusUnauthorized},
		{name: "valid token", method: http.MethodGet, path: "/api/v1/documents", header: "Bearer " + valid, want: http.StatusOK},
		{name: "login is public", method: http.MethodPost, path: "/api/v1/auth/login", want: http.StatusOK},
		{name: "health is public", method: http.MethodGet, path: "/api/v1/health/live", want: http.StatusOK},
		{name: "admin route rejects users", method: http.MethodPost, path: "/api/v1/admin/thing", header: "Bearer " + valid, want: http.StatusForbidden},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(tt.method, tt.path, nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			resp := httptest.NewRecorder()
			router.ServeHTTP(resp, req)
			if resp.Code != tt.want {
				t.Fatalf("expected %d, got %d: %s", tt.want, resp.Code, resp.Body.String())
			}
		})
	}
}

func TestRequireAdminAllowsAdmins(t *testing.T) {
	t.Setenv("JWT_SECRET", "test-secret")
	router := newAuthRouter()
	token, _ := auth.SignJWT(auth.Claims{Sub: "1", Role: RoleAdmin})

	req := httptest.NewRequest(http.MethodPost, "/api/v1/admin/thing", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, req)
	if resp.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d", resp.Code)
	}
}

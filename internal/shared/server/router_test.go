package server

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"

	"github.com/BilalEnesS/doc-panel/internal/documents"
	sharedauth "github.com/BilalEnesS/doc-panel/internal/shared/auth"
	"github.com/BilalEnesS/doc-panel/internal/shared/config"
	"github.com/BilalEnesS/doc-panel/internal/shared/storage/object/local"
)

func newTestRouter(t *testing.T, perMinute int) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)
	svc := &documents.Service{Repo: documents.NewMemoryRepo(), Store: local.New(t.TempDir())}
	return NewRouter(RouterDeps{
		Config:          config.Config{RateLimitPerMinute: perMinute, CORSAllowOrigin: []string{"http://localhost:5173"}},
		DocumentHandler: documents.NewHandler(svc),
	})
}

func TestPublicRoutes(t *testing.T) {
	router := newTestRouter(t, 0)

	tests := []struct {
		path string
		want int
	}{
		{path: "/", want: http.StatusOK},
		{path: "/api/v1/health/live", want: http.StatusOK},
		{path: "/api/v1/health/ready", want: http.StatusOK},
		{path: "/metrics", want: http.StatusOK},
		{path: "/api/v1/documents", want: http.StatusUnauthorized},
	}
	for _, tt := range tests {
		resp := httptest.NewRecorder()
		router.ServeHTTP(resp, httptest.NewRequest(http.MethodGet, tt.path, nil))
		if resp.Code != tt.want {
			t.Fatalf("%s: expected %d, got %d", tt.path, tt.want, resp.Code)
		}
		if resp.Header().Get("X-Request-Id") == "" {
			t.Fatalf("%s: missing request id header", tt.path)
		}
	}

	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, httptest.NewRequest(http.MethodGet, "/", nil))
	var payload map[string]string
	_ = json.NewDecoder(resp.Body).Decode(&payload)
	if payload["message"] != "Intelligent Document Management System API" {
		t.Fatalf("unexpected root payload %v", payload)
	}
}

func TestAuthenticatedListAndRateLimit(t *testing.T) {
	t.Setenv("JWT_SECRET", "test-secret")
	router := newTestRouter(t, 2)
	token, err := sharedauth.SignJWT(sharedauth.Claims{Sub: "1", Role: "user"})
	if err != nil {
		t.Fatalf("SignJWT: %v", err)
	}

	codes := make([]int, 0, 3)
	for i := 0; i < 3; i++ {
		req := httptest.NewRequest(http.MethodGet, "/api/v1/documents", nil)
		req.Header.Set("Authorization", "Bearer "+token)
		resp := httptest.NewRecorder()
		router.ServeHTTP(resp, req)
		codes = append(codes, resp.Code)
		if resp.Code == http.StatusTooManyRequests && resp.Header().Get("Retry-After") == "" {
			t.Fatalf("429 without Retry-After")
		}
	}
	if codes[0] != http.StatusOK || codes[1] != http.StatusOK || codes[2] != http.StatusTooManyRequests {
		t.Fatalf("unexpected codes %v", codes)
	}

	for i := 0; i < 3; i++ {
		resp := httptest.NewRecorder()
		router.ServeHTTP(resp, httptest.NewRequest(http.MethodGet, "/api/v1/health/live", nil))
		if resp.Code != http.StatusOK {
			t.Fatalf("health should not be rate limited, got %d", resp.Code)
		}
	}
}

func TestUnknownRouteUsesErrorEnvelope(t *testing.T) {
	t.Setenv("JWT_SECRET", "test-secret")
	router := newTestRouter(t, 0)
	token, _ := sharedauth.SignJWT(sharedauth.Claims{Sub: "1"})
	req := httptest.NewRequest(http.MethodGet, "/api/v1/nope", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, req)
	if resp.Code != http.StatusNotFound || !strings.Contains(resp.Body.String(), `"code":"not_found"`) {
		t.Fatalf("unexpected response %d %s", resp.Code, resp.Body.String())
	}
}

func TestAddr(t *testing.T) {
	for in, want := range map[string]string{"": ":8080", ":9000": ":9000", "7000": ":7000"} {
		if got := Addr(in); got != want {
			t.Fatalf("Addr(%q) = %q, want %q", in, got, want)
		}
	}
}

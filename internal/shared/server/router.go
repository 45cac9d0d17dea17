package server

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	googleauth "github.com/BilalEnesS/doc-panel/internal/auth"
	"github.com/BilalEnesS/doc-panel/internal/categories"
	"github.com/BilalEnesS/doc-panel/internal/documents"
	"github.com/BilalEnesS/doc-panel/internal/search"
	"github.com/BilalEnesS/doc-panel/internal/services/health"
	"github.com/BilalEnesS/doc-panel/internal/shared/config"
	"github.com/BilalEnesS/doc-panel/internal/shared/metrics"
	"github.com/BilalEnesS/doc-panel/internal/shared/server/middleware"
	"github.com/BilalEnesS/doc-panel/internal/shared/server/respond"
	"github.com/BilalEnesS/doc-panel/internal/users"
)

const (
	rateLimitDefault = "DEFAULT"
	// rateLimitPolling covers status polling of a single document while it
	// is processing.
	rateLimitPolling  = "POLLING"
	rateLimitExempt   = "EXEMPT"
	pollingMultiplier = 5
)

// RouterDeps holds the handlers mounted by NewRouter. Nil handlers are skipped.
type RouterDeps struct {
	Config          config.Config
	DocumentHandler *documents.Handler
	SearchHandler   *search.Handler
	CategoryHandler *categories.Handler
	UserHandler     *users.Handler
	GoogleAuth      *googleauth.GoogleService
	Health          *health.Service
	Limiter         middleware.Limiter
}

// NewRouter constructs the Gin engine with middleware and routes registered.
func NewRouter(deps RouterDeps) *gin.Engine {
	if gin.Mode() != gin.TestMode {
		gin.SetMode(gin.ReleaseMode)
	}
	r := gin.New()

	middlewares := []gin.HandlerFunc{
		middleware.RequestID(),
		middleware.Logging(),
		middleware.Recovery(),
		middleware.CORS(deps.Config.CORSAllowOrigin),
		middleware.Auth(),
	}
	if perMinute := deps.Config.RateLimitPerMinute; perMinute > 0 {
		middlewares = append(middlewares, middleware.RateLimit(middleware.RateLimitConfig{
			Rules: map[string]middleware.RateLimitRule{
				rateLimitDefault: middleware.PerMinute(perMinute),
				rateLimitPolling: middleware.PerMinute(perMinute * pollingMultiplier),
			},
			DefaultGroup: rateLimitDefault,
			GroupFor:     rateLimitGroup,
			Limiter:      deps.Limiter,
		}))
	}
	r.Use(middlewares...)

	r.GET("/", func(c *gin.Context) {
		respond.OK(c, gin.H{"message": "Intelligent Document Management System API"})
	})
	r.GET("/metrics", metrics.Handler())
	r.NoRoute(func(c *gin.Context) {
		respond.Error(c, http.StatusNotFound, "not_found", "route not found", nil)
	})

	healthSvc := deps.Health
	if healthSvc == nil {
		healthSvc = health.NewService()
	}

	api := r.Group("/api/v1")
	healthSvc.RegisterRoutes(api)
	if deps.UserHandler != nil {
		deps.UserHandler.RegisterRoutes(api)
	}
	if deps.GoogleAuth != nil {
		deps.GoogleAuth.RegisterRoutes(api)
	}
	if deps.SearchHandler != nil {
		deps.SearchHandler.RegisterRoutes(api)
	}
	if deps.DocumentHandler != nil {
		deps.DocumentHandler.RegisterRoutes(api)
	}
	if deps.CategoryHandler != nil {
		deps.CategoryHandler.RegisterRoutes(api)
	}

	return r
}

func rateLimitGroup(c *gin.Context) string {
	path := c.Request.URL.Path
	if path == "/metrics" || strings.HasPrefix(path, "/api/v1/health/") {
		return rateLimitExempt
	}
	if c.Request.Method == http.MethodGet && c.FullPath() == "/api/v1/documents/:id" {
		return rateLimitPolling
	}
	return rateLimitDefault
}

// Addr normalizes the listen address.
func Addr(port string) string {
	if port == "" {
		return ":8080"
	}
	if port[0] == ':' {
		return port
	}
	return ":" + port
}

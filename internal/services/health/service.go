package health

import (
	"context"
	"database/sql"
	"net/http"
	"sort"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"

	"github.com/BilalEnesS/doc-panel/internal/shared/server/respond"
)

const defaultCheckTimeout = 2 * time.Second

// Check reports whether one dependency is usable.
type Check func(ctx context.Context) error

// Service encapsulates liveness and readiness checks.
type Service struct {
	Timeout time.Duration

	mu     sync.RWMutex
	checks map[string]Check
}

// NewService constructs a new health service.
func NewService() *Service {
	return &Service{Timeout: defaultCheckTimeout, checks: make(map[string]Check)}
}

// Register adds a named readiness check.
func (s *Service) Register(name string, check Check) {
	if check == nil {
		return
	}
	s.mu.Lock()
	s.checks[name] = check
	s.mu.Unlock()
}

// DBCheck pings a database.
func DBCheck(db *sql.DB) Check {
	return func(ctx context.Context) error { return db.PingContext(ctx) }
}

// RedisCheck pings a Redis client.
func RedisCheck(client redis.UniversalClient) Check {
	return func(ctx context.Context) error { return client.Ping(ctx).Err() }
}

// Ready runs every check concurrently and returns the failures by name.
func (s *Service) Ready(ctx context.Context) map[string]string {
	s.mu.RLock()
	names := make([]string, 0, len(s.checks))
	for name := range s.checks {
		names = append(names, name)
	}
	sort.Strings(names)
	checks := make([]Check, len(names))
	for i, name := range names {
		checks[i] = s.checks[name]
	}
	s.mu.RUnlock()

	timeout := s.Timeout
	if timeout <= 0 {
		timeout = defaultCheckTimeout
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	errs := make([]error, len(checks))
	var wg sync.WaitGroup
	for i, check := range checks {
		wg.Add(1)
		go func(i int, check Check) {
			defer wg.Done()
			errs[i] = check(ctx)
		}(i, check)
	}
	wg.Wait()

	failed := make(map[string]string)
	for i, err := range errs {
		if err != nil {
			failed[names[i]] = err.Error()
		}
	}
	return failed
}

// RegisterRoutes attaches /health/live and /health/ready.
func (s *Service) RegisterRoutes(rg *gin.RouterGroup) {
	rg.GET("/health/live", func(c *gin.Context) {
		respond.OK(c, gin.H{"status": "alive"})
	})
	rg.GET("/health/ready", func(c *gin.Context) {
		failed := s.Ready(c.Request.Context())
		if len(failed) > 0 {
			respond.JSON(c, http.StatusServiceUnavailable, gin.H{"status": "not_ready", "checks": failed})
			return
		}
		respond.OK(c, gin.H{"status": "ready"})
	})
}

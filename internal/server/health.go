package server

import (
	"context"
	"net/http"
	"sort"
	"time"

	"github.com/gin-gonic/gin"
)

// Health states.
const (
	StatusHealthy   = "healthy"
	StatusUnhealthy = "unhealthy"
)

const healthCheckTimeout = 5 * time.Second

// Check probes one dependency. A nil error means healthy.
type Check func(ctx context.Context) error

// CheckResult is the outcome of one named check.
type CheckResult struct {
	Status  string `json:"status"`
	Message string `json:"message,omitempty"`
	Latency string `json:"latency"`
}

// HealthResponse is the body of GET /health.
type HealthResponse struct {
	Status  string                 `json:"status"`
	Service string                 `json:"service"`
	Version string                 `json:"version"`
	Uptime  string                 `json:"uptime"`
	Checks  map[string]CheckResult `json:"checks,omitempty"`
}

// RegisterHealthRoutes mounts GET and HEAD /health. The service reports
// unhealthy with a 503 when any check fails.
func RegisterHealthRoutes(router gin.IRoutes, service, version string, checks map[string]Check) {
	started := time.Now()

	names := make([]string, 0, len(checks))
	for name := range checks {
		names = append(names, name)
	}
	sort.Strings(names)

	run := func(ctx context.Context) HealthResponse {
		resp := HealthResponse{
			Status:  StatusHealthy,
			Service: service,
			Version: version,
			Uptime:  time.Since(started).Truncate(time.Second).String(),
		}
		if len(names) == 0 {
			return resp
		}

		ctx, cancel := context.WithTimeout(ctx, healthCheckTimeout)
		defer cancel()

		resp.Checks = make(map[string]CheckResult, len(names))
		for _, name := range names {
			begin := time.Now()
			err := checks[name](ctx)
			res := CheckResult{Status: StatusHealthy, Latency: time.Since(begin).String()}
			if err != nil {
				res.Status = StatusUnhealthy
				res.Message = err.Error()
				resp.Status = StatusUnhealthy
			}
			resp.Checks[name] = res
		}
		return resp
	}

	code := func(r HealthResponse) int {
		if r.Status == StatusHealthy {
			return http.StatusOK
		}
		return http.StatusServiceUnavailable
	}

	router.GET("/health", func(c *gin.Context) {
		resp := run(c.Request.Context())
		c.JSON(code(resp), resp)
	})
	router.HEAD("/health", func(c *gin.Context) {
		c.Status(code(run(c.Request.Context())))
	})
}

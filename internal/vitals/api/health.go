package api

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
)

// Pinger is satisfied by the database wrapper and the redis client.
type Pinger interface {
	Ping(ctx context.Context) error
}

type pingerFunc func(ctx context.Context) error

func (f pingerFunc) Ping(ctx context.Context) error { return f(ctx) }

// PingerFunc adapts a plain function to Pinger.
func PingerFunc(f func(ctx context.Context) error) Pinger { return pingerFunc(f) }

type dependencyStatus struct {
	Status         string `json:"status"`
	ResponseTimeMs *int64 `json:"response_time_ms,omitempty"`
	Error          string `json:"error,omitempty"`
}

type healthResponse struct {
	Service      string                      `json:"service"`
	Status       string                      `json:"status"`
	Dependencies map[string]dependencyStatus `json:"dependencies"`
}

// Health reports per-dependency status. Any unhealthy dependency makes the
// overall report unhealthy with a 503.
type Health struct {
	Dependencies map[string]Pinger
}

func (h *Health) RegisterRoutes(router *gin.Engine) {
	router.GET("/health", h.Check)
}

func (h *Health) Check(c *gin.Context) {
	resp := healthResponse{
		Service:      "vitalwatch",
		Status:       "healthy",
		Dependencies: make(map[string]dependencyStatus, len(h.Dependencies)),
	}
	for name, dep := range h.Dependencies {
		ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
		start := time.Now()
		err := dep.Ping(ctx)
		elapsed := time.Since(start).Milliseconds()
		cancel()
		if err != nil {
			resp.Status = "unhealthy"
			resp.Dependencies[name] = dependencyStatus{Status: "unhealthy", Error: err.Error()}
			continue
		}
		resp.Dependencies[name] = dependencyStatus{Status: "healthy", ResponseTimeMs: &elapsed}
	}
	code := http.StatusOK
	if resp.Status != "healthy" {
		code = http.StatusServiceUnavailable
	}
	c.JSON(code, resp)
}

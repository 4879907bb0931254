package server

import (
	"net/http"
	"sync/atomic"

	"github.com/gin-gonic/gin"
)

type HealthHandler struct {
	analyzer    Analyzer
	cacheHealth *atomic.Bool
}

// NewHealthHandler creates a health handler. cacheHealth is nil when no
// cache is configured.
func NewHealthHandler(a Analyzer, cacheHealth *atomic.Bool) *HealthHandler {
	return &HealthHandler{analyzer: a, cacheHealth: cacheHealth}
}

type HealthStatus struct {
	Status     string            `json:"status"`
	Components map[string]string `json:"components"`
}

// Health handles GET /health. The process keeps serving when the artifacts
// failed to load, so that case is reported as degraded rather than down.
func (h *HealthHandler) Health(c *gin.Context) {
	components := make(map[string]string)
	status := "healthy"

	switch {
	case h.analyzer.Ready():
		components["artifacts"] = "ok"
	case h.analyzer.Unavailable():
		components["artifacts"] = "unavailable"
		status = "degraded"
	default:
		components["artifacts"] = "not loaded"
	}

	switch {
	case h.cacheHealth == nil:
		components["cache"] = "not configured"
	case h.cacheHealth.Load():
		components["cache"] = "ok"
	default:
		components["cache"] = "unhealthy"
		status = "degraded"
	}

	c.JSON(http.StatusOK, HealthStatus{
		Status:     status,
		Components: components,
	})
}

// Ready handles GET /ready. Only a failed load is not ready: with lazy
// loading the first request is what triggers the load.
func (h *HealthHandler) Ready(c *gin.Context) {
	if h.analyzer.Unavailable() {
		c.JSON(http.StatusServiceUnavailable, gin.H{"status": "not ready", "reason": "artifacts unavailable"})
		return
	}

	artifacts := "loaded"
	if !h.analyzer.Ready() {
		artifacts = "not loaded"
	}
	c.JSON(http.StatusOK, gin.H{"status": "ready", "artifacts": artifacts})
}
